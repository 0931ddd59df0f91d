package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/prockit/logger"
	"github.com/kbukum/prockit/version"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.Short(),
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds OpenTelemetry instruments for process execution.
type Metrics struct {
	spawnTotal      metric.Int64Counter
	exitTotal       metric.Int64Counter
	processActive   metric.Int64UpDownCounter
	processDuration metric.Float64Histogram
	terminateTotal  metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	spawnTotal, err := meter.Int64Counter("process.spawn.total",
		metric.WithDescription("Total number of processes spawned"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.spawn.total counter: %w", err)
	}

	exitTotal, err := meter.Int64Counter("process.exit.total",
		metric.WithDescription("Total number of processes reaped, by exit code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.exit.total counter: %w", err)
	}

	processActive, err := meter.Int64UpDownCounter("process.active",
		metric.WithDescription("Number of currently running child processes"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.active gauge: %w", err)
	}

	processDuration, err := meter.Float64Histogram("process.duration",
		metric.WithDescription("Wall-clock runtime of child processes in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.duration histogram: %w", err)
	}

	terminateTotal, err := meter.Int64Counter("process.terminate.total",
		metric.WithDescription("Total number of termination signals sent"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.terminate.total counter: %w", err)
	}

	return &Metrics{
		spawnTotal:      spawnTotal,
		exitTotal:       exitTotal,
		processActive:   processActive,
		processDuration: processDuration,
		terminateTotal:  terminateTotal,
	}, nil
}

// RecordSpawn records a successful process spawn.
func (m *Metrics) RecordSpawn(ctx context.Context, binary string) {
	attrs := metric.WithAttributes(attribute.String("binary", binary))
	m.spawnTotal.Add(ctx, 1, attrs)
	m.processActive.Add(ctx, 1, attrs)
}

// RecordExit records a reaped process: its exit code and runtime.
func (m *Metrics) RecordExit(ctx context.Context, binary string, code int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("binary", binary),
		attribute.Int("exit_code", code),
	)
	m.processActive.Add(ctx, -1, metric.WithAttributes(attribute.String("binary", binary)))
	m.exitTotal.Add(ctx, 1, attrs)
	m.processDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("binary", binary),
	))
}

// RecordTerminate records a termination signal delivery.
func (m *Metrics) RecordTerminate(ctx context.Context, binary string) {
	m.terminateTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("binary", binary)))
}
