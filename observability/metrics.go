package observability

import (
	"context"
	"sync"
	"time"
)

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the package-level Metrics bound to the global meter
// provider, creating it on first use. When no meter provider has been
// installed the instruments are no-ops.
func Default() *Metrics {
	defaultOnce.Do(func() {
		m, err := NewMetrics(Meter(defaultTracerName))
		if err != nil {
			return
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordSpawn records a spawn on the default metrics instance.
func RecordSpawn(ctx context.Context, binary string) {
	if m := Default(); m != nil {
		m.RecordSpawn(ctx, binary)
	}
}

// RecordExit records an exit on the default metrics instance.
func RecordExit(ctx context.Context, binary string, code int, duration time.Duration) {
	if m := Default(); m != nil {
		m.RecordExit(ctx, binary, code, duration)
	}
}

// RecordTerminate records a termination signal on the default metrics instance.
func RecordTerminate(ctx context.Context, binary string) {
	if m := Default(); m != nil {
		m.RecordTerminate(ctx, binary)
	}
}
