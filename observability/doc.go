// Package observability provides OpenTelemetry tracing and metrics
// integration for process execution.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("my-service"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "process.run")
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("my-service"))
//	defer mp.Shutdown(ctx)
//
// Until InitTracer/InitMeter run, the global OpenTelemetry providers are
// no-ops, so instrumented code is safe to call without any setup.
package observability
