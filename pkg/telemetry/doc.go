// Package telemetry groups the gateway's observability subpackages:
// structured logging with PII redaction, OpenTelemetry tracing, and
// liveness/readiness/version HTTP endpoints. Unlike a combined facade,
// each subpackage is constructed and used independently by whichever
// component needs it — there is no shared telemetry.New entry point.
//
// # Components
//
//   - logging: structured, PII-redacting *slog.Logger construction
//     (ccr-hq/gateway/pkg/telemetry/logging), used by cmd/ccr's
//     foreground process to build the gateway's default logger.
//   - tracing: OpenTelemetry span creation and W3C trace context
//     propagation (ccr-hq/gateway/pkg/telemetry/tracing), used by the
//     Dynamic Router coordinator for its config-update and routing-
//     decision spans.
//   - health: liveness, readiness, and version HTTP handlers
//     (ccr-hq/gateway/pkg/telemetry/health), registered by the Control
//     API alongside the coordinator-state readiness check.
//
// Prometheus metrics live outside this package, in
// ccr-hq/gateway/internal/health, instrumenting the Provider Health
// Manager's probe outcomes directly rather than through a generic
// telemetry facade.
//
// # Usage
//
//	logger, _ := logging.New(logging.Config{Format: "json", RedactPII: true})
//	defer logger.Shutdown()
//
//	tracer, _ := tracing.New(tracing.Config{Enabled: true, Sampler: "ratio", SampleRatio: 0.1})
//	defer tracer.Shutdown(context.Background())
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("coordinator", coordinatorCheck)
//	mux.HandleFunc("GET /healthz", checker.LivenessHandler())
//	mux.HandleFunc("GET /readyz", checker.ReadinessHandler())
package telemetry
