// Package tracing provides OpenTelemetry span creation and W3C Trace
// Context propagation for the gateway's config-update and routing-decision
// code paths.
//
// # Overview
//
// Spans are recorded in-process only: there is no exporter configuration
// here, because nothing in this module's scope runs a trace backend. A
// Tracer still gives callers real OpenTelemetry spans (trace/span IDs,
// parent/child linkage, sampling) for anything that reads them off a
// context — log correlation, the Control API's request-id propagation —
// without needing a collector.
//
// # Sampling Strategies
//
// Three sampling strategies are supported:
//   - always: sample every span (development/debugging)
//   - never: sampling disabled, spans are noop
//   - ratio: sample a fraction of traces (SampleRatio), for production
//
// # Usage
//
//	tracer, err := tracing.New(tracing.Config{
//	    Enabled:     true,
//	    Sampler:     "ratio",
//	    SampleRatio: 0.1,
//	    ServiceName: "ccr-gateway",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "dynamicrouter.route")
//	defer span.End()
//	tracing.SetRoutingAttributes(span, provider, model, string(decision.Rule), decision.TokenCount, decision.Degraded)
//
// # Span Hierarchy
//
// The two spans this module records are independent, not nested:
//
//	dynamicrouter.apply_update   (one config validate-then-publish cycle)
//	dynamicrouter.route          (one routing decision)
//
// # HTTP Integration
//
// Extract trace context from incoming HTTP requests:
//
//	ctx := tracing.Extract(r.Context(), r.Header)
//	ctx, span := tracer.Start(ctx, "handle_request")
//	defer span.End()
//
// Inject trace context into outgoing HTTP requests:
//
//	req, _ := http.NewRequestWithContext(ctx, "POST", url, body)
//	tracing.Inject(ctx, req.Header)
//
// # Attribute Helpers
//
//	tracing.SetRoutingAttributes(span, "openai", "gpt-4", "default", 1500, false)
//	tracing.SetVersionAttributes(span, version.ID, version.Ordinal, string(source), rollbackPerformed)
//	tracing.SetError(span, err)
package tracing
