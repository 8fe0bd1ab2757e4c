package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute helpers for the two spans this module actually records:
// a routing decision (dynamicrouter.route) and a config update
// (dynamicrouter.apply_update). Custom attribute keys use the "ccr.*"
// namespace to stay clear of OpenTelemetry's own semantic conventions
// (http.*, rpc.*, ...).
const (
	AttrProvider    = "ccr.provider"
	AttrModel       = "ccr.model"
	AttrRule        = "ccr.routing.rule"
	AttrTokenCount  = "ccr.routing.token_count"
	AttrDegraded    = "ccr.routing.degraded"

	AttrVersionID      = "ccr.version.id"
	AttrVersionOrdinal = "ccr.version.ordinal"
	AttrVersionSource  = "ccr.version.source"
	AttrRollback       = "ccr.version.rollback_performed"

	AttrGroupID = "ccr.router_group.id"
)

// SetRoutingAttributes records the outcome of a single routing decision on
// a span: the resolved provider/model pair, which priority rule matched,
// the estimated input token count, and whether the target resolved to a
// degraded or unhealthy provider.
//
// Example:
//
//	tracing.SetRoutingAttributes(span, "openai", "gpt-4", string(routing.RuleDefault), 1500, false)
func SetRoutingAttributes(span trace.Span, provider, model, rule string, tokenCount int, degraded bool) {
	span.SetAttributes(
		attribute.String(AttrProvider, provider),
		attribute.String(AttrModel, model),
		attribute.String(AttrRule, rule),
		attribute.Int(AttrTokenCount, tokenCount),
		attribute.Bool(AttrDegraded, degraded),
	)
}

// SetVersionAttributes records the config version produced by one trip
// through the update pipeline: its id, ordinal, the source that triggered
// the update, and whether an automatic rollback was performed.
//
// Example:
//
//	tracing.SetVersionAttributes(span, "v-7", 7, "file-watch", false)
func SetVersionAttributes(span trace.Span, versionID string, ordinal int, source string, rollbackPerformed bool) {
	span.SetAttributes(
		attribute.String(AttrVersionID, versionID),
		attribute.Int(AttrVersionOrdinal, ordinal),
		attribute.String(AttrVersionSource, source),
		attribute.Bool(AttrRollback, rollbackPerformed),
	)
}

// SetGroupAttribute records the active router group a merged routing view
// was computed from.
func SetGroupAttribute(span trace.Span, groupID string) {
	if groupID != "" {
		span.SetAttributes(attribute.String(AttrGroupID, groupID))
	}
}

// AddEvent adds a named event to the span with optional attributes. Events
// represent interesting points in the span's lifetime that don't warrant
// their own child span.
//
// Example:
//
//	tracing.AddEvent(span, "rollback_attempted", attribute.String("target_version", v.ID))
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
