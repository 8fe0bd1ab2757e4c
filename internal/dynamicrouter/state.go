package dynamicrouter

// State is the coordinator's own health classification, distinct from
// provider health: it reflects whether recent configuration updates (and
// routing calls) have been succeeding (spec.md §4.9).
type State string

const (
	StateUninitialized State = "uninitialized"
	StateHealthy       State = "healthy"
	StateDegraded      State = "degraded"
	StateFailed        State = "failed"
)
