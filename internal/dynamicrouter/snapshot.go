package dynamicrouter

import (
	"ccr-hq/gateway/internal/configkernel"
	"ccr-hq/gateway/internal/gwconfig"
)

// Snapshot is the immutable Active Snapshot published by the coordinator on
// every successful update (spec.md §3). A request captures a Snapshot
// reference at entry and sees it consistently for its entire lifetime; the
// coordinator only ever replaces the pointer, never mutates a published
// Snapshot's fields.
type Snapshot struct {
	Config             gwconfig.Config
	Router             gwconfig.Router
	CustomRouterLoaded bool
	ActiveGroup        string
	Version            configkernel.Version
}
