package dynamicrouter

import (
	"log/slog"
	"time"

	"ccr-hq/gateway/internal/chatrequest"
	"ccr-hq/gateway/internal/gwconfig"
	"ccr-hq/gateway/internal/health"
	"ccr-hq/gateway/pkg/telemetry/tracing"
)

// Options configures a Coordinator. Zero values fall back to the defaults
// in internal/gwconfig.
type Options struct {
	ConfigPath          string
	MaxVersions         int
	DebounceInterval    time.Duration
	WriteSettleWindow   time.Duration
	HealthProbeInterval time.Duration
	RollbackOnFailure   bool
	HotReloadEnabled    bool
	BackgroundMarker    string
	SkipConnectivityChecks bool
	Metrics             *health.Metrics
	Logger              *slog.Logger
	Tracer              *tracing.Tracer
}

func (o *Options) applyDefaults() {
	if o.Tracer == nil {
		o.Tracer, _ = tracing.New(tracing.Config{Enabled: false})
	}
	if o.MaxVersions <= 0 {
		o.MaxVersions = gwconfig.DefaultMaxVersions
	}
	if o.DebounceInterval <= 0 {
		o.DebounceInterval = gwconfig.DefaultDebounceInterval
	}
	if o.WriteSettleWindow <= 0 {
		o.WriteSettleWindow = gwconfig.DefaultWriteSettleWindow
	}
	if o.HealthProbeInterval <= 0 {
		o.HealthProbeInterval = 5 * time.Minute
	}
	if o.BackgroundMarker == "" {
		o.BackgroundMarker = chatrequest.DefaultBackgroundMarker
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}
