package gwconfig

import "time"

// Default values applied where the config document leaves a field unset.
const (
	DefaultHost              = "127.0.0.1"
	DefaultPort              = 3456
	DefaultAPITimeoutMS      = 600000
	DefaultActiveGroup       = "router1"
	DefaultMaxVersions       = 10
	DefaultDebounceInterval  = 500 * time.Millisecond
	DefaultWriteSettleWindow = 100 * time.Millisecond
	DefaultHealthProbeCron   = "@every 5m"
	DefaultHealthProbeTimeout = 10 * time.Second
	DefaultConnectivityTimeout = 5 * time.Second
	DefaultUpdateLockTimeout  = 30 * time.Second
)

// ApplyDefaults mutates cfg in place, filling in fields the spec requires a
// default for. It never overrides an explicitly set value.
func ApplyDefaults(cfg *Config) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.APITimeoutMS == 0 {
		cfg.APITimeoutMS = DefaultAPITimeoutMS
	}
	if cfg.Router.LongContextThreshold == 0 {
		cfg.Router.LongContextThreshold = DefaultLongContextThreshold
	}
	for id, group := range cfg.RouterGroups {
		if group.LongContextThreshold == 0 {
			group.LongContextThreshold = DefaultLongContextThreshold
			cfg.RouterGroups[id] = group
		}
	}
}
