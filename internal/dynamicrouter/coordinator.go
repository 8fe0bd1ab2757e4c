// Package dynamicrouter is the Dynamic Router coordinator (spec.md §4.9):
// it owns every other Config Kernel component, serializes every mutation
// through a single update lock, and publishes an immutable Active Snapshot
// that request handlers read without locking. Grounded on the teacher's
// pkg/policy/manager/manager.go load/reload/watch shape, generalized from
// "policies" to routing configuration, and on pkg/server/server.go's
// Start/Shutdown lifecycle.
package dynamicrouter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"ccr-hq/gateway/internal/chatrequest"
	"ccr-hq/gateway/internal/configkernel"
	"ccr-hq/gateway/internal/customrouter"
	"ccr-hq/gateway/internal/gwconfig"
	"ccr-hq/gateway/internal/health"
	"ccr-hq/gateway/internal/routergroup"
	"ccr-hq/gateway/internal/routing"
	"ccr-hq/gateway/pkg/telemetry/tracing"
)

// UpdateResult reports the outcome of one trip through the update
// pipeline, returned to the caller and published as a configUpdated or
// updateFailed event.
type UpdateResult struct {
	Success           bool
	Validation        configkernel.Result
	RollbackPerformed bool
	Version           configkernel.Version
	Err               error
}

// Coordinator is the Dynamic Router. Construct with New, bring up with
// Initialize then Start, and tear down with Shutdown.
type Coordinator struct {
	opts Options

	// mu is the single-writer update lock (spec.md §4.9/§5): it protects
	// every mutation path (store writes, the version ring, router groups,
	// the custom router binding, provider health's config-driven updates)
	// and nothing else. Readers never take it.
	mu                 sync.Mutex
	consecutiveErrors  int
	lastCustomRouterPath string

	store     *configkernel.Store
	watcher   *configkernel.Watcher
	validator *configkernel.Validator
	versions  *configkernel.VersionManager
	groups    *routergroup.Manager
	custom    *customrouter.Loader
	healthMgr *health.Manager
	engine    *routing.Engine

	snapshot atomic.Pointer[Snapshot]
	stateVal atomic.Value // State

	bus *bus

	startOnce    sync.Once
	shutdownOnce sync.Once
}

// New constructs a Coordinator and its component set, but does not load or
// publish any configuration yet; call Initialize next.
func New(opts Options) (*Coordinator, error) {
	opts.applyDefaults()

	store := configkernel.NewStore(opts.ConfigPath)

	watcher, err := configkernel.NewWatcher(opts.Logger, opts.DebounceInterval, opts.WriteSettleWindow)
	if err != nil {
		return nil, fmt.Errorf("dynamicrouter: create watcher: %w", err)
	}

	custom := customrouter.NewLoader()
	validator := configkernel.NewValidator(customrouter.Check)
	if opts.SkipConnectivityChecks {
		validator.DisableConnectivityChecks()
	}
	versions := configkernel.NewVersionManager(opts.MaxVersions)

	tok, err := routing.NewTiktokenTokenizer()
	if err != nil {
		return nil, fmt.Errorf("dynamicrouter: create tokenizer: %w", err)
	}

	healthMgr := health.NewManager(opts.HealthProbeInterval, opts.Metrics)

	c := &Coordinator{
		opts:      opts,
		store:     store,
		watcher:   watcher,
		validator: validator,
		versions:  versions,
		custom:    custom,
		healthMgr: healthMgr,
		bus:       newBus(),
	}
	c.stateVal.Store(StateUninitialized)
	c.engine = routing.NewEngine(tok, custom, healthMgr, opts.BackgroundMarker)

	healthMgr.OnStatusChange(func(name string, status health.Status) {
		c.bus.Publish(TopicHealthStatusChanged, HealthStatusChange{Provider: name, Status: string(status)})
	})

	return c, nil
}

// Initialize brings the coordinator to its first Active Snapshot. If
// initial is non-nil it is used as-is (the common case for tests and for a
// CLI's --config flag already having parsed the document); otherwise the
// configured path is read via the Config Store (spec.md §4.9).
func (c *Coordinator) Initialize(ctx context.Context, initial *gwconfig.Document) error {
	doc := initial
	var err error
	if doc == nil {
		doc, err = c.store.Load()
		if err != nil {
			return fmt.Errorf("dynamicrouter: initialize: %w", err)
		}
	}

	gwconfig.ApplyDefaults(&doc.Config)
	if doc.Config.Router.Default == "" {
		doc.Config.Router.Default = placeholderTarget
	}

	c.mu.Lock()
	groups, err := routergroup.NewManager(doc.Config, c.onGroupSwitch)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("dynamicrouter: initialize: %w", err)
	}
	c.groups = groups
	c.mu.Unlock()

	result, err := c.ApplyUpdate(ctx, doc, configkernel.SourceManual)
	if err != nil {
		return fmt.Errorf("dynamicrouter: initialize: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("dynamicrouter: initialize: invalid initial configuration (score %d)", result.Validation.Score)
	}
	return nil
}

// placeholderTarget is used when a config omits Router.default entirely, so
// routing remains functional rather than erroring on every request
// (spec.md §4.9: "ensure Router.default exists").
const placeholderTarget = "placeholder,placeholder"

// Start begins file watching, gated by Options.HotReloadEnabled. It does not
// start provider health probing: probing begins when an update registers
// providers with the health manager, which Initialize's first update does.
func (c *Coordinator) Start(context.Context) error {
	var startErr error
	c.startOnce.Do(func() {
		if !c.opts.HotReloadEnabled {
			return
		}
		paths := map[configkernel.ChangeKind]string{
			configkernel.ChangeKindConfig: c.store.Path(),
		}
		if snap := c.CurrentSnapshot(); snap.Config.CustomRouterPath != "" {
			paths[configkernel.ChangeKindCustomRouter] = snap.Config.CustomRouterPath
		}
		startErr = c.watcher.Watch(paths, c.onFileChange)
	})
	return startErr
}

// Shutdown stops file watching and provider health probing. Safe to call
// more than once; only the first call has effect.
func (c *Coordinator) Shutdown(context.Context) error {
	c.shutdownOnce.Do(func() {
		c.watcher.Close()
		c.healthMgr.Close()
	})
	return nil
}

func (c *Coordinator) onFileChange(ev configkernel.ChangeEvent) {
	if ev.Err != nil {
		c.bus.Publish(TopicError, ev.Err)
		return
	}

	switch ev.Kind {
	case configkernel.ChangeKindConfig:
		doc, err := gwconfig.Decode(ev.Path, ev.Content)
		if err != nil {
			c.bus.Publish(TopicError, fmt.Errorf("file watch: decode config: %w", err))
			return
		}
		gwconfig.ApplyDefaults(&doc.Config)
		if _, err := c.ApplyUpdate(context.Background(), doc, configkernel.SourceFileWatch); err != nil {
			c.bus.Publish(TopicError, err)
		}

	case configkernel.ChangeKindCustomRouter:
		c.mu.Lock()
		err := c.custom.Reload()
		c.mu.Unlock()
		if err != nil {
			c.bus.Publish(TopicError, fmt.Errorf("file watch: reload custom router: %w", err))
		}
	}
}

// ApplyUpdate runs the update pipeline for a candidate document (spec.md
// §4.9): validate, and on a critical finding either roll back (if enabled)
// or fail without touching the active snapshot; otherwise write, version,
// recompute the router-group view and custom-router binding, publish, and
// emit configUpdated.
func (c *Coordinator) ApplyUpdate(ctx context.Context, doc *gwconfig.Document, source configkernel.Source) (UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyUpdateLocked(ctx, doc, source)
}

func (c *Coordinator) applyUpdateLocked(ctx context.Context, doc *gwconfig.Document, source configkernel.Source) (result2 UpdateResult, err2 error) {
	ctx, span := c.opts.Tracer.Start(ctx, "dynamicrouter.apply_update")
	defer func() {
		tracing.SetStatus(span, err2)
		span.End()
	}()

	result := c.validator.Validate(ctx, &doc.Config)

	if !result.IsValid {
		rollbackPerformed := false
		if c.opts.RollbackOnFailure {
			tracing.AddEvent(span, "validation_critical_error")
			if target, ok := c.mostRecentRollbackableNonActive(); ok {
				if v, err := c.performRollbackLocked(target.ID); err == nil {
					rollbackPerformed = true
					tracing.SetVersionAttributes(span, v.ID, v.Ordinal, describeSource(source), true)
					c.bus.Publish(TopicRollbackCompleted, v)
				}
			}
		}
		c.recordErrorLocked()
		ur := UpdateResult{Success: false, Validation: result, RollbackPerformed: rollbackPerformed}
		c.bus.Publish(TopicUpdateFailed, ur)
		return ur, nil
	}

	if err := c.store.Write(doc); err != nil {
		c.recordErrorLocked()
		ur := UpdateResult{Success: false, Validation: result, Err: err}
		c.bus.Publish(TopicUpdateFailed, ur)
		return ur, err
	}

	version, err := c.versions.AddVersionWithSource(doc, source, describeSource(source))
	if err != nil {
		c.recordErrorLocked()
		ur := UpdateResult{Success: false, Validation: result, Err: err}
		c.bus.Publish(TopicUpdateFailed, ur)
		return ur, err
	}

	if c.groups == nil {
		c.groups, err = routergroup.NewManager(doc.Config, c.onGroupSwitch)
	} else {
		err = c.groups.Reload(doc.Config)
	}
	if err != nil {
		c.recordErrorLocked()
		ur := UpdateResult{Success: false, Validation: result, Err: err}
		c.bus.Publish(TopicUpdateFailed, ur)
		return ur, err
	}

	c.loadCustomRouterLocked(doc.Config)
	c.healthMgr.UpdateProviders(doc.Config.Providers)
	c.publish(version)
	c.resetErrorsLocked()
	tracing.SetVersionAttributes(span, version.ID, version.Ordinal, describeSource(source), false)

	ur := UpdateResult{Success: true, Validation: result, Version: version}
	c.bus.Publish(TopicConfigUpdated, ur)
	return ur, nil
}

func describeSource(source configkernel.Source) string {
	switch source {
	case configkernel.SourceFileWatch:
		return "file watch"
	case configkernel.SourceAPI:
		return "control api"
	default:
		return "manual"
	}
}

// loadCustomRouterLocked binds the configured custom router file, fail-safe
// per spec.md §4.6: a load/reload error is logged and published on the
// error topic, and the previously loaded function (if any) stays in place.
func (c *Coordinator) loadCustomRouterLocked(cfg gwconfig.Config) {
	if cfg.CustomRouterPath == "" {
		return
	}

	var err error
	if !c.custom.Loaded() || c.lastCustomRouterPath != cfg.CustomRouterPath {
		err = c.custom.Load(cfg.CustomRouterPath)
	} else {
		err = c.custom.Reload()
	}

	if err != nil {
		c.opts.Logger.Warn("custom router load failed, keeping previous binding",
			"path", cfg.CustomRouterPath, "error", err)
		c.bus.Publish(TopicError, err)
		return
	}
	c.lastCustomRouterPath = cfg.CustomRouterPath
}

// publish builds and installs a new Active Snapshot from version, reading
// the router-group and custom-router state each of which is independently
// synchronized, so publish needs no lock of its own.
func (c *Coordinator) publish(version configkernel.Version) {
	snap := &Snapshot{
		Config:             version.Config,
		Router:             c.groups.MergedRouter(),
		CustomRouterLoaded: c.custom.Loaded(),
		ActiveGroup:        c.groups.ActiveGroup(),
		Version:            version,
	}
	c.snapshot.Store(snap)
}

func (c *Coordinator) mostRecentRollbackableNonActive() (configkernel.Version, bool) {
	versions := c.versions.List()
	for i := len(versions) - 1; i >= 0; i-- {
		v := versions[i]
		if v.IsActive || !v.RollbackSupported {
			continue
		}
		return v, true
	}
	return configkernel.Version{}, false
}

// performRollbackLocked reactivates version id, writes it through the
// Config Store, and republishes. Shared by the update pipeline's
// rollback-on-failure path and the public RollbackToVersion API.
func (c *Coordinator) performRollbackLocked(id string) (configkernel.Version, error) {
	doc, err := c.versions.RollbackToVersion(id)
	if err != nil {
		return configkernel.Version{}, err
	}
	if err := c.store.Write(doc); err != nil {
		return configkernel.Version{}, err
	}
	if c.groups == nil {
		c.groups, err = routergroup.NewManager(doc.Config, c.onGroupSwitch)
	} else {
		err = c.groups.Reload(doc.Config)
	}
	if err != nil {
		return configkernel.Version{}, err
	}
	c.loadCustomRouterLocked(doc.Config)
	c.healthMgr.UpdateProviders(doc.Config.Providers)

	active, ok := c.versions.GetActive()
	if !ok {
		return configkernel.Version{}, fmt.Errorf("dynamicrouter: rollback: no active version after rollback")
	}
	c.publish(active)
	return active, nil
}

// RollbackToVersion activates a prior version on demand (the control API's
// POST /config/rollback), outside the normal update-on-failure path.
func (c *Coordinator) RollbackToVersion(id string) (configkernel.Version, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.performRollbackLocked(id)
	if err != nil {
		return configkernel.Version{}, err
	}
	c.resetErrorsLocked()
	c.bus.Publish(TopicRollbackCompleted, v)
	return v, nil
}

func (c *Coordinator) recordErrorLocked() {
	c.consecutiveErrors++
	switch {
	case c.consecutiveErrors > 3:
		c.stateVal.Store(StateFailed)
	case c.consecutiveErrors > 2:
		c.stateVal.Store(StateDegraded)
	}
}

func (c *Coordinator) resetErrorsLocked() {
	c.consecutiveErrors = 0
	c.stateVal.Store(StateHealthy)
}

// degradeOnPanic enters the degraded state after a recovered routing panic
// without touching configuration state, per spec.md §4.9.
func (c *Coordinator) degradeOnPanic() {
	if c.GetState() != StateFailed {
		c.stateVal.Store(StateDegraded)
	}
}

// GetState returns the coordinator's current health classification.
func (c *Coordinator) GetState() State {
	if v := c.stateVal.Load(); v != nil {
		return v.(State)
	}
	return StateUninitialized
}

// CurrentSnapshot returns the most recently published Active Snapshot. The
// zero Snapshot is returned if Initialize has not yet completed.
func (c *Coordinator) CurrentSnapshot() Snapshot {
	p := c.snapshot.Load()
	if p == nil {
		return Snapshot{}
	}
	return *p
}

// Route resolves a (provider, model) target for req against the current
// snapshot. A panic inside the routing engine is recovered and reported as
// an error rather than crashing the request handler, entering the degraded
// state without mutating any config state (spec.md §4.9).
func (c *Coordinator) Route(req chatrequest.Request) (decision routing.Decision, err error) {
	_, span := c.opts.Tracer.Start(context.Background(), "dynamicrouter.route")
	defer func() {
		tracing.SetStatus(span, err)
		span.End()
	}()
	defer func() {
		if r := recover(); r != nil {
			c.degradeOnPanic()
			err = fmt.Errorf("routing: recovered panic: %v", r)
		}
	}()

	snap := c.CurrentSnapshot()
	decision, err = c.engine.Route(req, snap.Router, snap.Config)
	if err == nil {
		provider, model, _ := routing.Target(decision.Target)
		tracing.SetRoutingAttributes(span, provider, model, string(decision.Rule), decision.TokenCount, decision.Degraded)
		tracing.SetGroupAttribute(span, snap.ActiveGroup)
	}
	return decision, err
}

func (c *Coordinator) onGroupSwitch(ev routergroup.SwitchedEvent) {
	if active, ok := c.versions.GetActive(); ok {
		c.publish(active)
	}
	c.bus.Publish(TopicGroupSwitched, ev)
}

// SwitchGroup activates the named router group (the control API's
// POST /router-groups/switch).
func (c *Coordinator) SwitchGroup(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.groups.SwitchToGroup(id)
}

// GroupIDs returns the defined router group ids, sorted.
func (c *Coordinator) GroupIDs() []string {
	return c.groups.GroupIDs()
}

// ActiveGroup returns the current active group id, or "" if none.
func (c *Coordinator) ActiveGroup() string {
	return c.groups.ActiveGroup()
}

// Group returns one router group's definition.
func (c *Coordinator) Group(id string) (gwconfig.RouterGroup, bool) {
	return c.groups.Group(id)
}

// Versions returns the version history, oldest first.
func (c *Coordinator) Versions() []configkernel.Version {
	return c.versions.List()
}

// Version returns a single version by id.
func (c *Coordinator) Version(id string) (configkernel.Version, error) {
	return c.versions.Get(id)
}

// VersionDiff reports the added/removed/modified/unchanged top-level keys
// between two versions.
func (c *Coordinator) VersionDiff(fromID, toID string) (configkernel.VersionDiff, error) {
	return c.versions.GetVersionDiff(fromID, toID)
}

// ValidateCandidate runs the validator over cfg without touching any
// coordinator state (the control API's POST /config/validate).
func (c *Coordinator) ValidateCandidate(ctx context.Context, cfg gwconfig.Config) configkernel.Result {
	return c.validator.Validate(ctx, &cfg)
}

// HotReload re-reads the configured path from disk and runs it through the
// update pipeline (the control API's POST /config/hot-reload).
func (c *Coordinator) HotReload(ctx context.Context) (UpdateResult, error) {
	doc, err := c.store.Load()
	if err != nil {
		return UpdateResult{}, err
	}
	gwconfig.ApplyDefaults(&doc.Config)
	return c.ApplyUpdate(ctx, doc, configkernel.SourceAPI)
}

// ConfigPath returns the coordinator's configured document path.
func (c *Coordinator) ConfigPath() string {
	return c.store.Path()
}

// MaxVersions returns the version ring's configured capacity.
func (c *Coordinator) MaxVersions() int {
	return c.opts.MaxVersions
}

// HotReloadEnabled reports whether the coordinator is watching its config
// file for changes.
func (c *Coordinator) HotReloadEnabled() bool {
	return c.opts.HotReloadEnabled
}

// ProviderHealthSnapshot returns the current provider health table.
func (c *Coordinator) ProviderHealthSnapshot() map[string]health.ProviderHealth {
	return c.healthMgr.Snapshot()
}

// Subscribe returns a channel receiving every Event published on topic.
func (c *Coordinator) Subscribe(topic Topic) <-chan Event {
	return c.bus.Subscribe(topic)
}
