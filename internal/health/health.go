// Package health implements the Provider Health Manager: periodic liveness
// probing of each configured provider, a per-provider status table, and
// exponential backoff on repeated failure (spec.md §4.8).
package health

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ccr-hq/gateway/internal/gwconfig"
)

// Status is a provider's current liveness classification.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// ProbeKind is which HTTP method most recently produced a provider's
// status, since a probe retries once as OPTIONS when HEAD errors.
type ProbeKind string

const (
	ProbeHead    ProbeKind = "HEAD"
	ProbeOptions ProbeKind = "OPTIONS"
)

// ProviderHealth is the per-provider row of the health table.
type ProviderHealth struct {
	Name                string
	BaseURL             string
	Status              Status
	ConsecutiveFailures int
	ResponseTime        time.Duration
	LastCheck           time.Time
	LastError            string
	LastProbeKind       ProbeKind
}

const (
	probeTimeout        = 10 * time.Second
	degradedLatency     = 5 * time.Second
	failedAfterFailures = 3
	maxBackoff          = 5 * time.Minute
)

// UpdateResult summarizes a call to UpdateProviders.
type UpdateResult struct {
	ProvidersAdded   []string
	ProvidersRemoved []string
	ProvidersUpdated []string
	Errors           []error
}

// Manager owns the health table and its probe schedule.
type Manager struct {
	mu    sync.RWMutex
	table map[string]*ProviderHealth

	httpClient   *http.Client
	cron         *cron.Cron
	entries      map[string]cron.EntryID
	baseInterval time.Duration
	metrics      *Metrics

	onStatusChange func(name string, status Status)
}

// OnStatusChange registers a callback invoked whenever a provider's status
// changes, after the table has been updated. Used by the dynamic router
// coordinator to surface a healthStatusChanged event.
func (m *Manager) OnStatusChange(fn func(name string, status Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStatusChange = fn
}

// NewManager creates a Manager. baseInterval falls back to 5 minutes when
// <= 0, matching spec.md §4.8's default sweep cadence.
func NewManager(baseInterval time.Duration, metrics *Metrics) *Manager {
	if baseInterval <= 0 {
		baseInterval = 5 * time.Minute
	}

	m := &Manager{
		table:        make(map[string]*ProviderHealth),
		httpClient:   &http.Client{Timeout: probeTimeout},
		cron:         cron.New(),
		entries:      make(map[string]cron.EntryID),
		baseInterval: baseInterval,
		metrics:      metrics,
	}
	m.cron.Start()
	return m
}

// Close stops the probe schedule.
func (m *Manager) Close() {
	ctx := m.cron.Stop()
	<-ctx.Done()
}

// AddProvider registers a provider, probes it immediately, and schedules
// recurring probes at the base interval.
func (m *Manager) AddProvider(name, baseURL string) {
	m.mu.Lock()
	m.table[name] = &ProviderHealth{Name: name, BaseURL: baseURL, Status: StatusDegraded}
	m.mu.Unlock()

	m.probeOnce(name, baseURL)
	m.reschedule(name, baseURL, m.baseInterval)
}

// UpdateProvider re-probes a provider immediately after its URL or key
// changes, per spec.md §4.8's "immediate probe on ... URL/key change".
func (m *Manager) UpdateProvider(name, baseURL string) {
	m.mu.Lock()
	if row, ok := m.table[name]; ok {
		row.BaseURL = baseURL
	} else {
		m.table[name] = &ProviderHealth{Name: name, BaseURL: baseURL, Status: StatusDegraded}
	}
	m.mu.Unlock()

	m.probeOnce(name, baseURL)
	m.reschedule(name, baseURL, m.baseInterval)
}

// RemoveProvider drops a provider from the table and cancels its schedule.
func (m *Manager) RemoveProvider(name string) {
	m.mu.Lock()
	delete(m.table, name)
	if id, ok := m.entries[name]; ok {
		m.cron.Remove(id)
		delete(m.entries, name)
	}
	m.mu.Unlock()
}

// UpdateProviders diffs the given provider list against the current table,
// adding, updating, and removing rows as needed (spec.md §4.8).
func (m *Manager) UpdateProviders(providers []gwconfig.Provider) UpdateResult {
	var res UpdateResult

	wanted := make(map[string]string, len(providers))
	for _, p := range providers {
		wanted[p.Name] = p.APIBaseURL
	}

	m.mu.RLock()
	var toRemove []string
	for name := range m.table {
		if _, ok := wanted[name]; !ok {
			toRemove = append(toRemove, name)
		}
	}
	m.mu.RUnlock()

	for _, name := range toRemove {
		m.RemoveProvider(name)
		res.ProvidersRemoved = append(res.ProvidersRemoved, name)
	}

	for _, p := range providers {
		m.mu.RLock()
		row, exists := m.table[p.Name]
		m.mu.RUnlock()

		switch {
		case !exists:
			m.AddProvider(p.Name, p.APIBaseURL)
			res.ProvidersAdded = append(res.ProvidersAdded, p.Name)
		case row.BaseURL != p.APIBaseURL:
			m.UpdateProvider(p.Name, p.APIBaseURL)
			res.ProvidersUpdated = append(res.ProvidersUpdated, p.Name)
		}
	}

	return res
}

// StatusFor returns the current status of a named provider.
func (m *Manager) StatusFor(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.table[name]
	if !ok {
		return "", false
	}
	return row.Status, true
}

// Snapshot returns a copy of the full health table.
func (m *Manager) Snapshot() map[string]ProviderHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]ProviderHealth, len(m.table))
	for name, row := range m.table {
		out[name] = *row
	}
	return out
}

// IsHealthy implements internal/routing.HealthStatus: a "provider,model"
// target resolves to a healthy provider only when that provider's status
// is StatusHealthy.
func (m *Manager) IsHealthy(target string) bool {
	provider, _, ok := splitTarget(target)
	if !ok {
		return false
	}
	status, known := m.StatusFor(provider)
	return known && status == StatusHealthy
}

func splitTarget(target string) (provider, model string, ok bool) {
	idx := strings.IndexByte(target, ',')
	if idx < 0 {
		return "", "", false
	}
	provider, model = target[:idx], target[idx+1:]
	return provider, model, provider != "" && model != ""
}

// probeOnce performs a single HEAD-then-OPTIONS probe and records the
// result in the table and in metrics.
func (m *Manager) probeOnce(name, baseURL string) {
	status, latency, kind, probeErr := m.probe(baseURL)

	m.mu.Lock()
	row, ok := m.table[name]
	if !ok {
		row = &ProviderHealth{Name: name, BaseURL: baseURL}
		m.table[name] = row
	}
	previousStatus := row.Status

	if status == StatusFailed || probeErr != nil {
		row.ConsecutiveFailures++
	} else {
		row.ConsecutiveFailures = 0
	}
	switch {
	case row.ConsecutiveFailures >= failedAfterFailures:
		status = StatusFailed
	case row.ConsecutiveFailures > 0:
		status = StatusDegraded
	}

	row.Status = status
	row.ResponseTime = latency
	row.LastCheck = time.Now()
	row.LastProbeKind = kind
	if probeErr != nil {
		row.LastError = probeErr.Error()
	} else {
		row.LastError = ""
	}
	failures := row.ConsecutiveFailures
	onStatusChange := m.onStatusChange
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordProbe(name, status, latency)
	}
	if onStatusChange != nil && previousStatus != status {
		onStatusChange(name, status)
	}

	m.reschedule(name, baseURL, calculateBackoff(failures, m.baseInterval))
}

// probe performs a HEAD request against baseURL's host, retrying once as
// OPTIONS on error, and classifies the result per spec.md §4.8's status
// rules.
func (m *Manager) probe(baseURL string) (Status, time.Duration, ProbeKind, error) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	target := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		target = u.Scheme + "://" + u.Host
	}

	status, latency, err := m.doProbe(ctx, http.MethodHead, target)
	if err == nil {
		return status, latency, ProbeHead, nil
	}

	status, latency, err = m.doProbe(ctx, http.MethodOptions, target)
	if err != nil {
		return StatusFailed, latency, ProbeOptions, err
	}
	return status, latency, ProbeOptions, nil
}

func (m *Manager) doProbe(ctx context.Context, method, baseURL string) (Status, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, method, baseURL, nil)
	if err != nil {
		return StatusFailed, 0, err
	}
	req.Header.Set("User-Agent", "ccr-gateway-health")

	start := time.Now()
	resp, err := m.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return StatusFailed, latency, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return StatusFailed, latency, fmt.Errorf("health probe: status %d", resp.StatusCode)
	}
	if latency > degradedLatency {
		return StatusDegraded, latency, nil
	}
	return StatusHealthy, latency, nil
}

// calculateBackoff doubles the base interval per consecutive failure,
// capped at maxBackoff, grounded on the teacher's provider health
// backoff calculation.
func calculateBackoff(consecutiveFailures int, baseInterval time.Duration) time.Duration {
	if consecutiveFailures <= 0 {
		return baseInterval
	}

	multiplier := 1 << uint(consecutiveFailures)
	if multiplier > 10 {
		multiplier = 10
	}

	backoff := baseInterval * time.Duration(multiplier)
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}

// reschedule replaces a provider's cron entry with a one-shot interval
// reflecting its current backoff, rather than resetting a shared ticker.
func (m *Manager) reschedule(name, baseURL string, interval time.Duration) {
	spec := fmt.Sprintf("@every %s", interval)

	m.mu.Lock()
	if id, ok := m.entries[name]; ok {
		m.cron.Remove(id)
	}
	m.mu.Unlock()

	id, err := m.cron.AddFunc(spec, func() {
		m.probeOnce(name, baseURL)
	})
	if err != nil {
		return
	}

	m.mu.Lock()
	m.entries[name] = id
	m.mu.Unlock()
}
