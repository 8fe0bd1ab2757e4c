// Package routergroup holds the set of named router groups defined in a
// config document and the currently active group, exposing a merged Router
// view for the routing decision engine to consult (spec.md §4.5).
package routergroup

import (
	"fmt"
	"sort"
	"sync"

	"dario.cat/mergo"

	"ccr-hq/gateway/internal/gwconfig"
)

// SwitchedEvent is delivered after a successful SwitchToGroup call.
type SwitchedEvent struct {
	PreviousGroup string
	ActiveGroup   string
}

// GroupError covers an unknown or otherwise invalid router group id,
// surfaced over the control API as a 404/400 per spec.md §7's error
// taxonomy.
type GroupError struct {
	GroupID string
	Message string
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("router group %q: %s", e.GroupID, e.Message)
}

// Manager owns the active group id and computes the merged Router view.
// Mutation only happens through SwitchToGroup and Reload, both called by
// the Dynamic Router under its single-writer update lock; MergedRouter and
// ActiveGroup are safe for concurrent readers.
type Manager struct {
	mu sync.RWMutex

	base        gwconfig.Router
	groups      map[string]gwconfig.RouterGroup
	activeGroup string

	onSwitch func(SwitchedEvent)
}

// NewManager builds a Manager from a decoded config. The active group
// defaults to gwconfig.DefaultActiveGroup ("router1") when present, else the
// lexicographically first defined group id, else no group (base Router
// used directly) when RouterGroups is empty.
func NewManager(cfg gwconfig.Config, onSwitch func(SwitchedEvent)) (*Manager, error) {
	m := &Manager{
		base:     cfg.Router,
		groups:   cloneGroups(cfg.RouterGroups),
		onSwitch: onSwitch,
	}

	active := cfg.ActiveGroup
	if active == "" {
		active = defaultActiveGroup(m.groups)
	}
	if active != "" {
		if _, ok := m.groups[active]; !ok {
			return nil, &GroupError{GroupID: active, Message: "is not a defined router group"}
		}
	}
	m.activeGroup = active

	return m, nil
}

func defaultActiveGroup(groups map[string]gwconfig.RouterGroup) string {
	if len(groups) == 0 {
		return ""
	}
	if _, ok := groups[gwconfig.DefaultActiveGroup]; ok {
		return gwconfig.DefaultActiveGroup
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids[0]
}

func cloneGroups(groups map[string]gwconfig.RouterGroup) map[string]gwconfig.RouterGroup {
	out := make(map[string]gwconfig.RouterGroup, len(groups))
	for id, g := range groups {
		out[id] = g
	}
	return out
}

// Reload replaces the manager's group set and base Router from a freshly
// validated config, keeping the active group if it still exists, else
// falling back the same way NewManager does.
func (m *Manager) Reload(cfg gwconfig.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.base = cfg.Router
	m.groups = cloneGroups(cfg.RouterGroups)

	if _, ok := m.groups[m.activeGroup]; m.activeGroup == "" || !ok {
		m.activeGroup = cfg.ActiveGroup
		if m.activeGroup == "" {
			m.activeGroup = defaultActiveGroup(m.groups)
		}
	}
	if m.activeGroup != "" {
		if _, ok := m.groups[m.activeGroup]; !ok {
			return &GroupError{GroupID: m.activeGroup, Message: "is not a defined router group"}
		}
	}

	return nil
}

// GroupIDs returns the defined group ids, sorted.
func (m *Manager) GroupIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.groups))
	for id := range m.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ActiveGroup returns the current active group id, or "" when no groups are
// defined and the base Router is used directly.
func (m *Manager) ActiveGroup() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeGroup
}

// Group returns the named group's definition, for the control API's
// GET /router-groups/{id}.
func (m *Manager) Group(id string) (gwconfig.RouterGroup, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[id]
	return g, ok
}

// SwitchToGroup activates the named group. It fails if the group is not
// defined; on success it fires onSwitch with the previous and new group ids.
func (m *Manager) SwitchToGroup(id string) error {
	m.mu.Lock()
	if _, ok := m.groups[id]; !ok {
		m.mu.Unlock()
		return &GroupError{GroupID: id, Message: "is not defined"}
	}
	previous := m.activeGroup
	m.activeGroup = id
	m.mu.Unlock()

	if m.onSwitch != nil {
		m.onSwitch(SwitchedEvent{PreviousGroup: previous, ActiveGroup: id})
	}
	return nil
}

// MergedRouter returns the Router view the Routing Decision Engine should
// consult: when no groups are defined, the base Router as-is; otherwise the
// base Router with the active group's explicitly-set fields overriding it.
func (m *Manager) MergedRouter() gwconfig.Router {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.groups) == 0 || m.activeGroup == "" {
		return m.base
	}

	group, ok := m.groups[m.activeGroup]
	if !ok {
		return m.base
	}

	merged := m.base
	overlay := gwconfig.Router{
		Default:              group.Default,
		Background:           group.Background,
		Think:                group.Think,
		LongContext:          group.LongContext,
		WebSearch:            group.WebSearch,
		LongContextThreshold: group.LongContextThreshold,
	}

	if err := mergo.Merge(&merged, overlay, mergo.WithOverride); err != nil {
		return m.base
	}

	return merged
}
