// Package customrouter loads an operator-supplied routing function from a
// precompiled Go plugin (spec.md §4.6). A custom router, when configured,
// is consulted before any built-in routing rule.
package customrouter

import (
	"fmt"
	"plugin"
	"sync"

	"ccr-hq/gateway/internal/chatrequest"
	"ccr-hq/gateway/internal/gwconfig"
)

// RouteFunc is the shape an operator's plugin must export as the symbol
// "Route": given the inbound request and the active config, return a
// "provider,model" target and true, or ("", false) to defer to the
// built-in rules.
type RouteFunc func(req chatrequest.Request, cfg gwconfig.Config) (string, bool)

const routeSymbol = "Route"

// Loader loads and fail-safely reloads a RouteFunc from a plugin file. A
// reload that fails to open or resolve the symbol leaves the previously
// loaded function in place, per spec.md §4.6's fail-safe requirement.
type Loader struct {
	mu      sync.RWMutex
	path    string
	current RouteFunc
}

// NewLoader creates an empty Loader bound to no path.
func NewLoader() *Loader {
	return &Loader{}
}

// Load opens the plugin at path and resolves its Route symbol, replacing
// the currently loaded function only on success.
func (l *Loader) Load(path string) error {
	fn, err := openRoute(path)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.path = path
	l.current = fn
	l.mu.Unlock()

	return nil
}

// Reload opens the plugin at the loader's current path again. plugin.Open
// returns the already-loaded plugin for a path it has opened before, so a
// file rebuilt in place at the same path is not picked up and the same
// function stays bound. On failure the previously loaded function is left
// in place and the error is returned for the caller to surface (e.g. as a
// validation finding), not to abort.
func (l *Loader) Reload() error {
	l.mu.RLock()
	path := l.path
	l.mu.RUnlock()

	if path == "" {
		return fmt.Errorf("custom router: no path loaded yet")
	}

	fn, err := openRoute(path)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.current = fn
	l.mu.Unlock()

	return nil
}

func openRoute(path string) (RouteFunc, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("custom router: open plugin %q: %w", path, err)
	}

	sym, err := p.Lookup(routeSymbol)
	if err != nil {
		return nil, fmt.Errorf("custom router: plugin %q has no %s symbol: %w", path, routeSymbol, err)
	}

	fn, ok := sym.(func(chatrequest.Request, gwconfig.Config) (string, bool))
	if !ok {
		return nil, fmt.Errorf("custom router: plugin %q's %s symbol has the wrong signature", path, routeSymbol)
	}

	return RouteFunc(fn), nil
}

// Route invokes the currently loaded function, if any. The second return
// reports whether the function handled this request; the third reports
// whether a custom router is loaded at all (as opposed to loaded but
// declining to handle this request).
func (l *Loader) Route(req chatrequest.Request, cfg gwconfig.Config) (target string, matched, loaded bool) {
	l.mu.RLock()
	fn := l.current
	l.mu.RUnlock()

	if fn == nil {
		return "", false, false
	}

	target, matched = fn(req, cfg)
	return target, matched, true
}

// Loaded reports whether a router function is currently available.
func (l *Loader) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current != nil
}

// Check loads path in a scratch loader without disturbing any previously
// loaded function, for use by the Validator's custom-router check
// (internal/configkernel.CustomRouterChecker).
func Check(path string) error {
	_, err := openRoute(path)
	return err
}
