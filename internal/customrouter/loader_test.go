package customrouter

import (
	"testing"

	"ccr-hq/gateway/internal/chatrequest"
	"ccr-hq/gateway/internal/gwconfig"
)

func TestLoader_LoadMissingPluginFails(t *testing.T) {
	l := NewLoader()

	if err := l.Load("/nonexistent/router.so"); err == nil {
		t.Fatal("Load() error = nil, want an error for a missing plugin file")
	}
	if l.Loaded() {
		t.Error("Loaded() = true, want false after a failed Load()")
	}
}

func TestLoader_ReloadWithoutPriorLoadFails(t *testing.T) {
	l := NewLoader()

	if err := l.Reload(); err == nil {
		t.Fatal("Reload() error = nil, want an error when no path has ever been loaded")
	}
}

func TestLoader_RouteWithNoPluginReportsNotLoaded(t *testing.T) {
	l := NewLoader()

	_, matched, loaded := l.Route(chatrequest.Request{}, gwconfig.Config{})
	if loaded {
		t.Error("Route() loaded = true, want false when no plugin has been loaded")
	}
	if matched {
		t.Error("Route() matched = true, want false when no plugin has been loaded")
	}
}

func TestCheck_MissingPluginReturnsError(t *testing.T) {
	if err := Check("/nonexistent/router.so"); err == nil {
		t.Fatal("Check() error = nil, want an error for a missing plugin file")
	}
}
