package health

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ccr-hq/gateway/internal/gwconfig"
)

func TestManager_AddProviderProbesImmediately(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewManager(time.Hour, nil)
	defer m.Close()

	m.AddProvider("openai", srv.URL)

	status, ok := m.StatusFor("openai")
	if !ok {
		t.Fatal("StatusFor() ok = false, want true immediately after AddProvider")
	}
	if status != StatusHealthy {
		t.Errorf("StatusFor() = %q, want %q", status, StatusHealthy)
	}
}

func TestManager_FailedAfterThreeConsecutiveFailures(t *testing.T) {
	m := NewManager(time.Hour, nil)
	defer m.Close()

	// AddProvider performs the 1st probe immediately.
	m.AddProvider("broken", "http://127.0.0.1:0")
	status, ok := m.StatusFor("broken")
	if !ok {
		t.Fatal("StatusFor() ok = false, want true")
	}
	if status != StatusDegraded {
		t.Errorf("StatusFor() = %q, want %q after 1 consecutive failure", status, StatusDegraded)
	}

	// 2nd consecutive failure.
	m.probeOnce("broken", "http://127.0.0.1:0")
	status, ok = m.StatusFor("broken")
	if !ok {
		t.Fatal("StatusFor() ok = false, want true")
	}
	if status != StatusDegraded {
		t.Errorf("StatusFor() = %q, want %q after 2 consecutive failures", status, StatusDegraded)
	}

	// 3rd consecutive failure.
	m.probeOnce("broken", "http://127.0.0.1:0")
	status, ok = m.StatusFor("broken")
	if !ok {
		t.Fatal("StatusFor() ok = false, want true")
	}
	if status != StatusFailed {
		t.Errorf("StatusFor() = %q, want %q after 3+ consecutive failures", status, StatusFailed)
	}
}

func TestManager_UpdateProvidersDiffsAddedRemovedUpdated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewManager(time.Hour, nil)
	defer m.Close()

	m.AddProvider("stale", "http://example.invalid")
	m.AddProvider("moved", "http://example.invalid")

	res := m.UpdateProviders([]gwconfig.Provider{
		{Name: "openai", APIBaseURL: srv.URL},
		{Name: "moved", APIBaseURL: srv.URL},
	})

	if len(res.ProvidersAdded) != 1 || res.ProvidersAdded[0] != "openai" {
		t.Errorf("ProvidersAdded = %v, want [openai]", res.ProvidersAdded)
	}
	if len(res.ProvidersRemoved) != 1 || res.ProvidersRemoved[0] != "stale" {
		t.Errorf("ProvidersRemoved = %v, want [stale]", res.ProvidersRemoved)
	}
	if len(res.ProvidersUpdated) != 1 || res.ProvidersUpdated[0] != "moved" {
		t.Errorf("ProvidersUpdated = %v, want [moved]", res.ProvidersUpdated)
	}

	if _, ok := m.StatusFor("stale"); ok {
		t.Error("StatusFor(stale) ok = true, want false after removal")
	}
}

func TestManager_IsHealthyImplementsRoutingContract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewManager(time.Hour, nil)
	defer m.Close()
	m.AddProvider("openai", srv.URL)

	if !m.IsHealthy("openai,gpt-4o") {
		t.Error("IsHealthy(openai,gpt-4o) = false, want true for a healthy provider")
	}
	if m.IsHealthy("unknown,model") {
		t.Error("IsHealthy(unknown,model) = true, want false for an unregistered provider")
	}
	if m.IsHealthy("malformed") {
		t.Error("IsHealthy(malformed) = true, want false for a target with no comma")
	}
}

func TestCalculateBackoff_DoublesAndCaps(t *testing.T) {
	base := time.Minute

	if got := calculateBackoff(0, base); got != base {
		t.Errorf("calculateBackoff(0, base) = %v, want base interval %v", got, base)
	}
	if got := calculateBackoff(1, base); got != base*2 {
		t.Errorf("calculateBackoff(1, base) = %v, want %v", got, base*2)
	}
	if got := calculateBackoff(10, base); got != maxBackoff {
		t.Errorf("calculateBackoff(10, base) = %v, want capped at %v", got, maxBackoff)
	}
}
