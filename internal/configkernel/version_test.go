package configkernel

import (
	"testing"

	"ccr-hq/gateway/internal/gwconfig"
)

func docWithDefault(t *testing.T, target string) *gwconfig.Document {
	t.Helper()
	cfg := baseConfig()
	cfg.Router.Default = target
	doc, err := gwconfig.Decode("config.json", []byte(`{"Providers":[],"Router":{"default":""}}`))
	if err != nil {
		t.Fatalf("Decode() error = %v, want nil", err)
	}
	patched, err := doc.WithConfig(cfg)
	if err != nil {
		t.Fatalf("WithConfig() error = %v, want nil", err)
	}
	return patched
}

func TestVersionManager_AddVersionIsIdempotentOnUnchangedContent(t *testing.T) {
	m := NewVersionManager(10)
	doc := docWithDefault(t, "openai,gpt-4o")

	first, err := m.AddVersion(doc, "initial")
	if err != nil {
		t.Fatalf("AddVersion() error = %v, want nil", err)
	}

	second, err := m.AddVersion(doc, "re-add identical content")
	if err != nil {
		t.Fatalf("AddVersion() error = %v, want nil", err)
	}

	if second.ID != first.ID {
		t.Errorf("re-adding identical content created a new version: first.ID=%q second.ID=%q", first.ID, second.ID)
	}
	if len(m.List()) != 1 {
		t.Errorf("len(List()) = %d, want 1", len(m.List()))
	}
}

func TestVersionManager_AddVersionOnChangeAppends(t *testing.T) {
	m := NewVersionManager(10)

	if _, err := m.AddVersion(docWithDefault(t, "openai,gpt-4o"), "v1"); err != nil {
		t.Fatalf("AddVersion() error = %v, want nil", err)
	}
	if _, err := m.AddVersion(docWithDefault(t, "anthropic,claude-3-5-sonnet"), "v2"); err != nil {
		t.Fatalf("AddVersion() error = %v, want nil", err)
	}

	if len(m.List()) != 2 {
		t.Errorf("len(List()) = %d, want 2", len(m.List()))
	}
}

func TestVersionManager_RingEvictsOldestBeyondMax(t *testing.T) {
	m := NewVersionManager(2)

	targets := []string{"openai,gpt-4o", "anthropic,claude-3-5-sonnet", "openai,gpt-4o-mini"}
	var ids []string
	for _, target := range targets {
		v, err := m.AddVersion(docWithDefault(t, target), target)
		if err != nil {
			t.Fatalf("AddVersion(%q) error = %v, want nil", target, err)
		}
		ids = append(ids, v.ID)
	}

	versions := m.List()
	if len(versions) != 2 {
		t.Fatalf("len(List()) = %d, want 2", len(versions))
	}
	if versions[0].ID != ids[1] || versions[1].ID != ids[2] {
		t.Errorf("ring did not evict the oldest version first: got ids %v, %v, want %v, %v",
			versions[0].ID, versions[1].ID, ids[1], ids[2])
	}
}

func TestVersionManager_GetUnknownVersionErrors(t *testing.T) {
	m := NewVersionManager(10)

	_, err := m.Get("does-not-exist")
	if err == nil {
		t.Fatal("Get() error = nil, want a VersionError for an unknown id")
	}
}

func TestVersionManager_RollbackToVersionReturnsItsDocument(t *testing.T) {
	m := NewVersionManager(10)

	v1, err := m.AddVersion(docWithDefault(t, "openai,gpt-4o"), "v1")
	if err != nil {
		t.Fatalf("AddVersion() error = %v, want nil", err)
	}
	if _, err := m.AddVersion(docWithDefault(t, "anthropic,claude-3-5-sonnet"), "v2"); err != nil {
		t.Fatalf("AddVersion() error = %v, want nil", err)
	}

	doc, err := m.RollbackToVersion(v1.ID)
	if err != nil {
		t.Fatalf("RollbackToVersion() error = %v, want nil", err)
	}

	if doc.Config.Router.Default != "openai,gpt-4o" {
		t.Errorf("RollbackToVersion().Config.Router.Default = %q, want %q", doc.Config.Router.Default, "openai,gpt-4o")
	}
}

func TestVersionManager_ValidateVersionIntegrityPassesForUnmodifiedVersion(t *testing.T) {
	m := NewVersionManager(10)

	v, err := m.AddVersion(docWithDefault(t, "openai,gpt-4o"), "v1")
	if err != nil {
		t.Fatalf("AddVersion() error = %v, want nil", err)
	}

	if err := m.ValidateVersionIntegrity(v.ID); err != nil {
		t.Errorf("ValidateVersionIntegrity() error = %v, want nil", err)
	}
}

func TestVersionManager_GetVersionDiffReportsProviderChanges(t *testing.T) {
	m := NewVersionManager(10)

	v1, err := m.AddVersion(docWithDefault(t, "openai,gpt-4o"), "v1")
	if err != nil {
		t.Fatalf("AddVersion() error = %v, want nil", err)
	}
	v2, err := m.AddVersion(docWithDefault(t, "anthropic,claude-3-5-sonnet"), "v2")
	if err != nil {
		t.Fatalf("AddVersion() error = %v, want nil", err)
	}

	diff, err := m.GetVersionDiff(v1.ID, v2.ID)
	if err != nil {
		t.Fatalf("GetVersionDiff() error = %v, want nil", err)
	}

	change, ok := diff.Modified["Router"]
	if !ok {
		t.Fatalf("expected Router in Modified, got %+v", diff)
	}
	oldRouter, _ := change.Old.(map[string]any)
	newRouter, _ := change.New.(map[string]any)
	if oldRouter["default"] != "openai,gpt-4o" || newRouter["default"] != "anthropic,claude-3-5-sonnet" {
		t.Errorf("Router diff = %+v, want Old.default=openai,gpt-4o New.default=anthropic,claude-3-5-sonnet", change)
	}
	if len(diff.Added) != 0 || len(diff.Removed) != 0 {
		t.Errorf("diff Added/Removed = %+v/%+v, want both empty", diff.Added, diff.Removed)
	}
}

func TestVersionManager_GetVersionDiffOfVersionAgainstItselfIsAllUnchanged(t *testing.T) {
	m := NewVersionManager(10)

	v, err := m.AddVersion(docWithDefault(t, "openai,gpt-4o"), "v1")
	if err != nil {
		t.Fatalf("AddVersion() error = %v, want nil", err)
	}

	diff, err := m.GetVersionDiff(v.ID, v.ID)
	if err != nil {
		t.Fatalf("GetVersionDiff() error = %v, want nil", err)
	}

	if len(diff.Added) != 0 || len(diff.Removed) != 0 || len(diff.Modified) != 0 {
		t.Errorf("diff(v,v) = %+v, want Added/Removed/Modified all empty", diff)
	}
	if len(diff.Unchanged) == 0 {
		t.Error("diff(v,v).Unchanged is empty, want every top-level key")
	}
}
