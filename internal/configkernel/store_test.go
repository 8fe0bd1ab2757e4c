package configkernel

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ccr-hq/gateway/internal/gwconfig"
)

func validDoc(t *testing.T) *gwconfig.Document {
	t.Helper()
	content := `{
  "Providers": [{"name": "openai", "api_base_url": "https://api.openai.com/v1", "api_key": "sk-test", "models": ["gpt-4o"]}],
  "Router": {"default": "openai,gpt-4o"}
}`
	doc, err := gwconfig.Decode("config.json", []byte(content))
	if err != nil {
		t.Fatalf("Decode() error = %v, want nil", err)
	}
	return doc
}

func TestStore_WriteThenLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	store := NewStore(path)

	doc := validDoc(t)
	if err := store.Write(doc); err != nil {
		t.Fatalf("Write() error = %v, want nil", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if got.Config.Router.Default != "openai,gpt-4o" {
		t.Errorf("Load().Config.Router.Default = %q, want %q", got.Config.Router.Default, "openai,gpt-4o")
	}
}

func TestStore_WriteCreatesBackupOfPriorContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	store := NewStore(path)

	first := validDoc(t)
	if err := store.Write(first); err != nil {
		t.Fatalf("first Write() error = %v, want nil", err)
	}

	second := validDoc(t)
	second.Config.Router.Default = "openai,gpt-4o-mini"
	raw, err := second.WithConfig(second.Config)
	if err != nil {
		t.Fatalf("WithConfig() error = %v, want nil", err)
	}
	if err := store.Write(raw); err != nil {
		t.Fatalf("second Write() error = %v, want nil", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v, want nil", err)
	}

	found := false
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "config.json.backup.") {
			found = true
		}
	}
	if !found {
		t.Error("expected a config.json.backup.* file after the second Write(), found none")
	}
}

func TestStore_LoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "missing.json"))

	_, err := store.Load()
	if err == nil {
		t.Fatal("Load() error = nil, want a ConfigIOError for a missing file")
	}

	var ioErr *ConfigIOError
	if !errors.As(err, &ioErr) {
		t.Errorf("Load() error type = %T, want *ConfigIOError", err)
	}
}
