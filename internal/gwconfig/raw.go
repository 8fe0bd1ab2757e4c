package gwconfig

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"
)

// Document pairs a typed Config with the raw JSON bytes it was decoded from.
// Writes patch only the fields Config knows about back into Raw, so any
// operator-added top-level or nested field that this module doesn't model
// survives a load -> validate -> write round trip untouched.
type Document struct {
	Config Config
	Raw    []byte
}

// Decode parses file content into a Document. YAML input (detected by the
// source path's extension) is normalized to JSON on the way in; everything
// downstream of Decode works in JSON.
func Decode(path string, content []byte) (*Document, error) {
	raw := content

	if isYAMLPath(path) {
		var generic map[string]any
		if err := yaml.Unmarshal(content, &generic); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
		converted, err := json.Marshal(generic)
		if err != nil {
			return nil, fmt.Errorf("convert yaml config to json: %w", err)
		}
		raw = converted
	}

	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("config document is not valid JSON")
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode config document: %w", err)
	}

	return &Document{Config: cfg, Raw: raw}, nil
}

func isYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// WithConfig returns a new Document whose Raw has the known fields of cfg
// patched in, leaving every other key of the original Raw document
// byte-for-byte unchanged. The result is always JSON, regardless of the
// format Decode was given.
func (d *Document) WithConfig(cfg Config) (*Document, error) {
	raw := d.Raw
	if raw == nil {
		raw = []byte(`{}`)
	}

	patched, err := patchKnownFields(raw, cfg)
	if err != nil {
		return nil, err
	}

	return &Document{Config: cfg, Raw: patched}, nil
}

// patchKnownFields sets every field Config models onto raw via sjson, which
// rewrites only the named paths and leaves sibling keys alone.
func patchKnownFields(raw []byte, cfg Config) ([]byte, error) {
	out := raw
	var err error

	set := func(path string, value any) error {
		out, err = sjson.SetBytes(out, path, value)
		return err
	}

	if err := set("Providers", cfg.Providers); err != nil {
		return nil, fmt.Errorf("patch Providers: %w", err)
	}
	if err := set("Router", cfg.Router); err != nil {
		return nil, fmt.Errorf("patch Router: %w", err)
	}
	if cfg.RouterGroups != nil {
		if err := set("RouterGroups", cfg.RouterGroups); err != nil {
			return nil, fmt.Errorf("patch RouterGroups: %w", err)
		}
	}
	if cfg.ActiveGroup != "" {
		if err := set("activeGroup", cfg.ActiveGroup); err != nil {
			return nil, fmt.Errorf("patch activeGroup: %w", err)
		}
	} else {
		out, _ = sjson.DeleteBytes(out, "activeGroup")
	}
	if cfg.CustomRouterPath != "" {
		if err := set("CUSTOM_ROUTER_PATH", cfg.CustomRouterPath); err != nil {
			return nil, fmt.Errorf("patch CUSTOM_ROUTER_PATH: %w", err)
		}
	}
	if cfg.APIKey != "" {
		if err := set("APIKEY", cfg.APIKey); err != nil {
			return nil, err
		}
	}
	if cfg.Host != "" {
		if err := set("HOST", cfg.Host); err != nil {
			return nil, err
		}
	}
	if cfg.Port != 0 {
		if err := set("PORT", cfg.Port); err != nil {
			return nil, err
		}
	}
	if cfg.ProxyURL != "" {
		if err := set("PROXY_URL", cfg.ProxyURL); err != nil {
			return nil, err
		}
	}
	if cfg.APITimeoutMS != 0 {
		if err := set("API_TIMEOUT_MS", cfg.APITimeoutMS); err != nil {
			return nil, err
		}
	}
	if err := set("LOG", cfg.Log); err != nil {
		return nil, err
	}
	if err := set("NON_INTERACTIVE_MODE", cfg.NonInteractiveMode); err != nil {
		return nil, err
	}

	return out, nil
}

// Canonicalize returns a deterministic JSON encoding of cfg with all object
// keys sorted recursively, arrays left in their original order. It is the
// input to the version checksum (see internal/configkernel).
func Canonicalize(cfg Config) ([]byte, error) {
	b, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config for canonicalization: %w", err)
	}

	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}

	return marshalSorted(generic)
}

// marshalSorted recursively sorts map keys before encoding, so that two
// structurally-equal configs always canonicalize to the same bytes
// regardless of map iteration or struct-field order upstream.
func marshalSorted(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			b.Write(kb)
			b.WriteByte(':')
			vb, err := marshalSorted(val[k])
			if err != nil {
				return nil, err
			}
			b.Write(vb)
		}
		b.WriteByte('}')
		return []byte(b.String()), nil

	case []any:
		var b strings.Builder
		b.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			eb, err := marshalSorted(e)
			if err != nil {
				return nil, err
			}
			b.Write(eb)
		}
		b.WriteByte(']')
		return []byte(b.String()), nil

	default:
		return json.Marshal(val)
	}
}
