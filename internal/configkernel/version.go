package configkernel

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ccr-hq/gateway/internal/gwconfig"
)

// Source names what triggered a version's creation, surfaced over the
// control API's version history (spec.md §3).
type Source string

const (
	SourceManual    Source = "manual"
	SourceFileWatch Source = "file-watch"
	SourceAPI       Source = "api"
)

// Version is one entry in the bounded version ring (spec.md §4.4).
type Version struct {
	ID                string
	Ordinal           int
	Checksum          [32]byte
	Config            gwconfig.Config
	Raw               []byte
	Description       string
	Source            Source
	IsActive          bool
	RollbackSupported bool
	CreatedAt         time.Time
}

// ChecksumHex returns the version's checksum as the hex string surfaced over
// the control API.
func (v Version) ChecksumHex() string {
	return fmt.Sprintf("%x", v.Checksum)
}

// VersionManager keeps a bounded, checksum-deduplicated history of
// configuration snapshots and supports rollback, grounded on the teacher's
// policy/manager version bookkeeping generalized from a single "current"
// pointer to a ring with eviction. Exactly one tracked version has
// IsActive=true once any version has been added (spec.md §4.4/§8).
type VersionManager struct {
	mu          sync.Mutex
	versions    []Version
	maxVersions int
	nextOrdinal int
}

// NewVersionManager creates a VersionManager retaining at most maxVersions
// entries. maxVersions falls back to gwconfig.DefaultMaxVersions when <= 0.
func NewVersionManager(maxVersions int) *VersionManager {
	if maxVersions <= 0 {
		maxVersions = gwconfig.DefaultMaxVersions
	}
	return &VersionManager{maxVersions: maxVersions}
}

// AddVersion appends a new snapshot unless its checksum matches the current
// active version, in which case the existing version is returned unchanged
// (spec.md §4.4 idempotence: re-adding identical content is a no-op). It
// records the new version's source as manual; AddVersionWithSource is used
// by callers that know better (the file watcher, the control API).
func (m *VersionManager) AddVersion(doc *gwconfig.Document, description string) (Version, error) {
	return m.AddVersionWithSource(doc, SourceManual, description)
}

// AddVersionWithSource is AddVersion's full form: it records why the version
// was created and maintains the "exactly one active version" invariant,
// deactivating whichever version was previously active.
func (m *VersionManager) AddVersionWithSource(doc *gwconfig.Document, source Source, description string) (Version, error) {
	canon, err := gwconfig.Canonicalize(doc.Config)
	if err != nil {
		return Version{}, fmt.Errorf("canonicalize config: %w", err)
	}
	checksum := sha256.Sum256(canon)

	m.mu.Lock()
	defer m.mu.Unlock()

	if idx, ok := m.activeIndexLocked(); ok && m.versions[idx].Checksum == checksum {
		return m.versions[idx], nil
	}

	for i := range m.versions {
		m.versions[i].IsActive = false
	}

	v := Version{
		ID:                uuid.NewString(),
		Ordinal:           m.nextOrdinal,
		Checksum:          checksum,
		Config:            doc.Config,
		Raw:               append([]byte(nil), doc.Raw...),
		Description:       description,
		Source:            source,
		IsActive:          true,
		RollbackSupported: true,
		CreatedAt:         time.Now(),
	}
	m.nextOrdinal++

	m.versions = append(m.versions, v)
	m.evictLocked(v.ID)

	return v, nil
}

// evictLocked drops the oldest non-active version(s) beyond maxVersions.
// Versions named in protectedIDs are never evicted even if they are the
// oldest entries, which matters mid-rollback when a just-appended backup
// sentinel and the rollback target must both survive until the operation
// finishes.
func (m *VersionManager) evictLocked(protectedIDs ...string) {
	protected := make(map[string]bool, len(protectedIDs))
	for _, id := range protectedIDs {
		protected[id] = true
	}
	for len(m.versions) > m.maxVersions {
		victim := -1
		for i, v := range m.versions {
			if v.IsActive || protected[v.ID] {
				continue
			}
			victim = i
			break
		}
		if victim < 0 {
			return
		}
		m.versions = append(m.versions[:victim], m.versions[victim+1:]...)
	}
}

func (m *VersionManager) activeIndexLocked() (int, bool) {
	for i, v := range m.versions {
		if v.IsActive {
			return i, true
		}
	}
	return 0, false
}

// GetActive returns the currently active version, if any has been added yet.
func (m *VersionManager) GetActive() (Version, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx, ok := m.activeIndexLocked(); ok {
		return m.versions[idx], true
	}
	return Version{}, false
}

// List returns the version history, oldest first.
func (m *VersionManager) List() []Version {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Version, len(m.versions))
	copy(out, m.versions)
	return out
}

// Get returns the version with the given ID.
func (m *VersionManager) Get(id string) (Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(id)
}

func (m *VersionManager) getLocked(id string) (Version, error) {
	for _, v := range m.versions {
		if v.ID == id {
			return v, nil
		}
	}
	return Version{}, &VersionError{VersionID: id, Message: "version not found"}
}

// RollbackToVersion reactivates a prior version in place and returns its
// document so the caller can write it through the Config Store and publish
// a fresh Active Snapshot (spec.md §4.4). Unlike AddVersion, rollback does
// not create a new entry for the target: it snapshots whatever was active
// beforehand as a "backup-*" audit sentinel, deactivates every version, and
// marks the target active again, preserving the ring's existing IDs and
// ordinals rather than rewriting history.
func (m *VersionManager) RollbackToVersion(id string) (*gwconfig.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, err := m.getLocked(id)
	if err != nil {
		return nil, err
	}
	if !target.RollbackSupported {
		return nil, &VersionError{VersionID: id, Message: "version does not support rollback"}
	}

	if activeIdx, ok := m.activeIndexLocked(); ok && m.versions[activeIdx].ID != id {
		active := m.versions[activeIdx]
		sentinel := Version{
			ID:                "backup-" + uuid.NewString(),
			Ordinal:           m.nextOrdinal,
			Checksum:          active.Checksum,
			Config:            active.Config,
			Raw:               append([]byte(nil), active.Raw...),
			Description:       fmt.Sprintf("backup before rollback to %s", id),
			Source:            SourceAPI,
			IsActive:          false,
			RollbackSupported: false,
			CreatedAt:         time.Now(),
		}
		m.nextOrdinal++
		m.versions = append(m.versions, sentinel)
		m.evictLocked(sentinel.ID, id)
	}

	for i := range m.versions {
		m.versions[i].IsActive = m.versions[i].ID == id
	}

	reactivated, err := m.getLocked(id)
	if err != nil {
		return nil, err
	}
	return &gwconfig.Document{Config: reactivated.Config, Raw: append([]byte(nil), reactivated.Raw...)}, nil
}

// ValidateVersionIntegrity recomputes a version's checksum from its stored
// config and confirms it still matches what was recorded at append time,
// catching any accidental in-place mutation of a Version's Config field.
func (m *VersionManager) ValidateVersionIntegrity(id string) error {
	v, err := m.Get(id)
	if err != nil {
		return err
	}
	canon, err := gwconfig.Canonicalize(v.Config)
	if err != nil {
		return fmt.Errorf("canonicalize config: %w", err)
	}
	if sha256.Sum256(canon) != v.Checksum {
		return &VersionError{VersionID: id, Message: "stored checksum no longer matches its config snapshot"}
	}
	return nil
}

// FieldChange is a top-level key's old and new whole values, for keys
// present (and differing) on both sides of a diff.
type FieldChange struct {
	Old any
	New any
}

// VersionDiff is the four-bucket shape getVersionDiff returns: every
// top-level key of the config is classified as added, removed, modified
// (with its whole old/new values), or unchanged, never split apart.
type VersionDiff struct {
	Added     map[string]any
	Removed   map[string]any
	Modified  map[string]FieldChange
	Unchanged []string
}

// GetVersionDiff reports differences between two versions at top-level-key
// granularity: a key present in only one version is added/removed, a key
// present in both with different values is modified (whole values, not a
// nested sub-diff), and everything else is unchanged. Diffing a version
// against itself yields an empty Added/Removed/Modified and every key in
// Unchanged.
func (m *VersionManager) GetVersionDiff(oldID, newID string) (VersionDiff, error) {
	oldV, err := m.Get(oldID)
	if err != nil {
		return VersionDiff{}, err
	}
	newV, err := m.Get(newID)
	if err != nil {
		return VersionDiff{}, err
	}

	oldFields, err := topLevelFields(oldV.Config)
	if err != nil {
		return VersionDiff{}, fmt.Errorf("decode old config fields: %w", err)
	}
	newFields, err := topLevelFields(newV.Config)
	if err != nil {
		return VersionDiff{}, fmt.Errorf("decode new config fields: %w", err)
	}

	diff := VersionDiff{
		Added:    make(map[string]any),
		Removed:  make(map[string]any),
		Modified: make(map[string]FieldChange),
	}

	keys := make(map[string]bool, len(oldFields)+len(newFields))
	for k := range oldFields {
		keys[k] = true
	}
	for k := range newFields {
		keys[k] = true
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, key := range sorted {
		oldVal, inOld := oldFields[key]
		newVal, inNew := newFields[key]
		switch {
		case !inOld:
			diff.Added[key] = newVal
		case !inNew:
			diff.Removed[key] = oldVal
		case !reflect.DeepEqual(oldVal, newVal):
			diff.Modified[key] = FieldChange{Old: oldVal, New: newVal}
		default:
			diff.Unchanged = append(diff.Unchanged, key)
		}
	}

	return diff, nil
}

// topLevelFields decodes cfg's top-level JSON keys into a map of decoded
// values, so callers can compare two configs key-by-key without caring
// about struct field order or the specific Go type behind each value.
func topLevelFields(cfg gwconfig.Config) (map[string]any, error) {
	b, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
