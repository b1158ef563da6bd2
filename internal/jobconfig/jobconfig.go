// Package jobconfig implements the three-document configuration model of
// §4.I: rules.json, columns_metadata.json, and settings.json, each loaded
// lazily with mtime-keyed caching, an absent file treated as an empty
// document, and atomic-replace saves with cache invalidation.
//
// The caching discipline is grounded on the teacher's
// internal/suppression/engine.go Manager: an explicit struct with a
// constructor, not a bare package-level singleton, so tests can construct
// independent caches.
package jobconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ignite/dedupe/internal/pkg/logger"
	"github.com/ignite/dedupe/internal/quality"
	"github.com/ignite/dedupe/internal/record"
	"github.com/ignite/dedupe/internal/rules"
)

// RulesDocument is the rules.json shape: rule id -> Rule.
type RulesDocument struct {
	Rules map[string]rules.Rule `json:"rules"`
}

// ColumnMeta describes one canonical field for the standardizer's header
// mapper (§4.H) and for UI display purposes.
type ColumnMeta struct {
	DisplayLabel      string   `json:"display_label"`
	Description       string   `json:"description"`
	Group             string   `json:"group"`
	AlternateColumns  []string `json:"alternate_columns"`
}

// Sorted returns the document's rules as a slice ordered by rule id
// ascending. rules.json stores rules keyed by id in a map, which Go (like
// the JSON object it came from) does not iterate deterministically; ordering
// by id here gives FindBestMatch's declaration-order tiebreak a fixed,
// reproducible input instead of map-iteration noise.
func (d RulesDocument) Sorted() []rules.Rule {
	ids := make([]string, 0, len(d.Rules))
	for id := range d.Rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]rules.Rule, len(ids))
	for i, id := range ids {
		out[i] = d.Rules[id]
	}
	return out
}

// ColumnsMetadataDocument is the columns_metadata.json shape: canonical
// field name -> ColumnMeta.
type ColumnsMetadataDocument map[string]ColumnMeta

// QualityScoreSettings mirrors the overridable lookup sets of §4.C.
type QualityScoreSettings struct {
	Email quality.Lookups `json:"email"`
	Phone quality.Lookups `json:"phone"`
}

// SettingsDocument is settings.json: free-form, with known sub-sections
// pulled out explicitly and everything else preserved round-trip.
type SettingsDocument struct {
	QualityScores QualityScoreSettings `json:"quality_scores"`
	Extra         map[string]json.RawMessage `json:"-"`
}

// MarshalJSON flattens QualityScores alongside any preserved extra keys.
func (s SettingsDocument) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(s.Extra)+1)
	for k, v := range s.Extra {
		out[k] = v
	}
	qs, err := json.Marshal(s.QualityScores)
	if err != nil {
		return nil, err
	}
	out["quality_scores"] = qs
	return json.Marshal(out)
}

// UnmarshalJSON extracts quality_scores and preserves every other
// top-level key verbatim for round-trip fidelity.
func (s *SettingsDocument) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Extra = make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		s.Extra[k] = v
	}
	if qs, ok := raw["quality_scores"]; ok {
		if err := json.Unmarshal(qs, &s.QualityScores); err != nil {
			return err
		}
		delete(s.Extra, "quality_scores")
	}
	return nil
}

// cacheEntry holds one loaded document plus the source mtime it was built
// from, per §5's "lock-free reads while mtime <= cached_mtime" model.
type cacheEntry struct {
	mtime time.Time
	value any
}

// Cache loads and caches the three job configuration documents, keyed by
// file mtime, with atomic-replace saves. One Cache instance is meant to be
// shared across concurrent jobs within a process.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCache returns an empty configuration cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Rules loads rules.json from path, using the cache when the file's mtime
// has not advanced since the last load. A missing file yields an empty
// document, not an error.
func (c *Cache) Rules(path string) (RulesDocument, error) {
	var doc RulesDocument
	err := c.load(path, &doc, func() { doc = RulesDocument{Rules: map[string]rules.Rule{}} })
	return doc, err
}

// ColumnsMetadata loads columns_metadata.json from path.
func (c *Cache) ColumnsMetadata(path string) (ColumnsMetadataDocument, error) {
	var doc ColumnsMetadataDocument
	err := c.load(path, &doc, func() { doc = ColumnsMetadataDocument{} })
	return doc, err
}

// Settings loads settings.json from path.
func (c *Cache) Settings(path string) (SettingsDocument, error) {
	var doc SettingsDocument
	err := c.load(path, &doc, func() {
		doc = SettingsDocument{
			QualityScores: QualityScoreSettings{
				Email: quality.NewDefaultLookups(),
				Phone: quality.NewDefaultLookups(),
			},
		}
	})
	return doc, err
}

// load is the shared mtime-cache-or-read-or-default path for all three
// document kinds. target must be a pointer to the document type; empty
// initializes *target to the "absent file" / "malformed file" default.
func (c *Cache) load(path string, target any, empty func()) error {
	info, statErr := os.Stat(path)

	if statErr == nil {
		c.mu.RLock()
		entry, ok := c.entries[path]
		c.mu.RUnlock()
		if ok && !info.ModTime().After(entry.mtime) {
			return copyInto(target, entry.value)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-check under the write lock: another goroutine may have refilled
	// the entry while we waited.
	if statErr == nil {
		if entry, ok := c.entries[path]; ok && !info.ModTime().After(entry.mtime) {
			return copyInto(target, entry.value)
		}
	}

	if os.IsNotExist(statErr) {
		empty()
		return nil
	}
	if statErr != nil {
		return fmt.Errorf("%w: stat %s: %v", record.ErrConfig, path, statErr)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", record.ErrConfig, path, err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		logger.Warn("jobconfig: malformed document, falling back to empty", "path", path, "error", err.Error())
		empty()
		return nil
	}

	c.entries[path] = cacheEntry{mtime: info.ModTime(), value: cloneOf(target)}
	return nil
}

// Save atomically replaces the document at path and invalidates the cache
// entry so the next load re-reads from disk.
func (c *Cache) Save(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", record.ErrConfig, path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", record.ErrConfig, dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".jobconfig-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", record.ErrConfig, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write temp file: %v", record.ErrConfig, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %v", record.ErrConfig, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: rename into place: %v", record.ErrConfig, err)
	}

	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
	return nil
}

// copyInto round-trips through JSON to give the caller an independent copy
// of a cached document, so mutation by one job cannot leak into another's
// view of the cache.
func copyInto(target any, cached any) error {
	data, err := json.Marshal(cached)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// cloneOf returns the dereferenced value behind a pointer, for storage in
// the cache by value.
func cloneOf(target any) any {
	switch v := target.(type) {
	case *RulesDocument:
		return *v
	case *ColumnsMetadataDocument:
		return *v
	case *SettingsDocument:
		return *v
	default:
		return target
	}
}
