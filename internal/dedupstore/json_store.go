package dedupstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Store is the persistence seam for the dedup-key mapping document. The
// default implementation is JSONFileStore; sql_store.go provides a
// SQL-backed alternative demonstrating the substitution §9 allows.
type Store interface {
	// Load returns the current mapping document. A missing backing store
	// yields a fresh, empty Mapping rather than an error (§4.F: "a first
	// run with no prior store is not an error").
	Load(ctx context.Context) (*Mapping, error)

	// Save persists the mapping document, bumping TotalRuns and
	// LastUpdated. It must be atomic: a reader must never observe a
	// partially-written document.
	Save(ctx context.Context, m *Mapping) error
}

// JSONFileStore persists the mapping document as a single JSON file,
// written via the teacher's temp-file-then-rename idiom (grounded in
// internal/engine/global_suppression.go) so a crash mid-write never
// corrupts the previous, still-valid document.
type JSONFileStore struct {
	path string
	now  func() time.Time
}

// NewJSONFileStore returns a Store backed by the JSON file at path.
func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{path: path, now: time.Now}
}

func (s *JSONFileStore) Load(_ context.Context) (*Mapping, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return NewMapping(s.now().UTC().Format(time.RFC3339)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("dedupstore: read %s: %w", s.path, err)
	}

	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		// A corrupt store is recovered to an empty document rather than
		// failing the run outright, matching load_dedup_mappings()'s
		// broad except-and-reset behavior in the Python original.
		return NewMapping(s.now().UTC().Format(time.RFC3339)), nil
	}
	m.ensureIndices()
	return &m, nil
}

func (s *JSONFileStore) Save(_ context.Context, m *Mapping) error {
	m.ensureIndices()
	m.Metadata.LastUpdated = s.now().UTC().Format(time.RFC3339)
	m.Metadata.TotalRuns++
	m.Metadata.Version = SchemaVersion
	m.Version = SchemaVersion

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("dedupstore: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("dedupstore: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".dedup-store-*.tmp")
	if err != nil {
		return fmt.Errorf("dedupstore: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("dedupstore: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("dedupstore: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("dedupstore: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("dedupstore: rename into place: %w", err)
	}
	return nil
}
