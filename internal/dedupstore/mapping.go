// Package dedupstore implements the persistent dedup-key mapping of §4.F:
// content-hash to dedup-key assignment, group membership, and the
// get-or-create/link API, plus pluggable persistence (§9: "a key-value
// store or embedded database is an acceptable substitution").
package dedupstore

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	"github.com/ignite/dedupe/internal/normalize"
	"github.com/ignite/dedupe/internal/record"
)

// SchemaVersion is the mapping document's version tag (§3, §4.F).
const SchemaVersion = "2.0"

const dataHashLen = 16

// Metadata carries bookkeeping about the mapping document.
type Metadata struct {
	CreatedAt   string `json:"created_at"`
	LastUpdated string `json:"last_updated"`
	TotalRuns   int    `json:"total_runs"`
	Version     string `json:"version"`
}

// Mapping is the persistent dedup-key mapping document (§3).
type Mapping struct {
	Version          string              `json:"version"`
	DataHashToKey    map[string]string   `json:"data_hash_to_key"`
	KeyToDataHashes  map[string][]string `json:"key_to_data_hashes"`
	KeyToIdentifiers map[string][]string `json:"key_to_identifiers"`
	Metadata         Metadata            `json:"metadata"`
}

// NewMapping returns an empty mapping document with fresh metadata,
// matching the default load_dedup_mappings() shape when no file exists.
func NewMapping(now string) *Mapping {
	return &Mapping{
		Version:          SchemaVersion,
		DataHashToKey:    make(map[string]string),
		KeyToDataHashes:  make(map[string][]string),
		KeyToIdentifiers: make(map[string][]string),
		Metadata: Metadata{
			CreatedAt:   now,
			LastUpdated: now,
			TotalRuns:   0,
			Version:     SchemaVersion,
		},
	}
}

// ensureIndices defensively initializes the index maps, mirroring the
// Python original's repeated `if key not in mappings: mappings[key] = {}`
// guards at every mutation site.
func (m *Mapping) ensureIndices() {
	if m.DataHashToKey == nil {
		m.DataHashToKey = make(map[string]string)
	}
	if m.KeyToDataHashes == nil {
		m.KeyToDataHashes = make(map[string][]string)
	}
	if m.KeyToIdentifiers == nil {
		m.KeyToIdentifiers = make(map[string][]string)
	}
}

// DataHash computes the 16-hex-char content hash of a record (§4.F):
// SHA-256 over SOURCE_TYPE|SOURCE_ID|normalized company|normalized
// address|normalized phone, with SOURCE_TYPE upper-cased and SOURCE_ID
// trimmed.
func DataHash(r record.Record) string {
	components := []string{
		strings.ToUpper(strings.TrimSpace(r.Get(record.FieldSourceType))),
		strings.TrimSpace(r.Get(record.FieldSourceID)),
		normalize.CompanyName(r.Get(record.FieldCompanyName)),
		normalize.Address(r.Get(record.FieldAddressLine1)),
		normalize.Phone(r.Get(record.FieldPhoneNumber)),
	}
	sum := sha256.Sum256([]byte(strings.Join(components, "|")))
	return hex.EncodeToString(sum[:])[:dataHashLen]
}

// identifier builds the SOURCE_TYPE:SOURCE_ID identifier string, using the
// raw (non-normalized) field values, matching the Python original exactly.
func identifier(r record.Record) string {
	return r.Get(record.FieldSourceType) + ":" + r.Get(record.FieldSourceID)
}

// GenerateDedupKey mints a new UUIDv4 dedup key.
func GenerateDedupKey() string {
	return uuid.NewString()
}

// GetOrCreate returns the existing dedup key for a record's content hash,
// or mints and records a new one. Idempotent: calling it again for the
// same content hash returns the same key with is_new=false.
func (m *Mapping) GetOrCreate(r record.Record) (dedupKey string, isNew bool) {
	m.ensureIndices()
	hash := DataHash(r)

	if existing, ok := m.DataHashToKey[hash]; ok {
		return existing, false
	}

	key := GenerateDedupKey()
	m.DataHashToKey[hash] = key
	m.KeyToDataHashes[key] = []string{hash}
	m.KeyToIdentifiers[key] = []string{identifier(r)}
	return key, true
}

// Link associates a record with an existing dedup key. Both the content
// hash and the identifier are appended only if not already present,
// making repeated Link calls idempotent.
func (m *Mapping) Link(dedupKey string, r record.Record) {
	m.ensureIndices()
	hash := DataHash(r)

	m.DataHashToKey[hash] = dedupKey

	if !containsString(m.KeyToDataHashes[dedupKey], hash) {
		m.KeyToDataHashes[dedupKey] = append(m.KeyToDataHashes[dedupKey], hash)
	}

	id := identifier(r)
	if !containsString(m.KeyToIdentifiers[dedupKey], id) {
		m.KeyToIdentifiers[dedupKey] = append(m.KeyToIdentifiers[dedupKey], id)
	}
}

// MatchedIdentifiers returns the identifiers linked to a dedup key.
func (m *Mapping) MatchedIdentifiers(dedupKey string) []string {
	return m.KeyToIdentifiers[dedupKey]
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
