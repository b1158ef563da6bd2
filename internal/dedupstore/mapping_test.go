package dedupstore

import (
	"testing"

	"github.com/ignite/dedupe/internal/record"
)

func sampleRecord(sourceID string) record.Record {
	return record.Record{
		record.FieldSourceType:   "CRM",
		record.FieldSourceID:     sourceID,
		record.FieldCompanyName:  "Acme, Inc.",
		record.FieldAddressLine1: "100 Main St",
		record.FieldPhoneNumber:  "(212) 555-0100",
	}
}

func TestDataHashStableAndLength(t *testing.T) {
	h1 := DataHash(sampleRecord("A1"))
	h2 := DataHash(sampleRecord("A1"))
	if h1 != h2 {
		t.Fatalf("DataHash not stable: %q vs %q", h1, h2)
	}
	if len(h1) != dataHashLen {
		t.Errorf("DataHash length = %d, want %d", len(h1), dataHashLen)
	}
}

func TestDataHashDiffersBySourceID(t *testing.T) {
	if DataHash(sampleRecord("A1")) == DataHash(sampleRecord("A2")) {
		t.Errorf("expected different hashes for different SOURCE_ID")
	}
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	m := NewMapping("2026-01-01T00:00:00Z")
	r := sampleRecord("A1")

	key1, isNew1 := m.GetOrCreate(r)
	if !isNew1 {
		t.Fatalf("first GetOrCreate should report is_new=true")
	}

	key2, isNew2 := m.GetOrCreate(r)
	if isNew2 {
		t.Errorf("second GetOrCreate for the same content hash should report is_new=false")
	}
	if key1 != key2 {
		t.Errorf("GetOrCreate returned different keys for the same content hash: %q vs %q", key1, key2)
	}
}

// P8: the store is monotone — the number of distinct dedup keys never
// decreases, and an existing hash->key binding is never reassigned.
func TestMonotoneStoreAcrossRuns(t *testing.T) {
	m := NewMapping("2026-01-01T00:00:00Z")

	firstKey, _ := m.GetOrCreate(sampleRecord("A1"))
	sizeAfterFirst := len(m.DataHashToKey)

	// Re-processing the exact same record in a later run must not mint a
	// new key or shrink the mapping.
	againKey, isNew := m.GetOrCreate(sampleRecord("A1"))
	if isNew {
		t.Errorf("re-processing an existing record must not be reported as new")
	}
	if againKey != firstKey {
		t.Errorf("existing binding reassigned: %q -> %q", firstKey, againKey)
	}
	if len(m.DataHashToKey) != sizeAfterFirst {
		t.Errorf("mapping size changed on a re-process: %d -> %d", sizeAfterFirst, len(m.DataHashToKey))
	}

	// A genuinely new record only grows the mapping, never shrinks it.
	m.GetOrCreate(sampleRecord("A2"))
	if len(m.DataHashToKey) <= sizeAfterFirst {
		t.Errorf("mapping did not grow after a new record: %d -> %d", sizeAfterFirst, len(m.DataHashToKey))
	}
}

func TestLinkIsIdempotentAndAccumulates(t *testing.T) {
	m := NewMapping("2026-01-01T00:00:00Z")
	key, _ := m.GetOrCreate(sampleRecord("A1"))

	other := sampleRecord("A2")
	m.Link(key, other)
	m.Link(key, other) // repeated link must not duplicate entries

	ids := m.MatchedIdentifiers(key)
	count := 0
	for _, id := range ids {
		if id == "CRM:A2" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("identifier CRM:A2 appears %d times, want 1", count)
	}
	if len(m.KeyToDataHashes[key]) != 2 {
		t.Errorf("expected 2 data hashes linked to key, got %d", len(m.KeyToDataHashes[key]))
	}
}

func TestMatchedIdentifiersUnknownKey(t *testing.T) {
	m := NewMapping("2026-01-01T00:00:00Z")
	if got := m.MatchedIdentifiers("does-not-exist"); len(got) != 0 {
		t.Errorf("expected no identifiers for unknown key, got %v", got)
	}
}
