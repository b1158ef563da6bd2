package blocking

import (
	"testing"

	"github.com/ignite/dedupe/internal/record"
)

func TestCompositeKey(t *testing.T) {
	r := record.Record{
		record.FieldCompanyName: "Acme, Inc.",
		record.FieldZipCode:     "10001",
		record.FieldPhoneNumber: "(212) 555-0100",
	}
	got := CompositeKey(r)
	if got != "acm_10001_0100" {
		t.Errorf("CompositeKey = %q, want %q", got, "acm_10001_0100")
	}
}

func TestCompositeKeyAllEmpty(t *testing.T) {
	got := CompositeKey(record.Record{})
	if got != "__" {
		t.Errorf("CompositeKey(empty) = %q, want %q", got, "__")
	}
}

// S1: two rows for the same entity, differently formatted, must land in
// the same block.
func TestCompositeKeyMatchesAcrossFormatting(t *testing.T) {
	a := record.Record{
		record.FieldCompanyName: "Acme, Inc.",
		record.FieldZipCode:     "10001",
		record.FieldPhoneNumber: "(212) 555-0100",
	}
	b := record.Record{
		record.FieldCompanyName: "ACME INCORPORATED",
		record.FieldZipCode:     "10001",
		record.FieldPhoneNumber: "212-555-0100",
	}
	if CompositeKey(a) != CompositeKey(b) {
		t.Errorf("CompositeKey(a)=%q CompositeKey(b)=%q, want equal", CompositeKey(a), CompositeKey(b))
	}
}

// S2: unrelated companies with different names/zips/phones get different keys.
func TestCompositeKeyDistinctForUnrelated(t *testing.T) {
	a := record.Record{
		record.FieldCompanyName: "Acme Corp",
		record.FieldZipCode:     "10001",
		record.FieldPhoneNumber: "212-555-0100",
	}
	b := record.Record{
		record.FieldCompanyName: "Zenith LLC",
		record.FieldZipCode:     "90210",
		record.FieldPhoneNumber: "310-555-9999",
	}
	if CompositeKey(a) == CompositeKey(b) {
		t.Errorf("expected distinct keys, both = %q", CompositeKey(a))
	}
}

func TestSecondaryKeys(t *testing.T) {
	r := record.Record{
		record.FieldPhoneNumber:  "(212) 555-0100",
		record.FieldCompanyName:  "Acme Widgets",
		record.FieldAddressLine1: "100 Main Street",
	}
	if got := ExactPhoneKey(r); got != "2125550100" {
		t.Errorf("ExactPhoneKey = %q", got)
	}
	if got := NameKey(r); got != "acme w" {
		t.Errorf("NameKey = %q", got)
	}
	if got := AddrKey(r); got != "100 ma" {
		t.Errorf("AddrKey = %q", got)
	}
}
