package standardize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ignite/dedupe/internal/jobconfig"
	"github.com/ignite/dedupe/internal/record"
)

func sampleMeta() jobconfig.ColumnsMetadataDocument {
	return jobconfig.ColumnsMetadataDocument{
		record.FieldCompanyName: {
			DisplayLabel:     "Company Name",
			Group:            "input-fields",
			AlternateColumns: []string{"BUSINESS NAME", "ORG NAME"},
		},
		record.FieldPhoneNumber: {
			DisplayLabel:     "Phone Number",
			Group:            "input-fields-(phone)",
			AlternateColumns: []string{"PHONE", "TEL"},
		},
		record.FieldEmailAddress: {
			DisplayLabel: "Email Address",
			Group:        "input-fields-(email)",
		},
	}
}

func TestAutoMapExactMatchScoresHighest(t *testing.T) {
	result := AutoMap([]string{"COMPANY_NAME"}, sampleMeta())
	if result.Mapping["COMPANY_NAME"] != record.FieldCompanyName {
		t.Fatalf("expected exact match, got %+v", result.Mapping)
	}
	if result.Confidence["COMPANY_NAME"] != scoreExact {
		t.Errorf("confidence = %d, want %d", result.Confidence["COMPANY_NAME"], scoreExact)
	}
}

func TestAutoMapAlternateMatch(t *testing.T) {
	result := AutoMap([]string{"Business Name"}, sampleMeta())
	if result.Mapping["Business Name"] != record.FieldCompanyName {
		t.Fatalf("expected alternate match to COMPANY_NAME, got %+v", result.Mapping)
	}
	if result.Confidence["Business Name"] != scoreAlternate {
		t.Errorf("confidence = %d, want %d", result.Confidence["Business Name"], scoreAlternate)
	}
}

func TestAutoMapSubstringMatch(t *testing.T) {
	result := AutoMap([]string{"PHONE_NUMBER_2"}, sampleMeta())
	if result.Mapping["PHONE_NUMBER_2"] != record.FieldPhoneNumber {
		t.Fatalf("expected substring match to PHONE_NUMBER, got %+v", result.Mapping)
	}
	if result.Confidence["PHONE_NUMBER_2"] != scoreSubstring {
		t.Errorf("confidence = %d, want %d", result.Confidence["PHONE_NUMBER_2"], scoreSubstring)
	}
}

func TestAutoMapRejectsBelowThreshold(t *testing.T) {
	result := AutoMap([]string{"UNRELATED_COLUMN_XYZ"}, sampleMeta())
	if _, ok := result.Mapping["UNRELATED_COLUMN_XYZ"]; ok {
		t.Errorf("expected no mapping below threshold, got %+v", result.Mapping)
	}
}

func TestStandardColumnsFiltersByInputGroup(t *testing.T) {
	meta := sampleMeta()
	meta["SOME_OUTPUT_FIELD"] = jobconfig.ColumnMeta{Group: "enrichment"}

	cols := StandardColumns(meta)
	for _, c := range cols {
		if c == "SOME_OUTPUT_FIELD" {
			t.Errorf("expected non-input-group column excluded, got %v", cols)
		}
	}
	if len(cols) != 3 {
		t.Errorf("expected 3 standard columns, got %d: %v", len(cols), cols)
	}
}

func TestComputeAnalyticsColumnCompleteness(t *testing.T) {
	headers := []string{record.FieldCompanyName, record.FieldEmailAddress}
	rows := []record.Record{
		{record.FieldCompanyName: "Acme", record.FieldEmailAddress: "a@acme.com"},
		{record.FieldCompanyName: "Zenith", record.FieldEmailAddress: ""},
	}

	a := ComputeAnalytics(rows, headers, sampleMeta())

	cc := a.ColumnCompleteness[record.FieldEmailAddress]
	if cc.Filled != 1 || cc.Empty != 1 {
		t.Errorf("EMAIL_ADDRESS completeness = %+v, want filled=1 empty=1", cc)
	}
	if cc.CompletenessPct != 50 {
		t.Errorf("CompletenessPct = %v, want 50", cc.CompletenessPct)
	}
}

func TestComputeAnalyticsEmailValidity(t *testing.T) {
	headers := []string{record.FieldEmailAddress}
	rows := []record.Record{
		{record.FieldEmailAddress: "valid@example.com"},
		{record.FieldEmailAddress: "not-an-email"},
	}

	a := ComputeAnalytics(rows, headers, sampleMeta())
	if a.FieldAnalytics.Email == nil {
		t.Fatalf("expected email field analytics to be present")
	}
	if a.FieldAnalytics.Email.Valid != 1 || a.FieldAnalytics.Email.Invalid != 1 {
		t.Errorf("email validity = %+v, want 1 valid 1 invalid", a.FieldAnalytics.Email)
	}
}

func TestComputeAnalyticsExactDuplicates(t *testing.T) {
	headers := []string{record.FieldCompanyName}
	rows := []record.Record{
		{record.FieldCompanyName: "Acme"},
		{record.FieldCompanyName: "ACME"}, // case-insensitive exact duplicate
		{record.FieldCompanyName: "Zenith"},
	}

	a := ComputeAnalytics(rows, headers, sampleMeta())
	if a.Duplicates.ExactDuplicates != 1 {
		t.Errorf("ExactDuplicates = %d, want 1", a.Duplicates.ExactDuplicates)
	}
}

func TestComputeAnalyticsPotentialDuplicatesByCombo(t *testing.T) {
	headers := []string{record.FieldCompanyName, record.FieldPhoneNumber}
	rows := []record.Record{
		{record.FieldCompanyName: "Acme", record.FieldPhoneNumber: "2125550100"},
		{record.FieldCompanyName: "Acme", record.FieldPhoneNumber: "2125550100"},
	}

	a := ComputeAnalytics(rows, headers, sampleMeta())
	combo, ok := a.Duplicates.PotentialDuplicates["company_phone"]
	if !ok {
		t.Fatalf("expected company_phone combo in potential duplicates, got %+v", a.Duplicates.PotentialDuplicates)
	}
	if combo.DuplicateCount != 1 {
		t.Errorf("company_phone duplicate_count = %d, want 1", combo.DuplicateCount)
	}
}

func TestComputeAnalyticsGradeBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{95, "A"}, {85, "B"}, {75, "C"}, {65, "D"}, {10, "F"},
	}
	for _, c := range cases {
		if got := grade(c.score); got != c.want {
			t.Errorf("grade(%v) = %q, want %q", c.score, got, c.want)
		}
	}
}

func TestStandardizeWritesCanonicalCSVAndAnalytics(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "in.csv")
	if err := os.WriteFile(inputPath, []byte("Business Name,Phone\nAcme Inc,2125550100\n"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	result, err := Standardize(inputPath, dir, sampleMeta())
	if err != nil {
		t.Fatalf("Standardize: %v", err)
	}
	if result.TotalRows != 1 {
		t.Errorf("TotalRows = %d, want 1", result.TotalRows)
	}
	if result.ColumnMapping["Business Name"] != record.FieldCompanyName {
		t.Errorf("expected Business Name mapped to COMPANY_NAME, got %+v", result.ColumnMapping)
	}

	processedPath := filepath.Join(dir, result.ProcessedFilename)
	if _, err := os.Stat(processedPath); err != nil {
		t.Errorf("expected processed CSV on disk: %v", err)
	}
	analyticsPath := filepath.Join(dir, result.AnalyticsFilename)
	if _, err := os.Stat(analyticsPath); err != nil {
		t.Errorf("expected analytics JSON on disk: %v", err)
	}
}

func TestStandardizeRejectsEmptyInput(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "in.csv")
	if err := os.WriteFile(inputPath, []byte("COMPANY_NAME\n"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	if _, err := Standardize(inputPath, dir, sampleMeta()); err == nil {
		t.Fatal("expected an error for a header-only input file")
	}
}
