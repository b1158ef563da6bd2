package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ignite/dedupe/internal/record"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestReadCSVStripsBOM(t *testing.T) {
	dir := t.TempDir()
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte("SOURCE_TYPE,COMPANY_NAME\nCRM,Acme\n")...)
	path := writeFile(t, dir, "in.csv", content)

	rows, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if rows.Headers[0] != "SOURCE_TYPE" {
		t.Errorf("header 0 = %q, want SOURCE_TYPE (BOM not stripped)", rows.Headers[0])
	}
	if len(rows.Records) != 1 || rows.Records[0][record.FieldCompanyName] != "Acme" {
		t.Errorf("unexpected records: %+v", rows.Records)
	}
}

func TestReadCSVSkipsEmptyRows(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "in.csv", []byte("COMPANY_NAME,ZIP_CODE\nAcme,10001\n , \n,\nZenith,90210\n"))

	rows, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(rows.Records) != 2 {
		t.Fatalf("expected 2 non-empty rows, got %d: %+v", len(rows.Records), rows.Records)
	}
}

func TestReadCSVTrimsHeaders(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "in.csv", []byte(" COMPANY_NAME , ZIP_CODE \nAcme,10001\n"))

	rows, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if rows.Headers[0] != "COMPANY_NAME" || rows.Headers[1] != "ZIP_CODE" {
		t.Errorf("headers not trimmed: %+v", rows.Headers)
	}
}

func TestWriteCSVColumnOrderAndMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	records := []record.Record{
		{record.FieldCompanyName: "Acme", record.FieldZipCode: "10001"},
		{record.FieldCompanyName: "Zenith"},
	}
	if err := WriteCSV(path, []string{record.FieldCompanyName, record.FieldZipCode}, records); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	rows, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(rows.Records) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows.Records))
	}
	if rows.Records[1][record.FieldZipCode] != "" {
		t.Errorf("expected empty ZIP_CODE for second row, got %q", rows.Records[1][record.FieldZipCode])
	}
}

func TestPreviewCapsRows(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "in.csv", []byte("COMPANY_NAME\nA\nB\nC\n"))

	headers, preview, total, err := Preview(path, 2)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(preview) != 2 {
		t.Errorf("preview len = %d, want 2", len(preview))
	}
	if headers[0] != "COMPANY_NAME" {
		t.Errorf("headers[0] = %q", headers[0])
	}
}

func TestReadCSVMissingFileIsIOError(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "does-not-exist.csv"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if !errors.Is(err, record.ErrIO) {
		t.Errorf("expected an error wrapping record.ErrIO, got %v", err)
	}
}
