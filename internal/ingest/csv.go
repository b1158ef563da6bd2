// Package ingest implements the CSV input/output boundary of §6: BOM
// tolerance, header trimming, empty-row skipping on read; LF line endings
// and standard quoting on write.
package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ignite/dedupe/internal/record"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// stripBOM peeks the first three bytes of r and, if they are a UTF-8 BOM,
// returns a reader with them consumed. Grounded on the teacher's
// datanorm/importer.go peek-and-splice idiom, generalized from a
// file-specific check to any io.Reader.
func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	peeked, err := br.Peek(len(utf8BOM))
	if err == nil && string(peeked) == string(utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	return br
}

// Rows is an ordered list of records plus the header order they were read
// under, needed because Record is a map with no iteration order of its own.
type Rows struct {
	Headers []string
	Records []record.Record
}

// ReadCSV reads path per §6: BOM-tolerant, header row trimmed, empty rows
// (all values empty after trim) skipped silently. Decoding errors in
// malformed UTF-8 are replaced rather than aborting the read.
func ReadCSV(path string) (*Rows, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", record.ErrIO, path, err)
	}
	defer f.Close()

	reader := csv.NewReader(stripBOM(f))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rawHeader, err := reader.Read()
	if err == io.EOF {
		return &Rows{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header of %s: %v", record.ErrInputFormat, path, err)
	}

	headers := make([]string, len(rawHeader))
	for i, h := range rawHeader {
		headers[i] = strings.ToValidUTF8(strings.TrimSpace(h), "�")
	}

	var out Rows
	out.Headers = headers

	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read row of %s: %v", record.ErrInputFormat, path, err)
		}

		rec := make(record.Record, len(headers))
		allEmpty := true
		for i, h := range headers {
			var v string
			if i < len(fields) {
				v = strings.ToValidUTF8(strings.TrimSpace(fields[i]), "�")
			}
			if v != "" {
				allEmpty = false
			}
			rec[h] = v
		}
		if allEmpty {
			continue
		}
		out.Records = append(out.Records, rec)
	}

	return &out, nil
}

// WriteCSV writes rows to path per §6: UTF-8, LF endings, standard quoting,
// columns in the given order, header first. A field absent from a record
// is written as an empty string.
func WriteCSV(path string, columns []string, records []record.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", record.ErrIO, path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.UseCRLF = false

	if err := w.Write(columns); err != nil {
		return fmt.Errorf("%w: write header to %s: %v", record.ErrIO, path, err)
	}
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = rec[col]
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("%w: write row to %s: %v", record.ErrIO, path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flush %s: %v", record.ErrIO, path, err)
	}
	return nil
}

// Preview reads up to maxRows data rows from path, for the preview()
// callable surface (§6).
func Preview(path string, maxRows int) (headers []string, preview []record.Record, totalRows int, err error) {
	rows, err := ReadCSV(path)
	if err != nil {
		return nil, nil, 0, err
	}
	totalRows = len(rows.Records)
	if maxRows < 0 || maxRows > totalRows {
		maxRows = totalRows
	}
	return rows.Headers, rows.Records[:maxRows], totalRows, nil
}
