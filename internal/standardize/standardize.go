// Package standardize implements the Standardizer + analytics of §4.H:
// scored header auto-mapping, canonical CSV emission, and the completeness/
// validity/duplicate/distribution analytics report, concretized from
// file_processor.py's shape.
package standardize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/dedupe/internal/ingest"
	"github.com/ignite/dedupe/internal/jobconfig"
	"github.com/ignite/dedupe/internal/quality"
	"github.com/ignite/dedupe/internal/record"
)

// inputGroups are the columns_metadata.json "group" values whose columns
// belong in the canonical output even when a source file doesn't supply
// them, mirroring file_processor.py's input_groups list.
var inputGroups = map[string]bool{
	"input-fields":                true,
	"input-fields-(source)":       true,
	"input-fields-(address)":      true,
	"input-fields-(email)":        true,
	"input-fields-(phone)":        true,
}

const (
	scoreExact      = 100
	scoreAlternate  = 95
	scoreSubstring  = 70
	acceptThreshold = 70
)

// MapResult is the result of auto_map: the accepted mapping plus the score
// each accepted mapping scored at (§4.H, §6).
type MapResult struct {
	Mapping    map[string]string `json:"mapping"`
	Confidence map[string]int    `json:"confidence"`
}

// sortedColumnNames returns metadata's keys sorted alphabetically.
// columns_metadata.json's on-disk key order isn't recoverable through a Go
// map, so canonical-column enumeration is made a deterministic function of
// the column names themselves rather than insertion order.
func sortedColumnNames(meta jobconfig.ColumnsMetadataDocument) []string {
	names := make([]string, 0, len(meta))
	for name := range meta {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AutoMap scores every source header against every canonical column's name
// and alternate_columns list (§4.H): exact match scores 100, an exact match
// to an alternate name scores 95, a substring match (either direction)
// scores 70. The best-scoring column is kept per header; a header with no
// column scoring >= 70 is left unmapped.
func AutoMap(headers []string, meta jobconfig.ColumnsMetadataDocument) MapResult {
	names := sortedColumnNames(meta)
	result := MapResult{Mapping: make(map[string]string), Confidence: make(map[string]int)}

	for _, h := range headers {
		hUpper := strings.ToUpper(strings.TrimSpace(h))
		if hUpper == "" {
			continue
		}

		bestCol := ""
		bestScore := 0
		for _, col := range names {
			colUpper := strings.ToUpper(col)
			score := 0
			switch {
			case hUpper == colUpper:
				score = scoreExact
			case hasAlternate(hUpper, meta[col].AlternateColumns):
				score = scoreAlternate
			case strings.Contains(hUpper, colUpper) || strings.Contains(colUpper, hUpper):
				score = scoreSubstring
			}
			if score > bestScore {
				bestScore = score
				bestCol = col
			}
		}

		if bestScore >= acceptThreshold {
			result.Mapping[h] = bestCol
			result.Confidence[h] = bestScore
		}
	}

	return result
}

func hasAlternate(hUpper string, alternates []string) bool {
	for _, alt := range alternates {
		if strings.ToUpper(alt) == hUpper {
			return true
		}
	}
	return false
}

// StandardColumns returns the canonical columns whose group is one of
// inputGroups, in deterministic (alphabetical) order.
func StandardColumns(meta jobconfig.ColumnsMetadataDocument) []string {
	var out []string
	for _, name := range sortedColumnNames(meta) {
		if inputGroups[meta[name].Group] {
			out = append(out, name)
		}
	}
	return out
}

// Result is the outcome of one standardize() call (§6).
type Result struct {
	ProcessedFilename string
	AnalyticsFilename string
	ColumnMapping     map[string]string
	UnmappedColumns   []string
	TotalRows         int
	TotalColumns      int
	Analytics         Analytics
}

// Standardize implements the standardize() callable (§4.H, §6): reads
// inputPath, maps headers onto the canonical columns named in meta, writes
// a canonical CSV and an analytics JSON file under outputDir, and returns
// their filenames plus the computed analytics.
func Standardize(inputPath, outputDir string, meta jobconfig.ColumnsMetadataDocument) (*Result, error) {
	rows, err := ingest.ReadCSV(inputPath)
	if err != nil {
		return nil, err
	}
	if len(rows.Records) == 0 {
		return nil, fmt.Errorf("%w: %s has no data rows", record.ErrInputFormat, inputPath)
	}

	mapResult := AutoMap(rows.Headers, meta)
	standardColumns := StandardColumns(meta)

	var unmapped []string
	for _, h := range rows.Headers {
		if _, ok := mapResult.Mapping[h]; !ok {
			unmapped = append(unmapped, h)
		}
	}
	outputHeaders := append(append([]string{}, standardColumns...), unmapped...)

	processed := make([]record.Record, len(rows.Records))
	for i, r := range rows.Records {
		out := make(record.Record, len(outputHeaders))
		for _, col := range standardColumns {
			out[col] = ""
		}
		for h, v := range r {
			if std, ok := mapResult.Mapping[h]; ok {
				out[std] = v
			} else {
				out[h] = v
			}
		}
		processed[i] = out
	}

	fileID := uuid.NewString()[:8]
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	processedFilename := fmt.Sprintf("%s_%s_processed.csv", fileID, stem)
	analyticsFilename := fmt.Sprintf("%s_%s_analytics.json", fileID, stem)

	processedPath := filepath.Join(outputDir, processedFilename)
	if err := ingest.WriteCSV(processedPath, outputHeaders, processed); err != nil {
		return nil, err
	}

	analytics := ComputeAnalytics(processed, outputHeaders, meta)

	analyticsPath := filepath.Join(outputDir, analyticsFilename)
	// Analytics persistence is best-effort (file_processor.py swallows the
	// write error and still returns the computed analytics); we mirror that
	// rather than fail the whole standardize() call over a sidecar file.
	_ = writeAnalyticsFile(analyticsPath, analytics)

	return &Result{
		ProcessedFilename: processedFilename,
		AnalyticsFilename: analyticsFilename,
		ColumnMapping:     mapResult.Mapping,
		UnmappedColumns:   unmapped,
		TotalRows:         len(processed),
		TotalColumns:      len(outputHeaders),
		Analytics:         analytics,
	}, nil
}

// writeAnalyticsFile writes analytics as 2-space-indented JSON (§6).
func writeAnalyticsFile(path string, analytics Analytics) error {
	data, err := json.MarshalIndent(analytics, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal analytics: %v", record.ErrIO, err)
	}
	return os.WriteFile(path, data, 0o644)
}

var nonDigitRegex = regexp.MustCompile(`\D`)

func digitsOnly(s string) string {
	return nonDigitRegex.ReplaceAllString(s, "")
}

func isValidPhone(phone string) bool {
	return len(digitsOnly(phone)) >= 10
}

func isValidZip(zip string) bool {
	n := len(digitsOnly(zip))
	return n == 5 || n == 9
}

// Summary is the analytics report's top-level run metadata.
type Summary struct {
	TotalRows    int    `json:"total_rows"`
	TotalColumns int    `json:"total_columns"`
	ProcessedAt  string `json:"processed_at"`
}

// ColumnCompleteness is one column's fill-rate breakdown (§4.H).
type ColumnCompleteness struct {
	Filled          int     `json:"filled"`
	Empty           int     `json:"empty"`
	CompletenessPct float64 `json:"completeness_pct"`
	DisplayLabel    string  `json:"display_label"`
	Description     string  `json:"description"`
}

// ValidityStats is the total/valid/invalid/unique breakdown shared by the
// email, phone, and zip-code field analytics.
type ValidityStats struct {
	Total       int     `json:"total"`
	Valid       int     `json:"valid"`
	Invalid     int     `json:"invalid"`
	ValidityPct float64 `json:"validity_pct"`
	Unique      int     `json:"unique"`
}

// StateStats is the STATE field's distribution breakdown.
type StateStats struct {
	UniqueStates int            `json:"unique_states"`
	TopStates    map[string]int `json:"top_states"`
}

// CompanyStats is the COMPANY_NAME field's size breakdown.
type CompanyStats struct {
	Total     int     `json:"total"`
	Unique    int     `json:"unique"`
	AvgLength float64 `json:"avg_length"`
}

// FieldAnalytics holds the per-field breakdowns that apply only when the
// corresponding header is present in the output (§4.H).
type FieldAnalytics struct {
	Email       *ValidityStats `json:"email,omitempty"`
	Phone       *ValidityStats `json:"phone,omitempty"`
	ZipCode     *ValidityStats `json:"zip_code,omitempty"`
	State       *StateStats    `json:"state,omitempty"`
	CompanyName *CompanyStats  `json:"company_name,omitempty"`
}

// PotentialDuplicate is one key-combination's potential-duplicate count.
type PotentialDuplicate struct {
	DuplicateCount int      `json:"duplicate_count"`
	Fields         []string `json:"fields"`
}

// Duplicates is the exact- and potential-duplicate breakdown (§4.H).
type Duplicates struct {
	ExactDuplicates     int                           `json:"exact_duplicates"`
	PotentialDuplicates map[string]PotentialDuplicate `json:"potential_duplicates"`
}

// Distribution is one categorical field's value distribution.
type Distribution struct {
	UniqueValues int            `json:"unique_values"`
	TopValues    map[string]int `json:"top_values"`
	TotalFilled  int            `json:"total_filled"`
}

// DataQuality is the composite data-quality grade (§4.H).
type DataQuality struct {
	OverallScore     float64 `json:"overall_score"`
	CompletenessScore float64 `json:"completeness_score"`
	DuplicatePenalty float64 `json:"duplicate_penalty"`
	Grade            string  `json:"grade"`
}

// Analytics is the full report computed over a standardized row set (§4.H).
type Analytics struct {
	Summary             Summary                       `json:"summary"`
	ColumnCompleteness  map[string]ColumnCompleteness `json:"column_completeness"`
	FieldAnalytics      FieldAnalytics                `json:"field_analytics"`
	Duplicates          Duplicates                    `json:"duplicates"`
	ValueDistributions  map[string]Distribution       `json:"value_distributions"`
	DataQuality         DataQuality                   `json:"data_quality"`
}

// nowFunc is overridable in tests; production code always uses time.Now.
var nowFunc = time.Now

// ComputeAnalytics implements §4.H's analytics computation over rows under
// headers, using meta for column display labels/descriptions.
func ComputeAnalytics(rows []record.Record, headers []string, meta jobconfig.ColumnsMetadataDocument) Analytics {
	total := len(rows)

	a := Analytics{
		Summary: Summary{
			TotalRows:    total,
			TotalColumns: len(headers),
			ProcessedAt:  nowFunc().UTC().Format(time.RFC3339),
		},
		ColumnCompleteness: make(map[string]ColumnCompleteness, len(headers)),
		ValueDistributions: make(map[string]Distribution),
	}
	if total == 0 {
		return a
	}

	for _, col := range headers {
		filled := 0
		for _, r := range rows {
			if strings.TrimSpace(r.Get(col)) != "" {
				filled++
			}
		}
		cm := meta[col]
		a.ColumnCompleteness[col] = ColumnCompleteness{
			Filled:          filled,
			Empty:           total - filled,
			CompletenessPct: round2(float64(filled) / float64(total) * 100),
			DisplayLabel:    orDefault(cm.DisplayLabel, col),
			Description:     cm.Description,
		}
	}

	a.FieldAnalytics = analyzeFields(rows, headers)
	a.Duplicates = detectDuplicates(rows, headers)
	a.ValueDistributions = valueDistributions(rows, headers)
	a.DataQuality = calculateQuality(a, total)

	return a
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func hasHeader(headers []string, name string) bool {
	for _, h := range headers {
		if h == name {
			return true
		}
	}
	return false
}

func analyzeFields(rows []record.Record, headers []string) FieldAnalytics {
	var fa FieldAnalytics

	if hasHeader(headers, record.FieldEmailAddress) {
		fa.Email = validityStats(rows, record.FieldEmailAddress, quality.IsValidEmailFormat, func(v string) string {
			return strings.ToLower(strings.TrimSpace(v))
		})
	}
	if hasHeader(headers, record.FieldPhoneNumber) {
		fa.Phone = validityStats(rows, record.FieldPhoneNumber, isValidPhone, digitsOnly)
	}
	if hasHeader(headers, record.FieldZipCode) {
		fa.ZipCode = validityStats(rows, record.FieldZipCode, isValidZip, func(v string) string {
			d := digitsOnly(v)
			if len(d) > 5 {
				d = d[:5]
			}
			return d
		})
	}
	if hasHeader(headers, record.FieldState) {
		counts := make(map[string]int)
		for _, r := range rows {
			v := strings.ToUpper(strings.TrimSpace(r.Get(record.FieldState)))
			if v != "" {
				counts[v]++
			}
		}
		fa.State = &StateStats{UniqueStates: len(counts), TopStates: topN(counts, 10)}
	}
	if hasHeader(headers, record.FieldCompanyName) {
		seen := make(map[string]bool)
		total := 0
		totalLen := 0
		for _, r := range rows {
			v := strings.TrimSpace(r.Get(record.FieldCompanyName))
			if v == "" {
				continue
			}
			total++
			totalLen += len(v)
			seen[strings.ToLower(v)] = true
		}
		avg := 0.0
		if total > 0 {
			avg = round1(float64(totalLen) / float64(total))
		}
		fa.CompanyName = &CompanyStats{Total: total, Unique: len(seen), AvgLength: avg}
	}

	return fa
}

func validityStats(rows []record.Record, field string, isValid func(string) bool, normalizeForUnique func(string) string) *ValidityStats {
	total := 0
	valid := 0
	unique := make(map[string]bool)
	for _, r := range rows {
		v := r.Get(field)
		total++
		if isValid(v) {
			valid++
		}
		if strings.TrimSpace(v) != "" {
			unique[normalizeForUnique(v)] = true
		}
	}
	pct := 0.0
	if total > 0 {
		pct = round2(float64(valid) / float64(total) * 100)
	}
	return &ValidityStats{Total: total, Valid: valid, Invalid: total - valid, ValidityPct: pct, Unique: len(unique)}
}

// rowHash implements file_processor.py's exact-duplicate row signature:
// the full row's values in header order, lower-cased and pipe-joined, then
// hashed. Go has no stable built-in string hash like Python's, so SHA-256
// stands in; only collision-freedom for equality comparison matters here,
// not a specific digest algorithm.
func rowHash(r record.Record, headers []string) string {
	parts := make([]string, len(headers))
	for i, h := range headers {
		parts[i] = strings.ToLower(strings.TrimSpace(r.Get(h)))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func detectDuplicates(rows []record.Record, headers []string) Duplicates {
	hashCounts := make(map[string]int)
	for _, r := range rows {
		hashCounts[rowHash(r, headers)]++
	}
	exact := 0
	for _, c := range hashCounts {
		if c > 1 {
			exact += c - 1
		}
	}

	combos := []struct {
		name   string
		fields []string
	}{
		{"company_phone", []string{record.FieldCompanyName, record.FieldPhoneNumber}},
		{"company_address", []string{record.FieldCompanyName, record.FieldAddressLine1, record.FieldZipCode}},
		{"email", []string{record.FieldEmailAddress}},
		{"phone", []string{record.FieldPhoneNumber}},
	}

	potential := make(map[string]PotentialDuplicate)
	for _, combo := range combos {
		if !allHeadersPresent(headers, combo.fields) {
			continue
		}
		counts := make(map[string]int)
		for _, r := range rows {
			parts := make([]string, len(combo.fields))
			nonEmpty := false
			for i, f := range combo.fields {
				v := strings.ToLower(strings.TrimSpace(r.Get(f)))
				parts[i] = v
				if v != "" {
					nonEmpty = true
				}
			}
			if !nonEmpty {
				continue
			}
			counts[strings.Join(parts, "|")]++
		}
		dup := 0
		for _, c := range counts {
			if c > 1 {
				dup += c - 1
			}
		}
		potential[combo.name] = PotentialDuplicate{DuplicateCount: dup, Fields: combo.fields}
	}

	return Duplicates{ExactDuplicates: exact, PotentialDuplicates: potential}
}

func allHeadersPresent(headers []string, fields []string) bool {
	for _, f := range fields {
		if !hasHeader(headers, f) {
			return false
		}
	}
	return true
}

var categoricalFields = []string{
	record.FieldSourceType, record.FieldState, "COUNTRY_CODE", "PHONE_TYPE", "ADDRESS_LOCATION_TYPE",
}

func valueDistributions(rows []record.Record, headers []string) map[string]Distribution {
	out := make(map[string]Distribution)
	for _, field := range categoricalFields {
		if !hasHeader(headers, field) {
			continue
		}
		counts := make(map[string]int)
		filled := 0
		for _, r := range rows {
			v := strings.TrimSpace(r.Get(field))
			if v == "" {
				continue
			}
			filled++
			counts[v]++
		}
		if filled == 0 {
			continue
		}
		out[field] = Distribution{UniqueValues: len(counts), TopValues: topN(counts, 10), TotalFilled: filled}
	}
	return out
}

// topN returns at most n entries from counts, by count descending then key
// ascending for a deterministic tiebreak (Go maps have no iteration order).
func topN(counts map[string]int, n int) map[string]int {
	type kv struct {
		k string
		v int
	}
	pairs := make([]kv, 0, len(counts))
	for k, v := range counts {
		pairs = append(pairs, kv{k, v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].v != pairs[j].v {
			return pairs[i].v > pairs[j].v
		}
		return pairs[i].k < pairs[j].k
	})
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	out := make(map[string]int, len(pairs))
	for _, p := range pairs {
		out[p.k] = p.v
	}
	return out
}

func calculateQuality(a Analytics, totalRows int) DataQuality {
	var scores []float64

	var completenessSum float64
	for _, cc := range a.ColumnCompleteness {
		completenessSum += cc.CompletenessPct
	}
	avgCompleteness := 0.0
	if len(a.ColumnCompleteness) > 0 {
		avgCompleteness = completenessSum / float64(len(a.ColumnCompleteness))
	}
	scores = append(scores, avgCompleteness)

	if a.FieldAnalytics.Email != nil {
		scores = append(scores, a.FieldAnalytics.Email.ValidityPct)
	}
	if a.FieldAnalytics.Phone != nil {
		scores = append(scores, a.FieldAnalytics.Phone.ValidityPct)
	}
	if a.FieldAnalytics.ZipCode != nil {
		scores = append(scores, a.FieldAnalytics.ZipCode.ValidityPct)
	}

	dupPenaltyScore := 100.0
	if totalRows > 0 {
		dupPenaltyScore = max0(100 - (float64(a.Duplicates.ExactDuplicates)/float64(totalRows)*100))
	}
	scores = append(scores, dupPenaltyScore)

	var sum float64
	for _, s := range scores {
		sum += s
	}
	overall := 0.0
	if len(scores) > 0 {
		overall = round1(sum / float64(len(scores)))
	}

	return DataQuality{
		OverallScore:      overall,
		CompletenessScore: round1(avgCompleteness),
		DuplicatePenalty:  round1(100 - dupPenaltyScore),
		Grade:             grade(overall),
	}
}

func max0(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}

func grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

func round2(f float64) float64 {
	return roundTo(f, 100)
}

func round1(f float64) float64 {
	return roundTo(f, 10)
}

func roundTo(f, factor float64) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(f*factor, 'f', 0, 64), 64)
	return v / factor
}
