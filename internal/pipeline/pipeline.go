// Package pipeline implements the matching pipeline of §4.G: the full
// ingest -> normalize -> block -> compare -> assign -> emit orchestration,
// wiring together normalize, quality, blocking, rules, and dedupstore.
package pipeline

import (
	"strconv"
	"time"

	"github.com/ignite/dedupe/internal/blocking"
	"github.com/ignite/dedupe/internal/dedupstore"
	"github.com/ignite/dedupe/internal/normalize"
	"github.com/ignite/dedupe/internal/pkg/logger"
	"github.com/ignite/dedupe/internal/quality"
	"github.com/ignite/dedupe/internal/record"
	"github.com/ignite/dedupe/internal/rules"
)

// derivedColumns are the normalized/quality fields every row gets,
// appended to the output column set in this fixed order (§3, §4.C).
var derivedColumns = []string{
	record.FieldCompanyNameStd, record.FieldAddress1Std, record.FieldAddress2Std,
	record.FieldPhoneStd, record.FieldEmailStd, record.FieldEmailQuality, record.FieldPhoneQuality,
}

// enrichmentColumns are the pipeline's fixed output columns (§6).
var enrichmentColumns = []string{
	record.FieldDedupKey, record.FieldMatchReason, record.FieldMatchedRecordIDs,
	record.FieldMatchTimestamp, record.FieldError,
}

// confidenceColumns are appended after the score columns only when
// Options.IncludeConfidence is set (§9 supplemented features).
var confidenceColumns = []string{record.FieldOverallConfidence, record.FieldAddressConfidence}

// Options configures one run_matching invocation (§4.G, §6).
type Options struct {
	// FieldMapping remaps source headers to canonical field names.
	// Unmapped columns pass through under their original header.
	FieldMapping map[string]string

	// OutputColumns, if non-empty, whitelists and orders the output
	// columns. Otherwise the output is the union of input columns plus
	// the enrichment columns, in first-seen order (§4.G step 11).
	OutputColumns []string

	Lookups quality.Lookups

	// IncludeConfidence attaches OVERALL_CONFIDENCE and ADDRESS_CONFIDENCE
	// (§9 supplemented features) to matched rows. Opt-in: never part of the
	// default output column set.
	IncludeConfidence bool
}

// Result is the outcome of one matching run: the enriched rows (in input
// order) plus the run statistics (§3).
type Result struct {
	Rows    []record.Record
	Columns []string
	Stats   record.RunStats
}

// mapHeader renames a source header to its canonical field per mapping,
// passing it through unchanged when unmapped.
func mapHeader(h string, mapping map[string]string) string {
	if canonical, ok := mapping[h]; ok {
		return canonical
	}
	return h
}

// applyFieldMapping renames the keys in every record per mapping.
func applyFieldMapping(rows []record.Record, mapping map[string]string) []record.Record {
	if len(mapping) == 0 {
		return rows
	}
	out := make([]record.Record, len(rows))
	for i, r := range rows {
		mapped := make(record.Record, len(r))
		for k, v := range r {
			mapped[mapHeader(k, mapping)] = v
		}
		out[i] = mapped
	}
	return out
}

// deriveFields computes the normalized _STD fields and the quality-score
// side outputs for a record, returning a new record with them attached
// (§3 "Normalized view", §4.C).
func deriveFields(r record.Record, lookups quality.Lookups) record.Record {
	out := r.Clone()
	out[record.FieldCompanyNameStd] = normalize.CompanyName(r.Get(record.FieldCompanyName))
	out[record.FieldAddress1Std] = normalize.Address(r.Get(record.FieldAddressLine1))
	out[record.FieldAddress2Std] = normalize.Address(r.Get(record.FieldAddressLine2))
	out[record.FieldPhoneStd] = normalize.Phone(r.Get(record.FieldPhoneNumber))
	out[record.FieldEmailStd] = normalize.Email(r.Get(record.FieldEmailAddress))

	emailQ := quality.ScoreEmail(r.Get(record.FieldEmailAddress), lookups)
	phoneQ := quality.ScorePhone(r.Get(record.FieldPhoneNumber), r.Get(record.FieldPhoneExtension), lookups)
	out[record.FieldEmailQuality] = strconv.Itoa(emailQ.Total)
	out[record.FieldPhoneQuality] = strconv.Itoa(phoneQ.Total)
	return out
}

func defaultLookups(l quality.Lookups) quality.Lookups {
	if l.PersonalDomains == nil && l.GenericPrefixes == nil && l.DepartmentPrefixes == nil && l.TollFreeCodes == nil {
		return quality.NewDefaultLookups()
	}
	return l
}

// scoreColumns lists every `<field>_score` column the given rule set can
// possibly emit, in rule-then-condition declaration order, deduplicated.
// Deriving this from the rules rather than from row map iteration keeps
// the output column order a deterministic function of the ruleset alone.
func scoreColumns(ruleSet []rules.Rule) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rule := range ruleSet {
		for _, cond := range rule.Conditions {
			key := rules.ScoreColumnName(cond.Field)
			if !seen[key] {
				seen[key] = true
				out = append(out, key)
			}
		}
	}
	return out
}

// Run executes the matching pipeline over rows read from CSV under
// headers, producing enriched rows and run stats. mapping is the in-memory
// dedup store document, mutated in place and expected to be saved by the
// caller after Run returns (§5's load-at-start/save-at-end discipline
// keeps persistence outside the pure pipeline logic).
func Run(headers []string, rows []record.Record, mapping *dedupstore.Mapping, ruleSet []rules.Rule, opts Options) Result {
	stats := record.RunStats{StartTime: time.Now().UTC(), TotalRecords: len(rows)}
	lookups := defaultLookups(opts.Lookups)

	mappedRows := applyFieldMapping(rows, opts.FieldMapping)

	// Step 1-2: derive normalized/quality fields and the blocking key for
	// every row up front, before any comparison happens.
	derived := make([]record.Record, len(mappedRows))
	blockKeys := make([]string, len(mappedRows))
	for i, r := range mappedRows {
		derived[i] = deriveFields(r, lookups)
		blockKeys[i] = blocking.CompositeKey(derived[i])
	}

	// Step 3: group row indices by blocking key, first-occurrence order.
	blocks := make(map[string][]int)
	for i, key := range blockKeys {
		blocks[key] = append(blocks[key], i)
	}

	processedInBlock := make(map[string]map[int]bool)
	out := make([]record.Record, len(derived))

	// Step 4-10: iterate rows in input order.
	for i, row := range derived {
		key := blockKeys[i]
		if processedInBlock[key] == nil {
			processedInBlock[key] = make(map[int]bool)
		}
		processed := processedInBlock[key]

		var candidates []record.Record
		for _, idx := range blocks[key] {
			if idx == i || processed[idx] {
				continue
			}
			candidates = append(candidates, derived[idx])
		}

		emitted, procErr := processRow(row, candidates, mapping, ruleSet, opts.IncludeConfidence)

		if procErr != nil {
			// An errored row's processed-flag is deliberately left unset: it
			// never acquired a DEDUP_KEY, so it must remain an eligible
			// (unprocessed) candidate for later rows in its block.
			stats.Errors++
			errRow := row.Clone()
			errRow[record.FieldMatchReason] = record.MatchReasonError
			errRow[record.FieldError] = procErr.Error()
			out[i] = errRow
			logger.Warn("pipeline: row failed", "row_index", i, "error", procErr.Error())
			continue
		}

		processed[i] = true

		if emitted.isNew {
			stats.NewDedupKeys++
		}
		if emitted.matchedExisting {
			stats.MatchedExisting++
		}
		out[i] = emitted.row
	}

	stats.EndTime = time.Now().UTC()

	columns := opts.OutputColumns
	if len(columns) == 0 {
		columns = defaultColumns(headers, opts.FieldMapping, ruleSet, opts.IncludeConfidence)
	}

	return Result{Rows: out, Columns: columns, Stats: stats}
}

// defaultColumns builds the first-seen union column order (§4.G step 11):
// mapped source headers, then the fixed derived-field columns, then the
// fixed enrichment columns, then every score column the ruleset can emit.
func defaultColumns(headers []string, fieldMapping map[string]string, ruleSet []rules.Rule, includeConfidence bool) []string {
	seen := make(map[string]bool)
	var order []string
	add := func(c string) {
		if !seen[c] {
			seen[c] = true
			order = append(order, c)
		}
	}
	for _, h := range headers {
		add(mapHeader(h, fieldMapping))
	}
	for _, c := range derivedColumns {
		add(c)
	}
	for _, c := range enrichmentColumns {
		add(c)
	}
	for _, c := range scoreColumns(ruleSet) {
		add(c)
	}
	if includeConfidence {
		for _, c := range confidenceColumns {
			add(c)
		}
	}
	return order
}

type rowOutcome struct {
	row             record.Record
	isNew           bool
	matchedExisting bool
}

// processRow implements steps 5-8 of §4.G for a single row against its
// block-local candidates.
func processRow(row record.Record, candidates []record.Record, mapping *dedupstore.Mapping, ruleSet []rules.Rule, includeConfidence bool) (rowOutcome, error) {
	out := row.Clone()
	match := rules.FindBestMatch(row, candidates, ruleSet)

	if match != nil {
		// Step 6: reuse an existing DEDUP_KEY on the matched candidate
		// rather than looking the row up in the store — intentional, not a
		// bug (see DESIGN.md Open Question decisions).
		dedupKey := match.Candidate.Get(record.FieldDedupKey)
		if dedupKey == "" {
			dedupKey, _ = mapping.GetOrCreate(row)
		}
		mapping.Link(dedupKey, row)

		out[record.FieldDedupKey] = dedupKey
		out[record.FieldMatchReason] = match.MatchReason
		out[record.FieldMatchedRecordIDs] = joinIdentifiers(mapping.MatchedIdentifiers(dedupKey))
		for field, score := range match.Scores {
			out[field] = roundScore(score)
		}
		if includeConfidence {
			out[record.FieldOverallConfidence] = roundScore(rules.OverallConfidence(match.Scores))
			out[record.FieldAddressConfidence] = roundScore(rules.AddressConfidence(match.Scores))
		}
		out[record.FieldMatchTimestamp] = time.Now().UTC().Format(time.RFC3339)
		return rowOutcome{row: out, matchedExisting: true}, nil
	}

	dedupKey, isNew := mapping.GetOrCreate(row)
	out[record.FieldDedupKey] = dedupKey
	out[record.FieldMatchReason] = record.MatchReasonNew
	out[record.FieldMatchTimestamp] = time.Now().UTC().Format(time.RFC3339)
	return rowOutcome{row: out, isNew: isNew}, nil
}

func roundScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 2, 64)
}

func joinIdentifiers(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += "|"
		}
		out += id
	}
	return out
}
