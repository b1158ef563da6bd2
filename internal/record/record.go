// Package record defines the shared data model for the record-linkage
// pipeline: the canonical Record shape, run statistics, and the error
// kinds every other component classifies its failures into.
package record

import "time"

// Canonical field names, per the input/output schema.
const (
	FieldSourceType      = "SOURCE_TYPE"
	FieldSourceID        = "SOURCE_ID"
	FieldCompanyName     = "COMPANY_NAME"
	FieldAddressLine1    = "ADDRESS_LINE_1"
	FieldAddressLine2    = "ADDRESS_LINE_2"
	FieldCity            = "CITY"
	FieldState           = "STATE"
	FieldZipCode         = "ZIP_CODE"
	FieldPhoneNumber     = "PHONE_NUMBER"
	FieldPhoneExtension  = "PHONE_EXTENSION"
	FieldEmailAddress    = "EMAIL_ADDRESS"

	FieldCompanyNameStd = "COMPANY_NAME_STD"
	FieldAddress1Std    = "ADDRESS1_STD"
	FieldAddress2Std    = "ADDRESS2_STD"
	FieldPhoneStd       = "PHONE_STD"
	FieldEmailStd       = "EMAIL_STD"

	FieldDedupKey         = "DEDUP_KEY"
	FieldMatchReason      = "MATCH_REASON"
	FieldMatchedRecordIDs = "MATCHED_RECORD_IDS"
	FieldMatchTimestamp   = "MATCH_TIMESTAMP"
	FieldError            = "ERROR"

	// Quality scores are side outputs (§1, §4.C): computed for every row and
	// written to the pipeline's default output columns, but not part of the
	// enrichment column set.
	FieldEmailQuality = "EMAIL_QUALITY"
	FieldPhoneQuality = "PHONE_QUALITY"

	// Confidence rollups are likewise opt-in side outputs (§9 supplemented
	// features): weighted combinations of a match's per-field scores, never
	// part of the default enrichment column set.
	FieldOverallConfidence = "OVERALL_CONFIDENCE"
	FieldAddressConfidence = "ADDRESS_CONFIDENCE"

	MatchReasonNew   = "NEW"
	MatchReasonError = "ERROR"
)

// Record is a single input row keyed by canonical field name. Go maps have
// no stable iteration order, so anything that must preserve column order
// (standardizer output, CSV emission) carries its own header slice rather
// than relying on map iteration.
type Record map[string]string

// Get returns the value for a field, or "" if absent.
func (r Record) Get(field string) string {
	return r[field]
}

// Clone returns a shallow copy safe to mutate independently of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RunStats summarizes one matching-pipeline run (§3, §4.G).
type RunStats struct {
	TotalRecords   int       `json:"total_records"`
	MatchedExisting int      `json:"matched_existing"`
	NewDedupKeys   int       `json:"new_dedup_keys"`
	Errors         int       `json:"errors"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	WriteError     string    `json:"write_error,omitempty"`
}
