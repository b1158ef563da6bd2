package record

import "errors"

// Error kinds from the error-handling design. These are sentinels meant to
// be wrapped with fmt.Errorf("...: %w", Err*) and inspected with errors.Is.
var (
	// ErrInputFormat covers not-CSV, missing required columns, empty body.
	ErrInputFormat = errors.New("input format error")
	// ErrIO covers read/write failures on input, output, store, or config.
	ErrIO = errors.New("io error")
	// ErrRow covers a per-row failure during normalize/score/compare; it
	// never aborts a job, it is recovered locally and counted.
	ErrRow = errors.New("row error")
	// ErrConfig covers malformed JSON in rules/columns/settings; recovered
	// by falling back to an empty document.
	ErrConfig = errors.New("config error")
	// ErrStorePersist covers a dedup-store save failure; surfaced to the
	// caller as a job failure even if the output CSV was written.
	ErrStorePersist = errors.New("store persist error")
)
