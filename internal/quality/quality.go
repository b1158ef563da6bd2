// Package quality implements the per-record email and phone quality
// scorers (§4.C): point-weighted criteria over normalized values, with a
// format-failure short-circuit to zero.
package quality

import (
	"regexp"
	"strings"

	"github.com/ignite/dedupe/internal/normalize"
)

var emailFormatRegex = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// Default lookup sets. settings.json's quality_scores section (read via
// jobconfig.Cache.Settings) can override them; these apply when it is absent.
var (
	DefaultPersonalDomains = map[string]bool{
		"gmail.com": true, "yahoo.com": true, "hotmail.com": true, "outlook.com": true,
		"aol.com": true, "icloud.com": true, "live.com": true, "msn.com": true,
		"comcast.net": true, "verizon.net": true, "att.net": true, "sbcglobal.net": true,
	}
	DefaultGenericPrefixes = map[string]bool{
		"info": true, "contact": true, "sales": true, "support": true, "help": true,
		"webmaster": true, "postmaster": true, "noreply": true, "no-reply": true,
		"hello": true, "enquiries": true, "service": true,
	}
	DefaultDepartmentPrefixes = map[string]bool{
		"hr": true, "finance": true, "accounting": true, "legal": true, "marketing": true,
		"sales": true, "billing": true, "careers": true, "jobs": true, "press": true,
	}
	// adminPrefixes is a distinct, narrower set from GenericPrefixes: an
	// email with local-part "admin" passes the non_generic check (admin is
	// not in GenericPrefixes) but fails this one.
	adminPrefixes = map[string]bool{
		"admin": true, "support": true, "help": true, "helpdesk": true, "service": true,
	}
	DefaultTollFreeCodes = map[string]bool{
		"800": true, "833": true, "844": true, "855": true, "866": true, "877": true, "888": true,
	}
)

// Lookups holds the email/phone quality lookup sets, overridable from
// settings.json. A zero-value Lookups has nil sets that match nothing;
// NewDefaultLookups returns one populated with the package defaults.
type Lookups struct {
	PersonalDomains    map[string]bool `json:"personal_domains,omitempty"`
	GenericPrefixes    map[string]bool `json:"generic_prefixes,omitempty"`
	DepartmentPrefixes map[string]bool `json:"department_prefixes,omitempty"`
	TollFreeCodes      map[string]bool `json:"toll_free_codes,omitempty"`
}

// NewDefaultLookups returns the built-in default lookup sets.
func NewDefaultLookups() Lookups {
	return Lookups{
		PersonalDomains:    DefaultPersonalDomains,
		GenericPrefixes:    DefaultGenericPrefixes,
		DepartmentPrefixes: DefaultDepartmentPrefixes,
		TollFreeCodes:      DefaultTollFreeCodes,
	}
}

// EmailQuality is the breakdown of the five 20-point email criteria.
type EmailQuality struct {
	ValidFormat   int `json:"valid_format"`
	NonPersonal   int `json:"non_personal"`
	NonGeneric    int `json:"non_generic"`
	NonAdmin      int `json:"non_admin"`
	NonDepartment int `json:"non_department"`
	Total         int `json:"total"`
}

// IsValidEmailFormat reports whether email matches the same format check
// ScoreEmail's valid_format criterion uses, exposed standalone for callers
// — e.g. the standardizer's field-validity analytics (§4.H) — that need the
// predicate without the full point breakdown.
func IsValidEmailFormat(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	return emailFormatRegex.MatchString(email)
}

// ScoreEmail computes the email quality breakdown (§4.C). A format failure
// short-circuits to an all-zero breakdown.
func ScoreEmail(email string, lookups Lookups) EmailQuality {
	email = strings.TrimSpace(email)
	if email == "" {
		return EmailQuality{}
	}
	if !emailFormatRegex.MatchString(email) {
		return EmailQuality{}
	}

	at := strings.LastIndex(email, "@")
	localPart := strings.ToLower(email[:at])
	domain := strings.ToLower(email[at+1:])

	q := EmailQuality{ValidFormat: 20}
	if !lookups.PersonalDomains[domain] {
		q.NonPersonal = 20
	}
	if !lookups.GenericPrefixes[localPart] {
		q.NonGeneric = 20
	}
	if !adminPrefixes[localPart] {
		q.NonAdmin = 20
	}
	if !lookups.DepartmentPrefixes[localPart] {
		q.NonDepartment = 20
	}
	q.Total = q.ValidFormat + q.NonPersonal + q.NonGeneric + q.NonAdmin + q.NonDepartment
	return q
}

// PhoneQuality is the breakdown of the nine weighted phone criteria.
type PhoneQuality struct {
	Has10Digits    int `json:"has_10_digits"`
	NotAllSame     int `json:"not_all_same"`
	ValidAreaCode  int `json:"valid_area_code"`
	ValidExchange  int `json:"valid_exchange"`
	ValidLineNumber int `json:"valid_line_number"`
	NotTollFree    int `json:"not_toll_free"`
	NotMainLine    int `json:"not_main_line"`
	HasExtension   int `json:"has_extension"`
	HighQuality    int `json:"high_quality"`
	Total          int `json:"total"`
}

// ScorePhone computes the phone quality breakdown (§4.C). Length != 10
// after stripping a leading US '1' short-circuits to an all-zero breakdown.
func ScorePhone(phone, extension string, lookups Lookups) PhoneQuality {
	if strings.TrimSpace(phone) == "" {
		return PhoneQuality{}
	}
	digits := normalize.Phone(phone)
	if len(digits) != 10 {
		return PhoneQuality{}
	}

	var q PhoneQuality
	q.Has10Digits = 11

	allSame := true
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			allSame = false
			break
		}
	}
	if !allSame {
		q.NotAllSame = 11
	}

	areaCode := digits[0:3]
	exchange := digits[3:6]
	lineNumber := digits[6:10]

	if areaCode[0] != '0' && areaCode[0] != '1' {
		q.ValidAreaCode = 11
	}
	if exchange[0] != '0' && exchange[0] != '1' {
		q.ValidExchange = 11
	}
	if lineNumber != "0000" {
		q.ValidLineNumber = 11
	}
	if !lookups.TollFreeCodes[areaCode] {
		q.NotTollFree = 12
	}

	isMainLine := strings.HasSuffix(lineNumber, "000") || strings.HasSuffix(lineNumber, "0000")
	if !isMainLine {
		q.NotMainLine = 11
	}

	if strings.TrimSpace(extension) != "" {
		q.HasExtension = 11
	} else if !isMainLine {
		q.HasExtension = 5
	}

	sequential := strings.Contains(digits, "0123456789") || strings.Contains(digits, "9876543210")
	repeating := false
	for i := 0; i+4 <= len(digits); i++ {
		window := digits[i : i+4]
		if window == strings.Repeat(string(window[0]), 4) {
			repeating = true
			break
		}
	}
	if !sequential && !repeating {
		q.HighQuality = 11
	}

	q.Total = q.Has10Digits + q.NotAllSame + q.ValidAreaCode + q.ValidExchange + q.ValidLineNumber +
		q.NotTollFree + q.NotMainLine + q.HasExtension + q.HighQuality
	return q
}
