// Package normalize implements the pure field-normalization functions
// (§4.A): deterministic, idempotent transforms of raw field strings into
// canonical comparable forms.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
)

var (
	nonAlnumRegex  = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	nonDigitRegex  = regexp.MustCompile(`\D`)
)

// legalFormTokens and articleTokens are stripped as whole tokens from
// company names.
var legalFormTokens = map[string]bool{
	"inc": true, "incorporated": true, "corp": true, "corporation": true,
	"llc": true, "ltd": true, "limited": true, "co": true, "company": true,
	"plc": true, "lp": true, "llp": true, "pllc": true, "pc": true, "pa": true, "na": true,
}

var articleTokens = map[string]bool{
	"the": true, "a": true, "an": true,
}

// addressWordSubstitutions holds whole-word address abbreviation mappings.
var addressWordSubstitutions = map[string]string{
	"street": "st", "avenue": "ave", "road": "rd", "boulevard": "blvd",
	"drive": "dr", "lane": "ln", "court": "ct", "place": "pl",
	"suite": "ste", "apartment": "apt", "building": "bldg", "floor": "fl",
	"north": "n", "south": "s", "east": "e", "west": "w",
}

// Text lower-cases s, replaces non-alphanumeric runes with a space,
// collapses whitespace, and trims. Empty input yields empty output.
func Text(s string) string {
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	replaced := nonAlnumRegex.ReplaceAllString(lower, " ")
	collapsed := whitespaceRe.ReplaceAllString(replaced, " ")
	return strings.TrimSpace(collapsed)
}

// ASCIIFold transliterates non-ASCII runes to their closest ASCII
// equivalent before normalization, reducing false mismatches caused by
// accented characters. This is an enrichment beyond the base spec and
// only affects input that already contains non-ASCII runes.
func ASCIIFold(s string) string {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return unidecode.Unidecode(s)
		}
	}
	return s
}

// CompanyName applies Text, then strips legal-form tokens and articles as
// whole tokens, then collapses whitespace.
func CompanyName(s string) string {
	normalized := Text(ASCIIFold(s))
	if normalized == "" {
		return ""
	}
	tokens := strings.Fields(normalized)
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if legalFormTokens[tok] || articleTokens[tok] {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

// Address applies Text, then whole-word abbreviation substitution.
func Address(s string) string {
	normalized := Text(ASCIIFold(s))
	if normalized == "" {
		return ""
	}
	tokens := strings.Fields(normalized)
	for i, tok := range tokens {
		if repl, ok := addressWordSubstitutions[tok]; ok {
			tokens[i] = repl
		}
	}
	return strings.Join(tokens, " ")
}

// Phone extracts digits; if the result has 11 digits with a leading '1',
// the leading '1' is dropped. The result may be any length; callers that
// require exactly 10 digits enforce that themselves (§4.C).
func Phone(s string) string {
	if s == "" {
		return ""
	}
	digits := nonDigitRegex.ReplaceAllString(s, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}

// Email lower-cases and trims.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
