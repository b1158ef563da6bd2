// Package similarity implements the string-comparison primitives and
// field-typed comparators of §4.B: ratio, token_sort_ratio,
// token_set_ratio, partial_ratio, and the company/address/phone/email/
// generic dispatch used by the rule engine.
package similarity

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"

	"github.com/ignite/dedupe/internal/normalize"
)

// Method names accepted by Calculate.
const (
	MethodRatio         = "ratio"
	MethodTokenSort     = "token_sort"
	MethodTokenSet      = "token_set"
	MethodPartial       = "partial"
	MethodJaroWinkler   = "jaro_winkler"
)

// Ratio returns the Levenshtein-derived similarity of a and b in [0,100].
// Empty input on either side yields 0 (per §4.B), matching every other
// primitive in this package.
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	lensum := len([]rune(a)) + len([]rune(b))
	if lensum == 0 {
		return 0
	}
	score := 100 * float64(lensum-dist) / float64(lensum)
	if score < 0 {
		score = 0
	}
	return score
}

// TokenSortRatio sorts the whitespace-separated tokens of each string
// alphabetically, rejoins them, then applies Ratio. This cancels out
// word-order differences between otherwise-identical strings.
func TokenSortRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// TokenSetRatio compares the token sets of a and b: the shared tokens plus
// each side's unique remainder are compared pairwise and the best score
// wins. This tolerates one string being a superset of the other's tokens.
func TokenSetRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	tokensA := uniqueSortedTokens(a)
	tokensB := uniqueSortedTokens(b)

	intersection := intersectSorted(tokensA, tokensB)
	onlyA := diffSorted(tokensA, intersection)
	onlyB := diffSorted(tokensB, intersection)

	sorted := strings.Join(intersection, " ")
	combinedA := strings.TrimSpace(strings.Join(append(append([]string{}, intersection...), onlyA...), " "))
	combinedB := strings.TrimSpace(strings.Join(append(append([]string{}, intersection...), onlyB...), " "))

	best := Ratio(sorted, combinedA)
	if r := Ratio(sorted, combinedB); r > best {
		best = r
	}
	if r := Ratio(combinedA, combinedB); r > best {
		best = r
	}
	return best
}

// PartialRatio finds the best-aligned substring of the longer string
// against the shorter string and returns that window's Ratio. This lets a
// short exact match score well even when embedded in a longer string.
func PartialRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	shorter, longer := a, b
	if len([]rune(a)) > len([]rune(b)) {
		shorter, longer = b, a
	}
	shortRunes := []rune(shorter)
	longRunes := []rune(longer)
	if len(shortRunes) == 0 {
		return 0
	}
	if len(shortRunes) >= len(longRunes) {
		return Ratio(shorter, longer)
	}

	best := 0.0
	windowLen := len(shortRunes)
	for start := 0; start+windowLen <= len(longRunes); start++ {
		window := string(longRunes[start : start+windowLen])
		if r := Ratio(shorter, window); r > best {
			best = r
		}
	}
	return best
}

// JaroWinkler is an additional similarity method beyond the spec-mandated
// four, exposed for callers that want a prefix-sensitive metric.
func JaroWinkler(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return smetrics.JaroWinkler(a, b, 0.7, 4) * 100
}

// Calculate dispatches to a similarity method by name, defaulting to
// token_sort when method is empty or unrecognized, matching the Python
// original's calculate_similarity default.
func Calculate(a, b, method string) float64 {
	if a == "" || b == "" {
		return 0
	}
	switch method {
	case MethodRatio:
		return Ratio(a, b)
	case MethodTokenSet:
		return TokenSetRatio(a, b)
	case MethodPartial:
		return PartialRatio(a, b)
	case MethodJaroWinkler:
		return JaroWinkler(a, b)
	default:
		return TokenSortRatio(a, b)
	}
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func uniqueSortedTokens(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range strings.Fields(s) {
		if !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	sort.Strings(out)
	return out
}

func intersectSorted(a, b []string) []string {
	bSet := make(map[string]bool, len(b))
	for _, t := range b {
		bSet[t] = true
	}
	var out []string
	for _, t := range a {
		if bSet[t] {
			out = append(out, t)
		}
	}
	return out
}

func diffSorted(a, remove []string) []string {
	removeSet := make(map[string]bool, len(remove))
	for _, t := range remove {
		removeSet[t] = true
	}
	var out []string
	for _, t := range a {
		if !removeSet[t] {
			out = append(out, t)
		}
	}
	return out
}

// CompareCompanyNames implements the company field comparator (§4.B):
// token_sort_ratio over normalized company names.
func CompareCompanyNames(a, b string) float64 {
	return TokenSortRatio(normalize.CompanyName(a), normalize.CompanyName(b))
}

// CompareAddresses implements the address field comparator.
func CompareAddresses(a, b string) float64 {
	return TokenSortRatio(normalize.Address(a), normalize.Address(b))
}

// ComparePhones implements the phone field comparator: exact equality of
// normalized phone numbers, 0/100-valued.
func ComparePhones(a, b string) float64 {
	na, nb := normalize.Phone(a), normalize.Phone(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 100
	}
	return 0
}

// CompareEmails implements the email field comparator: exact equality of
// normalized emails, 0/100-valued.
func CompareEmails(a, b string) float64 {
	na, nb := normalize.Email(a), normalize.Email(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 100
	}
	return 0
}

// fieldDispatchEntry is one row of the field-to-comparator dispatch table
// (§9 design note): substring of the uppercased field name to comparator,
// scanned in declared order so precedence is explicit rather than implicit
// in map iteration.
type fieldDispatchEntry struct {
	substring  string
	comparator func(a, b string) float64
}

var fieldDispatchTable = []fieldDispatchEntry{
	{"COMPANY", CompareCompanyNames},
	{"NAME", CompareCompanyNames},
	{"ADDRESS", CompareAddresses},
	{"PHONE", ComparePhones},
	{"EMAIL", CompareEmails},
}

// ComparatorFor returns the field-typed comparator for a canonical field
// name, dispatching by substring match on the uppercased name in the
// precedence order COMPANY|NAME, ADDRESS, PHONE, EMAIL, default generic.
func ComparatorFor(field string) func(a, b string) float64 {
	upper := strings.ToUpper(field)
	for _, entry := range fieldDispatchTable {
		if strings.Contains(upper, entry.substring) {
			return entry.comparator
		}
	}
	return func(a, b string) float64 {
		return TokenSortRatio(a, b)
	}
}
