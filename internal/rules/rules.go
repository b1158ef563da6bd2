// Package rules implements the declarative rule engine of §4.E: ordered
// rule evaluation over record pairs, condition evaluation, and
// find-best-match candidate selection.
package rules

import (
	"sort"
	"strings"

	"github.com/ignite/dedupe/internal/record"
	"github.com/ignite/dedupe/internal/similarity"
)

// Condition is a per-field match requirement (§3).
type Condition struct {
	Field        string  `json:"field"`
	Percentage   float64 `json:"percentage"`
	Include      bool    `json:"include"`
	Blank        bool    `json:"blank"`
	BlankAllowed bool    `json:"blank_allowed"`
}

// Rule is a named, priority-ordered conjunction of conditions (§3).
// Priority is a pointer so an omitted priority in rules.json can be told
// apart from an explicit priority of 0: an omitted priority defaults to
// 999, an explicit 0 stays 0.
type Rule struct {
	ID          string      `json:"id"`
	Enabled     bool        `json:"enabled"`
	Priority    *int        `json:"priority,omitempty"`
	MatchReason string      `json:"match_reason"`
	Conditions  []Condition `json:"conditions"`
}

// priorityOrDefault returns the rule's priority, or defaultPriority if unset.
func (r Rule) priorityOrDefault() int {
	if r.Priority == nil {
		return defaultPriority
	}
	return *r.Priority
}

// defaultPriority is assigned to rules with no explicit priority, per the
// Python original's `rule.get('priority', 999)`.
const defaultPriority = 999

// EvaluateCondition implements the three-branch condition semantics (§4.E):
//  1. blank=true: holds iff both values are empty.
//  2. else if either value is empty: holds iff blank_allowed.
//  3. else: holds iff include ? score>=threshold : score<threshold.
//
// It also returns the similarity score it computed (0 when branch 1 or 2
// was taken without a comparison), so callers can report per-field scores
// for observability even when the condition does not hold.
func EvaluateCondition(v1, v2 string, c Condition) (holds bool, score float64, scored bool) {
	if c.Blank {
		return v1 == "" && v2 == "", 0, false
	}
	if v1 == "" || v2 == "" {
		return c.BlankAllowed, 0, false
	}
	score = similarity.ComparatorFor(c.Field)(v1, v2)
	if c.Include {
		return score >= c.Percentage, score, true
	}
	return score < c.Percentage, score, true
}

// scoreKey derives the observability score-column name for a field, e.g.
// "COMPANY_NAME" -> "company_name_score".
func scoreKey(field string) string {
	return strings.ToLower(field) + "_score"
}

// ScoreColumnName exposes scoreKey for callers outside the package that
// need to predict a rule's score-column names without evaluating it, e.g.
// the pipeline's deterministic output-column ordering (§4.G step 11).
func ScoreColumnName(field string) string {
	return scoreKey(field)
}

// EvaluateRule evaluates every condition of a rule against a record pair,
// in declared order, stopping at the first failing condition. It returns
// whether the rule matched and a map of per-field scores accumulated for
// every condition evaluated so far (including the one that failed), for
// every condition whose both values were non-empty — matching the
// original's "scores populated up to the failure are returned" behavior.
func EvaluateRule(r, c record.Record, rule Rule) (bool, map[string]float64) {
	scores := make(map[string]float64)
	if !rule.Enabled || len(rule.Conditions) == 0 {
		return false, scores
	}
	for _, cond := range rule.Conditions {
		v1 := r.Get(cond.Field)
		v2 := c.Get(cond.Field)
		holds, score, scored := EvaluateCondition(v1, v2, cond)
		if scored {
			scores[scoreKey(cond.Field)] = score
		}
		if !holds {
			return false, scores
		}
	}
	return true, scores
}

// sortedRules returns rules sorted by Priority ascending, then by
// declaration order (index in the input slice) as a tiebreak — rule maps
// are unordered on disk so this must be made explicit (§9).
func sortedRules(rs []Rule) []Rule {
	sorted := make([]Rule, len(rs))
	copy(sorted, rs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].priorityOrDefault() < sorted[j].priorityOrDefault()
	})
	return sorted
}

// Match is the result of a successful find-best-match.
type Match struct {
	Candidate   record.Record
	MatchReason string
	Scores      map[string]float64
}

// FindBestMatch iterates rules by priority ascending; for each enabled
// rule, it iterates candidates in the given (insertion) order and returns
// the first (rule, candidate) pair that matches. No match returns nil.
func FindBestMatch(r record.Record, candidates []record.Record, rs []Rule) *Match {
	for _, rule := range sortedRules(rs) {
		if !rule.Enabled {
			continue
		}
		for _, cand := range candidates {
			if matched, scores := EvaluateRule(r, cand, rule); matched {
				return &Match{Candidate: cand, MatchReason: rule.MatchReason, Scores: scores}
			}
		}
	}
	return nil
}
