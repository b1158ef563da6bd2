package rules

import "github.com/ignite/dedupe/internal/record"

// confidenceWeight pairs a field with the weight its score contributes to a
// confidence rollup.
type confidenceWeight struct {
	field  string
	weight float64
}

// overallConfidenceWeights mirrors quality_scorer.py's calculate_overall_confidence.
var overallConfidenceWeights = []confidenceWeight{
	{record.FieldCompanyName, 0.35},
	{record.FieldAddressLine1, 0.25},
	{record.FieldEmailAddress, 0.20},
	{record.FieldPhoneNumber, 0.20},
}

// addressConfidenceWeights mirrors quality_scorer.py's calculate_address_confidence.
var addressConfidenceWeights = []confidenceWeight{
	{record.FieldAddressLine1, 0.4},
	{record.FieldAddressLine2, 0.1},
	{record.FieldCity, 0.2},
	{record.FieldState, 0.15},
	{record.FieldZipCode, 0.15},
}

// weightedConfidence implements the shared shape of both Python rollups:
// sum(score*weight) over fields with a present, positive score, normalized
// by the weight of fields that actually contributed, then rescaled by the
// ratio of contributing weight to total weight. The result is algebraically
// total/allWeight, so fields without a score lower the confidence. Matching
// the original's arithmetic exactly (rather than that simplified form)
// keeps it identical if the weight table is ever edited to no longer sum
// to 1.
func weightedConfidence(scores map[string]float64, weights []confidenceWeight) float64 {
	var total, totalWeight, allWeight float64
	for _, w := range weights {
		allWeight += w.weight
		score, ok := scores[ScoreColumnName(w.field)]
		if !ok || score <= 0 {
			continue
		}
		total += score * w.weight
		totalWeight += w.weight
	}
	if totalWeight == 0 || allWeight == 0 {
		return 0
	}
	return round2(total / totalWeight * (totalWeight / allWeight))
}

// OverallConfidence computes the weighted-rollup match confidence (§9
// supplemented feature, grounded on quality_scorer.py's
// calculate_overall_confidence): company_name 0.35, address1 0.25,
// email 0.20, phone 0.20. Optional side output, never part of the default
// output column set.
func OverallConfidence(scores map[string]float64) float64 {
	return weightedConfidence(scores, overallConfidenceWeights)
}

// AddressConfidence computes the address-only weighted rollup (grounded on
// quality_scorer.py's calculate_address_confidence): address1 0.4,
// address2 0.1, city 0.2, state 0.15, zip_code 0.15.
func AddressConfidence(scores map[string]float64) float64 {
	return weightedConfidence(scores, addressConfidenceWeights)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
