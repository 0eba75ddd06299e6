package domain

import (
	"strconv"
	"strings"
)

// ConsistencyResult is the outcome of the consistency analyzer.
type ConsistencyResult struct {
	Score float64
	// Issues counts values failing the email format check.
	Issues int
	// TypeInconsistencies counts text columns with a mixed numeric/text split.
	TypeInconsistencies int
}

// AssessConsistency flags text columns that mix numeric-looking and
// non-numeric values, and email-like columns holding malformed addresses.
func AssessConsistency(t *Table) ConsistencyResult {
	var res ConsistencyResult
	for _, col := range t.columns {
		if col.Kind != KindText {
			continue
		}
		values := col.Strings()
		if len(values) == 0 {
			continue
		}
		if isMixedType(values) {
			res.TypeInconsistencies++
		}
		res.Issues += invalidEmails(values)
	}

	penalty := float64(res.Issues)/float64(t.cellCount())*100 +
		float64(res.TypeInconsistencies)*TypeInconsistencyPenalty
	res.Score = clampScore(100 - penalty)
	return res
}

// isMixedType samples the leading values and reports whether the numeric
// share falls strictly between the lower and upper bounds.
func isMixedType(values []string) bool {
	sample := values[:min(len(values), TypeSampleSize)]
	numeric := 0
	for _, v := range sample {
		if looksNumeric(v) {
			numeric++
		}
	}
	n := float64(len(sample))
	return float64(numeric) > n*MixedTypeLowerShare && float64(numeric) < n*MixedTypeUpperShare
}

func looksNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

// invalidEmails checks every value against the email pattern, but only when
// the column's first value contains an "@".
func invalidEmails(values []string) int {
	if !strings.Contains(values[0], "@") {
		return 0
	}
	bad := 0
	for _, v := range values {
		if !emailPattern.MatchString(v) {
			bad++
		}
	}
	return bad
}
