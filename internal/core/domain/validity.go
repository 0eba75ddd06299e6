package domain

import (
	"math"
	"unicode/utf8"
)

// ValidityResult is the outcome of the validity analyzer.
type ValidityResult struct {
	Score  float64
	Issues int
}

// AssessValidity counts infinite numbers, negative numbers in columns whose
// name implies a non-negative quantity, and over-long text values.
func AssessValidity(t *Table) ValidityResult {
	var res ValidityResult
	for _, col := range t.columns {
		switch {
		case col.Kind.Numeric():
			res.Issues += numericValidityIssues(col)
		case col.Kind == KindText:
			res.Issues += overlongValues(col.Strings())
		}
	}
	res.Score = clampScore(100 - float64(res.Issues)/float64(t.cellCount())*100)
	return res
}

func numericValidityIssues(col Column) int {
	nums := col.Numbers()
	issues := 0
	for _, f := range nums {
		if math.IsInf(f, 0) {
			issues++
		}
	}
	if nameContainsAny(col.Name, nonNegativeKeywords) {
		for _, f := range nums {
			if f < 0 {
				issues++
			}
		}
	}
	return issues
}

// overlongValues counts values longer than MaxTextLength characters.
func overlongValues(values []string) int {
	n := 0
	for _, s := range values {
		if utf8.RuneCountInString(s) > MaxTextLength {
			n++
		}
	}
	return n
}
