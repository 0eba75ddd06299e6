package domain

import (
	"math"
	"slices"
)

// AccuracyResult is the outcome of the accuracy analyzer.
type AccuracyResult struct {
	Score  float64
	Issues int
}

// AssessAccuracy counts values outside the IQR fence of each numeric column
// with more than OutlierMinValues present values.
func AssessAccuracy(t *Table) AccuracyResult {
	var res AccuracyResult
	for _, col := range t.columns {
		if !col.Kind.Numeric() {
			continue
		}
		res.Issues += outliers(col.Numbers())
	}
	res.Score = clampScore(100 - float64(res.Issues)/float64(t.cellCount())*OutlierWeight)
	return res
}

func outliers(values []float64) int {
	if len(values) <= OutlierMinValues {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	// Also false for NaN, which infinite quartiles can produce.
	if !(iqr > 0) {
		return 0
	}
	lower := q1 - OutlierFenceMultiplier*iqr
	upper := q3 + OutlierFenceMultiplier*iqr
	n := 0
	for _, v := range values {
		if v < lower || v > upper {
			n++
		}
	}
	return n
}

// quantile returns the q-th quantile of sorted using linear interpolation
// between the two nearest ranks.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	if lo == hi || frac == 0 {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
