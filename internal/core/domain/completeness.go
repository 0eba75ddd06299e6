package domain

// CompletenessResult is the outcome of the completeness analyzer.
type CompletenessResult struct {
	Score             float64
	MissingValues     int
	MissingPercentage float64
}

// AssessCompleteness scores the share of present cells across the table.
func AssessCompleteness(t *Table) CompletenessResult {
	missing := 0
	for _, col := range t.columns {
		missing += col.Missing()
	}
	pct := float64(missing) / float64(t.cellCount()) * 100
	return CompletenessResult{
		Score:             clampScore(100 - pct),
		MissingValues:     missing,
		MissingPercentage: pct,
	}
}

// clampScore bounds a score to [0, 100].
func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
