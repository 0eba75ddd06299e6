package domain

import "regexp"

// Heuristic policy. Every analyzer reads its knobs from here so the scoring
// rules can be audited in one place.
const (
	// Consistency.
	TypeSampleSize           = 100
	MixedTypeLowerShare      = 0.2
	MixedTypeUpperShare      = 0.8
	TypeInconsistencyPenalty = 10.0

	// Uniqueness.
	ColumnDuplicateWeight = 50.0

	// Validity.
	MaxTextLength = 1000

	// Accuracy.
	OutlierMinValues       = 10
	OutlierFenceMultiplier = 3.0
	OutlierWeight          = 50.0

	// Timeliness.
	YearRangeMin         = 1900
	YearRangeMax         = 2100
	NumericYearShare     = 0.7
	ParsedDateShare      = 0.5
	EmbeddedYearShare    = 0.5
	HintedYearShare      = 0.5
	YearSampleSize       = 100
	StalenessWindowYears = 10
	StalenessPenalty     = 1.5
)

var (
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

	// Words for embedded-year extraction, in any script.
	wordPattern = regexp.MustCompile(`[\pL\pN_]+`)

	// Column-name keywords for which negative numbers are invalid.
	nonNegativeKeywords = []string{"age", "count", "quantity"}

	// Column-name keywords hinting at year or date content
	// ("year", "date" and their Arabic forms).
	yearKeywords = []string{"year", "عام", "سنة", "سنه", "تاريخ", "date"}
)
