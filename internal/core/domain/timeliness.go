package domain

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/cases"
)

// YearStrategy names the rule that classified a column as year-bearing.
type YearStrategy int

const (
	NotYearBearing YearStrategy = iota
	NumericYears
	ParsedDates
	EmbeddedYears
	NameHintedYears
)

func (s YearStrategy) String() string {
	switch s {
	case NumericYears:
		return "numeric_years"
	case ParsedDates:
		return "parsed_dates"
	case EmbeddedYears:
		return "embedded_years"
	case NameHintedYears:
		return "name_hinted_years"
	default:
		return "none"
	}
}

// TimelinessResult is the outcome of the timeliness analyzer. Score is nil
// when no year-bearing column was found or the table has no rows.
type TimelinessResult struct {
	Score            *float64
	YearColumnsFound int
	OldYearsCount    int
}

// Applicable reports whether the dimension produced a score.
func (r TimelinessResult) Applicable() bool { return r.Score != nil }

// AssessTimeliness detects year-bearing columns and penalizes values older
// than StalenessWindowYears before currentYear.
func AssessTimeliness(t *Table, currentYear int) TimelinessResult {
	var res TimelinessResult
	cutoff := currentYear - StalenessWindowYears
	for _, col := range t.columns {
		strategy, stale := classifyYearColumn(col, cutoff)
		if strategy == NotYearBearing {
			continue
		}
		res.YearColumnsFound++
		res.OldYearsCount += stale
	}
	if res.YearColumnsFound == 0 || t.rows == 0 {
		return res
	}
	pct := float64(res.OldYearsCount) / float64(t.rows) * 100
	score := clampScore(100 - pct*StalenessPenalty)
	res.Score = &score
	return res
}

// classifyYearColumn tries each strategy in order and returns the first that
// matches along with the number of values older than cutoff.
func classifyYearColumn(col Column, cutoff int) (YearStrategy, int) {
	switch col.Kind {
	case KindInteger, KindFloat:
		nums := col.Numbers()
		if len(nums) == 0 {
			return NotYearBearing, 0
		}
		if yearLikeShare(nums) > NumericYearShare {
			return NumericYears, countBelow(nums, cutoff)
		}
		if nameContainsAny(col.Name, yearKeywords) && yearLikeShare(nums) > HintedYearShare {
			return NameHintedYears, countBelow(nums, cutoff)
		}
	case KindText:
		values := col.Strings()
		if len(values) == 0 {
			return NotYearBearing, 0
		}
		if years, ok := parsedDateYears(values); ok {
			return ParsedDates, countYearsBelow(years, cutoff)
		}
		if years, ok := embeddedYears(values); ok {
			return EmbeddedYears, countYearsBelow(years, cutoff)
		}
	}
	return NotYearBearing, 0
}

func yearLikeShare(nums []float64) float64 {
	n := 0
	for _, f := range nums {
		if f >= YearRangeMin && f <= YearRangeMax {
			n++
		}
	}
	return float64(n) / float64(len(nums))
}

func countBelow(nums []float64, cutoff int) int {
	n := 0
	for _, f := range nums {
		if f < float64(cutoff) {
			n++
		}
	}
	return n
}

func countYearsBelow(years []int, cutoff int) int {
	n := 0
	for _, y := range years {
		if y < cutoff {
			n++
		}
	}
	return n
}

// parsedDateYears parses every value as a date. It succeeds when more than
// ParsedDateShare of them parse, returning the years of those that did.
func parsedDateYears(values []string) ([]int, bool) {
	years := make([]int, 0, len(values))
	for _, s := range values {
		if y, ok := parseDateYear(s); ok {
			years = append(years, y)
		}
	}
	return years, float64(len(years)) > float64(len(values))*ParsedDateShare
}

func parseDateYear(s string) (year int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" || isEpochLike(s) {
		return 0, false
	}
	// dateparse can panic on some malformed inputs.
	defer func() {
		if recover() != nil {
			year, ok = 0, false
		}
	}()
	tm, err := dateparse.ParseIn(s, time.UTC)
	// Decimal text such as "3.5" comes back as month/day of year 0.
	if err != nil || tm.Year() == 0 {
		return 0, false
	}
	return tm.Year(), true
}

// isEpochLike reports whether s is a bare run of more than eight ASCII
// digits, which dateparse would read as a Unix timestamp. Eight digits
// still parse as yyyymmdd.
func isEpochLike(s string) bool {
	if len(s) <= 8 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// embeddedYears samples the first YearSampleSize values and extracts the
// first standalone 19xx/20xx token from each.
func embeddedYears(values []string) ([]int, bool) {
	sample := values[:min(len(values), YearSampleSize)]
	years := make([]int, 0, len(sample))
	for _, s := range sample {
		if y, ok := firstEmbeddedYear(s); ok && y >= YearRangeMin && y <= YearRangeMax {
			years = append(years, y)
		}
	}
	return years, float64(len(years)) > float64(len(sample))*EmbeddedYearShare
}

// firstEmbeddedYear returns the first word made of exactly four decimal
// digits starting with 19 or 20. Words are runs of letters, digits and
// underscores in any script, so "2020" matches in "spring 2020" but not in
// "v2020" or "20201". Arabic-Indic digits are accepted.
func firstEmbeddedYear(s string) (int, bool) {
	for _, word := range wordPattern.FindAllString(s, -1) {
		runes := []rune(word)
		if len(runes) != 4 {
			continue
		}
		year, ok := 0, true
		for _, r := range runes {
			d, isDigit := digitValue(r)
			if !isDigit {
				ok = false
				break
			}
			year = year*10 + d
		}
		if !ok {
			continue
		}
		if century := year / 100; century == 19 || century == 20 {
			return year, true
		}
	}
	return 0, false
}

func digitValue(r rune) (int, bool) {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0'), true
	case r >= '٠' && r <= '٩':
		return int(r - '٠'), true
	case r >= '۰' && r <= '۹':
		return int(r - '۰'), true
	}
	return 0, false
}

// nameContainsAny reports whether the case-folded column name contains any
// of the keywords.
func nameContainsAny(name string, keywords []string) bool {
	// A Caser keeps state and must not be shared between goroutines.
	fold := cases.Fold()
	folded := fold.String(name)
	for _, kw := range keywords {
		if strings.Contains(folded, fold.String(kw)) {
			return true
		}
	}
	return false
}
