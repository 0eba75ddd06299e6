package domain

import "math"

// Dimension names one axis of data quality.
type Dimension string

const (
	Completeness Dimension = "completeness"
	Consistency  Dimension = "consistency"
	Uniqueness   Dimension = "uniqueness"
	Validity     Dimension = "validity"
	Accuracy     Dimension = "accuracy"
	Timeliness   Dimension = "timeliness"
)

// Dimensions lists every dimension in report order.
var Dimensions = []Dimension{Completeness, Consistency, Uniqueness, Validity, Accuracy, Timeliness}

// Results collects analyzer outputs. A nil field means the analyzer did not
// produce a result and its dimension is inapplicable.
type Results struct {
	Completeness *CompletenessResult
	Consistency  *ConsistencyResult
	Uniqueness   *UniquenessResult
	Validity     *ValidityResult
	Accuracy     *AccuracyResult
	Timeliness   *TimelinessResult
}

// ColumnDetail describes one input column.
type ColumnDetail struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Missing int    `json:"missing"`
}

// Report is the quality assessment of one table. Nil scores are
// inapplicable dimensions.
type Report struct {
	TotalRows    int      `json:"total_rows"`
	TotalColumns int      `json:"total_columns"`
	OverallScore *float64 `json:"overall_score"`

	CompletenessScore *float64 `json:"completeness_score"`
	MissingValues     int      `json:"missing_values"`
	MissingPercentage float64  `json:"missing_percentage"`

	ConsistencyScore    *float64 `json:"consistency_score"`
	ConsistencyIssues   int      `json:"consistency_issues"`
	TypeInconsistencies int      `json:"type_inconsistencies"`

	UniquenessScore     *float64 `json:"uniqueness_score"`
	DuplicateRows       int      `json:"duplicate_rows"`
	DuplicatePercentage float64  `json:"duplicate_percentage"`

	ValidityScore  *float64 `json:"validity_score"`
	ValidityIssues int      `json:"validity_issues"`

	AccuracyScore  *float64 `json:"accuracy_score"`
	AccuracyIssues int      `json:"accuracy_issues"`

	TimelinessScore      *float64 `json:"timeliness_score"`
	YearColumnsFound     int      `json:"year_columns_found"`
	OldYearsCount        int      `json:"old_years_count"`
	TimelinessApplicable bool     `json:"timeliness_applicable"`

	ColumnDetails []ColumnDetail `json:"column_details"`
}

// Score returns the score of dimension d, or nil if it is inapplicable.
func (r Report) Score(d Dimension) *float64 {
	switch d {
	case Completeness:
		return r.CompletenessScore
	case Consistency:
		return r.ConsistencyScore
	case Uniqueness:
		return r.UniquenessScore
	case Validity:
		return r.ValidityScore
	case Accuracy:
		return r.AccuracyScore
	case Timeliness:
		return r.TimelinessScore
	}
	return nil
}

// Assess runs every analyzer sequentially and builds the report.
func Assess(t *Table, currentYear int) Report {
	completeness := AssessCompleteness(t)
	consistency := AssessConsistency(t)
	uniqueness := AssessUniqueness(t)
	validity := AssessValidity(t)
	accuracy := AssessAccuracy(t)
	timeliness := AssessTimeliness(t, currentYear)
	return BuildReport(t, Results{
		Completeness: &completeness,
		Consistency:  &consistency,
		Uniqueness:   &uniqueness,
		Validity:     &validity,
		Accuracy:     &accuracy,
		Timeliness:   &timeliness,
	})
}

// BuildReport aggregates analyzer results into a Report. The overall score
// is the mean of the applicable dimension scores, or nil if none applies.
func BuildReport(t *Table, res Results) Report {
	r := Report{
		TotalRows:     t.rows,
		TotalColumns:  len(t.columns),
		ColumnDetails: make([]ColumnDetail, len(t.columns)),
	}
	for i, col := range t.columns {
		r.ColumnDetails[i] = ColumnDetail{Name: col.Name, Type: col.Kind.String(), Missing: col.Missing()}
	}

	if c := res.Completeness; c != nil {
		r.CompletenessScore = scorePtr(c.Score)
		r.MissingValues = c.MissingValues
		r.MissingPercentage = c.MissingPercentage
	}
	if c := res.Consistency; c != nil {
		r.ConsistencyScore = scorePtr(c.Score)
		r.ConsistencyIssues = c.Issues
		r.TypeInconsistencies = c.TypeInconsistencies
	}
	if u := res.Uniqueness; u != nil {
		r.UniquenessScore = scorePtr(u.Score)
		r.DuplicateRows = u.DuplicateRows
		r.DuplicatePercentage = u.DuplicatePercentage
	}
	if v := res.Validity; v != nil {
		r.ValidityScore = scorePtr(v.Score)
		r.ValidityIssues = v.Issues
	}
	if a := res.Accuracy; a != nil {
		r.AccuracyScore = scorePtr(a.Score)
		r.AccuracyIssues = a.Issues
	}
	if tl := res.Timeliness; tl != nil {
		if tl.Score != nil {
			r.TimelinessScore = scorePtr(*tl.Score)
		}
		r.YearColumnsFound = tl.YearColumnsFound
		r.OldYearsCount = tl.OldYearsCount
		r.TimelinessApplicable = tl.Applicable()
	}

	var sum float64
	n := 0
	for _, d := range Dimensions {
		if s := r.Score(d); s != nil {
			sum += *s
			n++
		}
	}
	if n > 0 {
		r.OverallScore = scorePtr(sum / float64(n))
	}
	return r
}

// Sanitized returns a copy of r in which every non-finite float is replaced
// by its absent form: nil for scores, zero for percentages.
func (r Report) Sanitized() Report {
	out := r
	out.OverallScore = finiteOrNil(r.OverallScore)
	out.CompletenessScore = finiteOrNil(r.CompletenessScore)
	out.ConsistencyScore = finiteOrNil(r.ConsistencyScore)
	out.UniquenessScore = finiteOrNil(r.UniquenessScore)
	out.ValidityScore = finiteOrNil(r.ValidityScore)
	out.AccuracyScore = finiteOrNil(r.AccuracyScore)
	out.TimelinessScore = finiteOrNil(r.TimelinessScore)
	out.MissingPercentage = finiteOrZero(r.MissingPercentage)
	out.DuplicatePercentage = finiteOrZero(r.DuplicatePercentage)
	out.ColumnDetails = append([]ColumnDetail(nil), r.ColumnDetails...)
	return out
}

func scorePtr(f float64) *float64 { return &f }

func finiteOrNil(p *float64) *float64 {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return nil
	}
	return scorePtr(*p)
}

func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
