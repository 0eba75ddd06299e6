package domain

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssessCompleteness(t *testing.T) {
	t.Parallel()
	tbl := mustTable(t,
		ints("a", 1, nil, 3, 4),
		texts("b", "x", nil, nil, "y"),
		floats("c", 1.0, 2.0, 3.0, 4.0),
	)
	res := AssessCompleteness(tbl)
	assert.Equal(t, 3, res.MissingValues)
	assert.InDelta(t, 25.0, res.MissingPercentage, 1e-9)
	assert.InDelta(t, 75.0, res.Score, 1e-9)
}

func TestAssessCompleteness_EmptyTable(t *testing.T) {
	t.Parallel()
	res := AssessCompleteness(mustTable(t))
	assert.Equal(t, 0, res.MissingValues)
	assert.InDelta(t, 100.0, res.Score, 1e-9)
}

func TestAssessConsistency_Email(t *testing.T) {
	t.Parallel()
	tbl := mustTable(t, texts("emails", "a@b.com", "not-an-email", "c@d.org"))
	res := AssessConsistency(tbl)
	assert.Equal(t, 1, res.Issues)
	assert.Equal(t, 0, res.TypeInconsistencies)
	assert.InDelta(t, 100-100.0/3, res.Score, 1e-9)
}

func TestAssessConsistency_EmailCheckNeedsLeadingAt(t *testing.T) {
	t.Parallel()
	tbl := mustTable(t, texts("emails", nil, "bogus", "a@b.com", "also bogus"))
	res := AssessConsistency(tbl)
	assert.Equal(t, 0, res.Issues, "first present value has no @")

	tbl = mustTable(t, texts("emails", nil, "x@y.io", "bad@", "ok@ok.co"))
	assert.Equal(t, 1, AssessConsistency(tbl).Issues, "leading missing cells are skipped")
}

func TestAssessConsistency_TypeSplit(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		values []any
		want   int
	}{
		{"forty percent numeric", []any{"1", "2", "a", "b", "c"}, 1},
		{"exactly eighty percent", []any{"1", "2", "3", "4", "a"}, 0},
		{"exactly twenty percent", []any{"1", "a", "b", "c", "d"}, 0},
		{"all text", []any{"a", "b"}, 0},
		{"all numeric", []any{"1.5", "-2", " 3 "}, 0},
		{"missing cells ignored", []any{"1", nil, "a", nil}, 1},
		{"all missing", []any{nil, nil}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := AssessConsistency(mustTable(t, texts("v", tt.values...)))
			assert.Equal(t, tt.want, res.TypeInconsistencies)
		})
	}
}

func TestAssessConsistency_TypeSplitSamplesFirstHundred(t *testing.T) {
	t.Parallel()
	values := make([]any, 0, 200)
	for i := 0; i < 100; i++ {
		values = append(values, "word")
	}
	for i := 0; i < 100; i++ {
		values = append(values, "7")
	}
	res := AssessConsistency(mustTable(t, texts("v", values...)))
	assert.Equal(t, 0, res.TypeInconsistencies)
	assert.InDelta(t, 100.0, res.Score, 1e-9)
}

func TestAssessConsistency_NumericColumnsIgnored(t *testing.T) {
	t.Parallel()
	res := AssessConsistency(mustTable(t, ints("n", 1, 2, 3)))
	assert.Equal(t, ConsistencyResult{Score: 100}, res)
}

func TestAssessConsistency_PenaltyClamped(t *testing.T) {
	t.Parallel()
	var cols []Column
	for i := 0; i < 11; i++ {
		cols = append(cols, texts("c", "1", "x"))
	}
	res := AssessConsistency(mustTable(t, cols...))
	assert.Equal(t, 11, res.TypeInconsistencies)
	assert.Equal(t, 0.0, res.Score)
}

func TestAssessUniqueness_IdenticalRows(t *testing.T) {
	t.Parallel()
	tbl := mustTable(t, ints("a", 1, 1, 1), texts("b", "x", "x", "x"))
	res := AssessUniqueness(tbl)
	assert.Equal(t, 2, res.DuplicateRows)
	assert.InDelta(t, 200.0/3, res.DuplicatePercentage, 1e-9)
	assert.Equal(t, 2, res.ColumnDuplicates)
	assert.InDelta(t, 100-200.0/3-2.0/6*50, res.Score, 1e-9)
}

func TestAssessUniqueness_MissingCellsCompareEqual(t *testing.T) {
	t.Parallel()
	tbl := mustTable(t, ints("a", nil, nil, 1), texts("b", nil, nil, "z"))
	res := AssessUniqueness(tbl)
	assert.Equal(t, 1, res.DuplicateRows)
	assert.Equal(t, 1, res.ColumnDuplicates)
}

func TestAssessUniqueness_OnlyTextColumnsCountValueDuplicates(t *testing.T) {
	t.Parallel()
	tbl := mustTable(t, ints("id", 7, 7, 7), texts("name", "a", "b", "c"))
	res := AssessUniqueness(tbl)
	assert.Equal(t, 0, res.DuplicateRows)
	assert.Equal(t, 0, res.ColumnDuplicates)
	assert.InDelta(t, 100.0, res.Score, 1e-9)
}

func TestAssessUniqueness_SeparatorsDoNotCollide(t *testing.T) {
	t.Parallel()
	tbl := mustTable(t,
		texts("a", "x\x1fs1:y", "x"),
		texts("b", "z", "y\x1fz"),
	)
	assert.Equal(t, 0, AssessUniqueness(tbl).DuplicateRows)
}

func TestAssessUniqueness_SignedZeroIsOneValue(t *testing.T) {
	t.Parallel()
	tbl := mustTable(t,
		floats("delta", math.Copysign(0, -1), 0.0, 1.5),
		texts("label", "flat", "flat", "up"),
	)
	res := AssessUniqueness(tbl)
	assert.Equal(t, 1, res.DuplicateRows)
}

func TestAssessUniqueness_NoRows(t *testing.T) {
	t.Parallel()
	res := AssessUniqueness(mustTable(t, texts("a")))
	assert.Equal(t, 0.0, res.DuplicatePercentage)
	assert.InDelta(t, 100.0, res.Score, 1e-9)
}

func TestAssessValidity_NegativeAge(t *testing.T) {
	t.Parallel()
	tbl := mustTable(t, ints("age", -5, 30), texts("name", "Bob", "Alice"))
	res := AssessValidity(tbl)
	assert.Equal(t, 1, res.Issues)
	assert.InDelta(t, 75.0, res.Score, 1e-9)
}

func TestAssessValidity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		col  Column
		want int
	}{
		{"infinite price", floats("price", math.Inf(1), 1.0), 1},
		{"negative price is fine", floats("price", -3.0, 1.0), 0},
		{"negative inf count", floats("Item_Count", math.Inf(-1), 2.0), 2},
		{"quantity keyword case-insensitive", ints("QUANTITY", -1, -2, 3), 2},
		{"age substring", ints("page", -1), 1},
		{"missing numbers ignored", ints("age", nil, nil), 0},
		{"long text", texts("bio", strings.Repeat("x", 1001), "short", strings.Repeat("y", 1000)), 1},
		{"long text counted in runes", texts("bio", strings.Repeat("é", 1000)), 0},
		{"negative in text column ignored", texts("age", "-5"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, AssessValidity(mustTable(t, tt.col)).Issues)
		})
	}
}

func TestAssessAccuracy(t *testing.T) {
	t.Parallel()
	withOutlier := append(seq(1, 10), 1000)

	tests := []struct {
		name string
		col  Column
		want int
	}{
		{"one outlier", ints("v", withOutlier...), 1},
		{"ten values are too few", ints("v", append(seq(1, 9), 1000)...), 0},
		{"zero IQR skipped", ints("v", 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 900), 0},
		{"text ignored", texts("v", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "1000"), 0},
		{"low outlier", floats("v", -500.0, 1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0, 9.0, 10.0), 1},
		{"infinite quartile", floats("v", 1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, math.Inf(1), math.Inf(1), math.Inf(1), math.Inf(1)), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, AssessAccuracy(mustTable(t, tt.col)).Issues)
		})
	}

	res := AssessAccuracy(mustTable(t, ints("v", withOutlier...)))
	assert.InDelta(t, 100-1.0/11*50, res.Score, 1e-9)
}

func TestQuantile(t *testing.T) {
	t.Parallel()
	sorted := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.75, quantile(sorted, 0.25), 1e-12)
	assert.InDelta(t, 3.25, quantile(sorted, 0.75), 1e-12)
	assert.InDelta(t, 1.0, quantile(sorted, 0), 1e-12)
	assert.InDelta(t, 4.0, quantile(sorted, 1), 1e-12)
	assert.InDelta(t, 7.0, quantile([]float64{7}, 0.5), 1e-12)
	assert.True(t, math.IsNaN(quantile(nil, 0.5)))
}

func TestAnalyzers_ScoresInRange(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("z", 2000)
	tbl := mustTable(t,
		ints("age", -1, -2, -3, -4),
		floats("count", math.Inf(1), math.Inf(-1), nil, -1.0),
		texts("mixed", "1", "x", long, long),
		texts("mail", "a@b.c", "nope", "nope", "nope"),
	)
	for _, s := range []float64{
		AssessCompleteness(tbl).Score,
		AssessConsistency(tbl).Score,
		AssessUniqueness(tbl).Score,
		AssessValidity(tbl).Score,
		AssessAccuracy(tbl).Score,
	} {
		require.GreaterOrEqual(t, s, 0.0)
		require.LessOrEqual(t, s, 100.0)
	}
}
