package domain

import (
	"strconv"
	"strings"
)

// UniquenessResult is the outcome of the uniqueness analyzer.
type UniquenessResult struct {
	Score               float64
	DuplicateRows       int
	DuplicatePercentage float64
	// ColumnDuplicates sums repeated values inside text columns.
	ColumnDuplicates int
}

// AssessUniqueness counts repeated rows and repeated text values. The first
// occurrence of a row or value is never counted; missing cells compare equal
// to each other.
func AssessUniqueness(t *Table) UniquenessResult {
	var res UniquenessResult

	seenRows := make(map[string]struct{}, t.rows)
	var key strings.Builder
	for r := 0; r < t.rows; r++ {
		key.Reset()
		for _, col := range t.columns {
			writeCellKey(&key, col.Values[r])
		}
		k := key.String()
		if _, dup := seenRows[k]; dup {
			res.DuplicateRows++
			continue
		}
		seenRows[k] = struct{}{}
	}

	for _, col := range t.columns {
		if col.Kind != KindText {
			continue
		}
		res.ColumnDuplicates += duplicateValues(col)
	}

	if t.rows > 0 {
		res.DuplicatePercentage = float64(res.DuplicateRows) / float64(t.rows) * 100
	}
	penalty := res.DuplicatePercentage +
		float64(res.ColumnDuplicates)/float64(t.cellCount())*ColumnDuplicateWeight
	res.Score = clampScore(100 - penalty)
	return res
}

func duplicateValues(col Column) int {
	seen := make(map[string]struct{}, len(col.Values))
	nullSeen := false
	dups := 0
	for _, v := range col.Values {
		if v.IsNull() {
			if nullSeen {
				dups++
			}
			nullSeen = true
			continue
		}
		if _, ok := seen[v.s]; ok {
			dups++
			continue
		}
		seen[v.s] = struct{}{}
	}
	return dups
}

// writeCellKey appends an unambiguous encoding of v: a kind tag, and for
// text a length prefix so separators inside values cannot collide.
func writeCellKey(b *strings.Builder, v Value) {
	switch v.kind {
	case KindInteger:
		b.WriteByte('i')
		b.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		f := v.f
		if f == 0 {
			// Folds -0 into 0 so both render the same key.
			f = 0
		}
		b.WriteByte('f')
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case KindText:
		b.WriteByte('s')
		b.WriteString(strconv.Itoa(len(v.s)))
		b.WriteByte(':')
		b.WriteString(v.s)
	default:
		b.WriteByte('n')
	}
	b.WriteByte(0x1f)
}
