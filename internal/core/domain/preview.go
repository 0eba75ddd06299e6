package domain

import "math"

// Preview is the leading slice of a table as shown to users.
type Preview struct {
	Columns []string
	Rows    []map[string]any
}

// NewPreview renders the first n rows of t. Masks are applied before
// missing cells are blanked, so a masked missing cell is still "".
// Infinities have no JSON form and are rendered as nil. Columns sharing a
// name collapse into one key, the rightmost winning.
func NewPreview(t *Table, n int, masks map[string]MaskType) Preview {
	n = max(0, min(n, t.rows))
	rows := make([]map[string]any, n)
	for r := range rows {
		row := make(map[string]any, len(t.columns))
		for _, col := range t.columns {
			row[col.Name] = previewCell(col.Values[r])
		}
		rows[r] = row
	}

	MaskRows(rows, masks)

	for _, row := range rows {
		for k, v := range row {
			switch f, isFloat := v.(float64); {
			case v == nil:
				row[k] = ""
			case isFloat && math.IsInf(f, 0):
				row[k] = nil
			}
		}
	}
	return Preview{Columns: t.ColumnNames(), Rows: rows}
}

func previewCell(v Value) any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindText:
		return v.s
	}
	return nil
}
