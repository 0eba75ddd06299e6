package domain

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the inferred scalar type of a column. It is decided once by the
// loader that materializes the table; analyzers switch on it instead of
// probing individual values.
type Kind int

const (
	KindInteger Kind = iota + 1
	KindFloat
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Numeric reports whether the kind holds integers or floats.
func (k Kind) Numeric() bool {
	return k == KindInteger || k == KindFloat
}

// Value is a single cell. The zero Value is a missing cell.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// Null returns a missing cell.
func Null() Value { return Value{} }

// Int returns an integer cell.
func Int(v int64) Value { return Value{kind: KindInteger, i: v, f: float64(v)} }

// Float returns a floating-point cell. NaN is treated as missing.
func Float(v float64) Value {
	if math.IsNaN(v) {
		return Null()
	}
	return Value{kind: KindFloat, f: v}
}

// Text returns a text cell.
func Text(s string) Value { return Value{kind: KindText, s: s} }

func (v Value) IsNull() bool { return v.kind == 0 }

// Kind returns the kind of a present value, or 0 for a missing one.
func (v Value) Kind() Kind { return v.kind }

// Int64 returns the integer payload. Only meaningful for KindInteger.
func (v Value) Int64() int64 { return v.i }

// Float64 returns the numeric payload of an integer or float cell.
func (v Value) Float64() float64 { return v.f }

// String renders the cell the way the source data tooling prints scalars:
// floats always carry a fractional part or exponent, infinities are "inf".
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindText:
		return v.s
	default:
		return ""
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if f == math.Trunc(f) {
		s += ".0"
	}
	return s
}

// Column is a named, typed sequence of cells. Names need not be unique.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// Missing returns the number of missing cells.
func (c Column) Missing() int {
	n := 0
	for _, v := range c.Values {
		if v.IsNull() {
			n++
		}
	}
	return n
}

// Present returns the non-missing cells in row order.
func (c Column) Present() []Value {
	out := make([]Value, 0, len(c.Values))
	for _, v := range c.Values {
		if !v.IsNull() {
			out = append(out, v)
		}
	}
	return out
}

// Numbers returns the non-missing numeric payloads in row order.
func (c Column) Numbers() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if !v.IsNull() {
			out = append(out, v.f)
		}
	}
	return out
}

// Strings returns the stringified non-missing cells in row order.
func (c Column) Strings() []string {
	out := make([]string, 0, len(c.Values))
	for _, v := range c.Values {
		if !v.IsNull() {
			out = append(out, v.String())
		}
	}
	return out
}

// Table is an immutable rows × columns dataset.
type Table struct {
	columns []Column
	rows    int
}

// NewTable validates the columns and builds a Table. All columns must have
// the same length and every present value must match its column's kind.
func NewTable(columns []Column) (*Table, error) {
	rows := 0
	for i, col := range columns {
		switch col.Kind {
		case KindInteger, KindFloat, KindText:
		default:
			return nil, fmt.Errorf("%w: column %d (%q) has no kind", ErrMalformedInput, i, col.Name)
		}
		if i == 0 {
			rows = len(col.Values)
		} else if len(col.Values) != rows {
			return nil, fmt.Errorf("%w: column %q has %d values, expected %d", ErrMalformedInput, col.Name, len(col.Values), rows)
		}
		for r, v := range col.Values {
			if !v.IsNull() && v.kind != col.Kind {
				return nil, fmt.Errorf("%w: column %q row %d holds %s value in %s column", ErrMalformedInput, col.Name, r, v.kind, col.Kind)
			}
		}
	}
	cols := make([]Column, len(columns))
	copy(cols, columns)
	return &Table{columns: cols, rows: rows}, nil
}

// Columns returns the columns in table order. Callers must not mutate them.
func (t *Table) Columns() []Column { return t.columns }

func (t *Table) Rows() int { return t.rows }

func (t *Table) Width() int { return len(t.columns) }

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// cellCount is rows × columns floored at 1 so that ratios stay finite on
// degenerate tables.
func (t *Table) cellCount() int {
	if n := t.rows * len(t.columns); n > 0 {
		return n
	}
	return 1
}
