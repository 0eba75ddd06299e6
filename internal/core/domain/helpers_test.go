package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustTable(t *testing.T, cols ...Column) *Table {
	t.Helper()
	tbl, err := NewTable(cols)
	require.NoError(t, err)
	return tbl
}

// ints builds an integer column; a nil entry is a missing cell.
func ints(name string, vals ...any) Column {
	c := Column{Name: name, Kind: KindInteger}
	for _, v := range vals {
		if v == nil {
			c.Values = append(c.Values, Null())
			continue
		}
		c.Values = append(c.Values, Int(int64(v.(int))))
	}
	return c
}

func floats(name string, vals ...any) Column {
	c := Column{Name: name, Kind: KindFloat}
	for _, v := range vals {
		if v == nil {
			c.Values = append(c.Values, Null())
			continue
		}
		c.Values = append(c.Values, Float(v.(float64)))
	}
	return c
}

func texts(name string, vals ...any) Column {
	c := Column{Name: name, Kind: KindText}
	for _, v := range vals {
		if v == nil {
			c.Values = append(c.Values, Null())
			continue
		}
		c.Values = append(c.Values, Text(v.(string)))
	}
	return c
}

func seq(from, to int) []any {
	out := make([]any, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
