package file

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	pqfile "github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/guillermoBallester/dqscore/internal/core/domain"
)

const parquetTimeLayout = "2006-01-02 15:04:05.999999999"

func readParquet(ctx context.Context, content []byte) (*domain.Table, error) {
	rdr, err := pqfile.NewParquetReader(bytes.NewReader(content))
	if err != nil {
		return nil, malformed(FormatParquet, err)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{BatchSize: 64 * 1024}, memory.DefaultAllocator)
	if err != nil {
		return nil, malformed(FormatParquet, err)
	}
	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, malformed(FormatParquet, err)
	}
	defer tbl.Release()

	n := int(tbl.NumCols())
	if n == 0 {
		return nil, domain.ErrEmptyTable
	}
	names := make([]string, n)
	for i := range names {
		names[i] = tbl.Column(i).Name()
	}
	names = dedupeNames(names)

	cols := make([]domain.Column, n)
	for i := range cols {
		col, err := arrowColumn(names[i], tbl.Column(i).Data())
		if err != nil {
			return nil, malformed(FormatParquet, fmt.Errorf("column %q: %w", names[i], err))
		}
		cols[i] = col
	}
	return domain.NewTable(cols)
}

// arrowColumn converts one chunked column. Integer columns with nulls, or
// with unsigned values past int64, become float columns; temporal and other
// non-numeric types become text.
func arrowColumn(name string, data *arrow.Chunked) (domain.Column, error) {
	col := domain.Column{Name: name, Values: make([]domain.Value, 0, data.Len())}

	switch {
	case isIntegerType(data.DataType().ID()):
		col.Kind = domain.KindInteger
		if data.NullN() > 0 {
			col.Kind = domain.KindFloat
		}
		for _, chunk := range data.Chunks() {
			for i := range chunk.Len() {
				if chunk.IsNull(i) {
					col.Values = append(col.Values, domain.Null())
					continue
				}
				v, ok := intAt(chunk, i)
				if !ok {
					col.Kind = domain.KindFloat
					col.Values = append(col.Values, domain.Float(float64(chunk.(*array.Uint64).Value(i))))
					continue
				}
				col.Values = append(col.Values, domain.Int(v))
			}
		}
		if col.Kind == domain.KindFloat {
			for i, v := range col.Values {
				if v.Kind() == domain.KindInteger {
					col.Values[i] = domain.Float(v.Float64())
				}
			}
		}
	case data.DataType().ID() == arrow.FLOAT32 || data.DataType().ID() == arrow.FLOAT64:
		col.Kind = domain.KindFloat
		for _, chunk := range data.Chunks() {
			for i := range chunk.Len() {
				switch {
				case chunk.IsNull(i):
					col.Values = append(col.Values, domain.Null())
				case data.DataType().ID() == arrow.FLOAT32:
					col.Values = append(col.Values, domain.Float(float64(chunk.(*array.Float32).Value(i))))
				default:
					col.Values = append(col.Values, domain.Float(chunk.(*array.Float64).Value(i)))
				}
			}
		}
	default:
		col.Kind = domain.KindText
		for _, chunk := range data.Chunks() {
			for i := range chunk.Len() {
				if chunk.IsNull(i) {
					col.Values = append(col.Values, domain.Null())
					continue
				}
				s, err := textAt(chunk, i)
				if err != nil {
					return domain.Column{}, err
				}
				col.Values = append(col.Values, domain.Text(s))
			}
		}
	}
	return col, nil
}

func isIntegerType(id arrow.Type) bool {
	switch id {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return true
	}
	return false
}

// intAt returns the value at i, or false for a uint64 too large for int64.
func intAt(arr arrow.Array, i int) (int64, bool) {
	switch a := arr.(type) {
	case *array.Int8:
		return int64(a.Value(i)), true
	case *array.Int16:
		return int64(a.Value(i)), true
	case *array.Int32:
		return int64(a.Value(i)), true
	case *array.Int64:
		return a.Value(i), true
	case *array.Uint8:
		return int64(a.Value(i)), true
	case *array.Uint16:
		return int64(a.Value(i)), true
	case *array.Uint32:
		return int64(a.Value(i)), true
	case *array.Uint64:
		v := a.Value(i)
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}

func textAt(arr arrow.Array, i int) (string, error) {
	switch a := arr.(type) {
	case *array.String:
		return a.Value(i), nil
	case *array.LargeString:
		return a.Value(i), nil
	case *array.Boolean:
		if a.Value(i) {
			return "True", nil
		}
		return "False", nil
	case *array.Date32:
		return a.Value(i).ToTime().Format(time.DateOnly), nil
	case *array.Date64:
		return a.Value(i).ToTime().Format(time.DateOnly), nil
	case *array.Timestamp:
		toTime, err := a.DataType().(*arrow.TimestampType).GetToTimeFunc()
		if err != nil {
			return "", err
		}
		return toTime(a.Value(i)).Format(parquetTimeLayout), nil
	case *array.Float16:
		return strconv.FormatFloat(float64(a.Value(i).Float32()), 'g', -1, 32), nil
	}
	return arr.ValueStr(i), nil
}
