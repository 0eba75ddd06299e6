package postgres

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/guillermoBallester/dqscore/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/spf13/cast"
)

const timestampLayout = "2006-01-02 15:04:05.999999999"

// rowsToTable drains rows into a table. Integer columns containing NULL
// become float columns; anything that is not an integer, float or numeric
// type is carried as text.
func rowsToTable(rows pgx.Rows) (*domain.Table, error) {
	fields := rows.FieldDescriptions()
	cols := make([]domain.Column, len(fields))
	names := make([]string, len(fields))
	for i, fd := range fields {
		names[i] = fd.Name
		cols[i] = domain.Column{Name: fd.Name, Kind: kindForOID(fd.DataTypeOID)}
	}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading row values: %w", err)
		}
		for i, v := range vals {
			cell, err := toValue(cols[i].Kind, fields[i].DataTypeOID, v)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", names[i], err)
			}
			cols[i].Values = append(cols[i].Values, cell)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	for i := range cols {
		if cols[i].Kind == domain.KindInteger && cols[i].Missing() > 0 {
			widenToFloat(&cols[i])
		}
	}
	return domain.NewTable(cols)
}

func kindForOID(oid uint32) domain.Kind {
	switch oid {
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID:
		return domain.KindInteger
	case pgtype.Float4OID, pgtype.Float8OID, pgtype.NumericOID:
		return domain.KindFloat
	}
	return domain.KindText
}

func toValue(kind domain.Kind, oid uint32, v any) (domain.Value, error) {
	if v == nil {
		return domain.Null(), nil
	}
	switch kind {
	case domain.KindInteger:
		n, err := cast.ToInt64E(v)
		if err != nil {
			return domain.Value{}, err
		}
		return domain.Int(n), nil
	case domain.KindFloat:
		if n, ok := v.(pgtype.Numeric); ok {
			if !n.Valid {
				return domain.Null(), nil
			}
			f, err := n.Float64Value()
			if err != nil {
				return domain.Value{}, err
			}
			return domain.Float(f.Float64), nil
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return domain.Value{}, err
		}
		return domain.Float(f), nil
	}
	s, err := textOf(oid, v)
	if err != nil {
		return domain.Value{}, err
	}
	return domain.Text(s), nil
}

func textOf(oid uint32, v any) (string, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return "True", nil
		}
		return "False", nil
	case time.Time:
		switch oid {
		case pgtype.DateOID:
			return x.Format(time.DateOnly), nil
		case pgtype.TimestampOID:
			return x.Format(timestampLayout), nil
		}
		return x.Format(time.RFC3339Nano), nil
	case [16]byte:
		return uuid.UUID(x).String(), nil
	case []byte:
		return `\x` + hex.EncodeToString(x), nil
	case map[string]any, []any:
		b, err := json.Marshal(x)
		return string(b), err
	case fmt.Stringer:
		return x.String(), nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v), nil
	}
	return s, nil
}

func widenToFloat(col *domain.Column) {
	col.Kind = domain.KindFloat
	for i, v := range col.Values {
		if !v.IsNull() {
			col.Values[i] = domain.Float(v.Float64())
		}
	}
}
