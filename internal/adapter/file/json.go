package file

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/guillermoBallester/dqscore/internal/core/domain"
	"github.com/spf13/cast"
)

// jsonRecord keeps object keys in document order.
type jsonRecord struct {
	keys   []string
	values map[string]any
}

// readJSON accepts an array of records or a single object. An array of
// arrays becomes positional columns "0".."n-1" and an array of scalars a
// single column named "0".
func readJSON(content []byte) (*domain.Table, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimPrefix(content, utf8BOM)))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, malformed(FormatJSON, err)
	}

	var records []jsonRecord
	switch tok {
	case json.Delim('['):
		for dec.More() {
			rec, err := decodeElement(dec)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		if _, err := dec.Token(); err != nil {
			return nil, malformed(FormatJSON, err)
		}
	case json.Delim('{'):
		rec, err := decodeObjectBody(dec)
		if err != nil {
			return nil, err
		}
		records = []jsonRecord{rec}
	default:
		return nil, fmt.Errorf("%w: JSON must be an array of records or an object", domain.ErrUnsupportedFormat)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed(FormatJSON, errors.New("unexpected data after top-level value"))
	}
	return tableFromRecords(records)
}

// decodeElement reads one array element. Objects keep their key order,
// arrays are keyed by position and scalars get the single key "0".
func decodeElement(dec *json.Decoder) (jsonRecord, error) {
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return jsonRecord{}, malformed(FormatJSON, err)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		inner := json.NewDecoder(bytes.NewReader(trimmed))
		inner.UseNumber()
		if _, err := inner.Token(); err != nil {
			return jsonRecord{}, malformed(FormatJSON, err)
		}
		return decodeObjectBody(inner)
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return decodeRow(trimmed)
	}
	v, err := decodeValue(trimmed)
	if err != nil {
		return jsonRecord{}, err
	}
	return jsonRecord{keys: []string{"0"}, values: map[string]any{"0": v}}, nil
}

// decodeObjectBody reads key/value pairs after an opening brace up to and
// including the closing one. A repeated key keeps its first position and
// last value.
func decodeObjectBody(dec *json.Decoder) (jsonRecord, error) {
	rec := jsonRecord{values: map[string]any{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return jsonRecord{}, malformed(FormatJSON, err)
		}
		key, ok := tok.(string)
		if !ok {
			return jsonRecord{}, malformed(FormatJSON, fmt.Errorf("unexpected token %v", tok))
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return jsonRecord{}, malformed(FormatJSON, err)
		}
		if _, seen := rec.values[key]; !seen {
			rec.keys = append(rec.keys, key)
		}
		rec.values[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return jsonRecord{}, malformed(FormatJSON, err)
	}
	return rec, nil
}

func decodeRow(raw []byte) (jsonRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return jsonRecord{}, malformed(FormatJSON, err)
	}
	rec := jsonRecord{keys: make([]string, len(items)), values: make(map[string]any, len(items))}
	for i, v := range items {
		key := strconv.Itoa(i)
		rec.keys[i] = key
		rec.values[key] = v
	}
	return rec, nil
}

func decodeValue(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, malformed(FormatJSON, err)
	}
	return v, nil
}

// tableFromRecords unions record keys in first-seen order. A column of
// integers with no gaps is integer, numbers with gaps are float, and any
// string, boolean or nested value makes it text. A column with no values
// at all is text.
func tableFromRecords(records []jsonRecord) (*domain.Table, error) {
	var order []string
	seen := map[string]struct{}{}
	for _, rec := range records {
		for _, k := range rec.keys {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				order = append(order, k)
			}
		}
	}

	cols := make([]domain.Column, len(order))
	for c, key := range order {
		values := make([]any, len(records))
		for r, rec := range records {
			values[r] = rec.values[key]
		}
		col, err := jsonColumn(key, values)
		if err != nil {
			return nil, err
		}
		cols[c] = col
	}
	return domain.NewTable(cols)
}

func jsonColumn(name string, values []any) (domain.Column, error) {
	allInt, allNum, present := true, true, 0
	for _, v := range values {
		if v == nil {
			continue
		}
		present++
		n, ok := v.(json.Number)
		if !ok {
			allNum = false
			break
		}
		if _, err := n.Int64(); err != nil {
			allInt = false
		}
	}

	col := domain.Column{Name: name, Values: make([]domain.Value, len(values))}
	switch {
	case present == 0 || !allNum:
		col.Kind = domain.KindText
		for i, v := range values {
			if v == nil {
				continue
			}
			s, err := jsonString(v)
			if err != nil {
				return domain.Column{}, malformed(FormatJSON, err)
			}
			col.Values[i] = domain.Text(s)
		}
	case allInt && present == len(values):
		col.Kind = domain.KindInteger
		for i, v := range values {
			n, _ := v.(json.Number).Int64()
			col.Values[i] = domain.Int(n)
		}
	default:
		col.Kind = domain.KindFloat
		for i, v := range values {
			if v == nil {
				continue
			}
			f, err := cast.ToFloat64E(v)
			if err != nil {
				return domain.Column{}, malformed(FormatJSON, err)
			}
			col.Values[i] = domain.Float(f)
		}
	}
	return col, nil
}

// jsonString renders a value of a text column. Booleans print as True and
// False; nested arrays and objects are re-encoded compactly.
func jsonString(v any) (string, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return "True", nil
		}
		return "False", nil
	case map[string]any, []any:
		b, err := json.Marshal(x)
		return string(b), err
	}
	return cast.ToStringE(v)
}
