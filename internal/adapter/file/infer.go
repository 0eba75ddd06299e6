package file

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/guillermoBallester/dqscore/internal/core/domain"
)

// naTokens are the cell spellings read as missing in CSV and XLSX input.
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func isNA(s string) bool {
	_, ok := naTokens[s]
	return ok
}

// inferColumn decides the kind of a column of raw text cells and converts
// them. All integers with nothing missing is an integer column; all numbers
// (or all missing) is a float column; anything else is text.
func inferColumn(name string, cells []string) domain.Column {
	allInt, allNum, missing := true, true, 0
	for _, c := range cells {
		if isNA(c) {
			missing++
			continue
		}
		t := strings.TrimSpace(c)
		if _, err := strconv.ParseInt(t, 10, 64); err != nil {
			allInt = false
			if _, err := strconv.ParseFloat(t, 64); err != nil {
				allNum = false
				break
			}
		}
	}

	col := domain.Column{Name: name, Values: make([]domain.Value, len(cells))}
	switch {
	case allNum && allInt && missing == 0 && len(cells) > 0:
		col.Kind = domain.KindInteger
		for i, c := range cells {
			n, _ := strconv.ParseInt(strings.TrimSpace(c), 10, 64)
			col.Values[i] = domain.Int(n)
		}
	case allNum:
		col.Kind = domain.KindFloat
		for i, c := range cells {
			if isNA(c) {
				continue
			}
			f, _ := strconv.ParseFloat(strings.TrimSpace(c), 64)
			col.Values[i] = domain.Float(f)
		}
	default:
		col.Kind = domain.KindText
		for i, c := range cells {
			if !isNA(c) {
				col.Values[i] = domain.Text(c)
			}
		}
	}
	return col
}

// headerName names a column the way spreadsheet tools do when the header
// cell is blank.
func headerName(raw string, i int) string {
	if strings.TrimSpace(raw) == "" {
		return "Unnamed: " + strconv.Itoa(i)
	}
	return raw
}

// tableFromGrid builds a table from a header row and data rows. Short rows
// are padded with missing cells; a row longer than the header is an error.
func tableFromGrid(format Format, header []string, rows [][]string) (*domain.Table, error) {
	width := len(header)
	cells := make([][]string, width)
	for c := range cells {
		cells[c] = make([]string, len(rows))
	}
	for r, row := range rows {
		if len(row) > width {
			return nil, malformed(format, fmt.Errorf("row %d: expected %d fields, saw %d", r+1, width, len(row)))
		}
		for c, v := range row {
			cells[c][r] = v
		}
	}

	names := dedupeNames(header)
	cols := make([]domain.Column, width)
	for c := range cols {
		cols[c] = inferColumn(names[c], cells[c])
	}
	return domain.NewTable(cols)
}

// dedupeNames fills blank headers and suffixes repeats: a, a, a becomes
// a, a.1, a.2.
func dedupeNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, raw := range header {
		name := headerName(raw, i)
		base := name
		for n := seen[base]; ; n++ {
			if _, taken := seen[name]; !taken {
				seen[base] = n
				break
			}
			name = base + "." + strconv.Itoa(n+1)
		}
		seen[name] = 0
		names[i] = name
	}
	return names
}
