package file

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/guillermoBallester/dqscore/internal/core/domain"
	"github.com/xuri/excelize/v2"
)

// readXLSX reads the first worksheet; its first row is the header.
func readXLSX(content []byte) (*domain.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, malformed(FormatXLSX, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.ErrEmptyTable
	}
	raw, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, malformed(FormatXLSX, err)
	}
	formatted, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, malformed(FormatXLSX, err)
	}

	styles := &dateStyles{f: f, sheet: sheets[0], known: map[int]bool{}}
	grid := make([][]string, 0, len(raw))
	for r, row := range raw {
		if isBlankRow(row) {
			continue
		}
		out := make([]string, len(row))
		for c, cell := range row {
			out[c] = pickCell(cell, cellAt(formatted, r, c), func() bool { return styles.at(c+1, r+1) })
		}
		grid = append(grid, out)
	}
	if len(grid) == 0 {
		return nil, domain.ErrEmptyTable
	}

	header := grid[0]
	width := len(header)
	for _, row := range grid[1:] {
		width = max(width, len(row))
	}
	if width > len(header) {
		// Excel has no fixed row width; cells beyond the header get blank
		// (hence "Unnamed") header cells rather than failing the load.
		header = append(header, make([]string, width-len(header))...)
	}
	t, err := tableFromGrid(FormatXLSX, header, grid[1:])
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheets[0], err)
	}
	return t, nil
}

// pickCell prefers the raw cell value, except for numbers whose cell style
// is a date or time format. Those keep their displayed form so they read
// as dates. isDate is only consulted for numeric cells shown differently.
func pickCell(raw, shown string, isDate func() bool) string {
	if shown == raw || shown == "" {
		return raw
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return raw
	}
	if isDate() {
		return shown
	}
	return raw
}

// dateStyles answers whether a cell's number format renders a date,
// caching the answer per style index.
type dateStyles struct {
	f     *excelize.File
	sheet string
	known map[int]bool
}

func (d *dateStyles) at(col, row int) bool {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return false
	}
	idx, err := d.f.GetCellStyle(d.sheet, cell)
	if err != nil {
		return false
	}
	if isDate, ok := d.known[idx]; ok {
		return isDate
	}
	isDate := false
	if style, err := d.f.GetStyle(idx); err == nil && style != nil {
		isDate = isDateNumFmt(style.NumFmt, style.CustomNumFmt)
	}
	d.known[idx] = isDate
	return isDate
}

// isDateNumFmt reports whether a built-in format id or custom format code
// displays a date or time.
func isDateNumFmt(id int, custom *string) bool {
	if custom != nil {
		return isDateFormatCode(*custom)
	}
	switch {
	case id >= 14 && id <= 22, id >= 45 && id <= 47:
		return true
	case id >= 27 && id <= 36, id >= 50 && id <= 58:
		// East Asian locale date formats.
		return true
	}
	return false
}

// isDateFormatCode looks for date or time tokens outside quoted literals,
// escapes and bracketed sections such as colors and locales. Elapsed time
// brackets like [h] count as time.
func isDateFormatCode(code string) bool {
	// Only the positive section decides.
	if i := strings.IndexByte(code, ';'); i >= 0 {
		code = code[:i]
	}
	for i := 0; i < len(code); i++ {
		switch c := code[i]; c {
		case '"':
			if j := strings.IndexByte(code[i+1:], '"'); j >= 0 {
				i += j + 1
			} else {
				return false
			}
		case '\\', '_', '*':
			i++
		case '[':
			j := strings.IndexByte(code[i+1:], ']')
			if j < 0 {
				return false
			}
			switch strings.ToLower(code[i+1 : i+1+j]) {
			case "h", "hh", "m", "mm", "s", "ss":
				return true
			}
			i += j + 1
		default:
			switch c | 0x20 {
			case 'y', 'm', 'd', 'h', 's':
				return true
			}
		}
	}
	return false
}

func cellAt(grid [][]string, r, c int) string {
	if r >= len(grid) || c >= len(grid[r]) {
		return ""
	}
	return grid[r][c]
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
