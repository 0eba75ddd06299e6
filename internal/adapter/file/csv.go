package file

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"

	"github.com/guillermoBallester/dqscore/internal/core/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCSV parses comma-separated content whose first record is the header.
// Blank lines are skipped.
func readCSV(content []byte) (*domain.Table, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, domain.ErrEmptyTable
	}
	if err != nil {
		return nil, malformed(FormatCSV, err)
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed(FormatCSV, err)
		}
		rows = append(rows, rec)
	}
	return tableFromGrid(FormatCSV, header, rows)
}
