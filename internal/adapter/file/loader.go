// Package file materializes uploaded CSV, JSON, Excel and Parquet files into
// domain tables.
package file

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/guillermoBallester/dqscore/internal/core/domain"
)

// Format is a supported input file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatXLSX    Format = "xlsx"
	FormatXLS     Format = "xls"
	FormatParquet Format = "parquet"
)

// AllowedExtensions lists the extensions accepted for upload.
var AllowedExtensions = []string{"csv", "xlsx", "xls", "json", "parquet"}

// Extension returns the lower-cased extension of name without the dot, or
// "" if it has none.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Allowed reports whether name has no extension or an allowed one. Names
// without an extension are sniffed when loaded.
func Allowed(name string) bool {
	ext := Extension(name)
	if ext == "" {
		return true
	}
	for _, a := range AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

// DetectFormat picks the format from the file extension, falling back to
// the leading bytes of content when the name has none.
func DetectFormat(name string, content []byte) (Format, error) {
	if ext := Extension(name); ext != "" {
		switch Format(ext) {
		case FormatCSV, FormatJSON, FormatXLSX, FormatXLS, FormatParquet:
			return Format(ext), nil
		}
		return "", fmt.Errorf("%w: .%s (upload CSV, Excel, JSON or Parquet files)", domain.ErrUnsupportedFormat, ext)
	}
	return sniff(content), nil
}

func sniff(content []byte) Format {
	switch {
	case bytes.HasPrefix(content, []byte("PK")):
		return FormatXLSX
	case bytes.HasPrefix(content, []byte{0xD0, 0xCF, 0x11, 0xE0}):
		return FormatXLS
	case bytes.HasPrefix(content, []byte("PAR1")):
		return FormatParquet
	case len(content) > 0 && (content[0] == '{' || content[0] == '['):
		return FormatJSON
	default:
		return FormatCSV
	}
}

// Loader reads a whole upload into memory and decodes it by format.
type Loader struct {
	logger *slog.Logger
}

func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{logger: logger}
}

// Load decodes r according to name. Decoding failures wrap
// domain.ErrMalformedInput or domain.ErrUnsupportedFormat.
func (l *Loader) Load(ctx context.Context, name string, r io.Reader) (*domain.Table, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format, err := DetectFormat(name, content)
	if err != nil {
		return nil, err
	}
	l.logger.DebugContext(ctx, "loading file",
		slog.String("file.name", name),
		slog.String("file.format", string(format)),
		slog.Int("file.bytes", len(content)),
	)

	switch format {
	case FormatCSV:
		return readCSV(content)
	case FormatJSON:
		return readJSON(content)
	case FormatXLSX:
		return readXLSX(content)
	case FormatParquet:
		return readParquet(ctx, content)
	case FormatXLS:
		return nil, fmt.Errorf("%w: legacy .xls workbooks are not supported, save the file as .xlsx", domain.ErrUnsupportedFormat)
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, format)
}

func malformed(format Format, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrMalformedInput, format, err)
}
