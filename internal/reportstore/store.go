// Package reportstore persists finished assessments as JSON files.
package reportstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// FileStore writes each report to its own file under a directory.
type FileStore struct {
	dir   string
	clock func() time.Time
}

// NewFileStore creates dir if needed. clock may be nil.
func NewFileStore(dir string, clock func() time.Time) (*FileStore, error) {
	if clock == nil {
		clock = time.Now
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report dir: %w", err)
	}
	return &FileStore{dir: dir, clock: clock}, nil
}

// FileName returns report_YYYYMMDD_HHMMSS_<secure source name>.json.
func (s *FileStore) FileName(sourceName string) string {
	return fmt.Sprintf("report_%s_%s.json", s.clock().Format("20060102_150405"), SecureFilename(sourceName))
}

// Save writes v as indented JSON and returns the file name. The file is
// written to a temporary name first so readers never see a partial report.
func (s *FileStore) Save(ctx context.Context, sourceName string, v any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := s.FileName(sourceName)

	tmp, err := os.CreateTemp(s.dir, ".report-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating report file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return "", fmt.Errorf("encoding report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return name, nil
}

// SecureFilename reduces name to a safe ASCII file name: accents are
// decomposed and dropped along with other non-ASCII runes, path separators
// and whitespace runs become "_", anything outside [A-Za-z0-9_.-] is removed
// and leading or trailing dots and underscores are trimmed.
func SecureFilename(name string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
		}
	}
	ascii := strings.NewReplacer("/", " ", `\`, " ").Replace(b.String())
	joined := strings.Join(strings.Fields(ascii), "_")
	return strings.Trim(unsafeFilenameChars.ReplaceAllString(joined, ""), "._")
}

// NoopStore discards reports.
type NoopStore struct{}

func (NoopStore) Save(context.Context, string, any) (string, error) { return "", nil }
