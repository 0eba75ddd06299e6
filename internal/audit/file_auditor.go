package audit

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/guillermoBallester/dqscore/internal/core/port"
)

// fileEntry is the NDJSON form of an assessment audit record.
type fileEntry struct {
	Timestamp    string   `json:"ts"`
	Tool         string   `json:"tool"`
	Source       string   `json:"source"`
	Rows         int      `json:"rows"`
	Columns      int      `json:"columns"`
	OverallScore *float64 `json:"overall_score"`
	DurationMS   int64    `json:"duration_ms"`
	Error        *string  `json:"error"`
}

// FileAuditor appends one JSON object per assessment to a file.
type FileAuditor struct {
	mu    sync.Mutex
	file  *os.File
	enc   *json.Encoder
	clock func() time.Time
}

// NewFileAuditor opens (or creates) the file at path for append-only writing.
func NewFileAuditor(path string) (*FileAuditor, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	return &FileAuditor{file: f, enc: enc, clock: time.Now}, nil
}

func (a *FileAuditor) Record(_ context.Context, entry port.AuditEntry) {
	fe := fileEntry{
		Timestamp:    a.clock().UTC().Format(time.RFC3339),
		Tool:         entry.Tool,
		Source:       entry.Source,
		Rows:         entry.Rows,
		Columns:      entry.Columns,
		OverallScore: entry.OverallScore,
		DurationMS:   entry.DurationMS,
	}
	if entry.Err != nil {
		s := entry.Err.Error()
		fe.Error = &s
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.enc.Encode(fe) // best-effort; an audit write never fails the assessment
}

func (a *FileAuditor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

// NoopAuditor discards all audit entries.
type NoopAuditor struct{}

func (NoopAuditor) Record(context.Context, port.AuditEntry) {}
func (NoopAuditor) Close() error                            { return nil }
