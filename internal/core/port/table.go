package port

import (
	"context"
	"io"

	"github.com/guillermoBallester/dqscore/internal/core/domain"
)

// TableLoader materializes an uploaded file into a table. The name is the
// client-supplied file name and decides the format.
type TableLoader interface {
	Load(ctx context.Context, name string, r io.Reader) (*domain.Table, error)
}

// TableSource materializes the result of a read-only SQL query.
type TableSource interface {
	Load(ctx context.Context, sql string) (*domain.Table, error)
}

// ReportStore persists a finished assessment and returns the name it was
// stored under, or "" when nothing was written.
type ReportStore interface {
	Save(ctx context.Context, sourceName string, v any) (string, error)
}
