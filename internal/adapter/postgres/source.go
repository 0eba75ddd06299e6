package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/guillermoBallester/dqscore/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Source loads the result set of a validated SELECT as a table.
type Source struct {
	pool         *pgxpool.Pool
	maxRows      int
	queryTimeout time.Duration
}

func NewSource(pool *pgxpool.Pool, maxRows int, queryTimeout time.Duration) *Source {
	return &Source{
		pool:         pool,
		maxRows:      maxRows,
		queryTimeout: queryTimeout,
	}
}

// Load runs sql in a read-only transaction, capped at maxRows rows.
func (s *Source) Load(ctx context.Context, sql string) (*domain.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// SET LOCAL scopes the server-side timeout to this transaction.
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%d'", s.queryTimeout.Milliseconds())); err != nil {
		return nil, fmt.Errorf("setting statement timeout: %w", err)
	}

	rows, err := tx.Query(ctx, wrapQuery(sql, s.maxRows))
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	t, err := rowsToTable(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return t, nil
}

func wrapQuery(sql string, maxRows int) string {
	return fmt.Sprintf("SELECT * FROM (%s) AS _q LIMIT %d", sql, maxRows)
}
