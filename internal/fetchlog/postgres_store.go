package fetchlog

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed fetch log
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

// Record inserts an entry.
func (p *PostgresStore) Record(ctx context.Context, e *Entry) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO oracle_fetch_log (id, endpoint, query, status_code, outcome, duration_ms, error, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.Endpoint, e.Query, e.StatusCode, e.Outcome, e.DurationMS, e.Error, e.RequestID, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert fetch log entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries first.
func (p *PostgresStore) Recent(ctx context.Context, endpoint string, limit int) ([]*Entry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, endpoint, query, status_code, outcome, duration_ms, error, request_id, created_at
		FROM oracle_fetch_log
		WHERE ($1::text = '' OR endpoint = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, endpoint, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query fetch log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.Endpoint, &e.Query, &e.StatusCode, &e.Outcome,
			&e.DurationMS, &e.Error, &e.RequestID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fetch log entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Ping checks connectivity for the health registry.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
