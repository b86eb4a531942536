package ordering

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Execer is the subset of *sql.DB (or database.DB) the SQLite backend needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteBackend stores the record as one row of the ordering_store table,
// keyed by the storage key. The table is created by the database migrations.
type SQLiteBackend struct {
	db  Execer
	key string
}

// NewSQLiteBackend returns a backend storing the record under key.
func NewSQLiteBackend(db Execer, key string) *SQLiteBackend {
	return &SQLiteBackend{db: db, key: key}
}

// Load implements Backend.
func (b *SQLiteBackend) Load(ctx context.Context) ([]byte, error) {
	var data string
	err := b.db.QueryRowContext(ctx,
		"SELECT data FROM ordering_store WHERE key = ?",
		b.key,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying ordering_store: %w", err)
	}
	return []byte(data), nil
}

// Save implements Backend.
func (b *SQLiteBackend) Save(ctx context.Context, data []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO ordering_store (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		b.key, string(data), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting ordering_store: %w", err)
	}
	return nil
}
