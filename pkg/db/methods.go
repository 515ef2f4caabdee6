package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/urmzd/lanscout/pkg/discovery"
)

// MethodStore persists discovery method settings.
type MethodStore interface {
	List(ctx context.Context) ([]discovery.Method, error)
	Save(ctx context.Context, methods []discovery.Method) error
}

// Methods returns a MethodStore for this database.
func (db *DB) Methods() MethodStore {
	return &methodStore{db: db}
}

type methodStore struct {
	db *DB
}

// List returns the stored methods by descending priority, then name.
func (s *methodStore) List(ctx context.Context) ([]discovery.Method, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, priority, timeout_ms, retries, enabled
		FROM method_settings ORDER BY priority DESC, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []discovery.Method
	for rows.Next() {
		var (
			m         discovery.Method
			timeoutMs int64
		)
		if err := rows.Scan(&m.Name, &m.Priority, &timeoutMs, &m.Retries, &m.Enabled); err != nil {
			return nil, err
		}
		m.Timeout = time.Duration(timeoutMs) * time.Millisecond
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

// Save replaces the stored methods with methods.
func (s *methodStore) Save(ctx context.Context, methods []discovery.Method) error {
	return s.db.Tx(ctx, func(tx *sql.Tx) error {
		return saveMethods(ctx, tx, methods)
	})
}

func saveMethods(ctx context.Context, tx *sql.Tx, methods []discovery.Method) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM method_settings`); err != nil {
		return fmt.Errorf("failed to clear method settings: %w", err)
	}
	for _, m := range methods {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO method_settings (name, priority, timeout_ms, retries, enabled, updated_at)
			VALUES (?, ?, ?, ?, ?, datetime('now'))
		`, m.Name, m.Priority, m.Timeout.Milliseconds(), m.Retries, m.Enabled)
		if err != nil {
			return fmt.Errorf("failed to save method %s: %w", m.Name, err)
		}
	}
	return nil
}
