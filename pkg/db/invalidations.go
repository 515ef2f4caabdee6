package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/urmzd/lanscout/pkg/discovery"
)

// InvalidationStore persists the invalidation log.
type InvalidationStore interface {
	Append(ctx context.Context, events []discovery.InvalidationEvent) error
	List(ctx context.Context, limit int) ([]discovery.InvalidationEvent, error)
}

// Invalidations returns an InvalidationStore for this database.
func (db *DB) Invalidations() InvalidationStore {
	return &invalidationStore{db: db}
}

type invalidationStore struct {
	db *DB
}

func (s *invalidationStore) Append(ctx context.Context, events []discovery.InvalidationEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.db.Tx(ctx, func(tx *sql.Tx) error {
		for _, e := range events {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO invalidation_events (device_id, reason, occurred_at)
				VALUES (?, ?, ?)
			`, e.DeviceID, string(e.Reason), e.Timestamp.UTC().Format(timeLayout))
			if err != nil {
				return fmt.Errorf("failed to append invalidation for %s: %w", e.DeviceID, err)
			}
		}
		return nil
	})
}

// List returns up to limit events, newest last. A limit of zero or less
// returns every event.
func (s *invalidationStore) List(ctx context.Context, limit int) ([]discovery.InvalidationEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT device_id, reason, occurred_at FROM (
			SELECT id, device_id, reason, occurred_at
			FROM invalidation_events ORDER BY id DESC LIMIT ?
		) ORDER BY id
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []discovery.InvalidationEvent
	for rows.Next() {
		var (
			e          discovery.InvalidationEvent
			reason, ts string
		)
		if err := rows.Scan(&e.DeviceID, &reason, &ts); err != nil {
			return nil, err
		}
		e.Reason = discovery.InvalidationReason(reason)
		e.Timestamp, err = time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("bad occurred_at %q: %w", ts, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
