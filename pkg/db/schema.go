package db

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order. Entry i brings the schema to version i+1.
var migrations = []string{schemaV1}

var currentSchemaVersion = len(migrations)

const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version     INTEGER PRIMARY KEY,
    applied_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Cached devices, replaced wholesale after each discovery
CREATE TABLE IF NOT EXISTS devices (
    id               TEXT PRIMARY KEY,
    alternate_id     TEXT NOT NULL DEFAULT '',
    name             TEXT NOT NULL,
    firmware_version TEXT NOT NULL DEFAULT '',
    hardware_address TEXT NOT NULL DEFAULT '',
    network_address  TEXT NOT NULL DEFAULT '',
    port             INTEGER NOT NULL DEFAULT 0,
    signal_strength  INTEGER,
    last_seen        TEXT NOT NULL,
    discovery_method TEXT NOT NULL,
    discovery_count  INTEGER NOT NULL DEFAULT 1,
    updated_at       TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Invalidation log
CREATE TABLE IF NOT EXISTS invalidation_events (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    device_id   TEXT NOT NULL,
    reason      TEXT NOT NULL,
    occurred_at TEXT NOT NULL
);

-- Discovery method settings, including learned priorities
CREATE TABLE IF NOT EXISTS method_settings (
    name        TEXT PRIMARY KEY,
    priority    INTEGER NOT NULL,
    timeout_ms  INTEGER NOT NULL,
    retries     INTEGER NOT NULL DEFAULT 0,
    enabled     INTEGER NOT NULL DEFAULT 1,
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_devices_last_seen ON devices(last_seen);
CREATE INDEX IF NOT EXISTS idx_invalidation_device ON invalidation_events(device_id);
CREATE INDEX IF NOT EXISTS idx_invalidation_occurred ON invalidation_events(occurred_at);
`

// Migrate applies every migration newer than the stored schema version.
func (db *DB) Migrate(ctx context.Context) error {
	version, err := db.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for v := version + 1; v <= currentSchemaVersion; v++ {
		if err := db.applyMigration(ctx, v); err != nil {
			return fmt.Errorf("failed to apply schema v%d: %w", v, err)
		}
	}
	return nil
}

func (db *DB) applyMigration(ctx context.Context, version int) error {
	return db.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, migrations[version-1]); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, version)
		return err
	})
}

// SchemaVersion returns the applied schema version, 0 for an empty database.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var tables int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'`,
	).Scan(&tables)
	if err != nil || tables == 0 {
		return 0, err
	}

	var version int
	err = db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	return version, err
}
