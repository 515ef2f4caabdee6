package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/urmzd/lanscout/pkg/discovery"
)

// Bootstrap seeds method_settings on first run, using DefaultMethods when
// methods is empty. It reports whether anything was written; an existing
// table is never touched.
func (db *DB) Bootstrap(ctx context.Context, methods []discovery.Method) (bool, error) {
	if len(methods) == 0 {
		methods = discovery.DefaultMethods()
	}

	seeded := false
	err := db.Tx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM method_settings`).Scan(&count); err != nil {
			return fmt.Errorf("failed to check method settings: %w", err)
		}
		if count > 0 {
			return nil
		}
		if err := saveMethods(ctx, tx, methods); err != nil {
			return fmt.Errorf("failed to seed method settings: %w", err)
		}
		seeded = true
		return nil
	})
	return seeded, err
}
