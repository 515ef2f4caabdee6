package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/urmzd/lanscout/pkg/discovery"
)

// DeviceStore persists the device cache.
type DeviceStore interface {
	List(ctx context.Context) ([]discovery.NormalizedDevice, error)
	ReplaceAll(ctx context.Context, devices []discovery.NormalizedDevice) error
	Count(ctx context.Context) (int, error)
}

// Devices returns a DeviceStore for this database.
func (db *DB) Devices() DeviceStore {
	return &deviceStore{db: db}
}

type deviceStore struct {
	db *DB
}

// List returns the stored devices, most recently seen first.
func (s *deviceStore) List(ctx context.Context) ([]discovery.NormalizedDevice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, alternate_id, name, firmware_version, hardware_address,
		       network_address, port, signal_strength, last_seen,
		       discovery_method, discovery_count
		FROM devices ORDER BY last_seen DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []discovery.NormalizedDevice
	for rows.Next() {
		var (
			d        discovery.NormalizedDevice
			signal   sql.NullInt64
			lastSeen string
		)
		err := rows.Scan(&d.ID, &d.AlternateID, &d.Name, &d.FirmwareVersion, &d.HardwareAddress,
			&d.NetworkAddress, &d.Port, &signal, &lastSeen, &d.DiscoveryMethod, &d.DiscoveryCount)
		if err != nil {
			return nil, err
		}
		if signal.Valid {
			v := int(signal.Int64)
			d.SignalStrength = &v
		}
		d.LastSeen, err = time.Parse(timeLayout, lastSeen)
		if err != nil {
			return nil, fmt.Errorf("device %s: bad last_seen %q: %w", d.ID, lastSeen, err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// ReplaceAll swaps the stored devices for devices in one transaction.
func (s *deviceStore) ReplaceAll(ctx context.Context, devices []discovery.NormalizedDevice) error {
	return s.db.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM devices`); err != nil {
			return fmt.Errorf("failed to clear devices: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO devices (id, alternate_id, name, firmware_version, hardware_address,
			                     network_address, port, signal_strength, last_seen,
			                     discovery_method, discovery_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, d := range devices {
			var signal sql.NullInt64
			if d.SignalStrength != nil {
				signal = sql.NullInt64{Int64: int64(*d.SignalStrength), Valid: true}
			}
			_, err := stmt.ExecContext(ctx, d.ID, d.AlternateID, d.Name, d.FirmwareVersion, d.HardwareAddress,
				d.NetworkAddress, d.Port, signal, d.LastSeen.UTC().Format(timeLayout),
				d.DiscoveryMethod, d.DiscoveryCount)
			if err != nil {
				return fmt.Errorf("failed to save device %s: %w", d.ID, err)
			}
		}
		return nil
	})
}

func (s *deviceStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices`).Scan(&n)
	return n, err
}
