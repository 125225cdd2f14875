package inventory

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one versioned schema change. Versions apply in ascending
// order and are recorded in _migrations so reopening a database is a
// no-op.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "create runs, classifications and devices tables",
		SQL: `
			CREATE TABLE IF NOT EXISTS runs (
				id            TEXT PRIMARY KEY,
				source        TEXT NOT NULL DEFAULT '',
				started_at    TEXT NOT NULL,
				total_devices INTEGER NOT NULL DEFAULT 0,
				stats         TEXT NOT NULL DEFAULT '{}'
			);

			CREATE TABLE IF NOT EXISTS classifications (
				id                 INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id             TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
				device_id          TEXT NOT NULL,
				assigned_address   TEXT NOT NULL DEFAULT '',
				hostname           TEXT NOT NULL DEFAULT '',
				vendor             TEXT NOT NULL DEFAULT '',
				vendor_confidence  TEXT NOT NULL DEFAULT '',
				device_type        TEXT NOT NULL DEFAULT '',
				device_name        TEXT NOT NULL DEFAULT '',
				operating_system   TEXT NOT NULL DEFAULT '',
				method             TEXT NOT NULL DEFAULT '',
				external_score     INTEGER,
				overall_confidence TEXT NOT NULL DEFAULT '',
				raw_fingerprint    TEXT NOT NULL DEFAULT '',
				vendor_class       TEXT NOT NULL DEFAULT '',
				error_note         TEXT NOT NULL DEFAULT '',
				notes              TEXT NOT NULL DEFAULT '[]',
				classified_at      TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_classifications_run ON classifications(run_id);
			CREATE INDEX IF NOT EXISTS idx_classifications_device ON classifications(device_id);

			CREATE TABLE IF NOT EXISTS devices (
				device_id          TEXT PRIMARY KEY,
				hostname           TEXT NOT NULL DEFAULT '',
				vendor             TEXT NOT NULL DEFAULT '',
				device_type        TEXT NOT NULL DEFAULT '',
				operating_system   TEXT NOT NULL DEFAULT '',
				method             TEXT NOT NULL DEFAULT '',
				overall_confidence TEXT NOT NULL DEFAULT '',
				first_seen         TEXT NOT NULL,
				last_seen          TEXT NOT NULL,
				times_seen         INTEGER NOT NULL DEFAULT 0
			);
			CREATE INDEX IF NOT EXISTS idx_devices_type ON devices(device_type);
		`,
	},
}

// Migrate applies any pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var onceErr error
	s.once.Do(func() {
		_, onceErr = s.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS _migrations (
				version    INTEGER PRIMARY KEY,
				description TEXT NOT NULL,
				applied_at TEXT NOT NULL DEFAULT (datetime('now'))
			)`)
	})
	if onceErr != nil {
		return fmt.Errorf("create migrations table: %w", onceErr)
	}

	for _, m := range migrations {
		applied, err := s.migrationApplied(ctx, m.Version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		err = s.Tx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
				return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO _migrations (version, description) VALUES (?, ?)",
				m.Version, m.Description,
			); err != nil {
				return fmt.Errorf("record migration %d: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) migrationApplied(ctx context.Context, version int) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM _migrations WHERE version = ?", version,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check migration %d: %w", version, err)
	}
	return n > 0, nil
}
