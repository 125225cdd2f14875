// Package inventory persists analysis runs, per-device classification
// results, and the rolling device inventory in SQLite.
package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/HerbHall/dhcplens/pkg/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("inventory: not found")

// Store is the SQLite-backed persistence layer.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex // serialize migrations
	once sync.Once  // ensure _migrations table created once
}

// Run is one recorded analysis run.
type Run struct {
	ID        string          `json:"id"`
	Source    string          `json:"source"`
	StartedAt time.Time       `json:"started_at"`
	Stats     models.RunStats `json:"stats"`
}

// Device is one row of the rolling device inventory: the latest
// classification per MAC plus sighting bookkeeping.
type Device struct {
	DeviceID        string            `json:"device_id"`
	Hostname        string            `json:"hostname,omitempty"`
	Vendor          string            `json:"vendor,omitempty"`
	DeviceType      models.DeviceType `json:"device_type,omitempty"`
	OperatingSystem string            `json:"operating_system,omitempty"`
	Method          models.Method     `json:"classification_method"`
	Confidence      models.Confidence `json:"overall_confidence"`
	FirstSeen       time.Time         `json:"first_seen"`
	LastSeen        time.Time         `json:"last_seen"`
	TimesSeen       int               `json:"times_seen"`
}

// Summary aggregates inventory-wide counts for the stats endpoint.
type Summary struct {
	Devices      int            `json:"devices"`
	Runs         int            `json:"runs"`
	ByDeviceType map[string]int `json:"by_device_type"`
	ByMethod     map[string]int `json:"by_method"`
}

// New opens (or creates) the database at path and applies the pragmas
// the pure-Go driver needs set as statements rather than DSN params.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// SQLite performs best with a single write connection; WAL keeps
	// readers concurrent.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// Tx executes fn within a transaction, committing on nil and rolling
// back otherwise.
func (s *Store) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
		}
		return err
	}
	return tx.Commit()
}

// SaveRun records one analysis run: the run row, a classification row
// per device, and an upsert into the device inventory. Returns the new
// run ID.
func (s *Store) SaveRun(ctx context.Context, source string, stats models.RunStats, results []models.ClassificationResult) (string, error) {
	runID := uuid.NewString()
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return "", fmt.Errorf("marshal run stats: %w", err)
	}

	err = s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, source, started_at, total_devices, stats)
			VALUES (?, ?, ?, ?, ?)`,
			runID, source, time.Now().UTC().Format(time.RFC3339), stats.TotalDevices, string(statsJSON),
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for i := range results {
			if err := insertClassification(ctx, tx, runID, &results[i]); err != nil {
				return err
			}
			if err := upsertDevice(ctx, tx, &results[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return runID, nil
}

func insertClassification(ctx context.Context, tx *sql.Tx, runID string, r *models.ClassificationResult) error {
	notes, err := json.Marshal(r.Notes)
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}
	var externalScore interface{}
	if r.ExternalScore != nil {
		externalScore = *r.ExternalScore
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO classifications (
			run_id, device_id, assigned_address, hostname, vendor,
			vendor_confidence, device_type, device_name, operating_system,
			method, external_score, overall_confidence, raw_fingerprint,
			vendor_class, error_note, notes, classified_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, r.DeviceID, r.AssignedAddress, r.Hostname, r.Vendor,
		string(r.VendorConfidence), string(r.DeviceType), r.DeviceName, r.OperatingSystem,
		string(r.Method), externalScore, string(r.OverallConfidence), r.RawFingerprint,
		r.VendorClass, r.ErrorNote, string(notes), r.ClassifiedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert classification %s: %w", r.DeviceID, err)
	}
	return nil
}

func upsertDevice(ctx context.Context, tx *sql.Tx, r *models.ClassificationResult) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO devices (
			device_id, hostname, vendor, device_type, operating_system,
			method, overall_confidence, first_seen, last_seen, times_seen
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(device_id) DO UPDATE SET
			hostname         = CASE WHEN excluded.hostname != '' THEN excluded.hostname ELSE devices.hostname END,
			vendor           = CASE WHEN excluded.vendor != '' THEN excluded.vendor ELSE devices.vendor END,
			device_type      = CASE WHEN excluded.device_type != '' THEN excluded.device_type ELSE devices.device_type END,
			operating_system = CASE WHEN excluded.operating_system != '' THEN excluded.operating_system ELSE devices.operating_system END,
			method           = excluded.method,
			overall_confidence = excluded.overall_confidence,
			last_seen        = excluded.last_seen,
			times_seen       = devices.times_seen + 1`,
		r.DeviceID, r.Hostname, r.Vendor, string(r.DeviceType), r.OperatingSystem,
		string(r.Method), string(r.OverallConfidence), now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert device %s: %w", r.DeviceID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, started_at, stats
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt, statsJSON string
		if err := rows.Scan(&r.ID, &r.Source, &startedAt, &statsJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if err := json.Unmarshal([]byte(statsJSON), &r.Stats); err != nil {
			return nil, fmt.Errorf("unmarshal run stats: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns one run by ID, or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source, started_at, stats
		FROM runs WHERE id = ?`, runID)

	var r Run
	var startedAt, statsJSON string
	err := row.Scan(&r.ID, &r.Source, &startedAt, &statsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if err := json.Unmarshal([]byte(statsJSON), &r.Stats); err != nil {
		return nil, fmt.Errorf("unmarshal run stats: %w", err)
	}
	return &r, nil
}

// RunResults returns the classification rows for one run, sorted by
// device ID.
func (s *Store) RunResults(ctx context.Context, runID string) ([]models.ClassificationResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT device_id, assigned_address, hostname, vendor, vendor_confidence,
		       device_type, device_name, operating_system, method, external_score,
		       overall_confidence, raw_fingerprint, vendor_class, error_note,
		       notes, classified_at
		FROM classifications WHERE run_id = ? ORDER BY device_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run results: %w", err)
	}
	defer rows.Close()

	var results []models.ClassificationResult
	for rows.Next() {
		var (
			r             models.ClassificationResult
			vendorConf    string
			deviceType    string
			method        string
			overallConf   string
			externalScore sql.NullInt64
			notesJSON     string
			classifiedAt  string
		)
		if err := rows.Scan(&r.DeviceID, &r.AssignedAddress, &r.Hostname, &r.Vendor,
			&vendorConf, &deviceType, &r.DeviceName, &r.OperatingSystem, &method,
			&externalScore, &overallConf, &r.RawFingerprint, &r.VendorClass,
			&r.ErrorNote, &notesJSON, &classifiedAt); err != nil {
			return nil, fmt.Errorf("scan classification: %w", err)
		}
		r.VendorConfidence = models.Confidence(vendorConf)
		r.DeviceType = models.DeviceType(deviceType)
		r.Method = models.Method(method)
		r.OverallConfidence = models.Confidence(overallConf)
		if externalScore.Valid {
			score := int(externalScore.Int64)
			r.ExternalScore = &score
		}
		if notesJSON != "" && notesJSON != "null" {
			if err := json.Unmarshal([]byte(notesJSON), &r.Notes); err != nil {
				return nil, fmt.Errorf("unmarshal notes: %w", err)
			}
		}
		r.ClassifiedAt, _ = time.Parse(time.RFC3339, classifiedAt)
		results = append(results, r)
	}
	return results, rows.Err()
}

// ListDevices returns the device inventory sorted by most recently seen.
func (s *Store) ListDevices(ctx context.Context) ([]Device, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT device_id, hostname, vendor, device_type, operating_system,
		       method, overall_confidence, first_seen, last_seen, times_seen
		FROM devices ORDER BY last_seen DESC, device_id`)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows.Scan)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// GetDevice returns one inventory row by normalized MAC.
func (s *Store) GetDevice(ctx context.Context, deviceID string) (*Device, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT device_id, hostname, vendor, device_type, operating_system,
		       method, overall_confidence, first_seen, last_seen, times_seen
		FROM devices WHERE device_id = ?`, strings.ToLower(deviceID))

	d, err := scanDevice(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDevice(scan func(dest ...interface{}) error) (Device, error) {
	var (
		d          Device
		deviceType string
		method     string
		confidence string
		firstSeen  string
		lastSeen   string
	)
	err := scan(&d.DeviceID, &d.Hostname, &d.Vendor, &deviceType, &d.OperatingSystem,
		&method, &confidence, &firstSeen, &lastSeen, &d.TimesSeen)
	if err != nil {
		return Device{}, err
	}
	d.DeviceType = models.DeviceType(deviceType)
	d.Method = models.Method(method)
	d.Confidence = models.Confidence(confidence)
	d.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
	d.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)
	return d, nil
}

// Stats aggregates inventory-wide counts.
func (s *Store) Stats(ctx context.Context) (*Summary, error) {
	sum := &Summary{
		ByDeviceType: make(map[string]int),
		ByMethod:     make(map[string]int),
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM devices").Scan(&sum.Devices); err != nil {
		return nil, fmt.Errorf("count devices: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&sum.Runs); err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT device_type, COUNT(*) FROM devices GROUP BY device_type`)
	if err != nil {
		return nil, fmt.Errorf("group by device type: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var dt string
		var n int
		if err := rows.Scan(&dt, &n); err != nil {
			return nil, fmt.Errorf("scan device type count: %w", err)
		}
		if dt == "" {
			dt = "unclassified"
		}
		sum.ByDeviceType[dt] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	methodRows, err := s.db.QueryContext(ctx, `
		SELECT method, COUNT(*) FROM devices GROUP BY method`)
	if err != nil {
		return nil, fmt.Errorf("group by method: %w", err)
	}
	defer methodRows.Close()
	for methodRows.Next() {
		var m string
		var n int
		if err := methodRows.Scan(&m, &n); err != nil {
			return nil, fmt.Errorf("scan method count: %w", err)
		}
		sum.ByMethod[m] = n
	}
	return sum, methodRows.Err()
}
