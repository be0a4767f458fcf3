package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB for the dispatch service.
type DB struct {
	*sql.DB

	// Path is the on-disk location, kept for the backup service.
	Path string
}

// NewDB opens the database at path and runs migrations.
//
// Transactions are opened with BEGIN IMMEDIATE (_txlock=immediate) so every
// guarded check-then-write serializes against concurrent writers; the busy
// timeout turns lock contention into a short wait instead of an instant
// SQLITE_BUSY.
func NewDB(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000&_fk=1", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{DB: db, Path: path}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Resource directory: vehicles
		`CREATE TABLE IF NOT EXISTS vehicles (
			id TEXT PRIMARY KEY,
			capacity INTEGER NOT NULL,
			terminal TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Resource directory: drivers
		`CREATE TABLE IF NOT EXISTS drivers (
			id TEXT PRIMARY KEY,
			name TEXT,
			terminal TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Route directory
		`CREATE TABLE IF NOT EXISTS routes (
			id TEXT PRIMARY KEY,
			name TEXT,
			terminal TEXT NOT NULL,
			duration_hours REAL NOT NULL,
			fare INTEGER NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Schedules: one planned departure slot per row.
		// operating_date is stored as YYYY-MM-DD text so the date-scoped
		// unique indexes below are exact.
		`CREATE TABLE IF NOT EXISTS schedules (
			id TEXT PRIMARY KEY,
			operating_date TEXT NOT NULL,
			route_id TEXT NOT NULL,
			departure_time TEXT NOT NULL,
			vehicle_id TEXT NOT NULL,
			driver_id TEXT NOT NULL,
			customer_care_id TEXT,
			capacity INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'planned',
			trip_materialized BOOLEAN NOT NULL DEFAULT 0,
			generated_trip_id TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// The no-double-booking invariant lives in storage: at most one
		// active-status schedule per (date, vehicle) and (date, driver).
		// The application pre-check only exists to produce a friendly error.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_schedules_vehicle_day
			ON schedules(operating_date, vehicle_id)
			WHERE status IN ('planned', 'confirmed', 'in_progress')`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_schedules_driver_day
			ON schedules(operating_date, driver_id)
			WHERE status IN ('planned', 'confirmed', 'in_progress')`,

		// Trips: materialized departures. Capacity and fare are snapshots.
		`CREATE TABLE IF NOT EXISTS trips (
			id TEXT PRIMARY KEY,
			sequence_number TEXT NOT NULL UNIQUE,
			route_id TEXT NOT NULL,
			vehicle_id TEXT NOT NULL,
			driver_id TEXT NOT NULL,
			customer_care_id TEXT,
			scheduled_departure DATETIME NOT NULL,
			scheduled_arrival DATETIME NOT NULL,
			capacity INTEGER NOT NULL,
			fare INTEGER NOT NULL,
			source_schedule_id TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (source_schedule_id) REFERENCES schedules(id)
		)`,

		// Monthly sequence counters, bumped inside the synthesis transaction.
		`CREATE TABLE IF NOT EXISTS trip_sequences (
			month TEXT PRIMARY KEY,
			counter INTEGER NOT NULL
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_schedules_date ON schedules(operating_date, status)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_departure ON trips(scheduled_departure)`,
		`CREATE INDEX IF NOT EXISTS idx_vehicles_terminal ON vehicles(terminal, is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_drivers_terminal ON drivers(terminal, is_active)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
