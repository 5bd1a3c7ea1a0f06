package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the relational store. All reservation-commit mutations run in
// transactions opened here; nothing outside this package writes
// inventory_days.booked_rooms.
type DB struct {
	*sql.DB
	log zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// busy_timeout keeps concurrent commits queued instead of failing
	// immediately; foreign_keys enforces referential integrity.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	var dbLogger zerolog.Logger
	if logger != nil {
		dbLogger = logger.With().Str("component", "database").Logger()
	}

	dbLogger.Info().Str("path", path).Msg("database initialized")
	return &DB{DB: db, log: dbLogger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS room_types (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            property_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            max_occupancy INTEGER NOT NULL DEFAULT 2,
            description TEXT,
            is_active BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS rooms (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            room_type_id INTEGER NOT NULL REFERENCES room_types(id),
            number TEXT NOT NULL,
            is_active BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS cancellation_policies (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            description TEXT,
            free_cancel_until_hours INTEGER NOT NULL DEFAULT 0,
            penalty_percent REAL NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS rate_plans (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            property_id INTEGER NOT NULL,
            room_type_id INTEGER NOT NULL REFERENCES room_types(id),
            name TEXT NOT NULL,
            currency TEXT NOT NULL DEFAULT 'USD',
            base_price_cents INTEGER NOT NULL CHECK (base_price_cents > 0),
            is_refundable BOOLEAN NOT NULL DEFAULT 1,
            min_stay_nights INTEGER NOT NULL DEFAULT 0,
            max_stay_nights INTEGER NOT NULL DEFAULT 0,
            cancellation_policy_id INTEGER REFERENCES cancellation_policies(id)
        )`,
		`CREATE TABLE IF NOT EXISTS daily_price_overrides (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            rate_plan_id INTEGER NOT NULL REFERENCES rate_plans(id),
            date TEXT NOT NULL,
            price_cents INTEGER NOT NULL CHECK (price_cents > 0),
            UNIQUE(rate_plan_id, date)
        )`,
		`CREATE TABLE IF NOT EXISTS inventory_days (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            room_type_id INTEGER NOT NULL REFERENCES room_types(id),
            property_id INTEGER NOT NULL,
            date TEXT NOT NULL,
            total_rooms INTEGER NOT NULL DEFAULT 0 CHECK (total_rooms >= 0),
            booked_rooms INTEGER NOT NULL DEFAULT 0 CHECK (booked_rooms >= 0),
            closed_for_sale BOOLEAN NOT NULL DEFAULT 0,
            UNIQUE(room_type_id, date)
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            reference TEXT NOT NULL UNIQUE,
            property_id INTEGER NOT NULL,
            room_type_id INTEGER NOT NULL REFERENCES room_types(id),
            room_id INTEGER REFERENCES rooms(id),
            rate_plan_id INTEGER NOT NULL REFERENCES rate_plans(id),
            guest_name TEXT,
            guest_email TEXT,
            guest_phone TEXT,
            guests_count INTEGER NOT NULL DEFAULT 1,
            special_requests TEXT,
            check_in TEXT NOT NULL,
            check_out TEXT NOT NULL,
            rooms_count INTEGER NOT NULL DEFAULT 1,
            total_price_cents INTEGER NOT NULL DEFAULT 0,
            currency TEXT NOT NULL DEFAULT 'USD',
            status TEXT NOT NULL DEFAULT 'pending',
            hold_until DATETIME,
            cancel_reason TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            version INTEGER NOT NULL DEFAULT 1
        )`,

		`CREATE INDEX IF NOT EXISTS idx_inventory_days_room_type_date ON inventory_days(room_type_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_overrides_rate_plan_date ON daily_price_overrides(rate_plan_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_room_type ON bookings(room_type_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_room ON bookings(room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_property ON bookings(property_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_hold_until ON bookings(hold_until)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_guest_email ON bookings(guest_email)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back on error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *DB) Close() error {
	return db.DB.Close()
}
