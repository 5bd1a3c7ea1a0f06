package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"innkeeper/internal/models"
)

// Available returns sellable rooms for one room type and date. A missing
// ledger row means zero availability: inventory must be provisioned
// explicitly, absence is never open-ended. A booked count above total is
// a ledger bug; it is logged and clamped, never exposed as negative.
func (db *DB) Available(ctx context.Context, roomTypeID int64, date time.Time) (int, error) {
	day, err := db.GetInventoryDay(ctx, roomTypeID, date)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if day.BookedRooms > day.TotalRooms {
		db.log.Error().
			Int64("room_type_id", roomTypeID).
			Str("date", date.Format(models.DateFormat)).
			Int("booked", day.BookedRooms).
			Int("total", day.TotalRooms).
			Msg("inventory ledger overbooked; clamping availability to zero")
		return 0, nil
	}
	return day.Available(), nil
}

func (db *DB) GetInventoryDay(ctx context.Context, roomTypeID int64, date time.Time) (*models.InventoryDay, error) {
	query := `SELECT id, room_type_id, property_id, date, total_rooms, booked_rooms, closed_for_sale
              FROM inventory_days WHERE room_type_id = ? AND date = ?`

	day, err := scanInventoryDay(db.QueryRowContext(ctx, query, roomTypeID, date.Format(models.DateFormat)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("inventory day %d/%s: %w", roomTypeID, date.Format(models.DateFormat), ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get inventory day: %w", err)
	}
	return day, nil
}

// InventoryRange returns ledger rows for [from, to) keyed by date string.
// Dates without a row are simply absent from the map.
func (db *DB) InventoryRange(ctx context.Context, roomTypeID int64, from, to time.Time) (map[string]models.InventoryDay, error) {
	query := `SELECT id, room_type_id, property_id, date, total_rooms, booked_rooms, closed_for_sale
              FROM inventory_days WHERE room_type_id = ? AND date >= ? AND date < ?`

	rows, err := db.QueryContext(ctx, query, roomTypeID,
		from.Format(models.DateFormat), to.Format(models.DateFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory range: %w", err)
	}
	defer rows.Close()

	days := make(map[string]models.InventoryDay)
	for rows.Next() {
		day, err := scanInventoryDay(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory day: %w", err)
		}
		days[day.Date.Format(models.DateFormat)] = *day
	}
	return days, rows.Err()
}

// UpsertInventoryDay provisions capacity for one room type and date.
// booked_rooms is owned by the reservation commit path and is never
// touched here.
func (db *DB) UpsertInventoryDay(ctx context.Context, day *models.InventoryDay) error {
	query := `INSERT INTO inventory_days (room_type_id, property_id, date, total_rooms, booked_rooms, closed_for_sale)
              VALUES (?, ?, ?, ?, 0, ?)
              ON CONFLICT(room_type_id, date) DO UPDATE SET
                  total_rooms = excluded.total_rooms,
                  closed_for_sale = excluded.closed_for_sale`

	_, err := db.ExecContext(ctx, query,
		day.RoomTypeID,
		day.PropertyID,
		day.Date.Format(models.DateFormat),
		day.TotalRooms,
		day.ClosedForSale,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert inventory day: %w", err)
	}
	return nil
}

// SetClosedForSale flips the stop-sell flag for a single date.
func (db *DB) SetClosedForSale(ctx context.Context, roomTypeID int64, date time.Time, closed bool) error {
	query := `UPDATE inventory_days SET closed_for_sale = ? WHERE room_type_id = ? AND date = ?`
	result, err := db.ExecContext(ctx, query, closed, roomTypeID, date.Format(models.DateFormat))
	if err != nil {
		return fmt.Errorf("failed to set closed_for_sale: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("inventory day %d/%s: %w", roomTypeID, date.Format(models.DateFormat), ErrNotFound)
	}
	return nil
}

// reserveNightTx atomically takes count rooms for one night. The guard
// clause makes the availability check and the increment a single
// statement, so two racing commits can never both pass it.
func reserveNightTx(ctx context.Context, tx *sql.Tx, roomTypeID int64, date time.Time, count int) error {
	query := `UPDATE inventory_days
              SET booked_rooms = booked_rooms + ?
              WHERE room_type_id = ? AND date = ?
                AND closed_for_sale = 0
                AND booked_rooms + ? <= total_rooms`

	result, err := tx.ExecContext(ctx, query, count, roomTypeID, date.Format(models.DateFormat), count)
	if err != nil {
		return fmt.Errorf("failed to reserve inventory: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		// Missing row, closed day or not enough rooms left.
		return fmt.Errorf("room type %d on %s: %w", roomTypeID, date.Format(models.DateFormat), ErrInsufficientInventory)
	}
	return nil
}

// releaseNightTx returns count rooms for one night, clamped at zero.
func releaseNightTx(ctx context.Context, tx *sql.Tx, roomTypeID int64, date time.Time, count int) error {
	query := `UPDATE inventory_days
              SET booked_rooms = MAX(booked_rooms - ?, 0)
              WHERE room_type_id = ? AND date = ?`

	if _, err := tx.ExecContext(ctx, query, count, roomTypeID, date.Format(models.DateFormat)); err != nil {
		return fmt.Errorf("failed to release inventory: %w", err)
	}
	return nil
}

// reserveRangeTx reserves every night of [checkIn, checkOut). Any failed
// night aborts the enclosing transaction, so partial reservations are
// rolled back with it.
func reserveRangeTx(ctx context.Context, tx *sql.Tx, roomTypeID int64, checkIn, checkOut time.Time, count int) error {
	for _, night := range models.DatesBetween(checkIn, checkOut) {
		if err := reserveNightTx(ctx, tx, roomTypeID, night, count); err != nil {
			return err
		}
	}
	return nil
}

func releaseRangeTx(ctx context.Context, tx *sql.Tx, roomTypeID int64, checkIn, checkOut time.Time, count int) error {
	for _, night := range models.DatesBetween(checkIn, checkOut) {
		if err := releaseNightTx(ctx, tx, roomTypeID, night, count); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInventoryDay(row rowScanner) (*models.InventoryDay, error) {
	var day models.InventoryDay
	var dateStr string
	err := row.Scan(&day.ID, &day.RoomTypeID, &day.PropertyID, &dateStr,
		&day.TotalRooms, &day.BookedRooms, &day.ClosedForSale)
	if err != nil {
		return nil, err
	}
	day.Date, err = time.Parse(models.DateFormat, dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse inventory date %s: %w", dateStr, err)
	}
	return &day, nil
}
