package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"innkeeper/internal/models"
)

// IsRoomFree reports whether no inventory-holding booking pinned to the
// room intersects [checkIn, checkOut). Half-open ranges: a stay ending
// the day another begins does not block it. A non-zero excludeBookingID
// ignores that booking's own stay, so a date change is never blocked by
// the nights it is about to give up.
func (db *DB) IsRoomFree(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeBookingID int64) (bool, error) {
	count, err := countRoomConflicts(ctx, db.DB, roomID, checkIn, checkOut, excludeBookingID)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// countRoomConflicts counts overlapping holding bookings on a pinned
// room, excluding excludeID (for date changes on the same booking).
func countRoomConflicts(ctx context.Context, q querier, roomID int64, checkIn, checkOut time.Time, excludeID int64) (int, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE room_id = ? AND id != ?
                AND status IN (` + holdingStatusPlaceholders() + `)
                AND check_in < ? AND check_out > ?`

	args := []any{roomID, excludeID}
	for _, s := range models.HoldingStatuses() {
		args = append(args, string(s))
	}
	args = append(args, checkOut.Format(models.DateFormat), checkIn.Format(models.DateFormat))

	var count int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count room conflicts: %w", err)
	}
	return count, nil
}

func holdingStatusPlaceholders() string {
	return strings.TrimSuffix(strings.Repeat("?, ", len(models.HoldingStatuses())), ", ")
}

// CommitBooking re-validates availability and persists the booking as a
// single atomic unit. Pooled bookings reserve every night in the ledger;
// pinned bookings pass the overlap check instead. Any failed night rolls
// back the whole commit.
func (db *DB) CommitBooking(ctx context.Context, booking *models.Booking) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if booking.Pinned() {
			conflicts, err := countRoomConflicts(ctx, tx, booking.RoomID, booking.CheckIn, booking.CheckOut, 0)
			if err != nil {
				return err
			}
			if conflicts > 0 {
				return fmt.Errorf("room %d: %w", booking.RoomID, ErrRoomNotFree)
			}
		} else {
			if err := reserveRangeTx(ctx, tx, booking.RoomTypeID, booking.CheckIn, booking.CheckOut, booking.RoomsCount); err != nil {
				return err
			}
		}
		return insertBookingTx(ctx, tx, booking)
	})
}

func insertBookingTx(ctx context.Context, tx *sql.Tx, booking *models.Booking) error {
	query := `INSERT INTO bookings (
                reference, property_id, room_type_id, room_id, rate_plan_id,
                guest_name, guest_email, guest_phone, guests_count, special_requests,
                check_in, check_out, rooms_count, total_price_cents, currency,
                status, hold_until, created_at, updated_at, version
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now()
	var roomID any
	if booking.RoomID != 0 {
		roomID = booking.RoomID
	}

	result, err := tx.ExecContext(ctx, query,
		booking.Reference,
		booking.PropertyID,
		booking.RoomTypeID,
		roomID,
		booking.RatePlanID,
		booking.GuestName,
		booking.GuestEmail,
		booking.GuestPhone,
		booking.GuestsCount,
		booking.SpecialRequests,
		booking.CheckIn.Format(models.DateFormat),
		booking.CheckOut.Format(models.DateFormat),
		booking.RoomsCount,
		booking.TotalPriceCents,
		booking.Currency,
		string(booking.Status),
		booking.HoldUntil,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

// TransitionBooking applies a lifecycle transition with optimistic
// version CAS. Leaving an inventory-holding status releases the booked
// nights in the same transaction, so inventory can never leak or
// double-release.
func (db *DB) TransitionBooking(ctx context.Context, id, fromVersion int64, next models.BookingStatus, reason string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		booking, err := getBookingTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !booking.Status.CanTransition(next) {
			return fmt.Errorf("booking %d: %s -> %s: %w", id, booking.Status, next, ErrInvalidTransition)
		}

		query := `UPDATE bookings SET status = ?, cancel_reason = ?, version = version + 1, updated_at = ?
                  WHERE id = ? AND version = ?`
		result, err := tx.ExecContext(ctx, query, string(next), reason, time.Now(), id, fromVersion)
		if err != nil {
			return fmt.Errorf("failed to update booking status: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return ErrConcurrencyConflict
		}

		if booking.Status.HoldsInventory() && !next.HoldsInventory() && !booking.Pinned() {
			if err := releaseRangeTx(ctx, tx, booking.RoomTypeID, booking.CheckIn, booking.CheckOut, booking.RoomsCount); err != nil {
				return err
			}
		}
		return nil
	})
}

// ChangeBookingDates moves a booking to a new range as one transaction:
// release the old nights, reserve the new ones, update the row. Never
// two independent operations.
func (db *DB) ChangeBookingDates(ctx context.Context, id, fromVersion int64, newCheckIn, newCheckOut time.Time, newTotalCents int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		booking, err := getBookingTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if booking.Status.Terminal() {
			return fmt.Errorf("booking %d is %s: %w", id, booking.Status, ErrInvalidTransition)
		}

		if booking.Pinned() {
			conflicts, err := countRoomConflicts(ctx, tx, booking.RoomID, newCheckIn, newCheckOut, booking.ID)
			if err != nil {
				return err
			}
			if conflicts > 0 {
				return fmt.Errorf("room %d: %w", booking.RoomID, ErrRoomNotFree)
			}
		} else {
			if booking.Status.HoldsInventory() {
				if err := releaseRangeTx(ctx, tx, booking.RoomTypeID, booking.CheckIn, booking.CheckOut, booking.RoomsCount); err != nil {
					return err
				}
			}
			if err := reserveRangeTx(ctx, tx, booking.RoomTypeID, newCheckIn, newCheckOut, booking.RoomsCount); err != nil {
				return err
			}
		}

		query := `UPDATE bookings SET check_in = ?, check_out = ?, total_price_cents = ?, version = version + 1, updated_at = ?
                  WHERE id = ? AND version = ?`
		result, err := tx.ExecContext(ctx, query,
			newCheckIn.Format(models.DateFormat),
			newCheckOut.Format(models.DateFormat),
			newTotalCents,
			time.Now(),
			id,
			fromVersion,
		)
		if err != nil {
			return fmt.Errorf("failed to update booking dates: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return ErrConcurrencyConflict
		}
		return nil
	})
}

const bookingColumns = `id, reference, property_id, room_type_id, room_id, rate_plan_id,
                 guest_name, guest_email, guest_phone, guests_count, special_requests,
                 check_in, check_out, rooms_count, total_price_cents, currency,
                 status, hold_until, cancel_reason, created_at, updated_at, version`

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("booking %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (db *DB) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE reference = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, reference))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("booking %s: %w", reference, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func getBookingTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("booking %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get booking in tx: %w", err)
	}
	return booking, nil
}

// BookingFilter narrows ListBookings. Zero values mean "any".
type BookingFilter struct {
	PropertyID int64
	RoomTypeID int64
	GuestEmail string
	Status     models.BookingStatus
	Limit      int
}

func (db *DB) ListBookings(ctx context.Context, filter BookingFilter) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE 1=1`
	var args []any

	if filter.PropertyID != 0 {
		query += ` AND property_id = ?`
		args = append(args, filter.PropertyID)
	}
	if filter.RoomTypeID != 0 {
		query += ` AND room_type_id = ?`
		args = append(args, filter.RoomTypeID)
	}
	if filter.GuestEmail != "" {
		query += ` AND guest_email = ?`
		args = append(args, filter.GuestEmail)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

// FindExpiredHolds returns bookings still holding inventory whose hold
// window lapsed before now.
func (db *DB) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE status IN (?, ?) AND hold_until IS NOT NULL AND hold_until < ?
              ORDER BY hold_until ASC LIMIT ?`

	rows, err := db.QueryContext(ctx, query,
		string(models.StatusPending), string(models.StatusHold), now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired holds: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var roomID sql.NullInt64
	var guestName, guestEmail, guestPhone, specialRequests, cancelReason sql.NullString
	var checkInStr, checkOutStr, statusStr string
	var holdUntil sql.NullTime

	err := row.Scan(
		&b.ID, &b.Reference, &b.PropertyID, &b.RoomTypeID, &roomID, &b.RatePlanID,
		&guestName, &guestEmail, &guestPhone, &b.GuestsCount, &specialRequests,
		&checkInStr, &checkOutStr, &b.RoomsCount, &b.TotalPriceCents, &b.Currency,
		&statusStr, &holdUntil, &cancelReason, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}

	b.RoomID = roomID.Int64
	b.GuestName = guestName.String
	b.GuestEmail = guestEmail.String
	b.GuestPhone = guestPhone.String
	b.SpecialRequests = specialRequests.String
	b.CancelReason = cancelReason.String
	if holdUntil.Valid {
		t := holdUntil.Time
		b.HoldUntil = &t
	}

	status, ok := models.ParseBookingStatus(statusStr)
	if !ok {
		return nil, fmt.Errorf("unknown booking status %q", statusStr)
	}
	b.Status = status

	if b.CheckIn, err = time.Parse(models.DateFormat, checkInStr); err != nil {
		return nil, fmt.Errorf("failed to parse check_in %s: %w", checkInStr, err)
	}
	if b.CheckOut, err = time.Parse(models.DateFormat, checkOutStr); err != nil {
		return nil, fmt.Errorf("failed to parse check_out %s: %w", checkOutStr, err)
	}
	return &b, nil
}
