package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"innkeeper/internal/models"
)

func (db *DB) CreateRoomType(ctx context.Context, rt *models.RoomType) error {
	query := `INSERT INTO room_types (property_id, name, max_occupancy, description, is_active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, rt.PropertyID, rt.Name, rt.MaxOccupancy, rt.Description, rt.IsActive, now, now)
	if err != nil {
		return fmt.Errorf("failed to create room type: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rt.ID = id
	rt.CreatedAt = now
	rt.UpdatedAt = now
	return nil
}

func (db *DB) GetRoomType(ctx context.Context, id int64) (*models.RoomType, error) {
	query := `SELECT id, property_id, name, max_occupancy, COALESCE(description, ''), is_active, created_at, updated_at
              FROM room_types WHERE id = ?`
	var rt models.RoomType
	err := db.QueryRowContext(ctx, query, id).Scan(
		&rt.ID, &rt.PropertyID, &rt.Name, &rt.MaxOccupancy, &rt.Description,
		&rt.IsActive, &rt.CreatedAt, &rt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room type %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get room type: %w", err)
	}
	return &rt, nil
}

func (db *DB) ListRoomTypes(ctx context.Context, propertyID int64) ([]*models.RoomType, error) {
	query := `SELECT id, property_id, name, max_occupancy, COALESCE(description, ''), is_active, created_at, updated_at
              FROM room_types WHERE property_id = ? AND is_active = 1 ORDER BY name`
	rows, err := db.QueryContext(ctx, query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list room types: %w", err)
	}
	defer rows.Close()

	var roomTypes []*models.RoomType
	for rows.Next() {
		var rt models.RoomType
		err := rows.Scan(&rt.ID, &rt.PropertyID, &rt.Name, &rt.MaxOccupancy,
			&rt.Description, &rt.IsActive, &rt.CreatedAt, &rt.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room type: %w", err)
		}
		roomTypes = append(roomTypes, &rt)
	}
	return roomTypes, rows.Err()
}

func (db *DB) DeactivateRoomType(ctx context.Context, id int64) error {
	query := `UPDATE room_types SET is_active = 0, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate room type: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("room type %d: %w", id, ErrNotFound)
	}
	return nil
}

func (db *DB) CreateRoom(ctx context.Context, room *models.Room) error {
	query := `INSERT INTO rooms (room_type_id, number, is_active, created_at) VALUES (?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, room.RoomTypeID, room.Number, room.IsActive, now)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	room.ID = id
	room.CreatedAt = now
	return nil
}

func (db *DB) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	query := `SELECT id, room_type_id, number, is_active, created_at FROM rooms WHERE id = ?`
	var room models.Room
	err := db.QueryRowContext(ctx, query, id).Scan(&room.ID, &room.RoomTypeID, &room.Number, &room.IsActive, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return &room, nil
}

func (db *DB) CreateRatePlan(ctx context.Context, plan *models.RatePlan) error {
	query := `INSERT INTO rate_plans (property_id, room_type_id, name, currency, base_price_cents,
                is_refundable, min_stay_nights, max_stay_nights, cancellation_policy_id)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var policyID any
	if plan.CancellationPolicyID != 0 {
		policyID = plan.CancellationPolicyID
	}
	result, err := db.ExecContext(ctx, query, plan.PropertyID, plan.RoomTypeID, plan.Name,
		plan.Currency, plan.BasePriceCents, plan.IsRefundable,
		plan.MinStayNights, plan.MaxStayNights, policyID)
	if err != nil {
		return fmt.Errorf("failed to create rate plan: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	plan.ID = id
	return nil
}

func (db *DB) GetRatePlan(ctx context.Context, id int64) (*models.RatePlan, error) {
	query := `SELECT id, property_id, room_type_id, name, currency, base_price_cents,
                     is_refundable, min_stay_nights, max_stay_nights, COALESCE(cancellation_policy_id, 0)
              FROM rate_plans WHERE id = ?`
	var plan models.RatePlan
	err := db.QueryRowContext(ctx, query, id).Scan(
		&plan.ID, &plan.PropertyID, &plan.RoomTypeID, &plan.Name, &plan.Currency,
		&plan.BasePriceCents, &plan.IsRefundable, &plan.MinStayNights,
		&plan.MaxStayNights, &plan.CancellationPolicyID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rate plan %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rate plan: %w", err)
	}
	return &plan, nil
}

// UpsertDailyPriceOverride sets the override for one (rate_plan, date);
// at most one override per pair is kept.
func (db *DB) UpsertDailyPriceOverride(ctx context.Context, override *models.DailyPriceOverride) error {
	query := `INSERT INTO daily_price_overrides (rate_plan_id, date, price_cents)
              VALUES (?, ?, ?)
              ON CONFLICT(rate_plan_id, date) DO UPDATE SET price_cents = excluded.price_cents`
	_, err := db.ExecContext(ctx, query, override.RatePlanID,
		override.Date.Format(models.DateFormat), override.PriceCents)
	if err != nil {
		return fmt.Errorf("failed to upsert daily price override: %w", err)
	}
	return nil
}

// OverridesForRange returns overrides touching [from, to).
func (db *DB) OverridesForRange(ctx context.Context, ratePlanID int64, from, to time.Time) ([]models.DailyPriceOverride, error) {
	query := `SELECT id, rate_plan_id, date, price_cents FROM daily_price_overrides
              WHERE rate_plan_id = ? AND date >= ? AND date < ?`
	rows, err := db.QueryContext(ctx, query, ratePlanID,
		from.Format(models.DateFormat), to.Format(models.DateFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to get price overrides: %w", err)
	}
	defer rows.Close()

	var overrides []models.DailyPriceOverride
	for rows.Next() {
		var o models.DailyPriceOverride
		var dateStr string
		if err := rows.Scan(&o.ID, &o.RatePlanID, &dateStr, &o.PriceCents); err != nil {
			return nil, fmt.Errorf("failed to scan price override: %w", err)
		}
		if o.Date, err = time.Parse(models.DateFormat, dateStr); err != nil {
			return nil, fmt.Errorf("failed to parse override date %s: %w", dateStr, err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

func (db *DB) CreateCancellationPolicy(ctx context.Context, policy *models.CancellationPolicy) error {
	query := `INSERT INTO cancellation_policies (name, description, free_cancel_until_hours, penalty_percent)
              VALUES (?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query, policy.Name, policy.Description,
		policy.FreeCancelUntilHours, policy.PenaltyPercent)
	if err != nil {
		return fmt.Errorf("failed to create cancellation policy: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	policy.ID = id
	return nil
}

func (db *DB) GetCancellationPolicy(ctx context.Context, id int64) (*models.CancellationPolicy, error) {
	query := `SELECT id, name, COALESCE(description, ''), free_cancel_until_hours, penalty_percent
              FROM cancellation_policies WHERE id = ?`
	var policy models.CancellationPolicy
	err := db.QueryRowContext(ctx, query, id).Scan(&policy.ID, &policy.Name,
		&policy.Description, &policy.FreeCancelUntilHours, &policy.PenaltyPercent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("cancellation policy %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cancellation policy: %w", err)
	}
	return &policy, nil
}
