package models

import "time"

type RoomType struct {
	ID           int64     `json:"id" yaml:"id"`
	PropertyID   int64     `json:"property_id" yaml:"property_id"`
	Name         string    `json:"name" yaml:"name"`
	MaxOccupancy int       `json:"max_occupancy" yaml:"max_occupancy"`
	Description  string    `json:"description" yaml:"description"`
	IsActive     bool      `json:"is_active" yaml:"is_active"`
	CreatedAt    time.Time `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"-"`
}

// Room is a physical unit. Bookings reference it only when they must pin
// a concrete room; pooled bookings go through the room type instead.
type Room struct {
	ID         int64     `json:"id"`
	RoomTypeID int64     `json:"room_type_id"`
	Number     string    `json:"number"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

type RatePlan struct {
	ID                   int64  `json:"id"`
	PropertyID           int64  `json:"property_id"`
	RoomTypeID           int64  `json:"room_type_id"`
	Name                 string `json:"name"`
	Currency             string `json:"currency"`
	BasePriceCents       int64  `json:"base_price_cents"`
	IsRefundable         bool   `json:"is_refundable"`
	MinStayNights        int    `json:"min_stay_nights"`
	MaxStayNights        int    `json:"max_stay_nights"`
	CancellationPolicyID int64  `json:"cancellation_policy_id,omitempty"`
}

// DailyPriceOverride supersedes the rate plan base price for one calendar
// date. At most one override exists per (rate_plan_id, date).
type DailyPriceOverride struct {
	ID         int64     `json:"id"`
	RatePlanID int64     `json:"rate_plan_id"`
	Date       time.Time `json:"date"`
	PriceCents int64     `json:"price_cents"`
}

// InventoryDay is the ledger row for one room type on one calendar date.
// BookedRooms is maintained by the reservation commit path and is the
// single source of truth for remaining capacity.
type InventoryDay struct {
	ID            int64     `json:"id"`
	RoomTypeID    int64     `json:"room_type_id"`
	PropertyID    int64     `json:"property_id"`
	Date          time.Time `json:"date"`
	TotalRooms    int       `json:"total_rooms"`
	BookedRooms   int       `json:"booked_rooms"`
	ClosedForSale bool      `json:"closed_for_sale"`
}

// Available returns sellable rooms for the day. Closed days sell nothing
// and a booked count above total clamps to zero rather than going negative.
func (d InventoryDay) Available() int {
	if d.ClosedForSale {
		return 0
	}
	remaining := d.TotalRooms - d.BookedRooms
	if remaining < 0 {
		return 0
	}
	return remaining
}

type CancellationPolicy struct {
	ID                   int64   `json:"id"`
	Name                 string  `json:"name"`
	Description          string  `json:"description,omitempty"`
	FreeCancelUntilHours int     `json:"free_cancel_until_hours"`
	PenaltyPercent       float64 `json:"penalty_percent"`
}
