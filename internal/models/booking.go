package models

import "time"

type Booking struct {
	ID              int64         `json:"id"`
	Reference       string        `json:"reference"`
	PropertyID      int64         `json:"property_id"`
	RoomTypeID      int64         `json:"room_type_id"`
	RoomID          int64         `json:"room_id,omitempty"` // set only for pinned bookings
	RatePlanID      int64         `json:"rate_plan_id"`
	GuestName       string        `json:"guest_name,omitempty"`
	GuestEmail      string        `json:"guest_email,omitempty"`
	GuestPhone      string        `json:"guest_phone,omitempty"`
	GuestsCount     int           `json:"guests_count"`
	SpecialRequests string        `json:"special_requests,omitempty"`
	CheckIn         time.Time     `json:"check_in"`
	CheckOut        time.Time     `json:"check_out"`
	RoomsCount      int           `json:"rooms_count"`
	TotalPriceCents int64         `json:"total_price_cents"`
	Currency        string        `json:"currency"`
	Status          BookingStatus `json:"status"`
	HoldUntil       *time.Time    `json:"hold_until,omitempty"`
	CancelReason    string        `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Version         int64         `json:"version"`
}

// Nights returns the number of charged nights; check_out is exclusive.
func (b *Booking) Nights() int {
	return int(b.CheckOut.Sub(b.CheckIn).Hours() / 24)
}

// Pinned reports whether the booking references a concrete room rather
// than pooled room-type inventory.
func (b *Booking) Pinned() bool {
	return b.RoomID != 0
}
