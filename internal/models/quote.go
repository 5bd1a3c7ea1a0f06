package models

import "time"

// QuoteRequest asks for price and availability of a prospective stay.
// Nothing is reserved while quoting. RoomID pins a concrete room and
// switches availability to an overlap check against that room's bookings.
// ExcludeBookingID ignores one booking's own held nights, so re-quoting
// an existing stay over new dates is not blocked by the rooms it is
// about to give up.
type QuoteRequest struct {
	PropertyID       int64     `json:"property_id"`
	RoomTypeID       int64     `json:"room_type_id"`
	RatePlanID       int64     `json:"rate_plan_id"`
	RoomID           int64     `json:"room_id,omitempty"`
	CheckIn          time.Time `json:"check_in"`
	CheckOut         time.Time `json:"check_out"`
	RoomsCount       int       `json:"rooms_count"`
	ExcludeBookingID int64     `json:"-"`
}

// NightPrice is one priced night within a quote.
type NightPrice struct {
	Date       time.Time `json:"date"`
	PriceCents int64     `json:"price_cents"`
	Overridden bool      `json:"overridden,omitempty"`
}

// Quote is the answer to a QuoteRequest. AvailableRooms is the minimum
// free count across all nights of the stay. RemainingRooms is what would
// be left after taking the requested rooms; when the stay is not
// bookable it equals AvailableRooms.
type Quote struct {
	RoomTypeID      int64        `json:"room_type_id"`
	RatePlanID      int64        `json:"rate_plan_id"`
	CheckIn         time.Time    `json:"check_in"`
	CheckOut        time.Time    `json:"check_out"`
	Nights          int          `json:"nights"`
	RoomsCount      int          `json:"rooms_count"`
	AvailableRooms  int          `json:"available_rooms"`
	RemainingRooms  int          `json:"remaining_rooms"`
	Bookable        bool         `json:"bookable"`
	NightlyPrices   []NightPrice `json:"nightly_prices"`
	TotalPriceCents int64        `json:"total_price_cents"`
	Currency        string       `json:"currency"`
	QuotedAt        time.Time    `json:"quoted_at"`
}

// BookingRequest carries everything needed to commit a reservation.
// RoomID pins a concrete room; zero books from the pooled allotment.
type BookingRequest struct {
	PropertyID      int64     `json:"property_id"`
	RoomTypeID      int64     `json:"room_type_id"`
	RoomID          int64     `json:"room_id,omitempty"`
	RatePlanID      int64     `json:"rate_plan_id"`
	GuestName       string    `json:"guest_name"`
	GuestEmail      string    `json:"guest_email"`
	GuestPhone      string    `json:"guest_phone,omitempty"`
	GuestsCount     int       `json:"guests_count"`
	SpecialRequests string    `json:"special_requests,omitempty"`
	CheckIn         time.Time `json:"check_in"`
	CheckOut        time.Time `json:"check_out"`
	RoomsCount      int       `json:"rooms_count"`
}
