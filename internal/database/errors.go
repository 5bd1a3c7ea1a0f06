package database

import "errors"

// Sentinel errors for the reservation engine. Callers match with
// errors.Is; the API layer maps them to response codes.
var (
	// ErrNotFound covers missing room types, rate plans, rooms,
	// inventory and bookings.
	ErrNotFound = errors.New("not found")

	// ErrInvalidDateRange marks check_out <= check_in or malformed dates.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrPastDate marks a check-in before today.
	ErrPastDate = errors.New("check-in date is in the past")

	// ErrDateTooFar marks a check-in beyond the advance booking horizon.
	ErrDateTooFar = errors.New("check-in date is too far in the future")

	// ErrInsufficientInventory is the expected negative outcome when a
	// commit finds fewer rooms than requested.
	ErrInsufficientInventory = errors.New("insufficient inventory")

	// ErrRoomNotFree marks a pinned-room booking whose range overlaps an
	// existing inventory-holding booking on the same room.
	ErrRoomNotFree = errors.New("room is not free for the requested dates")

	// ErrConcurrencyConflict is returned after a commit lost a race and
	// bounded retries were exhausted. Callers should re-quote.
	ErrConcurrencyConflict = errors.New("concurrent modification conflict")

	// ErrInvalidTransition marks a booking status change the state
	// machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrPolicyViolation marks a business-rule rejection such as a
	// cancellation outside the free-cancellation window or a stay-length
	// constraint breach.
	ErrPolicyViolation = errors.New("policy violation")
)
