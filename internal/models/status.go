package models

// BookingStatus is the closed set of booking lifecycle states. The
// database stores the lowercase string value; construction from untrusted
// input goes through ParseBookingStatus.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusHold      BookingStatus = "hold"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusExpired   BookingStatus = "expired"
	StatusCompleted BookingStatus = "completed"
	StatusNoShow    BookingStatus = "no_show"
)

var allStatuses = map[BookingStatus]struct{}{
	StatusPending:   {},
	StatusHold:      {},
	StatusConfirmed: {},
	StatusCancelled: {},
	StatusExpired:   {},
	StatusCompleted: {},
	StatusNoShow:    {},
}

// transitions is the full state machine. A status missing from the map
// is terminal.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusExpired},
	StatusHold:      {StatusConfirmed, StatusCancelled, StatusExpired},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

// ParseBookingStatus validates a raw status string.
func ParseBookingStatus(raw string) (BookingStatus, bool) {
	s := BookingStatus(raw)
	_, ok := allStatuses[s]
	return s, ok
}

func (s BookingStatus) String() string { return string(s) }

// CanTransition reports whether moving from s to next is a legal
// lifecycle transition.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are permitted.
func (s BookingStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// HoldsInventory reports whether a booking in this status occupies
// ledger capacity (and blocks a pinned room).
func (s BookingStatus) HoldsInventory() bool {
	switch s {
	case StatusPending, StatusHold, StatusConfirmed, StatusCompleted:
		return true
	}
	return false
}

// HoldingStatuses lists the inventory-holding statuses for SQL IN clauses.
func HoldingStatuses() []BookingStatus {
	return []BookingStatus{StatusPending, StatusHold, StatusConfirmed, StatusCompleted}
}
