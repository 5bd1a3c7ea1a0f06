package models

import "time"

// DateFormat is the canonical calendar-date layout used in the database
// and on the wire.
const DateFormat = "2006-01-02"

const (
	// DefaultHoldWindow is how long an unconfirmed hold keeps inventory.
	DefaultHoldWindow = 30 * time.Minute

	// DefaultSweepInterval is how often the expiry sweeper runs.
	DefaultSweepInterval = time.Minute

	// MaxAdvanceBookingDays bounds how far ahead a stay may begin.
	MaxAdvanceBookingDays = 365

	// CatalogCacheTTL is the lifetime of the room-type listing cache.
	CatalogCacheTTL = 60 * time.Second

	// CommitMaxRetries bounds automatic retries when a reservation commit
	// loses a race before ConcurrencyConflict is surfaced to the caller.
	CommitMaxRetries = 3
)

// Date truncates t to its calendar date in UTC.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DatesBetween enumerates every night of [checkIn, checkOut), check-out
// exclusive. An empty or inverted range yields nil.
func DatesBetween(checkIn, checkOut time.Time) []time.Time {
	in, out := Date(checkIn), Date(checkOut)
	if !out.After(in) {
		return nil
	}
	nights := int(out.Sub(in).Hours() / 24)
	dates := make([]time.Time, 0, nights)
	for d := in; d.Before(out); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// RangesOverlap reports half-open interval intersection: adjacent ranges
// (one ending the day another begins) do not overlap.
func RangesOverlap(aIn, aOut, bIn, bOut time.Time) bool {
	return aIn.Before(bOut) && aOut.After(bIn)
}
