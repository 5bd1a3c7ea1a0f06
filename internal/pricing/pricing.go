package pricing

import (
	"math"
	"time"

	"innkeeper/internal/models"
)

// Season applies a multiplier to every night within [From, To] inclusive.
// Seasons are plain calendar data; overlapping seasons compound.
type Season struct {
	Name       string    `yaml:"name"`
	From       time.Time `yaml:"-"`
	To         time.Time `yaml:"-"`
	Multiplier float64   `yaml:"multiplier"`
}

// Engine computes nightly prices from a rate plan, per-date overrides and
// calendar multipliers. It holds lookup tables only and never mutates
// anything; the same inputs always produce the same total.
type Engine struct {
	seasons           []Season
	weekendMultiplier float64
}

// NewEngine builds an engine. A weekendMultiplier <= 0 disables weekend
// adjustment.
func NewEngine(seasons []Season, weekendMultiplier float64) *Engine {
	return &Engine{seasons: seasons, weekendMultiplier: weekendMultiplier}
}

// Overrides indexes daily price overrides by calendar date.
type Overrides map[string]int64

// BuildOverrides keys override rows by their DateFormat string.
func BuildOverrides(rows []models.DailyPriceOverride) Overrides {
	idx := make(Overrides, len(rows))
	for _, row := range rows {
		idx[row.Date.Format(models.DateFormat)] = row.PriceCents
	}
	return idx
}

// ForNight returns the price of one room for the night starting on date:
// the daily override when present, the plan base price otherwise, with
// seasonal and weekend multipliers applied. Rounding is half away from
// zero, per night, so totals stay stable across range splits.
func (e *Engine) ForNight(plan *models.RatePlan, overrides Overrides, date time.Time) int64 {
	date = models.Date(date)

	price := plan.BasePriceCents
	if override, ok := overrides[date.Format(models.DateFormat)]; ok {
		price = override
	}

	m := e.multiplier(date)
	if m == 1 {
		return price
	}
	return int64(math.Round(float64(price) * m))
}

// Quote sums ForNight over every night of [checkIn, checkOut) times
// roomsCount. The night of check-out is not charged.
func (e *Engine) Quote(plan *models.RatePlan, overrides Overrides, checkIn, checkOut time.Time, roomsCount int) int64 {
	var total int64
	for _, night := range models.DatesBetween(checkIn, checkOut) {
		total += e.ForNight(plan, overrides, night) * int64(roomsCount)
	}
	return total
}

func (e *Engine) multiplier(date time.Time) float64 {
	m := 1.0
	for _, s := range e.seasons {
		if s.Multiplier > 0 && !date.Before(s.From) && !date.After(s.To) {
			m *= s.Multiplier
		}
	}
	if e.weekendMultiplier > 0 && isWeekendNight(date) {
		m *= e.weekendMultiplier
	}
	return m
}

// Hotel weekends are Friday and Saturday nights.
func isWeekendNight(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Friday || wd == time.Saturday
}
