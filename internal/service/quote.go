package service

import (
	"context"
	"fmt"
	"time"

	"innkeeper/internal/database"
	"innkeeper/internal/domain"
	"innkeeper/internal/metrics"
	"innkeeper/internal/models"
	"innkeeper/internal/pricing"

	"github.com/rs/zerolog"
)

// QuoteService prices prospective stays. Quoting is read-only: it never
// reserves inventory and a returned quote is not a promise of
// availability at commit time.
type QuoteService struct {
	store          domain.Store
	pricer         *pricing.Engine
	maxAdvanceDays int
	logger         *zerolog.Logger
	now            func() time.Time
}

func NewQuoteService(store domain.Store, pricer *pricing.Engine, maxAdvanceDays int, logger *zerolog.Logger) *QuoteService {
	if maxAdvanceDays <= 0 {
		maxAdvanceDays = models.MaxAdvanceBookingDays
	}
	return &QuoteService{
		store:          store,
		pricer:         pricer,
		maxAdvanceDays: maxAdvanceDays,
		logger:         logger,
		now:            time.Now,
	}
}

// validateStay rejects inverted, past and too-distant ranges before any
// storage access.
func (s *QuoteService) validateStay(checkIn, checkOut time.Time) error {
	checkIn = models.Date(checkIn)
	checkOut = models.Date(checkOut)

	if !checkIn.Before(checkOut) {
		return database.ErrInvalidDateRange
	}
	today := models.Date(s.now())
	if checkIn.Before(today) {
		return database.ErrPastDate
	}
	if checkOut.After(today.AddDate(0, 0, s.maxAdvanceDays)) {
		return database.ErrDateTooFar
	}
	return nil
}

// Quote resolves the room type and rate plan, checks availability and
// prices every night. A stay that cannot be booked comes back with
// Bookable false and a zero total; nothing is priced for it.
func (s *QuoteService) Quote(ctx context.Context, req *models.QuoteRequest) (*models.Quote, error) {
	if req.RoomsCount < 1 {
		metrics.IncQuote("rejected")
		return nil, fmt.Errorf("rooms count must be at least 1: %w", database.ErrPolicyViolation)
	}
	if err := s.validateStay(req.CheckIn, req.CheckOut); err != nil {
		metrics.IncQuote("rejected")
		return nil, err
	}
	checkIn := models.Date(req.CheckIn)
	checkOut := models.Date(req.CheckOut)

	roomType, err := s.store.GetRoomType(ctx, req.RoomTypeID)
	if err != nil {
		metrics.IncQuote("rejected")
		return nil, err
	}
	if roomType.PropertyID != req.PropertyID {
		metrics.IncQuote("rejected")
		return nil, fmt.Errorf("room type %d does not belong to property %d: %w",
			roomType.ID, req.PropertyID, database.ErrNotFound)
	}
	if !roomType.IsActive {
		metrics.IncQuote("rejected")
		return nil, fmt.Errorf("room type %d is not open for sale: %w", roomType.ID, database.ErrNotFound)
	}
	plan, err := s.store.GetRatePlan(ctx, req.RatePlanID)
	if err != nil {
		metrics.IncQuote("rejected")
		return nil, err
	}
	if plan.PropertyID != req.PropertyID {
		metrics.IncQuote("rejected")
		return nil, fmt.Errorf("rate plan %d does not belong to property %d: %w",
			plan.ID, req.PropertyID, database.ErrNotFound)
	}
	if plan.RoomTypeID != roomType.ID {
		metrics.IncQuote("rejected")
		return nil, fmt.Errorf("rate plan %d does not price room type %d: %w", plan.ID, roomType.ID, database.ErrNotFound)
	}

	nights := models.DatesBetween(checkIn, checkOut)
	if plan.MinStayNights > 0 && len(nights) < plan.MinStayNights {
		metrics.IncQuote("rejected")
		return nil, fmt.Errorf("stay of %d nights is below the %d night minimum: %w",
			len(nights), plan.MinStayNights, database.ErrPolicyViolation)
	}
	if plan.MaxStayNights > 0 && len(nights) > plan.MaxStayNights {
		metrics.IncQuote("rejected")
		return nil, fmt.Errorf("stay of %d nights exceeds the %d night maximum: %w",
			len(nights), plan.MaxStayNights, database.ErrPolicyViolation)
	}

	var available int
	if req.RoomID != 0 {
		available, err = s.pinnedAvailability(ctx, req, roomType)
		if err != nil {
			metrics.IncQuote("rejected")
			return nil, err
		}
	} else {
		credit, err := s.reclaimableNights(ctx, req)
		if err != nil {
			return nil, err
		}
		inventory, err := s.store.InventoryRange(ctx, roomType.ID, checkIn, checkOut)
		if err != nil {
			return nil, err
		}
		available = s.minAvailable(inventory, nights, roomType.ID, credit)
	}

	quote := &models.Quote{
		RoomTypeID:     roomType.ID,
		RatePlanID:     plan.ID,
		CheckIn:        checkIn,
		CheckOut:       checkOut,
		Nights:         len(nights),
		RoomsCount:     req.RoomsCount,
		AvailableRooms: available,
		RemainingRooms: available,
		Bookable:       available >= req.RoomsCount,
		Currency:       plan.Currency,
		QuotedAt:       s.now(),
	}
	if !quote.Bookable {
		metrics.IncQuote("unavailable")
		return quote, nil
	}

	overrideRows, err := s.store.OverridesForRange(ctx, plan.ID, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	overrides := pricing.BuildOverrides(overrideRows)
	for _, night := range nights {
		_, overridden := overrides[night.Format(models.DateFormat)]
		quote.NightlyPrices = append(quote.NightlyPrices, models.NightPrice{
			Date:       night,
			PriceCents: s.pricer.ForNight(plan, overrides, night),
			Overridden: overridden,
		})
		quote.TotalPriceCents += quote.NightlyPrices[len(quote.NightlyPrices)-1].PriceCents * int64(req.RoomsCount)
	}

	quote.RemainingRooms = available - req.RoomsCount
	metrics.IncQuote("priced")
	return quote, nil
}

// pinnedAvailability checks a concrete room for overlapping stays instead
// of consulting the pooled ledger.
func (s *QuoteService) pinnedAvailability(ctx context.Context, req *models.QuoteRequest, roomType *models.RoomType) (int, error) {
	if req.RoomsCount != 1 {
		return 0, fmt.Errorf("a pinned booking covers exactly one room: %w", database.ErrPolicyViolation)
	}
	room, err := s.store.GetRoom(ctx, req.RoomID)
	if err != nil {
		return 0, err
	}
	if room.RoomTypeID != roomType.ID {
		return 0, fmt.Errorf("room %d is not of room type %d: %w", room.ID, roomType.ID, database.ErrNotFound)
	}
	if !room.IsActive {
		return 0, fmt.Errorf("room %d is out of service: %w", room.ID, database.ErrNotFound)
	}
	free, err := s.store.IsRoomFree(ctx, room.ID, models.Date(req.CheckIn), models.Date(req.CheckOut), req.ExcludeBookingID)
	if err != nil {
		return 0, err
	}
	if !free {
		return 0, nil
	}
	return 1, nil
}

// reclaimableNights builds the per-night credit an existing pooled
// booking would give back if it moved: the nights it currently holds in
// the same room type count as free again when re-quoting its stay.
func (s *QuoteService) reclaimableNights(ctx context.Context, req *models.QuoteRequest) (map[string]int, error) {
	if req.ExcludeBookingID == 0 {
		return nil, nil
	}
	booking, err := s.store.GetBooking(ctx, req.ExcludeBookingID)
	if err != nil {
		return nil, err
	}
	if booking.Pinned() || booking.RoomTypeID != req.RoomTypeID || !booking.Status.HoldsInventory() {
		return nil, nil
	}
	credit := make(map[string]int)
	for _, night := range models.DatesBetween(models.Date(booking.CheckIn), models.Date(booking.CheckOut)) {
		credit[night.Format(models.DateFormat)] = booking.RoomsCount
	}
	return credit, nil
}

// minAvailable treats an unprovisioned night as zero availability, so a
// gap in the ledger makes the whole stay unbookable. Credit applies only
// to provisioned nights that are still open for sale.
func (s *QuoteService) minAvailable(inventory map[string]models.InventoryDay, nights []time.Time, roomTypeID int64, credit map[string]int) int {
	min := -1
	for _, night := range nights {
		key := night.Format(models.DateFormat)
		day, ok := inventory[key]
		free := 0
		if ok {
			free = day.Available()
			if !day.ClosedForSale {
				free += credit[key]
			}
			if day.BookedRooms > day.TotalRooms {
				s.logger.Error().
					Int64("room_type_id", roomTypeID).
					Str("date", key).
					Int("total", day.TotalRooms).
					Int("booked", day.BookedRooms).
					Msg("Inventory day is overbooked")
			}
		}
		if min == -1 || free < min {
			min = free
		}
		if min == 0 {
			break
		}
	}
	if min < 0 {
		return 0
	}
	return min
}
