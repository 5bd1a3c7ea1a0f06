package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"innkeeper/internal/database"
	"innkeeper/internal/domain"
	"innkeeper/internal/events"
	"innkeeper/internal/metrics"
	"innkeeper/internal/models"
	"innkeeper/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReservationService owns the booking lifecycle: commit, confirmation,
// cancellation, date changes and hold expiry. Every inventory effect
// goes through the store's transactional operations; this layer adds
// policy checks, retries and events on top.
type ReservationService struct {
	store           domain.Store
	quotes          domain.QuoteService
	eventBus        domain.EventPublisher
	holdWindow      time.Duration
	defaultCurrency string
	retry           worker.RetryPolicy
	logger          *zerolog.Logger
	now             func() time.Time
}

func NewReservationService(
	store domain.Store,
	quotes domain.QuoteService,
	eventBus domain.EventPublisher,
	holdWindow time.Duration,
	defaultCurrency string,
	retry worker.RetryPolicy,
	logger *zerolog.Logger,
) *ReservationService {
	if holdWindow <= 0 {
		holdWindow = models.DefaultHoldWindow
	}
	if retry.MaxRetries <= 0 {
		retry.MaxRetries = models.CommitMaxRetries
	}
	return &ReservationService{
		store:           store,
		quotes:          quotes,
		eventBus:        eventBus,
		holdWindow:      holdWindow,
		defaultCurrency: defaultCurrency,
		retry:           retry,
		logger:          logger,
		now:             time.Now,
	}
}

// NewReference generates a short booking reference like BK-1A2B3C4D.
func NewReference() string {
	return "BK-" + strings.ToUpper(uuid.NewString()[:8])
}

// Commit prices the stay, re-validates availability inside the storage
// transaction and persists a pending booking with a hold window. The
// total is frozen from the quote taken here, immediately before the
// transaction: an override changed in that window shows up in the next
// quote but never rewrites a committed booking's price.
func (s *ReservationService) Commit(ctx context.Context, req *models.BookingRequest) (*models.Booking, error) {
	quote, err := s.quotes.Quote(ctx, &models.QuoteRequest{
		PropertyID: req.PropertyID,
		RoomTypeID: req.RoomTypeID,
		RatePlanID: req.RatePlanID,
		RoomID:     req.RoomID,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		RoomsCount: req.RoomsCount,
	})
	if err != nil {
		metrics.IncCommit("rejected")
		return nil, err
	}
	if !quote.Bookable {
		metrics.IncCommit("sold_out")
		if req.RoomID != 0 {
			return nil, fmt.Errorf("room %d is taken for the requested dates: %w",
				req.RoomID, database.ErrRoomNotFree)
		}
		return nil, fmt.Errorf("%d of %d rooms available: %w",
			quote.AvailableRooms, req.RoomsCount, database.ErrInsufficientInventory)
	}

	roomType, err := s.store.GetRoomType(ctx, req.RoomTypeID)
	if err != nil {
		metrics.IncCommit("rejected")
		return nil, err
	}
	if req.GuestsCount > 0 && req.GuestsCount > roomType.MaxOccupancy*req.RoomsCount {
		metrics.IncCommit("rejected")
		return nil, fmt.Errorf("%d guests exceed occupancy %d: %w",
			req.GuestsCount, roomType.MaxOccupancy*req.RoomsCount, database.ErrPolicyViolation)
	}

	holdUntil := s.now().Add(s.holdWindow)
	currency := quote.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}

	booking := &models.Booking{
		Reference:       NewReference(),
		PropertyID:      req.PropertyID,
		RoomTypeID:      req.RoomTypeID,
		RoomID:          req.RoomID,
		RatePlanID:      req.RatePlanID,
		GuestName:       req.GuestName,
		GuestEmail:      req.GuestEmail,
		GuestPhone:      req.GuestPhone,
		GuestsCount:     req.GuestsCount,
		SpecialRequests: req.SpecialRequests,
		CheckIn:         quote.CheckIn,
		CheckOut:        quote.CheckOut,
		RoomsCount:      req.RoomsCount,
		TotalPriceCents: quote.TotalPriceCents,
		Currency:        currency,
		Status:          models.StatusPending,
		HoldUntil:       &holdUntil,
	}

	if err := s.commitWithRetry(ctx, booking); err != nil {
		if errors.Is(err, database.ErrInsufficientInventory) || errors.Is(err, database.ErrRoomNotFree) {
			metrics.IncCommit("sold_out")
		} else {
			metrics.IncCommit("rejected")
		}
		return nil, err
	}

	metrics.IncCommit("committed")
	s.publishEvent(events.EventBookingCommitted, booking, "")
	return booking, nil
}

// commitWithRetry retries transient storage failures with backoff.
// Availability errors are final: the quoted rooms are gone.
func (s *ReservationService) commitWithRetry(ctx context.Context, booking *models.Booking) error {
	var lastErr error
	for attempt := 1; attempt <= s.retry.MaxRetries; attempt++ {
		err := s.store.CommitBooking(ctx, booking)
		if err == nil {
			return nil
		}
		if errors.Is(err, database.ErrInsufficientInventory) || errors.Is(err, database.ErrRoomNotFree) {
			return err
		}
		lastErr = err
		s.logger.Warn().Err(err).
			Str("reference", booking.Reference).
			Int("attempt", attempt).
			Msg("Booking commit failed, retrying")

		if err := s.retry.Wait(ctx, attempt); err != nil {
			return err
		}
	}
	return lastErr
}

// Confirm moves a held booking to confirmed. Inventory stays reserved.
func (s *ReservationService) Confirm(ctx context.Context, bookingID, version int64) error {
	return s.transition(ctx, bookingID, version, models.StatusConfirmed, "", events.EventBookingConfirmed)
}

// Cancel releases the booking. For confirmed bookings the rate plan's
// cancellation policy applies; inside the penalty window only a caller
// with override rights may cancel.
func (s *ReservationService) Cancel(ctx context.Context, bookingID, version int64, reason string, overridePolicy bool) error {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	if booking.Status == models.StatusConfirmed && !overridePolicy {
		if err := s.checkCancellationWindow(ctx, booking); err != nil {
			return err
		}
	}
	return s.transition(ctx, bookingID, version, models.StatusCancelled, reason, events.EventBookingCancelled)
}

func (s *ReservationService) checkCancellationWindow(ctx context.Context, booking *models.Booking) error {
	plan, err := s.store.GetRatePlan(ctx, booking.RatePlanID)
	if err != nil {
		return err
	}
	if plan.CancellationPolicyID == 0 {
		if plan.IsRefundable {
			return nil
		}
		return fmt.Errorf("rate plan %q is non-refundable: %w", plan.Name, database.ErrPolicyViolation)
	}

	policy, err := s.store.GetCancellationPolicy(ctx, plan.CancellationPolicyID)
	if err != nil {
		return err
	}
	cutoff := booking.CheckIn.Add(-time.Duration(policy.FreeCancelUntilHours) * time.Hour)
	if s.now().After(cutoff) {
		return fmt.Errorf("free cancellation for %q ended %s before check-in: %w",
			policy.Name, time.Duration(policy.FreeCancelUntilHours)*time.Hour, database.ErrPolicyViolation)
	}
	return nil
}

// Complete marks a stay as finished after check-out.
func (s *ReservationService) Complete(ctx context.Context, bookingID, version int64) error {
	return s.transition(ctx, bookingID, version, models.StatusCompleted, "", events.EventBookingCompleted)
}

// MarkNoShow records a guest who never arrived and frees the rooms.
func (s *ReservationService) MarkNoShow(ctx context.Context, bookingID, version int64) error {
	return s.transition(ctx, bookingID, version, models.StatusNoShow, "guest did not arrive", events.EventBookingNoShow)
}

func (s *ReservationService) transition(ctx context.Context, bookingID, version int64, next models.BookingStatus, reason, eventType string) error {
	if err := s.store.TransitionBooking(ctx, bookingID, version, next, reason); err != nil {
		if errors.Is(err, database.ErrConcurrencyConflict) {
			metrics.IncConflict()
		}
		return err
	}
	metrics.IncTransition(string(next))

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err == nil {
		s.publishEvent(eventType, booking, reason)
	}
	return nil
}

// ChangeDates re-quotes the booking for the new range and atomically
// moves its reserved nights. The price snapshot is replaced with the
// newly quoted total.
func (s *ReservationService) ChangeDates(ctx context.Context, bookingID, version int64, newCheckIn, newCheckOut time.Time) (*models.Booking, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status.Terminal() {
		return nil, fmt.Errorf("booking %d is %s: %w", bookingID, booking.Status, database.ErrInvalidTransition)
	}

	// Quoting with the booking excluded credits back its own held nights,
	// so a move within or around the current stay is never blocked by the
	// rooms it is about to give up.
	quote, err := s.quotes.Quote(ctx, &models.QuoteRequest{
		PropertyID:       booking.PropertyID,
		RoomTypeID:       booking.RoomTypeID,
		RatePlanID:       booking.RatePlanID,
		RoomID:           booking.RoomID,
		CheckIn:          newCheckIn,
		CheckOut:         newCheckOut,
		RoomsCount:       booking.RoomsCount,
		ExcludeBookingID: booking.ID,
	})
	if err != nil {
		return nil, err
	}
	if !quote.Bookable {
		if booking.Pinned() {
			return nil, fmt.Errorf("room %d is taken for the requested dates: %w",
				booking.RoomID, database.ErrRoomNotFree)
		}
		return nil, fmt.Errorf("%d of %d rooms available: %w",
			quote.AvailableRooms, booking.RoomsCount, database.ErrInsufficientInventory)
	}

	if err := s.store.ChangeBookingDates(ctx, bookingID, version, quote.CheckIn, quote.CheckOut, quote.TotalPriceCents); err != nil {
		if errors.Is(err, database.ErrConcurrencyConflict) {
			metrics.IncConflict()
		}
		return nil, err
	}

	updated, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s.publishEvent(events.EventBookingDatesChanged, updated, "")
	return updated, nil
}

func (s *ReservationService) Get(ctx context.Context, bookingID int64) (*models.Booking, error) {
	return s.store.GetBooking(ctx, bookingID)
}

func (s *ReservationService) GetByReference(ctx context.Context, reference string) (*models.Booking, error) {
	return s.store.GetBookingByReference(ctx, reference)
}

func (s *ReservationService) List(ctx context.Context, filter database.BookingFilter) ([]*models.Booking, error) {
	return s.store.ListBookings(ctx, filter)
}

// ExpireHolds releases every booking whose hold window lapsed before
// now. Races with confirmations are fine: the version CAS makes a
// concurrent winner drop the expiry, never double-apply it.
func (s *ReservationService) ExpireHolds(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.store.FindExpiredHolds(ctx, now, 100)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, booking := range expired {
		err := s.store.TransitionBooking(ctx, booking.ID, booking.Version, models.StatusExpired, "hold window lapsed")
		switch {
		case err == nil:
			released++
			metrics.IncTransition(string(models.StatusExpired))
			booking.Status = models.StatusExpired
			s.publishEvent(events.EventBookingExpired, booking, "hold window lapsed")
		case errors.Is(err, database.ErrConcurrencyConflict), errors.Is(err, database.ErrInvalidTransition):
			// Confirmed or cancelled while we were sweeping.
			s.logger.Debug().Int64("booking_id", booking.ID).Msg("Hold no longer expirable, skipping")
		default:
			s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("Failed to expire hold")
		}
	}
	if released > 0 {
		metrics.AddExpiredHolds(released)
	}
	return released, nil
}

func (s *ReservationService) publishEvent(eventType string, booking *models.Booking, reason string) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:       booking.ID,
		Reference:       booking.Reference,
		PropertyID:      booking.PropertyID,
		RoomTypeID:      booking.RoomTypeID,
		RatePlanID:      booking.RatePlanID,
		GuestEmail:      booking.GuestEmail,
		CheckIn:         booking.CheckIn,
		CheckOut:        booking.CheckOut,
		RoomsCount:      booking.RoomsCount,
		TotalPriceCents: booking.TotalPriceCents,
		Currency:        booking.Currency,
		Status:          string(booking.Status),
		Reason:          reason,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}
