package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"innkeeper/internal/database"
	"innkeeper/internal/events"
	"innkeeper/internal/models"
	"innkeeper/internal/pricing"
	"innkeeper/internal/worker"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newReservationService(store *mockStore, bus *events.EventBus) *ReservationService {
	logger := zerolog.New(io.Discard)
	qs := NewQuoteService(store, pricing.NewEngine(nil, 0), 365, &logger)
	qs.now = func() time.Time { return testNow }

	rs := NewReservationService(store, qs, bus, 30*time.Minute, "USD",
		worker.RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}, &logger)
	rs.now = func() time.Time { return testNow }
	return rs
}

func expectQuotable(store *mockStore, checkIn, checkOut time.Time, total, booked int, dates ...time.Time) {
	ctx := mock.Anything
	store.On("GetRoomType", ctx, int64(7)).Return(fixtureRoomType(), nil)
	store.On("GetRatePlan", ctx, int64(3)).Return(fixtureRatePlan(), nil)
	store.On("InventoryRange", ctx, int64(7), checkIn, checkOut).
		Return(inventoryMap(7, total, booked, dates...), nil)
	store.On("OverridesForRange", ctx, int64(3), checkIn, checkOut).
		Return([]models.DailyPriceOverride{}, nil)
}

func TestCommitCreatesPendingHold(t *testing.T) {
	store := new(mockStore)
	bus := events.NewEventBus()
	rs := newReservationService(store, bus)
	ctx := context.Background()

	var published []string
	bus.Subscribe(events.EventBookingCommitted, func(e *events.Event) error {
		published = append(published, e.Type)
		return nil
	})

	checkIn := date(2025, 6, 2)
	checkOut := date(2025, 6, 4)
	expectQuotable(store, checkIn, checkOut, 5, 0, checkIn, date(2025, 6, 3))
	store.On("CommitBooking", mock.Anything, mock.AnythingOfType("*models.Booking")).Return(nil).Once()

	booking, err := rs.Commit(ctx, &models.BookingRequest{
		PropertyID: 1, RoomTypeID: 7, RatePlanID: 3,
		GuestName: "Ada Lovelace", GuestEmail: "ada@example.com", GuestsCount: 2,
		CheckIn: checkIn, CheckOut: checkOut, RoomsCount: 1,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(booking.Reference, "BK-"))
	assert.Equal(t, models.StatusPending, booking.Status)
	assert.EqualValues(t, 20000, booking.TotalPriceCents)
	assert.Equal(t, "USD", booking.Currency)
	require.NotNil(t, booking.HoldUntil)
	assert.Equal(t, testNow.Add(30*time.Minute), *booking.HoldUntil)

	assert.Equal(t, []string{events.EventBookingCommitted}, published)
	store.AssertExpectations(t)
}

func TestCommitSoldOut(t *testing.T) {
	store := new(mockStore)
	rs := newReservationService(store, nil)
	ctx := context.Background()

	checkIn := date(2025, 6, 2)
	checkOut := date(2025, 6, 3)
	expectQuotable(store, checkIn, checkOut, 2, 1, checkIn)

	_, err := rs.Commit(ctx, &models.BookingRequest{
		PropertyID: 1, RoomTypeID: 7, RatePlanID: 3, GuestsCount: 2,
		CheckIn: checkIn, CheckOut: checkOut, RoomsCount: 2,
	})
	assert.ErrorIs(t, err, database.ErrInsufficientInventory)
	store.AssertNotCalled(t, "CommitBooking", mock.Anything, mock.Anything)
}

func TestCommitOccupancyViolation(t *testing.T) {
	store := new(mockStore)
	rs := newReservationService(store, nil)
	ctx := context.Background()

	checkIn := date(2025, 6, 2)
	checkOut := date(2025, 6, 3)
	expectQuotable(store, checkIn, checkOut, 5, 0, checkIn)

	// MaxOccupancy 2, one room, three guests.
	_, err := rs.Commit(ctx, &models.BookingRequest{
		PropertyID: 1, RoomTypeID: 7, RatePlanID: 3, GuestsCount: 3,
		CheckIn: checkIn, CheckOut: checkOut, RoomsCount: 1,
	})
	assert.ErrorIs(t, err, database.ErrPolicyViolation)
	store.AssertNotCalled(t, "CommitBooking", mock.Anything, mock.Anything)
}

func TestCommitPinnedRoomOfWrongType(t *testing.T) {
	store := new(mockStore)
	rs := newReservationService(store, nil)
	ctx := context.Background()

	checkIn := date(2025, 6, 2)
	checkOut := date(2025, 6, 3)
	expectQuotable(store, checkIn, checkOut, 5, 0, checkIn)
	store.On("GetRoom", mock.Anything, int64(42)).
		Return(&models.Room{ID: 42, RoomTypeID: 8, Number: "801"}, nil)

	_, err := rs.Commit(ctx, &models.BookingRequest{
		PropertyID: 1, RoomTypeID: 7, RoomID: 42, RatePlanID: 3, GuestsCount: 2,
		CheckIn: checkIn, CheckOut: checkOut, RoomsCount: 1,
	})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestCommitPinnedRoomSkipsPooledLedger(t *testing.T) {
	store := new(mockStore)
	rs := newReservationService(store, nil)
	ctx := context.Background()

	checkIn := date(2025, 6, 2)
	checkOut := date(2025, 6, 4)

	store.On("GetRoomType", mock.Anything, int64(7)).Return(fixtureRoomType(), nil)
	store.On("GetRatePlan", mock.Anything, int64(3)).Return(fixtureRatePlan(), nil)
	store.On("GetRoom", mock.Anything, int64(42)).
		Return(&models.Room{ID: 42, RoomTypeID: 7, Number: "101", IsActive: true}, nil)
	store.On("IsRoomFree", mock.Anything, int64(42), checkIn, checkOut, int64(0)).Return(true, nil)
	store.On("OverridesForRange", mock.Anything, int64(3), checkIn, checkOut).
		Return([]models.DailyPriceOverride{}, nil)
	store.On("CommitBooking", mock.Anything, mock.AnythingOfType("*models.Booking")).Return(nil).Once()

	booking, err := rs.Commit(ctx, &models.BookingRequest{
		PropertyID: 1, RoomTypeID: 7, RoomID: 42, RatePlanID: 3,
		GuestName: "Ada Lovelace", GuestEmail: "ada@example.com", GuestsCount: 2,
		CheckIn: checkIn, CheckOut: checkOut, RoomsCount: 1,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 42, booking.RoomID)
	assert.EqualValues(t, 20000, booking.TotalPriceCents)

	// A pinned stay lives on room overlap alone, never the allotment.
	store.AssertNotCalled(t, "InventoryRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCommitPinnedRoomTaken(t *testing.T) {
	store := new(mockStore)
	rs := newReservationService(store, nil)
	ctx := context.Background()

	checkIn := date(2025, 6, 2)
	checkOut := date(2025, 6, 4)

	store.On("GetRoomType", mock.Anything, int64(7)).Return(fixtureRoomType(), nil)
	store.On("GetRatePlan", mock.Anything, int64(3)).Return(fixtureRatePlan(), nil)
	store.On("GetRoom", mock.Anything, int64(42)).
		Return(&models.Room{ID: 42, RoomTypeID: 7, Number: "101", IsActive: true}, nil)
	store.On("IsRoomFree", mock.Anything, int64(42), checkIn, checkOut, int64(0)).Return(false, nil)

	_, err := rs.Commit(ctx, &models.BookingRequest{
		PropertyID: 1, RoomTypeID: 7, RoomID: 42, RatePlanID: 3, GuestsCount: 2,
		CheckIn: checkIn, CheckOut: checkOut, RoomsCount: 1,
	})
	assert.ErrorIs(t, err, database.ErrRoomNotFree)
	store.AssertNotCalled(t, "CommitBooking", mock.Anything, mock.Anything)
}

func TestCommitRetriesTransientFailure(t *testing.T) {
	store := new(mockStore)
	rs := newReservationService(store, nil)
	ctx := context.Background()

	checkIn := date(2025, 6, 2)
	checkOut := date(2025, 6, 3)
	expectQuotable(store, checkIn, checkOut, 5, 0, checkIn)
	store.On("CommitBooking", mock.Anything, mock.Anything).
		Return(errors.New("database is locked")).Once()
	store.On("CommitBooking", mock.Anything, mock.Anything).Return(nil).Once()

	booking, err := rs.Commit(ctx, &models.BookingRequest{
		PropertyID: 1, RoomTypeID: 7, RatePlanID: 3, GuestsCount: 1,
		CheckIn: checkIn, CheckOut: checkOut, RoomsCount: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, booking.Status)
	store.AssertExpectations(t)
}

func TestCommitDoesNotRetryInsufficientInventory(t *testing.T) {
	store := new(mockStore)
	rs := newReservationService(store, nil)
	ctx := context.Background()

	checkIn := date(2025, 6, 2)
	checkOut := date(2025, 6, 3)
	expectQuotable(store, checkIn, checkOut, 5, 0, checkIn)
	// Another writer took the rooms between quote and commit.
	store.On("CommitBooking", mock.Anything, mock.Anything).
		Return(database.ErrInsufficientInventory).Once()

	_, err := rs.Commit(ctx, &models.BookingRequest{
		PropertyID: 1, RoomTypeID: 7, RatePlanID: 3, GuestsCount: 1,
		CheckIn: checkIn, CheckOut: checkOut, RoomsCount: 1,
	})
	assert.ErrorIs(t, err, database.ErrInsufficientInventory)
	store.AssertNumberOfCalls(t, "CommitBooking", 1)
}

func TestConfirm(t *testing.T) {
	store := new(mockStore)
	rs := newReservationService(store, nil)
	ctx := context.Background()

	store.On("TransitionBooking", ctx, int64(10), int64(1), models.StatusConfirmed, "").Return(nil).Once()
	store.On("GetBooking", ctx, int64(10)).
		Return(&models.Booking{ID: 10, Status: models.StatusConfirmed}, nil)

	require.NoError(t, rs.Confirm(ctx, 10, 1))
	store.AssertExpectations(t)
}

func TestCancelHeldBookingSkipsPolicyCheck(t *testing.T) {
	store := new(mockStore)
	rs := newReservationService(store, nil)
	ctx := context.Background()

	pending := &models.Booking{ID: 10, RatePlanID: 3, Status: models.StatusPending, CheckIn: date(2025, 6, 2)}
	store.On("GetBooking", ctx, int64(10)).Return(pending, nil)
	store.On("TransitionBooking", ctx, int64(10), int64(1), models.StatusCancelled, "changed plans").Return(nil).Once()

	require.NoError(t, rs.Cancel(ctx, 10, 1, "changed plans", false))
	store.AssertNotCalled(t, "GetCancellationPolicy", mock.Anything, mock.Anything)
}

func TestCancelConfirmedWithinFreeWindow(t *testing.T) {
	store := new(mockStore)
	rs := newReservationService(store, nil)
	ctx := context.Background()

	plan := fixtureRatePlan()
	plan.CancellationPolicyID = 5
	// Check-in five days out, free cancellation until 24h before.
	confirmed := &models.Booking{ID: 10, RatePlanID: 3, Status: models.StatusConfirmed, CheckIn: date(2025, 6, 6)}

	store.On("GetBooking", ctx, int64(10)).Return(confirmed, nil)
	store.On("GetRatePlan", ctx, int64(3)).Return(plan, nil)
	store.On("GetCancellationPolicy", ctx, int64(5)).
		Return(&models.CancellationPolicy{ID: 5, Name: "Flexible 24h", FreeCancelUntilHours: 24}, nil)
	store.On("TransitionBooking", ctx, int64(10), int64(2), models.StatusCancelled, "").Return(nil).Once()

	require.NoError(t, rs.Cancel(ctx, 10, 2, "", false))
	store.AssertExpectations(t)
}

func TestCancelConfirmedInsidePenaltyWindow(t *testing.T) {
	store := new(mockStore)
	rs := newReservationService(store, nil)
	ctx := context.Background()

	plan := fixtureRatePlan()
	plan.CancellationPolicyID = 5
	// Check-in tomorrow; the 24h free window has already closed.
	confirmed := &models.Booking{ID: 10, RatePlanID: 3, Status: models.StatusConfirmed, CheckIn: date(2025, 6, 2)}

	store.On("GetBooking", ctx, int64(10)).Return(confirmed, nil)
	store.On("GetRatePlan", ctx, int64(3)).Return(plan, nil)
	store.On("GetCancellationPolicy", ctx, int64(5)).
		Return(&models.CancellationPolicy{ID: 5, Name: "Flexible 24h", FreeCancelUntilHours: 24}, nil)

	err := rs.Cancel(ctx, 10, 2, "", false)
	assert.ErrorIs(t, err, database.ErrPolicyViolation)
	store.AssertNotCalled(t, "TransitionBooking", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// Staff override cancels anyway.
	store.On("TransitionBooking", ctx, int64(10), int64(2), models.StatusCancelled, "overbooked").Return(nil).Once()
	require.NoError(t, rs.Cancel(ctx, 10, 2, "overbooked", true))
}

func TestCancelNonRefundablePlan(t *testing.T) {
	store := new(mockStore)
	rs := newReservationService(store, nil)
	ctx := context.Background()

	plan := fixtureRatePlan()
	plan.IsRefundable = false
	confirmed := &models.Booking{ID: 10, RatePlanID: 3, Status: models.StatusConfirmed, CheckIn: date(2025, 6, 20)}

	store.On("GetBooking", ctx, int64(10)).Return(confirmed, nil)
	store.On("GetRatePlan", ctx, int64(3)).Return(plan, nil)

	err := rs.Cancel(ctx, 10, 2, "", false)
	assert.ErrorIs(t, err, database.ErrPolicyViolation)
}

func TestChangeDatesRequotesAndMoves(t *testing.T) {
	store := new(mockStore)
	rs := newReservationService(store, nil)
	ctx := context.Background()

	current := &models.Booking{
		ID: 10, PropertyID: 1, RoomTypeID: 7, RatePlanID: 3, RoomsCount: 1,
		Status: models.StatusConfirmed, CheckIn: date(2025, 6, 2), CheckOut: date(2025, 6, 3),
		TotalPriceCents: 10000, Version: 2,
	}
	moved := *current
	moved.CheckIn = date(2025, 6, 10)
	moved.CheckOut = date(2025, 6, 12)
	moved.TotalPriceCents = 20000
	moved.Version = 3

	newIn := date(2025, 6, 10)
	newOut := date(2025, 6, 12)

	store.On("GetBooking", ctx, int64(10)).Return(current, nil).Twice()
	expectQuotable(store, newIn, newOut, 5, 0, newIn, date(2025, 6, 11))
	store.On("ChangeBookingDates", ctx, int64(10), int64(2), newIn, newOut, int64(20000)).Return(nil).Once()
	store.On("GetBooking", ctx, int64(10)).Return(&moved, nil).Once()

	updated, err := rs.ChangeDates(ctx, 10, 2, newIn, newOut)
	require.NoError(t, err)
	assert.Equal(t, newIn, updated.CheckIn)
	assert.EqualValues(t, 20000, updated.TotalPriceCents)
	store.AssertExpectations(t)
}

func TestChangeDatesOverlappingMoveReusesOwnRooms(t *testing.T) {
	store := new(mockStore)
	rs := newReservationService(store, nil)
	ctx := context.Background()

	// Both rooms of a fully booked type belong to this booking; sliding
	// the stay one day must not be blocked by its own allotment.
	current := &models.Booking{
		ID: 10, PropertyID: 1, RoomTypeID: 7, RatePlanID: 3, RoomsCount: 2,
		Status: models.StatusConfirmed, CheckIn: date(2025, 6, 2), CheckOut: date(2025, 6, 4),
		TotalPriceCents: 40000, Version: 2,
	}
	moved := *current
	moved.CheckIn = date(2025, 6, 3)
	moved.CheckOut = date(2025, 6, 5)
	moved.Version = 3

	newIn := date(2025, 6, 3)
	newOut := date(2025, 6, 5)

	inventory := inventoryMap(7, 2, 0, newIn, date(2025, 6, 4))
	held := inventory[newIn.Format(models.DateFormat)]
	held.BookedRooms = 2
	inventory[newIn.Format(models.DateFormat)] = held

	store.On("GetBooking", ctx, int64(10)).Return(current, nil).Twice()
	store.On("GetRoomType", mock.Anything, int64(7)).Return(fixtureRoomType(), nil)
	store.On("GetRatePlan", mock.Anything, int64(3)).Return(fixtureRatePlan(), nil)
	store.On("InventoryRange", mock.Anything, int64(7), newIn, newOut).Return(inventory, nil)
	store.On("OverridesForRange", mock.Anything, int64(3), newIn, newOut).
		Return([]models.DailyPriceOverride{}, nil)
	store.On("ChangeBookingDates", ctx, int64(10), int64(2), newIn, newOut, int64(40000)).Return(nil).Once()
	store.On("GetBooking", ctx, int64(10)).Return(&moved, nil).Once()

	updated, err := rs.ChangeDates(ctx, 10, 2, newIn, newOut)
	require.NoError(t, err)
	assert.Equal(t, newIn, updated.CheckIn)
	store.AssertExpectations(t)
}

func TestChangeDatesTerminalBooking(t *testing.T) {
	store := new(mockStore)
	rs := newReservationService(store, nil)
	ctx := context.Background()

	cancelled := &models.Booking{ID: 10, Status: models.StatusCancelled}
	store.On("GetBooking", ctx, int64(10)).Return(cancelled, nil)

	_, err := rs.ChangeDates(ctx, 10, 3, date(2025, 6, 10), date(2025, 6, 12))
	assert.ErrorIs(t, err, database.ErrInvalidTransition)
}

func TestExpireHoldsSkipsLostRaces(t *testing.T) {
	store := new(mockStore)
	bus := events.NewEventBus()
	rs := newReservationService(store, bus)
	ctx := context.Background()

	var expiredEvents int
	bus.Subscribe(events.EventBookingExpired, func(*events.Event) error {
		expiredEvents++
		return nil
	})

	holds := []*models.Booking{
		{ID: 1, Reference: "BK-A", Status: models.StatusPending, Version: 1},
		{ID: 2, Reference: "BK-B", Status: models.StatusPending, Version: 1},
		{ID: 3, Reference: "BK-C", Status: models.StatusPending, Version: 1},
	}
	store.On("FindExpiredHolds", ctx, testNow, 100).Return(holds, nil)
	store.On("TransitionBooking", ctx, int64(1), int64(1), models.StatusExpired, "hold window lapsed").Return(nil)
	// Booking 2 was confirmed concurrently.
	store.On("TransitionBooking", ctx, int64(2), int64(1), models.StatusExpired, "hold window lapsed").
		Return(database.ErrConcurrencyConflict)
	store.On("TransitionBooking", ctx, int64(3), int64(1), models.StatusExpired, "hold window lapsed").Return(nil)

	released, err := rs.ExpireHolds(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, released)
	assert.Equal(t, 2, expiredEvents)
}
