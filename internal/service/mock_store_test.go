package service

import (
	"context"
	"time"

	"innkeeper/internal/database"
	"innkeeper/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateRoomType(ctx context.Context, rt *models.RoomType) error {
	return m.Called(ctx, rt).Error(0)
}

func (m *mockStore) GetRoomType(ctx context.Context, id int64) (*models.RoomType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RoomType), args.Error(1)
}

func (m *mockStore) ListRoomTypes(ctx context.Context, propertyID int64) ([]*models.RoomType, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RoomType), args.Error(1)
}

func (m *mockStore) DeactivateRoomType(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) CreateRoom(ctx context.Context, room *models.Room) error {
	return m.Called(ctx, room).Error(0)
}

func (m *mockStore) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *mockStore) CreateRatePlan(ctx context.Context, plan *models.RatePlan) error {
	return m.Called(ctx, plan).Error(0)
}

func (m *mockStore) GetRatePlan(ctx context.Context, id int64) (*models.RatePlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RatePlan), args.Error(1)
}

func (m *mockStore) UpsertDailyPriceOverride(ctx context.Context, override *models.DailyPriceOverride) error {
	return m.Called(ctx, override).Error(0)
}

func (m *mockStore) OverridesForRange(ctx context.Context, ratePlanID int64, from, to time.Time) ([]models.DailyPriceOverride, error) {
	args := m.Called(ctx, ratePlanID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DailyPriceOverride), args.Error(1)
}

func (m *mockStore) CreateCancellationPolicy(ctx context.Context, policy *models.CancellationPolicy) error {
	return m.Called(ctx, policy).Error(0)
}

func (m *mockStore) GetCancellationPolicy(ctx context.Context, id int64) (*models.CancellationPolicy, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CancellationPolicy), args.Error(1)
}

func (m *mockStore) Available(ctx context.Context, roomTypeID int64, date time.Time) (int, error) {
	args := m.Called(ctx, roomTypeID, date)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) GetInventoryDay(ctx context.Context, roomTypeID int64, date time.Time) (*models.InventoryDay, error) {
	args := m.Called(ctx, roomTypeID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryDay), args.Error(1)
}

func (m *mockStore) InventoryRange(ctx context.Context, roomTypeID int64, from, to time.Time) (map[string]models.InventoryDay, error) {
	args := m.Called(ctx, roomTypeID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.InventoryDay), args.Error(1)
}

func (m *mockStore) UpsertInventoryDay(ctx context.Context, day *models.InventoryDay) error {
	return m.Called(ctx, day).Error(0)
}

func (m *mockStore) SetClosedForSale(ctx context.Context, roomTypeID int64, date time.Time, closed bool) error {
	return m.Called(ctx, roomTypeID, date, closed).Error(0)
}

func (m *mockStore) CommitBooking(ctx context.Context, booking *models.Booking) error {
	return m.Called(ctx, booking).Error(0)
}

func (m *mockStore) TransitionBooking(ctx context.Context, id, fromVersion int64, next models.BookingStatus, reason string) error {
	return m.Called(ctx, id, fromVersion, next, reason).Error(0)
}

func (m *mockStore) ChangeBookingDates(ctx context.Context, id, fromVersion int64, newCheckIn, newCheckOut time.Time, newTotalCents int64) error {
	return m.Called(ctx, id, fromVersion, newCheckIn, newCheckOut, newTotalCents).Error(0)
}

func (m *mockStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockStore) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockStore) ListBookings(ctx context.Context, filter database.BookingFilter) ([]*models.Booking, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

func (m *mockStore) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*models.Booking, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

func (m *mockStore) IsRoomFree(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeBookingID int64) (bool, error) {
	args := m.Called(ctx, roomID, checkIn, checkOut, excludeBookingID)
	return args.Bool(0), args.Error(1)
}
