package api

import (
	"context"
	"time"

	"innkeeper/internal/database"
	"innkeeper/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockQuoteService struct {
	mock.Mock
}

func (m *mockQuoteService) Quote(ctx context.Context, req *models.QuoteRequest) (*models.Quote, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quote), args.Error(1)
}

type mockReservationService struct {
	mock.Mock
}

func (m *mockReservationService) Commit(ctx context.Context, req *models.BookingRequest) (*models.Booking, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockReservationService) Confirm(ctx context.Context, bookingID, version int64) error {
	return m.Called(ctx, bookingID, version).Error(0)
}

func (m *mockReservationService) Cancel(ctx context.Context, bookingID, version int64, reason string, overridePolicy bool) error {
	return m.Called(ctx, bookingID, version, reason, overridePolicy).Error(0)
}

func (m *mockReservationService) Complete(ctx context.Context, bookingID, version int64) error {
	return m.Called(ctx, bookingID, version).Error(0)
}

func (m *mockReservationService) MarkNoShow(ctx context.Context, bookingID, version int64) error {
	return m.Called(ctx, bookingID, version).Error(0)
}

func (m *mockReservationService) ChangeDates(ctx context.Context, bookingID, version int64, newCheckIn, newCheckOut time.Time) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, version, newCheckIn, newCheckOut)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockReservationService) Get(ctx context.Context, bookingID int64) (*models.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockReservationService) GetByReference(ctx context.Context, reference string) (*models.Booking, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockReservationService) List(ctx context.Context, filter database.BookingFilter) ([]*models.Booking, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

func (m *mockReservationService) ExpireHolds(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

type mockCatalogService struct {
	mock.Mock
}

func (m *mockCatalogService) ListRoomTypes(ctx context.Context, propertyID int64) ([]*models.RoomType, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RoomType), args.Error(1)
}

func (m *mockCatalogService) GetRoomType(ctx context.Context, id int64) (*models.RoomType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RoomType), args.Error(1)
}

func (m *mockCatalogService) CreateRoomType(ctx context.Context, rt *models.RoomType) error {
	return m.Called(ctx, rt).Error(0)
}

func (m *mockCatalogService) ProvisionInventory(ctx context.Context, roomTypeID, propertyID int64, from, to time.Time, totalRooms int) error {
	return m.Called(ctx, roomTypeID, propertyID, from, to, totalRooms).Error(0)
}

func (m *mockCatalogService) SetClosedForSale(ctx context.Context, roomTypeID int64, date time.Time, closed bool) error {
	return m.Called(ctx, roomTypeID, date, closed).Error(0)
}
