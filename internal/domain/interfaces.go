package domain

import (
	"context"
	"time"

	"innkeeper/internal/database"
	"innkeeper/internal/models"
)

// Store is the persistence surface the services depend on. *database.DB
// satisfies it; tests substitute mocks.
type Store interface {
	// Catalog.
	CreateRoomType(ctx context.Context, rt *models.RoomType) error
	GetRoomType(ctx context.Context, id int64) (*models.RoomType, error)
	ListRoomTypes(ctx context.Context, propertyID int64) ([]*models.RoomType, error)
	DeactivateRoomType(ctx context.Context, id int64) error
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
	CreateRatePlan(ctx context.Context, plan *models.RatePlan) error
	GetRatePlan(ctx context.Context, id int64) (*models.RatePlan, error)
	UpsertDailyPriceOverride(ctx context.Context, override *models.DailyPriceOverride) error
	OverridesForRange(ctx context.Context, ratePlanID int64, from, to time.Time) ([]models.DailyPriceOverride, error)
	CreateCancellationPolicy(ctx context.Context, policy *models.CancellationPolicy) error
	GetCancellationPolicy(ctx context.Context, id int64) (*models.CancellationPolicy, error)

	// Inventory ledger.
	Available(ctx context.Context, roomTypeID int64, date time.Time) (int, error)
	GetInventoryDay(ctx context.Context, roomTypeID int64, date time.Time) (*models.InventoryDay, error)
	InventoryRange(ctx context.Context, roomTypeID int64, from, to time.Time) (map[string]models.InventoryDay, error)
	UpsertInventoryDay(ctx context.Context, day *models.InventoryDay) error
	SetClosedForSale(ctx context.Context, roomTypeID int64, date time.Time, closed bool) error

	// Bookings.
	CommitBooking(ctx context.Context, booking *models.Booking) error
	TransitionBooking(ctx context.Context, id, fromVersion int64, next models.BookingStatus, reason string) error
	ChangeBookingDates(ctx context.Context, id, fromVersion int64, newCheckIn, newCheckOut time.Time, newTotalCents int64) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
	ListBookings(ctx context.Context, filter database.BookingFilter) ([]*models.Booking, error)
	FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*models.Booking, error)
	IsRoomFree(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeBookingID int64) (bool, error)
}

// Cache is a small read-through cache for hot catalog reads. A failed
// cache must never fail the request; callers treat errors as misses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// QuoteService prices a prospective stay without reserving anything.
type QuoteService interface {
	Quote(ctx context.Context, req *models.QuoteRequest) (*models.Quote, error)
}

// ReservationService owns the booking lifecycle from commit to terminal
// state.
type ReservationService interface {
	Commit(ctx context.Context, req *models.BookingRequest) (*models.Booking, error)
	Confirm(ctx context.Context, bookingID, version int64) error
	Cancel(ctx context.Context, bookingID, version int64, reason string, overridePolicy bool) error
	Complete(ctx context.Context, bookingID, version int64) error
	MarkNoShow(ctx context.Context, bookingID, version int64) error
	ChangeDates(ctx context.Context, bookingID, version int64, newCheckIn, newCheckOut time.Time) (*models.Booking, error)
	Get(ctx context.Context, bookingID int64) (*models.Booking, error)
	GetByReference(ctx context.Context, reference string) (*models.Booking, error)
	List(ctx context.Context, filter database.BookingFilter) ([]*models.Booking, error)
	ExpireHolds(ctx context.Context, now time.Time) (int, error)
}

// CatalogService serves room type listings and inventory provisioning.
type CatalogService interface {
	ListRoomTypes(ctx context.Context, propertyID int64) ([]*models.RoomType, error)
	GetRoomType(ctx context.Context, id int64) (*models.RoomType, error)
	CreateRoomType(ctx context.Context, rt *models.RoomType) error
	ProvisionInventory(ctx context.Context, roomTypeID, propertyID int64, from, to time.Time, totalRooms int) error
	SetClosedForSale(ctx context.Context, roomTypeID int64, date time.Time, closed bool) error
}
