package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"innkeeper/internal/database"
	"innkeeper/internal/domain"
	"innkeeper/internal/events"
	"innkeeper/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService serves room type listings through a short-lived cache
// and owns inventory provisioning. Cache failures degrade to direct
// reads; they never fail a request.
type CatalogService struct {
	store    domain.Store
	cache    domain.Cache
	eventBus domain.EventPublisher
	cacheTTL time.Duration
	logger   *zerolog.Logger
}

func NewCatalogService(store domain.Store, cache domain.Cache, eventBus domain.EventPublisher, cacheTTL time.Duration, logger *zerolog.Logger) *CatalogService {
	if cacheTTL <= 0 {
		cacheTTL = models.CatalogCacheTTL
	}
	return &CatalogService{
		store:    store,
		cache:    cache,
		eventBus: eventBus,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

func roomTypesCacheKey(propertyID int64) string {
	return fmt.Sprintf("room_types:%d", propertyID)
}

// ListRoomTypes returns active room types for a property, cached for
// cacheTTL. Listings tolerate that much staleness.
func (s *CatalogService) ListRoomTypes(ctx context.Context, propertyID int64) ([]*models.RoomType, error) {
	key := roomTypesCacheKey(propertyID)

	if s.cache != nil {
		if raw, found, err := s.cache.Get(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		} else if found {
			var cached []*models.RoomType
			if err := json.Unmarshal(raw, &cached); err != nil {
				s.logger.Warn().Err(err).Str("key", key).Msg("Dropping undecodable cache entry")
				_ = s.cache.Delete(ctx, key)
			} else {
				return cached, nil
			}
		}
	}

	types, err := s.store.ListRoomTypes(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(types); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
				s.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
			}
		}
	}
	return types, nil
}

func (s *CatalogService) GetRoomType(ctx context.Context, id int64) (*models.RoomType, error) {
	return s.store.GetRoomType(ctx, id)
}

// CreateRoomType persists the room type and invalidates the property's
// cached listing.
func (s *CatalogService) CreateRoomType(ctx context.Context, rt *models.RoomType) error {
	if rt.Name == "" {
		return fmt.Errorf("room type name is required: %w", database.ErrPolicyViolation)
	}
	if rt.MaxOccupancy < 1 {
		return fmt.Errorf("max occupancy must be at least 1: %w", database.ErrPolicyViolation)
	}
	if err := s.store.CreateRoomType(ctx, rt); err != nil {
		return err
	}
	s.invalidateListing(ctx, rt.PropertyID)
	return nil
}

// ProvisionInventory writes the sellable capacity for every date in
// [from, to). Existing booked counts are preserved.
func (s *CatalogService) ProvisionInventory(ctx context.Context, roomTypeID, propertyID int64, from, to time.Time, totalRooms int) error {
	if totalRooms < 0 {
		return fmt.Errorf("total rooms must not be negative: %w", database.ErrPolicyViolation)
	}
	dates := models.DatesBetween(from, to)
	if dates == nil {
		return database.ErrInvalidDateRange
	}
	if _, err := s.store.GetRoomType(ctx, roomTypeID); err != nil {
		return err
	}

	for _, date := range dates {
		day := &models.InventoryDay{
			RoomTypeID: roomTypeID,
			PropertyID: propertyID,
			Date:       date,
			TotalRooms: totalRooms,
		}
		if err := s.store.UpsertInventoryDay(ctx, day); err != nil {
			return fmt.Errorf("failed to provision %s: %w", date.Format(models.DateFormat), err)
		}
	}

	s.logger.Info().
		Int64("room_type_id", roomTypeID).
		Str("from", from.Format(models.DateFormat)).
		Str("to", to.Format(models.DateFormat)).
		Int("total_rooms", totalRooms).
		Msg("Inventory provisioned")
	return nil
}

// SetClosedForSale opens or closes a single sell date. Existing
// bookings are untouched; only new sales stop.
func (s *CatalogService) SetClosedForSale(ctx context.Context, roomTypeID int64, date time.Time, closed bool) error {
	if err := s.store.SetClosedForSale(ctx, roomTypeID, date, closed); err != nil {
		return err
	}
	if closed && s.eventBus != nil {
		payload := map[string]interface{}{
			"room_type_id": roomTypeID,
			"date":         date.Format(models.DateFormat),
		}
		if err := s.eventBus.PublishJSON(events.EventInventoryClosed, payload); err != nil {
			s.logger.Error().Err(err).Msg("Failed to publish event")
		}
	}
	return nil
}

func (s *CatalogService) invalidateListing(ctx context.Context, propertyID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, roomTypesCacheKey(propertyID)); err != nil {
		s.logger.Warn().Err(err).Int64("property_id", propertyID).Msg("Cache invalidation failed")
	}
}
