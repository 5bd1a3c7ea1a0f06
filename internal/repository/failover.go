package repository

import (
	"context"
	"sync/atomic"
	"time"

	"innkeeper/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverCache serves from the primary cache until it errors, then
// switches to the fallback and probes the primary once a minute.
type FailoverCache struct {
	primary   domain.Cache
	fallback  domain.Cache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverCache(primary, fallback domain.Cache, logger *zerolog.Logger) *FailoverCache {
	return &FailoverCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (f *FailoverCache) markDown(err error) {
	f.logger.Error().Err(err).Msg("Primary cache failed, falling back to memory")
	f.isDown.Store(true)
	f.lastCheck.Store(time.Now().UnixNano())
}

func (f *FailoverCache) shouldRetryPrimary() bool {
	return time.Since(time.Unix(0, f.lastCheck.Load())) > time.Minute
}

func (f *FailoverCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !f.isDown.Load() {
		value, found, err := f.primary.Get(ctx, key)
		if err == nil {
			return value, found, nil
		}
		f.markDown(err)
	} else if f.shouldRetryPrimary() {
		value, found, err := f.primary.Get(ctx, key)
		if err == nil {
			f.isDown.Store(false)
			return value, found, nil
		}
		f.lastCheck.Store(time.Now().UnixNano())
	}

	return f.fallback.Get(ctx, key)
}

func (f *FailoverCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !f.isDown.Load() {
		err := f.primary.Set(ctx, key, value, ttl)
		if err == nil {
			return nil
		}
		f.markDown(err)
	}

	return f.fallback.Set(ctx, key, value, ttl)
}

func (f *FailoverCache) Delete(ctx context.Context, key string) error {
	if !f.isDown.Load() {
		err := f.primary.Delete(ctx, key)
		if err == nil {
			// Keep the fallback coherent so a later failover cannot
			// resurrect a deleted listing.
			_ = f.fallback.Delete(ctx, key)
			return nil
		}
		f.markDown(err)
	}

	return f.fallback.Delete(ctx, key)
}
