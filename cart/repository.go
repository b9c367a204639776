package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"goflare.io/storefront/models"
)

var _ Repository = (*repository)(nil)

// Repository persists cart snapshots. Nothing is saved implicitly; callers
// decide when a cart outlives the process.
type Repository interface {
	Save(ctx context.Context, owner string, cart *Cart) error
	// Load returns models.ErrNotFound when no snapshot exists for owner.
	Load(ctx context.Context, owner string) (*Cart, error)
	Delete(ctx context.Context, owner string) error
}

type repository struct {
	cache  redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewRepository(cache redis.Cmdable, ttl time.Duration, logger *zap.Logger) Repository {
	return &repository{
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func cartKey(owner string) string {
	return fmt.Sprintf("cart:%s", owner)
}

func (r *repository) Save(ctx context.Context, owner string, cart *Cart) error {
	if owner == "" {
		return models.Invalid("cart owner is required")
	}

	b, err := json.Marshal(cart.Lines())
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	if err = r.cache.Set(ctx, cartKey(owner), b, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to save cart", zap.String("owner", owner), zap.Error(err))
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (r *repository) Load(ctx context.Context, owner string) (*Cart, error) {
	b, err := r.cache.Get(ctx, cartKey(owner)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("cart %s: %w", owner, models.ErrNotFound)
		}
		r.logger.Error("Failed to load cart", zap.String("owner", owner), zap.Error(err))
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var lines []models.CartLine
	if err = json.Unmarshal(b, &lines); err != nil {
		r.logger.Warn("Discarding corrupt cart snapshot", zap.String("owner", owner), zap.Error(err))
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}

	return Restore(lines), nil
}

func (r *repository) Delete(ctx context.Context, owner string) error {
	if err := r.cache.Del(ctx, cartKey(owner)).Err(); err != nil {
		r.logger.Error("Failed to delete cart", zap.String("owner", owner), zap.Error(err))
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
