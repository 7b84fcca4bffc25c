package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coursehub/registration-api/internal/core/domain"
)

const defaultCacheTTL = 5 * time.Minute

// RegistrationCache stores a JSON snapshot of each user's course list.
// Key format: mycourses:<user_id>
type RegistrationCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRegistrationCache creates a RegistrationCache wrapping the given Redis client.
func NewRegistrationCache(client *redis.Client, ttl time.Duration) *RegistrationCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RegistrationCache{client: client, ttl: ttl}
}

// Get returns the cached snapshot and whether one was present.
func (c *RegistrationCache) Get(ctx context.Context, userID string) ([]domain.CourseSummary, bool, error) {
	raw, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	var items []domain.CourseSummary
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	return items, true, nil
}

// Set stores the snapshot (expires after the configured TTL).
func (c *RegistrationCache) Set(ctx context.Context, userID string, items []domain.CourseSummary) error {
	if items == nil {
		items = []domain.CourseSummary{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	return c.client.Set(ctx, c.key(userID), raw, c.ttl).Err()
}

// Invalidate drops the user's snapshot.
func (c *RegistrationCache) Invalidate(ctx context.Context, userID string) error {
	return c.client.Del(ctx, c.key(userID)).Err()
}

func (c *RegistrationCache) key(userID string) string {
	return "mycourses:" + userID
}
