package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SlotCache caches booked time-of-day lists per (doctor, day) in Redis. The
// booked-slots endpoint is public and hit on every calendar render, so it is
// the one read path worth caching. A nil cache disables caching entirely.
type SlotCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewSlotCache creates a cache over the given client. Returns nil when the
// client is nil so callers can pass it through unconditionally.
func NewSlotCache(redisClient *redis.Client, ttl time.Duration) *SlotCache {
	if redisClient == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SlotCache{redis: redisClient, ttl: ttl}
}

func (c *SlotCache) key(doctorID, day string) string {
	return fmt.Sprintf("slots:booked:%s:%s", doctorID, day)
}

// Get returns the cached list for the doctor and day, or ok=false on miss.
func (c *SlotCache) Get(ctx context.Context, doctorID, day string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, c.key(doctorID, day)).Bytes()
	if err != nil {
		return nil, false
	}
	var slots []string
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, false
	}
	return slots, true
}

// Set stores the list for the doctor and day.
func (c *SlotCache) Set(ctx context.Context, doctorID, day string, slots []string) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("scheduling: marshal slot cache: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(doctorID, day), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("scheduling: set slot cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached day after any booking mutation touching it.
func (c *SlotCache) Invalidate(ctx context.Context, doctorID string, slot time.Time) error {
	if c == nil {
		return nil
	}
	day := slot.Format("2006-01-02")
	if err := c.redis.Del(ctx, c.key(doctorID, day)).Err(); err != nil {
		return fmt.Errorf("scheduling: invalidate slot cache: %w", err)
	}
	return nil
}
