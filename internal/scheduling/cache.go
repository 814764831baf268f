package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Offered slots stay valid long enough for the caller to pick and confirm,
// then expire on their own.
const slotCacheTTL = 15 * time.Minute

// SlotCache pins the slot list offered to a call in Redis so the selection
// and confirmation turns resolve against exactly what the caller heard, even
// if calendar availability shifts between turns. All methods are safe on a
// nil cache; callers without Redis simply recompute.
type SlotCache struct {
	redis *redis.Client
}

// NewSlotCache creates a cache over the given client, which may be nil.
func NewSlotCache(client *redis.Client) *SlotCache {
	if client == nil {
		return nil
	}
	return &SlotCache{redis: client}
}

// Save pins the offered slot list for a call.
func (c *SlotCache) Save(ctx context.Context, callSID string, slots []Slot) error {
	if c == nil || c.redis == nil {
		return nil
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("scheduling: marshal offered slots: %w", err)
	}
	if err := c.redis.Set(ctx, slotCacheKey(callSID), data, slotCacheTTL).Err(); err != nil {
		return fmt.Errorf("scheduling: persist offered slots: %w", err)
	}
	return nil
}

// Load returns the pinned slot list for a call, or ok=false when none is
// cached or no cache is configured.
func (c *SlotCache) Load(ctx context.Context, callSID string) ([]Slot, bool, error) {
	if c == nil || c.redis == nil {
		return nil, false, nil
	}
	data, err := c.redis.Get(ctx, slotCacheKey(callSID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("scheduling: load offered slots: %w", err)
	}
	var slots []Slot
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, false, fmt.Errorf("scheduling: decode offered slots: %w", err)
	}
	return slots, true, nil
}

// Clear drops the pinned list once a booking lands.
func (c *SlotCache) Clear(ctx context.Context, callSID string) error {
	if c == nil || c.redis == nil {
		return nil
	}
	if err := c.redis.Del(ctx, slotCacheKey(callSID)).Err(); err != nil {
		return fmt.Errorf("scheduling: clear offered slots: %w", err)
	}
	return nil
}

func slotCacheKey(callSID string) string {
	return fmt.Sprintf("offered_slots:%s", callSID)
}
