package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewSlotCache(client)

	ctx := context.Background()
	slots := MockSlots(time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC))

	require.NoError(t, cache.Save(ctx, "CAcache1", slots))

	loaded, ok, err := cache.Load(ctx, "CAcache1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, slots, loaded)
}

func TestSlotCacheMissAndClear(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewSlotCache(client)

	ctx := context.Background()

	_, ok, err := cache.Load(ctx, "CAmissing")
	require.NoError(t, err)
	assert.False(t, ok)

	slots := MockSlots(time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC))
	require.NoError(t, cache.Save(ctx, "CAcache2", slots))
	require.NoError(t, cache.Clear(ctx, "CAcache2"))

	_, ok, err = cache.Load(ctx, "CAcache2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSlotCacheExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewSlotCache(client)

	ctx := context.Background()
	slots := MockSlots(time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC))
	require.NoError(t, cache.Save(ctx, "CAcache3", slots))

	mr.FastForward(slotCacheTTL + time.Second)

	_, ok, err := cache.Load(ctx, "CAcache3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSlotCacheNilSafe(t *testing.T) {
	var cache *SlotCache
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, "CAnil", nil))
	_, ok, err := cache.Load(ctx, "CAnil")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, cache.Clear(ctx, "CAnil"))
}
