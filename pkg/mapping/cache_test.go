package mapping

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRoundTrip(t *testing.T) {
	c := NewCache(time.Hour)
	brand := uuid.New()
	target := uuid.New()

	c.Put(brand, "material_1_name", "Organic Cotton", target)

	got, ok := c.Get(brand, "material_1_name", "Organic Cotton")
	require.True(t, ok)
	assert.Equal(t, target, got)

	// Case and whitespace variants of the value must still hit
	got, ok = c.Get(brand, "material_1_name", "  organic cotton ")
	require.True(t, ok)
	assert.Equal(t, target, got)
}

func TestCacheMissesDifferentKeyParts(t *testing.T) {
	c := NewCache(time.Hour)
	brand := uuid.New()
	c.Put(brand, "material_1_name", "Wool", uuid.New())

	_, ok := c.Get(brand, "material_2_name", "Wool")
	assert.False(t, ok, "different column must miss")

	_, ok = c.Get(uuid.New(), "material_1_name", "Wool")
	assert.False(t, ok, "different brand must miss")
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(time.Hour)
	now := time.Now()
	c.now = func() time.Time { return now }

	brand := uuid.New()
	c.Put(brand, "category", "Tops", uuid.New())

	// Just before the TTL the entry is still present
	c.now = func() time.Time { return now.Add(time.Hour - time.Second) }
	_, ok := c.Get(brand, "category", "Tops")
	assert.True(t, ok)

	// At exactly the TTL the entry is evicted
	c.now = func() time.Time { return now.Add(time.Hour) }
	_, ok = c.Get(brand, "category", "Tops")
	assert.False(t, ok)

	assert.Equal(t, 0, c.Stats().Size, "lazy eviction removes the entry")
}

func TestCacheSweep(t *testing.T) {
	c := NewCache(time.Hour)
	now := time.Now()
	c.now = func() time.Time { return now }

	brand := uuid.New()
	c.Put(brand, "category", "Tops", uuid.New())
	c.Put(brand, "category", "Bottoms", uuid.New())

	c.now = func() time.Time { return now.Add(30 * time.Minute) }
	c.Put(brand, "category", "Dresses", uuid.New())

	c.now = func() time.Time { return now.Add(time.Hour) }
	removed := c.Sweep()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Stats().Size)
}

func TestCacheClear(t *testing.T) {
	c := NewCache(time.Hour)
	brand := uuid.New()
	c.Put(brand, "category", "Tops", uuid.New())
	c.Put(brand, "category", "Bottoms", uuid.New())

	c.Clear()
	assert.Equal(t, 0, c.Stats().Size)
}

func TestCacheStatsHitRate(t *testing.T) {
	c := NewCache(time.Hour)
	brand := uuid.New()
	target := uuid.New()

	assert.Equal(t, 0.0, c.Stats().HitRate, "no lookups yet")

	c.Put(brand, "category", "Tops", target)
	c.Get(brand, "category", "Tops")    // hit
	c.Get(brand, "category", "Bottoms") // miss

	stats := c.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)
}

func TestCachePutOverwrites(t *testing.T) {
	c := NewCache(time.Hour)
	brand := uuid.New()
	first := uuid.New()
	second := uuid.New()

	c.Put(brand, "category", "Tops", first)
	c.Put(brand, "category", "tops", second)

	got, ok := c.Get(brand, "category", "Tops")
	require.True(t, ok)
	assert.Equal(t, second, got)
	assert.Equal(t, 1, c.Stats().Size)
}

func TestCacheSweeperDisabledByZeroInterval(t *testing.T) {
	c := NewCache(time.Hour)
	defer c.Stop()

	// A zero interval means no background sweeper; this must not panic and
	// Stop must remain safe to call.
	c.StartSweeper(0)
	c.StartSweeper(-time.Minute)

	brand := uuid.New()
	c.Put(brand, "category", "Tops", uuid.New())
	got, ok := c.Get(brand, "category", "Tops")
	require.True(t, ok)
	assert.NotEqual(t, uuid.Nil, got)
}
