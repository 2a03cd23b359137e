package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/stratus/grib2"
)

func TestTileCacheLRU(t *testing.T) {
	c, err := NewTileCache(2, 0, 0)
	require.NoError(t, err)

	c.Put("a", Entry{Bytes: []byte("aa"), ProducedAt: time.Now()})
	c.Put("b", Entry{Bytes: []byte("bb"), ProducedAt: time.Now()})

	_, ok := c.Get("a") // refresh a
	require.True(t, ok)

	c.Put("c", Entry{Bytes: []byte("cc"), ProducedAt: time.Now()})

	_, ok = c.Get("b")
	assert.False(t, ok, "b should be the LRU victim")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestTileCacheAdmissionCap(t *testing.T) {
	c, err := NewTileCache(8, 4, 0)
	require.NoError(t, err)

	c.Put("big", Entry{Bytes: []byte("too large"), ProducedAt: time.Now()})
	_, ok := c.Get("big")
	assert.False(t, ok, "oversized entry must not be admitted")

	c.Put("ok", Entry{Bytes: []byte("ok"), ProducedAt: time.Now()})
	_, ok = c.Get("ok")
	assert.True(t, ok)
}

func TestTileCacheTTL(t *testing.T) {
	c, err := NewTileCache(8, 0, 50*time.Millisecond)
	require.NoError(t, err)

	c.Put("x", Entry{Bytes: []byte("x"), ProducedAt: time.Now().Add(-time.Second)})
	_, ok := c.Get("x")
	assert.False(t, ok, "entry past its TTL must not be served")
}

func TestGridCacheEntryBound(t *testing.T) {
	c, err := NewGridCache(2)
	require.NoError(t, err)

	c.Put("d1", &grib2.Field{})
	c.Put("d2", &grib2.Field{})
	c.Put("d3", &grib2.Field{})
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("d1")
	assert.False(t, ok)
}

func TestRedisRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)
	c := NewRedisCache(srv.Addr(), 1, time.Minute, time.Second)
	defer c.Close()

	ctx := context.Background()
	entry := Entry{
		Bytes:       []byte{0x89, 0x50, 0x4E, 0x47},
		ContentType: "image/png",
		ProducedAt:  time.Unix(1760000000, 0).UTC(),
	}
	require.NoError(t, c.Put(ctx, "fp1", entry))

	got, err := c.Get(ctx, "fp1")
	require.NoError(t, err)
	assert.Equal(t, entry.Bytes, got.Bytes)
	assert.Equal(t, entry.ContentType, got.ContentType)
	assert.Equal(t, entry.ProducedAt, got.ProducedAt)
}

func TestRedisMiss(t *testing.T) {
	srv := miniredis.RunT(t)
	c := NewRedisCache(srv.Addr(), 1, time.Minute, time.Second)
	defer c.Close()

	_, err := c.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisSchemaVersionIsolation(t *testing.T) {
	srv := miniredis.RunT(t)
	v1 := NewRedisCache(srv.Addr(), 1, time.Minute, time.Second)
	v2 := NewRedisCache(srv.Addr(), 2, time.Minute, time.Second)
	defer v1.Close()
	defer v2.Close()

	ctx := context.Background()
	require.NoError(t, v1.Put(ctx, "fp", Entry{Bytes: []byte("old"), ContentType: "image/png", ProducedAt: time.Now()}))

	// A schema bump must not see the old rendering.
	_, err := v2.Get(ctx, "fp")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisGetRefreshesTTL(t *testing.T) {
	srv := miniredis.RunT(t)
	c := NewRedisCache(srv.Addr(), 1, time.Minute, time.Second)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "hot", Entry{Bytes: []byte("b"), ContentType: "image/png", ProducedAt: time.Now()}))

	// Repeated hits keep pushing the expiry out: the entry survives well
	// past its original TTL as long as it stays hot.
	for range 3 {
		srv.FastForward(45 * time.Second)
		_, err := c.Get(ctx, "hot")
		require.NoError(t, err)
	}

	// Once reads stop, the countdown runs out.
	srv.FastForward(2 * time.Minute)
	_, err := c.Get(ctx, "hot")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisTTLApplied(t *testing.T) {
	srv := miniredis.RunT(t)
	c := NewRedisCache(srv.Addr(), 1, time.Minute, time.Second)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "fp", Entry{Bytes: []byte("b"), ContentType: "image/png", ProducedAt: time.Now()}))

	srv.FastForward(2 * time.Minute)
	_, err := c.Get(ctx, "fp")
	assert.ErrorIs(t, err, ErrMiss)
}
