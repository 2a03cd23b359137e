package coordinate

import (
	"bytes"
	"context"
	"image/png"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/stratus/grib2/gribtest"
	"github.com/driftline/stratus/internal/cache"
	"github.com/driftline/stratus/internal/catalog"
	"github.com/driftline/stratus/internal/config"
	"github.com/driftline/stratus/internal/metrics"
	"github.com/driftline/stratus/internal/proj"
	"github.com/driftline/stratus/internal/render"
	"github.com/driftline/stratus/internal/store"
)

var testRun = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// newTestRedis starts a miniredis and returns its address.
func newTestRedis(t *testing.T) string {
	t.Helper()
	return miniredis.RunT(t).Addr()
}

// newTestCoordinator wires a coordinator over a temp catalog and
// filesystem store seeded with one global temperature dataset.
func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	ctx := context.Background()

	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	objects := store.NewFS(t.TempDir())

	spec := gribtest.UniformGrid(0, 0, 72, 37, 250, 310)
	spec.LevelType = 103
	spec.LevelValue = 2
	spec.RefTime = testRun
	key := store.Key("gfs", testRun, "TMP", "103-2", 0)
	require.NoError(t, objects.Put(ctx, key, gribtest.Message(spec)))

	ds := &catalog.Dataset{
		Model: "gfs", Parameter: "TMP",
		LevelType: 103, LevelValue: 2,
		ReferenceTime: testRun, ForecastHour: 0,
		StorageKey: key,
		GridMeta:   catalog.GridMeta{TemplateNumber: 0, Ni: 72, Nj: 37},
	}
	require.NoError(t, cat.Insert(ctx, ds))
	require.NoError(t, cat.MarkAvailable(ctx, ds))

	l1, err := cache.NewTileCache(128, 0, 0)
	require.NoError(t, err)
	grids, err := cache.NewGridCache(4)
	require.NoError(t, err)

	c := New(Options{
		Layers: map[string]config.Layer{
			"gfs_tmp": {Model: "gfs", Parameter: "TMP", LevelType: 103, LevelValue: 2, Style: "temperature"},
		},
		Styles:         render.DefaultStyles(),
		Catalog:        cat,
		Objects:        objects,
		L1:             l1,
		Grids:          grids,
		Workers:        4,
		Metrics:        metrics.NewNop(),
		Log:            zerolog.Nop(),
		RequestTimeout: 10 * time.Second,
	})
	t.Cleanup(c.Close)
	return c
}

func tileRequest(z, x, y int) Request {
	minX, minY, maxX, maxY := proj.TileBounds(z, x, y)
	return Request{
		Layer: "gfs_tmp", Style: "temperature",
		Width: 256, Height: 256,
		MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY,
		Time:   testRun,
		Format: "image/png",
		Tile:   &TileCoord{Z: z, X: x, Y: y},
	}
}

func TestTileRendersValidPNG(t *testing.T) {
	c := newTestCoordinator(t)

	entry, err := c.Tile(context.Background(), tileRequest(2, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, "image/png", entry.ContentType)
	assert.GreaterOrEqual(t, len(entry.Bytes), 8)
	assert.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, entry.Bytes[:8])

	img, err := png.Decode(bytes.NewReader(entry.Bytes))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
}

// TestSingleFlight is the collapse property: N concurrent identical
// requests trigger exactly one render and byte-identical responses.
func TestSingleFlight(t *testing.T) {
	c := newTestCoordinator(t)
	req := tileRequest(3, 2, 3)

	const n = 50
	var wg sync.WaitGroup
	entries := make([]cache.Entry, n)
	errs := make([]error, n)

	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entries[i], errs[i] = c.Tile(context.Background(), req)
		}()
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		assert.True(t, bytes.Equal(entries[0].Bytes, entries[i].Bytes), "response %d differs", i)
	}

	renders := testutil.ToFloat64(c.met.RendersTotal)
	assert.Equal(t, 1.0, renders, "expected exactly one render for %d concurrent requests", n)
}

// TestCacheCoherence is the tier property: after a render L1 serves the
// bytes without touching the decoder; after L1 eviction L2 returns the
// same bytes and repopulates L1.
func TestCacheCoherence(t *testing.T) {
	c := newTestCoordinator(t)

	srv := newTestRedis(t)
	c.l2 = cache.NewRedisCache(srv, 1, time.Minute, time.Second)
	t.Cleanup(func() { c.l2.Close() })

	req := tileRequest(2, 0, 1)
	fp := req.Fingerprint()
	ctx := context.Background()

	first, err := c.Tile(ctx, req)
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(c.met.RendersTotal))

	// L1 hit: no new render.
	second, err := c.Tile(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.Bytes, second.Bytes)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.met.RendersTotal))

	// Wait out the async L2 write, then evict L1.
	require.Eventually(t, func() bool {
		_, err := c.l2.Get(ctx, fp)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	c.l1.Remove(fp)

	third, err := c.Tile(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.Bytes, third.Bytes)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.met.RendersTotal), "L2 hit must not re-render")

	// And the L2 hit restored L1.
	_, ok := c.l1.Get(fp)
	assert.True(t, ok)
}

func TestGridCacheSharedAcrossTiles(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	_, err := c.Tile(ctx, tileRequest(3, 1, 2))
	require.NoError(t, err)
	_, err = c.Tile(ctx, tileRequest(3, 2, 2))
	require.NoError(t, err)

	// Two different tiles, one decoded grid.
	assert.Equal(t, 1.0, testutil.ToFloat64(c.met.GridCacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.met.GridCacheHits))
}

func TestUnknownLayer(t *testing.T) {
	c := newTestCoordinator(t)
	req := tileRequest(2, 1, 1)
	req.Layer = "nope_tmp"

	_, err := c.Tile(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnknownLayer)
}

func TestNoDataForTime(t *testing.T) {
	c := newTestCoordinator(t)
	req := tileRequest(2, 1, 1)
	req.Layer = "gfs_tmp"
	req.Time = testRun
	// Point at a parameter/level with no datasets by swapping the layer def.
	c.layers["gfs_tmp"] = config.Layer{Model: "gfs", Parameter: "HGT", LevelType: 100, LevelValue: 500}

	_, err := c.Tile(context.Background(), req)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestFingerprintDeterminism(t *testing.T) {
	a := tileRequest(4, 5, 6)
	b := tileRequest(4, 5, 6)

	// Case differences in ids collapse.
	b.Layer = "GFS_TMP"
	b.Style = "Temperature"
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	// Sub-quantum bbox noise collapses.
	b = tileRequest(4, 5, 6)
	b.MinX += 1e-6
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	// Different tiles differ.
	c := tileRequest(4, 5, 7)
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestPoolRespectsCallerDeadline(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	block := make(chan struct{})
	go p.Run(context.Background(), func() error {
		<-block
		return nil
	})
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Run(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(block)
}

func TestWarmerReadiness(t *testing.T) {
	c := newTestCoordinator(t)
	w := NewWarmer(c, []config.WarmTarget{{
		Layer: "gfs_tmp", Style: "temperature",
		MinZoom: 0, MaxZoom: 1,
		BBox: [4]float64{-proj.MercatorMax, -proj.MercatorMax, proj.MercatorMax, proj.MercatorMax},
	}}, 0.75)

	assert.False(t, w.Ready())
	require.NoError(t, w.Run(context.Background()))
	assert.True(t, w.Ready())
	assert.Equal(t, 1.0, w.Fraction())

	// Zoom 0 + zoom 1 over the whole world = 1 + 4 tiles, all cached now.
	assert.Equal(t, 5, c.l1.Len())
}
