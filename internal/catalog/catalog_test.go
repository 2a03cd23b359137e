package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleDataset(run time.Time, fhh int) *Dataset {
	return &Dataset{
		Model:         "gfs",
		Parameter:     "TMP",
		LevelType:     103,
		LevelValue:    2,
		ReferenceTime: run,
		ForecastHour:  fhh,
		StorageKey:    "shredded/gfs/20250601_12/TMP_103-2/f006.grib2",
		GridMeta:      GridMeta{TemplateNumber: 0, Ni: 360, Nj: 181, MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180},
		Size:          1024,
	}
}

func TestInsertResolve(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()
	run := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	d := sampleDataset(run, 6)
	require.NoError(t, c.Insert(ctx, d))

	// Pending datasets are invisible to lookups.
	_, err := c.Resolve(ctx, "gfs", "TMP", 103, 2, run.Add(6*time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.MarkAvailable(ctx, d))

	got, err := c.Resolve(ctx, "gfs", "TMP", 103, 2, run.Add(6*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, d.StorageKey, got.StorageKey)
	assert.Equal(t, 360, got.GridMeta.Ni)
	assert.Equal(t, run, got.ReferenceTime)
}

func TestResolvePicksClosestValidTime(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()
	run := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for _, fhh := range []int{0, 6, 12} {
		d := sampleDataset(run, fhh)
		require.NoError(t, c.Insert(ctx, d))
		require.NoError(t, c.MarkAvailable(ctx, d))
	}

	got, err := c.Resolve(ctx, "gfs", "TMP", 103, 2, run.Add(7*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 6, got.ForecastHour)

	got, err = c.Resolve(ctx, "gfs", "TMP", 103, 2, run.Add(11*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 12, got.ForecastHour)
}

func TestModelsDoNotCollide(t *testing.T) {
	// The MRMS/HRRR reflectivity collision: identical parameter names
	// under different models must resolve independently.
	c := openTest(t)
	ctx := context.Background()
	run := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	hrrr := sampleDataset(run, 0)
	hrrr.Model = "hrrr"
	hrrr.Parameter = "REFC"
	hrrr.StorageKey = "shredded/hrrr/ref"
	mrms := sampleDataset(run, 0)
	mrms.Model = "mrms"
	mrms.Parameter = "REFC"
	mrms.StorageKey = "shredded/mrms/ref"

	for _, d := range []*Dataset{hrrr, mrms} {
		require.NoError(t, c.Insert(ctx, d))
		require.NoError(t, c.MarkAvailable(ctx, d))
	}

	got, err := c.Resolve(ctx, "hrrr", "REFC", 103, 2, run)
	require.NoError(t, err)
	assert.Equal(t, "shredded/hrrr/ref", got.StorageKey)

	got, err = c.Resolve(ctx, "mrms", "REFC", 103, 2, run)
	require.NoError(t, err)
	assert.Equal(t, "shredded/mrms/ref", got.StorageKey)
}

func TestNegativeCaching(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, err := c.Resolve(ctx, "nam", "TMP", 103, 2, at)
	require.ErrorIs(t, err, ErrNotFound)

	// The second miss is served from the negative cache.
	c.negMu.Lock()
	entries := len(c.neg)
	c.negMu.Unlock()
	assert.Equal(t, 1, entries)

	_, err = c.Resolve(ctx, "nam", "TMP", 103, 2, at)
	assert.ErrorIs(t, err, ErrNotFound)

	// An insert clears negatives so fresh data shows up immediately.
	d := sampleDataset(at, 0)
	d.Model = "nam"
	require.NoError(t, c.Insert(ctx, d))
	require.NoError(t, c.MarkAvailable(ctx, d))
	_, err = c.Resolve(ctx, "nam", "TMP", 103, 2, at)
	assert.NoError(t, err)
}

func TestExpire(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()
	oldRun := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
	newRun := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for _, run := range []time.Time{oldRun, newRun} {
		d := sampleDataset(run, 0)
		require.NoError(t, c.Insert(ctx, d))
		require.NoError(t, c.MarkAvailable(ctx, d))
	}

	n, err := c.Expire(ctx, "gfs", newRun)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := c.Resolve(ctx, "gfs", "TMP", 103, 2, oldRun)
	require.NoError(t, err)
	assert.Equal(t, newRun, got.ReferenceTime, "expired run must not resolve")
}

func TestLatestRun(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()

	_, err := c.LatestRun(ctx, "gfs")
	assert.ErrorIs(t, err, ErrNotFound)

	run := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	d := sampleDataset(run, 0)
	require.NoError(t, c.Insert(ctx, d))
	require.NoError(t, c.MarkAvailable(ctx, d))

	got, err := c.LatestRun(ctx, "gfs")
	require.NoError(t, err)
	assert.Equal(t, run, got)
}
