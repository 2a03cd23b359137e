package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyLayout(t *testing.T) {
	run := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	key := Key("hrrr", run, "TMP", "2m", 6)
	assert.Equal(t, "shredded/hrrr/20250601_12/TMP_2m/f006.grib2", key)

	// Forecast hours pad to three digits.
	key = Key("gfs", run, "UGRD", "10m", 120)
	assert.Equal(t, "shredded/gfs/20250601_12/UGRD_10m/f120.grib2", key)
}

func TestFSRoundTrip(t *testing.T) {
	s := NewFS(t.TempDir())
	ctx := context.Background()

	key := "shredded/gfs/20250601_12/TMP_2m/f006.grib2"
	body := []byte("GRIB payload")
	require.NoError(t, s.Put(ctx, key, body))

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestFSGetRange(t *testing.T) {
	s := NewFS(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte("0123456789")))

	got, err := s.GetRange(ctx, "k", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("234"), got)

	// Negative length reads through the end.
	got, err = s.GetRange(ctx, "k", 5, -1)
	require.NoError(t, err)
	assert.Equal(t, []byte("56789"), got)
}

func TestFSNotFound(t *testing.T) {
	s := NewFS(t.TempDir())
	_, err := s.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetRange(context.Background(), "absent", 0, 4)
	assert.ErrorIs(t, err, ErrNotFound)
}
