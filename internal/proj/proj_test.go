package proj

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCRSAliases(t *testing.T) {
	for _, s := range []string{"EPSG:3857", "epsg:3857", "EPSG:900913", " EPSG:102100 "} {
		crs, err := ParseCRS(s)
		require.NoError(t, err, s)
		assert.Equal(t, CRS3857, crs, s)
	}
	for _, s := range []string{"EPSG:4326", "CRS:84", "wgs84"} {
		crs, err := ParseCRS(s)
		require.NoError(t, err, s)
		assert.Equal(t, CRS4326, crs, s)
	}
	_, err := ParseCRS("EPSG:32633")
	assert.Error(t, err)
}

func TestMercatorRoundTrip(t *testing.T) {
	tr := NewTransformer(CRS4326, CRS3857)
	inv := tr.Inverse()

	for _, pt := range [][2]float64{{0, 0}, {-100, 40}, {179.9, -60}, {-179.9, 80}} {
		x, y := tr.Transform(pt[0], pt[1])
		lon, lat := inv.Transform(x, y)
		assert.InDelta(t, pt[0], lon, 1e-9)
		assert.InDelta(t, pt[1], lat, 1e-9)
	}
}

func TestMercatorKnownPoints(t *testing.T) {
	tr := NewTransformer(CRS4326, CRS3857)

	x, y := tr.Transform(0, 0)
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)

	x, _ = tr.Transform(180, 0)
	assert.InDelta(t, MercatorMax, x, 1e-6)
}

func TestAntimeridianContinuity(t *testing.T) {
	// Longitudes past 180 keep projecting outward instead of wrapping to
	// the far west edge.
	tr := NewTransformer(CRS4326, CRS3857)
	x1, _ := tr.Transform(179, 0)
	x2, _ := tr.Transform(181, 0)
	assert.Greater(t, x2, x1)
	assert.Greater(t, x2, MercatorMax)
}

func TestTransformBatch(t *testing.T) {
	tr := NewTransformer(CRS4326, CRS3857)
	xs := []float64{0, -90, 45}
	ys := []float64{0, 45, -45}
	tr.TransformBatch(xs, ys)

	wantX, wantY := tr.Transform(45, -45)
	assert.Equal(t, wantX, xs[2])
	assert.Equal(t, wantY, ys[2])
}

func TestTileBounds(t *testing.T) {
	// Zoom 0 is the full mercator square.
	minX, minY, maxX, maxY := TileBounds(0, 0, 0)
	assert.InDelta(t, -MercatorMax, minX, 1e-6)
	assert.InDelta(t, -MercatorMax, minY, 1e-6)
	assert.InDelta(t, MercatorMax, maxX, 1e-6)
	assert.InDelta(t, MercatorMax, maxY, 1e-6)

	// Zoom 1: tile (0,0) is the northwest quadrant.
	minX, minY, maxX, maxY = TileBounds(1, 0, 0)
	assert.InDelta(t, -MercatorMax, minX, 1e-6)
	assert.InDelta(t, 0, maxX, 1e-6)
	assert.InDelta(t, 0, minY, 1e-6)
	assert.InDelta(t, MercatorMax, maxY, 1e-6)

	// Tiles at the same zoom tile the plane without gaps.
	_, _, maxX0, _ := TileBounds(3, 2, 4)
	minX1, _, _, _ := TileBounds(3, 3, 4)
	assert.InDelta(t, maxX0, minX1, 1e-9)
}

func TestMercatorPoleClamp(t *testing.T) {
	tr := NewTransformer(CRS4326, CRS3857)
	_, y := tr.Transform(0, 90)
	assert.False(t, math.IsInf(y, 1))
}
