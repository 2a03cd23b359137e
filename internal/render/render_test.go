package render

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/stratus/grib2"
	"github.com/driftline/stratus/grib2/gribtest"
	"github.com/driftline/stratus/internal/proj"
)

func decodeSpec(t *testing.T, spec gribtest.FieldSpec) *grib2.Field {
	t.Helper()
	msgs, err := grib2.ParseMessage(gribtest.Message(spec))
	require.NoError(t, err)
	field, err := msgs[0].Decode()
	require.NoError(t, err)
	return field
}

func rampField(t *testing.T) *grib2.Field {
	return decodeSpec(t, gribtest.UniformGrid(0, 0, 72, 37, 250, 310))
}

func TestResampleFullEarth(t *testing.T) {
	field := rampField(t)

	dst := PixelGrid{
		MinX: -proj.MercatorMax, MinY: -proj.MercatorMax,
		MaxX: proj.MercatorMax, MaxY: proj.MercatorMax,
		Width: 64, Height: 64, CRS: proj.CRS3857,
	}
	r := Resample(field, dst)

	// Every pixel of a global field resamples to a present value.
	for i := range r.Missing {
		assert.False(t, r.Missing[i], "pixel %d missing", i)
	}

	// The ramp increases toward the south: top row < bottom row.
	top, _ := r.At(32, 0)
	bottom, _ := r.At(32, 63)
	assert.Less(t, top, bottom)
}

func TestResampleOutsideCoverageIsMissing(t *testing.T) {
	// Regional grid over the central US.
	spec := gribtest.FieldSpec{
		Category: 0, Number: 0,
		Ni: 21, Nj: 11,
		La1: 50, Lo1: 230, La2: 25, Lo2: 280,
		Values: make([]float64, 21*11),
	}
	for i := range spec.Values {
		spec.Values[i] = 280 + float64(i%7)
	}
	field := decodeSpec(t, spec)

	// A bbox over the south pole shares nothing with CONUS.
	dst := PixelGrid{
		MinX: -1e6, MinY: -proj.MercatorMax, MaxX: 1e6, MaxY: -proj.MercatorMax + 2e6,
		Width: 32, Height: 32, CRS: proj.CRS3857,
	}
	r := Resample(field, dst)
	for i := range r.Missing {
		require.True(t, r.Missing[i])
	}
}

func TestResampleMissingPropagation(t *testing.T) {
	spec := gribtest.UniformGrid(0, 0, 36, 19, 250, 310)
	n := spec.Ni * spec.Nj
	bitmap := make([]bool, n)
	var present []float64
	for i := range bitmap {
		bitmap[i] = i >= spec.Ni*4 // northern rows absent
		if bitmap[i] {
			present = append(present, spec.Values[i])
		}
	}
	spec.Bitmap = bitmap
	spec.Values = present
	field := decodeSpec(t, spec)

	dst := PixelGrid{
		MinX: -proj.MercatorMax, MinY: -proj.MercatorMax,
		MaxX: proj.MercatorMax, MaxY: proj.MercatorMax,
		Width: 32, Height: 32, CRS: proj.CRS3857,
	}
	r := Resample(field, dst)

	_, topPresent := r.At(16, 0)
	_, bottomPresent := r.At(16, 31)
	assert.False(t, topPresent, "masked northern rows must stay missing")
	assert.True(t, bottomPresent)
}

func TestGradientInterpolation(t *testing.T) {
	g := &Gradient{
		Clamp: true,
		Stops: []Stop{
			{0, color.NRGBA{0, 0, 0, 255}},
			{10, color.NRGBA{100, 200, 50, 255}},
		},
	}

	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, g.At(-5))
	assert.Equal(t, color.NRGBA{100, 200, 50, 255}, g.At(99))
	mid := g.At(5)
	assert.Equal(t, color.NRGBA{50, 100, 25, 255}, mid)
}

func TestGradientTransparentOutOfRange(t *testing.T) {
	g := &Gradient{
		Stops: []Stop{
			{5, color.NRGBA{10, 10, 10, 255}},
			{10, color.NRGBA{20, 20, 20, 255}},
		},
	}
	assert.Equal(t, color.NRGBA{}, g.At(0))
	assert.Equal(t, color.NRGBA{}, g.At(11))
}

func TestHSLRoundTrip(t *testing.T) {
	for _, c := range []color.NRGBA{
		{255, 0, 0, 255}, {0, 255, 0, 255}, {30, 60, 200, 255}, {128, 128, 128, 255},
	} {
		h, s, l := rgbToHSL(c)
		got := hslToRGB(h, s, l)
		assert.InDelta(t, int(c.R), int(got.R), 1)
		assert.InDelta(t, int(c.G), int(got.G), 1)
		assert.InDelta(t, int(c.B), int(got.B), 1)
	}
}

// TestMarchingSquaresEndpointsOnEdges is the contour correctness
// property: every emitted endpoint lies on a cell edge where the
// bilinear field equals the contour level.
func TestMarchingSquaresEndpointsOnEdges(t *testing.T) {
	w, h := 16, 16
	r := &Raster{
		Width: w, Height: h,
		Values:  make([]float32, w*h),
		Missing: make([]bool, w*h),
	}
	// Smooth radial field.
	for y := range h {
		for x := range w {
			dx, dy := float64(x-8), float64(y-8)
			r.Values[y*w+x] = float32(math.Sqrt(dx*dx + dy*dy))
		}
	}

	const level = 5.0
	segs := marchingSquares(r, level)
	require.NotEmpty(t, segs)

	valueAt := func(p point) float64 {
		// Endpoints lie on cell edges, so one coordinate is integral and
		// the field interpolates linearly along the other.
		x0, y0 := math.Floor(p.X), math.Floor(p.Y)
		fx, fy := p.X-x0, p.Y-y0
		xi, yi := int(x0), int(y0)
		switch {
		case fx == 0 && fy == 0:
			v, _ := r.At(xi, yi)
			return float64(v)
		case fy == 0:
			a, _ := r.At(xi, yi)
			b, _ := r.At(xi+1, yi)
			return float64(a)*(1-fx) + float64(b)*fx
		default:
			a, _ := r.At(xi, yi)
			b, _ := r.At(xi, yi+1)
			return float64(a)*(1-fy) + float64(b)*fy
		}
	}

	for _, s := range segs {
		for _, p := range []point{s.A, s.B} {
			onVertical := p.X == math.Trunc(p.X)
			onHorizontal := p.Y == math.Trunc(p.Y)
			require.True(t, onVertical || onHorizontal, "endpoint %v not on a cell edge", p)
			assert.InDelta(t, level, valueAt(p), 1e-6, "endpoint %v", p)
		}
	}
}

func TestJoinSegmentsChains(t *testing.T) {
	segs := []segment{
		{point{0, 0}, point{1, 0}},
		{point{1, 0}, point{2, 1}},
		{point{2, 1}, point{3, 1}},
		{point{10, 10}, point{11, 10}}, // disjoint line
	}
	lines := joinSegments(segs)
	require.Len(t, lines, 2)

	var long []point
	for _, l := range lines {
		if len(l) == 4 {
			long = l
		}
	}
	require.NotNil(t, long, "three segments should join into one polyline")
}

func TestChaikinPreservesEndpoints(t *testing.T) {
	line := []point{{0, 0}, {5, 10}, {10, 0}}
	smoothed := chaikin(line)
	assert.Equal(t, line[0], smoothed[0])
	assert.Equal(t, line[len(line)-1], smoothed[len(smoothed)-1])
	assert.Greater(t, len(smoothed), len(line))
}

func TestBarbsCompositing(t *testing.T) {
	w, h := 128, 128
	mk := func(v float32) *Raster {
		r := &Raster{Width: w, Height: h, Values: make([]float32, w*h), Missing: make([]bool, w*h)}
		for i := range r.Values {
			r.Values[i] = v
		}
		return r
	}

	// 20 m/s westerly: ~39 knots, should draw barbs.
	style := &Style{Kind: KindBarbs, BarbColor: color.NRGBA{0, 0, 0, 255}, BarbSpacing: 48}
	img := Barbs(mk(20), mk(0), style)

	opaque := 0
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] > 0 {
			opaque++
		}
	}
	assert.Greater(t, opaque, 50, "expected drawn barb pixels")

	// Calm air draws nothing.
	img = Barbs(mk(0.5), mk(0.5), style)
	for i := 3; i < len(img.Pix); i += 4 {
		require.Zero(t, img.Pix[i])
	}
}

func TestColorizeTransparentMissing(t *testing.T) {
	r := &Raster{Width: 4, Height: 4, Values: make([]float32, 16), Missing: make([]bool, 16)}
	for i := range r.Values {
		r.Values[i] = 5
		r.Missing[i] = i%2 == 0
	}
	g := &Gradient{Clamp: true, Stops: []Stop{{0, color.NRGBA{255, 0, 0, 255}}, {10, color.NRGBA{0, 0, 255, 255}}}}
	img := Colorize(r, g)

	for i := range 16 {
		alpha := img.Pix[i*4+3]
		if i%2 == 0 {
			assert.Zero(t, alpha, "missing pixel %d must be transparent", i)
		} else {
			assert.NotZero(t, alpha)
		}
	}
}
