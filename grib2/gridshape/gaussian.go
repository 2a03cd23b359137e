package gridshape

import (
	"fmt"
	"math"
	"sort"

	"github.com/driftline/stratus/grib2/internal/wire"
)

// GaussianGrid represents Grid Definition Template 3.40: Gaussian
// latitude/longitude. Columns are regular in longitude; rows sit on
// Gaussian latitudes (the roots of the Legendre polynomial of degree 2N),
// which is what spectral models such as the GFS ensemble output on.
type GaussianGrid struct {
	Earth Earth
	Ni    uint32 // Number of points along a parallel
	Nj    uint32 // Number of points along a meridian
	La1   int32  // Latitude of first grid point (micro-degrees)
	Lo1   int32  // Longitude of first grid point (micro-degrees)
	La2   int32
	Lo2   int32
	Di    uint32 // i direction increment (micro-degrees)
	N     uint32 // Number of parallels between a pole and the equator
	Scan  ScanMode

	lonW   float64
	di     float64
	global bool
	// Gaussian latitudes in canonical order (north to south).
	lats []float64
}

// ParseGaussianGrid parses Template 3.40. The layout matches Template 3.0
// except that bytes 54-57 carry N, the number of parallels between a pole
// and the equator, instead of a Dj increment.
func ParseGaussianGrid(data []byte) (*GaussianGrid, error) {
	if len(data) < 58 {
		return nil, fmt.Errorf("template 3.40 requires at least 58 bytes, got %d", len(data))
	}

	r := wire.NewReader(data)

	earth, err := parseEarth(r)
	if err != nil {
		return nil, err
	}

	ni, _ := r.Uint32()
	nj, _ := r.Uint32()
	_ = r.Skip(8)
	la1, _ := r.Int32()
	lo1, _ := r.Int32()
	_, _ = r.Uint8() // resolution and component flags
	la2, _ := r.Int32()
	lo2, _ := r.Int32()
	di, _ := r.Uint32()
	n, _ := r.Uint32()
	scan, err := r.Uint8()
	if err != nil {
		return nil, err
	}

	if ni == 0 || nj == 0 {
		return nil, fmt.Errorf("template 3.40: zero grid dimension %dx%d", ni, nj)
	}
	if 2*n != nj {
		return nil, fmt.Errorf("template 3.40: Nj=%d does not match 2N=%d", nj, 2*n)
	}

	g := &GaussianGrid{
		Earth: earth,
		Ni:    ni,
		Nj:    nj,
		La1:   la1,
		Lo1:   lo1,
		La2:   la2,
		Lo2:   lo2,
		Di:    di,
		N:     n,
		Scan:  ScanMode(scan),
	}

	g.di = float64(di) / 1e6
	if !g.Scan.INegative() {
		g.lonW = float64(lo1) / 1e6
	} else {
		g.lonW = float64(lo2) / 1e6
	}
	g.global = g.di*float64(ni) >= 360.0-g.di/2
	g.lats = gaussianLatitudes(int(nj))
	return g, nil
}

// gaussianLatitudes computes the nj Gaussian latitudes in degrees, ordered
// north to south. They are the roots of the Legendre polynomial P_nj,
// found by Newton iteration from the Chebyshev-root initial guess.
func gaussianLatitudes(nj int) []float64 {
	lats := make([]float64, nj)
	for i := 0; i < (nj+1)/2; i++ {
		// Initial guess for the i-th root of P_nj in (-1, 1).
		x := math.Cos(math.Pi * (float64(i) + 0.75) / (float64(nj) + 0.5))

		for range 100 {
			// Evaluate P_nj(x) and its derivative via the recurrence.
			p0, p1 := 1.0, x
			for k := 2; k <= nj; k++ {
				p0, p1 = p1, (float64(2*k-1)*x*p1-float64(k-1)*p0)/float64(k)
			}
			dp := float64(nj) * (x*p1 - p0) / (x*x - 1)
			dx := p1 / dp
			x -= dx
			if math.Abs(dx) < 1e-14 {
				break
			}
		}

		lat := math.Asin(x) * rad2deg
		lats[i] = lat
		lats[nj-1-i] = -lat
	}
	return lats
}

// TemplateNumber returns 40 for Gaussian grids.
func (g *GaussianGrid) TemplateNumber() int { return 40 }

// Dims returns the grid dimensions.
func (g *GaussianGrid) Dims() (int, int) { return int(g.Ni), int(g.Nj) }

// NumPoints returns the total number of grid points.
func (g *GaussianGrid) NumPoints() int { return int(g.Ni) * int(g.Nj) }

// ScanMode returns the scanning mode flags.
func (g *GaussianGrid) ScanMode() ScanMode { return g.Scan }

// LatLon returns the coordinates of a canonical grid cell.
func (g *GaussianGrid) LatLon(row, col int) (lat, lon float64) {
	return g.lats[row], NormalizeLon(g.lonW + float64(col)*g.di)
}

// FractionalIndex maps a geographic point to fractional canonical indices.
// The row is located by binary search over the Gaussian latitudes with
// linear interpolation between the bracketing rows.
func (g *GaussianGrid) FractionalIndex(lat, lon float64) (row, col float64, ok bool) {
	if lat > g.lats[0] || lat < g.lats[len(g.lats)-1] {
		return 0, 0, false
	}

	// lats is strictly decreasing; find the first row south of lat.
	j := sort.Search(len(g.lats), func(i int) bool { return g.lats[i] <= lat })
	if j == 0 {
		row = 0
	} else {
		above, below := g.lats[j-1], g.lats[j]
		row = float64(j-1) + (above-lat)/(above-below)
	}

	dlon := lon - g.lonW
	for dlon < 0 {
		dlon += 360
	}
	for dlon >= 360 {
		dlon -= 360
	}
	col = dlon / g.di

	if !g.global && col > float64(g.Ni-1) {
		return 0, 0, false
	}
	return row, col, true
}

// String returns a human-readable description of the grid.
func (g *GaussianGrid) String() string {
	return fmt.Sprintf("Gaussian grid: %dx%d points, N=%d, di=%.4f", g.Ni, g.Nj, g.N, g.di)
}
