package gridshape

import (
	"fmt"

	"github.com/driftline/stratus/grib2/internal/wire"
)

// LatLonGrid represents Grid Definition Template 3.0: latitude/longitude
// (equidistant cylindrical). This is the most common grid type; GFS global
// output uses it.
type LatLonGrid struct {
	Earth    Earth
	Ni       uint32 // Number of points along a parallel
	Nj       uint32 // Number of points along a meridian
	La1      int32  // Latitude of first grid point (micro-degrees)
	Lo1      int32  // Longitude of first grid point (micro-degrees)
	ResFlags uint8  // Resolution and component flags
	La2      int32  // Latitude of last grid point (micro-degrees)
	Lo2      int32  // Longitude of last grid point (micro-degrees)
	Di       uint32 // i direction increment (micro-degrees)
	Dj       uint32 // j direction increment (micro-degrees)
	Scan     ScanMode

	// Derived canonical-layout fields.
	latNW, lonW float64 // northwest corner, degrees
	di, dj      float64 // increments, degrees
	global      bool    // longitude wraps
}

// ParseLatLonGrid parses Template 3.0 from template-specific data
// (the section payload after the 14-byte Section 3 header):
//
//	Bytes 1-16:  Shape of the earth block
//	Bytes 17-20: Ni
//	Bytes 21-24: Nj
//	Bytes 25-32: Basic angle and subdivisions
//	Bytes 33-36: La1 (micro-degrees)
//	Bytes 37-40: Lo1 (micro-degrees)
//	Byte 41:     Resolution and component flags
//	Bytes 42-45: La2
//	Bytes 46-49: Lo2
//	Bytes 50-53: Di (micro-degrees)
//	Bytes 54-57: Dj (micro-degrees)
//	Byte 58:     Scanning mode
func ParseLatLonGrid(data []byte) (*LatLonGrid, error) {
	if len(data) < 58 {
		return nil, fmt.Errorf("template 3.0 requires at least 58 bytes, got %d", len(data))
	}

	r := wire.NewReader(data)

	earth, err := parseEarth(r)
	if err != nil {
		return nil, err
	}

	ni, _ := r.Uint32()
	nj, _ := r.Uint32()
	_ = r.Skip(8) // basic angle and subdivisions
	la1, _ := r.Int32()
	lo1, _ := r.Int32()
	resFlags, _ := r.Uint8()
	la2, _ := r.Int32()
	lo2, _ := r.Int32()
	di, _ := r.Uint32()
	dj, _ := r.Uint32()
	scan, err := r.Uint8()
	if err != nil {
		return nil, err
	}

	if ni == 0 || nj == 0 {
		return nil, fmt.Errorf("template 3.0: zero grid dimension %dx%d", ni, nj)
	}

	g := &LatLonGrid{
		Earth:    earth,
		Ni:       ni,
		Nj:       nj,
		La1:      la1,
		Lo1:      lo1,
		ResFlags: resFlags,
		La2:      la2,
		Lo2:      lo2,
		Di:       di,
		Dj:       dj,
		Scan:     ScanMode(scan),
	}
	g.derive()
	return g, nil
}

func (g *LatLonGrid) derive() {
	lat1 := float64(g.La1) / 1e6
	lat2 := float64(g.La2) / 1e6
	lon1 := float64(g.Lo1) / 1e6
	lon2 := float64(g.Lo2) / 1e6

	g.di = float64(g.Di) / 1e6
	g.dj = float64(g.Dj) / 1e6

	if lat1 >= lat2 {
		g.latNW = lat1
	} else {
		g.latNW = lat2
	}

	// The west edge is the first point of the scan in +i mode, the last
	// otherwise. Longitudes in GRIB2 are [0, 360).
	if !g.Scan.INegative() {
		g.lonW = lon1
	} else {
		g.lonW = lon2
	}

	// A grid whose columns span the full circle wraps in longitude.
	span := g.di * float64(g.Ni)
	g.global = span >= 360.0-g.di/2
}

// TemplateNumber returns 0 for lat/lon grids.
func (g *LatLonGrid) TemplateNumber() int { return 0 }

// Dims returns the grid dimensions.
func (g *LatLonGrid) Dims() (int, int) { return int(g.Ni), int(g.Nj) }

// NumPoints returns the total number of grid points.
func (g *LatLonGrid) NumPoints() int { return int(g.Ni) * int(g.Nj) }

// ScanMode returns the scanning mode flags.
func (g *LatLonGrid) ScanMode() ScanMode { return g.Scan }

// Global reports whether the grid wraps the full longitude circle.
func (g *LatLonGrid) Global() bool { return g.global }

// LatLon returns the coordinates of a canonical grid cell.
func (g *LatLonGrid) LatLon(row, col int) (lat, lon float64) {
	lat = g.latNW - float64(row)*g.dj
	lon = NormalizeLon(g.lonW + float64(col)*g.di)
	return lat, lon
}

// FractionalIndex maps a geographic point to fractional canonical indices.
// For global grids the column wraps; otherwise points west of the first
// column or east of the last are rejected.
func (g *LatLonGrid) FractionalIndex(lat, lon float64) (row, col float64, ok bool) {
	row = (g.latNW - lat) / g.dj

	dlon := lon - g.lonW
	for dlon < 0 {
		dlon += 360
	}
	for dlon >= 360 {
		dlon -= 360
	}
	col = dlon / g.di

	if g.global {
		// Columns wrap; the caller interpolates modulo Ni.
		if row < 0 || row > float64(g.Nj-1) {
			return 0, 0, false
		}
		return row, col, true
	}

	if row < 0 || row > float64(g.Nj-1) || col < 0 || col > float64(g.Ni-1) {
		return 0, 0, false
	}
	return row, col, true
}

// String returns a human-readable description of the grid.
func (g *LatLonGrid) String() string {
	return fmt.Sprintf("Lat/Lon grid: %dx%d points, NW (%.3f, %.3f), di=%.4f dj=%.4f",
		g.Ni, g.Nj, g.latNW, g.lonW, g.di, g.dj)
}
