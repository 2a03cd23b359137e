package gridshape

import (
	"fmt"
	"math"

	"github.com/driftline/stratus/grib2/internal/wire"
)

// GeostationaryGrid represents Grid Definition Template 3.90: space view
// perspective (geostationary satellite), used for GOES full-disk and
// mesoscale imagery.
//
// The view geometry follows the CGMS normalized geostationary projection:
// grid cells index scan angles as seen from the satellite, and points on
// the far side of the disk are invisible.
type GeostationaryGrid struct {
	Earth    Earth
	Nx       uint32
	Ny       uint32
	Lap      int32 // Latitude of sub-satellite point (micro-degrees)
	Lop      int32 // Longitude of sub-satellite point (micro-degrees)
	ResFlags uint8
	Dx       uint32 // Apparent diameter of earth in grid lengths, x
	Dy       uint32 // Apparent diameter of earth in grid lengths, y
	Xp       uint32 // X-coordinate of sub-satellite point (10^-3 grid lengths)
	Yp       uint32 // Y-coordinate of sub-satellite point (10^-3 grid lengths)
	Scan     ScanMode
	Nr       uint32 // Altitude of the satellite from earth center (10^-6 equatorial radii)

	subLon float64 // radians
	rs     float64 // satellite distance from earth center, meters
	req    float64 // equatorial radius
	rpol   float64 // polar radius
	scaleX float64 // grid lengths per radian of scan angle
	scaleY float64
	xp, yp float64 // sub-satellite pixel coordinates
}

// ParseGeostationaryGrid parses Template 3.90:
//
//	Bytes 1-16:  Shape of the earth block
//	Bytes 17-20: Nx
//	Bytes 21-24: Ny
//	Bytes 25-28: Lap (micro-degrees)
//	Bytes 29-32: Lop (micro-degrees)
//	Byte 33:     Resolution and component flags
//	Bytes 34-37: Dx (apparent diameter in grid lengths)
//	Bytes 38-41: Dy
//	Bytes 42-45: Xp (10^-3 grid lengths)
//	Bytes 46-49: Yp (10^-3 grid lengths)
//	Byte 50:     Scanning mode
//	Bytes 51-54: Orientation of the grid
//	Bytes 55-58: Nr (10^-6 equatorial radii)
//	Bytes 59-62: Xo
//	Bytes 63-66: Yo
func ParseGeostationaryGrid(data []byte) (*GeostationaryGrid, error) {
	if len(data) < 58 {
		return nil, fmt.Errorf("template 3.90 requires at least 58 bytes, got %d", len(data))
	}

	r := wire.NewReader(data)

	earth, err := parseEarth(r)
	if err != nil {
		return nil, err
	}

	nx, _ := r.Uint32()
	ny, _ := r.Uint32()
	lap, _ := r.Int32()
	lop, _ := r.Int32()
	resFlags, _ := r.Uint8()
	dx, _ := r.Uint32()
	dy, _ := r.Uint32()
	xp, _ := r.Uint32()
	yp, _ := r.Uint32()
	scan, _ := r.Uint8()
	_, _ = r.Uint32() // orientation
	nr, err := r.Uint32()
	if err != nil {
		return nil, err
	}

	if nx == 0 || ny == 0 {
		return nil, fmt.Errorf("template 3.90: zero grid dimension %dx%d", nx, ny)
	}
	if nr == 0 {
		return nil, fmt.Errorf("template 3.90: zero satellite altitude")
	}

	g := &GeostationaryGrid{
		Earth:    earth,
		Nx:       nx,
		Ny:       ny,
		Lap:      lap,
		Lop:      lop,
		ResFlags: resFlags,
		Dx:       dx,
		Dy:       dy,
		Xp:       xp,
		Yp:       yp,
		Scan:     ScanMode(scan),
		Nr:       nr,
	}
	g.derive()
	return g, nil
}

func (g *GeostationaryGrid) derive() {
	g.subLon = float64(g.Lop) / 1e6 * deg2rad
	g.req = 6378137.0
	g.rpol = 6356752.314
	g.rs = float64(g.Nr) * 1e-6 * g.req

	// The earth's apparent angular radius from the satellite sizes the
	// scan-angle-to-pixel scale: Dx grid lengths span the full disk.
	alpha := math.Asin(g.req / g.rs)
	g.scaleX = float64(g.Dx) / (2 * alpha)
	g.scaleY = float64(g.Dy) / (2 * alpha)
	g.xp = float64(g.Xp) / 1000.0
	g.yp = float64(g.Yp) / 1000.0
}

// forward computes the scan angles (x east-positive, y north-positive)
// of a geographic point, and whether the point is visible from the
// satellite.
func (g *GeostationaryGrid) forward(lat, lon float64) (x, y float64, visible bool) {
	latR := lat * deg2rad
	dlon := lon*deg2rad - g.subLon

	// Geocentric latitude on the ellipsoid.
	cLat := math.Atan(g.rpol * g.rpol / (g.req * g.req) * math.Tan(latR))
	rl := g.rpol / math.Sqrt(1-(g.req*g.req-g.rpol*g.rpol)/(g.req*g.req)*math.Cos(cLat)*math.Cos(cLat))

	r1 := g.rs - rl*math.Cos(cLat)*math.Cos(dlon)
	r2 := rl * math.Cos(cLat) * math.Sin(dlon)
	r3 := rl * math.Sin(cLat)

	// The point is on the far side when the view ray leaves the ellipsoid.
	if r1*(r1-g.rs)+r2*r2+r3*r3 > 0 {
		return 0, 0, false
	}

	rn := math.Sqrt(r1*r1 + r2*r2 + r3*r3)
	x = math.Atan2(r2, r1)
	y = math.Asin(r3 / rn)
	return x, y, true
}

// inverse maps scan angles back to geographic coordinates; ok is false
// off the disk.
func (g *GeostationaryGrid) inverse(x, y float64) (lat, lon float64, ok bool) {
	cosX, sinX := math.Cos(x), math.Sin(x)
	cosY, sinY := math.Cos(y), math.Sin(y)

	q := g.req * g.req / (g.rpol * g.rpol)
	a := cosY*cosY + q*sinY*sinY
	b := g.rs * cosX * cosY
	disc := b*b - a*(g.rs*g.rs-g.req*g.req)
	if disc < 0 {
		return 0, 0, false
	}

	sn := (b - math.Sqrt(disc)) / a
	s1 := g.rs - sn*cosX*cosY
	s2 := sn * sinX * cosY
	s3 := sn * sinY
	sxy := math.Sqrt(s1*s1 + s2*s2)

	lat = math.Atan(q*s3/sxy) * rad2deg
	lon = (math.Atan2(s2, s1) + g.subLon) * rad2deg
	return lat, lon, true
}

// TemplateNumber returns 90 for geostationary grids.
func (g *GeostationaryGrid) TemplateNumber() int { return 90 }

// Dims returns the grid dimensions.
func (g *GeostationaryGrid) Dims() (int, int) { return int(g.Nx), int(g.Ny) }

// NumPoints returns the total number of grid points.
func (g *GeostationaryGrid) NumPoints() int { return int(g.Nx) * int(g.Ny) }

// ScanMode returns the scanning mode flags.
func (g *GeostationaryGrid) ScanMode() ScanMode { return g.Scan }

// LatLon returns the coordinates of a canonical grid cell. Off-disk cells
// return NaN coordinates.
func (g *GeostationaryGrid) LatLon(row, col int) (lat, lon float64) {
	x := (float64(col) - g.xp) / g.scaleX
	y := (g.yp - float64(row)) / g.scaleY
	lat, lon, ok := g.inverse(x, y)
	if !ok {
		return math.NaN(), math.NaN()
	}
	return lat, NormalizeLon(lon)
}

// FractionalIndex maps a geographic point to fractional canonical indices.
func (g *GeostationaryGrid) FractionalIndex(lat, lon float64) (row, col float64, ok bool) {
	x, y, visible := g.forward(lat, lon)
	if !visible {
		return 0, 0, false
	}
	col = g.xp + x*g.scaleX
	row = g.yp - y*g.scaleY
	if row < 0 || row > float64(g.Ny-1) || col < 0 || col > float64(g.Nx-1) {
		return 0, 0, false
	}
	return row, col, true
}

// String returns a human-readable description of the grid.
func (g *GeostationaryGrid) String() string {
	return fmt.Sprintf("Geostationary grid: %dx%d points, sub-lon=%.3f, Nr=%.1f km",
		g.Nx, g.Ny, float64(g.Lop)/1e6, g.rs/1000)
}
