package gridshape

import (
	"fmt"
	"math"

	"github.com/driftline/stratus/grib2/internal/wire"
)

// LambertConformalGrid represents Grid Definition Template 3.30: Lambert
// conformal conic projection, used by regional models such as HRRR and NAM.
type LambertConformalGrid struct {
	Earth      Earth
	Nx         uint32 // Number of points along the x-axis
	Ny         uint32 // Number of points along the y-axis
	La1        int32  // Latitude of first grid point (micro-degrees)
	Lo1        int32  // Longitude of first grid point (micro-degrees)
	ResFlags   uint8
	LaD        int32  // Latitude where Dx and Dy are specified (micro-degrees)
	LoV        int32  // Longitude of the meridian parallel to the y-axis (micro-degrees)
	Dx         uint32 // X-direction grid length (millimeters)
	Dy         uint32 // Y-direction grid length (millimeters)
	ProjCenter uint8
	Scan       ScanMode
	Latin1     int32 // First secant latitude (micro-degrees)
	Latin2     int32 // Second secant latitude (micro-degrees)

	// Cone constants and canonical NW corner, derived at parse time.
	n, f          float64
	lonV          float64 // radians
	xWest, yNorth float64
	dx, dy        float64
}

// ParseLambertConformalGrid parses Template 3.30:
//
//	Bytes 1-16:  Shape of the earth block
//	Bytes 17-20: Nx
//	Bytes 21-24: Ny
//	Bytes 25-28: La1 (micro-degrees)
//	Bytes 29-32: Lo1 (micro-degrees)
//	Byte 33:     Resolution and component flags
//	Bytes 34-37: LaD
//	Bytes 38-41: LoV
//	Bytes 42-45: Dx (millimeters)
//	Bytes 46-49: Dy (millimeters)
//	Byte 50:     Projection center flag
//	Byte 51:     Scanning mode
//	Bytes 52-55: Latin1
//	Bytes 56-59: Latin2
//	Bytes 60-67: Latitude and longitude of the southern pole
func ParseLambertConformalGrid(data []byte) (*LambertConformalGrid, error) {
	if len(data) < 67 {
		return nil, fmt.Errorf("template 3.30 requires at least 67 bytes, got %d", len(data))
	}

	r := wire.NewReader(data)

	earth, err := parseEarth(r)
	if err != nil {
		return nil, err
	}

	nx, _ := r.Uint32()
	ny, _ := r.Uint32()
	la1, _ := r.Int32()
	lo1, _ := r.Int32()
	resFlags, _ := r.Uint8()
	laD, _ := r.Int32()
	loV, _ := r.Int32()
	dx, _ := r.Uint32()
	dy, _ := r.Uint32()
	projCenter, _ := r.Uint8()
	scan, _ := r.Uint8()
	latin1, _ := r.Int32()
	latin2, err := r.Int32()
	if err != nil {
		return nil, err
	}

	if nx == 0 || ny == 0 {
		return nil, fmt.Errorf("template 3.30: zero grid dimension %dx%d", nx, ny)
	}

	g := &LambertConformalGrid{
		Earth:      earth,
		Nx:         nx,
		Ny:         ny,
		La1:        la1,
		Lo1:        lo1,
		ResFlags:   resFlags,
		LaD:        laD,
		LoV:        loV,
		Dx:         dx,
		Dy:         dy,
		ProjCenter: projCenter,
		Scan:       ScanMode(scan),
		Latin1:     latin1,
		Latin2:     latin2,
	}
	g.derive()
	return g, nil
}

func (g *LambertConformalGrid) derive() {
	latin1 := float64(g.Latin1) / 1e6 * deg2rad
	latin2 := float64(g.Latin2) / 1e6 * deg2rad
	g.lonV = float64(g.LoV) / 1e6 * deg2rad

	// Cone constant n and projection constant F (Snyder eq. 15-3, 15-2).
	if math.Abs(latin1-latin2) < 1e-9 {
		g.n = math.Sin(latin1)
	} else {
		g.n = math.Log(math.Cos(latin1)/math.Cos(latin2)) /
			math.Log(math.Tan(math.Pi/4+latin2/2)/math.Tan(math.Pi/4+latin1/2))
	}
	g.f = math.Cos(latin1) * math.Pow(math.Tan(math.Pi/4+latin1/2), g.n) / g.n

	g.dx = float64(g.Dx) / 1000.0
	g.dy = float64(g.Dy) / 1000.0

	x1, y1 := g.forward(float64(g.La1)/1e6, float64(g.Lo1)/1e6)

	if !g.Scan.INegative() {
		g.xWest = x1
	} else {
		g.xWest = x1 - float64(g.Nx-1)*g.dx
	}
	if g.Scan.JPositive() {
		g.yNorth = y1 + float64(g.Ny-1)*g.dy
	} else {
		g.yNorth = y1
	}
}

// forward projects geographic coordinates onto the Lambert plane.
func (g *LambertConformalGrid) forward(lat, lon float64) (x, y float64) {
	latR := lat * deg2rad
	lonR := lon * deg2rad

	rho := g.Earth.Radius * g.f * math.Pow(math.Tan(math.Pi/4+latR/2), -g.n)

	dlon := lonR - g.lonV
	for dlon > math.Pi {
		dlon -= 2 * math.Pi
	}
	for dlon < -math.Pi {
		dlon += 2 * math.Pi
	}
	theta := g.n * dlon

	x = rho * math.Sin(theta)
	y = -rho * math.Cos(theta)
	return x, y
}

// inverse maps Lambert plane coordinates back to geographic coordinates.
func (g *LambertConformalGrid) inverse(x, y float64) (lat, lon float64) {
	rho := math.Sqrt(x*x + y*y)
	if g.n < 0 {
		rho = -rho
	}
	theta := math.Atan2(x, -y)

	lat = (2*math.Atan(math.Pow(g.Earth.Radius*g.f/rho, 1/g.n)) - math.Pi/2) * rad2deg
	lon = (g.lonV + theta/g.n) * rad2deg
	return lat, lon
}

// TemplateNumber returns 30 for Lambert conformal grids.
func (g *LambertConformalGrid) TemplateNumber() int { return 30 }

// Dims returns the grid dimensions.
func (g *LambertConformalGrid) Dims() (int, int) { return int(g.Nx), int(g.Ny) }

// NumPoints returns the total number of grid points.
func (g *LambertConformalGrid) NumPoints() int { return int(g.Nx) * int(g.Ny) }

// ScanMode returns the scanning mode flags.
func (g *LambertConformalGrid) ScanMode() ScanMode { return g.Scan }

// LatLon returns the coordinates of a canonical grid cell.
func (g *LambertConformalGrid) LatLon(row, col int) (lat, lon float64) {
	x := g.xWest + float64(col)*g.dx
	y := g.yNorth - float64(row)*g.dy
	lat, lon = g.inverse(x, y)
	return lat, NormalizeLon(lon)
}

// FractionalIndex maps a geographic point to fractional canonical indices.
func (g *LambertConformalGrid) FractionalIndex(lat, lon float64) (row, col float64, ok bool) {
	x, y := g.forward(lat, lon)
	col = (x - g.xWest) / g.dx
	row = (g.yNorth - y) / g.dy
	if row < 0 || row > float64(g.Ny-1) || col < 0 || col > float64(g.Nx-1) {
		return 0, 0, false
	}
	return row, col, true
}

// String returns a human-readable description of the grid.
func (g *LambertConformalGrid) String() string {
	return fmt.Sprintf("Lambert Conformal grid: %dx%d points, LoV=%.3f, Latin=(%.3f, %.3f)",
		g.Nx, g.Ny, float64(g.LoV)/1e6, float64(g.Latin1)/1e6, float64(g.Latin2)/1e6)
}
