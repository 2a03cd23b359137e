package gridshape

import (
	"fmt"
	"math"

	"github.com/driftline/stratus/grib2/internal/wire"
)

// PolarStereographicGrid represents Grid Definition Template 3.20: polar
// stereographic projection, used by NCEP's Alaska and polar domains.
type PolarStereographicGrid struct {
	Earth      Earth
	Nx         uint32
	Ny         uint32
	La1        int32 // Latitude of first grid point (micro-degrees)
	Lo1        int32 // Longitude of first grid point (micro-degrees)
	ResFlags   uint8
	LaD        int32 // Latitude where Dx and Dy are specified (micro-degrees)
	LoV        int32 // Orientation longitude (micro-degrees)
	Dx         uint32
	Dy         uint32
	ProjCenter uint8 // Bit 1: 0 = north pole, 1 = south pole
	Scan       ScanMode

	south         bool
	scale         float64 // stereographic scale at LaD
	lonV          float64 // radians
	xWest, yNorth float64
	dx, dy        float64
}

// ParsePolarStereographicGrid parses Template 3.20:
//
//	Bytes 1-16:  Shape of the earth block
//	Bytes 17-20: Nx
//	Bytes 21-24: Ny
//	Bytes 25-28: La1
//	Bytes 29-32: Lo1
//	Byte 33:     Resolution and component flags
//	Bytes 34-37: LaD
//	Bytes 38-41: LoV
//	Bytes 42-45: Dx (millimeters)
//	Bytes 46-49: Dy (millimeters)
//	Byte 50:     Projection center flag
//	Byte 51:     Scanning mode
func ParsePolarStereographicGrid(data []byte) (*PolarStereographicGrid, error) {
	if len(data) < 51 {
		return nil, fmt.Errorf("template 3.20 requires at least 51 bytes, got %d", len(data))
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
	scan, err := r.Uint8()
	if err != nil {
		return nil, err
	}

	if nx == 0 || ny == 0 {
		return nil, fmt.Errorf("template 3.20: zero grid dimension %dx%d", nx, ny)
	}

	g := &PolarStereographicGrid{
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
	}
	g.derive()
	return g, nil
}

func (g *PolarStereographicGrid) derive() {
	g.south = g.ProjCenter&0x80 != 0
	g.lonV = float64(g.LoV) / 1e6 * deg2rad

	laD := float64(g.LaD) / 1e6 * deg2rad
	if g.south {
		laD = -laD
	}
	g.scale = (1 + math.Sin(laD)) / 2

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

// forward projects onto the polar stereographic plane (Snyder eq. 21-5
// through 21-12, spherical form).
func (g *PolarStereographicGrid) forward(lat, lon float64) (x, y float64) {
	latR := lat * deg2rad
	dlon := lon*deg2rad - g.lonV

	if g.south {
		latR = -latR
		dlon = -dlon
	}

	rho := 2 * g.Earth.Radius * g.scale * math.Tan(math.Pi/4-latR/2)
	x = rho * math.Sin(dlon)
	y = -rho * math.Cos(dlon)

	if g.south {
		x = -x
	}
	return x, y
}

// inverse maps plane coordinates back to geographic coordinates.
func (g *PolarStereographicGrid) inverse(x, y float64) (lat, lon float64) {
	if g.south {
		x = -x
	}

	rho := math.Sqrt(x*x + y*y)
	latR := math.Pi/2 - 2*math.Atan(rho/(2*g.Earth.Radius*g.scale))
	dlon := math.Atan2(x, -y)

	if g.south {
		latR = -latR
		dlon = -dlon
	}
	return latR * rad2deg, (g.lonV + dlon) * rad2deg
}

// TemplateNumber returns 20 for polar stereographic grids.
func (g *PolarStereographicGrid) TemplateNumber() int { return 20 }

// Dims returns the grid dimensions.
func (g *PolarStereographicGrid) Dims() (int, int) { return int(g.Nx), int(g.Ny) }

// NumPoints returns the total number of grid points.
func (g *PolarStereographicGrid) NumPoints() int { return int(g.Nx) * int(g.Ny) }

// ScanMode returns the scanning mode flags.
func (g *PolarStereographicGrid) ScanMode() ScanMode { return g.Scan }

// LatLon returns the coordinates of a canonical grid cell.
func (g *PolarStereographicGrid) LatLon(row, col int) (lat, lon float64) {
	x := g.xWest + float64(col)*g.dx
	y := g.yNorth - float64(row)*g.dy
	lat, lon = g.inverse(x, y)
	return lat, NormalizeLon(lon)
}

// FractionalIndex maps a geographic point to fractional canonical indices.
func (g *PolarStereographicGrid) FractionalIndex(lat, lon float64) (row, col float64, ok bool) {
	x, y := g.forward(lat, lon)
	col = (x - g.xWest) / g.dx
	row = (g.yNorth - y) / g.dy
	if row < 0 || row > float64(g.Ny-1) || col < 0 || col > float64(g.Nx-1) {
		return 0, 0, false
	}
	return row, col, true
}

// String returns a human-readable description of the grid.
func (g *PolarStereographicGrid) String() string {
	pole := "north"
	if g.south {
		pole = "south"
	}
	return fmt.Sprintf("Polar Stereographic grid: %dx%d points, %s pole, LoV=%.3f",
		g.Nx, g.Ny, pole, float64(g.LoV)/1e6)
}
