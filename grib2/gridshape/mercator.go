package gridshape

import (
	"fmt"
	"math"

	"github.com/driftline/stratus/grib2/internal/wire"
)

// MercatorGrid represents Grid Definition Template 3.10: Mercator
// projection, used by tropical and maritime model domains.
type MercatorGrid struct {
	Earth       Earth
	Ni          uint32 // Number of points along a parallel
	Nj          uint32 // Number of points along a meridian
	La1         int32  // Latitude of first grid point (micro-degrees)
	Lo1         int32  // Longitude of first grid point (micro-degrees)
	ResFlags    uint8
	LaD         int32 // Latitude at which Di and Dj are specified (micro-degrees)
	La2         int32
	Lo2         int32
	Scan        ScanMode
	Orientation uint32
	Di          uint32 // Grid length along a parallel (millimeters at LaD)
	Dj          uint32 // Grid length along a meridian (millimeters at LaD)

	xWest, yNorth float64 // projection coords of the NW cell, meters
	dx, dy        float64
}

// ParseMercatorGrid parses Template 3.10:
//
//	Bytes 1-16:  Shape of the earth block
//	Bytes 17-20: Ni
//	Bytes 21-24: Nj
//	Bytes 25-28: La1 (micro-degrees)
//	Bytes 29-32: Lo1 (micro-degrees)
//	Byte 33:     Resolution and component flags
//	Bytes 34-37: LaD
//	Bytes 38-41: La2
//	Bytes 42-45: Lo2
//	Byte 46:     Scanning mode
//	Bytes 47-50: Orientation of the grid
//	Bytes 51-54: Di (millimeters at LaD)
//	Bytes 55-58: Dj (millimeters at LaD)
func ParseMercatorGrid(data []byte) (*MercatorGrid, error) {
	if len(data) < 58 {
		return nil, fmt.Errorf("template 3.10 requires at least 58 bytes, got %d", len(data))
	}

	r := wire.NewReader(data)

	earth, err := parseEarth(r)
	if err != nil {
		return nil, err
	}

	ni, _ := r.Uint32()
	nj, _ := r.Uint32()
	la1, _ := r.Int32()
	lo1, _ := r.Int32()
	resFlags, _ := r.Uint8()
	laD, _ := r.Int32()
	la2, _ := r.Int32()
	lo2, _ := r.Int32()
	scan, _ := r.Uint8()
	orientation, _ := r.Uint32()
	di, _ := r.Uint32()
	dj, err := r.Uint32()
	if err != nil {
		return nil, err
	}

	if ni == 0 || nj == 0 {
		return nil, fmt.Errorf("template 3.10: zero grid dimension %dx%d", ni, nj)
	}

	g := &MercatorGrid{
		Earth:       earth,
		Ni:          ni,
		Nj:          nj,
		La1:         la1,
		Lo1:         lo1,
		ResFlags:    resFlags,
		LaD:         laD,
		La2:         la2,
		Lo2:         lo2,
		Scan:        ScanMode(scan),
		Orientation: orientation,
		Di:          di,
		Dj:          dj,
	}
	g.derive()
	return g, nil
}

func (g *MercatorGrid) derive() {
	laD := float64(g.LaD) / 1e6 * deg2rad

	// Di/Dj are true distances at LaD; Mercator plane distances scale by
	// 1/cos(LaD).
	scale := 1.0 / math.Cos(laD)
	g.dx = float64(g.Di) / 1000.0 * scale
	g.dy = float64(g.Dj) / 1000.0 * scale

	x1, y1 := g.forward(float64(g.La1)/1e6, float64(g.Lo1)/1e6)

	if !g.Scan.INegative() {
		g.xWest = x1
	} else {
		g.xWest = x1 - float64(g.Ni-1)*g.dx
	}
	if g.Scan.JPositive() {
		g.yNorth = y1 + float64(g.Nj-1)*g.dy
	} else {
		g.yNorth = y1
	}
}

// forward applies the spherical Mercator projection.
func (g *MercatorGrid) forward(lat, lon float64) (x, y float64) {
	x = g.Earth.Radius * lon * deg2rad
	y = g.Earth.Radius * math.Log(math.Tan(math.Pi/4+lat*deg2rad/2))
	return x, y
}

// inverse applies the inverse spherical Mercator projection.
func (g *MercatorGrid) inverse(x, y float64) (lat, lon float64) {
	lon = x / g.Earth.Radius * rad2deg
	lat = (2*math.Atan(math.Exp(y/g.Earth.Radius)) - math.Pi/2) * rad2deg
	return lat, lon
}

// TemplateNumber returns 10 for Mercator grids.
func (g *MercatorGrid) TemplateNumber() int { return 10 }

// Dims returns the grid dimensions.
func (g *MercatorGrid) Dims() (int, int) { return int(g.Ni), int(g.Nj) }

// NumPoints returns the total number of grid points.
func (g *MercatorGrid) NumPoints() int { return int(g.Ni) * int(g.Nj) }

// ScanMode returns the scanning mode flags.
func (g *MercatorGrid) ScanMode() ScanMode { return g.Scan }

// LatLon returns the coordinates of a canonical grid cell.
func (g *MercatorGrid) LatLon(row, col int) (lat, lon float64) {
	x := g.xWest + float64(col)*g.dx
	y := g.yNorth - float64(row)*g.dy
	lat, lon = g.inverse(x, y)
	return lat, NormalizeLon(lon)
}

// FractionalIndex maps a geographic point to fractional canonical indices.
func (g *MercatorGrid) FractionalIndex(lat, lon float64) (row, col float64, ok bool) {
	// Keep the point in the grid's longitude frame before projecting.
	lonW := g.xWest / g.Earth.Radius * rad2deg
	for lon < lonW {
		lon += 360
	}
	for lon >= lonW+360 {
		lon -= 360
	}

	x, y := g.forward(lat, lon)
	col = (x - g.xWest) / g.dx
	row = (g.yNorth - y) / g.dy
	if row < 0 || row > float64(g.Nj-1) || col < 0 || col > float64(g.Ni-1) {
		return 0, 0, false
	}
	return row, col, true
}

// String returns a human-readable description of the grid.
func (g *MercatorGrid) String() string {
	return fmt.Sprintf("Mercator grid: %dx%d points, La1=%.3f Lo1=%.3f LaD=%.3f",
		g.Ni, g.Nj, float64(g.La1)/1e6, float64(g.Lo1)/1e6, float64(g.LaD)/1e6)
}
