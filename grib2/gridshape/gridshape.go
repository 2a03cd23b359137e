// Package gridshape provides grid definition types and parsers for GRIB2
// Section 3, plus the geometry operations the tile pipeline needs: mapping
// canonical (row, col) indices to geographic coordinates and back.
//
// All geometries expose a canonical layout: row-major, top-left origin,
// west-to-east columns, north-to-south rows. Canonicalize reorders raw
// scan-order values into that layout using the Section 3 scanning mode, so
// everything downstream of the decoder can ignore scan direction entirely.
package gridshape

import (
	"math"

	"github.com/driftline/stratus/grib2/internal/wire"
)

// Geometry represents a GRIB2 grid definition (Table 3.1 template).
type Geometry interface {
	// TemplateNumber returns the grid definition template number.
	TemplateNumber() int

	// Dims returns the number of columns (ni) and rows (nj).
	Dims() (ni, nj int)

	// NumPoints returns ni*nj.
	NumPoints() int

	// ScanMode returns the Section 3 scanning mode flags.
	ScanMode() ScanMode

	// LatLon returns the geographic coordinates of a canonical grid cell.
	LatLon(row, col int) (lat, lon float64)

	// FractionalIndex maps a geographic point to fractional canonical
	// indices. ok is false when the point lies outside the grid.
	FractionalIndex(lat, lon float64) (row, col float64, ok bool)

	// String returns a human-readable description of the grid.
	String() string
}

// ScanMode is the 8-bit scanning mode from Section 3 (Table 3.4).
type ScanMode uint8

// INegative reports whether points scan in the -i (east to west) direction.
func (m ScanMode) INegative() bool { return m&0x80 != 0 }

// JPositive reports whether points scan in the +j (south to north) direction.
func (m ScanMode) JPositive() bool { return m&0x40 != 0 }

// JConsecutive reports whether adjacent points in the j direction are
// consecutive (i.e. the scan is column-major rather than row-major).
func (m ScanMode) JConsecutive() bool { return m&0x20 != 0 }

// Alternating reports whether adjacent rows scan in opposite directions
// (boustrophedon ordering).
func (m ScanMode) Alternating() bool { return m&0x10 != 0 }

// Canonicalize reorders scan-order values into the canonical layout:
// row 0 is the northernmost row, column 0 the westernmost, row-major.
//
// The returned slice is freshly allocated; for the identity ordering
// (+i, -j, row-major, no alternation) the input is returned unchanged.
func Canonicalize[T any](values []T, ni, nj int, mode ScanMode) []T {
	if len(values) != ni*nj {
		return values
	}
	if !mode.INegative() && !mode.JPositive() && !mode.JConsecutive() && !mode.Alternating() {
		return values
	}

	out := make([]T, len(values))
	idx := 0

	// The scan enumerates (iscan, jscan) with the inner axis varying
	// fastest. Map each scanned point to its eastward index i and its
	// northward index j, then to the canonical row nj-1-j.
	outer, inner := nj, ni
	if mode.JConsecutive() {
		outer, inner = ni, nj
	}
	for a := range outer {
		for b := range inner {
			var iscan, jscan int
			if mode.JConsecutive() {
				iscan, jscan = a, b
			} else {
				iscan, jscan = b, a
			}

			irev := mode.INegative()
			if mode.Alternating() && a%2 == 1 {
				// Alternation flips the inner axis on odd passes.
				if mode.JConsecutive() {
					jscan = nj - 1 - jscan
				} else {
					irev = !irev
				}
			}

			i := iscan
			if irev {
				i = ni - 1 - iscan
			}
			j := jscan
			if !mode.JPositive() {
				j = nj - 1 - jscan
			}

			row := nj - 1 - j
			out[row*ni+i] = values[idx]
			idx++
		}
	}
	return out
}

// Bounds returns the approximate geographic bounding box of a geometry by
// walking its perimeter cells. Longitudes are normalized to [-180, 180).
func Bounds(g Geometry) (minLat, minLon, maxLat, maxLon float64) {
	ni, nj := g.Dims()
	minLat, minLon = math.Inf(1), math.Inf(1)
	maxLat, maxLon = math.Inf(-1), math.Inf(-1)

	visit := func(row, col int) {
		lat, lon := g.LatLon(row, col)
		if math.IsNaN(lat) || math.IsNaN(lon) {
			// Off-disk cells on space-view grids carry no coordinates.
			return
		}
		lon = NormalizeLon(lon)
		minLat = math.Min(minLat, lat)
		maxLat = math.Max(maxLat, lat)
		minLon = math.Min(minLon, lon)
		maxLon = math.Max(maxLon, lon)
	}

	for col := range ni {
		visit(0, col)
		visit(nj-1, col)
	}
	for row := range nj {
		visit(row, 0)
		visit(row, ni-1)
	}
	return minLat, minLon, maxLat, maxLon
}

// NormalizeLon wraps a longitude into [-180, 180).
func NormalizeLon(lon float64) float64 {
	for lon >= 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

// Earth holds the shape-of-earth parameters common to every grid template.
// The supported data sources all use spherical earths; oblate shapes are
// approximated by the authalic radius, which is within the grid spacing
// for tile rendering purposes.
type Earth struct {
	Shape  uint8
	Radius float64 // meters
}

// parseEarth reads the 16-byte shape-of-earth block that opens every grid
// definition template:
//
//	Byte 1:     Shape of the earth (Table 3.2)
//	Byte 2:     Scale factor of radius of spherical earth
//	Bytes 3-6:  Scaled value of radius of spherical earth
//	Byte 7:     Scale factor of major axis
//	Bytes 8-11: Scaled value of major axis
//	Byte 12:    Scale factor of minor axis
//	Bytes 13-16: Scaled value of minor axis
func parseEarth(r *wire.Reader) (Earth, error) {
	shape, err := r.Uint8()
	if err != nil {
		return Earth{}, err
	}
	radiusScale, _ := r.Uint8()
	radiusValue, _ := r.Uint32()
	if err := r.Skip(10); err != nil {
		return Earth{}, err
	}

	e := Earth{Shape: shape}
	switch shape {
	case 0:
		e.Radius = 6367470.0
	case 1:
		e.Radius = float64(radiusValue) / math.Pow(10, float64(radiusScale))
		if e.Radius == 0 {
			e.Radius = 6371229.0
		}
	case 6:
		e.Radius = 6371229.0
	default:
		// Oblate shapes (2-5, 7): authalic-radius approximation.
		e.Radius = 6371007.2
	}
	return e, nil
}

const (
	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)
