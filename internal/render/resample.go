package render

import (
	"image"

	"github.com/driftline/stratus/grib2"
	"github.com/driftline/stratus/internal/proj"
)

// PixelGrid defines the output raster: a bbox in the target CRS divided
// into Width x Height pixels.
type PixelGrid struct {
	MinX, MinY, MaxX, MaxY float64
	Width, Height          int
	CRS                    proj.CRS
}

// Raster is a resampled field on a pixel grid.
type Raster struct {
	Width, Height int
	Values        []float32
	Missing       []bool
}

// At returns the value at a pixel and whether it is present.
func (r *Raster) At(x, y int) (float32, bool) {
	i := y*r.Width + x
	return r.Values[i], !r.Missing[i]
}

// globalGrid is implemented by geometries whose columns wrap in
// longitude; bilinear interpolation then wraps the east neighbor.
type globalGrid interface {
	Global() bool
}

// Resample maps src onto dst: each output pixel center is inverse
// projected to geographic coordinates, located in the source grid, and
// bilinearly interpolated from its four enclosing cells. A pixel is
// missing when it falls outside the source grid or any contributing cell
// is missing - partial stencils would bleed fill values into the field.
func Resample(src *grib2.Field, dst PixelGrid) *Raster {
	out := &Raster{
		Width:   dst.Width,
		Height:  dst.Height,
		Values:  make([]float32, dst.Width*dst.Height),
		Missing: make([]bool, dst.Width*dst.Height),
	}

	inv := proj.NewTransformer(dst.CRS, proj.CRS4326)
	geom := src.Geometry
	ni, nj := geom.Dims()

	wraps := false
	if g, ok := geom.(globalGrid); ok {
		wraps = g.Global()
	}

	dx := (dst.MaxX - dst.MinX) / float64(dst.Width)
	dy := (dst.MaxY - dst.MinY) / float64(dst.Height)

	for py := range dst.Height {
		y := dst.MaxY - (float64(py)+0.5)*dy
		for px := range dst.Width {
			x := dst.MinX + (float64(px)+0.5)*dx
			lon, lat := inv.Transform(x, y)

			row, col, ok := geom.FractionalIndex(lat, lon)
			idx := py*dst.Width + px
			if !ok {
				out.Missing[idx] = true
				continue
			}

			v, present := bilinear(src, ni, nj, row, col, wraps)
			if !present {
				out.Missing[idx] = true
				continue
			}
			out.Values[idx] = v
		}
	}
	return out
}

// bilinear interpolates the four cells enclosing (row, col).
func bilinear(f *grib2.Field, ni, nj int, row, col float64, wraps bool) (float32, bool) {
	r0 := int(row)
	c0 := int(col)
	if r0 > nj-1 {
		r0 = nj - 1
	}
	if c0 > ni-1 {
		c0 = ni - 1
	}

	r1 := r0 + 1
	if r1 > nj-1 {
		r1 = nj - 1
	}
	c1 := c0 + 1
	if c1 > ni-1 {
		if wraps {
			c1 = 0
		} else {
			c1 = ni - 1
		}
	}

	fr := row - float64(r0)
	fc := col - float64(c0)

	i00 := r0*ni + c0
	i01 := r0*ni + c1
	i10 := r1*ni + c0
	i11 := r1*ni + c1
	if f.Missing[i00] || f.Missing[i01] || f.Missing[i10] || f.Missing[i11] {
		return 0, false
	}

	top := float64(f.Values[i00])*(1-fc) + float64(f.Values[i01])*fc
	bot := float64(f.Values[i10])*(1-fc) + float64(f.Values[i11])*fc
	return float32(top*(1-fr) + bot*fr), true
}

// Colorize renders a raster through a gradient into an RGBA image.
// Missing pixels are fully transparent.
func Colorize(r *Raster, g *Gradient) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := range r.Height {
		for x := range r.Width {
			i := y*r.Width + x
			if r.Missing[i] {
				continue
			}
			c := g.At(float64(r.Values[i]))
			o := y*img.Stride + x*4
			img.Pix[o] = c.R
			img.Pix[o+1] = c.G
			img.Pix[o+2] = c.B
			img.Pix[o+3] = c.A
		}
	}
	return img
}
