package render

import (
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"
)

// Wind barb glyph geometry, in glyph pixels. The staff points north
// (up); barbs and pennants hang off the east side of the staff tail.
const (
	glyphSize  = 40
	staffLen   = 28.0
	barbLen    = 11.0
	barbAngle  = 65.0 * math.Pi / 180
	barbPitch  = 5.0
	barbStroke = 1.6
)

// glyphCache holds pre-rasterized north-up barbs keyed by the speed
// rounded to its 5-knot step, per color.
type glyphCache struct {
	mu     sync.Mutex
	color  color.NRGBA
	glyphs map[int]*image.NRGBA
}

func newGlyphCache(c color.NRGBA) *glyphCache {
	return &glyphCache{color: c, glyphs: make(map[int]*image.NRGBA)}
}

// get returns the glyph for a speed step (knots rounded to 5).
func (gc *glyphCache) get(step int) *image.NRGBA {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	if g, ok := gc.glyphs[step]; ok {
		return g
	}
	g := rasterizeBarb(step, gc.color)
	gc.glyphs[step] = g
	return g
}

// rasterizeBarb draws a north-up barb for the given 5-knot step:
// pennants (triangles) for 50 kt, full barbs for 10 kt, a half barb for
// 5 kt, and a bare staff (calm circle omitted) below 5 kt.
func rasterizeBarb(step int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, glyphSize, glyphSize))
	r := vector.NewRasterizer(glyphSize, glyphSize)

	cx := float64(glyphSize) / 2
	base := point{cx, cx + staffLen/2} // staff base (south end)
	tip := point{cx, cx - staffLen/2}  // staff tip (north end), barbs attach here

	stroke := func(a, b point, w float64) {
		dx, dy := b.X-a.X, b.Y-a.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			return
		}
		nx, ny := -dy/l*w/2, dx/l*w/2
		r.MoveTo(float32(a.X+nx), float32(a.Y+ny))
		r.LineTo(float32(b.X+nx), float32(b.Y+ny))
		r.LineTo(float32(b.X-nx), float32(b.Y-ny))
		r.LineTo(float32(a.X-nx), float32(a.Y-ny))
		r.ClosePath()
	}

	stroke(base, tip, barbStroke)

	knots := step * 5
	pennants := knots / 50
	fulls := (knots % 50) / 10
	half := (knots%10)/5 != 0

	// Barbs attach along the staff from the tip southward.
	pos := tip
	advance := func(d float64) {
		pos.Y += d
	}

	barbVec := func(length float64) point {
		return point{
			X: pos.X + length*math.Sin(barbAngle),
			Y: pos.Y - length*math.Cos(barbAngle),
		}
	}

	for range pennants {
		apex := barbVec(barbLen)
		foot := point{pos.X, pos.Y + barbPitch}
		r.MoveTo(float32(pos.X), float32(pos.Y))
		r.LineTo(float32(apex.X), float32(apex.Y))
		r.LineTo(float32(foot.X), float32(foot.Y))
		r.ClosePath()
		advance(barbPitch + 1)
	}
	for range fulls {
		stroke(pos, barbVec(barbLen), barbStroke)
		advance(barbPitch)
	}
	if half {
		if knots < 10 {
			// A lone half barb sits one pitch down from the tip.
			advance(barbPitch)
		}
		stroke(pos, barbVec(barbLen/2), barbStroke)
	}

	r.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{})
	return img
}

// Barbs composites wind barbs over a canvas from resampled U and V
// component rasters. Placement follows a screen-aligned lattice with
// style.BarbSpacing pixel pitch, so barb density is constant across zoom
// levels; the data grid resolution never shows through.
func Barbs(u, v *Raster, style *Style) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, u.Width, u.Height))
	cache := newGlyphCache(style.BarbColor)

	pitch := style.BarbSpacing
	if pitch <= 0 {
		pitch = 48
	}

	for cy := pitch / 2; cy < u.Height; cy += pitch {
		for cx := pitch / 2; cx < u.Width; cx += pitch {
			uu, okU := u.At(cx, cy)
			vv, okV := v.At(cx, cy)
			if !okU || !okV {
				continue
			}

			// m/s to knots; direction is meteorological ("from").
			speed := math.Hypot(float64(uu), float64(vv)) * 1.9438445
			if speed < 2.5 {
				continue
			}
			dirFrom := math.Atan2(-float64(uu), -float64(vv))

			step := int(math.Round(speed / 5))
			if step == 0 {
				step = 1
			}
			glyph := cache.get(step)
			compositeRotated(img, glyph, float64(cx), float64(cy), dirFrom)
		}
	}
	return img
}

// compositeRotated alpha-blends glyph onto dst centered at (cx, cy),
// rotated so the staff points toward the wind origin.
func compositeRotated(dst *image.NRGBA, glyph *image.NRGBA, cx, cy, angle float64) {
	sin, cos := math.Sincos(angle)
	h := float64(glyphSize) / 2

	// Rotate about the glyph center, then translate it to the lattice
	// point.
	m := f64.Aff3{
		cos, -sin, cx - h*cos + h*sin,
		sin, cos, cy - h*sin - h*cos,
	}
	draw.BiLinear.Transform(dst, m, glyph, glyph.Bounds(), draw.Over, nil)
}
