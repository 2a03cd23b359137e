// Package render turns decoded grids into RGBA tiles: bilinear
// resampling into the target pixel grid, then gradient color mapping,
// marching-squares contours, or wind-barb glyph compositing.
package render

import (
	"fmt"
	"image/color"
	"math"
	"sort"
)

// StyleKind selects the rendering mode of a style.
type StyleKind int

const (
	// KindGradient maps values through a color ramp.
	KindGradient StyleKind = iota
	// KindContour strokes iso-lines at fixed levels.
	KindContour
	// KindBarbs composites wind barb glyphs from U/V component grids.
	KindBarbs
)

// Stop is one gradient control point.
type Stop struct {
	Value float64
	Color color.NRGBA
}

// Gradient is an ordered list of stops plus an interpolation mode.
type Gradient struct {
	Stops []Stop
	// HSL interpolates hue-wise instead of linear RGB; right for
	// hue-cyclic ramps like reflectivity.
	HSL bool
	// Clamp renders out-of-range values at the edge colors; otherwise
	// they are transparent.
	Clamp bool
}

// At returns the color for v.
func (g *Gradient) At(v float64) color.NRGBA {
	stops := g.Stops
	if len(stops) == 0 {
		return color.NRGBA{}
	}

	if v <= stops[0].Value {
		if g.Clamp || v == stops[0].Value {
			return stops[0].Color
		}
		return color.NRGBA{}
	}
	if v >= stops[len(stops)-1].Value {
		if g.Clamp || v == stops[len(stops)-1].Value {
			return stops[len(stops)-1].Color
		}
		return color.NRGBA{}
	}

	i := sort.Search(len(stops), func(i int) bool { return stops[i].Value >= v }) - 1
	lo, hi := stops[i], stops[i+1]
	t := (v - lo.Value) / (hi.Value - lo.Value)

	if g.HSL {
		return lerpHSL(lo.Color, hi.Color, t)
	}
	return lerpRGB(lo.Color, hi.Color, t)
}

func lerpRGB(a, b color.NRGBA, t float64) color.NRGBA {
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.NRGBA{lerp(a.R, b.R), lerp(a.G, b.G), lerp(a.B, b.B), lerp(a.A, b.A)}
}

func lerpHSL(a, b color.NRGBA, t float64) color.NRGBA {
	ha, sa, la := rgbToHSL(a)
	hb, sb, lb := rgbToHSL(b)

	// Interpolate hue along the short arc.
	dh := hb - ha
	if dh > 180 {
		dh -= 360
	}
	if dh < -180 {
		dh += 360
	}
	h := math.Mod(ha+dh*t+360, 360)
	s := sa + (sb-sa)*t
	l := la + (lb-la)*t

	out := hslToRGB(h, s, l)
	out.A = uint8(math.Round(float64(a.A) + (float64(b.A)-float64(a.A))*t))
	return out
}

func rgbToHSL(c color.NRGBA) (h, s, l float64) {
	r := float64(c.R) / 255
	g := float64(c.G) / 255
	b := float64(c.B) / 255

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	l = (maxC + minC) / 2

	if maxC == minC {
		return 0, 0, l
	}

	d := maxC - minC
	if l > 0.5 {
		s = d / (2 - maxC - minC)
	} else {
		s = d / (maxC + minC)
	}

	switch maxC {
	case r:
		h = math.Mod((g-b)/d, 6)
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	h *= 60
	if h < 0 {
		h += 360
	}
	return h, s, l
}

func hslToRGB(h, s, l float64) color.NRGBA {
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return color.NRGBA{
		R: uint8(math.Round((r + m) * 255)),
		G: uint8(math.Round((g + m) * 255)),
		B: uint8(math.Round((b + m) * 255)),
		A: 255,
	}
}

// Style describes one named rendering of a layer.
type Style struct {
	Kind     StyleKind
	Gradient *Gradient

	// Contour styling.
	Levels    []float64
	LineColor color.NRGBA
	LineWidth float64
	Smooth    int // Chaikin iterations

	// Barb styling.
	BarbColor   color.NRGBA
	BarbSpacing int // lattice pitch in pixels
}

// StyleSet resolves style ids.
type StyleSet map[string]*Style

// Get returns the style for id.
func (s StyleSet) Get(id string) (*Style, error) {
	if st, ok := s[id]; ok {
		return st, nil
	}
	return nil, fmt.Errorf("unknown style %q", id)
}

// DefaultStyles returns the built-in styles.
func DefaultStyles() StyleSet {
	return StyleSet{
		"temperature": {
			Kind: KindGradient,
			Gradient: &Gradient{
				Clamp: true,
				Stops: []Stop{
					{213.15, color.NRGBA{145, 0, 200, 255}},
					{233.15, color.NRGBA{60, 60, 230, 255}},
					{253.15, color.NRGBA{60, 170, 230, 255}},
					{273.15, color.NRGBA{90, 220, 190, 255}},
					{288.15, color.NRGBA{110, 210, 70, 255}},
					{298.15, color.NRGBA{250, 210, 60, 255}},
					{308.15, color.NRGBA{240, 110, 40, 255}},
					{318.15, color.NRGBA{190, 20, 20, 255}},
				},
			},
		},
		"reflectivity": {
			Kind: KindGradient,
			Gradient: &Gradient{
				HSL: true,
				Stops: []Stop{
					{5, color.NRGBA{70, 220, 230, 180}},
					{20, color.NRGBA{60, 200, 60, 220}},
					{35, color.NRGBA{230, 220, 50, 255}},
					{50, color.NRGBA{240, 90, 40, 255}},
					{65, color.NRGBA{230, 40, 200, 255}},
				},
			},
		},
		"pressure-contours": {
			Kind:      KindContour,
			Levels:    contourLevels(92000, 106000, 400),
			LineColor: color.NRGBA{40, 40, 40, 255},
			LineWidth: 1.5,
			Smooth:    2,
		},
		"wind-barbs": {
			Kind:        KindBarbs,
			BarbColor:   color.NRGBA{20, 20, 20, 255},
			BarbSpacing: 48,
		},
	}
}

func contourLevels(lo, hi, step float64) []float64 {
	var levels []float64
	for v := lo; v <= hi; v += step {
		levels = append(levels, v)
	}
	return levels
}
