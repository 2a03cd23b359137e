package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/vector"
)

// point is a 2D pixel-space coordinate.
type point struct {
	X, Y float64
}

// segment is one marching-squares line piece inside a cell.
type segment struct {
	A, B point
}

// Contour strokes iso-lines for each level in style.Levels over the
// raster and returns the composited image.
func Contour(r *Raster, style *Style) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for _, level := range style.Levels {
		segs := marchingSquares(r, level)
		for _, line := range joinSegments(segs) {
			for range style.Smooth {
				line = chaikin(line)
			}
			strokePolyline(img, line, style.LineWidth, style.LineColor)
		}
	}
	return img
}

// marchingSquares classifies every 2x2 cell against level and emits the
// crossing segments. Corner indexing within a cell:
//
//	0 --- 1
//	|     |
//	3 --- 2
//
// The case index sets bit i when corner i is at or above the level.
// Saddle cases (5 and 10) are disambiguated with the cell-center average.
func marchingSquares(r *Raster, level float64) []segment {
	var segs []segment

	for y := 0; y < r.Height-1; y++ {
		for x := 0; x < r.Width-1; x++ {
			v0, ok0 := r.At(x, y)
			v1, ok1 := r.At(x+1, y)
			v2, ok2 := r.At(x+1, y+1)
			v3, ok3 := r.At(x, y+1)
			if !ok0 || !ok1 || !ok2 || !ok3 {
				continue
			}

			c := [4]float64{float64(v0), float64(v1), float64(v2), float64(v3)}
			caseIdx := 0
			for i, v := range c {
				if v >= level {
					caseIdx |= 1 << i
				}
			}
			if caseIdx == 0 || caseIdx == 15 {
				continue
			}

			// Interpolated crossing on each cell edge, in pixel space.
			// Edge order: top, right, bottom, left.
			fx, fy := float64(x), float64(y)
			top := point{fx + frac(c[0], c[1], level), fy}
			right := point{fx + 1, fy + frac(c[1], c[2], level)}
			bottom := point{fx + frac(c[3], c[2], level), fy + 1}
			left := point{fx, fy + frac(c[0], c[3], level)}

			emit := func(a, b point) {
				segs = append(segs, segment{a, b})
			}

			switch caseIdx {
			case 1, 14:
				emit(left, top)
			case 2, 13:
				emit(top, right)
			case 3, 12:
				emit(left, right)
			case 4, 11:
				emit(right, bottom)
			case 6, 9:
				emit(top, bottom)
			case 7, 8:
				emit(left, bottom)
			case 5, 10:
				// Saddle: the center average picks the separation.
				center := (c[0] + c[1] + c[2] + c[3]) / 4
				if (caseIdx == 5) != (center >= level) {
					emit(left, top)
					emit(right, bottom)
				} else {
					emit(top, right)
					emit(left, bottom)
				}
			}
		}
	}
	return segs
}

// frac returns the interpolation parameter of level between a and b.
func frac(a, b, level float64) float64 {
	if a == b {
		return 0.5
	}
	t := (level - a) / (b - a)
	return math.Max(0, math.Min(1, t))
}

// quantize keys an endpoint for hashing; contour endpoints from adjacent
// cells agree exactly, but a small snap absorbs float noise.
func quantize(p point) [2]int32 {
	return [2]int32{int32(math.Round(p.X * 256)), int32(math.Round(p.Y * 256))}
}

// joinSegments links segments into polylines by matching endpoints.
func joinSegments(segs []segment) [][]point {
	type end struct {
		line int
		head bool
	}
	lines := make([][]point, 0)
	byEnd := make(map[[2]int32]end)

	for _, s := range segs {
		ka, kb := quantize(s.A), quantize(s.B)

		ea, okA := byEnd[ka]
		eb, okB := byEnd[kb]

		switch {
		case okA && okB && ea.line != eb.line:
			// Bridge two existing polylines.
			la, lb := lines[ea.line], lines[eb.line]
			if ea.head {
				la = reverse(la)
			}
			if !eb.head {
				lb = reverse(lb)
			}
			merged := append(la, lb...)
			lines[ea.line] = merged
			lines[eb.line] = nil
			delete(byEnd, ka)
			delete(byEnd, kb)
			byEnd[quantize(merged[0])] = end{ea.line, true}
			byEnd[quantize(merged[len(merged)-1])] = end{ea.line, false}

		case okA:
			line := lines[ea.line]
			if ea.head {
				line = append([]point{s.B}, line...)
				byEnd[kb] = end{ea.line, true}
			} else {
				line = append(line, s.B)
				byEnd[kb] = end{ea.line, false}
			}
			lines[ea.line] = line
			delete(byEnd, ka)

		case okB:
			line := lines[eb.line]
			if eb.head {
				line = append([]point{s.A}, line...)
				byEnd[ka] = end{eb.line, true}
			} else {
				line = append(line, s.A)
				byEnd[ka] = end{eb.line, false}
			}
			lines[eb.line] = line
			delete(byEnd, kb)

		default:
			lines = append(lines, []point{s.A, s.B})
			byEnd[ka] = end{len(lines) - 1, true}
			byEnd[kb] = end{len(lines) - 1, false}
		}
	}

	out := lines[:0]
	for _, l := range lines {
		if len(l) >= 2 {
			out = append(out, l)
		}
	}
	return out
}

func reverse(pts []point) []point {
	out := make([]point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// chaikin applies one iteration of corner cutting.
func chaikin(pts []point) []point {
	if len(pts) < 3 {
		return pts
	}
	out := make([]point, 0, len(pts)*2)
	out = append(out, pts[0])
	for i := 0; i < len(pts)-1; i++ {
		a, b := pts[i], pts[i+1]
		out = append(out,
			point{a.X*0.75 + b.X*0.25, a.Y*0.75 + b.Y*0.25},
			point{a.X*0.25 + b.X*0.75, a.Y*0.25 + b.Y*0.75},
		)
	}
	return append(out, pts[len(pts)-1])
}

// strokePolyline draws an anti-aliased stroke by filling a quad per
// segment with the vector rasterizer.
func strokePolyline(img *image.NRGBA, pts []point, width float64, c color.NRGBA) {
	if len(pts) < 2 || width <= 0 {
		return
	}
	half := width / 2

	r := vector.NewRasterizer(img.Bounds().Dx(), img.Bounds().Dy())

	for i := 0; i < len(pts)-1; i++ {
		a, b := pts[i], pts[i+1]
		dx, dy := b.X-a.X, b.Y-a.Y
		length := math.Hypot(dx, dy)
		if length == 0 {
			continue
		}
		// Unit normal scaled to the half-width.
		nx, ny := -dy/length*half, dx/length*half

		r.MoveTo(float32(a.X+nx), float32(a.Y+ny))
		r.LineTo(float32(b.X+nx), float32(b.Y+ny))
		r.LineTo(float32(b.X-nx), float32(b.Y-ny))
		r.LineTo(float32(a.X-nx), float32(a.Y-ny))
		r.ClosePath()
	}

	r.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{})
}
