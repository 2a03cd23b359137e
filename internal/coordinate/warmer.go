package coordinate

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/driftline/stratus/internal/config"
	"github.com/driftline/stratus/internal/proj"
)

// Warmer pre-renders a configured set of tiles into both cache tiers at
// startup. Warming is resumable - tiles already present in a cache tier
// cost one lookup - and readiness fires once the configured fraction
// completes, so a large warm set cannot block health indefinitely.
type Warmer struct {
	coord   *Coordinator
	targets []config.WarmTarget
	ready   float64

	total     atomic.Int64
	completed atomic.Int64
	isReady   atomic.Bool
}

// NewWarmer builds a warmer. readyFraction in [0, 1]; 0 marks ready
// immediately.
func NewWarmer(c *Coordinator, targets []config.WarmTarget, readyFraction float64) *Warmer {
	w := &Warmer{coord: c, targets: targets, ready: readyFraction}
	if len(targets) == 0 || readyFraction == 0 {
		w.isReady.Store(true)
	}
	return w
}

// Ready reports whether warming has passed its readiness threshold.
func (w *Warmer) Ready() bool {
	return w.isReady.Load()
}

// Fraction returns warm progress in [0, 1].
func (w *Warmer) Fraction() float64 {
	total := w.total.Load()
	if total == 0 {
		return 1
	}
	return float64(w.completed.Load()) / float64(total)
}

// Run warms every target, bounded by the CPU pool via the normal tile
// path. It returns when the set is complete or ctx is cancelled.
func (w *Warmer) Run(ctx context.Context) error {
	reqs := w.expand()
	w.total.Store(int64(len(reqs)))
	if len(reqs) == 0 {
		w.isReady.Store(true)
		return nil
	}

	threshold := int64(math.Ceil(w.ready * float64(len(reqs))))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, req := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := w.coord.Tile(ctx, req); err != nil {
				// A layer without data yet is not fatal to warming.
				w.coord.log.Warn().Err(err).Str("layer", req.Layer).Msg("warm render failed")
			}
			done := w.completed.Add(1)
			w.coord.met.WarmFraction.Set(float64(done) / float64(len(reqs)))
			if done >= threshold {
				w.isReady.Store(true)
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		w.isReady.Store(true)
	}
	return err
}

// expand enumerates the tile requests of every warm target.
func (w *Warmer) expand() []Request {
	var reqs []Request
	now := time.Now().UTC()

	for _, t := range w.targets {
		for z := t.MinZoom; z <= t.MaxZoom; z++ {
			n := 1 << uint(z)
			size := 2 * proj.MercatorMax / float64(n)

			x0 := clampTile(int(math.Floor((t.BBox[0]+proj.MercatorMax)/size)), n)
			x1 := clampTile(int(math.Floor((t.BBox[2]+proj.MercatorMax)/size)), n)
			y0 := clampTile(int(math.Floor((proj.MercatorMax-t.BBox[3])/size)), n)
			y1 := clampTile(int(math.Floor((proj.MercatorMax-t.BBox[1])/size)), n)

			for y := y0; y <= y1; y++ {
				for x := x0; x <= x1; x++ {
					minX, minY, maxX, maxY := proj.TileBounds(z, x, y)
					reqs = append(reqs, Request{
						Layer: t.Layer,
						Style: t.Style,
						Width: 256, Height: 256,
						MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY,
						Time:   now,
						Format: "image/png",
					})
				}
			}
		}
	}
	return reqs
}

func clampTile(v, n int) int {
	if v < 0 {
		return 0
	}
	if v > n-1 {
		return n - 1
	}
	return v
}
