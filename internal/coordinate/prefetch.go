package coordinate

import (
	"context"
	"sync"

	"github.com/driftline/stratus/internal/proj"
)

// Prefetcher extends the working set around hot tiles: on a miss, the
// N-ring of neighbors at the same zoom is queued for a low-priority
// background render. Enqueues never block and drop when the queue is
// full; prefetch is advisory.
type Prefetcher struct {
	coord *Coordinator
	ring  int
	queue chan Request

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

func newPrefetcher(c *Coordinator, ring, depth int) *Prefetcher {
	if depth <= 0 {
		depth = 256
	}
	p := &Prefetcher{
		coord: c,
		ring:  ring,
		queue: make(chan Request, depth),
		done:  make(chan struct{}),
	}
	p.wg.Add(1)
	go p.worker()
	return p
}

// enqueueRing enqueues the neighbors of a missed tile.
func (p *Prefetcher) enqueueRing(req Request) {
	t := req.Tile
	max := 1 << uint(t.Z)

	for dy := -p.ring; dy <= p.ring; dy++ {
		for dx := -p.ring; dx <= p.ring; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			x, y := t.X+dx, t.Y+dy
			if y < 0 || y >= max {
				continue
			}
			// The x axis wraps around the antimeridian.
			x = ((x % max) + max) % max

			n := req
			n.Tile = &TileCoord{Z: t.Z, X: x, Y: y}
			n.MinX, n.MinY, n.MaxX, n.MaxY = proj.TileBounds(t.Z, x, y)

			select {
			case p.queue <- n:
				p.coord.met.PrefetchEnqueued.Inc()
			default:
				p.coord.met.PrefetchDropped.Inc()
			}
		}
	}
}

func (p *Prefetcher) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case req := <-p.queue:
			// A prefetched render takes the normal path, so it lands in
			// both cache tiers and collapses with any live request. The
			// tile coordinate is dropped so prefetch never fans out its
			// own ring.
			req.Tile = nil
			if _, err := p.coord.Tile(context.Background(), req); err != nil {
				p.coord.log.Debug().Err(err).Str("layer", req.Layer).Msg("prefetch render failed")
			}
		}
	}
}

func (p *Prefetcher) close() {
	p.closeOnce.Do(func() { close(p.done) })
	p.wg.Wait()
}
