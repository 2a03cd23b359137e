package coordinate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/driftline/stratus/grib2"
	"github.com/driftline/stratus/internal/cache"
	"github.com/driftline/stratus/internal/catalog"
	"github.com/driftline/stratus/internal/config"
	"github.com/driftline/stratus/internal/metrics"
	"github.com/driftline/stratus/internal/pngenc"
	"github.com/driftline/stratus/internal/proj"
	"github.com/driftline/stratus/internal/render"
	"github.com/driftline/stratus/internal/store"
)

// ErrNoData indicates the catalog has no dataset for the request; the
// HTTP layer maps it to an OGC exception.
var ErrNoData = errors.New("no dataset for request")

// ErrUnknownLayer indicates a layer id outside the configured set.
var ErrUnknownLayer = errors.New("unknown layer")

// RenderFailure wraps data-level render errors (corrupt message chosen
// for this tile); responses built from it carry no-store cache headers
// so a retry is not poisoned.
type RenderFailure struct {
	Err error
}

// Error implements the error interface.
func (e *RenderFailure) Error() string { return fmt.Sprintf("render failed: %v", e.Err) }

// Unwrap returns the wrapped error.
func (e *RenderFailure) Unwrap() error { return e.Err }

// Coordinator owns the tile pipeline: cache tiers, single-flight
// collapse, the CPU pool, prefetch, and the render path itself.
type Coordinator struct {
	layers  map[string]config.Layer
	styles  render.StyleSet
	catalog *catalog.Catalog
	objects store.ObjectStore

	l1    *cache.TileCache
	l2    *cache.RedisCache // nil disables the shared tier
	grids *cache.GridCache

	pool     *Pool
	flight   singleflight.Group
	prefetch *Prefetcher

	met *metrics.Metrics
	log zerolog.Logger

	requestTimeout time.Duration
}

// Options wires a Coordinator.
type Options struct {
	Layers  map[string]config.Layer
	Styles  render.StyleSet
	Catalog *catalog.Catalog
	Objects store.ObjectStore
	L1      *cache.TileCache
	L2      *cache.RedisCache
	Grids   *cache.GridCache
	Workers int
	Metrics *metrics.Metrics
	Log     zerolog.Logger

	RequestTimeout time.Duration
	PrefetchRing   int
	PrefetchQueue  int
}

// New builds a Coordinator and starts its pools.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		layers:         opts.Layers,
		styles:         opts.Styles,
		catalog:        opts.Catalog,
		objects:        opts.Objects,
		l1:             opts.L1,
		l2:             opts.L2,
		grids:          opts.Grids,
		pool:           NewPool(opts.Workers),
		met:            opts.Metrics,
		log:            opts.Log,
		requestTimeout: opts.RequestTimeout,
	}
	if opts.PrefetchRing > 0 {
		c.prefetch = newPrefetcher(c, opts.PrefetchRing, opts.PrefetchQueue)
	}
	return c
}

// Close drains the pools.
func (c *Coordinator) Close() {
	if c.prefetch != nil {
		c.prefetch.close()
	}
	c.pool.Close()
}

// Tile serves one canonicalized request through the cache tiers,
// collapsing concurrent identical requests into a single render.
//
// The leader renders on a detached context: a disconnecting client never
// cancels work that followers (or the cache) will still use.
func (c *Coordinator) Tile(ctx context.Context, req Request) (cache.Entry, error) {
	fp := req.Fingerprint()

	if entry, ok := c.l1.Get(fp); ok {
		c.met.TileCacheHits.WithLabelValues("l1").Inc()
		return entry, nil
	}

	if c.l2 != nil {
		start := time.Now()
		entry, err := c.l2.Get(ctx, fp)
		c.met.StageDuration.WithLabelValues("l2_get").Observe(time.Since(start).Seconds())
		switch {
		case err == nil:
			c.met.TileCacheHits.WithLabelValues("l2").Inc()
			// L2 hits repopulate L1.
			c.l1.Put(fp, entry)
			return entry, nil
		case !errors.Is(err, cache.ErrMiss):
			c.met.CacheErrors.WithLabelValues("l2", "get").Inc()
			c.log.Warn().Err(err).Str("fingerprint", fp).Msg("l2 lookup failed")
		}
	}

	c.met.TileCacheMisses.Inc()

	ch := c.flight.DoChan(fp, func() (interface{}, error) {
		// Detached context: bounded by the request timeout only.
		renderCtx := context.Background()
		var cancel context.CancelFunc
		if c.requestTimeout > 0 {
			renderCtx, cancel = context.WithTimeout(renderCtx, c.requestTimeout)
			defer cancel()
		}

		entry, err := c.renderTile(renderCtx, req, fp)
		if err != nil {
			return cache.Entry{}, err
		}

		c.l1.Put(fp, entry)
		if c.l2 != nil {
			// Fire-and-forget: an L2 write failure never fails a request.
			go func() {
				start := time.Now()
				if err := c.l2.Put(context.Background(), fp, entry); err != nil {
					c.met.CacheErrors.WithLabelValues("l2", "set").Inc()
					c.log.Debug().Err(err).Str("fingerprint", fp).Msg("l2 write dropped")
				}
				c.met.StageDuration.WithLabelValues("l2_set").Observe(time.Since(start).Seconds())
			}()
		}
		return entry, nil
	})

	if c.prefetch != nil && req.Tile != nil {
		c.prefetch.enqueueRing(req)
	}

	select {
	case <-ctx.Done():
		// Follower gave up; the leader keeps rendering into the cache.
		return cache.Entry{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return cache.Entry{}, res.Err
		}
		return res.Val.(cache.Entry), nil
	}
}

// renderTile is the miss path: resolve, load, resample, style, encode.
func (c *Coordinator) renderTile(ctx context.Context, req Request, fp string) (cache.Entry, error) {
	layer, ok := c.layers[req.Layer]
	if !ok {
		return cache.Entry{}, fmt.Errorf("%w: %s", ErrUnknownLayer, req.Layer)
	}
	style, err := c.styles.Get(req.Style)
	if err != nil {
		return cache.Entry{}, fmt.Errorf("%w: %v", ErrUnknownLayer, err)
	}

	c.met.RendersTotal.Inc()
	c.met.InflightRenders.Inc()
	defer c.met.InflightRenders.Dec()

	dst := render.PixelGrid{
		MinX: req.MinX, MinY: req.MinY, MaxX: req.MaxX, MaxY: req.MaxY,
		Width: req.Width, Height: req.Height, CRS: proj.CRS3857,
	}

	var img *image.NRGBA
	if style.Kind == render.KindBarbs {
		img, err = c.renderBarbs(ctx, layer, style, req, dst)
	} else {
		img, err = c.renderScalar(ctx, layer, style, req, dst)
	}
	if err != nil {
		return cache.Entry{}, err
	}

	var encoded []byte
	start := time.Now()
	if poolErr := c.pool.Run(ctx, func() error {
		var encErr error
		encoded, encErr = pngenc.EncodeBytes(img, flate.BestSpeed)
		return encErr
	}); poolErr != nil {
		return cache.Entry{}, &RenderFailure{Err: poolErr}
	}
	c.met.StageDuration.WithLabelValues("encode").Observe(time.Since(start).Seconds())
	c.met.RequestSize.Observe(float64(len(encoded)))

	return cache.Entry{
		Bytes:       encoded,
		ContentType: "image/png",
		ETag:        req.ETag(),
		ProducedAt:  time.Now().UTC(),
	}, nil
}

// renderScalar renders gradient and contour styles from one dataset.
func (c *Coordinator) renderScalar(ctx context.Context, layer config.Layer, style *render.Style, req Request, dst render.PixelGrid) (*image.NRGBA, error) {
	field, err := c.loadField(ctx, layer.Model, layer.Parameter, layer, req.Time)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, err
	}

	var raster *render.Raster
	start := time.Now()
	if err := c.pool.Run(ctx, func() error {
		raster = render.Resample(field, dst)
		return nil
	}); err != nil {
		return nil, &RenderFailure{Err: err}
	}
	c.met.StageDuration.WithLabelValues("resample").Observe(time.Since(start).Seconds())

	var img *image.NRGBA
	start = time.Now()
	if err := c.pool.Run(ctx, func() error {
		switch style.Kind {
		case render.KindContour:
			img = render.Contour(raster, style)
		default:
			img = render.Colorize(raster, style.Gradient)
		}
		return nil
	}); err != nil {
		return nil, &RenderFailure{Err: err}
	}
	c.met.StageDuration.WithLabelValues("colorize").Observe(time.Since(start).Seconds())
	return img, nil
}

// renderBarbs renders wind barbs from paired U/V component datasets.
func (c *Coordinator) renderBarbs(ctx context.Context, layer config.Layer, style *render.Style, req Request, dst render.PixelGrid) (*image.NRGBA, error) {
	uField, err := c.loadField(ctx, layer.Model, layer.UParam, layer, req.Time)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, err
	}
	vField, err := c.loadField(ctx, layer.Model, layer.VParam, layer, req.Time)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, err
	}

	var img *image.NRGBA
	start := time.Now()
	if err := c.pool.Run(ctx, func() error {
		u := render.Resample(uField, dst)
		v := render.Resample(vField, dst)
		img = render.Barbs(u, v, style)
		return nil
	}); err != nil {
		return nil, &RenderFailure{Err: err}
	}
	c.met.StageDuration.WithLabelValues("resample").Observe(time.Since(start).Seconds())
	return img, nil
}

// LatestRun returns the newest available run for a model; the HTTP
// layer uses it to pin default-TIME requests to a stable instant.
func (c *Coordinator) LatestRun(ctx context.Context, model string) (time.Time, error) {
	t, err := c.catalog.LatestRun(ctx, model)
	if errors.Is(err, catalog.ErrNotFound) {
		return time.Time{}, ErrNoData
	}
	return t, err
}

// FieldValue samples the layer's field at a geographic point, serving
// GetFeatureInfo. Returns the value and whether the point is covered.
func (c *Coordinator) FieldValue(ctx context.Context, layerID string, at time.Time, lat, lon float64) (float32, bool, error) {
	layer, ok := c.layers[layerID]
	if !ok {
		return 0, false, fmt.Errorf("%w: %s", ErrUnknownLayer, layerID)
	}
	param := layer.Parameter
	if param == "" {
		param = layer.UParam
	}

	field, err := c.loadField(ctx, layer.Model, param, layer, at)
	if errors.Is(err, catalog.ErrNotFound) {
		return 0, false, ErrNoData
	}
	if err != nil {
		return 0, false, err
	}

	row, col, ok := field.Geometry.FractionalIndex(lat, lon)
	if !ok {
		return 0, false, nil
	}
	ni, _ := field.Geometry.Dims()
	idx := int(row+0.5)*ni + int(col+0.5)%ni
	if idx < 0 || idx >= len(field.Values) || field.Missing[idx] {
		return 0, false, nil
	}
	return field.Values[idx], true, nil
}

// loadField resolves a dataset and returns its decoded grid, through the
// grid cache. The cache key is the dataset, not the tile: one decoded
// grid serves every tile cut from it.
func (c *Coordinator) loadField(ctx context.Context, model, parameter string, layer config.Layer, at time.Time) (*grib2.Field, error) {
	ds, err := c.catalog.Resolve(ctx, model, parameter, layer.LevelType, layer.LevelValue, at)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.met.CatalogNegative.Inc()
		}
		return nil, err
	}

	if field, ok := c.grids.Get(ds.ID()); ok {
		c.met.GridCacheHits.Inc()
		return field, nil
	}
	c.met.GridCacheMisses.Inc()

	start := time.Now()
	data, err := c.objects.Get(ctx, ds.StorageKey)
	c.met.StageDuration.WithLabelValues("fetch").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", ds.StorageKey, err)
	}

	var field *grib2.Field
	start = time.Now()
	if err := c.pool.Run(ctx, func() error {
		msgs, err := grib2.ParseMessage(data)
		if err != nil {
			return err
		}
		field, err = msgs[0].Decode()
		return err
	}); err != nil {
		return nil, &RenderFailure{Err: fmt.Errorf("decoding %s: %w", ds.StorageKey, err)}
	}
	c.met.StageDuration.WithLabelValues("decode").Observe(time.Since(start).Seconds())

	c.grids.Put(ds.ID(), field)
	return field, nil
}
