// Package metrics defines the Prometheus instrumentation for the tile
// pipeline. One Metrics value is constructed at startup and shared; every
// stage records into it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline's counters, gauges, and histograms.
type Metrics struct {
	RendersTotal     prometheus.Counter
	TileCacheHits    *prometheus.CounterVec // tier: l1, l2
	TileCacheMisses  prometheus.Counter
	CacheErrors      *prometheus.CounterVec // tier, op
	GridCacheHits    prometheus.Counter
	GridCacheMisses  prometheus.Counter
	PrefetchDropped  prometheus.Counter
	PrefetchEnqueued prometheus.Counter
	CatalogNegative  prometheus.Counter

	InflightRenders prometheus.Gauge
	WarmFraction    prometheus.Gauge

	StageDuration *prometheus.HistogramVec // stage: fetch, decode, resample, colorize, encode, l2_get, l2_set
	RequestSize   prometheus.Histogram     // encoded tile bytes
}

// New constructs and registers the pipeline metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RendersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stratus_renders_total",
			Help: "Tiles rendered (cache misses that reached the pipeline).",
		}),
		TileCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratus_tile_cache_hits_total",
			Help: "Tile cache hits by tier.",
		}, []string{"tier"}),
		TileCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stratus_tile_cache_misses_total",
			Help: "Requests that missed both cache tiers.",
		}),
		CacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratus_cache_errors_total",
			Help: "Cache operation failures, swallowed by design.",
		}, []string{"tier", "op"}),
		GridCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stratus_grid_cache_hits_total",
			Help: "Decoded-grid cache hits.",
		}),
		GridCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stratus_grid_cache_misses_total",
			Help: "Decoded-grid cache misses (a GRIB2 decode follows).",
		}),
		PrefetchDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stratus_prefetch_dropped_total",
			Help: "Prefetch candidates dropped because the queue was full.",
		}),
		PrefetchEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stratus_prefetch_enqueued_total",
			Help: "Neighbor tiles enqueued for background rendering.",
		}),
		CatalogNegative: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stratus_catalog_negative_total",
			Help: "Catalog lookups that found no dataset.",
		}),
		InflightRenders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stratus_inflight_renders",
			Help: "Renders currently executing on the CPU pool.",
		}),
		WarmFraction: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stratus_warm_fraction",
			Help: "Fraction of the configured warming set completed.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stratus_stage_duration_seconds",
			Help:    "Latency of each pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"stage"}),
		RequestSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stratus_tile_bytes",
			Help:    "Encoded tile sizes.",
			Buckets: prometheus.ExponentialBuckets(256, 2, 12),
		}),
	}

	reg.MustRegister(
		m.RendersTotal, m.TileCacheHits, m.TileCacheMisses, m.CacheErrors,
		m.GridCacheHits, m.GridCacheMisses,
		m.PrefetchDropped, m.PrefetchEnqueued, m.CatalogNegative,
		m.InflightRenders, m.WarmFraction,
		m.StageDuration, m.RequestSize,
	)
	return m
}

// NewNop returns metrics registered on a throwaway registry, for tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
