// Command stratusd serves weather map tiles over WMS and WMTS.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/driftline/stratus/internal/cache"
	"github.com/driftline/stratus/internal/catalog"
	"github.com/driftline/stratus/internal/config"
	"github.com/driftline/stratus/internal/coordinate"
	"github.com/driftline/stratus/internal/metrics"
	"github.com/driftline/stratus/internal/render"
	"github.com/driftline/stratus/internal/server"
	"github.com/driftline/stratus/internal/store"
)

func main() {
	configPath := flag.String("config", "stratus.toml", "path to the TOML config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if *debug {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	if err := run(log, *configPath); err != nil {
		log.Fatal().Err(err).Msg("stratusd exited")
	}
}

func run(log zerolog.Logger, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	defer cat.Close()

	var objects store.ObjectStore
	switch cfg.Storage.Backend {
	case "s3":
		objects, err = store.NewS3(ctx, cfg.Storage.Bucket, cfg.Storage.Region, cfg.Storage.FetchTimeout.Std())
		if err != nil {
			return err
		}
	default:
		objects = store.NewFS(cfg.Storage.Root)
	}

	l1, err := cache.NewTileCache(cfg.Cache.TileEntries, cfg.Cache.TileMaxBytes, cfg.Cache.TileTTL.Std())
	if err != nil {
		return err
	}
	grids, err := cache.NewGridCache(cfg.Cache.GridEntries)
	if err != nil {
		return err
	}

	var l2 *cache.RedisCache
	if cfg.Cache.RedisAddr != "" {
		l2 = cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.SchemaVersion,
			cfg.Cache.RedisTTL.Std(), cfg.Cache.RedisTimeout.Std())
		defer l2.Close()
		if err := l2.Ping(ctx); err != nil {
			// L2 is an accelerator: start degraded rather than refuse.
			log.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("l2 cache unreachable at startup")
		}
	}

	registry := prometheus.NewRegistry()
	met := metrics.New(registry)
	styles := render.DefaultStyles()

	coord := coordinate.New(coordinate.Options{
		Layers:         cfg.Layers,
		Styles:         styles,
		Catalog:        cat,
		Objects:        objects,
		L1:             l1,
		L2:             l2,
		Grids:          grids,
		Workers:        cfg.Render.Workers,
		Metrics:        met,
		Log:            log,
		RequestTimeout: cfg.Render.RequestTimeout.Std(),
		PrefetchRing:   cfg.Render.PrefetchRing,
		PrefetchQueue:  cfg.Render.PrefetchQueue,
	})
	defer coord.Close()

	warmer := coordinate.NewWarmer(coord, cfg.Warming.Targets, cfg.Warming.Ready)
	go func() {
		if err := warmer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("cache warming stopped early")
		} else {
			log.Info().Float64("fraction", warmer.Fraction()).Msg("cache warming complete")
		}
	}()

	srv := server.New(coord, cfg.Layers, styles, warmer, registry, log)
	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("forced shutdown")
		}
	}()

	log.Info().Str("listen", cfg.Listen).Int("layers", len(cfg.Layers)).Msg("stratusd listening")
	if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
