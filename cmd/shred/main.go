// Command shred splits downloaded GRIB2 model runs into per-parameter
// objects and catalogs them for the tile service.
//
// Usage:
//
//	shred -config stratus.toml -model gfs run.grib2 [more.grib2 ...]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/driftline/stratus/internal/catalog"
	"github.com/driftline/stratus/internal/config"
	"github.com/driftline/stratus/internal/ingest"
	"github.com/driftline/stratus/internal/store"
)

func main() {
	configPath := flag.String("config", "stratus.toml", "path to the TOML config file")
	model := flag.String("model", "", "model producing the files (gfs, hrrr, mrms)")
	flag.Parse()

	if *model == "" || flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: shred -config stratus.toml -model gfs file.grib2 ...")
		os.Exit(2)
	}

	log := zerolog.New(os.Stderr).With().Timestamp().Str("model", *model).Logger()
	if err := run(log, *configPath, *model, flag.Args()); err != nil {
		log.Fatal().Err(err).Msg("shred failed")
	}
}

func run(log zerolog.Logger, configPath, model string, files []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()

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

	shredder := &ingest.Shredder{Objects: objects, Catalog: cat, Log: log}

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}

		report, err := shredder.Shred(ctx, model, data)
		if err != nil {
			return fmt.Errorf("shredding %s: %w", file, err)
		}
		log.Info().
			Str("file", file).
			Int("stored", report.Stored).
			Int("skipped", report.Skipped).
			Int64("bytes", report.Bytes).
			Msg("shredded")
	}
	return nil
}
