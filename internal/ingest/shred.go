// Package ingest shreds multi-message GRIB2 files into per-parameter
// objects and catalogs them: the reverse data flow of the tile pipeline.
package ingest

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/driftline/stratus/grib2"
	"github.com/driftline/stratus/grib2/gridshape"
	"github.com/driftline/stratus/internal/catalog"
	"github.com/driftline/stratus/internal/store"
)

// Shredder splits downloaded model runs into one object per
// (parameter, level, forecast hour) and records each in the catalog.
type Shredder struct {
	Objects store.ObjectStore
	Catalog *catalog.Catalog
	Log     zerolog.Logger
}

// Report summarizes one shred run.
type Report struct {
	Stored  int // fields stored and cataloged
	Skipped int // messages skipped (unsupported templates, parse errors)
	Bytes   int64
}

// Shred walks every message in data, stores each decodable field under
// the canonical key layout, and inserts catalog rows. Messages that fail
// to parse or carry unsupported templates are logged and skipped; one
// exotic message must not sink a 400-message model run.
func (s *Shredder) Shred(ctx context.Context, model string, data []byte) (Report, error) {
	var report Report

	boundaries, err := grib2.FindMessages(data, func(offset int, msg string) {
		s.Log.Warn().Int("offset", offset).Msg(msg)
	})
	if err != nil && len(boundaries) == 0 {
		return report, errors.Wrap(err, "scanning messages")
	}

	for _, b := range boundaries {
		raw := data[b.Start : b.Start+int(b.Length)]

		msgs, err := grib2.ParseMessage(raw)
		if err != nil {
			report.Skipped++
			s.Log.Warn().Err(err).Int("message", b.Index).Msg("skipping unparsable message")
			continue
		}

		for _, m := range msgs {
			if err := s.shredField(ctx, model, m, raw); err != nil {
				report.Skipped++
				s.Log.Warn().Err(err).Int("message", b.Index).Msg("skipping field")
				continue
			}
			report.Stored++
			report.Bytes += int64(len(raw))
		}
	}
	return report, nil
}

// shredField stores one field's message bytes and catalogs it.
func (s *Shredder) shredField(ctx context.Context, model string, m *grib2.Message, raw []byte) error {
	id := m.ParameterID()
	param := id.ShortName(model)

	levelType, levelValue := m.Section4.Product.Level()
	forecast, ok := m.Section4.Product.ForecastDuration()
	if !ok {
		return fmt.Errorf("parameter %s has a calendar-unit forecast time", param)
	}
	fhh := int(forecast.Hours())

	run := m.Section1.ReferenceTime
	level := fmt.Sprintf("%d-%g", levelType, levelValue)
	key := store.Key(model, run, param, level, fhh)

	minLat, minLon, maxLat, maxLon := gridshape.Bounds(m.Section3.Grid)
	ni, nj := m.Section3.Grid.Dims()

	ds := &catalog.Dataset{
		Model:         model,
		Parameter:     param,
		LevelType:     int(levelType),
		LevelValue:    levelValue,
		ReferenceTime: run,
		ForecastHour:  fhh,
		StorageKey:    key,
		GridMeta: catalog.GridMeta{
			TemplateNumber: m.Section3.Grid.TemplateNumber(),
			Ni:             ni,
			Nj:             nj,
			MinLat:         minLat,
			MinLon:         minLon,
			MaxLat:         maxLat,
			MaxLon:         maxLon,
		},
		Size: int64(len(raw)),
	}

	if err := s.Catalog.Insert(ctx, ds); err != nil {
		return errors.Wrap(err, "cataloging")
	}
	if err := s.Objects.Put(ctx, key, raw); err != nil {
		return errors.Wrap(err, "storing")
	}
	if err := s.Catalog.MarkAvailable(ctx, ds); err != nil {
		return errors.Wrap(err, "publishing")
	}

	s.Log.Debug().Str("key", key).Str("parameter", param).Msg("shredded field")
	return nil
}
