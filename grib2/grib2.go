// Package grib2 reads GRIB2 (GRIdded Binary, edition 2) meteorological
// files: message iteration, section parsing, and payload decoding for the
// templates published by the supported data sources (GFS, HRRR, MRMS,
// GOES space-view products).
//
// Two entry points matter to most callers:
//
//	msgs, err := grib2.ScanMessages(data)   // headers only, cheap
//	field, err := msgs[0].Decode()          // materialize one grid
//
// ScanMessages parses every message's sections but defers Section 7
// unpacking, so shredding a multi-hundred-message file only pays for the
// fields actually rendered. ReadFields decodes everything in parallel.
package grib2

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ScanMessages parses all GRIB2 messages in data, leaving payloads packed.
//
// With WithSkipUnsupported, messages carrying templates this decoder does
// not implement are dropped (reported through WithWarn) instead of
// failing the scan; real model runs mix template generations and one
// exotic message should not poison a whole file.
func ScanMessages(data []byte, opts ...Option) ([]*Message, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	boundaries, err := FindMessages(data, cfg.warn)
	if err != nil {
		return nil, err
	}
	if len(boundaries) == 0 {
		return nil, nil
	}

	results := make([][]*Message, len(boundaries))

	g, ctx := errgroup.WithContext(cfg.ctx)
	g.SetLimit(cfg.workers)
	for i, b := range boundaries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			msgs, err := ParseMessage(data[b.Start : b.Start+int(b.Length)])
			if err != nil {
				if cfg.skipUnsupported && IsSkippable(err) {
					if cfg.warn != nil {
						cfg.warn(b.Start, fmt.Sprintf("skipping message %d: %v", b.Index, err))
					}
					return nil
				}
				return fmt.Errorf("message %d at offset %d: %w", b.Index, b.Start, err)
			}
			results[i] = msgs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var messages []*Message
	for _, msgs := range results {
		for _, m := range msgs {
			if cfg.filter == nil || cfg.filter(m) {
				messages = append(messages, m)
			}
		}
	}
	return messages, nil
}

// ReadFields scans and fully decodes every message in data, in parallel.
// Skippable per-message failures (unsupported templates, degenerate
// fields) are dropped with a warning when WithSkipUnsupported is set.
func ReadFields(data []byte, opts ...Option) ([]*Field, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	messages, err := ScanMessages(data, opts...)
	if err != nil {
		return nil, err
	}

	fields := make([]*Field, len(messages))

	g, ctx := errgroup.WithContext(cfg.ctx)
	g.SetLimit(cfg.workers)
	for i, m := range messages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := m.Decode()
			if err != nil {
				if cfg.skipUnsupported && IsSkippable(err) {
					if cfg.warn != nil {
						cfg.warn(0, fmt.Sprintf("skipping field %s: %v", m.ParameterID(), err))
					}
					return nil
				}
				return fmt.Errorf("decoding %s: %w", m.ParameterID(), err)
			}
			fields[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := fields[:0]
	for _, f := range fields {
		if f != nil {
			out = append(out, f)
		}
	}
	return out, nil
}

// config holds scan/decode options.
type config struct {
	ctx             context.Context
	workers         int
	skipUnsupported bool
	warn            func(offset int, msg string)
	filter          func(*Message) bool
}

func defaultConfig() config {
	return config{
		ctx:     context.Background(),
		workers: runtime.NumCPU(),
	}
}

// Option configures ScanMessages and ReadFields.
type Option func(*config)

// WithWorkers bounds parsing/decoding parallelism. Values <= 0 fall back
// to the CPU count.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithContext attaches a context for cancellation.
func WithContext(ctx context.Context) Option {
	return func(c *config) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

// WithSkipUnsupported drops messages with unsupported templates or
// degenerate payloads instead of failing the whole file.
func WithSkipUnsupported() Option {
	return func(c *config) {
		c.skipUnsupported = true
	}
}

// WithWarn receives non-fatal scan diagnostics: skipped padding, skipped
// messages. The callback may be invoked from multiple goroutines.
func WithWarn(warn func(offset int, msg string)) Option {
	return func(c *config) {
		if warn == nil {
			c.warn = nil
			return
		}
		var mu sync.Mutex
		c.warn = func(offset int, msg string) {
			mu.Lock()
			defer mu.Unlock()
			warn(offset, msg)
		}
	}
}

// WithFilter keeps only messages for which keep returns true. The filter
// sees fully parsed headers but packed payloads.
func WithFilter(keep func(*Message) bool) Option {
	return func(c *config) {
		c.filter = keep
	}
}

// FilterParameter keeps messages matching a (discipline, category,
// number) tuple.
func FilterParameter(discipline, category, number uint8) Option {
	return WithFilter(func(m *Message) bool {
		id := m.ParameterID()
		return id.Discipline == discipline && id.Category == category && id.Number == number
	})
}
