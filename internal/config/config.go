// Package config loads the service configuration from TOML.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root service configuration.
type Config struct {
	Listen  string  `toml:"listen"`
	Storage Storage `toml:"storage"`
	Catalog Catalog `toml:"catalog"`
	Cache   Cache   `toml:"cache"`
	Render  Render  `toml:"render"`
	Warming Warming `toml:"warming"`

	Layers map[string]Layer `toml:"layers"`
}

// Storage selects the object store backing shredded GRIB2 files.
type Storage struct {
	Backend string `toml:"backend"` // "s3" or "fs"
	Bucket  string `toml:"bucket"`
	Region  string `toml:"region"`
	Root    string `toml:"root"` // fs backend root directory

	FetchTimeout duration `toml:"fetch_timeout"`
}

// Catalog points at the dataset index database.
type Catalog struct {
	Path string `toml:"path"` // SQLite database path
}

// Cache sizes the tile and grid caches.
type Cache struct {
	TileEntries   int      `toml:"tile_entries"`   // L1 tile cache capacity
	TileMaxBytes  int      `toml:"tile_max_bytes"` // per-entry admission cap
	GridEntries   int      `toml:"grid_entries"`   // decoded-grid cache capacity
	RedisAddr     string   `toml:"redis_addr"`     // empty disables L2
	RedisTTL      duration `toml:"redis_ttl"`
	RedisTimeout  duration `toml:"redis_timeout"`
	SchemaVersion int      `toml:"schema_version"`
	TileTTL       duration `toml:"tile_ttl"`
}

// Render bounds the render pipeline.
type Render struct {
	Workers        int      `toml:"workers"`         // CPU pool size; 0 = NumCPU
	RequestTimeout duration `toml:"request_timeout"` // overall deadline per request
	PrefetchRing   int      `toml:"prefetch_ring"`   // neighbor ring radius; 0 disables
	PrefetchQueue  int      `toml:"prefetch_queue"`
}

// Warming configures startup cache warming.
type Warming struct {
	Ready   float64      `toml:"ready_fraction"` // readiness threshold
	Targets []WarmTarget `toml:"targets"`
}

// WarmTarget names one (layer, zoom range, bbox) set to pre-render.
type WarmTarget struct {
	Layer   string     `toml:"layer"`
	Style   string     `toml:"style"`
	MinZoom int        `toml:"min_zoom"`
	MaxZoom int        `toml:"max_zoom"`
	BBox    [4]float64 `toml:"bbox"` // EPSG:3857 minx, miny, maxx, maxy
}

// Layer defines one published layer.
type Layer struct {
	Model      string  `toml:"model"`
	Parameter  string  `toml:"parameter"` // short name, e.g. TMP
	UParam     string  `toml:"u_param"`   // wind-barb layers: U component
	VParam     string  `toml:"v_param"`
	LevelType  int     `toml:"level_type"`
	LevelValue float64 `toml:"level_value"`
	Style      string  `toml:"style"` // default style id
}

// duration wraps time.Duration for TOML strings like "250ms".
type duration time.Duration

// UnmarshalText implements toml decoding for durations.
func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

// Std returns the wrapped time.Duration.
func (d duration) Std() time.Duration { return time.Duration(d) }

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Storage: Storage{
			Backend:      "fs",
			Root:         "./data",
			FetchTimeout: duration(10 * time.Second),
		},
		Catalog: Catalog{Path: "./catalog.db"},
		Cache: Cache{
			TileEntries:   4096,
			TileMaxBytes:  1 << 20,
			GridEntries:   32,
			RedisTTL:      duration(15 * time.Minute),
			RedisTimeout:  duration(250 * time.Millisecond),
			SchemaVersion: 1,
			TileTTL:       duration(15 * time.Minute),
		},
		Render: Render{
			RequestTimeout: duration(30 * time.Second),
			PrefetchRing:   1,
			PrefetchQueue:  256,
		},
		Warming: Warming{Ready: 0.75},
		Layers:  map[string]Layer{},
	}
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket required for the s3 backend")
		}
	case "fs":
		if c.Storage.Root == "" {
			return fmt.Errorf("storage.root required for the fs backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Warming.Ready < 0 || c.Warming.Ready > 1 {
		return fmt.Errorf("warming.ready_fraction must be in [0, 1]")
	}

	for name, layer := range c.Layers {
		if layer.Model == "" {
			return fmt.Errorf("layer %s: model required", name)
		}
		if layer.Parameter == "" && (layer.UParam == "" || layer.VParam == "") {
			return fmt.Errorf("layer %s: parameter or u_param/v_param required", name)
		}
	}
	return nil
}
