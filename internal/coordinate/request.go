package coordinate

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// TileCoord addresses a tile in the web mercator pyramid; present only
// on WMTS-shaped requests, where it drives neighbor prefetch.
type TileCoord struct {
	Z, X, Y int
}

// Request is a fully canonicalized render request. The HTTP layer
// normalizes query parameters (case, ordering, CRS aliases) into this
// struct; everything below keys off it.
type Request struct {
	Layer  string // lowercased layer id: {model}_{parameter}
	Style  string // lowercased style id
	Width  int
	Height int

	// BBox in EPSG:3857 meters.
	MinX, MinY, MaxX, MaxY float64

	Time   time.Time
	Format string // MIME type; only image/png today

	Tile *TileCoord // set for tiled requests
}

// fingerprint schema version: bump when canonicalization or rendering
// changes in a way that must invalidate previously cached tiles.
const fingerprintSchema = 1

// bboxQuantum is the bbox quantization step in mercator meters. Requests
// that differ only by float formatting noise must collapse to one
// fingerprint.
const bboxQuantum = 1e-4

func quantize(v float64) int64 {
	return int64(math.Round(v / bboxQuantum))
}

// Canonical returns the deterministic byte-string identity of the
// request. Two requests with equal canonical strings must produce
// byte-identical tiles.
func (r *Request) Canonical() string {
	var b strings.Builder
	fmt.Fprintf(&b, "v%d|%s|%s|%d|%d|%d|%d|%d|%d|%d|%s",
		fingerprintSchema,
		strings.ToLower(r.Layer),
		strings.ToLower(r.Style),
		quantize(r.MinX), quantize(r.MinY), quantize(r.MaxX), quantize(r.MaxY),
		r.Width, r.Height,
		r.Time.UTC().Unix(),
		strings.ToLower(r.Format),
	)
	return b.String()
}

// Fingerprint returns the cache key: an xxhash64 digest of the canonical
// string, hex encoded.
func (r *Request) Fingerprint() string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(r.Canonical()))
}

// ETag returns the strong entity tag served with the tile.
func (r *Request) ETag() string {
	return `"` + r.Fingerprint() + `"`
}
