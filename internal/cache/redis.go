package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by RedisCache.Get for absent keys.
var ErrMiss = errors.New("cache miss")

// RedisCache is the shared L2 tile cache.
//
// Keys carry a schema-version prefix so a deploy that changes rendering
// invalidates the whole tier atomically by bumping the version. Values
// pack the content type ahead of the tile bytes; the ETag is recomputed
// by the caller from the fingerprint, and ProducedAt travels in the
// header.
type RedisCache struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

// NewRedisCache connects the L2 tier. schemaVersion becomes the key
// prefix; ttl bounds entry lifetime; timeout applies per operation.
func NewRedisCache(addr string, schemaVersion int, ttl, timeout time.Duration) *RedisCache {
	return &RedisCache{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		prefix:  fmt.Sprintf("tile:v%d:", schemaVersion),
		ttl:     ttl,
		timeout: timeout,
	}
}

// key prepends the schema-version prefix.
func (c *RedisCache) key(fingerprint string) string {
	return c.prefix + fingerprint
}

// encodeEntry packs (producedAt, contentType, bytes).
func encodeEntry(e Entry) []byte {
	ct := []byte(e.ContentType)
	out := make([]byte, 0, 8+2+len(ct)+len(e.Bytes))
	out = binary.BigEndian.AppendUint64(out, uint64(e.ProducedAt.Unix()))
	out = binary.BigEndian.AppendUint16(out, uint16(len(ct)))
	out = append(out, ct...)
	return append(out, e.Bytes...)
}

// decodeEntry unpacks an encoded entry.
func decodeEntry(data []byte) (Entry, error) {
	if len(data) < 10 {
		return Entry{}, fmt.Errorf("l2 entry too short: %d bytes", len(data))
	}
	produced := int64(binary.BigEndian.Uint64(data))
	ctLen := int(binary.BigEndian.Uint16(data[8:]))
	if len(data) < 10+ctLen {
		return Entry{}, fmt.Errorf("l2 entry content type overruns value")
	}
	return Entry{
		ProducedAt:  time.Unix(produced, 0).UTC(),
		ContentType: string(data[10 : 10+ctLen]),
		Bytes:       data[10+ctLen:],
	}, nil
}

// Get fetches a tile from L2, refreshing the key's TTL on the hit so
// frequently requested tiles stay warm instead of expiring on their
// original countdown. Returns ErrMiss for absent keys; any other error
// is a transport problem the caller swallows with a metric.
func (c *RedisCache) Get(ctx context.Context, fingerprint string) (Entry, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	data, err := c.client.GetEx(ctx, c.key(fingerprint), c.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrMiss
	}
	if err != nil {
		return Entry{}, fmt.Errorf("l2 get: %w", err)
	}
	return decodeEntry(data)
}

// Put writes a tile to L2. Writes are best effort: the caller treats a
// failure as a metric increment, never a request failure.
func (c *RedisCache) Put(ctx context.Context, fingerprint string, e Entry) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.client.Set(ctx, c.key(fingerprint), encodeEntry(e), c.ttl).Err(); err != nil {
		return fmt.Errorf("l2 set: %w", err)
	}
	return nil
}

// Ping verifies connectivity at startup.
func (c *RedisCache) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

// Close releases the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
