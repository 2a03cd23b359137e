// Package store abstracts the object storage holding shredded GRIB2
// files: one object per (model, run, parameter, level, forecast hour).
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is returned for absent objects.
var ErrNotFound = errors.New("object not found")

// ObjectStore reads and writes shredded GRIB2 objects.
//
// GetRange exists because a request that already holds cached grid
// geometry only needs the message's data sections, not the whole file.
type ObjectStore interface {
	// Get fetches a whole object.
	Get(ctx context.Context, key string) ([]byte, error)

	// GetRange fetches length bytes from offset. length < 0 means
	// through the end of the object.
	GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error)

	// Put writes an object.
	Put(ctx context.Context, key string, body []byte) error
}

// Key builds the canonical storage key for a shredded field:
//
//	shredded/{model}/{yyyymmdd}_{hh}/{parameter}_{level}/f{fhh:03}.grib2
func Key(model string, run time.Time, parameter, level string, forecastHour int) string {
	return fmt.Sprintf("shredded/%s/%s/%s_%s/f%03d.grib2",
		model, run.UTC().Format("20060102_15"), parameter, level, forecastHour)
}

// FS is a filesystem-backed ObjectStore for development and tests.
type FS struct {
	Root string
}

// NewFS creates a filesystem store rooted at root.
func NewFS(root string) *FS {
	return &FS{Root: root}
}

func (s *FS) path(key string) string {
	return filepath.Join(s.Root, filepath.FromSlash(strings.TrimPrefix(key, "/")))
}

// Get fetches a whole object.
func (s *FS) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNotFound, "key %s", key)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", key)
	}
	return data, nil
}

// GetRange fetches a byte range of an object.
func (s *FS) GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	f, err := os.Open(s.path(key))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNotFound, "key %s", key)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", key)
	}
	defer f.Close()

	if length < 0 {
		info, err := f.Stat()
		if err != nil {
			return nil, errors.Wrapf(err, "stat %s", key)
		}
		length = info.Size() - offset
	}

	buf := make([]byte, length)
	n, err := f.ReadAt(buf, offset)
	if err != nil && n < int(length) {
		return nil, errors.Wrapf(err, "ranged read %s [%d,+%d)", key, offset, length)
	}
	return buf[:n], nil
}

// Put writes an object, creating parent directories.
func (s *FS) Put(ctx context.Context, key string, body []byte) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating parents for %s", key)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", key)
	}
	return nil
}
