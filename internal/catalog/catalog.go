// Package catalog indexes shredded datasets in a relational table and
// resolves (model, parameter, level, time) lookups to storage handles.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is the distinct, cacheable negative result for lookups
// that match no available dataset.
var ErrNotFound = errors.New("dataset not found")

// Dataset is one catalog row: exactly one parameter at one level for one
// forecast hour of one model run, stored as one object.
type Dataset struct {
	Model         string
	Parameter     string // model-qualified short name, e.g. TMP
	LevelType     int
	LevelValue    float64
	ReferenceTime time.Time
	ForecastHour  int
	StorageKey    string
	GridMeta      GridMeta
	Status        string // pending | available | expired
	Size          int64
}

// GridMeta caches the grid geometry summary so simple requests skip
// re-reading the file header.
type GridMeta struct {
	TemplateNumber int     `json:"template"`
	Ni             int     `json:"ni"`
	Nj             int     `json:"nj"`
	MinLat         float64 `json:"min_lat"`
	MinLon         float64 `json:"min_lon"`
	MaxLat         float64 `json:"max_lat"`
	MaxLon         float64 `json:"max_lon"`
}

// ID returns the composite identity used as the grid cache key.
func (d *Dataset) ID() string {
	return fmt.Sprintf("%s/%s/%d/%g/%d/%03d",
		d.Model, d.Parameter, d.LevelType, d.LevelValue,
		d.ReferenceTime.Unix(), d.ForecastHour)
}

// ValidTime returns the instant the dataset describes.
func (d *Dataset) ValidTime() time.Time {
	return d.ReferenceTime.Add(time.Duration(d.ForecastHour) * time.Hour)
}

const schema = `
CREATE TABLE IF NOT EXISTS datasets (
	model          TEXT NOT NULL,
	parameter      TEXT NOT NULL,
	level_type     INTEGER NOT NULL,
	level_value    REAL NOT NULL,
	reference_time INTEGER NOT NULL,
	forecast_hour  INTEGER NOT NULL,
	valid_time     INTEGER NOT NULL,
	storage_key    TEXT NOT NULL,
	grid_meta      TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	size           INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (model, parameter, level_type, level_value, reference_time, forecast_hour)
);
CREATE INDEX IF NOT EXISTS datasets_lookup
	ON datasets (model, parameter, level_type, level_value, status, valid_time);
`

// Catalog wraps the dataset table. Negative lookups are cached briefly:
// a missing layer hammered by a map client would otherwise hit the
// database per tile.
type Catalog struct {
	db *sql.DB

	negMu  sync.Mutex
	negTTL time.Duration
	neg    map[string]time.Time
}

// Open opens (and migrates) the catalog database.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating catalog: %w", err)
	}
	return &Catalog{
		db:     db,
		negTTL: 30 * time.Second,
		neg:    make(map[string]time.Time),
	}, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Insert records a dataset (status pending).
func (c *Catalog) Insert(ctx context.Context, d *Dataset) error {
	meta, err := json.Marshal(d.GridMeta)
	if err != nil {
		return fmt.Errorf("encoding grid meta: %w", err)
	}
	status := d.Status
	if status == "" {
		status = "pending"
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO datasets
		(model, parameter, level_type, level_value, reference_time, forecast_hour,
		 valid_time, storage_key, grid_meta, status, size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Model, d.Parameter, d.LevelType, d.LevelValue,
		d.ReferenceTime.Unix(), d.ForecastHour, d.ValidTime().Unix(),
		d.StorageKey, string(meta), status, d.Size)
	if err != nil {
		return fmt.Errorf("inserting dataset %s: %w", d.ID(), err)
	}
	c.clearNegative()
	return nil
}

// MarkAvailable flips a dataset to available after its object is stored.
func (c *Catalog) MarkAvailable(ctx context.Context, d *Dataset) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE datasets SET status = 'available'
		WHERE model = ? AND parameter = ? AND level_type = ? AND level_value = ?
		  AND reference_time = ? AND forecast_hour = ?`,
		d.Model, d.Parameter, d.LevelType, d.LevelValue,
		d.ReferenceTime.Unix(), d.ForecastHour)
	if err != nil {
		return fmt.Errorf("marking %s available: %w", d.ID(), err)
	}
	c.clearNegative()
	return nil
}

// Expire marks every dataset of a model run expired.
func (c *Catalog) Expire(ctx context.Context, model string, before time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `
		UPDATE datasets SET status = 'expired'
		WHERE model = ? AND reference_time < ? AND status = 'available'`,
		model, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("expiring %s runs: %w", model, err)
	}
	return res.RowsAffected()
}

// Resolve returns the available dataset closest in valid time to at,
// preferring the newest run on ties. ErrNotFound is negative-cached.
func (c *Catalog) Resolve(ctx context.Context, model, parameter string, levelType int, levelValue float64, at time.Time) (*Dataset, error) {
	negKey := fmt.Sprintf("%s/%s/%d/%g/%d", model, parameter, levelType, levelValue, at.Unix())
	if c.isNegative(negKey) {
		return nil, ErrNotFound
	}

	row := c.db.QueryRowContext(ctx, `
		SELECT model, parameter, level_type, level_value, reference_time,
		       forecast_hour, storage_key, grid_meta, status, size
		FROM datasets
		WHERE model = ? AND parameter = ? AND level_type = ? AND level_value = ?
		  AND status = 'available'
		ORDER BY ABS(valid_time - ?) ASC, reference_time DESC
		LIMIT 1`,
		model, parameter, levelType, levelValue, at.Unix())

	var d Dataset
	var refUnix int64
	var meta string
	err := row.Scan(&d.Model, &d.Parameter, &d.LevelType, &d.LevelValue,
		&refUnix, &d.ForecastHour, &d.StorageKey, &meta, &d.Status, &d.Size)
	if errors.Is(err, sql.ErrNoRows) {
		c.setNegative(negKey)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolving %s/%s: %w", model, parameter, err)
	}

	d.ReferenceTime = time.Unix(refUnix, 0).UTC()
	if err := json.Unmarshal([]byte(meta), &d.GridMeta); err != nil {
		return nil, fmt.Errorf("decoding grid meta for %s: %w", d.ID(), err)
	}
	return &d, nil
}

// LatestRun returns the newest available reference time for a model.
func (c *Catalog) LatestRun(ctx context.Context, model string) (time.Time, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT MAX(reference_time) FROM datasets
		WHERE model = ? AND status = 'available'`, model)
	var ref sql.NullInt64
	if err := row.Scan(&ref); err != nil {
		return time.Time{}, fmt.Errorf("latest run for %s: %w", model, err)
	}
	if !ref.Valid {
		return time.Time{}, ErrNotFound
	}
	return time.Unix(ref.Int64, 0).UTC(), nil
}

func (c *Catalog) isNegative(key string) bool {
	c.negMu.Lock()
	defer c.negMu.Unlock()
	until, ok := c.neg[key]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(c.neg, key)
		return false
	}
	return true
}

func (c *Catalog) setNegative(key string) {
	c.negMu.Lock()
	defer c.negMu.Unlock()
	c.neg[key] = time.Now().Add(c.negTTL)
}

func (c *Catalog) clearNegative() {
	c.negMu.Lock()
	defer c.negMu.Unlock()
	clear(c.neg)
}
