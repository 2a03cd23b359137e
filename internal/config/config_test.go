package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
listen = ":9090"

[storage]
backend = "s3"
bucket = "wx-tiles"
region = "us-east-1"
fetch_timeout = "5s"

[catalog]
path = "/var/lib/stratus/catalog.db"

[cache]
tile_entries = 2048
redis_addr = "localhost:6379"
redis_ttl = "10m"
schema_version = 3

[render]
workers = 8
request_timeout = "20s"

[warming]
ready_fraction = 0.5

[[warming.targets]]
layer = "gfs_tmp"
style = "temperature"
min_zoom = 0
max_zoom = 3
bbox = [-20037508.0, -20037508.0, 20037508.0, 20037508.0]

[layers.gfs_tmp]
model = "gfs"
parameter = "TMP"
level_type = 103
level_value = 2
style = "temperature"

[layers.gfs_wind]
model = "gfs"
u_param = "UGRD"
v_param = "VGRD"
level_type = 103
level_value = 10
style = "wind-barbs"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stratus.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, 5*time.Second, cfg.Storage.FetchTimeout.Std())
	assert.Equal(t, 2048, cfg.Cache.TileEntries)
	assert.Equal(t, 3, cfg.Cache.SchemaVersion)
	assert.Equal(t, 10*time.Minute, cfg.Cache.RedisTTL.Std())
	assert.Equal(t, 8, cfg.Render.Workers)
	assert.Equal(t, 0.5, cfg.Warming.Ready)
	require.Len(t, cfg.Warming.Targets, 1)
	assert.Equal(t, "gfs_tmp", cfg.Warming.Targets[0].Layer)

	require.Contains(t, cfg.Layers, "gfs_wind")
	assert.Equal(t, "UGRD", cfg.Layers["gfs_wind"].UParam)
}

func TestDefaultsApply(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[layers.gfs_tmp]
model = "gfs"
parameter = "TMP"
`))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "fs", cfg.Storage.Backend)
	assert.Equal(t, 0.75, cfg.Warming.Ready)
	assert.Equal(t, 1, cfg.Cache.SchemaVersion)
}

func TestValidation(t *testing.T) {
	_, err := Load(writeConfig(t, `
[storage]
backend = "s3"
`))
	assert.Error(t, err, "s3 backend without a bucket must fail")

	_, err = Load(writeConfig(t, `
[layers.broken]
parameter = "TMP"
`))
	assert.Error(t, err, "a layer without a model must fail")

	_, err = Load(writeConfig(t, `
[layers.broken]
model = "gfs"
`))
	assert.Error(t, err, "a layer without parameters must fail")
}
