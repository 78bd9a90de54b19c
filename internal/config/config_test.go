package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/volcanoes.csv", cfg.Catalog.Path)
	assert.InDelta(t, 50.0, cfg.Match.InitialRadiusKM, 0.001)
	assert.InDelta(t, 5.0, cfg.Match.FloorRadiusKM, 0.001)
	assert.InDelta(t, 1.0, cfg.Match.StepKM, 0.001)
	assert.Equal(t, 8, cfg.Match.Concurrency)
	assert.Equal(t, 4, cfg.Summarize.Concurrency)
	assert.Equal(t, "cache", cfg.Cache.Dir)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "petro.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
catalog:
  path: /data/gvp.shp
match:
  initial_radius_km: 30
  concurrency: 16
store:
  driver: postgres
  database_url: postgres://localhost/petro
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/gvp.shp", cfg.Catalog.Path)
	assert.InDelta(t, 30.0, cfg.Match.InitialRadiusKM, 0.001)
	assert.Equal(t, 16, cfg.Match.Concurrency)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.InDelta(t, 5.0, cfg.Match.FloorRadiusKM, 0.001)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("PETRO_STORE_DRIVER", "postgres")
	t.Setenv("PETRO_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("PETRO_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Catalog.Path = "data/volcanoes.csv"
	cfg.Match.InitialRadiusKM = 50
	cfg.Match.FloorRadiusKM = 5
	cfg.Match.StepKM = 1
	cfg.Match.Concurrency = 8
	cfg.Summarize.Concurrency = 4
	cfg.Store.DatabaseURL = "petro.db"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateIngest(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("ingest"))

	cfg.Catalog.Path = ""
	err := cfg.Validate("ingest")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.path is required")
}

func TestValidateMatchBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Match.FloorRadiusKM = 60
	err := cfg.Validate("ingest")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "floor_radius_km")

	cfg.Match.FloorRadiusKM = 5
	cfg.Match.StepKM = 0
	err = cfg.Validate("ingest")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "radii must be > 0")

	cfg.Match.StepKM = 1
	cfg.Match.Concurrency = 0
	err = cfg.Validate("ingest")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency must be between 1 and 64")
}

func TestValidateServe(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	cfg.Server.Port = 8080
	cfg.Store.DatabaseURL = ""
	err = cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
