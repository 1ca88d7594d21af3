package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://www.arcgis.com", cfg.GIS.PortalURL)
	assert.InDelta(t, 10.0, cfg.GIS.RateLimitRPS, 0.001)
	assert.Equal(t, 4, cfg.GIS.Retry.MaxAttempts)
	assert.InDelta(t, 1.0, cfg.GIS.Retry.InitialBackoffSecs, 0.001)
	assert.InDelta(t, 2.0, cfg.GIS.Retry.Multiplier, 0.001)
	assert.True(t, cfg.GIS.Breaker.Enabled)
	assert.Equal(t, 5, cfg.GIS.Breaker.FailureThreshold)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "geocode-cache.db", cfg.Cache.Path)
	assert.Equal(t, 720, cfg.Cache.TTLHours)
	assert.Equal(t, []float64{5, 10, 15}, cfg.Solve.Breaks)
	assert.Equal(t, "from-facility", cfg.Solve.Direction)
	assert.Equal(t, 4, cfg.Solve.GeocodeConcurrency)
	assert.Equal(t, 1500, cfg.Render.FrameIntervalMS)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "out", cfg.Server.ArtifactDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
gis:
  portal_url: https://gis.example.com/portal
  username: alice
  rate_limit_rps: 2
solve:
  breaks: [10, 20, 30]
  travel_mode: Walking Time
render:
  colors:
    "10": "0,128,0,0.35"
    "20": "255,191,0,0.35"
    "30": "255,0,0,0.35"
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://gis.example.com/portal", cfg.GIS.PortalURL)
	assert.Equal(t, "alice", cfg.GIS.Username)
	assert.InDelta(t, 2.0, cfg.GIS.RateLimitRPS, 0.001)
	assert.Equal(t, []float64{10, 20, 30}, cfg.Solve.Breaks)
	assert.Equal(t, "Walking Time", cfg.Solve.TravelMode)
	assert.Equal(t, "0,128,0,0.35", cfg.Render.Colors["10"])
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
gis:
  username: alice
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("DRIVETIME_GIS_USERNAME", "bob")
	t.Setenv("DRIVETIME_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "bob", cfg.GIS.Username)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("DRIVETIME_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
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

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.GIS.PortalURL = "https://www.arcgis.com"
	cfg.GIS.Retry.MaxAttempts = 4
	cfg.Solve.Breaks = []float64{5, 10, 15}
	cfg.Solve.GeocodeConcurrency = 4
	cfg.Server.Port = 8080
	cfg.Server.ArtifactDir = "out"
	return cfg
}

func TestValidateSolve_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("solve"))
}

func TestValidateSolve_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.GIS.PortalURL = ""
	cfg.Solve.Breaks = nil

	err := cfg.Validate("solve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "gis.portal_url is required")
	assert.Contains(t, err.Error(), "solve.breaks must name at least one break")
}

func TestValidateSolve_NegativeBreak(t *testing.T) {
	cfg := validDefaults()
	cfg.Solve.Breaks = []float64{5, -10}

	err := cfg.Validate("solve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "solve.breaks values must be > 0")
}

func TestValidateSolve_ConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Solve.GeocodeConcurrency = 0
	err := cfg.Validate("solve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "geocode_concurrency must be between 1 and 32")

	cfg.Solve.GeocodeConcurrency = 33
	err = cfg.Validate("solve")
	assert.Error(t, err)

	cfg.Solve.GeocodeConcurrency = 32
	assert.NoError(t, cfg.Validate("solve"))
}

func TestValidateServe_ValidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 9090

	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
