package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atforche/financial-tracker/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	// GIVEN: No config file in the working directory
	chdir(t, t.TempDir())

	// WHEN: Loading
	cfg, err := config.Load("")

	// THEN: Embedded defaults apply
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "./data/ledger.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "USD", cfg.Display.Currency)
	assert.Contains(t, cfg.CORS.AllowedOrigins, "http://localhost:3000")
	assert.Equal(t, ":8080", cfg.Addr())
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, 15, cfg.Scheduler.GraceDays)
	assert.False(t, cfg.Demo.Scenarios)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	// GIVEN: A config file setting a subset of keys
	path := writeConfig(t, "server:\n  port: 9000\ndisplay:\n  currency: eur\n")

	// WHEN: Loading it
	cfg, err := config.Load(path)

	// THEN: File keys win, the rest keep their defaults
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "EUR", cfg.Display.Currency)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("LEDGER_SERVER_PORT", "9100")
	t.Setenv("LEDGER_DATABASE_PATH", ":memory:")

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, ":memory:", cfg.Database.Path)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidPort(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 70000\n")

	_, err := config.Load(path)

	assert.ErrorContains(t, err, "server.port")
}

func TestLoad_Scheduler(t *testing.T) {
	// GIVEN: The scheduler enabled from the environment
	path := writeConfig(t, "scheduler:\n  interval: 30m\n")
	t.Setenv("LEDGER_SCHEDULER_ENABLED", "true")
	t.Setenv("LEDGER_SCHEDULER_GRACE_DAYS", "5")

	// WHEN: Loading
	cfg, err := config.Load(path)

	// THEN: Durations are parsed and env values applied
	require.NoError(t, err)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 5, cfg.Scheduler.GraceDays)
}

func TestLoad_InvalidSchedulerInterval(t *testing.T) {
	path := writeConfig(t, "scheduler:\n  enabled: true\n  interval: 0s\n")

	_, err := config.Load(path)

	assert.ErrorContains(t, err, "scheduler.interval")
}
