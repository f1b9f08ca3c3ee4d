package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FileWithOverrides(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
  mode: test
engine:
  min_weight: 0.04
  max_weight: 0.25
scheduler:
  drawdown_threshold: 0.2
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "test", cfg.Server.Mode)
	assert.Equal(t, 0.04, cfg.Engine.MinWeight)
	assert.Equal(t, 0.25, cfg.Engine.MaxWeight)
	assert.Equal(t, 0.2, cfg.Scheduler.DrawdownThreshold)
	// Unset fields fall back to defaults.
	assert.Equal(t, DefaultDBHost, cfg.Database.Host)
	assert.Equal(t, DefaultMinSeriesPoints, cfg.Engine.MinSeriesPoints)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	path := writeConfigFile(t, `
engine:
  min_weight: 0.5
  max_weight: 0.3
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FOLIRA_SERVER_PORT", "7070")
	t.Setenv("FOLIRA_DATABASE_HOST", "db.internal")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
}
