package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "sql", cfg.Store.Backend)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "tables.db", cfg.Database.DSN)
	assert.Equal(t, 2*time.Second, cfg.Store.PollInterval)
	assert.Equal(t, 3*time.Second, cfg.Notices.TTL)
	assert.Equal(t, 10, cfg.Seeding.NumTables)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, "tables.changed", cfg.NATS.Subject)
	assert.Equal(t, "artifacts/default-app-id/public/data/tables", cfg.CollectionPath())
}

func TestLoad_ZeroPollIntervalDisablesPolling(t *testing.T) {
	cfg, err := Load(writeConfig(t, "store:\n  poll_interval_seconds: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.Store.PollInterval)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("TABLES_APP_ID", "bistro")
	t.Setenv("TABLES_AUTH_TOKEN", "token-from-env")

	cfg, err := Load(writeConfig(t, "store:\n  app_id: from-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "bistro", cfg.Store.AppID)
	assert.Equal(t, "token-from-env", cfg.Auth.CustomToken)
	assert.Equal(t, "artifacts/bistro/public/data/tables", cfg.CollectionPath())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [not, a, map"))
	assert.Error(t, err)
}
