package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/okr/internal/core/okr"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load("", dataDir)
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, okr.PolicyLastApplied, cfg.CheckIns.ConflictPolicy)
	assert.Equal(t, 4, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5000, cfg.Database.BusyTimeout)
	assert.Equal(t, 1024, cfg.Progress.CacheSize)
	assert.True(t, cfg.Reminders.Enabled)
	assert.Equal(t, "0 5 0 * * *", cfg.Reminders.Schedule)
	assert.Equal(t, "okr", cfg.Sync.SubjectPrefix)
	assert.Equal(t, DefaultAPIKeyEnv, cfg.AI.APIKeyEnv)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Addr, cfg.Server.Addr)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
checkins:
  conflict_policy: latest_date
database:
  max_open_conns: 8
server:
  addr: ":9000"
  allowed_origins: ["*.example.com"]
  shutdown_timeout: 3s
reminders:
  enabled: false
ai:
  model: gemini-2.5-pro
`)

	cfg, err := Load(path, dir)
	require.NoError(t, err)

	assert.Equal(t, okr.PolicyLatestDate, cfg.CheckIns.ConflictPolicy)
	assert.Equal(t, 8, cfg.Database.MaxOpenConns)
	assert.Equal(t, 2, cfg.Database.MaxIdleConns, "unset fields keep defaults")
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, []string{"*.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Reminders.Enabled)
	assert.Equal(t, "gemini-2.5-pro", cfg.AI.Model)
	assert.Equal(t, dir, cfg.DataDir)
}

func TestLoad_InvalidPolicy(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "checkins:\n  conflict_policy: newest\n")

	_, err := Load(path, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflict_policy")
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "server: [\n")

	_, err := Load(path, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoad_EnvFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "secrets.env", "OKR_TEST_LOAD_KEY=from-file\nOKR_TEST_LOAD_KEEP=from-file\n")
	path := writeFile(t, dir, "config.yaml", "env_files: [secrets.env]\nai:\n  api_key_env: OKR_TEST_LOAD_KEY\n")

	t.Setenv("OKR_TEST_LOAD_KEEP", "from-env")
	t.Setenv("OKR_TEST_LOAD_KEY", "")
	require.NoError(t, os.Unsetenv("OKR_TEST_LOAD_KEY"))

	cfg, err := Load(path, dir)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.APIKey())
	assert.Equal(t, "from-env", os.Getenv("OKR_TEST_LOAD_KEEP"))
}

func TestLoad_MissingEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "env_files: [missing.env]\n")

	_, err := Load(path, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.env")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, "data directory"},
		{"bad policy", func(c *Config) { c.CheckIns.ConflictPolicy = "random" }, "conflict_policy"},
		{"no connections", func(c *Config) { c.Database.MaxOpenConns = 0 }, "max_open_conns"},
		{"negative busy timeout", func(c *Config) { c.Database.BusyTimeout = -1 }, "busy_timeout"},
		{"zero cache", func(c *Config) { c.Progress.CacheSize = 0 }, "cache_size"},
		{"unknown theme", func(c *Config) { c.Display.Theme = "solarized" }, "display.theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DataDir = t.TempDir()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/var/lib/okr"

	assert.Equal(t, "/var/lib/okr", cfg.DatabaseDir())
	assert.Equal(t, "/var/lib/okr/exports", cfg.ExportDir())
}
