// Package config handles configuration loading and validation for okr.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/core/styles"
)

// DefaultAPIKeyEnv is the environment variable holding the AI provider key
// unless ai.api_key_env says otherwise.
const DefaultAPIKeyEnv = "OKR_AI_API_KEY"

// Config holds the application configuration.
type Config struct {
	CheckIns  CheckInConfig   `yaml:"checkins"`
	Database  DatabaseConfig  `yaml:"database"`
	Progress  ProgressConfig  `yaml:"progress"`
	Server    ServerConfig    `yaml:"server"`
	Sync      SyncConfig      `yaml:"sync"`
	Reminders RemindersConfig `yaml:"reminders"`
	AI        AIConfig        `yaml:"ai"`
	Display   DisplayConfig   `yaml:"display"`
	EnvFiles  []string        `yaml:"env_files"`
	DataDir   string          `yaml:"-"` // set by caller, not from config file
}

// CheckInConfig controls how concurrent check-ins update a key result.
type CheckInConfig struct {
	ConflictPolicy okr.ConflictPolicy `yaml:"conflict_policy"`
}

// DatabaseConfig holds SQLite connection settings.
type DatabaseConfig struct {
	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
	BusyTimeout  int `yaml:"busy_timeout"` // milliseconds
}

// ProgressConfig tunes the progress memo.
type ProgressConfig struct {
	CacheSize int `yaml:"cache_size"`
}

// ServerConfig holds settings for `okr serve`.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"` // glob patterns matched against the Origin host
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	WatchConfig     bool          `yaml:"watch_config"`
}

// SyncConfig configures the optional NATS fan-out of bus events.
type SyncConfig struct {
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// RemindersConfig configures the missed-period reminder job.
type RemindersConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // cron expression with a seconds field
}

// AIConfig configures the assistant backend.
type AIConfig struct {
	Model     string        `yaml:"model"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout"`
}

// DisplayConfig holds terminal output settings.
type DisplayConfig struct {
	Theme string `yaml:"theme"` // one of styles.ThemeNames()
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CheckIns: CheckInConfig{
			ConflictPolicy: okr.PolicyLastApplied,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 4,
			MaxIdleConns: 2,
			BusyTimeout:  5000,
		},
		Progress: ProgressConfig{
			CacheSize: 1024,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:7410",
			ShutdownTimeout: 10 * time.Second,
			WatchConfig:     true,
		},
		Sync: SyncConfig{
			SubjectPrefix: "okr",
		},
		Reminders: RemindersConfig{
			Enabled:  true,
			Schedule: "0 5 0 * * *",
		},
		AI: AIConfig{
			Model:     "gemini-2.5-flash",
			APIKeyEnv: DefaultAPIKeyEnv,
			Timeout:   60 * time.Second,
		},
		Display: DisplayConfig{
			Theme: styles.DefaultTheme,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
// Env files listed in the config are loaded into the process environment
// without overriding variables that are already set.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := loadEnvFiles(filepath.Dir(configPath), cfg.EnvFiles); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.CheckIns.ConflictPolicy == "" {
		c.CheckIns.ConflictPolicy = defaults.CheckIns.ConflictPolicy
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}
	if c.Progress.CacheSize == 0 {
		c.Progress.CacheSize = defaults.Progress.CacheSize
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}
	if c.Sync.SubjectPrefix == "" {
		c.Sync.SubjectPrefix = defaults.Sync.SubjectPrefix
	}
	if c.Reminders.Schedule == "" {
		c.Reminders.Schedule = defaults.Reminders.Schedule
	}
	if c.AI.Model == "" {
		c.AI.Model = defaults.AI.Model
	}
	if c.AI.APIKeyEnv == "" {
		c.AI.APIKeyEnv = defaults.AI.APIKeyEnv
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = defaults.AI.Timeout
	}
	if c.Display.Theme == "" {
		c.Display.Theme = defaults.Display.Theme
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if !c.CheckIns.ConflictPolicy.IsValid() {
		return fmt.Errorf("checkins.conflict_policy %q must be one of %q, %q",
			c.CheckIns.ConflictPolicy, okr.PolicyLastApplied, okr.PolicyLatestDate)
	}

	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout cannot be negative")
	}

	if c.Progress.CacheSize < 1 {
		return fmt.Errorf("progress.cache_size must be at least 1")
	}

	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout cannot be negative")
	}

	if c.AI.Timeout < 0 {
		return fmt.Errorf("ai.timeout cannot be negative")
	}

	if _, ok := styles.GetPalette(c.Display.Theme); !ok {
		return fmt.Errorf("display.theme %q must be one of %v", c.Display.Theme, styles.ThemeNames())
	}

	return nil
}

// DatabaseDir returns the directory holding the SQLite database.
func (c *Config) DatabaseDir() string {
	return c.DataDir
}

// ExportDir returns the default output directory for spreadsheet exports.
func (c *Config) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// APIKey returns the AI provider key from the configured environment variable.
func (c *Config) APIKey() string {
	return os.Getenv(c.AI.APIKeyEnv)
}
