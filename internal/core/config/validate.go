package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"
	"github.com/robfig/cron/v3"
)

// ScheduleParser parses reminder schedules. The seconds field is required.
var ScheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration including
// cron schedules, origin patterns, and file accessibility. The configPath argument
// specifies the config file location to validate (empty string skips config file check).
// This calls Validate() first for basic structural validation, then adds I/O checks.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateEnvFiles(configPath),
		c.validateServer(),
		c.validateReminders(),
		criterio.Run("sync.nats_url", c.Sync.NATSURL, natsURL),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.APIKey() == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "AI",
			Item:     c.AI.APIKeyEnv,
			Message:  "environment variable is not set; `okr ai` commands will fail",
		})
	}

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		warnings = append(warnings, ValidationWarning{
			Category: "Database",
			Item:     "max_idle_conns",
			Message:  "exceeds max_open_conns and will be capped",
		})
	}

	return warnings
}

// validateFileAccess checks the config file and data directory.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func (c *Config) validateEnvFiles(configPath string) error {
	if len(c.EnvFiles) == 0 {
		return nil
	}

	configDir := filepath.Dir(configPath)
	var errs criterio.FieldErrorsBuilder

	for i, file := range c.EnvFiles {
		if _, err := os.Stat(resolvePath(configDir, file)); err != nil {
			errs = errs.Append(fmt.Sprintf("env_files[%d]", i), fmt.Errorf("file not found: %s", file))
			continue
		}
		if _, err := readEnvFiles(configDir, []string{file}); err != nil {
			errs = errs.Append(fmt.Sprintf("env_files[%d]", i), err)
		}
	}

	return errs.ToError()
}

// validateServer checks origin glob patterns.
func (c *Config) validateServer() error {
	var errs criterio.FieldErrorsBuilder
	for i, pattern := range c.Server.AllowedOrigins {
		if pattern == "" || !doublestar.ValidatePattern(pattern) {
			errs = errs.Append(fmt.Sprintf("server.allowed_origins[%d]", i), fmt.Errorf("invalid glob pattern %q", pattern))
		}
	}
	return errs.ToError()
}

func (c *Config) validateReminders() error {
	if !c.Reminders.Enabled {
		return nil
	}
	return criterio.Run("reminders.schedule", c.Reminders.Schedule, func(expr string) error {
		if _, err := ScheduleParser.Parse(expr); err != nil {
			return fmt.Errorf("invalid cron schedule %q: %w", expr, err)
		}
		return nil
	})
}

func natsURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	switch u.Scheme {
	case "nats", "tls", "ws", "wss":
		return nil
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}
