package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the top-level application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Library  LibraryConfig  `koanf:"library"`
	Rollup   RollupConfig   `koanf:"rollup"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Mode string `koanf:"mode"` // "debug" or "release"
}

// DatabaseConfig holds the database connection settings.
type DatabaseConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// LibraryConfig locates the on-disk audio payloads.
type LibraryConfig struct {
	// Path is the directory holding one or more payload files per
	// sound, named <filename>.<ext>.
	Path string `koanf:"path"`

	// SeedFile optionally points at a YAML catalog used to bootstrap an
	// empty database from payloads already present in Path.
	SeedFile string `koanf:"seed_file"`

	// MaxUploadMB caps a single registration request body.
	MaxUploadMB int `koanf:"max_upload_mb"`
}

// RollupConfig controls scheduled persistence and catalog notifications.
// Durations stay strings here; Validate proves they parse.
type RollupConfig struct {
	SaveInterval   string `koanf:"save_interval"`
	NotifyDebounce string `koanf:"notify_debounce"`
}

// MetricsConfig gates the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// SaveEvery returns the parsed persistence interval.
// Only meaningful after Validate has accepted the config.
func (c RollupConfig) SaveEvery() time.Duration {
	d, err := time.ParseDuration(c.SaveInterval)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// DebounceFor returns the parsed catalog notification debounce.
func (c RollupConfig) DebounceFor() time.Duration {
	d, err := time.ParseDuration(c.NotifyDebounce)
	if err != nil || d < 0 {
		return 500 * time.Millisecond
	}
	return d
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("database.max_idle_conns must be > 0")
	}

	if strings.TrimSpace(c.Library.Path) == "" {
		return fmt.Errorf("library.path is required")
	}
	if c.Library.MaxUploadMB <= 0 {
		return fmt.Errorf("library.max_upload_mb must be > 0")
	}

	interval, err := time.ParseDuration(c.Rollup.SaveInterval)
	if err != nil {
		return fmt.Errorf("invalid rollup.save_interval %q: %w", c.Rollup.SaveInterval, err)
	}
	if interval <= 0 {
		return fmt.Errorf("rollup.save_interval must be > 0")
	}

	debounce, err := time.ParseDuration(c.Rollup.NotifyDebounce)
	if err != nil {
		return fmt.Errorf("invalid rollup.notify_debounce %q: %w", c.Rollup.NotifyDebounce, err)
	}
	if debounce < 0 {
		return fmt.Errorf("rollup.notify_debounce must be >= 0")
	}

	return nil
}

// Load parses config from defaults, an optional YAML file and
// MEGUMIN_-prefixed environment variables, then validates the result.
// MEGUMIN_SERVER__PORT=9090 overrides server.port.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":             8080,
		"server.host":             "0.0.0.0",
		"server.mode":             "release",
		"database.dsn":            "",
		"database.max_open_conns": 25,
		"database.max_idle_conns": 25,
		"database.auto_migrate":   true,
		"library.path":            "./sounds",
		"library.seed_file":       "",
		"library.max_upload_mb":   8,
		"rollup.save_interval":    "10m",
		"rollup.notify_debounce":  "500ms",
		"metrics.enabled":         false,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("MEGUMIN_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "MEGUMIN_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
