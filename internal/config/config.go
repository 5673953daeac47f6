package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Timer     TimerConfig     `yaml:"timer"`
	Content   ContentConfig   `yaml:"content"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// TimerConfig controls the countdown tick and how long a completion
// side effect may take before it is abandoned.
type TimerConfig struct {
	TickInterval  time.Duration `yaml:"tick_interval"`
	EffectTimeout time.Duration `yaml:"effect_timeout"`
}

type ContentConfig struct {
	SeedOnStart bool   `yaml:"seed_on_start"`
	SeedFile    string `yaml:"seed_file"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DSN returns the connection string for database/sql.
// For sqlite it is the file path, for postgres a postgres:// URL.
func (d DatabaseConfig) DSN() string {
	if d.Driver == DriverPostgres {
		sslmode := d.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			url.PathEscape(d.User), url.PathEscape(d.Password), d.Host, d.Port, d.Name, sslmode)
	}
	return d.Path
}

// MigrateURL returns the golang-migrate database URL for the configured driver.
func (d DatabaseConfig) MigrateURL() string {
	if d.Driver == DriverPostgres {
		return "pgx5://" + strings.TrimPrefix(d.DSN(), "postgres://")
	}
	return "sqlite://" + d.Path
}

// SlogLevel maps the configured level name to a slog.Level. Unknown names
// fall back to info.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix SPINECARE_ and underscore-separated paths:
//
//	SPINECARE_SERVER_HOST, SPINECARE_SERVER_PORT,
//	SPINECARE_DB_DRIVER, SPINECARE_DB_PATH, SPINECARE_DB_HOST, SPINECARE_DB_PORT,
//	SPINECARE_DB_NAME, SPINECARE_DB_USER, SPINECARE_DB_PASSWORD, SPINECARE_DB_SSLMODE,
//	SPINECARE_AUTH_API_KEY, SPINECARE_TIMER_TICK_INTERVAL, SPINECARE_TIMER_EFFECT_TIMEOUT,
//	SPINECARE_CONTENT_SEED_ON_START, SPINECARE_CONTENT_SEED_FILE,
//	SPINECARE_TAILSCALE_ENABLED, SPINECARE_LOG_LEVEL, SPINECARE_METRICS_ENABLED
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
	}
	if cfg.Database.Driver == DriverSQLite && cfg.Database.Path == "" {
		cfg.Database.Path = "spinecare.db"
	}
	if cfg.Timer.TickInterval == 0 {
		cfg.Timer.TickInterval = time.Second
	}
	if cfg.Timer.EffectTimeout == 0 {
		cfg.Timer.EffectTimeout = 5 * time.Second
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "spinecare"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SPINECARE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SPINECARE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SPINECARE_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("SPINECARE_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SPINECARE_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("SPINECARE_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("SPINECARE_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("SPINECARE_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("SPINECARE_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("SPINECARE_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("SPINECARE_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("SPINECARE_TIMER_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timer.TickInterval = d
		}
	}
	if v := os.Getenv("SPINECARE_TIMER_EFFECT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timer.EffectTimeout = d
		}
	}
	if v := os.Getenv("SPINECARE_CONTENT_SEED_ON_START"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Content.SeedOnStart = b
		}
	}
	if v := os.Getenv("SPINECARE_CONTENT_SEED_FILE"); v != "" {
		cfg.Content.SeedFile = v
	}
	if v := os.Getenv("SPINECARE_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("SPINECARE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SPINECARE_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Timer.TickInterval < 0 {
		return fmt.Errorf("timer.tick_interval must be positive")
	}
	if c.Timer.EffectTimeout < 0 {
		return fmt.Errorf("timer.effect_timeout must be positive")
	}
	return nil
}
