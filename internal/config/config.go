package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	Server struct {
		Address            string   `yaml:"address"`
		ReadTimeoutSeconds int      `yaml:"read_timeout_seconds"`
		AllowedOrigins     []string `yaml:"allowed_origins"`
		PingMessage        string   `yaml:"ping_message"`
	} `yaml:"server"`

	Storage StorageConfig `yaml:"storage"`

	Booking struct {
		EnforceOverlap bool `yaml:"enforce_overlap"`
	} `yaml:"booking"`

	Calendars struct {
		Path          string `yaml:"path"`
		ReloadSeconds int    `yaml:"reload_seconds"`
	} `yaml:"calendars"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	RateLimit struct {
		Enabled       bool `yaml:"enabled"`
		Requests      int  `yaml:"requests"`
		WindowSeconds int  `yaml:"window_seconds"`
	} `yaml:"rate_limit"`

	Telegram struct {
		BotToken string  `yaml:"bot_token"`
		ChatIDs  []int64 `yaml:"chat_ids"`
		// DigestHour is the local hour at which tomorrow's bookings are
		// posted; negative disables the digest.
		DigestHour int `yaml:"digest_hour"`
	} `yaml:"telegram"`

	Backup BackupConfig `yaml:"backup"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// StorageConfig selects the booking store at startup.
type StorageConfig struct {
	Backend                 string         `yaml:"backend"`
	Fallback                bool           `yaml:"fallback"`
	RecoveryIntervalSeconds int            `yaml:"recovery_interval_seconds"`
	FilePath                string         `yaml:"file_path"`
	SQLitePath              string         `yaml:"sqlite_path"`
	Postgres                PostgresConfig `yaml:"postgres"`
}

// PostgresConfig configures the hosted Postgres backend.
type PostgresConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Load reads the YAML config at path, after loading a .env file from the
// working directory if one exists.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	if dir := cfg.dataDir(); dir != "" {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ReadTimeoutSeconds <= 0 {
		c.Server.ReadTimeoutSeconds = 10
	}
	if c.Server.PingMessage == "" {
		c.Server.PingMessage = "ping"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendFile
	}
	if c.Storage.FilePath == "" {
		c.Storage.FilePath = "data/bookings.json"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/bookathing.db"
	}
	if c.Calendars.ReloadSeconds <= 0 {
		c.Calendars.ReloadSeconds = 30
	}
	if c.RateLimit.Requests <= 0 {
		c.RateLimit.Requests = 30
	}
	if c.RateLimit.WindowSeconds <= 0 {
		c.RateLimit.WindowSeconds = 60
	}
	if c.Backup.IntervalHours <= 0 {
		c.Backup.IntervalHours = 24
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "data/backups"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendFile, BackendSQLite:
	case BackendPostgres:
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Storage.RecoveryIntervalSeconds < 0 {
		return fmt.Errorf("storage.recovery_interval_seconds cannot be negative")
	}
	if c.Telegram.DigestHour > 23 {
		return fmt.Errorf("telegram.digest_hour must be between 0 and 23")
	}
	if c.Telegram.BotToken != "" && len(c.Telegram.ChatIDs) == 0 {
		return fmt.Errorf("telegram.chat_ids is required when telegram.bot_token is set")
	}
	return nil
}

// dataDir returns the directory the selected local backend writes to.
func (c *Config) dataDir() string {
	switch c.Storage.Backend {
	case BackendFile:
		return filepath.Dir(c.Storage.FilePath)
	case BackendSQLite:
		return filepath.Dir(c.Storage.SQLitePath)
	}
	return ""
}

// DataFile returns the file holding bookings for local backends, or "".
func (c *Config) DataFile() string {
	switch c.Storage.Backend {
	case BackendFile:
		return c.Storage.FilePath
	case BackendSQLite:
		return c.Storage.SQLitePath
	}
	return ""
}

func (c *Config) RecoveryInterval() time.Duration {
	if c.Storage.RecoveryIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Storage.RecoveryIntervalSeconds) * time.Second
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

func (c *Config) CalendarsReloadInterval() time.Duration {
	return time.Duration(c.Calendars.ReloadSeconds) * time.Second
}
