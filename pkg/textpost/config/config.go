package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/robfig/cron/v3"
)

// Environment names. Anything else is rejected at load time.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Audit sink kinds.
const (
	AuditSinkLog   = "log"
	AuditSinkRedis = "redis"
	AuditSinkNoop  = "noop"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  EnvDevelopment,
		DatabaseType: "memory",
		AutoMigrate:  true,
		Storage: StorageBackendConfig{
			Type:   "memory",
			Config: map[string]interface{}{},
		},
		AuditSink:         AuditSinkLog,
		AuditStream:       "textpost:audit",
		ReconcileSchedule: "@every 5m",
		ThumbnailSize:     256,
	}
}

// ServerConfig represents server configuration for the text post service
type ServerConfig struct {
	Port        string
	Environment string // development, production, test
	LogFormat   string // "text" or "json"; empty picks by environment

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres", "sqlite"
	DBSchema     string // Postgres schema to use (default: search_path of the role)
	SQLitePath   string
	AutoMigrate  bool

	// Image storage configuration
	Storage StorageBackendConfig

	// Audit configuration
	AuditSink   string // "log", "redis", "noop"
	RedisURL    string
	AuditStream string
	AuditAsync  bool

	// ReconcileSchedule is a cron spec for the silent edit reconciler.
	// Empty disables it.
	ReconcileSchedule string

	// ThumbnailSize is the longest side of image thumbnails; zero disables them.
	ThumbnailSize uint
}

// StorageBackendConfig represents configuration for the image storage backend
type StorageBackendConfig struct {
	Type   string // "memory", "fs", "s3"
	Config map[string]interface{}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("environment must be one of development, production, test; got %q", c.Environment)
	}

	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("log format must be 'text' or 'json', got %q", c.LogFormat)
	}

	switch c.DatabaseType {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("database_url is required when using postgres")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("sqlite path is required when using sqlite")
		}
	default:
		return errors.New("database_type must be 'memory', 'postgres' or 'sqlite'")
	}

	switch c.Storage.Type {
	case "memory":
	case "fs":
		if getString(c.Storage.Config, "base_dir", "") == "" {
			return errors.New("filesystem storage requires base_dir")
		}
	case "s3":
		if getString(c.Storage.Config, "bucket", "") == "" {
			return errors.New("s3 storage requires a bucket")
		}
	default:
		return fmt.Errorf("unsupported storage backend type: %s", c.Storage.Type)
	}

	switch c.AuditSink {
	case AuditSinkLog, AuditSinkNoop:
	case AuditSinkRedis:
		if c.RedisURL == "" {
			return errors.New("redis_url is required when using the redis audit sink")
		}
	default:
		return fmt.Errorf("audit sink must be 'log', 'redis' or 'noop', got %q", c.AuditSink)
	}

	if c.ReconcileSchedule != "" {
		if _, err := cron.ParseStandard(c.ReconcileSchedule); err != nil {
			return fmt.Errorf("invalid reconcile schedule %q: %w", c.ReconcileSchedule, err)
		}
	}

	return nil
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *ServerConfig) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// NewLogger returns a slog logger writing to w. Development defaults to
// text output, everything else to JSON.
func (c *ServerConfig) NewLogger(w io.Writer) *slog.Logger {
	format := c.LogFormat
	if format == "" {
		format = "json"
		if c.IsDevelopment() {
			format = "text"
		}
	}

	level := slog.LevelInfo
	if c.IsDevelopment() {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				return b
			}
		}
	}
	return defaultValue
}

func getInt(config map[string]interface{}, key string, defaultValue int) int {
	if value, exists := config[key]; exists {
		if i, ok := value.(int); ok {
			return i
		}
		if str, ok := value.(string); ok {
			if i, err := strconv.Atoi(str); err == nil {
				return i
			}
		}
		if f, ok := value.(float64); ok {
			return int(f)
		}
	}
	return defaultValue
}
