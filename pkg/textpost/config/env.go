package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// envConfig is read with cleanenv. Empty values leave the current
// configuration untouched.
type envConfig struct {
	Port        string `env:"PORT"`
	Environment string `env:"ENVIRONMENT"`
	LogFormat   string `env:"LOG_FORMAT"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBSchema    string `env:"DB_SCHEMA"`
	AutoMigrate string `env:"AUTO_MIGRATE"`

	StorageURL       string `env:"STORAGE_URL"`
	StorageURLPrefix string `env:"STORAGE_URL_PREFIX"`
	AWSAccessKeyID   string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey     string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion        string `env:"AWS_REGION"`

	AuditSink   string `env:"AUDIT_SINK"`
	RedisURL    string `env:"REDIS_URL"`
	AuditStream string `env:"AUDIT_STREAM"`
	AuditAsync  string `env:"AUDIT_ASYNC"`

	ReconcileSchedule string `env:"RECONCILE_SCHEDULE"`
	ThumbnailSize     string `env:"THUMBNAIL_SIZE"`
}

// WithDotEnv loads the given .env files (".env" when none are named) into
// the process environment. Missing files are ignored; variables already
// set win.
func WithDotEnv(paths ...string) Option {
	return func(c *ServerConfig) error {
		if len(paths) == 0 {
			paths = []string{".env"}
		}
		for _, p := range paths {
			if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("loading %s: %w", p, err)
			}
		}
		return nil
	}
}

// WithEnv applies environment variable overrides.
//
// Server:
//
//	PORT - Server port (default: "8080")
//	ENVIRONMENT - development, production or test (default: "development")
//	LOG_FORMAT - text or json
//
// Database:
//
//	DATABASE_URL - "memory" (default), "postgres://..." or "sqlite:///path/to/textpost.db"
//	DB_SCHEMA - Postgres search_path schema
//	AUTO_MIGRATE - run migrations at startup (default: true)
//
// Storage:
//
//	STORAGE_URL - "memory://" (default), "file:///path/to/images" or
//	              "s3://bucket?region=us-east-1&endpoint=http://localhost:9000&path_style=true"
//	STORAGE_URL_PREFIX - public URL prefix for file storage
//
// Audit:
//
//	AUDIT_SINK - log (default), redis or noop
//	REDIS_URL, AUDIT_STREAM, AUDIT_ASYNC
//	RECONCILE_SCHEDULE - cron spec (default: "@every 5m"); "off" disables it
//	THUMBNAIL_SIZE - longest thumbnail side in pixels; 0 disables thumbnails
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("reading environment: %w", err)
		}

		setString(&c.Port, env.Port)
		setString(&c.Environment, env.Environment)
		setString(&c.LogFormat, env.LogFormat)
		setString(&c.DBSchema, env.DBSchema)

		if err := applyDatabaseURL(env.DatabaseURL, c); err != nil {
			return err
		}
		if err := setBool(&c.AutoMigrate, "AUTO_MIGRATE", env.AutoMigrate); err != nil {
			return err
		}

		if err := applyStorageURL(env, c); err != nil {
			return err
		}

		setString(&c.AuditSink, env.AuditSink)
		setString(&c.RedisURL, env.RedisURL)
		setString(&c.AuditStream, env.AuditStream)
		if err := setBool(&c.AuditAsync, "AUDIT_ASYNC", env.AuditAsync); err != nil {
			return err
		}

		switch env.ReconcileSchedule {
		case "":
		case "off":
			c.ReconcileSchedule = ""
		default:
			c.ReconcileSchedule = env.ReconcileSchedule
		}
		if env.ThumbnailSize != "" {
			size, err := strconv.ParseUint(env.ThumbnailSize, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid integer for THUMBNAIL_SIZE: %w", err)
			}
			c.ThumbnailSize = uint(size)
		}

		return nil
	}
}

// applyDatabaseURL picks the repository from DATABASE_URL
func applyDatabaseURL(dbURL string, c *ServerConfig) error {
	switch {
	case dbURL == "":
		return nil
	case dbURL == "memory":
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
	case strings.HasPrefix(dbURL, "sqlite://"):
		path := strings.TrimPrefix(dbURL, "sqlite://")
		if path == "" {
			return fmt.Errorf("sqlite path cannot be empty in DATABASE_URL")
		}
		c.DatabaseType = "sqlite"
		c.SQLitePath = path
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory', 'postgres://...' or 'sqlite://...')", dbURL)
	}
	return nil
}

// applyStorageURL picks the image store from STORAGE_URL
func applyStorageURL(env envConfig, c *ServerConfig) error {
	raw := env.StorageURL
	switch {
	case raw == "":
		return nil
	case raw == "memory" || raw == "memory://":
		c.Storage = StorageBackendConfig{Type: "memory", Config: map[string]interface{}{}}
		return nil
	case strings.HasPrefix(raw, "file://"):
		path := strings.TrimPrefix(raw, "file://")
		if path == "" {
			return fmt.Errorf("filesystem path cannot be empty in STORAGE_URL")
		}
		cfg := map[string]interface{}{"base_dir": path}
		if env.StorageURLPrefix != "" {
			cfg["url_prefix"] = env.StorageURLPrefix
		}
		c.Storage = StorageBackendConfig{Type: "fs", Config: cfg}
		return nil
	case strings.HasPrefix(raw, "s3://"):
		return applyS3Storage(raw, env, c)
	}
	return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", raw)
}

// applyS3Storage configures S3 storage from URL
// Format: s3://bucket?region=us-east-1&endpoint=http://localhost:9000&path_style=true&public_url=https://cdn.example.com
func applyS3Storage(raw string, env envConfig, c *ServerConfig) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
	}

	q := u.Query()
	cfg := map[string]interface{}{
		"bucket": u.Host,
		"region": "us-east-1",
	}
	if v := q.Get("region"); v != "" {
		cfg["region"] = v
	}
	if env.AWSRegion != "" && q.Get("region") == "" {
		cfg["region"] = env.AWSRegion
	}
	if v := q.Get("endpoint"); v != "" {
		cfg["endpoint"] = v
	}
	if v := q.Get("path_style"); v != "" {
		cfg["use_path_style"] = v
	}
	if v := q.Get("public_url"); v != "" {
		cfg["public_base_url"] = v
	}
	if v := q.Get("create_bucket"); v != "" {
		cfg["create_bucket_if_not_exist"] = v
	}
	if env.AWSAccessKeyID != "" {
		cfg["access_key_id"] = env.AWSAccessKeyID
	}
	if env.AWSSecretKey != "" {
		cfg["secret_access_key"] = env.AWSSecretKey
	}

	c.Storage = StorageBackendConfig{Type: "s3", Config: cfg}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key, raw string) error {
	if raw == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("invalid boolean for %s: %w", key, err)
	}
	*dst = parsed
	return nil
}
