package config

import (
	"fmt"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, test)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithLogFormat sets the log output format ("text" or "json")
func WithLogFormat(format string) Option {
	return func(c *ServerConfig) error {
		c.LogFormat = format
		return nil
	}
}

// WithDatabase configures the database backend. For sqlite the url is the
// database file path.
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		switch dbType {
		case "memory":
			c.DatabaseURL = ""
		case "postgres":
			if url == "" {
				return fmt.Errorf("database URL is required for postgres")
			}
			c.DatabaseURL = url
		case "sqlite":
			if url == "" {
				return fmt.Errorf("database path is required for sqlite")
			}
			c.SQLitePath = url
		default:
			return fmt.Errorf("database type must be 'memory', 'postgres' or 'sqlite', got: %s", dbType)
		}
		c.DatabaseType = dbType
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithAutoMigrate controls whether migrations run when the service is built
func WithAutoMigrate(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.AutoMigrate = enabled
		return nil
	}
}

// WithMemoryStorage stores images in memory
func WithMemoryStorage() Option {
	return func(c *ServerConfig) error {
		c.Storage = StorageBackendConfig{Type: "memory", Config: map[string]interface{}{}}
		return nil
	}
}

// WithFilesystemStorage stores images under baseDir. urlPrefix is the
// public URL the directory is served from.
func WithFilesystemStorage(baseDir, urlPrefix string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		cfg := map[string]interface{}{"base_dir": baseDir}
		if urlPrefix != "" {
			cfg["url_prefix"] = urlPrefix
		}
		c.Storage = StorageBackendConfig{Type: "fs", Config: cfg}
		return nil
	}
}

// WithS3Storage stores images in an S3 bucket
func WithS3Storage(bucket, region string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		if region == "" {
			region = "us-east-1"
		}
		c.Storage = StorageBackendConfig{
			Type: "s3",
			Config: map[string]interface{}{
				"bucket": bucket,
				"region": region,
			},
		}
		return nil
	}
}

// WithS3Credentials sets static S3 credentials
func WithS3Credentials(accessKeyID, secretAccessKey string) Option {
	return s3Option(func(cfg map[string]interface{}) {
		cfg["access_key_id"] = accessKeyID
		cfg["secret_access_key"] = secretAccessKey
	})
}

// WithS3Endpoint points the S3 client at an S3-compatible service such as MinIO
func WithS3Endpoint(endpoint string, usePathStyle bool) Option {
	return s3Option(func(cfg map[string]interface{}) {
		cfg["endpoint"] = endpoint
		cfg["use_path_style"] = usePathStyle
	})
}

// WithS3PublicURL serves images from a public base URL instead of presigned URLs
func WithS3PublicURL(baseURL string) Option {
	return s3Option(func(cfg map[string]interface{}) {
		cfg["public_base_url"] = baseURL
	})
}

// WithS3PresignDuration sets presigned URL lifetime in seconds
func WithS3PresignDuration(durationSeconds int) Option {
	return s3Option(func(cfg map[string]interface{}) {
		cfg["presign_duration"] = durationSeconds
	})
}

func s3Option(apply func(map[string]interface{})) Option {
	return func(c *ServerConfig) error {
		if c.Storage.Type != "s3" {
			return fmt.Errorf("S3 storage must be configured first (use WithS3Storage)")
		}
		if c.Storage.Config == nil {
			c.Storage.Config = map[string]interface{}{}
		}
		apply(c.Storage.Config)
		return nil
	}
}

// WithAuditSink selects the audit sink ("log", "redis", "noop")
func WithAuditSink(kind string) Option {
	return func(c *ServerConfig) error {
		c.AuditSink = kind
		return nil
	}
}

// WithRedisAudit sends audit records to a Redis stream
func WithRedisAudit(redisURL, stream string) Option {
	return func(c *ServerConfig) error {
		if redisURL == "" {
			return fmt.Errorf("redis URL cannot be empty")
		}
		c.AuditSink = AuditSinkRedis
		c.RedisURL = redisURL
		if stream != "" {
			c.AuditStream = stream
		}
		return nil
	}
}

// WithAsyncAudit delivers audit records off the request path
func WithAsyncAudit(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.AuditAsync = enabled
		return nil
	}
}

// WithReconcileSchedule sets the cron spec of the silent edit reconciler.
// An empty spec disables it.
func WithReconcileSchedule(spec string) Option {
	return func(c *ServerConfig) error {
		c.ReconcileSchedule = spec
		return nil
	}
}

// WithThumbnailSize sets the longest side of generated thumbnails
func WithThumbnailSize(size uint) Option {
	return func(c *ServerConfig) error {
		c.ThumbnailSize = size
		return nil
	}
}

// WithDefaults applies sensible defaults for development
func WithDefaults() Option {
	return func(c *ServerConfig) error {
		*c = defaults()
		return nil
	}
}
