package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wusb-radio/textpost/pkg/textpost"
	"github.com/wusb-radio/textpost/pkg/textpost/audit/redisaudit"
	"github.com/wusb-radio/textpost/pkg/textpost/repo/memory"
	repopg "github.com/wusb-radio/textpost/pkg/textpost/repo/postgres"
	reposqlite "github.com/wusb-radio/textpost/pkg/textpost/repo/sqlite"
	fsstorage "github.com/wusb-radio/textpost/pkg/textpost/storage/fs"
	memorystorage "github.com/wusb-radio/textpost/pkg/textpost/storage/memory"
	s3storage "github.com/wusb-radio/textpost/pkg/textpost/storage/s3"
)

// Components holds everything BuildService wired together.
type Components struct {
	Service    textpost.Service
	Repository textpost.Repository
	BlobStore  textpost.BlobStore
	AuditSink  textpost.AuditSink

	closers []func() error
}

// Close drains the service and releases connections in reverse build order.
func (c *Components) Close() error {
	var errs []error
	if c.Service != nil {
		errs = append(errs, c.Service.Close())
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	return errors.Join(errs...)
}

func (c *Components) onClose(fn func() error) {
	c.closers = append(c.closers, fn)
}

// BuildService creates the service and its backends from the configuration.
// On error every backend opened so far is closed again.
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	comps := &Components{}

	repo, err := c.buildRepository(ctx, comps)
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	comps.Repository = repo

	store, err := c.buildStorageBackend()
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to build storage backend %s: %w", c.Storage.Type, err)
	}
	comps.BlobStore = store

	sink, err := c.buildAuditSink(logger, comps)
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to build audit sink: %w", err)
	}
	comps.AuditSink = sink

	svc, err := textpost.New(
		textpost.WithRepository(repo),
		textpost.WithBlobStore(store),
		textpost.WithAuditSink(sink),
		textpost.WithLogger(logger),
		textpost.WithAsyncAudit(c.AuditAsync),
		textpost.WithThumbnailSize(c.ThumbnailSize),
	)
	if err != nil {
		comps.Close()
		return nil, err
	}
	comps.Service = svc

	return comps, nil
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context, comps *Components) (textpost.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil

	case "postgres":
		pool, err := c.OpenPostgres(ctx)
		if err != nil {
			return nil, err
		}
		comps.onClose(func() error { pool.Close(); return nil })

		if c.AutoMigrate {
			if err := repopg.Migrate(ctx, pool); err != nil {
				return nil, err
			}
		}
		return repopg.NewWithPool(pool), nil

	case "sqlite":
		db, err := reposqlite.NewDB(c.SQLitePath)
		if err != nil {
			return nil, err
		}
		comps.onClose(db.Close)

		if c.AutoMigrate {
			if err := reposqlite.Migrate(ctx, db); err != nil {
				return nil, err
			}
		}
		return reposqlite.New(db), nil

	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// OpenPostgres opens a pool for DatabaseURL, setting search_path to
// DBSchema on every connection when it is configured.
func (c *ServerConfig) OpenPostgres(ctx context.Context) (*pgxpool.Pool, error) {
	if c.DatabaseURL == "" {
		return nil, errors.New("database_url is required for postgres")
	}
	cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema := c.DBSchema; schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

// buildStorageBackend creates a BlobStore based on the backend configuration
func (c *ServerConfig) buildStorageBackend() (textpost.BlobStore, error) {
	config := c.Storage
	switch config.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   getString(config.Config, "base_dir", "./data/images"),
			URLPrefix: getString(config.Config, "url_prefix", ""),
		})

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 getString(config.Config, "region", "us-east-1"),
			Bucket:                 getString(config.Config, "bucket", ""),
			AccessKeyID:            getString(config.Config, "access_key_id", ""),
			SecretAccessKey:        getString(config.Config, "secret_access_key", ""),
			Endpoint:               getString(config.Config, "endpoint", ""),
			UsePathStyle:           getBool(config.Config, "use_path_style", false),
			PresignDuration:        getInt(config.Config, "presign_duration", 3600),
			PublicBaseURL:          getString(config.Config, "public_base_url", ""),
			CacheControl:           getString(config.Config, "cache_control", ""),
			EnableSSE:              getBool(config.Config, "enable_sse", false),
			SSEAlgorithm:           getString(config.Config, "sse_algorithm", "AES256"),
			SSEKMSKeyID:            getString(config.Config, "sse_kms_key_id", ""),
			CreateBucketIfNotExist: getBool(config.Config, "create_bucket_if_not_exist", false),
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", config.Type)
	}
}

func (c *ServerConfig) buildAuditSink(logger *slog.Logger, comps *Components) (textpost.AuditSink, error) {
	switch c.AuditSink {
	case AuditSinkNoop:
		return textpost.NewNoopAuditSink(), nil
	case AuditSinkLog:
		return textpost.NewLoggingAuditSink(logger), nil
	case AuditSinkRedis:
		sink, err := redisaudit.New(redisaudit.Options{URL: c.RedisURL, Stream: c.AuditStream})
		if err != nil {
			return nil, err
		}
		comps.onClose(sink.Close)
		return sink, nil
	default:
		return nil, fmt.Errorf("unsupported audit sink: %s", c.AuditSink)
	}
}
