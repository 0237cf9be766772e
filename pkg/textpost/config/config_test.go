package config

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wusb-radio/textpost/pkg/textpost"
	"github.com/wusb-radio/textpost/pkg/textpost/repo/memory"
	reposqlite "github.com/wusb-radio/textpost/pkg/textpost/repo/sqlite"
	fsstorage "github.com/wusb-radio/textpost/pkg/textpost/storage/fs"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, "memory", cfg.DatabaseType)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, AuditSinkLog, cfg.AuditSink)
	assert.Equal(t, "@every 5m", cfg.ReconcileSchedule)
	assert.Equal(t, uint(256), cfg.ThumbnailSize)
	assert.True(t, cfg.AutoMigrate)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Options(t *testing.T) {
	cfg, err := Load(
		WithPort("9000"),
		WithEnvironment(EnvTest),
		WithDatabase("sqlite", "/tmp/textpost.db"),
		WithS3Storage("images", ""),
		WithS3Credentials("key", "secret"),
		WithS3Endpoint("http://localhost:9000", true),
		WithS3PublicURL("https://cdn.wusb.fm"),
		WithS3PresignDuration(600),
		WithRedisAudit("redis://localhost:6379", "wusb:audit"),
		WithAsyncAudit(true),
		WithReconcileSchedule(""),
		WithThumbnailSize(0),
	)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DatabaseType)
	assert.Equal(t, "/tmp/textpost.db", cfg.SQLitePath)
	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "us-east-1", getString(cfg.Storage.Config, "region", ""))
	assert.Equal(t, "secret", getString(cfg.Storage.Config, "secret_access_key", ""))
	assert.True(t, getBool(cfg.Storage.Config, "use_path_style", false))
	assert.Equal(t, 600, getInt(cfg.Storage.Config, "presign_duration", 0))
	assert.Equal(t, AuditSinkRedis, cfg.AuditSink)
	assert.Equal(t, "wusb:audit", cfg.AuditStream)
	assert.True(t, cfg.AuditAsync)
	assert.Empty(t, cfg.ReconcileSchedule)
	assert.Zero(t, cfg.ThumbnailSize)
}

func TestLoad_OptionErrors(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"empty port", WithPort("")},
		{"empty environment", WithEnvironment("")},
		{"unknown database", WithDatabase("mysql", "x")},
		{"postgres without url", WithDatabase("postgres", "")},
		{"sqlite without path", WithDatabase("sqlite", "")},
		{"empty fs dir", WithFilesystemStorage("", "")},
		{"empty bucket", WithS3Storage("", "us-east-1")},
		{"s3 option before s3", WithS3Credentials("a", "b")},
		{"empty redis url", WithRedisAudit("", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.opt)
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
		ok     bool
	}{
		{"defaults", func(c *ServerConfig) {}, true},
		{"production", func(c *ServerConfig) { c.Environment = EnvProduction }, true},
		{"unknown environment", func(c *ServerConfig) { c.Environment = "testing" }, false},
		{"postgres needs url", func(c *ServerConfig) { c.DatabaseType = "postgres" }, false},
		{"sqlite needs path", func(c *ServerConfig) { c.DatabaseType = "sqlite" }, false},
		{"fs needs base dir", func(c *ServerConfig) { c.Storage = StorageBackendConfig{Type: "fs"} }, false},
		{"s3 needs bucket", func(c *ServerConfig) { c.Storage = StorageBackendConfig{Type: "s3"} }, false},
		{"unknown storage", func(c *ServerConfig) { c.Storage.Type = "gcs" }, false},
		{"redis needs url", func(c *ServerConfig) { c.AuditSink = AuditSinkRedis }, false},
		{"bad schedule", func(c *ServerConfig) { c.ReconcileSchedule = "61 * * * *" }, false},
		{"cron schedule", func(c *ServerConfig) { c.ReconcileSchedule = "0 */2 * * *" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	cfg := defaults()
	cfg.Environment = EnvProduction
	cfg.NewLogger(&buf).Info("hello", "k", "v")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])

	buf.Reset()
	cfg.Environment = EnvDevelopment
	cfg.NewLogger(&buf).Debug("debugging")
	assert.True(t, strings.Contains(buf.String(), "msg=debugging"), buf.String())
}

func TestBuildService_Memory(t *testing.T) {
	cfg, err := Load(WithAuditSink(AuditSinkNoop))
	require.NoError(t, err)

	comps, err := cfg.BuildService(context.Background(), nil)
	require.NoError(t, err)
	defer comps.Close()

	assert.IsType(t, &memory.Repository{}, comps.Repository)

	post, err := comps.Service.CreatePost(context.Background(), textpost.CreatePostRequest{
		Title:    "Built",
		AuthorID: uuid.New(),
		Body:     "from config",
	})
	require.NoError(t, err)
	assert.Equal(t, "built", post.Slug)
}

func TestBuildService_SQLiteAndFilesystem(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(
		WithDatabase("sqlite", filepath.Join(dir, "textpost.db")),
		WithFilesystemStorage(filepath.Join(dir, "images"), "https://wusb.fm/images"),
	)
	require.NoError(t, err)

	comps, err := cfg.BuildService(context.Background(), nil)
	require.NoError(t, err)

	assert.IsType(t, &reposqlite.Repository{}, comps.Repository)
	assert.IsType(t, &fsstorage.Backend{}, comps.BlobStore)

	ctx := context.Background()
	post, err := comps.Service.CreatePost(ctx, textpost.CreatePostRequest{
		Title:       "Persisted",
		AuthorID:    uuid.New(),
		Body:        "stored in sqlite",
		IsPublished: true,
	})
	require.NoError(t, err)

	view, err := comps.Service.GetPostBySlug(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, post.ID, view.ID)

	assert.NoError(t, comps.Close())
}

func TestBuildService_RedisUnreachable(t *testing.T) {
	cfg, err := Load(WithRedisAudit("redis://127.0.0.1:1/0", ""))
	require.NoError(t, err)

	_, err = cfg.BuildService(context.Background(), nil)
	assert.Error(t, err)
}
