package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/wusb-radio/textpost/pkg/textpost"
)

func TestFSBackend_BasicOps(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	ctx := context.Background()
	key := "posts/thumbs/98/file.png"

	// Upload
	data := []byte("hello fs")
	if err := backend.Upload(ctx, bytes.NewReader(data), textpost.UploadParams{ObjectKey: key, MimeType: "image/png"}); err != nil {
		t.Fatalf("upload: %v", err)
	}

	// GetObjectMeta
	meta, err := backend.GetObjectMeta(ctx, key)
	if err != nil {
		t.Fatalf("get meta: %v", err)
	}
	if meta.Size != int64(len(data)) {
		t.Fatalf("expected size %d, got %d", len(data), meta.Size)
	}
	if meta.ContentType != "image/png" {
		t.Fatalf("expected content type from extension, got %q", meta.ContentType)
	}

	// Download
	rc, err := backend.Download(ctx, key)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(got) != string(data) {
		t.Fatalf("download mismatch: %q", string(got))
	}

	// Delete
	if err := backend.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, key)); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
	// Empty shard directories are removed, the base stays
	if _, err := os.Stat(filepath.Join(tmp, "posts")); !os.IsNotExist(err) {
		t.Fatalf("expected empty directories removed, stat err=%v", err)
	}
	if _, err := os.Stat(tmp); err != nil {
		t.Fatalf("base directory removed: %v", err)
	}
}

func TestFSBackend_NotFound(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}
	ctx := context.Background()

	if _, err := backend.Download(ctx, "posts/missing.jpg"); !errors.Is(err, textpost.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
	if _, err := backend.GetObjectMeta(ctx, "posts/missing.jpg"); !errors.Is(err, textpost.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
	if err := backend.Delete(ctx, "posts/missing.jpg"); !errors.Is(err, textpost.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestFSBackend_KeysStayInsideBase(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: filepath.Join(tmp, "store")})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}
	ctx := context.Background()

	if err := backend.Upload(ctx, bytes.NewReader([]byte("x")), textpost.UploadParams{ObjectKey: "../escape.txt"}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, "escape.txt")); !os.IsNotExist(err) {
		t.Fatalf("file written outside base directory")
	}
	if _, err := os.Stat(filepath.Join(tmp, "store", "escape.txt")); err != nil {
		t.Fatalf("expected file inside base directory: %v", err)
	}

	if err := backend.Upload(ctx, bytes.NewReader([]byte("x")), textpost.UploadParams{ObjectKey: ""}); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestFSBackend_PreviewURL(t *testing.T) {
	ctx := context.Background()

	noPrefix, err := New(Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}
	if _, err := noPrefix.GetPreviewURL(ctx, "posts/a.jpg"); err == nil {
		t.Fatalf("expected error without URL prefix")
	}

	withPrefix, err := New(Config{BaseDir: t.TempDir(), URLPrefix: "https://wusb.fm/images/"})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}
	url, err := withPrefix.GetPreviewURL(ctx, "posts/a.jpg")
	if err != nil {
		t.Fatalf("preview url: %v", err)
	}
	if url != "https://wusb.fm/images/posts/a.jpg" {
		t.Fatalf("unexpected preview url %q", url)
	}
}
