package textpost

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for post persistence.
//
// Implementations must copy values in and out so callers never share
// state with the store.
type Repository interface {
	// CreatePost inserts a new post. Returns ErrSlugTaken if the slug is in use.
	CreatePost(ctx context.Context, post *Post) error

	// GetPost returns the post or ErrPostNotFound.
	GetPost(ctx context.Context, id uuid.UUID) (*Post, error)

	// GetPostBySlug returns the post or ErrPostNotFound.
	GetPostBySlug(ctx context.Context, slug string) (*Post, error)

	// UpdatePost writes the post only if the stored version equals
	// expectedVersion, and sets post.Version to the new version.
	// Returns ErrConflict on a version mismatch.
	UpdatePost(ctx context.Context, post *Post, expectedVersion int64) error

	// ClearSilentEdit resets the persisted silent edit flag without
	// changing the version.
	ClearSilentEdit(ctx context.Context, id uuid.UUID) error

	// ListPosts returns posts sorted by PublishedAt descending, unpublished
	// posts last (DraftedAt descending).
	ListPosts(ctx context.Context, filters PostListFilters) ([]*Post, error)

	// ListPendingSilentEdits returns posts whose silent edit flag is still set.
	ListPendingSilentEdits(ctx context.Context) ([]*Post, error)
}

// BlobStore defines the interface for post image storage backends
type BlobStore interface {
	// Upload uploads content with additional parameters
	Upload(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download downloads content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete deletes content
	Delete(ctx context.Context, objectKey string) error

	// GetPreviewURL returns a URL for displaying content inline
	GetPreviewURL(ctx context.Context, objectKey string) (string, error)

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// AuditSink receives audit records. Delivery may be at-least-once.
type AuditSink interface {
	RecordAudit(ctx context.Context, record AuditRecord) error
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}
