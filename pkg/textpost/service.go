package textpost

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Service defines the main interface for the text post library
type Service interface {
	// Write entry points
	CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error)
	SavePost(ctx context.Context, req SavePostRequest) (*Post, error)
	BulkUpdate(ctx context.Context, req BulkUpdateRequest) ([]BulkUpdateResult, error)

	// Read operations
	GetPost(ctx context.Context, id uuid.UUID) (*PostView, error)
	GetPostBySlug(ctx context.Context, slug string) (*PostView, error)
	ListPosts(ctx context.Context, req ListPostsRequest) ([]*PostView, error)

	// Image operations
	AttachImage(ctx context.Context, req AttachImageRequest) (*Post, error)
	DownloadImage(ctx context.Context, postID uuid.UUID) (io.ReadCloser, string, error)
	DownloadThumbnail(ctx context.Context, postID uuid.UUID) (io.ReadCloser, error)
	GetImageURL(ctx context.Context, postID uuid.UUID) (string, error)

	// ReconcileSilentEdits clears silent edit flags left set by a failed
	// post-commit reset and reports them to the audit sink.
	ReconcileSilentEdits(ctx context.Context) (int, error)

	// Close waits for pending audit deliveries.
	Close() error
}
