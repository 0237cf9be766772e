package textpost

import (
	"io"

	"github.com/google/uuid"
)

// Request/Response DTOs

// CreatePostRequest contains parameters for creating a new post.
// Set IsPublished to publish immediately; every other lifecycle field is
// managed by the service.
type CreatePostRequest struct {
	Title       string
	AuthorID    uuid.UUID
	Body        string
	IsPublished bool
}

// SavePostRequest is a full-document commit of an existing post.
//
// ExpectedVersion must match the version the caller read; a stale version
// is rejected with ErrConflict. SilentEdit suppresses edit tracking for this
// write only and requires Privileged.
type SavePostRequest struct {
	ID              uuid.UUID
	ExpectedVersion int64
	Title           string
	Body            string
	IsPublished     bool
	SilentEdit      bool
	Privileged      bool
}

// PostPatch lists the fields a partial update may change. Nil fields are
// left untouched.
type PostPatch struct {
	Title       *string
	Body        *string
	IsPublished *bool
}

// BulkUpdateRequest applies the same patch to every listed post.
type BulkUpdateRequest struct {
	IDs        []uuid.UUID
	Patch      PostPatch
	SilentEdit bool
	Privileged bool
}

// BulkUpdateResult reports the outcome for one post of a bulk update.
type BulkUpdateResult struct {
	ID   uuid.UUID
	Post *Post
	Err  error
}

// ListPostsRequest contains parameters for listing posts
type ListPostsRequest struct {
	AuthorID      *uuid.UUID
	PublishedOnly bool
	DraftsOnly    bool
}

// AttachImageRequest uploads the optional image of a post.
type AttachImageRequest struct {
	PostID   uuid.UUID
	FileName string
	MimeType string
	Reader   io.Reader
}
