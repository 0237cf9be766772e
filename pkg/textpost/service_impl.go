package textpost

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wusb-radio/textpost/pkg/textpost/objectkey"
)

const (
	// maxSlugAttempts bounds the numeric suffixes tried for a taken slug.
	maxSlugAttempts = 50

	// bulkMaxAttempts bounds the read-modify-write retries of one bulk item.
	bulkMaxAttempts = 3

	fallbackSlug = "post"
)

// service implements the Service interface
type service struct {
	repository    Repository
	blobStore     BlobStore
	auditSink     AuditSink
	keyGen        objectkey.Generator
	logger        *slog.Logger
	now           func() time.Time
	thumbnailSize uint

	asyncAudit   bool
	auditRetries uint64
	auditBackoff time.Duration

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the image storage backend
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithAuditSink sets the audit sink for the service
func WithAuditSink(sink AuditSink) Option {
	return func(s *service) {
		s.auditSink = sink
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for lifecycle timestamps
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAsyncAudit delivers audit records without blocking the write
func WithAsyncAudit(async bool) Option {
	return func(s *service) {
		s.asyncAudit = async
	}
}

// WithAuditRetry sets how often a failed audit delivery is retried and the
// base of the exponential backoff between attempts
func WithAuditRetry(retries uint64, base time.Duration) Option {
	return func(s *service) {
		s.auditRetries = retries
		if base > 0 {
			s.auditBackoff = base
		}
	}
}

// WithKeyGenerator sets the image key strategy
func WithKeyGenerator(gen objectkey.Generator) Option {
	return func(s *service) {
		if gen != nil {
			s.keyGen = gen
		}
	}
}

// WithThumbnailSize sets the bounding box of generated thumbnails. Zero
// disables thumbnails.
func WithThumbnailSize(size uint) Option {
	return func(s *service) {
		s.thumbnailSize = size
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		auditSink:     NewNoopAuditSink(),
		keyGen:        objectkey.NewRecommendedGenerator(),
		logger:        slog.Default(),
		now:           defaultNow,
		thumbnailSize: DefaultThumbnailSize,
		auditRetries:  defaultAuditRetries,
		auditBackoff:  defaultAuditBackoff,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.auditSink == nil {
		s.auditSink = NewNoopAuditSink()
	}

	return s, nil
}

// defaultNow truncates to the microsecond precision SQL stores keep.
func defaultNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Write operations

func (s *service) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	incoming := Post{
		ID:          uuid.New(),
		Title:       req.Title,
		AuthorID:    req.AuthorID,
		Body:        req.Body,
		IsPublished: req.IsPublished,
	}
	post, transition := ApplyWriteTransition(nil, incoming, WriteIntent{
		Mode: WriteModeFullDocument,
		Now:  s.now(),
	})
	post.Version = 1

	base := Slugify(req.Title)
	if base == "" {
		base = fallbackSlug
	}

	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		post.Slug = slugCandidate(base, attempt)
		err := s.repository.CreatePost(ctx, &post)
		if err == nil {
			s.logger.DebugContext(ctx, "post created",
				"post_id", post.ID.String(),
				"slug", post.Slug,
				"transition", string(transition))
			return post.Clone(), nil
		}
		if !errors.Is(err, ErrSlugTaken) {
			return nil, &PostError{PostID: post.ID, Op: "create", Err: persistenceError(err)}
		}
	}

	return nil, &PostError{PostID: post.ID, Op: "create", Err: ErrSlugTaken}
}

// slugCandidate returns base for the first attempt and base-N afterwards.
func slugCandidate(base string, attempt int) string {
	if attempt == 1 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, attempt)
}

func (s *service) SavePost(ctx context.Context, req SavePostRequest) (*Post, error) {
	if err := validateSave(req); err != nil {
		return nil, err
	}

	previous, err := s.repository.GetPost(ctx, req.ID)
	if err != nil {
		return nil, &PostError{PostID: req.ID, Op: "save", Err: persistenceError(err)}
	}
	if previous.Version != req.ExpectedVersion {
		return nil, &PostError{PostID: req.ID, Op: "save", Err: ErrConflict}
	}

	incoming := *previous.Clone()
	incoming.Title = req.Title
	incoming.Body = req.Body
	incoming.IsPublished = req.IsPublished

	post, transition := ApplyWriteTransition(previous, incoming, WriteIntent{
		Mode:   WriteModeFullDocument,
		Silent: req.SilentEdit,
		Now:    s.now(),
	})

	if err := s.repository.UpdatePost(ctx, &post, req.ExpectedVersion); err != nil {
		return nil, &PostError{PostID: req.ID, Op: "save", Err: persistenceError(err)}
	}

	s.logger.DebugContext(ctx, "post saved",
		"post_id", post.ID.String(),
		"version", post.Version,
		"transition", string(transition))

	s.releaseWithheldAudit(ctx, previous)
	s.commitSilentEdit(ctx, &post, WriteModeFullDocument)
	return post.Clone(), nil
}

func (s *service) BulkUpdate(ctx context.Context, req BulkUpdateRequest) ([]BulkUpdateResult, error) {
	if err := validateBulk(req); err != nil {
		return nil, err
	}

	results := make([]BulkUpdateResult, 0, len(req.IDs))
	for _, id := range req.IDs {
		post, err := s.patchPost(ctx, id, req.SilentEdit, "bulk_update", func(p *Post) {
			applyPatch(p, req.Patch)
		})
		results = append(results, BulkUpdateResult{ID: id, Post: post, Err: err})
	}
	return results, nil
}

// patchPost runs a partial-mode read-modify-write, re-reading the post when
// another writer got there first.
func (s *service) patchPost(ctx context.Context, id uuid.UUID, silent bool, op string, mutate func(*Post)) (*Post, error) {
	var lastErr error
	for attempt := 0; attempt < bulkMaxAttempts; attempt++ {
		previous, err := s.repository.GetPost(ctx, id)
		if err != nil {
			return nil, &PostError{PostID: id, Op: op, Err: persistenceError(err)}
		}

		incoming := *previous.Clone()
		mutate(&incoming)

		post, transition := ApplyWriteTransition(previous, incoming, WriteIntent{
			Mode:   WriteModePartial,
			Silent: silent,
			Now:    s.now(),
		})

		err = s.repository.UpdatePost(ctx, &post, previous.Version)
		if err == nil {
			s.logger.DebugContext(ctx, "post patched",
				"post_id", id.String(),
				"op", op,
				"version", post.Version,
				"transition", string(transition))
			s.releaseWithheldAudit(ctx, previous)
			s.commitSilentEdit(ctx, &post, WriteModePartial)
			return post.Clone(), nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, &PostError{PostID: id, Op: op, Err: persistenceError(err)}
		}
		lastErr = err
	}
	return nil, &PostError{PostID: id, Op: op, Err: lastErr}
}

// Read operations

func (s *service) GetPost(ctx context.Context, id uuid.UUID) (*PostView, error) {
	post, err := s.repository.GetPost(ctx, id)
	if err != nil {
		return nil, &PostError{PostID: id, Op: "get", Err: err}
	}
	return NewPostView(post), nil
}

func (s *service) GetPostBySlug(ctx context.Context, slug string) (*PostView, error) {
	post, err := s.repository.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get post by slug %q: %w", slug, err)
	}
	return NewPostView(post), nil
}

func (s *service) ListPosts(ctx context.Context, req ListPostsRequest) ([]*PostView, error) {
	if req.PublishedOnly && req.DraftsOnly {
		v := &ValidationError{}
		v.add("published", "published and drafts filters are mutually exclusive")
		return nil, v
	}

	posts, err := s.repository.ListPosts(ctx, PostListFilters{
		AuthorID:      req.AuthorID,
		PublishedOnly: req.PublishedOnly,
		DraftsOnly:    req.DraftsOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	views := make([]*PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, NewPostView(p))
	}
	return views, nil
}

// Image operations

func (s *service) AttachImage(ctx context.Context, req AttachImageRequest) (*Post, error) {
	if s.blobStore == nil {
		return nil, ErrBlobStoreNotConfigured
	}

	v := &ValidationError{}
	if req.PostID == uuid.Nil {
		v.add("post_id", "is required")
	}
	if req.Reader == nil {
		v.add("image", "is required")
	}
	if err := v.orNil(); err != nil {
		return nil, err
	}

	previous, err := s.repository.GetPost(ctx, req.PostID)
	if err != nil {
		return nil, &PostError{PostID: req.PostID, Op: "attach_image", Err: err}
	}

	data, err := io.ReadAll(io.LimitReader(req.Reader, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > maxImageBytes {
		v.add("image", "must be at most 10 MiB")
		return nil, v
	}
	if len(data) == 0 {
		v.add("image", "is empty")
		return nil, v
	}

	mimeType := req.MimeType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	if !isImageMimeType(mimeType) {
		v.add("image", fmt.Sprintf("unsupported content type %q", mimeType))
		return nil, v
	}

	key := s.keyGen.ImageKey(req.PostID, objectkey.ExtensionFor(req.FileName, mimeType))
	if err := s.blobStore.Upload(ctx, bytes.NewReader(data), UploadParams{ObjectKey: key, MimeType: mimeType}); err != nil {
		return nil, &StorageError{Key: key, Op: "upload", Err: err}
	}

	s.storeThumbnail(ctx, req.PostID, data)

	post, err := s.patchPost(ctx, req.PostID, false, "attach_image", func(p *Post) {
		p.ImageKey = key
	})
	if err != nil {
		return nil, err
	}

	if previous.ImageKey != "" && previous.ImageKey != key {
		if err := s.blobStore.Delete(ctx, previous.ImageKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete replaced image",
				"post_id", req.PostID.String(), "key", previous.ImageKey, "error", err)
		}
	}

	post.SilentEdit = false
	return post, nil
}

// storeThumbnail renders and uploads the thumbnail variant. Images that
// cannot be decoded keep their original only.
func (s *service) storeThumbnail(ctx context.Context, postID uuid.UUID, data []byte) {
	if s.thumbnailSize == 0 {
		return
	}

	thumb, err := generateThumbnail(data, s.thumbnailSize)
	if err != nil {
		s.logger.InfoContext(ctx, "skipping thumbnail", "post_id", postID.String(), "error", err)
		return
	}

	key := s.keyGen.ThumbnailKey(postID)
	if err := s.blobStore.Upload(ctx, bytes.NewReader(thumb), UploadParams{ObjectKey: key, MimeType: "image/jpeg"}); err != nil {
		s.logger.WarnContext(ctx, "failed to upload thumbnail", "post_id", postID.String(), "key", key, "error", err)
	}
}

// imageKey returns the stored image key of the post.
func (s *service) imageKey(ctx context.Context, postID uuid.UUID, op string) (string, error) {
	if s.blobStore == nil {
		return "", ErrBlobStoreNotConfigured
	}
	post, err := s.repository.GetPost(ctx, postID)
	if err != nil {
		return "", &PostError{PostID: postID, Op: op, Err: err}
	}
	if post.ImageKey == "" {
		return "", &PostError{PostID: postID, Op: op, Err: ErrNoImage}
	}
	return post.ImageKey, nil
}

func (s *service) DownloadImage(ctx context.Context, postID uuid.UUID) (io.ReadCloser, string, error) {
	key, err := s.imageKey(ctx, postID, "download_image")
	if err != nil {
		return nil, "", err
	}

	contentType := "application/octet-stream"
	if meta, err := s.blobStore.GetObjectMeta(ctx, key); err == nil && meta.ContentType != "" {
		contentType = meta.ContentType
	}

	reader, err := s.blobStore.Download(ctx, key)
	if err != nil {
		return nil, "", &StorageError{Key: key, Op: "download", Err: err}
	}
	return reader, contentType, nil
}

func (s *service) DownloadThumbnail(ctx context.Context, postID uuid.UUID) (io.ReadCloser, error) {
	if _, err := s.imageKey(ctx, postID, "download_thumbnail"); err != nil {
		return nil, err
	}

	key := s.keyGen.ThumbnailKey(postID)
	reader, err := s.blobStore.Download(ctx, key)
	if err != nil {
		return nil, &StorageError{Key: key, Op: "download", Err: err}
	}
	return reader, nil
}

func (s *service) GetImageURL(ctx context.Context, postID uuid.UUID) (string, error) {
	key, err := s.imageKey(ctx, postID, "image_url")
	if err != nil {
		return "", err
	}

	url, err := s.blobStore.GetPreviewURL(ctx, key)
	if err != nil {
		return "", &StorageError{Key: key, Op: "preview_url", Err: err}
	}
	return url, nil
}
