package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/wusb-radio/textpost/pkg/textpost"
)

// maxMultipartMemory is the in-memory part of a parsed image upload.
const maxMultipartMemory = 32 << 20

var htmlSanitizer = bluemonday.UGCPolicy()

// PostHandler handles HTTP requests for posts
type PostHandler struct {
	service textpost.Service
	logger  *slog.Logger
}

// NewPostHandler creates a new post handler. A nil logger uses slog.Default().
func NewPostHandler(service textpost.Service, logger *slog.Logger) *PostHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostHandler{
		service: service,
		logger:  logger,
	}
}

// Routes returns the routes for posts
func (h *PostHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreatePost)
	r.Get("/", h.ListPosts)
	r.Patch("/", h.BulkUpdate)
	r.Get("/slug/{slug}", h.GetPostBySlug)

	r.Get("/{id}", h.GetPost)
	r.Put("/{id}", h.SavePost)

	// Image routes
	r.Post("/{id}/image", h.AttachImage)
	r.Get("/{id}/image", h.DownloadImage)
	r.Get("/{id}/thumbnail", h.DownloadThumbnail)

	return r
}

// CreatePostRequest is the request body for creating a post
type CreatePostRequest struct {
	Title       string `json:"title"`
	AuthorID    string `json:"author_id"`
	Body        string `json:"body"`
	IsPublished bool   `json:"is_published"`
}

// SavePostRequest is the request body for a full-document save
type SavePostRequest struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	IsPublished bool   `json:"is_published"`
	Version     int64  `json:"version"`
	SilentEdit  bool   `json:"silent_edit"`
}

// PatchRequest lists the fields a bulk update changes
type PatchRequest struct {
	Title       *string `json:"title,omitempty"`
	Body        *string `json:"body,omitempty"`
	IsPublished *bool   `json:"is_published,omitempty"`
}

// BulkUpdateRequest is the request body for a bulk update
type BulkUpdateRequest struct {
	IDs        []string     `json:"ids"`
	Patch      PatchRequest `json:"patch"`
	SilentEdit bool         `json:"silent_edit"`
}

// PostResponse is the response body for a post
type PostResponse struct {
	ID           string     `json:"id"`
	Slug         string     `json:"slug"`
	Title        string     `json:"title"`
	AuthorID     string     `json:"author_id"`
	Body         string     `json:"body"`
	BodyHTML     string     `json:"body_html"`
	IsPublished  bool       `json:"is_published"`
	DraftedAt    time.Time  `json:"drafted_at"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	LastEditedAt *time.Time `json:"last_edited_at,omitempty"`
	EditCount    int        `json:"edit_count"`
	LengthClass  string     `json:"length_class"`
	WasEdited    bool       `json:"was_edited"`
	ImageURL     string     `json:"image_url,omitempty"`
	Version      int64      `json:"version"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// BulkUpdateItem is the outcome for one post of a bulk update
type BulkUpdateItem struct {
	ID    string        `json:"id"`
	Post  *PostResponse `json:"post,omitempty"`
	Error *ErrorBody    `json:"error,omitempty"`
}

// ErrorBody describes a failed request
type ErrorBody struct {
	Code    string                `json:"code"`
	Message string                `json:"message"`
	Fields  []textpost.FieldError `json:"fields,omitempty"`
}

// ErrorResponse wraps ErrorBody
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// CreatePost creates a new post
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, "Invalid request body")
		return
	}

	// Empty or malformed author IDs go to the service as uuid.Nil so they are
	// reported alongside the other field errors.
	authorID, parseErr := uuid.Parse(req.AuthorID)
	if parseErr != nil {
		authorID = uuid.Nil
	}

	post, err := h.service.CreatePost(r.Context(), textpost.CreatePostRequest{
		Title:       req.Title,
		AuthorID:    authorID,
		Body:        req.Body,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		var verr *textpost.ValidationError
		if req.AuthorID != "" && parseErr != nil && errors.As(err, &verr) {
			for i := range verr.Fields {
				if verr.Fields[i].Field == "author_id" {
					verr.Fields[i].Message = "must be a UUID"
				}
			}
		}
		h.writeError(w, r, "Failed to create post", err)
		return
	}

	h.logger.Info("Post created", "post_id", post.ID.String(), "slug", post.Slug)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, h.toResponse(r, textpost.NewPostView(post)))
}

// GetPost retrieves a post by ID
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	view, err := h.service.GetPost(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "Failed to get post", err)
		return
	}

	render.JSON(w, r, h.toResponse(r, view))
}

// GetPostBySlug retrieves a post by its slug
func (h *PostHandler) GetPostBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	view, err := h.service.GetPostBySlug(r.Context(), slug)
	if err != nil {
		h.writeError(w, r, "Failed to get post by slug", err)
		return
	}

	render.JSON(w, r, h.toResponse(r, view))
}

// ListPosts lists posts, newest publication first. Supported query
// parameters are author_id and published (true or false).
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	var req textpost.ListPostsRequest

	if s := r.URL.Query().Get("author_id"); s != "" {
		authorID, err := uuid.Parse(s)
		if err != nil {
			h.badRequest(w, r, "Invalid author ID")
			return
		}
		req.AuthorID = &authorID
	}
	if s := r.URL.Query().Get("published"); s != "" {
		published, err := strconv.ParseBool(s)
		if err != nil {
			h.badRequest(w, r, "Invalid published filter")
			return
		}
		req.PublishedOnly = published
		req.DraftsOnly = !published
	}

	views, err := h.service.ListPosts(r.Context(), req)
	if err != nil {
		h.writeError(w, r, "Failed to list posts", err)
		return
	}

	resp := make([]PostResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, h.toResponse(r, v))
	}
	render.JSON(w, r, resp)
}

// SavePost commits the full document of an existing post
func (h *PostHandler) SavePost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	var req SavePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, "Invalid request body")
		return
	}

	post, err := h.service.SavePost(r.Context(), textpost.SavePostRequest{
		ID:              id,
		ExpectedVersion: req.Version,
		Title:           req.Title,
		Body:            req.Body,
		IsPublished:     req.IsPublished,
		SilentEdit:      req.SilentEdit,
		Privileged:      IsPrivileged(r.Context()),
	})
	if err != nil {
		h.writeError(w, r, "Failed to save post", err)
		return
	}

	h.logger.Info("Post saved", "post_id", id.String(), "version", post.Version)
	render.JSON(w, r, h.toResponse(r, textpost.NewPostView(post)))
}

// BulkUpdate applies one patch to several posts. The response lists a
// result per requested ID; a failed item does not fail the request.
func (h *PostHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req BulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, "Invalid request body")
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, s := range req.IDs {
		id, err := uuid.Parse(s)
		if err != nil {
			h.badRequest(w, r, "Invalid post ID: "+s)
			return
		}
		ids = append(ids, id)
	}

	results, err := h.service.BulkUpdate(r.Context(), textpost.BulkUpdateRequest{
		IDs: ids,
		Patch: textpost.PostPatch{
			Title:       req.Patch.Title,
			Body:        req.Patch.Body,
			IsPublished: req.Patch.IsPublished,
		},
		SilentEdit: req.SilentEdit,
		Privileged: IsPrivileged(r.Context()),
	})
	if err != nil {
		h.writeError(w, r, "Failed to bulk update posts", err)
		return
	}

	resp := make([]BulkUpdateItem, 0, len(results))
	for _, res := range results {
		item := BulkUpdateItem{ID: res.ID.String()}
		if res.Err != nil {
			_, body := errorBody(res.Err)
			item.Error = &body
		} else {
			post := h.toResponse(r, textpost.NewPostView(res.Post))
			item.Post = &post
		}
		resp = append(resp, item)
	}

	h.logger.Info("Bulk update applied", "count", len(resp))
	render.JSON(w, r, resp)
}

// AttachImage uploads the image of a post from the multipart field "image"
func (h *PostHandler) AttachImage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		h.badRequest(w, r, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		h.badRequest(w, r, "Missing image file")
		return
	}
	defer file.Close()

	post, err := h.service.AttachImage(r.Context(), textpost.AttachImageRequest{
		PostID:   id,
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Reader:   file,
	})
	if err != nil {
		h.writeError(w, r, "Failed to attach image", err)
		return
	}

	h.logger.Info("Image attached", "post_id", id.String(), "key", post.ImageKey)
	render.JSON(w, r, h.toResponse(r, textpost.NewPostView(post)))
}

// DownloadImage streams the image of a post
func (h *PostHandler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	reader, contentType, err := h.service.DownloadImage(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "Failed to download image", err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentType)
	h.stream(w, r, reader, id)
}

// DownloadThumbnail streams the JPEG thumbnail of a post image
func (h *PostHandler) DownloadThumbnail(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	reader, err := h.service.DownloadThumbnail(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "Failed to download thumbnail", err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	h.stream(w, r, reader, id)
}

func (h *PostHandler) stream(w http.ResponseWriter, r *http.Request, reader io.Reader, id uuid.UUID) {
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to stream object", "post_id", id.String(), "error", err)
	}
}

// toResponse builds the response body for a view. The image URL is
// resolved through the blob store; a failure leaves it empty.
func (h *PostHandler) toResponse(r *http.Request, v *textpost.PostView) PostResponse {
	resp := PostResponse{
		ID:           v.ID.String(),
		Slug:         v.Slug,
		Title:        v.Title,
		AuthorID:     v.AuthorID.String(),
		Body:         v.Body,
		BodyHTML:     htmlSanitizer.Sanitize(v.Body),
		IsPublished:  v.IsPublished,
		DraftedAt:    v.DraftedAt,
		PublishedAt:  v.PublishedAt,
		LastEditedAt: v.LastEditedAt,
		EditCount:    v.EditCount,
		LengthClass:  string(v.LengthClass),
		WasEdited:    v.WasEdited,
		Version:      v.Version,
		UpdatedAt:    v.UpdatedAt,
	}

	if v.ImageKey != "" {
		url, err := h.service.GetImageURL(r.Context(), v.ID)
		if err != nil {
			h.logger.Warn("Failed to resolve image URL", "post_id", resp.ID, "error", err)
		} else {
			resp.ImageURL = url
		}
	}
	return resp
}

func (h *PostHandler) postID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Error("Invalid post ID", "post_id", idStr, "error", err)
		h.badRequest(w, r, "Invalid post ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *PostHandler) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: ErrorBody{Code: "bad_request", Message: message}})
}

func (h *PostHandler) writeError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(message, "error", err)
	} else {
		h.logger.Warn(message, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: body})
}

// errorBody maps a service error to a status code and response body.
func errorBody(err error) (int, ErrorBody) {
	var validation *textpost.ValidationError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, ErrorBody{Code: "validation_failed", Message: err.Error(), Fields: validation.Fields}
	case errors.Is(err, textpost.ErrPostNotFound):
		return http.StatusNotFound, ErrorBody{Code: "not_found", Message: err.Error()}
	case errors.Is(err, textpost.ErrNoImage), errors.Is(err, textpost.ErrObjectNotFound):
		return http.StatusNotFound, ErrorBody{Code: "no_image", Message: err.Error()}
	case errors.Is(err, textpost.ErrConflict):
		return http.StatusConflict, ErrorBody{Code: "conflict", Message: err.Error()}
	case errors.Is(err, textpost.ErrSlugTaken):
		return http.StatusConflict, ErrorBody{Code: "slug_taken", Message: err.Error()}
	case errors.Is(err, textpost.ErrBlobStoreNotConfigured):
		return http.StatusNotImplemented, ErrorBody{Code: "no_blob_store", Message: err.Error()}
	case errors.Is(err, textpost.ErrPersistence):
		return http.StatusServiceUnavailable, ErrorBody{Code: "persistence_failure", Message: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorBody{Code: "internal_error", Message: "An internal server error occurred"}
	}
}
