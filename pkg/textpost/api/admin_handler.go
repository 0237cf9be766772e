package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/wusb-radio/textpost/pkg/textpost"
	"github.com/wusb-radio/textpost/pkg/textpost/admin"
)

// AdminHandler serves station staff endpoints. Every route requires a
// privileged editor.
type AdminHandler struct {
	admin   admin.AdminService
	service textpost.Service
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService admin.AdminService, service textpost.Service, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		admin:   adminService,
		service: service,
		logger:  logger,
	}
}

// Routes returns the admin routes
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequirePrivileged)

	r.Get("/stats", h.GetStatistics)
	r.Get("/silent-edits", h.ListPendingSilentEdits)
	r.Post("/silent-edits/reconcile", h.Reconcile)

	return r
}

// PendingSilentEdit is a post whose silent edit was not yet reported
type PendingSilentEdit struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReconcileResponse reports a reconciliation run
type ReconcileResponse struct {
	Reconciled int `json:"reconciled"`
}

// GetStatistics returns post statistics. Supported query parameters are
// author_id and published (true or false).
func (h *AdminHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	var opts []admin.FilterOption

	if s := r.URL.Query().Get("author_id"); s != "" {
		authorID, err := uuid.Parse(s)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: ErrorBody{Code: "bad_request", Message: "Invalid author ID"}})
			return
		}
		opts = append(opts, admin.WithAuthorID(authorID))
	}
	if s := r.URL.Query().Get("published"); s != "" {
		published, err := strconv.ParseBool(s)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: ErrorBody{Code: "bad_request", Message: "Invalid published filter"}})
			return
		}
		if published {
			opts = append(opts, admin.WithPublishedOnly())
		} else {
			opts = append(opts, admin.WithDraftsOnly())
		}
	}

	resp, err := h.admin.GetStatistics(r.Context(), admin.NewStatisticsRequest(opts...))
	if err != nil {
		h.writeError(w, r, "Failed to compute statistics", err)
		return
	}
	render.JSON(w, r, resp)
}

// ListPendingSilentEdits lists posts awaiting silent edit reconciliation
func (h *AdminHandler) ListPendingSilentEdits(w http.ResponseWriter, r *http.Request) {
	posts, err := h.admin.ListPendingSilentEdits(r.Context())
	if err != nil {
		h.writeError(w, r, "Failed to list pending silent edits", err)
		return
	}

	resp := make([]PendingSilentEdit, 0, len(posts))
	for _, p := range posts {
		resp = append(resp, PendingSilentEdit{ID: p.ID.String(), Slug: p.Slug, UpdatedAt: p.UpdatedAt})
	}
	render.JSON(w, r, resp)
}

// Reconcile clears pending silent edit flags and reports them to the audit sink
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.ReconcileSilentEdits(r.Context())
	if err != nil {
		h.writeError(w, r, "Failed to reconcile silent edits", err)
		return
	}

	h.logger.Info("Silent edits reconciled", "count", n)
	render.JSON(w, r, ReconcileResponse{Reconciled: n})
}

func (h *AdminHandler) writeError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status, body := errorBody(err)
	h.logger.Error(message, "error", err)
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: body})
}
