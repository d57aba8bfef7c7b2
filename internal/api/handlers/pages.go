package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"labsite/internal/core"
	"labsite/internal/types"
)

// --- Service Interfaces ---

// LabPageStore is the data access contract for page editing.
type LabPageStore interface {
	GetBySlug(ctx context.Context, slug string) (*types.Page, error)
	List(ctx context.Context) ([]*types.Page, error)
	Upsert(ctx context.Context, page *types.Page) error
	Delete(ctx context.Context, slug string) error
}

// --- Request/Response Models ---

// UpsertPageRequest is the request body for PUT /v1/lab/pages/{slug}. The
// slug comes from the URL and is validated together with the body.
type UpsertPageRequest struct {
	Slug   string `json:"-" validate:"required,slug"`
	Title  string `json:"title" validate:"required,max=200"`
	BodyMD string `json:"body_md" validate:"required"`
}

// --- Handler ---

// PageHandler manages the Lab page editing surface. All routes require an
// admin session; enforcement happens in the router middleware before any
// handler method runs.
type PageHandler struct {
	store     LabPageStore
	clock     types.Clock
	validator *core.Validator
	logger    *slog.Logger
}

// NewPageHandler creates a PageHandler with the provided dependencies.
func NewPageHandler(store LabPageStore, clock types.Clock, v *core.Validator, l *slog.Logger) *PageHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if l == nil {
		l = slog.Default()
	}
	return &PageHandler{store: store, clock: clock, validator: v, logger: l}
}

// RegisterRoutes mounts the Lab page routes on the provided chi.Router.
func (h *PageHandler) RegisterRoutes(r chi.Router) {
	r.Route("/lab/pages", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{slug}", h.Get)
		r.Put("/{slug}", h.Upsert)
		r.Delete("/{slug}", h.Delete)
	})
}

// --- Handler Methods ---

// List handles GET /v1/lab/pages.
func (h *PageHandler) List(w http.ResponseWriter, r *http.Request) {
	pages, err := h.store.List(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, pages)
}

// Get handles GET /v1/lab/pages/{slug}.
func (h *PageHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "page slug is required", nil))
		return
	}

	page, err := h.store.GetBySlug(r.Context(), slug)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, page)
}

// Upsert handles PUT /v1/lab/pages/{slug}. Pages are keyed by slug with
// last-write-wins semantics; creating and editing share this endpoint.
// Validation runs before any persistence call.
func (h *PageHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertPageRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	req.Slug = chi.URLParam(r, "slug")

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	page := &types.Page{
		Slug:      req.Slug,
		Title:     req.Title,
		BodyMD:    req.BodyMD,
		UpdatedAt: h.clock.Now(),
	}
	if err := h.store.Upsert(r.Context(), page); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "page upserted", "slug", page.Slug)
	core.JSON(w, r, http.StatusOK, page)
}

// Delete handles DELETE /v1/lab/pages/{slug}.
func (h *PageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "page slug is required", nil))
		return
	}

	if err := h.store.Delete(r.Context(), slug); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "page deleted", "slug", slug)
	w.WriteHeader(http.StatusNoContent)
}
