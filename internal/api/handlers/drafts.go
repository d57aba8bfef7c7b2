package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"labsite/internal/compose"
	"labsite/internal/core"
	"labsite/internal/types"
)

// --- Service Interfaces ---

// LabDraftStore is the data access contract for LinkedIn draft editing.
type LabDraftStore interface {
	Create(ctx context.Context, draft *types.LinkedInDraft) error
	GetByID(ctx context.Context, id string) (*types.LinkedInDraft, error)
	List(ctx context.Context) ([]*types.LinkedInDraft, error)
	Update(ctx context.Context, draft *types.LinkedInDraft) error
	Delete(ctx context.Context, id string) error
}

// DraftComposeSource resolves the published post a draft is prefilled from.
type DraftComposeSource interface {
	GetPublishedBySlug(ctx context.Context, slug string) (*types.PublicPost, error)
}

// --- Request/Response Models ---

// CreateDraftRequest is the request body for POST /v1/lab/drafts.
type CreateDraftRequest struct {
	Body       string   `json:"body" validate:"required"`
	Hashtags   []string `json:"hashtags,omitempty" validate:"omitempty,max=10,dive,max=50"`
	SourceSlug string   `json:"source_slug,omitempty" validate:"omitempty,slug"`
}

// UpdateDraftRequest is the request body for PATCH /v1/lab/drafts/{id}.
type UpdateDraftRequest struct {
	Body     *string   `json:"body,omitempty"`
	Hashtags *[]string `json:"hashtags,omitempty" validate:"omitempty,max=10,dive,max=50"`
}

// ComposeDraftRequest is the request body for POST /v1/lab/drafts/compose.
type ComposeDraftRequest struct {
	Slug string `json:"slug" validate:"required,slug"`
}

// --- Handler ---

// DraftHandler manages LinkedIn drafts in the Lab, including the composer
// that prefills a draft from a published post.
type DraftHandler struct {
	store     LabDraftStore
	posts     DraftComposeSource
	clock     types.Clock
	validator *core.Validator
	logger    *slog.Logger
}

// NewDraftHandler creates a DraftHandler with the provided dependencies.
func NewDraftHandler(store LabDraftStore, posts DraftComposeSource, clock types.Clock, v *core.Validator, l *slog.Logger) *DraftHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if l == nil {
		l = slog.Default()
	}
	return &DraftHandler{store: store, posts: posts, clock: clock, validator: v, logger: l}
}

// RegisterRoutes mounts the Lab draft routes on the provided chi.Router.
func (h *DraftHandler) RegisterRoutes(r chi.Router) {
	r.Route("/lab/drafts", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Post("/compose", h.Compose)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
}

// --- Handler Methods ---

// Create handles POST /v1/lab/drafts.
func (h *DraftHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDraftRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	now := h.clock.Now()
	draft := &types.LinkedInDraft{
		ID:         uuid.New().String(),
		Body:       req.Body,
		Hashtags:   compose.NormalizeHashtags(req.Hashtags...),
		SourceSlug: req.SourceSlug,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.store.Create(r.Context(), draft); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, draft)
}

// List handles GET /v1/lab/drafts.
func (h *DraftHandler) List(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.store.List(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, drafts)
}

// Get handles GET /v1/lab/drafts/{id}.
func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, appErr := draftIDParam(r)
	if appErr != nil {
		core.Error(w, r, appErr)
		return
	}

	draft, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, draft)
}

// Update handles PATCH /v1/lab/drafts/{id}.
func (h *DraftHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, appErr := draftIDParam(r)
	if appErr != nil {
		core.Error(w, r, appErr)
		return
	}

	var req UpdateDraftRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	draft, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if req.Body != nil {
		draft.Body = *req.Body
	}
	if req.Hashtags != nil {
		draft.Hashtags = compose.NormalizeHashtags(*req.Hashtags...)
	}
	draft.UpdatedAt = h.clock.Now()

	if err := h.store.Update(r.Context(), draft); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, draft)
}

// Delete handles DELETE /v1/lab/drafts/{id}.
func (h *DraftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, appErr := draftIDParam(r)
	if appErr != nil {
		core.Error(w, r, appErr)
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		core.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Compose handles POST /v1/lab/drafts/compose. A new draft is prefilled
// from the named published post: title plus plain-text summary as the body,
// the post's tags merged with inline hashtags as the hashtag list.
func (h *DraftHandler) Compose(w http.ResponseWriter, r *http.Request) {
	var req ComposeDraftRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	post, err := h.posts.GetPublishedBySlug(r.Context(), req.Slug)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	now := h.clock.Now()
	draft := compose.PrefillDraft(*post)
	draft.ID = uuid.New().String()
	draft.CreatedAt = now
	draft.UpdatedAt = now

	if err := h.store.Create(r.Context(), &draft); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "draft composed from post", "draft_id", draft.ID, "slug", req.Slug)
	core.JSON(w, r, http.StatusCreated, draft)
}

// --- Helpers ---

// draftIDParam extracts and validates the {id} path parameter as a UUID.
func draftIDParam(r *http.Request) (string, *types.AppError) {
	id := chi.URLParam(r, "id")
	if id == "" {
		return "", types.NewAppError(types.ErrCodeValidationMissingField, "draft ID is required", nil)
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", types.NewAppError(types.ErrCodeValidationFieldInvalid, "draft ID must be a UUID", nil)
	}
	return id, nil
}
