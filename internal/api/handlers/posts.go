package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"labsite/internal/compose"
	"labsite/internal/core"
	"labsite/internal/types"
)

// --- Service Interfaces ---

// LabPostStore is the data access contract for working-post editing and the
// publish/unpublish lifecycle.
type LabPostStore interface {
	Create(ctx context.Context, post *types.Post) error
	GetByID(ctx context.Context, id string) (*types.Post, error)
	List(ctx context.Context) ([]*types.Post, error)
	Update(ctx context.Context, post *types.Post) error
	Delete(ctx context.Context, id string) error
	Publish(ctx context.Context, post *types.Post, summary string, tags []string, now time.Time) error
	Unpublish(ctx context.Context, id string) error
}

// --- Request/Response Models ---

// CreatePostRequest is the request body for POST /v1/lab/posts.
type CreatePostRequest struct {
	Slug   string `json:"slug" validate:"required,slug"`
	Title  string `json:"title" validate:"required,max=200"`
	BodyMD string `json:"body_md" validate:"required"`
}

// UpdatePostRequest is the request body for PATCH /v1/lab/posts/{id}.
// Pointer fields allow partial updates; the post status is changed only
// through the publish and unpublish endpoints.
type UpdatePostRequest struct {
	Slug   *string `json:"slug,omitempty" validate:"omitempty,slug"`
	Title  *string `json:"title,omitempty" validate:"omitempty,max=200"`
	BodyMD *string `json:"body_md,omitempty"`
}

// PublishPostRequest is the optional request body for
// POST /v1/lab/posts/{id}/publish. Omitted fields are derived from the post
// body: the summary from its markdown, the tags from its inline hashtags.
type PublishPostRequest struct {
	Summary string   `json:"summary,omitempty" validate:"omitempty,max=500"`
	Tags    []string `json:"tags,omitempty" validate:"omitempty,max=10,dive,max=50"`
}

// --- Handler ---

// PostHandler manages working posts in the Lab: CRUD plus the publish and
// unpublish lifecycle that maintains the public copy.
type PostHandler struct {
	store     LabPostStore
	clock     types.Clock
	validator *core.Validator
	logger    *slog.Logger
}

// NewPostHandler creates a PostHandler with the provided dependencies.
func NewPostHandler(store LabPostStore, clock types.Clock, v *core.Validator, l *slog.Logger) *PostHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if l == nil {
		l = slog.Default()
	}
	return &PostHandler{store: store, clock: clock, validator: v, logger: l}
}

// RegisterRoutes mounts the Lab post routes on the provided chi.Router.
func (h *PostHandler) RegisterRoutes(r chi.Router) {
	r.Route("/lab/posts", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
			r.Post("/publish", h.Publish)
			r.Post("/unpublish", h.Unpublish)
		})
	})
}

// --- Handler Methods ---

// Create handles POST /v1/lab/posts. New posts start as drafts.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	now := h.clock.Now()
	post := &types.Post{
		ID:        uuid.New().String(),
		Slug:      req.Slug,
		Title:     req.Title,
		BodyMD:    req.BodyMD,
		Status:    types.PostStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.Create(r.Context(), post); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "post created", "post_id", post.ID, "slug", post.Slug)
	core.JSON(w, r, http.StatusCreated, post)
}

// List handles GET /v1/lab/posts.
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.List(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, posts)
}

// Get handles GET /v1/lab/posts/{id}.
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, appErr := postIDParam(r)
	if appErr != nil {
		core.Error(w, r, appErr)
		return
	}

	post, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, post)
}

// Update handles PATCH /v1/lab/posts/{id}. Partial update of slug, title,
// and body; editing a published post does not touch its public copy until
// the next publish.
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, appErr := postIDParam(r)
	if appErr != nil {
		core.Error(w, r, appErr)
		return
	}

	var req UpdatePostRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	post, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if req.Slug != nil {
		post.Slug = *req.Slug
	}
	if req.Title != nil {
		post.Title = *req.Title
	}
	if req.BodyMD != nil {
		post.BodyMD = *req.BodyMD
	}
	post.UpdatedAt = h.clock.Now()

	if err := h.store.Update(r.Context(), post); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, post)
}

// Delete handles DELETE /v1/lab/posts/{id}. Deleting a working post also
// removes its public copy.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, appErr := postIDParam(r)
	if appErr != nil {
		core.Error(w, r, appErr)
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "post deleted", "post_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Publish handles POST /v1/lab/posts/{id}/publish. The public copy is
// upserted under the post's slug; an empty request body derives the summary
// and hashtags from the post markdown.
func (h *PostHandler) Publish(w http.ResponseWriter, r *http.Request) {
	id, appErr := postIDParam(r)
	if appErr != nil {
		core.Error(w, r, appErr)
		return
	}

	var req PublishPostRequest
	if r.ContentLength > 0 {
		if err := core.DecodeJSON(w, r, &req); err != nil {
			core.Error(w, r, err)
			return
		}
		if err := h.validator.ValidateStruct(req); err != nil {
			core.Error(w, r, err)
			return
		}
	}

	post, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	summary := req.Summary
	if summary == "" {
		summary = compose.Summarize(post.BodyMD, compose.DefaultSummaryRunes)
	}
	tags := compose.NormalizeHashtags(req.Tags...)
	if len(tags) == 0 {
		tags = compose.ExtractHashtags(post.BodyMD)
	}

	now := h.clock.Now()
	if err := h.store.Publish(r.Context(), post, summary, tags, now); err != nil {
		core.Error(w, r, err)
		return
	}
	post.Status = types.PostStatusPublished
	post.UpdatedAt = now

	h.logger.InfoContext(r.Context(), "post published", "post_id", post.ID, "slug", post.Slug)
	core.JSON(w, r, http.StatusOK, post)
}

// Unpublish handles POST /v1/lab/posts/{id}/unpublish. The public copy is
// removed and the working post returns to draft.
func (h *PostHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	id, appErr := postIDParam(r)
	if appErr != nil {
		core.Error(w, r, appErr)
		return
	}

	if err := h.store.Unpublish(r.Context(), id); err != nil {
		core.Error(w, r, err)
		return
	}

	post, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "post unpublished", "post_id", id)
	core.JSON(w, r, http.StatusOK, post)
}

// --- Helpers ---

// postIDParam extracts and validates the {id} path parameter as a UUID.
func postIDParam(r *http.Request) (string, *types.AppError) {
	id := chi.URLParam(r, "id")
	if id == "" {
		return "", types.NewAppError(types.ErrCodeValidationMissingField, "post ID is required", nil)
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", types.NewAppError(types.ErrCodeValidationFieldInvalid, "post ID must be a UUID", nil)
	}
	return id, nil
}
