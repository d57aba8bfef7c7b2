package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"labsite/internal/core"
	"labsite/internal/types"
)

// homeRecentPosts caps the recent-posts strip on the home view.
const homeRecentPosts = 5

// --- Service Interfaces ---

// ContentPageStore provides read access to public site pages.
type ContentPageStore interface {
	GetBySlug(ctx context.Context, slug string) (*types.Page, error)
	List(ctx context.Context) ([]*types.Page, error)
}

// ContentPostStore provides read access to published posts.
type ContentPostStore interface {
	ListPublished(ctx context.Context) ([]*types.PublicPost, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*types.PublicPost, error)
}

// --- Response Models ---

// HomeView aggregates the home page body with the most recent published
// posts. Page is null when the site content has not been seeded yet.
type HomeView struct {
	Page        *types.Page         `json:"page"`
	RecentPosts []*types.PublicPost `json:"recent_posts"`
}

// --- Handler ---

// ContentHandler serves the public, unauthenticated content surface: site
// pages, the published post list, and the aggregated home view.
type ContentHandler struct {
	pages  ContentPageStore
	posts  ContentPostStore
	logger *slog.Logger
}

// NewContentHandler creates a ContentHandler with the provided dependencies.
func NewContentHandler(pages ContentPageStore, posts ContentPostStore, l *slog.Logger) *ContentHandler {
	if l == nil {
		l = slog.Default()
	}
	return &ContentHandler{pages: pages, posts: posts, logger: l}
}

// RegisterRoutes mounts the public content routes on the provided chi.Router.
func (h *ContentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/content/home", h.GetHome)
	r.Get("/content/pages", h.ListPages)
	r.Get("/content/pages/{slug}", h.GetPage)
	r.Get("/content/posts", h.ListPosts)
	r.Get("/content/posts/{slug}", h.GetPost)
}

// --- Handler Methods ---

// GetHome handles GET /v1/content/home. The page body and the recent-post
// list are fetched concurrently; a missing home page degrades to null rather
// than failing the whole view.
func (h *ContentHandler) GetHome(w http.ResponseWriter, r *http.Request) {
	var (
		page  *types.Page
		posts []*types.PublicPost
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		p, err := h.pages.GetBySlug(ctx, "home")
		if err != nil {
			var appErr *types.AppError
			if errors.As(err, &appErr) && appErr.Code == types.ErrCodeNotFoundPage {
				return nil
			}
			return err
		}
		page = p
		return nil
	})
	g.Go(func() error {
		list, err := h.posts.ListPublished(ctx)
		if err != nil {
			return err
		}
		if len(list) > homeRecentPosts {
			list = list[:homeRecentPosts]
		}
		posts = list
		return nil
	})

	if err := g.Wait(); err != nil {
		core.Error(w, r, err)
		return
	}

	if posts == nil {
		posts = []*types.PublicPost{}
	}
	core.JSON(w, r, http.StatusOK, HomeView{Page: page, RecentPosts: posts})
}

// ListPages handles GET /v1/content/pages.
func (h *ContentHandler) ListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.pages.List(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, pages)
}

// GetPage handles GET /v1/content/pages/{slug}.
func (h *ContentHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "page slug is required", nil))
		return
	}

	page, err := h.pages.GetBySlug(r.Context(), slug)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, page)
}

// ListPosts handles GET /v1/content/posts.
func (h *ContentHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListPublished(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, posts)
}

// GetPost handles GET /v1/content/posts/{slug}.
func (h *ContentHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "post slug is required", nil))
		return
	}

	post, err := h.posts.GetPublishedBySlug(r.Context(), slug)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, post)
}
