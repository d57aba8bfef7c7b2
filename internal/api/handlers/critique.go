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

// CritiqueService produces feedback for a manuscript draft. Mirrors the
// external.CritiqueProvider contract.
type CritiqueService interface {
	Critique(ctx context.Context, req types.CritiqueRequest) (*types.Critique, error)
}

// --- Request/Response Models ---

// CritiqueTextRequest is the request body for POST /v1/lab/critique.
type CritiqueTextRequest struct {
	Text  string `json:"text" validate:"required"`
	Focus string `json:"focus,omitempty" validate:"omitempty,max=100"`
}

// --- Handler ---

// CritiqueHandler exposes manuscript critique to the Lab.
type CritiqueHandler struct {
	service   CritiqueService
	validator *core.Validator
	logger    *slog.Logger
}

// NewCritiqueHandler creates a CritiqueHandler with the provided dependencies.
func NewCritiqueHandler(service CritiqueService, v *core.Validator, l *slog.Logger) *CritiqueHandler {
	if l == nil {
		l = slog.Default()
	}
	return &CritiqueHandler{service: service, validator: v, logger: l}
}

// RegisterRoutes mounts the critique route on the provided chi.Router.
func (h *CritiqueHandler) RegisterRoutes(r chi.Router) {
	r.Post("/lab/critique", h.Critique)
}

// --- Handler Methods ---

// Critique handles POST /v1/lab/critique. Provider failures surface as
// upstream errors; the draft text itself is never logged.
func (h *CritiqueHandler) Critique(w http.ResponseWriter, r *http.Request) {
	var req CritiqueTextRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	critique, err := h.service.Critique(r.Context(), types.CritiqueRequest{
		Text:  req.Text,
		Focus: req.Focus,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "critique generated", "provider", critique.Provider, "focus", req.Focus)
	core.JSON(w, r, http.StatusOK, critique)
}
