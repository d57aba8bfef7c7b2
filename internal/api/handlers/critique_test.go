package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"labsite/internal/core"
	"labsite/internal/types"
)

// mockCritiqueService implements CritiqueService for testing.
type mockCritiqueService struct {
	critiqueFn func(ctx context.Context, req types.CritiqueRequest) (*types.Critique, error)
}

func (m *mockCritiqueService) Critique(ctx context.Context, req types.CritiqueRequest) (*types.Critique, error) {
	if m.critiqueFn != nil {
		return m.critiqueFn(ctx, req)
	}
	return nil, errors.New("Critique not mocked")
}

func TestCritique_Success(t *testing.T) {
	service := &mockCritiqueService{
		critiqueFn: func(_ context.Context, req types.CritiqueRequest) (*types.Critique, error) {
			if req.Focus != "clarity" {
				t.Errorf("expected focus to be forwarded, got %q", req.Focus)
			}
			return &types.Critique{
				Summary:  "Readable draft.",
				Provider: "stub",
			}, nil
		},
	}
	handler := NewCritiqueHandler(service, core.NewValidator(nil), nil)

	body := `{"text":"My manuscript draft.","focus":"clarity"}`
	req := httptest.NewRequest(http.MethodPost, "/lab/critique", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.Critique(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var critique types.Critique
	if err := json.Unmarshal(w.Body.Bytes(), &critique); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if critique.Provider != "stub" {
		t.Errorf("unexpected provider %q", critique.Provider)
	}
}

func TestCritique_MissingText(t *testing.T) {
	handler := NewCritiqueHandler(&mockCritiqueService{}, core.NewValidator(nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/lab/critique", strings.NewReader(`{"focus":"clarity"}`))
	w := httptest.NewRecorder()
	handler.Critique(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCritique_ProviderFailure(t *testing.T) {
	service := &mockCritiqueService{
		critiqueFn: func(context.Context, types.CritiqueRequest) (*types.Critique, error) {
			return nil, types.NewAppError(types.ErrCodeUpstreamCritique, "critique provider unavailable", nil)
		},
	}
	handler := NewCritiqueHandler(service, core.NewValidator(nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/lab/critique", strings.NewReader(`{"text":"draft"}`))
	w := httptest.NewRecorder()
	handler.Critique(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}

	var resp core.APIErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error.Code != string(types.ErrCodeUpstreamCritique) {
		t.Errorf("unexpected error code %q", resp.Error.Code)
	}
}
