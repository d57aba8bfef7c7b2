package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubProbe struct {
	name string
	err  error
}

func (p stubProbe) Name() string                    { return p.name }
func (p stubProbe) Check(ctx context.Context) error { return p.err }

func TestHandleHealth_NoProbes_Healthy(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestHandleHealth_AllProbesHealthy(t *testing.T) {
	srv := newTestServer(t)
	srv.HealthProbes = []HealthProbe{
		stubProbe{name: "database"},
		stubProbe{name: "queue"},
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var resp struct {
		Status     string `json:"status"`
		Components map[string]struct {
			Status string `json:"status"`
		} `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("expected healthy, got %q", resp.Status)
	}
	if len(resp.Components) != 2 {
		t.Errorf("expected 2 components, got %d", len(resp.Components))
	}
}

func TestHandleHealth_FailingProbe_Returns503(t *testing.T) {
	srv := newTestServer(t)
	srv.HealthProbes = []HealthProbe{
		stubProbe{name: "database", err: errors.New("connection refused")},
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
}

func TestPingProbe(t *testing.T) {
	called := false
	p := PingProbe{ProbeName: "database", PingFn: func(ctx context.Context) error {
		called = true
		return nil
	}}

	if p.Name() != "database" {
		t.Errorf("unexpected name %q", p.Name())
	}
	if err := p.Check(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected ping function to run")
	}

	empty := PingProbe{ProbeName: "database"}
	if err := empty.Check(context.Background()); err == nil {
		t.Error("expected error for missing ping function")
	}
}
