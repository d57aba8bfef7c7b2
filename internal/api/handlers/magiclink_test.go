package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"labsite/internal/auth"
	"labsite/internal/core"
	"labsite/internal/types"
)

// mockMagicLinkStore implements MagicLinkStore for testing.
type mockMagicLinkStore struct {
	created   []*types.MagicLinkToken
	createErr error
	consumeFn func(ctx context.Context, tokenHash string, now time.Time) (string, error)
}

func (m *mockMagicLinkStore) Create(_ context.Context, token *types.MagicLinkToken) error {
	m.created = append(m.created, token)
	return m.createErr
}

func (m *mockMagicLinkStore) Consume(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	if m.consumeFn != nil {
		return m.consumeFn(ctx, tokenHash, now)
	}
	return "", errors.New("Consume not mocked")
}

// mockMailer implements MagicLinkMailer for testing.
type mockMailer struct {
	to   []string
	urls []string
	err  error
}

func (m *mockMailer) PublishMagicLink(_ context.Context, to, loginURL string) error {
	m.to = append(m.to, to)
	m.urls = append(m.urls, loginURL)
	return m.err
}

func newMagicLinkTestHandler(store *mockMagicLinkStore, mailer *mockMailer) *MagicLinkHandler {
	return NewMagicLinkHandler(
		store,
		mailer,
		auth.BuildAllowlist("author@example.edu"),
		types.SecretString(testSigningSecret),
		auth.DefaultSessionTTL,
		15*time.Minute,
		"https://site.example",
		types.FixedClock{T: testSessionNow},
		DefaultCookieConfig(),
		core.NewValidator(nil),
		nil,
	)
}

func TestHandleRequest_AllowlistedEmail(t *testing.T) {
	store := &mockMagicLinkStore{}
	mailer := &mockMailer{}
	handler := newMagicLinkTestHandler(store, mailer)

	req := httptest.NewRequest(http.MethodPost, "/auth/magic-link", strings.NewReader(`{"email":"Author@Example.EDU"}`))
	w := httptest.NewRecorder()
	handler.HandleRequest(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if len(store.created) != 1 {
		t.Fatalf("expected 1 stored token, got %d", len(store.created))
	}
	token := store.created[0]
	if token.Email != "author@example.edu" {
		t.Errorf("expected canonicalized email, got %q", token.Email)
	}
	if len(token.TokenHash) != 64 {
		t.Errorf("expected hex SHA-256 token hash, got %q", token.TokenHash)
	}
	if !token.ExpiresAt.Equal(testSessionNow.Add(15 * time.Minute)) {
		t.Errorf("unexpected expiry %v", token.ExpiresAt)
	}

	if len(mailer.urls) != 1 {
		t.Fatalf("expected 1 email, got %d", len(mailer.urls))
	}
	if mailer.to[0] != "author@example.edu" {
		t.Errorf("unexpected recipient %q", mailer.to[0])
	}

	// The raw token in the emailed URL must hash to the stored value.
	parsed, err := url.Parse(mailer.urls[0])
	if err != nil {
		t.Fatalf("emailed URL does not parse: %v", err)
	}
	raw := parsed.Query().Get("token")
	if raw == "" {
		t.Fatal("emailed URL is missing the token")
	}
	if hashLinkToken(raw) != token.TokenHash {
		t.Error("emailed token does not hash to the stored token hash")
	}
	if parsed.Path != "/v1/auth/magic-link/verify" {
		t.Errorf("unexpected verify path %q", parsed.Path)
	}
}

func TestHandleRequest_NonAllowlistedEmailIndistinguishable(t *testing.T) {
	store := &mockMagicLinkStore{}
	mailer := &mockMailer{}
	handler := newMagicLinkTestHandler(store, mailer)

	req := httptest.NewRequest(http.MethodPost, "/auth/magic-link", strings.NewReader(`{"email":"stranger@example.com"}`))
	w := httptest.NewRecorder()
	handler.HandleRequest(w, req)

	// Same 200 {success:true} as the allowlisted case, with no side effects.
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(store.created) != 0 {
		t.Error("no token may be stored for a non-allowlisted email")
	}
	if len(mailer.urls) != 0 {
		t.Error("no email may be sent for a non-allowlisted email")
	}
}

func TestHandleRequest_InvalidEmail(t *testing.T) {
	handler := newMagicLinkTestHandler(&mockMagicLinkStore{}, &mockMailer{})

	req := httptest.NewRequest(http.MethodPost, "/auth/magic-link", strings.NewReader(`{"email":"not-an-email"}`))
	w := httptest.NewRecorder()
	handler.HandleRequest(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleRequest_StoreFailureStaysOpaque(t *testing.T) {
	store := &mockMagicLinkStore{createErr: errors.New("db down")}
	mailer := &mockMailer{}
	handler := newMagicLinkTestHandler(store, mailer)

	req := httptest.NewRequest(http.MethodPost, "/auth/magic-link", strings.NewReader(`{"email":"author@example.edu"}`))
	w := httptest.NewRecorder()
	handler.HandleRequest(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 despite storage failure, got %d", w.Code)
	}
	if len(mailer.urls) != 0 {
		t.Error("no email may be sent when the token was not stored")
	}
}

func TestHandleVerify_Success(t *testing.T) {
	raw := "raw-test-token"
	store := &mockMagicLinkStore{
		consumeFn: func(_ context.Context, tokenHash string, _ time.Time) (string, error) {
			if tokenHash != hashLinkToken(raw) {
				return "", types.NewAppError(types.ErrCodeAuthLinkInvalid, "invalid or expired login link", nil)
			}
			return "author@example.edu", nil
		},
	}
	handler := newMagicLinkTestHandler(store, &mockMailer{})

	req := httptest.NewRequest(http.MethodGet, "/auth/magic-link/verify?token="+raw+"&next=%2Flab%2Fposts", nil)
	w := httptest.NewRecorder()
	handler.HandleVerify(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/lab/posts" {
		t.Errorf("expected redirect to /lab/posts, got %q", loc)
	}

	cookie := findCookie(w, auth.SessionCookieName)
	if cookie == nil {
		t.Fatal("expected session cookie")
	}
	if !auth.VerifySession(cookie.Value, testSigningSecret, testSessionNow) {
		t.Error("issued cookie does not verify")
	}
}

func TestHandleVerify_InvalidToken(t *testing.T) {
	store := &mockMagicLinkStore{
		consumeFn: func(context.Context, string, time.Time) (string, error) {
			return "", types.NewAppError(types.ErrCodeAuthLinkInvalid, "invalid or expired login link", nil)
		},
	}
	handler := newMagicLinkTestHandler(store, &mockMailer{})

	req := httptest.NewRequest(http.MethodGet, "/auth/magic-link/verify?token=expired", nil)
	w := httptest.NewRecorder()
	handler.HandleVerify(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if findCookie(w, auth.SessionCookieName) != nil {
		t.Error("no cookie may be set for an invalid link")
	}
}

func TestHandleVerify_MissingToken(t *testing.T) {
	handler := newMagicLinkTestHandler(&mockMagicLinkStore{}, &mockMailer{})

	req := httptest.NewRequest(http.MethodGet, "/auth/magic-link/verify", nil)
	w := httptest.NewRecorder()
	handler.HandleVerify(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleVerify_UnsafeNextFallsBack(t *testing.T) {
	store := &mockMagicLinkStore{
		consumeFn: func(context.Context, string, time.Time) (string, error) {
			return "author@example.edu", nil
		},
	}
	handler := newMagicLinkTestHandler(store, &mockMailer{})

	for _, next := range []string{"https://evil.example", "//evil.example", "evil"} {
		req := httptest.NewRequest(http.MethodGet, "/auth/magic-link/verify?token=x&next="+url.QueryEscape(next), nil)
		w := httptest.NewRecorder()
		handler.HandleVerify(w, req)

		if loc := w.Header().Get("Location"); loc != "/lab" {
			t.Errorf("next=%q: expected redirect to /lab, got %q", next, loc)
		}
	}
}
