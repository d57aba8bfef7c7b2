package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"labsite/internal/auth"
	"labsite/internal/core"
	"labsite/internal/types"
)

const (
	testSigningSecret = "test-signing-secret"
	testPasscode      = "open-sesame"
)

var testSessionNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newSessionTestHandler(secret string) *SessionHandler {
	return NewSessionHandler(
		auth.NewPasscodeVerifier(types.SecretString(testPasscode), ""),
		types.SecretString(secret),
		auth.DefaultSessionTTL,
		types.FixedClock{T: testSessionNow},
		DefaultCookieConfig(),
		core.NewValidator(nil),
		nil,
	)
}

// findCookie searches the response recorder's Set-Cookie headers for the named cookie.
func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestHandleCreate_SuccessIssuesVerifiableSession(t *testing.T) {
	handler := newSessionTestHandler(testSigningSecret)

	req := httptest.NewRequest(http.MethodPost, "/auth/session", strings.NewReader(`{"passcode":"open-sesame"}`))
	w := httptest.NewRecorder()
	handler.HandleCreate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result SessionResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !result.Success {
		t.Error("expected success=true")
	}

	cookie := findCookie(w, auth.SessionCookieName)
	if cookie == nil {
		t.Fatal("expected session cookie to be set")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Error("session cookie must be SameSite=Lax")
	}
	if cookie.Path != "/" {
		t.Errorf("session cookie path must be /, got %q", cookie.Path)
	}

	// The cookie issued by login must immediately pass the session check.
	check := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	check.AddCookie(cookie)
	cw := httptest.NewRecorder()
	handler.HandleStatus(cw, check)

	var status SessionStatus
	if err := json.Unmarshal(cw.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if !status.Authenticated {
		t.Error("expected authenticated=true right after login")
	}
}

func TestHandleCreate_WrongPasscode(t *testing.T) {
	handler := newSessionTestHandler(testSigningSecret)

	req := httptest.NewRequest(http.MethodPost, "/auth/session", strings.NewReader(`{"passcode":"wrong"}`))
	w := httptest.NewRecorder()
	handler.HandleCreate(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	var result SessionResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Success {
		t.Error("expected success=false")
	}
	if findCookie(w, auth.SessionCookieName) != nil {
		t.Error("no cookie may be set on a failed login")
	}
}

func TestHandleCreate_MissingPasscodeField(t *testing.T) {
	handler := newSessionTestHandler(testSigningSecret)

	req := httptest.NewRequest(http.MethodPost, "/auth/session", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	handler.HandleCreate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleCreate_MissingSigningSecret(t *testing.T) {
	handler := newSessionTestHandler("")

	req := httptest.NewRequest(http.MethodPost, "/auth/session", strings.NewReader(`{"passcode":"open-sesame"}`))
	w := httptest.NewRecorder()
	handler.HandleCreate(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 when signing secret is unconfigured, got %d", w.Code)
	}
}

func TestHandleCreate_UnconfiguredPasscode(t *testing.T) {
	handler := NewSessionHandler(
		auth.NewPasscodeVerifier("", ""),
		types.SecretString(testSigningSecret),
		auth.DefaultSessionTTL,
		types.FixedClock{T: testSessionNow},
		DefaultCookieConfig(),
		core.NewValidator(nil),
		nil,
	)

	req := httptest.NewRequest(http.MethodPost, "/auth/session", strings.NewReader(`{"passcode":"anything"}`))
	w := httptest.NewRecorder()
	handler.HandleCreate(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 when passcode is unconfigured, got %d", w.Code)
	}
}

func TestHandleStatus_NoCookie(t *testing.T) {
	handler := newSessionTestHandler(testSigningSecret)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	w := httptest.NewRecorder()
	handler.HandleStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var status SessionStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if status.Authenticated {
		t.Error("expected authenticated=false without a cookie")
	}
}

func TestHandleStatus_SecretRotationInvalidatesSession(t *testing.T) {
	issuer := newSessionTestHandler("s1")

	req := httptest.NewRequest(http.MethodPost, "/auth/session", strings.NewReader(`{"passcode":"open-sesame"}`))
	w := httptest.NewRecorder()
	issuer.HandleCreate(w, req)

	cookie := findCookie(w, auth.SessionCookieName)
	if cookie == nil {
		t.Fatal("expected session cookie")
	}

	// After a secret rotation the same cookie no longer verifies.
	rotated := newSessionTestHandler("s2")
	check := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	check.AddCookie(cookie)
	cw := httptest.NewRecorder()
	rotated.HandleStatus(cw, check)

	var status SessionStatus
	if err := json.Unmarshal(cw.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if status.Authenticated {
		t.Error("expected authenticated=false after secret rotation")
	}
}

func TestHandleStatus_ExpiredSession(t *testing.T) {
	issuer := newSessionTestHandler(testSigningSecret)

	req := httptest.NewRequest(http.MethodPost, "/auth/session", strings.NewReader(`{"passcode":"open-sesame"}`))
	w := httptest.NewRecorder()
	issuer.HandleCreate(w, req)

	cookie := findCookie(w, auth.SessionCookieName)
	if cookie == nil {
		t.Fatal("expected session cookie")
	}

	// Same secret, but the clock has moved past the session TTL.
	later := NewSessionHandler(
		auth.NewPasscodeVerifier(types.SecretString(testPasscode), ""),
		types.SecretString(testSigningSecret),
		auth.DefaultSessionTTL,
		types.FixedClock{T: testSessionNow.Add(auth.DefaultSessionTTL)},
		DefaultCookieConfig(),
		core.NewValidator(nil),
		nil,
	)

	check := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	check.AddCookie(cookie)
	cw := httptest.NewRecorder()
	later.HandleStatus(cw, check)

	var status SessionStatus
	if err := json.Unmarshal(cw.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if status.Authenticated {
		t.Error("expected authenticated=false for an expired session")
	}
}

func TestHandleLogout_ClearsCookie(t *testing.T) {
	handler := newSessionTestHandler(testSigningSecret)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()
	handler.HandleLogout(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var result SessionResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !result.Success {
		t.Error("expected success=true")
	}

	cookie := findCookie(w, auth.SessionCookieName)
	if cookie == nil {
		t.Fatal("expected a clearing Set-Cookie header")
	}
	if cookie.Value != "" {
		t.Errorf("expected empty cookie value, got %q", cookie.Value)
	}
	if cookie.MaxAge != -1 {
		t.Errorf("expected MaxAge=-1, got %d", cookie.MaxAge)
	}
}
