// Package handlers contains the HTTP handler implementations for the Labsite API.
//
// Handlers depend on locally defined interfaces rather than concrete
// repositories or clients, following the injection pattern used across the
// package: each file declares the narrow contracts it needs, a constructor
// wires them, and RegisterRoutes mounts the routes on a chi.Router.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"labsite/internal/auth"
	"labsite/internal/core"
	"labsite/internal/types"
)

// --- Cookie Configuration ---

// CookieConfig defines security attributes for the Lab session cookie.
type CookieConfig struct {
	Name     string
	Domain   string
	Secure   bool
	HttpOnly bool
	SameSite http.SameSite
	MaxAge   int // seconds
	Path     string
}

// DefaultCookieConfig returns the default session cookie configuration:
// HttpOnly, Secure, SameSite=Lax, path /, lifetime matching the session TTL.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:     auth.SessionCookieName,
		Domain:   "",
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(auth.DefaultSessionTTL.Seconds()),
		Path:     "/",
	}
}

// --- Request/Response Models ---

// CreateSessionRequest is the request body for POST /v1/auth/session.
type CreateSessionRequest struct {
	Passcode string `json:"passcode" validate:"required"`
}

// SessionResult reports the outcome of a login or logout call.
type SessionResult struct {
	Success bool `json:"success"`
}

// SessionStatus is the response body for GET /v1/auth/session.
type SessionStatus struct {
	Authenticated bool `json:"authenticated"`
}

// --- Handler ---

// SessionHandler implements the passcode login surface: session issuance,
// the session check used by the Lab shell, and logout.
type SessionHandler struct {
	verifier  *auth.PasscodeVerifier
	secret    types.SecretString
	ttl       time.Duration
	clock     types.Clock
	cookies   CookieConfig
	validator *core.Validator
	logger    *slog.Logger
}

// NewSessionHandler creates a SessionHandler with the provided dependencies.
func NewSessionHandler(
	verifier *auth.PasscodeVerifier,
	secret types.SecretString,
	ttl time.Duration,
	clock types.Clock,
	cookies CookieConfig,
	v *core.Validator,
	l *slog.Logger,
) *SessionHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if ttl <= 0 {
		ttl = auth.DefaultSessionTTL
	}
	if l == nil {
		l = slog.Default()
	}
	return &SessionHandler{
		verifier:  verifier,
		secret:    secret,
		ttl:       ttl,
		clock:     clock,
		cookies:   cookies,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts the session routes on the provided chi.Router.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/session", h.HandleCreate)
	r.Get("/auth/session", h.HandleStatus)
	r.Delete("/auth/session", h.HandleLogout)
	r.Post("/auth/logout", h.HandleLogout)
}

// --- Handler Methods ---

// HandleCreate processes POST /v1/auth/session.
//
// A matching passcode issues a signed session cookie and returns
// {success:true}. A mismatch returns 401 {success:false} with no cookie.
// Missing signing secret or passcode configuration is a 500: issuance
// cannot safely continue without them.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	if h.secret.Unmask() == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeInternalConfig,
			"session signing secret is not configured",
			nil,
		))
		return
	}

	if err := h.verifier.Verify(req.Passcode); err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) && appErr.Code == types.ErrCodeAuthInvalidPasscode {
			core.JSON(w, r, http.StatusUnauthorized, SessionResult{Success: false})
			return
		}
		core.Error(w, r, err)
		return
	}

	token, err := auth.IssueSession(h.secret.Unmask(), h.clock.Now(), h.ttl)
	if err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeInternalConfig, "failed to issue session", err))
		return
	}

	h.setSessionCookie(w, token)
	core.JSON(w, r, http.StatusOK, SessionResult{Success: true})
}

// HandleStatus processes GET /v1/auth/session. Absence of the cookie and a
// failed verification are indistinguishable in the response: both are simply
// {authenticated:false}.
func (h *SessionHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	authenticated := false
	if cookie, err := r.Cookie(h.cookies.Name); err == nil {
		authenticated = auth.VerifySession(cookie.Value, h.secret.Unmask(), h.clock.Now())
	}
	core.JSON(w, r, http.StatusOK, SessionStatus{Authenticated: authenticated})
}

// HandleLogout clears the session cookie. Logout always succeeds: there is
// no server-side session state to invalidate, so a missing or garbage cookie
// still yields {success:true}.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	core.JSON(w, r, http.StatusOK, SessionResult{Success: true})
}

// --- Helpers ---

func (h *SessionHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookies.Name,
		Value:    token,
		MaxAge:   h.cookies.MaxAge,
		Path:     h.cookies.Path,
		Domain:   h.cookies.Domain,
		Secure:   h.cookies.Secure,
		HttpOnly: h.cookies.HttpOnly,
		SameSite: h.cookies.SameSite,
	})
}

// clearSessionCookie writes a cookie with Max-Age=-1 and Expires=epoch to
// force immediate browser deletion.
func (h *SessionHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookies.Name,
		Value:    "",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		Path:     h.cookies.Path,
		Domain:   h.cookies.Domain,
		Secure:   h.cookies.Secure,
		HttpOnly: h.cookies.HttpOnly,
		SameSite: h.cookies.SameSite,
	})
}
