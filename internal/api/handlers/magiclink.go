package handlers

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"labsite/internal/auth"
	"labsite/internal/core"
	"labsite/internal/types"
)

// defaultPostLoginPath is where a verified magic link lands when the request
// carried no explicit destination.
const defaultPostLoginPath = "/lab"

// --- Service Interfaces ---

// MagicLinkStore persists and consumes single-use login tokens. Tokens are
// stored hashed; Consume must atomically mark the token used and return the
// email it was issued for.
type MagicLinkStore interface {
	Create(ctx context.Context, token *types.MagicLinkToken) error
	Consume(ctx context.Context, tokenHash string, now time.Time) (string, error)
}

// MagicLinkMailer enqueues the login email carrying the raw link.
type MagicLinkMailer interface {
	PublishMagicLink(ctx context.Context, to, loginURL string) error
}

// --- Request/Response Models ---

// RequestMagicLinkRequest is the request body for POST /v1/auth/magic-link.
type RequestMagicLinkRequest struct {
	Email string `json:"email" validate:"required,email"`
	Next  string `json:"next,omitempty"`
}

// --- Handler ---

// MagicLinkHandler implements email-based login: requesting a single-use
// login link and verifying it into a session cookie.
type MagicLinkHandler struct {
	store      MagicLinkStore
	mailer     MagicLinkMailer
	allowlist  map[string]struct{}
	secret     types.SecretString
	sessionTTL time.Duration
	linkTTL    time.Duration
	siteURL    string
	clock      types.Clock
	cookies    CookieConfig
	validator  *core.Validator
	logger     *slog.Logger
}

// NewMagicLinkHandler creates a MagicLinkHandler with the provided dependencies.
func NewMagicLinkHandler(
	store MagicLinkStore,
	mailer MagicLinkMailer,
	allowlist map[string]struct{},
	secret types.SecretString,
	sessionTTL time.Duration,
	linkTTL time.Duration,
	siteURL string,
	clock types.Clock,
	cookies CookieConfig,
	v *core.Validator,
	l *slog.Logger,
) *MagicLinkHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if sessionTTL <= 0 {
		sessionTTL = auth.DefaultSessionTTL
	}
	if l == nil {
		l = slog.Default()
	}
	return &MagicLinkHandler{
		store:      store,
		mailer:     mailer,
		allowlist:  allowlist,
		secret:     secret,
		sessionTTL: sessionTTL,
		linkTTL:    linkTTL,
		siteURL:    strings.TrimRight(siteURL, "/"),
		clock:      clock,
		cookies:    cookies,
		validator:  v,
		logger:     l,
	}
}

// RegisterRoutes mounts the magic-link routes on the provided chi.Router.
func (h *MagicLinkHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/magic-link", h.HandleRequest)
	r.Get("/auth/magic-link/verify", h.HandleVerify)
}

// --- Handler Methods ---

// HandleRequest processes POST /v1/auth/magic-link.
//
// The response is 200 {success:true} for every well-formed email, whether or
// not a link was actually sent: only allowlisted addresses get a token, and
// the response must not reveal allowlist membership. Storage and mail
// failures are logged but likewise hidden from the caller.
func (h *MagicLinkHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	var req RequestMagicLinkRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	email := auth.CanonicalizeEmail(req.Email)
	if _, allowed := h.allowlist[email]; !allowed {
		h.logger.InfoContext(r.Context(), "magic link requested for non-allowlisted email")
		core.JSON(w, r, http.StatusOK, SessionResult{Success: true})
		return
	}

	raw, err := generateLinkToken()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to generate magic link token", "error", err)
		core.JSON(w, r, http.StatusOK, SessionResult{Success: true})
		return
	}

	now := h.clock.Now()
	token := &types.MagicLinkToken{
		TokenHash: hashLinkToken(raw),
		Email:     email,
		ExpiresAt: now.Add(h.linkTTL),
		CreatedAt: now,
	}
	if err := h.store.Create(r.Context(), token); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to store magic link token", "error", err)
		core.JSON(w, r, http.StatusOK, SessionResult{Success: true})
		return
	}

	if err := h.mailer.PublishMagicLink(r.Context(), email, h.loginURL(raw, req.Next)); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to enqueue magic link email", "error", err)
	}

	core.JSON(w, r, http.StatusOK, SessionResult{Success: true})
}

// HandleVerify processes GET /v1/auth/magic-link/verify?token=...&next=...
//
// Consuming the token is single-use: a token that is unknown, expired, or
// already consumed is rejected uniformly as an invalid link. On success a
// session cookie is issued and the browser is redirected to the requested
// Lab destination.
func (h *MagicLinkHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"token query parameter is required",
			nil,
		))
		return
	}

	email, err := h.store.Consume(r.Context(), hashLinkToken(raw), h.clock.Now())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	session, err := auth.IssueSession(h.secret.Unmask(), h.clock.Now(), h.sessionTTL)
	if err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeInternalConfig, "failed to issue session", err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookies.Name,
		Value:    session,
		MaxAge:   h.cookies.MaxAge,
		Path:     h.cookies.Path,
		Domain:   h.cookies.Domain,
		Secure:   h.cookies.Secure,
		HttpOnly: h.cookies.HttpOnly,
		SameSite: h.cookies.SameSite,
	})

	h.logger.InfoContext(r.Context(), "magic link consumed", "email", email)

	http.Redirect(w, r, safeNextPath(r.URL.Query().Get("next")), http.StatusTemporaryRedirect)
}

// --- Helpers ---

func (h *MagicLinkHandler) loginURL(rawToken, next string) string {
	u := h.siteURL + "/v1/auth/magic-link/verify?token=" + url.QueryEscape(rawToken)
	if next = safeNextPath(next); next != defaultPostLoginPath {
		u += "&next=" + url.QueryEscape(next)
	}
	return u
}

// safeNextPath restricts post-login redirects to same-site paths. Anything
// that is not a plain absolute path ("//evil.example", "https://...") falls
// back to the Lab root.
func safeNextPath(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return defaultPostLoginPath
	}
	return next
}

func generateLinkToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// hashLinkToken returns the hex SHA-256 of the raw token. Only the hash is
// ever stored or compared.
func hashLinkToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
