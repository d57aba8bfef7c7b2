package core

import (
	"net/http"

	"labsite/internal/auth"
	"labsite/internal/types"
)

// ResolveAdmin runs the authoritative per-request authorization pipeline:
// cryptographic session verification followed by identity and allowlist
// resolution. The result is never cached between requests.
//
// The edge gate may already have passed this request on cookie presence
// alone; that pass carries no authority, so the full pipeline always runs
// here.
func (s *Server) ResolveAdmin(r *http.Request) types.AdminState {
	sessionValid := false
	if c, err := r.Cookie(auth.SessionCookieName); err == nil {
		sessionValid = auth.VerifySession(c.Value, s.Config.Lab.SessionSecret.Unmask(), s.now())
	}

	// No resolver wired: fail closed. An invalid session is still reported
	// as not_authenticated; allowlist_missing always implies an
	// authenticated caller.
	if s.Admin == nil {
		if !sessionValid {
			return types.AdminState{Reason: types.AdminReasonNotAuthenticated}
		}
		return types.AdminState{
			Authenticated: true,
			Reason:        types.AdminReasonAllowlistMissing,
		}
	}

	// Expose the identity provider token to the lookup, if present.
	ctx := r.Context()
	if c, err := r.Cookie(s.identityCookieName()); err == nil && c.Value != "" {
		ctx = types.WithIdentityToken(ctx, c.Value)
	}
	return s.Admin.Resolve(ctx, sessionValid)
}

// identityCookieName returns the configured identity provider cookie name.
func (s *Server) identityCookieName() string {
	if s.Config != nil && s.Config.Identity.AccessTokenCookie != "" {
		return s.Config.Identity.AccessTokenCookie
	}
	return "sb-access-token"
}

// RequireAdmin resolves the caller's admin state and maps it to a guard
// decision:
//   - not authenticated: 401 Unauthorized
//   - authenticated but not admin: 403 Forbidden
//   - admin: nil error; callers proceed with the returned state
func (s *Server) RequireAdmin(r *http.Request) (types.AdminState, *types.AppError) {
	state := s.ResolveAdmin(r)

	if !state.Authenticated {
		return state, types.NewAppError(types.ErrCodeAuthRequired, "Unauthorized", nil)
	}
	if !state.IsAdmin {
		return state, types.NewAppError(types.ErrCodePermissionNotAdmin, "Not authorized", nil)
	}
	return state, nil
}

// RequireAdminMiddleware wraps a route subtree so only admins reach it. On
// success the resolved AdminState is injected into the request context for
// downstream handlers.
func (s *Server) RequireAdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state, appErr := s.RequireAdmin(r)
		if appErr != nil {
			Error(w, r, appErr)
			return
		}

		ctx := types.WithAdminState(r.Context(), state)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
