package core

import (
	"net/http"
	"net/url"
	"strings"

	"labsite/internal/auth"
)

// gateBypassPaths are always allowed through untouched, exact match.
var gateBypassPaths = map[string]bool{
	"/health":       true,
	"/openapi.json": true,
}

// gateBypassPrefixes are always allowed through untouched, prefix match.
var gateBypassPrefixes = []string{
	"/.well-known/",
	"/static/",
}

// gatePrivatePrefixes are the protected namespaces. Everything not bypassed
// and not private is public.
var gatePrivatePrefixes = []string{
	"/v1/lab",
	"/lab",
}

// EdgeGateMiddleware is the coarse first line of defense for the Lab
// namespaces. It checks only the PRESENCE of the session cookie, never its
// value; the cryptographic session check and the admin resolution run later
// in the request lifecycle (RequireAdmin), so passing the gate is never
// proof of admin rights.
//
// Private paths without the cookie are short-circuited before any route
// logic: API-style requests get a bare 401 JSON body, page-style requests
// get a 307 redirect to the login page carrying the original path and query
// as the return destination.
func (s *Server) EdgeGateMiddleware(next http.Handler) http.Handler {
	loginPath := s.loginPath()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if !s.gateApplies(path, loginPath) {
			next.ServeHTTP(w, r)
			return
		}

		if hasSessionCookie(r) {
			next.ServeHTTP(w, r)
			return
		}

		if isAPIStyle(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}

		dest := path
		if r.URL.RawQuery != "" {
			dest += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, loginPath+"?next="+url.QueryEscape(dest), http.StatusTemporaryRedirect)
	})
}

// gateApplies reports whether the path falls in the private partition.
// The login page itself is exempt even though it sits under a private
// prefix, otherwise anonymous visitors could never reach it.
func (s *Server) gateApplies(path, loginPath string) bool {
	if gateBypassPaths[path] {
		return false
	}
	for _, prefix := range gateBypassPrefixes {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	if path == loginPath {
		return false
	}
	for _, prefix := range gatePrivatePrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// loginPath returns the configured login page path.
func (s *Server) loginPath() string {
	if s.Config != nil && s.Config.Server.LabLoginPath != "" {
		return s.Config.Server.LabLoginPath
	}
	return "/lab/login"
}

// hasSessionCookie reports whether the request carries a non-empty session
// cookie. Presence only; the value is deliberately not inspected here.
func hasSessionCookie(r *http.Request) bool {
	c, err := r.Cookie(auth.SessionCookieName)
	return err == nil && c.Value != ""
}

// isAPIStyle reports whether a request should receive a JSON error instead
// of a login redirect.
func isAPIStyle(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/v1/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
