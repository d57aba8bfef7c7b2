package auth

import (
	"encoding/json"
	"time"
)

// SessionCookieName is the HTTP-only cookie carrying the signed session token.
const SessionCookieName = "lab_session"

// DefaultSessionTTL is the lifetime of a new session (7 days).
const DefaultSessionTTL = 7 * 24 * time.Hour

// SessionPayload is the signed content of a Lab session cookie. It is created
// at successful login, never mutated, and treated as dead once Exp has passed
// or the signature fails.
type SessionPayload struct {
	// Authed is always true when issued.
	Authed bool `json:"authed"`
	// Exp is the absolute expiry in epoch milliseconds.
	Exp int64 `json:"exp"`
}

// IssueSession creates a signed session token expiring at now + ttl.
// Fails only when the signing secret is unconfigured.
func IssueSession(secret string, now time.Time, ttl time.Duration) (string, error) {
	payload := SessionPayload{
		Authed: true,
		Exp:    now.Add(ttl).UnixMilli(),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return SignToken(raw, secret)
}

// VerifySession validates a session cookie value. It returns false if the
// cookie value is empty, the secret is unconfigured, the signature fails,
// the payload does not parse as a SessionPayload, or the token has expired.
//
// The expiry comparison is strict (now < exp): a token read at the exact
// millisecond of expiry is treated as expired. This boundary is deliberate
// and covered by tests.
func VerifySession(cookieValue, secret string, now time.Time) bool {
	raw, ok := VerifyToken(cookieValue, secret)
	if !ok {
		return false
	}
	var payload SessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return false
	}
	if !payload.Authed {
		return false
	}
	return now.UnixMilli() < payload.Exp
}
