// Package auth implements the Lab authentication model: the signed session
// token codec, the session verifier, the passcode check, and the admin
// resolver that composes session state with the hosted identity lookup and
// the configured allowlist.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"labsite/internal/types"
)

// SignToken encodes the payload as base64url and appends a hex-encoded
// HMAC-SHA256 signature over the raw payload bytes, separated by a dot.
// Signing is deterministic: the same payload and secret always yield the
// same token.
//
// The payload is NOT encrypted -- only integrity is guaranteed, and the
// holder can read it. Never place secrets in the payload.
//
// An empty secret is a configuration error, not a runtime condition to
// recover from.
func SignToken(payload []byte, secret string) (string, error) {
	if secret == "" {
		return "", types.NewAppError(types.ErrCodeInternalConfig, "session signing secret is not configured", nil)
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	sig := hex.EncodeToString(mac.Sum(nil))
	return base64.RawURLEncoding.EncodeToString(payload) + "." + sig, nil
}

// VerifyToken checks the token's signature against a fresh computation over
// the received payload bytes and returns the payload on success.
//
// Verification failure is an expected, frequent outcome (stale or foreign
// cookies), so this is a sentinel-return design: the second result is false
// for a malformed token, a signature mismatch, or a missing secret. Errors
// are reserved for genuine misconfiguration at signing time.
func VerifyToken(token, secret string) ([]byte, bool) {
	if secret == "" || token == "" {
		return nil, false
	}
	dot := strings.LastIndexByte(token, '.')
	if dot < 0 {
		return nil, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(token[:dot])
	if err != nil {
		return nil, false
	}
	sig, err := hex.DecodeString(token[dot+1:])
	if err != nil {
		return nil, false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return nil, false
	}
	return payload, true
}
