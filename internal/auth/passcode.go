package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"

	"labsite/internal/types"
)

// PasscodeVerifier checks the Lab login passcode against the configured
// value. A bcrypt hash takes precedence over a plaintext passcode when both
// are configured; the plaintext comparison is constant-time.
type PasscodeVerifier struct {
	plain types.SecretString
	hash  types.SecretString
}

// NewPasscodeVerifier creates a PasscodeVerifier from the configured
// plaintext passcode and/or bcrypt hash.
func NewPasscodeVerifier(plain, hash types.SecretString) *PasscodeVerifier {
	return &PasscodeVerifier{plain: plain, hash: hash}
}

// Configured reports whether any passcode value is configured. An
// unconfigured verifier must fail closed: the issuance endpoint surfaces
// this as a 500, every other path simply denies.
func (v *PasscodeVerifier) Configured() bool {
	return v.hash.Unmask() != "" || v.plain.Unmask() != ""
}

// Verify checks the submitted passcode. Returns nil on match, an AppError
// with code auth_invalid_passcode on mismatch, and internal_configuration_error
// when no passcode is configured.
func (v *PasscodeVerifier) Verify(passcode string) error {
	if !v.Configured() {
		return types.NewAppError(types.ErrCodeInternalConfig, "lab passcode is not configured", nil)
	}

	if h := v.hash.Unmask(); h != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(h), []byte(passcode)); err != nil {
			return types.NewAppError(types.ErrCodeAuthInvalidPasscode, "invalid passcode", nil)
		}
		return nil
	}

	if subtle.ConstantTimeCompare([]byte(v.plain.Unmask()), []byte(passcode)) != 1 {
		return types.NewAppError(types.ErrCodeAuthInvalidPasscode, "invalid passcode", nil)
	}
	return nil
}
