package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string categorizing application errors.
type ErrorCode string

// Error code constants. Handlers use these instead of hardcoded strings so
// that the HTTP mapping and the client contract stay consistent.
const (
	// Validation (400)
	ErrCodeValidationMissingField ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidSlug  ErrorCode = "validation_invalid_slug"
	ErrCodeValidationInvalidEmail ErrorCode = "validation_invalid_email"
	ErrCodeValidationFieldInvalid ErrorCode = "validation_invalid_field"

	// Auth (401)
	ErrCodeAuthRequired        ErrorCode = "auth_required"
	ErrCodeAuthInvalidPasscode ErrorCode = "auth_invalid_passcode"
	ErrCodeAuthSessionInvalid  ErrorCode = "auth_session_invalid"
	ErrCodeAuthSessionExpired  ErrorCode = "auth_session_expired"
	ErrCodeAuthLinkInvalid     ErrorCode = "auth_link_invalid"

	// Permission (403)
	ErrCodePermissionNotAdmin ErrorCode = "permission_not_admin"

	// Not Found (404)
	ErrCodeNotFoundPage  ErrorCode = "not_found_page"
	ErrCodeNotFoundPost  ErrorCode = "not_found_post"
	ErrCodeNotFoundDraft ErrorCode = "not_found_draft"

	// Conflict (409)
	ErrCodeConflictSlug ErrorCode = "conflict_slug_exists"

	// Internal/Upstream (500/502)
	ErrCodeInternalDB          ErrorCode = "internal_database_error"
	ErrCodeInternalConfig      ErrorCode = "internal_configuration_error"
	ErrCodeInternalUnexpected  ErrorCode = "internal_unexpected_error"
	ErrCodeUpstreamIdentity    ErrorCode = "upstream_identity_unavailable"
	ErrCodeUpstreamEmail       ErrorCode = "upstream_email_provider_unavailable"
	ErrCodeUpstreamCritique    ErrorCode = "upstream_critique_unavailable"
	ErrCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case strings.HasPrefix(s, "auth_"):
		return http.StatusUnauthorized
	case strings.HasPrefix(s, "permission_"):
		return http.StatusForbidden
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound
	case strings.HasPrefix(s, "conflict_"):
		return http.StatusConflict
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the standard application error type. All domain and handler
// errors are expressed as AppError to enable consistent error formatting,
// HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code for this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError carrying structured details
// (e.g. per-field validation failures).
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}
