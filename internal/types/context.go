package types

import "context"

// Context keys
type contextKey string

const (
	requestIDKey     contextKey = "request_id"
	adminStateKey    contextKey = "admin_state"
	identityTokenKey contextKey = "identity_token"
)

// WithRequestID stores the request correlation ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request correlation ID from the context.
// Returns the empty string if none is set.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithAdminState stores the resolved AdminState in the context. Set by the
// admin route guard after a successful resolution so handlers can read the
// caller's email without re-resolving.
func WithAdminState(ctx context.Context, state AdminState) context.Context {
	return context.WithValue(ctx, adminStateKey, state)
}

// GetAdminState retrieves the AdminState from the context.
func GetAdminState(ctx context.Context) (AdminState, bool) {
	state, ok := ctx.Value(adminStateKey).(AdminState)
	return state, ok
}

// WithIdentityToken stores the caller's identity provider access token
// (read from its cookie) in the context for the identity lookup.
func WithIdentityToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, identityTokenKey, token)
}

// GetIdentityToken retrieves the identity provider access token from the
// context. Returns the empty string if none is set.
func GetIdentityToken(ctx context.Context) string {
	token, _ := ctx.Value(identityTokenKey).(string)
	return token
}
