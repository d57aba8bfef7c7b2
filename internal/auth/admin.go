package auth

import (
	"context"
	"log/slog"
	"strings"

	"labsite/internal/types"
)

// IdentityLookup resolves the current request's external identity to an
// email address. A lookup that fails or yields no identity returns an empty
// string; the error is informational only and never propagated to callers.
type IdentityLookup func(ctx context.Context) (string, error)

// CanonicalizeEmail normalizes email addresses for allowlist membership
// checks: strings.ToLower(strings.TrimSpace(email)).
func CanonicalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// BuildAllowlist merges one or more comma-joined email lists into a
// normalized, de-duplicated set. Empty entries are skipped.
func BuildAllowlist(values ...string) map[string]struct{} {
	allowlist := make(map[string]struct{})
	for _, v := range values {
		for _, entry := range strings.Split(v, ",") {
			email := CanonicalizeEmail(entry)
			if email == "" {
				continue
			}
			allowlist[email] = struct{}{}
		}
	}
	return allowlist
}

// AdminResolver composes session verification with the external identity
// lookup and the static allowlist to yield a tri-state authorization result.
// The allowlist is read-only, process-wide configuration; it is consulted on
// every check and never cached alongside a decision.
type AdminResolver struct {
	allowlist map[string]struct{}
	lookup    IdentityLookup
	logger    *slog.Logger
}

// NewAdminResolver creates an AdminResolver. lookup may be nil, in which
// case every authenticated caller resolves as identity_missing.
func NewAdminResolver(allowlist map[string]struct{}, lookup IdentityLookup, logger *slog.Logger) *AdminResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminResolver{
		allowlist: allowlist,
		lookup:    lookup,
		logger:    logger,
	}
}

// Resolve produces the AdminState for a request whose session validity has
// already been established. The step order is part of the contract -- it
// determines which reason is attributed:
//
//  1. Invalid session: not_authenticated. The identity lookup is never
//     performed (no unnecessary external calls).
//  2. Empty allowlist: allowlist_missing. Fail closed -- an unconfigured
//     allowlist must never implicitly grant admin to everyone.
//  3. Identity lookup fails or yields no email: identity_missing. Lookup
//     failures are logged and swallowed, never propagated.
//  4. Normalized email not in the allowlist: email_not_allowed.
//     Member: ok, IsAdmin true.
func (r *AdminResolver) Resolve(ctx context.Context, sessionValid bool) types.AdminState {
	return ResolveAdminState(ctx, sessionValid, r.lookup, r.allowlist, r.logger)
}

// ResolveAdminState is the allocation-free functional core of the resolver.
// See AdminResolver.Resolve for the step-order contract.
func ResolveAdminState(ctx context.Context, sessionValid bool, lookup IdentityLookup, allowlist map[string]struct{}, logger *slog.Logger) types.AdminState {
	if !sessionValid {
		return types.AdminState{Reason: types.AdminReasonNotAuthenticated}
	}

	if len(allowlist) == 0 {
		return types.AdminState{
			Authenticated: true,
			Reason:        types.AdminReasonAllowlistMissing,
		}
	}

	var email string
	if lookup != nil {
		var err error
		email, err = lookup(ctx)
		if err != nil {
			if logger != nil {
				logger.Warn("identity lookup failed", "error", err)
			}
			email = ""
		}
	}
	if email == "" {
		return types.AdminState{
			Authenticated: true,
			Reason:        types.AdminReasonIdentityMissing,
		}
	}

	email = CanonicalizeEmail(email)
	if _, ok := allowlist[email]; !ok {
		return types.AdminState{
			Authenticated: true,
			Email:         email,
			Reason:        types.AdminReasonEmailNotAllowed,
		}
	}

	return types.AdminState{
		Authenticated: true,
		IsAdmin:       true,
		Email:         email,
		Reason:        types.AdminReasonOK,
	}
}
