package external

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"labsite/internal/config"
	"labsite/internal/types"
)

// IdentityClient resolves the caller's email from the hosted identity
// provider (Supabase Auth). The caller's provider access token travels in a
// cookie and is exposed to this client through the request context.
//
// Lookup satisfies auth.IdentityLookup; failures are returned as errors and
// the admin resolver treats them as "no identity", never as a hard failure.
type IdentityClient struct {
	base    *BaseClient
	baseURL string
	anonKey string
	logger  *slog.Logger
}

// NewIdentityClient creates an IdentityClient from the identity configuration.
func NewIdentityClient(httpClient *http.Client, cfg config.IdentityConfig, logger *slog.Logger) *IdentityClient {
	if logger == nil {
		logger = slog.Default()
	}

	base := NewBaseClient(
		httpClient,
		"identity",
		RetryPolicy{
			MaxRetries: 1,
			MinWait:    200 * time.Millisecond,
			MaxWait:    1 * time.Second,
		},
		"labsite/1.0",
	)

	return &IdentityClient{
		base:    base,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		anonKey: cfg.AnonKey.Unmask(),
		logger:  logger,
	}
}

// identityUserResponse is the subset of the provider's GET /auth/v1/user
// response we care about.
type identityUserResponse struct {
	Email string `json:"email"`
}

// Lookup returns the email of the identity behind the access token in ctx.
// An absent token, an unusable provider, or a token the provider rejects all
// come back as errors; the empty-email case is reported as an error too so
// callers have a single "no identity" signal.
func (c *IdentityClient) Lookup(ctx context.Context) (string, error) {
	token := types.GetIdentityToken(ctx)
	if token == "" {
		return "", types.NewAppError(types.ErrCodeUpstreamIdentity, "no identity token present", nil)
	}
	if c.baseURL == "" {
		return "", types.NewAppError(types.ErrCodeUpstreamIdentity, "identity provider not configured", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamIdentity, "failed to build identity request", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.base.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", types.NewAppError(
			types.ErrCodeUpstreamIdentity,
			fmt.Sprintf("identity provider returned %d", resp.StatusCode),
			nil,
		)
	}

	var user identityUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamIdentity, "failed to decode identity response", err)
	}
	if user.Email == "" {
		return "", types.NewAppError(types.ErrCodeUpstreamIdentity, "identity has no email", nil)
	}
	return user.Email, nil
}
