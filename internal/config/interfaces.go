package config

import "context"

// SecretProvider abstracts the retrieval of secrets to support both AWS SSM
// Parameter Store (production) and environment variables (local development).
type SecretProvider interface {
	// GetParametersBatch retrieves multiple secret values, keyed by the SSM
	// parameter path (or equivalent identifier). Implementations should batch
	// and retry internally to cope with API rate limits during cold starts.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
