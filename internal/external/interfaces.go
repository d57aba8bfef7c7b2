package external

import (
	"context"

	"labsite/internal/types"
)

// EmailProvider abstracts the transactional email vendor so the worker can
// be tested with a fake and the vendor swapped without touching callers.
type EmailProvider interface {
	// Send delivers a single email and returns the provider message ID.
	Send(ctx context.Context, input types.SendInput) (string, error)
}

// CritiqueProvider produces feedback for a manuscript draft. The production
// AI-backed provider is not wired yet; the stub returns deterministic canned
// feedback so the Lab endpoint has a stable contract.
type CritiqueProvider interface {
	Critique(ctx context.Context, req types.CritiqueRequest) (*types.Critique, error)
}
