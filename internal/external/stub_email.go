package external

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"labsite/internal/types"
)

// StubEmailProvider implements EmailProvider by logging calls and returning
// a fake message ID. Used when SENDGRID_API_KEY is not set (local/dev mode).
// The body is never logged; it may contain a login link.
type StubEmailProvider struct {
	logger *slog.Logger
}

// NewStubEmailProvider creates a new StubEmailProvider.
func NewStubEmailProvider(logger *slog.Logger) *StubEmailProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &StubEmailProvider{logger: logger}
}

func (s *StubEmailProvider) Send(ctx context.Context, input types.SendInput) (string, error) {
	s.logger.InfoContext(ctx, "stub: Send email called",
		"to", input.To,
		"subject", input.Subject,
		"from", input.From.Address,
	)
	return fmt.Sprintf("msg_stub_%s", uuid.New().String()), nil
}

// Compile-time assertion that StubEmailProvider satisfies EmailProvider.
var _ EmailProvider = (*StubEmailProvider)(nil)
