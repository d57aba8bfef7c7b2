package external

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"labsite/internal/types"
)

// stubProviderName is reported in responses so clients can tell canned
// feedback from a real model's output.
const stubProviderName = "stub"

// StubCritiqueProvider returns deterministic canned feedback derived from
// simple text statistics. It keeps the Lab critique endpoint's contract
// stable until a real model-backed provider is wired in.
type StubCritiqueProvider struct {
	logger *slog.Logger
}

// NewStubCritiqueProvider creates a StubCritiqueProvider.
func NewStubCritiqueProvider(logger *slog.Logger) *StubCritiqueProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &StubCritiqueProvider{logger: logger}
}

// Critique returns canned feedback. Empty text is rejected; everything else
// succeeds so callers can build against the response shape.
func (p *StubCritiqueProvider) Critique(ctx context.Context, req types.CritiqueRequest) (*types.Critique, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "text is required", nil)
	}

	words := len(strings.Fields(text))
	p.logger.Debug("critique requested",
		"focus", req.Focus,
		"words", words,
		"chars", utf8.RuneCountInString(text),
	)

	c := &types.Critique{
		Summary: "Automated review is not available yet; this is placeholder feedback.",
		Strengths: []string{
			"The draft has a clear subject and enough material to review.",
		},
		Weaknesses: []string{
			"No substantive analysis was performed on this draft.",
		},
		Suggestions: []string{
			"Re-run the critique once a review provider is configured.",
		},
		Provider: stubProviderName,
	}

	if words < 100 {
		c.Suggestions = append(c.Suggestions, "Consider expanding the draft; it is under 100 words.")
	}
	if req.Focus != "" {
		c.Summary += " Requested focus: " + req.Focus + "."
	}

	return c, nil
}

var _ CritiqueProvider = (*StubCritiqueProvider)(nil)
