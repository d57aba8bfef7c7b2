package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"labsite/internal/types"
)

// fakeProvider records Send calls and returns a configurable error.
type fakeProvider struct {
	inputs []types.SendInput
	err    error
}

func (f *fakeProvider) Send(_ context.Context, input types.SendInput) (string, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return "", f.err
	}
	return "msg_test_1", nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func magicLinkRecord(t *testing.T, messageID, to, loginURL string) events.SQSMessage {
	t.Helper()
	body, err := json.Marshal(types.EmailMessage{
		MessageID: messageID,
		Kind:      types.EmailKindMagicLink,
		To:        to,
		Data:      map[string]string{"login_url": loginURL},
	})
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	return events.SQSMessage{MessageId: messageID, Body: string(body)}
}

func TestHandle_DeliversMagicLinkEmail(t *testing.T) {
	provider := &fakeProvider{}
	h := &Handler{
		provider: provider,
		from:     types.EmailAddress{Address: "lab@labsite.dev", Name: "Labsite"},
		logger:   discardLogger(),
	}

	loginURL := "https://site.example/v1/auth/magic-link/verify?token=abc123"
	event := events.SQSEvent{Records: []events.SQSMessage{
		magicLinkRecord(t, "m1", "author@example.edu", loginURL),
	}}

	resp, err := h.Handle(context.Background(), event)
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(resp.BatchItemFailures) != 0 {
		t.Fatalf("expected no batch failures, got %d", len(resp.BatchItemFailures))
	}
	if len(provider.inputs) != 1 {
		t.Fatalf("expected 1 send, got %d", len(provider.inputs))
	}

	sent := provider.inputs[0]
	if sent.To != "author@example.edu" {
		t.Errorf("To = %q, want author@example.edu", sent.To)
	}
	if sent.From.Address != "lab@labsite.dev" {
		t.Errorf("From = %q, want lab@labsite.dev", sent.From.Address)
	}
	if !strings.Contains(sent.TextBody, loginURL) {
		t.Errorf("text body does not contain the login URL")
	}
	if !strings.Contains(sent.HTMLBody, `href="`+loginURL+`"`) {
		t.Errorf("HTML body does not link the login URL")
	}
}

func TestHandle_ProviderFailureReportsBatchItemFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("sendgrid unavailable")}
	h := &Handler{
		provider: provider,
		from:     types.EmailAddress{Address: "lab@labsite.dev"},
		logger:   discardLogger(),
	}

	event := events.SQSEvent{Records: []events.SQSMessage{
		magicLinkRecord(t, "m1", "author@example.edu", "https://site.example/v1/auth/magic-link/verify?token=t"),
		magicLinkRecord(t, "m2", "other@example.edu", "https://site.example/v1/auth/magic-link/verify?token=u"),
	}}

	resp, err := h.Handle(context.Background(), event)
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(resp.BatchItemFailures) != 2 {
		t.Fatalf("expected 2 batch failures, got %d", len(resp.BatchItemFailures))
	}
	if resp.BatchItemFailures[0].ItemIdentifier != "m1" {
		t.Errorf("first failure = %q, want m1", resp.BatchItemFailures[0].ItemIdentifier)
	}
}

func TestHandle_MalformedBodyIsAcked(t *testing.T) {
	provider := &fakeProvider{}
	h := &Handler{
		provider: provider,
		from:     types.EmailAddress{Address: "lab@labsite.dev"},
		logger:   discardLogger(),
	}

	event := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: "{not json"},
	}}

	resp, err := h.Handle(context.Background(), event)
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(resp.BatchItemFailures) != 0 {
		t.Fatalf("malformed body should be acked, got %d failures", len(resp.BatchItemFailures))
	}
	if len(provider.inputs) != 0 {
		t.Fatalf("provider should not be called for malformed body")
	}
}

func TestRenderEmail_UnknownKindIsAnError(t *testing.T) {
	_, err := renderEmail(types.EmailMessage{Kind: "newsletter"}, types.EmailAddress{})
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestRenderEmail_MissingLoginURLIsAnError(t *testing.T) {
	_, err := renderEmail(types.EmailMessage{
		Kind: types.EmailKindMagicLink,
		Data: map[string]string{},
	}, types.EmailAddress{})
	if err == nil {
		t.Fatal("expected error for missing login_url")
	}
}
