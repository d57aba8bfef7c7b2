package external

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"labsite/internal/types"
)

func magicLinkInput() types.SendInput {
	return types.SendInput{
		To:       "me@example.edu",
		From:     types.EmailAddress{Address: "lab@labsite.dev", Name: "Labsite"},
		Subject:  "Your login link",
		TextBody: "Open this link to sign in.",
		HTMLBody: "<p>Open this link to sign in.</p>",
	}
}

func TestSendGridClient_Send_Success(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotPayload)
		w.Header().Set("X-Message-Id", "msg_123")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewSendGridClient(&http.Client{}, SendGridClientConfig{
		APIKey:  "sg-key",
		BaseURL: server.URL,
	})

	msgID, err := client.Send(context.Background(), magicLinkInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgID != "msg_123" {
		t.Errorf("unexpected message ID %q", msgID)
	}
	if gotAuth != "Bearer sg-key" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotPayload["subject"] != "Your login link" {
		t.Errorf("unexpected payload subject: %v", gotPayload["subject"])
	}
	content, ok := gotPayload["content"].([]any)
	if !ok || len(content) != 2 {
		t.Fatalf("expected two content parts, got %v", gotPayload["content"])
	}
	first, _ := content[0].(map[string]any)
	if first["type"] != "text/plain" {
		t.Errorf("expected text/plain first, got %v", first["type"])
	}
}

func TestSendGridClient_Send_BadRequest_MapsToEmailError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"does not contain a valid address"}]}`))
	}))
	defer server.Close()

	client := NewSendGridClient(&http.Client{}, SendGridClientConfig{
		APIKey:  "sg-key",
		BaseURL: server.URL,
	})

	_, err := client.Send(context.Background(), magicLinkInput())
	if err == nil {
		t.Fatal("expected error")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T", err)
	}
	if appErr.Code != types.ErrCodeUpstreamEmail {
		t.Errorf("expected code %s, got %s", types.ErrCodeUpstreamEmail, appErr.Code)
	}
}
