package types

import "time"

// EmailKind identifies the template used by the email worker.
type EmailKind string

const (
	// EmailKindMagicLink is the single-use login link email.
	EmailKindMagicLink EmailKind = "magic_link"
)

// EmailMessage is the payload published to the email queue and consumed by
// the email worker. The worker renders the template for Kind and delivers
// via the configured provider.
type EmailMessage struct {
	MessageID string            `json:"message_id"`
	Kind      EmailKind         `json:"kind"`
	To        string            `json:"to"`
	Data      map[string]string `json:"data"`
	EnqueuedAt time.Time        `json:"enqueued_at"`
}

// EmailAddress is a sender or recipient address with an optional display name.
type EmailAddress struct {
	Address string
	Name    string
}

// SendInput is the provider-agnostic input to an email delivery call.
type SendInput struct {
	To       string
	From     EmailAddress
	Subject  string
	HTMLBody string
	TextBody string
}
