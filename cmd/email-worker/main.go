// Package main is the entrypoint for the Email Worker Lambda function.
//
// The worker consumes messages from the Email SQS Queue and delivers
// transactional email (currently only magic-link logins) through the
// configured provider. It implements the SQS Lambda handler pattern where
// each invocation receives a batch of SQS messages; messages that fail
// delivery are reported as partial batch failures so SQS retries only them.
//
// Cold Start (main):
//  1. Initialize structured logger.
//  2. Read sender configuration from environment variables.
//  3. Initialize the email provider (SendGrid, or a stub without an API key).
//  4. Register handler and call lambda.Start.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/kelseyhightower/envconfig"

	"labsite/internal/config"
	"labsite/internal/external"
	"labsite/internal/types"
)

// Handler holds the dependencies for the email worker Lambda handler.
type Handler struct {
	provider external.EmailProvider
	from     types.EmailAddress
	logger   *slog.Logger
}

// Handle processes an SQS event containing one or more email messages.
// Each message is processed independently; failures are returned in
// batchItemFailures so SQS retries them without replaying the whole batch.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		if err := h.processMessage(ctx, record); err != nil {
			h.logger.Error("failed to process SQS message",
				"message_id", record.MessageId,
				"error", err.Error(),
			)
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	return response, nil
}

// processMessage delivers a single email message. A nil return ACKs the SQS
// record; malformed or unroutable messages are ACKed after logging since
// retrying them can never succeed.
func (h *Handler) processMessage(ctx context.Context, record events.SQSMessage) error {
	var msg types.EmailMessage
	if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
		h.logger.Error("failed to unmarshal email message",
			"message_id", record.MessageId,
			"error", err.Error(),
		)
		// Permanent parse failure, do not retry.
		return nil
	}

	logger := h.logger.With(
		"message_id", msg.MessageID,
		"kind", string(msg.Kind),
	)

	input, err := renderEmail(msg, h.from)
	if err != nil {
		// Unknown kind or missing template data is permanent; ACK it.
		logger.Error("failed to render email", "error", err.Error())
		return nil
	}

	providerMessageID, err := h.provider.Send(ctx, input)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("email delivered",
		"provider_message_id", providerMessageID,
		"queue_lag_ms", queueLagMillis(record, msg.EnqueuedAt),
	)
	return nil
}

// renderEmail builds the provider-agnostic SendInput for a message. The
// message body carries the login URL; it must never appear in logs.
func renderEmail(msg types.EmailMessage, from types.EmailAddress) (types.SendInput, error) {
	switch msg.Kind {
	case types.EmailKindMagicLink:
		loginURL := msg.Data["login_url"]
		if loginURL == "" {
			return types.SendInput{}, fmt.Errorf("magic-link message %s has no login_url", msg.MessageID)
		}
		return types.SendInput{
			To:       msg.To,
			From:     from,
			Subject:  "Your sign-in link",
			TextBody: magicLinkText(loginURL),
			HTMLBody: magicLinkHTML(loginURL),
		}, nil
	default:
		return types.SendInput{}, fmt.Errorf("unknown email kind %q", msg.Kind)
	}
}

func magicLinkText(loginURL string) string {
	return "Use the link below to sign in to the Lab. The link works once and expires shortly.\n\n" +
		loginURL + "\n\n" +
		"If you did not request this, you can safely ignore this email.\n"
}

func magicLinkHTML(loginURL string) string {
	return `<p>Use the link below to sign in to the Lab. The link works once and expires shortly.</p>` +
		`<p><a href="` + loginURL + `">Sign in</a></p>` +
		`<p>If you did not request this, you can safely ignore this email.</p>`
}

// queueLagMillis reports how long the message waited in the queue, preferring
// the SQS SentTimestamp attribute over the producer's enqueue time.
func queueLagMillis(record events.SQSMessage, enqueuedAt time.Time) int64 {
	if sentTimestamp, ok := record.Attributes["SentTimestamp"]; ok {
		var millis int64
		if _, err := fmt.Sscanf(sentTimestamp, "%d", &millis); err == nil {
			return time.Since(time.UnixMilli(millis)).Milliseconds()
		}
	}
	if !enqueuedAt.IsZero() {
		return time.Since(enqueuedAt).Milliseconds()
	}
	return 0
}

func main() {
	// Initialize structured logger at startup (Cold Start).
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("Email Worker Lambda initializing (cold start)")

	// The worker shares the API's email configuration section; only that
	// section is processed here.
	var emailCfg config.EmailConfig
	if err := envconfig.Process("", &emailCfg); err != nil {
		logger.Error("Failed to process email configuration", "error", err)
		os.Exit(1)
	}

	// Initialize the email provider. Without an API key, use a stub that
	// logs deliveries (development/testing mode).
	var provider external.EmailProvider
	if emailCfg.SendGridAPIKey == "" {
		logger.Warn("SENDGRID_API_KEY not set, using stub email provider")
		provider = external.NewStubEmailProvider(logger)
	} else {
		provider = external.NewSendGridClient(
			&http.Client{Timeout: 10 * time.Second},
			external.SendGridClientConfig{
				APIKey: emailCfg.SendGridAPIKey.Unmask(),
				Logger: logger,
			},
		)
	}

	handler := &Handler{
		provider: provider,
		from:     types.EmailAddress{Address: emailCfg.FromAddress, Name: emailCfg.FromName},
		logger:   logger,
	}

	logger.Info("Email Worker Lambda initialized",
		"from_address", emailCfg.FromAddress,
		"from_name", emailCfg.FromName,
	)

	// Local mode: read a JSON SQS event from stdin instead of starting the
	// Lambda runtime. This enables local integration testing without the
	// AWS Lambda RIE.
	// Usage: echo '{"Records":[{"messageId":"1","body":"{...}"}]}' | go run cmd/email-worker/main.go
	if os.Getenv("APP_ENV") == "local" {
		logger.Info("APP_ENV=local: reading SQS event from stdin")
		payload, err := io.ReadAll(os.Stdin)
		if err != nil {
			logger.Error("Failed to read stdin", "error", err)
			os.Exit(1)
		}
		if len(payload) == 0 {
			logger.Error("No input received on stdin")
			os.Exit(1)
		}
		var sqsEvent events.SQSEvent
		if err := json.Unmarshal(payload, &sqsEvent); err != nil {
			logger.Error("Failed to parse stdin as SQS event", "error", err)
			os.Exit(1)
		}
		response, err := handler.Handle(context.Background(), sqsEvent)
		if err != nil {
			logger.Error("Handler execution failed", "error", err)
			os.Exit(1)
		}
		if len(response.BatchItemFailures) > 0 {
			logger.Warn("Handler reported partial failures",
				"failed_count", len(response.BatchItemFailures),
			)
			respJSON, _ := json.MarshalIndent(response, "", "  ")
			fmt.Fprintln(os.Stderr, string(respJSON))
		}
		logger.Info("Handler execution completed",
			"records_processed", len(sqsEvent.Records),
			"failures", len(response.BatchItemFailures),
		)
		return
	}

	lambda.Start(handler.Handle)
}
