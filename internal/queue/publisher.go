// Package queue provides the SQS-based producer that hands transactional
// email payloads to the email worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"labsite/internal/config"
	"labsite/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// EmailPublisher serializes EmailMessage payloads and dispatches them to the
// email queue consumed by cmd/email-worker.
type EmailPublisher struct {
	client   SQSSender
	queueURL string
	clock    types.Clock
	logger   *slog.Logger
}

// NewEmailPublisher creates an EmailPublisher reading the queue URL from the
// AWS configuration.
func NewEmailPublisher(client SQSSender, awsCfg config.AWSConfig, clock types.Clock, logger *slog.Logger) *EmailPublisher {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailPublisher{
		client:   client,
		queueURL: awsCfg.EmailQueueURL,
		clock:    clock,
		logger:   logger,
	}
}

// PublishMagicLink enqueues a magic-link login email. The raw login URL is
// only ever carried inside the message body, never logged.
func (p *EmailPublisher) PublishMagicLink(ctx context.Context, to, loginURL string) error {
	msg := types.EmailMessage{
		MessageID:  uuid.New().String(),
		Kind:       types.EmailKindMagicLink,
		To:         to,
		Data:       map[string]string{"login_url": loginURL},
		EnqueuedAt: p.clock.Now(),
	}
	return p.publish(ctx, msg)
}

// publish serializes the message and dispatches it to the email queue.
func (p *EmailPublisher) publish(ctx context.Context, msg types.EmailMessage) error {
	if p.queueURL == "" {
		return types.NewAppError(types.ErrCodeInternalConfig, "email queue is not configured", nil)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal EmailMessage: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"kind": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(msg.Kind)),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		p.logger.Error("failed to publish email message",
			"message_id", msg.MessageID,
			"kind", msg.Kind,
			"error", err,
		)
		return types.NewAppError(types.ErrCodeUpstreamEmail, "failed to enqueue email", err)
	}

	p.logger.Info("email message published",
		"message_id", msg.MessageID,
		"kind", msg.Kind,
	)
	return nil
}
