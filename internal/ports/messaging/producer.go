package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// QueueProducer publishes domain events to the forward and notify queues.
type QueueProducer struct {
	sender          MessageSender
	forwardQueueURL string
	notifyQueueURL  string
}

func NewProducer(sender MessageSender, forwardQueueURL, notifyQueueURL string) *QueueProducer {
	return &QueueProducer{
		sender:          sender,
		forwardQueueURL: forwardQueueURL,
		notifyQueueURL:  notifyQueueURL,
	}
}

func NewSQSProducer(client SQSClient, forwardQueueURL, notifyQueueURL string) *QueueProducer {
	return NewProducer(&SQSSender{client: client}, forwardQueueURL, notifyQueueURL)
}

func (p *QueueProducer) PublishForward(ctx context.Context, body interface{}) error {
	return p.publish(ctx, p.forwardQueueURL, body)
}

func (p *QueueProducer) PublishNotify(ctx context.Context, body interface{}) error {
	return p.publish(ctx, p.notifyQueueURL, body)
}

func (p *QueueProducer) publish(ctx context.Context, destination string, body interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}

	// Enrich the current span with staff_id if available
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		var payload struct {
			StaffID string `json:"staffId"`
		}
		if err := json.Unmarshal(b, &payload); err == nil && payload.StaffID != "" {
			span.SetAttributes(attribute.String("app.staff_id", payload.StaffID))
		}
	}

	if err := p.sender.SendMessage(ctx, destination, b); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
