package services

import (
	"context"
	"errors"
)

// EventConsumer fans mutation events out to the audit trail and the message
// bus. Consumption is best-effort: a failing sink is logged and never fails
// the request that produced the events.
type EventConsumer struct {
	audit     AuditLogService
	publisher EventPublisher
	logger    func(context.Context, string, map[string]any)
}

// EventConsumerDeps bundles collaborators required to construct the event consumer.
type EventConsumerDeps struct {
	Audit     AuditLogService
	Publisher EventPublisher
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

// NewEventConsumer wires dependencies into an EventConsumer.
func NewEventConsumer(deps EventConsumerDeps) (*EventConsumer, error) {
	if deps.Audit == nil {
		return nil, errors.New("event consumer: audit log service is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &EventConsumer{
		audit:     deps.Audit,
		publisher: deps.Publisher,
		logger:    logger,
	}, nil
}

// Consume records the events in the audit trail and publishes them downstream.
func (c *EventConsumer) Consume(ctx context.Context, requestID string, events []Event) {
	if len(events) == 0 {
		return
	}
	if err := c.audit.RecordEvents(ctx, requestID, events); err != nil {
		c.logger(ctx, "audit.record.failed", map[string]any{
			"error":      err.Error(),
			"request_id": requestID,
			"events":     len(events),
		})
	}
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishEvents(ctx, events); err != nil {
		c.logger(ctx, "events.publish.failed", map[string]any{
			"error":      err.Error(),
			"request_id": requestID,
			"events":     len(events),
		})
	}
}
