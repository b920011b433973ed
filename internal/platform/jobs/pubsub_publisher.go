package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"

	domain "github.com/chocolog/api/internal/domain"
)

// EventMessage is the wire payload published for each domain event.
type EventMessage struct {
	Type       string         `json:"type"`
	TargetRef  string         `json:"targetRef"`
	Actor      string         `json:"actor"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}

// PubSubEventPublisher publishes domain events to a Pub/Sub topic.
type PubSubEventPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubEventPublisher constructs a Pub/Sub backed event publisher.
func NewPubSubEventPublisher(topic *pubsub.Topic) (*PubSubEventPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub event publisher: topic is required")
	}
	return &PubSubEventPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishEvent enqueues a single domain event on the configured topic.
func (p *PubSubEventPublisher) PublishEvent(ctx context.Context, event domain.Event) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub event publisher: not initialised")
	}

	message := EventMessage{
		Type:       event.Type,
		TargetRef:  event.TargetRef,
		Actor:      event.Actor,
		OccurredAt: event.OccurredAt,
		Data:       event.Data,
	}

	data, err := p.marshal(message)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "type", event.Type)
	setAttr(attrs, "targetRef", event.TargetRef)
	setAttr(attrs, "actor", event.Actor)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish event: %w", err)
	}
	return id, nil
}

// PublishEvents publishes each event in order, stopping at the first failure.
func (p *PubSubEventPublisher) PublishEvents(ctx context.Context, events []domain.Event) error {
	for _, event := range events {
		if _, err := p.PublishEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
