package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/darzi-studio/api/internal/domain"
	"github.com/darzi-studio/api/internal/services"
)

// PubSubOrderPublisher publishes order lifecycle events to a Pub/Sub topic.
type PubSubOrderPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubOrderPublisher constructs a Pub/Sub backed order event publisher.
func NewPubSubOrderPublisher(topic *pubsub.Topic) (*PubSubOrderPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub order publisher: topic is required")
	}
	return &PubSubOrderPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// orderEventMessage is the JSON payload carried by each event message.
type orderEventMessage struct {
	Type           string             `json:"type"`
	OrderID        string             `json:"orderId"`
	OrderNumber    string             `json:"orderNumber,omitempty"`
	CustomerName   string             `json:"customerName,omitempty"`
	CustomerPhone  string             `json:"customerPhone,omitempty"`
	CustomerEmail  string             `json:"customerEmail,omitempty"`
	Summary        string             `json:"summary,omitempty"`
	PreviousStatus domain.OrderStatus `json:"previousStatus,omitempty"`
	CurrentStatus  domain.OrderStatus `json:"currentStatus,omitempty"`
	Total          int64              `json:"total,omitempty"`
	OccurredAt     time.Time          `json:"occurredAt"`
	Metadata       map[string]any     `json:"metadata,omitempty"`
}

// PublishOrderEvent enqueues an order event message on the configured topic.
func (p *PubSubOrderPublisher) PublishOrderEvent(ctx context.Context, event services.OrderEvent) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub order publisher: not initialised")
	}
	if strings.TrimSpace(event.Type) == "" {
		return errors.New("pubsub order publisher: event type is required")
	}
	if strings.TrimSpace(event.OrderID) == "" {
		return errors.New("pubsub order publisher: order id is required")
	}

	data, err := p.marshal(orderEventMessage{
		Type:           event.Type,
		OrderID:        event.OrderID,
		OrderNumber:    event.OrderNumber,
		CustomerName:   event.CustomerName,
		CustomerPhone:  event.CustomerPhone,
		CustomerEmail:  event.CustomerEmail,
		Summary:        event.Summary,
		PreviousStatus: event.PreviousStatus,
		CurrentStatus:  event.CurrentStatus,
		Total:          event.Total,
		OccurredAt:     event.OccurredAt,
		Metadata:       event.Metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "eventType", event.Type)
	setAttr(attrs, "orderId", event.OrderID)
	setAttr(attrs, "orderNumber", event.OrderNumber)
	setAttr(attrs, "status", string(event.CurrentStatus))

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}

var _ services.OrderEventPublisher = (*PubSubOrderPublisher)(nil)
