package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/darzi-studio/api/internal/domain"
	"github.com/darzi-studio/api/internal/services"
)

func newTestTopic(t *testing.T) (*pubsub.Topic, *pstest.Server) {
	t.Helper()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	topic, err := client.CreateTopic(ctx, "order-events")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	return topic, srv
}

func TestPubSubOrderPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	topic, srv := newTestTopic(t)

	publisher, err := NewPubSubOrderPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubOrderPublisher: %v", err)
	}

	occurredAt := time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)
	event := services.OrderEvent{
		Type:          "order.received",
		OrderID:       "ord_test01",
		OrderNumber:   "DRZ-2026-0001",
		CustomerName:  "Meera Joshi",
		CustomerPhone: "+91 98200 11223",
		CustomerEmail: "meera@example.com",
		Summary:       "1 garment (blouse), total 2600",
		CurrentStatus: domain.StatusReceived,
		Total:         2600,
		OccurredAt:    occurredAt,
		Metadata:      map[string]any{"garments": 1},
	}

	if err := publisher.PublishOrderEvent(ctx, event); err != nil {
		t.Fatalf("PublishOrderEvent: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(messages))
	}

	msg := messages[0]
	if msg.Attributes["eventType"] != "order.received" {
		t.Errorf("eventType attribute = %q", msg.Attributes["eventType"])
	}
	if msg.Attributes["orderId"] != "ord_test01" {
		t.Errorf("orderId attribute = %q", msg.Attributes["orderId"])
	}
	if msg.Attributes["orderNumber"] != "DRZ-2026-0001" {
		t.Errorf("orderNumber attribute = %q", msg.Attributes["orderNumber"])
	}
	if msg.Attributes["status"] != "received" {
		t.Errorf("status attribute = %q", msg.Attributes["status"])
	}

	var payload orderEventMessage
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.OrderID != "ord_test01" || payload.Total != 2600 {
		t.Errorf("payload = %+v", payload)
	}
	if payload.CustomerName != "Meera Joshi" || payload.CustomerPhone != "+91 98200 11223" {
		t.Errorf("payload customer = %q / %q", payload.CustomerName, payload.CustomerPhone)
	}
	if payload.CustomerEmail != "meera@example.com" {
		t.Errorf("payload customer email = %q", payload.CustomerEmail)
	}
	if payload.Summary != "1 garment (blouse), total 2600" {
		t.Errorf("payload summary = %q", payload.Summary)
	}
	if !payload.OccurredAt.Equal(occurredAt) {
		t.Errorf("occurredAt = %s, want %s", payload.OccurredAt, occurredAt)
	}
}

func TestPubSubOrderPublisherValidatesEvent(t *testing.T) {
	topic, _ := newTestTopic(t)

	publisher, err := NewPubSubOrderPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubOrderPublisher: %v", err)
	}

	if err := publisher.PublishOrderEvent(context.Background(), services.OrderEvent{OrderID: "ord_x"}); err == nil {
		t.Error("expected error for missing event type")
	}
	if err := publisher.PublishOrderEvent(context.Background(), services.OrderEvent{Type: "order.received"}); err == nil {
		t.Error("expected error for missing order id")
	}
}

func TestNewPubSubOrderPublisherRequiresTopic(t *testing.T) {
	if _, err := NewPubSubOrderPublisher(nil); err == nil {
		t.Error("expected error for nil topic")
	}
}
