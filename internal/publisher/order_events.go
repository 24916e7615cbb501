package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/segmentio/kafka-go"
)

const EventOrderSubmitted = "order.submitted"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderSubmitted is published once the backend has accepted an order.
type OrderSubmitted struct {
	OrderID     string    `json:"order_id"`
	SessionID   string    `json:"session_id"`
	DraftID     string    `json:"draft_id"`
	ItemCount   int       `json:"item_count"`
	Subtotal    string    `json:"subtotal"`
	Shipping    string    `json:"shipping"`
	Tax         string    `json:"tax"`
	TotalAmount string    `json:"total_amount"`
	Evidence    string    `json:"evidence"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func NewOrderSubmitted(sessionID, orderID string, draft domain.CheckoutDraft, evidence domain.EvidenceKind, at time.Time) OrderSubmitted {
	return OrderSubmitted{
		OrderID:     orderID,
		SessionID:   sessionID,
		DraftID:     draft.ID,
		ItemCount:   draft.Cart.Count(),
		Subtotal:    pricing.Format(draft.Pricing.Subtotal),
		Shipping:    pricing.Format(draft.Pricing.ShippingFee),
		Tax:         pricing.Format(draft.Pricing.Tax),
		TotalAmount: pricing.Format(draft.Pricing.Total),
		Evidence:    evidence.String(),
		SubmittedAt: at,
	}
}

// KafkaPublisher writes order events keyed by order id.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	log     *slog.Logger
}

func NewKafkaPublisher(topic string, log *slog.Logger, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w, timeout: 5 * time.Second, log: log}
}

func (p *KafkaPublisher) PublishOrderSubmitted(ctx context.Context, event OrderSubmitted) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", EventOrderSubmitted, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventOrderSubmitted)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for order %s: %w", EventOrderSubmitted, event.OrderID, err)
	}
	p.log.DebugContext(ctx, "order event published", "order_id", event.OrderID)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop drops events; used when no brokers are configured.
type Nop struct{}

func (Nop) PublishOrderSubmitted(context.Context, OrderSubmitted) error { return nil }
func (Nop) Close() error                                               { return nil }
