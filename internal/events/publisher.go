package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/google/uuid"
	"github.com/jesslyntrixie/beegrub-payments-api/internal/payment"
)

// PaymentStatusChanged is emitted after a webhook outcome is persisted.
// Consumers (order fulfilment, notifications) bind on the per-status
// routing keys; there is no consumer in this service.
type PaymentStatusChanged struct {
	EventType string    `json:"eventType"`
	EventID   string    `json:"eventId"`
	OrderID   string    `json:"orderId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) PublishPaymentStatus(ctx context.Context, orderID string, status payment.Status) error {
	ev := PaymentStatusChanged{
		EventType: eventTypeFor(status),
		EventID:   uuid.NewString(),
		OrderID:   orderID,
		Status:    string(status),
		Timestamp: time.Now().UTC(),
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.EventType, err)
	}

	return p.publishJSON(ctx, routingKeyFor(status), body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func eventTypeFor(status payment.Status) string {
	switch status {
	case payment.StatusCompleted:
		return "PaymentCompleted"
	case payment.StatusFailed:
		return "PaymentFailed"
	case payment.StatusPending:
		return "PaymentPending"
	default:
		return "PaymentUnknown"
	}
}

func routingKeyFor(status payment.Status) string {
	switch status {
	case payment.StatusCompleted:
		return PaymentCompletedRoutingKey
	case payment.StatusFailed:
		return PaymentFailedRoutingKey
	case payment.StatusPending:
		return PaymentPendingRoutingKey
	default:
		return PaymentUnknownRoutingKey
	}
}
