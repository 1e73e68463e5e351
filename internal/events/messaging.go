package events

import (
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange             = "beegrub.events"
	PaymentCompletedRoutingKey = "payment.completed.v1"
	PaymentFailedRoutingKey    = "payment.failed.v1"
	PaymentPendingRoutingKey   = "payment.pending.v1"
	PaymentUnknownRoutingKey   = "payment.unknown.v1"
)

func MustDial(url string) *amqp.Connection {
	conn, err := amqp.Dial(url)
	if err != nil {
		log.Fatalf("connect to RabbitMQ: %v", err)
	}
	return conn
}

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
