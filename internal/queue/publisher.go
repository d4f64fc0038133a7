package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"todo_api/internal/observability"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends JSON messages to a single durable queue through the default exchange.
type Publisher struct {
	conn      *amqp.Connection
	queueName string
	metrics   *observability.Metrics
}

func NewPublisher(conn *amqp.Connection, queueName string, metrics *observability.Metrics) *Publisher {
	return &Publisher{
		conn:      conn,
		queueName: queueName,
		metrics:   metrics,
	}
}

func (p *Publisher) QueueName() string {
	return p.queueName
}

// Publish marshals payload and publishes it as a persistent message
func (p *Publisher) Publish(ctx context.Context, payload interface{}) (err error) {
	defer func() { p.metrics.Published(p.queueName, err) }()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	ch, err := CreateChannel(p.conn)
	if err != nil {
		return err
	}
	defer ch.Close()

	return ch.PublishWithContext(
		ctx,
		"",          // exchange
		p.queueName, // routing key (queue name)
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Body:         body,
		},
	)
}
