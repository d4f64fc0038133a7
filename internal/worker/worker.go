package worker

import (
	"context"
	"errors"
	"time"

	"todo_api/internal/activity"
	"todo_api/internal/db"
	"todo_api/internal/observability"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	maxRetries     = 3
	retryHeader    = "x-retry-count"
	handleTimeout  = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Republisher is satisfied by *amqp.Channel
type Republisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type consumer struct {
	id        int
	queueName string
	db        db.DBTX
	repo      activity.ActivityRepositoryInterface
	publisher Republisher
	metrics   *observability.Metrics
}

func republishWithRetry(ctx context.Context, pub Republisher, msg *amqp.Delivery, retryCount int32) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	// Create new headers with incremented retry count
	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[retryHeader] = retryCount

	return pub.PublishWithContext(
		ctx,
		"",             // exchange
		msg.RoutingKey, // routing key (queue name)
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  msg.ContentType,
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.MessageId,
			Timestamp:    msg.Timestamp,
			Body:         msg.Body,
			Headers:      headers,
		},
	)
}

func retryCountOf(msg *amqp.Delivery) int32 {
	if msg.Headers == nil {
		return 0
	}
	switch count := msg.Headers[retryHeader].(type) {
	case int32:
		return count
	case int64:
		return int32(count)
	case int:
		return int32(count)
	}
	return 0
}

// StartWorker consumes task events from queueName until ctx is cancelled or
// the connection closes.
func StartWorker(ctx context.Context, conn *amqp.Connection, database db.DBTX, repo activity.ActivityRepositoryInterface, queueName string, metrics *observability.Metrics, id int) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return err
	}

	msgs, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	c := &consumer{
		id:        id,
		queueName: queueName,
		db:        database,
		repo:      repo,
		publisher: ch,
		metrics:   metrics,
	}

	logrus.Infof("Worker %d started", id)

	for {
		select {
		case <-ctx.Done():
			logrus.Infof("Worker %d stopping", id)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				logrus.Warnf("Worker %d: delivery channel closed", id)
				return nil
			}
			c.process(ctx, msg)
		}
	}
}

// process handles one delivery and settles it. Invalid messages are dropped,
// failed ones are republished with an incremented retry count until
// maxRetries is reached.
func (c *consumer) process(ctx context.Context, msg amqp.Delivery) {
	c.metrics.Consumed(c.queueName)

	handleCtx, cancel := context.WithTimeout(ctx, handleTimeout)
	event, err := c.handleEvent(handleCtx, msg.Body)
	cancel()

	if err == nil {
		_ = msg.Ack(false)
		return
	}

	action := "unknown"
	if event != nil {
		action = string(event.Action)
	}

	if errors.Is(err, errInvalidEvent) {
		logrus.WithError(err).Errorf("Worker %d: dropping invalid payload", c.id)
		c.metrics.EventFailed(action, "invalid_payload")
		_ = msg.Nack(false, false)
		return
	}

	retryCount := retryCountOf(&msg)
	logrus.WithError(err).Errorf("Worker %d: failed to record event (retry: %d)", c.id, retryCount)

	if retryCount >= maxRetries {
		c.metrics.EventFailed(action, "max_retries")
		_ = msg.Nack(false, false)
		return
	}

	if err := republishWithRetry(ctx, c.publisher, &msg, retryCount+1); err != nil {
		logrus.WithError(err).Error("Failed to republish message")
		c.metrics.EventFailed(action, "republish_error")
		_ = msg.Nack(false, true)
		return
	}

	c.metrics.Published(c.queueName, nil)
	_ = msg.Ack(false)
}
