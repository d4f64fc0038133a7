package queue

import (
	"fmt"
	"time"

	"todo_api/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	connectAttempts = 5
	heartbeat       = 10 * time.Second
)

// Dial opens one connection. connName shows up in the broker's management UI.
func Dial(cfg *config.RabbitMQConfig, connName string) (*amqp.Connection, error) {
	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName(connName)

	return amqp.DialConfig(cfg.URL, amqp.Config{
		Heartbeat:  heartbeat,
		Locale:     "en_US",
		Properties: props,
	})
}

// SetupRabbitMQ dials with backoff. The process exits if the broker never
// accepts the connection.
func SetupRabbitMQ(cfg *config.RabbitMQConfig, connName string) *amqp.Connection {
	for attempt := 1; ; attempt++ {
		conn, err := Dial(cfg, connName)
		if err == nil {
			logrus.WithField("connection", connName).Info("RabbitMQ connection established successfully")
			return conn
		}

		if attempt == connectAttempts {
			logrus.WithError(err).Fatalf("Failed to connect to RabbitMQ after %d attempts", connectAttempts)
		}
		logrus.WithError(err).WithField("attempt", attempt).Warn("RabbitMQ not ready, retrying")
		time.Sleep(time.Duration(attempt) * time.Second)
	}
}

func CreateChannel(conn *amqp.Connection) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	return ch, nil
}

// DeclareQueue declares a durable, non-exclusive queue so events survive a
// broker restart.
func DeclareQueue(ch *amqp.Channel, queueName string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	return q, nil
}

// EnsureQueue declares queueName on a short-lived channel
func EnsureQueue(conn *amqp.Connection, queueName string) error {
	ch, err := CreateChannel(conn)
	if err != nil {
		return err
	}
	defer ch.Close()

	_, err = DeclareQueue(ch, queueName)
	return err
}
