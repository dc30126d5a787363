package queue

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// UserEventsExchange is the durable topic exchange for user lifecycle events.
	UserEventsExchange = "user.events"
	// UserCreatedRoutingKey routes user-created events.
	UserCreatedRoutingKey = "user.created"
	// UserCreatedQueue is the durable queue consumed by the notification service.
	UserCreatedQueue = "user.created.notifications"
	// UserEventsDLQ receives expired or rejected user events.
	UserEventsDLQ = "user.events.dlq"
	// WelcomeEmailQueue is the email service's own queue for welcome messages.
	WelcomeEmailQueue = "email.welcome"

	// userEventTTL caps how long an unconsumed event sits on the queue
	// before dead-lettering, so undelivered messages never pile up.
	userEventTTL = 24 * time.Hour
)

// Broker is the transport used by the Publisher. It enables mock
// implementations in tests.
type Broker interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
	Close() error
}

// AMQPBroker implements Broker over a RabbitMQ connection. The connection is
// an injected, externally-managed resource; reconnect policy lives with the
// caller.
type AMQPBroker struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPBroker connects to RabbitMQ and declares the event topology.
func NewAMQPBroker(amqpURL string) (*AMQPBroker, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	broker := &AMQPBroker{conn: conn, channel: ch}
	if err := broker.setup(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}

	return broker, nil
}

// setup declares the exchange, queues and bindings. Declarations are
// idempotent so every instance runs them at startup.
func (b *AMQPBroker) setup() error {
	err := b.channel.ExchangeDeclare(
		UserEventsExchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = b.channel.QueueDeclare(
		UserEventsDLQ,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	err = b.channel.QueueBind(
		UserEventsDLQ,
		"dlq", // routing key
		UserEventsExchange,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	queueArgs := amqp.Table{
		"x-dead-letter-exchange":    UserEventsExchange,
		"x-dead-letter-routing-key": "dlq",
		"x-message-ttl":             int32(userEventTTL.Milliseconds()),
	}
	_, err = b.channel.QueueDeclare(
		UserCreatedQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		queueArgs,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = b.channel.QueueBind(
		UserCreatedQueue,
		UserCreatedRoutingKey,
		UserEventsExchange,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue to exchange: %w", err)
	}

	// The welcome queue belongs to the email service; it is published to
	// directly via the default exchange.
	_, err = b.channel.QueueDeclare(
		WelcomeEmailQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare welcome queue: %w", err)
	}

	return nil
}

// Publish sends a persistent JSON message to the given exchange and routing
// key. An empty exchange targets a queue directly via the default exchange.
func (b *AMQPBroker) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	err := b.channel.PublishWithContext(
		ctx,
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

// Close closes the channel and connection.
func (b *AMQPBroker) Close() error {
	var err error
	if b.channel != nil {
		err = b.channel.Close()
	}
	if b.conn != nil {
		if closeErr := b.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
