package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/benvon/identity-api/internal/models"
	"github.com/benvon/identity-api/internal/retry"
	"go.uber.org/zap"
)

// Publisher announces user creations on the broker. Delivery is at-least-
// once with bounded retries; every failure is absorbed and logged, never
// surfaced, so a broker outage cannot block or revert an already-committed
// creation.
type Publisher struct {
	broker   Broker
	logger   *zap.Logger
	attempts int
	backoff  time.Duration
	timeout  time.Duration
	now      func() time.Time
}

// NewPublisher creates a publisher with the given retry policy. Each
// delivery attempt is bounded by timeout.
func NewPublisher(broker Broker, attempts int, backoff, timeout time.Duration, logger *zap.Logger) *Publisher {
	return &Publisher{
		broker:   broker,
		logger:   logger,
		attempts: attempts,
		backoff:  backoff,
		timeout:  timeout,
		now:      time.Now,
	}
}

// PublishUserCreated sends the user-created event to the topic exchange and
// a welcome notification to the email service's queue. Both deliveries are
// independent best-effort sends; neither failing affects the other or the
// caller.
func (p *Publisher) PublishUserCreated(ctx context.Context, user *models.User) {
	event := models.NewUserCreatedEvent(user, p.now())
	if body, err := json.Marshal(event); err != nil {
		p.logger.Error("failed_to_marshal_event", zap.String("event_type", event.EventType), zap.Error(err))
	} else {
		p.deliver(ctx, UserEventsExchange, UserCreatedRoutingKey, body, event.EventType)
	}

	welcome := models.NewWelcomeEmailMessage(user)
	if body, err := json.Marshal(welcome); err != nil {
		p.logger.Error("failed_to_marshal_event", zap.String("event_type", welcome.EmailType), zap.Error(err))
	} else {
		p.deliver(ctx, "", WelcomeEmailQueue, body, welcome.EmailType)
	}
}

func (p *Publisher) deliver(ctx context.Context, exchange, routingKey string, body []byte, kind string) {
	err := retry.Do(ctx, p.attempts, p.backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return p.broker.Publish(attemptCtx, exchange, routingKey, body)
	})
	if err != nil {
		p.logger.Error("event_delivery_failed",
			zap.String("event_type", kind),
			zap.String("routing_key", routingKey),
			zap.Int("attempts", p.attempts),
			zap.Error(err),
		)
		return
	}

	p.logger.Info("event_published",
		zap.String("event_type", kind),
		zap.String("routing_key", routingKey),
	)
}
