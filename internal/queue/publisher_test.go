package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benvon/identity-api/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeBroker struct {
	mu         sync.Mutex
	calls      map[string]int
	bodies     map[string][][]byte
	failAlways bool
	failFirst  map[string]bool
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		calls:     make(map[string]int),
		bodies:    make(map[string][][]byte),
		failFirst: make(map[string]bool),
	}
}

func (b *fakeBroker) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls[routingKey]++
	if b.failAlways {
		return errors.New("broker unavailable")
	}
	if b.failFirst[routingKey] && b.calls[routingKey] == 1 {
		return errors.New("transient failure")
	}
	b.bodies[routingKey] = append(b.bodies[routingKey], body)
	return nil
}

func (b *fakeBroker) Close() error { return nil }

func (b *fakeBroker) callCount(routingKey string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[routingKey]
}

func (b *fakeBroker) delivered(routingKey string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[routingKey]
}

func eventUser() *models.User {
	name := "Ada Lovelace"
	return &models.User{
		ID:        7,
		PublicID:  uuid.MustParse("3e8e7d2e-0b24-4f4b-b3a4-0a2e8b9f6f3d"),
		Email:     "ada@example.com",
		Name:      &name,
		Role:      models.RoleUser,
		Provider:  models.ProviderGoogle,
		Active:    true,
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestPublishUserCreatedDeliversBothMessages(t *testing.T) {
	t.Parallel()

	broker := newFakeBroker()
	publisher := NewPublisher(broker, 3, time.Millisecond, time.Second, zap.NewNop())

	publisher.PublishUserCreated(context.Background(), eventUser())

	if got := broker.callCount(UserCreatedRoutingKey); got != 1 {
		t.Errorf("event publishes = %d, want 1", got)
	}
	if got := broker.callCount(WelcomeEmailQueue); got != 1 {
		t.Errorf("welcome publishes = %d, want 1", got)
	}
}

func TestPublishUserCreatedEventPayload(t *testing.T) {
	t.Parallel()

	broker := newFakeBroker()
	publisher := NewPublisher(broker, 3, time.Millisecond, time.Second, zap.NewNop())
	publisher.now = func() time.Time {
		return time.Date(2025, 3, 1, 10, 0, 5, 0, time.UTC)
	}

	publisher.PublishUserCreated(context.Background(), eventUser())

	bodies := broker.delivered(UserCreatedRoutingKey)
	if len(bodies) != 1 {
		t.Fatalf("delivered %d event bodies, want 1", len(bodies))
	}

	var event models.UserCreatedEvent
	if err := json.Unmarshal(bodies[0], &event); err != nil {
		t.Fatalf("event body is not valid JSON: %v", err)
	}
	if event.EventType != models.EventTypeUserCreated {
		t.Errorf("eventType = %q, want %q", event.EventType, models.EventTypeUserCreated)
	}
	if event.Email != "ada@example.com" {
		t.Errorf("email = %q", event.Email)
	}
	if event.EventTimestamp != "2025-03-01T10:00:05Z" {
		t.Errorf("eventTimestamp = %q", event.EventTimestamp)
	}

	welcomeBodies := broker.delivered(WelcomeEmailQueue)
	if len(welcomeBodies) != 1 {
		t.Fatalf("delivered %d welcome bodies, want 1", len(welcomeBodies))
	}
	var welcome models.WelcomeEmailMessage
	if err := json.Unmarshal(welcomeBodies[0], &welcome); err != nil {
		t.Fatalf("welcome body is not valid JSON: %v", err)
	}
	if welcome.EmailType != models.EmailTypeWelcome {
		t.Errorf("emailType = %q, want %q", welcome.EmailType, models.EmailTypeWelcome)
	}
}

func TestPublishUserCreatedRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	broker := newFakeBroker()
	broker.failFirst[UserCreatedRoutingKey] = true
	publisher := NewPublisher(broker, 3, time.Millisecond, time.Second, zap.NewNop())

	publisher.PublishUserCreated(context.Background(), eventUser())

	if got := broker.callCount(UserCreatedRoutingKey); got != 2 {
		t.Errorf("event publishes = %d, want 2 (one failure, one success)", got)
	}
	if len(broker.delivered(UserCreatedRoutingKey)) != 1 {
		t.Error("event was not delivered after retry")
	}
}

func TestPublishUserCreatedAbsorbsExhaustedRetries(t *testing.T) {
	t.Parallel()

	broker := newFakeBroker()
	broker.failAlways = true
	publisher := NewPublisher(broker, 3, time.Millisecond, time.Second, zap.NewNop())

	// Must return normally despite every attempt failing.
	publisher.PublishUserCreated(context.Background(), eventUser())

	if got := broker.callCount(UserCreatedRoutingKey); got != 3 {
		t.Errorf("event publishes = %d, want exactly 3", got)
	}
	// The welcome delivery is independent and still gets its attempts.
	if got := broker.callCount(WelcomeEmailQueue); got != 3 {
		t.Errorf("welcome publishes = %d, want exactly 3", got)
	}
}
