package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/akorenev/credential-service/internal/core/domain"
	"github.com/akorenev/credential-service/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType string, userID int64, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.Int64("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserRegistered logs user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	payload := map[string]any{
		"user_id":       event.UserID,
		"username":      event.Username,
		"email":         event.Email,
		"registered_at": event.RegisteredAt,
		"metadata":      event.Metadata,
	}
	p.logEvent(eventTypeUserRegistered, event.UserID, event.RegisteredAt, payload)
	return nil
}

// PublishUserAuthenticated logs user.authenticated events.
func (p *StubPublisher) PublishUserAuthenticated(_ context.Context, event domain.UserAuthenticatedEvent) error {
	payload := map[string]any{
		"user_id":          event.UserID,
		"username":         event.Username,
		"first_login":      event.FirstLogin,
		"authenticated_at": event.AuthenticatedAt,
		"ip_address":       event.IPAddress,
		"metadata":         event.Metadata,
	}
	p.logEvent(eventTypeUserAuthenticated, event.UserID, event.AuthenticatedAt, payload)
	return nil
}

// PublishPasswordChanged logs user.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"username":   event.Username,
		"changed_at": event.ChangedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent(eventTypePasswordChanged, event.UserID, event.ChangedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
