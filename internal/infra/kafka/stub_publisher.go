package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/domain"
	"github.com/sunhaoxiang/pure-admin-service/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(log *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: log}
}

// PublishAudit logs audit events.
func (p *StubPublisher) PublishAudit(_ context.Context, event domain.AuditEvent) error {
	at := event.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("action", event.Action),
		zap.String("resource", event.Resource),
		zap.Int64p("resource_id", event.ResourceID),
		zap.Int64("actor_id", event.ActorID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("detail", event.Detail),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
