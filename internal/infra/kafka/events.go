package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/domain"
	"github.com/sunhaoxiang/pure-admin-service/internal/core/port"
	"github.com/sunhaoxiang/pure-admin-service/internal/infra/config"
	"github.com/sunhaoxiang/pure-admin-service/internal/infra/logger"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, log *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: log}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	ActorID   string           `json:"actor_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

// PublishAudit publishes admin.audit.<resource>.<action> events.
func (p *EventPublisher) PublishAudit(ctx context.Context, event domain.AuditEvent) error {
	ts := event.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if requestID, ok := ctx.Value(logger.RequestIDKey{}).(string); ok && requestID != "" {
		metadata["request_id"] = requestID
	}

	payload := struct {
		Action     string         `json:"action"`
		Resource   string         `json:"resource"`
		ResourceID *int64         `json:"resource_id,omitempty"`
		ActorID    int64          `json:"actor_id"`
		At         time.Time      `json:"at"`
		Detail     map[string]any `json:"detail,omitempty"`
	}{
		Action:     event.Action,
		Resource:   event.Resource,
		ResourceID: event.ResourceID,
		ActorID:    event.ActorID,
		At:         ts.UTC(),
		Detail:     event.Detail,
	}

	eventType := fmt.Sprintf("admin.audit.%s.%s", event.Resource, event.Action)

	envelope := eventEnvelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		ActorID:   fmt.Sprintf("%d", event.ActorID),
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(envelope.ActorID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ port.EventPublisher = (*EventPublisher)(nil)
