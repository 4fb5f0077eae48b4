package port

import (
	"context"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/domain"
)

// EventPublisher emits audit events for mutating admin operations.
// Publishing is best-effort; callers log failures and continue.
type EventPublisher interface {
	PublishAudit(ctx context.Context, event domain.AuditEvent) error
}
