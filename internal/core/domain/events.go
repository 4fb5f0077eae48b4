package domain

import "time"

// AuditEvent records a mutating operation performed through the admin panel.
type AuditEvent struct {
	Action     string
	Resource   string
	ResourceID *int64
	ActorID    int64
	At         time.Time
	Detail     map[string]any
}
