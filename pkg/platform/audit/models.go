package audit

import (
	"context"
	"time"

	id "roster/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// apply different retention.
type EventCategory string

const (
	// CategoryCompliance covers identity records created on someone's behalf.
	CategoryCompliance EventCategory = "compliance"
	// CategoryOperations covers routine sync activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from sync logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	AccountID id.AccountID  `json:"account_id"`
	Subject   string        `json:"subject,omitempty"`
	Action    string        `json:"action"`
	Reason    string        `json:"reason,omitempty"`
	SourceID  string        `json:"source_id,omitempty"`
	RunID     string        `json:"run_id,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	// ActorID is the operator who triggered the run.
	ActorID string `json:"actor_id,omitempty"`
}

type AuditEvent string

const (
	EventAccountCreated   AuditEvent = "account_created"
	EventAccountUpdated   AuditEvent = "account_updated"
	EventSyncRunCompleted AuditEvent = "sync_run_completed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventAccountCreated:   CategoryCompliance,
	EventAccountUpdated:   CategoryOperations,
	EventSyncRunCompleted: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store is the append-only sink events end up in.
type Store interface {
	Append(ctx context.Context, event Event) error
}
