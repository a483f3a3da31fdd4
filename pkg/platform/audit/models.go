package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing in downstream sinks.
type EventCategory string

const (
	// CategoryIssuance covers events that change what exists on the ledger:
	// component setup and badge issuance. These are kept for the lifetime of
	// the event they describe.
	CategoryIssuance EventCategory = "issuance"

	// CategorySecurity covers rejected or owner-only actions that operators
	// review: forbidden mints, recalls, metadata writes.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity and can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Subject is the account the event is about (badge holder, caller).
	Subject string
	Action  string
	// Component and Resource locate the event on the ledger.
	Component string
	Resource  string
	LocalID   string
	TeamName  string
	Decision  string
	Reason    string
	RequestID string
	ClientIP  string
	Device    string
}

type AuditEvent string

const (
	// Issuance component events
	EventComponentInstantiated   AuditEvent = "component_instantiated"
	EventBadgeIssued             AuditEvent = "badge_issued"
	EventBadgeRejected           AuditEvent = "badge_rejected"
	EventComponentMetadataDenied AuditEvent = "component_metadata_denied"

	// Registry events
	EventResourceCreated     AuditEvent = "resource_created"
	EventNonFungibleMinted   AuditEvent = "non_fungible_minted"
	EventNonFungibleUpdated  AuditEvent = "non_fungible_updated"
	EventNonFungibleRecalled AuditEvent = "non_fungible_recalled"
	EventRoleUpdated         AuditEvent = "role_updated"
	EventMetadataSet         AuditEvent = "metadata_set"
	EventMetadataLocked      AuditEvent = "metadata_locked"
	EventAccessDenied        AuditEvent = "access_denied"

	// Proof events
	EventProofIssued AuditEvent = "proof_issued"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventComponentInstantiated: CategoryIssuance,
	EventBadgeIssued:           CategoryIssuance,
	EventResourceCreated:       CategoryIssuance,
	EventNonFungibleMinted:     CategoryIssuance,
	EventNonFungibleRecalled:   CategoryIssuance,

	EventComponentMetadataDenied: CategorySecurity,
	EventAccessDenied:            CategorySecurity,
	EventRoleUpdated:             CategorySecurity,
	EventMetadataLocked:          CategorySecurity,
	EventProofIssued:             CategorySecurity,

	EventBadgeRejected:      CategoryOperations,
	EventNonFungibleUpdated: CategoryOperations,
	EventMetadataSet:        CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}

// Emitter is what services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
