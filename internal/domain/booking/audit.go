package booking

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction classifies what produced an audit entry.
type AuditAction string

const (
	AuditCreated      AuditAction = "created"
	AuditStatusChange AuditAction = "status_change"
	AuditFieldChange  AuditAction = "field_change"
	AuditSoftDelete   AuditAction = "soft_delete"
	AuditRestore      AuditAction = "restore"
)

// AuditEntry is one append-only row per observed change. Entries are never
// mutated or deleted.
type AuditEntry struct {
	ID        uuid.UUID
	BookingID uuid.UUID
	Field     string
	OldValue  string
	NewValue  string
	Actor     Actor
	Action    AuditAction
	At        time.Time
}

func NewAuditEntry(bookingID uuid.UUID, field, oldValue, newValue string, actor Actor, action AuditAction, at time.Time) AuditEntry {
	return AuditEntry{
		ID:        uuid.New(),
		BookingID: bookingID,
		Field:     field,
		OldValue:  oldValue,
		NewValue:  newValue,
		Actor:     actor,
		Action:    action,
		At:        at,
	}
}

func StatusAudit(bookingID uuid.UUID, from, to Status, actor Actor, at time.Time) AuditEntry {
	return NewAuditEntry(bookingID, "status", string(from), string(to), actor, AuditStatusChange, at)
}
