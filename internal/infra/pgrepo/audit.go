package pgrepo

import (
	"context"

	"travelcore/internal/domain/booking"
	"travelcore/internal/infra"
	"travelcore/internal/usecase/shared"
)

type AuditRepository struct {
	db DBTX
}

func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

var _ shared.AuditRepository = (*AuditRepository)(nil)

// Append only. Audit rows are never updated or deleted.
func (r *AuditRepository) Append(ctx context.Context, entry booking.AuditEntry) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO booking_audits (id, booking_id, field, old_value, new_value, actor, action, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.BookingID, entry.Field, entry.OldValue, entry.NewValue,
		entry.Actor.ID(), string(entry.Action), entry.At,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to append audit entry", err)
	}
	return nil
}
