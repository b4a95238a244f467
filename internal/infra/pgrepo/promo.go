package pgrepo

import (
	"context"

	"travelcore/internal/infra"
	"travelcore/internal/usecase/shared"
)

type PromoRepository struct {
	db DBTX
}

func NewPromoRepository(db DBTX) *PromoRepository {
	return &PromoRepository{db: db}
}

var _ shared.PromoRepository = (*PromoRepository)(nil)

// IncrementUsage runs inside the reservation transaction so the global count
// and the per-customer count move together with the booking insert.
func (r *PromoRepository) IncrementUsage(ctx context.Context, code, customerID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE promo_rules SET used = used + 1 WHERE code = $1`, code,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to increment promo usage", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.NewRepoErr("promo code not found", infra.KindNotFound)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO promo_redemptions (code, customer_id, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (code, customer_id) DO UPDATE SET count = promo_redemptions.count + 1`,
		code, customerID,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to record promo redemption", err)
	}
	return nil
}
