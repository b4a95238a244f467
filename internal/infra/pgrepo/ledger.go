package pgrepo

import (
	"context"

	"travelcore/internal/infra"
	"travelcore/internal/usecase/shared"
)

type LedgerRepository struct {
	db DBTX
}

func NewLedgerRepository(db DBTX) *LedgerRepository {
	return &LedgerRepository{db: db}
}

var _ shared.LedgerRepository = (*LedgerRepository)(nil)

// Upsert is idempotent on the calendar date. Re-running a rollup replaces the
// row with freshly computed aggregates. xmax = 0 distinguishes a fresh insert
// from a conflict update.
func (r *LedgerRepository) Upsert(ctx context.Context, row shared.LedgerRow) (bool, error) {
	var created bool
	err := r.db.QueryRow(ctx, `
		INSERT INTO daily_ledger (
			ledger_date, confirmed_count, gross_revenue, service_fees,
			refunds, cancellations, payout_liability, computed_at
		) VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6, $7::numeric, $8)
		ON CONFLICT (ledger_date) DO UPDATE SET
			confirmed_count = EXCLUDED.confirmed_count,
			gross_revenue = EXCLUDED.gross_revenue,
			service_fees = EXCLUDED.service_fees,
			refunds = EXCLUDED.refunds,
			cancellations = EXCLUDED.cancellations,
			payout_liability = EXCLUDED.payout_liability,
			computed_at = EXCLUDED.computed_at
		RETURNING (xmax = 0)`,
		row.Date, row.ConfirmedCount, numericArg(row.GrossRevenue), numericArg(row.ServiceFees),
		numericArg(row.Refunds), row.Cancellations, numericArg(row.PayoutLiability), row.ComputedAt,
	).Scan(&created)
	if err != nil {
		return false, infra.WrapRepoErr("failed to upsert ledger row", err)
	}
	return created, nil
}
