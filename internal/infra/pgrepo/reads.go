package pgrepo

import (
	"context"
	"errors"
	"time"

	"travelcore/internal/domain/booking"
	"travelcore/internal/domain/pricing"
	"travelcore/internal/domain/settlement"
	"travelcore/internal/infra"
	"travelcore/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CommandReads serves write-side validation lookups. It runs on the pool
// outside transactions; anything that must be consistent with a write happens
// through the repositories inside Within.
type CommandReads struct {
	db DBTX
}

func NewCommandReads(db DBTX) *CommandReads {
	return &CommandReads{db: db}
}

var _ shared.CommandReads = (*CommandReads)(nil)

func (r *CommandReads) BookingByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return NewBookingRepository(r.db).Get(ctx, id)
}

func (r *CommandReads) UnitByRef(ctx context.Context, resourceRef, timeKey string) (*shared.UnitSnapshot, error) {
	var (
		snap  shared.UnitSnapshot
		kind  string
		price string
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, kind, resource_ref, time_key, supplier_id, capacity, available, base_price::text
		FROM inventory_units
		WHERE resource_ref = $1 AND time_key = $2`,
		resourceRef, timeKey,
	).Scan(&snap.ID, &kind, &snap.ResourceRef, &snap.TimeKey, &snap.SupplierID, &snap.Capacity, &snap.Available, &price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.NewRepoErr("inventory unit not found", infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get inventory unit", err)
	}
	snap.Kind = kind
	if snap.BasePrice, err = scanDecimal(price); err != nil {
		return nil, infra.WrapRepoErr("failed to parse unit base price", err)
	}
	return &snap, nil
}

func (r *CommandReads) ExpiredCandidates(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id FROM bookings
		WHERE status IN ($1, $2) AND expires_at <= $3 AND NOT deleted
		ORDER BY expires_at
		LIMIT $4`,
		string(booking.StatusReserved), string(booking.StatusPaymentPending), cutoff, limit,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list expired candidates", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, infra.WrapRepoErr("failed to scan expired candidate", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read expired candidates", err)
	}
	return ids, nil
}

func (r *CommandReads) PromoByCode(ctx context.Context, code string) (*pricing.PromoRule, error) {
	var (
		rule                        pricing.PromoRule
		percentS, flatS, maxS, minS *string
		validFrom, validUntil       *time.Time
	)
	err := r.db.QueryRow(ctx, `
		SELECT code, active, percent_off::text, flat_amount::text, max_discount::text,
		       valid_from, valid_until, min_booking_amount::text,
		       global_limit, used, per_user_limit, kinds
		FROM promo_rules
		WHERE code = $1`,
		code,
	).Scan(
		&rule.Code, &rule.Active, &percentS, &flatS, &maxS,
		&validFrom, &validUntil, &minS,
		&rule.GlobalLimit, &rule.GlobalUsed, &rule.PerUserLimit, &rule.Kinds,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.NewRepoErr("promo code not found", infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get promo rule", err)
	}
	if rule.PercentOff, err = scanDecimalPtr(percentS); err != nil {
		return nil, infra.WrapRepoErr("failed to parse promo rule", err)
	}
	if rule.FlatAmount, err = scanDecimalPtr(flatS); err != nil {
		return nil, infra.WrapRepoErr("failed to parse promo rule", err)
	}
	if rule.MaxDiscount, err = scanDecimalPtr(maxS); err != nil {
		return nil, infra.WrapRepoErr("failed to parse promo rule", err)
	}
	if minS != nil {
		if rule.MinBookingAmount, err = scanDecimal(*minS); err != nil {
			return nil, infra.WrapRepoErr("failed to parse promo rule", err)
		}
	}
	rule.ValidFrom = validFrom
	rule.ValidUntil = validUntil
	return &rule, nil
}

func (r *CommandReads) PromoUsageByCustomer(ctx context.Context, code, customerID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT count FROM promo_redemptions WHERE code = $1 AND customer_id = $2`,
		code, customerID,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, infra.WrapRepoErr("failed to get promo usage", err)
	}
	return count, nil
}

func (r *CommandReads) CorporateByDomain(ctx context.Context, emailDomain string) (*pricing.CorporateRule, error) {
	var (
		rule     pricing.CorporateRule
		percentS string
		maxS     *string
	)
	err := r.db.QueryRow(ctx, `
		SELECT email_domain, active, percent_off::text, max_discount::text
		FROM corporate_rules
		WHERE email_domain = $1`,
		emailDomain,
	).Scan(&rule.EmailDomain, &rule.Active, &percentS, &maxS)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.NewRepoErr("corporate rule not found", infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get corporate rule", err)
	}
	if rule.PercentOff, err = scanDecimal(percentS); err != nil {
		return nil, infra.WrapRepoErr("failed to parse corporate rule", err)
	}
	if rule.MaxDiscount, err = scanDecimalPtr(maxS); err != nil {
		return nil, infra.WrapRepoErr("failed to parse corporate rule", err)
	}
	return &rule, nil
}

func (r *CommandReads) SupplierProfile(ctx context.Context, supplierID uuid.UUID) (*shared.SupplierProfile, error) {
	var profile shared.SupplierProfile
	err := r.db.QueryRow(ctx, `
		SELECT supplier_id, kyc_verified, bank_holder, bank_account, bank_ifsc, bank_name
		FROM supplier_profiles
		WHERE supplier_id = $1`,
		supplierID,
	).Scan(
		&profile.SupplierID, &profile.KYCVerified,
		&profile.Bank.HolderName, &profile.Bank.AccountNumber, &profile.Bank.IFSC, &profile.Bank.BankName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.NewRepoErr("supplier not found", infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get supplier profile", err)
	}
	return &profile, nil
}

func (r *CommandReads) PayoutByBooking(ctx context.Context, bookingID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx,
		`SELECT id FROM owner_payouts WHERE booking_id = $1`, bookingID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, infra.NewRepoErr("payout not found", infra.KindNotFound)
		}
		return uuid.Nil, infra.WrapRepoErr("failed to get payout by booking", err)
	}
	return id, nil
}

// LedgerSourceForDate aggregates one UTC calendar day in SQL. Confirmed and
// cancelled counts bucket on their respective timestamps; refunds bucket on
// the refund's own update time, not the booking's confirmation day.
func (r *CommandReads) LedgerSourceForDate(ctx context.Context, date time.Time) (*shared.LedgerSource, error) {
	dayStart := date.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	var (
		src                 shared.LedgerSource
		grossS, feesS, refS string
	)
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE confirmed_at >= $1 AND confirmed_at < $2),
			COALESCE(SUM(total_amount) FILTER (WHERE confirmed_at >= $1 AND confirmed_at < $2), 0)::text,
			COALESCE(SUM(convenience_fee) FILTER (WHERE confirmed_at >= $1 AND confirmed_at < $2), 0)::text,
			COALESCE(SUM(refund_amount) FILTER (WHERE status = $3 AND updated_at >= $1 AND updated_at < $2), 0)::text,
			COUNT(*) FILTER (WHERE cancelled_at >= $1 AND cancelled_at < $2)
		FROM bookings`,
		dayStart, dayEnd, string(booking.StatusRefunded),
	).Scan(&src.ConfirmedCount, &grossS, &feesS, &refS, &src.Cancellations)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to aggregate bookings for ledger", err)
	}
	if src.GrossRevenue, err = scanDecimal(grossS); err != nil {
		return nil, infra.WrapRepoErr("failed to parse ledger aggregates", err)
	}
	if src.ServiceFees, err = scanDecimal(feesS); err != nil {
		return nil, infra.WrapRepoErr("failed to parse ledger aggregates", err)
	}
	if src.Refunds, err = scanDecimal(refS); err != nil {
		return nil, infra.WrapRepoErr("failed to parse ledger aggregates", err)
	}

	var liabilityS string
	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(net_payable), 0)::text
		FROM owner_payouts
		WHERE status NOT IN ($1, $2)`,
		string(settlement.StatusPaid), string(settlement.StatusFailed),
	).Scan(&liabilityS)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to aggregate payout liability", err)
	}
	if src.PayoutLiability, err = scanDecimal(liabilityS); err != nil {
		return nil, infra.WrapRepoErr("failed to parse payout liability", err)
	}
	return &src, nil
}
