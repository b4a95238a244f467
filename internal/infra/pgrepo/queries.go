package pgrepo

import (
	"context"
	"errors"
	"time"

	"travelcore/internal/domain/settlement"
	"travelcore/internal/infra"
	"travelcore/internal/usecase/queries"
	"travelcore/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Read models go straight from SQL to view DTOs. No entity reconstruction on
// the query path.

type BookingReadModel struct {
	db DBTX
}

func NewBookingQueries(db DBTX) queries.BookingQueries {
	return &BookingReadModel{db: db}
}

type PayoutReadModel struct {
	db DBTX
}

func NewPayoutQueries(db DBTX) queries.PayoutQueries {
	return &PayoutReadModel{db: db}
}

type LedgerReadModel struct {
	db DBTX
}

func NewLedgerQueries(db DBTX) queries.LedgerQueries {
	return &LedgerReadModel{db: db}
}

func (m *BookingReadModel) GetByID(ctx context.Context, id uuid.UUID) (*queries.BookingView, error) {
	row := m.db.QueryRow(ctx, `
		SELECT b.id, b.kind, b.status, b.supplier_id, b.unit_id, u.resource_ref, u.time_key,
		       b.quantity, b.customer_id, b.customer_name, b.customer_email,
		       b.base_amount::text, b.discount_amount::text, b.discount_source,
		       b.convenience_fee::text, b.tax::text, b.total_amount::text,
		       b.paid_amount::text, b.refund_amount::text,
		       b.reserved_at, b.expires_at, b.confirmed_at, b.cancelled_at,
		       b.deleted, b.created_at, b.updated_at
		FROM bookings b
		JOIN inventory_units u ON u.id = b.unit_id
		WHERE b.id = $1`, id)

	var v queries.BookingView
	err := row.Scan(
		&v.ID, &v.Kind, &v.Status, &v.SupplierID, &v.UnitID, &v.ResourceRef, &v.TimeKey,
		&v.Quantity, &v.CustomerID, &v.CustomerName, &v.CustomerEmail,
		&v.BaseAmount, &v.DiscountAmount, &v.DiscountSource,
		&v.ConvenienceFee, &v.Tax, &v.TotalAmount,
		&v.PaidAmount, &v.RefundAmount,
		&v.ReservedAt, &v.ExpiresAt, &v.ConfirmedAt, &v.CancelledAt,
		&v.Deleted, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.NewRepoErr("booking not found", infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get booking view", err)
	}
	return &v, nil
}

func (m *BookingReadModel) List(ctx context.Context, includeDeleted bool, limit, offset int) ([]queries.BookingListItem, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := m.db.Query(ctx, `
		SELECT b.id, b.kind, b.status, u.resource_ref, u.time_key,
		       b.quantity, b.total_amount::text, b.deleted, b.reserved_at
		FROM bookings b
		JOIN inventory_units u ON u.id = b.unit_id
		WHERE ($1 OR NOT b.deleted)
		ORDER BY b.reserved_at DESC
		LIMIT $2 OFFSET $3`,
		includeDeleted, limit, offset,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list bookings", err)
	}
	defer rows.Close()

	items := make([]queries.BookingListItem, 0, limit)
	for rows.Next() {
		var it queries.BookingListItem
		if err := rows.Scan(
			&it.ID, &it.Kind, &it.Status, &it.ResourceRef, &it.TimeKey,
			&it.Quantity, &it.TotalAmount, &it.Deleted, &it.ReservedAt,
		); err != nil {
			return nil, infra.WrapRepoErr("failed to scan booking row", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read booking list", err)
	}
	return items, nil
}

func (m *BookingReadModel) AuditTrail(ctx context.Context, bookingID uuid.UUID) ([]queries.AuditView, error) {
	rows, err := m.db.Query(ctx, `
		SELECT id, booking_id, field, old_value, new_value, actor, action, at
		FROM booking_audits
		WHERE booking_id = $1
		ORDER BY at, id`,
		bookingID,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to get audit trail", err)
	}
	defer rows.Close()

	var views []queries.AuditView
	for rows.Next() {
		var v queries.AuditView
		if err := rows.Scan(&v.ID, &v.BookingID, &v.Field, &v.OldValue, &v.NewValue, &v.Actor, &v.Action, &v.At); err != nil {
			return nil, infra.WrapRepoErr("failed to scan audit row", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read audit trail", err)
	}
	return views, nil
}

const payoutViewColumns = `
	id, booking_id, supplier_id,
	gross_value::text, platform_fee::text, refunds::text, penalties::text, net_payable::text,
	status, kyc_verified, bank_verified, block_reason, failure_reason, retry_count,
	settled_at, settlement_ref, created_at`

func (m *PayoutReadModel) GetByID(ctx context.Context, id uuid.UUID) (*queries.PayoutView, error) {
	return m.one(ctx, `SELECT `+payoutViewColumns+` FROM owner_payouts WHERE id = $1`, id)
}

func (m *PayoutReadModel) GetByBooking(ctx context.Context, bookingID uuid.UUID) (*queries.PayoutView, error) {
	return m.one(ctx, `SELECT `+payoutViewColumns+` FROM owner_payouts WHERE booking_id = $1`, bookingID)
}

func (m *PayoutReadModel) one(ctx context.Context, sql string, arg any) (*queries.PayoutView, error) {
	v, err := scanPayoutView(m.db.QueryRow(ctx, sql, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.NewRepoErr("payout not found", infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get payout view", err)
	}
	return v, nil
}

func (m *PayoutReadModel) ListBlocked(ctx context.Context, limit int) ([]queries.PayoutView, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := m.db.Query(ctx,
		`SELECT `+payoutViewColumns+` FROM owner_payouts WHERE status IN ($1, $2, $3) ORDER BY created_at LIMIT $4`,
		string(settlement.StatusKYCPending), string(settlement.StatusBankPending), string(settlement.StatusFailed),
		limit,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list blocked payouts", err)
	}
	defer rows.Close()

	var views []queries.PayoutView
	for rows.Next() {
		v, err := scanPayoutView(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan payout row", err)
		}
		views = append(views, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read blocked payouts", err)
	}
	return views, nil
}

func scanPayoutView(row pgx.Row) (*queries.PayoutView, error) {
	var v queries.PayoutView
	err := row.Scan(
		&v.ID, &v.BookingID, &v.SupplierID,
		&v.GrossValue, &v.PlatformFee, &v.Refunds, &v.Penalties, &v.NetPayable,
		&v.Status, &v.KYCVerified, &v.BankVerified, &v.BlockReason, &v.FailureReason, &v.RetryCount,
		&v.SettledAt, &v.SettlementRef, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.CanPayout = v.KYCVerified && v.BankVerified
	return &v, nil
}

func (m *LedgerReadModel) GetByDate(ctx context.Context, date time.Time) (*shared.LedgerRow, error) {
	var (
		row                        shared.LedgerRow
		grossS, feesS, refS, liabS string
	)
	err := m.db.QueryRow(ctx, `
		SELECT ledger_date, confirmed_count, gross_revenue::text, service_fees::text,
		       refunds::text, cancellations, payout_liability::text, computed_at
		FROM daily_ledger
		WHERE ledger_date = $1`,
		date.UTC().Truncate(24*time.Hour),
	).Scan(&row.Date, &row.ConfirmedCount, &grossS, &feesS, &refS, &row.Cancellations, &liabS, &row.ComputedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.NewRepoErr("ledger row not found", infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get ledger row", err)
	}
	if row.GrossRevenue, err = scanDecimal(grossS); err != nil {
		return nil, infra.WrapRepoErr("failed to parse ledger row", err)
	}
	if row.ServiceFees, err = scanDecimal(feesS); err != nil {
		return nil, infra.WrapRepoErr("failed to parse ledger row", err)
	}
	if row.Refunds, err = scanDecimal(refS); err != nil {
		return nil, infra.WrapRepoErr("failed to parse ledger row", err)
	}
	if row.PayoutLiability, err = scanDecimal(liabS); err != nil {
		return nil, infra.WrapRepoErr("failed to parse ledger row", err)
	}
	return &row, nil
}
