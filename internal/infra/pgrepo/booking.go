package pgrepo

import (
	"context"
	"errors"
	"time"

	"travelcore/internal/domain/booking"
	"travelcore/internal/domain/pricing"
	"travelcore/internal/infra"
	"travelcore/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

var _ shared.BookingRepository = (*BookingRepository)(nil)

const bookingColumns = `
	id, kind, status, supplier_id, unit_id, quantity,
	customer_id, customer_name, customer_email, customer_email_verified,
	base_amount::text, discount_amount::text, discount_source, discount_reason, promo_code,
	convenience_fee::text, tax::text, total_amount::text,
	paid_amount::text, refund_amount::text,
	reserved_at, expires_at, confirmed_at, cancelled_at,
	deleted, created_at, updated_at`

func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	price := b.Price()
	_, err := r.db.Exec(ctx, `
		INSERT INTO bookings (
			id, kind, status, supplier_id, unit_id, quantity,
			customer_id, customer_name, customer_email, customer_email_verified,
			base_amount, discount_amount, discount_source, discount_reason, promo_code,
			convenience_fee, tax, total_amount, paid_amount, refund_amount,
			reserved_at, expires_at, deleted, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11::numeric, $12::numeric, $13, $14, $15,
			$16::numeric, $17::numeric, $18::numeric, $19::numeric, $20::numeric,
			$21, $22, $23, $24, $25
		)`,
		b.ID(), string(b.Kind()), string(b.Status()), b.SupplierID(), b.UnitID(), b.Quantity(),
		b.Customer().ID(), b.Customer().Name(), b.Customer().Email(), b.Customer().EmailVerified(),
		numericArg(price.Base), numericArg(price.Discount), string(price.DiscountSource), string(price.DiscountReason), price.PromoCode,
		numericArg(price.ConvenienceFee), numericArg(price.Tax), numericArg(price.Total),
		b.PaidAmount().String(), b.RefundAmount().String(),
		b.ReservedAt(), b.ExpiresAt(), b.Deleted(), b.CreatedAt(), b.UpdatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create booking", err)
	}
	return nil
}

func (r *BookingRepository) Get(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.NewRepoErr("booking not found", infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get booking", err)
	}
	return b, nil
}

// UpdateStatus persists the entity guarded by the status the caller observed
// before mutating. Zero rows affected means another writer got there first.
func (r *BookingRepository) UpdateStatus(ctx context.Context, b *booking.Booking, observed booking.Status) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET status = $1,
		    paid_amount = $2::numeric,
		    refund_amount = $3::numeric,
		    confirmed_at = $4,
		    cancelled_at = $5,
		    updated_at = $6
		WHERE id = $7 AND status = $8`,
		string(b.Status()), b.PaidAmount().String(), b.RefundAmount().String(),
		b.ConfirmedAt(), b.CancelledAt(), b.UpdatedAt(),
		b.ID(), string(observed),
	)
	if err != nil {
		return false, infra.WrapRepoErr("failed to update booking status", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *BookingRepository) UpdateFields(ctx context.Context, b *booking.Booking) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET customer_name = $1,
		    customer_email = $2,
		    customer_email_verified = $3,
		    refund_amount = $4::numeric,
		    deleted = $5,
		    updated_at = $6
		WHERE id = $7`,
		b.Customer().Name(), b.Customer().Email(), b.Customer().EmailVerified(),
		b.RefundAmount().String(), b.Deleted(), b.UpdatedAt(), b.ID(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update booking fields", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.NewRepoErr("booking not found", infra.KindNotFound)
	}
	return nil
}

func scanBooking(row pgx.Row) (*booking.Booking, error) {
	var (
		id, supplierID, unitID                      uuid.UUID
		kind, status                                string
		quantity                                    int
		custID, custName, custEmail                 string
		custVerified                                bool
		baseS, discountS, feeS, taxS, totalS        string
		discountSource, discountReason              string
		promoCode                                   string
		paidS, refundS                              string
		reservedAt, expiresAt, createdAt, updatedAt time.Time
		confirmedAt, cancelledAt                    *time.Time
		deleted                                     bool
	)
	err := row.Scan(
		&id, &kind, &status, &supplierID, &unitID, &quantity,
		&custID, &custName, &custEmail, &custVerified,
		&baseS, &discountS, &discountSource, &discountReason, &promoCode,
		&feeS, &taxS, &totalS, &paidS, &refundS,
		&reservedAt, &expiresAt, &confirmedAt, &cancelledAt,
		&deleted, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	customer, err := booking.NewCustomer(custID, custName, custEmail, custVerified)
	if err != nil {
		return nil, err
	}

	price := pricing.Breakdown{
		DiscountSource: pricing.DiscountSource(discountSource),
		DiscountReason: pricing.Reason(discountReason),
		PromoCode:      promoCode,
	}
	if price.Base, err = scanDecimal(baseS); err != nil {
		return nil, err
	}
	if price.Discount, err = scanDecimal(discountS); err != nil {
		return nil, err
	}
	if price.ConvenienceFee, err = scanDecimal(feeS); err != nil {
		return nil, err
	}
	if price.Tax, err = scanDecimal(taxS); err != nil {
		return nil, err
	}
	if price.Total, err = scanDecimal(totalS); err != nil {
		return nil, err
	}
	paid, err := booking.NewMoneyFromString(paidS)
	if err != nil {
		return nil, err
	}
	refund, err := booking.NewMoneyFromString(refundS)
	if err != nil {
		return nil, err
	}

	return booking.ReconstructBooking(
		id, booking.Kind(kind), booking.Status(status),
		supplierID, unitID, quantity, customer, price,
		paid, refund,
		reservedAt, expiresAt, confirmedAt, cancelledAt,
		deleted, createdAt, updatedAt,
	), nil
}
