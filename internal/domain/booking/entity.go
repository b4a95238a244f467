package booking

import (
	"errors"
	"time"

	"travelcore/internal/domain/pricing"

	"github.com/google/uuid"
)

var (
	ErrInvalidKind         = errors.New("invalid booking kind")
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrRefundExceedsPaid   = errors.New("refund cannot exceed paid amount")
	ErrNegativeRefund      = errors.New("refund cannot be negative")
	ErrPriceSnapshotBroken = errors.New("price snapshot does not reconcile")
)

// Booking is owned by the reservation engine at creation and mutated only
// through Transition and the audited field amendments afterwards.
type Booking struct {
	id           uuid.UUID
	kind         Kind
	status       Status
	supplierID   uuid.UUID
	unitID       uuid.UUID
	quantity     int
	customer     Customer
	price        pricing.Breakdown
	paidAmount   Money
	refundAmount Money
	reservedAt   time.Time
	expiresAt    time.Time
	confirmedAt  *time.Time
	cancelledAt  *time.Time
	deleted      bool
	createdAt    time.Time
	updatedAt    time.Time
}

func NewBooking(
	kind Kind,
	supplierID, unitID uuid.UUID,
	quantity int,
	customer Customer,
	price pricing.Breakdown,
	reservedAt time.Time,
	ttl time.Duration,
) (*Booking, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if !price.Verify() {
		return nil, ErrPriceSnapshotBroken
	}
	return &Booking{
		id:           uuid.New(),
		kind:         kind,
		status:       StatusPaymentPending,
		supplierID:   supplierID,
		unitID:       unitID,
		quantity:     quantity,
		customer:     customer,
		price:        price,
		paidAmount:   ZeroMoney(),
		refundAmount: ZeroMoney(),
		reservedAt:   reservedAt,
		expiresAt:    reservedAt.Add(ttl),
		createdAt:    reservedAt,
		updatedAt:    reservedAt,
	}, nil
}

func ReconstructBooking(
	id uuid.UUID,
	kind Kind,
	status Status,
	supplierID, unitID uuid.UUID,
	quantity int,
	customer Customer,
	price pricing.Breakdown,
	paidAmount, refundAmount Money,
	reservedAt, expiresAt time.Time,
	confirmedAt, cancelledAt *time.Time,
	deleted bool,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:           id,
		kind:         kind,
		status:       status,
		supplierID:   supplierID,
		unitID:       unitID,
		quantity:     quantity,
		customer:     customer,
		price:        price,
		paidAmount:   paidAmount,
		refundAmount: refundAmount,
		reservedAt:   reservedAt,
		expiresAt:    expiresAt,
		confirmedAt:  confirmedAt,
		cancelledAt:  cancelledAt,
		deleted:      deleted,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

// Transition moves the booking to next if the edge is allowed, stamping the
// lifecycle timestamps. The caller persists the change and the audit row in
// the same transaction.
func (b *Booking) Transition(next Status, now time.Time) error {
	if !next.Valid() || !b.status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	b.status = next
	switch next {
	case StatusConfirmed:
		t := now
		b.confirmedAt = &t
		b.paidAmount = NewMoney(b.price.Total)
	case StatusCancelled:
		t := now
		b.cancelledAt = &t
	}
	b.updatedAt = now
	return nil
}

// ApplyRefund records a refund amount alongside a transition to refunded or
// a post-cancellation adjustment.
func (b *Booking) ApplyRefund(amount Money, now time.Time) error {
	if amount.IsNegative() {
		return ErrNegativeRefund
	}
	if amount.GreaterThan(b.paidAmount) {
		return ErrRefundExceedsPaid
	}
	b.refundAmount = amount
	b.updatedAt = now
	return nil
}

// SetDeleted flips the orthogonal soft-delete flag. It is not a status
// transition and is allowed in any lifecycle state.
func (b *Booking) SetDeleted(deleted bool, now time.Time) {
	b.deleted = deleted
	b.updatedAt = now
}

// AmendCustomerContact replaces contact fields; the command layer writes the
// field-level audit rows.
func (b *Booking) AmendCustomerContact(name, email string, now time.Time) {
	b.customer.name = name
	b.customer.email = email
	b.updatedAt = now
}

// ExpiredBy reports whether the reservation TTL has elapsed at now for a
// booking still awaiting payment.
func (b *Booking) ExpiredBy(now time.Time) bool {
	return b.status.Reclaimable() && !b.expiresAt.After(now)
}

func (b *Booking) ID() uuid.UUID            { return b.id }
func (b *Booking) Kind() Kind               { return b.kind }
func (b *Booking) Status() Status           { return b.status }
func (b *Booking) SupplierID() uuid.UUID    { return b.supplierID }
func (b *Booking) UnitID() uuid.UUID        { return b.unitID }
func (b *Booking) Quantity() int            { return b.quantity }
func (b *Booking) Customer() Customer       { return b.customer }
func (b *Booking) Price() pricing.Breakdown { return b.price }
func (b *Booking) TotalAmount() Money       { return NewMoney(b.price.Total) }
func (b *Booking) PaidAmount() Money        { return b.paidAmount }
func (b *Booking) RefundAmount() Money      { return b.refundAmount }
func (b *Booking) ReservedAt() time.Time    { return b.reservedAt }
func (b *Booking) ExpiresAt() time.Time     { return b.expiresAt }
func (b *Booking) ConfirmedAt() *time.Time  { return b.confirmedAt }
func (b *Booking) CancelledAt() *time.Time  { return b.cancelledAt }
func (b *Booking) Deleted() bool            { return b.deleted }
func (b *Booking) CreatedAt() time.Time     { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time     { return b.updatedAt }
