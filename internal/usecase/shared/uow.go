package shared

import (
	"context"
	"time"

	"travelcore/internal/domain/booking"
	"travelcore/internal/domain/pricing"
	"travelcore/internal/domain/settlement"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitOfWork gives commands all-or-nothing semantics over the store. The
// inventory claim, booking create and audit write of a reservation commit or
// roll back together; partial application is never observable.
type UnitOfWork interface {
	// Within: full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// Reads: validation reads outside transactions
	Reads() CommandReads
}

type Tx interface {
	Bookings() BookingRepository
	Inventory() InventoryRepository
	Audit() AuditRepository
	Payouts() PayoutRepository
	Promos() PromoRepository
	Ledger() LedgerRepository
}

type CommandReads interface {
	BookingByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	UnitByRef(ctx context.Context, resourceRef, timeKey string) (*UnitSnapshot, error)
	ExpiredCandidates(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
	PromoByCode(ctx context.Context, code string) (*pricing.PromoRule, error)
	PromoUsageByCustomer(ctx context.Context, code, customerID string) (int64, error)
	CorporateByDomain(ctx context.Context, emailDomain string) (*pricing.CorporateRule, error)
	SupplierProfile(ctx context.Context, supplierID uuid.UUID) (*SupplierProfile, error)
	PayoutByBooking(ctx context.Context, bookingID uuid.UUID) (uuid.UUID, error)
	LedgerSourceForDate(ctx context.Context, date time.Time) (*LedgerSource, error)
}

type BookingRepository interface {
	Create(ctx context.Context, b *booking.Booking) error
	Get(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	// UpdateStatus persists the entity's mutated state guarded by the status
	// the caller observed. A false return means another writer won the race.
	UpdateStatus(ctx context.Context, b *booking.Booking, observed booking.Status) (bool, error)
	// UpdateFields persists non-status mutations (contact amendments, refund
	// amount, soft-delete flag).
	UpdateFields(ctx context.Context, b *booking.Booking) error
}

type InventoryRepository interface {
	// Claim atomically decrements available under the unit's exclusive lock.
	// Kinds: NOT_FOUND, INSUFFICIENT_STOCK, LOCK_TIMEOUT.
	Claim(ctx context.Context, unitID uuid.UUID, quantity int) error
	// Release increments available under the same lock discipline.
	Release(ctx context.Context, unitID uuid.UUID, quantity int) error
}

type AuditRepository interface {
	Append(ctx context.Context, entry booking.AuditEntry) error
}

type PayoutRepository interface {
	Create(ctx context.Context, p *settlement.OwnerPayout) error
	Get(ctx context.Context, id uuid.UUID) (*settlement.OwnerPayout, error)
	Update(ctx context.Context, p *settlement.OwnerPayout) error
}

type PromoRepository interface {
	// IncrementUsage bumps global and per-customer redemption counts inside
	// the reservation transaction.
	IncrementUsage(ctx context.Context, code, customerID string) error
}

type LedgerRepository interface {
	// Upsert is idempotent on the natural date key.
	Upsert(ctx context.Context, row LedgerRow) (created bool, err error)
}

// LedgerRow is the persisted daily rollup, keyed by calendar date.
type LedgerRow struct {
	Date            time.Time
	ConfirmedCount  int
	GrossRevenue    decimal.Decimal
	ServiceFees     decimal.Decimal
	Refunds         decimal.Decimal
	Cancellations   int
	PayoutLiability decimal.Decimal
	ComputedAt      time.Time
}
