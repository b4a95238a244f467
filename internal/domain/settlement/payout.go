// Package settlement computes and tracks supplier payouts from a frozen price
// snapshot, gated on KYC and bank verification, with a bounded retry policy.
package settlement

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultMaxRetries caps transfer attempts when no operator override is
// configured.
const DefaultMaxRetries = 3

var (
	ErrNegativeAmount   = errors.New("settlement amounts cannot be negative")
	ErrNotReconciled    = errors.New("net payable does not reconcile with gross")
	ErrAlreadyPaid      = errors.New("payout already paid")
	ErrNotPayable       = errors.New("payout blocked by verification gate")
	ErrRetriesExhausted = errors.New("max retries exceeded")
)

type Status string

const (
	StatusKYCPending  Status = "kyc_pending"
	StatusBankPending Status = "bank_pending"
	StatusPending     Status = "pending"
	StatusProcessing  Status = "processing"
	StatusPaid        Status = "paid"
	StatusFailed      Status = "failed"
)

// BankDetails is the account snapshot frozen onto a payout at first
// successful validation. Immutable thereafter.
type BankDetails struct {
	HolderName    string
	AccountNumber string
	IFSC          string
	BankName      string
}

func (b BankDetails) Complete() bool {
	return b.HolderName != "" && b.AccountNumber != "" && b.IFSC != ""
}

// OwnerPayout is one-to-one with a confirmed or cancelled booking. Created
// once at confirmation; mutated by validation, execution and retry; never
// deleted. Invariant: netPayable == gross - platformFee - refunds - penalties.
type OwnerPayout struct {
	id            uuid.UUID
	bookingID     uuid.UUID
	supplierID    uuid.UUID
	grossValue    decimal.Decimal
	platformFee   decimal.Decimal
	refunds       decimal.Decimal
	penalties     decimal.Decimal
	netPayable    decimal.Decimal
	status        Status
	kycVerified   bool
	bankVerified  bool
	blockReason   string
	failureReason string
	retryCount    int
	bankSnapshot  *BankDetails
	settledAt     *time.Time
	settlementRef string
	createdAt     time.Time
	updatedAt     time.Time
}

func NewOwnerPayout(bookingID, supplierID uuid.UUID, gross, platformFee, refunds decimal.Decimal, now time.Time) (*OwnerPayout, error) {
	if gross.IsNegative() || platformFee.IsNegative() || refunds.IsNegative() {
		return nil, ErrNegativeAmount
	}
	p := &OwnerPayout{
		id:          uuid.New(),
		bookingID:   bookingID,
		supplierID:  supplierID,
		grossValue:  gross.Round(2),
		platformFee: platformFee.Round(2),
		refunds:     refunds.Round(2),
		penalties:   decimal.Zero,
		status:      StatusKYCPending,
		blockReason: "Verification pending",
		createdAt:   now,
		updatedAt:   now,
	}
	p.recomputeNet()
	return p, nil
}

func ReconstructOwnerPayout(
	id, bookingID, supplierID uuid.UUID,
	gross, platformFee, refunds, penalties, netPayable decimal.Decimal,
	status Status,
	kycVerified, bankVerified bool,
	blockReason, failureReason string,
	retryCount int,
	bankSnapshot *BankDetails,
	settledAt *time.Time,
	settlementRef string,
	createdAt, updatedAt time.Time,
) *OwnerPayout {
	return &OwnerPayout{
		id:            id,
		bookingID:     bookingID,
		supplierID:    supplierID,
		grossValue:    gross,
		platformFee:   platformFee,
		refunds:       refunds,
		penalties:     penalties,
		netPayable:    netPayable,
		status:        status,
		kycVerified:   kycVerified,
		bankVerified:  bankVerified,
		blockReason:   blockReason,
		failureReason: failureReason,
		retryCount:    retryCount,
		bankSnapshot:  bankSnapshot,
		settledAt:     settledAt,
		settlementRef: settlementRef,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

func (p *OwnerPayout) recomputeNet() {
	p.netPayable = p.grossValue.Sub(p.platformFee).Sub(p.refunds).Sub(p.penalties).Round(2)
}

// Reconcile re-checks the settlement identity: netPayable + platformFee must
// equal the refund/penalty-adjusted gross in every state.
func (p *OwnerPayout) Reconcile() error {
	adjusted := p.grossValue.Sub(p.refunds).Sub(p.penalties)
	if !p.netPayable.Add(p.platformFee).Equal(adjusted) {
		return ErrNotReconciled
	}
	return nil
}

// ApplyVerification records the current KYC and bank state, derives
// canPayout and the settlement status, and freezes the bank snapshot on
// the first fully verified validation.
func (p *OwnerPayout) ApplyVerification(kycVerified bool, details BankDetails, now time.Time) {
	if p.status == StatusPaid || p.status == StatusFailed {
		return
	}
	p.kycVerified = kycVerified
	p.bankVerified = details.Complete()
	switch {
	case !p.kycVerified:
		p.status = StatusKYCPending
		p.blockReason = "KYC verification pending"
	case !p.bankVerified:
		p.status = StatusBankPending
		p.blockReason = "Bank details incomplete"
	default:
		p.status = StatusPending
		p.blockReason = ""
		if p.bankSnapshot == nil {
			snap := details
			p.bankSnapshot = &snap
		}
	}
	p.updatedAt = now
}

func (p *OwnerPayout) CanPayout() bool {
	return p.kycVerified && p.bankVerified
}

// BeginExecution moves the payout into processing. Paid payouts are a
// successful no-op for the caller; blocked payouts refuse.
func (p *OwnerPayout) BeginExecution(now time.Time) error {
	if p.status == StatusPaid {
		return ErrAlreadyPaid
	}
	if !p.CanPayout() {
		return ErrNotPayable
	}
	if p.status == StatusFailed {
		return ErrRetriesExhausted
	}
	p.status = StatusProcessing
	p.updatedAt = now
	return nil
}

func (p *OwnerPayout) MarkPaid(reference string, now time.Time) {
	p.status = StatusPaid
	p.settlementRef = reference
	t := now
	p.settledAt = &t
	p.failureReason = ""
	p.updatedAt = now
}

// RecordFailure captures a transfer failure and bumps the retry counter.
// Once the counter reaches maxRetries the payout is permanently failed.
func (p *OwnerPayout) RecordFailure(reason string, now time.Time, maxRetries int) {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	p.retryCount++
	p.failureReason = reason
	if p.retryCount >= maxRetries {
		p.status = StatusFailed
		p.failureReason = "Max retries exceeded"
	} else {
		p.status = StatusPending
	}
	p.updatedAt = now
}

// BlockExecution records why a gated payout could not run without touching
// the retry counter; verification gates are not transfer failures.
func (p *OwnerPayout) BlockExecution(reason string, now time.Time) {
	p.failureReason = reason
	p.updatedAt = now
}

func (p *OwnerPayout) CanRetry(maxRetries int) bool {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return p.retryCount < maxRetries && p.status != StatusPaid && p.status != StatusFailed
}

func (p *OwnerPayout) ID() uuid.UUID                { return p.id }
func (p *OwnerPayout) BookingID() uuid.UUID         { return p.bookingID }
func (p *OwnerPayout) SupplierID() uuid.UUID        { return p.supplierID }
func (p *OwnerPayout) GrossValue() decimal.Decimal  { return p.grossValue }
func (p *OwnerPayout) PlatformFee() decimal.Decimal { return p.platformFee }
func (p *OwnerPayout) Refunds() decimal.Decimal     { return p.refunds }
func (p *OwnerPayout) Penalties() decimal.Decimal   { return p.penalties }
func (p *OwnerPayout) NetPayable() decimal.Decimal  { return p.netPayable }
func (p *OwnerPayout) Status() Status               { return p.status }
func (p *OwnerPayout) KYCVerified() bool            { return p.kycVerified }
func (p *OwnerPayout) BankVerified() bool           { return p.bankVerified }
func (p *OwnerPayout) BlockReason() string          { return p.blockReason }
func (p *OwnerPayout) FailureReason() string        { return p.failureReason }
func (p *OwnerPayout) RetryCount() int              { return p.retryCount }
func (p *OwnerPayout) BankSnapshot() *BankDetails   { return p.bankSnapshot }
func (p *OwnerPayout) SettledAt() *time.Time        { return p.settledAt }
func (p *OwnerPayout) SettlementRef() string        { return p.settlementRef }
func (p *OwnerPayout) CreatedAt() time.Time         { return p.createdAt }
func (p *OwnerPayout) UpdatedAt() time.Time         { return p.updatedAt }
