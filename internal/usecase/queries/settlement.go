package queries

import (
	"context"
	"time"

	"travelcore/internal/usecase/shared"

	"github.com/google/uuid"
)

type PayoutView struct {
	ID            uuid.UUID  `json:"id"`
	BookingID     uuid.UUID  `json:"booking_id"`
	SupplierID    uuid.UUID  `json:"supplier_id"`
	GrossValue    string     `json:"gross_value"`
	PlatformFee   string     `json:"platform_fee"`
	Refunds       string     `json:"refunds"`
	Penalties     string     `json:"penalties"`
	NetPayable    string     `json:"net_payable"`
	Status        string     `json:"status"`
	KYCVerified   bool       `json:"kyc_verified"`
	BankVerified  bool       `json:"bank_verified"`
	CanPayout     bool       `json:"can_payout"`
	BlockReason   string     `json:"block_reason,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	RetryCount    int        `json:"retry_count"`
	SettledAt     *time.Time `json:"settled_at,omitempty"`
	SettlementRef string     `json:"settlement_ref,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// PayoutQueries surfaces settlement state to internal finance tooling only;
// end customers never see payout failures.
type PayoutQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*PayoutView, error)
	GetByBooking(ctx context.Context, bookingID uuid.UUID) (*PayoutView, error)
	ListBlocked(ctx context.Context, limit int) ([]PayoutView, error)
}

type LedgerQueries interface {
	GetByDate(ctx context.Context, date time.Time) (*shared.LedgerRow, error)
}
