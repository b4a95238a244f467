package shared

import (
	"travelcore/internal/domain/settlement"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Write-side snapshots prevent dependency on read-side query types.

type UnitSnapshot struct {
	ID          uuid.UUID
	Kind        string
	ResourceRef string
	TimeKey     string
	SupplierID  uuid.UUID
	Capacity    int
	Available   int
	BasePrice   decimal.Decimal // per-quantity base amount
}

// SupplierProfile is the current KYC/bank state looked up at validation time.
type SupplierProfile struct {
	SupplierID  uuid.UUID
	KYCVerified bool
	Bank        settlement.BankDetails
}

// LedgerSource holds the aggregates a store computes for one calendar date.
type LedgerSource struct {
	ConfirmedCount  int
	GrossRevenue    decimal.Decimal
	ServiceFees     decimal.Decimal
	Refunds         decimal.Decimal
	Cancellations   int
	PayoutLiability decimal.Decimal
}
