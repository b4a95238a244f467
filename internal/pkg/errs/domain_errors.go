package errs

import "errors"

// Sentinel errors shared by the usecase layers.
var (
	// Inventory errors
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrInventoryUnitNotFound = errors.New("inventory unit not found")
	ErrUnitLockTimeout       = errors.New("inventory unit lock wait timed out")

	// Booking errors
	ErrReservationNotFound = errors.New("reservation not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInvalidQuantity     = errors.New("quantity must be positive")

	// Settlement errors
	ErrPayoutNotFound        = errors.New("payout not found")
	ErrPayoutExists          = errors.New("payout already exists for booking")
	ErrKYCNotVerified        = errors.New("supplier kyc not verified")
	ErrBankDetailsIncomplete = errors.New("supplier bank details incomplete")
	ErrPayoutTransferFailed  = errors.New("payout transfer failed")
	ErrRetryLimitExceeded    = errors.New("payout retry limit exceeded")
	ErrSupplierNotFound      = errors.New("supplier profile not found")
	ErrBookingNotSettleable  = errors.New("booking not eligible for settlement")
	ErrPayoutInvariantBroken = errors.New("payout amounts do not reconcile")

	// Operation errors
	ErrDatabaseOperationFailed = errors.New("database operation failed")
)
