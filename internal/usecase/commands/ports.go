package commands

import (
	"context"
	"time"

	"travelcore/internal/domain/settlement"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event topics published on booking lifecycle changes.
const (
	TopicBookingReserved  = "booking.reserved"
	TopicBookingConfirmed = "booking.confirmed"
	TopicBookingCancelled = "booking.cancelled"
	TopicBookingExpired   = "booking.expired"
	TopicPayoutSettled    = "payout.settled"
)

type Event struct {
	Topic      string         `json:"topic"`
	BookingID  uuid.UUID      `json:"booking_id"`
	Kind       string         `json:"kind"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// NotificationDispatcher delivers events best-effort. Callers log failures
// and never roll back on them; delivery happens strictly after commit and
// never while an inventory unit lock is held.
type NotificationDispatcher interface {
	Publish(ctx context.Context, event Event) error
}

// PayoutGateway executes the actual money transfer. Called outside any store
// transaction.
type PayoutGateway interface {
	Transfer(ctx context.Context, payoutID, supplierID uuid.UUID, amount decimal.Decimal, bank settlement.BankDetails) (reference string, err error)
}
