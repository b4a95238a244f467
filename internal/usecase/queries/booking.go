package queries

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Read models (DTO for read side)

type BookingView struct {
	ID             uuid.UUID  `json:"id"`
	Kind           string     `json:"kind"`
	Status         string     `json:"status"`
	SupplierID     uuid.UUID  `json:"supplier_id"`
	UnitID         uuid.UUID  `json:"unit_id"`
	ResourceRef    string     `json:"resource_ref"`
	TimeKey        string     `json:"time_key"`
	Quantity       int        `json:"quantity"`
	CustomerID     string     `json:"customer_id"`
	CustomerName   string     `json:"customer_name"`
	CustomerEmail  string     `json:"customer_email"`
	BaseAmount     string     `json:"base_amount"`
	DiscountAmount string     `json:"discount_amount"`
	DiscountSource string     `json:"discount_source"`
	ConvenienceFee string     `json:"convenience_fee"`
	Tax            string     `json:"tax"`
	TotalAmount    string     `json:"total_amount"`
	PaidAmount     string     `json:"paid_amount"`
	RefundAmount   string     `json:"refund_amount"`
	ReservedAt     time.Time  `json:"reserved_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
	Deleted        bool       `json:"deleted"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type BookingListItem struct {
	ID          uuid.UUID `json:"id"`
	Kind        string    `json:"kind"`
	Status      string    `json:"status"`
	ResourceRef string    `json:"resource_ref"`
	TimeKey     string    `json:"time_key"`
	Quantity    int       `json:"quantity"`
	TotalAmount string    `json:"total_amount"`
	Deleted     bool      `json:"deleted"`
	ReservedAt  time.Time `json:"reserved_at"`
}

type AuditView struct {
	ID        uuid.UUID `json:"id"`
	BookingID uuid.UUID `json:"booking_id"`
	Field     string    `json:"field"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	At        time.Time `json:"at"`
}

// BookingQueries is the read side. List takes includeDeleted explicitly
// instead of swapping query scopes behind the caller's back.
type BookingQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*BookingView, error)
	List(ctx context.Context, includeDeleted bool, limit, offset int) ([]BookingListItem, error)
	AuditTrail(ctx context.Context, bookingID uuid.UUID) ([]AuditView, error)
}
