package memstore

import (
	"context"
	"sort"
	"time"

	"travelcore/internal/domain/booking"
	"travelcore/internal/domain/settlement"
	"travelcore/internal/infra"
	"travelcore/internal/usecase/queries"
	"travelcore/internal/usecase/shared"

	"github.com/google/uuid"
)

// Read models wrap the store per query interface so the booking and payout
// sides keep independent method sets.

type BookingReadModel struct{ store *Store }

func NewBookingQueries(store *Store) queries.BookingQueries {
	return &BookingReadModel{store: store}
}

type PayoutReadModel struct{ store *Store }

func NewPayoutQueries(store *Store) queries.PayoutQueries {
	return &PayoutReadModel{store: store}
}

type LedgerReadModel struct{ store *Store }

func NewLedgerQueries(store *Store) queries.LedgerQueries {
	return &LedgerReadModel{store: store}
}

func (m *BookingReadModel) GetByID(ctx context.Context, id uuid.UUID) (*queries.BookingView, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, infra.NewRepoErr("booking not found", infra.KindNotFound)
	}
	view := s.toBookingView(b)
	return &view, nil
}

func (m *BookingReadModel) List(ctx context.Context, includeDeleted bool, limit, offset int) ([]queries.BookingListItem, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]queries.BookingListItem, 0, len(s.bookings))
	for _, b := range s.bookings {
		if b.Deleted() && !includeDeleted {
			continue
		}
		unit := s.units[b.UnitID()]
		item := queries.BookingListItem{
			ID:          b.ID(),
			Kind:        string(b.Kind()),
			Status:      string(b.Status()),
			Quantity:    b.Quantity(),
			TotalAmount: b.TotalAmount().String(),
			Deleted:     b.Deleted(),
			ReservedAt:  b.ReservedAt(),
		}
		if unit != nil {
			item.ResourceRef = unit.resourceRef
			item.TimeKey = unit.timeKey
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ReservedAt.After(items[j].ReservedAt) })

	if offset >= len(items) {
		return []queries.BookingListItem{}, nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *BookingReadModel) AuditTrail(ctx context.Context, bookingID uuid.UUID) ([]queries.AuditView, error) {
	s := m.store
	s.mu.RLock()
	entries := make([]booking.AuditEntry, 0)
	for _, e := range s.audits {
		if e.BookingID == bookingID {
			entries = append(entries, e)
		}
	}
	s.mu.RUnlock()

	sortAuditsByTime(entries)
	views := make([]queries.AuditView, 0, len(entries))
	for _, e := range entries {
		views = append(views, queries.AuditView{
			ID:        e.ID,
			BookingID: e.BookingID,
			Field:     e.Field,
			OldValue:  e.OldValue,
			NewValue:  e.NewValue,
			Actor:     e.Actor.ID(),
			Action:    string(e.Action),
			At:        e.At,
		})
	}
	return views, nil
}

func (m *PayoutReadModel) GetByID(ctx context.Context, id uuid.UUID) (*queries.PayoutView, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payouts[id]
	if !ok {
		return nil, infra.NewRepoErr("payout not found", infra.KindNotFound)
	}
	view := toPayoutView(p)
	return &view, nil
}

func (m *PayoutReadModel) GetByBooking(ctx context.Context, bookingID uuid.UUID) (*queries.PayoutView, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.payoutByBooking[bookingID]
	if !ok {
		return nil, infra.NewRepoErr("payout not found", infra.KindNotFound)
	}
	view := toPayoutView(s.payouts[id])
	return &view, nil
}

func (m *PayoutReadModel) ListBlocked(ctx context.Context, limit int) ([]queries.PayoutView, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []queries.PayoutView
	for _, p := range s.payouts {
		switch p.Status() {
		case settlement.StatusKYCPending, settlement.StatusBankPending, settlement.StatusFailed:
			out = append(out, toPayoutView(p))
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (m *LedgerReadModel) GetByDate(ctx context.Context, date time.Time) (*shared.LedgerRow, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.ledgers[date.UTC().Format("2006-01-02")]
	if !ok {
		return nil, infra.NewRepoErr("ledger row not found", infra.KindNotFound)
	}
	out := row
	return &out, nil
}

func (s *Store) toBookingView(b *booking.Booking) queries.BookingView {
	price := b.Price()
	view := queries.BookingView{
		ID:             b.ID(),
		Kind:           string(b.Kind()),
		Status:         string(b.Status()),
		SupplierID:     b.SupplierID(),
		UnitID:         b.UnitID(),
		Quantity:       b.Quantity(),
		CustomerID:     b.Customer().ID(),
		CustomerName:   b.Customer().Name(),
		CustomerEmail:  b.Customer().Email(),
		BaseAmount:     price.Base.StringFixed(2),
		DiscountAmount: price.Discount.StringFixed(2),
		DiscountSource: string(price.DiscountSource),
		ConvenienceFee: price.ConvenienceFee.StringFixed(2),
		Tax:            price.Tax.StringFixed(2),
		TotalAmount:    price.Total.StringFixed(2),
		PaidAmount:     b.PaidAmount().String(),
		RefundAmount:   b.RefundAmount().String(),
		ReservedAt:     b.ReservedAt(),
		ExpiresAt:      b.ExpiresAt(),
		ConfirmedAt:    copyTime(b.ConfirmedAt()),
		CancelledAt:    copyTime(b.CancelledAt()),
		Deleted:        b.Deleted(),
		CreatedAt:      b.CreatedAt(),
		UpdatedAt:      b.UpdatedAt(),
	}
	if unit, ok := s.units[b.UnitID()]; ok {
		view.ResourceRef = unit.resourceRef
		view.TimeKey = unit.timeKey
	}
	return view
}

func toPayoutView(p *settlement.OwnerPayout) queries.PayoutView {
	return queries.PayoutView{
		ID:            p.ID(),
		BookingID:     p.BookingID(),
		SupplierID:    p.SupplierID(),
		GrossValue:    p.GrossValue().StringFixed(2),
		PlatformFee:   p.PlatformFee().StringFixed(2),
		Refunds:       p.Refunds().StringFixed(2),
		Penalties:     p.Penalties().StringFixed(2),
		NetPayable:    p.NetPayable().StringFixed(2),
		Status:        string(p.Status()),
		KYCVerified:   p.KYCVerified(),
		BankVerified:  p.BankVerified(),
		CanPayout:     p.CanPayout(),
		BlockReason:   p.BlockReason(),
		FailureReason: p.FailureReason(),
		RetryCount:    p.RetryCount(),
		SettledAt:     copyTime(p.SettledAt()),
		SettlementRef: p.SettlementRef(),
		CreatedAt:     p.CreatedAt(),
	}
}
