package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"travelcore/internal/domain/booking"
	"travelcore/internal/domain/pricing"
	"travelcore/internal/domain/settlement"
	"travelcore/internal/infra"
	"travelcore/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ shared.CommandReads = (*Store)(nil)

func (s *Store) BookingByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, infra.NewRepoErr("booking not found", infra.KindNotFound)
	}
	return cloneBooking(b), nil
}

func (s *Store) UnitByRef(ctx context.Context, resourceRef, timeKey string) (*shared.UnitSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.unitsByRef[refKey{resourceRef, timeKey}]
	if !ok {
		return nil, infra.NewRepoErr("inventory unit not found", infra.KindNotFound)
	}
	u := s.units[id]
	return &shared.UnitSnapshot{
		ID:          u.id,
		Kind:        u.kind,
		ResourceRef: u.resourceRef,
		TimeKey:     u.timeKey,
		SupplierID:  u.supplierID,
		Capacity:    u.capacity,
		Available:   u.available,
		BasePrice:   u.basePrice,
	}, nil
}

func (s *Store) ExpiredCandidates(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []uuid.UUID
	for id, b := range s.bookings {
		if b.Status().Reclaimable() && !b.ExpiresAt().After(cutoff) {
			out = append(out, id)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Store) PromoByCode(ctx context.Context, code string) (*pricing.PromoRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.promos[code]
	if !ok {
		return nil, infra.NewRepoErr("promo code not found", infra.KindNotFound)
	}
	rule := rec.rule
	return &rule, nil
}

func (s *Store) PromoUsageByCustomer(ctx context.Context, code, customerID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.promos[code]
	if !ok {
		return 0, infra.NewRepoErr("promo code not found", infra.KindNotFound)
	}
	return rec.userUsage[customerID], nil
}

func (s *Store) CorporateByDomain(ctx context.Context, emailDomain string) (*pricing.CorporateRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for domain, rule := range s.corporates {
		if strings.EqualFold(domain, emailDomain) {
			r := rule
			return &r, nil
		}
	}
	return nil, infra.NewRepoErr("corporate account not found", infra.KindNotFound)
}

func (s *Store) SupplierProfile(ctx context.Context, supplierID uuid.UUID) (*shared.SupplierProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.suppliers[supplierID]
	if !ok {
		return nil, infra.NewRepoErr("supplier profile not found", infra.KindNotFound)
	}
	return &p, nil
}

func (s *Store) PayoutByBooking(ctx context.Context, bookingID uuid.UUID) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.payoutByBooking[bookingID]
	if !ok {
		return uuid.Nil, infra.NewRepoErr("payout not found", infra.KindNotFound)
	}
	return id, nil
}

func (s *Store) LedgerSourceForDate(ctx context.Context, date time.Time) (*shared.LedgerSource, error) {
	day := date.UTC().Truncate(24 * time.Hour)
	next := day.Add(24 * time.Hour)
	inDay := func(t *time.Time) bool {
		return t != nil && !t.Before(day) && t.Before(next)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	src := shared.LedgerSource{
		GrossRevenue:    decimal.Zero,
		ServiceFees:     decimal.Zero,
		Refunds:         decimal.Zero,
		PayoutLiability: decimal.Zero,
	}
	for _, b := range s.bookings {
		if inDay(b.ConfirmedAt()) {
			src.ConfirmedCount++
			src.GrossRevenue = src.GrossRevenue.Add(b.Price().Total)
			src.ServiceFees = src.ServiceFees.Add(b.Price().ConvenienceFee)
		}
		if inDay(b.CancelledAt()) {
			src.Cancellations++
		}
		if b.Status() == booking.StatusRefunded && !b.RefundAmount().IsZero() {
			updated := b.UpdatedAt()
			if inDay(&updated) {
				src.Refunds = src.Refunds.Add(b.RefundAmount().Decimal())
			}
		}
	}
	for _, p := range s.payouts {
		if p.Status() != settlement.StatusPaid && p.Status() != settlement.StatusFailed {
			src.PayoutLiability = src.PayoutLiability.Add(p.NetPayable())
		}
	}
	return &src, nil
}

// sortable helper kept close to its single caller in queries.go
func sortAuditsByTime(entries []booking.AuditEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].At.Before(entries[j].At) })
}
