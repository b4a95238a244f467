// Package memstore is the in-memory store implementation used by tests and
// local development. It honors the same contracts as pgrepo: per-unit
// exclusive locks with a bounded wait, linearizable claim/release per unit,
// and all-or-nothing command transactions.
package memstore

import (
	"context"
	"sync"
	"time"

	"travelcore/internal/domain/booking"
	"travelcore/internal/domain/inventory"
	"travelcore/internal/domain/pricing"
	"travelcore/internal/domain/settlement"
	"travelcore/internal/infra"
	"travelcore/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultUnitLockWait = 5 * time.Second

type refKey struct {
	resourceRef string
	timeKey     string
}

type unitRecord struct {
	id          uuid.UUID
	kind        string
	resourceRef string
	timeKey     string
	supplierID  uuid.UUID
	capacity    int
	available   int
	basePrice   decimal.Decimal
}

// entity rehydrates the domain unit so claim and release go through its
// validation rather than raw counter arithmetic.
func (u *unitRecord) entity() (*inventory.Unit, error) {
	return inventory.ReconstructUnit(u.id, u.kind, u.resourceRef, u.timeKey, u.capacity, u.available)
}

type promoRecord struct {
	rule      pricing.PromoRule
	userUsage map[string]int64
}

type Store struct {
	mu           sync.RWMutex
	unitLockWait time.Duration

	bookings        map[uuid.UUID]*booking.Booking
	units           map[uuid.UUID]*unitRecord
	unitsByRef      map[refKey]uuid.UUID
	unitLocks       map[uuid.UUID]chan struct{}
	audits          []booking.AuditEntry
	payouts         map[uuid.UUID]*settlement.OwnerPayout
	payoutByBooking map[uuid.UUID]uuid.UUID
	promos          map[string]*promoRecord
	corporates      map[string]pricing.CorporateRule
	suppliers       map[uuid.UUID]shared.SupplierProfile
	ledgers         map[string]shared.LedgerRow
}

func New() *Store {
	return &Store{
		unitLockWait:    defaultUnitLockWait,
		bookings:        make(map[uuid.UUID]*booking.Booking),
		units:           make(map[uuid.UUID]*unitRecord),
		unitsByRef:      make(map[refKey]uuid.UUID),
		unitLocks:       make(map[uuid.UUID]chan struct{}),
		payouts:         make(map[uuid.UUID]*settlement.OwnerPayout),
		payoutByBooking: make(map[uuid.UUID]uuid.UUID),
		promos:          make(map[string]*promoRecord),
		corporates:      make(map[string]pricing.CorporateRule),
		suppliers:       make(map[uuid.UUID]shared.SupplierProfile),
		ledgers:         make(map[string]shared.LedgerRow),
	}
}

func (s *Store) SetUnitLockWait(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unitLockWait = d
}

// ---------------------------------------------------------------------------
// Seeding (tests and local development)
// ---------------------------------------------------------------------------

type SeedUnit struct {
	Kind        string
	ResourceRef string
	TimeKey     string
	SupplierID  uuid.UUID
	Capacity    int
	BasePrice   decimal.Decimal
}

func (s *Store) AddUnit(seed SeedUnit) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.units[id] = &unitRecord{
		id:          id,
		kind:        seed.Kind,
		resourceRef: seed.ResourceRef,
		timeKey:     seed.TimeKey,
		supplierID:  seed.SupplierID,
		capacity:    seed.Capacity,
		available:   seed.Capacity,
		basePrice:   seed.BasePrice,
	}
	s.unitsByRef[refKey{seed.ResourceRef, seed.TimeKey}] = id
	return id
}

func (s *Store) AddPromo(rule pricing.PromoRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promos[rule.Code] = &promoRecord{rule: rule, userUsage: make(map[string]int64)}
}

func (s *Store) AddCorporate(rule pricing.CorporateRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corporates[rule.EmailDomain] = rule
}

func (s *Store) AddSupplier(profile shared.SupplierProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppliers[profile.SupplierID] = profile
}

// UnitAvailable exposes the committed counter for assertions.
func (s *Store) UnitAvailable(unitID uuid.UUID) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[unitID]
	if !ok {
		return 0, false
	}
	return u.available, true
}

// AuditCount reports committed audit rows for one booking.
func (s *Store) AuditCount(bookingID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.audits {
		if e.BookingID == bookingID {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Per-unit locks: channel mutex with bounded wait
// ---------------------------------------------------------------------------

func (s *Store) unitLock(id uuid.UUID) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.unitLocks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.unitLocks[id] = ch
	}
	return ch
}

func (s *Store) acquireUnit(ctx context.Context, id uuid.UUID) error {
	s.mu.RLock()
	wait := s.unitLockWait
	_, exists := s.units[id]
	s.mu.RUnlock()
	if !exists {
		return infra.NewRepoErr("inventory unit not found", infra.KindNotFound)
	}

	ch := s.unitLock(id)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return infra.NewRepoErr("unit lock wait exceeded", infra.KindLockTimeout)
	case <-ctx.Done():
		return infra.WrapRepoErr("unit lock wait cancelled", ctx.Err(), infra.KindLockTimeout)
	}
}

func (s *Store) releaseUnitLock(id uuid.UUID) {
	<-s.unitLock(id)
}

// ---------------------------------------------------------------------------
// Entity copies: the store never hands out its own mutable instances
// ---------------------------------------------------------------------------

func cloneBooking(b *booking.Booking) *booking.Booking {
	return booking.ReconstructBooking(
		b.ID(), b.Kind(), b.Status(),
		b.SupplierID(), b.UnitID(), b.Quantity(),
		b.Customer(), b.Price(),
		b.PaidAmount(), b.RefundAmount(),
		b.ReservedAt(), b.ExpiresAt(),
		copyTime(b.ConfirmedAt()), copyTime(b.CancelledAt()),
		b.Deleted(),
		b.CreatedAt(), b.UpdatedAt(),
	)
}

func clonePayout(p *settlement.OwnerPayout) *settlement.OwnerPayout {
	var bank *settlement.BankDetails
	if p.BankSnapshot() != nil {
		cp := *p.BankSnapshot()
		bank = &cp
	}
	return settlement.ReconstructOwnerPayout(
		p.ID(), p.BookingID(), p.SupplierID(),
		p.GrossValue(), p.PlatformFee(), p.Refunds(), p.Penalties(), p.NetPayable(),
		p.Status(), p.KYCVerified(), p.BankVerified(),
		p.BlockReason(), p.FailureReason(), p.RetryCount(),
		bank, copyTime(p.SettledAt()), p.SettlementRef(),
		p.CreatedAt(), p.UpdatedAt(),
	)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
