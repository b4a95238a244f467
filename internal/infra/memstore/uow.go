package memstore

import (
	"context"
	"errors"

	"travelcore/internal/domain/booking"
	"travelcore/internal/domain/inventory"
	"travelcore/internal/domain/settlement"
	"travelcore/internal/infra"
	"travelcore/internal/usecase/shared"

	"github.com/google/uuid"
)

// UnitOfWork runs commands against the in-memory store. Fallible operations
// validate at call time under the relevant lock; mutations register
// compensations so an aborted transaction leaves no trace.
type UnitOfWork struct {
	store *Store
}

func NewUnitOfWork(store *Store) *UnitOfWork {
	return &UnitOfWork{store: store}
}

func (u *UnitOfWork) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	tx := &memTx{store: u.store, heldUnits: make(map[uuid.UUID]bool)}
	defer tx.releaseLocks()

	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	tx.undo = nil
	return nil
}

func (u *UnitOfWork) Reads() shared.CommandReads {
	return u.store
}

type memTx struct {
	store     *Store
	heldUnits map[uuid.UUID]bool
	undo      []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) releaseLocks() {
	for id := range t.heldUnits {
		t.store.releaseUnitLock(id)
	}
	t.heldUnits = map[uuid.UUID]bool{}
}

func (t *memTx) lockUnit(ctx context.Context, id uuid.UUID) error {
	if t.heldUnits[id] {
		return nil
	}
	if err := t.store.acquireUnit(ctx, id); err != nil {
		return err
	}
	t.heldUnits[id] = true
	return nil
}

func (t *memTx) Bookings() shared.BookingRepository    { return (*bookingRepo)(t) }
func (t *memTx) Inventory() shared.InventoryRepository { return (*inventoryRepo)(t) }
func (t *memTx) Audit() shared.AuditRepository         { return (*auditRepo)(t) }
func (t *memTx) Payouts() shared.PayoutRepository      { return (*payoutRepo)(t) }
func (t *memTx) Promos() shared.PromoRepository        { return (*promoRepo)(t) }
func (t *memTx) Ledger() shared.LedgerRepository       { return (*ledgerRepo)(t) }

// ---------------------------------------------------------------------------
// Inventory: the only resource under exclusive-write discipline
// ---------------------------------------------------------------------------

type inventoryRepo memTx

func (r *inventoryRepo) Claim(ctx context.Context, unitID uuid.UUID, quantity int) error {
	t := (*memTx)(r)
	if quantity <= 0 {
		return infra.NewRepoErr("claim quantity must be positive", infra.KindConflict)
	}
	if err := t.lockUnit(ctx, unitID); err != nil {
		return err
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	u, ok := t.store.units[unitID]
	if !ok {
		return infra.NewRepoErr("inventory unit not found", infra.KindNotFound)
	}
	ent, err := u.entity()
	if err != nil {
		return infra.WrapRepoErr("corrupt inventory record", err, infra.KindConflict)
	}
	if err := ent.Claim(quantity); err != nil {
		if errors.Is(err, inventory.ErrInsufficientAvailable) {
			return infra.NewRepoErr("not enough capacity available", infra.KindInsufficientStock)
		}
		return infra.WrapRepoErr("invalid claim", err, infra.KindConflict)
	}
	u.available = ent.Available()
	t.undo = append(t.undo, func() {
		t.store.mu.Lock()
		defer t.store.mu.Unlock()
		u.available += quantity
	})
	return nil
}

func (r *inventoryRepo) Release(ctx context.Context, unitID uuid.UUID, quantity int) error {
	t := (*memTx)(r)
	if quantity <= 0 {
		return infra.NewRepoErr("release quantity must be positive", infra.KindConflict)
	}
	if err := t.lockUnit(ctx, unitID); err != nil {
		return err
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	u, ok := t.store.units[unitID]
	if !ok {
		return infra.NewRepoErr("inventory unit not found", infra.KindNotFound)
	}
	ent, err := u.entity()
	if err != nil {
		return infra.WrapRepoErr("corrupt inventory record", err, infra.KindConflict)
	}
	prev := u.available
	if err := ent.Release(quantity); err != nil {
		return infra.WrapRepoErr("invalid release", err, infra.KindConflict)
	}
	u.available = ent.Available()
	delta := u.available - prev
	t.undo = append(t.undo, func() {
		t.store.mu.Lock()
		defer t.store.mu.Unlock()
		u.available -= delta
	})
	return nil
}

// ---------------------------------------------------------------------------
// Bookings
// ---------------------------------------------------------------------------

type bookingRepo memTx

func (r *bookingRepo) Create(ctx context.Context, b *booking.Booking) error {
	t := (*memTx)(r)
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if _, exists := t.store.bookings[b.ID()]; exists {
		return infra.NewRepoErr("booking already exists", infra.KindDuplicateKey)
	}
	id := b.ID()
	t.store.bookings[id] = cloneBooking(b)
	t.undo = append(t.undo, func() {
		t.store.mu.Lock()
		defer t.store.mu.Unlock()
		delete(t.store.bookings, id)
	})
	return nil
}

func (r *bookingRepo) Get(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	t := (*memTx)(r)
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	b, ok := t.store.bookings[id]
	if !ok {
		return nil, infra.NewRepoErr("booking not found", infra.KindNotFound)
	}
	return cloneBooking(b), nil
}

func (r *bookingRepo) UpdateStatus(ctx context.Context, b *booking.Booking, observed booking.Status) (bool, error) {
	t := (*memTx)(r)
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	current, ok := t.store.bookings[b.ID()]
	if !ok {
		return false, infra.NewRepoErr("booking not found", infra.KindNotFound)
	}
	if current.Status() != observed {
		return false, nil
	}
	id := b.ID()
	prev := current
	t.store.bookings[id] = cloneBooking(b)
	t.undo = append(t.undo, func() {
		t.store.mu.Lock()
		defer t.store.mu.Unlock()
		t.store.bookings[id] = prev
	})
	return true, nil
}

func (r *bookingRepo) UpdateFields(ctx context.Context, b *booking.Booking) error {
	t := (*memTx)(r)
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	prev, ok := t.store.bookings[b.ID()]
	if !ok {
		return infra.NewRepoErr("booking not found", infra.KindNotFound)
	}
	id := b.ID()
	t.store.bookings[id] = cloneBooking(b)
	t.undo = append(t.undo, func() {
		t.store.mu.Lock()
		defer t.store.mu.Unlock()
		t.store.bookings[id] = prev
	})
	return nil
}

// ---------------------------------------------------------------------------
// Audit log: append-only
// ---------------------------------------------------------------------------

type auditRepo memTx

func (r *auditRepo) Append(ctx context.Context, entry booking.AuditEntry) error {
	t := (*memTx)(r)
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.audits = append(t.store.audits, entry)
	t.undo = append(t.undo, func() {
		t.store.mu.Lock()
		defer t.store.mu.Unlock()
		if n := len(t.store.audits); n > 0 {
			t.store.audits = t.store.audits[:n-1]
		}
	})
	return nil
}

// ---------------------------------------------------------------------------
// Payouts
// ---------------------------------------------------------------------------

type payoutRepo memTx

func (r *payoutRepo) Create(ctx context.Context, p *settlement.OwnerPayout) error {
	t := (*memTx)(r)
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if _, exists := t.store.payoutByBooking[p.BookingID()]; exists {
		return infra.NewRepoErr("payout already exists for booking", infra.KindDuplicateKey)
	}
	id, bookingID := p.ID(), p.BookingID()
	t.store.payouts[id] = clonePayout(p)
	t.store.payoutByBooking[bookingID] = id
	t.undo = append(t.undo, func() {
		t.store.mu.Lock()
		defer t.store.mu.Unlock()
		delete(t.store.payouts, id)
		delete(t.store.payoutByBooking, bookingID)
	})
	return nil
}

func (r *payoutRepo) Get(ctx context.Context, id uuid.UUID) (*settlement.OwnerPayout, error) {
	t := (*memTx)(r)
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	p, ok := t.store.payouts[id]
	if !ok {
		return nil, infra.NewRepoErr("payout not found", infra.KindNotFound)
	}
	return clonePayout(p), nil
}

func (r *payoutRepo) Update(ctx context.Context, p *settlement.OwnerPayout) error {
	t := (*memTx)(r)
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	prev, ok := t.store.payouts[p.ID()]
	if !ok {
		return infra.NewRepoErr("payout not found", infra.KindNotFound)
	}
	id := p.ID()
	t.store.payouts[id] = clonePayout(p)
	t.undo = append(t.undo, func() {
		t.store.mu.Lock()
		defer t.store.mu.Unlock()
		t.store.payouts[id] = prev
	})
	return nil
}

// ---------------------------------------------------------------------------
// Promos
// ---------------------------------------------------------------------------

type promoRepo memTx

func (r *promoRepo) IncrementUsage(ctx context.Context, code, customerID string) error {
	t := (*memTx)(r)
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	rec, ok := t.store.promos[code]
	if !ok {
		return infra.NewRepoErr("promo code not found", infra.KindNotFound)
	}
	rec.rule.GlobalUsed++
	rec.userUsage[customerID]++
	t.undo = append(t.undo, func() {
		t.store.mu.Lock()
		defer t.store.mu.Unlock()
		rec.rule.GlobalUsed--
		rec.userUsage[customerID]--
	})
	return nil
}

// ---------------------------------------------------------------------------
// Platform ledger: idempotent upsert keyed by date
// ---------------------------------------------------------------------------

type ledgerRepo memTx

func (r *ledgerRepo) Upsert(ctx context.Context, row shared.LedgerRow) (bool, error) {
	t := (*memTx)(r)
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	key := row.Date.UTC().Format("2006-01-02")
	prev, existed := t.store.ledgers[key]
	t.store.ledgers[key] = row
	t.undo = append(t.undo, func() {
		t.store.mu.Lock()
		defer t.store.mu.Unlock()
		if existed {
			t.store.ledgers[key] = prev
		} else {
			delete(t.store.ledgers, key)
		}
	})
	return !existed, nil
}

var _ shared.UnitOfWork = (*UnitOfWork)(nil)
