// Package inventory models the smallest reservable capacity bucket: a hotel
// room-night, a seat on a schedule, a package departure slot.
package inventory

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInsufficientAvailable = errors.New("insufficient available capacity")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrNegativeAvailable     = errors.New("available cannot be negative")
)

// Unit is a (resource, time-key) pair with an integer available counter.
// available >= 0 always; it is decremented only inside a reservation
// transaction holding the unit's exclusive lock and incremented only by
// release under the same lock discipline.
type Unit struct {
	id          uuid.UUID
	kind        string
	resourceRef string // e.g. "hotel:42", "bus-schedule:7"
	timeKey     string // e.g. "2026-09-01", "2026-09-01T08:30"
	capacity    int
	available   int
}

func NewUnit(kind, resourceRef, timeKey string, capacity int) (*Unit, error) {
	if capacity < 0 {
		return nil, ErrNegativeAvailable
	}
	return &Unit{
		id:          uuid.New(),
		kind:        kind,
		resourceRef: resourceRef,
		timeKey:     timeKey,
		capacity:    capacity,
		available:   capacity,
	}, nil
}

func ReconstructUnit(id uuid.UUID, kind, resourceRef, timeKey string, capacity, available int) (*Unit, error) {
	if available < 0 {
		return nil, ErrNegativeAvailable
	}
	return &Unit{
		id:          id,
		kind:        kind,
		resourceRef: resourceRef,
		timeKey:     timeKey,
		capacity:    capacity,
		available:   available,
	}, nil
}

// Claim decrements available. Callers must hold the unit's exclusive lock.
func (u *Unit) Claim(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if u.available < quantity {
		return ErrInsufficientAvailable
	}
	u.available -= quantity
	return nil
}

// Release returns claimed capacity, capped at the configured capacity so a
// double release cannot overshoot.
func (u *Unit) Release(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	u.available += quantity
	if u.available > u.capacity {
		u.available = u.capacity
	}
	return nil
}

func (u *Unit) ID() uuid.UUID       { return u.id }
func (u *Unit) Kind() string        { return u.kind }
func (u *Unit) ResourceRef() string { return u.resourceRef }
func (u *Unit) TimeKey() string     { return u.timeKey }
func (u *Unit) Capacity() int       { return u.capacity }
func (u *Unit) Available() int      { return u.available }
