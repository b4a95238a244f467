package booking

// Kind identifies the vertical a booking belongs to.
type Kind string

const (
	KindHotel   Kind = "hotel"
	KindBus     Kind = "bus"
	KindPackage Kind = "package"
)

func (k Kind) Valid() bool {
	switch k {
	case KindHotel, KindBus, KindPackage:
		return true
	}
	return false
}

// Status is the booking lifecycle state. The soft-delete flag is orthogonal
// and is not a status value.
type Status string

const (
	StatusReserved       Status = "reserved"
	StatusPaymentPending Status = "payment_pending"
	StatusPaymentFailed  Status = "payment_failed"
	StatusConfirmed      Status = "confirmed"
	StatusCancelled      Status = "cancelled"
	StatusExpired        Status = "expired"
	StatusCompleted      Status = "completed"
	StatusRefunded       Status = "refunded"
)

// allowedTransitions is the full edge set of the lifecycle state machine.
// Anything not listed here is rejected with ErrInvalidTransition.
var allowedTransitions = map[Status][]Status{
	StatusReserved:       {StatusPaymentPending, StatusExpired, StatusCancelled},
	StatusPaymentPending: {StatusConfirmed, StatusExpired, StatusPaymentFailed, StatusCancelled},
	StatusConfirmed:      {StatusCancelled, StatusCompleted, StatusRefunded},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusExpired, StatusRefunded:
		return true
	}
	return false
}

// Reclaimable reports whether an unpaid booking in this status is subject to
// TTL-based expiry.
func (s Status) Reclaimable() bool {
	return s == StatusReserved || s == StatusPaymentPending
}

func (s Status) Valid() bool {
	switch s {
	case StatusReserved, StatusPaymentPending, StatusPaymentFailed,
		StatusConfirmed, StatusCancelled, StatusExpired,
		StatusCompleted, StatusRefunded:
		return true
	}
	return false
}

// Actor is the principal a state change is attributed to in the audit log.
type Actor struct {
	id     string
	system bool
}

func SystemActor() Actor {
	return Actor{id: "system", system: true}
}

func AdminActor(id string) Actor {
	return Actor{id: id}
}

func (a Actor) ID() string     { return a.id }
func (a Actor) IsSystem() bool { return a.system }
