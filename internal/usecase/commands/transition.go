package commands

import (
	"context"
	"log/slog"

	"travelcore/internal/domain/booking"
	"travelcore/internal/infra"
	"travelcore/internal/pkg/clock"
	"travelcore/internal/pkg/errs"
	"travelcore/internal/usecase/shared"

	"github.com/google/uuid"
)

var ErrConcurrentUpdate = errs.New("booking changed concurrently")

type TransitionInput struct {
	BookingID    uuid.UUID
	Next         booking.Status
	Actor        booking.Actor
	RefundAmount *booking.Money // required for transitions to refunded
}

type TransitionCommands interface {
	Transition(ctx context.Context, in TransitionInput) error
	AmendContact(ctx context.Context, bookingID uuid.UUID, name, email string, actor booking.Actor) error
	SetDeleted(ctx context.Context, bookingID uuid.UUID, deleted bool, actor booking.Actor) error
}

type transitionCommandsImpl struct {
	uow        shared.UnitOfWork
	settlement SettlementCommands
	dispatcher NotificationDispatcher
	clock      clock.Clock
	logger     *slog.Logger
}

func NewTransitionCommands(
	uow shared.UnitOfWork,
	settlementCommands SettlementCommands,
	dispatcher NotificationDispatcher,
	clk clock.Clock,
	logger *slog.Logger,
) TransitionCommands {
	return &transitionCommandsImpl{
		uow:        uow,
		settlement: settlementCommands,
		dispatcher: dispatcher,
		clock:      clk,
		logger:     logger,
	}
}

// Transition drives the booking status state machine. A rejected edge writes
// no audit row; an accepted one writes exactly one. Cancelling a booking
// releases its inventory in the same transaction.
func (t *transitionCommandsImpl) Transition(ctx context.Context, in TransitionInput) error {
	now := t.clock.Now()
	var transitioned *booking.Booking

	err := t.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := tx.Bookings().Get(ctx, in.BookingID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrReservationNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		observed := b.Status()
		if err := b.Transition(in.Next, now); err != nil {
			return errs.Mark(err, errs.ErrInvalidTransition)
		}
		if in.Next == booking.StatusRefunded && in.RefundAmount != nil {
			if err := b.ApplyRefund(*in.RefundAmount, now); err != nil {
				return err
			}
		}

		ok, err := tx.Bookings().UpdateStatus(ctx, b, observed)
		if err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if !ok {
			return ErrConcurrentUpdate
		}

		// Cancelled, payment-failed and expired bookings give their units
		// back. The expiry reclaimer only considers reserved and
		// payment_pending bookings, so a booking expired through this path
		// would never be reclaimed and the hold would leak.
		if in.Next == booking.StatusCancelled || in.Next == booking.StatusPaymentFailed ||
			in.Next == booking.StatusExpired {
			if err := tx.Inventory().Release(ctx, b.UnitID(), b.Quantity()); err != nil {
				return errs.Mark(err, errs.ErrDatabaseOperationFailed)
			}
		}

		if err := tx.Audit().Append(ctx, booking.StatusAudit(b.ID(), observed, in.Next, in.Actor, now)); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		transitioned = b
		return nil
	})
	if err != nil {
		return err
	}

	t.afterTransition(ctx, transitioned, in.Next)
	return nil
}

// afterTransition runs the post-commit side effects: confirmation creates
// the supplier payout, and lifecycle events go out best-effort.
func (t *transitionCommandsImpl) afterTransition(ctx context.Context, b *booking.Booking, next booking.Status) {
	switch next {
	case booking.StatusConfirmed:
		if t.settlement != nil {
			if _, err := t.settlement.CreateForBooking(ctx, b.ID()); err != nil {
				t.logger.Error("payout creation after confirmation failed",
					"booking_id", b.ID().String(), "error", err.Error())
			}
		}
		t.publish(ctx, b, TopicBookingConfirmed)
	case booking.StatusCancelled:
		t.publish(ctx, b, TopicBookingCancelled)
	}
}

func (t *transitionCommandsImpl) publish(ctx context.Context, b *booking.Booking, topic string) {
	if t.dispatcher == nil {
		return
	}
	event := Event{
		Topic:      topic,
		BookingID:  b.ID(),
		Kind:       string(b.Kind()),
		OccurredAt: t.clock.Now(),
	}
	if err := t.dispatcher.Publish(ctx, event); err != nil {
		t.logger.Warn("notification publish failed",
			"topic", topic, "booking_id", b.ID().String(), "error", err.Error())
	}
}

// AmendContact corrects customer contact fields, writing one field-level
// audit row per changed field.
func (t *transitionCommandsImpl) AmendContact(ctx context.Context, bookingID uuid.UUID, name, email string, actor booking.Actor) error {
	now := t.clock.Now()
	return t.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := tx.Bookings().Get(ctx, bookingID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrReservationNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		oldName := b.Customer().Name()
		oldEmail := b.Customer().Email()
		if oldName == name && oldEmail == email {
			return nil
		}
		b.AmendCustomerContact(name, email, now)
		if err := tx.Bookings().UpdateFields(ctx, b); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		if oldName != name {
			entry := booking.NewAuditEntry(bookingID, "customer_name", oldName, name, actor, booking.AuditFieldChange, now)
			if err := tx.Audit().Append(ctx, entry); err != nil {
				return errs.Mark(err, errs.ErrDatabaseOperationFailed)
			}
		}
		if oldEmail != email {
			entry := booking.NewAuditEntry(bookingID, "customer_email", oldEmail, email, actor, booking.AuditFieldChange, now)
			if err := tx.Audit().Append(ctx, entry); err != nil {
				return errs.Mark(err, errs.ErrDatabaseOperationFailed)
			}
		}
		return nil
	})
}

// SetDeleted flips the orthogonal soft-delete flag with its own audit trail.
// Allowed in any lifecycle status.
func (t *transitionCommandsImpl) SetDeleted(ctx context.Context, bookingID uuid.UUID, deleted bool, actor booking.Actor) error {
	now := t.clock.Now()
	return t.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := tx.Bookings().Get(ctx, bookingID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrReservationNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if b.Deleted() == deleted {
			return nil
		}

		b.SetDeleted(deleted, now)
		if err := tx.Bookings().UpdateFields(ctx, b); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		action := booking.AuditSoftDelete
		if !deleted {
			action = booking.AuditRestore
		}
		entry := booking.NewAuditEntry(
			bookingID, "deleted",
			boolString(!deleted), boolString(deleted),
			actor, action, now,
		)
		if err := tx.Audit().Append(ctx, entry); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		return nil
	})
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
