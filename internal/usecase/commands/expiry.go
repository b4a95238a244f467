package commands

import (
	"context"
	"log/slog"
	"time"

	"travelcore/internal/domain/booking"
	"travelcore/internal/infra"
	"travelcore/internal/pkg/clock"
	"travelcore/internal/pkg/errs"
	"travelcore/internal/usecase/shared"

	"github.com/google/uuid"
)

// expiryBatchLimit bounds one pass so a backlog cannot pin the worker.
const expiryBatchLimit = 500

type ExpirySummary struct {
	ExpiredCount int
	Timestamp    time.Time
}

type ExpiryCommands interface {
	RunExpiryPass(ctx context.Context) (ExpirySummary, error)
}

type expiryCommandsImpl struct {
	uow        shared.UnitOfWork
	dispatcher NotificationDispatcher
	clock      clock.Clock
	logger     *slog.Logger
}

func NewExpiryCommands(
	uow shared.UnitOfWork,
	dispatcher NotificationDispatcher,
	clk clock.Clock,
	logger *slog.Logger,
) ExpiryCommands {
	return &expiryCommandsImpl{
		uow:        uow,
		dispatcher: dispatcher,
		clock:      clk,
		logger:     logger,
	}
}

// RunExpiryPass reclaims inventory held by unpaid bookings past their TTL.
// The status flip is a compare-and-set, so a concurrent pass over the same
// booking is a no-op and inventory is released exactly once. One booking's
// failure is logged and skipped; the batch continues.
func (e *expiryCommandsImpl) RunExpiryPass(ctx context.Context) (ExpirySummary, error) {
	now := e.clock.Now()
	summary := ExpirySummary{Timestamp: now}

	candidates, err := e.uow.Reads().ExpiredCandidates(ctx, now, expiryBatchLimit)
	if err != nil {
		return summary, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	for _, id := range candidates {
		reclaimed, err := e.reclaimOne(ctx, id, now)
		if err != nil {
			e.logger.Error("expiry reclaim failed",
				"booking_id", id.String(), "error", err.Error())
			continue
		}
		if reclaimed {
			summary.ExpiredCount++
		}
	}

	return summary, nil
}

func (e *expiryCommandsImpl) reclaimOne(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	var expired *booking.Booking

	err := e.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := tx.Bookings().Get(ctx, id)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil // purged since listing, nothing to reclaim
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if !b.ExpiredBy(now) {
			return nil
		}

		observed := b.Status()
		if err := b.Transition(booking.StatusExpired, now); err != nil {
			return nil // raced into a non-reclaimable status
		}

		won, err := tx.Bookings().UpdateStatus(ctx, b, observed)
		if err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if !won {
			// another pass flipped it first; the loser must not release
			return nil
		}

		if err := tx.Inventory().Release(ctx, b.UnitID(), b.Quantity()); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if err := tx.Audit().Append(ctx, booking.StatusAudit(b.ID(), observed, booking.StatusExpired, booking.SystemActor(), now)); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		expired = b
		return nil
	})
	if err != nil || expired == nil {
		return false, err
	}

	// best-effort; a failed notification never undoes the reclaim
	if e.dispatcher != nil {
		event := Event{
			Topic:      TopicBookingExpired,
			BookingID:  expired.ID(),
			Kind:       string(expired.Kind()),
			OccurredAt: now,
		}
		if err := e.dispatcher.Publish(ctx, event); err != nil {
			e.logger.Warn("expiry notification failed",
				"booking_id", expired.ID().String(), "error", err.Error())
		}
	}

	return true, nil
}
