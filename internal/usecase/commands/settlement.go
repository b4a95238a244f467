package commands

import (
	"context"
	"log/slog"
	"time"

	"travelcore/internal/domain/booking"
	"travelcore/internal/domain/settlement"
	"travelcore/internal/infra"
	"travelcore/internal/pkg/clock"
	"travelcore/internal/pkg/config"
	"travelcore/internal/pkg/errs"
	"travelcore/internal/usecase/shared"

	"github.com/google/uuid"
)

type SettlementCommands interface {
	// CreateForBooking snapshots gross and fee from the booking's price
	// snapshot and validates KYC/bank state. Idempotent per booking.
	CreateForBooking(ctx context.Context, bookingID uuid.UUID) (*settlement.OwnerPayout, error)
	// ValidateKycAndBank re-checks the supplier's current verification state.
	ValidateKycAndBank(ctx context.Context, payoutID uuid.UUID) error
	// ExecutePayout transfers the net payable. Paid payouts no-op
	// successfully; gated payouts record the block and fail.
	ExecutePayout(ctx context.Context, payoutID uuid.UUID, transferRef string) (bool, error)
	// RetryPayout re-runs execution unless the retry cap is exhausted.
	RetryPayout(ctx context.Context, payoutID uuid.UUID) (bool, error)
}

type settlementCommandsImpl struct {
	uow        shared.UnitOfWork
	gateway    PayoutGateway
	dispatcher NotificationDispatcher
	clock      clock.Clock
	maxRetries int
	logger     *slog.Logger
}

func NewSettlementCommands(
	uow shared.UnitOfWork,
	gateway PayoutGateway,
	dispatcher NotificationDispatcher,
	clk clock.Clock,
	cfg config.SettlementConfig,
	logger *slog.Logger,
) SettlementCommands {
	return &settlementCommandsImpl{
		uow:        uow,
		gateway:    gateway,
		dispatcher: dispatcher,
		clock:      clk,
		maxRetries: cfg.MaxPayoutRetries,
		logger:     logger,
	}
}

func (s *settlementCommandsImpl) CreateForBooking(ctx context.Context, bookingID uuid.UUID) (*settlement.OwnerPayout, error) {
	now := s.clock.Now()

	if existingID, err := s.uow.Reads().PayoutByBooking(ctx, bookingID); err == nil {
		return s.loadPayout(ctx, existingID)
	} else if !infra.IsKind(err, infra.KindNotFound) {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	var payout *settlement.OwnerPayout
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := tx.Bookings().Get(ctx, bookingID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrReservationNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		switch b.Status() {
		case booking.StatusConfirmed, booking.StatusCancelled,
			booking.StatusCompleted, booking.StatusRefunded:
			// money has moved, or a refund already accounts for it
		default:
			return errs.ErrBookingNotSettleable
		}

		// amounts come from the frozen price snapshot, never recomputed
		snap := b.Price()
		p, err := settlement.NewOwnerPayout(
			b.ID(), b.SupplierID(),
			snap.Total, snap.ConvenienceFee, b.RefundAmount().Decimal(),
			now,
		)
		if err != nil {
			return err
		}

		profile, err := s.uow.Reads().SupplierProfile(ctx, b.SupplierID())
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrSupplierNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		p.ApplyVerification(profile.KYCVerified, profile.Bank, now)

		if err := p.Reconcile(); err != nil {
			return errs.Mark(err, errs.ErrPayoutInvariantBroken)
		}
		if err := tx.Payouts().Create(ctx, p); err != nil {
			if infra.IsKind(err, infra.KindDuplicateKey) {
				return errs.Mark(err, errs.ErrPayoutExists)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		payout = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}

func (s *settlementCommandsImpl) ValidateKycAndBank(ctx context.Context, payoutID uuid.UUID) error {
	now := s.clock.Now()
	return s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		p, err := tx.Payouts().Get(ctx, payoutID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrPayoutNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		profile, err := s.uow.Reads().SupplierProfile(ctx, p.SupplierID())
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrSupplierNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		p.ApplyVerification(profile.KYCVerified, profile.Bank, now)
		if err := p.Reconcile(); err != nil {
			return errs.Mark(err, errs.ErrPayoutInvariantBroken)
		}
		if err := tx.Payouts().Update(ctx, p); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		return nil
	})
}

// ExecutePayout runs in three phases so no external transfer call happens
// inside a store transaction: mark processing, transfer, record outcome.
func (s *settlementCommandsImpl) ExecutePayout(ctx context.Context, payoutID uuid.UUID, transferRef string) (bool, error) {
	now := s.clock.Now()

	var (
		payout  *settlement.OwnerPayout
		blocked error
	)
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		p, err := tx.Payouts().Get(ctx, payoutID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrPayoutNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		switch execErr := p.BeginExecution(now); execErr {
		case nil:
			// fallthrough to persist processing state
		case settlement.ErrAlreadyPaid:
			payout = p
			return nil
		case settlement.ErrNotPayable:
			blocked = s.blockReasonError(p)
			p.BlockExecution(p.BlockReason(), now)
			return tx.Payouts().Update(ctx, p)
		case settlement.ErrRetriesExhausted:
			blocked = errs.ErrRetryLimitExceeded
			return nil
		default:
			return execErr
		}

		if err := tx.Payouts().Update(ctx, p); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		payout = p
		return nil
	})
	if err != nil {
		return false, err
	}
	if blocked != nil {
		return false, blocked
	}
	if payout.Status() == settlement.StatusPaid {
		return true, nil // idempotent no-op
	}

	reference := transferRef
	var transferErr error
	if reference == "" {
		reference, transferErr = s.gateway.Transfer(
			ctx, payout.ID(), payout.SupplierID(),
			payout.NetPayable(), *payout.BankSnapshot(),
		)
	}

	return s.recordOutcome(ctx, payoutID, reference, transferErr, now)
}

func (s *settlementCommandsImpl) recordOutcome(ctx context.Context, payoutID uuid.UUID, reference string, transferErr error, now time.Time) (bool, error) {
	var paid bool
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		p, err := tx.Payouts().Get(ctx, payoutID)
		if err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if transferErr != nil {
			p.RecordFailure(transferErr.Error(), now, s.maxRetries)
		} else {
			p.MarkPaid(reference, now)
			paid = true
		}
		if err := p.Reconcile(); err != nil {
			return errs.Mark(err, errs.ErrPayoutInvariantBroken)
		}
		return tx.Payouts().Update(ctx, p)
	})
	if err != nil {
		return false, err
	}
	if transferErr != nil {
		return false, errs.Mark(transferErr, errs.ErrPayoutTransferFailed)
	}

	if s.dispatcher != nil {
		event := Event{
			Topic:      TopicPayoutSettled,
			OccurredAt: now,
			Payload:    map[string]any{"payout_id": payoutID.String(), "reference": reference},
		}
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("payout notification failed",
				"payout_id", payoutID.String(), "error", err.Error())
		}
	}
	return paid, nil
}

// RetryPayout refuses once the cap is reached, permanently failing the
// payout; otherwise it delegates to ExecutePayout.
func (s *settlementCommandsImpl) RetryPayout(ctx context.Context, payoutID uuid.UUID) (bool, error) {
	now := s.clock.Now()
	exhausted := false

	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		p, err := tx.Payouts().Get(ctx, payoutID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrPayoutNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if p.Status() == settlement.StatusPaid {
			return nil
		}
		if !p.CanRetry(s.maxRetries) {
			exhausted = true
			if p.Status() != settlement.StatusFailed {
				p.RecordFailure("Max retries exceeded", now, s.maxRetries)
				return tx.Payouts().Update(ctx, p)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if exhausted {
		return false, errs.ErrRetryLimitExceeded
	}
	return s.ExecutePayout(ctx, payoutID, "")
}

func (s *settlementCommandsImpl) loadPayout(ctx context.Context, id uuid.UUID) (*settlement.OwnerPayout, error) {
	var payout *settlement.OwnerPayout
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		p, err := tx.Payouts().Get(ctx, id)
		if err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		payout = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}

func (s *settlementCommandsImpl) blockReasonError(p *settlement.OwnerPayout) error {
	if !p.KYCVerified() {
		return errs.ErrKYCNotVerified
	}
	return errs.ErrBankDetailsIncomplete
}
