package commands

import (
	"context"
	"log/slog"
	"time"

	"travelcore/internal/pkg/clock"
	"travelcore/internal/pkg/errs"
	"travelcore/internal/usecase/shared"
)

type LedgerCommands interface {
	// ComputeForDate rolls up confirmed revenue, fees, refunds and payout
	// liability into one row keyed by calendar date. Idempotent upsert;
	// safe to re-run any number of times.
	ComputeForDate(ctx context.Context, date time.Time) (shared.LedgerRow, error)
}

type ledgerCommandsImpl struct {
	uow    shared.UnitOfWork
	clock  clock.Clock
	logger *slog.Logger
}

func NewLedgerCommands(uow shared.UnitOfWork, clk clock.Clock, logger *slog.Logger) LedgerCommands {
	return &ledgerCommandsImpl{uow: uow, clock: clk, logger: logger}
}

func (l *ledgerCommandsImpl) ComputeForDate(ctx context.Context, date time.Time) (shared.LedgerRow, error) {
	day := date.UTC().Truncate(24 * time.Hour)

	src, err := l.uow.Reads().LedgerSourceForDate(ctx, day)
	if err != nil {
		return shared.LedgerRow{}, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	row := shared.LedgerRow{
		Date:            day,
		ConfirmedCount:  src.ConfirmedCount,
		GrossRevenue:    src.GrossRevenue,
		ServiceFees:     src.ServiceFees,
		Refunds:         src.Refunds,
		Cancellations:   src.Cancellations,
		PayoutLiability: src.PayoutLiability,
		ComputedAt:      l.clock.Now(),
	}

	var created bool
	err = l.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		created, err = tx.Ledger().Upsert(ctx, row)
		return err
	})
	if err != nil {
		return shared.LedgerRow{}, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	l.logger.Info("ledger rollup computed",
		"date", day.Format("2006-01-02"),
		"confirmed", row.ConfirmedCount,
		"created", created,
	)
	return row, nil
}
