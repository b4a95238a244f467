package main

import (
	"context"
	"log/slog"
	"os"

	"travelcore/cmd/bootstrap"
	"travelcore/internal/pkg/clock"
	"travelcore/internal/pkg/config"
	"travelcore/internal/scheduler"
	"travelcore/internal/usecase/commands"

	"go.uber.org/fx"
)

// The worker owns the background half of the platform: reclaiming expired
// reservations back into inventory and rolling up the daily revenue ledger.
func newScheduler(
	cfg config.Config,
	expiry commands.ExpiryCommands,
	ledger commands.LedgerCommands,
	clk clock.Clock,
) *scheduler.Scheduler {
	return scheduler.New(
		scheduler.Job{
			Name:     "expiry-reclaimer",
			Interval: cfg.Booking.ExpiryPollInterval,
			Run: func(ctx context.Context) error {
				_, err := expiry.RunExpiryPass(ctx)
				return err
			},
		},
		scheduler.Job{
			Name:     "ledger-rollup",
			Interval: cfg.Ledger.RollupInterval,
			Run: func(ctx context.Context) error {
				// Roll up yesterday so the day being aggregated is closed.
				_, err := ledger.ComputeForDate(ctx, clk.Now().UTC().AddDate(0, 0, -1))
				return err
			},
		},
	)
}

func startWorker(lc fx.Lifecycle, sched *scheduler.Scheduler, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			logger.Info("worker starting")
			sched.Start()
			return nil
		},
		OnStop: func(_ context.Context) error {
			logger.Info("worker stopping")
			sched.Stop()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		bootstrap.Module,
		fx.Provide(newScheduler),
		fx.Invoke(startWorker),
	)

	if err := app.Start(context.Background()); err != nil {
		slog.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	<-app.Done()

	if err := app.Stop(context.Background()); err != nil {
		slog.Error("failed to stop worker cleanly", "error", err)
	}

	slog.Info("worker stopped")
}
