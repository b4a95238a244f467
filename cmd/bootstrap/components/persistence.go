package components

import (
	"travelcore/internal/infra/gateway"
	"travelcore/internal/infra/notify"
	"travelcore/internal/infra/pgrepo"
	"travelcore/internal/infra/uow"
	"travelcore/internal/pkg/config"
	"travelcore/internal/usecase/commands"
	"travelcore/internal/usecase/queries"
	"travelcore/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	fx.Provide(
		func(pool *pgxpool.Pool, cfg config.Config) shared.UnitOfWork {
			return uow.NewPostgresUoW(pool, cfg.Booking.UnitLockWait)
		},
		// Brokerless environments fall back to log-only delivery.
		func(cfg config.Config) commands.NotificationDispatcher {
			if cfg.Notify.AMQPURL == "" {
				return notify.NewLogDispatcher()
			}
			return notify.NewAMQPDispatcher(cfg.Notify)
		},
		fx.Annotate(
			gateway.NewSandboxGateway,
			fx.As(new(commands.PayoutGateway)),
		),
		func(pool *pgxpool.Pool) queries.BookingQueries { return pgrepo.NewBookingQueries(pool) },
		func(pool *pgxpool.Pool) queries.PayoutQueries { return pgrepo.NewPayoutQueries(pool) },
		func(pool *pgxpool.Pool) queries.LedgerQueries { return pgrepo.NewLedgerQueries(pool) },
	),
)
