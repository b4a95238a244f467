package bootstrap

import (
	"travelcore/internal/pkg/config"

	"go.uber.org/fx"
)

var ConfigModule = fx.Module("config",
	fx.Provide(
		config.LoadConfig,
		func(cfg config.Config) config.DBConfig { return cfg.DB },
		func(cfg config.Config) config.BookingConfig { return cfg.Booking },
		func(cfg config.Config) config.SettlementConfig { return cfg.Settlement },
		func(cfg config.Config) config.LedgerConfig { return cfg.Ledger },
		func(cfg config.Config) config.NotifyConfig { return cfg.Notify },
	),
)
