package components

import (
	"travelcore/internal/pkg/clock"
	"travelcore/internal/usecase/commands"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	fx.Provide(
		clock.NewRealClock,
		commands.NewReservationCommands,
		commands.NewSettlementCommands,
		commands.NewTransitionCommands,
		commands.NewExpiryCommands,
		commands.NewLedgerCommands,
	),
)
