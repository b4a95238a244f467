//go:build unit

package commands_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"travelcore/internal/domain/pricing"
	"travelcore/internal/domain/settlement"
	"travelcore/internal/infra/memstore"
	"travelcore/internal/pkg/clock"
	"travelcore/internal/pkg/config"
	"travelcore/internal/usecase/commands"
	"travelcore/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// fixture wires the command layer against the in-memory store so tests
// exercise real transactions, per-unit locks and CAS semantics.
type fixture struct {
	store  *memstore.Store
	uow    shared.UnitOfWork
	clk    *clock.MockClock
	cfg    config.Config
	logger *slog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	return &fixture{
		store:  store,
		uow:    memstore.NewUnitOfWork(store),
		clk:    clock.NewMockClock(testNow),
		cfg:    config.NewTestConfig(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (f *fixture) reservations(dispatcher commands.NotificationDispatcher) commands.ReservationCommands {
	return commands.NewReservationCommands(f.uow, dispatcher, f.clk, f.cfg.Booking, f.logger)
}

func (f *fixture) settlements(gateway commands.PayoutGateway) commands.SettlementCommands {
	return commands.NewSettlementCommands(f.uow, gateway, nil, f.clk, f.cfg.Settlement, f.logger)
}

func (f *fixture) transitions(settlement commands.SettlementCommands) commands.TransitionCommands {
	return commands.NewTransitionCommands(f.uow, settlement, nil, f.clk, f.logger)
}

func (f *fixture) expiry() commands.ExpiryCommands {
	return commands.NewExpiryCommands(f.uow, nil, f.clk, f.logger)
}

func (f *fixture) ledger() commands.LedgerCommands {
	return commands.NewLedgerCommands(f.uow, f.clk, f.logger)
}

func (f *fixture) seedHotelUnit(capacity int, basePrice string) uuid.UUID {
	price, err := decimal.NewFromString(basePrice)
	if err != nil {
		panic(err)
	}
	return f.store.AddUnit(memstore.SeedUnit{
		Kind:        "hotel",
		ResourceRef: "hotel:42",
		TimeKey:     "2026-09-01",
		SupplierID:  uuid.New(),
		Capacity:    capacity,
		BasePrice:   price,
	})
}

func (f *fixture) seedVerifiedSupplier(supplierID uuid.UUID) {
	f.store.AddSupplier(shared.SupplierProfile{
		SupplierID:  supplierID,
		KYCVerified: true,
		Bank:        settlementBank(),
	})
}

func sharedProfile(supplierID uuid.UUID, kycVerified bool, bank settlement.BankDetails) shared.SupplierProfile {
	return shared.SupplierProfile{
		SupplierID:  supplierID,
		KYCVerified: kycVerified,
		Bank:        bank,
	}
}

func settlementBank() settlement.BankDetails {
	return settlement.BankDetails{
		HolderName:    "Coastal Stays Pvt Ltd",
		AccountNumber: "001948302211",
		IFSC:          "HDFC0001234",
		BankName:      "HDFC",
	}
}

func hotelInput(customerID string) commands.ReserveInput {
	return commands.ReserveInput{
		Kind:        "hotel",
		ResourceRef: "hotel:42",
		TimeKey:     "2026-09-01",
		Quantity:    1,
		Customer: commands.CustomerInput{
			ID:            customerID,
			Name:          "Asha Rao",
			Email:         customerID + "@example.com",
			EmailVerified: true,
		},
	}
}

func percentPromo(code string, pct string) pricing.PromoRule {
	p := mustDec(pct)
	return pricing.PromoRule{Code: code, Active: true, PercentOff: &p}
}

func mustDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func mustAvailable(t *testing.T, store *memstore.Store, unitID uuid.UUID) int {
	t.Helper()
	n, ok := store.UnitAvailable(unitID)
	require.True(t, ok)
	return n
}
