//go:build unit

package commands_test

import (
	"context"
	"testing"

	"travelcore/internal/domain/booking"
	"travelcore/internal/domain/settlement"
	"travelcore/internal/pkg/errs"
	"travelcore/internal/usecase/commands"
	commandsmock "travelcore/tests/mock/commands"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// confirmedBooking reserves and confirms one hotel night so settlement
// tests start from a settleable state.
func confirmedBooking(t *testing.T, f *fixture) *booking.Booking {
	t.Helper()
	ctx := context.Background()
	f.seedHotelUnit(5, "1000")
	b, err := f.reservations(nil).Reserve(ctx, hotelInput("cust-1"))
	require.NoError(t, err)
	require.NoError(t, f.transitions(nil).Transition(ctx, commands.TransitionInput{
		BookingID: b.ID(), Next: booking.StatusConfirmed, Actor: booking.AdminActor("ops-7"),
	}))
	return b
}

func TestCreateForBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshots gross and fee from the booking", func(t *testing.T) {
		f := newFixture(t)
		b := confirmedBooking(t, f)
		f.seedVerifiedSupplier(b.SupplierID())

		p, err := f.settlements(nil).CreateForBooking(ctx, b.ID())
		require.NoError(t, err)

		assert.Equal(t, "1148.00", p.GrossValue().StringFixed(2))
		assert.Equal(t, "25.00", p.PlatformFee().StringFixed(2))
		assert.Equal(t, "1123.00", p.NetPayable().StringFixed(2))
		assert.Equal(t, settlement.StatusPending, p.Status())
		assert.True(t, p.NetPayable().Add(p.PlatformFee()).Equal(p.GrossValue()))
		require.NotNil(t, p.BankSnapshot())
		assert.Equal(t, settlementBank().IFSC, p.BankSnapshot().IFSC)
	})

	t.Run("idempotent per booking", func(t *testing.T) {
		f := newFixture(t)
		b := confirmedBooking(t, f)
		f.seedVerifiedSupplier(b.SupplierID())
		svc := f.settlements(nil)

		first, err := svc.CreateForBooking(ctx, b.ID())
		require.NoError(t, err)
		second, err := svc.CreateForBooking(ctx, b.ID())
		require.NoError(t, err)
		assert.Equal(t, first.ID(), second.ID())
	})

	t.Run("refunds reduce the net payable", func(t *testing.T) {
		f := newFixture(t)
		b := confirmedBooking(t, f)
		f.seedVerifiedSupplier(b.SupplierID())
		refund := booking.NewMoney(mustDec("200"))
		require.NoError(t, f.transitions(nil).Transition(ctx, commands.TransitionInput{
			BookingID: b.ID(), Next: booking.StatusRefunded, Actor: booking.AdminActor("ops-7"), RefundAmount: &refund,
		}))

		p, err := f.settlements(nil).CreateForBooking(ctx, b.ID())
		require.NoError(t, err)
		assert.Equal(t, "923.00", p.NetPayable().StringFixed(2))
		assert.Equal(t, "200.00", p.Refunds().StringFixed(2))
	})

	t.Run("unpaid booking is not settleable", func(t *testing.T) {
		f := newFixture(t)
		f.seedHotelUnit(5, "1000")
		b, err := f.reservations(nil).Reserve(ctx, hotelInput("cust-1"))
		require.NoError(t, err)

		_, err = f.settlements(nil).CreateForBooking(ctx, b.ID())
		assert.ErrorIs(t, err, errs.ErrBookingNotSettleable)
	})

	t.Run("unverified supplier gates the payout", func(t *testing.T) {
		f := newFixture(t)
		b := confirmedBooking(t, f)
		f.store.AddSupplier(sharedProfile(b.SupplierID(), false, settlementBank()))

		p, err := f.settlements(nil).CreateForBooking(ctx, b.ID())
		require.NoError(t, err)
		assert.Equal(t, settlement.StatusKYCPending, p.Status())
	})
}

func TestExecutePayout(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, gateway commands.PayoutGateway) (*fixture, commands.SettlementCommands, *settlement.OwnerPayout) {
		t.Helper()
		f := newFixture(t)
		b := confirmedBooking(t, f)
		f.seedVerifiedSupplier(b.SupplierID())
		svc := f.settlements(gateway)
		p, err := svc.CreateForBooking(ctx, b.ID())
		require.NoError(t, err)
		return f, svc, p
	}

	t.Run("transfers the net payable and marks paid", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gateway := commandsmock.NewMockPayoutGateway(ctrl)
		_, svc, p := setup(t, gateway)

		gateway.EXPECT().
			Transfer(gomock.Any(), p.ID(), p.SupplierID(), gomock.Cond(func(d decimal.Decimal) bool {
				return d.StringFixed(2) == "1123.00"
			}), gomock.Any()).
			Return("TXN-8842AC01F3B7", nil).
			Times(1)

		paid, err := svc.ExecutePayout(ctx, p.ID(), "")
		require.NoError(t, err)
		assert.True(t, paid)

		got, err := svc.CreateForBooking(ctx, p.BookingID())
		require.NoError(t, err)
		assert.Equal(t, settlement.StatusPaid, got.Status())
		assert.Equal(t, "TXN-8842AC01F3B7", got.SettlementRef())
		require.NotNil(t, got.SettledAt())
	})

	t.Run("paid payout no-ops without touching the gateway", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gateway := commandsmock.NewMockPayoutGateway(ctrl)
		_, svc, p := setup(t, gateway)

		gateway.EXPECT().
			Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("TXN-1", nil).
			Times(1)

		paid, err := svc.ExecutePayout(ctx, p.ID(), "")
		require.NoError(t, err)
		require.True(t, paid)

		paid, err = svc.ExecutePayout(ctx, p.ID(), "")
		require.NoError(t, err)
		assert.True(t, paid)
	})

	t.Run("kyc gate blocks execution", func(t *testing.T) {
		f := newFixture(t)
		b := confirmedBooking(t, f)
		f.store.AddSupplier(sharedProfile(b.SupplierID(), false, settlementBank()))
		svc := f.settlements(nil)
		p, err := svc.CreateForBooking(ctx, b.ID())
		require.NoError(t, err)

		_, err = svc.ExecutePayout(ctx, p.ID(), "")
		assert.ErrorIs(t, err, errs.ErrKYCNotVerified)

		got, err := svc.CreateForBooking(ctx, b.ID())
		require.NoError(t, err)
		assert.Equal(t, 0, got.RetryCount(), "a block does not consume a retry")
	})

	t.Run("incomplete bank details block execution", func(t *testing.T) {
		f := newFixture(t)
		b := confirmedBooking(t, f)
		f.store.AddSupplier(sharedProfile(b.SupplierID(), true, settlement.BankDetails{}))
		svc := f.settlements(nil)
		p, err := svc.CreateForBooking(ctx, b.ID())
		require.NoError(t, err)

		_, err = svc.ExecutePayout(ctx, p.ID(), "")
		assert.ErrorIs(t, err, errs.ErrBankDetailsIncomplete)
	})

	t.Run("transfer failure leaves the payout retryable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gateway := commandsmock.NewMockPayoutGateway(ctrl)
		_, svc, p := setup(t, gateway)

		gateway.EXPECT().
			Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("", errors.New("gateway timeout")).
			Times(1)

		paid, err := svc.ExecutePayout(ctx, p.ID(), "")
		assert.False(t, paid)
		assert.ErrorIs(t, err, errs.ErrPayoutTransferFailed)

		got, err := svc.CreateForBooking(ctx, p.BookingID())
		require.NoError(t, err)
		assert.Equal(t, settlement.StatusPending, got.Status())
		assert.Equal(t, 1, got.RetryCount())
		assert.Equal(t, "gateway timeout", got.FailureReason())
	})
}

func TestRetryPayout(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds once the gateway recovers", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gateway := commandsmock.NewMockPayoutGateway(ctrl)
		f := newFixture(t)
		b := confirmedBooking(t, f)
		f.seedVerifiedSupplier(b.SupplierID())
		svc := f.settlements(gateway)
		p, err := svc.CreateForBooking(ctx, b.ID())
		require.NoError(t, err)

		gomock.InOrder(
			gateway.EXPECT().
				Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return("", errors.New("gateway timeout")),
			gateway.EXPECT().
				Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return("TXN-RECOVERED", nil),
		)

		_, err = svc.ExecutePayout(ctx, p.ID(), "")
		require.ErrorIs(t, err, errs.ErrPayoutTransferFailed)

		paid, err := svc.RetryPayout(ctx, p.ID())
		require.NoError(t, err)
		assert.True(t, paid)
	})

	t.Run("exhausting the cap permanently fails the payout", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gateway := commandsmock.NewMockPayoutGateway(ctrl)
		f := newFixture(t)
		b := confirmedBooking(t, f)
		f.seedVerifiedSupplier(b.SupplierID())
		svc := f.settlements(gateway)
		p, err := svc.CreateForBooking(ctx, b.ID())
		require.NoError(t, err)

		gateway.EXPECT().
			Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("", errors.New("gateway down")).
			Times(f.cfg.Settlement.MaxPayoutRetries)

		for i := 0; i < f.cfg.Settlement.MaxPayoutRetries; i++ {
			_, err = svc.ExecutePayout(ctx, p.ID(), "")
			require.ErrorIs(t, err, errs.ErrPayoutTransferFailed)
		}

		got, err := svc.CreateForBooking(ctx, b.ID())
		require.NoError(t, err)
		require.Equal(t, settlement.StatusFailed, got.Status())
		assert.Equal(t, f.cfg.Settlement.MaxPayoutRetries, got.RetryCount())
		assert.Equal(t, "Max retries exceeded", got.FailureReason())

		_, err = svc.RetryPayout(ctx, p.ID())
		assert.ErrorIs(t, err, errs.ErrRetryLimitExceeded)
	})

	t.Run("configured cap bounds the attempts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gateway := commandsmock.NewMockPayoutGateway(ctrl)
		f := newFixture(t)
		b := confirmedBooking(t, f)
		f.seedVerifiedSupplier(b.SupplierID())

		cfg := f.cfg.Settlement
		cfg.MaxPayoutRetries = 1
		svc := commands.NewSettlementCommands(f.uow, gateway, nil, f.clk, cfg, f.logger)

		p, err := svc.CreateForBooking(ctx, b.ID())
		require.NoError(t, err)

		gateway.EXPECT().
			Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("", errors.New("gateway down")).
			Times(1)

		_, err = svc.ExecutePayout(ctx, p.ID(), "")
		require.ErrorIs(t, err, errs.ErrPayoutTransferFailed)

		got, err := svc.CreateForBooking(ctx, b.ID())
		require.NoError(t, err)
		assert.Equal(t, settlement.StatusFailed, got.Status())
		assert.Equal(t, 1, got.RetryCount())

		_, err = svc.RetryPayout(ctx, p.ID())
		assert.ErrorIs(t, err, errs.ErrRetryLimitExceeded)
	})
}
