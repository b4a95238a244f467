//go:build unit

package commands_test

import (
	"context"
	"testing"

	"travelcore/internal/domain/booking"
	"travelcore/internal/pkg/errs"
	"travelcore/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	ctx := context.Background()
	admin := booking.AdminActor("ops-7")

	setup := func(t *testing.T) (*fixture, commands.TransitionCommands, *booking.Booking, uuid.UUID) {
		t.Helper()
		f := newFixture(t)
		unitID := f.seedHotelUnit(5, "1000")
		b, err := f.reservations(nil).Reserve(ctx, hotelInput("cust-1"))
		require.NoError(t, err)
		return f, f.transitions(nil), b, unitID
	}

	t.Run("confirmation stamps paid amount", func(t *testing.T) {
		f, svc, b, _ := setup(t)

		err := svc.Transition(ctx, commands.TransitionInput{
			BookingID: b.ID(), Next: booking.StatusConfirmed, Actor: admin,
		})
		require.NoError(t, err)

		got, err := f.uow.Reads().BookingByID(ctx, b.ID())
		require.NoError(t, err)
		assert.Equal(t, booking.StatusConfirmed, got.Status())
		assert.True(t, got.PaidAmount().Equal(got.TotalAmount()))
		require.NotNil(t, got.ConfirmedAt())
		assert.Equal(t, 2, f.store.AuditCount(b.ID()), "created + status_change")
	})

	t.Run("cancellation releases inventory in the same transaction", func(t *testing.T) {
		f, svc, b, unitID := setup(t)
		require.Equal(t, 4, mustAvailable(t, f.store, unitID))

		err := svc.Transition(ctx, commands.TransitionInput{
			BookingID: b.ID(), Next: booking.StatusCancelled, Actor: admin,
		})
		require.NoError(t, err)

		assert.Equal(t, 5, mustAvailable(t, f.store, unitID))
		got, err := f.uow.Reads().BookingByID(ctx, b.ID())
		require.NoError(t, err)
		require.NotNil(t, got.CancelledAt())
	})

	t.Run("payment failure releases the hold", func(t *testing.T) {
		f, svc, b, unitID := setup(t)

		err := svc.Transition(ctx, commands.TransitionInput{
			BookingID: b.ID(), Next: booking.StatusPaymentFailed, Actor: booking.SystemActor(),
		})
		require.NoError(t, err)
		assert.Equal(t, 5, mustAvailable(t, f.store, unitID))
	})

	t.Run("direct expiry releases the hold", func(t *testing.T) {
		f, svc, b, unitID := setup(t)
		require.Equal(t, 4, mustAvailable(t, f.store, unitID))

		err := svc.Transition(ctx, commands.TransitionInput{
			BookingID: b.ID(), Next: booking.StatusExpired, Actor: booking.SystemActor(),
		})
		require.NoError(t, err)
		assert.Equal(t, 5, mustAvailable(t, f.store, unitID))

		// the reclaimer skips it and must not release a second time
		summary, err := f.expiry().RunExpiryPass(ctx)
		require.NoError(t, err)
		assert.Zero(t, summary.ExpiredCount)
		assert.Equal(t, 5, mustAvailable(t, f.store, unitID))
	})

	t.Run("rejected edge writes no audit row", func(t *testing.T) {
		f, svc, b, unitID := setup(t)
		before := f.store.AuditCount(b.ID())

		err := svc.Transition(ctx, commands.TransitionInput{
			BookingID: b.ID(), Next: booking.StatusCompleted, Actor: admin,
		})

		assert.ErrorIs(t, err, errs.ErrInvalidTransition)
		assert.Equal(t, before, f.store.AuditCount(b.ID()))
		assert.Equal(t, 4, mustAvailable(t, f.store, unitID), "rejected edge must not touch inventory")
	})

	t.Run("refund transition records the amount", func(t *testing.T) {
		f, svc, b, _ := setup(t)
		require.NoError(t, svc.Transition(ctx, commands.TransitionInput{
			BookingID: b.ID(), Next: booking.StatusConfirmed, Actor: admin,
		}))

		refund := booking.NewMoney(mustDec("500"))
		err := svc.Transition(ctx, commands.TransitionInput{
			BookingID: b.ID(), Next: booking.StatusRefunded, Actor: admin, RefundAmount: &refund,
		})
		require.NoError(t, err)

		got, err := f.uow.Reads().BookingByID(ctx, b.ID())
		require.NoError(t, err)
		assert.Equal(t, booking.StatusRefunded, got.Status())
		assert.Equal(t, "500.00", got.RefundAmount().String())
	})

	t.Run("refund above paid is rejected atomically", func(t *testing.T) {
		f, svc, b, _ := setup(t)
		require.NoError(t, svc.Transition(ctx, commands.TransitionInput{
			BookingID: b.ID(), Next: booking.StatusConfirmed, Actor: admin,
		}))

		over := booking.NewMoney(mustDec("99999"))
		err := svc.Transition(ctx, commands.TransitionInput{
			BookingID: b.ID(), Next: booking.StatusRefunded, Actor: admin, RefundAmount: &over,
		})

		assert.ErrorIs(t, err, booking.ErrRefundExceedsPaid)
		got, err := f.uow.Reads().BookingByID(ctx, b.ID())
		require.NoError(t, err)
		assert.Equal(t, booking.StatusConfirmed, got.Status(), "failed refund must roll back the status flip")
	})

	t.Run("confirmation creates the supplier payout", func(t *testing.T) {
		f := newFixture(t)
		f.seedHotelUnit(5, "1000")
		b, err := f.reservations(nil).Reserve(ctx, hotelInput("cust-1"))
		require.NoError(t, err)
		f.seedVerifiedSupplier(b.SupplierID())

		settlements := f.settlements(nil)
		svc := f.transitions(settlements)

		require.NoError(t, svc.Transition(ctx, commands.TransitionInput{
			BookingID: b.ID(), Next: booking.StatusConfirmed, Actor: admin,
		}))

		payoutID, err := f.uow.Reads().PayoutByBooking(ctx, b.ID())
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, payoutID)
	})

	t.Run("unknown booking", func(t *testing.T) {
		f := newFixture(t)
		err := f.transitions(nil).Transition(ctx, commands.TransitionInput{
			BookingID: uuid.New(), Next: booking.StatusConfirmed, Actor: admin,
		})
		assert.ErrorIs(t, err, errs.ErrReservationNotFound)
	})
}

func TestAmendContact(t *testing.T) {
	ctx := context.Background()
	admin := booking.AdminActor("ops-7")

	f := newFixture(t)
	f.seedHotelUnit(5, "1000")
	b, err := f.reservations(nil).Reserve(ctx, hotelInput("cust-1"))
	require.NoError(t, err)
	svc := f.transitions(nil)

	t.Run("one audit row per changed field", func(t *testing.T) {
		before := f.store.AuditCount(b.ID())

		require.NoError(t, svc.AmendContact(ctx, b.ID(), "Asha R.", "asha.r@example.com", admin))

		assert.Equal(t, before+2, f.store.AuditCount(b.ID()))
		got, err := f.uow.Reads().BookingByID(ctx, b.ID())
		require.NoError(t, err)
		assert.Equal(t, "Asha R.", got.Customer().Name())
		assert.Equal(t, "asha.r@example.com", got.Customer().Email())
	})

	t.Run("no-op amendment writes nothing", func(t *testing.T) {
		before := f.store.AuditCount(b.ID())
		require.NoError(t, svc.AmendContact(ctx, b.ID(), "Asha R.", "asha.r@example.com", admin))
		assert.Equal(t, before, f.store.AuditCount(b.ID()))
	})
}

func TestSetDeleted(t *testing.T) {
	ctx := context.Background()
	admin := booking.AdminActor("ops-7")

	f := newFixture(t)
	f.seedHotelUnit(5, "1000")
	b, err := f.reservations(nil).Reserve(ctx, hotelInput("cust-1"))
	require.NoError(t, err)
	svc := f.transitions(nil)

	require.NoError(t, svc.SetDeleted(ctx, b.ID(), true, admin))
	got, err := f.uow.Reads().BookingByID(ctx, b.ID())
	require.NoError(t, err)
	assert.True(t, got.Deleted())
	assert.Equal(t, booking.StatusPaymentPending, got.Status(), "soft delete leaves the lifecycle alone")

	// idempotent
	before := f.store.AuditCount(b.ID())
	require.NoError(t, svc.SetDeleted(ctx, b.ID(), true, admin))
	assert.Equal(t, before, f.store.AuditCount(b.ID()))

	require.NoError(t, svc.SetDeleted(ctx, b.ID(), false, admin))
	got, err = f.uow.Reads().BookingByID(ctx, b.ID())
	require.NoError(t, err)
	assert.False(t, got.Deleted())
}
