//go:build unit

package commands_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"travelcore/internal/domain/pricing"
	"travelcore/internal/pkg/errs"
	"travelcore/internal/usecase/commands"
	commandsmock "travelcore/tests/mock/commands"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a payment_pending booking with a price snapshot", func(t *testing.T) {
		f := newFixture(t)
		unitID := f.seedHotelUnit(5, "1000")
		svc := f.reservations(nil)

		b, err := svc.Reserve(ctx, hotelInput("cust-1"))
		require.NoError(t, err)

		assert.Equal(t, "payment_pending", string(b.Status()))
		assert.Equal(t, testNow.Add(10*time.Minute), b.ExpiresAt())
		assert.Equal(t, "1148.00", b.TotalAmount().String())
		assert.Equal(t, 4, mustAvailable(t, f.store, unitID))
		assert.Equal(t, 1, f.store.AuditCount(b.ID()), "reservation writes exactly one audit row")
	})

	t.Run("quantity multiplies the base price", func(t *testing.T) {
		f := newFixture(t)
		f.seedHotelUnit(5, "1000")
		svc := f.reservations(nil)

		in := hotelInput("cust-1")
		in.Quantity = 3
		b, err := svc.Reserve(ctx, in)
		require.NoError(t, err)

		assert.Equal(t, "3000.00", b.Price().Base.StringFixed(2))
	})

	t.Run("insufficient availability fails atomically", func(t *testing.T) {
		f := newFixture(t)
		unitID := f.seedHotelUnit(2, "1000")
		svc := f.reservations(nil)

		in := hotelInput("cust-1")
		in.Quantity = 3
		_, err := svc.Reserve(ctx, in)

		assert.ErrorIs(t, err, errs.ErrInsufficientInventory)
		assert.Equal(t, 2, mustAvailable(t, f.store, unitID), "failed claim must not move the counter")
	})

	t.Run("unknown unit", func(t *testing.T) {
		f := newFixture(t)
		svc := f.reservations(nil)

		in := hotelInput("cust-1")
		in.ResourceRef = "hotel:404"
		_, err := svc.Reserve(ctx, in)

		assert.ErrorIs(t, err, errs.ErrInventoryUnitNotFound)
	})

	t.Run("invalid quantity rejected before any read", func(t *testing.T) {
		f := newFixture(t)
		svc := f.reservations(nil)

		in := hotelInput("cust-1")
		in.Quantity = 0
		_, err := svc.Reserve(ctx, in)

		assert.ErrorIs(t, err, errs.ErrInvalidQuantity)
	})

	t.Run("promo applies and usage increments", func(t *testing.T) {
		f := newFixture(t)
		f.seedHotelUnit(5, "1000")
		f.store.AddPromo(percentPromo("SPRING10", "10"))
		svc := f.reservations(nil)

		in := hotelInput("cust-1")
		in.PromoCode = "SPRING10"
		b, err := svc.Reserve(ctx, in)
		require.NoError(t, err)

		assert.Equal(t, pricing.SourcePromo, b.Price().DiscountSource)
		assert.Equal(t, "100.00", b.Price().Discount.StringFixed(2))
		assert.Equal(t, "1033.20", b.TotalAmount().String())

		used, err := f.uow.Reads().PromoUsageByCustomer(ctx, "SPRING10", "cust-1")
		require.NoError(t, err)
		assert.EqualValues(t, 1, used)
	})

	t.Run("unknown promo code prices at full rate", func(t *testing.T) {
		f := newFixture(t)
		f.seedHotelUnit(5, "1000")
		svc := f.reservations(nil)

		in := hotelInput("cust-1")
		in.PromoCode = "NOSUCHCODE"
		b, err := svc.Reserve(ctx, in)
		require.NoError(t, err)

		assert.True(t, b.Price().Discount.IsZero())
		assert.Equal(t, pricing.ReasonInactive, b.Price().DiscountReason)
		assert.Equal(t, "1148.00", b.TotalAmount().String())
	})

	t.Run("corporate discount beats promo", func(t *testing.T) {
		f := newFixture(t)
		f.seedHotelUnit(5, "1000")
		f.store.AddPromo(percentPromo("SPRING10", "10"))
		f.store.AddCorporate(pricing.CorporateRule{
			EmailDomain: "example.com", Active: true,
			PercentOff: mustDec("5"),
		})
		svc := f.reservations(nil)

		in := hotelInput("cust-1")
		in.PromoCode = "SPRING10"
		b, err := svc.Reserve(ctx, in)
		require.NoError(t, err)

		assert.Equal(t, pricing.SourceCorporate, b.Price().DiscountSource)
		assert.Equal(t, pricing.ReasonPromoIgnored, b.Price().DiscountReason)

		used, err := f.uow.Reads().PromoUsageByCustomer(ctx, "SPRING10", "cust-1")
		require.NoError(t, err)
		assert.Zero(t, used, "an ignored promo must not consume usage")
	})

	t.Run("publishes booking.reserved after commit", func(t *testing.T) {
		f := newFixture(t)
		f.seedHotelUnit(5, "1000")

		ctrl := gomock.NewController(t)
		dispatcher := commandsmock.NewMockNotificationDispatcher(ctrl)
		dispatcher.EXPECT().
			Publish(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, event commands.Event) error {
				assert.Equal(t, commands.TopicBookingReserved, event.Topic)
				return nil
			})

		_, err := f.reservations(dispatcher).Reserve(ctx, hotelInput("cust-1"))
		require.NoError(t, err)
	})

	t.Run("dispatcher failure does not fail the reservation", func(t *testing.T) {
		f := newFixture(t)
		unitID := f.seedHotelUnit(5, "1000")

		ctrl := gomock.NewController(t)
		dispatcher := commandsmock.NewMockNotificationDispatcher(ctrl)
		dispatcher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(fmt.Errorf("broker down"))

		_, err := f.reservations(dispatcher).Reserve(ctx, hotelInput("cust-1"))
		require.NoError(t, err)
		assert.Equal(t, 4, mustAvailable(t, f.store, unitID))
	})
}

// N+1 concurrent requests against N seats: exactly one loser, and the
// committed counter lands on zero.
func TestReserveConcurrentOversubscription(t *testing.T) {
	ctx := context.Background()
	const capacity = 8

	f := newFixture(t)
	unitID := f.seedHotelUnit(capacity, "1000")
	svc := f.reservations(nil)

	var wg sync.WaitGroup
	errCh := make(chan error, capacity+1)
	for i := 0; i < capacity+1; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Reserve(ctx, hotelInput(fmt.Sprintf("cust-%d", i)))
			errCh <- err
		}(i)
	}
	wg.Wait()
	close(errCh)

	var successes, failures int
	for err := range errCh {
		if err == nil {
			successes++
			continue
		}
		failures++
		assert.ErrorIs(t, err, errs.ErrInsufficientInventory)
	}

	assert.Equal(t, capacity, successes)
	assert.Equal(t, 1, failures)
	assert.Equal(t, 0, mustAvailable(t, f.store, unitID))
}
