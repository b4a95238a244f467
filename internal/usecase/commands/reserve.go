package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"travelcore/internal/domain/booking"
	"travelcore/internal/domain/pricing"
	"travelcore/internal/infra"
	"travelcore/internal/pkg/clock"
	"travelcore/internal/pkg/config"
	"travelcore/internal/pkg/errs"
	"travelcore/internal/usecase/shared"

	"github.com/shopspring/decimal"
)

type CustomerInput struct {
	ID            string
	Name          string
	Email         string
	EmailVerified bool
}

type ReserveInput struct {
	Kind        booking.Kind
	ResourceRef string
	TimeKey     string
	Quantity    int
	Customer    CustomerInput
	PromoCode   string
}

type ReservationCommands interface {
	Reserve(ctx context.Context, in ReserveInput) (*booking.Booking, error)
}

type reservationCommandsImpl struct {
	uow        shared.UnitOfWork
	dispatcher NotificationDispatcher
	clock      clock.Clock
	cfg        config.BookingConfig
	logger     *slog.Logger
}

func NewReservationCommands(
	uow shared.UnitOfWork,
	dispatcher NotificationDispatcher,
	clk clock.Clock,
	cfg config.BookingConfig,
	logger *slog.Logger,
) ReservationCommands {
	return &reservationCommandsImpl{
		uow:        uow,
		dispatcher: dispatcher,
		clock:      clk,
		cfg:        cfg,
		logger:     logger,
	}
}

// Reserve atomically claims inventory, prices the booking and creates it in
// payment_pending with a TTL hold. The claim, decrement and booking create
// are one unit of work; no external I/O happens inside it.
func (r *reservationCommandsImpl) Reserve(ctx context.Context, in ReserveInput) (*booking.Booking, error) {
	if in.Quantity <= 0 {
		return nil, errs.ErrInvalidQuantity
	}
	if !in.Kind.Valid() {
		return nil, booking.ErrInvalidKind
	}
	customer, err := booking.NewCustomer(in.Customer.ID, in.Customer.Name, in.Customer.Email, in.Customer.EmailVerified)
	if err != nil {
		return nil, err
	}

	unit, err := r.uow.Reads().UnitByRef(ctx, in.ResourceRef, in.TimeKey)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrInventoryUnitNotFound)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	now := r.clock.Now()
	opts, err := r.buildPriceOptions(ctx, in, customer, now)
	if err != nil {
		return nil, err
	}

	base := unit.BasePrice.Mul(decimal.NewFromInt(int64(in.Quantity)))
	breakdown := pricing.Compute(base, opts)

	created, err := booking.NewBooking(
		in.Kind, unit.SupplierID, unit.ID, in.Quantity,
		customer, breakdown, now, r.cfg.ReservationTTL,
	)
	if err != nil {
		return nil, err
	}

	err = r.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Inventory().Claim(ctx, unit.ID, in.Quantity); err != nil {
			switch {
			case infra.IsKind(err, infra.KindInsufficientStock):
				return errs.Mark(err, errs.ErrInsufficientInventory)
			case infra.IsKind(err, infra.KindNotFound):
				return errs.Mark(err, errs.ErrInventoryUnitNotFound)
			case infra.IsKind(err, infra.KindLockTimeout):
				return errs.Mark(err, errs.ErrUnitLockTimeout)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if err := tx.Bookings().Create(ctx, created); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		entry := booking.NewAuditEntry(
			created.ID(), "status", "", string(created.Status()),
			booking.SystemActor(), booking.AuditCreated, now,
		)
		if err := tx.Audit().Append(ctx, entry); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if breakdown.DiscountSource == pricing.SourcePromo {
			if err := tx.Promos().IncrementUsage(ctx, breakdown.PromoCode, customer.ID()); err != nil {
				return errs.Mark(err, errs.ErrDatabaseOperationFailed)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.publish(ctx, Event{
		Topic:      TopicBookingReserved,
		BookingID:  created.ID(),
		Kind:       string(created.Kind()),
		OccurredAt: now,
		Payload: map[string]any{
			"total":      created.TotalAmount().String(),
			"expires_at": created.ExpiresAt().Format(time.RFC3339),
		},
	})

	return created, nil
}

// buildPriceOptions resolves at most one discount source for the composer.
// A promo code that does not resolve still prices the booking at full rate
// with a typed reason; lookup failures other than not-found do fail.
func (r *reservationCommandsImpl) buildPriceOptions(ctx context.Context, in ReserveInput, customer booking.Customer, now time.Time) (pricing.Options, error) {
	opts := pricing.Options{
		CustomerEmail: customer.Email(),
		EmailVerified: customer.EmailVerified(),
		Kind:          string(in.Kind),
		FeePct:        decimal.NewFromFloat(r.cfg.ConvenienceFeePct),
		TaxPct:        decimal.NewFromFloat(r.cfg.TaxPct),
		Now:           now,
	}

	if customer.EmailVerified() {
		if at := strings.LastIndex(customer.Email(), "@"); at >= 0 {
			corp, err := r.uow.Reads().CorporateByDomain(ctx, customer.Email()[at+1:])
			if err != nil && !infra.IsKind(err, infra.KindNotFound) {
				return pricing.Options{}, errs.Mark(err, errs.ErrDatabaseOperationFailed)
			}
			opts.Corporate = corp
		}
	}

	if code := strings.TrimSpace(in.PromoCode); code != "" {
		promo, err := r.uow.Reads().PromoByCode(ctx, code)
		switch {
		case err == nil:
			opts.Promo = promo
			used, err := r.uow.Reads().PromoUsageByCustomer(ctx, code, customer.ID())
			if err != nil {
				return pricing.Options{}, errs.Mark(err, errs.ErrDatabaseOperationFailed)
			}
			opts.PromoUserUsed = used
		case infra.IsKind(err, infra.KindNotFound):
			// unknown code prices at full rate, same as any other validity failure
			opts.Promo = &pricing.PromoRule{Code: code, Active: false}
		default:
			return pricing.Options{}, errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
	}

	return opts, nil
}

func (r *reservationCommandsImpl) publish(ctx context.Context, event Event) {
	if r.dispatcher == nil {
		return
	}
	if err := r.dispatcher.Publish(ctx, event); err != nil {
		r.logger.Warn("notification publish failed",
			"topic", event.Topic,
			"booking_id", event.BookingID.String(),
			"error", err.Error(),
		)
	}
}
