//go:build unit

package pricing_test

import (
	"testing"
	"time"

	"travelcore/internal/domain/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now    = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	feePct = decimal.NewFromFloat(2.5)
	taxPct = decimal.NewFromInt(12)
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func baseOpts() pricing.Options {
	return pricing.Options{
		CustomerEmail: "guest@example.com",
		EmailVerified: true,
		Kind:          "hotel",
		FeePct:        feePct,
		TaxPct:        taxPct,
		Now:           now,
	}
}

func TestCompute(t *testing.T) {
	t.Run("no discount", func(t *testing.T) {
		b := pricing.Compute(dec("1000"), baseOpts())

		assert.True(t, b.Discount.IsZero())
		assert.Equal(t, pricing.SourceNone, b.DiscountSource)
		assert.Equal(t, "25.00", b.ConvenienceFee.StringFixed(2))
		assert.Equal(t, "123.00", b.Tax.StringFixed(2))
		assert.Equal(t, "1148.00", b.Total.StringFixed(2))
		assert.True(t, b.Verify())
	})

	t.Run("percent promo", func(t *testing.T) {
		opts := baseOpts()
		opts.Promo = &pricing.PromoRule{Code: "SPRING10", Active: true, PercentOff: decPtr("10")}

		b := pricing.Compute(dec("1000"), opts)

		assert.Equal(t, "100.00", b.Discount.StringFixed(2))
		assert.Equal(t, pricing.SourcePromo, b.DiscountSource)
		assert.Equal(t, "SPRING10", b.PromoCode)
		// fee on discounted subtotal, tax on fee-inclusive subtotal
		assert.Equal(t, "22.50", b.ConvenienceFee.StringFixed(2))
		assert.Equal(t, "110.70", b.Tax.StringFixed(2))
		assert.Equal(t, "1033.20", b.Total.StringFixed(2))
		assert.True(t, b.Verify())
	})

	t.Run("percent promo capped by max discount", func(t *testing.T) {
		opts := baseOpts()
		opts.Promo = &pricing.PromoRule{
			Code: "BIG20", Active: true,
			PercentOff: decPtr("20"), MaxDiscount: decPtr("150"),
		}

		b := pricing.Compute(dec("1000"), opts)

		assert.Equal(t, "150.00", b.Discount.StringFixed(2))
		assert.True(t, b.Verify())
	})

	t.Run("flat promo never exceeds base", func(t *testing.T) {
		opts := baseOpts()
		opts.Promo = &pricing.PromoRule{Code: "FLAT500", Active: true, FlatAmount: decPtr("500")}

		b := pricing.Compute(dec("300"), opts)

		assert.Equal(t, "300.00", b.Discount.StringFixed(2))
		assert.True(t, b.Total.GreaterThanOrEqual(decimal.Zero))
		assert.True(t, b.Verify())
	})

	t.Run("corporate capped", func(t *testing.T) {
		opts := baseOpts()
		opts.CustomerEmail = "buyer@acme.com"
		opts.Corporate = &pricing.CorporateRule{
			EmailDomain: "acme.com", Active: true,
			PercentOff: dec("10"), MaxDiscount: decPtr("100"),
		}

		b := pricing.Compute(dec("2000"), opts)

		assert.Equal(t, "100.00", b.Discount.StringFixed(2))
		assert.Equal(t, pricing.SourceCorporate, b.DiscountSource)
		assert.True(t, b.Verify())
	})

	t.Run("corporate wins over promo", func(t *testing.T) {
		opts := baseOpts()
		opts.CustomerEmail = "buyer@acme.com"
		opts.Corporate = &pricing.CorporateRule{EmailDomain: "acme.com", Active: true, PercentOff: dec("5")}
		opts.Promo = &pricing.PromoRule{Code: "SPRING10", Active: true, PercentOff: decPtr("10")}

		b := pricing.Compute(dec("1000"), opts)

		assert.Equal(t, pricing.SourceCorporate, b.DiscountSource)
		assert.Equal(t, "50.00", b.Discount.StringFixed(2))
		assert.Equal(t, pricing.ReasonPromoIgnored, b.DiscountReason)
		assert.Empty(t, b.PromoCode)
	})

	t.Run("unverified email disables corporate", func(t *testing.T) {
		opts := baseOpts()
		opts.CustomerEmail = "buyer@acme.com"
		opts.EmailVerified = false
		opts.Corporate = &pricing.CorporateRule{EmailDomain: "acme.com", Active: true, PercentOff: dec("10")}

		b := pricing.Compute(dec("1000"), opts)

		assert.True(t, b.Discount.IsZero())
		assert.Equal(t, pricing.ReasonEmailUnverified, b.DiscountReason)
	})

	t.Run("negative base clamps to zero", func(t *testing.T) {
		b := pricing.Compute(dec("-50"), baseOpts())

		assert.True(t, b.Base.IsZero())
		assert.True(t, b.Total.IsZero())
		assert.True(t, b.Verify())
	})
}

func TestPromoRuleValidate(t *testing.T) {
	valid := pricing.PromoRule{
		Code: "SPRING10", Active: true, PercentOff: decPtr("10"),
		ValidFrom:        timePtr(now.Add(-time.Hour)),
		ValidUntil:       timePtr(now.Add(time.Hour)),
		MinBookingAmount: dec("500"),
		GlobalLimit:      100, GlobalUsed: 10,
		PerUserLimit: 2,
		Kinds:        []string{"hotel", "package"},
	}

	cases := []struct {
		name     string
		mutate   func(*pricing.PromoRule)
		base     decimal.Decimal
		kind     string
		userUsed int64
		want     pricing.Reason
	}{
		{name: "valid", base: dec("1000"), kind: "hotel", want: pricing.ReasonNone},
		{
			name:   "inactive",
			mutate: func(p *pricing.PromoRule) { p.Active = false },
			base:   dec("1000"), kind: "hotel", want: pricing.ReasonInactive,
		},
		{
			name:   "not yet valid",
			mutate: func(p *pricing.PromoRule) { p.ValidFrom = timePtr(now.Add(time.Hour)) },
			base:   dec("1000"), kind: "hotel", want: pricing.ReasonNotYetValid,
		},
		{
			name:   "expired window",
			mutate: func(p *pricing.PromoRule) { p.ValidUntil = timePtr(now.Add(-time.Minute)) },
			base:   dec("1000"), kind: "hotel", want: pricing.ReasonExpired,
		},
		{
			name:   "global cap reached",
			mutate: func(p *pricing.PromoRule) { p.GlobalUsed = 100 },
			base:   dec("1000"), kind: "hotel", want: pricing.ReasonUsageCapped,
		},
		{
			name: "per-user cap reached",
			base: dec("1000"), kind: "hotel", userUsed: 2, want: pricing.ReasonUsageCapped,
		},
		{
			name: "below minimum",
			base: dec("499"), kind: "hotel", want: pricing.ReasonBelowMinimum,
		},
		{
			name: "kind not applicable",
			base: dec("1000"), kind: "bus", want: pricing.ReasonKindMismatch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule := valid
			if tc.mutate != nil {
				tc.mutate(&rule)
			}
			assert.Equal(t, tc.want, rule.Validate(now, tc.base, tc.kind, tc.userUsed))
		})
	}
}

func TestCorporateRuleEligible(t *testing.T) {
	rule := pricing.CorporateRule{EmailDomain: "acme.com", Active: true, PercentOff: dec("10")}

	assert.Equal(t, pricing.ReasonNone, rule.Eligible("buyer@acme.com", true))
	assert.Equal(t, pricing.ReasonNone, rule.Eligible("buyer@ACME.com", true))
	assert.Equal(t, pricing.ReasonEmailUnverified, rule.Eligible("buyer@acme.com", false))
	assert.Equal(t, pricing.ReasonDomainMismatch, rule.Eligible("buyer@other.com", true))

	inactive := rule
	inactive.Active = false
	assert.Equal(t, pricing.ReasonInactive, inactive.Eligible("buyer@acme.com", true))
}

func TestBreakdownVerify(t *testing.T) {
	b := pricing.Compute(dec("1000"), baseOpts())
	require.True(t, b.Verify())

	tampered := b
	tampered.Total = tampered.Total.Add(dec("0.01"))
	assert.False(t, tampered.Verify())
}

func timePtr(t time.Time) *time.Time { return &t }
