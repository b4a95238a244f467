// Package pricing implements the price composer: a pure function turning a
// base amount plus an optional discount context into an immutable breakdown.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountSource string

const (
	SourceNone      DiscountSource = "none"
	SourcePromo     DiscountSource = "promo"
	SourceCorporate DiscountSource = "corporate"
)

// Breakdown is the price snapshot captured once at booking creation and never
// recomputed. Total == Base - Discount + ConvenienceFee + Tax always holds,
// with every component non-negative and rounded to 2 decimals.
type Breakdown struct {
	Base           decimal.Decimal
	Discount       decimal.Decimal
	DiscountSource DiscountSource
	DiscountReason Reason // set when a supplied rule produced no discount
	PromoCode      string // code as redeemed, empty unless SourcePromo
	ConvenienceFee decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
}

// Options carries at most one discount source per computation. When both a
// promo and an applicable corporate rule are supplied, the corporate rule is
// applied and the promo is reported ignored.
type Options struct {
	Promo         *PromoRule
	PromoUserUsed int64
	Corporate     *CorporateRule
	CustomerEmail string
	EmailVerified bool
	Kind          string
	FeePct        decimal.Decimal
	TaxPct        decimal.Decimal
	Now           time.Time
}

// Compute builds the breakdown. The fee applies to the discounted subtotal
// and tax applies to the fee-inclusive subtotal. Rule violations never fail
// the computation; they zero the discount and record the reason.
func Compute(base decimal.Decimal, opts Options) Breakdown {
	if base.IsNegative() {
		base = decimal.Zero
	}
	base = base.Round(2)

	b := Breakdown{
		Base:           base,
		Discount:       decimal.Zero,
		DiscountSource: SourceNone,
	}

	corporateApplied := false
	if opts.Corporate != nil {
		if reason := opts.Corporate.Eligible(opts.CustomerEmail, opts.EmailVerified); reason == ReasonNone {
			b.Discount = opts.Corporate.discountFor(base)
			b.DiscountSource = SourceCorporate
			corporateApplied = true
			if opts.Promo != nil {
				b.DiscountReason = ReasonPromoIgnored
			}
		} else if opts.Promo == nil {
			b.DiscountReason = reason
		}
	}

	if !corporateApplied && opts.Promo != nil {
		if reason := opts.Promo.Validate(opts.Now, base, opts.Kind, opts.PromoUserUsed); reason == ReasonNone {
			b.Discount = opts.Promo.discountFor(base)
			b.DiscountSource = SourcePromo
			b.PromoCode = opts.Promo.Code
		} else {
			b.DiscountReason = reason
		}
	}

	subtotal := base.Sub(b.Discount)
	if subtotal.IsNegative() {
		subtotal = decimal.Zero
		b.Discount = base
	}

	hundred := decimal.NewFromInt(100)
	b.ConvenienceFee = subtotal.Mul(opts.FeePct).Div(hundred).Round(2)
	b.Tax = subtotal.Add(b.ConvenienceFee).Mul(opts.TaxPct).Div(hundred).Round(2)
	b.Total = subtotal.Add(b.ConvenienceFee).Add(b.Tax).Round(2)
	if b.Total.IsNegative() {
		b.Total = decimal.Zero
	}
	return b
}

// Verify re-checks the breakdown identity. Used by tests and by the
// settlement engine before trusting a stored snapshot.
func (b Breakdown) Verify() bool {
	want := b.Base.Sub(b.Discount).Add(b.ConvenienceFee).Add(b.Tax).Round(2)
	if want.IsNegative() {
		want = decimal.Zero
	}
	return b.Total.Equal(want) &&
		!b.Base.IsNegative() && !b.Discount.IsNegative() &&
		!b.ConvenienceFee.IsNegative() && !b.Tax.IsNegative() && !b.Total.IsNegative()
}
