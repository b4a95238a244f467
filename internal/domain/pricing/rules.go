package pricing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Reason is a typed explanation for why a discount rule produced no discount.
// Rule evaluation never fails; it reports a reason and the caller proceeds at
// full price.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonInactive        Reason = "inactive"
	ReasonNotYetValid     Reason = "not_yet_valid"
	ReasonExpired         Reason = "expired"
	ReasonUsageCapped     Reason = "usage_capped"
	ReasonBelowMinimum    Reason = "below_minimum"
	ReasonKindMismatch    Reason = "kind_not_applicable"
	ReasonDomainMismatch  Reason = "domain_mismatch"
	ReasonEmailUnverified Reason = "email_not_verified"
	// ReasonPromoIgnored is recorded when a promo code was supplied alongside
	// an applicable corporate rule. Discount sources are mutually exclusive
	// and the corporate rule wins.
	ReasonPromoIgnored Reason = "promo_ignored_corporate_applied"
)

// PromoRule is the evaluated view of a promo code record.
type PromoRule struct {
	Code             string
	Active           bool
	PercentOff       *decimal.Decimal
	FlatAmount       *decimal.Decimal
	MaxDiscount      *decimal.Decimal
	ValidFrom        *time.Time
	ValidUntil       *time.Time
	MinBookingAmount decimal.Decimal
	GlobalLimit      int64 // 0 means unlimited
	GlobalUsed       int64
	PerUserLimit     int64 // 0 means unlimited
	Kinds            []string
}

// Validate checks all promo validity constraints against the booking context.
// userUsed is the number of times this customer has already redeemed the code.
func (p PromoRule) Validate(now time.Time, base decimal.Decimal, kind string, userUsed int64) Reason {
	if !p.Active {
		return ReasonInactive
	}
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return ReasonNotYetValid
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		return ReasonExpired
	}
	if p.GlobalLimit > 0 && p.GlobalUsed >= p.GlobalLimit {
		return ReasonUsageCapped
	}
	if p.PerUserLimit > 0 && userUsed >= p.PerUserLimit {
		return ReasonUsageCapped
	}
	if base.LessThan(p.MinBookingAmount) {
		return ReasonBelowMinimum
	}
	if len(p.Kinds) > 0 && !containsFold(p.Kinds, kind) {
		return ReasonKindMismatch
	}
	return ReasonNone
}

func (p PromoRule) discountFor(base decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch {
	case p.PercentOff != nil:
		d = base.Mul(*p.PercentOff).Div(decimal.NewFromInt(100))
		if p.MaxDiscount != nil && d.GreaterThan(*p.MaxDiscount) {
			d = *p.MaxDiscount
		}
	case p.FlatAmount != nil:
		d = *p.FlatAmount
	}
	// A discount never exceeds the base amount.
	if d.GreaterThan(base) {
		d = base
	}
	if d.IsNegative() {
		d = decimal.Zero
	}
	return d.Round(2)
}

// CorporateRule is the evaluated view of a corporate discount account.
type CorporateRule struct {
	EmailDomain string
	Active      bool
	PercentOff  decimal.Decimal
	MaxDiscount *decimal.Decimal
}

// Eligible checks the customer against the corporate account. The email must
// be verified before the account domain is even considered.
func (c CorporateRule) Eligible(email string, emailVerified bool) Reason {
	if !c.Active {
		return ReasonInactive
	}
	if !emailVerified {
		return ReasonEmailUnverified
	}
	at := strings.LastIndex(email, "@")
	if at < 0 || !strings.EqualFold(email[at+1:], c.EmailDomain) {
		return ReasonDomainMismatch
	}
	return ReasonNone
}

func (c CorporateRule) discountFor(base decimal.Decimal) decimal.Decimal {
	d := base.Mul(c.PercentOff).Div(decimal.NewFromInt(100))
	if c.MaxDiscount != nil && d.GreaterThan(*c.MaxDiscount) {
		d = *c.MaxDiscount
	}
	if d.GreaterThan(base) {
		d = base
	}
	if d.IsNegative() {
		d = decimal.Zero
	}
	return d.Round(2)
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
