package booking

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Money is a currency amount held at 2-decimal precision.
type Money struct {
	amount decimal.Decimal
}

func NewMoney(amount decimal.Decimal) Money {
	return Money{amount: amount.Round(2)}
}

func NewMoneyFromFloat(v float64) Money {
	return Money{amount: decimal.NewFromFloat(v).Round(2)}
}

func NewMoneyFromString(v string) (Money, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: d.Round(2)}, nil
}

func ZeroMoney() Money {
	return Money{amount: decimal.Zero}
}

func (m Money) Decimal() decimal.Decimal { return m.amount }
func (m Money) String() string           { return m.amount.StringFixed(2) }
func (m Money) IsZero() bool             { return m.amount.IsZero() }
func (m Money) IsNegative() bool         { return m.amount.IsNegative() }

func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

func (m Money) GreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

// Customer is the identity snapshot carried on a booking. Email verification
// gates corporate discount eligibility.
type Customer struct {
	id            string
	name          string
	email         string
	emailVerified bool
}

var ErrEmptyCustomerID = errors.New("customer id cannot be empty")

func NewCustomer(id, name, email string, emailVerified bool) (Customer, error) {
	if id == "" {
		return Customer{}, ErrEmptyCustomerID
	}
	return Customer{id: id, name: name, email: email, emailVerified: emailVerified}, nil
}

func (c Customer) ID() string          { return c.id }
func (c Customer) Name() string        { return c.name }
func (c Customer) Email() string       { return c.email }
func (c Customer) EmailVerified() bool { return c.emailVerified }
