// Package core holds the CashLog domain model: transactions, line items,
// master data, period aggregates, and the money representation shared by
// every other package.
package core

import (
	"math"

	"github.com/shopspring/decimal"
)

// Money is a monetary amount in integer cents. All arithmetic inside the
// service happens on cents; decimal strings exist only at the API boundary.
type Money struct {
	Cents int64
}

// ParseAmount converts a decimal string (e.g. "12.34") into Money with
// half-up rounding on anything beyond two decimal places. Negative amounts
// are rejected.
func ParseAmount(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0)
	if !cents.IsInteger() || !cents.BigInt().IsInt64() {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// String formats the amount as a plain decimal with two fraction digits,
// e.g. 1234 -> "12.34".
func (m Money) String() string {
	return decimal.NewFromInt(m.Cents).Shift(-2).StringFixed(2)
}

// Decimal returns the amount as a decimal value for export rendering.
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.Cents).Shift(-2)
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// AddChecked returns the sum of two amounts, reporting false when the
// result would overflow int64.
func (m Money) AddChecked(other Money) (Money, bool) {
	cents := m.Cents + other.Cents
	if (other.Cents > 0 && cents < m.Cents) || (other.Cents < 0 && cents > m.Cents) {
		return Money{}, false
	}
	return Money{Cents: cents}, true
}

// Mul returns the amount multiplied by an integer quantity. Inputs must
// already be bounds-checked; use MulChecked for unvalidated values.
func (m Money) Mul(qty int64) Money {
	return Money{Cents: m.Cents * qty}
}

// MulChecked returns the amount multiplied by an integer quantity,
// reporting false when the product would overflow int64.
func (m Money) MulChecked(qty int64) (Money, bool) {
	if m.Cents == 0 || qty == 0 {
		return Money{}, true
	}
	if (m.Cents == math.MinInt64 && qty == -1) || (qty == math.MinInt64 && m.Cents == -1) {
		return Money{}, false
	}
	cents := m.Cents * qty
	if cents/qty != m.Cents {
		return Money{}, false
	}
	return Money{Cents: cents}, true
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Cents < 0
}
