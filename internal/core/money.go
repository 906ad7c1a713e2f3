// Package core holds the budget domain: records, money handling, periods,
// category colours and the pure aggregation and ledger functions computed
// over a user's snapshot of transactions.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseMoney converts user-entered text to a signed amount in cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Values are
// rounded half away from zero to two decimals, so "1.005" becomes 101 cents.
//
//	ParseMoney("-50")    -> {-5000}, nil
//	ParseMoney("12,345") -> {1235}, nil
//	ParseMoney("abc")    -> {}, ErrInvalidAmount
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.IsInteger() || cents.Abs().GreaterThan(decimal.NewFromInt(1<<53)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// ParseNonNegativeMoney is ParseMoney restricted to amounts >= 0.
func ParseNonNegativeMoney(s string) (Money, error) {
	m, err := ParseMoney(s)
	if err != nil {
		return Money{}, err
	}
	if m.Cents < 0 {
		return Money{}, ErrNegativeAmount
	}
	return m, nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Abs returns the magnitude of the amount.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// String renders the amount with two decimals, e.g. "-50.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Format prefixes the amount with a currency symbol: "R-50.00".
func (m Money) Format(symbol string) string {
	return symbol + m.String()
}
