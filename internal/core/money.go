// Package core provides the ledger domain model.
//
// Money is kept as integer cents everywhere inside the process. Decimal
// text only appears at the edges (JSON bodies, exports, user input) and is
// converted with shopspring/decimal using half away from zero rounding.
package core

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

// ErrMoneyOutOfRange is returned for amounts whose cents do not fit in int64.
var ErrMoneyOutOfRange = fmt.Errorf("%w: amount out of range", ErrInvalidInput)

var maxMoney = decimal.New(math.MaxInt64, -2)

// NewMoneyFromDecimal rounds d to two places and returns the cent value.
func NewMoneyFromDecimal(d decimal.Decimal) (Money, error) {
	d = d.Round(2)
	if d.Abs().GreaterThan(maxMoney) {
		return Money{}, ErrMoneyOutOfRange
	}
	return Money{Cents: d.Shift(2).IntPart()}, nil
}

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half away from zero on the third decimal place. The result is always
// positive cents; zero, negative and malformed values return ErrInvalidAmount.
//
// Examples:
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("12,34")  -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
//	ParseDecimalToCents("12.344") -> 1234, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	m, err := NewMoneyFromDecimal(d)
	if err != nil || m.Cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return m.Cents, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with exactly two decimals, e.g. "12.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Neg() Money        { return Money{Cents: -m.Cents} }

// MarshalJSON writes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string. Values that
// do not fit in int64 cents are rejected rather than wrapped.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		m.Cents = 0
		return nil
	}
	d, err := decimal.NewFromString(strings.Trim(string(b), `"`))
	if err != nil {
		return fmt.Errorf("%w: invalid money value %s", ErrInvalidInput, b)
	}
	parsed, err := NewMoneyFromDecimal(d)
	if err != nil {
		return fmt.Errorf("%w: %s", err, b)
	}
	*m = parsed
	return nil
}
