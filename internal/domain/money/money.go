// Package money represents prices as integer minor currency units.
package money

import (
	"math"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when a price string cannot be parsed into a
// non-negative amount.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrOverflow is returned when a computed amount does not fit in Cents.
var ErrOverflow = errors.New("amount out of range")

var maxCents = decimal.NewFromInt(math.MaxInt64)

// Cents is an amount in minor currency units (centavos, cents).
type Cents int64

// Decimal returns the amount in major units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// Times returns the subtotal for qty units priced at c without an overflow
// check. Use Mul for quantities that were not validated against a total.
func (c Cents) Times(qty int) Cents {
	return c * Cents(qty)
}

// Mul returns the subtotal for qty units priced at c, or ErrOverflow.
// Both operands are expected to be non-negative.
func (c Cents) Mul(qty int) (Cents, error) {
	r := c * Cents(qty)
	if qty != 0 && r/Cents(qty) != c {
		return 0, errors.Wrapf(ErrOverflow, "%s x %d", c, qty)
	}
	return r, nil
}

// Add returns c+d, or ErrOverflow.
func (c Cents) Add(d Cents) (Cents, error) {
	r := c + d
	if (d > 0 && r < c) || (d < 0 && r > c) {
		return 0, errors.Wrapf(ErrOverflow, "%s + %s", c, d)
	}
	return r, nil
}

// String formats the amount with exactly two decimal places, e.g. "25000.00".
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// Format prefixes the amount with a currency symbol, e.g. "₱25000.00".
func (c Cents) Format(symbol string) string {
	return symbol + c.String()
}

// Parse converts a major-unit string like "25000" or "1250.50" into Cents.
// Amounts with more than two decimal places are rounded half away from zero.
func Parse(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidAmount, "parse %q", s)
	}
	if d.IsNegative() {
		return 0, errors.Wrapf(ErrInvalidAmount, "negative amount %q", s)
	}
	cents := d.Round(2).Shift(2)
	if cents.GreaterThan(maxCents) {
		return 0, errors.Wrapf(ErrInvalidAmount, "amount %q too large", s)
	}
	return Cents(cents.IntPart()), nil
}
