// Package money holds the decimal helpers shared by pricing, delivery and cart code.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept on customer-facing amounts.
const Scale = 2

var hundred = decimal.NewFromInt(100)

// Round rounds an amount half-up to cents.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Scale)
}

// ApplyPercentOff returns amount × (1 − pct/100).
func ApplyPercentOff(amount, pct decimal.Decimal) decimal.Decimal {
	if pct.IsZero() {
		return amount
	}
	factor := decimal.NewFromInt(1).Sub(pct.Div(hundred))
	return amount.Mul(factor)
}

// PercentOf returns pct% of amount.
func PercentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// Times multiplies an amount by an integer count.
func Times(amount decimal.Decimal, n int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(n)))
}

// NonNegative clamps negative amounts to zero.
func NonNegative(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// Parse converts a string such as "12.50" into a decimal.
func Parse(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return d, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(raw string) decimal.Decimal {
	d, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// Format renders an amount with two decimals, e.g. "18.00".
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(Scale)
}
