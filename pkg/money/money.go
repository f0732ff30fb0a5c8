// Package money holds the decimal helpers shared by the projection engine:
// cent and rate rounding, guarded division, compounding and the
// percent-or-decimal rate rule.
package money

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ErrNonFinite is returned when a float input is NaN or infinite.
var ErrNonFinite = errors.New("non-finite number")

// MoneyPlaces and RatePlaces are the fractional digits kept on emitted values.
const (
	MoneyPlaces = 2
	RatePlaces  = 4
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
	// MaxMagnitude bounds any emitted amount; anything larger is treated as overflow.
	MaxMagnitude = decimal.New(1, 15)
	// Dust is the residual below which a balance counts as depleted.
	Dust = decimal.NewFromFloat(0.01)
)

// RoundMoney rounds to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal { return d.Round(MoneyPlaces) }

// RoundRate rounds to four fractional digits.
func RoundRate(d decimal.Decimal) decimal.Decimal { return d.Round(RatePlaces) }

// TruncateMoney drops fractions of a cent without rounding up.
func TruncateMoney(d decimal.Decimal) decimal.Decimal { return d.Truncate(MoneyPlaces) }

// Annual converts a monthly amount to annual.
func Annual(monthly decimal.Decimal) decimal.Decimal { return monthly.Mul(twelve) }

// Monthly converts an annual amount to monthly.
func Monthly(annual decimal.Decimal) decimal.Decimal { return annual.Div(twelve) }

// SafeDiv divides n by d, returning zero when d is zero.
func SafeDiv(n, d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	return n.Div(d)
}

// Percent returns n/d*100, or zero when d is zero.
func Percent(n, d decimal.Decimal) decimal.Decimal {
	return SafeDiv(n, d).Mul(hundred)
}

// NonNegative clamps d at zero and reports whether a clamp happened.
func NonNegative(d decimal.Decimal) (decimal.Decimal, bool) {
	if d.IsNegative() {
		return decimal.Zero, true
	}
	return d, false
}

// Compound returns (1+rate)^years. Non-positive years yield one.
func Compound(rate decimal.Decimal, years int) decimal.Decimal {
	factor := decimal.NewFromInt(1)
	if years <= 0 {
		return factor
	}
	step := factor.Add(rate)
	for i := 0; i < years; i++ {
		factor = factor.Mul(step)
	}
	return factor
}

// NormalizeRate accepts a rate in decimal form (0.07) or percent form (7.0).
// Values whose magnitude is below one are already decimal; the rest are divided by 100.
// The second result reports whether the percent form was detected.
func NormalizeRate(r decimal.Decimal) (decimal.Decimal, bool) {
	if r.Abs().LessThan(decimal.NewFromInt(1)) {
		return r, false
	}
	return r.Div(hundred), true
}

// FromFloat converts a float64 into a decimal, rejecting NaN and infinities.
func FromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrNonFinite, f)
	}
	return decimal.NewFromFloat(f), nil
}

// InRange reports whether |d| stays below MaxMagnitude.
func InRange(d decimal.Decimal) bool {
	return d.Abs().LessThan(MaxMagnitude)
}

// Sum adds a list of amounts.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// FormatCurrency renders an amount as USD with cents.
func FormatCurrency(d decimal.Decimal) string { return "$" + d.StringFixed(MoneyPlaces) }
