// Package decimal provides the arbitrary-precision arithmetic primitives
// used by the unit-conversion and fee layers. It wraps shopspring/decimal
// so that no chained operation ever routes a result through float64.
package decimal

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// divisionPrecision is the number of fractional digits kept by Divide.
// High enough that chained conversions stay exact well past the 18
// fractional digits used by base-unit amounts.
const divisionPrecision = 36

// Zero is the canonical zero value returned for unparseable display input.
var Zero = decimal.Zero //nolint:gochecknoglobals // canonical constant

// Parse converts a string or numeric input into a Decimal. The boolean
// reports whether the input was numeric; callers on display paths treat a
// false result as zero rather than an error, matching permissive UI input.
func Parse(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case uint64:
		return decimal.NewFromUint64(x), true
	case float64:
		// Float inputs are accepted at the boundary only; the value is
		// converted once and all further arithmetic stays decimal.
		return decimal.NewFromFloat(x), true
	default:
		return decimal.Zero, false
	}
}

// MustParse parses a trusted literal and panics on failure.
func MustParse(s string) decimal.Decimal {
	d, ok := Parse(s)
	if !ok {
		panic(fmt.Sprintf("decimal: invalid literal %q", s))
	}
	return d
}

// ParseOrZero parses permissive display input, substituting zero for
// anything non-numeric.
func ParseOrZero(v any) decimal.Decimal {
	d, _ := Parse(v)
	return d
}

// Add returns a + b.
func Add(a, b decimal.Decimal) decimal.Decimal {
	return a.Add(b)
}

// Subtract returns a - b.
func Subtract(a, b decimal.Decimal) decimal.Decimal {
	return a.Sub(b)
}

// Multiply returns a * b.
func Multiply(a, b decimal.Decimal) decimal.Decimal {
	return a.Mul(b)
}

// Divide returns a / b rounded to divisionPrecision fractional digits.
// Division by zero returns zero; the UI treats it as an empty value.
func Divide(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, divisionPrecision)
}

// FloorDivide returns the integer quotient of a / b, truncated toward zero.
func FloorDivide(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	q, _ := a.QuoRem(b, 0)
	return q
}

// Modulo returns a mod b.
func Modulo(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Mod(b)
}

// Compare returns -1 if a < b, 0 if a == b, and 1 if a > b.
func Compare(a, b decimal.Decimal) int {
	return a.Cmp(b)
}

// ToFixed formats d with exactly places fractional digits, rounding
// half away from zero.
func ToFixed(d decimal.Decimal, places int) string {
	return d.StringFixed(int32(places)) //nolint:gosec // places is a small display count
}

// CountDecimalPlaces reports the number of fractional digits in v after
// trailing zeros are dropped. The boolean is false for non-numeric input;
// callers fall back to zero places instead of failing.
func CountDecimalPlaces(v any) (int, bool) {
	d, ok := Parse(v)
	if !ok {
		return 0, false
	}
	exp := d.Exponent()
	if exp >= 0 {
		return 0, true
	}
	// Exponent counts stored digits; normalize away trailing zeros so
	// "1.50" reports one place, matching how amounts display.
	places := int(-exp)
	coeff := d.Coefficient().String()
	for places > 0 && len(coeff) > 0 && coeff[len(coeff)-1] == '0' {
		places--
		coeff = coeff[:len(coeff)-1]
	}
	return places, true
}
