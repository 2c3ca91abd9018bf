package unit

import (
	"github.com/shopspring/decimal"

	emberdec "github.com/mrz1836/embersend/internal/decimal"
)

const (
	// DefaultSignificantBuffer is the number of fractional digits shown
	// past the first significant digit.
	DefaultSignificantBuffer = 3

	// maxDisplayDecimals caps how far decimals extend for tiny values.
	maxDisplayDecimals = 8
)

// DisplayOptions selects how a decimal value is rendered.
type DisplayOptions struct {
	// Asset, when set, appends the asset symbol.
	Asset *Asset
	// Table, when set, applies the selected currency's symbol placement
	// and decimal precision.
	Table *PriceTable
	// SignificantBuffer overrides DefaultSignificantBuffer when > 0.
	SignificantBuffer int
}

// DisplayString renders a decimal value for the UI. With no options the
// value is formatted as a bare number. Small magnitudes extend their
// decimal places so a dust-sized balance never collapses to "0.00"; large
// magnitudes are capped at the buffer.
func DisplayString(v decimal.Decimal, opts DisplayOptions) string {
	buffer := opts.SignificantBuffer
	if buffer <= 0 {
		buffer = DefaultSignificantBuffer
	}

	if opts.Table != nil {
		cur := opts.Table.Currency()
		s := emberdec.ToFixed(v, significantPlaces(v, cur.Decimals))
		if cur.SymbolLeft {
			return cur.Symbol + s
		}
		return s + " " + cur.Symbol
	}

	s := emberdec.ToFixed(v, significantPlaces(v, buffer))
	if opts.Asset != nil {
		return s + " " + opts.Asset.Symbol
	}
	return s
}

// FormatAsset renders an asset-domain amount with its symbol.
func FormatAsset(amount AssetAmount, asset Asset) string {
	a := asset
	return DisplayString(amount.Decimal(), DisplayOptions{Asset: &a})
}

// FormatNative renders a native-currency amount, or the placeholder for
// the unavailable sentinel.
func FormatNative(amount NativeAmount, table *PriceTable) string {
	if amount.Unavailable() {
		return UnavailablePlaceholder
	}
	return DisplayString(amount.Decimal(), DisplayOptions{Table: table})
}

// significantPlaces implements the asymmetric decimal rule: values with
// magnitude >= 1 get exactly buffer places; values below 1 extend far
// enough to keep the first non-zero digit plus the buffer, capped at
// maxDisplayDecimals.
func significantPlaces(v decimal.Decimal, buffer int) int {
	abs := v.Abs()
	if abs.IsZero() || abs.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return buffer
	}

	// Position of the first significant digit below the decimal point:
	// value = coefficient * 10^exponent, so digits(coefficient)+exponent
	// is negative exactly by the count of leading fractional zeros.
	leadingZeros := -(int(abs.NumDigits()) + int(abs.Exponent()))
	if leadingZeros < 0 {
		leadingZeros = 0
	}

	places := leadingZeros + buffer
	if places > maxDisplayDecimals {
		places = maxDisplayDecimals
	}
	return places
}
