package unit

import (
	"github.com/shopspring/decimal"

	emberdec "github.com/mrz1836/embersend/internal/decimal"
)

// ToBaseUnits converts a human asset amount to integer base units by
// scaling by 10^decimals. Fractional digits beyond the asset's precision
// are truncated, never rounded up, so a conversion can never spend more
// than the user typed.
func ToBaseUnits(amount AssetAmount, decimals int) BaseAmount {
	shifted := amount.Decimal().Shift(int32(decimals)) //nolint:gosec // decimals <= 18
	return BaseAmount{i: shifted.Truncate(0).BigInt()}
}

// FromBaseUnits converts integer base units back to the asset's human
// unit by scaling by 10^-decimals. The conversion is exact.
func FromBaseUnits(amount BaseAmount, decimals int) AssetAmount {
	d := decimal.NewFromBigInt(amount.BigInt(), -int32(decimals)) //nolint:gosec // decimals <= 18
	return AssetAmount{d: d}
}

// AssetToNative projects an asset amount into the table's selected
// currency. It fails closed: when the table has no quote for the asset,
// the unavailable sentinel is returned instead of an error so display
// code can show a placeholder without branching.
func AssetToNative(amount AssetAmount, symbol string, table *PriceTable) NativeAmount {
	entry, ok := table.Lookup(symbol)
	if !ok || entry.Price.Unavailable() {
		return UnavailableNative()
	}
	return NativeAmount{d: emberdec.Multiply(amount.Decimal(), entry.Price.Decimal())}
}

// NativeToAsset is the inverse projection. It fails closed on a missing
// or zero quote.
func NativeToAsset(amount NativeAmount, symbol string, table *PriceTable) (AssetAmount, bool) {
	if amount.Unavailable() {
		return AssetAmount{}, false
	}
	entry, ok := table.Lookup(symbol)
	if !ok || entry.Price.Unavailable() || entry.Price.Decimal().IsZero() {
		return AssetAmount{}, false
	}
	return AssetAmount{d: emberdec.Divide(amount.Decimal(), entry.Price.Decimal())}, true
}
