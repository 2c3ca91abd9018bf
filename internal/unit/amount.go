// Package unit converts between the three amount domains the engine works
// in: integer base units (wei-like), human asset amounts, and native
// currency display amounts. Arithmetic never mixes domains; these types
// are the only crossing points.
package unit

import (
	"math/big"

	"github.com/shopspring/decimal"

	emberdec "github.com/mrz1836/embersend/internal/decimal"
)

// BaseAmount is an integer amount in an asset's smallest on-chain
// denomination. Immutable once constructed.
type BaseAmount struct {
	i *big.Int
}

// NewBase wraps a big.Int as a base-unit amount. The input is copied so
// later mutation of the argument cannot change the amount.
func NewBase(i *big.Int) BaseAmount {
	if i == nil {
		return BaseAmount{i: new(big.Int)}
	}
	return BaseAmount{i: new(big.Int).Set(i)}
}

// NewBaseFromUint64 wraps a uint64 as a base-unit amount.
func NewBaseFromUint64(v uint64) BaseAmount {
	return BaseAmount{i: new(big.Int).SetUint64(v)}
}

// NewBaseFromString parses a base-10 integer string.
func NewBaseFromString(s string) (BaseAmount, bool) {
	i, ok := new(big.Int).SetString(s, 10)
	if !ok || i.Sign() < 0 {
		return BaseAmount{}, false
	}
	return BaseAmount{i: i}, true
}

// BigInt returns a copy of the underlying integer.
func (a BaseAmount) BigInt() *big.Int {
	if a.i == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.i)
}

// String returns the base-10 integer representation.
func (a BaseAmount) String() string {
	if a.i == nil {
		return "0"
	}
	return a.i.String()
}

// IsZero reports whether the amount is zero.
func (a BaseAmount) IsZero() bool {
	return a.i == nil || a.i.Sign() == 0
}

// Add returns a + b as a new amount.
func (a BaseAmount) Add(b BaseAmount) BaseAmount {
	return BaseAmount{i: new(big.Int).Add(a.BigInt(), b.BigInt())}
}

// MulUint64 returns a * v as a new amount. Used for gasPrice * gasLimit.
func (a BaseAmount) MulUint64(v uint64) BaseAmount {
	return BaseAmount{i: new(big.Int).Mul(a.BigInt(), new(big.Int).SetUint64(v))}
}

// Cmp returns -1, 0, or 1 comparing a against b.
func (a BaseAmount) Cmp(b BaseAmount) int {
	return a.BigInt().Cmp(b.BigInt())
}

// AssetAmount is a decimal amount denominated in an asset's human unit
// (ETH rather than wei, whole tokens rather than base units).
type AssetAmount struct {
	d decimal.Decimal
}

// NewAsset wraps a decimal as an asset-domain amount.
func NewAsset(d decimal.Decimal) AssetAmount {
	return AssetAmount{d: d}
}

// ParseAsset parses permissive user input into an asset amount. Negative
// and non-numeric input is rejected.
func ParseAsset(s string) (AssetAmount, bool) {
	d, ok := emberdec.Parse(s)
	if !ok || d.IsNegative() {
		return AssetAmount{}, false
	}
	return AssetAmount{d: d}, true
}

// Decimal returns the underlying decimal value.
func (a AssetAmount) Decimal() decimal.Decimal { return a.d }

// String returns the plain decimal representation.
func (a AssetAmount) String() string { return a.d.String() }

// IsZero reports whether the amount is zero.
func (a AssetAmount) IsZero() bool { return a.d.IsZero() }

// Add returns a + b as a new amount.
func (a AssetAmount) Add(b AssetAmount) AssetAmount {
	return AssetAmount{d: emberdec.Add(a.d, b.d)}
}

// GreaterThan reports whether a > b.
func (a AssetAmount) GreaterThan(b AssetAmount) bool {
	return emberdec.Compare(a.d, b.d) > 0
}

// Cmp returns -1, 0, or 1 comparing a against b.
func (a AssetAmount) Cmp(b AssetAmount) int {
	return emberdec.Compare(a.d, b.d)
}

// NativeAmount is a decimal amount denominated in the user's selected
// display currency. The zero value with unavailable set is the fail-closed
// sentinel returned when no price entry exists for a conversion.
type NativeAmount struct {
	d           decimal.Decimal
	unavailable bool
}

// NewNative wraps a decimal as a native-currency amount.
func NewNative(d decimal.Decimal) NativeAmount {
	return NativeAmount{d: d}
}

// UnavailableNative returns the sentinel for a conversion that could not
// be priced. Display layers render a placeholder for it.
func UnavailableNative() NativeAmount {
	return NativeAmount{unavailable: true}
}

// Unavailable reports whether this is the no-price sentinel.
func (a NativeAmount) Unavailable() bool { return a.unavailable }

// Decimal returns the underlying decimal value. Zero for the sentinel.
func (a NativeAmount) Decimal() decimal.Decimal { return a.d }

// String returns the plain decimal representation, or the placeholder for
// the unavailable sentinel.
func (a NativeAmount) String() string {
	if a.unavailable {
		return UnavailablePlaceholder
	}
	return a.d.String()
}

// UnavailablePlaceholder is rendered when a native projection has no price.
const UnavailablePlaceholder = "--"
