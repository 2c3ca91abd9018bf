package unit

import "strings"

// BaseAssetSymbol is the chain's native coin. Fees are always paid in it
// regardless of which asset a transfer moves.
const BaseAssetSymbol = "ETH"

// BaseAssetDecimals is the fixed decimal count of the native coin.
const BaseAssetDecimals = 18

// Asset describes a transferable asset and its on-chain balance snapshot.
// ContractAddress is empty for the native chain asset. Identity is
// (Symbol, ContractAddress); Decimals is fixed for the asset's lifetime.
type Asset struct {
	Symbol          string
	ContractAddress string
	Decimals        int
	Balance         BaseAmount
}

// IsBase reports whether the asset is the chain's native coin.
func (a Asset) IsBase() bool {
	return a.ContractAddress == "" && strings.EqualFold(a.Symbol, BaseAssetSymbol)
}

// Same reports whether two assets share an identity.
func (a Asset) Same(b Asset) bool {
	return strings.EqualFold(a.Symbol, b.Symbol) &&
		strings.EqualFold(a.ContractAddress, b.ContractAddress)
}

// BalanceDecimal returns the balance converted to the asset's human unit.
func (a Asset) BalanceDecimal() AssetAmount {
	return FromBaseUnits(a.Balance, a.Decimals)
}

// AccountSnapshot is the balance-fetching collaborator's view of an
// account at one point in time.
type AccountSnapshot struct {
	Address string
	Assets  []Asset
}

// FindAsset locates an asset in the snapshot by identity.
func (s AccountSnapshot) FindAsset(want Asset) (Asset, bool) {
	for _, a := range s.Assets {
		if a.Same(want) {
			return a, true
		}
	}
	return Asset{}, false
}

// BaseAsset locates the chain's native asset in the snapshot.
func (s AccountSnapshot) BaseAsset() (Asset, bool) {
	for _, a := range s.Assets {
		if a.IsBase() {
			return a, true
		}
	}
	return Asset{}, false
}
