// Package fee estimates transaction cost in three speed tiers and
// projects it into the user's native currency.
package fee

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mrz1836/embersend/internal/unit"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

// Tier identifies one of the three ranked fee/speed trade-offs.
type Tier string

// Tier values, ordered slow < average < fast.
const (
	TierSlow    Tier = "slow"
	TierAverage Tier = "average"
	TierFast    Tier = "fast"
)

// Default gas limits for the two transfer shapes.
const (
	GasLimitTransfer      uint64 = 21000
	GasLimitTokenTransfer uint64 = 65000
)

// Fallback tiers used when no gas-station data is available. The fee
// panel degrades to these rather than showing nothing.
const (
	fallbackSlowGwei    = 1
	fallbackAverageGwei = 2
	fallbackFastGwei    = 5

	fallbackSlowSeconds    = 600
	fallbackAverageSeconds = 180
	fallbackFastSeconds    = 60
)

var gweiInWei = big.NewInt(1_000_000_000) //nolint:gochecknoglobals // unit constant

// Option is one priced gas tier. FeeNative carries the unavailable
// sentinel until a price table entry exists for the base asset.
type Option struct {
	Tier             Tier
	GasPriceWei      unit.BaseAmount
	EstimatedSeconds int
	FeeBase          unit.AssetAmount
	FeeNative        unit.NativeAmount
}

// Options holds the three ranked tiers and the gas limit they were
// priced against.
type Options struct {
	Slow     Option
	Average  Option
	Fast     Option
	GasLimit uint64
}

// ParseTier parses a tier name. Unknown names are rejected, never
// coerced to a tier the user did not ask for.
func ParseTier(s string) (Tier, error) {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case TierSlow, TierAverage, TierFast:
		return t, nil
	default:
		return "", embererr.WithDetails(embererr.ErrConfigInvalid, map[string]string{
			"field":   "tier",
			"value":   s,
			"allowed": "slow, average, fast",
		})
	}
}

// ByTier returns the option for a tier, defaulting to average.
func (o Options) ByTier(t Tier) Option {
	switch t {
	case TierSlow:
		return o.Slow
	case TierFast:
		return o.Fast
	case TierAverage:
		return o.Average
	default:
		return o.Average
	}
}

// GasLimitForAsset returns the gas limit for transferring an asset. Token
// transfers always get the token limit; a base-transfer limit is never
// reused for a token once the selected asset changes.
func GasLimitForAsset(a unit.Asset) uint64 {
	if a.IsBase() {
		return GasLimitTransfer
	}
	return GasLimitTokenTransfer
}

// Compute returns the fee for a gas price and limit, denominated in the
// base asset's human unit.
func Compute(gasPriceWei unit.BaseAmount, gasLimit uint64) unit.AssetAmount {
	return unit.FromBaseUnits(gasPriceWei.MulUint64(gasLimit), unit.BaseAssetDecimals)
}

// BuildOptions derives the three tiers from raw gas-station data, or from
// the fixed fallback tiers when station is nil. Output depends only on
// the inputs; identical inputs yield identical options, which is what
// lets the send flow rebuild tiers on every relevant edit.
func BuildOptions(station *StationData, table *unit.PriceTable, gasLimit uint64) Options {
	var slowWei, avgWei, fastWei unit.BaseAmount
	var slowSec, avgSec, fastSec int

	if station == nil {
		slowWei = gweiToWei(fallbackSlowGwei)
		avgWei = gweiToWei(fallbackAverageGwei)
		fastWei = gweiToWei(fallbackFastGwei)
		slowSec, avgSec, fastSec = fallbackSlowSeconds, fallbackAverageSeconds, fallbackFastSeconds
	} else {
		slowWei = station.slowWei()
		avgWei = station.averageWei()
		fastWei = station.fastWei()
		slowSec = minutesToSeconds(station.SafeLowWait)
		avgSec = minutesToSeconds(station.AvgWait)
		fastSec = minutesToSeconds(station.FastWait)
	}

	// Tier ordering is an invariant the validator and UI rely on; clamp
	// rather than trust the upstream feed.
	if avgWei.Cmp(slowWei) < 0 {
		avgWei = slowWei
	}
	if fastWei.Cmp(avgWei) < 0 {
		fastWei = avgWei
	}

	return Options{
		Slow:     buildOption(TierSlow, slowWei, slowSec, table, gasLimit),
		Average:  buildOption(TierAverage, avgWei, avgSec, table, gasLimit),
		Fast:     buildOption(TierFast, fastWei, fastSec, table, gasLimit),
		GasLimit: gasLimit,
	}
}

func buildOption(tier Tier, gasPriceWei unit.BaseAmount, seconds int, table *unit.PriceTable, gasLimit uint64) Option {
	feeBase := Compute(gasPriceWei, gasLimit)
	return Option{
		Tier:             tier,
		GasPriceWei:      gasPriceWei,
		EstimatedSeconds: seconds,
		FeeBase:          feeBase,
		FeeNative:        unit.AssetToNative(feeBase, unit.BaseAssetSymbol, table),
	}
}

func gweiToWei(gwei int64) unit.BaseAmount {
	return unit.NewBase(new(big.Int).Mul(big.NewInt(gwei), gweiInWei))
}

func minutesToSeconds(minutes float64) int {
	return int(decimal.NewFromFloat(minutes).Mul(decimal.NewFromInt(60)).Round(0).IntPart())
}
