package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/embersend/internal/fee"
	"github.com/mrz1836/embersend/internal/output"
	"github.com/mrz1836/embersend/internal/pricefeed"
	"github.com/mrz1836/embersend/internal/unit"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// feeToken prices the tiers for a token transfer's gas limit.
	feeToken string
)

// feeCmd shows the current gas tiers.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var feeCmd = &cobra.Command{
	Use:   "fee",
	Short: "Show current fee tiers",
	Long: `Show the slow, average, and fast gas tiers with their estimated cost
and confirmation time. When the gas feed is unreachable the fixed fallback
tiers are shown instead.

Examples:
  embersend fee
  embersend fee --token USDC`,
	RunE: runFee,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(feeCmd)
	feeCmd.Flags().StringVar(&feeToken, "token", "", "price tiers for a token transfer (e.g., USDC)")
}

// feeView is the JSON shape of one rendered tier.
type feeView struct {
	Tier             string `json:"tier"`
	GasPriceGwei     string `json:"gas_price_gwei"`
	FeeETH           string `json:"fee_eth"`
	FeeNative        string `json:"fee_native"`
	EstimatedSeconds int    `json:"estimated_seconds"`
}

func runFee(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	options, table := estimateFees(ctx, gasLimitForFlag())

	if formatter.IsJSON() {
		views := make([]feeView, 0, 3)
		for _, opt := range []fee.Option{options.Slow, options.Average, options.Fast} {
			views = append(views, feeView{
				Tier:             string(opt.Tier),
				GasPriceGwei:     unit.FromBaseUnits(opt.GasPriceWei, 9).String(),
				FeeETH:           opt.FeeBase.String(),
				FeeNative:        opt.FeeNative.String(),
				EstimatedSeconds: opt.EstimatedSeconds,
			})
		}
		return formatter.Print(views)
	}

	return formatter.Printf("%s", output.FeeTable(options, table).String())
}

// gasLimitForFlag derives the gas limit from the --token flag.
func gasLimitForFlag() uint64 {
	if feeToken == "" {
		return fee.GasLimitTransfer
	}
	return fee.GasLimitTokenTransfer
}

// estimateFees fetches gas-station data and a spot price, degrading each
// independently: no station data falls back to the default tiers, no spot
// price leaves the fiat column unavailable.
func estimateFees(ctx context.Context, gasLimit uint64) (fee.Options, *unit.PriceTable) {
	station := fee.NewStationClient(&fee.StationClientOptions{BaseURL: cfg.Fees.StationURL})
	data, err := station.Fetch(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("gas station unavailable, using fallback tiers")
	}

	var table *unit.PriceTable
	prices := pricefeed.NewClient(&pricefeed.ClientOptions{
		BaseURL:       cfg.Pricing.APIURL,
		RatePerSecond: cfg.Pricing.RatePerSecond,
	})
	entries, err := prices.Spot(ctx, []string{unit.BaseAssetSymbol}, cfg.Pricing.Currency)
	if err != nil {
		logger.Warn().Err(err).Msg("spot price unavailable")
	} else {
		table = unit.NewPriceTable(cfg.Pricing.Currency, map[string]map[string]unit.PriceEntry{
			cfg.Pricing.Currency: entries,
		})
	}

	return fee.BuildOptions(data, table, gasLimit), table
}
