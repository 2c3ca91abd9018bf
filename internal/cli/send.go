package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/embersend/internal/fee"
	"github.com/mrz1836/embersend/internal/output"
	"github.com/mrz1836/embersend/internal/pricefeed"
	"github.com/mrz1836/embersend/internal/sendflow"
	"github.com/mrz1836/embersend/internal/signer"
	"github.com/mrz1836/embersend/internal/unit"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// sendFrom is the sender address.
	sendFrom string
	// sendTo is the recipient address.
	sendTo string
	// sendAmount is the amount to send.
	sendAmount string
	// sendToken is the ERC-20 token symbol to transfer (e.g., "USDC").
	sendToken string
	// sendTier is the gas tier preference (slow/average/fast).
	sendTier string
	// sendBackend overrides the configured signing backend.
	sendBackend string
)

// sendCmd sends a transfer.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send ETH or a configured ERC-20 token",
	Long: `Send native ETH or a configured ERC-20 token to an address.

The transfer is validated against the account's live balances (amount plus
fee for ETH, token balance plus ETH fee for tokens) before any signing
backend is invoked.

Examples:
  # Send ETH
  embersend send --from 0x89205A... --to 0x281055... --amount 0.1

  # Send USDC at the fast tier
  embersend send --from 0x89205A... --to 0x281055... --amount 100 --token USDC --tier fast`,
	RunE: runSend,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVar(&sendFrom, "from", "", "sender address (required)")
	sendCmd.Flags().StringVar(&sendTo, "to", "", "recipient address (required)")
	sendCmd.Flags().StringVar(&sendAmount, "amount", "", "amount to send (required)")
	sendCmd.Flags().StringVar(&sendToken, "token", "", "ERC-20 token symbol (e.g., USDC)")
	sendCmd.Flags().StringVar(&sendTier, "tier", "", "gas tier: slow, average, fast (default: fees.default_tier)")
	sendCmd.Flags().StringVar(&sendBackend, "backend", "", "signing backend (default: from config)")

	_ = sendCmd.MarkFlagRequired("from")
	_ = sendCmd.MarkFlagRequired("to")
	_ = sendCmd.MarkFlagRequired("amount")
}

func runSend(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	backendName := sendBackend
	if backendName == "" {
		backendName = cfg.Signing.Backend
	}
	backend, err := signer.ParseBackend(backendName)
	if err != nil {
		return err
	}
	if backend != signer.BackendMetaMask {
		return embererr.WithSuggestion(embererr.ErrProviderUnavailable,
			fmt.Sprintf("the %s backend needs a device or session and is not wired to the CLI; use an RPC node with an unlocked account", backend))
	}

	tier, err := resolveTier(sendTier, cfg.Fees.DefaultTier)
	if err != nil {
		return err
	}

	snapCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	snapshot, rpcClient, err := fetchSnapshotWithFallback(
		snapCtx, dialEndpoint, rpcEndpoints(cfg), sendFrom, cfg.Network.Tokens, logger)
	if err != nil {
		return err
	}
	defer rpcClient.Close()

	asset, err := resolveAsset(snapshot, sendToken)
	if err != nil {
		return err
	}

	dispatcher := signer.NewDispatcher(logger)
	dispatcher.Register(signer.BackendMetaMask, signer.NewInjectedStrategy(NewRPCProvider(rpcClient)))

	station := fee.NewStationClient(&fee.StationClientOptions{BaseURL: cfg.Fees.StationURL})
	flow := sendflow.New(sendflow.Config{
		Backend:    backend,
		Dispatcher: dispatcher,
		Estimate:   sendflow.NewEstimator(station, logger),
		Snapshot:   snapshot,
		Network:    cfg.GetNetwork(),
		Log:        logger,
	})
	defer flow.Close()

	// The native-price poller reprices the tiers as quotes land; the
	// fiat column stays unavailable until the first poll succeeds.
	priceClient := pricefeed.NewClient(&pricefeed.ClientOptions{
		BaseURL:       cfg.Pricing.APIURL,
		RatePerSecond: cfg.Pricing.RatePerSecond,
	})
	poller := pricefeed.NewPoller(pricefeed.PollerConfig{
		Fetch:    priceClient.Spot,
		Symbols:  []string{unit.BaseAssetSymbol},
		Currency: cfg.Pricing.Currency,
		Interval: time.Duration(cfg.Pricing.IntervalSeconds) * time.Second,
		OnUpdate: flow.UpdatePrices,
		Log:      logger,
	})
	poller.Start()
	defer poller.Close()

	if err := flow.SetAsset(asset); err != nil {
		return err
	}
	if err := flow.SetTier(tier); err != nil {
		return err
	}
	if err := flow.SetRecipient(sendTo); err != nil {
		return err
	}
	if err := flow.SetAmount(sendAmount); err != nil {
		return err
	}

	// Wait for the tiers to resolve; the estimator degrades to fallback
	// tiers on feed failure, so this only loops while the fetch runs.
	if err := waitForOptions(flow); err != nil {
		return err
	}

	if err := flow.Submit(); err != nil {
		return err
	}

	state := flow.State()
	if url, ok := flow.ExplorerURL(); ok {
		logger.Info().Str("tx", string(state.TxID)).Msg("transfer submitted")
		if formatter.IsJSON() {
			return formatter.Print(map[string]string{
				"tx_id":    string(state.TxID),
				"explorer": url,
			})
		}
		return output.FormatSuccess(formatter.Writer(),
			fmt.Sprintf("Submitted %s\n%s", state.TxID, url), formatter.Format())
	}
	return formatter.Print(string(state.TxID))
}

// resolveTier picks the flag value over the configured default tier.
func resolveTier(flag, configured string) (fee.Tier, error) {
	name := flag
	if name == "" {
		name = configured
	}
	if name == "" {
		name = string(fee.TierAverage)
	}
	return fee.ParseTier(name)
}

// resolveAsset picks the transfer asset from the snapshot.
func resolveAsset(snapshot unit.AccountSnapshot, token string) (unit.Asset, error) {
	if token == "" {
		base, ok := snapshot.BaseAsset()
		if !ok {
			return unit.Asset{}, embererr.ErrAssetNotFound
		}
		return base, nil
	}

	for _, a := range snapshot.Assets {
		if strings.EqualFold(a.Symbol, token) && !a.IsBase() {
			return a, nil
		}
	}
	return unit.Asset{}, embererr.WithSuggestion(
		embererr.WithDetails(embererr.ErrAssetNotFound, map[string]string{"symbol": token}),
		"add the token to network.tokens in config.yaml")
}

// waitForOptions blocks until fee tiers resolve or the wait times out.
func waitForOptions(flow *sendflow.Flow) error {
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		if flow.State().Options != nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return embererr.ErrFeeUnavailable
}
