package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/embersend/internal/output"
	"github.com/mrz1836/embersend/internal/pricefeed"
	"github.com/mrz1836/embersend/internal/unit"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// priceWatch keeps refreshing on the configured interval.
	priceWatch bool
	// priceAt asks for a historical quote date instead of spot.
	priceAt string
)

// priceCmd shows native-currency quotes for the tracked assets.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Show prices for tracked assets",
	Long: `Show the native-currency price of ETH and every configured token.

With --watch, prices refresh on the configured interval
(pricing.interval_seconds) until interrupted. With --at, the quote for a
past date is fetched instead of the current spot price.

Examples:
  embersend price
  embersend price --watch
  embersend price --at 2026-01-15`,
	RunE: runPrice,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(priceCmd)
	priceCmd.Flags().BoolVar(&priceWatch, "watch", false, "refresh on the configured interval until interrupted")
	priceCmd.Flags().StringVar(&priceAt, "at", "", "historical quote date (YYYY-MM-DD) instead of spot")
}

// priceView is the JSON shape of one rendered quote.
type priceView struct {
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Change24h string `json:"change_24h,omitempty"`
}

func runPrice(cmd *cobra.Command, _ []string) error {
	client := pricefeed.NewClient(&pricefeed.ClientOptions{
		BaseURL:       cfg.Pricing.APIURL,
		RatePerSecond: cfg.Pricing.RatePerSecond,
	})
	symbols := trackedSymbols()

	if priceAt != "" {
		return runPriceHistorical(cmd.Context(), client, symbols)
	}
	if priceWatch {
		return runPriceWatch(cmd.Context(), client, symbols)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	entries, err := client.Spot(ctx, symbols, cfg.Pricing.Currency)
	if err != nil {
		return err
	}
	table := unit.NewPriceTable(cfg.Pricing.Currency, map[string]map[string]unit.PriceEntry{
		cfg.Pricing.Currency: entries,
	})
	return printQuotes(table, symbols)
}

// runPriceWatch drives a poller until the process is interrupted. Each
// fresh table is rendered as it lands.
func runPriceWatch(ctx context.Context, client *pricefeed.Client, symbols []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	poller := pricefeed.NewPoller(pricefeed.PollerConfig{
		Fetch:    client.Spot,
		Symbols:  symbols,
		Currency: cfg.Pricing.Currency,
		Interval: time.Duration(cfg.Pricing.IntervalSeconds) * time.Second,
		OnUpdate: func(table *unit.PriceTable) {
			if err := printQuotes(table, symbols); err != nil {
				logger.Warn().Err(err).Msg("price output failed")
			}
		},
		Log: logger,
	})
	poller.Start()
	defer poller.Close()

	<-ctx.Done()
	return nil
}

// runPriceHistorical fetches one past-date quote per symbol through the
// paced history queue and renders them once all have landed.
func runPriceHistorical(ctx context.Context, client *pricefeed.Client, symbols []string) error {
	at, err := time.Parse("2006-01-02", priceAt)
	if err != nil {
		return embererr.WithDetails(embererr.ErrConfigInvalid, map[string]string{
			"field":   "--at",
			"value":   priceAt,
			"allowed": "YYYY-MM-DD",
		})
	}

	queue := pricefeed.NewHistoryQueue(pricefeed.HistoryQueueConfig{
		Fetch:         client.Historical,
		RatePerSecond: cfg.Pricing.RatePerSecond,
		Log:           logger,
	})
	defer queue.Close()

	type quote struct {
		symbol string
		price  unit.NativeAmount
		err    error
	}
	results := make(chan quote, len(symbols))
	for _, symbol := range symbols {
		sym := symbol
		err := queue.Enqueue(sym, cfg.Pricing.Currency, at, func(price unit.NativeAmount, lookupErr error) {
			results <- quote{symbol: sym, price: price, err: lookupErr}
		})
		if err != nil {
			return err
		}
	}

	entries := make(map[string]unit.PriceEntry, len(symbols))
	for range symbols {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case q := <-results:
			if q.err != nil {
				logger.Warn().Err(q.err).Str("symbol", q.symbol).Msg("historical quote unavailable")
				entries[q.symbol] = unit.PriceEntry{Price: unit.UnavailableNative()}
				continue
			}
			entries[q.symbol] = unit.PriceEntry{Price: q.price}
		}
	}

	table := unit.NewPriceTable(cfg.Pricing.Currency, map[string]map[string]unit.PriceEntry{
		cfg.Pricing.Currency: entries,
	})
	return printQuotes(table, symbols)
}

// trackedSymbols is the base asset plus every configured token.
func trackedSymbols() []string {
	symbols := []string{unit.BaseAssetSymbol}
	for _, token := range cfg.Network.Tokens {
		symbols = append(symbols, token.Symbol)
	}
	return symbols
}

// printQuotes renders the quote set as a table or JSON views.
func printQuotes(table *unit.PriceTable, symbols []string) error {
	if formatter.IsJSON() {
		views := make([]priceView, 0, len(symbols))
		for _, sym := range symbols {
			entry, ok := table.Lookup(sym)
			if !ok {
				entry = unit.PriceEntry{Price: unit.UnavailableNative()}
			}
			view := priceView{Symbol: sym, Price: entry.Price.String()}
			if ok && !entry.Change.IsZero() {
				view.Change24h = entry.Change.StringFixed(2)
			}
			views = append(views, view)
		}
		return formatter.Print(views)
	}
	return formatter.Printf("%s", output.QuoteTable(table, symbols).String())
}
