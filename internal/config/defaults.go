package config

import (
	"github.com/mrz1836/embersend/internal/fee"
	"github.com/mrz1836/embersend/internal/pricefeed"
)

// DefaultRPCURL is the default Ethereum RPC endpoint.
// Uses PublicNode (Allnodes), a privacy-first provider that requires no API key.
const DefaultRPCURL = "https://ethereum-rpc.publicnode.com"

// DefaultFallbackRPCs are backup Ethereum RPC endpoints tried when the primary fails.
//
//nolint:gochecknoglobals // Configuration default constant, same pattern as DefaultRPCURL
var DefaultFallbackRPCs = []string{
	"https://rpc.ankr.com/eth",
	"https://1rpc.io/eth",
}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.embersend",
		Network: NetworkConfig{
			Name:         "mainnet",
			RPC:          DefaultRPCURL,
			FallbackRPCs: DefaultFallbackRPCs,
			Tokens: []TokenConfig{
				{
					Symbol:   "USDC",
					Address:  "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
					Decimals: 6,
				},
			},
		},
		Fees: FeesConfig{
			StationURL:  fee.DefaultStationURL,
			DefaultTier: string(fee.TierAverage),
		},
		Pricing: PricingConfig{
			APIURL:          pricefeed.DefaultBaseURL,
			Currency:        "USD",
			IntervalSeconds: 30,
			RatePerSecond:   2,
		},
		Signing: SigningConfig{
			Backend: "metamask",
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.embersend/embersend.log",
		},
	}
}
