package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/mrz1836/go-sanitize"
)

// Environment variable names.
const (
	EnvHome          = "EMBERSEND_HOME"
	EnvNetwork       = "EMBERSEND_NETWORK"
	EnvRPC           = "EMBERSEND_RPC"
	EnvBackend       = "EMBERSEND_BACKEND"
	EnvCurrency      = "EMBERSEND_CURRENCY"
	EnvLogLevel      = "EMBERSEND_LOG_LEVEL"
	EnvPriceInterval = "EMBERSEND_PRICE_INTERVAL"
)

// ApplyEnvironment applies environment variable overrides to the
// configuration.
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvNetwork); v != "" {
		cfg.Network.Name = strings.ToLower(v)
	}

	if v := os.Getenv(EnvRPC); v != "" {
		cfg.Network.RPC = SanitizeURL(v)
	}

	if v := os.Getenv(EnvBackend); v != "" {
		cfg.Signing.Backend = strings.ToLower(v)
	}

	if v := os.Getenv(EnvCurrency); v != "" {
		cfg.Pricing.Currency = strings.ToUpper(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	// EMBERSEND_PRICE_INTERVAL sets the native-price poll interval in seconds
	if v := os.Getenv(EnvPriceInterval); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.Pricing.IntervalSeconds = secs
		}
	}
}

// SanitizeURL cleans a URL string by removing invalid characters and
// trimming whitespace. Useful for user-provided RPC URLs that may contain
// copy-paste artifacts.
func SanitizeURL(url string) string {
	return sanitize.URL(strings.TrimSpace(url))
}
