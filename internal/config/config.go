// Package config provides configuration management for EmberSend.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/embersend/internal/fee"
	"github.com/mrz1836/embersend/internal/fileutil"
	"github.com/mrz1836/embersend/internal/tx"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version int           `yaml:"version"`
	Home    string        `yaml:"home"`
	Network NetworkConfig `yaml:"network"`
	Fees    FeesConfig    `yaml:"fees"`
	Pricing PricingConfig `yaml:"pricing"`
	Signing SigningConfig `yaml:"signing"`
	Logging LoggingConfig `yaml:"logging"`
}

// NetworkConfig defines Ethereum network settings.
type NetworkConfig struct {
	Name         string        `yaml:"name"`
	RPC          string        `yaml:"rpc"`
	FallbackRPCs []string      `yaml:"fallback_rpcs,omitempty"`
	Tokens       []TokenConfig `yaml:"tokens"`
}

// TokenConfig defines an ERC-20 token to track.
type TokenConfig struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals int    `yaml:"decimals"`
}

// FeesConfig defines fee estimation settings.
type FeesConfig struct {
	StationURL  string `yaml:"station_url"`
	DefaultTier string `yaml:"default_tier"`
}

// PricingConfig defines native-price feed settings.
type PricingConfig struct {
	APIURL          string  `yaml:"api_url"`
	Currency        string  `yaml:"currency"`
	IntervalSeconds int     `yaml:"interval_seconds"`
	RatePerSecond   float64 `yaml:"rate_per_second"`
}

// SigningConfig defines signing backend settings.
type SigningConfig struct {
	Backend string `yaml:"backend"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file, layered over the
// defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, embererr.WithCause(embererr.ErrConfigInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return fileutil.WriteAtomic(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// Validate checks the fields the engine cannot fall back on.
func (c *Config) Validate() error {
	if _, ok := tx.NetworkByName(c.Network.Name); !ok {
		return embererr.WithDetails(embererr.ErrConfigInvalid, map[string]string{
			"field":   "network.name",
			"value":   c.Network.Name,
			"allowed": "mainnet, sepolia, holesky",
		})
	}
	if c.Pricing.IntervalSeconds < 0 {
		return embererr.WithDetails(embererr.ErrConfigInvalid, map[string]string{
			"field": "pricing.interval_seconds",
			"value": "negative",
		})
	}
	if c.Fees.DefaultTier != "" {
		if _, err := fee.ParseTier(c.Fees.DefaultTier); err != nil {
			return err
		}
	}
	return nil
}

// GetNetwork resolves the configured network's chain metadata.
func (c *Config) GetNetwork() tx.Network {
	n, _ := tx.NetworkByName(c.Network.Name)
	return n
}

// GetRPC returns the configured RPC URL.
func (c *Config) GetRPC() string {
	return c.Network.RPC
}

// GetFallbackRPCs returns the backup RPC URLs.
func (c *Config) GetFallbackRPCs() []string {
	return c.Network.FallbackRPCs
}

// DefaultHome returns the default embersend home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".embersend"
	}
	return filepath.Join(home, ".embersend")
}
