// Package config loads the application configuration from environment
// variables and an optional YAML file.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"dexswap/pkg/swap"
)

// TokenConfig describes one token available for swapping on a network.
type TokenConfig struct {
	Address  string `mapstructure:"address"`
	Decimals uint8  `mapstructure:"decimals"`
	Native   bool   `mapstructure:"native"`
}

// EVMNetwork is one configured EVM chain.
type EVMNetwork struct {
	RPCURL           string                 `mapstructure:"rpc_url"`
	ChainID          int64                  `mapstructure:"chain_id"`
	WrappedNative    string                 `mapstructure:"wrapped_native"`
	GasBufferPercent int64                  `mapstructure:"gas_buffer_percent"`
	PrivateKey       string                 `mapstructure:"private_key"`
	Tokens           map[string]TokenConfig `mapstructure:"tokens"`
}

// SolanaNetwork is the configured Solana endpoint.
type SolanaNetwork struct {
	RPCURL     string                 `mapstructure:"rpc_url"`
	PrivateKey string                 `mapstructure:"private_key"`
	Commitment string                 `mapstructure:"commitment"`
	NativeMint string                 `mapstructure:"native_mint"`
	Tokens     map[string]TokenConfig `mapstructure:"tokens"`
}

// MarkrConfig configures the Markr orchestrator client.
type MarkrConfig struct {
	OrchestratorURL string `mapstructure:"orchestrator_url"`
	AppID           string `mapstructure:"app_id"`
}

// ParaswapConfig configures the Paraswap client.
type ParaswapConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Partner string `mapstructure:"partner"`
}

// JupiterConfig configures the Jupiter client.
type JupiterConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	FeeCollector string `mapstructure:"fee_collector"`
}

// Config holds the application configuration.
type Config struct {
	DefaultNetwork  string                `mapstructure:"default_network"`
	SlippagePercent float64               `mapstructure:"slippage_percent"`
	FeesEnabled     bool                  `mapstructure:"fees_enabled"`
	PlatformFeeBps  int64                 `mapstructure:"platform_fee_bps"`
	Markr           MarkrConfig           `mapstructure:"markr"`
	Paraswap        ParaswapConfig        `mapstructure:"paraswap"`
	Jupiter         JupiterConfig         `mapstructure:"jupiter"`
	EVMNetworks     map[string]EVMNetwork `mapstructure:"evm_networks"`
	Solana          SolanaNetwork         `mapstructure:"solana"`
}

var globalConfig *Config

// Load reads configuration from environment variables and config file.
func Load() (*Config, error) {
	viper.SetConfigName(".dexswap")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	viper.SetDefault("default_network", "avalanche")
	viper.SetDefault("slippage_percent", 0.5)
	viper.SetDefault("paraswap.base_url", "https://api.paraswap.io")
	viper.SetDefault("jupiter.base_url", "https://quote-api.jup.ag/v6")
	viper.SetDefault("solana.commitment", "confirmed")
	viper.SetDefault("solana.native_mint", "So11111111111111111111111111111111111111112")

	viper.SetEnvPrefix("DEXSWAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Config file is optional.
	_ = viper.ReadInConfig()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if !swap.ValidSlippage(cfg.SlippagePercent) {
		return nil, fmt.Errorf("slippage_percent must be in (0, 100], got %v", cfg.SlippagePercent)
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration, loading it on first use.
func Get() (*Config, error) {
	if globalConfig == nil {
		return Load()
	}
	return globalConfig, nil
}

// Set updates the global configuration.
func Set(cfg *Config) {
	globalConfig = cfg
}

// Network resolves a configured network by name into the domain shape.
func (c *Config) Network(name string) (swap.Network, error) {
	if name == "" {
		name = c.DefaultNetwork
	}
	lower := strings.ToLower(name)

	if lower == "solana" || lower == "sol" {
		if c.Solana.RPCURL == "" {
			return swap.Network{}, fmt.Errorf("solana RPC URL not configured")
		}
		return swap.Network{
			Name:       "solana",
			RPCURL:     c.Solana.RPCURL,
			Solana:     true,
			NativeMint: c.Solana.NativeMint,
		}, nil
	}

	n, exists := c.EVMNetworks[lower]
	if !exists {
		return swap.Network{}, fmt.Errorf("network %s not configured", name)
	}
	if n.RPCURL == "" {
		return swap.Network{}, fmt.Errorf("RPC URL not configured for network %s", name)
	}
	return swap.Network{
		Name:                 lower,
		ChainID:              n.ChainID,
		RPCURL:               n.RPCURL,
		WrappedNativeAddress: n.WrappedNative,
		GasBufferPercent:     n.GasBufferPercent,
	}, nil
}

// Token resolves a token symbol on a network into the domain shape.
func (c *Config) Token(networkName, symbol string) (swap.Token, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	var tokens map[string]TokenConfig

	lower := strings.ToLower(networkName)
	if lower == "solana" || lower == "sol" {
		tokens = c.Solana.Tokens
	} else if n, exists := c.EVMNetworks[lower]; exists {
		tokens = n.Tokens
	}

	t, exists := tokens[symbol]
	if !exists {
		return swap.Token{}, fmt.Errorf("token '%s' not configured on network '%s'", symbol, networkName)
	}
	return swap.Token{
		Symbol:   symbol,
		Address:  t.Address,
		Decimals: t.Decimals,
		Native:   t.Native,
	}, nil
}
