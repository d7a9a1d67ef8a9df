package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// SolanaConfig holds the Solana wallet connection settings.
type SolanaConfig struct {
	Enabled        bool
	RPCUrl         string
	FallbackRPCUrl string
	PrivateKey     string
	Commitment     string
	SkipPreflight  bool
}

// EVMNetwork holds per-network EVM settings.
type EVMNetwork struct {
	RPCUrl     string
	ChainID    int64
	PrivateKey string
	GasLimit   *uint64
	GasPrice   *int64
}

// EVMConfig holds EVM wallet settings keyed by network code.
type EVMConfig struct {
	Enabled  bool
	Networks map[string]EVMNetwork
}

// WalletConfig groups the wallet connector settings.
type WalletConfig struct {
	Solana SolanaConfig
	EVM    EVMConfig
}

// Config holds the application configuration.
type Config struct {
	APIKey      string
	BaseURL     string
	PriceAPIURL string
	StatePath   string
	Wallet      WalletConfig
}

var globalConfig *Config

// Load reads configuration from environment variables and config file.
func Load() (*Config, error) {
	viper.SetConfigName(".cross-swap")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("base_url", "https://api.cross-swap.io/v1")
	viper.SetDefault("price_api_url", "")
	viper.SetDefault("wallet.solana.commitment", "confirmed")

	// Read from environment variables
	viper.SetEnvPrefix("CROSS_SWAP")
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		APIKey:      viper.GetString("api_key"),
		BaseURL:     viper.GetString("base_url"),
		PriceAPIURL: viper.GetString("price_api_url"),
		StatePath:   viper.GetString("state_path"),
		Wallet: WalletConfig{
			Solana: SolanaConfig{
				Enabled:        viper.GetBool("wallet.solana.enabled"),
				RPCUrl:         viper.GetString("wallet.solana.rpc_url"),
				FallbackRPCUrl: viper.GetString("wallet.solana.fallback_rpc_url"),
				PrivateKey:     viper.GetString("wallet.solana.private_key"),
				Commitment:     viper.GetString("wallet.solana.commitment"),
				SkipPreflight:  viper.GetBool("wallet.solana.skip_preflight"),
			},
			EVM: EVMConfig{
				Enabled:  viper.GetBool("wallet.evm.enabled"),
				Networks: loadEVMNetworks(),
			},
		},
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key not found. Please set CROSS_SWAP_API_KEY environment variable or create a .cross-swap.yaml config file")
	}

	globalConfig = cfg
	return cfg, nil
}

func loadEVMNetworks() map[string]EVMNetwork {
	networks := make(map[string]EVMNetwork)
	raw := viper.GetStringMap("wallet.evm.networks")
	for name := range raw {
		prefix := "wallet.evm.networks." + name
		network := EVMNetwork{
			RPCUrl:     viper.GetString(prefix + ".rpc_url"),
			ChainID:    viper.GetInt64(prefix + ".chain_id"),
			PrivateKey: viper.GetString(prefix + ".private_key"),
		}
		if viper.IsSet(prefix + ".gas_limit") {
			gasLimit := viper.GetUint64(prefix + ".gas_limit")
			network.GasLimit = &gasLimit
		}
		if viper.IsSet(prefix + ".gas_price") {
			gasPrice := viper.GetInt64(prefix + ".gas_price")
			network.GasPrice = &gasPrice
		}
		networks[name] = network
	}
	return networks
}

// Get returns the global configuration.
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration.
func Set(cfg *Config) {
	globalConfig = cfg
}
