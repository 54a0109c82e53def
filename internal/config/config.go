// Package config loads daemon configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// Config holds all settings for the settlement daemon.
type Config struct {
	Stage          string
	Port           string
	ChainID        int64
	SettlerAddress common.Address
	Permit2Address common.Address

	// DatabaseURL is optional; without it settlements live in memory.
	DatabaseURL string

	// SettlementQueueURL is optional; without it settlement events are
	// not fanned out.
	SettlementQueueURL string
}

// Load reads configuration from environment variables, applying
// defaults where the variable is optional.
func Load() (*Config, error) {
	cfg := &Config{
		Stage:              getEnvWithDefault("STAGE", "dev"),
		Port:               getEnvWithDefault("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SettlementQueueURL: os.Getenv("SETTLEMENT_QUEUE_URL"),
	}

	chainIDStr := getEnvWithDefault("CHAIN_ID", "1")
	chainID, err := strconv.ParseInt(chainIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CHAIN_ID %q: %w", chainIDStr, err)
	}
	cfg.ChainID = chainID

	settlerAddr := os.Getenv("SETTLER_ADDRESS")
	if settlerAddr == "" {
		return nil, fmt.Errorf("SETTLER_ADDRESS environment variable is required")
	}
	if !common.IsHexAddress(settlerAddr) {
		return nil, fmt.Errorf("SETTLER_ADDRESS is not a valid address")
	}
	cfg.SettlerAddress = common.HexToAddress(settlerAddr)

	permit2Addr := os.Getenv("PERMIT2_ADDRESS")
	if permit2Addr == "" {
		return nil, fmt.Errorf("PERMIT2_ADDRESS environment variable is required")
	}
	if !common.IsHexAddress(permit2Addr) {
		return nil, fmt.Errorf("PERMIT2_ADDRESS is not a valid address")
	}
	cfg.Permit2Address = common.HexToAddress(permit2Addr)

	return cfg, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
