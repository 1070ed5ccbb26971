/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"mint-sale-go/internal/models"
	"mint-sale-go/internal/store"
)

// Load builds the configuration from environment variables, falling back to defaults.
func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	pollingInterval, err := getEnvDuration("KEEPER_POLLING_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "sale.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Ledger: models.LedgerConfig{
			Backend:       getEnvString("LEDGER_BACKEND", "sqlite"),
			Path:          getEnvString("LEDGER_DATABASE_PATH", "ledger.db"),
			EscrowAccount: getEnvString("ESCROW_ACCOUNT", store.DefaultEscrowAccount),
			Payout:        getEnvString("REWARDS_PAYOUT", "ledger"),
			SessionsFile:  getEnvString("SESSIONS_FILE", "sessions.yaml"),
			SeedUsers:     getEnvBool("SEED_USERS", false),
		},
		Formance: models.FormanceConfig{
			StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
			ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
			ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
			LedgerName:   getEnvString("FORMANCE_LEDGER_NAME", "mint-sale"),
		},
		Prime: models.PrimeConfig{
			PortfolioId:        getEnvString("PRIME_PORTFOLIO_ID", ""),
			WalletId:           getEnvString("PRIME_REWARDS_WALLET_ID", ""),
			DestinationAddress: getEnvString("PRIME_REWARDS_DESTINATION", ""),
			AssetNetwork:       getEnvString("PRIME_REWARDS_NETWORK", ""),
			AssetPrecision:     getEnvInt("PRIME_REWARDS_PRECISION", 6),
		},
		Keeper: models.KeeperConfig{
			Coordinator:     getEnvString("KEEPER_COORDINATOR", ""),
			PollingInterval: pollingInterval,
			Concurrency:     getEnvInt("KEEPER_CONCURRENCY", 4),
		},
	}

	switch cfg.Ledger.Backend {
	case "sqlite", "formance":
	default:
		return nil, fmt.Errorf("invalid LEDGER_BACKEND %q: expected sqlite or formance", cfg.Ledger.Backend)
	}
	switch cfg.Ledger.Payout {
	case "ledger", "prime":
	default:
		return nil, fmt.Errorf("invalid REWARDS_PAYOUT %q: expected ledger or prime", cfg.Ledger.Payout)
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
