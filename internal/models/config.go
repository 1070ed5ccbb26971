package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Ledger   LedgerConfig
	Formance FormanceConfig
	Prime    PrimeConfig
	Keeper   KeeperConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// LedgerConfig selects the external asset ledger and payout backends
type LedgerConfig struct {
	Backend       string // "sqlite" or "formance"
	Path          string // subledger database when Backend is sqlite
	EscrowAccount string
	Payout        string // "ledger" or "prime"
	SessionsFile  string
	SeedUsers     bool
}

// FormanceConfig holds Formance Stack connection settings
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

// PrimeConfig holds settings for disbursing rewards through Prime
type PrimeConfig struct {
	PortfolioId        string
	WalletId           string
	DestinationAddress string
	AssetNetwork       string
	AssetPrecision     int
}

// KeeperConfig holds rollover keeper settings
type KeeperConfig struct {
	Coordinator     string
	PollingInterval time.Duration
	Concurrency     int
}
