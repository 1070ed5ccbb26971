package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mint-sale-go/internal/models"

	"github.com/shopspring/decimal"
)

func testDatabaseConfig(t *testing.T, name string) models.DatabaseConfig {
	return models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), name),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		PingTimeout:  5 * time.Second,
	}
}

func setupTestService(t *testing.T) (*Service, func()) {
	service, err := NewService(context.Background(), testDatabaseConfig(t, "sale.db"))
	if err != nil {
		t.Fatalf("Failed to open test sale store: %v", err)
	}
	return service, service.Close
}

func setupTestSubledger(t *testing.T) (*SubledgerService, func()) {
	subledger, err := OpenSubledger(context.Background(), testDatabaseConfig(t, "ledger.db"), "")
	if err != nil {
		t.Fatalf("Failed to open test subledger: %v", err)
	}
	return subledger, subledger.Close
}

func testSessionConfig() models.SessionConfig {
	return models.SessionConfig{
		ItemCollection:  "genesis",
		Coordinator:     "coordinator",
		DepositAsset:    "USDC",
		AllocationStart: 1_000,
		AllocationEnd:   2_000,
		MintingStart:    2_500,
		MintingEnd:      3_500,
		MinPrice:        decimal.NewFromInt(1),
		MaxSupply:       10_000,
		RolloverOption:  models.RolloverClose,
	}
}
