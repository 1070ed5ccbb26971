package common

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"mint-sale-go/internal/database"
	"mint-sale-go/internal/formance"
	"mint-sale-go/internal/models"
	"mint-sale-go/internal/prime"
	"mint-sale-go/internal/sale"
	"mint-sale-go/internal/store"

	"github.com/coinbase-samples/prime-sdk-go/credentials"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// AssetBackend is an asset ledger that can also seed and report balances.
type AssetBackend interface {
	store.AssetLedger
	Fund(ctx context.Context, userId, asset string, amount decimal.Decimal, reference string) error
	GetBalance(ctx context.Context, accountId, asset string) (decimal.Decimal, error)
	GetAllBalances(ctx context.Context, accountId string) ([]models.AccountBalance, error)
	EscrowAccount() string
}

var (
	_ AssetBackend = (*database.SubledgerService)(nil)
	_ AssetBackend = (*formance.Service)(nil)
)

type Services struct {
	Store     *database.Service
	Subledger *database.SubledgerService // item ownership, and assets when the backend is sqlite
	Assets    AssetBackend
	Payout    store.Payout
	Engine    *sale.Engine
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the sale store and the configured ledger and payout
// backends, and wires them into an engine.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	services := &Services{}

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	services.Store = dbService

	ledgerDb := cfg.Database
	ledgerDb.Path = cfg.Ledger.Path
	subledger, err := database.OpenSubledger(ctx, ledgerDb, cfg.Ledger.EscrowAccount)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Subledger = subledger

	switch cfg.Ledger.Backend {
	case "formance":
		zap.L().Info("Using Formance asset ledger")
		formanceService, err := formance.NewService(ctx, cfg.Formance, cfg.Ledger.EscrowAccount)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.Assets = formanceService
	default:
		zap.L().Info("Using SQLite asset ledger", zap.String("file", cfg.Ledger.Path))
		services.Assets = subledger
	}

	switch cfg.Ledger.Payout {
	case "prime":
		zap.L().Info("Loading Prime API credentials")
		creds, err := loadPrimeCredentials()
		if err != nil {
			services.Close()
			return nil, err
		}
		primeService, err := prime.NewService(creds, cfg.Prime)
		if err != nil {
			services.Close()
			return nil, err
		}
		if err := primeService.ResolvePortfolio(ctx); err != nil {
			services.Close()
			return nil, err
		}
		services.Payout = primeService
	default:
		services.Payout = sale.LedgerPayout{Ledger: services.Assets}
	}

	engine, err := sale.New(sale.Config{
		Store:         dbService,
		Assets:        services.Assets,
		Items:         subledger,
		Payout:        services.Payout,
		EscrowAccount: subledger.EscrowAccount(),
	})
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Engine = engine

	return services, nil
}

// InitializeStoreOnly opens just the sale store.
// Useful for read-only operations like reports
func InitializeStoreOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	return database.NewService(ctx, cfg.Database)
}

func (cs *Services) Close() {
	if cs.Store != nil {
		cs.Store.Close()
	}
	if cs.Subledger != nil {
		cs.Subledger.Close()
	}
}

func loadPrimeCredentials() (*credentials.Credentials, error) {
	accessKey := os.Getenv("PRIME_ACCESS_KEY")
	passphrase := os.Getenv("PRIME_PASSPHRASE")
	signingKey := os.Getenv("PRIME_SIGNING_KEY")

	if accessKey == "" || passphrase == "" || signingKey == "" {
		return nil, fmt.Errorf("missing required Prime API credentials: PRIME_ACCESS_KEY, PRIME_PASSPHRASE, PRIME_SIGNING_KEY")
	}

	return &credentials.Credentials{
		AccessKey:  accessKey,
		Passphrase: passphrase,
		SigningKey: signingKey,
	}, nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
