package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"mint-sale-go/internal/common"
	"mint-sale-go/internal/config"
	"mint-sale-go/internal/models"

	"go.uber.org/zap"
)

// createSessions creates every configured session and reports the ids assigned
func createSessions(ctx context.Context, services *common.Services, configs []models.SessionConfig) {
	var created, failed int
	var failedCollections []string

	for _, cfg := range configs {
		zap.L().Info("Creating session",
			zap.String("collection", cfg.ItemCollection),
			zap.String("coordinator", cfg.Coordinator),
			zap.String("deposit_asset", cfg.DepositAsset),
			zap.Int64("max_supply", cfg.MaxSupply))

		session, err := services.Engine.CreateSession(ctx, cfg)
		if err != nil {
			zap.L().Error("Error creating session",
				zap.String("collection", cfg.ItemCollection),
				zap.Error(err))
			failed++
			failedCollections = append(failedCollections, cfg.ItemCollection)
			continue
		}
		created++

		sessionOutput, err := json.MarshalIndent(session, "", "  ")
		if err != nil {
			zap.L().Error("Error marshaling session to JSON", zap.Error(err))
		} else {
			zap.L().Debug("Session details", zap.String("json", string(sessionOutput)))
		}
		fmt.Printf("Created session %d for collection %s (allocation %s .. %s, minting %s .. %s)\n",
			session.Id, session.ItemCollection,
			common.FormatUnix(session.AllocationStart), common.FormatUnix(session.AllocationEnd),
			common.FormatUnix(session.MintingStart), common.FormatUnix(session.MintingEnd))
	}

	if failed > 0 {
		zap.L().Warn("Session creation completed with some failures",
			zap.Int("sessions_created", created),
			zap.Int("failed_sessions", failed),
			zap.Strings("failed_collections", failedCollections))
	} else {
		zap.L().Info("Session creation completed successfully",
			zap.Int("sessions_created", created))
	}
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	sessionsFlag := flag.String("sessions", "", "Path to sessions.yaml (default: SESSIONS_FILE)")
	seedFlag := flag.Bool("seed", false, "Fund the users listed in the sessions file")
	initFlag := flag.Bool("init", false, "Only initialize the database schemas")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	// Opening the services creates both schemas
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if *initFlag {
		zap.L().Info("Initialization complete")
		return
	}

	sessionsFile := cfg.Ledger.SessionsFile
	if *sessionsFlag != "" {
		sessionsFile = *sessionsFlag
	}

	zap.L().Info("Loading sessions file", zap.String("file", sessionsFile))
	users, configs, err := common.LoadSessionsFile(sessionsFile, services.Engine.Now())
	if err != nil {
		zap.L().Fatal("Failed to load sessions file", zap.Error(err))
	}
	zap.L().Info("Sessions file loaded",
		zap.Int("users", len(users)),
		zap.Int("sessions", len(configs)))

	if *seedFlag || cfg.Ledger.SeedUsers {
		if err := common.SeedUsers(ctx, services.Assets, users); err != nil {
			zap.L().Fatal("Failed to seed users", zap.Error(err))
		}
	}

	createSessions(ctx, services, configs)
}
