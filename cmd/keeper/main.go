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

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mint-sale-go/internal/common"
	"mint-sale-go/internal/config"
	"mint-sale-go/internal/keeper"

	"go.uber.org/zap"
)

func main() {
	coordinatorFlag := flag.String("coordinator", "", "Coordinator identity used for rollovers (default: KEEPER_COORDINATOR)")
	onceFlag := flag.Bool("once", false, "Run a single poll and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting mint sale rollover keeper")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	coordinator := cfg.Keeper.Coordinator
	if *coordinatorFlag != "" {
		coordinator = *coordinatorFlag
	}

	k, err := keeper.New(keeper.Config{
		Engine:          services.Engine,
		Coordinator:     coordinator,
		PollingInterval: cfg.Keeper.PollingInterval,
		Concurrency:     cfg.Keeper.Concurrency,
	})
	if err != nil {
		zap.L().Fatal("Failed to create keeper", zap.Error(err))
	}

	if *onceFlag {
		applied, err := k.Poll(ctx)
		if err != nil {
			zap.L().Fatal("Keeper poll failed", zap.Int("rollovers_applied", applied), zap.Error(err))
		}
		zap.L().Info("Keeper poll complete", zap.Int("rollovers_applied", applied))
		return
	}

	k.Start(ctx)
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping keeper...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		k.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Keeper stopped gracefully", zap.Int64("rollovers_applied", k.Applied()))
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
