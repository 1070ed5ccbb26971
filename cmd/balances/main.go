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
	"fmt"
	"sort"

	"mint-sale-go/internal/common"
	"mint-sale-go/internal/config"
	"mint-sale-go/internal/database"
	"mint-sale-go/internal/models"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalAccounts        int
	totalBalances        int
	accountsWithBalances int
}

func formatTransactionId(txId string) string {
	if txId == "" {
		return "none"
	}
	if len(txId) > 8 {
		return txId[:8] + "..."
	}
	return txId
}

func printBalance(balance models.AccountBalance, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	lastTx := formatTransactionId(balance.LastTransactionId)

	if balance.UpdatedAt.IsZero() {
		fmt.Printf("%s %-15s: %20s\n", symbol, balance.Asset, balance.Balance.String())
		return
	}
	fmt.Printf("%s %-15s: %20s (v%d, last_tx: %s, updated: %s)\n",
		symbol,
		balance.Asset,
		balance.Balance.String(),
		balance.Version,
		lastTx,
		balance.UpdatedAt.Format("2006-01-02 15:04:05"))
}

// discoverAccounts lists the escrow account, every coordinator and every
// depositor known to the sale store.
func discoverAccounts(ctx context.Context, saleStore *database.Service, escrow string) ([]string, error) {
	sessions, err := saleStore.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	seen := map[string]bool{escrow: true}
	for _, session := range sessions {
		seen[session.Coordinator] = true
		deposits, err := saleStore.ListDeposits(ctx, session.Id)
		if err != nil {
			return nil, fmt.Errorf("failed to list deposits for session %d: %w", session.Id, err)
		}
		for _, d := range deposits {
			seen[d.UserId] = true
		}
	}

	accounts := make([]string, 0, len(seen))
	for account := range seen {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	return accounts, nil
}

// reconcile checks each balance against its transaction history. Only the
// SQLite subledger keeps that history locally.
func reconcile(ctx context.Context, account string, balances []models.AccountBalance, assets common.AssetBackend) {
	subledger, ok := assets.(*database.SubledgerService)
	if !ok {
		zap.L().Warn("Reconciliation is only available for the sqlite ledger backend")
		return
	}
	for _, balance := range balances {
		if err := subledger.ReconcileBalance(ctx, account, balance.Asset); err != nil {
			fmt.Printf("   !! %s %s does not reconcile: %v\n", account, balance.Asset, err)
		}
	}
}

func processAccount(ctx context.Context, account string, assets common.AssetBackend, check bool) (int, error) {
	balances, err := assets.GetAllBalances(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("failed to get balances: %w", err)
	}
	if len(balances) == 0 {
		return 0, nil
	}

	fmt.Printf("\n┌─ Account: %s\n", account)
	fmt.Printf("│  Assets: %d\n", len(balances))
	common.PrintBoxSeparator(78)
	for i, balance := range balances {
		printBalance(balance, i == len(balances)-1)
	}
	if check {
		reconcile(ctx, account, balances, assets)
	}
	return len(balances), nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	accountFlag := flag.String("account", "", "Filter by a specific account id (optional)")
	reconcileFlag := flag.Bool("reconcile", false, "Verify each balance against its transaction history")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	accounts := []string{*accountFlag}
	if *accountFlag == "" {
		accounts, err = discoverAccounts(ctx, services.Store, services.Assets.EscrowAccount())
		if err != nil {
			logger.Fatal("Failed to discover accounts", zap.Error(err))
		}
	}

	common.PrintHeader("ACCOUNT BALANCE REPORT", common.DefaultWidth)

	stats := balanceStats{}
	for _, account := range accounts {
		stats.totalAccounts++
		count, err := processAccount(ctx, account, services.Assets, *reconcileFlag)
		if err != nil {
			logger.Error("Failed to process account",
				zap.String("account_id", account),
				zap.Error(err))
			continue
		}
		if count > 0 {
			stats.accountsWithBalances++
			stats.totalBalances += count
		}
	}

	summary := fmt.Sprintf("SUMMARY: %d accounts with balances (%d total balances across %d accounts queried)",
		stats.accountsWithBalances, stats.totalBalances, stats.totalAccounts)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("accounts_queried", stats.totalAccounts),
		zap.Int("accounts_with_balances", stats.accountsWithBalances),
		zap.Int("total_balances", stats.totalBalances))
}
