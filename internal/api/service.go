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

package api

import (
	"context"
	"fmt"

	"mint-sale-go/internal/models"
	"mint-sale-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BalanceReader reads asset ledger balances.
type BalanceReader interface {
	GetBalance(ctx context.Context, accountId, asset string) (decimal.Decimal, error)
	EscrowAccount() string
}

// ReportService provides read-only sale reports
type ReportService struct {
	store    store.SaleStore
	balances BalanceReader // optional
}

func NewReportService(saleStore store.SaleStore, balances BalanceReader) *ReportService {
	return &ReportService{
		store:    saleStore,
		balances: balances,
	}
}

func (s *ReportService) HealthCheck(ctx context.Context) error {
	if _, err := s.store.ListSessions(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// SessionReport gathers a session with its deposits, issued items and recent activity.
func (s *ReportService) SessionReport(ctx context.Context, sessionId int64, recent int) (*models.SessionReport, error) {
	session, err := s.store.GetSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	deposits, err := s.store.ListDeposits(ctx, sessionId)
	if err != nil {
		zap.L().Error("Failed to list deposits", zap.Int64("session_id", sessionId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve deposits")
	}

	items, err := s.store.ListItems(ctx, sessionId)
	if err != nil {
		zap.L().Error("Failed to list items", zap.Int64("session_id", sessionId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve items")
	}
	mintedBy := make(map[string]int64)
	for _, item := range items {
		mintedBy[item.Owner]++
	}

	entries, err := s.store.ListEntries(ctx, sessionId, recent, 0)
	if err != nil {
		zap.L().Error("Failed to list entries", zap.Int64("session_id", sessionId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve activity")
	}

	rewards, err := s.store.GetRewards(ctx, session.Coordinator, session.DepositAsset)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve rewards: %w", err)
	}

	report := &models.SessionReport{
		Session:       *session,
		Deposits:      deposits,
		ItemsIssued:   int64(len(items)),
		MintedBy:      mintedBy,
		RecentEntries: entries,
		Rewards:       rewards,
	}

	if s.balances != nil {
		escrow, err := s.balances.GetBalance(ctx, s.balances.EscrowAccount(), session.DepositAsset)
		if err != nil {
			zap.L().Warn("Failed to read escrow balance", zap.String("asset", session.DepositAsset), zap.Error(err))
		} else {
			report.Escrow = &escrow
		}
	}

	return report, nil
}

// UserBalance returns a user's asset ledger balance
func (s *ReportService) UserBalance(ctx context.Context, userId, asset string) (decimal.Decimal, error) {
	if userId == "" || asset == "" {
		return decimal.Zero, fmt.Errorf("user_id and asset are required")
	}
	if s.balances == nil {
		return decimal.Zero, fmt.Errorf("no asset ledger configured")
	}

	balance, err := s.balances.GetBalance(ctx, userId, asset)
	if err != nil {
		zap.L().Error("Failed to get user balance",
			zap.String("user_id", userId),
			zap.String("asset", asset),
			zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to retrieve balance")
	}
	return balance, nil
}
