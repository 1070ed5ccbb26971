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

package database

import (
	"context"
	"database/sql"
	"fmt"

	"mint-sale-go/internal/models"
	"mint-sale-go/internal/store"

	"go.uber.org/zap"
)

var (
	_ store.AssetLedger = (*SubledgerService)(nil)
	_ store.ItemLedger  = (*SubledgerService)(nil)
)

// SubledgerService is a SQLite double-entry ledger of deposit-asset balances
// and item ownership. The sale engine treats it as an external collaborator.
type SubledgerService struct {
	db     *sql.DB
	escrow string
}

func NewSubledgerService(db *sql.DB, escrowAccount string) *SubledgerService {
	if escrowAccount == "" {
		escrowAccount = store.DefaultEscrowAccount
	}
	return &SubledgerService{
		db:     db,
		escrow: escrowAccount,
	}
}

// OpenSubledger opens a dedicated SQLite file for the subledger and initializes it.
func OpenSubledger(ctx context.Context, cfg models.DatabaseConfig, escrowAccount string) (*SubledgerService, error) {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	subledger := NewSubledgerService(db, escrowAccount)
	if err := subledger.InitSchema(); err != nil {
		if cerr := db.Close(); cerr != nil {
			zap.L().Warn("Failed to close subledger after schema error", zap.Error(cerr))
		}
		return nil, fmt.Errorf("unable to initialize subledger schema: %w", err)
	}

	zap.L().Info("Subledger initialized", zap.String("file", cfg.Path), zap.String("escrow", subledger.escrow))
	return subledger, nil
}

// EscrowAccount returns the account holding deposits and unissued items.
func (s *SubledgerService) EscrowAccount() string {
	return s.escrow
}

func (s *SubledgerService) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close subledger connection", zap.Error(err))
	}
}

func (s *SubledgerService) InitSchema() error {
	schema := `
	-- Account Balances Table (Current State - Hot Data)
	CREATE TABLE IF NOT EXISTS account_balances (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		asset TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		last_transaction_id TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(account_id, asset)
	);

	-- Transactions Table (Audit Trail - Cold Data)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		asset TEXT NOT NULL,
		transaction_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		reference TEXT,
		counterparty TEXT,
		status TEXT DEFAULT 'confirmed',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_account_balances_account_id ON account_balances(account_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_account_asset ON transactions(account_id, asset);
	CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_reference ON transactions(reference);

	-- Journal Entries for Double-Entry Bookkeeping
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL,
		account_type TEXT NOT NULL,
		account_id TEXT NOT NULL,
		debit_amount TEXT DEFAULT '0',
		credit_amount TEXT DEFAULT '0',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_journal_transaction_id ON journal_entries(transaction_id);
	CREATE INDEX IF NOT EXISTS idx_journal_account ON journal_entries(account_type, account_id);

	-- Item ownership; items without a row are held by the escrow account
	CREATE TABLE IF NOT EXISTS item_owners (
		collection TEXT NOT NULL,
		item_id INTEGER NOT NULL,
		owner TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (collection, item_id)
	);

	CREATE INDEX IF NOT EXISTS idx_item_owners_owner ON item_owners(collection, owner);
	`

	_, err := s.db.Exec(schema)
	return err
}
