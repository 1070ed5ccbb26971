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

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.SaleStore.
var _ store.SaleStore = (*Service)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Service is the SQLite-backed sale store
type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	service := &Service{db: db}
	if err := service.initSchema(ctx); err != nil {
		if cerr := db.Close(); cerr != nil {
			zap.L().Warn("Failed to close database after schema error", zap.Error(cerr))
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Sale store initialized successfully", zap.String("file", cfg.Path))
	return service, nil
}

// openDB validates cfg, opens the SQLite file and verifies the connection.
func openDB(ctx context.Context, cfg models.DatabaseConfig) (*sql.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	// immediate transactions serialize writers instead of failing with SQLITE_BUSY on upgrade
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return db, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		item_collection TEXT NOT NULL,
		coordinator TEXT NOT NULL,
		deposit_asset TEXT NOT NULL,
		allocation_start INTEGER NOT NULL,
		allocation_end INTEGER NOT NULL,
		minting_start INTEGER NOT NULL,
		minting_end INTEGER NOT NULL,
		min_price TEXT NOT NULL,
		max_supply INTEGER NOT NULL,
		total_deposited TEXT NOT NULL DEFAULT '0',
		result_price TEXT NOT NULL DEFAULT '0',
		rollover_option TEXT NOT NULL,
		next_item_index INTEGER NOT NULL DEFAULT 0,
		epoch INTEGER NOT NULL DEFAULT 0,
		closed BOOLEAN NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_coordinator ON sessions(coordinator);

	-- item ownership is keyed by collection, so a collection backs one live session
	CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_collection ON sessions(item_collection);

	CREATE TABLE IF NOT EXISTS deposits (
		session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		amount TEXT NOT NULL DEFAULT '0',
		loss_penalty TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (session_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS rewards (
		coordinator TEXT NOT NULL,
		asset TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (coordinator, asset)
	);

	-- item ids are never reused within a session
	CREATE TABLE IF NOT EXISTS items (
		session_id INTEGER NOT NULL,
		item_id INTEGER NOT NULL,
		owner TEXT NOT NULL,
		epoch INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (session_id, item_id)
	);

	CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner);

	CREATE TABLE IF NOT EXISTS sale_entries (
		id TEXT PRIMARY KEY,
		session_id INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		payout TEXT NOT NULL DEFAULT '0',
		forfeited TEXT NOT NULL DEFAULT '0',
		items INTEGER NOT NULL DEFAULT 0,
		reference TEXT,
		timestamp INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sale_entries_session ON sale_entries(session_id, created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// InTx runs fn inside a database transaction and commits if it returns nil.
func (s *Service) InTx(ctx context.Context, fn func(tx store.SaleTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			zap.L().Warn("Failed to roll back transaction", zap.Error(rerr))
		}
	}()

	if err := fn(&saleTx{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// saleTx implements store.SaleTx over an open *sql.Tx.
type saleTx struct {
	q querier
}

var _ store.SaleTx = (*saleTx)(nil)
