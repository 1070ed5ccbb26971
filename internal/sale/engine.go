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

// Package sale implements the session lifecycle of a pro-rata mint sale:
// deposits during an allocation window, minting at a single clearing price,
// exits net of a time-weighted loss penalty, rollover and coordinator rewards.
//
// Every operation reads the clock once, runs under a per-session lock inside a
// single store transaction, writes its effects first and calls the external
// ledger last. A failed transfer rolls the whole operation back.
package sale

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mint-sale-go/internal/models"
	"mint-sale-go/internal/pricing"
	"mint-sale-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Clock supplies the current time in unix seconds. It must never go backwards.
type Clock interface {
	Now() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() int64 {
	return time.Now().Unix()
}

// Config wires an Engine to its store and external collaborators.
type Config struct {
	Store         store.SaleStore
	Assets        store.AssetLedger
	Items         store.ItemLedger
	Payout        store.Payout // defaults to paying out through Assets
	Clock         Clock        // defaults to SystemClock
	EscrowAccount string       // holder of unissued items, defaults to store.DefaultEscrowAccount
}

// Engine executes sale operations
type Engine struct {
	store  store.SaleStore
	assets store.AssetLedger
	items  store.ItemLedger
	payout store.Payout
	clock  Clock
	escrow string
	locks  *keyedMutex
}

func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("sale store is required")
	}
	if cfg.Assets == nil {
		return nil, fmt.Errorf("asset ledger is required")
	}
	if cfg.Items == nil {
		return nil, fmt.Errorf("item ledger is required")
	}
	if cfg.Payout == nil {
		cfg.Payout = LedgerPayout{Ledger: cfg.Assets}
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.EscrowAccount == "" {
		cfg.EscrowAccount = store.DefaultEscrowAccount
	}

	return &Engine{
		store:  cfg.Store,
		assets: cfg.Assets,
		items:  cfg.Items,
		payout: cfg.Payout,
		clock:  cfg.Clock,
		escrow: cfg.EscrowAccount,
		locks:  newKeyedMutex(),
	}, nil
}

// Now returns the engine clock's current time.
func (e *Engine) Now() int64 {
	return e.clock.Now()
}

// loadSession maps a missing session to ErrInvalidSession.
func (e *Engine) loadSession(ctx context.Context, tx store.SaleTx, op string, sessionId int64) (*models.Session, error) {
	session, err := tx.GetSession(ctx, sessionId)
	if err != nil {
		if isNotFound(err) {
			return nil, sessionError(op, sessionId)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

// resolvePrice returns the session's clearing price, computing and caching it
// on first use within the epoch.
func (e *Engine) resolvePrice(session *models.Session) decimal.Decimal {
	if session.ResultPrice.IsPositive() {
		return session.ResultPrice
	}

	session.ResultPrice = pricing.ClearingPrice(session.TotalDeposited, session.MaxSupply, session.MinPrice)
	zap.L().Info("Clearing price fixed",
		zap.Int64("session_id", session.Id),
		zap.Int64("epoch", session.Epoch),
		zap.String("total_deposited", session.TotalDeposited.String()),
		zap.Int64("max_supply", session.MaxSupply),
		zap.String("price", session.ResultPrice.String()))
	return session.ResultPrice
}

// compensate undoes an external effect whose surrounding transaction failed to commit.
func (e *Engine) compensate(op string, sessionId int64, undo func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := undo(ctx); err != nil {
		zap.L().Error("Compensation failed, ledger requires manual reconciliation",
			zap.String("op", op),
			zap.Int64("session_id", sessionId),
			zap.Error(err))
		return
	}
	zap.L().Warn("Compensated external transfer after failed commit",
		zap.String("op", op),
		zap.Int64("session_id", sessionId))
}

func checkAmount(op string, sessionId int64, amount decimal.Decimal) error {
	if !pricing.IsWholeUnits(amount) {
		return &Error{
			Kind:      ErrInvalidAmount,
			Op:        op,
			SessionId: sessionId,
			Have:      amount,
			Detail:    fmt.Sprintf("amount %s must be a positive whole number of units", amount),
		}
	}
	return nil
}

// reference returns the caller's operation reference, or a fresh one.
func reference(ctx context.Context) string {
	if oc := models.GetOperationContext(ctx); oc != nil && oc.Reference != "" {
		return oc.Reference
	}
	return uuid.New().String()
}

func sessionKey(sessionId int64) string {
	return fmt.Sprintf("session:%d", sessionId)
}

// keyedMutex serializes operations per key. An entry lives only while some
// caller holds or waits for it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrSessionNotFound)
}
