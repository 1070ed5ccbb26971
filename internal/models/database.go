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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RolloverOption selects what happens to a session once its minting window ends.
type RolloverOption string

const (
	RolloverRestart        RolloverOption = "restart"
	RolloverGuaranteedMint RolloverOption = "guaranteed_mint"
	RolloverClose          RolloverOption = "close"
)

// Valid reports whether o is one of the known rollover options.
func (o RolloverOption) Valid() bool {
	switch o {
	case RolloverRestart, RolloverGuaranteedMint, RolloverClose:
		return true
	}
	return false
}

// SessionConfig holds the fields supplied when a session is created.
// Times are unix seconds.
type SessionConfig struct {
	ItemCollection  string          `yaml:"item_collection"`
	Coordinator     string          `yaml:"coordinator"`
	DepositAsset    string          `yaml:"deposit_asset"`
	AllocationStart int64           `yaml:"allocation_start"`
	AllocationEnd   int64           `yaml:"allocation_end"`
	MintingStart    int64           `yaml:"minting_start"`
	MintingEnd      int64           `yaml:"minting_end"`
	MinPrice        decimal.Decimal `yaml:"-"`
	MaxSupply       int64           `yaml:"max_supply"`
	RolloverOption  RolloverOption  `yaml:"rollover_option"`
}

// Session is the persisted state of one sale
type Session struct {
	Id              int64           `db:"id"`
	ItemCollection  string          `db:"item_collection"`
	Coordinator     string          `db:"coordinator"`
	DepositAsset    string          `db:"deposit_asset"`
	AllocationStart int64           `db:"allocation_start"`
	AllocationEnd   int64           `db:"allocation_end"`
	MintingStart    int64           `db:"minting_start"`
	MintingEnd      int64           `db:"minting_end"`
	MinPrice        decimal.Decimal `db:"min_price"`
	MaxSupply       int64           `db:"max_supply"`
	TotalDeposited  decimal.Decimal `db:"total_deposited"`
	ResultPrice     decimal.Decimal `db:"result_price"`
	RolloverOption  RolloverOption  `db:"rollover_option"`
	NextItemIndex   int64           `db:"next_item_index"`
	Epoch           int64           `db:"epoch"`
	Closed          bool            `db:"closed"`
	Version         int64           `db:"version"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// InAllocation reports whether now falls inside the allocation window (inclusive).
func (s *Session) InAllocation(now int64) bool {
	return now >= s.AllocationStart && now <= s.AllocationEnd
}

// InMinting reports whether now falls inside the minting window (inclusive).
func (s *Session) InMinting(now int64) bool {
	return now >= s.MintingStart && now <= s.MintingEnd
}

// UserDeposit is a user's live balance and loss penalty within one session.
// LossPenalty is a fixed-point fraction where pricing.One is 100%.
type UserDeposit struct {
	SessionId   int64           `db:"session_id"`
	UserId      string          `db:"user_id"`
	Amount      decimal.Decimal `db:"amount"`
	LossPenalty decimal.Decimal `db:"loss_penalty"`
	Version     int64           `db:"version"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// RewardsBalance is the coordinator's accumulated proceeds in one asset
type RewardsBalance struct {
	Coordinator string          `db:"coordinator"`
	Asset       string          `db:"asset"`
	Balance     decimal.Decimal `db:"balance"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// Item is one issued item of a session's collection
type Item struct {
	SessionId int64     `db:"session_id"`
	ItemId    int64     `db:"item_id"`
	Owner     string    `db:"owner"`
	Epoch     int64     `db:"epoch"`
	CreatedAt time.Time `db:"created_at"`
}

// SaleEntry is the immutable audit record of one engine operation
type SaleEntry struct {
	Id        string          `db:"id"`
	SessionId int64           `db:"session_id"`
	UserId    string          `db:"user_id"`
	EntryType string          `db:"entry_type"` // deposit, withdraw, mint, forgo, rollover, rewards
	Amount    decimal.Decimal `db:"amount"`
	Payout    decimal.Decimal `db:"payout"`
	Forfeited decimal.Decimal `db:"forfeited"`
	Items     int64           `db:"items"`
	Reference string          `db:"reference"`
	Timestamp int64           `db:"timestamp"`
	CreatedAt time.Time       `db:"created_at"`
}

// AccountBalance represents current balance state in the asset subledger (hot data)
type AccountBalance struct {
	Id                string          `db:"id"`
	AccountId         string          `db:"account_id"`
	Asset             string          `db:"asset"`
	Balance           decimal.Decimal `db:"balance"`
	LastTransactionId string          `db:"last_transaction_id"`
	Version           int64           `db:"version"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// Transaction represents immutable subledger history (cold data)
type Transaction struct {
	Id              string          `db:"id"`
	AccountId       string          `db:"account_id"`
	Asset           string          `db:"asset"`
	TransactionType string          `db:"transaction_type"`
	Amount          decimal.Decimal `db:"amount"`
	BalanceBefore   decimal.Decimal `db:"balance_before"`
	BalanceAfter    decimal.Decimal `db:"balance_after"`
	Reference       string          `db:"reference"`
	Counterparty    string          `db:"counterparty"`
	Status          string          `db:"status"`
	CreatedAt       time.Time       `db:"created_at"`
	ProcessedAt     time.Time       `db:"processed_at"`
}
