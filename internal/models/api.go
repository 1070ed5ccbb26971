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
	"github.com/shopspring/decimal"
)

// MintResult describes the items issued by a successful mint
type MintResult struct {
	SessionId   int64           `json:"session_id"`
	UserId      string          `json:"user_id"`
	Items       int64           `json:"items"`
	FirstItemId int64           `json:"first_item_id"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Remaining   decimal.Decimal `json:"remaining_deposit"`
}

// ItemIds returns the contiguous ids issued by the mint.
func (r *MintResult) ItemIds() []int64 {
	ids := make([]int64, r.Items)
	for i := range ids {
		ids[i] = r.FirstItemId + int64(i)
	}
	return ids
}

// PayoutResult describes funds returned by withdraw or forgo
type PayoutResult struct {
	SessionId int64           `json:"session_id"`
	UserId    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Payout    decimal.Decimal `json:"payout"`
	Forfeited decimal.Decimal `json:"forfeited"`
	Penalty   decimal.Decimal `json:"penalty"`
	Remaining decimal.Decimal `json:"remaining_deposit"`
}

// SessionReport is a point-in-time view of one session for reporting
type SessionReport struct {
	Session       Session          `json:"session"`
	Deposits      []UserDeposit    `json:"deposits"`
	ItemsIssued   int64            `json:"items_issued"`
	MintedBy      map[string]int64 `json:"minted_by"`
	RecentEntries []SaleEntry      `json:"recent_entries"`
	Rewards       decimal.Decimal  `json:"coordinator_rewards"`
	Escrow        *decimal.Decimal `json:"escrow_balance,omitempty"`
}
