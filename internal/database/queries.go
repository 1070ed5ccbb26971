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

const (
	sessionColumns = `id, item_collection, coordinator, deposit_asset,
		allocation_start, allocation_end, minting_start, minting_end,
		min_price, max_supply, total_deposited, result_price, rollover_option,
		next_item_index, epoch, closed, version, created_at, updated_at`

	// Session queries
	queryInsertSession = `
		INSERT INTO sessions (
			item_collection, coordinator, deposit_asset,
			allocation_start, allocation_end, minting_start, minting_end,
			min_price, max_supply, rollover_option
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetSession = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = ?`

	queryListSessions = `
		SELECT ` + sessionColumns + `
		FROM sessions
		ORDER BY id`

	queryUpdateSession = `
		UPDATE sessions
		SET allocation_start = ?, allocation_end = ?, minting_start = ?, minting_end = ?,
		    max_supply = ?, total_deposited = ?, result_price = ?, next_item_index = ?,
		    epoch = ?, closed = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?`

	queryDeleteSession = `
		DELETE FROM sessions WHERE id = ?`

	// Deposit queries
	queryGetDeposit = `
		SELECT session_id, user_id, amount, loss_penalty, version, updated_at
		FROM deposits
		WHERE session_id = ? AND user_id = ?`

	queryListDeposits = `
		SELECT session_id, user_id, amount, loss_penalty, version, updated_at
		FROM deposits
		WHERE session_id = ?
		ORDER BY user_id`

	queryInsertDeposit = `
		INSERT INTO deposits (session_id, user_id, amount, loss_penalty, version)
		VALUES (?, ?, ?, ?, 1)`

	queryUpdateDeposit = `
		UPDATE deposits
		SET amount = ?, loss_penalty = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE session_id = ? AND user_id = ? AND version = ?`

	queryDeleteSessionDeposits = `
		DELETE FROM deposits WHERE session_id = ?`

	queryDepositAmounts = `
		SELECT amount FROM deposits WHERE session_id = ?`

	// Rewards queries
	queryGetRewards = `
		SELECT balance FROM rewards WHERE coordinator = ? AND asset = ?`

	queryListRewards = `
		SELECT coordinator, asset, balance, updated_at
		FROM rewards
		ORDER BY coordinator, asset`

	queryUpsertRewards = `
		INSERT INTO rewards (coordinator, asset, balance) VALUES (?, ?, ?)
		ON CONFLICT(coordinator, asset) DO UPDATE SET balance = excluded.balance, updated_at = CURRENT_TIMESTAMP`

	// Item queries
	queryInsertItem = `
		INSERT INTO items (session_id, item_id, owner, epoch) VALUES (?, ?, ?, ?)`

	queryListItems = `
		SELECT session_id, item_id, owner, epoch, created_at
		FROM items
		WHERE session_id = ?
		ORDER BY item_id`

	// Audit queries
	queryInsertEntry = `
		INSERT INTO sale_entries (id, session_id, user_id, entry_type, amount, payout, forfeited, items, reference, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryListEntries = `
		SELECT id, session_id, user_id, entry_type, amount, payout, forfeited, items, reference, timestamp, created_at
		FROM sale_entries
		WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	// Subledger balance queries
	queryGetBalance = `
		SELECT balance
		FROM account_balances
		WHERE account_id = ? AND asset = ?`

	queryGetAllAccountBalances = `
		SELECT id, account_id, asset, balance, last_transaction_id, version, updated_at
		FROM account_balances
		WHERE account_id = ? AND balance != '0'
		ORDER BY asset`

	queryTransactionAmounts = `
		SELECT amount
		FROM transactions
		WHERE account_id = ? AND asset = ? AND status = 'confirmed'`

	// Subledger transaction queries
	queryCheckDuplicateTransaction = `
		SELECT id FROM transactions WHERE reference = ? LIMIT 1`

	queryGetAccountBalance = `
		SELECT id, balance, version
		FROM account_balances
		WHERE account_id = ? AND asset = ?`

	queryInsertAccountBalance = `
		INSERT INTO account_balances (id, account_id, asset, balance, version)
		VALUES (?, ?, ?, ?, ?)`

	queryInsertTransaction = `
		INSERT INTO transactions (
			id, account_id, asset, transaction_type, amount, balance_before, balance_after,
			reference, counterparty, status, created_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpdateAccountBalance = `
		UPDATE account_balances
		SET balance = ?, last_transaction_id = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE account_id = ? AND asset = ? AND version = ?`

	queryInsertJournalEntry = `
		INSERT INTO journal_entries (id, transaction_id, account_type, account_id, debit_amount, credit_amount)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetTransactionHistory = `
		SELECT id, account_id, asset, transaction_type, amount, balance_before, balance_after,
		       reference, counterparty, status, created_at, processed_at
		FROM transactions
		WHERE account_id = ? AND asset = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	// Item ownership queries
	queryGetItemOwner = `
		SELECT owner FROM item_owners WHERE collection = ? AND item_id = ?`

	queryUpsertItemOwner = `
		INSERT INTO item_owners (collection, item_id, owner) VALUES (?, ?, ?)
		ON CONFLICT(collection, item_id) DO UPDATE SET owner = excluded.owner, updated_at = CURRENT_TIMESTAMP`

	queryCountOwnedItems = `
		SELECT COUNT(*) FROM item_owners WHERE collection = ? AND owner = ?`

	queryCountIssuedItems = `
		SELECT COUNT(*) FROM item_owners WHERE collection = ? AND owner != ?`
)
