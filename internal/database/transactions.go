package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mint-sale-go/internal/models"
	"mint-sale-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProcessTransactionParams contains the parameters for a single-sided posting,
// such as funding an account from outside the ledger.
type ProcessTransactionParams struct {
	AccountId       string
	Asset           string
	TransactionType string
	Amount          decimal.Decimal
	Reference       string
	Counterparty    string
}

// TransferParams moves Amount of Asset from one account to another.
type TransferParams struct {
	From      string
	To        string
	Asset     string
	Amount    decimal.Decimal
	Reference string
}

// ProcessTransaction atomically updates balance and records transaction.
// Negative balances are allowed so historical activity can be replayed.
func (s *SubledgerService) ProcessTransaction(ctx context.Context, params ProcessTransactionParams) (*models.Transaction, error) {
	zap.L().Info("Processing transaction",
		zap.String("account_id", params.AccountId),
		zap.String("asset", params.Asset),
		zap.String("type", params.TransactionType),
		zap.String("amount", params.Amount.String()),
		zap.String("reference", params.Reference))

	if err := s.checkDuplicate(ctx, params.Reference); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	transaction, err := s.post(ctx, tx, params)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Transaction processed successfully",
		zap.String("transaction_id", transaction.Id),
		zap.String("account_id", params.AccountId),
		zap.String("asset", params.Asset),
		zap.String("old_balance", transaction.BalanceBefore.String()),
		zap.String("new_balance", transaction.BalanceAfter.String()))

	return transaction, nil
}

// Transfer debits From and credits To in one database transaction. It fails
// with store.ErrInsufficientBalance if From cannot cover the amount.
func (s *SubledgerService) Transfer(ctx context.Context, params TransferParams) error {
	if !params.Amount.IsPositive() {
		return fmt.Errorf("transfer amount must be positive, got %s", params.Amount)
	}
	if err := s.checkDuplicate(ctx, params.Reference); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	balance, err := s.balanceIn(ctx, tx, params.From, params.Asset)
	if err != nil {
		return err
	}
	if balance.LessThan(params.Amount) {
		return fmt.Errorf("%w: account %s has %s %s, needs %s",
			store.ErrInsufficientBalance, params.From, balance, params.Asset, params.Amount)
	}

	if _, err := s.post(ctx, tx, ProcessTransactionParams{
		AccountId:       params.From,
		Asset:           params.Asset,
		TransactionType: "transfer-out",
		Amount:          params.Amount.Neg(),
		Reference:       params.Reference,
		Counterparty:    params.To,
	}); err != nil {
		return err
	}
	if _, err := s.post(ctx, tx, ProcessTransactionParams{
		AccountId:       params.To,
		Asset:           params.Asset,
		TransactionType: "transfer-in",
		Amount:          params.Amount,
		Reference:       params.Reference,
		Counterparty:    params.From,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}

	zap.L().Info("Transfer processed successfully",
		zap.String("from", params.From),
		zap.String("to", params.To),
		zap.String("asset", params.Asset),
		zap.String("amount", params.Amount.String()),
		zap.String("reference", params.Reference))
	return nil
}

// TransferIn moves a user's funds into the escrow account.
func (s *SubledgerService) TransferIn(ctx context.Context, from, asset string, amount decimal.Decimal, reference string) error {
	return s.Transfer(ctx, TransferParams{From: from, To: s.escrow, Asset: asset, Amount: amount, Reference: reference})
}

// TransferOut pays funds from the escrow account to a user.
func (s *SubledgerService) TransferOut(ctx context.Context, to, asset string, amount decimal.Decimal, reference string) error {
	return s.Transfer(ctx, TransferParams{From: s.escrow, To: to, Asset: asset, Amount: amount, Reference: reference})
}

// Fund credits a user's account from outside the ledger. A reference that was
// already posted is skipped, so seeding can be re-run.
func (s *SubledgerService) Fund(ctx context.Context, userId, asset string, amount decimal.Decimal, reference string) error {
	_, err := s.ProcessTransaction(ctx, ProcessTransactionParams{
		AccountId:       userId,
		Asset:           asset,
		TransactionType: "funding",
		Amount:          amount,
		Reference:       reference,
		Counterparty:    "external",
	})
	if errors.Is(err, store.ErrDuplicateTransaction) {
		return nil
	}
	return err
}

func (s *SubledgerService) checkDuplicate(ctx context.Context, reference string) error {
	if reference == "" {
		return nil
	}
	var existingTxId string
	err := s.db.QueryRowContext(ctx, queryCheckDuplicateTransaction, reference).Scan(&existingTxId)
	if err == nil {
		zap.L().Warn("Duplicate reference detected, skipping",
			zap.String("reference", reference),
			zap.String("existing_internal_tx_id", existingTxId))
		return fmt.Errorf("%w: reference %s already exists", store.ErrDuplicateTransaction, reference)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check for duplicate transaction: %w", err)
	}
	return nil
}

func (s *SubledgerService) balanceIn(ctx context.Context, tx *sql.Tx, accountId, asset string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRowContext(ctx, queryGetBalance, accountId, asset).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get current balance: %w", err)
	}
	return balance, nil
}

// post applies one posting inside tx: balance update, history row and journal entry.
func (s *SubledgerService) post(ctx context.Context, tx *sql.Tx, params ProcessTransactionParams) (*models.Transaction, error) {
	var accountId string
	var currentBalance decimal.Decimal
	var version int64

	err := tx.QueryRowContext(ctx, queryGetAccountBalance, params.AccountId, params.Asset).Scan(&accountId, &currentBalance, &version)
	if errors.Is(err, sql.ErrNoRows) {
		accountId = uuid.New().String()
		currentBalance = decimal.Zero
		version = 1

		_, err = tx.ExecContext(ctx, queryInsertAccountBalance, accountId, params.AccountId, params.Asset, "0", 1)
		if err != nil {
			return nil, fmt.Errorf("failed to create account balance: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	}

	newBalance := currentBalance.Add(params.Amount)

	now := time.Now()
	transaction := &models.Transaction{
		Id:              uuid.New().String(),
		AccountId:       params.AccountId,
		Asset:           params.Asset,
		TransactionType: params.TransactionType,
		Amount:          params.Amount,
		BalanceBefore:   currentBalance,
		BalanceAfter:    newBalance,
		Reference:       params.Reference,
		Counterparty:    params.Counterparty,
		Status:          "confirmed",
		CreatedAt:       now,
		ProcessedAt:     now,
	}

	_, err = tx.ExecContext(ctx, queryInsertTransaction,
		transaction.Id, transaction.AccountId, transaction.Asset, transaction.TransactionType,
		transaction.Amount.String(), transaction.BalanceBefore.String(), transaction.BalanceAfter.String(),
		transaction.Reference, transaction.Counterparty, transaction.Status, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	// Update account balance (with optimistic locking)
	result, err := tx.ExecContext(ctx, queryUpdateAccountBalance, newBalance.String(), transaction.Id, params.AccountId, params.Asset, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	if err := s.addJournalEntry(ctx, tx, transaction); err != nil {
		return nil, fmt.Errorf("failed to add journal entries: %w", err)
	}

	return transaction, nil
}

// addJournalEntry books one side of a posting: increases are debits, decreases credits.
func (s *SubledgerService) addJournalEntry(ctx context.Context, tx *sql.Tx, transaction *models.Transaction) error {
	accountType := "user_asset"
	if transaction.AccountId == s.escrow {
		accountType = "sale_escrow"
	}

	debit, credit := transaction.Amount, decimal.Zero
	if transaction.Amount.IsNegative() {
		debit, credit = decimal.Zero, transaction.Amount.Neg()
	}

	_, err := tx.ExecContext(ctx, queryInsertJournalEntry,
		uuid.New().String(), transaction.Id, accountType,
		fmt.Sprintf("%s_%s", transaction.AccountId, transaction.Asset),
		debit.String(), credit.String())
	return err
}

// GetTransactionHistory returns paginated transaction history for an account
func (s *SubledgerService) GetTransactionHistory(ctx context.Context, accountId, asset string, limit, offset int) ([]models.Transaction, error) {
	zap.L().Debug("Getting transaction history",
		zap.String("account_id", accountId),
		zap.String("asset", asset),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryGetTransactionHistory, accountId, asset, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var transactions []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var reference, counterparty sql.NullString
		err := rows.Scan(&tx.Id, &tx.AccountId, &tx.Asset, &tx.TransactionType,
			&tx.Amount, &tx.BalanceBefore, &tx.BalanceAfter,
			&reference, &counterparty, &tx.Status, &tx.CreatedAt, &tx.ProcessedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Reference = reference.String
		tx.Counterparty = counterparty.String
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transaction row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, nil
}
