package database

import (
	"context"
	"errors"
	"testing"

	"mint-sale-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestProcessTransaction_Deposit(t *testing.T) {
	service, cleanup := setupTestSubledger(t)
	defer cleanup()

	ctx := context.Background()
	amount := decimal.NewFromInt(1500)

	result, err := service.ProcessTransaction(ctx, ProcessTransactionParams{
		AccountId:       "user1",
		Asset:           "USDC",
		TransactionType: "deposit",
		Amount:          amount,
		Reference:       "tx1",
	})
	if err != nil {
		t.Fatalf("ProcessTransaction failed: %v", err)
	}

	if result.AccountId != "user1" {
		t.Errorf("Expected account user1, got %s", result.AccountId)
	}
	if !result.Amount.Equal(amount) {
		t.Errorf("Expected amount %s, got %s", amount.String(), result.Amount.String())
	}
	if !result.BalanceAfter.Equal(amount) {
		t.Errorf("Expected balance %s, got %s", amount.String(), result.BalanceAfter.String())
	}
}

func TestProcessTransaction_DuplicateHandling(t *testing.T) {
	service, cleanup := setupTestSubledger(t)
	defer cleanup()

	ctx := context.Background()
	params := ProcessTransactionParams{
		AccountId:       "user1",
		Asset:           "USDC",
		TransactionType: "deposit",
		Amount:          decimal.NewFromInt(1),
		Reference:       "duplicate-tx",
	}

	if _, err := service.ProcessTransaction(ctx, params); err != nil {
		t.Fatalf("First ProcessTransaction failed: %v", err)
	}

	_, err := service.ProcessTransaction(ctx, params)
	if !errors.Is(err, store.ErrDuplicateTransaction) {
		t.Errorf("Expected duplicate transaction error, got: %v", err)
	}
}

func TestProcessTransaction_NegativeBalanceAllowed(t *testing.T) {
	service, cleanup := setupTestSubledger(t)
	defer cleanup()

	withdrawal := decimal.NewFromInt(-10)
	result, err := service.ProcessTransaction(context.Background(), ProcessTransactionParams{
		AccountId:       "user1",
		Asset:           "USDC",
		TransactionType: "withdrawal",
		Amount:          withdrawal,
		Reference:       "tx1",
	})
	if err != nil {
		t.Fatalf("ProcessTransaction with negative balance failed: %v", err)
	}

	if !result.BalanceAfter.Equal(withdrawal) {
		t.Errorf("Expected negative balance %s, got %s", withdrawal.String(), result.BalanceAfter.String())
	}
}

func TestTransferInAndOut(t *testing.T) {
	service, cleanup := setupTestSubledger(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := service.ProcessTransaction(ctx, ProcessTransactionParams{
		AccountId: "alice", Asset: "USDC", TransactionType: "deposit", Amount: decimal.NewFromInt(1000), Reference: "fund",
	}); err != nil {
		t.Fatalf("Funding failed: %v", err)
	}

	if err := service.TransferIn(ctx, "alice", "USDC", decimal.NewFromInt(600), "in-1"); err != nil {
		t.Fatalf("TransferIn failed: %v", err)
	}
	if err := service.TransferOut(ctx, "alice", "USDC", decimal.NewFromInt(250), "out-1"); err != nil {
		t.Fatalf("TransferOut failed: %v", err)
	}

	alice, err := service.GetBalance(ctx, "alice", "USDC")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	escrow, err := service.GetBalance(ctx, service.EscrowAccount(), "USDC")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}

	if !alice.Equal(decimal.NewFromInt(650)) {
		t.Errorf("Expected alice balance 650, got %s", alice)
	}
	if !escrow.Equal(decimal.NewFromInt(350)) {
		t.Errorf("Expected escrow balance 350, got %s", escrow)
	}

	for _, account := range []string{"alice", service.EscrowAccount()} {
		if err := service.ReconcileBalance(ctx, account, "USDC"); err != nil {
			t.Errorf("ReconcileBalance(%s) failed: %v", account, err)
		}
	}

	history, err := service.GetTransactionHistory(ctx, "alice", "USDC", 10, 0)
	if err != nil {
		t.Fatalf("GetTransactionHistory failed: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("Expected 3 history rows for alice, got %d", len(history))
	}
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	service, cleanup := setupTestSubledger(t)
	defer cleanup()

	ctx := context.Background()
	err := service.TransferIn(ctx, "bob", "USDC", decimal.NewFromInt(1), "in-1")
	if !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}

	balances, err := service.GetAllBalances(ctx, service.EscrowAccount())
	if err != nil {
		t.Fatalf("GetAllBalances failed: %v", err)
	}
	if len(balances) != 0 {
		t.Errorf("Expected no escrow balances after failed transfer, got %d", len(balances))
	}
}

func TestFund_IsIdempotent(t *testing.T) {
	service, cleanup := setupTestSubledger(t)
	defer cleanup()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := service.Fund(ctx, "alice", "USDC", decimal.NewFromInt(250), "seed:alice:USDC"); err != nil {
			t.Fatalf("Fund attempt %d failed: %v", i+1, err)
		}
	}

	balance, err := service.GetBalance(ctx, "alice", "USDC")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(250)) {
		t.Errorf("Expected balance 250 after repeated funding, got %s", balance)
	}
}
