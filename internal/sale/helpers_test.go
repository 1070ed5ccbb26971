package sale_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"mint-sale-go/internal/database"
	"mint-sale-go/internal/models"
	"mint-sale-go/internal/sale"
	"mint-sale-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	allocationStart = 1_000
	allocationEnd   = 2_000
	mintingStart    = 2_500
	mintingEnd      = 3_500
)

var errTransfer = errors.New("transfer rejected")

type testClock struct {
	now atomic.Int64
}

func (c *testClock) Now() int64 {
	return c.now.Load()
}

func (c *testClock) Set(now int64) {
	c.now.Store(now)
}

// flakyAssets fails transfers on demand and otherwise delegates to the subledger.
type flakyAssets struct {
	store.AssetLedger
	failIn  atomic.Bool
	failOut atomic.Bool
}

func (f *flakyAssets) TransferIn(ctx context.Context, from, asset string, amount decimal.Decimal, reference string) error {
	if f.failIn.Load() {
		return errTransfer
	}
	return f.AssetLedger.TransferIn(ctx, from, asset, amount, reference)
}

func (f *flakyAssets) TransferOut(ctx context.Context, to, asset string, amount decimal.Decimal, reference string) error {
	if f.failOut.Load() {
		return errTransfer
	}
	return f.AssetLedger.TransferOut(ctx, to, asset, amount, reference)
}

type flakyItems struct {
	store.ItemLedger
	fail atomic.Bool
}

func (f *flakyItems) TransferItems(ctx context.Context, collection, from, to string, itemIds []int64) error {
	if f.fail.Load() {
		return errTransfer
	}
	return f.ItemLedger.TransferItems(ctx, collection, from, to, itemIds)
}

type flakyPayout struct {
	sale.LedgerPayout
	fail atomic.Bool
}

func (f *flakyPayout) Disburse(ctx context.Context, to, asset string, amount decimal.Decimal, reference string) error {
	if f.fail.Load() {
		return errTransfer
	}
	return f.LedgerPayout.Disburse(ctx, to, asset, amount, reference)
}

type harness struct {
	engine *sale.Engine
	clock  *testClock
	store  *database.Service
	ledger *database.SubledgerService
	assets *flakyAssets
	items  *flakyItems
	payout *flakyPayout
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	dbConfig := func(name string) models.DatabaseConfig {
		return models.DatabaseConfig{
			Path:         filepath.Join(dir, name),
			MaxOpenConns: 4,
			MaxIdleConns: 2,
			PingTimeout:  5 * time.Second,
		}
	}

	saleStore, err := database.NewService(ctx, dbConfig("sale.db"))
	require.NoError(t, err)
	t.Cleanup(saleStore.Close)

	ledger, err := database.OpenSubledger(ctx, dbConfig("ledger.db"), "")
	require.NoError(t, err)
	t.Cleanup(ledger.Close)

	h := &harness{
		clock:  &testClock{},
		store:  saleStore,
		ledger: ledger,
		assets: &flakyAssets{AssetLedger: ledger},
		items:  &flakyItems{ItemLedger: ledger},
	}
	h.payout = &flakyPayout{LedgerPayout: sale.LedgerPayout{Ledger: ledger}}

	h.engine, err = sale.New(sale.Config{
		Store:  saleStore,
		Assets: h.assets,
		Items:  h.items,
		Payout: h.payout,
		Clock:  h.clock,
	})
	require.NoError(t, err)
	return h
}

func sessionConfig() models.SessionConfig {
	return models.SessionConfig{
		ItemCollection:  "genesis",
		Coordinator:     "coordinator",
		DepositAsset:    "USDC",
		AllocationStart: allocationStart,
		AllocationEnd:   allocationEnd,
		MintingStart:    mintingStart,
		MintingEnd:      mintingEnd,
		MinPrice:        decimal.NewFromInt(1),
		MaxSupply:       10_000,
		RolloverOption:  models.RolloverClose,
	}
}

func (h *harness) createSession(t *testing.T, cfg models.SessionConfig) int64 {
	t.Helper()
	session, err := h.engine.CreateSession(context.Background(), cfg)
	require.NoError(t, err)
	return session.Id
}

func (h *harness) fund(t *testing.T, userId string, amount int64) {
	t.Helper()
	_, err := h.ledger.ProcessTransaction(context.Background(), database.ProcessTransactionParams{
		AccountId:       userId,
		Asset:           "USDC",
		TransactionType: "deposit",
		Amount:          decimal.NewFromInt(amount),
		Reference:       uuid.New().String(),
	})
	require.NoError(t, err)
}

func (h *harness) deposit(t *testing.T, userId string, sessionId, amount, at int64) {
	t.Helper()
	h.clock.Set(at)
	require.NoError(t, h.engine.Deposit(context.Background(), userId, sessionId, decimal.NewFromInt(amount)))
}

func (h *harness) balance(t *testing.T, accountId string) decimal.Decimal {
	t.Helper()
	balance, err := h.ledger.GetBalance(context.Background(), accountId, "USDC")
	require.NoError(t, err)
	return balance
}

func (h *harness) session(t *testing.T, sessionId int64) *models.Session {
	t.Helper()
	session, err := h.engine.GetSession(context.Background(), sessionId)
	require.NoError(t, err)
	return session
}

func (h *harness) depositOf(t *testing.T, userId string, sessionId int64) *models.UserDeposit {
	t.Helper()
	deposit, err := h.engine.GetDeposit(context.Background(), userId, sessionId)
	require.NoError(t, err)
	return deposit
}

// requireConserved checks that the session total equals the sum of live deposits.
func (h *harness) requireConserved(t *testing.T, sessionId int64) {
	t.Helper()
	deposits, err := h.store.ListDeposits(context.Background(), sessionId)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, d := range deposits {
		sum = sum.Add(d.Amount)
	}
	session := h.session(t, sessionId)
	require.True(t, session.TotalDeposited.Equal(sum),
		"total deposited %s != sum of deposits %s", session.TotalDeposited, sum)
}

func requireKind(t *testing.T, err error, kind error) *sale.Error {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)

	var saleErr *sale.Error
	require.ErrorAs(t, err, &saleErr)
	return saleErr
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
