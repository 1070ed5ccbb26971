package sale_test

import (
	"context"
	"sync"
	"testing"

	"mint-sale-go/internal/models"
	"mint-sale-go/internal/pricing"
	"mint-sale-go/internal/sale"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDeposit_MovesFundsIntoEscrow(t *testing.T) {
	h := newHarness(t)
	id := h.createSession(t, sessionConfig())
	h.fund(t, "alice", 500)

	h.deposit(t, "alice", id, 300, allocationStart)

	deposit := h.depositOf(t, "alice", id)
	require.True(t, deposit.Amount.Equal(dec(300)))
	require.True(t, deposit.LossPenalty.IsZero())
	require.True(t, h.session(t, id).TotalDeposited.Equal(dec(300)))
	require.True(t, h.balance(t, "alice").Equal(dec(200)))
	require.True(t, h.balance(t, h.ledger.EscrowAccount()).Equal(dec(300)))
}

func TestDeposit_OutsideAllocationWindow(t *testing.T) {
	h := newHarness(t)
	id := h.createSession(t, sessionConfig())
	h.fund(t, "alice", 100)

	for _, now := range []int64{allocationStart - 1, allocationEnd + 1, mintingStart} {
		h.clock.Set(now)
		err := h.engine.Deposit(context.Background(), "alice", id, dec(10))
		saleErr := requireKind(t, err, sale.ErrNonAllocation)
		require.Equal(t, now, saleErr.Now)
		require.Equal(t, int64(allocationStart), saleErr.Start)
		require.Equal(t, int64(allocationEnd), saleErr.End)
	}

	require.True(t, h.balance(t, "alice").Equal(dec(100)))
}

func TestDeposit_InvalidAmount(t *testing.T) {
	h := newHarness(t)
	id := h.createSession(t, sessionConfig())
	h.clock.Set(allocationStart)

	for _, amount := range []decimal.Decimal{decimal.Zero, dec(-5), decimal.RequireFromString("0.5")} {
		err := h.engine.Deposit(context.Background(), "alice", id, amount)
		requireKind(t, err, sale.ErrInvalidAmount)
	}
}

func TestDeposit_TransferFailureLeavesNoTrace(t *testing.T) {
	h := newHarness(t)
	id := h.createSession(t, sessionConfig())
	h.fund(t, "alice", 100)
	h.clock.Set(allocationStart + 500)

	h.assets.failIn.Store(true)
	err := h.engine.Deposit(context.Background(), "alice", id, dec(100))
	require.ErrorIs(t, err, errTransfer)

	deposit := h.depositOf(t, "alice", id)
	require.True(t, deposit.Amount.IsZero())
	require.True(t, deposit.LossPenalty.IsZero())
	require.True(t, h.session(t, id).TotalDeposited.IsZero())
	require.True(t, h.balance(t, "alice").Equal(dec(100)))
}

func TestDeposit_UnfundedUserFails(t *testing.T) {
	h := newHarness(t)
	id := h.createSession(t, sessionConfig())
	h.clock.Set(allocationStart)

	err := h.engine.Deposit(context.Background(), "alice", id, dec(100))
	require.Error(t, err)
	require.True(t, h.session(t, id).TotalDeposited.IsZero())
}

func TestDeposit_PenaltyIsAmountWeighted(t *testing.T) {
	h := newHarness(t)
	id := h.createSession(t, sessionConfig())
	h.fund(t, "alice", 200)

	h.deposit(t, "alice", id, 100, allocationStart)
	h.deposit(t, "alice", id, 100, allocationEnd)

	deposit := h.depositOf(t, "alice", id)
	require.True(t, deposit.LossPenalty.Equal(pricing.FloorDiv(pricing.One, dec(2))), "penalty %s", deposit.LossPenalty)

	result, err := h.engine.Withdraw(context.Background(), "alice", id, dec(100))
	require.NoError(t, err)
	require.True(t, result.Payout.Equal(dec(50)))
	require.True(t, result.Forfeited.Equal(dec(50)))
	require.True(t, result.Remaining.Equal(dec(100)))

	// forfeited funds stay in escrow
	require.True(t, h.balance(t, h.ledger.EscrowAccount()).Equal(dec(150)))
	require.True(t, h.balance(t, "alice").Equal(dec(50)))
}

func TestWithdraw_PenaltyBounds(t *testing.T) {
	h := newHarness(t)
	id := h.createSession(t, sessionConfig())
	h.fund(t, "early", 100)
	h.fund(t, "late", 100)

	h.deposit(t, "early", id, 100, allocationStart)
	h.deposit(t, "late", id, 100, allocationEnd)

	require.True(t, h.depositOf(t, "early", id).LossPenalty.IsZero())
	require.True(t, h.depositOf(t, "late", id).LossPenalty.Equal(pricing.One))

	early, err := h.engine.Withdraw(context.Background(), "early", id, dec(100))
	require.NoError(t, err)
	require.True(t, early.Payout.Equal(dec(100)))

	late, err := h.engine.Withdraw(context.Background(), "late", id, dec(100))
	require.NoError(t, err)
	require.True(t, late.Payout.IsZero())
	require.True(t, late.Forfeited.Equal(dec(100)))
	require.True(t, h.balance(t, "late").IsZero())
}

func TestWithdraw_ExceedingDeposit(t *testing.T) {
	h := newHarness(t)
	id := h.createSession(t, sessionConfig())
	h.fund(t, "alice", 100)
	h.deposit(t, "alice", id, 100, allocationStart)

	_, err := h.engine.Withdraw(context.Background(), "alice", id, dec(101))
	saleErr := requireKind(t, err, sale.ErrInsufficientDeposits)
	require.True(t, saleErr.Have.Equal(dec(100)))
	require.True(t, saleErr.Want.Equal(dec(101)))

	require.True(t, h.depositOf(t, "alice", id).Amount.Equal(dec(100)))
}

func TestWithdraw_JustPastAllocationWindow(t *testing.T) {
	for _, option := range []models.RolloverOption{models.RolloverRestart, models.RolloverGuaranteedMint, models.RolloverClose} {
		t.Run(string(option), func(t *testing.T) {
			h := newHarness(t)
			cfg := sessionConfig()
			cfg.RolloverOption = option
			id := h.createSession(t, cfg)
			h.fund(t, "alice", 100)
			h.deposit(t, "alice", id, 100, allocationStart)

			h.clock.Set(allocationEnd + 1)
			_, err := h.engine.Withdraw(context.Background(), "alice", id, dec(10))
			requireKind(t, err, sale.ErrNonAllocation)
		})
	}
}

func TestWithdraw_PostClose(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cfg := sessionConfig()
	cfg.MaxSupply = 1_000
	id := h.createSession(t, cfg)

	h.fund(t, "whale", 10_000)
	h.fund(t, "minnow", 5)
	h.fund(t, "latecomer", 100)
	h.deposit(t, "whale", id, 10_000, allocationStart)
	h.deposit(t, "minnow", id, 5, allocationEnd)
	h.deposit(t, "latecomer", id, 100, allocationEnd)

	// not yet rolled over
	h.clock.Set(mintingEnd + 1)
	_, err := h.engine.Withdraw(ctx, "whale", id, dec(10_000))
	requireKind(t, err, sale.ErrNonAllocation)

	_, err = h.engine.Rollover(ctx, "coordinator", id)
	require.NoError(t, err)

	// price = floor(10105 / 1000) = 10, the minnow could never mint
	minnow, err := h.engine.Withdraw(ctx, "minnow", id, dec(5))
	require.NoError(t, err)
	require.True(t, minnow.Payout.Equal(dec(5)))
	require.True(t, minnow.Penalty.IsZero())
	require.True(t, h.session(t, id).ResultPrice.Equal(dec(10)))

	latecomer, err := h.engine.Withdraw(ctx, "latecomer", id, dec(100))
	require.NoError(t, err)
	require.True(t, latecomer.Payout.IsZero())

	whale, err := h.engine.Withdraw(ctx, "whale", id, dec(10_000))
	require.NoError(t, err)
	require.True(t, whale.Payout.Equal(dec(10_000)))

	require.True(t, h.session(t, id).TotalDeposited.IsZero())
	h.requireConserved(t, id)
}

func TestWithdraw_PostCloseStartsAfterMintingEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.createSession(t, sessionConfig())
	h.fund(t, "alice", 100)
	h.deposit(t, "alice", id, 100, allocationStart)

	h.clock.Set(mintingEnd)
	_, err := h.engine.Rollover(ctx, "coordinator", id)
	require.NoError(t, err)
	require.True(t, h.session(t, id).Closed)

	_, err = h.engine.Withdraw(ctx, "alice", id, dec(100))
	requireKind(t, err, sale.ErrNonAllocation)

	// minting is still open for the last second of the window
	_, err = h.engine.Mint(ctx, "alice", id, dec(10))
	require.NoError(t, err)

	h.clock.Set(mintingEnd + 1)
	result, err := h.engine.Withdraw(ctx, "alice", id, dec(90))
	require.NoError(t, err)
	require.True(t, result.Remaining.IsZero())
	h.requireConserved(t, id)
}

func TestWithdraw_TransferFailureLeavesNoTrace(t *testing.T) {
	h := newHarness(t)
	id := h.createSession(t, sessionConfig())
	h.fund(t, "alice", 100)
	h.deposit(t, "alice", id, 100, allocationStart)

	h.assets.failOut.Store(true)
	_, err := h.engine.Withdraw(context.Background(), "alice", id, dec(60))
	require.ErrorIs(t, err, errTransfer)

	require.True(t, h.depositOf(t, "alice", id).Amount.Equal(dec(100)))
	require.True(t, h.session(t, id).TotalDeposited.Equal(dec(100)))
	require.True(t, h.balance(t, "alice").IsZero())
}

func TestLedgerConservation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.createSession(t, sessionConfig())

	users := []string{"alice", "bob", "carol", "dave"}
	for _, u := range users {
		h.fund(t, u, 1_000)
	}

	for i, u := range users {
		h.deposit(t, u, id, int64(100*(i+1)), allocationStart+int64(200*i))
		h.requireConserved(t, id)
	}

	h.clock.Set(allocationStart + 900)
	_, err := h.engine.Withdraw(ctx, "bob", id, dec(50))
	require.NoError(t, err)
	h.requireConserved(t, id)

	h.clock.Set(mintingStart)
	_, err = h.engine.Mint(ctx, "carol", id, dec(300))
	require.NoError(t, err)
	h.requireConserved(t, id)

	_, err = h.engine.Forgo(ctx, "dave", id, dec(400))
	require.NoError(t, err)
	h.requireConserved(t, id)
}

func TestDeposit_Concurrent(t *testing.T) {
	h := newHarness(t)
	id := h.createSession(t, sessionConfig())
	h.clock.Set(allocationStart)

	const users = 8
	for i := 0; i < users; i++ {
		h.fund(t, userName(i), 100)
	}

	var wg sync.WaitGroup
	errs := make(chan error, users*2)
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 2; j++ {
				errs <- h.engine.Deposit(context.Background(), userName(i), id, dec(50))
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.True(t, h.session(t, id).TotalDeposited.Equal(dec(users*100)))
	h.requireConserved(t, id)
}

func userName(i int) string {
	return string(rune('a'+i)) + "-user"
}
