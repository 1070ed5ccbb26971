package sale_test

import (
	"context"
	"math"
	"testing"

	"mint-sale-go/internal/models"
	"mint-sale-go/internal/sale"

	"github.com/stretchr/testify/require"
)

func TestRollover_NonCoordinator(t *testing.T) {
	h := newHarness(t)
	id := h.createSession(t, sessionConfig())

	for _, now := range []int64{allocationStart, mintingStart, mintingEnd, mintingEnd + 10_000} {
		h.clock.Set(now)
		_, err := h.engine.Rollover(context.Background(), "mallory", id)
		saleErr := requireKind(t, err, sale.ErrInvalidCoordinator)
		require.Equal(t, "mallory", saleErr.Caller)
	}
}

func TestRollover_MintingNotOver(t *testing.T) {
	h := newHarness(t)
	id := h.createSession(t, sessionConfig())

	h.clock.Set(mintingEnd - 1)
	_, err := h.engine.Rollover(context.Background(), "coordinator", id)
	saleErr := requireKind(t, err, sale.ErrMintingNotOver)
	require.Equal(t, int64(mintingEnd-1), saleErr.Now)
	require.Equal(t, int64(mintingEnd), saleErr.End)
}

func TestRollover_Restart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cfg := sessionConfig()
	cfg.RolloverOption = models.RolloverRestart
	id := h.createSession(t, cfg)

	h.fund(t, "alice", 1_010)
	h.deposit(t, "alice", id, 1_000, allocationStart)

	h.clock.Set(mintingStart)
	_, err := h.engine.Mint(ctx, "alice", id, dec(10))
	require.NoError(t, err)
	before := h.session(t, id)
	require.True(t, before.ResultPrice.IsPositive())

	const now = 10_000
	h.clock.Set(now)
	after, err := h.engine.Rollover(ctx, "coordinator", id)
	require.NoError(t, err)

	require.Equal(t, int64(now), after.AllocationStart)
	require.Equal(t, after.AllocationStart+(allocationEnd-allocationStart), after.AllocationEnd)
	require.Equal(t, after.AllocationEnd+(mintingStart-allocationEnd), after.MintingStart)
	require.Equal(t, after.MintingStart+(mintingEnd-mintingStart), after.MintingEnd)
	require.Greater(t, after.AllocationStart, before.AllocationStart)
	require.Greater(t, after.MintingEnd, before.MintingEnd)
	require.True(t, after.ResultPrice.IsZero())
	require.Equal(t, before.Epoch+1, after.Epoch)

	// deposits carry into the new epoch
	require.True(t, h.depositOf(t, "alice", id).Amount.Equal(dec(990)))
	require.True(t, after.TotalDeposited.Equal(dec(990)))

	h.clock.Set(after.AllocationStart)
	require.NoError(t, h.engine.Deposit(ctx, "alice", id, dec(10)))

	h.clock.Set(after.MintingStart)
	result, err := h.engine.Mint(ctx, "alice", id, dec(100))
	require.NoError(t, err)
	require.Equal(t, int64(10), result.FirstItemId)
}

func TestRollover_GuaranteedMint(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cfg := sessionConfig()
	cfg.RolloverOption = models.RolloverGuaranteedMint
	id := h.createSession(t, cfg)
	h.fund(t, "alice", 100)
	h.deposit(t, "alice", id, 100, allocationStart)

	h.clock.Set(mintingEnd)
	session, err := h.engine.Rollover(ctx, "coordinator", id)
	require.NoError(t, err)
	require.Equal(t, int64(math.MaxInt64), session.MintingEnd)

	h.clock.Set(1 << 40)
	result, err := h.engine.Mint(ctx, "alice", id, dec(100))
	require.NoError(t, err)
	require.Equal(t, int64(100), result.Items)

	_, err = h.engine.Rollover(ctx, "coordinator", id)
	requireKind(t, err, sale.ErrMintingNotOver)
}

func TestRollover_CloseIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.createSession(t, sessionConfig())

	h.clock.Set(mintingEnd)
	first, err := h.engine.Rollover(ctx, "coordinator", id)
	require.NoError(t, err)
	require.True(t, first.Closed)

	h.clock.Set(mintingEnd + 500)
	second, err := h.engine.Rollover(ctx, "coordinator", id)
	require.NoError(t, err)

	require.Equal(t, first.AllocationStart, second.AllocationStart)
	require.Equal(t, first.AllocationEnd, second.AllocationEnd)
	require.Equal(t, first.MintingStart, second.MintingStart)
	require.Equal(t, first.MintingEnd, second.MintingEnd)
	require.True(t, first.ResultPrice.Equal(second.ResultPrice))
	require.Equal(t, first.Epoch, second.Epoch)
	require.Equal(t, first.Version, h.session(t, id).Version)
}
