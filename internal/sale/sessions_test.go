package sale_test

import (
	"context"
	"fmt"
	"testing"

	"mint-sale-go/internal/models"
	"mint-sale-go/internal/sale"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := sale.New(sale.Config{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "sale store is required")
}

func TestCreateSession_Validation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		mutate func(cfg *models.SessionConfig)
		valid  bool
	}{
		{"valid", func(cfg *models.SessionConfig) {}, true},
		{"zero length cooldown", func(cfg *models.SessionConfig) { cfg.MintingStart = cfg.AllocationEnd }, true},
		{"allocation start equals end", func(cfg *models.SessionConfig) { cfg.AllocationEnd = cfg.AllocationStart }, false},
		{"allocation end after minting start", func(cfg *models.SessionConfig) { cfg.AllocationEnd = cfg.MintingStart + 1 }, false},
		{"minting start equals end", func(cfg *models.SessionConfig) { cfg.MintingEnd = cfg.MintingStart }, false},
		{"zero supply", func(cfg *models.SessionConfig) { cfg.MaxSupply = 0 }, false},
		{"negative supply", func(cfg *models.SessionConfig) { cfg.MaxSupply = -5 }, false},
		{"zero min price", func(cfg *models.SessionConfig) { cfg.MinPrice = decimal.Zero }, false},
		{"fractional min price", func(cfg *models.SessionConfig) { cfg.MinPrice = decimal.RequireFromString("1.5") }, false},
		{"missing coordinator", func(cfg *models.SessionConfig) { cfg.Coordinator = "" }, false},
		{"missing collection", func(cfg *models.SessionConfig) { cfg.ItemCollection = "" }, false},
		{"missing asset", func(cfg *models.SessionConfig) { cfg.DepositAsset = "" }, false},
		{"unknown rollover", func(cfg *models.SessionConfig) { cfg.RolloverOption = "forever" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := sessionConfig()
			tt.mutate(&cfg)

			session, err := h.engine.CreateSession(context.Background(), cfg)
			if tt.valid {
				require.NoError(t, err)
				require.Positive(t, session.Id)
				require.True(t, session.TotalDeposited.IsZero())
				require.True(t, session.ResultPrice.IsZero())
				require.Zero(t, session.NextItemIndex)
				return
			}
			requireKind(t, err, sale.ErrInvalidBounds)
		})
	}
}

func TestCreateSession_MonotonicIds(t *testing.T) {
	h := newHarness(t)

	ids := make([]int64, 3)
	for i := range ids {
		cfg := sessionConfig()
		cfg.ItemCollection = fmt.Sprintf("collection-%d", i)
		ids[i] = h.createSession(t, cfg)
	}
	first, second, third := ids[0], ids[1], ids[2]

	require.Greater(t, second, first)
	require.Greater(t, third, second)
}

func TestGetSession_Unknown(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.GetSession(context.Background(), 42)
	saleErr := requireKind(t, err, sale.ErrInvalidSession)
	require.Equal(t, int64(42), saleErr.SessionId)

	err = h.engine.Deposit(context.Background(), "alice", 42, dec(10))
	requireKind(t, err, sale.ErrInvalidSession)
}

func TestClearSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.createSession(t, sessionConfig())
	h.fund(t, "alice", 100)
	h.deposit(t, "alice", id, 100, allocationStart)

	h.clock.Set(mintingEnd)
	err := h.engine.ClearSession(ctx, "coordinator", id)
	requireKind(t, err, sale.ErrSessionActive)

	_, err = h.engine.Rollover(ctx, "coordinator", id)
	require.NoError(t, err)

	err = h.engine.ClearSession(ctx, "coordinator", id)
	requireKind(t, err, sale.ErrSessionActive)

	h.clock.Set(mintingEnd + 1)
	_, err = h.engine.Withdraw(ctx, "alice", id, dec(100))
	require.NoError(t, err)

	err = h.engine.ClearSession(ctx, "mallory", id)
	requireKind(t, err, sale.ErrInvalidCoordinator)

	require.NoError(t, h.engine.ClearSession(ctx, "coordinator", id))

	_, err = h.engine.GetSession(ctx, id)
	requireKind(t, err, sale.ErrInvalidSession)

	next := h.createSession(t, sessionConfig())
	require.Greater(t, next, id)
}

func TestCreateSession_CollectionAlreadyBound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.createSession(t, sessionConfig())

	_, err := h.engine.CreateSession(ctx, sessionConfig())
	requireKind(t, err, sale.ErrInvalidBounds)

	other := sessionConfig()
	other.ItemCollection = "second"
	h.createSession(t, other)

	sessions, err := h.engine.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, id, sessions[0].Id)
}

func TestCreateSession_CollectionWithIssuedItems(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.createSession(t, sessionConfig())
	h.fund(t, "alice", 100)
	h.deposit(t, "alice", id, 100, allocationStart)

	h.clock.Set(mintingStart)
	_, err := h.engine.Mint(ctx, "alice", id, dec(100))
	require.NoError(t, err)

	h.clock.Set(mintingEnd)
	_, err = h.engine.Rollover(ctx, "coordinator", id)
	require.NoError(t, err)
	require.NoError(t, h.engine.ClearSession(ctx, "coordinator", id))

	// the cleared row no longer holds the collection, but alice still owns items 0..n
	_, err = h.engine.CreateSession(ctx, sessionConfig())
	requireKind(t, err, sale.ErrInvalidBounds)
}
