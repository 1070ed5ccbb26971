package sale

import (
	"context"
	"errors"
	"fmt"

	"mint-sale-go/internal/models"
	"mint-sale-go/internal/pricing"
	"mint-sale-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateSession validates cfg and persists a new session in epoch 0.
func (e *Engine) CreateSession(ctx context.Context, cfg models.SessionConfig) (*models.Session, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	// Item ids restart at 0 in every session, so a collection with items
	// already out of escrow cannot back a new one.
	issued, err := e.items.Issued(ctx, cfg.ItemCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to check item collection: %w", err)
	}
	if issued > 0 {
		return nil, boundsError(fmt.Sprintf("collection %s already has %d issued items", cfg.ItemCollection, issued))
	}

	session, err := e.store.CreateSession(ctx, cfg)
	if err != nil {
		if errors.Is(err, store.ErrCollectionInUse) {
			return nil, boundsError(fmt.Sprintf("collection %s is already bound to a session", cfg.ItemCollection))
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	zap.L().Info("Session created",
		zap.Int64("session_id", session.Id),
		zap.String("collection", session.ItemCollection),
		zap.String("coordinator", session.Coordinator),
		zap.String("asset", session.DepositAsset),
		zap.Int64("allocation_start", session.AllocationStart),
		zap.Int64("allocation_end", session.AllocationEnd),
		zap.Int64("minting_start", session.MintingStart),
		zap.Int64("minting_end", session.MintingEnd),
		zap.String("min_price", session.MinPrice.String()),
		zap.Int64("max_supply", session.MaxSupply),
		zap.String("rollover", string(session.RolloverOption)))
	return session, nil
}

func validateConfig(cfg models.SessionConfig) error {
	switch {
	case cfg.ItemCollection == "":
		return boundsError("item collection is required")
	case cfg.Coordinator == "":
		return boundsError("coordinator is required")
	case cfg.DepositAsset == "":
		return boundsError("deposit asset is required")
	case !cfg.RolloverOption.Valid():
		return boundsError(fmt.Sprintf("unknown rollover option %q", cfg.RolloverOption))
	case cfg.MaxSupply <= 0:
		return boundsError(fmt.Sprintf("max supply must be positive, got %d", cfg.MaxSupply))
	case !pricing.IsWholeUnits(cfg.MinPrice):
		return boundsError(fmt.Sprintf("min price must be a positive whole number, got %s", cfg.MinPrice))
	case cfg.AllocationStart >= cfg.AllocationEnd:
		return boundsError(fmt.Sprintf("allocation start %d must precede allocation end %d", cfg.AllocationStart, cfg.AllocationEnd))
	case cfg.AllocationEnd > cfg.MintingStart:
		return boundsError(fmt.Sprintf("allocation end %d must not follow minting start %d", cfg.AllocationEnd, cfg.MintingStart))
	case cfg.MintingStart >= cfg.MintingEnd:
		return boundsError(fmt.Sprintf("minting start %d must precede minting end %d", cfg.MintingStart, cfg.MintingEnd))
	}
	return nil
}

// GetSession returns the committed state of a session.
func (e *Engine) GetSession(ctx context.Context, sessionId int64) (*models.Session, error) {
	session, err := e.store.GetSession(ctx, sessionId)
	if err != nil {
		if isNotFound(err) {
			return nil, sessionError("get", sessionId)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (e *Engine) ListSessions(ctx context.Context) ([]models.Session, error) {
	return e.store.ListSessions(ctx)
}

// GetDeposit returns a user's live deposit, zero if they never deposited.
func (e *Engine) GetDeposit(ctx context.Context, userId string, sessionId int64) (*models.UserDeposit, error) {
	if _, err := e.GetSession(ctx, sessionId); err != nil {
		return nil, err
	}
	return e.store.GetDeposit(ctx, userId, sessionId)
}

// ClearSession deletes a closed session once every deposit has left it.
func (e *Engine) ClearSession(ctx context.Context, caller string, sessionId int64) error {
	const op = "clear"
	defer e.locks.lock(sessionKey(sessionId))()

	return e.store.InTx(ctx, func(tx store.SaleTx) error {
		session, err := e.loadSession(ctx, tx, op, sessionId)
		if err != nil {
			return err
		}
		if caller != session.Coordinator {
			return coordinatorError(op, sessionId, caller, session.Coordinator)
		}
		live, err := tx.SumDeposits(ctx, sessionId)
		if err != nil {
			return err
		}
		if !session.Closed || !session.TotalDeposited.IsZero() || !live.IsZero() {
			return &Error{
				Kind:      ErrSessionActive,
				Op:        op,
				SessionId: sessionId,
				Have:      session.TotalDeposited,
				Want:      decimal.Zero,
				Detail:    fmt.Sprintf("closed=%t total deposited %s live deposits %s", session.Closed, session.TotalDeposited, live),
			}
		}

		if err := tx.DeleteSession(ctx, sessionId); err != nil {
			return err
		}

		zap.L().Info("Session cleared", zap.Int64("session_id", sessionId), zap.String("coordinator", caller))
		return nil
	})
}
