package sale

import (
	"context"
	"math"

	"mint-sale-go/internal/models"
	"mint-sale-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Rollover applies the session's rollover option once its minting window has
// ended. Only the coordinator may call it.
//
//   - restart starts a new epoch: all four bounds shift so allocation begins now,
//     window widths are preserved, and the clearing price is reset. Deposits and
//     penalties carry over.
//   - guaranteed_mint keeps the minting window open forever at the current price.
//   - close marks the session wound down, enabling post-close withdrawals.
func (e *Engine) Rollover(ctx context.Context, caller string, sessionId int64) (*models.Session, error) {
	const op = "rollover"
	defer e.locks.lock(sessionKey(sessionId))()

	now := e.clock.Now()
	ref := reference(ctx)
	var result *models.Session

	err := e.store.InTx(ctx, func(tx store.SaleTx) error {
		session, err := e.loadSession(ctx, tx, op, sessionId)
		if err != nil {
			return err
		}
		if caller != session.Coordinator {
			return coordinatorError(op, sessionId, caller, session.Coordinator)
		}
		if now < session.MintingEnd {
			return windowError(ErrMintingNotOver, op, sessionId, now, session.MintingStart, session.MintingEnd)
		}

		switch session.RolloverOption {
		case models.RolloverRestart:
			restart(session, now)
		case models.RolloverGuaranteedMint:
			session.MintingEnd = math.MaxInt64
		case models.RolloverClose:
			if session.Closed {
				result = session
				return nil
			}
			session.Closed = true
		}

		if err := tx.UpdateSession(ctx, session); err != nil {
			return err
		}
		if err := tx.RecordEntry(ctx, models.SaleEntry{
			SessionId: sessionId,
			UserId:    caller,
			EntryType: op,
			Amount:    decimal.Zero,
			Reference: ref,
			Timestamp: now,
		}); err != nil {
			return err
		}

		zap.L().Info("Rollover applied",
			zap.Int64("session_id", sessionId),
			zap.String("option", string(session.RolloverOption)),
			zap.Int64("epoch", session.Epoch),
			zap.Int64("allocation_start", session.AllocationStart),
			zap.Int64("allocation_end", session.AllocationEnd),
			zap.Int64("minting_start", session.MintingStart),
			zap.Int64("minting_end", session.MintingEnd))
		result = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func restart(session *models.Session, now int64) {
	allocationPeriod := session.AllocationEnd - session.AllocationStart
	cooldown := session.MintingStart - session.AllocationEnd
	mintingPeriod := session.MintingEnd - session.MintingStart

	session.AllocationStart = now
	session.AllocationEnd = now + allocationPeriod
	session.MintingStart = session.AllocationEnd + cooldown
	session.MintingEnd = session.MintingStart + mintingPeriod
	session.ResultPrice = decimal.Zero
	session.Epoch++
}
