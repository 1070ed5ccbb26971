package sale

import (
	"context"
	"fmt"

	"mint-sale-go/internal/models"
	"mint-sale-go/internal/pricing"
	"mint-sale-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Deposit commits amount of the session's deposit asset during the allocation
// window. The user's loss penalty becomes the amount-weighted average of their
// previous penalty and the penalty at the time of this deposit.
func (e *Engine) Deposit(ctx context.Context, userId string, sessionId int64, amount decimal.Decimal) error {
	const op = "deposit"
	if err := checkAmount(op, sessionId, amount); err != nil {
		return err
	}
	defer e.locks.lock(sessionKey(sessionId))()

	now := e.clock.Now()
	ref := reference(ctx)
	var asset string
	moved := false

	err := e.store.InTx(ctx, func(tx store.SaleTx) error {
		session, err := e.loadSession(ctx, tx, op, sessionId)
		if err != nil {
			return err
		}
		if !session.InAllocation(now) {
			return windowError(ErrNonAllocation, op, sessionId, now, session.AllocationStart, session.AllocationEnd)
		}
		asset = session.DepositAsset

		deposit, err := tx.GetDeposit(ctx, userId, sessionId)
		if err != nil {
			return err
		}

		penalty := pricing.LossPenalty(session.AllocationStart, session.AllocationEnd, now)
		deposit.LossPenalty = pricing.WeightedPenalty(deposit.LossPenalty, deposit.Amount, penalty, amount)
		deposit.Amount = deposit.Amount.Add(amount)
		session.TotalDeposited = session.TotalDeposited.Add(amount)

		if err := tx.SaveDeposit(ctx, deposit); err != nil {
			return err
		}
		if err := tx.UpdateSession(ctx, session); err != nil {
			return err
		}
		if err := tx.RecordEntry(ctx, models.SaleEntry{
			SessionId: sessionId,
			UserId:    userId,
			EntryType: "deposit",
			Amount:    amount,
			Reference: ref,
			Timestamp: now,
		}); err != nil {
			return err
		}

		if err := e.assets.TransferIn(ctx, userId, session.DepositAsset, amount, ref); err != nil {
			return fmt.Errorf("failed to transfer deposit: %w", err)
		}
		moved = true

		zap.L().Info("Deposit accepted",
			zap.Int64("session_id", sessionId),
			zap.String("user_id", userId),
			zap.String("amount", amount.String()),
			zap.String("penalty", penalty.String()),
			zap.String("weighted_penalty", deposit.LossPenalty.String()),
			zap.String("total_deposited", session.TotalDeposited.String()))
		return nil
	})
	if err != nil && moved {
		e.compensate(op, sessionId, func(ctx context.Context) error {
			return e.assets.TransferOut(ctx, userId, asset, amount, ref+":reversal")
		})
	}
	return err
}

// Withdraw returns amount of the user's deposit net of their loss penalty. It is
// allowed during the allocation window, and after a Close rollover has been applied.
func (e *Engine) Withdraw(ctx context.Context, userId string, sessionId int64, amount decimal.Decimal) (*models.PayoutResult, error) {
	const op = "withdraw"
	if err := checkAmount(op, sessionId, amount); err != nil {
		return nil, err
	}
	defer e.locks.lock(sessionKey(sessionId))()

	now := e.clock.Now()
	ref := reference(ctx)
	var result *models.PayoutResult
	var asset string

	err := e.store.InTx(ctx, func(tx store.SaleTx) error {
		session, err := e.loadSession(ctx, tx, op, sessionId)
		if err != nil {
			return err
		}

		// The minting window is inclusive, so a Close applied at MintingEnd still
		// leaves that second to minters; post-close exits start one second later.
		postClose := session.RolloverOption == models.RolloverClose && session.Closed && now > session.MintingEnd
		if !session.InAllocation(now) && !postClose {
			return windowError(ErrNonAllocation, op, sessionId, now, session.AllocationStart, session.AllocationEnd)
		}

		deposit, err := tx.GetDeposit(ctx, userId, sessionId)
		if err != nil {
			return err
		}
		if amount.GreaterThan(deposit.Amount) {
			return balanceError(ErrInsufficientDeposits, op, sessionId, deposit.Amount, amount, "withdrawal exceeds deposit")
		}

		if postClose {
			price := e.resolvePrice(session)
			if deposit.Amount.LessThan(price) && !deposit.LossPenalty.IsZero() {
				zap.L().Info("Waiving loss penalty for deposit below clearing price",
					zap.Int64("session_id", sessionId),
					zap.String("user_id", userId),
					zap.String("deposit", deposit.Amount.String()),
					zap.String("price", price.String()))
				deposit.LossPenalty = decimal.Zero
			}
		}

		result, err = e.release(ctx, tx, op, session, deposit, amount, now, ref)
		if err != nil {
			return err
		}
		asset = session.DepositAsset
		return nil
	})
	if err != nil {
		if result != nil && result.Payout.IsPositive() {
			e.compensate(op, sessionId, func(ctx context.Context) error {
				return e.assets.TransferIn(ctx, userId, asset, result.Payout, ref+":reversal")
			})
		}
		return nil, err
	}
	return result, nil
}

// release debits amount from a deposit and pays it out net of the deposit's
// loss penalty. The forfeited part stays in escrow. The transfer is the last step.
func (e *Engine) release(ctx context.Context, tx store.SaleTx, op string, session *models.Session,
	deposit *models.UserDeposit, amount decimal.Decimal, now int64, ref string) (*models.PayoutResult, error) {

	payout := pricing.Payout(amount, deposit.LossPenalty)
	forfeited := pricing.Forfeit(amount, deposit.LossPenalty)

	deposit.Amount = deposit.Amount.Sub(amount)
	session.TotalDeposited = session.TotalDeposited.Sub(amount)

	if err := tx.SaveDeposit(ctx, deposit); err != nil {
		return nil, err
	}
	if err := tx.UpdateSession(ctx, session); err != nil {
		return nil, err
	}
	if err := tx.RecordEntry(ctx, models.SaleEntry{
		SessionId: session.Id,
		UserId:    deposit.UserId,
		EntryType: op,
		Amount:    amount,
		Payout:    payout,
		Forfeited: forfeited,
		Reference: ref,
		Timestamp: now,
	}); err != nil {
		return nil, err
	}

	if payout.IsPositive() {
		if err := e.assets.TransferOut(ctx, deposit.UserId, session.DepositAsset, payout, ref); err != nil {
			return nil, fmt.Errorf("failed to transfer payout: %w", err)
		}
	}

	zap.L().Info("Deposit released",
		zap.String("op", op),
		zap.Int64("session_id", session.Id),
		zap.String("user_id", deposit.UserId),
		zap.String("amount", amount.String()),
		zap.String("payout", payout.String()),
		zap.String("forfeited", forfeited.String()),
		zap.String("penalty", deposit.LossPenalty.String()))

	return &models.PayoutResult{
		SessionId: session.Id,
		UserId:    deposit.UserId,
		Amount:    amount,
		Payout:    payout,
		Forfeited: forfeited,
		Penalty:   deposit.LossPenalty,
		Remaining: deposit.Amount,
	}, nil
}
