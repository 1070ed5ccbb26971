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

// Mint converts amount of the user's deposit into items at the session's
// clearing price. The first mint or forgo of an epoch fixes that price. Any
// remainder below one item's price stays in the deposit.
func (e *Engine) Mint(ctx context.Context, userId string, sessionId int64, amount decimal.Decimal) (*models.MintResult, error) {
	const op = "mint"
	if err := checkAmount(op, sessionId, amount); err != nil {
		return nil, err
	}
	defer e.locks.lock(sessionKey(sessionId))()

	now := e.clock.Now()
	ref := reference(ctx)
	var result *models.MintResult
	var collection string
	moved := false

	err := e.store.InTx(ctx, func(tx store.SaleTx) error {
		session, deposit, price, err := e.mintable(ctx, tx, op, userId, sessionId, amount, now)
		if err != nil {
			return err
		}
		if session.MaxSupply <= 0 {
			return &Error{
				Kind:      ErrSoldOut,
				Op:        op,
				SessionId: sessionId,
				Detail:    fmt.Sprintf("all items of %s issued", session.ItemCollection),
			}
		}

		items := pricing.FloorDiv(amount, price).IntPart()
		if items > session.MaxSupply {
			items = session.MaxSupply
		}
		cost := price.Mul(decimal.NewFromInt(items))

		result = &models.MintResult{
			SessionId:   sessionId,
			UserId:      userId,
			Items:       items,
			FirstItemId: session.NextItemIndex,
			Price:       price,
			Cost:        cost,
		}

		deposit.Amount = deposit.Amount.Sub(cost)
		session.TotalDeposited = session.TotalDeposited.Sub(cost)
		session.MaxSupply -= items
		session.NextItemIndex += items
		result.Remaining = deposit.Amount

		if err := tx.SaveDeposit(ctx, deposit); err != nil {
			return err
		}
		if err := tx.UpdateSession(ctx, session); err != nil {
			return err
		}
		if err := tx.AddRewards(ctx, session.Coordinator, session.DepositAsset, cost); err != nil {
			return err
		}
		if err := tx.RecordItems(ctx, sessionId, session.Epoch, userId, result.ItemIds()); err != nil {
			return err
		}
		if err := tx.RecordEntry(ctx, models.SaleEntry{
			SessionId: sessionId,
			UserId:    userId,
			EntryType: op,
			Amount:    cost,
			Items:     items,
			Reference: ref,
			Timestamp: now,
		}); err != nil {
			return err
		}

		collection = session.ItemCollection
		if err := e.items.TransferItems(ctx, collection, e.escrow, userId, result.ItemIds()); err != nil {
			return fmt.Errorf("failed to transfer items: %w", err)
		}
		moved = true

		zap.L().Info("Items minted",
			zap.Int64("session_id", sessionId),
			zap.String("user_id", userId),
			zap.Int64("items", items),
			zap.Int64("first_item_id", result.FirstItemId),
			zap.String("price", price.String()),
			zap.String("cost", cost.String()),
			zap.Int64("supply_left", session.MaxSupply))
		return nil
	})
	if err != nil {
		if moved {
			e.compensate(op, sessionId, func(ctx context.Context) error {
				return e.items.TransferItems(ctx, collection, userId, e.escrow, result.ItemIds())
			})
		}
		return nil, err
	}
	return result, nil
}

// Forgo exits amount of the user's deposit during the minting window, net of
// their loss penalty, instead of converting it to items.
func (e *Engine) Forgo(ctx context.Context, userId string, sessionId int64, amount decimal.Decimal) (*models.PayoutResult, error) {
	const op = "forgo"
	if err := checkAmount(op, sessionId, amount); err != nil {
		return nil, err
	}
	defer e.locks.lock(sessionKey(sessionId))()

	now := e.clock.Now()
	ref := reference(ctx)
	var result *models.PayoutResult
	var asset string

	err := e.store.InTx(ctx, func(tx store.SaleTx) error {
		session, deposit, _, err := e.mintable(ctx, tx, op, userId, sessionId, amount, now)
		if err != nil {
			return err
		}
		asset = session.DepositAsset

		result, err = e.release(ctx, tx, op, session, deposit, amount, now, ref)
		return err
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

// mintable applies the gating shared by mint and forgo: the minting window, the
// clearing price, and a deposit covering amount with amount worth at least one item.
func (e *Engine) mintable(ctx context.Context, tx store.SaleTx, op, userId string, sessionId int64,
	amount decimal.Decimal, now int64) (*models.Session, *models.UserDeposit, decimal.Decimal, error) {

	session, err := e.loadSession(ctx, tx, op, sessionId)
	if err != nil {
		return nil, nil, decimal.Zero, err
	}
	if !session.InMinting(now) {
		return nil, nil, decimal.Zero, windowError(ErrNonMinting, op, sessionId, now, session.MintingStart, session.MintingEnd)
	}

	price := e.resolvePrice(session)

	deposit, err := tx.GetDeposit(ctx, userId, sessionId)
	if err != nil {
		return nil, nil, decimal.Zero, err
	}
	if deposit.Amount.LessThan(amount) {
		return nil, nil, decimal.Zero, balanceError(ErrInsufficientDeposits, op, sessionId, deposit.Amount, amount, "deposit does not cover amount")
	}
	if amount.LessThan(price) {
		return nil, nil, decimal.Zero, balanceError(ErrInsufficientDeposits, op, sessionId, amount, price, "amount below clearing price")
	}
	return session, deposit, price, nil
}
