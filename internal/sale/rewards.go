package sale

import (
	"context"
	"fmt"

	"mint-sale-go/internal/models"
	"mint-sale-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerPayout disburses rewards from the escrow account of an asset ledger.
type LedgerPayout struct {
	Ledger store.AssetLedger
}

func (p LedgerPayout) Disburse(ctx context.Context, to, asset string, amount decimal.Decimal, reference string) error {
	return p.Ledger.TransferOut(ctx, to, asset, amount, reference)
}

// Rewards returns the coordinator's undisbursed proceeds in asset.
func (e *Engine) Rewards(ctx context.Context, coordinator, asset string) (decimal.Decimal, error) {
	return e.store.GetRewards(ctx, coordinator, asset)
}

// WithdrawRewards pays out the coordinator's full balance in asset. The balance
// is zeroed and committed before the payout, and restored if the payout fails.
func (e *Engine) WithdrawRewards(ctx context.Context, coordinator, asset string) (decimal.Decimal, error) {
	defer e.locks.lock(fmt.Sprintf("rewards:%s:%s", coordinator, asset))()

	now := e.clock.Now()
	ref := reference(ctx)
	var amount decimal.Decimal

	err := e.store.InTx(ctx, func(tx store.SaleTx) error {
		var err error
		amount, err = tx.TakeRewards(ctx, coordinator, asset)
		if err != nil {
			return err
		}
		if amount.IsZero() {
			return nil
		}
		return tx.RecordEntry(ctx, models.SaleEntry{
			UserId:    coordinator,
			EntryType: "rewards",
			Amount:    amount,
			Payout:    amount,
			Reference: ref,
			Timestamp: now,
		})
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to take rewards: %w", err)
	}
	if amount.IsZero() {
		zap.L().Debug("No rewards to withdraw", zap.String("coordinator", coordinator), zap.String("asset", asset))
		return decimal.Zero, nil
	}

	if err := e.payout.Disburse(ctx, coordinator, asset, amount, ref); err != nil {
		zap.L().Error("Rewards payout failed, restoring balance",
			zap.String("coordinator", coordinator),
			zap.String("asset", asset),
			zap.String("amount", amount.String()),
			zap.Error(err))

		rctx := context.WithoutCancel(ctx)
		if rerr := e.store.InTx(rctx, func(tx store.SaleTx) error {
			return tx.AddRewards(rctx, coordinator, asset, amount)
		}); rerr != nil {
			zap.L().Error("Failed to restore rewards balance", zap.String("coordinator", coordinator), zap.Error(rerr))
			return decimal.Zero, fmt.Errorf("payout failed: %w (restore failed: %v)", err, rerr)
		}
		return decimal.Zero, fmt.Errorf("payout failed: %w", err)
	}

	zap.L().Info("Rewards withdrawn",
		zap.String("coordinator", coordinator),
		zap.String("asset", asset),
		zap.String("amount", amount.String()),
		zap.String("reference", ref))
	return amount, nil
}
