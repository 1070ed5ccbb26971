package formance

import (
	"context"
	"fmt"

	"mint-sale-go/internal/store"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Numscript templates. All metadata is set inside the script via set_tx_meta()
// so the Formance transaction is fully self-describing.
// ---------------------------------------------------------------------------

// Users cannot overdraft; the ledger rejects a transfer the source cannot cover.
const numscriptTransfer = `vars {
  asset $asset
  number $amount
  account $source
  account $destination
  string $event_type
  string $asset_symbol
  string $amount_human
}

send [$asset $amount] (
  source = $source
  destination = $destination
)

set_tx_meta("event_type", $event_type)
set_tx_meta("asset_symbol", $asset_symbol)
set_tx_meta("amount_human", $amount_human)
`

const numscriptFund = `vars {
  asset $asset
  number $amount
  account $destination
  string $asset_symbol
  string $amount_human
}

send [$asset $amount] (
  source = @world
  destination = $destination
)

set_tx_meta("event_type", "funding")
set_tx_meta("asset_symbol", $asset_symbol)
set_tx_meta("amount_human", $amount_human)
`

// TransferIn moves a user's funds into the escrow account.
func (s *Service) TransferIn(ctx context.Context, from, asset string, amount decimal.Decimal, reference string) error {
	return s.transfer(ctx, "sale_transfer_in", userAccount(from), s.escrow, asset, amount, reference)
}

// TransferOut pays funds from the escrow account to a user.
func (s *Service) TransferOut(ctx context.Context, to, asset string, amount decimal.Decimal, reference string) error {
	return s.transfer(ctx, "sale_transfer_out", s.escrow, userAccount(to), asset, amount, reference)
}

func (s *Service) transfer(ctx context.Context, eventType, source, destination, asset string, amount decimal.Decimal, reference string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("transfer amount must be positive, got %s", amount)
	}

	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger: s.ledger,
		V2PostTransaction: shared.V2PostTransaction{
			Reference: strPtr(reference),
			Script: &shared.V2PostTransactionScript{
				Plain: numscriptTransfer,
				Vars: map[string]string{
					"asset":        formanceAsset(asset),
					"amount":       smallestUnits(amount),
					"source":       source,
					"destination":  destination,
					"event_type":   eventType,
					"asset_symbol": asset,
					"amount_human": humanAmount(amount, asset),
				},
			},
		},
	})
	if err != nil {
		if isConflictError(err) {
			return fmt.Errorf("%w: reference %s already exists", store.ErrDuplicateTransaction, reference)
		}
		if isInsufficientFundError(err) {
			return fmt.Errorf("%w: %s cannot cover %s %s", store.ErrInsufficientBalance, source, amount, asset)
		}
		return fmt.Errorf("error posting %s transaction: %w", eventType, err)
	}

	zap.L().Info("Transfer recorded in Formance",
		zap.String("event_type", eventType),
		zap.String("source", source),
		zap.String("destination", destination),
		zap.String("asset", asset),
		zap.String("amount", amount.String()),
		zap.String("reference", reference))
	return nil
}

// Fund credits a user's account from @world. Used to seed test balances.
func (s *Service) Fund(ctx context.Context, userId, asset string, amount decimal.Decimal, reference string) error {
	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger: s.ledger,
		V2PostTransaction: shared.V2PostTransaction{
			Reference: strPtr(reference),
			Script: &shared.V2PostTransactionScript{
				Plain: numscriptFund,
				Vars: map[string]string{
					"asset":        formanceAsset(asset),
					"amount":       smallestUnits(amount),
					"destination":  userAccount(userId),
					"asset_symbol": asset,
					"amount_human": humanAmount(amount, asset),
				},
			},
		},
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Info("Funding already recorded, skipping", zap.String("reference", reference))
			return nil
		}
		return fmt.Errorf("error funding account: %w", err)
	}

	zap.L().Info("Account funded in Formance",
		zap.String("user_id", userId),
		zap.String("asset", asset),
		zap.String("amount", amount.String()))
	return nil
}

// smallestUnits renders an integer amount for a Numscript number variable.
func smallestUnits(amount decimal.Decimal) string {
	return amount.Truncate(0).BigInt().String()
}

// humanAmount renders a smallest-unit amount in whole asset units, e.g. 1500000 USDC -> 1.5.
func humanAmount(amount decimal.Decimal, symbol string) string {
	return amount.Shift(-int32(precisionFor(symbol))).String()
}
