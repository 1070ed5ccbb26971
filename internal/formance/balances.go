package formance

import (
	"context"
	"fmt"
	"math/big"

	"mint-sale-go/internal/models"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetBalance returns the smallest-unit balance of a user, or of the escrow
// account when accountId is the escrow address.
func (s *Service) GetBalance(ctx context.Context, accountId, asset string) (decimal.Decimal, error) {
	zap.L().Debug("Getting balance from Formance",
		zap.String("account_id", accountId), zap.String("asset", asset))

	vols, err := s.getAccountVolumes(ctx, s.address(accountId))
	if err != nil {
		return decimal.Zero, err
	}
	return bigIntToDecimal(volumeBalance(vols, formanceAsset(asset))), nil
}

// GetAllBalances returns all non-zero balances of an account.
func (s *Service) GetAllBalances(ctx context.Context, accountId string) ([]models.AccountBalance, error) {
	addr := s.address(accountId)
	vols, err := s.getAccountVolumes(ctx, addr)
	if err != nil {
		return nil, err
	}

	var balances []models.AccountBalance
	for fAsset, vol := range vols {
		bal := volumeBalance(map[string]shared.V2Volume{fAsset: vol}, fAsset)
		if bal == nil || bal.Sign() == 0 {
			continue
		}
		balances = append(balances, models.AccountBalance{
			Id:        addr,
			AccountId: accountId,
			Asset:     assetSymbol(fAsset),
			Balance:   bigIntToDecimal(bal),
		})
	}
	return balances, nil
}

func (s *Service) address(accountId string) string {
	if accountId == s.escrow {
		return s.escrow
	}
	return userAccount(accountId)
}

// getAccountVolumes fetches volumes for a single account via GetAccount (clean GET).
func (s *Service) getAccountVolumes(ctx context.Context, address string) (map[string]shared.V2Volume, error) {
	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: address,
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get account volumes for %s: %w", address, err)
	}
	return resp.V2AccountResponse.Data.Volumes, nil
}

// volumeBalance extracts the balance for a specific asset from volumes.
func volumeBalance(vols map[string]shared.V2Volume, fAsset string) *big.Int {
	vol, ok := vols[fAsset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}

// bigIntToDecimal converts a smallest-unit *big.Int to a decimal.
func bigIntToDecimal(raw *big.Int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, 0)
}

// assetSymbol extracts the symbol from a Formance asset like "USDC/6".
func assetSymbol(fAsset string) string {
	for i, c := range fAsset {
		if c == '/' {
			return fAsset[:i]
		}
	}
	return fAsset
}
