package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mint-sale-go/internal/models"
	"mint-sale-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) GetDeposit(ctx context.Context, userId string, sessionId int64) (*models.UserDeposit, error) {
	return getDeposit(ctx, s.db, userId, sessionId)
}

func (s *Service) ListDeposits(ctx context.Context, sessionId int64) ([]models.UserDeposit, error) {
	zap.L().Debug("Querying deposits", zap.Int64("session_id", sessionId))

	rows, err := s.db.QueryContext(ctx, queryListDeposits, sessionId)
	if err != nil {
		return nil, fmt.Errorf("unable to query deposits: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var deposits []models.UserDeposit
	for rows.Next() {
		var d models.UserDeposit
		if err := rows.Scan(&d.SessionId, &d.UserId, &d.Amount, &d.LossPenalty, &d.Version, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("unable to scan deposit row: %w", err)
		}
		deposits = append(deposits, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deposit rows: %w", err)
	}
	return deposits, nil
}

func (t *saleTx) GetDeposit(ctx context.Context, userId string, sessionId int64) (*models.UserDeposit, error) {
	return getDeposit(ctx, t.q, userId, sessionId)
}

// SaveDeposit inserts a first deposit or updates an existing one guarded by version.
func (t *saleTx) SaveDeposit(ctx context.Context, deposit *models.UserDeposit) error {
	if deposit.Version == 0 {
		if _, err := t.q.ExecContext(ctx, queryInsertDeposit,
			deposit.SessionId, deposit.UserId, deposit.Amount.String(), deposit.LossPenalty.String()); err != nil {
			return fmt.Errorf("failed to insert deposit: %w", err)
		}
		deposit.Version = 1
		return nil
	}

	result, err := t.q.ExecContext(ctx, queryUpdateDeposit,
		deposit.Amount.String(), deposit.LossPenalty.String(),
		deposit.SessionId, deposit.UserId, deposit.Version)
	if err != nil {
		return fmt.Errorf("failed to update deposit: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("deposit update failed - %w", store.ErrConcurrentModification)
	}

	deposit.Version++
	return nil
}

// SumDeposits adds up every live deposit of a session.
func (t *saleTx) SumDeposits(ctx context.Context, sessionId int64) (decimal.Decimal, error) {
	rows, err := t.q.QueryContext(ctx, queryDepositAmounts, sessionId)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query deposit amounts: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan deposit amount: %w", err)
		}
		total = total.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("error iterating deposit amounts: %w", err)
	}
	return total, nil
}

func getDeposit(ctx context.Context, q querier, userId string, sessionId int64) (*models.UserDeposit, error) {
	var d models.UserDeposit
	err := q.QueryRowContext(ctx, queryGetDeposit, sessionId, userId).Scan(
		&d.SessionId, &d.UserId, &d.Amount, &d.LossPenalty, &d.Version, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// No deposit record means an empty balance
		return &models.UserDeposit{
			SessionId:   sessionId,
			UserId:      userId,
			Amount:      decimal.Zero,
			LossPenalty: decimal.Zero,
		}, nil
	}
	if err != nil {
		zap.L().Error("Failed to get deposit",
			zap.Int64("session_id", sessionId),
			zap.String("user_id", userId),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}
	return &d, nil
}
