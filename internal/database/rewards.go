package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mint-sale-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) GetRewards(ctx context.Context, coordinator, asset string) (decimal.Decimal, error) {
	return getRewards(ctx, s.db, coordinator, asset)
}

func (s *Service) ListRewards(ctx context.Context) ([]models.RewardsBalance, error) {
	rows, err := s.db.QueryContext(ctx, queryListRewards)
	if err != nil {
		return nil, fmt.Errorf("unable to query rewards: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var balances []models.RewardsBalance
	for rows.Next() {
		var b models.RewardsBalance
		if err := rows.Scan(&b.Coordinator, &b.Asset, &b.Balance, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("unable to scan rewards row: %w", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rewards rows: %w", err)
	}
	return balances, nil
}

func (t *saleTx) AddRewards(ctx context.Context, coordinator, asset string, amount decimal.Decimal) error {
	current, err := getRewards(ctx, t.q, coordinator, asset)
	if err != nil {
		return err
	}
	if _, err := t.q.ExecContext(ctx, queryUpsertRewards, coordinator, asset, current.Add(amount).String()); err != nil {
		return fmt.Errorf("failed to credit rewards: %w", err)
	}
	return nil
}

func (t *saleTx) TakeRewards(ctx context.Context, coordinator, asset string) (decimal.Decimal, error) {
	current, err := getRewards(ctx, t.q, coordinator, asset)
	if err != nil {
		return decimal.Zero, err
	}
	if current.IsZero() {
		return decimal.Zero, nil
	}
	if _, err := t.q.ExecContext(ctx, queryUpsertRewards, coordinator, asset, decimal.Zero.String()); err != nil {
		return decimal.Zero, fmt.Errorf("failed to zero rewards: %w", err)
	}
	return current, nil
}

func getRewards(ctx context.Context, q querier, coordinator, asset string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := q.QueryRowContext(ctx, queryGetRewards, coordinator, asset).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get rewards: %w", err)
	}
	return balance, nil
}
