package database

import (
	"context"
	"database/sql"
	"fmt"

	"mint-sale-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Service) ListItems(ctx context.Context, sessionId int64) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx, queryListItems, sessionId)
	if err != nil {
		return nil, fmt.Errorf("unable to query items: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var items []models.Item
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(&item.SessionId, &item.ItemId, &item.Owner, &item.Epoch, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("unable to scan item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}
	return items, nil
}

// ListEntries returns the session's audit trail, newest first
func (s *Service) ListEntries(ctx context.Context, sessionId int64, limit, offset int) ([]models.SaleEntry, error) {
	rows, err := s.db.QueryContext(ctx, queryListEntries, sessionId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("unable to query sale entries: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entries []models.SaleEntry
	for rows.Next() {
		var e models.SaleEntry
		var reference sql.NullString
		if err := rows.Scan(&e.Id, &e.SessionId, &e.UserId, &e.EntryType, &e.Amount, &e.Payout,
			&e.Forfeited, &e.Items, &reference, &e.Timestamp, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("unable to scan sale entry: %w", err)
		}
		e.Reference = reference.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale entries: %w", err)
	}
	return entries, nil
}

func (t *saleTx) RecordItems(ctx context.Context, sessionId, epoch int64, owner string, itemIds []int64) error {
	for _, id := range itemIds {
		if _, err := t.q.ExecContext(ctx, queryInsertItem, sessionId, id, owner, epoch); err != nil {
			return fmt.Errorf("failed to record item %d: %w", id, err)
		}
	}
	return nil
}

func (t *saleTx) RecordEntry(ctx context.Context, entry models.SaleEntry) error {
	if entry.Id == "" {
		entry.Id = uuid.New().String()
	}
	_, err := t.q.ExecContext(ctx, queryInsertEntry,
		entry.Id, entry.SessionId, entry.UserId, entry.EntryType,
		entry.Amount.String(), entry.Payout.String(), entry.Forfeited.String(),
		entry.Items, entry.Reference, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to record sale entry: %w", err)
	}
	return nil
}
