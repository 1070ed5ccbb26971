package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mint-sale-go/internal/store"

	"go.uber.org/zap"
)

// TransferItems moves every listed item from one owner to another, all or nothing.
// Items never transferred before are owned by the escrow account.
func (s *SubledgerService) TransferItems(ctx context.Context, collection, from, to string, itemIds []int64) error {
	if len(itemIds) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range itemIds {
		owner, err := itemOwner(ctx, tx, collection, id, s.escrow)
		if err != nil {
			return err
		}
		if owner != from {
			return fmt.Errorf("%w: %s #%d is held by %s, not %s", store.ErrNotItemOwner, collection, id, owner, from)
		}
		if _, err := tx.ExecContext(ctx, queryUpsertItemOwner, collection, id, to); err != nil {
			return fmt.Errorf("failed to transfer item %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit item transfer: %w", err)
	}

	zap.L().Info("Items transferred",
		zap.String("collection", collection),
		zap.String("from", from),
		zap.String("to", to),
		zap.Int("count", len(itemIds)),
		zap.Int64("first_item_id", itemIds[0]))
	return nil
}

// OwnerOf returns the current owner of an item.
func (s *SubledgerService) OwnerOf(ctx context.Context, collection string, itemId int64) (string, error) {
	return itemOwner(ctx, s.db, collection, itemId, s.escrow)
}

// CountOwned returns how many items of a collection an account holds.
func (s *SubledgerService) CountOwned(ctx context.Context, collection, owner string) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, queryCountOwnedItems, collection, owner).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count owned items: %w", err)
	}
	return count, nil
}

// Issued returns how many items of a collection are held outside escrow.
func (s *SubledgerService) Issued(ctx context.Context, collection string) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, queryCountIssuedItems, collection, s.escrow).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count issued items: %w", err)
	}
	return count, nil
}

func itemOwner(ctx context.Context, q querier, collection string, itemId int64, escrow string) (string, error) {
	var owner string
	err := q.QueryRowContext(ctx, queryGetItemOwner, collection, itemId).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return escrow, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get item owner: %w", err)
	}
	return owner, nil
}
