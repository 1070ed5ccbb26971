package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mint-sale-go/internal/models"
	"mint-sale-go/internal/store"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// CreateSession inserts a new session and returns it with its assigned id.
// Bounds are validated by the caller.
func (s *Service) CreateSession(ctx context.Context, cfg models.SessionConfig) (*models.Session, error) {
	zap.L().Info("Creating session",
		zap.String("item_collection", cfg.ItemCollection),
		zap.String("coordinator", cfg.Coordinator),
		zap.String("deposit_asset", cfg.DepositAsset),
		zap.Int64("max_supply", cfg.MaxSupply))

	result, err := s.db.ExecContext(ctx, queryInsertSession,
		cfg.ItemCollection, cfg.Coordinator, cfg.DepositAsset,
		cfg.AllocationStart, cfg.AllocationEnd, cfg.MintingStart, cfg.MintingEnd,
		cfg.MinPrice.String(), cfg.MaxSupply, string(cfg.RolloverOption))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			zap.L().Warn("Item collection already bound to a session",
				zap.String("item_collection", cfg.ItemCollection))
			return nil, fmt.Errorf("%w: %s", store.ErrCollectionInUse, cfg.ItemCollection)
		}
		zap.L().Error("Failed to insert session", zap.Error(err))
		return nil, fmt.Errorf("unable to insert session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("unable to get session id: %w", err)
	}

	return s.GetSession(ctx, id)
}

func (s *Service) GetSession(ctx context.Context, sessionId int64) (*models.Session, error) {
	return getSession(ctx, s.db, sessionId)
}

func (s *Service) ListSessions(ctx context.Context) ([]models.Session, error) {
	zap.L().Debug("Querying sessions")

	rows, err := s.db.QueryContext(ctx, queryListSessions)
	if err != nil {
		zap.L().Error("Failed to query sessions", zap.Error(err))
		return nil, fmt.Errorf("unable to query sessions: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var sessions []models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan session row: %w", err)
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during session row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}

	zap.L().Debug("Retrieved sessions", zap.Int("count", len(sessions)))
	return sessions, nil
}

func (t *saleTx) GetSession(ctx context.Context, sessionId int64) (*models.Session, error) {
	return getSession(ctx, t.q, sessionId)
}

// UpdateSession writes the mutable fields of session guarded by its version.
func (t *saleTx) UpdateSession(ctx context.Context, session *models.Session) error {
	result, err := t.q.ExecContext(ctx, queryUpdateSession,
		session.AllocationStart, session.AllocationEnd, session.MintingStart, session.MintingEnd,
		session.MaxSupply, session.TotalDeposited.String(), session.ResultPrice.String(),
		session.NextItemIndex, session.Epoch, session.Closed,
		session.Id, session.Version)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("session %d update failed - %w", session.Id, store.ErrConcurrentModification)
	}

	session.Version++
	return nil
}

func (t *saleTx) DeleteSession(ctx context.Context, sessionId int64) error {
	if _, err := t.q.ExecContext(ctx, queryDeleteSessionDeposits, sessionId); err != nil {
		return fmt.Errorf("failed to delete session deposits: %w", err)
	}

	result, err := t.q.ExecContext(ctx, queryDeleteSession, sessionId)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %d", store.ErrSessionNotFound, sessionId)
	}
	return nil
}

func getSession(ctx context.Context, q querier, sessionId int64) (*models.Session, error) {
	zap.L().Debug("Querying session by ID", zap.Int64("session_id", sessionId))

	session, err := scanSession(q.QueryRowContext(ctx, queryGetSession, sessionId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", store.ErrSessionNotFound, sessionId)
		}
		zap.L().Error("Failed to query session", zap.Int64("session_id", sessionId), zap.Error(err))
		return nil, fmt.Errorf("unable to query session: %w", err)
	}
	return session, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var session models.Session
	var option string
	err := row.Scan(&session.Id, &session.ItemCollection, &session.Coordinator, &session.DepositAsset,
		&session.AllocationStart, &session.AllocationEnd, &session.MintingStart, &session.MintingEnd,
		&session.MinPrice, &session.MaxSupply, &session.TotalDeposited, &session.ResultPrice, &option,
		&session.NextItemIndex, &session.Epoch, &session.Closed, &session.Version,
		&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, err
	}
	session.RolloverOption = models.RolloverOption(option)
	return &session, nil
}
