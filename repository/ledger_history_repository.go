package repository

import (
	"context"
	"fmt"

	"gamerooms/database"
	"gamerooms/models"
)

// LedgerHistoryRepository implements the LedgerHistoryRepository interface
type LedgerHistoryRepository struct {
	q queryable
}

// NewLedgerHistoryRepository creates a new ledger history repository
func NewLedgerHistoryRepository(db *database.DB) *LedgerHistoryRepository {
	return &LedgerHistoryRepository{q: db.Pool}
}

// newLedgerHistoryRepositoryWithTx creates a new ledger history repository with a transaction
func newLedgerHistoryRepositoryWithTx(tx queryable) *LedgerHistoryRepository {
	return &LedgerHistoryRepository{q: tx}
}

// Record creates a new ledger history entry
func (r *LedgerHistoryRepository) Record(ctx context.Context, history *models.LedgerHistory) error {
	query := `
		INSERT INTO ledger_history (user_id, points_before, points_after, delta, reason, game_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	var gameKey *string
	if history.GameKey != nil {
		key := string(*history.GameKey)
		gameKey = &key
	}

	err := r.q.QueryRow(ctx, query,
		history.UserID,
		history.PointsBefore,
		history.PointsAfter,
		history.Delta,
		string(history.Reason),
		gameKey,
	).Scan(&history.ID, &history.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record ledger history for %s: %w", history.UserID, err)
	}

	return nil
}

// GetByUser returns a user's most recent balance changes, newest first
func (r *LedgerHistoryRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*models.LedgerHistory, error) {
	query := `
		SELECT id, user_id, points_before, points_after, delta, reason, game_key, created_at
		FROM ledger_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger history: %w", err)
	}
	defer rows.Close()

	var histories []*models.LedgerHistory
	for rows.Next() {
		var h models.LedgerHistory
		var gameKey *string
		err := rows.Scan(
			&h.ID,
			&h.UserID,
			&h.PointsBefore,
			&h.PointsAfter,
			&h.Delta,
			&h.Reason,
			&gameKey,
			&h.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger history: %w", err)
		}
		if gameKey != nil {
			key := models.GameKey(*gameKey)
			h.GameKey = &key
		}
		histories = append(histories, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger history: %w", err)
	}

	return histories, nil
}
