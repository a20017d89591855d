package repository

import (
	"context"
	"errors"
	"fmt"

	"gamerooms/database"
	"gamerooms/models"

	"github.com/jackc/pgx/v5"
)

// LedgerRepository implements the LedgerRepository interface
type LedgerRepository struct {
	q queryable
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

// newLedgerRepositoryWithTx creates a new ledger repository with a transaction
func newLedgerRepositoryWithTx(tx queryable) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// Get returns a user's ledger entry, or nil if the user never scored
func (r *LedgerRepository) Get(ctx context.Context, userID string) (*models.LedgerEntry, error) {
	query := `SELECT user_id, points, updated_at FROM ledger WHERE user_id = $1`

	var entry models.LedgerEntry
	err := r.q.QueryRow(ctx, query, userID).Scan(&entry.UserID, &entry.Points, &entry.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry for %s: %w", userID, err)
	}

	return &entry, nil
}

// Increment adds delta in a single statement so concurrent credits never lose an update
func (r *LedgerRepository) Increment(ctx context.Context, userID string, delta int64) (int64, int64, error) {
	query := `
		INSERT INTO ledger (user_id, points, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			points = ledger.points + EXCLUDED.points,
			updated_at = NOW()
		RETURNING points
	`

	var after int64
	if err := r.q.QueryRow(ctx, query, userID, delta).Scan(&after); err != nil {
		return 0, 0, fmt.Errorf("failed to credit %d points to %s: %w", delta, userID, err)
	}

	return after - delta, after, nil
}

// Set overwrites a user's balance and returns the previous one; the last writer wins
func (r *LedgerRepository) Set(ctx context.Context, userID string, points int64) (int64, error) {
	query := `
		WITH prev AS (
			SELECT points FROM ledger WHERE user_id = $1
		), upsert AS (
			INSERT INTO ledger (user_id, points, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (user_id) DO UPDATE SET
				points = EXCLUDED.points,
				updated_at = NOW()
			RETURNING points
		)
		SELECT COALESCE((SELECT points FROM prev), 0) FROM upsert
	`

	var previous int64
	if err := r.q.QueryRow(ctx, query, userID, points).Scan(&previous); err != nil {
		return 0, fmt.Errorf("failed to set points for %s: %w", userID, err)
	}

	return previous, nil
}

// Top returns the highest balances; ties are broken by user id
func (r *LedgerRepository) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	query := `
		SELECT user_id, points
		FROM ledger
		ORDER BY points DESC, user_id ASC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]models.LeaderboardEntry, 0, limit)
	for rows.Next() {
		entry := models.LeaderboardEntry{Rank: len(entries) + 1}
		if err := rows.Scan(&entry.UserID, &entry.Points); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	return entries, nil
}
