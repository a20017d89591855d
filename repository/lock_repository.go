package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gamerooms/database"
	"gamerooms/models"

	"github.com/jackc/pgx/v5"
)

// LockRepository implements the LockRepository interface
type LockRepository struct {
	q queryable
}

// NewLockRepository creates a new lock repository
func NewLockRepository(db *database.DB) *LockRepository {
	return &LockRepository{q: db.Pool}
}

// newLockRepositoryWithTx creates a new lock repository with a transaction
func newLockRepositoryWithTx(tx queryable) *LockRepository {
	return &LockRepository{q: tx}
}

// TryInsert inserts the lock, or takes over a row whose expiry has passed.
// A live lock held by someone else is left untouched and false is returned.
func (r *LockRepository) TryInsert(ctx context.Context, lock *models.Lock, now time.Time) (bool, error) {
	query := `
		INSERT INTO room_locks (community_id, user_id, owner_token, game_key, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (community_id, user_id) DO UPDATE SET
			owner_token = EXCLUDED.owner_token,
			game_key = EXCLUDED.game_key,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
		WHERE room_locks.expires_at <= $7
		RETURNING owner_token
	`

	var token string
	err := r.q.QueryRow(ctx, query,
		lock.CommunityID,
		lock.UserID,
		lock.OwnerToken,
		string(lock.GameKey),
		lock.CreatedAt,
		lock.ExpiresAt,
		now,
	).Scan(&token)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert lock for %s:%s: %w", lock.CommunityID, lock.UserID, err)
	}

	return token == lock.OwnerToken, nil
}

// Get returns the lock row for a key
func (r *LockRepository) Get(ctx context.Context, key models.RoomKey) (*models.Lock, error) {
	query := `
		SELECT community_id, user_id, owner_token, game_key, created_at, expires_at
		FROM room_locks
		WHERE community_id = $1 AND user_id = $2
	`

	var lock models.Lock
	err := r.q.QueryRow(ctx, query, key.CommunityID, key.UserID).Scan(
		&lock.CommunityID,
		&lock.UserID,
		&lock.OwnerToken,
		&lock.GameKey,
		&lock.CreatedAt,
		&lock.ExpiresAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lock for %s: %w", key, err)
	}

	return &lock, nil
}

// Delete removes the lock; with a token only that owner's lock is removed
func (r *LockRepository) Delete(ctx context.Context, key models.RoomKey, ownerToken string) (bool, error) {
	query := `DELETE FROM room_locks WHERE community_id = $1 AND user_id = $2`
	args := []any{key.CommunityID, key.UserID}
	if ownerToken != "" {
		query += ` AND owner_token = $3`
		args = append(args, ownerToken)
	}

	result, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to delete lock for %s: %w", key, err)
	}

	return result.RowsAffected() > 0, nil
}
