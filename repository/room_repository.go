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

// ErrRoomRowMissing is returned when a room update matches no row
var ErrRoomRowMissing = errors.New("room row not found")

// RoomRepository implements the RoomRepository interface
type RoomRepository struct {
	q queryable
}

// NewRoomRepository creates a new room repository
func NewRoomRepository(db *database.DB) *RoomRepository {
	return &RoomRepository{q: db.Pool}
}

// newRoomRepositoryWithTx creates a new room repository with a transaction
func newRoomRepositoryWithTx(tx queryable) *RoomRepository {
	return &RoomRepository{q: tx}
}

const roomColumns = `community_id, user_id, channel_ref, game_key, status, last_active_at, created_at`

func scanRoom(row pgx.Row) (*models.RoomSession, error) {
	var room models.RoomSession
	err := row.Scan(
		&room.CommunityID,
		&room.UserID,
		&room.ChannelRef,
		&room.GameKey,
		&room.Status,
		&room.LastActiveAt,
		&room.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// Get returns the room row for a key in any status
func (r *RoomRepository) Get(ctx context.Context, key models.RoomKey) (*models.RoomSession, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE community_id = $1 AND user_id = $2`

	room, err := scanRoom(r.q.QueryRow(ctx, query, key.CommunityID, key.UserID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room %s: %w", key, err)
	}

	return room, nil
}

// UpsertCreating records a room in the creating state, replacing any stale row
func (r *RoomRepository) UpsertCreating(ctx context.Context, key models.RoomKey, gameKey models.GameKey, at time.Time) error {
	query := `
		INSERT INTO rooms (community_id, user_id, channel_ref, game_key, status, last_active_at, created_at)
		VALUES ($1, $2, '', $3, 'creating', $4, $4)
		ON CONFLICT (community_id, user_id) DO UPDATE SET
			channel_ref = '',
			game_key = EXCLUDED.game_key,
			status = 'creating',
			last_active_at = EXCLUDED.last_active_at,
			created_at = EXCLUDED.created_at
	`

	_, err := r.q.Exec(ctx, query, key.CommunityID, key.UserID, string(gameKey), at)
	if err != nil {
		return fmt.Errorf("failed to mark room %s creating: %w", key, err)
	}

	return nil
}

// Promote binds the room to its channel and marks it active
func (r *RoomRepository) Promote(ctx context.Context, key models.RoomKey, channelRef string, at time.Time) error {
	query := `
		UPDATE rooms
		SET status = 'active', channel_ref = $3, last_active_at = $4
		WHERE community_id = $1 AND user_id = $2
	`

	result, err := r.q.Exec(ctx, query, key.CommunityID, key.UserID, channelRef, at)
	if err != nil {
		return fmt.Errorf("failed to promote room %s: %w", key, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("failed to promote room %s: %w", key, ErrRoomRowMissing)
	}

	return nil
}

// Touch updates the last activity time of the room bound to channelRef.
// It reports false when the row is gone or belongs to a newer room.
func (r *RoomRepository) Touch(ctx context.Context, key models.RoomKey, channelRef string, at time.Time) (bool, error) {
	query := `UPDATE rooms SET last_active_at = $4
		WHERE community_id = $1 AND user_id = $2 AND channel_ref = $3`

	result, err := r.q.Exec(ctx, query, key.CommunityID, key.UserID, channelRef, at)
	if err != nil {
		return false, fmt.Errorf("failed to touch room %s: %w", key, err)
	}

	return result.RowsAffected() > 0, nil
}

// Delete removes the room row bound to channelRef and reports whether it existed
func (r *RoomRepository) Delete(ctx context.Context, key models.RoomKey, channelRef string) (bool, error) {
	query := `DELETE FROM rooms WHERE community_id = $1 AND user_id = $2 AND channel_ref = $3`

	result, err := r.q.Exec(ctx, query, key.CommunityID, key.UserID, channelRef)
	if err != nil {
		return false, fmt.Errorf("failed to delete room %s: %w", key, err)
	}

	return result.RowsAffected() > 0, nil
}

// DeleteIfCreating removes a row that never became active
func (r *RoomRepository) DeleteIfCreating(ctx context.Context, key models.RoomKey) error {
	query := `DELETE FROM rooms WHERE community_id = $1 AND user_id = $2 AND status = 'creating'`

	if _, err := r.q.Exec(ctx, query, key.CommunityID, key.UserID); err != nil {
		return fmt.Errorf("failed to delete creating room %s: %w", key, err)
	}

	return nil
}

// ListActive returns all active rooms, oldest first
func (r *RoomRepository) ListActive(ctx context.Context) ([]*models.RoomSession, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE status = 'active' ORDER BY created_at`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.RoomSession
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rooms: %w", err)
	}

	return rooms, nil
}
