package models

import "time"

// Lock is the short-lived record held while a room is being created
type Lock struct {
	CommunityID string    `db:"community_id"`
	UserID      string    `db:"user_id"`
	OwnerToken  string    `db:"owner_token"`
	GameKey     GameKey   `db:"game_key"`
	CreatedAt   time.Time `db:"created_at"`
	ExpiresAt   time.Time `db:"expires_at"`
}

// IsExpired returns true once the lock no longer blocks other callers
func (l *Lock) IsExpired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

// Key returns the room key the lock guards
func (l *Lock) Key() RoomKey {
	return RoomKey{CommunityID: l.CommunityID, UserID: l.UserID}
}
