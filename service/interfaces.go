package service

import (
	"context"
	"time"

	"gamerooms/events"
	"gamerooms/models"
)

// LockRepository defines data access for room creation locks
type LockRepository interface {
	// TryInsert writes the lock unless a non-expired lock exists for the key.
	// It reports whether the row now belongs to the given lock.
	TryInsert(ctx context.Context, lock *models.Lock, now time.Time) (bool, error)

	// Get returns the lock row for a key, expired or not, or nil
	Get(ctx context.Context, key models.RoomKey) (*models.Lock, error)

	// Delete removes the lock; an empty owner token deletes unconditionally
	Delete(ctx context.Context, key models.RoomKey, ownerToken string) (bool, error)
}

// RoomRepository defines data access for durable room records
type RoomRepository interface {
	// Get returns the room row in any status, or nil
	Get(ctx context.Context, key models.RoomKey) (*models.RoomSession, error)

	// UpsertCreating writes a creating row, resetting whatever was there
	UpsertCreating(ctx context.Context, key models.RoomKey, gameKey models.GameKey, at time.Time) error

	// Promote marks the room active on the given channel
	Promote(ctx context.Context, key models.RoomKey, channelRef string, at time.Time) error

	// Touch updates the last activity timestamp of the room bound to channelRef
	Touch(ctx context.Context, key models.RoomKey, channelRef string, at time.Time) (bool, error)

	// Delete removes the room row bound to channelRef
	Delete(ctx context.Context, key models.RoomKey, channelRef string) (bool, error)

	// DeleteIfCreating removes the row only while it is still being created
	DeleteIfCreating(ctx context.Context, key models.RoomKey) error

	// ListActive returns every active room
	ListActive(ctx context.Context) ([]*models.RoomSession, error)
}

// LedgerRepository defines data access for point balances
type LedgerRepository interface {
	// Get returns the entry for a user or nil when none exists
	Get(ctx context.Context, userID string) (*models.LedgerEntry, error)

	// Increment atomically adds delta, creating the entry when missing
	Increment(ctx context.Context, userID string, delta int64) (before, after int64, err error)

	// Set overwrites the balance and returns the previous one
	Set(ctx context.Context, userID string, points int64) (int64, error)

	// Top returns the highest balances, points descending
	Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// LedgerHistoryRepository defines the audit trail of balance changes
type LedgerHistoryRepository interface {
	// Record appends a history row
	Record(ctx context.Context, history *models.LedgerHistory) error

	// GetByUser returns the most recent changes for a user
	GetByUser(ctx context.Context, userID string, limit int) ([]*models.LedgerHistory, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork groups repositories under one transaction
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	LockRepository() LockRepository
	RoomRepository() RoomRepository
	LedgerRepository() LedgerRepository
	LedgerHistoryRepository() LedgerHistoryRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// ChannelSpec describes a private room channel to create
type ChannelSpec struct {
	CommunityID string
	OwnerID     string
	Name        string
	Topic       string
}

// ChatGateway is the chat platform surface the room lifecycle drives
type ChatGateway interface {
	// CreateChannel creates a channel visible only to the owner and the bot
	CreateChannel(ctx context.Context, spec ChannelSpec) (string, error)

	// DeleteChannel removes a room channel
	DeleteChannel(ctx context.Context, channelRef string) error

	// SendMessage posts plain text into a channel
	SendMessage(ctx context.Context, channelRef, content string) error

	// SendPrompt posts text with clickable choices into a channel
	SendPrompt(ctx context.Context, channelRef, content string, choices []Choice) error
}

// LeaderboardCache stores the latest ranked snapshot
type LeaderboardCache interface {
	Load(ctx context.Context) (*models.Leaderboard, error)
	Store(ctx context.Context, board *models.Leaderboard) error
}
