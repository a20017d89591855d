package service

import (
	"context"
	"fmt"
	"time"

	"gamerooms/clock"
	"gamerooms/events"
	"gamerooms/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// LockStore grants the right to create a room, at most once per user and community
type LockStore interface {
	// TryAcquire returns a lock or a *LockDeniedError
	TryAcquire(ctx context.Context, key models.RoomKey, gameKey models.GameKey) (*models.Lock, error)

	// Release drops the lock; an empty token releases whoever holds it
	Release(ctx context.Context, key models.RoomKey, ownerToken string) error
}

type lockStore struct {
	uowFactory     UnitOfWorkFactory
	clock          clock.Clock
	ttl            time.Duration
	eventPublisher EventPublisher
}

// NewLockStore creates a lock store whose locks expire after ttl
func NewLockStore(uowFactory UnitOfWorkFactory, c clock.Clock, ttl time.Duration, eventPublisher EventPublisher) LockStore {
	return &lockStore{
		uowFactory:     uowFactory,
		clock:          c,
		ttl:            ttl,
		eventPublisher: eventPublisher,
	}
}

// TryAcquire takes the lock row first and then inspects the room, all in one
// transaction. Taking the row first queues behind a concurrent promotion, so
// the room read afterwards sees any room that became active before the grant.
func (s *lockStore) TryAcquire(ctx context.Context, key models.RoomKey, gameKey models.GameKey) (*models.Lock, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := s.clock.Now()
	lock := &models.Lock{
		CommunityID: key.CommunityID,
		UserID:      key.UserID,
		OwnerToken:  uuid.NewString(),
		GameKey:     gameKey,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}

	taken, err := uow.LockRepository().TryInsert(ctx, lock, now)
	if err != nil {
		return nil, fmt.Errorf("failed to take lock: %w", err)
	}

	room, err := uow.RoomRepository().Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing room: %w", err)
	}

	if room != nil && room.IsLive() {
		return nil, s.deny(key, &LockDeniedError{
			Reason:     DenialActiveRoomExists,
			ChannelRef: room.ChannelRef,
			GameKey:    room.GameKey,
		})
	}
	if !taken {
		return nil, s.deny(key, &LockDeniedError{Reason: DenialLockHeld})
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit lock: %w", err)
	}

	log.WithFields(log.Fields{
		"room":    key.String(),
		"game":    gameKey,
		"expires": lock.ExpiresAt,
	}).Debug("Room creation lock granted")

	return lock, nil
}

func (s *lockStore) deny(key models.RoomKey, denied *LockDeniedError) error {
	log.WithFields(log.Fields{
		"room":   key.String(),
		"reason": denied.Reason,
	}).Info("Room creation lock denied")

	if s.eventPublisher != nil {
		s.eventPublisher.Publish(events.LockDeniedEvent{
			CommunityID: key.CommunityID,
			UserID:      key.UserID,
			Reason:      string(denied.Reason),
		})
	}
	return denied
}

// Release is idempotent
func (s *lockStore) Release(ctx context.Context, key models.RoomKey, ownerToken string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := uow.LockRepository().Delete(ctx, key, ownerToken); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	return uow.Commit()
}
