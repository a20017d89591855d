package service

import (
	"context"
	"fmt"

	"gamerooms/clock"
	"gamerooms/models"
)

// RoomRegistry is the durable record of which rooms exist
type RoomRegistry interface {
	// GetActive returns the user's active room or nil
	GetActive(ctx context.Context, key models.RoomKey) (*models.RoomSession, error)

	// MarkCreating records that creation has started
	MarkCreating(ctx context.Context, key models.RoomKey, gameKey models.GameKey) error

	// PromoteActive binds the channel and consumes the creation lock in one step
	PromoteActive(ctx context.Context, key models.RoomKey, channelRef, ownerToken string) error

	// Touch records user activity on the room bound to channelRef. It returns
	// ErrRoomReplaced when that room is no longer the user's current one.
	Touch(ctx context.Context, key models.RoomKey, channelRef string) error

	// Clear removes the room bound to channelRef and any creation lock. It
	// returns ErrRoomReplaced, and changes nothing, when the row is gone or
	// belongs to a newer room.
	Clear(ctx context.Context, key models.RoomKey, channelRef string) error

	// Abandon undoes an unfinished creation while the caller still owns the lock
	Abandon(ctx context.Context, key models.RoomKey, ownerToken string) error

	// ListActive returns all active rooms
	ListActive(ctx context.Context) ([]*models.RoomSession, error)
}

type roomRegistry struct {
	uowFactory UnitOfWorkFactory
	clock      clock.Clock
}

// NewRoomRegistry creates a new room registry
func NewRoomRegistry(uowFactory UnitOfWorkFactory, c clock.Clock) RoomRegistry {
	return &roomRegistry{
		uowFactory: uowFactory,
		clock:      c,
	}
}

func (r *roomRegistry) GetActive(ctx context.Context, key models.RoomKey) (*models.RoomSession, error) {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	room, err := uow.RoomRepository().Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if room == nil || room.Status != models.RoomStatusActive {
		return nil, nil
	}

	return room, nil
}

func (r *roomRegistry) MarkCreating(ctx context.Context, key models.RoomKey, gameKey models.GameKey) error {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.RoomRepository().UpsertCreating(ctx, key, gameKey, r.clock.Now()); err != nil {
		return err
	}

	return uow.Commit()
}

// PromoteActive fails with ErrLockLost when another caller took over the lock,
// in which case nothing is written
func (r *roomRegistry) PromoteActive(ctx context.Context, key models.RoomKey, channelRef, ownerToken string) error {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	deleted, err := uow.LockRepository().Delete(ctx, key, ownerToken)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrLockLost
	}

	if err := uow.RoomRepository().Promote(ctx, key, channelRef, r.clock.Now()); err != nil {
		return err
	}

	return uow.Commit()
}

func (r *roomRegistry) Touch(ctx context.Context, key models.RoomKey, channelRef string) error {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	touched, err := uow.RoomRepository().Touch(ctx, key, channelRef, r.clock.Now())
	if err != nil {
		return err
	}
	if !touched {
		return ErrRoomReplaced
	}

	return uow.Commit()
}

func (r *roomRegistry) Clear(ctx context.Context, key models.RoomKey, channelRef string) error {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	deleted, err := uow.RoomRepository().Delete(ctx, key, channelRef)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrRoomReplaced
	}
	if _, err := uow.LockRepository().Delete(ctx, key, ""); err != nil {
		return err
	}

	return uow.Commit()
}

// Abandon leaves everything alone when the lock was already taken over, so a
// slow failed attempt cannot wipe out a newer creation
func (r *roomRegistry) Abandon(ctx context.Context, key models.RoomKey, ownerToken string) error {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	deleted, err := uow.LockRepository().Delete(ctx, key, ownerToken)
	if err != nil {
		return err
	}
	if deleted {
		if err := uow.RoomRepository().DeleteIfCreating(ctx, key); err != nil {
			return err
		}
	}

	return uow.Commit()
}

func (r *roomRegistry) ListActive(ctx context.Context) ([]*models.RoomSession, error) {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.RoomRepository().ListActive(ctx)
}
