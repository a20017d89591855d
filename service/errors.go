package service

import (
	"errors"
	"fmt"

	"gamerooms/games"
	"gamerooms/models"
)

var (
	// ErrLockDenied matches every LockDeniedError
	ErrLockDenied = errors.New("room creation denied")

	// ErrRoomSurface matches every RoomSurfaceError
	ErrRoomSurface = errors.New("chat surface failure")

	// ErrInvalidInput is returned when a game rejects a move
	ErrInvalidInput = games.ErrInvalidInput

	ErrRoomClosing  = errors.New("room is closing")
	ErrRoomNotFound = errors.New("room not found")
	ErrLockLost     = errors.New("creation lock was superseded")
	ErrNotRoomOwner = errors.New("only the room owner can play here")

	// ErrRoomReplaced means the registry no longer holds this room instance,
	// because it was closed or replaced by another process
	ErrRoomReplaced = errors.New("room was closed or replaced elsewhere")
)

// DenialReason explains why a lock could not be granted
type DenialReason string

const (
	DenialActiveRoomExists DenialReason = "active_room_exists"
	DenialLockHeld         DenialReason = "lock_held"
)

// LockDeniedError is returned by TryAcquire when creation must not proceed
type LockDeniedError struct {
	Reason     DenialReason
	ChannelRef string
	GameKey    models.GameKey
}

func (e *LockDeniedError) Error() string {
	if e.Reason == DenialActiveRoomExists {
		return fmt.Sprintf("room creation denied: active %s room in channel %s", e.GameKey, e.ChannelRef)
	}
	return "room creation denied: creation already in progress"
}

func (e *LockDeniedError) Is(target error) bool {
	return target == ErrLockDenied
}

// RoomSurfaceError wraps a chat platform failure during a room operation
type RoomSurfaceError struct {
	Op  string
	Err error
}

func (e *RoomSurfaceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RoomSurfaceError) Unwrap() error {
	return e.Err
}

func (e *RoomSurfaceError) Is(target error) bool {
	return target == ErrRoomSurface
}
