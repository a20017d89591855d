package models

import (
	"fmt"
	"time"
)

// GameKey identifies which mini-game a room is running
type GameKey string

const (
	GameGuess    GameKey = "guess"
	GameHighLow  GameKey = "highlow"
	GameCounting GameKey = "counting"
)

// AllGames lists the games in the order they are offered
var AllGames = []GameKey{GameGuess, GameHighLow, GameCounting}

// Valid reports whether the key names a known game
func (g GameKey) Valid() bool {
	switch g {
	case GameGuess, GameHighLow, GameCounting:
		return true
	}
	return false
}

// Title is the display name of the game
func (g GameKey) Title() string {
	switch g {
	case GameGuess:
		return "Guess the Number"
	case GameHighLow:
		return "Higher or Lower"
	case GameCounting:
		return "Counting"
	}
	return string(g)
}

// RoomStatus represents the durable lifecycle state of a room
type RoomStatus string

const (
	RoomStatusCreating RoomStatus = "creating"
	RoomStatusActive   RoomStatus = "active"
)

// RoomKey addresses a room by its owner within a community
type RoomKey struct {
	CommunityID string
	UserID      string
}

func (k RoomKey) String() string {
	return fmt.Sprintf("%s:%s", k.CommunityID, k.UserID)
}

// RoomSession is the durable record of a user's current room
type RoomSession struct {
	CommunityID  string     `db:"community_id"`
	UserID       string     `db:"user_id"`
	ChannelRef   string     `db:"channel_ref"`
	GameKey      GameKey    `db:"game_key"`
	Status       RoomStatus `db:"status"`
	LastActiveAt time.Time  `db:"last_active_at"`
	CreatedAt    time.Time  `db:"created_at"`
}

// Key returns the room's registry key
func (r *RoomSession) Key() RoomKey {
	return RoomKey{CommunityID: r.CommunityID, UserID: r.UserID}
}

// IsLive reports whether the room is active and bound to a channel
func (r *RoomSession) IsLive() bool {
	return r.Status == RoomStatusActive && r.ChannelRef != ""
}

// CloseReason records why a room was torn down
type CloseReason string

const (
	CloseReasonWin      CloseReason = "win"
	CloseReasonLose     CloseReason = "lose"
	CloseReasonManual   CloseReason = "manual"
	CloseReasonAFK      CloseReason = "afk"
	CloseReasonSwitch   CloseReason = "switch"
	CloseReasonShutdown CloseReason = "shutdown"
	CloseReasonLost     CloseReason = "lost" // channel disappeared underneath the room
)
