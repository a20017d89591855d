package service

import (
	"context"

	"gamerooms/games"
	"gamerooms/models"
)

// EventKind names a user intent delivered by the chat gateway
type EventKind string

const (
	EventOpen   EventKind = "open"
	EventSwitch EventKind = "switch"
	EventResume EventKind = "resume"
	EventClose  EventKind = "close"
	EventMove   EventKind = "move"
)

// Choice ids understood by the gateway adapter
const (
	ChoiceSwitchPrefix = "room_switch:"
	ChoiceResume       = "room_resume"
	ChoiceMovePrefix   = "hl_"
)

// Choice is a clickable option attached to a reply
type Choice struct {
	ID    string
	Label string
}

// Response is a short reply to the user who triggered an event
type Response struct {
	Content string
	// ChannelRef points the user at a room channel
	ChannelRef string
	Choices    []Choice
	// Private replies are shown only to the triggering user where the platform allows it
	Private bool
}

// Replier delivers a response back to wherever the event came from
type Replier interface {
	Reply(ctx context.Context, resp Response) error
}

// ReplierFunc adapts a function to Replier
type ReplierFunc func(ctx context.Context, resp Response) error

func (f ReplierFunc) Reply(ctx context.Context, resp Response) error {
	return f(ctx, resp)
}

// Event is a normalized gateway event
type Event struct {
	Kind        EventKind
	CommunityID string
	UserID      string
	DisplayName string
	// ChannelRef is where the event happened, used to route moves
	ChannelRef string
	GameKey    models.GameKey
	Payload    string
	Reply      Replier
}

// Key returns the room key of the user who triggered the event
func (e Event) Key() models.RoomKey {
	return models.RoomKey{CommunityID: e.CommunityID, UserID: e.UserID}
}

// CreateRequest asks for a new room
type CreateRequest struct {
	CommunityID string
	UserID      string
	DisplayName string
	GameKey     models.GameKey
}

// Key returns the room key for the request
func (r CreateRequest) Key() models.RoomKey {
	return models.RoomKey{CommunityID: r.CommunityID, UserID: r.UserID}
}

// Move is one player input inside a room channel
type Move struct {
	ChannelRef string
	ActorID    string
	Payload    string
}

// MoveResult reports what an accepted move did
type MoveResult struct {
	Key      models.RoomKey
	GameKey  models.GameKey
	Outcome  games.Outcome
	Credited *models.LedgerHistory
	Closing  bool
}
