package events

import (
	"context"
	"sync"

	"gamerooms/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeRoomOpened     EventType = "room_opened"
	EventTypeRoomClosed     EventType = "room_closed"
	EventTypePointsCredited EventType = "points_credited"
	EventTypeLockDenied     EventType = "lock_denied"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// RoomOpenedEvent is emitted once a room is promoted to active
type RoomOpenedEvent struct {
	CommunityID string         `json:"community_id"`
	UserID      string         `json:"user_id"`
	ChannelRef  string         `json:"channel_ref"`
	GameKey     models.GameKey `json:"game_key"`
}

func (e RoomOpenedEvent) Type() EventType {
	return EventTypeRoomOpened
}

// RoomClosedEvent is emitted after a room has been torn down
type RoomClosedEvent struct {
	CommunityID string             `json:"community_id"`
	UserID      string             `json:"user_id"`
	ChannelRef  string             `json:"channel_ref"`
	GameKey     models.GameKey     `json:"game_key"`
	Reason      models.CloseReason `json:"reason"`
}

func (e RoomClosedEvent) Type() EventType {
	return EventTypeRoomClosed
}

// PointsCreditedEvent represents a committed ledger change
type PointsCreditedEvent struct {
	UserID       string              `json:"user_id"`
	PointsBefore int64               `json:"points_before"`
	PointsAfter  int64               `json:"points_after"`
	Delta        int64               `json:"delta"`
	Reason       models.CreditReason `json:"reason"`
	GameKey      models.GameKey      `json:"game_key,omitempty"`
}

func (e PointsCreditedEvent) Type() EventType {
	return EventTypePointsCredited
}

// LockDeniedEvent records a refused room creation
type LockDeniedEvent struct {
	CommunityID string `json:"community_id"`
	UserID      string `json:"user_id"`
	Reason      string `json:"reason"`
}

func (e LockDeniedEvent) Type() EventType {
	return EventTypeLockDenied
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type on main event bus")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers on main event bus")

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Publish emits immediately; used outside a unit of work
func (b *Bus) Publish(event Event) {
	b.Emit(context.Background(), event)
}

// TransactionalBus holds pending events coupled to a unit of work and
// flushes them to the underlying bus after commit.
type TransactionalBus struct {
	real    *Bus
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// Flush is called after a successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events from transactional bus to main event bus")

	// Handlers outlive the transaction, so they get a detached context
	eventCtx := context.WithoutCancel(ctx)

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops pending events after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
