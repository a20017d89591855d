package infrastructure

import (
	"fmt"

	"gamerooms/events"
)

const (
	SubjectRoomOpened     = "gamerooms.rooms.opened"
	SubjectRoomClosed     = "gamerooms.rooms.closed"
	SubjectLockDenied     = "gamerooms.rooms.lock_denied"
	SubjectPointsCredited = "gamerooms.ledger.credited"
)

// MapEventToSubject converts a domain event to its NATS subject
func MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeRoomOpened:
		return SubjectRoomOpened
	case events.EventTypeRoomClosed:
		return SubjectRoomClosed
	case events.EventTypeLockDenied:
		return SubjectLockDenied
	case events.EventTypePointsCredited:
		return SubjectPointsCredited
	default:
		return fmt.Sprintf("gamerooms.unknown.%s", event.Type())
	}
}

// AllSubjects returns every subject this service publishes to
func AllSubjects() []string {
	return []string{
		SubjectRoomOpened,
		SubjectRoomClosed,
		SubjectLockDenied,
		SubjectPointsCredited,
	}
}
