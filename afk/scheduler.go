// Package afk schedules idle detection and eviction countdowns for live rooms.
//
// A tracked room first sits in an idle-wait phase. If nothing touches it before
// the idle window elapses, a countdown starts and is announced at every tick.
// When the countdown reaches zero the handler is asked to evict the room.
// Every arm carries a generation so callbacks from superseded timers are dropped.
package afk

import (
	"sync"
	"time"

	"gamerooms/clock"
	"gamerooms/models"

	log "github.com/sirupsen/logrus"
)

// Phase is the current stage of a room's inactivity timer
type Phase string

const (
	PhaseIdleWait  Phase = "idle-wait"
	PhaseCountdown Phase = "countdown"
)

// Handler receives countdown announcements and eviction requests.
// Calls are made without any scheduler lock held.
type Handler interface {
	Announce(key models.RoomKey, channelRef string, generation uint64, remaining time.Duration)
	Evict(key models.RoomKey, generation uint64)
}

// Timer is a point-in-time view of a room's inactivity state
type Timer struct {
	ChannelRef string
	OwnerID    string
	Phase      Phase
	Remaining  time.Duration
	Generation uint64
}

// Settings controls the inactivity windows
type Settings struct {
	Idle      time.Duration
	Countdown time.Duration
	Tick      time.Duration
}

type entry struct {
	channelRef string
	ownerID    string
	phase      Phase
	remaining  time.Duration
	generation uint64
	timer      clock.Timer
}

// Scheduler tracks one inactivity timer per room
type Scheduler struct {
	clock    clock.Clock
	handler  Handler
	settings Settings

	mu         sync.Mutex
	entries    map[models.RoomKey]*entry
	generation uint64
	stopped    bool
}

// NewScheduler creates a scheduler. SetHandler must be called before Track.
func NewScheduler(c clock.Clock, settings Settings) *Scheduler {
	return &Scheduler{
		clock:    c,
		settings: settings,
		entries:  make(map[models.RoomKey]*entry),
	}
}

// SetHandler wires the eviction target; the session manager and scheduler reference each other
func (s *Scheduler) SetHandler(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Track starts watching a room, replacing any previous timer for the key
func (s *Scheduler) Track(key models.RoomKey, channelRef, ownerID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return 0
	}
	if old, ok := s.entries[key]; ok && old.timer != nil {
		old.timer.Stop()
	}

	e := &entry{channelRef: channelRef, ownerID: ownerID}
	s.entries[key] = e
	s.armIdleLocked(key, e)

	log.WithFields(log.Fields{
		"room":       key.String(),
		"channel":    channelRef,
		"generation": e.generation,
	}).Debug("Tracking room for inactivity")
	return e.generation
}

// Touch records activity: pending timers are cancelled and idle-wait restarts from zero.
// It reports false when the room is not tracked.
func (s *Scheduler) Touch(key models.RoomKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || s.stopped {
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	s.armIdleLocked(key, e)
	return true
}

// Cancel stops and forgets the room's timer
func (s *Scheduler) Cancel(key models.RoomKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(s.entries, key)
	}
}

// Snapshot returns the current timer state for a room
func (s *Scheduler) Snapshot(key models.RoomKey) (Timer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Timer{}, false
	}
	return Timer{
		ChannelRef: e.channelRef,
		OwnerID:    e.ownerID,
		Phase:      e.phase,
		Remaining:  e.remaining,
		Generation: e.generation,
	}, true
}

// IsCurrent reports whether generation is the live arm for the room
func (s *Scheduler) IsCurrent(key models.RoomKey, generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	return ok && e.generation == generation
}

// Len returns the number of tracked rooms
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop cancels every timer; later Track calls are ignored
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(s.entries, key)
	}
	s.stopped = true
}

func (s *Scheduler) armIdleLocked(key models.RoomKey, e *entry) {
	s.generation++
	gen := s.generation

	e.generation = gen
	e.phase = PhaseIdleWait
	e.remaining = s.settings.Idle
	e.timer = s.clock.AfterFunc(s.settings.Idle, func() {
		s.onIdle(key, gen)
	})
}

func (s *Scheduler) onIdle(key models.RoomKey, gen uint64) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok || e.generation != gen || e.phase != PhaseIdleWait {
		s.mu.Unlock()
		return
	}
	e.phase = PhaseCountdown
	e.remaining = s.settings.Countdown
	s.armTickLocked(key, e)
	channelRef, remaining, handler := e.channelRef, e.remaining, s.handler
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"room":      key.String(),
		"remaining": remaining,
	}).Info("Room idle, starting eviction countdown")

	if handler != nil {
		handler.Announce(key, channelRef, gen, remaining)
	}
}

func (s *Scheduler) onTick(key models.RoomKey, gen uint64) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok || e.generation != gen || e.phase != PhaseCountdown {
		s.mu.Unlock()
		return
	}

	step := s.settings.Tick
	if step > e.remaining {
		step = e.remaining
	}
	e.remaining -= step

	handler := s.handler
	channelRef, remaining := e.channelRef, e.remaining
	if remaining <= 0 {
		e.timer = nil
		s.mu.Unlock()

		log.WithFields(log.Fields{
			"room":       key.String(),
			"generation": gen,
		}).Info("Countdown elapsed, evicting room")
		if handler != nil {
			handler.Evict(key, gen)
		}
		return
	}
	s.armTickLocked(key, e)
	s.mu.Unlock()

	if handler != nil {
		handler.Announce(key, channelRef, gen, remaining)
	}
}

func (s *Scheduler) armTickLocked(key models.RoomKey, e *entry) {
	gen := e.generation
	step := s.settings.Tick
	if step > e.remaining {
		step = e.remaining
	}
	e.timer = s.clock.AfterFunc(step, func() {
		s.onTick(key, gen)
	})
}
