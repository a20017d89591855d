package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gamerooms/afk"
	"gamerooms/clock"
	"gamerooms/events"
	"gamerooms/games"
	"gamerooms/models"

	log "github.com/sirupsen/logrus"
)

// teardownRetryDelay spaces out attempts to clear a closing room while the registry is failing
const teardownRetryDelay = 10 * time.Second

type roomState int

const (
	roomActive roomState = iota
	roomClosing
)

// liveRoom is the process-local half of a room. Its mutex serializes moves,
// closes and inactivity eviction for that room.
type liveRoom struct {
	mu         sync.Mutex
	session    models.RoomSession
	engine     games.Engine
	state      roomState
	closeTimer clock.Timer // delayed or retried teardown
	closed     chan struct{}
}

func newLiveRoom(session models.RoomSession, engine games.Engine) *liveRoom {
	return &liveRoom{
		session: session,
		engine:  engine,
		state:   roomActive,
		closed:  make(chan struct{}),
	}
}

// SessionDeps are the collaborators of the session manager
type SessionDeps struct {
	Locks          LockStore
	Registry       RoomRegistry
	Ledger         LedgerService
	Gateway        ChatGateway
	Scheduler      *afk.Scheduler
	Engines        *games.Factory
	EventPublisher EventPublisher
	Clock          clock.Clock
	// CloseDelay keeps a finished game's channel around long enough to read the result
	CloseDelay time.Duration
}

// SessionManager drives the room lifecycle: creation, moves, closing and eviction
type SessionManager struct {
	locks          LockStore
	registry       RoomRegistry
	ledger         LedgerService
	gateway        ChatGateway
	scheduler      *afk.Scheduler
	engines        *games.Factory
	eventPublisher EventPublisher
	clock          clock.Clock
	closeDelay     time.Duration

	mu        sync.RWMutex
	rooms     map[models.RoomKey]*liveRoom
	byChannel map[string]models.RoomKey

	creating keyedMutex
}

// NewSessionManager creates a session manager and registers it as the scheduler's handler
func NewSessionManager(deps SessionDeps) *SessionManager {
	m := &SessionManager{
		locks:          deps.Locks,
		registry:       deps.Registry,
		ledger:         deps.Ledger,
		gateway:        deps.Gateway,
		scheduler:      deps.Scheduler,
		engines:        deps.Engines,
		eventPublisher: deps.EventPublisher,
		clock:          deps.Clock,
		closeDelay:     deps.CloseDelay,
		rooms:          make(map[models.RoomKey]*liveRoom),
		byChannel:      make(map[string]models.RoomKey),
	}
	deps.Scheduler.SetHandler(m)
	return m
}

// RequestCreate opens a new room for the user, or returns a *LockDeniedError
func (m *SessionManager) RequestCreate(ctx context.Context, req CreateRequest) (*models.RoomSession, error) {
	if !req.GameKey.Valid() {
		return nil, fmt.Errorf("%w: unknown game %q", ErrInvalidInput, req.GameKey)
	}

	unlock := m.creating.Lock(req.Key())
	defer unlock()

	lock, err := m.locks.TryAcquire(ctx, req.Key(), req.GameKey)
	if err != nil {
		return nil, err
	}

	return m.create(ctx, req, lock)
}

// ForceSwitch closes the user's current room and retries creation once
func (m *SessionManager) ForceSwitch(ctx context.Context, req CreateRequest) (*models.RoomSession, error) {
	if !req.GameKey.Valid() {
		return nil, fmt.Errorf("%w: unknown game %q", ErrInvalidInput, req.GameKey)
	}

	unlock := m.creating.Lock(req.Key())
	defer unlock()

	if err := m.Close(ctx, req.Key(), models.CloseReasonSwitch); err != nil {
		return nil, fmt.Errorf("failed to close existing room: %w", err)
	}

	lock, err := m.locks.TryAcquire(ctx, req.Key(), req.GameKey)
	if err != nil {
		return nil, err
	}

	return m.create(ctx, req, lock)
}

// Resume returns the user's existing room without changing it
func (m *SessionManager) Resume(ctx context.Context, key models.RoomKey) (*models.RoomSession, error) {
	if room := m.lookup(key); room != nil {
		room.mu.Lock()
		session, state := room.session, room.state
		room.mu.Unlock()
		if state == roomActive {
			return &session, nil
		}
		return nil, ErrRoomNotFound
	}

	session, err := m.registry.GetActive(ctx, key)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrRoomNotFound
	}
	return session, nil
}

// create runs everything after the lock grant. Any failure undoes the
// partial room so the next attempt starts clean.
func (m *SessionManager) create(ctx context.Context, req CreateRequest, lock *models.Lock) (*models.RoomSession, error) {
	key := req.Key()
	logger := log.WithFields(log.Fields{
		"room": key.String(),
		"game": req.GameKey,
	})

	abandon := func(channelRef string) {
		if channelRef != "" {
			m.deleteChannel(ctx, channelRef)
		}
		if err := m.registry.Abandon(ctx, key, lock.OwnerToken); err != nil {
			logger.WithError(err).Error("Failed to abandon room creation")
		}
	}

	if err := m.registry.MarkCreating(ctx, key, req.GameKey); err != nil {
		abandon("")
		return nil, fmt.Errorf("failed to mark room creating: %w", err)
	}

	engine, err := m.engines.New(req.GameKey)
	if err != nil {
		abandon("")
		return nil, fmt.Errorf("failed to start game: %w", err)
	}

	channelRef, err := m.gateway.CreateChannel(ctx, ChannelSpec{
		CommunityID: req.CommunityID,
		OwnerID:     req.UserID,
		Name:        channelName(req),
		Topic:       fmt.Sprintf("%s room", req.GameKey.Title()),
	})
	if err != nil {
		abandon("")
		return nil, &RoomSurfaceError{Op: "create channel", Err: err}
	}

	if err := m.registry.PromoteActive(ctx, key, channelRef, lock.OwnerToken); err != nil {
		abandon(channelRef)
		return nil, fmt.Errorf("failed to activate room: %w", err)
	}

	now := m.clock.Now()
	room := newLiveRoom(models.RoomSession{
		CommunityID:  req.CommunityID,
		UserID:       req.UserID,
		ChannelRef:   channelRef,
		GameKey:      req.GameKey,
		Status:       models.RoomStatusActive,
		LastActiveAt: now,
		CreatedAt:    now,
	}, engine)
	m.register(room)
	m.scheduler.Track(key, channelRef, req.UserID)

	if err := m.post(ctx, room.session, welcomeMessage(engine), true); err != nil {
		room.mu.Lock()
		room.state = roomClosing
		room.mu.Unlock()
		if tearErr := m.teardown(ctx, room, models.CloseReasonLost); tearErr != nil {
			logger.WithError(tearErr).Error("Failed to tear down room after welcome failure")
		}
		return nil, &RoomSurfaceError{Op: "send welcome", Err: err}
	}

	m.publish(events.RoomOpenedEvent{
		CommunityID: req.CommunityID,
		UserID:      req.UserID,
		ChannelRef:  channelRef,
		GameKey:     req.GameKey,
	})

	logger.WithField("channel", channelRef).Info("Room opened")

	session := room.session
	return &session, nil
}

// HandleMove applies a player's input to the room bound to the channel
func (m *SessionManager) HandleMove(ctx context.Context, mv Move) (*MoveResult, error) {
	room := m.lookupChannel(mv.ChannelRef)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	if room.state != roomActive {
		room.mu.Unlock()
		return nil, ErrRoomClosing
	}
	if mv.ActorID != room.session.UserID {
		room.mu.Unlock()
		return nil, ErrNotRoomOwner
	}

	outcome, err := room.engine.Apply(mv.ActorID, mv.Payload)
	if err != nil {
		room.mu.Unlock()
		return nil, err
	}

	key := room.session.Key()
	room.session.LastActiveAt = m.clock.Now()
	if outcome.Terminal {
		room.state = roomClosing
		m.scheduler.Cancel(key)
	} else {
		m.scheduler.Touch(key)
	}
	session := room.session
	room.mu.Unlock()

	result := &MoveResult{
		Key:     key,
		GameKey: session.GameKey,
		Outcome: outcome,
		Closing: outcome.Terminal,
	}

	if !outcome.Terminal {
		err := m.registry.Touch(ctx, key, session.ChannelRef)
		if errors.Is(err, ErrRoomReplaced) {
			// Another process closed or replaced this room; drop our copy
			room.mu.Lock()
			active := room.state == roomActive
			room.state = roomClosing
			room.mu.Unlock()
			if active {
				if tearErr := m.teardown(ctx, room, models.CloseReasonLost); tearErr != nil {
					log.WithError(tearErr).WithField("room", key.String()).Error("Failed to drop replaced room")
				}
			}
			return nil, fmt.Errorf("%w: %w", ErrRoomClosing, err)
		}
		if err != nil {
			log.WithError(err).WithField("room", key.String()).Warn("Failed to record room activity")
		}
	}

	if outcome.Points > 0 {
		game := session.GameKey
		history, err := m.ledger.Credit(ctx, session.UserID, outcome.Points, models.CreditReasonGameWin, &game)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"room":   key.String(),
				"points": outcome.Points,
			}).Error("Failed to credit game points")
		} else {
			result.Credited = history
		}
	}

	if err := m.post(ctx, session, moveMessage(result), !outcome.Terminal); err != nil {
		log.WithError(err).WithField("room", key.String()).Warn("Failed to post move result")
	}

	if outcome.Terminal {
		reason := models.CloseReasonLose
		if outcome.Won {
			reason = models.CloseReasonWin
		}
		m.scheduleTeardown(room, reason)
	}

	return result, nil
}

// Close tears the room down. Closing a room that is already gone is a no-op.
func (m *SessionManager) Close(ctx context.Context, key models.RoomKey, reason models.CloseReason) error {
	room := m.lookup(key)
	if room == nil {
		return m.closeDetached(ctx, key, reason)
	}

	room.mu.Lock()
	if room.state == roomClosing {
		pending := room.closeTimer
		room.closeTimer = nil
		room.mu.Unlock()

		// A finished game waiting out its delay is torn down right away
		if pending != nil && pending.Stop() {
			return m.teardown(ctx, room, reason)
		}
		select {
		case <-room.closed:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	room.state = roomClosing
	room.mu.Unlock()

	return m.teardown(ctx, room, reason)
}

// closeDetached clears a room this process does not hold in memory
func (m *SessionManager) closeDetached(ctx context.Context, key models.RoomKey, reason models.CloseReason) error {
	session, err := m.registry.GetActive(ctx, key)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}

	err = m.registry.Clear(ctx, key, session.ChannelRef)
	if errors.Is(err, ErrRoomReplaced) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to clear room: %w", err)
	}
	m.deleteChannel(ctx, session.ChannelRef)
	m.publishClosed(*session, reason)
	return nil
}

// AfkEvict closes a room whose inactivity countdown ran out. A timer that was
// superseded by activity, or a room that is already closing, is ignored.
func (m *SessionManager) AfkEvict(ctx context.Context, key models.RoomKey, generation uint64) error {
	room := m.lookup(key)
	if room == nil {
		log.WithField("room", key.String()).Debug("Ignoring inactivity timer for unknown room")
		return nil
	}

	room.mu.Lock()
	if room.state != roomActive || !m.scheduler.IsCurrent(key, generation) {
		room.mu.Unlock()
		log.WithFields(log.Fields{
			"room":       key.String(),
			"generation": generation,
		}).Debug("Ignoring stale inactivity timer")
		return nil
	}
	room.state = roomClosing
	room.mu.Unlock()

	return m.teardown(ctx, room, models.CloseReasonAFK)
}

// Evict implements afk.Handler
func (m *SessionManager) Evict(key models.RoomKey, generation uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := m.AfkEvict(ctx, key, generation); err != nil {
		log.WithError(err).WithField("room", key.String()).Error("Failed to evict idle room")
	}
}

// Announce implements afk.Handler
func (m *SessionManager) Announce(key models.RoomKey, channelRef string, generation uint64, remaining time.Duration) {
	room := m.lookup(key)
	if room == nil {
		return
	}

	room.mu.Lock()
	current := room.state == roomActive && m.scheduler.IsCurrent(key, generation)
	room.mu.Unlock()
	if !current {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := fmt.Sprintf("⏳ Still there? This room closes in %s unless you make a move.", formatRemaining(remaining))
	if err := m.gateway.SendMessage(ctx, channelRef, msg); err != nil {
		log.WithError(err).WithField("room", key.String()).Warn("Failed to announce inactivity countdown")
	}
}

// Rehydrate rebuilds live rooms from the registry after a restart. Every
// restored room starts a fresh game and a fresh idle timer.
func (m *SessionManager) Rehydrate(ctx context.Context) (int, error) {
	sessions, err := m.registry.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active rooms: %w", err)
	}

	restored := 0
	for _, session := range sessions {
		key := session.Key()
		logger := log.WithFields(log.Fields{
			"room":    key.String(),
			"channel": session.ChannelRef,
		})

		engine, err := m.engines.New(session.GameKey)
		if err != nil {
			logger.WithError(err).Error("Cannot restore room with unknown game")
			continue
		}

		room, err := m.restore(ctx, *session, engine)
		if err != nil {
			logger.WithError(err).Warn("Failed to restore room")
			continue
		}
		if room == nil {
			continue
		}

		msg := "♻️ This room was restored after a restart, so a new game has started.\n" + engine.Intro()
		if err := m.post(ctx, *session, msg, true); err != nil {
			logger.WithError(err).Warn("Restored room channel is unreachable, closing room")
			room.mu.Lock()
			room.state = roomClosing
			room.mu.Unlock()
			if err := m.teardown(ctx, room, models.CloseReasonLost); err != nil {
				logger.WithError(err).Error("Failed to close unreachable room")
			}
			continue
		}

		restored++
	}

	log.WithFields(log.Fields{
		"restored": restored,
		"found":    len(sessions),
	}).Info("Rehydrated active rooms")

	return restored, nil
}

// restore registers a room from the registry snapshot unless it was closed
// since the snapshot was taken. Holding the creation lock keeps a concurrent
// close or open for the same user out until the room is registered.
func (m *SessionManager) restore(ctx context.Context, session models.RoomSession, engine games.Engine) (*liveRoom, error) {
	key := session.Key()
	unlock := m.creating.Lock(key)
	defer unlock()

	if m.lookup(key) != nil {
		return nil, nil
	}

	current, err := m.registry.GetActive(ctx, key)
	if err != nil {
		return nil, err
	}
	if current == nil || current.ChannelRef != session.ChannelRef {
		log.WithField("room", key.String()).Debug("Room closed before it could be restored")
		return nil, nil
	}

	room := newLiveRoom(session, engine)
	m.register(room)
	m.scheduler.Track(key, session.ChannelRef, session.UserID)
	return room, nil
}

// Shutdown stops inactivity tracking and finishes any delayed closes.
// Active rooms stay in the registry and are restored on the next start.
func (m *SessionManager) Shutdown(ctx context.Context) {
	m.scheduler.Stop()

	m.mu.RLock()
	rooms := make([]*liveRoom, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.mu.RUnlock()

	for _, room := range rooms {
		room.mu.Lock()
		pending := room.closeTimer
		room.closeTimer = nil
		room.mu.Unlock()

		if pending != nil && pending.Stop() {
			if err := m.teardown(ctx, room, models.CloseReasonShutdown); err != nil {
				log.WithError(err).Error("Failed to finish pending room close during shutdown")
			}
		}
	}
}

// ActiveRooms returns the number of rooms held by this process
func (m *SessionManager) ActiveRooms() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// scheduleTeardown closes a finished room after the configured delay
func (m *SessionManager) scheduleTeardown(room *liveRoom, reason models.CloseReason) {
	if m.closeDelay <= 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := m.teardown(ctx, room, reason); err != nil {
			log.WithError(err).Error("Failed to close finished room")
		}
		return
	}
	m.armTeardown(room, reason, m.closeDelay)
}

// armTeardown runs teardown after d unless a teardown is already pending
func (m *SessionManager) armTeardown(room *liveRoom, reason models.CloseReason, d time.Duration) {
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closeTimer != nil {
		return
	}

	room.closeTimer = m.clock.AfterFunc(d, func() {
		room.mu.Lock()
		room.closeTimer = nil
		room.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := m.teardown(ctx, room, reason); err != nil {
			log.WithError(err).Error("Failed to close room")
		}
	})
}

// teardown expects the room to be marked closing already. The room never
// leaves closing: a failed registry clear is retried later.
func (m *SessionManager) teardown(ctx context.Context, room *liveRoom, reason models.CloseReason) error {
	room.mu.Lock()
	session := room.session
	room.mu.Unlock()
	key := session.Key()
	logger := log.WithFields(log.Fields{
		"room":    key.String(),
		"channel": session.ChannelRef,
		"reason":  reason,
	})

	// A newer room for the same user owns the scheduler entry
	if m.lookup(key) == room {
		m.scheduler.Cancel(key)
	}

	err := m.registry.Clear(ctx, key, session.ChannelRef)
	replaced := errors.Is(err, ErrRoomReplaced)
	if err != nil && !replaced {
		m.armTeardown(room, reason, teardownRetryDelay)
		return fmt.Errorf("failed to clear room: %w", err)
	}

	m.deleteChannel(ctx, session.ChannelRef)

	m.mu.Lock()
	if m.rooms[key] == room {
		delete(m.rooms, key)
	}
	if m.byChannel[session.ChannelRef] == key {
		delete(m.byChannel, session.ChannelRef)
	}
	m.mu.Unlock()

	close(room.closed)

	if replaced {
		// Whoever cleared the registry row already announced the close
		logger.Info("Dropped room closed elsewhere")
		return nil
	}

	m.publishClosed(session, reason)
	logger.Info("Room closed")
	return nil
}

func (m *SessionManager) register(room *liveRoom) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := room.session.Key()
	// A room replaced elsewhere stops receiving moves from its old channel
	if old := m.rooms[key]; old != nil && old != room {
		delete(m.byChannel, old.session.ChannelRef)
	}
	m.rooms[key] = room
	m.byChannel[room.session.ChannelRef] = key
}

func (m *SessionManager) lookup(key models.RoomKey) *liveRoom {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[key]
}

func (m *SessionManager) lookupChannel(channelRef string) *liveRoom {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key, ok := m.byChannel[channelRef]
	if !ok {
		return nil
	}
	room := m.rooms[key]
	if room == nil || room.session.ChannelRef != channelRef {
		return nil
	}
	return room
}

// deleteChannel failures are logged and swallowed; the room is gone either way
func (m *SessionManager) deleteChannel(ctx context.Context, channelRef string) {
	if channelRef == "" {
		return
	}
	if err := m.gateway.DeleteChannel(ctx, channelRef); err != nil {
		log.WithError(err).WithField("channel", channelRef).Warn("Failed to delete room channel")
	}
}

// post sends a message into the room, with move buttons for games that use them
func (m *SessionManager) post(ctx context.Context, session models.RoomSession, content string, withChoices bool) error {
	if withChoices {
		if choices := moveChoices(session.GameKey); len(choices) > 0 {
			return m.gateway.SendPrompt(ctx, session.ChannelRef, content, choices)
		}
	}
	return m.gateway.SendMessage(ctx, session.ChannelRef, content)
}

func (m *SessionManager) publish(event events.Event) {
	if m.eventPublisher != nil {
		m.eventPublisher.Publish(event)
	}
}

func (m *SessionManager) publishClosed(session models.RoomSession, reason models.CloseReason) {
	m.publish(events.RoomClosedEvent{
		CommunityID: session.CommunityID,
		UserID:      session.UserID,
		ChannelRef:  session.ChannelRef,
		GameKey:     session.GameKey,
		Reason:      reason,
	})
}

func channelName(req CreateRequest) string {
	owner := req.DisplayName
	if owner == "" {
		owner = req.UserID
	}
	return fmt.Sprintf("%s-%s", req.GameKey, owner)
}

func welcomeMessage(engine games.Engine) string {
	return fmt.Sprintf("**%s**\n%s\nUse `/room close` when you are done.", engine.Key().Title(), engine.Intro())
}

func moveMessage(result *MoveResult) string {
	var lines []string
	if result.Outcome.BotMove != "" {
		lines = append(lines, "🤖 "+result.Outcome.BotMove)
	}
	if result.Outcome.Message != "" {
		lines = append(lines, result.Outcome.Message)
	}
	if result.Credited != nil {
		lines = append(lines, fmt.Sprintf("+%d points (balance: %d)", result.Credited.Delta, result.Credited.PointsAfter))
	}
	if result.Closing {
		lines = append(lines, "This room will close shortly.")
	}
	return strings.Join(lines, "\n")
}

func moveChoices(game models.GameKey) []Choice {
	if game != models.GameHighLow {
		return nil
	}
	return []Choice{
		{ID: ChoiceMovePrefix + string(games.DirectionHigher), Label: "Higher"},
		{ID: ChoiceMovePrefix + string(games.DirectionLower), Label: "Lower"},
		{ID: ChoiceMovePrefix + string(games.DirectionExact), Label: "Exact"},
	}
}

func formatRemaining(d time.Duration) string {
	return d.Round(time.Second).String()
}

// Dispatch is the single entry point for gateway events. Replies go through
// the event's Replier; nothing is returned.
func (m *SessionManager) Dispatch(ctx context.Context, ev Event) {
	logger := log.WithFields(log.Fields{
		"kind":      ev.Kind,
		"community": ev.CommunityID,
		"user":      ev.UserID,
	})

	var resp *Response
	switch ev.Kind {
	case EventOpen, EventSwitch:
		resp = m.dispatchOpen(ctx, ev)
	case EventResume:
		resp = m.dispatchResume(ctx, ev)
	case EventClose:
		resp = m.dispatchClose(ctx, ev)
	case EventMove:
		resp = m.dispatchMove(ctx, ev)
	default:
		logger.Warn("Ignoring unknown event kind")
		return
	}

	if resp == nil || ev.Reply == nil {
		return
	}
	if err := ev.Reply.Reply(ctx, *resp); err != nil {
		logger.WithError(err).Warn("Failed to deliver reply")
	}
}

func (m *SessionManager) dispatchOpen(ctx context.Context, ev Event) *Response {
	req := CreateRequest{
		CommunityID: ev.CommunityID,
		UserID:      ev.UserID,
		DisplayName: ev.DisplayName,
		GameKey:     ev.GameKey,
	}

	var session *models.RoomSession
	var err error
	if ev.Kind == EventSwitch {
		session, err = m.ForceSwitch(ctx, req)
	} else {
		session, err = m.RequestCreate(ctx, req)
	}

	if err == nil {
		return &Response{
			Content:    fmt.Sprintf("Your %s room is ready.", session.GameKey.Title()),
			ChannelRef: session.ChannelRef,
			Private:    true,
		}
	}

	var denied *LockDeniedError
	switch {
	case errors.As(err, &denied) && denied.Reason == DenialActiveRoomExists:
		return &Response{
			Content:    fmt.Sprintf("You already have a %s room open.", denied.GameKey.Title()),
			ChannelRef: denied.ChannelRef,
			Private:    true,
			Choices: []Choice{
				{ID: ChoiceSwitchPrefix + string(ev.GameKey), Label: "Switch to " + ev.GameKey.Title()},
				{ID: ChoiceResume, Label: "Go to my room"},
			},
		}
	case errors.As(err, &denied):
		return &Response{Content: "Your room is still being set up. Try again in a few seconds.", Private: true}
	case errors.Is(err, ErrInvalidInput):
		return &Response{Content: "That game doesn't exist.", Private: true}
	case errors.Is(err, ErrRoomSurface):
		log.WithError(err).Warn("Room surface failure during creation")
		return &Response{Content: "Couldn't set up your room channel. Please try again.", Private: true}
	default:
		log.WithError(err).Error("Failed to open room")
		return &Response{Content: "Something went wrong opening your room.", Private: true}
	}
}

func (m *SessionManager) dispatchResume(ctx context.Context, ev Event) *Response {
	session, err := m.Resume(ctx, ev.Key())
	if errors.Is(err, ErrRoomNotFound) {
		return &Response{Content: "You don't have an open room.", Private: true}
	}
	if err != nil {
		log.WithError(err).Error("Failed to resume room")
		return &Response{Content: "Something went wrong finding your room.", Private: true}
	}
	return &Response{
		Content:    fmt.Sprintf("Your %s room is waiting.", session.GameKey.Title()),
		ChannelRef: session.ChannelRef,
		Private:    true,
	}
}

func (m *SessionManager) dispatchClose(ctx context.Context, ev Event) *Response {
	unlock := m.creating.Lock(ev.Key())
	defer unlock()

	if _, err := m.Resume(ctx, ev.Key()); err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return &Response{Content: "You don't have an open room.", Private: true}
		}
		log.WithError(err).Error("Failed to look up room for close")
		return &Response{Content: "Something went wrong closing your room.", Private: true}
	}

	if err := m.Close(ctx, ev.Key(), models.CloseReasonManual); err != nil {
		log.WithError(err).Error("Failed to close room")
		return &Response{Content: "Something went wrong closing your room.", Private: true}
	}
	return &Response{Content: "Your room has been closed.", Private: true}
}

func (m *SessionManager) dispatchMove(ctx context.Context, ev Event) *Response {
	_, err := m.HandleMove(ctx, Move{
		ChannelRef: ev.ChannelRef,
		ActorID:    ev.UserID,
		Payload:    ev.Payload,
	})

	switch {
	case err == nil:
		// the result was posted into the room
		return nil
	case errors.Is(err, ErrRoomNotFound):
		return nil
	case errors.Is(err, ErrNotRoomOwner):
		return &Response{Content: "Only the room owner can play here.", Private: true}
	case errors.Is(err, ErrRoomClosing):
		return &Response{Content: "This room is closing.", Private: true}
	case errors.Is(err, ErrInvalidInput):
		hint := strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": ")
		return &Response{Content: "⚠️ " + hint, Private: true}
	default:
		log.WithError(err).Error("Failed to handle move")
		return &Response{Content: "Something went wrong with that move.", Private: true}
	}
}

// keyedMutex hands out one mutex per room key and forgets it when unused
type keyedMutex struct {
	mu    sync.Mutex
	locks map[models.RoomKey]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// Lock blocks until the key is free and returns its unlock function
func (k *keyedMutex) Lock(key models.RoomKey) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[models.RoomKey]*refMutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &refMutex{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
