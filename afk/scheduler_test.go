package afk

import (
	"sync"
	"testing"
	"time"

	"gamerooms/clock"
	"gamerooms/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu        sync.Mutex
	announced []time.Duration
	evicted   []uint64
}

func (h *recordingHandler) Announce(_ models.RoomKey, _ string, _ uint64, remaining time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.announced = append(h.announced, remaining)
}

func (h *recordingHandler) Evict(_ models.RoomKey, generation uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.evicted = append(h.evicted, generation)
}

func (h *recordingHandler) evictions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.evicted)
}

func newTestScheduler() (*Scheduler, *clock.Fake, *recordingHandler) {
	fake := clock.NewFake(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	s := NewScheduler(fake, Settings{
		Idle:      30 * time.Second,
		Countdown: 90 * time.Second,
		Tick:      10 * time.Second,
	})
	h := &recordingHandler{}
	s.SetHandler(h)
	return s, fake, h
}

var testKey = models.RoomKey{CommunityID: "guild-1", UserID: "user-1"}

func TestScheduler_TrackStartsIdleWait(t *testing.T) {
	s, _, _ := newTestScheduler()

	gen := s.Track(testKey, "chan-1", "user-1")

	snap, ok := s.Snapshot(testKey)
	require.True(t, ok)
	assert.Equal(t, PhaseIdleWait, snap.Phase)
	assert.Equal(t, 30*time.Second, snap.Remaining)
	assert.Equal(t, "chan-1", snap.ChannelRef)
	assert.Equal(t, gen, snap.Generation)
	assert.True(t, s.IsCurrent(testKey, gen))
}

func TestScheduler_CountdownAnnouncesEveryTick(t *testing.T) {
	s, fake, h := newTestScheduler()
	s.Track(testKey, "chan-1", "user-1")

	fake.Advance(30 * time.Second)

	snap, ok := s.Snapshot(testKey)
	require.True(t, ok)
	assert.Equal(t, PhaseCountdown, snap.Phase)
	assert.Equal(t, []time.Duration{90 * time.Second}, h.announced)

	fake.Advance(30 * time.Second)
	assert.Equal(t, []time.Duration{90 * time.Second, 80 * time.Second, 70 * time.Second, 60 * time.Second}, h.announced)
	assert.Zero(t, h.evictions())
}

func TestScheduler_EvictsAfterFullCountdown(t *testing.T) {
	s, fake, h := newTestScheduler()
	gen := s.Track(testKey, "chan-1", "user-1")

	fake.Advance(119 * time.Second)
	assert.Zero(t, h.evictions())

	fake.Advance(time.Second)
	require.Equal(t, 1, h.evictions())
	assert.Equal(t, gen, h.evicted[0])
	// 90s announced at start, then 80..10 on ticks
	assert.Len(t, h.announced, 9)
	assert.Zero(t, fake.Pending())
}

func TestScheduler_ActivityRestartsIdleWait(t *testing.T) {
	s, fake, h := newTestScheduler()
	s.Track(testKey, "chan-1", "user-1")

	fake.Advance(29 * time.Second)
	require.True(t, s.Touch(testKey))

	// no countdown before t=59s
	fake.Advance(29 * time.Second)
	snap, _ := s.Snapshot(testKey)
	assert.Equal(t, PhaseIdleWait, snap.Phase)
	assert.Empty(t, h.announced)

	fake.Advance(time.Second)
	snap, _ = s.Snapshot(testKey)
	assert.Equal(t, PhaseCountdown, snap.Phase)
	assert.Zero(t, h.evictions())
}

func TestScheduler_TouchDuringCountdownResets(t *testing.T) {
	s, fake, h := newTestScheduler()
	first := s.Track(testKey, "chan-1", "user-1")

	fake.Advance(50 * time.Second)
	require.True(t, s.Touch(testKey))

	snap, _ := s.Snapshot(testKey)
	assert.Equal(t, PhaseIdleWait, snap.Phase)
	assert.NotEqual(t, first, snap.Generation)
	assert.False(t, s.IsCurrent(testKey, first))

	fake.Advance(100 * time.Second)
	assert.Zero(t, h.evictions())
	assert.Equal(t, 1, fake.Pending())
}

func TestScheduler_CancelStopsEverything(t *testing.T) {
	s, fake, h := newTestScheduler()
	s.Track(testKey, "chan-1", "user-1")

	s.Cancel(testKey)
	fake.Advance(5 * time.Minute)

	_, ok := s.Snapshot(testKey)
	assert.False(t, ok)
	assert.False(t, s.Touch(testKey))
	assert.Empty(t, h.announced)
	assert.Zero(t, h.evictions())
}

func TestScheduler_RetrackReplacesTimer(t *testing.T) {
	s, fake, h := newTestScheduler()
	first := s.Track(testKey, "chan-1", "user-1")
	fake.Advance(20 * time.Second)

	second := s.Track(testKey, "chan-2", "user-1")
	assert.NotEqual(t, first, second)

	fake.Advance(20 * time.Second)
	assert.Empty(t, h.announced)
	assert.Equal(t, 1, fake.Pending())
}

func TestScheduler_StopIgnoresLaterTracks(t *testing.T) {
	s, fake, _ := newTestScheduler()
	s.Track(testKey, "chan-1", "user-1")

	s.Stop()
	assert.Zero(t, s.Len())
	assert.Zero(t, s.Track(testKey, "chan-1", "user-1"))

	fake.Advance(time.Hour)
	assert.Zero(t, fake.Pending())
}
