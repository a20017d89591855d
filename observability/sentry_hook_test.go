package observability

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedEvents struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (c *capturedEvents) all() []*sentry.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*sentry.Event(nil), c.events...)
}

func newTestLogger(t *testing.T) (*log.Logger, *capturedEvents) {
	captured := &capturedEvents{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn: "https://public@example.com/1",
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			captured.mu.Lock()
			captured.events = append(captured.events, event)
			captured.mu.Unlock()
			// Drop the event so nothing leaves the test
			return nil
		},
	})
	require.NoError(t, err)

	logger := log.New()
	logger.SetOutput(io.Discard)
	logger.AddHook(NewSentryHook(sentry.NewHub(client, sentry.NewScope())))
	return logger, captured
}

func TestSentryHook_CapturesErrorsWithFields(t *testing.T) {
	logger, captured := newTestLogger(t)

	logger.WithError(errors.New("clear failed")).
		WithField("room", "guild-1:user-1").
		Error("Failed to close room")

	events := captured.all()
	require.Len(t, events, 1)
	event := events[0]
	assert.Equal(t, sentry.LevelError, event.Level)
	assert.Equal(t, "guild-1:user-1", event.Tags["room"])
	assert.Equal(t, "Failed to close room", event.Tags["log_message"])
	require.NotEmpty(t, event.Exception)
	assert.Equal(t, "clear failed", event.Exception[0].Value)
}

func TestSentryHook_MessageWithoutError(t *testing.T) {
	logger, captured := newTestLogger(t)

	logger.Error("Room surface unreachable")

	events := captured.all()
	require.Len(t, events, 1)
	assert.Equal(t, "Room surface unreachable", events[0].Message)
}

func TestSentryHook_IgnoresLowerLevels(t *testing.T) {
	logger, captured := newTestLogger(t)

	logger.Warn("Failed to delete room channel")
	logger.Info("Room opened")

	assert.Empty(t, captured.all())
}

func TestSetup_WithoutSinks(t *testing.T) {
	cleanup, err := Setup(Options{Level: "debug", Environment: "test"})
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, log.DebugLevel, log.GetLevel())
}
