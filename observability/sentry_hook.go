package observability

import (
	"fmt"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

// SentryHook reports error-level log entries to Sentry. Structured fields
// become tags; an attached error is captured as an exception.
type SentryHook struct {
	hub *sentry.Hub
}

// NewSentryHook creates a hook that reports through the given hub
func NewSentryHook(hub *sentry.Hub) *SentryHook {
	return &SentryHook{hub: hub}
}

// Levels implements log.Hook
func (h *SentryHook) Levels() []log.Level {
	return []log.Level{log.PanicLevel, log.FatalLevel, log.ErrorLevel}
}

// Fire implements log.Hook
func (h *SentryHook) Fire(entry *log.Entry) error {
	h.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentryLevel(entry.Level))
		for key, value := range entry.Data {
			if key == log.ErrorKey {
				continue
			}
			scope.SetTag(key, fmt.Sprint(value))
		}

		if err, ok := entry.Data[log.ErrorKey].(error); ok {
			scope.SetTag("log_message", entry.Message)
			h.hub.CaptureException(err)
			return
		}
		h.hub.CaptureMessage(entry.Message)
	})
	return nil
}

func sentryLevel(level log.Level) sentry.Level {
	switch level {
	case log.PanicLevel, log.FatalLevel:
		return sentry.LevelFatal
	default:
		return sentry.LevelError
	}
}
