package observability

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls process-wide logging
type Options struct {
	Level       string
	Environment string
	// LogFile additionally writes logs to a rotated file when set
	LogFile string
	// SentryDSN forwards error logs to Sentry when set
	SentryDSN string
}

// OptionsFromEnv reads logging options before the full config is loaded,
// so migrations and startup failures are logged the same way
func OptionsFromEnv() Options {
	return Options{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: os.Getenv("ENVIRONMENT"),
		LogFile:     os.Getenv("LOG_FILE"),
		SentryDSN:   os.Getenv("SENTRY_DSN"),
	}
}

// Setup configures the global logrus logger and returns a function that
// flushes and closes whatever it opened
func Setup(opts Options) (func(), error) {
	level, err := log.ParseLevel(opts.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if opts.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	var closers []func()

	if opts.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		log.SetOutput(io.MultiWriter(os.Stderr, rotator))
		closers = append(closers, func() { _ = rotator.Close() })
	}

	if opts.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         opts.SentryDSN,
			Environment: opts.Environment,
		}); err != nil {
			return nil, fmt.Errorf("failed to initialize sentry: %w", err)
		}
		log.AddHook(NewSentryHook(sentry.CurrentHub()))
		closers = append(closers, func() { sentry.Flush(2 * time.Second) })
	}

	return func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}
