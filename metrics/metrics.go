package metrics

import (
	"context"
	"sync"
	"time"

	"gamerooms/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roomsOpenedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamerooms_rooms_opened_total",
			Help: "Total number of rooms opened labeled by game",
		},
		[]string{"game"},
	)
	roomsClosedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamerooms_rooms_closed_total",
			Help: "Total number of rooms closed labeled by reason",
		},
		[]string{"reason"},
	)
	lockDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamerooms_lock_denials_total",
			Help: "Total number of refused room creations labeled by reason",
		},
		[]string{"reason"},
	)
	pointsCreditedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamerooms_points_credited_total",
			Help: "Sum of points credited labeled by reason",
		},
		[]string{"reason"},
	)
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamerooms_commands_total",
			Help: "Total number of gateway interactions labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gamerooms_command_duration_seconds",
			Help:    "Duration of gateway interactions in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
)

var activeRoomsOnce sync.Once

// RegisterActiveRooms exposes the number of live rooms held by this process.
// Only the first call registers a gauge.
func RegisterActiveRooms(count func() int) {
	activeRoomsOnce.Do(func() {
		promauto.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "gamerooms_active_rooms",
				Help: "Current number of live rooms held by this process",
			},
			func() float64 { return float64(count()) },
		)
	})
}

// Subscribe counts room lifecycle and ledger events from the bus
func Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventTypeRoomOpened, func(_ context.Context, e events.Event) {
		if opened, ok := e.(events.RoomOpenedEvent); ok {
			roomsOpenedTotal.WithLabelValues(string(opened.GameKey)).Inc()
		}
	})
	bus.Subscribe(events.EventTypeRoomClosed, func(_ context.Context, e events.Event) {
		if closed, ok := e.(events.RoomClosedEvent); ok {
			roomsClosedTotal.WithLabelValues(string(closed.Reason)).Inc()
		}
	})
	bus.Subscribe(events.EventTypeLockDenied, func(_ context.Context, e events.Event) {
		if denied, ok := e.(events.LockDeniedEvent); ok {
			lockDenialsTotal.WithLabelValues(denied.Reason).Inc()
		}
	})
	bus.Subscribe(events.EventTypePointsCredited, func(_ context.Context, e events.Event) {
		if credited, ok := e.(events.PointsCreditedEvent); ok && credited.Delta > 0 {
			pointsCreditedTotal.WithLabelValues(string(credited.Reason)).Add(float64(credited.Delta))
		}
	})
}

// RecordCommand increments command counters and records duration
func RecordCommand(command, status string, duration time.Duration) {
	if command == "" {
		command = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	commandsTotal.WithLabelValues(command, status).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}
