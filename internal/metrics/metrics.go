package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Engine metrics
	TimerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusbubble_timer_transitions_total",
			Help: "Timer state transitions by event type",
		},
		[]string{"event"},
	)

	SessionsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusbubble_sessions_recorded_total",
			Help: "Sessions appended to history",
		},
		[]string{"mode", "completed"},
	)

	DistractionsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "focusbubble_distractions_recorded_total",
			Help: "Distractions counted against a running session",
		},
	)

	PersistenceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusbubble_persistence_failures_total",
			Help: "Failed writes to durable storage by key",
		},
		[]string{"key"},
	)

	AlarmsFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusbubble_alarms_fired_total",
			Help: "Alarms delivered to the engine",
		},
		[]string{"alarm"},
	)

	// Messaging metrics
	MessagesHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusbubble_messages_total",
			Help: "Request messages dispatched by type and outcome",
		},
		[]string{"type", "success"},
	)

	BroadcastsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusbubble_broadcasts_dropped_total",
			Help: "Broadcast messages nobody received",
		},
		[]string{"target"},
	)

	ActiveSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "focusbubble_active_subscribers",
			Help: "Connected event stream subscribers",
		},
	)
)

func init() {
	prometheus.MustRegister(
		TimerTransitions,
		SessionsRecorded,
		DistractionsRecorded,
		PersistenceFailures,
		AlarmsFired,
		MessagesHandled,
		BroadcastsDropped,
		ActiveSubscribers,
	)
}
