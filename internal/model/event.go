package model

type EventType string

const (
	EventTimerStarted            EventType = "TIMER_STARTED"
	EventTimerPaused             EventType = "TIMER_PAUSED"
	EventTimerResumed            EventType = "TIMER_RESUMED"
	EventTimerStopped            EventType = "TIMER_STOPPED"
	EventTimerReset              EventType = "TIMER_RESET"
	EventTimerCompleted          EventType = "TIMER_COMPLETED"
	EventTimerTick               EventType = "TIMER_TICK"
	EventDistractionCountUpdated EventType = "DISTRACTION_COUNT_UPDATED"
	EventSettingsUpdated         EventType = "SETTINGS_UPDATED"
	EventNotification            EventType = "NOTIFICATION"
)

// Notification is the user-facing completion notice.
type Notification struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Event is an unsolicited message pushed to UI components. Only the fields
// relevant to Type are set.
type Event struct {
	Type             EventType     `json:"type"`
	State            *StateView    `json:"state,omitempty"`
	Session          *Session      `json:"session,omitempty"`
	RemainingSeconds *int          `json:"remainingSeconds,omitempty"`
	Distractions     *int          `json:"distractions,omitempty"`
	Settings         *Settings     `json:"settings,omitempty"`
	Notification     *Notification `json:"notification,omitempty"`
}
