package model

const (
	DefaultFocusMinutes           = 25
	DefaultShortBreakMinutes      = 5
	DefaultLongBreakMinutes       = 15
	DefaultSessionsUntilLongBreak = 4
)

type Settings struct {
	DefaultDuration        float64 `json:"defaultDuration"`
	ShortBreakDuration     float64 `json:"shortBreakDuration"`
	LongBreakDuration      float64 `json:"longBreakDuration"`
	SessionsUntilLongBreak int     `json:"sessionsUntilLongBreak"`
	NotificationsEnabled   bool    `json:"notificationsEnabled"`
	SoundEnabled           bool    `json:"soundEnabled"`
	AutoStartBreaks        bool    `json:"autoStartBreaks"`
	AutoStartPomodoros     bool    `json:"autoStartPomodoros"`
	FloatingBubbleEnabled  bool    `json:"floatingBubbleEnabled"`
}

func DefaultSettings() Settings {
	return Settings{
		DefaultDuration:        DefaultFocusMinutes,
		ShortBreakDuration:     DefaultShortBreakMinutes,
		LongBreakDuration:      DefaultLongBreakMinutes,
		SessionsUntilLongBreak: DefaultSessionsUntilLongBreak,
		NotificationsEnabled:   true,
		SoundEnabled:           true,
		FloatingBubbleEnabled:  true,
	}
}

// SettingsPatch carries a partial settings update; nil fields are left as is.
type SettingsPatch struct {
	DefaultDuration        *float64 `json:"defaultDuration,omitempty"`
	ShortBreakDuration     *float64 `json:"shortBreakDuration,omitempty"`
	LongBreakDuration      *float64 `json:"longBreakDuration,omitempty"`
	SessionsUntilLongBreak *int     `json:"sessionsUntilLongBreak,omitempty"`
	NotificationsEnabled   *bool    `json:"notificationsEnabled,omitempty"`
	SoundEnabled           *bool    `json:"soundEnabled,omitempty"`
	AutoStartBreaks        *bool    `json:"autoStartBreaks,omitempty"`
	AutoStartPomodoros     *bool    `json:"autoStartPomodoros,omitempty"`
	FloatingBubbleEnabled  *bool    `json:"floatingBubbleEnabled,omitempty"`
}

// Apply returns s with every non-nil field of p applied.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.DefaultDuration != nil {
		s.DefaultDuration = *p.DefaultDuration
	}
	if p.ShortBreakDuration != nil {
		s.ShortBreakDuration = *p.ShortBreakDuration
	}
	if p.LongBreakDuration != nil {
		s.LongBreakDuration = *p.LongBreakDuration
	}
	if p.SessionsUntilLongBreak != nil {
		s.SessionsUntilLongBreak = *p.SessionsUntilLongBreak
	}
	if p.NotificationsEnabled != nil {
		s.NotificationsEnabled = *p.NotificationsEnabled
	}
	if p.SoundEnabled != nil {
		s.SoundEnabled = *p.SoundEnabled
	}
	if p.AutoStartBreaks != nil {
		s.AutoStartBreaks = *p.AutoStartBreaks
	}
	if p.AutoStartPomodoros != nil {
		s.AutoStartPomodoros = *p.AutoStartPomodoros
	}
	if p.FloatingBubbleEnabled != nil {
		s.FloatingBubbleEnabled = *p.FloatingBubbleEnabled
	}
	return s
}

// MinutesFor returns the configured length of mode in minutes.
func (s Settings) MinutesFor(mode Mode) float64 {
	switch mode {
	case ModeShortBreak:
		return s.ShortBreakDuration
	case ModeLongBreak:
		return s.LongBreakDuration
	default:
		return s.DefaultDuration
	}
}
