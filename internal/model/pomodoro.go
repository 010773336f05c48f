package model

import "time"

const (
	PresetPomodoro   = "Pomodoro"
	PresetShortBreak = "Short Break"
	PresetLongBreak  = "Long Break"
)

const (
	DefaultWorkMinutes       = 25
	DefaultShortBreakMinutes = 5
	DefaultLongBreakMinutes  = 15
	DefaultLongBreakInterval = 4
)

type PomodoroSettings struct {
	WorkMinutes        int  `json:"workDuration" yaml:"work_minutes"`
	ShortBreakMinutes  int  `json:"shortBreakDuration" yaml:"short_break_minutes"`
	LongBreakMinutes   int  `json:"longBreakDuration" yaml:"long_break_minutes"`
	LongBreakInterval  int  `json:"longBreakInterval" yaml:"long_break_interval"`
	AutoStartBreaks    bool `json:"autoStartBreaks" yaml:"auto_start_breaks"`
	AutoStartPomodoros bool `json:"autoStartPomodoros" yaml:"auto_start_pomodoros"`
}

func DefaultPomodoroSettings() PomodoroSettings {
	return PomodoroSettings{
		WorkMinutes:        DefaultWorkMinutes,
		ShortBreakMinutes:  DefaultShortBreakMinutes,
		LongBreakMinutes:   DefaultLongBreakMinutes,
		LongBreakInterval:  DefaultLongBreakInterval,
		AutoStartBreaks:    true,
		AutoStartPomodoros: true,
	}
}

// PomodoroProfile is the server-side copy of a user's timer preferences and
// sequence position.
type PomodoroProfile struct {
	UserID        string           `json:"userId"`
	Settings      PomodoroSettings `json:"settings"`
	PomodoroCount int              `json:"pomodoroCount"`
	AutoPomodoro  bool             `json:"autoPomodoro"`
	Version       int              `json:"version"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

type PomodoroTask struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId,omitempty"`
	Text              string    `json:"text"`
	Completed         bool      `json:"completed"`
	CompletedSessions int       `json:"completedSessions"`
	CreatedAt         time.Time `json:"createdAt"`
}

type PomodoroSession struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	TaskID          *string   `json:"taskId,omitempty"`
	Mode            string    `json:"mode"`
	DurationSeconds int       `json:"durationSeconds"`
	CompletedAt     time.Time `json:"completedAt"`
	CreatedAt       time.Time `json:"createdAt"`
}
