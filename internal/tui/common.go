package tui

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"timesup/internal/model"
)

// viewState represents the currently active view.
type viewState int

const (
	viewAlarms viewState = iota
	viewStopwatch
	viewPomodoro
	viewAccount
)

var viewNames = []string{"Alarms", "Stopwatch", "Pomodoro", "Account"}

// --- Messages ---

// AlarmFiredMsg is sent into the program by the alarm ticker goroutine.
type AlarmFiredMsg struct {
	Alarm model.Alarm
}

type tickMsg time.Time

type stopwatchTickMsg time.Time

type statusMsg struct {
	text    string
	isError bool
}

type alarmsChangedMsg struct {
	status string
}

type signedInMsg struct {
	user model.User
}

type signedOutMsg struct{}

// --- Helpers ---

func formatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func clampCursor(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor
}

// bellCmd rings the terminal bell without touching the rendered frame.
func bellCmd() tea.Msg {
	fmt.Fprint(os.Stderr, "\a")
	return nil
}
