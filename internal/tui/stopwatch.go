package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"timesup/internal/app"
	"timesup/internal/stopwatch"
)

const stopwatchInterval = 10 * time.Millisecond

type stopwatchModel struct {
	state  *app.State
	engine *stopwatch.Engine
	width  int
	height int
	cursor int
	// ticking is set while a redraw tick is scheduled.
	ticking bool
}

func newStopwatchModel(state *app.State) stopwatchModel {
	return stopwatchModel{state: state, engine: state.Stopwatch}
}

func (s *stopwatchModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func stopwatchTickCmd() tea.Cmd {
	return tea.Tick(stopwatchInterval, func(t time.Time) tea.Msg {
		return stopwatchTickMsg(t)
	})
}

func (s stopwatchModel) update(msg tea.Msg) (stopwatchModel, tea.Cmd) {
	switch msg := msg.(type) {
	case stopwatchTickMsg:
		// The redraw loop lives only while the stopwatch runs.
		if s.engine.Running() {
			return s, stopwatchTickCmd()
		}
		s.ticking = false
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Toggle):
			if s.engine.Running() {
				s.engine.Pause()
				return s, nil
			}
			s.engine.Start()
			if s.ticking {
				return s, nil
			}
			s.ticking = true
			return s, stopwatchTickCmd()
		case key.Matches(msg, keys.Reset):
			if lap, ok := s.engine.Reset(); ok {
				s.cursor = 0
				return s, tea.Batch(s.saveLaps(), func() tea.Msg {
					return statusMsg{text: "Lap recorded: " + lap.Display()}
				})
			}
		case key.Matches(msg, keys.Up):
			if s.cursor > 0 {
				s.cursor--
			}
		case key.Matches(msg, keys.Down):
			if s.cursor < len(s.engine.Laps())-1 {
				s.cursor++
			}
		case key.Matches(msg, keys.Delete):
			laps := s.engine.Laps()
			if len(laps) > 0 {
				s.engine.DeleteLap(laps[s.cursor].ID)
				s.cursor = clampCursor(s.cursor, len(laps)-1)
				return s, s.saveLaps()
			}
		case key.Matches(msg, keys.Clear):
			s.engine.ClearLaps()
			s.cursor = 0
			return s, s.saveLaps()
		}
	}
	return s, nil
}

func (s stopwatchModel) saveLaps() tea.Cmd {
	state, laps := s.state, s.engine.Laps()
	return func() tea.Msg {
		if err := state.SaveLaps(laps); err != nil {
			return statusMsg{text: err.Error(), isError: true}
		}
		return nil
	}
}

func (s stopwatchModel) view() string {
	w := s.width - 4

	style := timerStyle
	state := mutedStyle.Render("Paused")
	if s.engine.Running() {
		style = timerRunningStyle
		state = successStyle.Render("Running")
	}
	display := style.Width(w - 6).Render(stopwatch.Format(s.engine.Elapsed()))

	laps := s.engine.Laps()
	lapRows := []string{titleStyle.Render("Lap Records")}
	if len(laps) == 0 {
		lapRows = append(lapRows, mutedStyle.Render("Reset the timer to record a lap time"))
	}
	for i, lap := range laps {
		cursor := "  "
		itemStyle := normalItemStyle
		if i == s.cursor {
			cursor = "> "
			itemStyle = selectedItemStyle
		}
		lapRows = append(lapRows, fmt.Sprintf("%s%s  %s",
			cursor,
			mutedStyle.Render(fmt.Sprintf("Lap %d", len(laps)-i)),
			itemStyle.Render(lap.Display()),
		))
	}

	controls := mutedStyle.Render("space: start/pause  r: reset (records lap)  d: delete lap  c: clear all")

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("Stopwatch"),
		"",
		display,
		state,
		"",
		lipgloss.JoinVertical(lipgloss.Left, lapRows...),
		"",
		controls,
	))
}
