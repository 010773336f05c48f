package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"timesup/internal/app"
	"timesup/internal/model"
	"timesup/internal/pomodoro"
)

const (
	pomodoroFormTask     = "task"
	pomodoroFormSettings = "settings"
)

type pomodoroModel struct {
	ctx    context.Context
	state  *app.State
	width  int
	height int
	cursor int

	formActive bool
	form       *huh.Form
	formType   string

	formText       *string
	formWork       *string
	formShort      *string
	formLong       *string
	formInterval   *string
	formAutoBreaks *bool
	formAutoPomos  *bool
}

func newPomodoroModel(ctx context.Context, state *app.State) pomodoroModel {
	var text, work, short, long, interval string
	var autoBreaks, autoPomos bool
	return pomodoroModel{
		ctx:            ctx,
		state:          state,
		formText:       &text,
		formWork:       &work,
		formShort:      &short,
		formLong:       &long,
		formInterval:   &interval,
		formAutoBreaks: &autoBreaks,
		formAutoPomos:  &autoPomos,
	}
}

func (p *pomodoroModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

func (p pomodoroModel) engine() *pomodoro.Engine {
	return p.state.Pomodoro
}

func (p pomodoroModel) update(msg tea.Msg) (pomodoroModel, tea.Cmd) {
	// Ticks drive the engine even while a form is open.
	if _, ok := msg.(tickMsg); ok {
		if done, ok := p.engine().Tick(); ok {
			return p, p.completed(done)
		}
		return p, nil
	}
	if p.formActive && p.form != nil {
		return p.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		e := p.engine()
		tasks := e.Tasks()
		switch {
		case key.Matches(msg, keys.Toggle):
			e.Toggle()
		case key.Matches(msg, keys.Reset):
			e.Reset()
		case key.Matches(msg, keys.Left):
			_ = e.SetPreset(shiftPreset(e.Preset(), -1))
		case key.Matches(msg, keys.Right):
			_ = e.SetPreset(shiftPreset(e.Preset(), 1))
		case key.Matches(msg, keys.Auto):
			e.SetAutoPomodoro(!e.AutoPomodoro())
			return p, p.save()
		case key.Matches(msg, keys.Sequence):
			e.ResetSequence()
			return p, p.save()
		case key.Matches(msg, keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}
		case key.Matches(msg, keys.Down):
			if p.cursor < len(tasks)-1 {
				p.cursor++
			}
		case key.Matches(msg, keys.Enter):
			if len(tasks) > 0 {
				_ = e.SelectTask(tasks[p.cursor].ID)
			}
		case key.Matches(msg, keys.Complete):
			if len(tasks) > 0 {
				_ = e.ToggleTask(tasks[p.cursor].ID)
				return p, p.save()
			}
		case key.Matches(msg, keys.Delete):
			if len(tasks) > 0 {
				_ = e.DeleteTask(tasks[p.cursor].ID)
				p.cursor = clampCursor(p.cursor, len(tasks)-1)
				return p, p.save()
			}
		case key.Matches(msg, keys.New):
			return p.showTaskForm()
		case key.Matches(msg, keys.Settings):
			return p.showSettingsForm()
		}
	}
	return p, nil
}

// completed rings the bell and persists the finished countdown off the UI loop.
func (p pomodoroModel) completed(done pomodoro.Completion) tea.Cmd {
	ctx, state := p.ctx, p.state
	snap := p.engine().Snapshot()
	status := func() tea.Msg {
		return statusMsg{text: fmt.Sprintf("Completed a %s session!", done.Preset)}
	}
	record := func() tea.Msg {
		if err := state.RecordCompletion(ctx, done, snap); err != nil {
			return statusMsg{text: err.Error(), isError: true}
		}
		return nil
	}
	return tea.Batch(bellCmd, tea.Sequence(status, record))
}

func (p pomodoroModel) save() tea.Cmd {
	state := p.state
	snap := p.engine().Snapshot()
	return func() tea.Msg {
		if err := state.SaveSnapshot(snap); err != nil {
			return statusMsg{text: err.Error(), isError: true}
		}
		return nil
	}
}

func shiftPreset(current string, delta int) string {
	n := len(pomodoro.Presets)
	for i, preset := range pomodoro.Presets {
		if preset == current {
			return pomodoro.Presets[((i+delta)%n+n)%n]
		}
	}
	return model.PresetPomodoro
}

func (p pomodoroModel) showTaskForm() (pomodoroModel, tea.Cmd) {
	*p.formText = ""
	p.formType = pomodoroFormTask
	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("New Task").Value(p.formText).Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return pomodoro.ErrBlankTask
				}
				return nil
			}),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p pomodoroModel) showSettingsForm() (pomodoroModel, tea.Cmd) {
	s := p.engine().Settings()
	*p.formWork = strconv.Itoa(s.WorkMinutes)
	*p.formShort = strconv.Itoa(s.ShortBreakMinutes)
	*p.formLong = strconv.Itoa(s.LongBreakMinutes)
	*p.formInterval = strconv.Itoa(s.LongBreakInterval)
	*p.formAutoBreaks = s.AutoStartBreaks
	*p.formAutoPomos = s.AutoStartPomodoros
	p.formType = pomodoroFormSettings

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Pomodoro (minutes)").Value(p.formWork).Validate(validatePositive),
			huh.NewInput().Title("Short Break (minutes)").Value(p.formShort).Validate(validatePositive),
			huh.NewInput().Title("Long Break (minutes)").Value(p.formLong).Validate(validatePositive),
			huh.NewInput().Title("Long Break Interval").Value(p.formInterval).Validate(validatePositive),
			huh.NewConfirm().Title("Auto-start breaks?").Value(p.formAutoBreaks),
			huh.NewConfirm().Title("Auto-start pomodoros?").Value(p.formAutoPomos),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func validatePositive(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return errors.New("enter a whole number above zero")
	}
	return nil
}

func (p pomodoroModel) updateForm(msg tea.Msg) (pomodoroModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		p.formActive = false
		p.form = nil
		return p, nil
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}
	if p.form.State != huh.StateCompleted {
		return p, cmd
	}

	p.formActive = false
	p.form = nil
	switch p.formType {
	case pomodoroFormTask:
		if _, err := p.engine().AddTask(*p.formText); err != nil {
			return p, statusCmd(err.Error(), true)
		}
	case pomodoroFormSettings:
		if err := p.engine().UpdateSettings(p.formSettings()); err != nil {
			return p, statusCmd(err.Error(), true)
		}
	}
	return p, p.save()
}

func (p pomodoroModel) formSettings() model.PomodoroSettings {
	atoi := func(s string) int {
		n, _ := strconv.Atoi(strings.TrimSpace(s))
		return n
	}
	return model.PomodoroSettings{
		WorkMinutes:        atoi(*p.formWork),
		ShortBreakMinutes:  atoi(*p.formShort),
		LongBreakMinutes:   atoi(*p.formLong),
		LongBreakInterval:  atoi(*p.formInterval),
		AutoStartBreaks:    *p.formAutoBreaks,
		AutoStartPomodoros: *p.formAutoPomos,
	}
}

func statusCmd(text string, isError bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isError: isError}
	}
}

func (p pomodoroModel) view() string {
	w := p.width - 4
	if p.formActive && p.form != nil {
		title := "New Task"
		if p.formType == pomodoroFormSettings {
			title = "Timer Settings"
		}
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), "", p.form.View()),
		)
	}

	e := p.engine()
	style := presetStyle(e.Preset())

	var presets []string
	for _, preset := range pomodoro.Presets {
		if preset == e.Preset() {
			presets = append(presets, activeTabStyle.Render(preset))
		} else {
			presets = append(presets, inactiveTabStyle.Render(preset))
		}
	}

	state := mutedStyle.Render("Paused")
	if e.Active() {
		state = successStyle.Render("Running")
	}
	auto := mutedStyle.Render("auto advance off")
	if e.AutoPomodoro() {
		auto = highlightStyle.Render(fmt.Sprintf("auto advance on · long break every %d", e.Settings().LongBreakInterval))
	}

	timer := lipgloss.JoinVertical(lipgloss.Center,
		lipgloss.JoinHorizontal(lipgloss.Bottom, presets...),
		"",
		style.Width(w-6).Align(lipgloss.Center).Render(formatCountdown(e.Remaining())),
		state,
		p.renderSequence(),
		auto,
	)

	body := lipgloss.JoinHorizontal(lipgloss.Top, p.renderTasks(), "   ", p.renderChart())
	controls := mutedStyle.Render("space: start/pause  r: reset  ←/→: preset  a: auto  R: reset sequence  n: task  enter: select  x: done  s: settings")

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("Task Timer"), "", timer, "", body, "", controls,
	))
}

func (p pomodoroModel) renderSequence() string {
	e := p.engine()
	interval := e.Settings().LongBreakInterval
	if interval <= 0 {
		return ""
	}
	done := e.Count() % interval
	var parts []string
	for i := 0; i < interval; i++ {
		switch {
		case i < done:
			parts = append(parts, successStyle.Render("●"))
		case i == done && e.Preset() == model.PresetPomodoro && e.Active():
			parts = append(parts, accentStyle.Render("◐"))
		default:
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	return strings.Join(parts, " ") + mutedStyle.Render(fmt.Sprintf("  %d total", e.Count()))
}

func (p pomodoroModel) renderTasks() string {
	e := p.engine()
	rows := []string{titleStyle.Render("Tasks")}
	tasks := e.Tasks()
	if len(tasks) == 0 {
		rows = append(rows, mutedStyle.Render("No tasks. Press n to add one."))
	}
	for i, t := range tasks {
		cursor := "  "
		style := normalItemStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		check := "[ ]"
		if t.Completed {
			check = "[x]"
			style = style.Strikethrough(true)
		}
		selected := ""
		if t.ID == e.Selected() {
			selected = warningStyle.Render(" ◀ timing")
		}
		rows = append(rows, fmt.Sprintf("%s%s %s %s%s",
			cursor, check, style.Render(t.Text), mutedStyle.Render(fmt.Sprintf("(%d)", t.CompletedSessions)), selected))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderChart draws completed sessions per task.
func (p pomodoroModel) renderChart() string {
	tasks := p.engine().Tasks()
	var bars []barchart.BarData
	for _, t := range tasks {
		if t.CompletedSessions == 0 {
			continue
		}
		label := t.Text
		if len(label) > 8 {
			label = label[:8]
		}
		bars = append(bars, barchart.BarData{
			Label: label,
			Values: []barchart.BarValue{{
				Name:  t.Text,
				Value: float64(t.CompletedSessions),
				Style: lipgloss.NewStyle().Foreground(colorAccent),
			}},
		})
	}
	if len(bars) == 0 {
		return mutedStyle.Render("Finish a pomodoro on a task to see it here")
	}

	width := p.width/3 + 10
	if width < 20 {
		width = 20
	}
	chart := barchart.New(width, 8)
	chart.PushAll(bars)
	chart.Draw()
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Sessions"), chart.View())
}
