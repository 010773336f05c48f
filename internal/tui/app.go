package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"timesup/internal/alarm"
	"timesup/internal/app"
	"timesup/internal/model"
)

// NextAlarmFunc reports the enabled alarm that rings soonest after now.
type NextAlarmFunc func(now time.Time) (model.Alarm, time.Time, bool)

type Option func(*App)

// WithNextAlarm shows the upcoming alarm in the header.
func WithNextAlarm(next NextAlarmFunc) Option {
	return func(a *App) {
		a.nextAlarm = next
	}
}

// App is the root Bubble Tea model.
type App struct {
	state     *app.State
	now       func() time.Time
	nextAlarm NextAlarmFunc
	width  int
	height int

	activeView viewState
	showHelp   bool

	alarms    alarmsModel
	stopwatch stopwatchModel
	pomodoro  pomodoroModel
	account   accountModel

	// ringing holds fired alarms until dismissed, oldest first.
	ringing []model.Alarm

	help        help.Model
	status      string
	statusError bool
}

func NewApp(ctx context.Context, state *app.State, opts ...Option) App {
	h := help.New()
	h.ShowAll = false

	a := App{
		state:      state,
		now:        time.Now,
		activeView: viewAlarms,
		alarms:     newAlarmsModel(ctx, state),
		stopwatch:  newStopwatchModel(state),
		pomodoro:   newPomodoroModel(ctx, state),
		account:    newAccountModel(ctx, state),
		help:       h,
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

func (a App) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4
		a.alarms.setSize(a.width, contentHeight)
		a.stopwatch.setSize(a.width, contentHeight)
		a.pomodoro.setSize(a.width, contentHeight)
		a.account.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		if len(a.ringing) > 0 && (key.Matches(msg, keys.Back) || key.Matches(msg, keys.Enter)) {
			a.ringing = a.ringing[1:]
			return a, nil
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewAlarms
			a.alarms.refresh()
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewStopwatch
			return a, nil
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewPomodoro
			return a, nil
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewAccount
			return a, nil
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			if a.activeView == viewAlarms {
				a.alarms.refresh()
			}
			return a, nil
		}

	case tickMsg:
		cmds = append(cmds, tickCmd())
		var cmd tea.Cmd
		a.alarms, cmd = a.alarms.update(msg)
		cmds = append(cmds, cmd)
		// The countdown keeps running while another view is shown.
		a.pomodoro, cmd = a.pomodoro.update(msg)
		cmds = append(cmds, cmd)
		return a, tea.Batch(cmds...)

	case stopwatchTickMsg:
		var cmd tea.Cmd
		a.stopwatch, cmd = a.stopwatch.update(msg)
		return a, cmd

	case AlarmFiredMsg:
		a.ringing = append(a.ringing, msg.Alarm)
		a.setStatus(fmt.Sprintf("⏰ %s (%s)", msg.Alarm.Name, alarm.FormatAlarmTime(msg.Alarm)), false)
		var cmd tea.Cmd
		a.alarms, cmd = a.alarms.update(msg)
		return a, tea.Batch(cmd, bellCmd)

	case alarmsChangedMsg:
		a.setStatus(msg.status, false)
		var cmd tea.Cmd
		a.alarms, cmd = a.alarms.update(msg)
		return a, cmd

	case signedInMsg:
		a.setStatus("Signed in as "+msg.user.Email, false)
		a.alarms.refresh()
		var cmd tea.Cmd
		a.account, cmd = a.account.update(msg)
		return a, cmd

	case signedOutMsg:
		a.setStatus("Signed out", false)
		a.alarms.refresh()
		var cmd tea.Cmd
		a.account, cmd = a.account.update(msg)
		return a, cmd

	case statusMsg:
		a.setStatus(msg.text, msg.isError)
		var cmd tea.Cmd
		a.account, cmd = a.account.update(msg)
		return a, cmd
	}

	return a.updateActiveView(msg)
}

func (a *App) setStatus(text string, isError bool) {
	a.status = text
	a.statusError = isError
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewAlarms:
		a.alarms, cmd = a.alarms.update(msg)
	case viewStopwatch:
		a.stopwatch, cmd = a.stopwatch.update(msg)
	case viewPomodoro:
		a.pomodoro, cmd = a.pomodoro.update(msg)
	case viewAccount:
		a.account, cmd = a.account.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewAlarms:
		return a.alarms.formActive
	case viewPomodoro:
		return a.pomodoro.formActive
	case viewAccount:
		return a.account.formActive
	}
	return false
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewAlarms:
		content = a.alarms.view(a.now())
	case viewStopwatch:
		content = a.stopwatch.view()
	case viewPomodoro:
		content = a.pomodoro.view()
	case viewAccount:
		content = a.account.view()
	}
	if banner := a.renderRinging(); banner != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, banner, content)
	}

	contentHeight := a.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if contentHeight < 1 {
		contentHeight = 1
	}
	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderRinging() string {
	if len(a.ringing) == 0 {
		return ""
	}
	first := a.ringing[0]
	text := fmt.Sprintf("⏰ %s  %s", first.Name, alarm.FormatAlarmTime(first))
	if more := len(a.ringing) - 1; more > 0 {
		text += fmt.Sprintf("  (+%d more)", more)
	}
	return ringingStyle.Render(text + "   enter/esc: dismiss")
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("timesup")
	if next := a.renderNextAlarm(); next != "" {
		title = lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", next)
	}
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderNextAlarm() string {
	if a.nextAlarm == nil {
		return ""
	}
	now := a.now()
	next, at, ok := a.nextAlarm(now)
	if !ok {
		return mutedStyle.Render("no alarms set")
	}
	return highlightStyle.Render(fmt.Sprintf("⏰ %s %s", next.Name, alarm.FormatDisplayTime(at)))
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		if a.statusError {
			status = errorStyle.Render(" " + a.status)
		} else {
			status = mutedStyle.Render(" " + a.status)
		}
	}

	timerInfo := ""
	if p := a.state.Pomodoro; p.Active() {
		timerInfo = presetStyle(p.Preset()).Render(" ● " + formatCountdown(p.Remaining()))
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}
