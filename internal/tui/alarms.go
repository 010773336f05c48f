package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"timesup/internal/alarm"
	"timesup/internal/alarmstore"
	"timesup/internal/app"
	"timesup/internal/model"
)

var weekdayOptions = []huh.Option[int]{
	huh.NewOption("Sunday", 0),
	huh.NewOption("Monday", 1),
	huh.NewOption("Tuesday", 2),
	huh.NewOption("Wednesday", 3),
	huh.NewOption("Thursday", 4),
	huh.NewOption("Friday", 5),
	huh.NewOption("Saturday", 6),
}

type alarmsModel struct {
	ctx    context.Context
	state  *app.State
	width  int
	height int

	cursor int
	list   []model.Alarm

	formActive   bool
	form         *huh.Form
	formName     *string
	formHour     *string
	formMinute   *string
	formMeridiem *string
	formDays     *[]int
}

func newAlarmsModel(ctx context.Context, state *app.State) alarmsModel {
	var name, hour, minute, meridiem string
	var days []int
	m := alarmsModel{
		ctx:          ctx,
		state:        state,
		formName:     &name,
		formHour:     &hour,
		formMinute:   &minute,
		formMeridiem: &meridiem,
		formDays:     &days,
	}
	m.refresh()
	return m
}

func (m *alarmsModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m *alarmsModel) refresh() {
	m.list = m.state.Alarms.Snapshot()
	m.cursor = clampCursor(m.cursor, len(m.list))
}

func (m alarmsModel) update(msg tea.Msg) (alarmsModel, tea.Cmd) {
	switch msg.(type) {
	case tickMsg, alarmsChangedMsg, AlarmFiredMsg:
		m.refresh()
		return m, nil
	}
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.list)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.New):
			return m.showNewAlarmForm()
		case key.Matches(msg, keys.Toggle):
			if len(m.list) > 0 {
				return m, m.toggle(m.list[m.cursor].ID)
			}
		case key.Matches(msg, keys.Delete):
			if len(m.list) > 0 {
				return m, m.remove(m.list[m.cursor].ID)
			}
		}
	}
	return m, nil
}

func (m alarmsModel) showNewAlarmForm() (alarmsModel, tea.Cmd) {
	*m.formName = ""
	*m.formHour = "7"
	*m.formMinute = "00"
	*m.formMeridiem = string(model.AM)
	*m.formDays = nil

	hourOptions := make([]huh.Option[string], 12)
	for i := range hourOptions {
		h := strconv.Itoa(i + 1)
		hourOptions[i] = huh.NewOption(h, h)
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Alarm Name").Value(m.formName).Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("please give your alarm a name")
				}
				return nil
			}),
			huh.NewSelect[string]().Title("Hour").Options(hourOptions...).Value(m.formHour),
			huh.NewInput().Title("Minute").Value(m.formMinute).Validate(validateMinute),
			huh.NewSelect[string]().Title("AM/PM").Options(
				huh.NewOption("AM", string(model.AM)),
				huh.NewOption("PM", string(model.PM)),
			).Value(m.formMeridiem),
			huh.NewMultiSelect[int]().Title("Repeat (none = every day)").Options(weekdayOptions...).Value(m.formDays),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func validateMinute(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n > 59 {
		return errors.New("minute must be 0-59")
	}
	return nil
}

func (m alarmsModel) updateForm(msg tea.Msg) (alarmsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		m.formActive = false
		m.form = nil
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.formActive = false
		m.form = nil
		return m, m.add(m.formAlarm())
	}
	return m, cmd
}

func (m alarmsModel) formAlarm() model.Alarm {
	hour, _ := strconv.Atoi(*m.formHour)
	minute, _ := strconv.Atoi(strings.TrimSpace(*m.formMinute))
	days := make([]time.Weekday, len(*m.formDays))
	for i, d := range *m.formDays {
		days[i] = time.Weekday(d)
	}
	return model.Alarm{
		Hour12:   hour,
		Minute:   minute,
		Meridiem: model.Meridiem(*m.formMeridiem),
		Name:     strings.TrimSpace(*m.formName),
		Days:     days,
		Enabled:  true,
	}
}

func (m alarmsModel) add(a model.Alarm) tea.Cmd {
	ctx, state := m.ctx, m.state
	return func() tea.Msg {
		created, err := state.Alarms.Add(ctx, a, state.Owner())
		return mutationResult(fmt.Sprintf("Alarm %q set for %s", created.Name, alarm.FormatAlarmTime(created)), err)
	}
}

func (m alarmsModel) toggle(id string) tea.Cmd {
	ctx, state := m.ctx, m.state
	return func() tea.Msg {
		updated, err := state.Alarms.Toggle(ctx, id, state.Owner())
		text := "Alarm off"
		if updated.Enabled {
			text = "Alarm on"
		}
		return mutationResult(text, err)
	}
}

func (m alarmsModel) remove(id string) tea.Cmd {
	ctx, state := m.ctx, m.state
	return func() tea.Msg {
		return mutationResult("Alarm deleted", state.Alarms.Remove(ctx, id, state.Owner()))
	}
}

// mutationResult reports an offline fallback as success.
func mutationResult(done string, err error) tea.Msg {
	switch {
	case err == nil:
		return alarmsChangedMsg{status: done}
	case errors.Is(err, alarmstore.ErrPersistenceUnavailable):
		return alarmsChangedMsg{status: done + " (offline)"}
	default:
		return statusMsg{text: err.Error(), isError: true}
	}
}

func (m alarmsModel) view(now time.Time) string {
	w := m.width - 4
	if m.formActive && m.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("New Alarm"), "", m.form.View()),
		)
	}

	rows := []string{titleStyle.Render("Alarms"), ""}
	if len(m.list) == 0 {
		rows = append(rows, mutedStyle.Render("No alarms yet. Press n to add one."))
	}
	for i, a := range m.list {
		rows = append(rows, m.renderRow(i, a, now))
	}

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m alarmsModel) renderRow(i int, a model.Alarm, now time.Time) string {
	cursor := "  "
	style := normalItemStyle
	if i == m.cursor {
		cursor = "> "
		style = selectedItemStyle
	}

	mark := mutedStyle.Render("○")
	when := mutedStyle.Render("off")
	if a.Enabled {
		mark = successStyle.Render("●")
		if r, err := alarm.TimeRemaining(a, now); err == nil {
			when = highlightStyle.Render("in " + r.String())
		} else {
			when = errorStyle.Render("unschedulable")
		}
	}

	return fmt.Sprintf("%s%s %s  %s  %s  %s",
		cursor,
		mark,
		style.Render(alarm.FormatAlarmTime(a)),
		style.Render(a.Name),
		mutedStyle.Render(alarm.FormatSelectedDays(a.Days)),
		when,
	)
}
