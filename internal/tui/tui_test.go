package tui

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"timesup/internal/alarmstore"
	"timesup/internal/app"
	"timesup/internal/clock"
	apperrors "timesup/internal/errors"
	"timesup/internal/localstore"
	"timesup/internal/model"
	"timesup/internal/pomodoro"
	"timesup/internal/stopwatch"
)

var quiet = log.New(io.Discard, "", 0)

type fixture struct {
	clock *clock.Manual
	local *localstore.Store
	state *app.State
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	local, err := localstore.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { local.Close() })

	c := clock.NewManual(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC))
	settings := model.DefaultPomodoroSettings()
	settings.WorkMinutes = 1
	settings.AutoStartBreaks = false
	state := app.New(
		alarmstore.New(nil, local, alarmstore.WithLogger(quiet), alarmstore.WithClock(c)),
		stopwatch.New(c),
		pomodoro.New(settings, pomodoro.WithClock(c)),
		local,
		app.WithLogger(quiet),
	)
	return fixture{clock: c, local: local, state: state}
}

func (f fixture) app() App {
	a := NewApp(context.Background(), f.state)
	a.now = f.clock.Now
	next, _ := a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(App)
}

func press(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(a App, msgs ...tea.Msg) (App, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = a.Update(msg)
		a = next.(App)
	}
	return a, cmd
}

// runCmd executes cmd and any batched commands, collecting their messages.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, runCmd(c)...)
		}
		return msgs
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// ============================================================
// Navigation
// ============================================================

func TestTabKeysSwitchViews(t *testing.T) {
	a := newFixture(t).app()
	if a.activeView != viewAlarms {
		t.Fatalf("expected alarms view first, got %d", a.activeView)
	}

	a, _ = send(a, press("3"))
	if a.activeView != viewPomodoro {
		t.Fatalf("expected pomodoro view, got %d", a.activeView)
	}
	a, _ = send(a, press("tab"))
	if a.activeView != viewAccount {
		t.Fatalf("expected account view, got %d", a.activeView)
	}
	a, _ = send(a, press("tab"))
	if a.activeView != viewAlarms {
		t.Fatalf("expected tab to wrap to alarms, got %d", a.activeView)
	}
}

func TestViewRendersActiveTab(t *testing.T) {
	a := newFixture(t).app()
	if got := a.View(); !strings.Contains(got, "No alarms yet") {
		t.Fatalf("expected empty alarm list in view:\n%s", got)
	}
	a, _ = send(a, press("2"))
	if got := a.View(); !strings.Contains(got, "00:00:00.00") {
		t.Fatalf("expected zeroed stopwatch in view:\n%s", got)
	}
}

// ============================================================
// Alarms
// ============================================================

func TestAlarmFiredRingsUntilDismissed(t *testing.T) {
	a := newFixture(t).app()
	wake := model.Alarm{ID: "1", Hour12: 7, Minute: 30, Meridiem: model.AM, Name: "Wake", Enabled: true}

	a, _ = send(a, AlarmFiredMsg{Alarm: wake})
	if len(a.ringing) != 1 {
		t.Fatalf("expected one ringing alarm, got %d", len(a.ringing))
	}
	if got := a.View(); !strings.Contains(got, "Wake") {
		t.Fatalf("expected ringing banner in view:\n%s", got)
	}

	a, _ = send(a, press("esc"))
	if len(a.ringing) != 0 {
		t.Fatal("esc should dismiss the ringing alarm")
	}
}

func TestAddAlarmCmdPersistsLocally(t *testing.T) {
	f := newFixture(t)
	a := f.app()

	msg := a.alarms.add(model.Alarm{Hour12: 7, Minute: 0, Meridiem: model.AM, Name: "Wake", Days: []time.Weekday{time.Monday}, Enabled: true})()
	changed, ok := msg.(alarmsChangedMsg)
	if !ok {
		t.Fatalf("expected alarmsChangedMsg, got %#v", msg)
	}
	if !strings.Contains(changed.status, "Wake") {
		t.Fatalf("unexpected status %q", changed.status)
	}

	a, _ = send(a, changed)
	if len(a.alarms.list) != 1 {
		t.Fatalf("expected the list to refresh, got %d alarms", len(a.alarms.list))
	}
	saved, err := f.local.LoadAlarms()
	if err != nil || len(saved) != 1 {
		t.Fatalf("expected alarm saved locally, got %d (%v)", len(saved), err)
	}

	// space toggles the alarm under the cursor.
	a, cmd := send(a, press(" "))
	for _, m := range runCmd(cmd) {
		a, _ = send(a, m)
	}
	if a.alarms.list[0].Enabled {
		t.Fatal("expected alarm toggled off")
	}
}

func TestMutationResultOffline(t *testing.T) {
	msg := mutationResult("Alarm deleted", alarmstore.ErrPersistenceUnavailable)
	changed, ok := msg.(alarmsChangedMsg)
	if !ok || changed.status != "Alarm deleted (offline)" {
		t.Fatalf("unexpected result %#v", msg)
	}

	msg = mutationResult("Alarm deleted", errors.New("boom"))
	if status, ok := msg.(statusMsg); !ok || !status.isError {
		t.Fatalf("expected error status, got %#v", msg)
	}
}

func TestValidateMinute(t *testing.T) {
	for _, s := range []string{"0", "05", "59"} {
		if err := validateMinute(s); err != nil {
			t.Errorf("validateMinute(%q) = %v", s, err)
		}
	}
	for _, s := range []string{"", "60", "-1", "ab"} {
		if err := validateMinute(s); err == nil {
			t.Errorf("validateMinute(%q) should fail", s)
		}
	}
}

// ============================================================
// Stopwatch
// ============================================================

func TestStopwatchResetRecordsAndSavesLap(t *testing.T) {
	f := newFixture(t)
	a := f.app()
	a, _ = send(a, press("2"), press(" "))
	if !f.state.Stopwatch.Running() {
		t.Fatal("space should start the stopwatch")
	}

	f.clock.Advance(1500 * time.Millisecond)
	a, cmd := send(a, press("r"))
	if f.state.Stopwatch.Running() {
		t.Fatal("reset should stop the stopwatch")
	}
	laps := f.state.Stopwatch.Laps()
	if len(laps) != 1 || laps[0].ElapsedMillis() != 1500 {
		t.Fatalf("unexpected laps %+v", laps)
	}
	runCmd(cmd)

	var saved []stopwatch.Lap
	if ok, err := f.local.Get(localstore.SlotLaps, &saved); !ok || err != nil || len(saved) != 1 {
		t.Fatalf("expected saved lap, ok=%v err=%v laps=%+v", ok, err, saved)
	}

	// A second reset at zero records nothing.
	_, cmd = send(a, press("r"))
	if cmd != nil {
		t.Fatal("reset at zero should not record a lap")
	}
}

// ============================================================
// Pomodoro
// ============================================================

func TestPomodoroTicksWhileOtherViewActive(t *testing.T) {
	f := newFixture(t)
	a := f.app()
	f.state.Pomodoro.Toggle()

	var cmd tea.Cmd
	for i := 0; i < 60; i++ {
		a, cmd = send(a, tickMsg(f.clock.Now()))
	}
	if cmd == nil {
		t.Fatal("expected completion commands")
	}
	if f.state.Pomodoro.Count() != 1 {
		t.Fatalf("expected one completed pomodoro, got %d", f.state.Pomodoro.Count())
	}
	if f.state.Pomodoro.Preset() != model.PresetShortBreak {
		t.Fatalf("expected short break next, got %q", f.state.Pomodoro.Preset())
	}
	if f.state.Pomodoro.Active() {
		t.Fatal("breaks should not auto-start when disabled")
	}
}

func TestPomodoroTaskKeys(t *testing.T) {
	f := newFixture(t)
	first, _ := f.state.Pomodoro.AddTask("write")
	f.clock.Advance(time.Millisecond)
	second, _ := f.state.Pomodoro.AddTask("review")

	a := f.app()
	a, _ = send(a, press("3"), press("enter"))
	if f.state.Pomodoro.Selected() != first.ID {
		t.Fatalf("expected %q selected, got %q", first.ID, f.state.Pomodoro.Selected())
	}

	a, cmd := send(a, press("down"), press("x"))
	runCmd(cmd)
	tasks := f.state.Pomodoro.Tasks()
	if !tasks[1].Completed || tasks[1].ID != second.ID {
		t.Fatalf("expected second task completed, got %+v", tasks)
	}

	var snap pomodoro.Snapshot
	if ok, err := f.local.Get(localstore.SlotState, &snap); !ok || err != nil || !snap.Tasks[1].Completed {
		t.Fatalf("expected toggled task saved, ok=%v err=%v", ok, err)
	}

	a, _ = send(a, press("d"))
	if n := len(f.state.Pomodoro.Tasks()); n != 1 {
		t.Fatalf("expected one task left, got %d", n)
	}
	if a.pomodoro.cursor != 0 {
		t.Fatalf("expected cursor clamped, got %d", a.pomodoro.cursor)
	}
}

func TestPomodoroPresetKeysWrap(t *testing.T) {
	f := newFixture(t)
	a := f.app()
	a, _ = send(a, press("3"), press("h"))
	last := pomodoro.Presets[len(pomodoro.Presets)-1]
	if got := f.state.Pomodoro.Preset(); got != last {
		t.Fatalf("expected %q, got %q", last, got)
	}
	send(a, press("l"))
	if got := f.state.Pomodoro.Preset(); got != model.PresetPomodoro {
		t.Fatalf("expected wrap to %q, got %q", model.PresetPomodoro, got)
	}
}

func TestPomodoroSettingsForm(t *testing.T) {
	p := newPomodoroModel(context.Background(), newFixture(t).state)
	p, _ = p.showSettingsForm()
	if !p.formActive || *p.formWork != "1" || *p.formInterval != "4" {
		t.Fatalf("expected form seeded from settings, work=%q interval=%q", *p.formWork, *p.formInterval)
	}

	*p.formWork = " 50 "
	*p.formLong = "20"
	got := p.formSettings()
	if got.WorkMinutes != 50 || got.LongBreakMinutes != 20 || got.ShortBreakMinutes != 5 {
		t.Fatalf("unexpected settings %+v", got)
	}

	p, _ = p.update(press("esc"))
	if p.formActive {
		t.Fatal("esc should close the form")
	}

	if validatePositive("0") == nil || validatePositive("x") == nil || validatePositive("3") != nil {
		t.Fatal("validatePositive accepted or rejected the wrong values")
	}
}

// ============================================================
// Account
// ============================================================

func TestAccountOpensSignInForm(t *testing.T) {
	a := newFixture(t).app()
	a, _ = send(a, press("4"), press("enter"))
	if !a.account.formActive {
		t.Fatal("enter should open the sign in form")
	}

	// Global keys go to the form while it is open.
	a, _ = send(a, press("1"))
	if a.activeView != viewAccount {
		t.Fatal("tab keys should not switch views during form input")
	}

	a, _ = send(a, press("esc"))
	if a.account.formActive {
		t.Fatal("esc should cancel the form")
	}
}

func TestSignInError(t *testing.T) {
	if got := signInError(app.ErrOffline); !strings.Contains(got, "Offline") {
		t.Fatalf("unexpected offline message %q", got)
	}
	if got := signInError(apperrors.Unauthorized("invalid email or password")); got != "Sign in failed: invalid email or password" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{25 * time.Minute, "25:00"},
		{time.Hour + 5*time.Second, "01:00:05"},
	}
	for _, tt := range tests {
		if got := formatCountdown(tt.d); got != tt.want {
			t.Errorf("formatCountdown(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestHeaderShowsNextAlarm(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2024, 1, 15, 18, 30, 0, 0, time.UTC)
	next := func(time.Time) (model.Alarm, time.Time, bool) {
		return model.Alarm{Name: "Gym"}, at, true
	}
	a := NewApp(context.Background(), f.state, WithNextAlarm(next))
	a.now = f.clock.Now
	a, _ = send(a, tea.WindowSizeMsg{Width: 120, Height: 40})

	if got := a.renderHeader(); !strings.Contains(got, "Gym 06:30 PM") {
		t.Fatalf("expected next alarm in header, got %q", got)
	}
}
