package pomodoro

import (
	"testing"
	"time"

	"timesup/internal/clock"
	"timesup/internal/model"
)

func shortSettings() model.PomodoroSettings {
	s := model.DefaultPomodoroSettings()
	s.WorkMinutes = 1
	s.ShortBreakMinutes = 1
	s.LongBreakMinutes = 2
	s.LongBreakInterval = 4
	return s
}

func newEngine(opts ...Option) *Engine {
	c := clock.NewManual(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC))
	return New(shortSettings(), append([]Option{WithClock(c)}, opts...)...)
}

// runOut ticks until the current countdown completes.
func runOut(t *testing.T, e *Engine) Completion {
	t.Helper()
	if !e.Active() {
		e.Toggle()
	}
	for i := 0; i < 24*60*60; i++ {
		if done, ok := e.Tick(); ok {
			return done
		}
	}
	t.Fatal("countdown never completed")
	return Completion{}
}

func TestNewStartsOnIdlePomodoro(t *testing.T) {
	e := newEngine()
	if e.Preset() != model.PresetPomodoro || e.Active() {
		t.Fatalf("got preset %q active=%v", e.Preset(), e.Active())
	}
	if e.Remaining() != time.Minute {
		t.Fatalf("Remaining = %v, want 1m", e.Remaining())
	}
	if _, ok := e.Tick(); ok || e.Remaining() != time.Minute {
		t.Fatal("inactive engine must not count down")
	}
}

func TestLongBreakEveryFourthPomodoro(t *testing.T) {
	e := newEngine()
	for n := 1; n <= 8; n++ {
		if e.Preset() != model.PresetPomodoro {
			t.Fatalf("round %d: expected Pomodoro, got %q", n, e.Preset())
		}
		done := runOut(t, e)
		if done.Count != n {
			t.Fatalf("round %d: count = %d", n, done.Count)
		}

		want := model.PresetShortBreak
		if n%4 == 0 {
			want = model.PresetLongBreak
		}
		if e.Preset() != want {
			t.Fatalf("after pomodoro %d: preset = %q, want %q", n, e.Preset(), want)
		}
		runOut(t, e)
	}
}

func TestCompletionCreditsSelectedTask(t *testing.T) {
	var got []Completion
	e := newEngine(WithCompletion(func(c Completion) { got = append(got, c) }))

	task, err := e.AddTask("  write report ")
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if task.Text != "write report" {
		t.Fatalf("text = %q", task.Text)
	}
	if err := e.SelectTask(task.ID); err != nil {
		t.Fatalf("SelectTask: %v", err)
	}

	runOut(t, e)
	if e.Sessions(task.ID) != 1 {
		t.Fatalf("sessions = %d, want 1", e.Sessions(task.ID))
	}
	// Breaks are never credited.
	runOut(t, e)
	if e.Sessions(task.ID) != 1 {
		t.Fatalf("sessions after break = %d, want 1", e.Sessions(task.ID))
	}

	if len(got) != 2 {
		t.Fatalf("callback ran %d times, want 2", len(got))
	}
	if got[0].TaskID != task.ID || got[0].Preset != model.PresetPomodoro || got[0].Duration != time.Minute {
		t.Fatalf("unexpected completion %+v", got[0])
	}
	if got[1].TaskID != "" || got[1].Preset != model.PresetShortBreak {
		t.Fatalf("unexpected break completion %+v", got[1])
	}
	if tasks := e.Tasks(); tasks[0].CompletedSessions != 1 {
		t.Fatalf("Tasks CompletedSessions = %d", tasks[0].CompletedSessions)
	}
}

func TestManualModeDoesNotAdvance(t *testing.T) {
	e := newEngine()
	e.SetAutoPomodoro(false)

	done := runOut(t, e)
	if done.Count != 1 {
		t.Fatalf("count = %d, want 1", done.Count)
	}
	if e.Preset() != model.PresetPomodoro || e.Active() || e.Remaining() != 0 {
		t.Fatalf("expected stopped Pomodoro at zero, got %q active=%v remaining=%v", e.Preset(), e.Active(), e.Remaining())
	}

	e.Toggle()
	if !e.Active() || e.Remaining() != time.Minute {
		t.Fatalf("Toggle at zero should reload, got active=%v remaining=%v", e.Active(), e.Remaining())
	}
}

func TestAutoStartSettings(t *testing.T) {
	s := shortSettings()
	s.AutoStartBreaks = true
	e := New(s)

	runOut(t, e)
	if e.Preset() != model.PresetShortBreak || !e.Active() {
		t.Fatalf("expected running Short Break, got %q active=%v", e.Preset(), e.Active())
	}
	runOut(t, e)
	if e.Preset() != model.PresetPomodoro || e.Active() {
		t.Fatalf("expected idle Pomodoro, got %q active=%v", e.Preset(), e.Active())
	}
}

func TestPresetsAndReset(t *testing.T) {
	e := newEngine()
	if err := e.SetPreset("5 min"); err != nil {
		t.Fatalf("SetPreset: %v", err)
	}
	if e.Remaining() != 5*time.Minute {
		t.Fatalf("Remaining = %v, want 5m", e.Remaining())
	}
	if err := e.SetPreset("2 min"); err != ErrUnknownPreset {
		t.Fatalf("err = %v, want ErrUnknownPreset", err)
	}

	e.Toggle()
	e.Tick()
	e.Tick()
	if e.Remaining() != 5*time.Minute-2*time.Second {
		t.Fatalf("Remaining = %v", e.Remaining())
	}
	if p := e.Progress(); p <= 0.99 || p >= 1 {
		t.Fatalf("Progress = %v", p)
	}

	e.Reset()
	if e.Active() || e.Remaining() != 5*time.Minute {
		t.Fatalf("Reset: active=%v remaining=%v", e.Active(), e.Remaining())
	}

	// A fixed preset does not advance the sequence.
	done := runOut(t, e)
	if done.Count != 0 || e.Count() != 0 {
		t.Fatalf("count = %d, want 0", e.Count())
	}
}

func TestResetSequence(t *testing.T) {
	e := newEngine()
	runOut(t, e)
	runOut(t, e)
	if e.Count() != 1 {
		t.Fatalf("count = %d", e.Count())
	}
	e.ResetSequence()
	if e.Count() != 0 || e.Preset() != model.PresetPomodoro {
		t.Fatalf("after ResetSequence: count=%d preset=%q", e.Count(), e.Preset())
	}
}

func TestUpdateSettings(t *testing.T) {
	e := newEngine()
	s := shortSettings()
	s.WorkMinutes = 50
	if err := e.UpdateSettings(s); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if e.Remaining() != 50*time.Minute {
		t.Fatalf("Remaining = %v, want 50m", e.Remaining())
	}

	s.LongBreakInterval = 0
	if err := e.UpdateSettings(s); err != ErrBadSettings {
		t.Fatalf("err = %v, want ErrBadSettings", err)
	}
	if e.Settings().LongBreakInterval != 4 {
		t.Fatal("rejected settings must not be applied")
	}
}

func TestTasks(t *testing.T) {
	e := newEngine()
	if _, err := e.AddTask("   "); err != ErrBlankTask {
		t.Fatalf("err = %v, want ErrBlankTask", err)
	}

	a, _ := e.AddTask("a")
	b, _ := e.AddTask("b")
	if a.ID == b.ID {
		t.Fatalf("duplicate task ids %s", a.ID)
	}

	if err := e.ToggleTask(a.ID); err != nil {
		t.Fatalf("ToggleTask: %v", err)
	}
	if !e.Tasks()[0].Completed {
		t.Fatal("expected task completed")
	}

	if err := e.SelectTask(b.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.SelectTask(b.ID); err != nil || e.Selected() != "" {
		t.Fatalf("second select should clear, got %q", e.Selected())
	}

	e.SelectTask(b.ID)
	runOut(t, e)
	if err := e.DeleteTask(b.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if e.Selected() != "" || e.Sessions(b.ID) != 0 {
		t.Fatal("DeleteTask must clear selection and sessions")
	}
	if err := e.DeleteTask(b.ID); err != ErrTaskNotFound {
		t.Fatalf("err = %v, want ErrTaskNotFound", err)
	}
	if err := e.SelectTask("missing"); err != ErrTaskNotFound {
		t.Fatalf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestSnapshotRestore(t *testing.T) {
	e := newEngine()
	task, _ := e.AddTask("persist me")
	e.SelectTask(task.ID)
	runOut(t, e)
	e.SetAutoPomodoro(false)

	snap := e.Snapshot()
	restored := New(model.DefaultPomodoroSettings())
	restored.Restore(snap)

	if restored.Count() != 1 || restored.AutoPomodoro() {
		t.Fatalf("count=%d auto=%v", restored.Count(), restored.AutoPomodoro())
	}
	if restored.Sessions(task.ID) != 1 || len(restored.Tasks()) != 1 {
		t.Fatalf("tasks not restored: %+v", restored.Tasks())
	}
	if restored.Settings().WorkMinutes != 1 || restored.Remaining() != time.Minute {
		t.Fatalf("settings not restored: %+v remaining=%v", restored.Settings(), restored.Remaining())
	}

	snap.CompletedSessions[task.ID] = 99
	if restored.Sessions(task.ID) != 1 {
		t.Fatal("Restore must copy the sessions map")
	}
}
