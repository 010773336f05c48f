package app_test

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"timesup/internal/alarmstore"
	"timesup/internal/app"
	"timesup/internal/client"
	"timesup/internal/clock"
	"timesup/internal/db"
	"timesup/internal/handler"
	"timesup/internal/localstore"
	"timesup/internal/model"
	"timesup/internal/pomodoro"
	"timesup/internal/repository"
	"timesup/internal/router"
	"timesup/internal/service"
	"timesup/internal/stopwatch"
	"timesup/migrations"
)

var quiet = log.New(io.Discard, "", 0)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	if err := db.RunMigrations(database, migrations.FS); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pomodoroRepo := repository.NewPomodoroRepository(database)
	authService := service.NewAuthService(repository.NewUserRepository(database), pomodoroRepo, "test-secret", time.Hour)
	engine := router.New(authService, router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Alarm:    handler.NewAlarmHandler(service.NewAlarmService(repository.NewAlarmRepository(database))),
		Pomodoro: handler.NewPomodoroHandler(service.NewPomodoroService(pomodoroRepo)),
	}, nil)

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)
	return server
}

func newLocal(t *testing.T) *localstore.Store {
	t.Helper()
	local, err := localstore.NewMemory()
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	t.Cleanup(func() { local.Close() })
	return local
}

func newState(local *localstore.Store, api *client.Client) *app.State {
	c := clock.NewManual(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC))
	var remote alarmstore.Remote
	opts := []app.Option{app.WithLogger(quiet)}
	if api != nil {
		remote = api
		opts = append(opts, app.WithAccount(api))
	}
	settings := model.DefaultPomodoroSettings()
	settings.WorkMinutes = 1
	return app.New(
		alarmstore.New(remote, local, alarmstore.WithLogger(quiet), alarmstore.WithClock(c)),
		stopwatch.New(c),
		pomodoro.New(settings, pomodoro.WithClock(c)),
		local,
		opts...,
	)
}

func wake() model.Alarm {
	return model.Alarm{Hour12: 7, Minute: 0, Meridiem: model.AM, Name: "Wake", Enabled: true}
}

func TestSaveAndLoadLocal(t *testing.T) {
	local := newLocal(t)
	state := newState(local, nil)

	task, err := state.Pomodoro.AddTask("read")
	if err != nil {
		t.Fatal(err)
	}
	state.Pomodoro.SelectTask(task.ID)
	state.Pomodoro.SetAutoPomodoro(false)
	state.Stopwatch.RestoreLaps([]stopwatch.Lap{{ID: 2, Elapsed: 1500 * time.Millisecond}, {ID: 1, Elapsed: time.Second}})
	if err := state.SaveLocal(); err != nil {
		t.Fatalf("SaveLocal: %v", err)
	}

	next := newState(local, nil)
	if err := next.LoadLocal(); err != nil {
		t.Fatalf("LoadLocal: %v", err)
	}
	if tasks := next.Pomodoro.Tasks(); len(tasks) != 1 || tasks[0].Text != "read" {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
	if next.Pomodoro.AutoPomodoro() {
		t.Fatal("expected autoPomodoro restored as false")
	}
	laps := next.Stopwatch.Laps()
	if len(laps) != 2 || laps[0].ID != 2 || laps[0].Display() != "00:00:01.50" {
		t.Fatalf("unexpected laps %+v", laps)
	}
}

func TestLoadLocalEmptySlotKeepsDefaults(t *testing.T) {
	state := newState(newLocal(t), nil)
	if err := state.LoadLocal(); err != nil {
		t.Fatalf("LoadLocal: %v", err)
	}
	if !state.Pomodoro.AutoPomodoro() || len(state.Pomodoro.Tasks()) != 0 {
		t.Fatal("expected untouched defaults")
	}
}

func TestSignInOffline(t *testing.T) {
	state := newState(newLocal(t), nil)
	if _, err := state.SignIn(context.Background(), "a@example.com", "123456"); !errors.Is(err, app.ErrOffline) {
		t.Fatalf("err = %v, want ErrOffline", err)
	}
}

func TestSignInImportsLocalAlarms(t *testing.T) {
	server := newServer(t)
	ctx := context.Background()

	api := client.New(server.URL, 5*time.Second)
	if _, err := api.Register(ctx, "me@example.com", "123456"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	api.SetToken("")

	local := newLocal(t)
	state := newState(local, api)
	if err := state.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := state.Alarms.Add(ctx, wake(), ""); err != nil {
		t.Fatalf("Add local: %v", err)
	}

	user, err := state.SignIn(ctx, "me@example.com", "123456")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if state.Owner() != user.ID || state.Email() != "me@example.com" {
		t.Fatalf("owner=%q email=%q", state.Owner(), state.Email())
	}

	alarms := state.Alarms.Snapshot()
	if len(alarms) != 1 || alarms[0].OwnerID != user.ID {
		t.Fatalf("expected imported alarm owned by %s, got %+v", user.ID, alarms)
	}
	remote, err := api.List(ctx)
	if err != nil || len(remote) != 1 {
		t.Fatalf("remote alarms = %v, %v", remote, err)
	}
	if left, _ := local.LoadAlarms(); len(left) != 0 {
		t.Fatalf("expected local slot cleared, got %d", len(left))
	}

	if err := state.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if state.Owner() != "" || len(state.Alarms.Snapshot()) != 0 {
		t.Fatal("expected local-only empty collection after sign out")
	}
}

func TestRecordCompletionReportsSession(t *testing.T) {
	server := newServer(t)
	ctx := context.Background()
	api := client.New(server.URL, 5*time.Second)
	if _, err := api.Register(ctx, "focus@example.com", "123456"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	local := newLocal(t)
	state := newState(local, api)
	if _, err := state.SignIn(ctx, "focus@example.com", "123456"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	state.Pomodoro.Toggle()
	var done pomodoro.Completion
	for i := 0; i < 60; i++ {
		if c, ok := state.Pomodoro.Tick(); ok {
			done = c
		}
	}
	if done.Preset != model.PresetPomodoro {
		t.Fatalf("expected a finished Pomodoro, got %+v", done)
	}
	if err := state.RecordCompletion(ctx, done, state.Pomodoro.Snapshot()); err != nil {
		t.Fatalf("RecordCompletion: %v", err)
	}

	sessions, err := api.History(ctx, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(sessions) != 1 || sessions[0].DurationSeconds != 60 {
		t.Fatalf("unexpected sessions %+v", sessions)
	}

	// Fixed presets stay local.
	if err := state.RecordCompletion(ctx, pomodoro.Completion{Preset: "5 min", Duration: 5 * time.Minute}, state.Pomodoro.Snapshot()); err != nil {
		t.Fatalf("RecordCompletion: %v", err)
	}
	if sessions, _ := api.History(ctx, 10); len(sessions) != 1 {
		t.Fatalf("expected fixed preset not reported, got %d sessions", len(sessions))
	}

	var snap pomodoro.Snapshot
	if ok, err := local.Get(localstore.SlotState, &snap); !ok || err != nil {
		t.Fatalf("expected saved state, ok=%v err=%v", ok, err)
	}
	if snap.PomodoroCount != 1 {
		t.Fatalf("saved count = %d, want 1", snap.PomodoroCount)
	}
}
