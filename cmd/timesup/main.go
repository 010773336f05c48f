package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"timesup/internal/alarm"
	"timesup/internal/alarmstore"
	"timesup/internal/app"
	"timesup/internal/client"
	"timesup/internal/clock"
	"timesup/internal/config"
	"timesup/internal/localstore"
	"timesup/internal/model"
	"timesup/internal/pomodoro"
	"timesup/internal/stopwatch"
	"timesup/internal/tui"
)

func main() {
	configPath := flag.String("config", config.DefaultClientPath(), "path to the client config file")
	offline := flag.Bool("offline", false, "ignore server_url and keep everything on this device")
	flag.Parse()

	if err := run(*configPath, *offline); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, offline bool) error {
	cfg, err := config.LoadClient(configPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logFile.Close()
	logger := log.New(logFile, "timesup ", log.LstdFlags)

	local, err := localstore.New(cfg.LocalDBPath())
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer local.Close()

	var (
		remote alarmstore.Remote
		opts   = []app.Option{app.WithLogger(logger)}
		api    *client.Client
	)
	if cfg.Online() && !offline {
		api = client.New(cfg.ServerURL, cfg.Timeout)
		remote = api
		opts = append(opts, app.WithAccount(api))
	}

	state := app.New(
		alarmstore.New(remote, local, alarmstore.WithLogger(logger)),
		stopwatch.New(clock.Real{}),
		pomodoro.New(cfg.Pomodoro),
		local,
		opts...,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := state.Start(ctx); err != nil {
		logger.Printf("start: %v", err)
	}
	if api != nil && cfg.Email != "" {
		if _, err := state.SignIn(ctx, cfg.Email, cfg.Password); err != nil {
			logger.Printf("sign in %s: %v", cfg.Email, err)
		}
	}

	var program *tea.Program
	ticker := alarm.NewTicker(state.Alarms, func(a model.Alarm) {
		program.Send(tui.AlarmFiredMsg{Alarm: a})
	}, alarm.WithLogger(logger))
	program = tea.NewProgram(tui.NewApp(ctx, state, tui.WithNextAlarm(ticker.Next)), tea.WithAltScreen())

	if err := ticker.Start(ctx); err != nil {
		return fmt.Errorf("start alarm ticker: %w", err)
	}

	_, runErr := program.Run()
	cancel()
	ticker.Stop()

	if err := state.SaveLocal(); err != nil {
		logger.Printf("save local state: %v", err)
	}
	return runErr
}
