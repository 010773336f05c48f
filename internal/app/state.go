// Package app holds the client application state shared by every view.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"timesup/internal/alarmstore"
	"timesup/internal/client"
	"timesup/internal/localstore"
	"timesup/internal/model"
	"timesup/internal/pomodoro"
	"timesup/internal/stopwatch"
)

var ErrOffline = errors.New("no account configured")

// Slots is the local key/value storage.
type Slots interface {
	Get(key string, dest any) (bool, error)
	Put(key string, value any) error
}

// Account is the signed-in side of the cloud API.
type Account interface {
	Login(ctx context.Context, email, password string) (*client.AuthResult, error)
	RecordSession(ctx context.Context, mode, taskID string, d time.Duration) error
}

type Option func(*State)

func WithLogger(logger *log.Logger) Option {
	return func(s *State) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAccount enables sign in. Without it the state stays local only.
func WithAccount(account Account) Option {
	return func(s *State) {
		s.account = account
	}
}

// State is created once by the composition root and passed to the views.
type State struct {
	Alarms    *alarmstore.Store
	Stopwatch *stopwatch.Engine
	Pomodoro  *pomodoro.Engine

	slots   Slots
	account Account
	logger  *log.Logger

	mu    sync.RWMutex
	owner string
	email string
}

func New(alarms *alarmstore.Store, sw *stopwatch.Engine, pomo *pomodoro.Engine, slots Slots, opts ...Option) *State {
	s := &State{
		Alarms:    alarms,
		Stopwatch: sw,
		Pomodoro:  pomo,
		slots:     slots,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadLocal restores the Pomodoro state and stopwatch laps saved by
// SaveLocal. An empty slot keeps the current state.
func (s *State) LoadLocal() error {
	var snap pomodoro.Snapshot
	ok, err := s.slots.Get(localstore.SlotState, &snap)
	if err != nil {
		return fmt.Errorf("load local state: %w", err)
	}
	if ok {
		s.Pomodoro.Restore(snap)
	}

	var laps []stopwatch.Lap
	ok, err = s.slots.Get(localstore.SlotLaps, &laps)
	if err != nil {
		return fmt.Errorf("load laps: %w", err)
	}
	if ok {
		s.Stopwatch.RestoreLaps(laps)
	}
	return nil
}

func (s *State) SaveLocal() error {
	return errors.Join(
		s.SaveSnapshot(s.Pomodoro.Snapshot()),
		s.SaveLaps(s.Stopwatch.Laps()),
	)
}

// SaveLaps persists laps copied from the stopwatch.
func (s *State) SaveLaps(laps []stopwatch.Lap) error {
	if err := s.slots.Put(localstore.SlotLaps, laps); err != nil {
		return fmt.Errorf("save laps: %w", err)
	}
	return nil
}

// SaveSnapshot persists a snapshot taken on the goroutine that owns the
// Pomodoro engine, so the write itself can run elsewhere.
func (s *State) SaveSnapshot(snap pomodoro.Snapshot) error {
	if err := s.slots.Put(localstore.SlotState, snap); err != nil {
		return fmt.Errorf("save local state: %w", err)
	}
	return nil
}

// Start loads the alarm collection for the current owner.
func (s *State) Start(ctx context.Context) error {
	if _, err := s.Alarms.Load(ctx, s.Owner()); err != nil {
		return err
	}
	return s.LoadLocal()
}

// SignIn authenticates, switches the alarm collection to the account and
// imports any local-only alarms into it.
func (s *State) SignIn(ctx context.Context, email, password string) (model.User, error) {
	if s.account == nil {
		return model.User{}, ErrOffline
	}
	result, err := s.account.Login(ctx, email, password)
	if err != nil {
		return model.User{}, err
	}

	s.mu.Lock()
	s.owner = result.User.ID
	s.email = result.User.Email
	s.mu.Unlock()

	if _, err := s.Alarms.Load(ctx, result.User.ID); err != nil {
		return result.User, err
	}
	n, err := s.Alarms.ImportLocal(ctx, result.User.ID)
	if err != nil {
		s.logger.Printf("import local alarms: %v", err)
	}
	if n > 0 {
		s.logger.Printf("imported %d local alarms into %s", n, result.User.Email)
	}
	return result.User, nil
}

// SignOut drops the account and returns to local alarms.
func (s *State) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.owner = ""
	s.email = ""
	s.mu.Unlock()
	_, err := s.Alarms.Load(ctx, "")
	return err
}

func (s *State) Owner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

func (s *State) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

// RecordCompletion saves snap locally and, when signed in, reports the
// finished countdown to the server. Local task ids are unknown to the
// server, so sessions are sent without one.
func (s *State) RecordCompletion(ctx context.Context, c pomodoro.Completion, snap pomodoro.Snapshot) error {
	var errs []error
	if err := s.SaveSnapshot(snap); err != nil {
		errs = append(errs, err)
	}
	if s.account != nil && s.Owner() != "" && isSequencePreset(c.Preset) {
		if err := s.account.RecordSession(ctx, c.Preset, "", c.Duration); err != nil {
			errs = append(errs, fmt.Errorf("record session: %w", err))
		}
	}
	return errors.Join(errs...)
}

func isSequencePreset(preset string) bool {
	switch preset {
	case model.PresetPomodoro, model.PresetShortBreak, model.PresetLongBreak:
		return true
	}
	return false
}
