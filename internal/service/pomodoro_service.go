package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "timesup/internal/errors"
	"timesup/internal/model"
	"timesup/internal/repository"
)

type PomodoroService struct {
	repo *repository.PomodoroRepository
}

type StateView struct {
	UserID        string                 `json:"userId"`
	Settings      model.PomodoroSettings `json:"settings"`
	PomodoroCount int                    `json:"pomodoroCount"`
	AutoPomodoro  bool                   `json:"autoPomodoro"`
	Version       int                    `json:"version"`
	UpdatedAt     time.Time              `json:"updatedAt"`
	ServerTime    time.Time              `json:"serverTime"`
}

type UpdateSettingsInput struct {
	BaseVersion  int
	Settings     model.PomodoroSettings
	AutoPomodoro *bool
}

// RecordSessionInput describes a finished countdown. BaseVersion <= 0 skips
// the conflict check.
type RecordSessionInput struct {
	BaseVersion     int
	Mode            string
	TaskID          *string
	DurationSeconds int
}

type RecordSessionResult struct {
	State   StateView             `json:"state"`
	Session model.PomodoroSession `json:"session"`
}

func NewPomodoroService(repo *repository.PomodoroRepository) *PomodoroService {
	return &PomodoroService{repo: repo}
}

func (s *PomodoroService) GetState(ctx context.Context, userID string) (*StateView, *apperrors.APIError) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("state_not_found", "pomodoro state not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get state")
	}
	view := s.toStateView(profile, time.Now().UTC())
	return &view, nil
}

func (s *PomodoroService) UpdateSettings(ctx context.Context, userID string, input UpdateSettingsInput) (*StateView, *apperrors.APIError) {
	settings := input.Settings
	if settings.WorkMinutes <= 0 || settings.ShortBreakMinutes <= 0 || settings.LongBreakMinutes <= 0 {
		return nil, apperrors.BadRequest("invalid_duration", "all durations must be positive minutes")
	}
	if settings.LongBreakInterval <= 0 {
		return nil, apperrors.BadRequest("invalid_interval", "longBreakInterval must be at least 1")
	}

	return s.mutate(ctx, userID, input.BaseVersion, func(_ *sql.Tx, profile *model.PomodoroProfile) *apperrors.APIError {
		profile.Settings = settings
		if input.AutoPomodoro != nil {
			profile.AutoPomodoro = *input.AutoPomodoro
		}
		return nil
	})
}

// RecordSession stores a completed countdown. A finished Pomodoro advances
// the sequence count and credits the selected task.
func (s *PomodoroService) RecordSession(ctx context.Context, userID string, input RecordSessionInput) (*RecordSessionResult, *apperrors.APIError) {
	if !isValidMode(input.Mode) {
		return nil, apperrors.BadRequest("invalid_mode", "mode must be one of Pomodoro, Short Break, Long Break")
	}
	if input.DurationSeconds < 0 {
		return nil, apperrors.BadRequest("invalid_duration", "durationSeconds must not be negative")
	}
	if input.TaskID != nil && strings.TrimSpace(*input.TaskID) == "" {
		input.TaskID = nil
	}

	now := time.Now().UTC()
	session := model.PomodoroSession{
		ID:              uuid.NewString(),
		UserID:          userID,
		TaskID:          input.TaskID,
		Mode:            input.Mode,
		DurationSeconds: input.DurationSeconds,
		CompletedAt:     now,
		CreatedAt:       now,
	}

	view, apiErr := s.mutate(ctx, userID, input.BaseVersion, func(tx *sql.Tx, profile *model.PomodoroProfile) *apperrors.APIError {
		if input.Mode == model.PresetPomodoro {
			profile.PomodoroCount++
			if input.TaskID != nil {
				err := s.repo.IncrementTaskSessionsTx(ctx, tx, *input.TaskID, userID)
				if errors.Is(err, repository.ErrNotFound) {
					return apperrors.NotFound("task_not_found", "task not found")
				}
				if err != nil {
					return apperrors.Internal("failed to credit task")
				}
			}
		} else {
			session.TaskID = nil
		}

		if err := s.repo.InsertSessionTx(ctx, tx, &session); err != nil {
			return apperrors.Internal("failed to record session")
		}
		return nil
	})
	if apiErr != nil {
		return nil, apiErr
	}
	return &RecordSessionResult{State: *view, Session: session}, nil
}

// ResetSequence restarts the long-break cycle.
func (s *PomodoroService) ResetSequence(ctx context.Context, userID string, baseVersion int) (*StateView, *apperrors.APIError) {
	return s.mutate(ctx, userID, baseVersion, func(_ *sql.Tx, profile *model.PomodoroProfile) *apperrors.APIError {
		profile.PomodoroCount = 0
		return nil
	})
}

func (s *PomodoroService) GetHistory(ctx context.Context, userID string, limit int) ([]model.PomodoroSession, *apperrors.APIError) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	sessions, err := s.repo.ListSessions(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.Internal("failed to get history")
	}
	return sessions, nil
}

func (s *PomodoroService) ListTasks(ctx context.Context, userID string) ([]model.PomodoroTask, *apperrors.APIError) {
	tasks, err := s.repo.ListTasks(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to list tasks")
	}
	return tasks, nil
}

func (s *PomodoroService) CreateTask(ctx context.Context, userID, text string) (*model.PomodoroTask, *apperrors.APIError) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.BadRequest("invalid_task", "task text is required")
	}

	task := model.PomodoroTask{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateTask(ctx, &task); err != nil {
		return nil, apperrors.Internal("failed to create task")
	}
	return &task, nil
}

func (s *PomodoroService) ToggleTask(ctx context.Context, userID, id string) (*model.PomodoroTask, *apperrors.APIError) {
	err := s.repo.ToggleTask(ctx, id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("task_not_found", "task not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to update task")
	}

	task, err := s.repo.GetTask(ctx, id, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to get task")
	}
	return task, nil
}

func (s *PomodoroService) DeleteTask(ctx context.Context, userID, id string) *apperrors.APIError {
	err := s.repo.DeleteTask(ctx, id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("task_not_found", "task not found")
	}
	if err != nil {
		return apperrors.Internal("failed to delete task")
	}
	return nil
}

// mutate loads the profile in a transaction, checks baseVersion, applies fn
// and bumps the version.
func (s *PomodoroService) mutate(
	ctx context.Context,
	userID string,
	baseVersion int,
	fn func(tx *sql.Tx, profile *model.PomodoroProfile) *apperrors.APIError,
) (*StateView, *apperrors.APIError) {
	now := time.Now().UTC()
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	profile, err := s.repo.GetProfileTx(ctx, tx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("state_not_found", "pomodoro state not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get state")
	}

	if apiErr := s.ensureVersion(baseVersion, profile, now); apiErr != nil {
		return nil, apiErr
	}

	if apiErr := fn(tx, profile); apiErr != nil {
		return nil, apiErr
	}

	profile.UpdatedAt = now
	profile.Version++
	if err := s.repo.UpdateProfileTx(ctx, tx, profile); err != nil {
		return nil, apperrors.Internal("failed to update state")
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return nil, apperrors.Internal("failed to commit transaction")
	}

	view := s.toStateView(profile, now)
	return &view, nil
}

func (s *PomodoroService) ensureVersion(baseVersion int, profile *model.PomodoroProfile, now time.Time) *apperrors.APIError {
	if baseVersion <= 0 || baseVersion == profile.Version {
		return nil
	}
	view := s.toStateView(profile, now)
	return apperrors.Conflict("state_conflict", "state changed on another device", map[string]interface{}{
		"state": view,
	})
}

func (s *PomodoroService) toStateView(profile *model.PomodoroProfile, now time.Time) StateView {
	return StateView{
		UserID:        profile.UserID,
		Settings:      profile.Settings,
		PomodoroCount: profile.PomodoroCount,
		AutoPomodoro:  profile.AutoPomodoro,
		Version:       profile.Version,
		UpdatedAt:     profile.UpdatedAt,
		ServerTime:    now,
	}
}

func isValidMode(mode string) bool {
	return mode == model.PresetPomodoro || mode == model.PresetShortBreak || mode == model.PresetLongBreak
}
