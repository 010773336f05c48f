package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"timesup/internal/model"
)

type PomodoroRepository struct {
	db *sql.DB
}

func NewPomodoroRepository(db *sql.DB) *PomodoroRepository {
	return &PomodoroRepository{db: db}
}

// rowQueryer is satisfied by both *sql.DB and *sql.Tx.
type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (r *PomodoroRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

func (r *PomodoroRepository) CreateInitialProfile(ctx context.Context, userID string) error {
	settings := model.DefaultPomodoroSettings()
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO pomodoro_profiles (
			user_id, work_minutes, short_break_minutes, long_break_minutes, long_break_interval,
			auto_start_breaks, auto_start_pomodoros, pomodoro_count, auto_pomodoro, version, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID,
		settings.WorkMinutes,
		settings.ShortBreakMinutes,
		settings.LongBreakMinutes,
		settings.LongBreakInterval,
		boolToInt(settings.AutoStartBreaks),
		boolToInt(settings.AutoStartPomodoros),
		0,
		1,
		1,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("create initial profile: %w", err)
	}
	return nil
}

const profileQuery = `SELECT user_id, work_minutes, short_break_minutes, long_break_minutes, long_break_interval,
		auto_start_breaks, auto_start_pomodoros, pomodoro_count, auto_pomodoro, version, updated_at
	 FROM pomodoro_profiles WHERE user_id = ?`

func (r *PomodoroRepository) GetProfile(ctx context.Context, userID string) (*model.PomodoroProfile, error) {
	return getProfile(ctx, r.db, userID)
}

func (r *PomodoroRepository) GetProfileTx(ctx context.Context, tx *sql.Tx, userID string) (*model.PomodoroProfile, error) {
	return getProfile(ctx, tx, userID)
}

func getProfile(ctx context.Context, q rowQueryer, userID string) (*model.PomodoroProfile, error) {
	var p model.PomodoroProfile
	var autoStartBreaks, autoStartPomodoros, autoPomodoro int
	var updatedAt string
	err := q.QueryRowContext(ctx, profileQuery, userID).Scan(
		&p.UserID,
		&p.Settings.WorkMinutes,
		&p.Settings.ShortBreakMinutes,
		&p.Settings.LongBreakMinutes,
		&p.Settings.LongBreakInterval,
		&autoStartBreaks,
		&autoStartPomodoros,
		&p.PomodoroCount,
		&autoPomodoro,
		&p.Version,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	p.Settings.AutoStartBreaks = autoStartBreaks != 0
	p.Settings.AutoStartPomodoros = autoStartPomodoros != 0
	p.AutoPomodoro = autoPomodoro != 0
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse profile updated_at: %w", err)
	}
	return &p, nil
}

func (r *PomodoroRepository) UpdateProfileTx(ctx context.Context, tx *sql.Tx, p *model.PomodoroProfile) error {
	_, err := tx.ExecContext(
		ctx,
		`UPDATE pomodoro_profiles
		 SET work_minutes = ?,
		     short_break_minutes = ?,
		     long_break_minutes = ?,
		     long_break_interval = ?,
		     auto_start_breaks = ?,
		     auto_start_pomodoros = ?,
		     pomodoro_count = ?,
		     auto_pomodoro = ?,
		     version = ?,
		     updated_at = ?
		 WHERE user_id = ?`,
		p.Settings.WorkMinutes,
		p.Settings.ShortBreakMinutes,
		p.Settings.LongBreakMinutes,
		p.Settings.LongBreakInterval,
		boolToInt(p.Settings.AutoStartBreaks),
		boolToInt(p.Settings.AutoStartPomodoros),
		p.PomodoroCount,
		boolToInt(p.AutoPomodoro),
		p.Version,
		formatTime(p.UpdatedAt),
		p.UserID,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

func (r *PomodoroRepository) CreateTask(ctx context.Context, task *model.PomodoroTask) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO pomodoro_tasks (id, user_id, text, completed, completed_sessions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.UserID,
		task.Text,
		boolToInt(task.Completed),
		task.CompletedSessions,
		formatTime(task.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *PomodoroRepository) ListTasks(ctx context.Context, userID string) ([]model.PomodoroTask, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, user_id, text, completed, completed_sessions, created_at
		 FROM pomodoro_tasks
		 WHERE user_id = ?
		 ORDER BY created_at ASC, rowid ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.PomodoroTask, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func (r *PomodoroRepository) GetTask(ctx context.Context, id, userID string) (*model.PomodoroTask, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, user_id, text, completed, completed_sessions, created_at
		 FROM pomodoro_tasks WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	return scanTask(row)
}

func (r *PomodoroRepository) ToggleTask(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(
		ctx,
		`UPDATE pomodoro_tasks SET completed = 1 - completed WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	if err != nil {
		return fmt.Errorf("toggle task: %w", err)
	}
	return requireAffected(result)
}

func (r *PomodoroRepository) DeleteTask(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pomodoro_tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return requireAffected(result)
}

func (r *PomodoroRepository) IncrementTaskSessionsTx(ctx context.Context, tx *sql.Tx, id, userID string) error {
	result, err := tx.ExecContext(
		ctx,
		`UPDATE pomodoro_tasks SET completed_sessions = completed_sessions + 1 WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	if err != nil {
		return fmt.Errorf("increment task sessions: %w", err)
	}
	return requireAffected(result)
}

func (r *PomodoroRepository) InsertSessionTx(ctx context.Context, tx *sql.Tx, session *model.PomodoroSession) error {
	var taskID interface{}
	if session.TaskID != nil {
		taskID = *session.TaskID
	}

	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO pomodoro_sessions (id, user_id, task_id, mode, duration_seconds, completed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		taskID,
		session.Mode,
		session.DurationSeconds,
		formatTime(session.CompletedAt),
		formatTime(session.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *PomodoroRepository) ListSessions(ctx context.Context, userID string, limit int) ([]model.PomodoroSession, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, user_id, task_id, mode, duration_seconds, completed_at, created_at
		 FROM pomodoro_sessions
		 WHERE user_id = ?
		 ORDER BY completed_at DESC, rowid DESC
		 LIMIT ?`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.PomodoroSession, 0, limit)
	for rows.Next() {
		session, scanErr := scanPomodoroSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

func scanTask(s scanner) (*model.PomodoroTask, error) {
	var task model.PomodoroTask
	var completed int
	var createdAt string
	err := s.Scan(&task.ID, &task.UserID, &task.Text, &completed, &task.CompletedSessions, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	task.Completed = completed != 0
	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse task created_at: %w", err)
	}
	return &task, nil
}

func scanPomodoroSession(s scanner) (*model.PomodoroSession, error) {
	session := model.PomodoroSession{}
	var taskID sql.NullString
	var completedAt string
	var createdAt string
	err := s.Scan(
		&session.ID,
		&session.UserID,
		&taskID,
		&session.Mode,
		&session.DurationSeconds,
		&completedAt,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	if taskID.Valid {
		value := taskID.String
		session.TaskID = &value
	}
	if session.CompletedAt, err = parseTime(completedAt); err != nil {
		return nil, fmt.Errorf("parse session completed_at: %w", err)
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse session created_at: %w", err)
	}
	return &session, nil
}
