package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"timesup/internal/model"
)

type AlarmRepository struct {
	db *sql.DB
}

func NewAlarmRepository(db *sql.DB) *AlarmRepository {
	return &AlarmRepository{db: db}
}

const alarmColumns = `id, user_id, hours, minutes, ampm, name, days, is_set, created_at`

// ListByOwner returns the user's alarms, newest first.
func (r *AlarmRepository) ListByOwner(ctx context.Context, userID string) ([]model.Alarm, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+alarmColumns+`
		 FROM alarms
		 WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}
	defer rows.Close()

	alarms := make([]model.Alarm, 0)
	for rows.Next() {
		a, scanErr := scanAlarm(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alarms = append(alarms, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alarms: %w", err)
	}
	return alarms, nil
}

func (r *AlarmRepository) Create(ctx context.Context, a *model.Alarm) error {
	days, err := encodeDays(a.Days)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(
		ctx,
		`INSERT INTO alarms (`+alarmColumns+`, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.OwnerID,
		a.Hour12,
		a.Minute,
		string(a.Meridiem),
		a.Name,
		days,
		boolToInt(a.Enabled),
		formatTime(a.CreatedAt),
		formatTime(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create alarm: %w", err)
	}
	return nil
}

// GetOwned loads an alarm only if it belongs to userID.
func (r *AlarmRepository) GetOwned(ctx context.Context, id, userID string) (*model.Alarm, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT `+alarmColumns+` FROM alarms WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	return scanAlarm(row)
}

func (r *AlarmRepository) Update(ctx context.Context, a *model.Alarm, updatedAt time.Time) error {
	days, err := encodeDays(a.Days)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(
		ctx,
		`UPDATE alarms
		 SET hours = ?,
		     minutes = ?,
		     ampm = ?,
		     name = ?,
		     days = ?,
		     is_set = ?,
		     updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		a.Hour12,
		a.Minute,
		string(a.Meridiem),
		a.Name,
		days,
		boolToInt(a.Enabled),
		formatTime(updatedAt),
		a.ID,
		a.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("update alarm: %w", err)
	}
	return requireAffected(result)
}

func (r *AlarmRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM alarms WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete alarm: %w", err)
	}
	return requireAffected(result)
}

func scanAlarm(s scanner) (*model.Alarm, error) {
	var a model.Alarm
	var meridiem string
	var days string
	var isSet int
	var createdAt string
	err := s.Scan(&a.ID, &a.OwnerID, &a.Hour12, &a.Minute, &meridiem, &a.Name, &days, &isSet, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan alarm: %w", err)
	}

	a.Meridiem = model.Meridiem(meridiem)
	a.Enabled = isSet != 0

	var rawDays []int
	if err := json.Unmarshal([]byte(days), &rawDays); err != nil {
		return nil, fmt.Errorf("parse alarm days: %w", err)
	}
	a.Days = make([]time.Weekday, 0, len(rawDays))
	for _, d := range rawDays {
		a.Days = append(a.Days, time.Weekday(d))
	}

	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse alarm created_at: %w", err)
	}
	return &a, nil
}

func encodeDays(days []time.Weekday) (string, error) {
	ints := make([]int, 0, len(days))
	for _, d := range days {
		ints = append(ints, int(d))
	}
	raw, err := json.Marshal(ints)
	if err != nil {
		return "", fmt.Errorf("encode alarm days: %w", err)
	}
	return string(raw), nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
