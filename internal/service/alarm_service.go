package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"timesup/internal/alarm"
	apperrors "timesup/internal/errors"
	"timesup/internal/model"
	"timesup/internal/repository"
)

type AlarmService struct {
	repo *repository.AlarmRepository
}

func NewAlarmService(repo *repository.AlarmRepository) *AlarmService {
	return &AlarmService{repo: repo}
}

func (s *AlarmService) List(ctx context.Context, userID string) ([]model.Alarm, *apperrors.APIError) {
	alarms, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to list alarms")
	}
	return alarms, nil
}

func (s *AlarmService) Create(ctx context.Context, userID string, input model.Alarm) (*model.Alarm, *apperrors.APIError) {
	a := input.Clone()
	a.Days = model.NormalizeDays(a.Days)
	if apiErr := validationError(alarm.Validate(a)); apiErr != nil {
		return nil, apiErr
	}

	a.ID = uuid.NewString()
	a.OwnerID = userID
	a.CreatedAt = time.Now().UTC()

	if err := s.repo.Create(ctx, &a); err != nil {
		return nil, apperrors.Internal("failed to create alarm")
	}
	return &a, nil
}

func (s *AlarmService) Update(ctx context.Context, userID, id string, patch model.AlarmPatch) (*model.Alarm, *apperrors.APIError) {
	current, err := s.repo.GetOwned(ctx, id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, alarmNotFound()
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get alarm")
	}

	next := patch.Apply(*current)
	if apiErr := validationError(alarm.Validate(next)); apiErr != nil {
		return nil, apiErr
	}

	if err := s.repo.Update(ctx, &next, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, alarmNotFound()
		}
		return nil, apperrors.Internal("failed to update alarm")
	}
	return &next, nil
}

func (s *AlarmService) Delete(ctx context.Context, userID, id string) *apperrors.APIError {
	err := s.repo.Delete(ctx, id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return alarmNotFound()
	}
	if err != nil {
		return apperrors.Internal("failed to delete alarm")
	}
	return nil
}

func alarmNotFound() *apperrors.APIError {
	return apperrors.NotFound("alarm_not_found", "Alarm not found")
}

func validationError(err error) *apperrors.APIError {
	if err == nil {
		return nil
	}
	var verr *alarm.ValidationError
	if errors.As(err, &verr) {
		return apperrors.Invalid("invalid_alarm", verr.Field, verr.Error())
	}
	return apperrors.BadRequest("invalid_alarm", err.Error())
}
