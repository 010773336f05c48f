// Package alarmstore owns the alarm collection and keeps it in sync with the
// cloud API when signed in, or with local storage otherwise.
package alarmstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"

	"timesup/internal/alarm"
	"timesup/internal/clock"
	apperrors "timesup/internal/errors"
	"timesup/internal/model"
)

var (
	ErrNotFound = errors.New("alarm not found")
	// ErrPersistenceUnavailable marks a mutation that was applied locally
	// because the remote backend could not be reached.
	ErrPersistenceUnavailable = errors.New("remote persistence unavailable")
)

// Remote is the account-scoped alarm API. Calls act on behalf of the signed
// in user.
type Remote interface {
	List(ctx context.Context) ([]model.Alarm, error)
	Create(ctx context.Context, a model.Alarm) (model.Alarm, error)
	Update(ctx context.Context, id string, patch model.AlarmPatch) (model.Alarm, error)
	Delete(ctx context.Context, id string) error
}

// Local is the single-slot fallback storage, read and written wholesale.
type Local interface {
	LoadAlarms() ([]model.Alarm, error)
	SaveAlarms(alarms []model.Alarm) error
}

type Option func(*Store)

func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// Store is safe for concurrent use. Alarms with an OwnerID live remotely;
// alarms without one live in local storage.
type Store struct {
	remote Remote
	local  Local
	logger *log.Logger
	clock  clock.Clock

	mu     sync.RWMutex
	alarms []model.Alarm
	owner  string
}

// New builds a store. remote may be nil for offline use.
func New(remote Remote, local Local, opts ...Option) *Store {
	s := &Store{
		remote: remote,
		local:  local,
		logger: log.Default(),
		clock:  clock.Real{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the collection. With an owner the remote list is used and
// any remote failure falls back to local storage.
func (s *Store) Load(ctx context.Context, ownerID string) ([]model.Alarm, error) {
	if s.remoteFor(ownerID) {
		alarms, err := s.remote.List(ctx)
		if err == nil {
			s.replace(ownerID, alarms)
			return s.Snapshot(), nil
		}
		s.logger.Printf("load remote alarms, using local fallback: %v", err)
	}

	alarms, err := s.local.LoadAlarms()
	if err != nil {
		return nil, fmt.Errorf("load local alarms: %w", err)
	}
	s.replace(ownerID, alarms)
	return s.Snapshot(), nil
}

// Add validates and stores a new alarm. When the remote write fails the alarm
// is kept locally and the returned error wraps ErrPersistenceUnavailable.
func (s *Store) Add(ctx context.Context, a model.Alarm, ownerID string) (model.Alarm, error) {
	a = a.Clone()
	a.Days = model.NormalizeDays(a.Days)
	if err := alarm.Validate(a); err != nil {
		return model.Alarm{}, err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.clock.Now().UTC()
	}

	if s.remoteFor(ownerID) {
		created, err := s.remote.Create(ctx, a)
		if err == nil {
			s.mu.Lock()
			s.alarms = append([]model.Alarm{created.Clone()}, s.alarms...)
			s.mu.Unlock()
			return created, nil
		}
		if isRejection(err) {
			return model.Alarm{}, err
		}
		s.logger.Printf("create remote alarm %q, keeping it locally: %v", a.Name, err)

		a.OwnerID = ""
		stored, localErr := s.addLocal(a)
		if localErr != nil {
			return stored, localErr
		}
		return stored, fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}

	a.OwnerID = ""
	return s.addLocal(a)
}

// Update applies patch to the alarm with id.
func (s *Store) Update(ctx context.Context, id string, patch model.AlarmPatch, ownerID string) (model.Alarm, error) {
	current, ok := s.find(id)
	if !ok {
		return model.Alarm{}, ErrNotFound
	}
	next := patch.Apply(current)
	if err := alarm.Validate(next); err != nil {
		return model.Alarm{}, err
	}

	if s.remoteFor(ownerID) && current.OwnerID != "" {
		updated, err := s.remote.Update(ctx, id, patch)
		if err == nil {
			s.set(updated)
			return updated, nil
		}
		if isRejection(err) {
			return model.Alarm{}, err
		}
		s.logger.Printf("update remote alarm %s, applied in memory only: %v", id, err)
		s.set(next)
		return next, fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}

	s.set(next)
	return next, s.saveLocal()
}

// Toggle flips the enabled flag.
func (s *Store) Toggle(ctx context.Context, id, ownerID string) (model.Alarm, error) {
	current, ok := s.find(id)
	if !ok {
		return model.Alarm{}, ErrNotFound
	}
	enabled := !current.Enabled
	return s.Update(ctx, id, model.AlarmPatch{Enabled: &enabled}, ownerID)
}

// Remove deletes the alarm with id.
func (s *Store) Remove(ctx context.Context, id, ownerID string) error {
	current, ok := s.find(id)
	if !ok {
		return ErrNotFound
	}

	if s.remoteFor(ownerID) && current.OwnerID != "" {
		err := s.remote.Delete(ctx, id)
		if err != nil && isRejection(err) {
			return err
		}
		s.drop(id)
		if err != nil {
			s.logger.Printf("delete remote alarm %s, removed in memory only: %v", id, err)
			return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
		}
		return nil
	}

	s.drop(id)
	return s.saveLocal()
}

// PersistLocal overwrites local storage with the local-only alarms of
// collection.
func (s *Store) PersistLocal(collection []model.Alarm) error {
	local := make([]model.Alarm, 0, len(collection))
	for _, a := range collection {
		if a.OwnerID == "" {
			local = append(local, a.Clone())
		}
	}
	if err := s.local.SaveAlarms(local); err != nil {
		return fmt.Errorf("save local alarms: %w", err)
	}
	return nil
}

// ImportLocal moves local-only alarms to the account after sign in. Imported
// alarms are removed from local storage; failed ones stay for the next try.
func (s *Store) ImportLocal(ctx context.Context, ownerID string) (int, error) {
	if !s.remoteFor(ownerID) {
		return 0, nil
	}

	locals, err := s.local.LoadAlarms()
	if err != nil {
		return 0, fmt.Errorf("load local alarms: %w", err)
	}

	imported := 0
	remaining := make([]model.Alarm, 0, len(locals))
	for _, a := range locals {
		localID := a.ID
		created, err := s.remote.Create(ctx, a)
		if err != nil {
			s.logger.Printf("import local alarm %s: %v", localID, err)
			remaining = append(remaining, a)
			continue
		}
		imported++

		s.mu.Lock()
		if i := s.indexOf(localID); i >= 0 && s.alarms[i].OwnerID == "" {
			s.alarms[i] = created.Clone()
		} else {
			s.alarms = append([]model.Alarm{created.Clone()}, s.alarms...)
		}
		s.mu.Unlock()
	}

	if imported == 0 {
		return 0, nil
	}
	if err := s.local.SaveAlarms(remaining); err != nil {
		return imported, fmt.Errorf("save local alarms: %w", err)
	}
	return imported, nil
}

// Snapshot returns a copy of the collection.
func (s *Store) Snapshot() []model.Alarm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Alarm, len(s.alarms))
	for i, a := range s.alarms {
		out[i] = a.Clone()
	}
	return out
}

// MarkDisabled turns an alarm off in memory.
func (s *Store) MarkDisabled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.alarms[i].Enabled = false
	return true
}

// PersistDisabled writes a disabled flag set by MarkDisabled to the backend
// that owns the alarm.
func (s *Store) PersistDisabled(ctx context.Context, id string) error {
	current, ok := s.find(id)
	if !ok {
		return ErrNotFound
	}

	s.mu.RLock()
	owner := s.owner
	s.mu.RUnlock()

	if s.remoteFor(owner) && current.OwnerID != "" {
		disabled := false
		_, err := s.remote.Update(ctx, id, model.AlarmPatch{Enabled: &disabled})
		return err
	}
	return s.saveLocal()
}

func (s *Store) Owner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

func (s *Store) remoteFor(ownerID string) bool {
	return ownerID != "" && s.remote != nil
}

func (s *Store) addLocal(a model.Alarm) (model.Alarm, error) {
	s.mu.Lock()
	a.ID = s.nextLocalID()
	s.alarms = append([]model.Alarm{a.Clone()}, s.alarms...)
	s.mu.Unlock()
	return a, s.saveLocal()
}

// nextLocalID derives an id from the creation millisecond, bumped until it is
// unique in the collection. Callers hold s.mu.
func (s *Store) nextLocalID() string {
	candidate := s.clock.Now().UnixMilli()
	for {
		id := strconv.FormatInt(candidate, 10)
		if s.indexOf(id) < 0 {
			return id
		}
		candidate++
	}
}

func (s *Store) saveLocal() error {
	return s.PersistLocal(s.Snapshot())
}

func (s *Store) replace(ownerID string, alarms []model.Alarm) {
	copied := make([]model.Alarm, len(alarms))
	for i, a := range alarms {
		copied[i] = a.Clone()
	}
	s.mu.Lock()
	s.alarms = copied
	s.owner = ownerID
	s.mu.Unlock()
}

func (s *Store) find(id string) (model.Alarm, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.Alarm{}, false
	}
	return s.alarms[i].Clone(), true
}

func (s *Store) set(a model.Alarm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(a.ID); i >= 0 {
		s.alarms[i] = a.Clone()
	}
}

func (s *Store) drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.alarms = append(s.alarms[:i:i], s.alarms[i+1:]...)
	}
}

func (s *Store) indexOf(id string) int {
	for i := range s.alarms {
		if s.alarms[i].ID == id {
			return i
		}
	}
	return -1
}

// isRejection reports whether the remote answered and refused the request,
// as opposed to being unreachable.
func isRejection(err error) bool {
	apiErr, ok := apperrors.From(err)
	return ok && apiErr.Rejected()
}

