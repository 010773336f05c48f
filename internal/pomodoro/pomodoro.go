// Package pomodoro is a countdown timer that cycles between focus sessions and
// breaks and credits finished sessions to a selected task.
package pomodoro

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"timesup/internal/clock"
	"timesup/internal/model"
)

// Presets in display order. The first three follow the settings.
var Presets = []string{
	model.PresetPomodoro,
	model.PresetShortBreak,
	model.PresetLongBreak,
	"1 min",
	"5 min",
	"10 min",
	"15 min",
}

var fixedPresets = map[string]int{
	"1 min":  60,
	"5 min":  5 * 60,
	"10 min": 10 * 60,
	"15 min": 15 * 60,
}

var (
	ErrUnknownPreset = errors.New("unknown timer preset")
	ErrBlankTask     = errors.New("task text is required")
	ErrTaskNotFound  = errors.New("task not found")
	ErrBadSettings   = errors.New("invalid pomodoro settings")
)

// Completion describes a countdown that reached zero.
type Completion struct {
	Preset   string
	TaskID   string
	Count    int
	Duration time.Duration
}

// Snapshot is the persisted part of the engine.
type Snapshot struct {
	Tasks             []model.PomodoroTask   `json:"tasks"`
	CompletedSessions map[string]int         `json:"completedSessions"`
	Settings          model.PomodoroSettings `json:"settings"`
	PomodoroCount     int                    `json:"pomodoroCount"`
	AutoPomodoro      bool                   `json:"autoPomodoro"`
}

type Option func(*Engine)

func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithCompletion registers fn to run synchronously inside Tick whenever a
// countdown finishes.
func WithCompletion(fn func(Completion)) Option {
	return func(e *Engine) {
		e.onComplete = fn
	}
}

// Engine is driven by one Tick per second. It is not safe for concurrent use.
type Engine struct {
	clock      clock.Clock
	onComplete func(Completion)

	settings  model.PomodoroSettings
	preset    string
	remaining int
	active    bool
	count     int
	auto      bool

	tasks    []model.PomodoroTask
	sessions map[string]int
	selected string
}

func New(settings model.PomodoroSettings, opts ...Option) *Engine {
	e := &Engine{
		clock:    clock.Real{},
		settings: settings,
		auto:     true,
		sessions: make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.load(model.PresetPomodoro)
	return e
}

// SetPreset stops the countdown and loads the preset's full duration.
func (e *Engine) SetPreset(preset string) error {
	if _, ok := e.presetSeconds(preset); !ok {
		return ErrUnknownPreset
	}
	e.load(preset)
	return nil
}

func (e *Engine) Toggle() {
	if e.remaining == 0 {
		e.load(e.preset)
	}
	e.active = !e.active
}

// Reset reloads the current preset without touching the sequence count.
func (e *Engine) Reset() {
	e.load(e.preset)
}

// ResetSequence zeroes the pomodoro count and returns to a focus session.
func (e *Engine) ResetSequence() {
	e.count = 0
	e.load(model.PresetPomodoro)
}

// Tick advances the countdown by one second.
func (e *Engine) Tick() (Completion, bool) {
	if !e.active || e.remaining <= 0 {
		return Completion{}, false
	}
	e.remaining--
	if e.remaining > 0 {
		return Completion{}, false
	}
	return e.complete(), true
}

func (e *Engine) complete() Completion {
	e.active = false
	finished := e.preset
	total, _ := e.presetSeconds(finished)
	done := Completion{Preset: finished, Duration: time.Duration(total) * time.Second}

	switch finished {
	case model.PresetPomodoro:
		if e.selected != "" {
			e.sessions[e.selected]++
			done.TaskID = e.selected
		}
		e.count++
		if e.auto {
			next := model.PresetShortBreak
			if e.settings.LongBreakInterval > 0 && e.count%e.settings.LongBreakInterval == 0 {
				next = model.PresetLongBreak
			}
			e.load(next)
			e.active = e.settings.AutoStartBreaks
		}
	case model.PresetShortBreak, model.PresetLongBreak:
		if e.auto {
			e.load(model.PresetPomodoro)
			e.active = e.settings.AutoStartPomodoros
		}
	}
	done.Count = e.count

	if e.onComplete != nil {
		e.onComplete(done)
	}
	return done
}

func (e *Engine) Preset() string          { return e.preset }
func (e *Engine) Active() bool            { return e.active }
func (e *Engine) Count() int              { return e.count }
func (e *Engine) AutoPomodoro() bool      { return e.auto }
func (e *Engine) SetAutoPomodoro(on bool) { e.auto = on }

func (e *Engine) Settings() model.PomodoroSettings {
	return e.settings
}

func (e *Engine) Remaining() time.Duration {
	return time.Duration(e.remaining) * time.Second
}

// Progress is the fraction of the current countdown still left, in [0, 1].
func (e *Engine) Progress() float64 {
	total, ok := e.presetSeconds(e.preset)
	if !ok || total <= 0 {
		return 0
	}
	return float64(e.remaining) / float64(total)
}

// UpdateSettings applies new durations. An idle countdown on a
// settings-driven preset is reloaded with the new length.
func (e *Engine) UpdateSettings(s model.PomodoroSettings) error {
	if s.WorkMinutes <= 0 || s.ShortBreakMinutes <= 0 || s.LongBreakMinutes <= 0 || s.LongBreakInterval <= 0 {
		return ErrBadSettings
	}
	e.settings = s
	if _, fixed := fixedPresets[e.preset]; !fixed && !e.active {
		e.load(e.preset)
	}
	return nil
}

func (e *Engine) AddTask(text string) (model.PomodoroTask, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.PomodoroTask{}, ErrBlankTask
	}
	now := e.clock.Now()
	task := model.PomodoroTask{
		ID:        e.nextTaskID(now),
		Text:      text,
		CreatedAt: now.UTC(),
	}
	e.tasks = append(e.tasks, task)
	return task, nil
}

func (e *Engine) ToggleTask(id string) error {
	i := e.taskIndex(id)
	if i < 0 {
		return ErrTaskNotFound
	}
	e.tasks[i].Completed = !e.tasks[i].Completed
	return nil
}

// DeleteTask removes the task with its session count and clears the
// selection if it pointed at it.
func (e *Engine) DeleteTask(id string) error {
	i := e.taskIndex(id)
	if i < 0 {
		return ErrTaskNotFound
	}
	e.tasks = append(e.tasks[:i], e.tasks[i+1:]...)
	delete(e.sessions, id)
	if e.selected == id {
		e.selected = ""
	}
	return nil
}

// SelectTask selects id, or clears the selection when id is already selected.
func (e *Engine) SelectTask(id string) error {
	if e.selected == id {
		e.selected = ""
		return nil
	}
	if e.taskIndex(id) < 0 {
		return ErrTaskNotFound
	}
	e.selected = id
	return nil
}

func (e *Engine) Selected() string {
	return e.selected
}

// Tasks returns the task list with CompletedSessions filled in.
func (e *Engine) Tasks() []model.PomodoroTask {
	out := make([]model.PomodoroTask, len(e.tasks))
	for i, t := range e.tasks {
		t.CompletedSessions = e.sessions[t.ID]
		out[i] = t
	}
	return out
}

func (e *Engine) Sessions(id string) int {
	return e.sessions[id]
}

func (e *Engine) Snapshot() Snapshot {
	sessions := make(map[string]int, len(e.sessions))
	for id, n := range e.sessions {
		sessions[id] = n
	}
	tasks := append([]model.PomodoroTask(nil), e.tasks...)
	for i := range tasks {
		tasks[i].CompletedSessions = 0
	}
	return Snapshot{
		Tasks:             tasks,
		CompletedSessions: sessions,
		Settings:          e.settings,
		PomodoroCount:     e.count,
		AutoPomodoro:      e.auto,
	}
}

// Restore replaces the persisted state and stops the countdown. Invalid
// settings in s are ignored.
func (e *Engine) Restore(s Snapshot) {
	e.tasks = append([]model.PomodoroTask(nil), s.Tasks...)
	e.sessions = make(map[string]int, len(s.CompletedSessions))
	for id, n := range s.CompletedSessions {
		e.sessions[id] = n
	}
	e.count = s.PomodoroCount
	e.auto = s.AutoPomodoro
	e.selected = ""
	if err := e.UpdateSettings(s.Settings); err != nil {
		e.load(e.preset)
	}
	e.active = false
}

func (e *Engine) load(preset string) {
	seconds, ok := e.presetSeconds(preset)
	if !ok {
		preset = model.PresetPomodoro
		seconds, _ = e.presetSeconds(preset)
	}
	e.preset = preset
	e.remaining = seconds
	e.active = false
}

func (e *Engine) presetSeconds(preset string) (int, bool) {
	switch preset {
	case model.PresetPomodoro:
		return e.settings.WorkMinutes * 60, true
	case model.PresetShortBreak:
		return e.settings.ShortBreakMinutes * 60, true
	case model.PresetLongBreak:
		return e.settings.LongBreakMinutes * 60, true
	}
	seconds, ok := fixedPresets[preset]
	return seconds, ok
}

func (e *Engine) taskIndex(id string) int {
	for i, t := range e.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) nextTaskID(now time.Time) string {
	id := now.UnixMilli()
	for e.taskIndex(strconv.FormatInt(id, 10)) >= 0 {
		id++
	}
	return strconv.FormatInt(id, 10)
}
