// Package stopwatch implements a start/pause/reset stopwatch that records a
// lap every time it is reset with time on the clock.
package stopwatch

import (
	"fmt"
	"time"

	"timesup/internal/clock"
)

// Lap is an immutable elapsed-time record.
type Lap struct {
	ID      int64         `json:"id"`
	Elapsed time.Duration `json:"elapsed"`
}

func (l Lap) ElapsedMillis() int64 {
	return l.Elapsed.Milliseconds()
}

func (l Lap) Display() string {
	return Format(l.Elapsed)
}

// Engine is not safe for concurrent use; the UI loop owns it.
type Engine struct {
	clock   clock.Clock
	running bool
	started time.Time
	// accumulated holds elapsed time from previous runs.
	accumulated time.Duration
	laps        []Lap
}

func New(c clock.Clock) *Engine {
	if c == nil {
		c = clock.Real{}
	}
	return &Engine{clock: c}
}

func (e *Engine) Start() {
	if e.running {
		return
	}
	e.running = true
	e.started = e.clock.Now()
}

func (e *Engine) Pause() {
	if !e.running {
		return
	}
	e.accumulated = e.Elapsed()
	e.running = false
}

// Reset stops the stopwatch and zeroes it. Non-zero elapsed time is kept as
// the newest lap, which is returned.
func (e *Engine) Reset() (Lap, bool) {
	elapsed := e.Elapsed()
	e.running = false
	e.accumulated = 0
	if elapsed <= 0 {
		return Lap{}, false
	}

	lap := Lap{ID: e.nextLapID(), Elapsed: elapsed}
	e.laps = append([]Lap{lap}, e.laps...)
	return lap, true
}

func (e *Engine) Elapsed() time.Duration {
	if !e.running {
		return e.accumulated
	}
	d := e.accumulated + e.clock.Now().Sub(e.started)
	if d < 0 {
		return e.accumulated
	}
	return d
}

func (e *Engine) Running() bool {
	return e.running
}

// Laps returns the recorded laps, newest first.
func (e *Engine) Laps() []Lap {
	return append([]Lap(nil), e.laps...)
}

func (e *Engine) DeleteLap(id int64) bool {
	for i, lap := range e.laps {
		if lap.ID == id {
			e.laps = append(e.laps[:i], e.laps[i+1:]...)
			return true
		}
	}
	return false
}

func (e *Engine) ClearLaps() {
	e.laps = nil
}

// RestoreLaps replaces the lap list, e.g. from local storage.
func (e *Engine) RestoreLaps(laps []Lap) {
	e.laps = append([]Lap(nil), laps...)
}

func (e *Engine) nextLapID() int64 {
	id := e.clock.Now().UnixMilli()
	for _, lap := range e.laps {
		if lap.ID >= id {
			id = lap.ID + 1
		}
	}
	return id
}

// Format renders d as HH:MM:SS.cc (hundredths).
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d.%02d",
		ms/3_600_000,
		ms%3_600_000/60_000,
		ms%60_000/1000,
		ms%1000/10,
	)
}
