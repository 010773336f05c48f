package alarm

import (
	"context"
	"log"
	"sync"
	"time"

	"timesup/internal/clock"
	"timesup/internal/model"
)

// Collection is the ticker's view of the alarm store.
type Collection interface {
	// Snapshot returns a copy of the alarms in collection order.
	Snapshot() []model.Alarm
	// MarkDisabled turns the alarm off in memory only.
	MarkDisabled(id string) bool
	// PersistDisabled writes the disabled flag to the backing storage.
	PersistDisabled(ctx context.Context, id string) error
}

// FireFunc is called once for every alarm that rings.
type FireFunc func(model.Alarm)

type Option func(*Ticker)

func WithLogger(logger *log.Logger) Option {
	return func(t *Ticker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(t *Ticker) {
		if interval > 0 {
			t.interval = interval
		}
	}
}

// WithRetry sets how many times a failed disable is written and the linear
// backoff step between attempts.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(t *Ticker) {
		if attempts > 0 {
			t.attempts = attempts
		}
		t.backoff = backoff
	}
}

// Ticker checks the collection once per second and rings due alarms.
type Ticker struct {
	collection Collection
	fire       FireFunc
	logger     *log.Logger
	interval   time.Duration
	attempts   int
	backoff    time.Duration
	task       *clock.Task

	mu       sync.Mutex
	ctx      context.Context
	lastTick time.Time
	fired    map[string]time.Time

	persisting sync.WaitGroup
}

func NewTicker(collection Collection, fire FireFunc, opts ...Option) *Ticker {
	t := &Ticker{
		collection: collection,
		fire:       fire,
		logger:     log.Default(),
		interval:   time.Second,
		attempts:   3,
		backoff:    500 * time.Millisecond,
		ctx:        context.Background(),
		fired:      make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.task = clock.NewTask(t.interval, func(now time.Time) {
		t.Tick(now)
	})
	return t
}

// Start begins ticking. ctx bounds both the loop and background persistence.
func (t *Ticker) Start(ctx context.Context) error {
	t.mu.Lock()
	t.ctx = ctx
	t.mu.Unlock()
	return t.task.Start(ctx)
}

// Stop halts ticking and waits for pending disable writes. No fire callback
// runs after Stop returns.
func (t *Ticker) Stop() {
	t.task.Stop()
	t.persisting.Wait()
}

func (t *Ticker) Running() bool {
	return t.task.Running()
}

// Tick runs one evaluation cycle and returns the alarms it fired.
func (t *Ticker) Tick(now time.Time) []model.Alarm {
	boundary, ok := t.crossedBoundary(now)
	if !ok {
		return nil
	}

	var fired []model.Alarm
	for _, a := range t.collection.Snapshot() {
		if !IsDueNow(a, boundary) || !t.claim(a.ID, boundary) {
			continue
		}
		t.fire(a)
		t.collection.MarkDisabled(a.ID)
		t.persistDisabled(a.ID)
		fired = append(fired, a)
	}
	return fired
}

// Next returns the enabled alarm that rings soonest after now.
func (t *Ticker) Next(now time.Time) (model.Alarm, time.Time, bool) {
	var (
		best   model.Alarm
		bestAt time.Time
		found  bool
	)
	for _, a := range t.collection.Snapshot() {
		if !a.Enabled {
			continue
		}
		at, err := NextFireInstant(a, now)
		if err != nil {
			t.logger.Printf("alarm %s skipped: %v", a.ID, err)
			continue
		}
		if !found || at.Before(bestAt) {
			best, bestAt, found = a, at, true
		}
	}
	return best, bestAt, found
}

// crossedBoundary returns the zero second of now's minute when the previous
// tick happened before it. A late tick still rings the minute it slipped past.
func (t *Ticker) crossedBoundary(now time.Time) (time.Time, bool) {
	boundary := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), 0, 0, now.Location())

	t.mu.Lock()
	last := t.lastTick
	t.lastTick = now
	t.mu.Unlock()

	if last.IsZero() || now.Sub(last) > time.Minute || !now.After(last) {
		last = now.Add(-time.Second)
	}
	return boundary, boundary.After(last) && !boundary.After(now)
}

// claim records that id fired at boundary. It fails when the alarm already
// fired for that minute, which guards against a stale reload re-enabling it.
func (t *Ticker) claim(id string, boundary time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, at := range t.fired {
		if at.Before(boundary) {
			delete(t.fired, key)
		}
	}
	if at, ok := t.fired[id]; ok && at.Equal(boundary) {
		return false
	}
	t.fired[id] = boundary
	return true
}

func (t *Ticker) persistDisabled(id string) {
	t.mu.Lock()
	ctx := t.ctx
	t.mu.Unlock()

	t.persisting.Add(1)
	go func() {
		defer t.persisting.Done()
		for attempt := 1; attempt <= t.attempts; attempt++ {
			err := t.collection.PersistDisabled(ctx, id)
			if err == nil {
				return
			}
			t.logger.Printf("disable alarm %s (attempt %d/%d): %v", id, attempt, t.attempts, err)
			if attempt == t.attempts {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(t.backoff * time.Duration(attempt)):
			}
		}
	}()
}
