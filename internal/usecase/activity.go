// Package usecase contains application business logic.
package usecase

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

const (
	// ActivityDebounce bounds how often the activity timestamp advances.
	ActivityDebounce = time.Second

	// PointerMoveThreshold is the Euclidean displacement a pointer must
	// travel before a move counts as activity.
	PointerMoveThreshold = 5.0

	eventBufferSize = 256
)

type point struct{ x, y float64 }

// Tracker converts raw input events into a last-activity timestamp and an
// idle/active state. Input sources push events onto a bounded channel that a
// single consumer goroutine drains; all activity state sits behind mu.
type Tracker struct {
	mu          sync.Mutex
	state       domain.ActivityState
	lastIdle    bool
	lastPointer *point

	lifecycle sync.Mutex // serializes Start/Stop
	sources   []domain.InputSource
	active    []domain.InputSource
	done      chan struct{}
	wg        sync.WaitGroup

	now    func() time.Time
	logger *zap.Logger
}

// NewTracker creates an activity tracker over the given input sources.
func NewTracker(idleThreshold time.Duration, sources []domain.InputSource, logger *zap.Logger) *Tracker {
	return NewTrackerWithClock(idleThreshold, sources, logger, time.Now)
}

// NewTrackerWithClock creates a tracker with a custom clock (for testing).
func NewTrackerWithClock(idleThreshold time.Duration, sources []domain.InputSource, logger *zap.Logger, now func() time.Time) *Tracker {
	t := &Tracker{
		sources: sources,
		now:     now,
		logger:  logger,
	}
	t.state.IdleThreshold = idleThreshold
	t.reset()

	logger.Info("activity tracker initialized",
		zap.Duration("idle_threshold", idleThreshold),
		zap.Int("sources", len(sources)))
	return t
}

// reset marks the user as freshly active.
func (t *Tracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.state.LastActivityAt = now
	t.state.LastUpdateAt = now
	t.lastPointer = nil
}

// RecordActivity advances the activity timestamp, at most once per
// ActivityDebounce. Calls inside the debounce window are no-ops.
func (t *Tracker) RecordActivity(source string) {
	t.mu.Lock()
	now := t.now()
	if now.Sub(t.state.LastUpdateAt) < ActivityDebounce {
		t.mu.Unlock()
		return
	}
	t.state.LastActivityAt = now
	t.state.LastUpdateAt = now
	t.mu.Unlock()

	t.logger.Debug("activity detected", zap.String("source", source))
}

// IdleDuration returns the time since the last recorded activity.
func (t *Tracker) IdleDuration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idleLocked()
}

func (t *Tracker) idleLocked() time.Duration {
	d := t.now().Sub(t.state.LastActivityAt)
	if d < 0 {
		return 0
	}
	return d
}

// IsIdle reports whether the idle duration exceeds the threshold.
// Exactly at the threshold is not idle. Transitions are logged once.
func (t *Tracker) IsIdle() bool {
	t.mu.Lock()
	idleFor := t.idleLocked()
	idle := t.state.IdleAt(t.now())
	changed := idle != t.lastIdle
	t.lastIdle = idle
	t.mu.Unlock()

	if changed {
		if idle {
			t.logger.Info("user became idle",
				zap.Duration("idle_for", idleFor),
				zap.Duration("threshold", t.state.IdleThreshold))
		} else {
			t.logger.Info("user became active", zap.Duration("idle_for", idleFor))
		}
	}
	return idle
}

// State returns a copy of the activity state.
func (t *Tracker) State() domain.ActivityState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// handleEvent applies the per-kind activity rules to one input event.
func (t *Tracker) handleEvent(ev domain.InputEvent) {
	switch ev.Kind {
	case domain.InputPointerMove:
		if !t.pointerMoved(ev.X, ev.Y) {
			return
		}
	case domain.InputPointerButton, domain.InputKey:
		if !ev.Pressed {
			return
		}
	case domain.InputScroll, domain.InputGeneric:
	default:
		return
	}
	t.RecordActivity(ev.Kind.String())
}

// pointerMoved reports whether (x, y) is far enough from the last counted
// position, and if so makes it the new reference point.
func (t *Tracker) pointerMoved(x, y float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lastPointer != nil {
		if math.Hypot(x-t.lastPointer.x, y-t.lastPointer.y) <= PointerMoveThreshold {
			return false
		}
	}
	t.lastPointer = &point{x: x, y: y}
	return true
}

// Start installs all input sources. Calling Start while running first tears
// down the existing sources. If any source fails, the ones already started
// are stopped again and the error is returned.
func (t *Tracker) Start() error {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	t.stopLocked()
	t.reset()

	t.logger.Info("starting input activity monitoring")

	events := make(chan domain.InputEvent, eventBufferSize)
	started := make([]domain.InputSource, 0, len(t.sources))
	for _, src := range t.sources {
		if err := src.Start(events); err != nil {
			for _, s := range started {
				if stopErr := s.Stop(); stopErr != nil {
					t.logger.Warn("failed to tear down input source",
						zap.String("source", s.Name()),
						zap.Error(stopErr))
				}
			}
			t.logger.Error("failed to start input source",
				zap.String("source", src.Name()),
				zap.Error(err))
			return fmt.Errorf("failed to start input source %s: %w", src.Name(), err)
		}
		t.logger.Debug("input source started", zap.String("source", src.Name()))
		started = append(started, src)
	}

	t.active = started
	t.done = make(chan struct{})
	t.wg.Add(1)
	go t.consume(events, t.done)

	t.logger.Info("input activity monitoring active", zap.Int("sources", len(started)))
	return nil
}

// consume drains the event channel until done is closed.
// The channel itself is never closed; sources may still hold it.
func (t *Tracker) consume(events <-chan domain.InputEvent, done <-chan struct{}) {
	defer t.wg.Done()
	for {
		select {
		case <-done:
			return
		case ev := <-events:
			t.handleEvent(ev)
		}
	}
}

// Stop removes all input sources and resets activity to now, so a later
// restart does not report a long idle period.
func (t *Tracker) Stop() {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	t.stopLocked()
	t.reset()
}

func (t *Tracker) stopLocked() {
	if t.done == nil {
		return
	}

	t.logger.Info("stopping input activity monitoring")
	for _, s := range t.active {
		if err := s.Stop(); err != nil {
			t.logger.Warn("failed to stop input source",
				zap.String("source", s.Name()),
				zap.Error(err))
		}
	}
	close(t.done)
	t.wg.Wait()

	t.active = nil
	t.done = nil
}

// Running reports whether input sources are installed.
func (t *Tracker) Running() bool {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()
	return t.done != nil
}
