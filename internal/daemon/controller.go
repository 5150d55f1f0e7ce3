// Package daemon implements the power-mode control loop.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
	"github.com/eliteGoblin/focusd/power_mon/internal/policy"
)

var (
	// ErrAlreadyRunning is returned by Run when the loop is not stopped.
	ErrAlreadyRunning = errors.New("control loop already running")

	// ErrPrivilegeLost is returned by Run when the actuator can no longer switch modes.
	ErrPrivilegeLost = errors.New("privileges required to change power mode were lost")
)

// restoreTimeout bounds the final actuation on shutdown.
const restoreTimeout = 10 * time.Second

// State is the control loop lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// ActivityMonitor reports user idleness.
type ActivityMonitor interface {
	Start() error
	Stop()
	IsIdle() bool
	IdleDuration() time.Duration
}

// ProcessClassifier reports heavy and turbo process activity.
type ProcessClassifier interface {
	IsHeavyProcessRunning() bool
	HeavyRunningNames() []string
	CheckTurboCondition() (bool, []string)
}

// ControllerConfig holds control loop configuration.
type ControllerConfig struct {
	Interval      time.Duration // Tick interval (default 10s)
	IdleThreshold time.Duration // For the start banner only; the tracker owns the threshold
	AppVersion    string
}

// DefaultControllerConfig returns default controller configuration.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Interval:      10 * time.Second,
		IdleThreshold: 300 * time.Second,
	}
}

// Controller ticks the activity tracker and process classifier, resolves a
// target mode and applies changes through the actuator. Recorder, status
// writer and session store are optional.
type Controller struct {
	config     ControllerConfig
	tracker    ActivityMonitor
	classifier ProcessClassifier
	decider    *policy.Decider
	actuator   domain.Actuator
	recorder   domain.ActivityRecorder
	status     domain.StatusWriter
	sessions   domain.SessionStore
	logger     *zap.Logger

	state atomic.Int32

	mu       sync.Mutex
	stop     chan struct{}
	stopped  bool
	session  domain.Session
	last     domain.StatusRecord
	hasTicks bool

	now   func() time.Time
	newID func() string
}

// NewController creates a control loop.
func NewController(
	config ControllerConfig,
	tracker ActivityMonitor,
	classifier ProcessClassifier,
	decider *policy.Decider,
	actuator domain.Actuator,
	recorder domain.ActivityRecorder,
	status domain.StatusWriter,
	sessions domain.SessionStore,
	logger *zap.Logger,
) *Controller {
	return NewControllerWithClock(config, tracker, classifier, decider, actuator, recorder, status, sessions, logger, time.Now)
}

// NewControllerWithClock creates a control loop with a custom clock (for testing).
func NewControllerWithClock(
	config ControllerConfig,
	tracker ActivityMonitor,
	classifier ProcessClassifier,
	decider *policy.Decider,
	actuator domain.Actuator,
	recorder domain.ActivityRecorder,
	status domain.StatusWriter,
	sessions domain.SessionStore,
	logger *zap.Logger,
	now func() time.Time,
) *Controller {
	if config.Interval <= 0 {
		config.Interval = DefaultControllerConfig().Interval
	}
	return &Controller{
		config:     config,
		tracker:    tracker,
		classifier: classifier,
		decider:    decider,
		actuator:   actuator,
		recorder:   recorder,
		status:     status,
		sessions:   sessions,
		logger:     logger,
		now:        now,
		newID:      uuid.NewString,
	}
}

// State returns the lifecycle state. Safe for concurrent use.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Session returns the current (or last) session.
func (c *Controller) Session() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// LastStatus returns the most recent tick outcome, if any tick ran.
func (c *Controller) LastStatus() (domain.StatusRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.hasTicks
}

// Stop asks a running loop to shut down. It does not wait.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil && !c.stopped {
		close(c.stop)
		c.stopped = true
	}
}

// Run starts the control loop and blocks until the context is canceled,
// Stop is called or privileges are lost. The prior mode is restored on exit.
// A graceful stop returns nil.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if !c.state.CompareAndSwap(int32(StateStopped), int32(StateRunning)) {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.stop = make(chan struct{})
	c.stopped = false
	stop := c.stop
	c.mu.Unlock()

	current, prior, crashed := c.capturePriorMode(ctx)

	if err := c.tracker.Start(); err != nil {
		c.state.Store(int32(StateStopped))
		c.logger.Error("failed to start activity tracking", zap.Error(err))
		return fmt.Errorf("failed to start activity tracking: %w", err)
	}

	c.seedDecider(current)
	session := domain.Session{
		ID:         c.newID(),
		PID:        os.Getpid(),
		StartedAt:  c.now(),
		PriorMode:  prior,
		AppVersion: c.config.AppVersion,
	}
	c.mu.Lock()
	c.session = session
	c.hasTicks = false
	c.mu.Unlock()

	if c.sessions != nil {
		if err := c.sessions.BeginSession(session); err != nil {
			c.logger.Warn("failed to record session", zap.Error(err))
		}
		// The new session now carries the inherited prior mode.
		if crashed != "" {
			if err := c.sessions.EndSession(crashed, session.StartedAt); err != nil {
				c.logger.Warn("failed to close previous session", zap.Error(err))
			}
		}
	}
	if c.recorder != nil {
		if err := c.recorder.Start(session, c.config.Interval, c.config.IdleThreshold); err != nil {
			c.logger.Warn("failed to write activity log banner", zap.Error(err))
		}
	}

	c.logger.Info("power monitor started",
		zap.String("session", session.ID),
		zap.String("actuator", c.actuator.Name()),
		zap.String("current_mode", current.String()),
		zap.String("prior_mode", prior.String()),
		zap.Duration("interval", c.config.Interval))

	runErr := c.loop(ctx, stop)
	c.shutdown(session)
	return runErr
}

// seedDecider forgets earlier decisions and treats the mode found on the
// machine as already applied, so a matching first decision is not actuated.
func (c *Controller) seedDecider(current domain.Mode) {
	c.decider.Reset()
	if current != domain.ModeNone {
		c.decider.MarkApplied(current)
	}
}

// capturePriorMode reads the current mode and the mode to restore on exit.
// A session that never stopped cleanly left the machine in our mode, so its
// prior mode wins; its id is returned so the caller can close it once the
// new session is recorded. Nothing is written here.
func (c *Controller) capturePriorMode(ctx context.Context) (current, prior domain.Mode, crashedID string) {
	current, err := c.actuator.CurrentMode(ctx)
	if err != nil {
		c.logger.Warn("failed to read current power mode", zap.Error(err))
		current = domain.ModeNone
	}
	prior = current

	if c.sessions == nil {
		return current, prior, ""
	}
	crashed, err := c.sessions.LastUnfinished()
	if err != nil {
		c.logger.Warn("failed to read previous sessions", zap.Error(err))
		return current, prior, ""
	}
	if crashed == nil {
		return current, prior, ""
	}

	if crashed.PriorMode != domain.ModeNone {
		c.logger.Warn("previous session did not shut down cleanly, inheriting its prior mode",
			zap.String("session", crashed.ID),
			zap.String("prior_mode", crashed.PriorMode.String()),
			zap.String("current_mode", current.String()))
		prior = crashed.PriorMode
	}
	return current, prior, crashed.ID
}

func (c *Controller) loop(ctx context.Context, stop <-chan struct{}) error {
	if err := c.tick(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(c.config.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("power monitor stopping", zap.String("reason", "context canceled"))
			return nil

		case <-stop:
			c.logger.Info("power monitor stopping", zap.String("reason", "stop requested"))
			return nil

		case <-timer.C:
			if err := c.tick(ctx); err != nil {
				return err
			}
			timer.Reset(c.config.Interval)
		}
	}
}

// tick runs one evaluation. It only returns an error when privileges are lost.
func (c *Controller) tick(ctx context.Context) error {
	idle := c.tracker.IsIdle()
	idleFor := c.tracker.IdleDuration()
	turbo, turboApps := c.classifier.CheckTurboCondition()
	heavy := c.classifier.IsHeavyProcessRunning()

	var heavyApps []string
	if heavy {
		heavyApps = c.classifier.HeavyRunningNames()
	}

	decision := c.decider.Decide(policy.Evidence{
		Turbo:     turbo,
		TurboApps: turboApps,
		Heavy:     heavy,
		HeavyApps: heavyApps,
		Idle:      idle,
	})

	var fatal error
	applied := false
	if c.decider.NeedsApply(decision.Mode) {
		err := c.actuator.Apply(ctx, decision.Mode)
		switch {
		case err == nil:
			c.decider.MarkApplied(decision.Mode)
			applied = true
			c.logger.Info("power mode applied",
				zap.String("mode", decision.Mode.String()),
				zap.String("reason", decision.Reason))
			if c.sessions != nil {
				if err := c.sessions.UpdateLastMode(c.Session().ID, decision.Mode); err != nil {
					c.logger.Warn("failed to record applied mode", zap.Error(err))
				}
			}

		case errors.Is(err, domain.ErrPrivilegeRequired) || !c.actuator.IsPrivileged():
			c.logger.Error("cannot change power mode without elevated privileges; restart powermon as administrator/root",
				zap.String("mode", decision.Mode.String()),
				zap.String("actuator", c.actuator.Name()),
				zap.Error(err))
			fatal = ErrPrivilegeLost

		default:
			// MarkApplied is skipped, so the next tick retries.
			c.logger.Error("failed to apply power mode",
				zap.String("mode", decision.Mode.String()),
				zap.Error(err))
		}
	}

	session := c.Session()
	rec := domain.StatusRecord{
		At:        c.now(),
		Turbo:     turbo,
		TurboApps: turboApps,
		Heavy:     heavy,
		HeavyApps: heavyApps,
		Idle:      idle,
		IdleFor:   idleFor,
		Runtime:   c.now().Sub(session.StartedAt),
		Mode:      decision.Mode,
		Applied:   applied,
		Reason:    decision.Reason,
	}
	c.record(session, rec)
	return fatal
}

func (c *Controller) record(session domain.Session, rec domain.StatusRecord) {
	c.mu.Lock()
	c.last = rec
	c.hasTicks = true
	c.mu.Unlock()

	if c.recorder != nil {
		if err := c.recorder.Record(rec); err != nil {
			c.logger.Warn("failed to write activity log", zap.Error(err))
		}
	}
	if c.status != nil {
		if err := c.status.WriteStatus(session, rec); err != nil {
			c.logger.Warn("failed to write status file", zap.Error(err))
		}
	}
}

// shutdown stops tracking, restores the prior mode and closes the session.
func (c *Controller) shutdown(session domain.Session) {
	c.state.Store(int32(StateStopping))

	c.tracker.Stop()
	c.restore(session.PriorMode)

	at := c.now()
	if c.recorder != nil {
		if err := c.recorder.Stop(at); err != nil {
			c.logger.Warn("failed to write activity log banner", zap.Error(err))
		}
	}
	if c.sessions != nil {
		if err := c.sessions.EndSession(session.ID, at); err != nil {
			c.logger.Warn("failed to close session", zap.Error(err))
		}
	}

	c.logger.Info("power monitor stopped",
		zap.String("session", session.ID),
		zap.Duration("runtime", at.Sub(session.StartedAt)))
	c.state.Store(int32(StateStopped))
}

// restore applies the prior mode, or balanced when none was captured.
func (c *Controller) restore(prior domain.Mode) {
	target := prior
	if target == domain.ModeNone {
		target = domain.ModeBalanced
	}

	if !c.actuator.IsPrivileged() {
		c.logger.Warn("skipping power mode restore without privileges", zap.String("mode", target.String()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()

	if err := c.actuator.Apply(ctx, target); err != nil {
		c.logger.Error("failed to restore power mode", zap.String("mode", target.String()), zap.Error(err))
		return
	}
	c.decider.MarkApplied(target)
	c.logger.Info("power mode restored", zap.String("mode", target.String()))
}
