package policy

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

// Evidence is everything one tick observed.
type Evidence struct {
	Turbo     bool
	TurboApps []string
	Heavy     bool
	HeavyApps []string
	Idle      bool
}

// Decision is the resolved target mode and why it was chosen.
type Decision struct {
	Mode   domain.Mode
	Reason string
}

// Resolve maps evidence to a mode. First match wins:
//  1. turbo                  -> turbo
//  2. heavy and not idle     -> high_performance
//  3. idle                   -> power_saver
//  4. otherwise              -> balanced
func Resolve(e Evidence) Decision {
	switch {
	case e.Turbo:
		return Decision{Mode: domain.ModeTurbo, Reason: "Turbo mode → " + joinOrNone(e.TurboApps)}
	case e.Heavy && !e.Idle:
		return Decision{Mode: domain.ModeHighPerformance, Reason: "Heavy process active → " + joinOrNone(e.HeavyApps)}
	case e.Idle:
		return Decision{Mode: domain.ModePowerSaver, Reason: "System idle → power saver"}
	default:
		return Decision{Mode: domain.ModeBalanced, Reason: "Normal usage → balanced"}
	}
}

// Decider wraps Resolve with change detection. Each decision is recomputed
// from scratch; the state only suppresses redundant actuation and logging.
type Decider struct {
	state  domain.DecisionState
	logger *zap.Logger
}

// NewDecider creates a decider with nothing applied yet.
func NewDecider(logger *zap.Logger) *Decider {
	return &Decider{logger: logger}
}

// Decide resolves the evidence and logs the evaluation.
func (d *Decider) Decide(e Evidence) Decision {
	dec := Resolve(e)

	if e.Turbo != d.state.LastTurbo || e.Heavy != d.state.LastHeavy {
		d.logger.Info("evidence changed",
			zap.Bool("turbo", e.Turbo),
			zap.Bool("heavy", e.Heavy),
			zap.Bool("idle", e.Idle))
		d.state.LastTurbo = e.Turbo
		d.state.LastHeavy = e.Heavy
	}

	d.logger.Debug("mode evaluated",
		zap.String("mode", dec.Mode.String()),
		zap.String("reason", dec.Reason))
	return dec
}

// NeedsApply reports whether mode differs from the last applied mode.
func (d *Decider) NeedsApply(mode domain.Mode) bool {
	return mode != d.state.LastAppliedMode
}

// MarkApplied records a successful actuation.
func (d *Decider) MarkApplied(mode domain.Mode) {
	d.state.LastAppliedMode = mode
}

// LastApplied returns the last successfully applied mode.
func (d *Decider) LastApplied() domain.Mode {
	return d.state.LastAppliedMode
}

// State returns a copy of the decision state.
func (d *Decider) State() domain.DecisionState {
	return d.state
}

// Reset forgets everything applied so far.
func (d *Decider) Reset() {
	d.state = domain.DecisionState{}
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}

// String renders a decision for status output.
func (d Decision) String() string {
	return fmt.Sprintf("%s (%s)", d.Mode, d.Reason)
}
