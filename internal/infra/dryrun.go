package infra

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

// DryRunActuator logs mode changes without touching the machine.
type DryRunActuator struct {
	mu      sync.Mutex
	current domain.Mode
	applied []domain.Mode
	logger  *zap.Logger
}

// NewDryRunActuator creates a dry-run actuator starting in initial.
func NewDryRunActuator(initial domain.Mode, logger *zap.Logger) *DryRunActuator {
	return &DryRunActuator{current: initial, logger: logger}
}

// Name identifies the mechanism.
func (a *DryRunActuator) Name() string { return "dryrun" }

// IsPrivileged always holds.
func (a *DryRunActuator) IsPrivileged() bool { return true }

// CurrentMode returns the last mode applied.
func (a *DryRunActuator) CurrentMode(ctx context.Context) (domain.Mode, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current, nil
}

// Apply records mode.
func (a *DryRunActuator) Apply(ctx context.Context, mode domain.Mode) error {
	a.mu.Lock()
	from := a.current
	a.current = mode
	a.applied = append(a.applied, mode)
	a.mu.Unlock()

	a.logger.Info("dry run: would change power mode",
		zap.String("from", from.String()),
		zap.String("to", mode.String()))
	return nil
}

// Applied returns every mode applied so far, in order.
func (a *DryRunActuator) Applied() []domain.Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.Mode, len(a.applied))
	copy(out, a.applied)
	return out
}

// Ensure DryRunActuator implements domain.Actuator.
var _ domain.Actuator = (*DryRunActuator)(nil)
