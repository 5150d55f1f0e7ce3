package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

const (
	powercfgBinary = "powercfg"

	// DefaultSettleDelay is how long to wait before verifying a plan switch.
	DefaultSettleDelay = 500 * time.Millisecond
)

// ErrVerifyFailed is returned when the active plan does not match after a switch.
var ErrVerifyFailed = errors.New("power plan change not verified")

// PowerPlans maps modes to Windows power scheme GUIDs.
type PowerPlans struct {
	HighPerformance string
	Balanced        string
	PowerSaver      string
	Turbo           string // Optional; falls back to HighPerformance
}

// GUID returns the scheme GUID for mode.
func (p PowerPlans) GUID(mode domain.Mode) string {
	switch mode {
	case domain.ModeHighPerformance:
		return p.HighPerformance
	case domain.ModeBalanced:
		return p.Balanced
	case domain.ModePowerSaver:
		return p.PowerSaver
	case domain.ModeTurbo:
		if p.Turbo != "" {
			return p.Turbo
		}
		return p.HighPerformance
	default:
		return ""
	}
}

// ModeFor maps a scheme GUID back to a mode. ModeNone for unknown schemes.
func (p PowerPlans) ModeFor(guid string) domain.Mode {
	switch {
	case guid == "":
		return domain.ModeNone
	case strings.EqualFold(guid, p.HighPerformance):
		return domain.ModeHighPerformance
	case strings.EqualFold(guid, p.Balanced):
		return domain.ModeBalanced
	case strings.EqualFold(guid, p.PowerSaver):
		return domain.ModePowerSaver
	case p.Turbo != "" && strings.EqualFold(guid, p.Turbo):
		return domain.ModeTurbo
	default:
		return domain.ModeNone
	}
}

// IsPlaceholderGUID reports whether guid was left as a configuration placeholder.
func IsPlaceholderGUID(guid string) bool {
	return strings.Contains(strings.ToLower(guid), "placeholder")
}

// ParseActiveScheme extracts GUID and plan name from `powercfg /getactivescheme`
// output, e.g. "Power Scheme GUID: 381b4222-...  (Balanced)".
func ParseActiveScheme(output string) (guid, name string, err error) {
	idx := strings.Index(output, "GUID:")
	if idx < 0 {
		return "", "", fmt.Errorf("no scheme GUID in powercfg output: %q", strings.TrimSpace(output))
	}
	rest := strings.TrimSpace(output[idx+len("GUID:"):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", "", fmt.Errorf("empty scheme GUID in powercfg output")
	}
	guid = fields[0]

	if open := strings.Index(rest, "("); open >= 0 {
		if end := strings.Index(rest[open:], ")"); end > 0 {
			name = strings.TrimSpace(rest[open+1 : open+end])
		}
	}
	return guid, name, nil
}

// PowercfgActuator switches Windows power plans with powercfg.
type PowercfgActuator struct {
	plans      PowerPlans
	runner     CommandRunner
	privileged func() bool
	settle     time.Duration
	logger     *zap.Logger
}

// NewPowercfgActuator creates a powercfg actuator using the real command runner.
func NewPowercfgActuator(plans PowerPlans, logger *zap.Logger) *PowercfgActuator {
	return NewPowercfgActuatorWithRunner(plans, &RealCommandRunner{}, IsElevated, DefaultSettleDelay, logger)
}

// NewPowercfgActuatorWithRunner creates a powercfg actuator with injected
// dependencies (for testing).
func NewPowercfgActuatorWithRunner(
	plans PowerPlans,
	runner CommandRunner,
	privileged func() bool,
	settle time.Duration,
	logger *zap.Logger,
) *PowercfgActuator {
	for _, m := range domain.AllModes {
		if guid := plans.GUID(m); guid == "" || IsPlaceholderGUID(guid) {
			logger.Warn("power plan GUID not configured", zap.String("mode", m.String()), zap.String("guid", guid))
		}
	}
	return &PowercfgActuator{
		plans:      plans,
		runner:     runner,
		privileged: privileged,
		settle:     settle,
		logger:     logger,
	}
}

// Name identifies the mechanism.
func (a *PowercfgActuator) Name() string { return powercfgBinary }

// IsPrivileged reports whether the process still runs elevated.
func (a *PowercfgActuator) IsPrivileged() bool { return a.privileged() }

func (a *PowercfgActuator) activeScheme(ctx context.Context) (string, string, error) {
	out, err := a.runner.Output(ctx, powercfgBinary, "/getactivescheme")
	if err != nil {
		return "", "", fmt.Errorf("failed to query active scheme: %w", err)
	}
	return ParseActiveScheme(string(out))
}

// CurrentMode returns the mode matching the active scheme.
func (a *PowercfgActuator) CurrentMode(ctx context.Context) (domain.Mode, error) {
	guid, name, err := a.activeScheme(ctx)
	if err != nil {
		return domain.ModeNone, err
	}
	mode := a.plans.ModeFor(guid)
	if mode == domain.ModeNone {
		a.logger.Warn("active power plan is not a configured mode",
			zap.String("plan", name),
			zap.String("guid", guid))
	}
	return mode, nil
}

// Apply activates the scheme for mode and verifies the switch.
func (a *PowercfgActuator) Apply(ctx context.Context, mode domain.Mode) error {
	if !a.privileged() {
		return fmt.Errorf("powercfg /setactive: %w", domain.ErrPrivilegeRequired)
	}

	target := a.plans.GUID(mode)
	if target == "" || IsPlaceholderGUID(target) {
		return fmt.Errorf("invalid GUID for %s: %q", mode, target)
	}

	current, _, err := a.activeScheme(ctx)
	if err == nil && strings.EqualFold(current, target) {
		a.logger.Debug("power plan already active", zap.String("mode", mode.String()))
		return nil
	}

	a.logger.Info("switching power plan",
		zap.String("from", a.plans.ModeFor(current).String()),
		zap.String("to", mode.String()),
		zap.String("guid", target))

	if _, err := a.runner.Output(ctx, powercfgBinary, "/setactive", target); err != nil {
		if !a.privileged() {
			return fmt.Errorf("failed to set %s: %w", mode, domain.ErrPrivilegeRequired)
		}
		return fmt.Errorf("failed to set %s: %w", mode, err)
	}

	if a.settle > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.settle):
		}
	}

	got, _, err := a.activeScheme(ctx)
	if err != nil {
		return err
	}
	if !strings.EqualFold(got, target) {
		return fmt.Errorf("%w: wanted %s (%s), active %s", ErrVerifyFailed, mode, target, got)
	}

	a.logger.Info("power plan changed", zap.String("mode", mode.String()))
	return nil
}

// Ensure PowercfgActuator implements domain.Actuator.
var _ domain.Actuator = (*PowercfgActuator)(nil)
