package infra

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

const (
	powerProfilesBinary = "powerprofilesctl"

	ProfilePerformance = "performance"
	ProfileBalanced    = "balanced"
	ProfilePowerSaver  = "power-saver"
)

// PowerProfilesActuator drives power-profiles-daemon via powerprofilesctl.
// The daemon has three profiles, so turbo maps to a configurable profile.
type PowerProfilesActuator struct {
	turboProfile string
	runner       CommandRunner
	privileged   atomic.Bool
	logger       *zap.Logger
}

// NewPowerProfilesActuator creates a powerprofilesctl actuator.
func NewPowerProfilesActuator(turboProfile string, logger *zap.Logger) *PowerProfilesActuator {
	return NewPowerProfilesActuatorWithRunner(turboProfile, &RealCommandRunner{}, logger)
}

// NewPowerProfilesActuatorWithRunner creates an actuator with a custom runner (for testing).
func NewPowerProfilesActuatorWithRunner(turboProfile string, runner CommandRunner, logger *zap.Logger) *PowerProfilesActuator {
	if turboProfile == "" {
		turboProfile = ProfilePerformance
	}
	a := &PowerProfilesActuator{
		turboProfile: turboProfile,
		runner:       runner,
		logger:       logger,
	}
	a.privileged.Store(true)
	return a
}

// Name identifies the mechanism.
func (a *PowerProfilesActuator) Name() string { return powerProfilesBinary }

// IsPrivileged is false once the daemon has refused a profile change.
func (a *PowerProfilesActuator) IsPrivileged() bool { return a.privileged.Load() }

// ProfileFor returns the power-profiles-daemon profile for mode.
func (a *PowerProfilesActuator) ProfileFor(mode domain.Mode) string {
	switch mode {
	case domain.ModeTurbo:
		return a.turboProfile
	case domain.ModeHighPerformance:
		return ProfilePerformance
	case domain.ModeBalanced:
		return ProfileBalanced
	case domain.ModePowerSaver:
		return ProfilePowerSaver
	default:
		return ""
	}
}

// CurrentMode returns the mode matching the active profile.
func (a *PowerProfilesActuator) CurrentMode(ctx context.Context) (domain.Mode, error) {
	out, err := a.runner.Output(ctx, powerProfilesBinary, "get")
	if err != nil {
		return domain.ModeNone, fmt.Errorf("failed to query power profile: %w", err)
	}
	switch strings.TrimSpace(string(out)) {
	case ProfilePerformance:
		return domain.ModeHighPerformance, nil
	case ProfileBalanced:
		return domain.ModeBalanced, nil
	case ProfilePowerSaver:
		return domain.ModePowerSaver, nil
	default:
		a.logger.Warn("unknown power profile", zap.String("profile", strings.TrimSpace(string(out))))
		return domain.ModeNone, nil
	}
}

// Apply sets the profile for mode.
func (a *PowerProfilesActuator) Apply(ctx context.Context, mode domain.Mode) error {
	profile := a.ProfileFor(mode)
	if profile == "" {
		return fmt.Errorf("no power profile for mode %q", mode)
	}

	if _, err := a.runner.Output(ctx, powerProfilesBinary, "set", profile); err != nil {
		if isAccessDenied(err) {
			a.privileged.Store(false)
			return fmt.Errorf("failed to set profile %s: %w: %v", profile, domain.ErrPrivilegeRequired, err)
		}
		return fmt.Errorf("failed to set profile %s: %w", profile, err)
	}

	a.logger.Info("power profile changed",
		zap.String("mode", mode.String()),
		zap.String("profile", profile))
	return nil
}

func isAccessDenied(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "accessdenied") ||
		strings.Contains(msg, "access denied") ||
		strings.Contains(msg, "not authorized")
}

// Ensure PowerProfilesActuator implements domain.Actuator.
var _ domain.Actuator = (*PowerProfilesActuator)(nil)
