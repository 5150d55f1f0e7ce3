package infra

import (
	"fmt"
	"os/exec"
	"runtime"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

// Actuator kinds accepted by NewActuator.
const (
	ActuatorAuto          = "auto"
	ActuatorPowercfg      = "powercfg"
	ActuatorPowerProfiles = "powerprofiles"
	ActuatorDryRun        = "dryrun"
)

// ActuatorOptions selects and configures an actuator.
type ActuatorOptions struct {
	Kind         string
	Plans        PowerPlans
	TurboProfile string
}

// NewActuator builds the actuator named by opts.Kind. "auto" picks powercfg
// on Windows and powerprofilesctl where it is installed.
func NewActuator(opts ActuatorOptions, logger *zap.Logger) (domain.Actuator, error) {
	kind := opts.Kind
	if kind == "" || kind == ActuatorAuto {
		resolved, err := detectActuatorKind(runtime.GOOS, exec.LookPath)
		if err != nil {
			return nil, err
		}
		kind = resolved
	}

	logger.Info("using power actuator", zap.String("kind", kind))

	switch kind {
	case ActuatorPowercfg:
		return NewPowercfgActuator(opts.Plans, logger), nil
	case ActuatorPowerProfiles:
		return NewPowerProfilesActuator(opts.TurboProfile, logger), nil
	case ActuatorDryRun:
		return NewDryRunActuator(domain.ModeBalanced, logger), nil
	default:
		return nil, fmt.Errorf("unknown actuator %q", kind)
	}
}

func detectActuatorKind(goos string, lookPath func(string) (string, error)) (string, error) {
	if goos == "windows" {
		return ActuatorPowercfg, nil
	}
	if _, err := lookPath(powerProfilesBinary); err == nil {
		return ActuatorPowerProfiles, nil
	}
	return "", fmt.Errorf("no power actuator found on %s (use --dry-run): %w", goos, domain.ErrUnsupported)
}
