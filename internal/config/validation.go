package config

import (
	"fmt"
	"strings"
)

// Accepted actuator kinds.
var validActuators = []string{"auto", "powercfg", "powerprofiles", "dryrun"}

var validTurboProfiles = []string{"performance", "balanced", "power-saver"}

// Validate checks if the configuration is valid
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateGeneral()...)
	errors = append(errors, c.validateProcesses()...)
	errors = append(errors, c.validateTurbo()...)
	errors = append(errors, c.validatePowerPlans()...)
	errors = append(errors, c.validateLinux()...)
	errors = append(errors, c.validateActuator()...)

	return errors
}

func (c *Config) validateGeneral() []ValidationError {
	var errors []ValidationError

	if c.General.IdleThresholdSeconds < 1 {
		errors = append(errors, ValidationError{
			Path:    "general.idle_threshold_seconds",
			Message: fmt.Sprintf("must be at least 1, got %d", c.General.IdleThresholdSeconds),
		})
	}
	if c.General.CheckIntervalSeconds < 1 {
		errors = append(errors, ValidationError{
			Path:    "general.check_interval_seconds",
			Message: fmt.Sprintf("must be at least 1, got %d", c.General.CheckIntervalSeconds),
		})
	}
	return errors
}

func (c *Config) validateProcesses() []ValidationError {
	var errors []ValidationError
	for i, name := range c.Processes.Heavy {
		if strings.TrimSpace(name) == "" {
			errors = append(errors, ValidationError{
				Path:    fmt.Sprintf("processes.heavy[%d]", i),
				Message: "must not be empty",
			})
		}
	}
	return errors
}

func (c *Config) validateTurbo() []ValidationError {
	var errors []ValidationError
	t := c.Turbo

	if len(t.Apps) > 0 && len(t.Groups) > 0 {
		errors = append(errors, ValidationError{
			Path:    "turbo",
			Message: "set either apps/min_apps_threshold or groups, not both",
		})
	}
	if t.MinAppsThreshold < 0 {
		errors = append(errors, ValidationError{
			Path:    "turbo.min_apps_threshold",
			Message: fmt.Sprintf("must not be negative, got %d", t.MinAppsThreshold),
		})
	}
	if len(t.Apps) > 0 && t.MinAppsThreshold > len(t.Apps) {
		errors = append(errors, ValidationError{
			Path:    "turbo.min_apps_threshold",
			Message: fmt.Sprintf("exceeds the %d configured apps", len(t.Apps)),
		})
	}

	seen := make(map[string]bool)
	for i, g := range t.Groups {
		path := fmt.Sprintf("turbo.groups[%d]", i)
		if strings.TrimSpace(g.Name) == "" {
			errors = append(errors, ValidationError{Path: path + ".name", Message: "must not be empty"})
		} else if seen[g.Name] {
			errors = append(errors, ValidationError{Path: path + ".name", Message: fmt.Sprintf("duplicate group %q", g.Name)})
		}
		seen[g.Name] = true

		if len(g.Members) == 0 {
			errors = append(errors, ValidationError{Path: path + ".members", Message: "must list at least one process"})
		}
		if g.MinMatches < 0 {
			errors = append(errors, ValidationError{
				Path:    path + ".min_matches",
				Message: fmt.Sprintf("must not be negative, got %d", g.MinMatches),
			})
		} else if len(g.Members) > 0 && g.MinMatches > len(g.Members) {
			errors = append(errors, ValidationError{
				Path:    path + ".min_matches",
				Message: fmt.Sprintf("exceeds the %d group members", len(g.Members)),
			})
		}
	}
	return errors
}

func (c *Config) validatePowerPlans() []ValidationError {
	var errors []ValidationError
	for _, plan := range []struct {
		path string
		guid string
	}{
		{"power_plans.high_performance", c.PowerPlans.HighPerformance},
		{"power_plans.balanced", c.PowerPlans.Balanced},
		{"power_plans.power_saver", c.PowerPlans.PowerSaver},
	} {
		if strings.TrimSpace(plan.guid) == "" {
			errors = append(errors, ValidationError{Path: plan.path, Message: "must not be empty"})
		}
	}
	return errors
}

func (c *Config) validateLinux() []ValidationError {
	if contains(validTurboProfiles, c.Linux.TurboProfile) {
		return nil
	}
	return []ValidationError{{
		Path:    "linux.turbo_profile",
		Message: fmt.Sprintf("must be one of %v, got '%s'", validTurboProfiles, c.Linux.TurboProfile),
	}}
}

func (c *Config) validateActuator() []ValidationError {
	if contains(validActuators, c.Actuator) {
		return nil
	}
	return []ValidationError{{
		Path:    "actuator",
		Message: fmt.Sprintf("must be one of %v, got '%s'", validActuators, c.Actuator),
	}}
}

// Warnings reports settings that are valid but probably wrong.
func (c *Config) Warnings() []string {
	var warnings []string
	for _, plan := range []struct {
		name string
		guid string
	}{
		{"high_performance", c.PowerPlans.HighPerformance},
		{"balanced", c.PowerPlans.Balanced},
		{"power_saver", c.PowerPlans.PowerSaver},
		{"turbo", c.PowerPlans.Turbo},
	} {
		if strings.Contains(strings.ToLower(plan.guid), "placeholder") {
			warnings = append(warnings, fmt.Sprintf(
				"power_plans.%s is a placeholder GUID; run 'powercfg /list' and update it", plan.name))
		}
	}
	if len(c.Processes.Heavy) == 0 && len(c.Turbo.Apps) == 0 && len(c.Turbo.Groups) == 0 {
		warnings = append(warnings, "no heavy or turbo processes configured; only idle detection will change modes")
	}
	return warnings
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
