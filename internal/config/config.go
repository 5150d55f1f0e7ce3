package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/focusd/power_mon/internal/policy"
)

// Load merges configuration layers and validates the result.
// Priority: defaults < system config < user config < explicit.
// Missing system or user files are skipped; a non-empty explicit path must exist.
func Load(systemPath, userPath, explicitPath string) (Config, error) {
	cfg := DefaultConfig()

	for _, layer := range []struct {
		name string
		path string
	}{
		{"system", systemPath},
		{"user", userPath},
	} {
		if layer.path == "" {
			continue
		}
		if err := mergeConfigFile(&cfg, layer.path); err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to load %s config: %w", layer.name, err)
			}
		}
	}

	if explicitPath != "" {
		if err := mergeConfigFile(&cfg, explicitPath); err != nil {
			return cfg, fmt.Errorf("failed to load config from %s: %w", explicitPath, err)
		}
	}

	if validationErrors := cfg.Validate(); len(validationErrors) > 0 {
		return cfg, fmt.Errorf("config.validation.error: %v", formatValidationErrors(validationErrors))
	}
	return cfg, nil
}

// LoadFrom loads configuration from a specific file path over the defaults.
func LoadFrom(path string) (Config, error) {
	return Load("", "", path)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := decodeInto(&cfg, data); err != nil {
		return cfg, err
	}
	if validationErrors := cfg.Validate(); len(validationErrors) > 0 {
		return cfg, fmt.Errorf("config.validation.error: %v", formatValidationErrors(validationErrors))
	}
	return cfg, nil
}

// mergeConfigFile reads a YAML file and merges it into the existing config.
func mergeConfigFile(cfg *Config, path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return err
	}
	return decodeInto(cfg, data)
}

// decodeInto overlays YAML onto cfg. Keys absent from the document keep
// their current value; lists present in the document replace the old list.
// A layer that sets only one turbo shape replaces the other shape.
func decodeInto(cfg *Config, data []byte) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	var layer struct {
		Turbo map[string]yaml.Node `yaml:"turbo"`
	}
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	_, hasApps := layer.Turbo["apps"]
	_, hasGroups := layer.Turbo["groups"]
	_, hasThreshold := layer.Turbo["min_apps_threshold"]
	switch {
	case hasGroups && !hasApps:
		cfg.Turbo.Apps = nil
		if !hasThreshold {
			cfg.Turbo.MinAppsThreshold = DefaultConfig().Turbo.MinAppsThreshold
		}
	case hasApps && !hasGroups:
		cfg.Turbo.Groups = nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// formatValidationErrors formats validation errors for display
func formatValidationErrors(errors []ValidationError) string {
	if len(errors) == 0 {
		return ""
	}
	if len(errors) == 1 {
		return errors[0].Error()
	}
	result := fmt.Sprintf("%d validation errors:\n", len(errors))
	for _, err := range errors {
		result += "  - " + err.Error() + "\n"
	}
	return result
}

// IdleThreshold returns the idle threshold as a duration.
func (c Config) IdleThreshold() time.Duration {
	return time.Duration(c.General.IdleThresholdSeconds) * time.Second
}

// CheckInterval returns the tick interval as a duration.
func (c Config) CheckInterval() time.Duration {
	return time.Duration(c.General.CheckIntervalSeconds) * time.Second
}

// HeavySet builds the heavy-process set.
func (c Config) HeavySet() policy.HeavySet {
	return policy.NewHeavySet(c.Processes.Heavy...)
}

// TurboRule builds the turbo rule from whichever shape is configured.
func (c Config) TurboRule() policy.TurboRule {
	if len(c.Turbo.Groups) == 0 {
		return policy.NewFlatRule(c.Turbo.Apps, c.Turbo.MinAppsThreshold)
	}
	groups := make([]policy.TurboGroup, 0, len(c.Turbo.Groups))
	for _, g := range c.Turbo.Groups {
		groups = append(groups, policy.NewTurboGroup(g.Name, g.MinMatches, g.Members...))
	}
	return policy.NewGroupedRule(groups...)
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
