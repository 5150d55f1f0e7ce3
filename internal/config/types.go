// Package config loads and validates powermon configuration.
package config

import "fmt"

// Config is the full powermon configuration.
type Config struct {
	General    GeneralConfig    `yaml:"general"`
	Processes  ProcessesConfig  `yaml:"processes"`
	Turbo      TurboConfig      `yaml:"turbo"`
	PowerPlans PowerPlansConfig `yaml:"power_plans"`
	Linux      LinuxConfig      `yaml:"linux"`
	Paths      PathsConfig      `yaml:"paths"`
	Actuator   string           `yaml:"actuator"`
}

// GeneralConfig holds control loop timing.
type GeneralConfig struct {
	IdleThresholdSeconds int  `yaml:"idle_threshold_seconds"`
	CheckIntervalSeconds int  `yaml:"check_interval_seconds"`
	EnableDebugLogging   bool `yaml:"enable_debug_logging"`
}

// ProcessesConfig lists resource-intensive processes.
type ProcessesConfig struct {
	Heavy []string `yaml:"heavy,omitempty"`
}

// TurboConfig holds the turbo trigger rule. Either the flat shape
// (Apps + MinAppsThreshold) or Groups may be set, not both. A later
// config layer that sets one shape clears the other.
type TurboConfig struct {
	Apps             []string           `yaml:"apps,omitempty"`
	MinAppsThreshold int                `yaml:"min_apps_threshold"`
	Groups           []TurboGroupConfig `yaml:"groups,omitempty"`
}

// TurboGroupConfig is one named cluster of trigger applications.
type TurboGroupConfig struct {
	Name       string   `yaml:"name"`
	Members    []string `yaml:"members,omitempty"`
	MinMatches int      `yaml:"min_matches"`
}

// PowerPlansConfig maps modes to Windows power scheme GUIDs.
type PowerPlansConfig struct {
	HighPerformance string `yaml:"high_performance"`
	Balanced        string `yaml:"balanced"`
	PowerSaver      string `yaml:"power_saver"`
	Turbo           string `yaml:"turbo"`
}

// LinuxConfig holds power-profiles-daemon settings.
type LinuxConfig struct {
	TurboProfile string `yaml:"turbo_profile"`
}

// PathsConfig overrides file locations. Empty values use the execution
// mode defaults; a leading ~ is expanded by the caller.
type PathsConfig struct {
	LogFile     string `yaml:"log_file"`
	ActivityLog string `yaml:"activity_log"`
	StatusFile  string `yaml:"status_file"`
	DataDir     string `yaml:"data_dir"`
}

// ValidationError describes one invalid configuration value.
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}
