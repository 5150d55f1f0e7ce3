package config

// Well-known Windows power scheme GUIDs.
const (
	GUIDHighPerformance = "8c5e7fda-e8bf-4a96-9a85-a6e23a8c635c"
	GUIDBalanced        = "381b4222-f694-41f0-9685-ff5bb260df2e"
	GUIDPowerSaver      = "a1841308-3541-4fab-bc81-f71556f20b4a"
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			IdleThresholdSeconds: 300, // 5 minutes
			CheckIntervalSeconds: 10,
		},
		Turbo: TurboConfig{
			MinAppsThreshold: 1,
		},
		PowerPlans: PowerPlansConfig{
			HighPerformance: GUIDHighPerformance,
			Balanced:        GUIDBalanced,
			PowerSaver:      GUIDPowerSaver,
		},
		Linux: LinuxConfig{
			TurboProfile: "performance",
		},
		Actuator: "auto",
	}
}
