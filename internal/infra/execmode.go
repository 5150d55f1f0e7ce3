package infra

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

// ExecMode represents the execution mode of the application.
type ExecMode string

const (
	// ExecModeUser runs unprivileged; mode changes may be refused by the OS.
	ExecModeUser ExecMode = "user"
	// ExecModeSystem runs elevated (root or Administrator).
	ExecModeSystem ExecMode = "system"
)

const appDirName = "powermon"

// ExecModeConfig holds paths and settings based on execution mode.
type ExecModeConfig struct {
	Mode         ExecMode
	DataDir      string // Where the session database and key live
	SystemConfig string // Machine-wide config file
	UserConfig   string // Per-user config file
	LogFile      string
	ActivityLog  string
	StatusFile   string
	IsPrivileged bool
}

// DetectExecMode determines the execution mode from the process privileges.
func DetectExecMode() *ExecModeConfig {
	if IsElevated() {
		return SystemModeConfig()
	}
	return GetUserModeConfig()
}

// SystemModeConfig returns the machine-wide layout.
func SystemModeConfig() *ExecModeConfig {
	dataDir := systemDataDir()
	return &ExecModeConfig{
		Mode:         ExecModeSystem,
		DataDir:      dataDir,
		SystemConfig: systemConfigPath(),
		UserConfig:   userConfigPath(GetRealUserHome()),
		LogFile:      filepath.Join(dataDir, "powermon.log"),
		ActivityLog:  filepath.Join(dataDir, "activity.log"),
		StatusFile:   filepath.Join(dataDir, "status.json"),
		IsPrivileged: true,
	}
}

// GetUserModeConfig returns user mode config regardless of current privileges.
// When running under sudo, uses SUDO_USER to get the invoking user's home directory.
func GetUserModeConfig() *ExecModeConfig {
	home := GetRealUserHome()
	dataDir := filepath.Join(home, "."+appDirName)
	return &ExecModeConfig{
		Mode:         ExecModeUser,
		DataDir:      dataDir,
		SystemConfig: systemConfigPath(),
		UserConfig:   userConfigPath(home),
		LogFile:      filepath.Join(dataDir, "powermon.log"),
		ActivityLog:  filepath.Join(dataDir, "activity.log"),
		StatusFile:   filepath.Join(dataDir, "status.json"),
		IsPrivileged: IsElevated(), // Still track actual privileges for actuation
	}
}

// String returns a human-readable description of the mode.
func (m ExecMode) String() string {
	switch m {
	case ExecModeSystem:
		return "system (elevated)"
	case ExecModeUser:
		return "user (unprivileged)"
	default:
		return "unknown"
	}
}

func systemDataDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(programData(), appDirName)
	}
	return filepath.Join("/var/lib", appDirName)
}

func systemConfigPath() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(programData(), appDirName, "config.yaml")
	}
	return filepath.Join("/etc", appDirName, "config.yaml")
}

func userConfigPath(home string) string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appDirName, "config.yaml")
		}
	}
	return filepath.Join(home, ".config", appDirName, "config.yaml")
}

func programData() string {
	if dir := os.Getenv("ProgramData"); dir != "" {
		return dir
	}
	return `C:\ProgramData`
}

// GetRealUserHome returns the real user's home directory, even when running under sudo.
// Under sudo, os.UserHomeDir() returns root's home, so we use SUDO_USER to find the real user.
func GetRealUserHome() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir
		}
	}
	home, _ := os.UserHomeDir()
	return home
}
