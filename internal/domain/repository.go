package domain

import (
	"context"
	"time"
)

// Actuator applies power modes to the machine.
// Implementations: powercfg (Windows), powerprofilesctl (Linux), dry-run.
type Actuator interface {
	// Name identifies the mechanism (for logs and status output).
	Name() string

	// Apply switches the machine into mode.
	Apply(ctx context.Context, mode Mode) error

	// CurrentMode returns the mode currently set on the machine.
	// ModeNone means the current setting maps to no known mode.
	CurrentMode(ctx context.Context) (Mode, error)

	// IsPrivileged reports whether the process may still actuate.
	IsPrivileged() bool
}

// InputSource delivers raw input events (pointer, keyboard).
// Start must not block; events are pushed onto the given channel
// without blocking the source's own goroutine.
type InputSource interface {
	Name() string
	Start(events chan<- InputEvent) error
	Stop() error
}

// ProcessLister enumerates running processes.
// Implementation: uses gopsutil for cross-platform support.
type ProcessLister interface {
	// List returns running processes. Processes that vanish or deny
	// access mid-scan are skipped, not reported as errors.
	List() ([]ProcessInfo, error)

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool
}

// WindowLister enumerates top-level windows.
type WindowLister interface {
	Windows() ([]Window, error)
}

// ActivityRecorder is the durable, append-only, human-readable activity record.
type ActivityRecorder interface {
	// Start writes the session start banner.
	Start(session Session, interval, idleThreshold time.Duration) error

	// Record appends one status line.
	Record(rec StatusRecord) error

	// Stop writes the session stop banner.
	Stop(at time.Time) error
}

// StatusWriter publishes the latest tick outcome for the status command.
type StatusWriter interface {
	WriteStatus(session Session, rec StatusRecord) error
}

// SessionStore persists control-loop sessions across restarts.
// Implementation: SQLCipher encrypted database.
type SessionStore interface {
	// BeginSession records a new running session.
	BeginSession(s Session) error

	// UpdateLastMode records the last successfully applied mode.
	UpdateLastMode(id string, mode Mode) error

	// EndSession marks the session as cleanly stopped.
	EndSession(id string, at time.Time) error

	// LastUnfinished returns the most recent session that never stopped
	// cleanly, or nil if there is none.
	LastUnfinished() (*Session, error)

	// Recent returns up to n sessions, newest first.
	Recent(n int) ([]Session, error)

	// Close releases resources (e.g., database connection).
	Close() error
}

// KeyProvider abstracts the source of encryption keys.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// FileSystemManager handles filesystem operations.
type FileSystemManager interface {
	// Exists checks if a path exists.
	Exists(path string) bool

	// EnsureDir creates a directory (and parents) if missing.
	EnsureDir(path string) error

	// ExpandHome expands ~ to the user's home directory.
	ExpandHome(path string) string
}
