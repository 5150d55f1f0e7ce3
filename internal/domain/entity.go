// Package domain contains core business entities and interfaces.
// This is the innermost layer - no dependencies on other internal packages.
package domain

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Mode is a power/performance operating point the actuator can be placed into.
type Mode string

const (
	ModeNone            Mode = ""
	ModeTurbo           Mode = "turbo"
	ModeHighPerformance Mode = "high_performance"
	ModeBalanced        Mode = "balanced"
	ModePowerSaver      Mode = "power_saver"
)

// AllModes lists the applicable modes in decision order.
var AllModes = []Mode{ModeTurbo, ModeHighPerformance, ModePowerSaver, ModeBalanced}

var (
	// ErrPrivilegeRequired is returned by actuators when the caller lacks
	// the rights needed to switch modes.
	ErrPrivilegeRequired = errors.New("elevated privileges required")

	// ErrUnsupported is returned by platform adapters on unsupported systems.
	ErrUnsupported = errors.New("not supported on this platform")
)

// ParseMode converts a mode name into a Mode (case-insensitive).
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllModes {
		if m == known {
			return m, true
		}
	}
	return ModeNone, false
}

func (m Mode) String() string {
	if m == ModeNone {
		return "none"
	}
	return string(m)
}

// InputKind classifies a raw input event.
type InputKind int

const (
	InputPointerMove InputKind = iota
	InputPointerButton
	InputScroll
	InputKey
	// InputGeneric is emitted by sources that only know that some input happened.
	InputGeneric
)

func (k InputKind) String() string {
	switch k {
	case InputPointerMove:
		return "mouse_move"
	case InputPointerButton:
		return "mouse_click"
	case InputScroll:
		return "mouse_scroll"
	case InputKey:
		return "keyboard"
	case InputGeneric:
		return "input"
	default:
		return "unknown"
	}
}

// InputEvent is a single event delivered by an input source.
type InputEvent struct {
	Kind    InputKind
	X, Y    float64 // Absolute pointer position (pointer moves only)
	Pressed bool    // Press-down vs release (buttons and keys)
	Source  string
}

// ActivityState is the tracker's view of user activity.
type ActivityState struct {
	LastActivityAt time.Time
	LastUpdateAt   time.Time
	IdleThreshold  time.Duration
}

// IdleAt reports whether the state is idle at the given instant.
func (s ActivityState) IdleAt(now time.Time) bool {
	return now.Sub(s.LastActivityAt) > s.IdleThreshold
}

// ProcessInfo identifies a running process.
type ProcessInfo struct {
	PID  int
	Name string
}

// Window describes a top-level window as reported by the window system.
type Window struct {
	PID          int
	Title        string
	Visible      bool // OS-level visibility
	StyleVisible bool // Visible style bit (WS_VISIBLE on Windows)
	Width        int
	Height       int
}

// ProcessWindowCacheEntry caches the window classification of one process.
// (Name, PID) is not unique across PID recycling, so entries always expire.
type ProcessWindowCacheEntry struct {
	Name             string
	PID              int
	ObservedAt       time.Time
	HasVisibleWindow bool
}

// NameSet is a set of lowercase process names.
type NameSet map[string]struct{}

// NewNameSet builds a set from names, lowercasing and trimming each entry.
func NewNameSet(names ...string) NameSet {
	s := make(NameSet, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// Has reports whether name is in the set.
func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Len returns the set size.
func (s NameSet) Len() int {
	return len(s)
}

// Intersect returns the names present in both sets.
func (s NameSet) Intersect(other NameSet) NameSet {
	out := make(NameSet)
	for n := range s {
		if other.Has(n) {
			out[n] = struct{}{}
		}
	}
	return out
}

// Clone returns a copy of the set.
func (s NameSet) Clone() NameSet {
	out := make(NameSet, len(s))
	for n := range s {
		out[n] = struct{}{}
	}
	return out
}

// Sorted returns the names in lexical order.
func (s NameSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ActiveProcessSnapshot is the result of one full process/window scan.
// It is never mutated after capture.
type ActiveProcessSnapshot struct {
	CapturedAt time.Time
	Names      NameSet
}

// DecisionState remembers what was last applied, for change suppression and logging only.
type DecisionState struct {
	LastAppliedMode Mode
	LastTurbo       bool
	LastHeavy       bool
}

// StatusRecord is the outcome of one control-loop tick.
type StatusRecord struct {
	At        time.Time     `json:"at"`
	Turbo     bool          `json:"turbo"`
	TurboApps []string      `json:"turbo_apps,omitempty"`
	Heavy     bool          `json:"heavy"`
	HeavyApps []string      `json:"heavy_apps,omitempty"`
	Idle      bool          `json:"idle"`
	IdleFor   time.Duration `json:"idle_for"`
	Runtime   time.Duration `json:"runtime"`
	Mode      Mode          `json:"mode"`
	Applied   bool          `json:"applied"` // Whether this tick issued an actuation
	Reason    string        `json:"reason,omitempty"`
}

// Session is one run of the control loop.
type Session struct {
	ID         string
	PID        int
	StartedAt  time.Time
	StoppedAt  time.Time // Zero while running (or after a crash)
	PriorMode  Mode      // Mode found on the machine when the session started
	LastMode   Mode      // Last mode successfully applied by the session
	AppVersion string
}

// Finished reports whether the session was shut down cleanly.
func (s Session) Finished() bool {
	return !s.StoppedAt.IsZero()
}
