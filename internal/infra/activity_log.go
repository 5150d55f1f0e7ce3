package infra

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

const bannerTimeLayout = "2006-01-02 15:04:05"

// FormatStatusLine renders one tick as an activity log line, e.g.
// "15:04:05 - Turbo: false, Heavy: true, Idle: false (12s), Runtime: 130s, Action: high_performance".
func FormatStatusLine(rec domain.StatusRecord) string {
	line := fmt.Sprintf("%s - Turbo: %t, Heavy: %t, Idle: %t (%ds), Runtime: %ds, Action: %s",
		rec.At.Format("15:04:05"),
		rec.Turbo,
		rec.Heavy,
		rec.Idle,
		int64(rec.IdleFor/time.Second),
		int64(rec.Runtime/time.Second),
		rec.Mode)
	if len(rec.TurboApps) > 0 {
		line += " [turbo: " + strings.Join(rec.TurboApps, ", ") + "]"
	} else if len(rec.HeavyApps) > 0 {
		line += " [heavy: " + strings.Join(rec.HeavyApps, ", ") + "]"
	}
	return line
}

// ActivityLog implements domain.ActivityRecorder as an append-only text file.
type ActivityLog struct {
	mu   sync.Mutex
	path string
	out  io.Writer // Overrides the file when set (for testing)
}

// NewActivityLog creates an activity log appending to path.
func NewActivityLog(path string) *ActivityLog {
	return &ActivityLog{path: path}
}

// NewActivityLogWithWriter creates an activity log writing to w (for testing).
func NewActivityLogWithWriter(w io.Writer) *ActivityLog {
	return &ActivityLog{out: w}
}

// Start writes the session start banner.
func (l *ActivityLog) Start(session domain.Session, interval, idleThreshold time.Duration) error {
	return l.write(
		"",
		"",
		"--- Starting power monitor ---",
		"Session: "+session.ID,
		"Time: "+session.StartedAt.Format(bannerTimeLayout),
		fmt.Sprintf("Check interval: %ds", int64(interval/time.Second)),
		fmt.Sprintf("Idle threshold: %ds", int64(idleThreshold/time.Second)),
		fmt.Sprintf("Prior mode: %s", session.PriorMode),
		"",
	)
}

// Record appends one status line.
func (l *ActivityLog) Record(rec domain.StatusRecord) error {
	return l.write(FormatStatusLine(rec))
}

// Stop writes the session stop banner.
func (l *ActivityLog) Stop(at time.Time) error {
	return l.write("", "--- Power monitor stopped at "+at.Format(bannerTimeLayout)+" ---", "")
}

// write appends lines, reopening the file on every call.
func (l *ActivityLog) write(lines ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data := strings.Join(lines, "\n") + "\n"
	if l.out != nil {
		_, err := io.WriteString(l.out, data)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create activity log directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open activity log: %w", err)
	}
	defer f.Close()

	_, err = f.WriteString(data)
	return err
}

// Ensure ActivityLog implements domain.ActivityRecorder.
var _ domain.ActivityRecorder = (*ActivityLog)(nil)
