// Package infra implements infrastructure concerns (processes, windows, input,
// actuators, persistence).
package infra

import (
	"os"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

// ProcessListerImpl implements domain.ProcessLister using gopsutil.
type ProcessListerImpl struct{}

// NewProcessLister creates a new process lister.
func NewProcessLister() domain.ProcessLister {
	return &ProcessListerImpl{}
}

// List returns pid and name of every running process.
func (pl *ProcessListerImpl) List() ([]domain.ProcessInfo, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	result := make([]domain.ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue // Process may have exited or denied access
		}
		result = append(result, domain.ProcessInfo{PID: int(p.Pid), Name: name})
	}

	return result, nil
}

// IsRunning checks if a PID exists and is running.
func (pl *ProcessListerImpl) IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	exists, err := process.PidExists(int32(pid))
	if err == nil {
		return exists
	}

	// Fall back to signal 0 on Unix
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Ensure ProcessListerImpl implements domain.ProcessLister.
var _ domain.ProcessLister = (*ProcessListerImpl)(nil)
