// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"sync"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

// FakeDesktop simulates running applications, each owning one normal
// visible window. It implements domain.ProcessLister and domain.WindowLister.
type FakeDesktop struct {
	mu      sync.Mutex
	nextPID int
	apps    map[string]int // name -> pid
}

var (
	_ domain.ProcessLister = (*FakeDesktop)(nil)
	_ domain.WindowLister  = (*FakeDesktop)(nil)
)

// NewFakeDesktop creates an empty desktop.
func NewFakeDesktop() *FakeDesktop {
	return &FakeDesktop{nextPID: 1000, apps: make(map[string]int)}
}

// Launch starts the named applications.
func (d *FakeDesktop) Launch(names ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, name := range names {
		if _, ok := d.apps[name]; ok {
			continue
		}
		d.nextPID++
		d.apps[name] = d.nextPID
	}
}

// Quit stops the named applications.
func (d *FakeDesktop) Quit(names ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, name := range names {
		delete(d.apps, name)
	}
}

// List implements domain.ProcessLister.
func (d *FakeDesktop) List() ([]domain.ProcessInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.ProcessInfo, 0, len(d.apps))
	for name, pid := range d.apps {
		out = append(out, domain.ProcessInfo{PID: pid, Name: name})
	}
	return out, nil
}

// IsRunning implements domain.ProcessLister.
func (d *FakeDesktop) IsRunning(pid int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.apps {
		if p == pid {
			return true
		}
	}
	return false
}

// Windows implements domain.WindowLister.
func (d *FakeDesktop) Windows() ([]domain.Window, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Window, 0, len(d.apps)+1)
	for name, pid := range d.apps {
		out = append(out, domain.Window{
			PID:          pid,
			Title:        name + " - main window",
			Visible:      true,
			StyleVisible: true,
			Width:        1280,
			Height:       720,
		})
	}
	// A tool window too small to count
	out = append(out, domain.Window{PID: 1, Title: "tray", Visible: true, StyleVisible: true, Width: 16, Height: 16})
	return out, nil
}
