package usecase

import (
	"errors"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

// fakeClock is a manually advanced clock, safe for concurrent use.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// mockInputSource records lifecycle calls and exposes the event channel.
type mockInputSource struct {
	mu       sync.Mutex
	name     string
	startErr error
	starts   int
	stops    int
	events   chan<- domain.InputEvent
}

func (m *mockInputSource) Name() string { return m.name }

func (m *mockInputSource) Start(events chan<- domain.InputEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.starts++
	m.events = events
	return nil
}

func (m *mockInputSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.events = nil
	return nil
}

func (m *mockInputSource) emit(ev domain.InputEvent) {
	m.mu.Lock()
	ch := m.events
	m.mu.Unlock()
	if ch != nil {
		ch <- ev
	}
}

func (m *mockInputSource) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts, m.stops
}

// mockProcessLister returns a configurable process list.
type mockProcessLister struct {
	procs   []domain.ProcessInfo
	listErr error
	calls   int
}

func (m *mockProcessLister) List() ([]domain.ProcessInfo, error) {
	m.calls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.ProcessInfo, len(m.procs))
	copy(out, m.procs)
	return out, nil
}

func (m *mockProcessLister) IsRunning(pid int) bool {
	for _, p := range m.procs {
		if p.PID == pid {
			return true
		}
	}
	return false
}

// mockWindowLister returns a configurable window list.
type mockWindowLister struct {
	windows []domain.Window
	err     error
	calls   int
}

func (m *mockWindowLister) Windows() ([]domain.Window, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.windows, nil
}

var errBoom = errors.New("boom")

// appWindow returns a window that passes every qualification rule.
func appWindow(pid int, title string) domain.Window {
	return domain.Window{PID: pid, Title: title, Visible: true, StyleVisible: true, Width: 800, Height: 600}
}
