package daemon

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

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

// fakeActuator counts actuations. applyErrs are consumed one per Apply call.
type fakeActuator struct {
	mu         sync.Mutex
	current    domain.Mode
	attempts   []domain.Mode
	applied    []domain.Mode
	applyErrs  []error
	privileged bool
	currentErr error
}

func newFakeActuator(current domain.Mode) *fakeActuator {
	return &fakeActuator{current: current, privileged: true}
}

func (a *fakeActuator) Name() string { return "fake" }

func (a *fakeActuator) Apply(_ context.Context, mode domain.Mode) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attempts = append(a.attempts, mode)
	if len(a.applyErrs) > 0 {
		err := a.applyErrs[0]
		a.applyErrs = a.applyErrs[1:]
		if err != nil {
			return err
		}
	}
	a.current = mode
	a.applied = append(a.applied, mode)
	return nil
}

func (a *fakeActuator) CurrentMode(context.Context) (domain.Mode, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current, a.currentErr
}

func (a *fakeActuator) IsPrivileged() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.privileged
}

func (a *fakeActuator) setPrivileged(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.privileged = v
}

func (a *fakeActuator) failNext(errs ...error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applyErrs = append(a.applyErrs, errs...)
}

func (a *fakeActuator) Applied() []domain.Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.Mode(nil), a.applied...)
}

func (a *fakeActuator) Attempts() []domain.Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.Mode(nil), a.attempts...)
}

// failingSource refuses to start.
type failingSource struct{}

func (failingSource) Name() string { return "failing" }
func (failingSource) Start(chan<- domain.InputEvent) error { return errors.New("no input devices") }
func (failingSource) Stop() error { return nil }

type mockProcessLister struct {
	mu    sync.Mutex
	procs []domain.ProcessInfo
}

func (m *mockProcessLister) set(procs ...domain.ProcessInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.procs = procs
}

func (m *mockProcessLister) List() ([]domain.ProcessInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ProcessInfo(nil), m.procs...), nil
}

func (m *mockProcessLister) IsRunning(pid int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.procs {
		if p.PID == pid {
			return true
		}
	}
	return false
}

// mockWindowLister gives every process returned by procs a qualifying window.
type mockWindowLister struct {
	procs *mockProcessLister
}

func (m *mockWindowLister) Windows() ([]domain.Window, error) {
	procs, _ := m.procs.List()
	out := make([]domain.Window, 0, len(procs))
	for _, p := range procs {
		out = append(out, domain.Window{PID: p.PID, Title: p.Name, Visible: true, StyleVisible: true, Width: 800, Height: 600})
	}
	return out, nil
}

type memRecorder struct {
	mu      sync.Mutex
	started []domain.Session
	records []domain.StatusRecord
	stops   int
}

func (r *memRecorder) Start(s domain.Session, _, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, s)
	return nil
}

func (r *memRecorder) Record(rec domain.StatusRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *memRecorder) Stop(time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	return nil
}

func (r *memRecorder) counts() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.started), len(r.records), r.stops
}

type memStatus struct {
	mu     sync.Mutex
	writes int
	last   domain.StatusRecord
}

func (s *memStatus) WriteStatus(_ domain.Session, rec domain.StatusRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.last = rec
	return nil
}

type memSessions struct {
	mu       sync.Mutex
	sessions []domain.Session
}

func (m *memSessions) find(id string) *domain.Session {
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			return &m.sessions[i]
		}
	}
	return nil
}

func (m *memSessions) BeginSession(s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, s)
	return nil
}

func (m *memSessions) UpdateLastMode(id string, mode domain.Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.find(id)
	if s == nil {
		return errors.New("session not found")
	}
	s.LastMode = mode
	return nil
}

func (m *memSessions) EndSession(id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.find(id)
	if s == nil {
		return errors.New("session not found")
	}
	s.StoppedAt = at
	return nil
}

func (m *memSessions) LastUnfinished() (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sessions) - 1; i >= 0; i-- {
		if !m.sessions[i].Finished() {
			s := m.sessions[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (m *memSessions) Recent(n int) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Session, 0, n)
	for i := len(m.sessions) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.sessions[i])
	}
	return out, nil
}

func (m *memSessions) Close() error { return nil }

func (m *memSessions) get(id string) domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.find(id); s != nil {
		return *s
	}
	return domain.Session{}
}
