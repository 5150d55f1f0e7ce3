package fixtures

import (
	"sync"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

// ScriptedInput is an input source driven by the test.
type ScriptedInput struct {
	mu     sync.Mutex
	events chan<- domain.InputEvent
}

var _ domain.InputSource = (*ScriptedInput)(nil)

// NewScriptedInput creates a stopped input source.
func NewScriptedInput() *ScriptedInput {
	return &ScriptedInput{}
}

// Name implements domain.InputSource.
func (s *ScriptedInput) Name() string { return "scripted" }

// Start implements domain.InputSource.
func (s *ScriptedInput) Start(events chan<- domain.InputEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
	return nil
}

// Stop implements domain.InputSource.
func (s *ScriptedInput) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	return nil
}

// Active reports whether the source is installed.
func (s *ScriptedInput) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events != nil
}

// PressKey delivers a key press. It reports false if the source is stopped
// or the consumer is full.
func (s *ScriptedInput) PressKey() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events == nil {
		return false
	}
	select {
	case s.events <- domain.InputEvent{Kind: domain.InputKey, Pressed: true, Source: "scripted"}:
		return true
	default:
		return false
	}
}
