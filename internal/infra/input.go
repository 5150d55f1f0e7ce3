package infra

import "github.com/eliteGoblin/focusd/power_mon/internal/domain"

// emit delivers ev without blocking. Events are dropped when the consumer
// is behind; activity is debounced, so a drop loses nothing.
func emit(events chan<- domain.InputEvent, ev domain.InputEvent) bool {
	select {
	case events <- ev:
		return true
	default:
		return false
	}
}
