package infra

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

// DefaultPollInterval is how often the last-input tick is sampled.
const DefaultPollInterval = 500 * time.Millisecond

// LastInputPoller samples a system last-input counter and emits a generic
// input event whenever it changes. It cannot tell input kinds apart.
type LastInputPoller struct {
	interval time.Duration
	tick     func() (uint32, error)
	logger   *zap.Logger

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewLastInputPoller creates a poller over tick.
func NewLastInputPoller(interval time.Duration, tick func() (uint32, error), logger *zap.Logger) *LastInputPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &LastInputPoller{interval: interval, tick: tick, logger: logger}
}

// Name identifies the source.
func (p *LastInputPoller) Name() string { return "last-input" }

// Start takes a baseline sample and begins polling.
func (p *LastInputPoller) Start(events chan<- domain.InputEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop != nil {
		return nil
	}
	last, err := p.tick()
	if err != nil {
		return err
	}

	p.stop = make(chan struct{})
	p.wg.Add(1)
	go p.loop(events, last, p.stop)
	return nil
}

func (p *LastInputPoller) loop(events chan<- domain.InputEvent, last uint32, stop <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			cur, err := p.tick()
			if err != nil {
				p.logger.Debug("last input sample failed", zap.Error(err))
				continue
			}
			if cur != last {
				last = cur
				emit(events, domain.InputEvent{Kind: domain.InputGeneric, Source: p.Name()})
			}
		}
	}
}

// Stop ends polling.
func (p *LastInputPoller) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop == nil {
		return nil
	}
	close(p.stop)
	p.wg.Wait()
	p.stop = nil
	return nil
}

// Ensure LastInputPoller implements domain.InputSource.
var _ domain.InputSource = (*LastInputPoller)(nil)
