package usecase

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
	"github.com/eliteGoblin/focusd/power_mon/internal/policy"
)

const (
	// DefaultCacheLifetime bounds how often a full process/window scan runs.
	DefaultCacheLifetime = 2 * time.Second

	// DesktopShellTitle is the always-present desktop window; it qualifies
	// without the style and size checks.
	DesktopShellTitle = "Program Manager"

	// MinWindowSize is the exclusive lower bound for qualifying window width and height.
	MinWindowSize = 50
)

// DefaultBackgroundPatterns are name substrings of processes never considered active.
var DefaultBackgroundPatterns = []string{"svchost", "runtime", "broker", "service", "helper", "system"}

// ClassifierConfig holds classifier tuning.
type ClassifierConfig struct {
	CacheLifetime      time.Duration
	BackgroundPatterns []string
}

// DefaultClassifierConfig returns default classifier configuration.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		CacheLifetime:      DefaultCacheLifetime,
		BackgroundPatterns: DefaultBackgroundPatterns,
	}
}

type cacheKey struct {
	name string
	pid  int
}

// Classifier finds running processes that own a genuine visible top-level
// window, and evaluates heavy-process and turbo conditions over them.
type Classifier struct {
	mu        sync.Mutex
	config    ClassifierConfig
	processes domain.ProcessLister
	windows   domain.WindowLister
	heavy     policy.HeavySet
	turbo     policy.TurboRule

	cache    map[cacheKey]domain.ProcessWindowCacheEntry
	snapshot domain.ActiveProcessSnapshot
	scanned  bool

	lastHeavy bool
	lastTurbo policy.TurboResult

	now    func() time.Time
	logger *zap.Logger
}

// NewClassifier creates a classifier.
func NewClassifier(
	config ClassifierConfig,
	processes domain.ProcessLister,
	windows domain.WindowLister,
	heavy policy.HeavySet,
	turbo policy.TurboRule,
	logger *zap.Logger,
) *Classifier {
	return NewClassifierWithClock(config, processes, windows, heavy, turbo, logger, time.Now)
}

// NewClassifierWithClock creates a classifier with a custom clock (for testing).
func NewClassifierWithClock(
	config ClassifierConfig,
	processes domain.ProcessLister,
	windows domain.WindowLister,
	heavy policy.HeavySet,
	turbo policy.TurboRule,
	logger *zap.Logger,
	now func() time.Time,
) *Classifier {
	if config.CacheLifetime <= 0 {
		config.CacheLifetime = DefaultCacheLifetime
	}

	logger.Info("process classifier initialized",
		zap.Strings("heavy_processes", heavy.Names()),
		zap.Strings("turbo_groups", turbo.GroupNames()),
		zap.Duration("cache_lifetime", config.CacheLifetime))

	return &Classifier{
		config:    config,
		processes: processes,
		windows:   windows,
		heavy:     heavy,
		turbo:     turbo,
		cache:     make(map[cacheKey]domain.ProcessWindowCacheEntry),
		now:       now,
		logger:    logger,
	}
}

// QualifyingWindow applies the window rules for the given process id.
func QualifyingWindow(w domain.Window, pid int) bool {
	if !w.Visible || w.PID != pid {
		return false
	}
	if w.Title == "" {
		return false
	}
	if w.Title == DesktopShellTitle {
		return true
	}
	if !w.StyleVisible {
		return false
	}
	return w.Width > MinWindowSize && w.Height > MinWindowSize
}

// ActiveProcessNames returns the lowercase names of processes with at least
// one qualifying window. A full scan runs at most once per cache lifetime;
// calls in between return the previous snapshot.
func (c *Classifier) ActiveProcessNames() domain.NameSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeLocked().Clone()
}

// Snapshot returns the most recent scan result.
func (c *Classifier) Snapshot() domain.ActiveProcessSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.ActiveProcessSnapshot{
		CapturedAt: c.snapshot.CapturedAt,
		Names:      c.snapshot.Names.Clone(),
	}
}

func (c *Classifier) activeLocked() domain.NameSet {
	now := c.now()
	if c.scanned && now.Sub(c.snapshot.CapturedAt) < c.config.CacheLifetime {
		return c.snapshot.Names
	}
	c.rescan(now)
	return c.snapshot.Names
}

// rescan enumerates processes and replaces the snapshot wholesale.
func (c *Classifier) rescan(now time.Time) {
	c.purgeExpired(now)

	procs, err := c.processes.List()
	if err != nil {
		c.logger.Warn("process enumeration failed", zap.Error(err))
		procs = nil
	}

	active := make(domain.NameSet)
	skipped := 0

	var (
		byPID         map[int][]domain.Window
		windowsLoaded bool
		windowsOK     bool
	)

	for _, p := range procs {
		name := strings.ToLower(p.Name)
		if name == "" {
			continue
		}
		if c.isBackground(name) {
			skipped++
			continue
		}

		key := cacheKey{name: name, pid: p.PID}
		if entry, ok := c.cache[key]; ok && now.Sub(entry.ObservedAt) < c.config.CacheLifetime {
			if entry.HasVisibleWindow {
				active[name] = struct{}{}
			}
			continue
		}

		if !windowsLoaded {
			byPID, windowsOK = c.loadWindows()
			windowsLoaded = true
		}

		has := false
		for _, w := range byPID[p.PID] {
			if QualifyingWindow(w, p.PID) {
				has = true
				break
			}
		}
		if windowsOK {
			c.cache[key] = domain.ProcessWindowCacheEntry{
				Name:             name,
				PID:              p.PID,
				ObservedAt:       now,
				HasVisibleWindow: has,
			}
		}
		if has {
			active[name] = struct{}{}
		}
	}

	c.snapshot = domain.ActiveProcessSnapshot{CapturedAt: now, Names: active}
	c.scanned = true

	c.logger.Debug("process scan complete",
		zap.Int("active", len(active)),
		zap.Int("background_skipped", skipped),
		zap.Int("cache_entries", len(c.cache)))
}

// loadWindows groups all top-level windows by owning pid.
// A failed enumeration is treated as "no windows" and must not be cached.
func (c *Classifier) loadWindows() (map[int][]domain.Window, bool) {
	windows, err := c.windows.Windows()
	if err != nil {
		c.logger.Warn("window enumeration failed", zap.Error(err))
		return nil, false
	}
	byPID := make(map[int][]domain.Window)
	for _, w := range windows {
		byPID[w.PID] = append(byPID[w.PID], w)
	}
	return byPID, true
}

func (c *Classifier) purgeExpired(now time.Time) {
	for key, entry := range c.cache {
		if now.Sub(entry.ObservedAt) >= c.config.CacheLifetime {
			delete(c.cache, key)
		}
	}
}

func (c *Classifier) isBackground(name string) bool {
	for _, pattern := range c.config.BackgroundPatterns {
		if strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}

// HeavyRunningNames returns the heavy processes currently active, sorted.
func (c *Classifier) HeavyRunningNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.heavy.Running(c.activeLocked()).Sorted()
}

// IsHeavyProcessRunning reports whether any heavy process is active.
// Flips are logged once.
func (c *Classifier) IsHeavyProcessRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	running := c.heavy.Running(c.activeLocked())
	isHeavy := running.Len() > 0
	if isHeavy != c.lastHeavy {
		if isHeavy {
			c.logger.Info("heavy processes detected", zap.Strings("apps", running.Sorted()))
		} else {
			c.logger.Debug("no heavy processes active")
		}
		c.lastHeavy = isHeavy
	}
	return isHeavy
}

// CheckTurboCondition evaluates the turbo rule against the active set and
// returns whether it holds and which names caused it. Any change of the full
// (active, apps, groups) tuple is logged.
func (c *Classifier) CheckTurboCondition() (bool, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := c.turbo.Evaluate(c.activeLocked())
	if !result.Equal(c.lastTurbo) {
		if result.Active {
			c.logger.Info("turbo condition met",
				zap.Strings("apps", result.Apps),
				zap.Strings("groups", result.Groups))
		} else if c.lastTurbo.Active {
			c.logger.Info("turbo condition cleared")
		}
		c.lastTurbo = result
	}
	return result.Active, result.Apps
}

// cacheSize returns the number of live cache entries.
func (c *Classifier) cacheSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}
