package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
	"github.com/eliteGoblin/focusd/power_mon/internal/policy"
)

type classifierFixture struct {
	classifier *Classifier
	clock      *fakeClock
	procs      *mockProcessLister
	windows    *mockWindowLister
}

func newClassifierFixture(t *testing.T, heavy policy.HeavySet, turbo policy.TurboRule, logger *zap.Logger) *classifierFixture {
	t.Helper()
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &classifierFixture{
		clock:   newFakeClock(),
		procs:   &mockProcessLister{},
		windows: &mockWindowLister{},
	}
	f.classifier = NewClassifierWithClock(DefaultClassifierConfig(), f.procs, f.windows, heavy, turbo, logger, f.clock.Now)
	return f
}

// run adds a process that owns a qualifying window.
func (f *classifierFixture) run(pid int, name string) {
	f.procs.procs = append(f.procs.procs, domain.ProcessInfo{PID: pid, Name: name})
	f.windows.windows = append(f.windows.windows, appWindow(pid, name+" window"))
}

// kill removes a process and its windows.
func (f *classifierFixture) kill(pid int) {
	procs := f.procs.procs[:0]
	for _, p := range f.procs.procs {
		if p.PID != pid {
			procs = append(procs, p)
		}
	}
	f.procs.procs = procs

	windows := f.windows.windows[:0]
	for _, w := range f.windows.windows {
		if w.PID != pid {
			windows = append(windows, w)
		}
	}
	f.windows.windows = windows
}

func TestQualifyingWindow(t *testing.T) {
	base := appWindow(42, "Editor")

	tests := []struct {
		name   string
		mutate func(w *domain.Window)
		want   bool
	}{
		{"regular app window", func(w *domain.Window) {}, true},
		{"not visible", func(w *domain.Window) { w.Visible = false }, false},
		{"other pid", func(w *domain.Window) { w.PID = 7 }, false},
		{"empty title", func(w *domain.Window) { w.Title = "" }, false},
		{"missing style bit", func(w *domain.Window) { w.StyleVisible = false }, false},
		{"width at bound", func(w *domain.Window) { w.Width = 50 }, false},
		{"height at bound", func(w *domain.Window) { w.Height = 50 }, false},
		{"just above bound", func(w *domain.Window) { w.Width, w.Height = 51, 51 }, true},
		{"desktop shell skips style and size", func(w *domain.Window) {
			w.Title = DesktopShellTitle
			w.StyleVisible = false
			w.Width, w.Height = 0, 0
		}, true},
		{"desktop shell still needs visibility", func(w *domain.Window) {
			w.Title = DesktopShellTitle
			w.Visible = false
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := base
			tt.mutate(&w)
			assert.Equal(t, tt.want, QualifyingWindow(w, 42))
		})
	}
}

// TestClassifier_CacheLifetime verifies results are frozen within the lifetime and refreshed after
func TestClassifier_CacheLifetime(t *testing.T) {
	f := newClassifierFixture(t, policy.NewHeavySet(), policy.NewFlatRule(nil, 1), nil)
	f.run(100, "editor.exe")

	first := f.classifier.ActiveProcessNames()
	assert.Equal(t, []string{"editor.exe"}, first.Sorted())

	f.run(200, "game.exe")
	f.clock.Advance(time.Second)
	second := f.classifier.ActiveProcessNames()
	assert.Equal(t, first, second, "inside the cache lifetime the snapshot is reused")
	assert.Equal(t, 1, f.procs.calls)

	f.clock.Advance(time.Second)
	third := f.classifier.ActiveProcessNames()
	assert.Equal(t, []string{"editor.exe", "game.exe"}, third.Sorted())
	assert.Equal(t, 2, f.procs.calls)
}

// TestClassifier_ReturnedSetIsACopy verifies callers cannot mutate the snapshot
func TestClassifier_ReturnedSetIsACopy(t *testing.T) {
	f := newClassifierFixture(t, policy.NewHeavySet(), policy.NewFlatRule(nil, 1), nil)
	f.run(100, "editor.exe")

	names := f.classifier.ActiveProcessNames()
	delete(names, "editor.exe")

	assert.True(t, f.classifier.ActiveProcessNames().Has("editor.exe"))
	assert.True(t, f.classifier.Snapshot().Names.Has("editor.exe"))
}

func TestClassifier_ExcludesBackgroundAndWindowless(t *testing.T) {
	f := newClassifierFixture(t, policy.NewHeavySet(), policy.NewFlatRule(nil, 1), nil)
	f.run(1, "svchost.exe")
	f.run(2, "SteamWebHelper.exe")
	f.run(3, "Code.exe")
	f.procs.procs = append(f.procs.procs, domain.ProcessInfo{PID: 4, Name: "daemon"}) // no window
	f.procs.procs = append(f.procs.procs, domain.ProcessInfo{PID: 5, Name: ""})       // unnamed

	names := f.classifier.ActiveProcessNames()

	assert.Equal(t, []string{"code.exe"}, names.Sorted())
}

// TestClassifier_WindowsEnumeratedOncePerScan verifies window enumeration is not per process
func TestClassifier_WindowsEnumeratedOncePerScan(t *testing.T) {
	f := newClassifierFixture(t, policy.NewHeavySet(), policy.NewFlatRule(nil, 1), nil)
	for pid := 1; pid <= 10; pid++ {
		f.run(pid, "app.exe")
	}

	f.classifier.ActiveProcessNames()

	assert.Equal(t, 1, f.windows.calls)
}

// TestClassifier_WindowFailureNotCached verifies a failed enumeration is retried on the next scan
func TestClassifier_WindowFailureNotCached(t *testing.T) {
	f := newClassifierFixture(t, policy.NewHeavySet(), policy.NewFlatRule(nil, 1), nil)
	f.run(100, "editor.exe")
	f.windows.err = errBoom

	assert.Zero(t, f.classifier.ActiveProcessNames().Len())
	assert.Zero(t, f.classifier.cacheSize())

	f.windows.err = nil
	f.clock.Advance(DefaultCacheLifetime)
	assert.True(t, f.classifier.ActiveProcessNames().Has("editor.exe"))
}

// TestClassifier_ProcessListFailure verifies enumeration failure yields an empty set, not an error
func TestClassifier_ProcessListFailure(t *testing.T) {
	f := newClassifierFixture(t, policy.NewHeavySet(), policy.NewFlatRule(nil, 1), nil)
	f.run(100, "editor.exe")
	f.procs.listErr = errBoom

	assert.Zero(t, f.classifier.ActiveProcessNames().Len())
}

// TestClassifier_PurgesExpiredEntries verifies stale (name, pid) entries are dropped before rescans
func TestClassifier_PurgesExpiredEntries(t *testing.T) {
	f := newClassifierFixture(t, policy.NewHeavySet(), policy.NewFlatRule(nil, 1), nil)
	f.run(1, "a.exe")
	f.run(2, "b.exe")
	f.run(3, "c.exe")

	f.classifier.ActiveProcessNames()
	require.Equal(t, 3, f.classifier.cacheSize())

	f.kill(1)
	f.kill(2)
	f.kill(3)
	f.clock.Advance(DefaultCacheLifetime)
	f.classifier.ActiveProcessNames()

	assert.Zero(t, f.classifier.cacheSize())
}

// TestClassifier_RecycledPID verifies a recycled pid under the same name is re-checked after expiry
func TestClassifier_RecycledPID(t *testing.T) {
	f := newClassifierFixture(t, policy.NewHeavySet(), policy.NewFlatRule(nil, 1), nil)
	f.run(100, "tool.exe")
	require.True(t, f.classifier.ActiveProcessNames().Has("tool.exe"))

	// Same name and pid come back, this time without a window.
	f.windows.windows = nil
	f.clock.Advance(DefaultCacheLifetime)

	assert.False(t, f.classifier.ActiveProcessNames().Has("tool.exe"))
}

func TestClassifier_HeavyProcesses(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	f := newClassifierFixture(t, policy.NewHeavySet("blender.exe", "unity.exe"), policy.NewFlatRule(nil, 1), zap.New(core))

	assert.False(t, f.classifier.IsHeavyProcessRunning())

	f.run(1, "Blender.exe")
	f.run(2, "unity.exe")
	f.clock.Advance(DefaultCacheLifetime)

	assert.True(t, f.classifier.IsHeavyProcessRunning())
	assert.True(t, f.classifier.IsHeavyProcessRunning())
	assert.Equal(t, []string{"blender.exe", "unity.exe"}, f.classifier.HeavyRunningNames())
	assert.Equal(t, 1, logs.FilterMessage("heavy processes detected").Len())
}

// TestClassifier_TurboFlatRule verifies the render.exe scenario end to end
func TestClassifier_TurboFlatRule(t *testing.T) {
	f := newClassifierFixture(t, policy.NewHeavySet(), policy.NewFlatRule([]string{"render.exe"}, 1), nil)
	f.run(300, "render.exe")

	ok, apps := f.classifier.CheckTurboCondition()

	assert.True(t, ok)
	assert.Equal(t, []string{"render.exe"}, apps)
}

// TestClassifier_TurboLogsOnTupleChange verifies turbo logging compares the full result
func TestClassifier_TurboLogsOnTupleChange(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	rule := policy.NewGroupedRule(policy.NewTurboGroup("games", 1, "a.exe", "b.exe"))
	f := newClassifierFixture(t, policy.NewHeavySet(), rule, zap.New(core))

	f.run(1, "a.exe")
	f.classifier.CheckTurboCondition()
	f.classifier.CheckTurboCondition()
	assert.Equal(t, 1, logs.FilterMessage("turbo condition met").Len())

	f.run(2, "b.exe")
	f.clock.Advance(DefaultCacheLifetime)
	ok, apps := f.classifier.CheckTurboCondition()
	assert.True(t, ok)
	assert.Equal(t, []string{"a.exe", "b.exe"}, apps)
	assert.Equal(t, 2, logs.FilterMessage("turbo condition met").Len(), "same boolean, different names")

	f.kill(1)
	f.kill(2)
	f.clock.Advance(DefaultCacheLifetime)
	ok, apps = f.classifier.CheckTurboCondition()
	assert.False(t, ok)
	assert.Empty(t, apps)
	assert.Equal(t, 1, logs.FilterMessage("turbo condition cleared").Len())
}
