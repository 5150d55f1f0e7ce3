package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

// TestFlatRule_SingleTrigger verifies that any single trigger qualifies with threshold 1
func TestFlatRule_SingleTrigger(t *testing.T) {
	rule := NewFlatRule([]string{"render.exe"}, 1)

	result := rule.Evaluate(domain.NewNameSet("render.exe", "notepad.exe"))

	assert.True(t, result.Active)
	assert.Equal(t, []string{"render.exe"}, result.Apps)
	assert.Equal(t, []string{FlatGroupName}, result.Groups)
}

// TestFlatRule_CaseInsensitiveConfig verifies configured names are lowercased
func TestFlatRule_CaseInsensitiveConfig(t *testing.T) {
	rule := NewFlatRule([]string{" Render.EXE "}, 1)

	result := rule.Evaluate(domain.NewNameSet("render.exe"))

	assert.True(t, result.Active)
}

// TestFlatRule_Empty verifies an empty rule never qualifies
func TestFlatRule_Empty(t *testing.T) {
	rule := NewFlatRule(nil, 1)

	result := rule.Evaluate(domain.NewNameSet("render.exe"))

	assert.False(t, result.Active)
	assert.Empty(t, result.Apps)
	assert.Empty(t, rule.Groups())
}

func TestGroupedRule_Threshold(t *testing.T) {
	rule := NewGroupedRule(
		NewTurboGroup("creative", 2, "blender.exe", "photoshop.exe", "premiere.exe"),
		NewTurboGroup("games", 1, "game.exe"),
	)

	tests := []struct {
		name       string
		active     domain.NameSet
		wantActive bool
		wantApps   []string
		wantGroups []string
	}{
		{
			name:       "nothing running",
			active:     domain.NewNameSet(),
			wantActive: false,
		},
		{
			name:       "one creative app below threshold",
			active:     domain.NewNameSet("blender.exe", "explorer.exe"),
			wantActive: false,
		},
		{
			name:       "two creative apps meet threshold",
			active:     domain.NewNameSet("blender.exe", "premiere.exe"),
			wantActive: true,
			wantApps:   []string{"blender.exe", "premiere.exe"},
			wantGroups: []string{"creative"},
		},
		{
			name:       "both groups qualify",
			active:     domain.NewNameSet("blender.exe", "photoshop.exe", "game.exe"),
			wantActive: true,
			wantApps:   []string{"blender.exe", "game.exe", "photoshop.exe"},
			wantGroups: []string{"creative", "games"},
		},
		{
			name:       "below-threshold group does not leak names",
			active:     domain.NewNameSet("blender.exe", "game.exe"),
			wantActive: true,
			wantApps:   []string{"game.exe"},
			wantGroups: []string{"games"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := rule.Evaluate(tt.active)

			assert.Equal(t, tt.wantActive, result.Active)
			if tt.wantActive {
				assert.Equal(t, tt.wantApps, result.Apps)
				assert.Equal(t, tt.wantGroups, result.Groups)
			} else {
				assert.Empty(t, result.Apps)
			}
		})
	}
}

// TestNewTurboGroup_DefaultThreshold verifies non-positive thresholds default to 1
func TestNewTurboGroup_DefaultThreshold(t *testing.T) {
	g := NewTurboGroup("g", 0, "a.exe")
	assert.Equal(t, DefaultMinMatches, g.MinMatches)

	_, ok := g.Match(domain.NewNameSet("a.exe"))
	assert.True(t, ok)
}

func TestTurboResult_Equal(t *testing.T) {
	a := TurboResult{Active: true, Apps: []string{"a.exe"}, Groups: []string{"g"}}

	assert.True(t, a.Equal(TurboResult{Active: true, Apps: []string{"a.exe"}, Groups: []string{"g"}}))
	assert.False(t, a.Equal(TurboResult{Active: true, Apps: []string{"b.exe"}, Groups: []string{"g"}}))
	assert.False(t, a.Equal(TurboResult{}))
	assert.False(t, a.Equal(TurboResult{Active: true, Apps: []string{"a.exe", "b.exe"}, Groups: []string{"g"}}))
	assert.True(t, TurboResult{}.Equal(TurboResult{Apps: []string{}, Groups: []string{}}), "nil and empty match")
}

func TestHeavySet_Running(t *testing.T) {
	heavy := NewHeavySet("Blender.exe", "unity.exe")

	running := heavy.Running(domain.NewNameSet("blender.exe", "notepad.exe"))

	assert.Equal(t, []string{"blender.exe"}, running.Sorted())
	assert.Equal(t, []string{"blender.exe", "unity.exe"}, heavy.Names())
}

// TestTurboRule_GroupNames verifies group listing and emptiness for each rule shape
func TestTurboRule_GroupNames(t *testing.T) {
	tests := []struct {
		name      string
		rule      TurboRule
		wantNames []string
		wantEmpty bool
	}{
		{name: "zero value", rule: TurboRule{}, wantNames: nil, wantEmpty: true},
		{name: "empty flat list", rule: NewFlatRule(nil, 1), wantNames: []string{}, wantEmpty: true},
		{name: "flat list", rule: NewFlatRule([]string{"a.exe"}, 1), wantNames: []string{FlatGroupName}},
		{
			name:      "groups",
			rule:      NewGroupedRule(NewTurboGroup("video", 2, "a.exe", "b.exe"), NewTurboGroup("audio", 1, "c.exe")),
			wantNames: []string{"audio", "video"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantNames, tt.rule.GroupNames())
			assert.Equal(t, tt.wantEmpty, tt.rule.Empty())
		})
	}
}
