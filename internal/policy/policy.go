// Package policy implements the mode-selection rules: which processes count as
// heavy, which combinations of processes trigger turbo, and how those signals
// combine with idleness into a single target mode.
package policy

import (
	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

// FlatGroupName is the group name used when turbo triggers are configured as a flat list.
const FlatGroupName = "turbo_apps"

// DefaultMinMatches is the match threshold when none is configured.
const DefaultMinMatches = 1

// TurboGroup is a named set of process names. The group qualifies when at
// least MinMatches of its members are active.
type TurboGroup struct {
	Name       string
	Members    domain.NameSet
	MinMatches int
}

// NewTurboGroup creates a group; a non-positive threshold becomes DefaultMinMatches.
func NewTurboGroup(name string, minMatches int, members ...string) TurboGroup {
	if minMatches <= 0 {
		minMatches = DefaultMinMatches
	}
	return TurboGroup{
		Name:       name,
		Members:    domain.NewNameSet(members...),
		MinMatches: minMatches,
	}
}

// Match returns the active members of the group and whether the group qualifies.
func (g TurboGroup) Match(active domain.NameSet) (domain.NameSet, bool) {
	matched := g.Members.Intersect(active)
	return matched, matched.Len() > 0 && matched.Len() >= g.MinMatches
}

// HeavySet is the configured set of resource-intensive process names.
type HeavySet struct {
	names domain.NameSet
}

// NewHeavySet builds a heavy-process set (names are lowercased).
func NewHeavySet(names ...string) HeavySet {
	return HeavySet{names: domain.NewNameSet(names...)}
}

// Running returns the heavy processes present in active.
func (h HeavySet) Running(active domain.NameSet) domain.NameSet {
	return h.names.Intersect(active)
}

// Names returns the configured names, sorted.
func (h HeavySet) Names() []string {
	return h.names.Sorted()
}
