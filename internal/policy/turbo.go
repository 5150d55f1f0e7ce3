package policy

import (
	"slices"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

// TurboResult is the outcome of evaluating a TurboRule.
type TurboResult struct {
	Active bool
	Apps   []string // Sorted union of matched members of qualifying groups
	Groups []string // Names of qualifying groups, sorted
}

// Equal compares the full result tuple.
func (r TurboResult) Equal(o TurboResult) bool {
	return r.Active == o.Active && slices.Equal(r.Apps, o.Apps) && slices.Equal(r.Groups, o.Groups)
}

// TurboRule decides whether the set of active processes indicates
// maximum-performance intent. The canonical shape is a set of named groups;
// a flat trigger list is a single group named FlatGroupName.
type TurboRule struct {
	registry *Registry
}

// NewGroupedRule creates a rule from named groups.
func NewGroupedRule(groups ...TurboGroup) TurboRule {
	return TurboRule{registry: NewRegistryWithGroups(groups...)}
}

// NewFlatRule creates a rule from a flat trigger list. With minMatches <= 1,
// any single trigger qualifies.
func NewFlatRule(apps []string, minMatches int) TurboRule {
	if len(apps) == 0 {
		return TurboRule{registry: NewRegistry()}
	}
	return NewGroupedRule(NewTurboGroup(FlatGroupName, minMatches, apps...))
}

// Groups returns the rule's groups.
func (r TurboRule) Groups() []TurboGroup {
	if r.registry == nil {
		return nil
	}
	return r.registry.GetAll()
}

// GroupNames returns the sorted group names.
func (r TurboRule) GroupNames() []string {
	if r.registry == nil {
		return nil
	}
	return r.registry.List()
}

// Empty reports whether the rule has no groups and can never trigger.
func (r TurboRule) Empty() bool {
	return r.registry == nil || r.registry.Len() == 0
}

// Evaluate checks every group against the active set in one pass.
func (r TurboRule) Evaluate(active domain.NameSet) TurboResult {
	apps := make(domain.NameSet)
	var groups []string

	for _, g := range r.Groups() {
		matched, ok := g.Match(active)
		if !ok {
			continue
		}
		groups = append(groups, g.Name)
		for name := range matched {
			apps[name] = struct{}{}
		}
	}

	if len(groups) == 0 {
		return TurboResult{}
	}
	return TurboResult{
		Active: true,
		Apps:   apps.Sorted(),
		Groups: groups,
	}
}
