package policy

import (
	"sort"
)

// Registry holds the turbo groups of a rule, keyed by name.
// Registering a group with an existing name replaces it.
type Registry struct {
	groups map[string]TurboGroup
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		groups: make(map[string]TurboGroup),
	}
}

// NewRegistryWithGroups creates a registry with the given groups.
func NewRegistryWithGroups(groups ...TurboGroup) *Registry {
	r := NewRegistry()
	for _, g := range groups {
		r.Register(g)
	}
	return r
}

// Register adds a group to the registry.
func (r *Registry) Register(g TurboGroup) {
	r.groups[g.Name] = g
}

// GetAll returns all registered groups ordered by name.
func (r *Registry) GetAll() []TurboGroup {
	result := make([]TurboGroup, 0, len(r.groups))
	for _, g := range r.groups {
		result = append(result, g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// List returns all group names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.groups))
	for name := range r.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered groups.
func (r *Registry) Len() int {
	return len(r.groups)
}
