package swap

import (
	"fmt"
)

// Registry holds the configured adapters keyed by provider tag.
type Registry struct {
	adapters map[Provider]Adapter
	order    []Provider
}

// NewRegistry builds a registry from the given adapters. Registration order is
// preserved and used as the display/priority order.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Provider]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, exists := r.adapters[a.Kind()]; exists {
			continue
		}
		r.adapters[a.Kind()] = a
		r.order = append(r.order, a.Kind())
	}
	return r
}

// Get returns the adapter for the given provider tag.
func (r *Registry) Get(p Provider) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q", p)
	}
	return a, nil
}

// ForNetwork returns the adapters that support the given network, in
// registration order.
func (r *Registry) ForNetwork(n Network) []Adapter {
	var out []Adapter
	for _, p := range r.order {
		if a := r.adapters[p]; a.Supports(n) {
			out = append(out, a)
		}
	}
	return out
}
