package shader

import (
	"fmt"
	"slices"
	"sync"
)

// Registry maps labels to programs. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	programs map[string]*Program
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{programs: make(map[string]*Program)}
}

// Register adds p under its label.
func (r *Registry) Register(p *Program) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.programs[p.Label()]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateProgram, p.Label())
	}
	r.programs[p.Label()] = p
	return nil
}

// Lookup returns the program registered under label.
func (r *Registry) Lookup(label string) (*Program, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.programs[label]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProgram, label)
	}
	return p, nil
}

// MustLookup is Lookup for labels known to be registered. It panics
// otherwise.
func (r *Registry) MustLookup(label string) *Program {
	p, err := r.Lookup(label)
	if err != nil {
		panic(err)
	}
	return p
}

// Labels returns the registered labels in sorted order.
func (r *Registry) Labels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	labels := make([]string, 0, len(r.programs))
	for l := range r.programs {
		labels = append(labels, l)
	}
	slices.Sort(labels)
	return labels
}

// Len returns the number of registered programs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.programs)
}
