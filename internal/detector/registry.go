package detector

import (
	"fmt"
	"sync"
)

// Registry holds checks in registration order.
type Registry struct {
	mu     sync.RWMutex
	checks map[string]Check
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		checks: make(map[string]Check),
		order:  make([]string, 0),
	}
}

// Register appends a check. Names must be unique.
func (r *Registry) Register(c Check) error {
	if c == nil {
		return fmt.Errorf("cannot register nil check")
	}

	name := c.Name()
	if name == "" {
		return fmt.Errorf("check name cannot be empty")
	}

	switch c.(type) {
	case ColumnCheck, DatasetCheck:
	default:
		return fmt.Errorf("check %s implements neither ColumnCheck nor DatasetCheck", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.checks[name]; exists {
		return fmt.Errorf("check %s already registered", name)
	}

	r.checks[name] = c
	r.order = append(r.order, name)
	return nil
}

// Get retrieves a check by name.
func (r *Registry) Get(name string) (Check, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.checks[name]
	if !exists {
		return nil, fmt.Errorf("check %s: %w", name, ErrUnknownCheck)
	}
	return c, nil
}

// Has reports whether a check is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.checks[name]
	return exists
}

// List returns all checks in registration order.
func (r *Registry) List() []Check {
	r.mu.RLock()
	defer r.mu.RUnlock()

	checks := make([]Check, 0, len(r.order))
	for _, name := range r.order {
		checks = append(checks, r.checks[name])
	}
	return checks
}

// Names returns registered check names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Select returns the registered checks whose names appear in enabled, in
// registration order. An empty list selects everything.
func (r *Registry) Select(enabled []string) ([]Check, error) {
	all := r.List()
	if len(enabled) == 0 {
		return all, nil
	}

	want := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		if !r.Has(name) {
			return nil, fmt.Errorf("check %q: %w", name, ErrUnknownCheck)
		}
		want[name] = true
	}

	selected := make([]Check, 0, len(want))
	for _, c := range all {
		if want[c.Name()] {
			selected = append(selected, c)
		}
	}
	return selected, nil
}
