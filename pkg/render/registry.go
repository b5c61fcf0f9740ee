package render

import (
	"fmt"
	"sort"
	"sync"
)

// Registry stores toolkits by name so hosts can pick an output at runtime
// (for example "html" or "tui").
type Registry struct {
	mu       sync.RWMutex
	toolkits map[string]Toolkit
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{toolkits: make(map[string]Toolkit)}
}

// Register adds a toolkit by its Name(). Duplicate names return an error.
func (r *Registry) Register(toolkit Toolkit) error {
	if toolkit == nil {
		return fmt.Errorf("render: toolkit is required")
	}
	name := toolkit.Name()
	if name == "" {
		return fmt.Errorf("render: toolkit name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.toolkits[name]; exists {
		return fmt.Errorf("render: toolkit %q already registered", name)
	}
	r.toolkits[name] = toolkit
	return nil
}

// MustRegister panics on registration failure.
func (r *Registry) MustRegister(toolkit Toolkit) {
	if err := r.Register(toolkit); err != nil {
		panic(err)
	}
}

// Dispatcher builds a dispatcher for the named toolkit.
func (r *Registry) Dispatcher(name string) (*Dispatcher, error) {
	r.mu.RLock()
	toolkit, ok := r.toolkits[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: toolkit %q", ErrStrategyNotFound, name)
	}
	return NewDispatcherFor(toolkit)
}

// List returns a sorted list of toolkit names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.toolkits))
	for name := range r.toolkits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
