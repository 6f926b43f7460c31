// Package filter normalizes invocation-identifying data (command argv and
// working directory) before it is matched against or persisted to a
// cassette, so volatile values like temp-directory names do not break
// matching across machines or runs.
package filter

import (
	"fmt"
	"sync"
)

// Filter rewrites an invocation's identifying fields. Implementations must
// be pure and idempotent: applying a filter twice yields the same result
// as applying it once.
type Filter interface {
	// Name returns the identifier used in config files.
	Name() string

	// Apply returns the normalized argv and working directory. The input
	// slice must not be mutated.
	Apply(argv []string, dir string) ([]string, string)
}

// Pipeline applies filters left-to-right. The same pipeline runs during
// recording (before persistence) and during replay (before comparison).
type Pipeline []Filter

// Apply runs every filter in order over a copy of argv.
func (p Pipeline) Apply(argv []string, dir string) ([]string, string) {
	out := append([]string(nil), argv...)
	for _, f := range p {
		out, dir = f.Apply(out, dir)
	}
	return out, dir
}

// Registry maps config names to filter constructors.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]func() Filter
}

// NewRegistry creates a registry preloaded with the builtin filters.
func NewRegistry() *Registry {
	r := &Registry{ctors: make(map[string]func() Filter)}
	r.Register("path", func() Filter { return NewPathFilter() })
	r.Register("interpreter", func() Filter { return NewInterpreterFilter() })
	return r
}

// Register adds a named constructor. Later registrations replace earlier
// ones with the same name.
func (r *Registry) Register(name string, ctor func() Filter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[name] = ctor
}

// New constructs the named filter.
func (r *Registry) New(name string) (Filter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.ctors[name]
	if !ok {
		return nil, fmt.Errorf("unknown filter: %q", name)
	}
	return ctor(), nil
}
