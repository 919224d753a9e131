// Package factory provides a registry of named implementation
// constructors, used by the graph builder and context router to turn an
// instance's type name and init parameters into a concrete component
// value (spec.md §4.2, grounded on original_source's NodeRegistration /
// ImplementationFactory shape).
package factory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vdodev-go/flowmesh/errs"
	"github.com/vdodev-go/flowmesh/param"
)

// Constructor builds a concrete implementation from its init
// parameters. Returned values are expected to satisfy one or more of
// the component package's capability interfaces.
type Constructor func(initParameters param.Parameters) (any, error)

// Registration describes one named, constructible implementation type.
type Registration struct {
	// Name is the type name instances reference (spec.md §4.2's
	// "type" field).
	Name string
	// Description is a short human-readable summary for diagnostics.
	// It is stored with the registration; Registry.List returns names
	// only, and dot export does not read it.
	Description string
	// New constructs a new implementation instance.
	New Constructor
}

// Registry is a concurrency-safe store of Registrations keyed by name.
// The zero value is not usable; construct one with NewRegistry.
type Registry struct {
	mu   sync.RWMutex
	regs map[string]Registration
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{regs: make(map[string]Registration)}
}

// Register adds r to the registry. Registering a name that already
// exists returns errs.ErrAlreadyExists.
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" {
		return fmt.Errorf("factory: registration has empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.regs[reg.Name]; exists {
		return errs.Wrap(fmt.Sprintf("registering implementation %q", reg.Name), errs.ErrAlreadyExists)
	}
	r.regs[reg.Name] = reg
	return nil
}

// MustRegister is Register but panics on error; intended for package
// init functions registering built-in node types, where a failure is a
// programming error, not a runtime condition.
func (r *Registry) MustRegister(reg Registration) {
	if err := r.Register(reg); err != nil {
		panic(err)
	}
}

// New constructs a new implementation instance of the named type,
// returning errs.ErrMissingFactory if no such type is registered.
func (r *Registry) New(typeName string, initParameters param.Parameters) (any, error) {
	r.mu.RLock()
	reg, ok := r.regs[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.Wrap(fmt.Sprintf("constructing implementation %q", typeName), errs.ErrMissingFactory)
	}
	return reg.New(initParameters)
}

// Has reports whether typeName is registered.
func (r *Registry) Has(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.regs[typeName]
	return ok
}

// List returns all registered type names in lexical order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.regs))
	for name := range r.regs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
