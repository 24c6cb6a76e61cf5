package component

import "github.com/openhydro/aquasim/internal/simerr"

// Registry is the name-to-constructor map the scenario loader uses to
// materialize components by class name (spec section 9's "dynamic class
// lookup" re-architecture note).
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry returns a registry pre-populated with every component
// class this module ships (Reservoir, Gate, the five Canal sub-models,
// Pipe, Pump, Valve, Turbine). Callers may Register additional classes
// before using it.
func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[string]Constructor)}
	registerBuiltins(r)
	return r
}

// Register adds or replaces the constructor for class. Registration is
// process-wide only in the sense that callers typically do it once at
// registry construction; the registry itself is an ordinary value, not
// global state (spec section 9: "the registry is process-wide but
// read-only after initialization" — here each Harness/ScenarioLoader
// owns its own Registry instance rather than sharing a package global).
func (r *Registry) Register(class string, ctor Constructor) {
	r.constructors[class] = ctor
}

// New instantiates class with cfg and deps, or returns UnknownClass.
func (r *Registry) New(cfg Config, deps Deps) (Component, error) {
	ctor, ok := r.constructors[cfg.Class]
	if !ok {
		return nil, &simerr.UnknownClass{Family: "component", Class: cfg.Class}
	}
	return ctor(cfg, deps)
}

// Classes returns the registered class names, for diagnostics.
func (r *Registry) Classes() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	return names
}
