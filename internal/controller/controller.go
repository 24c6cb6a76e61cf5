// Package controller implements the pluggable control-algorithm
// strategy (spec section 4.3): an object providing ComputeAction and
// SetSetpoint, consumed by control agents and by the harness's
// orchestrated run mode.
package controller

import "github.com/openhydro/aquasim/internal/simerr"

// Controller is the strategy interface every control algorithm
// implements.
type Controller interface {
	// ComputeAction returns the next control output given the latest
	// observation and the tick's dt.
	ComputeAction(observation, dt float64) float64
	// SetSetpoint assigns the target value. It does not reset any
	// internal integrator state (spec section 4.3).
	SetSetpoint(value float64)
}

// Config is the declarative description of a controller.
type Config struct {
	ID     string
	Type   string
	Params map[string]float64
}

// Constructor builds a Controller from its declarative Config.
type Constructor func(cfg Config) (Controller, error)

// Registry is the name-to-constructor map used by the scenario loader
// to materialize controllers by type name.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry returns a registry pre-populated with PID, BangBang, and
// MPCFacade.
func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[string]Constructor)}
	r.Register("PID", NewPID)
	r.Register("BangBang", NewBangBang)
	r.Register("MPCFacade", NewMPCFacade)
	return r
}

// Register adds or replaces the constructor for typeName.
func (r *Registry) Register(typeName string, ctor Constructor) {
	r.constructors[typeName] = ctor
}

// New instantiates typeName with cfg, or returns UnknownClass.
func (r *Registry) New(cfg Config) (Controller, error) {
	ctor, ok := r.constructors[cfg.Type]
	if !ok {
		return nil, &simerr.UnknownClass{Family: "controller", Class: cfg.Type}
	}
	return ctor(cfg)
}
