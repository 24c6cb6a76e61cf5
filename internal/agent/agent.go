// Package agent implements the multi-agent system of spec section 4.4:
// perception, local control, station coordination, central dispatch,
// disturbance injection, scenario scripting, and parameter
// identification. Every variant implements Run(currentTime); most do
// their real work through bus callbacks registered at construction,
// exactly as the harness's Phase A expects (spec section 4.5).
package agent

import (
	"log/slog"

	"github.com/openhydro/aquasim/internal/bus"
	"github.com/openhydro/aquasim/internal/component"
	"github.com/openhydro/aquasim/internal/controller"
	"github.com/openhydro/aquasim/internal/simerr"
)

// Agent is the contract every MAS participant satisfies.
type Agent interface {
	ID() string
	// Run is called once per tick, in registration order, during Phase A.
	// Most agents do nothing here beyond what their bus subscriptions
	// already triggered; disturbance, scenario, and perception agents use
	// Run itself to decide whether to publish this tick.
	Run(currentTime float64)
}

// Config is the declarative description of one agent, produced by the
// scenario loader. Params is intentionally loosely typed (unlike
// component.Config's float-only Parameters) because agent wiring mixes
// topic names, component IDs, string lists, and numeric gains.
type Config struct {
	ID     string
	Type   string
	Params map[string]any
}

// Str returns a string param, or "" if absent or not a string.
func (c Config) Str(key string) string {
	v, ok := c.Params[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Float returns a numeric param, or def if absent or not numeric.
func (c Config) Float(key string, def float64) float64 {
	switch n := c.Params[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return def
}

// StrSlice returns a param as a string slice. Accepts []string directly
// (constructed in Go) or []any (decoded from YAML/JSON).
func (c Config) StrSlice(key string) []string {
	switch v := c.Params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Deps are the collaborators an agent constructor may need.
type Deps struct {
	Bus        *bus.Bus
	Components map[string]component.Component
	Controllers *controller.Registry
	Logger     *slog.Logger
}

// componentByID resolves a config's component_id-style field against the
// component registry, returning WiringError if it is missing.
func componentByID(deps Deps, agentID, field, id string) (component.Component, error) {
	c, ok := deps.Components[id]
	if !ok {
		return nil, &simerr.WiringError{ReferrerID: agentID, MissingID: id, Context: field}
	}
	return c, nil
}

// Constructor builds an Agent from its declarative Config and Deps.
type Constructor func(cfg Config, deps Deps) (Agent, error)

// Registry is the name-to-constructor map used by the scenario loader.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry returns a registry pre-populated with every agent class
// this module ships.
func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[string]Constructor)}
	registerBuiltins(r)
	return r
}

// Register adds or replaces the constructor for typeName.
func (r *Registry) Register(typeName string, ctor Constructor) {
	r.constructors[typeName] = ctor
}

// New instantiates typeName with cfg, or returns UnknownClass.
func (r *Registry) New(cfg Config, deps Deps) (Agent, error) {
	ctor, ok := r.constructors[cfg.Type]
	if !ok {
		return nil, &simerr.UnknownClass{Family: "agent", Class: cfg.Type}
	}
	return ctor(cfg, deps)
}

// Classes returns the registered type names, for diagnostics.
func (r *Registry) Classes() []string {
	out := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		out = append(out, name)
	}
	return out
}
