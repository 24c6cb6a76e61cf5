// Package component defines the physical-model abstraction (spec
// section 4.2): components own local state, expose Step(action, dt), and
// optionally react to bus messages. Concrete components live alongside
// this file, one per canonical hydraulic element (reservoir, gate,
// canal, pipe, pump, valve, turbine).
package component

import (
	"log/slog"

	"github.com/openhydro/aquasim/internal/bus"
	"github.com/openhydro/aquasim/internal/simtypes"
)

// Standard action keys the harness populates in Phase B. Components read
// these with simtypes.Scalars.Get, which treats a missing key as zero
// (spec section 4.2's failure semantics for ill-formed actions).
const (
	ActionDT                = "dt"
	ActionInflow            = "inflow"
	ActionUpstreamHead      = "upstream_head"
	ActionDownstreamHead    = "downstream_head"
	ActionDownstreamOutflow = "downstream_outflow"
	ActionControlSignal     = "control_signal"
)

// Standard state keys produced by most components.
const (
	StateVolume      = "volume"
	StateWaterLevel  = "water_level"
	StateHead        = "head"
	StateOutflow     = "outflow"
	StateInflow      = "inflow"
	StateOpening     = "opening"
	StateFlow        = "flow"
	StateControl     = "control"
	StateActiveState = "active" // 1.0 = on/open, 0.0 = off/closed
)

// Component is the contract every physical model satisfies (spec
// section 4.2).
type Component interface {
	ID() string
	Parameters() simtypes.Scalars
	State() simtypes.Scalars
	Step(action simtypes.Scalars, dt float64) (simtypes.Scalars, error)
	SetInflow(value float64)
	SetState(key string, value float64)
}

// HasVolume is implemented by components that own a non-negative
// volume, so the harness and tests can check the universal invariant
// (spec section 3: "A Component's volume, if it has one, is >= 0 at the
// end of every step") without a type switch per component kind.
type HasVolume interface {
	Component
	Volume() float64
}

// Reactive is implemented by bus-aware components (gates, pumps, valves,
// turbines): on receiving an action message, the component updates a
// target_* field that its next Step moves toward, subject to rate
// limits (spec section 4.2).
type Reactive interface {
	Component
	OnMessage(topic string, msg simtypes.Message)
}

// Identifiable is implemented by components whose physical parameters
// can be re-estimated from observed input/output samples at runtime
// (spec section 4.4's ParameterIdentificationAgent). Each batch entry is
// one input/observation sample the agent collected from a bus message;
// the interpretation of its keys is up to the implementing component.
type Identifiable interface {
	Component
	IdentifyParameters(batch []simtypes.Scalars) error
}

// NetworkSolverAware is implemented only by the canal component, whose
// RequiresNetworkSolver reports true for the st_venant model. The
// harness does not consult it and has no way to attach a NetworkSolver:
// a st_venant canal's own Step returns a StepFault, so a run that
// includes one fails at its first tick.
type NetworkSolverAware interface {
	Component
	RequiresNetworkSolver() bool
}

// Config is the declarative description of one component, produced by
// the scenario loader and handed to a Constructor.
type Config struct {
	ID           string
	Class        string
	Parameters   simtypes.Scalars
	InitialState simtypes.Scalars
	// SubscribesTo lists topics this component's OnMessage should
	// receive, wired by the scenario loader at construction time.
	SubscribesTo []string
	// Extra carries class-specific fields the generic Config does not
	// model directly (e.g. canal model_type, storage curve tables).
	Extra map[string]any
}

// Deps are the collaborators a Constructor may need.
type Deps struct {
	Bus    *bus.Bus
	Logger *slog.Logger
}

// Constructor builds a Component from its declarative Config.
type Constructor func(cfg Config, deps Deps) (Component, error)

// base holds the fields every component shares: identity, parameters,
// and the bus-driven target/diagnostic plumbing. Concrete components
// embed base and add their own physical state.
type base struct {
	id         string
	parameters simtypes.Scalars
	extraInflow float64 // set via SetInflow / disturbance messages
}

func newBase(id string, params simtypes.Scalars) base {
	if params == nil {
		params = simtypes.Scalars{}
	}
	return base{id: id, parameters: params}
}

func (b *base) ID() string                      { return b.id }
func (b *base) Parameters() simtypes.Scalars     { return b.parameters.Clone() }
func (b *base) SetInflow(value float64)          { b.extraInflow = value }
func (b *base) param(name string, def float64) float64 {
	if v, ok := b.parameters[name]; ok {
		return v
	}
	return def
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// moveToward advances current toward target by at most maxDelta (always
// non-negative), used by every rate-limited actuator (gate opening,
// pump/valve/turbine fractional state).
func moveToward(current, target, maxDelta float64) float64 {
	if maxDelta < 0 {
		maxDelta = 0
	}
	delta := target - current
	if delta > maxDelta {
		delta = maxDelta
	} else if delta < -maxDelta {
		delta = -maxDelta
	}
	return current + delta
}
