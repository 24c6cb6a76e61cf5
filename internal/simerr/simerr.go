// Package simerr defines the error taxonomy shared by the scenario
// loader, the simulation harness, and the message bus. Each kind is a
// distinct struct implementing error so callers can errors.As for the
// tick/component/topic context that produced it, rather than matching
// on error strings.
package simerr

import "fmt"

// InvalidConfig reports a malformed configuration tree.
type InvalidConfig struct {
	Path   string // dotted path within the config, e.g. "simulation_settings.dt"
	Reason string
}

func (e *InvalidConfig) Error() string {
	return fmt.Sprintf("invalid config at %s: %s", e.Path, e.Reason)
}

// UnknownClass reports a class name in config with no registered
// constructor.
type UnknownClass struct {
	Family string // "component", "agent", or "controller"
	Class  string
}

func (e *UnknownClass) Error() string {
	return fmt.Sprintf("unknown %s class %q", e.Family, e.Class)
}

// InvalidParameter reports a parameter value outside its validated
// physical range at construction time.
type InvalidParameter struct {
	ComponentID string
	Name        string
	Value       float64
	Reason      string
}

func (e *InvalidParameter) Error() string {
	return fmt.Sprintf("component %s: parameter %s=%v invalid: %s", e.ComponentID, e.Name, e.Value, e.Reason)
}

// WiringError reports a referenced component or agent ID missing from
// the registry at build time.
type WiringError struct {
	ReferrerID string // the agent/component/controller doing the referencing
	MissingID  string
	Context    string // e.g. "topology edge", "agent config key observed_id"
}

func (e *WiringError) Error() string {
	return fmt.Sprintf("%s: %s references missing id %q (%s)", e.ReferrerID, e.Context, e.MissingID, e.Context)
}

// CycleDetected reports that the topology graph is not a DAG.
type CycleDetected struct {
	Remaining []string // component IDs that could not be ordered
}

func (e *CycleDetected) Error() string {
	return fmt.Sprintf("cycle detected among components: %v", e.Remaining)
}

// CascadeDepthExceeded reports that a publish re-entered the bus beyond
// the configured depth limit.
type CascadeDepthExceeded struct {
	Topic    string
	MaxDepth int
}

func (e *CascadeDepthExceeded) Error() string {
	return fmt.Sprintf("cascade depth exceeded %d while publishing to %q", e.MaxDepth, e.Topic)
}

// HandlerFault records a subscriber callback panic or error. It is
// non-fatal: the bus logs it and continues delivering to the remaining
// subscribers.
type HandlerFault struct {
	Topic       string
	SubscriberID string
	Cause       error
}

func (e *HandlerFault) Error() string {
	return fmt.Sprintf("handler fault: subscriber %s on topic %q: %v", e.SubscriberID, e.Topic, e.Cause)
}

func (e *HandlerFault) Unwrap() error { return e.Cause }

// StepFault reports that a component's step raised, which is fatal to
// the tick and the run.
type StepFault struct {
	Tick        int
	ComponentID string
	Cause       error
}

func (e *StepFault) Error() string {
	return fmt.Sprintf("step fault at tick %d, component %s: %v", e.Tick, e.ComponentID, e.Cause)
}

func (e *StepFault) Unwrap() error { return e.Cause }

// OptimizationTimeout reports that a solver call exceeded its
// configured bound.
type OptimizationTimeout struct {
	AgentID string
	Bound   string // human-readable duration, avoids importing time here
}

func (e *OptimizationTimeout) Error() string {
	return fmt.Sprintf("agent %s: optimization timed out after %s", e.AgentID, e.Bound)
}

// SolverDivergence reports that an iterative hydraulic solver failed to
// converge.
type SolverDivergence struct {
	ComponentID string
	Iterations  int
	Residual    float64
}

func (e *SolverDivergence) Error() string {
	return fmt.Sprintf("component %s: solver failed to converge after %d iterations (residual %g)", e.ComponentID, e.Iterations, e.Residual)
}
