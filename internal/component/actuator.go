package component

import "github.com/openhydro/aquasim/internal/simtypes"

// actuator is the shared rate-limited fractional-state plumbing for
// Pump, Valve, and Turbine (spec section 4.2: "On/off or fractional
// device with rate-limited actuation; flow computed from a
// characteristic expression constrained by upstream availability and
// device limits"). Each device type differs only in its flow
// characteristic, applied by the embedding type's Step.
type actuator struct {
	maxRate float64 // max |state| change per unit time

	state       float64 // current fractional state in [0,1]
	targetState float64
}

func newActuator(initial, maxRate float64) actuator {
	return actuator{maxRate: maxRate, state: clamp(initial, 0, 1), targetState: clamp(initial, 0, 1)}
}

func (a *actuator) setTarget(v float64) {
	a.targetState = clamp(v, 0, 1)
}

// advance moves the actuator's realized state toward its target by at
// most maxRate*dt, honoring an action-supplied control_signal override
// used by orchestrated mode (no agents).
func (a *actuator) advance(action simtypes.Scalars, dt float64) float64 {
	target := a.targetState
	if v, ok := actionControlSignal(action); ok {
		target = clamp(v, 0, 1)
	}
	a.state = clamp(moveToward(a.state, target, a.maxRate*dt), 0, 1)
	return a.state
}

// cappedFlow returns a flow request capped by the upstream availability
// (this tick's inflow) so a device never draws more than what the
// network actually delivers.
func cappedFlow(requested, available float64) float64 {
	if requested < 0 {
		return 0
	}
	if available >= 0 && requested > available {
		return available
	}
	return requested
}
