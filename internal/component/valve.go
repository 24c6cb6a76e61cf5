package component

import (
	"math"

	"github.com/openhydro/aquasim/internal/simerr"
	"github.com/openhydro/aquasim/internal/simtypes"
)

// Valve is a rate-limited fractional-opening device whose flow follows
// a square-root head-loss characteristic scaled by its opening fraction
// (spec section 4.2).
type Valve struct {
	base
	actuator
	cv      float64 // flow coefficient
	outflow float64
}

// NewValve constructs a Valve from Config.
func NewValve(cfg Config, deps Deps) (Component, error) {
	v := &Valve{base: newBase(cfg.ID, cfg.Parameters)}
	v.cv = v.param("flow_coefficient", 1.0)
	maxRate := v.param("max_rate_of_change", 1.0)
	v.actuator = newActuator(cfg.InitialState.Get(StateOpening), maxRate)
	if v.cv <= 0 {
		return nil, &simerr.InvalidParameter{ComponentID: cfg.ID, Name: "flow_coefficient", Value: v.cv, Reason: "must be positive"}
	}
	if deps.Bus != nil {
		for _, topic := range cfg.SubscribesTo {
			t := topic
			deps.Bus.Subscribe(t, cfg.ID, func(_ string, msg simtypes.Message) { v.OnMessage(t, msg) })
		}
	}
	return v, nil
}

func (v *Valve) OnMessage(_ string, msg simtypes.Message) {
	if val, ok := msg.Float("target_opening"); ok {
		v.setTarget(val)
		return
	}
	if val, ok := msg.Float("control_signal"); ok {
		v.setTarget(val)
	}
}

func (v *Valve) State() simtypes.Scalars {
	return simtypes.Scalars{
		StateOpening: v.state,
		StateOutflow: v.outflow,
		StateFlow:    v.outflow,
		StateInflow:  v.extraInflow,
	}.Clone()
}

func (v *Valve) SetState(key string, value float64) {
	if key == StateOpening {
		v.state = clamp(value, 0, 1)
	}
}

func (v *Valve) Step(action simtypes.Scalars, dt float64) (simtypes.Scalars, error) {
	if dt <= 0 {
		return nil, &simerr.InvalidParameter{ComponentID: v.id, Name: "dt", Value: dt, Reason: "must be positive"}
	}
	opening := v.advance(action, dt)
	hUp := action.Get(ActionUpstreamHead)
	hDown := action.Get(ActionDownstreamHead)
	diff := hUp - hDown
	if diff < 0 {
		diff = 0
	}
	requested := v.cv * opening * math.Sqrt(diff)
	available := action.Get(ActionInflow) + v.extraInflow
	v.outflow = cappedFlow(requested, available)
	return v.State(), nil
}
