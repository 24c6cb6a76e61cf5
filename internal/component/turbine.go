package component

import (
	"github.com/openhydro/aquasim/internal/simerr"
	"github.com/openhydro/aquasim/internal/simtypes"
)

const waterDensity = 1000.0 // kg/m^3

// Turbine is a rate-limited hydropower device: flow is commanded
// fractionally like Pump/Valve, capped by rated flow and upstream
// availability (this tick's inflow), and power output is derived from
// flow and head (spec section 4.2).
type Turbine struct {
	base
	actuator
	ratedFlow float64
	efficiency float64
	outflow   float64
	power     float64
}

// NewTurbine constructs a Turbine from Config.
func NewTurbine(cfg Config, deps Deps) (Component, error) {
	t := &Turbine{base: newBase(cfg.ID, cfg.Parameters)}
	t.ratedFlow = t.param("rated_flow", 1.0)
	t.efficiency = t.param("efficiency", 0.9)
	maxRate := t.param("max_rate_of_change", 1.0)
	t.actuator = newActuator(cfg.InitialState.Get(StateActiveState), maxRate)
	if t.ratedFlow <= 0 {
		return nil, &simerr.InvalidParameter{ComponentID: cfg.ID, Name: "rated_flow", Value: t.ratedFlow, Reason: "must be positive"}
	}
	if deps.Bus != nil {
		for _, topic := range cfg.SubscribesTo {
			tt := topic
			deps.Bus.Subscribe(tt, cfg.ID, func(_ string, msg simtypes.Message) { t.OnMessage(tt, msg) })
		}
	}
	return t, nil
}

func (t *Turbine) OnMessage(_ string, msg simtypes.Message) {
	if v, ok := msg.Float("gate_opening"); ok {
		t.setTarget(v)
		return
	}
	if v, ok := msg.Float("control_signal"); ok {
		t.setTarget(v)
	}
}

func (t *Turbine) State() simtypes.Scalars {
	return simtypes.Scalars{
		StateActiveState: t.state,
		StateOutflow:     t.outflow,
		StateFlow:        t.outflow,
		StateInflow:      t.extraInflow,
		"power":          t.power,
	}.Clone()
}

func (t *Turbine) SetState(key string, value float64) {
	if key == StateActiveState {
		t.state = clamp(value, 0, 1)
	}
}

func (t *Turbine) Step(action simtypes.Scalars, dt float64) (simtypes.Scalars, error) {
	if dt <= 0 {
		return nil, &simerr.InvalidParameter{ComponentID: t.id, Name: "dt", Value: dt, Reason: "must be positive"}
	}
	gateOpening := t.advance(action, dt)
	available := action.Get(ActionInflow) + t.extraInflow
	t.outflow = cappedFlow(gateOpening*t.ratedFlow, available)

	head := action.Get(ActionUpstreamHead) - action.Get(ActionDownstreamHead)
	if head < 0 {
		head = 0
	}
	t.power = t.efficiency * waterDensity * gravity * t.outflow * head / 1e6 // MW

	return t.State(), nil
}
