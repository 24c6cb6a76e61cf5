package component

import (
	"github.com/openhydro/aquasim/internal/simerr"
	"github.com/openhydro/aquasim/internal/simtypes"
)

// Pump is a rate-limited fractional-speed device whose flow scales
// linearly with its realized speed, capped by rated capacity and
// upstream availability (spec section 4.2).
type Pump struct {
	base
	actuator
	ratedFlow float64
	outflow   float64
}

// NewPump constructs a Pump from Config.
func NewPump(cfg Config, deps Deps) (Component, error) {
	p := &Pump{base: newBase(cfg.ID, cfg.Parameters)}
	p.ratedFlow = p.param("rated_flow", 1.0)
	maxRate := p.param("max_rate_of_change", 1.0)
	p.actuator = newActuator(cfg.InitialState.Get(StateActiveState), maxRate)
	if p.ratedFlow <= 0 {
		return nil, &simerr.InvalidParameter{ComponentID: cfg.ID, Name: "rated_flow", Value: p.ratedFlow, Reason: "must be positive"}
	}
	if deps.Bus != nil {
		for _, topic := range cfg.SubscribesTo {
			t := topic
			deps.Bus.Subscribe(t, cfg.ID, func(_ string, msg simtypes.Message) { p.OnMessage(t, msg) })
		}
	}
	return p, nil
}

func (p *Pump) OnMessage(_ string, msg simtypes.Message) {
	if v, ok := msg.Float("speed"); ok {
		p.setTarget(v)
		return
	}
	if v, ok := msg.Float("control_signal"); ok {
		p.setTarget(v)
	}
}

func (p *Pump) State() simtypes.Scalars {
	return simtypes.Scalars{
		StateActiveState: p.state,
		StateOutflow:     p.outflow,
		StateFlow:        p.outflow,
		StateInflow:      p.extraInflow,
	}.Clone()
}

func (p *Pump) SetState(key string, value float64) {
	if key == StateActiveState {
		p.state = clamp(value, 0, 1)
	}
}

func (p *Pump) Step(action simtypes.Scalars, dt float64) (simtypes.Scalars, error) {
	if dt <= 0 {
		return nil, &simerr.InvalidParameter{ComponentID: p.id, Name: "dt", Value: dt, Reason: "must be positive"}
	}
	speed := p.advance(action, dt)
	available := action.Get(ActionInflow) + p.extraInflow
	p.outflow = cappedFlow(speed*p.ratedFlow, available)
	return p.State(), nil
}
