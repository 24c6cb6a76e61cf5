package component

import (
	"math"

	"github.com/openhydro/aquasim/internal/simerr"
	"github.com/openhydro/aquasim/internal/simtypes"
)

const gravity = 9.81

// Gate implements the orifice-flow model of spec section 4.2: outflow
// depends only on its own opening and the upstream/downstream heads, so
// unlike Reservoir it never needs the previous-tick downstream_outflow
// trick — its physics are already current-tick, head-driven.
type Gate struct {
	base

	width          float64
	dischargeCoeff float64
	maxOpening     float64
	maxRate        float64

	opening       float64
	targetOpening float64
	outflow       float64
}

// NewGate constructs a Gate from Config.
func NewGate(cfg Config, deps Deps) (Component, error) {
	g := &Gate{base: newBase(cfg.ID, cfg.Parameters)}
	g.width = g.param("width", 1.0)
	g.dischargeCoeff = g.param("discharge_coefficient", 0.6)
	g.maxOpening = g.param("max_opening", 1.0)
	g.maxRate = g.param("max_rate_of_change", 0.1)
	if g.maxOpening <= 0 {
		return nil, &simerr.InvalidParameter{ComponentID: cfg.ID, Name: "max_opening", Value: g.maxOpening, Reason: "must be positive"}
	}

	g.opening = clamp(cfg.InitialState.Get(StateOpening), 0, g.maxOpening)
	g.targetOpening = g.opening

	if deps.Bus != nil {
		for _, topic := range cfg.SubscribesTo {
			t := topic
			deps.Bus.Subscribe(t, cfg.ID, func(_ string, msg simtypes.Message) { g.OnMessage(t, msg) })
		}
	}
	return g, nil
}

// OnMessage accepts either a direct target_opening or a control_signal
// in [0,1] scaled to max_opening (spec section 4.2: "Target opening
// comes from control_signal (direct) or from action-topic messages").
func (g *Gate) OnMessage(_ string, msg simtypes.Message) {
	if v, ok := msg.Float("target_opening"); ok {
		g.targetOpening = clamp(v, 0, g.maxOpening)
		return
	}
	if v, ok := msg.Float("control_signal"); ok {
		g.targetOpening = clamp(v*g.maxOpening, 0, g.maxOpening)
	}
}

func (g *Gate) State() simtypes.Scalars {
	return simtypes.Scalars{
		StateOpening: g.opening,
		StateOutflow: g.outflow,
		StateFlow:    g.outflow,
		StateInflow:  g.extraInflow,
	}.Clone()
}

func (g *Gate) SetState(key string, value float64) {
	if key == StateOpening {
		g.opening = clamp(value, 0, g.maxOpening)
	}
}

func (g *Gate) Step(action simtypes.Scalars, dt float64) (simtypes.Scalars, error) {
	if dt <= 0 {
		return nil, &simerr.InvalidParameter{ComponentID: g.id, Name: "dt", Value: dt, Reason: "must be positive"}
	}

	target := g.targetOpening
	if v, ok := actionControlSignal(action); ok {
		target = clamp(v*g.maxOpening, 0, g.maxOpening)
	}

	maxDelta := g.maxRate * dt
	g.opening = clamp(moveToward(g.opening, target, maxDelta), 0, g.maxOpening)

	hUp := action.Get(ActionUpstreamHead)
	hDown := action.Get(ActionDownstreamHead)
	g.outflow = orificeFlow(g.dischargeCoeff, g.width, g.opening, hUp, hDown)

	return g.State(), nil
}

// orificeFlow computes Q = Cd * W * opening * sqrt(2g * (h_up - h_down)),
// clamped to zero for no-reverse-flow (spec section 4.2).
func orificeFlow(cd, width, opening, hUp, hDown float64) float64 {
	if hUp <= hDown {
		return 0
	}
	return cd * width * opening * math.Sqrt(2*gravity*(hUp-hDown))
}
