package component

import (
	"fmt"

	"github.com/openhydro/aquasim/internal/simerr"
	"github.com/openhydro/aquasim/internal/simtypes"
)

// Canal model types (spec section 4.2: "Five selectable sub-models").
const (
	CanalIntegral          = "integral"
	CanalIntegralDelay     = "integral_delay"
	CanalIntegralDelayZero = "integral_delay_zero"
	CanalLinearReservoir   = "linear_reservoir"
	CanalStVenant          = "st_venant"
)

// Canal is the unified, model-type-selectable canal component. The
// first four sub-models run through the ordinary Step loop; st_venant
// instead exposes GetEquations/UpdateState for a NetworkSolver and must
// never be driven by Step directly (spec section 4.2).
type Canal struct {
	base

	model string

	// integral / integral_delay / integral_delay_zero / linear_reservoir
	surfaceArea     float64
	storageConstant float64
	delaySteps      int
	zeroCoeff       float64
	delayBuf        []float64

	volume     float64
	waterLevel float64
	outflow    float64

	// st_venant: opaque equation/state snapshot handed to a NetworkSolver
	// collaborator; this module does not implement the solver itself
	// (spec section 1's Non-goals: "general-purpose differential-equation
	// solving").
	stVenantState map[string]float64
}

// NewCanal constructs a Canal from Config. cfg.Extra["model_type"]
// selects the sub-model; it defaults to "integral".
func NewCanal(cfg Config, deps Deps) (Component, error) {
	c := &Canal{base: newBase(cfg.ID, cfg.Parameters)}
	c.model = CanalIntegral
	if mt, ok := cfg.Extra["model_type"].(string); ok && mt != "" {
		c.model = mt
	}
	switch c.model {
	case CanalIntegral, CanalIntegralDelay, CanalIntegralDelayZero, CanalLinearReservoir, CanalStVenant:
	default:
		return nil, &simerr.InvalidParameter{ComponentID: cfg.ID, Name: "model_type", Reason: fmt.Sprintf("unknown canal model %q", c.model)}
	}

	c.surfaceArea = c.param("surface_area", 1.0)
	c.storageConstant = c.param("storage_constant", 1.0)
	c.delaySteps = int(c.param("delay_steps", 0))
	c.zeroCoeff = c.param("zero_coefficient", 0.3)
	if c.delaySteps > 0 {
		c.delayBuf = make([]float64, c.delaySteps)
	}

	c.volume = cfg.InitialState.Get(StateVolume)
	c.waterLevel = cfg.InitialState.Get(StateWaterLevel)
	if c.waterLevel == 0 && c.surfaceArea > 0 {
		c.waterLevel = c.volume / c.surfaceArea
	}
	if c.model == CanalStVenant {
		c.stVenantState = map[string]float64{"head": c.waterLevel, "flow": 0}
	}

	if deps.Bus != nil {
		for _, topic := range cfg.SubscribesTo {
			t := topic
			deps.Bus.Subscribe(t, cfg.ID, func(_ string, msg simtypes.Message) { c.OnMessage(t, msg) })
		}
	}
	return c, nil
}

func (c *Canal) OnMessage(_ string, msg simtypes.Message) {
	if v, ok := msg.Float("inflow_rate"); ok {
		c.SetInflow(v)
	}
}

func (c *Canal) Volume() float64 { return c.volume }

// RequiresNetworkSolver reports true only for the st_venant model.
func (c *Canal) RequiresNetworkSolver() bool { return c.model == CanalStVenant }

func (c *Canal) State() simtypes.Scalars {
	s := simtypes.Scalars{
		StateVolume:     c.volume,
		StateWaterLevel: c.waterLevel,
		StateHead:       c.waterLevel,
		StateOutflow:    c.outflow,
		StateInflow:     c.extraInflow,
	}
	return s.Clone()
}

func (c *Canal) SetState(key string, value float64) {
	switch key {
	case StateVolume:
		c.volume = value
		if c.surfaceArea > 0 {
			c.waterLevel = value / c.surfaceArea
		}
	case StateWaterLevel:
		c.waterLevel = value
		c.volume = value * c.surfaceArea
	}
}

func (c *Canal) Step(action simtypes.Scalars, dt float64) (simtypes.Scalars, error) {
	if c.model == CanalStVenant {
		return nil, &simerr.StepFault{ComponentID: c.id, Cause: fmt.Errorf("st_venant canal must be driven by a NetworkSolver, not Step")}
	}
	if dt <= 0 {
		return nil, &simerr.InvalidParameter{ComponentID: c.id, Name: "dt", Value: dt, Reason: "must be positive"}
	}

	totalInflow := action.Get(ActionInflow) + c.extraInflow

	switch c.model {
	case CanalLinearReservoir:
		c.outflow = c.volume / c.storageConstant
	case CanalIntegral:
		c.outflow = action.Get(ActionDownstreamOutflow)
	case CanalIntegralDelay:
		delayed := c.pushDelay(totalInflow)
		totalInflow = delayed
		c.outflow = action.Get(ActionDownstreamOutflow)
	case CanalIntegralDelayZero:
		delayed := c.pushDelay(totalInflow)
		totalInflow = delayed + c.zeroCoeff*(totalInflow-delayed)
		c.outflow = action.Get(ActionDownstreamOutflow)
	}
	if c.outflow < 0 {
		c.outflow = 0
	}

	c.volume = clamp(c.volume+(totalInflow-c.outflow)*dt, 0, 1e18)
	if c.surfaceArea > 0 {
		c.waterLevel = c.volume / c.surfaceArea
	}
	return c.State(), nil
}

// pushDelay shifts inflow through the canal's pure-transport-delay
// buffer and returns the delayed value now due for integration.
func (c *Canal) pushDelay(inflow float64) float64 {
	if len(c.delayBuf) == 0 {
		return inflow
	}
	delayed := c.delayBuf[0]
	copy(c.delayBuf, c.delayBuf[1:])
	c.delayBuf[len(c.delayBuf)-1] = inflow
	return delayed
}

// GetEquations returns the st_venant model's current coefficients for a
// NetworkSolver collaborator to assemble into a system of equations.
// Only meaningful when RequiresNetworkSolver is true.
func (c *Canal) GetEquations() map[string]float64 {
	eq := make(map[string]float64, len(c.stVenantState))
	for k, v := range c.stVenantState {
		eq[k] = v
	}
	return eq
}

// UpdateState applies a NetworkSolver's computed head/flow deltas.
func (c *Canal) UpdateState(dH, dQ float64) {
	c.stVenantState["head"] += dH
	c.stVenantState["flow"] += dQ
	c.waterLevel = c.stVenantState["head"]
	c.outflow = c.stVenantState["flow"]
}
