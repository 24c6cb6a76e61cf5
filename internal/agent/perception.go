package agent

import (
	"github.com/openhydro/aquasim/internal/component"
	"github.com/openhydro/aquasim/internal/simerr"
	"github.com/openhydro/aquasim/internal/simtypes"
)

// PerceptionAgent reads its bound component's state each tick and
// publishes it to state_topic, optionally smoothing named keys with an
// exponential moving average (spec section 4.4). Keys not listed in
// smoothing_keys pass through unsmoothed; this is the resolved reading
// of the spec's unspecified "which keys get smoothed" question: smoothing
// is opt-in per key, not applied to the whole state blindly.
type PerceptionAgent struct {
	id         string
	component  component.Component
	stateTopic string
	alpha      float64
	smoothKeys map[string]bool
	ema        map[string]float64
	haveEMA    map[string]bool
	publish    func(topic string, msg simtypes.Message) error
}

// NewDigitalTwinAgent and NewPerceptionAgent are distinct registered
// names for the same implementation (spec section 4.4 groups them as one
// family).
func NewDigitalTwinAgent(cfg Config, deps Deps) (Agent, error) {
	return newPerceptionAgent(cfg, deps)
}

func NewPerceptionAgent(cfg Config, deps Deps) (Agent, error) {
	return newPerceptionAgent(cfg, deps)
}

func newPerceptionAgent(cfg Config, deps Deps) (Agent, error) {
	compID := cfg.Str("component_id")
	comp, err := componentByID(deps, cfg.ID, "component_id", compID)
	if err != nil {
		return nil, err
	}
	stateTopic := cfg.Str("state_topic")
	if stateTopic == "" {
		return nil, &simerr.InvalidConfig{Path: cfg.ID + ".state_topic", Reason: "required"}
	}
	keys := make(map[string]bool)
	for _, k := range cfg.StrSlice("smoothing_keys") {
		keys[k] = true
	}
	return &PerceptionAgent{
		id:         cfg.ID,
		component:  comp,
		stateTopic: stateTopic,
		alpha:      cfg.Float("alpha", 0.3),
		smoothKeys: keys,
		ema:        make(map[string]float64),
		haveEMA:    make(map[string]bool),
		publish:    deps.Bus.Publish,
	}, nil
}

func (p *PerceptionAgent) ID() string { return p.id }

func (p *PerceptionAgent) Run(currentTime float64) {
	state := p.component.State()
	out := make(simtypes.Message, len(state))
	for k, v := range state {
		if p.smoothKeys[k] {
			v = p.smooth(k, v)
		}
		out[k] = v
	}
	p.publish(p.stateTopic, out)
}

func (p *PerceptionAgent) smooth(key string, v float64) float64 {
	if !p.haveEMA[key] {
		p.ema[key] = v
		p.haveEMA[key] = true
		return v
	}
	p.ema[key] = p.alpha*v + (1-p.alpha)*p.ema[key]
	return p.ema[key]
}
