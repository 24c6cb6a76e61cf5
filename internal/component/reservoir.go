package component

import (
	"github.com/openhydro/aquasim/internal/simerr"
	"github.com/openhydro/aquasim/internal/simtypes"
)

// Reservoir implements the water-balance model of spec section 4.2
// ("Reservoir / Lake"). It has no orifice physics of its own: when it
// has no managed release (no release_rate/outflow_rate message and no
// control signal), its outflow each tick is the downstream_outflow the harness
// computes from its successors' previous-tick discharge — see
// DESIGN.md's "downstream_outflow" entry for why, since the spec leaves
// the reservoir/gate coupling across topological order unresolved.
type Reservoir struct {
	base

	surfaceArea float64
	maxVolume   float64
	evapRate    float64
	curve       *StorageCurve

	volume       float64
	waterLevel   float64
	outflow      float64
	targetOutflow float64
	haveTarget   bool
}

// NewReservoir constructs a Reservoir (and its alias Lake) from Config.
func NewReservoir(cfg Config, deps Deps) (Component, error) {
	r := &Reservoir{base: newBase(cfg.ID, cfg.Parameters)}
	r.surfaceArea = r.param("surface_area", 1.0)
	r.maxVolume = r.param("max_volume", 1e18)
	r.evapRate = r.param("evap_rate", 0)
	if r.surfaceArea <= 0 {
		return nil, &simerr.InvalidParameter{ComponentID: cfg.ID, Name: "surface_area", Value: r.surfaceArea, Reason: "must be positive"}
	}

	if curve, ok := cfg.Extra["storage_curve"]; ok {
		sc, err := parseStorageCurve(curve)
		if err != nil {
			return nil, &simerr.InvalidParameter{ComponentID: cfg.ID, Name: "storage_curve", Reason: err.Error()}
		}
		r.curve = sc
	}

	r.volume = cfg.InitialState.Get(StateVolume)
	if wl, ok := cfg.InitialState[StateWaterLevel]; ok {
		r.waterLevel = wl
		if r.volume == 0 {
			r.volume = r.volumeForLevel(wl)
		}
	} else {
		r.waterLevel = r.levelForVolume(r.volume)
	}

	if deps.Bus != nil {
		for _, topic := range cfg.SubscribesTo {
			t := topic
			deps.Bus.Subscribe(t, cfg.ID, func(_ string, msg simtypes.Message) { r.OnMessage(t, msg) })
		}
	}
	return r, nil
}

func (r *Reservoir) levelForVolume(v float64) float64 {
	if r.curve != nil {
		return r.curve.LevelForVolume(v)
	}
	return v / r.surfaceArea
}

func (r *Reservoir) volumeForLevel(l float64) float64 {
	if r.curve != nil {
		return r.curve.VolumeForLevel(l)
	}
	return l * r.surfaceArea
}

// OnMessage updates the managed release target from a disturbance or
// command topic. Recognized keys: "inflow_rate" (additive disturbance
// inflow, e.g. RainfallAgent), "outflow_rate"/"release_rate" (managed
// release target, e.g. a dispatcher-commanded spillway release).
func (r *Reservoir) OnMessage(_ string, msg simtypes.Message) {
	if v, ok := msg.Float("inflow_rate"); ok {
		r.SetInflow(v)
	}
	if v, ok := msg.Float("outflow_rate"); ok {
		r.targetOutflow, r.haveTarget = v, true
	}
	if v, ok := msg.Float("release_rate"); ok {
		r.targetOutflow, r.haveTarget = v, true
	}
}

func (r *Reservoir) Volume() float64 { return r.volume }

func (r *Reservoir) State() simtypes.Scalars {
	return simtypes.Scalars{
		StateVolume:     r.volume,
		StateWaterLevel: r.waterLevel,
		StateHead:       r.waterLevel,
		StateOutflow:    r.outflow,
		StateInflow:     r.extraInflow,
	}.Clone()
}

func (r *Reservoir) SetState(key string, value float64) {
	switch key {
	case StateVolume:
		r.volume = value
		r.waterLevel = r.levelForVolume(value)
	case StateWaterLevel:
		r.waterLevel = value
		r.volume = r.volumeForLevel(value)
	}
}

func (r *Reservoir) Step(action simtypes.Scalars, dt float64) (simtypes.Scalars, error) {
	if dt <= 0 {
		return nil, &simerr.InvalidParameter{ComponentID: r.id, Name: "dt", Value: dt, Reason: "must be positive"}
	}
	totalInflow := action.Get(ActionInflow) + r.extraInflow

	var outflow float64
	if cs, ok := actionControlSignal(action); ok {
		outflow = cs
	} else if r.haveTarget {
		outflow = r.targetOutflow
	} else {
		outflow = action.Get(ActionDownstreamOutflow)
	}
	if outflow < 0 {
		outflow = 0
	}
	available := r.volume/dt + totalInflow - r.evapRate
	if available < 0 {
		available = 0
	}
	if outflow > available {
		outflow = available
	}

	newVolume := clamp(r.volume+(totalInflow-outflow-r.evapRate)*dt, 0, r.maxVolume)
	r.volume = newVolume
	r.waterLevel = r.levelForVolume(newVolume)
	r.outflow = outflow

	return r.State(), nil
}

func actionControlSignal(action simtypes.Scalars) (float64, bool) {
	if action.Has(ActionControlSignal) {
		return action.Get(ActionControlSignal), true
	}
	return 0, false
}
