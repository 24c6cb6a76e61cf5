package agent

import (
	"github.com/openhydro/aquasim/internal/simerr"
	"github.com/openhydro/aquasim/internal/simtypes"
)

// decomposition rule names, configurable per station agent via the
// "decomposition_rule" param (spec section 4.4 names count-based,
// proportional, and prioritized distribution without pinning one rule
// to one agent class).
const (
	ruleCount       = "count"
	ruleProportional = "proportional"
	rulePrioritized  = "prioritized"
)

// device is one unit of a station: a bus topic to command and a rated
// capacity used by the proportional and prioritized rules.
type device struct {
	id       string
	topic    string
	capacity float64
}

// StationControlAgent decomposes a station-level target received on
// goal_topic into one command per device, publishing each on the
// device's own topic (spec section 4.4).
type StationControlAgent struct {
	id        string
	goalTopic string
	rule      string
	devices   []device
	publish   func(topic string, msg simtypes.Message) error
}

func newStationAgent(cfg Config, deps Deps, defaultRule string) (*StationControlAgent, error) {
	goalTopic := cfg.Str("goal_topic")
	if goalTopic == "" {
		return nil, &simerr.InvalidConfig{Path: cfg.ID + ".goal_topic", Reason: "required"}
	}
	ids := cfg.StrSlice("device_ids")
	topics := cfg.StrSlice("device_topics")
	if len(ids) == 0 || len(ids) != len(topics) {
		return nil, &simerr.InvalidConfig{Path: cfg.ID + ".device_ids/device_topics", Reason: "must be non-empty and equal length"}
	}
	capacities := cfg.Params["device_capacities"]
	caps := make([]float64, len(ids))
	for i := range caps {
		caps[i] = 1
	}
	if raw, ok := capacities.([]any); ok {
		for i, v := range raw {
			if i >= len(caps) {
				break
			}
			switch n := v.(type) {
			case float64:
				caps[i] = n
			case int:
				caps[i] = float64(n)
			}
		}
	}

	devices := make([]device, len(ids))
	for i := range ids {
		devices[i] = device{id: ids[i], topic: topics[i], capacity: caps[i]}
	}

	rule := cfg.Str("decomposition_rule")
	if rule == "" {
		rule = defaultRule
	}

	a := &StationControlAgent{
		id:        cfg.ID,
		goalTopic: goalTopic,
		rule:      rule,
		devices:   devices,
		publish:   deps.Bus.Publish,
	}
	deps.Bus.Subscribe(goalTopic, cfg.ID, a.onGoal)
	return a, nil
}

func (a *StationControlAgent) ID() string              { return a.id }
func (a *StationControlAgent) Run(currentTime float64) {}

func (a *StationControlAgent) onGoal(topic string, msg simtypes.Message) {
	target, ok := msg.Float("target")
	if !ok {
		return
	}
	commands := decompose(a.rule, target, a.devices)
	for i, d := range a.devices {
		a.publish(d.topic, simtypes.Message{"command": commands[i]})
	}
}

// decompose splits target across devices per rule:
//
//   - count: target is interpreted as a device count (possibly
//     fractional). Devices are filled to full capacity in order until
//     the count's integer part is exhausted, then the remaining
//     fractional device gets the leftover fraction of its capacity; the
//     rest stay at zero.
//   - proportional: target is split across devices in proportion to
//     their rated capacity.
//   - prioritized: devices are filled to full capacity in the order
//     given until target is exhausted; the first device that cannot be
//     fully satisfied gets the remainder, the rest stay at zero.
func decompose(rule string, target float64, devices []device) []float64 {
	out := make([]float64, len(devices))
	switch rule {
	case ruleCount:
		whole := int(target)
		frac := target - float64(whole)
		for i := range devices {
			switch {
			case i < whole:
				out[i] = devices[i].capacity
			case i == whole:
				out[i] = frac * devices[i].capacity
			}
		}
	case rulePrioritized:
		remaining := target
		for i, d := range devices {
			if remaining <= 0 {
				break
			}
			take := d.capacity
			if take > remaining {
				take = remaining
			}
			out[i] = take
			remaining -= take
		}
	default: // proportional
		totalCapacity := 0.0
		for _, d := range devices {
			totalCapacity += d.capacity
		}
		if totalCapacity <= 0 {
			return out
		}
		for i, d := range devices {
			out[i] = target * (d.capacity / totalCapacity)
		}
	}
	return out
}

// NewPumpControlAgent decomposes a flow-rate target proportionally
// across pumps by rated capacity (spec section 4.4's "by flow rate"
// variant).
func NewPumpControlAgent(cfg Config, deps Deps) (Agent, error) {
	return newStationAgent(cfg, deps, ruleProportional)
}

// NewPumpStationControlAgent decomposes a target by how many pumps to
// run, a fractional count running the next pump at that fraction of its
// capacity (spec section 4.4's "by pump count" variant, registered
// separately from PumpControlAgent per the open question in section 8.2
// of this implementation's governing spec).
func NewPumpStationControlAgent(cfg Config, deps Deps) (Agent, error) {
	return newStationAgent(cfg, deps, ruleCount)
}

// NewValveStationControlAgent decomposes an opening-degree target
// proportionally across valves.
func NewValveStationControlAgent(cfg Config, deps Deps) (Agent, error) {
	return newStationAgent(cfg, deps, ruleProportional)
}

// NewHydropowerStationControlAgent decomposes a power-output target by
// filling turbines in priority order, typically most-efficient first.
func NewHydropowerStationControlAgent(cfg Config, deps Deps) (Agent, error) {
	return newStationAgent(cfg, deps, rulePrioritized)
}
