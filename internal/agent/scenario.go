package agent

import (
	"sort"

	"github.com/openhydro/aquasim/internal/simtypes"
)

// scriptEvent is one scheduled publish.
type scriptEvent struct {
	time    float64
	topic   string
	message simtypes.Message
}

// ScenarioAgent holds a time-sorted list of {time, topic, message}
// events and publishes each exactly once, the first tick whose current
// time reaches its scheduled time (spec section 4.4). Events are
// consumed, never replayed, and a currentTime that skips past several
// scheduled times in one tick (a large dt) fires all of them in
// ascending time order.
type ScenarioAgent struct {
	id      string
	events  []scriptEvent
	next    int
	publish func(topic string, msg simtypes.Message) error
}

// NewScenarioAgent builds a ScenarioAgent from config key "events": a
// list of maps with "time", "topic", "message" (message itself a map).
func NewScenarioAgent(cfg Config, deps Deps) (Agent, error) {
	raw, _ := cfg.Params["events"].([]any)
	events := make([]scriptEvent, 0, len(raw))
	for _, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		ev := scriptEvent{time: toFloat(m["time"])}
		if t, ok := m["topic"].(string); ok {
			ev.topic = t
		}
		if msg, ok := m["message"].(map[string]any); ok {
			ev.message = simtypes.Message(msg)
		} else {
			ev.message = simtypes.Message{}
		}
		events = append(events, ev)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].time < events[j].time })
	return &ScenarioAgent{id: cfg.ID, events: events, publish: deps.Bus.Publish}, nil
}

func (a *ScenarioAgent) ID() string { return a.id }

func (a *ScenarioAgent) Run(currentTime float64) {
	for a.next < len(a.events) && a.events[a.next].time <= currentTime {
		ev := a.events[a.next]
		a.publish(ev.topic, ev.message)
		a.next++
	}
}
