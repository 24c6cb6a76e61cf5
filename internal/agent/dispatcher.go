package agent

import (
	"github.com/openhydro/aquasim/internal/simerr"
	"github.com/openhydro/aquasim/internal/simtypes"
)

// dispatchRule is one row of a CentralDispatcher's rule table: if the
// observed value crosses threshold (using comparator), publish command
// on command_topic.
type dispatchRule struct {
	observationKey string
	comparator     string // "gt", "lt", "ge", "le"
	threshold      float64
	commandTopic   string
	setpoint       float64
}

func (r dispatchRule) matches(v float64) bool {
	switch r.comparator {
	case "gt":
		return v > r.threshold
	case "lt":
		return v < r.threshold
	case "ge":
		return v >= r.threshold
	case "le":
		return v <= r.threshold
	default:
		return false
	}
}

// CentralDispatcher subscribes to one or more state topics and evaluates
// a threshold-to-command rule table, publishing setpoint commands (spec
// section 4.4). Rules are evaluated in configuration order and every
// matching rule fires; a scenario wanting if/else semantics lists the
// fallback rule last with a threshold that always matches.
type CentralDispatcher struct {
	id      string
	rules   []dispatchRule
	publish func(topic string, msg simtypes.Message) error
}

// NewCentralDispatcher builds a CentralDispatcher. Config: state_topics
// ([]string) to subscribe to, and rules ([]map[string]any) each with
// observation_key, comparator, threshold, command_topic, setpoint.
func NewCentralDispatcher(cfg Config, deps Deps) (Agent, error) {
	stateTopics := cfg.StrSlice("state_topics")
	if len(stateTopics) == 0 {
		return nil, &simerr.InvalidConfig{Path: cfg.ID + ".state_topics", Reason: "required, at least one topic"}
	}

	rawRules, _ := cfg.Params["rules"].([]any)
	rules := make([]dispatchRule, 0, len(rawRules))
	for _, rr := range rawRules {
		m, ok := rr.(map[string]any)
		if !ok {
			continue
		}
		rule := dispatchRule{}
		if v, ok := m["observation_key"].(string); ok {
			rule.observationKey = v
		}
		if v, ok := m["comparator"].(string); ok {
			rule.comparator = v
		}
		if v, ok := m["command_topic"].(string); ok {
			rule.commandTopic = v
		}
		rule.threshold = toFloat(m["threshold"])
		rule.setpoint = toFloat(m["setpoint"])
		rules = append(rules, rule)
	}

	d := &CentralDispatcher{id: cfg.ID, rules: rules, publish: deps.Bus.Publish}
	for _, topic := range stateTopics {
		deps.Bus.Subscribe(topic, cfg.ID, d.onState)
	}
	return d, nil
}

func (d *CentralDispatcher) ID() string              { return d.id }
func (d *CentralDispatcher) Run(currentTime float64) {}

func (d *CentralDispatcher) onState(topic string, msg simtypes.Message) {
	for _, rule := range d.rules {
		v, ok := msg.Float(rule.observationKey)
		if !ok {
			continue
		}
		if rule.matches(v) {
			d.publish(rule.commandTopic, simtypes.Message{"new_setpoint": rule.setpoint})
		}
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}
