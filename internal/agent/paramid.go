package agent

import (
	"log/slog"

	"github.com/openhydro/aquasim/internal/component"
	"github.com/openhydro/aquasim/internal/simerr"
	"github.com/openhydro/aquasim/internal/simtypes"
)

// ParameterIdentificationAgent collects input/observation samples from a
// subscribed topic and, once identification_interval new samples have
// accumulated, calls the target component's IdentifyParameters with the
// batch and clears it (spec section 4.4).
type ParameterIdentificationAgent struct {
	id       string
	target   component.Identifiable
	interval int
	batch    []simtypes.Scalars
	logger   *slog.Logger
}

// NewParameterIdentificationAgent builds the agent. Required config:
// component_id (must resolve to an Identifiable component),
// sample_topic, identification_interval. The sample message's keys are
// passed through to the component unchanged as a Scalars batch entry.
func NewParameterIdentificationAgent(cfg Config, deps Deps) (Agent, error) {
	compID := cfg.Str("component_id")
	c, err := componentByID(deps, cfg.ID, "component_id", compID)
	if err != nil {
		return nil, err
	}
	target, ok := c.(component.Identifiable)
	if !ok {
		return nil, &simerr.InvalidConfig{Path: cfg.ID + ".component_id", Reason: "component " + compID + " does not support parameter identification"}
	}
	sampleTopic := cfg.Str("sample_topic")
	if sampleTopic == "" {
		return nil, &simerr.InvalidConfig{Path: cfg.ID + ".sample_topic", Reason: "required"}
	}
	interval := int(cfg.Float("identification_interval", 10))
	if interval <= 0 {
		interval = 10
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	a := &ParameterIdentificationAgent{id: cfg.ID, target: target, interval: interval, logger: logger}
	deps.Bus.Subscribe(sampleTopic, cfg.ID, a.onSample)
	return a, nil
}

func (a *ParameterIdentificationAgent) ID() string { return a.id }

// Run does nothing: sample collection happens in onSample, identification
// fires as soon as the interval is reached rather than waiting for the
// next tick boundary.
func (a *ParameterIdentificationAgent) Run(currentTime float64) {}

func (a *ParameterIdentificationAgent) onSample(topic string, msg simtypes.Message) {
	sample := simtypes.Scalars{}
	for k, v := range msg {
		if f, ok := msg.Float(k); ok {
			sample[k] = f
			_ = v
		}
	}
	a.batch = append(a.batch, sample)
	if len(a.batch) < a.interval {
		return
	}
	if err := a.target.IdentifyParameters(a.batch); err != nil {
		a.logger.Warn("parameter identification failed", "agent", a.id, "error", err)
	}
	a.batch = a.batch[:0]
}
