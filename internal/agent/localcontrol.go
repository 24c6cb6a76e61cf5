package agent

import (
	"github.com/openhydro/aquasim/internal/controller"
	"github.com/openhydro/aquasim/internal/simerr"
	"github.com/openhydro/aquasim/internal/simtypes"
)

// LocalControlAgent wraps a controller.Controller: on every observation
// received on observation_topic it computes the control action and
// publishes it on action_topic, and on command_topic it accepts a
// new_setpoint update (spec section 4.4).
type LocalControlAgent struct {
	id             string
	ctrl           controller.Controller
	actionTopic    string
	observationKey string
	lastDT         float64
	publish        func(topic string, msg simtypes.Message) error
}

// NewLocalControlAgent builds a LocalControlAgent. Required config:
// controller_type, observation_topic, observation_key, action_topic.
// Optional: command_topic, feedback_topic (subscribed but otherwise
// informational in this implementation), and the controller's own
// tuning params nested under "controller_params".
func NewLocalControlAgent(cfg Config, deps Deps) (Agent, error) {
	ctrlType := cfg.Str("controller_type")
	if ctrlType == "" {
		return nil, &simerr.InvalidConfig{Path: cfg.ID + ".controller_type", Reason: "required"}
	}
	observationTopic := cfg.Str("observation_topic")
	observationKey := cfg.Str("observation_key")
	actionTopic := cfg.Str("action_topic")
	if observationTopic == "" || observationKey == "" || actionTopic == "" {
		return nil, &simerr.InvalidConfig{Path: cfg.ID, Reason: "observation_topic, observation_key, and action_topic are required"}
	}

	params := make(map[string]float64)
	if raw, ok := cfg.Params["controller_params"].(map[string]any); ok {
		for k, v := range raw {
			switch n := v.(type) {
			case float64:
				params[k] = n
			case int:
				params[k] = float64(n)
			}
		}
	}

	if deps.Controllers == nil {
		deps.Controllers = controller.NewRegistry()
	}
	ctrl, err := deps.Controllers.New(controller.Config{ID: cfg.ID, Type: ctrlType, Params: params})
	if err != nil {
		return nil, err
	}

	a := &LocalControlAgent{
		id:             cfg.ID,
		ctrl:           ctrl,
		actionTopic:    actionTopic,
		observationKey: observationKey,
		lastDT:         cfg.Float("dt", 1.0),
		publish:        deps.Bus.Publish,
	}

	deps.Bus.Subscribe(observationTopic, cfg.ID, a.onObservation)
	if commandTopic := cfg.Str("command_topic"); commandTopic != "" {
		deps.Bus.Subscribe(commandTopic, cfg.ID, a.onCommand)
	}
	if feedbackTopic := cfg.Str("feedback_topic"); feedbackTopic != "" {
		deps.Bus.Subscribe(feedbackTopic, cfg.ID, a.onFeedback)
	}
	return a, nil
}

func (a *LocalControlAgent) ID() string { return a.id }

// Run does nothing: the agent's work happens entirely in onObservation,
// triggered by perception agents publishing earlier in the same Phase A.
func (a *LocalControlAgent) Run(currentTime float64) {}

func (a *LocalControlAgent) onObservation(topic string, msg simtypes.Message) {
	obs, ok := msg.Float(a.observationKey)
	if !ok {
		return
	}
	if dt, ok := msg.Float("dt"); ok {
		a.lastDT = dt
	}
	action := a.ctrl.ComputeAction(obs, a.lastDT)
	a.publish(a.actionTopic, simtypes.Message{"control_signal": action})
}

func (a *LocalControlAgent) onCommand(topic string, msg simtypes.Message) {
	if sp, ok := msg.Float("new_setpoint"); ok {
		a.ctrl.SetSetpoint(sp)
	}
}

func (a *LocalControlAgent) onFeedback(topic string, msg simtypes.Message) {}
