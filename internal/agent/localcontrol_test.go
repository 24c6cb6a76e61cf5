package agent

import (
	"testing"

	"github.com/openhydro/aquasim/internal/bus"
	"github.com/openhydro/aquasim/internal/simtypes"
)

func TestLocalControlAgentPublishesControlSignalFromObservation(t *testing.T) {
	b := bus.New(nil, 0)
	var action float64
	gotAction := false
	b.Subscribe("action/gate1", "test", func(_ string, msg simtypes.Message) {
		action, gotAction = msg.Float("control_signal")
	})

	_, err := NewLocalControlAgent(Config{
		ID: "lc1",
		Params: map[string]any{
			"controller_type":   "PID",
			"observation_topic": "state/reservoir/res1",
			"observation_key":   "water_level",
			"action_topic":      "action/gate1",
			"controller_params": map[string]any{"kp": 1.0, "ki": 0.0, "kd": 0.0, "setpoint": 10.0, "min_output": -100.0, "max_output": 100.0},
		},
	}, Deps{Bus: b})
	if err != nil {
		t.Fatalf("NewLocalControlAgent: %v", err)
	}

	b.Publish("state/reservoir/res1", simtypes.Message{"water_level": 4.0, "dt": 1.0})
	if !gotAction || action != 6 {
		t.Fatalf("action = %v (present=%v), want 6", action, gotAction)
	}
}

func TestLocalControlAgentCommandTopicUpdatesSetpoint(t *testing.T) {
	b := bus.New(nil, 0)
	var action float64
	b.Subscribe("action/gate1", "test", func(_ string, msg simtypes.Message) {
		action, _ = msg.Float("control_signal")
	})

	_, err := NewLocalControlAgent(Config{
		ID: "lc1",
		Params: map[string]any{
			"controller_type":   "PID",
			"observation_topic": "state/reservoir/res1",
			"observation_key":   "water_level",
			"action_topic":      "action/gate1",
			"command_topic":     "command/lc1",
			"controller_params": map[string]any{"kp": 1.0, "setpoint": 10.0, "min_output": -100.0, "max_output": 100.0},
		},
	}, Deps{Bus: b})
	if err != nil {
		t.Fatalf("NewLocalControlAgent: %v", err)
	}

	b.Publish("command/lc1", simtypes.Message{"new_setpoint": 20.0})
	b.Publish("state/reservoir/res1", simtypes.Message{"water_level": 4.0, "dt": 1.0})
	if action != 16 {
		t.Fatalf("action = %v, want 16 after setpoint update", action)
	}
}
