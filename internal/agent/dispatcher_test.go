package agent

import (
	"testing"

	"github.com/openhydro/aquasim/internal/bus"
	"github.com/openhydro/aquasim/internal/simtypes"
)

func TestCentralDispatcherFiresMatchingRule(t *testing.T) {
	b := bus.New(nil, 0)
	var got float64
	gotAny := false
	b.Subscribe("command/gate1/setpoint", "test", func(_ string, msg simtypes.Message) {
		got, gotAny = msg.Float("new_setpoint")
	})

	_, err := NewCentralDispatcher(Config{
		ID: "dispatch1",
		Params: map[string]any{
			"state_topics": []string{"state/reservoir/res1"},
			"rules": []any{
				map[string]any{"observation_key": "water_level", "comparator": "gt", "threshold": 18.0, "command_topic": "command/gate1/setpoint", "setpoint": 12.0},
				map[string]any{"observation_key": "water_level", "comparator": "le", "threshold": 18.0, "command_topic": "command/gate1/setpoint", "setpoint": 15.0},
			},
		},
	}, Deps{Bus: b})
	if err != nil {
		t.Fatalf("NewCentralDispatcher: %v", err)
	}

	b.Publish("state/reservoir/res1", simtypes.Message{"water_level": 19.0})
	if !gotAny || got != 12 {
		t.Fatalf("got %v (%v), want 12", got, gotAny)
	}

	b.Publish("state/reservoir/res1", simtypes.Message{"water_level": 10.0})
	if got != 15 {
		t.Fatalf("got %v, want 15", got)
	}
}
