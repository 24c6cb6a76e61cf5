package agent

import (
	"testing"

	"github.com/openhydro/aquasim/internal/bus"
	"github.com/openhydro/aquasim/internal/simtypes"
)

func TestScenarioAgentFiresEventsInTimeOrderOnce(t *testing.T) {
	b := bus.New(nil, 0)
	var fired []string
	b.Subscribe("topicA", "test", func(_ string, msg simtypes.Message) { fired = append(fired, "A") })
	b.Subscribe("topicB", "test", func(_ string, msg simtypes.Message) { fired = append(fired, "B") })

	a, err := NewScenarioAgent(Config{
		ID: "script1",
		Params: map[string]any{
			"events": []any{
				map[string]any{"time": 5.0, "topic": "topicB", "message": map[string]any{}},
				map[string]any{"time": 1.0, "topic": "topicA", "message": map[string]any{}},
			},
		},
	}, Deps{Bus: b})
	if err != nil {
		t.Fatalf("NewScenarioAgent: %v", err)
	}

	a.Run(0)
	if len(fired) != 0 {
		t.Fatalf("nothing should fire before tick 1, got %v", fired)
	}
	a.Run(1)
	if len(fired) != 1 || fired[0] != "A" {
		t.Fatalf("expected only A to fire at t=1, got %v", fired)
	}
	a.Run(5)
	if len(fired) != 2 || fired[1] != "B" {
		t.Fatalf("expected B to fire at t=5, got %v", fired)
	}
	a.Run(10)
	if len(fired) != 2 {
		t.Fatalf("events must not replay, got %v", fired)
	}
}
