package agent

import (
	"testing"

	"github.com/openhydro/aquasim/internal/bus"
	"github.com/openhydro/aquasim/internal/component"
	"github.com/openhydro/aquasim/internal/simtypes"
)

func newTestReservoir(t *testing.T, volume float64) component.Component {
	t.Helper()
	c, err := component.NewRegistry().New(component.Config{
		ID: "res1", Class: "Reservoir",
		Parameters:   simtypes.Scalars{"surface_area": 100},
		InitialState: simtypes.Scalars{"volume": volume},
	}, component.Deps{})
	if err != nil {
		t.Fatalf("NewReservoir: %v", err)
	}
	return c
}

func TestPerceptionAgentPublishesStateVerbatimWithoutSmoothingConfig(t *testing.T) {
	b := bus.New(nil, 0)
	res := newTestReservoir(t, 500)
	var received simtypes.Message
	b.Subscribe("state/reservoir/res1", "test", func(topic string, msg simtypes.Message) {
		received = msg
	})

	a, err := NewPerceptionAgent(Config{
		ID: "perc1",
		Params: map[string]any{
			"component_id": "res1",
			"state_topic":  "state/reservoir/res1",
		},
	}, Deps{Bus: b, Components: map[string]component.Component{"res1": res}})
	if err != nil {
		t.Fatalf("NewPerceptionAgent: %v", err)
	}
	a.Run(0)

	if received == nil {
		t.Fatalf("expected a published message")
	}
	if v, _ := received.Float("volume"); v != 500 {
		t.Fatalf("volume = %v, want 500", v)
	}
}

func TestPerceptionAgentSmoothsConfiguredKeysOnly(t *testing.T) {
	b := bus.New(nil, 0)
	res := newTestReservoir(t, 0)
	var last simtypes.Message
	b.Subscribe("state/reservoir/res1", "test", func(topic string, msg simtypes.Message) { last = msg })

	a, err := NewPerceptionAgent(Config{
		ID: "perc1",
		Params: map[string]any{
			"component_id":   "res1",
			"state_topic":    "state/reservoir/res1",
			"smoothing_keys": []string{"volume"},
			"alpha":          0.5,
		},
	}, Deps{Bus: b, Components: map[string]component.Component{"res1": res}})
	if err != nil {
		t.Fatalf("NewPerceptionAgent: %v", err)
	}

	res.SetState("volume", 100)
	a.Run(0)
	firstVolume, _ := last.Float("volume")
	if firstVolume != 100 {
		t.Fatalf("first smoothed sample should equal raw value, got %v", firstVolume)
	}

	res.SetState("volume", 300)
	a.Run(1)
	secondVolume, _ := last.Float("volume")
	if secondVolume != 200 { // 0.5*300 + 0.5*100
		t.Fatalf("smoothed volume = %v, want 200", secondVolume)
	}
}

func TestPerceptionAgentUnknownComponentIsWiringError(t *testing.T) {
	b := bus.New(nil, 0)
	_, err := NewPerceptionAgent(Config{
		ID:     "perc1",
		Params: map[string]any{"component_id": "missing", "state_topic": "x"},
	}, Deps{Bus: b, Components: map[string]component.Component{}})
	if err == nil {
		t.Fatalf("expected WiringError")
	}
}
