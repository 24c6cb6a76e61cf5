package agent

import (
	"testing"

	"github.com/openhydro/aquasim/internal/bus"
	"github.com/openhydro/aquasim/internal/component"
	"github.com/openhydro/aquasim/internal/simtypes"
)

func newTestPipe(t *testing.T) component.Component {
	t.Helper()
	c, err := component.NewRegistry().New(component.Config{
		ID: "pipe1", Class: "Pipe",
		Parameters: simtypes.Scalars{"C": 1.0},
	}, component.Deps{})
	if err != nil {
		t.Fatalf("NewPipe: %v", err)
	}
	return c
}

func TestParameterIdentificationAgentFiresOnceAtIntervalThenClearsBatch(t *testing.T) {
	b := bus.New(nil, 0)
	pipe := newTestPipe(t)

	a, err := NewParameterIdentificationAgent(Config{
		ID: "pid1",
		Params: map[string]any{
			"component_id":            "pipe1",
			"sample_topic":            "sample/pipe1",
			"identification_interval": 3.0,
		},
	}, Deps{Bus: b, Components: map[string]component.Component{"pipe1": pipe}})
	if err != nil {
		t.Fatalf("NewParameterIdentificationAgent: %v", err)
	}
	pid := a.(*ParameterIdentificationAgent)

	b.Publish("sample/pipe1", simtypes.Message{"flow": 1.0, "head_diff": 1.0})
	if len(pid.batch) != 1 {
		t.Fatalf("batch len = %d after 1 sample, want 1", len(pid.batch))
	}
	b.Publish("sample/pipe1", simtypes.Message{"flow": 2.0, "head_diff": 4.0})
	if len(pid.batch) != 2 {
		t.Fatalf("batch len = %d after 2 samples, want 2", len(pid.batch))
	}

	b.Publish("sample/pipe1", simtypes.Message{"flow": 3.0, "head_diff": 9.0})
	if len(pid.batch) != 0 {
		t.Fatalf("batch len = %d after hitting interval, want 0 (cleared)", len(pid.batch))
	}
}

func TestParameterIdentificationAgentRequiresIdentifiableComponent(t *testing.T) {
	b := bus.New(nil, 0)
	res, err := component.NewRegistry().New(component.Config{
		ID: "res1", Class: "Reservoir",
		Parameters: simtypes.Scalars{"surface_area": 10},
	}, component.Deps{})
	if err != nil {
		t.Fatalf("NewReservoir: %v", err)
	}

	_, err = NewParameterIdentificationAgent(Config{
		ID: "pid1",
		Params: map[string]any{
			"component_id": "res1",
			"sample_topic": "sample/res1",
		},
	}, Deps{Bus: b, Components: map[string]component.Component{"res1": res}})
	if err == nil {
		t.Fatalf("expected error: Reservoir does not implement Identifiable")
	}
}
