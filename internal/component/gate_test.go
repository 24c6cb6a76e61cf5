package component

import (
	"testing"

	"github.com/openhydro/aquasim/internal/simtypes"
)

func TestGateOpeningRespectsRateLimit(t *testing.T) {
	c, err := NewGate(Config{
		ID:         "g1",
		Parameters: simtypes.Scalars{"width": 5, "discharge_coefficient": 0.6, "max_rate_of_change": 0.1, "max_opening": 1.0},
		InitialState: simtypes.Scalars{StateOpening: 0},
	}, Deps{})
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	g := c.(*Gate)
	g.OnMessage("action/gate/g1", simtypes.Message{"target_opening": 1.0})

	dt := 1.0
	action := simtypes.Scalars{ActionUpstreamHead: 10, ActionDownstreamHead: 5}
	prev := 0.0
	for i := 0; i < 5; i++ {
		st, err := g.Step(action, dt)
		if err != nil {
			t.Fatalf("step: %v", err)
		}
		opening := st[StateOpening]
		if opening < 0 || opening > 1.0+1e-9 {
			t.Fatalf("opening out of range: %v", opening)
		}
		if opening-prev > 0.1+1e-9 {
			t.Fatalf("opening changed by %v in one tick, exceeds max_rate_of_change*dt", opening-prev)
		}
		prev = opening
	}
}

func TestGateNoReverseFlow(t *testing.T) {
	c, _ := NewGate(Config{
		ID:         "g1",
		Parameters: simtypes.Scalars{"width": 5, "discharge_coefficient": 0.6, "max_rate_of_change": 1.0, "max_opening": 1.0},
		InitialState: simtypes.Scalars{StateOpening: 1.0},
	}, Deps{})
	g := c.(*Gate)
	st, err := g.Step(simtypes.Scalars{ActionUpstreamHead: 1, ActionDownstreamHead: 5}, 1.0)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if st[StateOutflow] != 0 {
		t.Fatalf("expected zero outflow when downstream head exceeds upstream, got %v", st[StateOutflow])
	}
}

func TestOrificeFlowPositive(t *testing.T) {
	q := orificeFlow(0.6, 10, 0.5, 14.0, 12.0)
	if q <= 0 {
		t.Fatalf("expected positive flow, got %v", q)
	}
}
