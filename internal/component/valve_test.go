package component

import (
	"math"
	"testing"

	"github.com/openhydro/aquasim/internal/simtypes"
)

func TestValveOpeningRespectsRateLimit(t *testing.T) {
	c, err := NewValve(Config{
		ID:           "valve1",
		Parameters:   simtypes.Scalars{"flow_coefficient": 2.0, "max_rate_of_change": 0.1},
		InitialState: simtypes.Scalars{StateOpening: 0},
	}, Deps{})
	if err != nil {
		t.Fatalf("NewValve: %v", err)
	}
	v := c.(*Valve)
	v.OnMessage("action/valve/valve1", simtypes.Message{"target_opening": 1.0})

	action := simtypes.Scalars{ActionUpstreamHead: 10, ActionDownstreamHead: 5, ActionInflow: 1000}
	prev := 0.0
	for i := 0; i < 4; i++ {
		st, err := v.Step(action, 1.0)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		opening := st[StateOpening]
		if opening-prev > 0.1+1e-9 {
			t.Fatalf("opening changed by %v in one tick, exceeds max_rate_of_change*dt", opening-prev)
		}
		prev = opening
	}
}

func TestValveNoReverseFlow(t *testing.T) {
	c, err := NewValve(Config{
		ID:           "valve1",
		Parameters:   simtypes.Scalars{"flow_coefficient": 2.0, "max_rate_of_change": 1.0},
		InitialState: simtypes.Scalars{StateOpening: 1.0},
	}, Deps{})
	if err != nil {
		t.Fatalf("NewValve: %v", err)
	}
	v := c.(*Valve)
	st, err := v.Step(simtypes.Scalars{ActionUpstreamHead: 1, ActionDownstreamHead: 5, ActionInflow: 1000}, 1.0)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if st[StateOutflow] != 0 {
		t.Fatalf("expected zero outflow when downstream head exceeds upstream, got %v", st[StateOutflow])
	}
}

func TestValveFlowCappedByUpstreamAvailability(t *testing.T) {
	c, err := NewValve(Config{
		ID:           "valve1",
		Parameters:   simtypes.Scalars{"flow_coefficient": 100.0, "max_rate_of_change": 1.0},
		InitialState: simtypes.Scalars{StateOpening: 1.0},
	}, Deps{})
	if err != nil {
		t.Fatalf("NewValve: %v", err)
	}
	v := c.(*Valve)
	st, err := v.Step(simtypes.Scalars{ActionUpstreamHead: 14, ActionDownstreamHead: 5, ActionInflow: 2}, 1.0)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	requested := 100.0 * math.Sqrt(9)
	if requested <= 2 {
		t.Fatalf("test setup invalid: requested flow %v must exceed available inflow", requested)
	}
	if st[StateOutflow] != 2 {
		t.Fatalf("outflow = %v, want 2 (capped by available inflow)", st[StateOutflow])
	}
}

func TestValveInvalidFlowCoefficientRejected(t *testing.T) {
	_, err := NewValve(Config{ID: "valve1", Parameters: simtypes.Scalars{"flow_coefficient": 0}}, Deps{})
	if err == nil {
		t.Fatalf("expected InvalidParameter error for non-positive flow_coefficient")
	}
}
