package component

import (
	"testing"

	"github.com/openhydro/aquasim/internal/simtypes"
)

func TestPumpSpeedRespectsRateLimit(t *testing.T) {
	c, err := NewPump(Config{
		ID:           "pump1",
		Parameters:   simtypes.Scalars{"rated_flow": 10, "max_rate_of_change": 0.2},
		InitialState: simtypes.Scalars{StateActiveState: 0},
	}, Deps{})
	if err != nil {
		t.Fatalf("NewPump: %v", err)
	}
	p := c.(*Pump)
	p.OnMessage("action/pump/pump1", simtypes.Message{"speed": 1.0})

	action := simtypes.Scalars{ActionInflow: 1000}
	prev := 0.0
	for i := 0; i < 3; i++ {
		st, err := p.Step(action, 1.0)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		speed := st[StateActiveState]
		if speed-prev > 0.2+1e-9 {
			t.Fatalf("speed changed by %v in one tick, exceeds max_rate_of_change*dt", speed-prev)
		}
		prev = speed
	}
}

func TestPumpOutflowCappedByUpstreamAvailability(t *testing.T) {
	c, err := NewPump(Config{
		ID:           "pump1",
		Parameters:   simtypes.Scalars{"rated_flow": 100, "max_rate_of_change": 1.0},
		InitialState: simtypes.Scalars{StateActiveState: 1.0},
	}, Deps{})
	if err != nil {
		t.Fatalf("NewPump: %v", err)
	}
	p := c.(*Pump)

	st, err := p.Step(simtypes.Scalars{ActionInflow: 3}, 1.0)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if st[StateOutflow] != 3 {
		t.Fatalf("outflow = %v, want 3 (capped by available inflow)", st[StateOutflow])
	}
}

func TestPumpInvalidRatedFlowRejected(t *testing.T) {
	_, err := NewPump(Config{ID: "pump1", Parameters: simtypes.Scalars{"rated_flow": 0}}, Deps{})
	if err == nil {
		t.Fatalf("expected InvalidParameter error for non-positive rated_flow")
	}
}
