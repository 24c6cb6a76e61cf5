package harness

import (
	"testing"

	"github.com/openhydro/aquasim/internal/component"
	"github.com/openhydro/aquasim/internal/controller"
	"github.com/openhydro/aquasim/internal/simtypes"
)

func buildReservoirGateHarness(t *testing.T, numSteps int) *Harness {
	t.Helper()
	h := New(1.0, numSteps, nil)

	reg := component.NewRegistry()
	res, err := reg.New(component.Config{
		ID: "res1", Class: "Reservoir",
		Parameters:   simtypes.Scalars{"surface_area": 100},
		InitialState: simtypes.Scalars{"volume": 1900, "water_level": 19},
	}, component.Deps{Bus: h.Bus()})
	if err != nil {
		t.Fatalf("NewReservoir: %v", err)
	}
	gate, err := reg.New(component.Config{
		ID: "gate1", Class: "Gate",
		Parameters:   simtypes.Scalars{"width": 5, "discharge_coefficient": 0.6, "max_rate_of_change": 1.0, "max_opening": 1.0},
		InitialState: simtypes.Scalars{"opening": 0.5},
	}, component.Deps{Bus: h.Bus()})
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}

	h.AddComponent(res)
	h.AddComponent(gate)
	h.AddConnection("res1", "gate1")

	ctrl, err := controller.NewPID(controller.Config{Params: map[string]float64{
		"kp": 0.05, "ki": 0.01, "kd": 0, "setpoint": 15, "min_output": 0, "max_output": 1,
	}})
	if err != nil {
		t.Fatalf("NewPID: %v", err)
	}
	if err := h.AddController("gate1", "res1", "water_level", ctrl); err != nil {
		t.Fatalf("AddController: %v", err)
	}

	if err := h.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return h
}

func TestHarnessOrchestratedRunProducesExpectedHistoryLength(t *testing.T) {
	h := buildReservoirGateHarness(t, 50)
	if err := h.Run(ModeOrchestrated); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.History()) != 50 {
		t.Fatalf("history length = %d, want 50", len(h.History()))
	}
}

func TestHarnessTickTimesMatchDT(t *testing.T) {
	h := buildReservoirGateHarness(t, 10)
	if err := h.Run(ModeOrchestrated); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, tk := range h.History() {
		want := float64(i) * 1.0
		if tk.Time != want {
			t.Fatalf("tick %d time = %v, want %v", i, tk.Time, want)
		}
	}
}

func TestHarnessGateOpeningStaysInRange(t *testing.T) {
	h := buildReservoirGateHarness(t, 100)
	if err := h.Run(ModeOrchestrated); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, tk := range h.History() {
		opening := tk.States["gate1"].Get(component.StateOpening)
		if opening < 0 || opening > 1.0+1e-9 {
			t.Fatalf("tick %d: gate opening out of range: %v", i, opening)
		}
	}
}

func TestHarnessVolumeNeverNegative(t *testing.T) {
	h := buildReservoirGateHarness(t, 200)
	if err := h.Run(ModeOrchestrated); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, tk := range h.History() {
		if tk.States["res1"].Get(component.StateVolume) < 0 {
			t.Fatalf("tick %d: reservoir volume negative", i)
		}
	}
}

func TestHarnessCycleDetectedLeavesHistoryEmpty(t *testing.T) {
	h := New(1.0, 10, nil)
	reg := component.NewRegistry()
	a, _ := reg.New(component.Config{ID: "a", Class: "Reservoir", Parameters: simtypes.Scalars{"surface_area": 1}}, component.Deps{})
	b, _ := reg.New(component.Config{ID: "b", Class: "Reservoir", Parameters: simtypes.Scalars{"surface_area": 1}}, component.Deps{})
	h.AddComponent(a)
	h.AddComponent(b)
	h.AddConnection("a", "b")
	h.AddConnection("b", "a")

	err := h.Build()
	if err == nil {
		t.Fatalf("expected CycleDetected")
	}
	if len(h.History()) != 0 {
		t.Fatalf("expected empty history after failed build")
	}
}

func TestHarnessMASModeRunsAgents(t *testing.T) {
	h := New(1.0, 5, nil)
	reg := component.NewRegistry()
	res, _ := reg.New(component.Config{
		ID: "res1", Class: "Reservoir", Parameters: simtypes.Scalars{"surface_area": 100},
		InitialState: simtypes.Scalars{"volume": 1000},
	}, component.Deps{Bus: h.Bus()})
	h.AddComponent(res)
	if err := h.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := h.Run(ModeMAS); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.History()) != 5 {
		t.Fatalf("history length = %d, want 5", len(h.History()))
	}
}
