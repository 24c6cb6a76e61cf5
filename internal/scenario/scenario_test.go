package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openhydro/aquasim/internal/harness"
)

func writeScenario(t *testing.T, yamlText string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(yamlText), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const orchestratedScenario = `
simulation_settings:
  dt: 1.0
  num_steps: 20
components:
  - id: res1
    class: Reservoir
    parameters:
      surface_area: 100
    initial_state:
      volume: 1900
      water_level: 19
  - id: gate1
    class: Gate
    parameters:
      width: 5
      discharge_coefficient: 0.6
      max_rate_of_change: 1.0
      max_opening: 1.0
    initial_state:
      opening: 0.5
topology:
  - upstream: res1
    downstream: gate1
controllers:
  - id: ctrl1
    type: PID
    params:
      kp: 0.05
      ki: 0.01
      kd: 0
      setpoint: 15
      min_output: 0
      max_output: 1
    wiring:
      controlled_id: gate1
      observed_id: res1
      observation_key: water_level
`

func TestLoaderBuildsAndRunsOrchestratedScenario(t *testing.T) {
	path := writeScenario(t, orchestratedScenario)
	result, err := NewLoader(nil).LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if result.Mode != harness.ModeOrchestrated {
		t.Fatalf("mode = %v, want orchestrated (no agents, one controller)", result.Mode)
	}
	if err := result.Harness.Run(result.Mode); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Harness.History()) != 20 {
		t.Fatalf("history length = %d, want 20", len(result.Harness.History()))
	}
}

func TestLoaderUnknownComponentClassFails(t *testing.T) {
	path := writeScenario(t, `
simulation_settings: {dt: 1.0, num_steps: 5}
components:
  - id: res1
    class: NotARealClass
`)
	_, err := NewLoader(nil).LoadFile(path)
	if err == nil {
		t.Fatal("expected UnknownClass error")
	}
}

func TestLoaderCycleDetected(t *testing.T) {
	path := writeScenario(t, `
simulation_settings: {dt: 1.0, num_steps: 5}
components:
  - id: a
    class: Reservoir
    parameters: {surface_area: 1}
  - id: b
    class: Reservoir
    parameters: {surface_area: 1}
topology:
  - upstream: a
    downstream: b
  - upstream: b
    downstream: a
`)
	_, err := NewLoader(nil).LoadFile(path)
	if err == nil {
		t.Fatal("expected CycleDetected error")
	}
}

func TestLoaderMissingDTFails(t *testing.T) {
	path := writeScenario(t, `
simulation_settings: {num_steps: 5}
components: []
`)
	_, err := NewLoader(nil).LoadFile(path)
	if err == nil {
		t.Fatal("expected InvalidConfig error for missing dt")
	}
}

func TestLoaderDurationDerivesNumSteps(t *testing.T) {
	path := writeScenario(t, `
simulation_settings: {dt: 2.0, duration: 20.0}
components:
  - id: res1
    class: Reservoir
    parameters: {surface_area: 100}
`)
	result, err := NewLoader(nil).LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if err := result.Harness.Run(result.Mode); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Harness.History()) != 10 {
		t.Fatalf("history length = %d, want 10 (20/2)", len(result.Harness.History()))
	}
}
