// Package harness implements the SimulationHarness of spec section 4.5:
// it owns the topology graph, the component and agent registries, and
// drives the per-tick two-phase loop (Phase A: agents; Phase B: physics)
// to completion, recording a state-history snapshot after every tick.
package harness

import (
	"fmt"
	"log/slog"

	"github.com/openhydro/aquasim/internal/agent"
	"github.com/openhydro/aquasim/internal/bus"
	"github.com/openhydro/aquasim/internal/component"
	"github.com/openhydro/aquasim/internal/controller"
	"github.com/openhydro/aquasim/internal/history"
	"github.com/openhydro/aquasim/internal/simerr"
	"github.com/openhydro/aquasim/internal/simtypes"
	"github.com/openhydro/aquasim/internal/topology"
)

// Mode selects which collaborator drives control during a run (spec
// section 4.5).
type Mode string

const (
	// ModeOrchestrated runs with no agents: the harness itself invokes
	// controllers registered via AddController.
	ModeOrchestrated Mode = "orchestrated"
	// ModeMAS runs with the registered agents driving control via the
	// bus.
	ModeMAS Mode = "mas"
)

// Tick is one recorded snapshot: simulated time plus every component's
// post-step state, keyed by component ID. It is the harness's public
// name for history.TickResult, the type the optional streaming sink
// (spec section 5) persists.
type Tick = history.TickResult

// scheduledDisturbance is one {time_step, component_id, action, value}
// entry from a scenario's disturbances list (spec section 6). Unlike the
// agent-driven disturbance topics, these apply directly through the
// component's harness-only side channels (spec section 4.2:
// "set_inflow(value), set_state(key, value) — harness-only side channels
// for disturbance application"), fired exactly once at the named tick.
type scheduledDisturbance struct {
	timeStep    int
	componentID string
	action      string
	value       float64
}

// controllerBinding is one add_controller registration: observe
// observedID's observationKey, drive controlledID with the result.
type controllerBinding struct {
	controlledID   string
	observedID     string
	observationKey string
	ctrl           controller.Controller
}

// Harness is the SimulationHarness. Build it with New, wire it with
// AddComponent/AddAgent/AddConnection/AddController, call Build once,
// then Run.
type Harness struct {
	dt       float64
	numSteps int
	logger   *slog.Logger

	bus        *bus.Bus
	components map[string]component.Component
	agents     []agent.Agent
	edges      []topology.Edge

	controllers []controllerBinding
	disturbances []scheduledDisturbance

	graph *topology.Graph
	order []string
	built bool

	tick    int
	simTime float64

	currentStates        map[string]simtypes.Scalars
	recorder             *history.Recorder
	pendingControlSignal map[string]float64
}

// New creates an empty Harness. dt must be positive; numSteps is the
// total tick count Run will execute.
func New(dt float64, numSteps int, logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := bus.New(logger, bus.DefaultMaxCascadeDepth)
	h := &Harness{
		dt:            dt,
		numSteps:      numSteps,
		logger:        logger,
		bus:           b,
		components:    make(map[string]component.Component),
		currentStates: make(map[string]simtypes.Scalars),
		recorder:      history.NewRecorder(nil, 1, 0),
	}
	b.SetClock(func() (int, float64) { return h.tick, h.simTime })
	return h
}

// SetSink attaches a streaming history sink (spec section 5): every
// flushInterval ticks, buffered ticks are written to sink, and once
// retainTicks is exceeded the oldest already-flushed ticks are dropped
// from in-memory History() (they remain durable in sink). Must be
// called before Run; replaces any previously configured sink.
func (h *Harness) SetSink(sink history.Sink, flushInterval, retainTicks int) {
	h.recorder = history.NewRecorder(sink, flushInterval, retainTicks)
}

// DT returns the configured tick duration.
func (h *Harness) DT() float64 { return h.dt }

// NumSteps returns the configured total tick count.
func (h *Harness) NumSteps() int { return h.numSteps }

// Bus returns the harness's message bus, for components/agents
// constructed outside the harness (e.g. by a ScenarioLoader) that need
// it as a Deps collaborator.
func (h *Harness) Bus() *bus.Bus { return h.bus }

// Components returns the live component registry, for agent
// constructors that resolve a component_id (e.g. PerceptionAgent).
func (h *Harness) Components() map[string]component.Component {
	return h.components
}

// AddComponent registers a component by its own ID.
func (h *Harness) AddComponent(c component.Component) {
	h.components[c.ID()] = c
	h.currentStates[c.ID()] = c.State()
}

// AddAgent registers an agent; agents run in registration order during
// Phase A.
func (h *Harness) AddAgent(a agent.Agent) {
	h.agents = append(h.agents, a)
}

// AddConnection records a topology edge. Endpoints are validated at
// Build.
func (h *Harness) AddConnection(upstreamID, downstreamID string) {
	h.edges = append(h.edges, topology.Edge{Upstream: upstreamID, Downstream: downstreamID})
}

// AddDisturbance schedules a one-shot side-channel disturbance: at the
// start of tick timeStep, componentID's SetInflow (action == "inflow")
// or SetState(action, value) (any other action, naming the state key) is
// invoked before Phase A runs.
func (h *Harness) AddDisturbance(timeStep int, componentID, action string, value float64) {
	h.disturbances = append(h.disturbances, scheduledDisturbance{
		timeStep: timeStep, componentID: componentID, action: action, value: value,
	})
}

// AddController registers an orchestrated-mode control binding: each
// tick, before Phase B, the harness reads observationKey from
// observedID's start-of-tick state, calls ctrl.ComputeAction, and
// injects the result as control_signal into controlledID's action map.
func (h *Harness) AddController(controlledID, observedID, observationKey string, ctrl controller.Controller) error {
	if _, ok := h.components[controlledID]; !ok {
		return &simerr.WiringError{ReferrerID: controlledID, MissingID: controlledID, Context: "add_controller controlled_id"}
	}
	if _, ok := h.components[observedID]; !ok {
		return &simerr.WiringError{ReferrerID: controlledID, MissingID: observedID, Context: "add_controller observed_id"}
	}
	h.controllers = append(h.controllers, controllerBinding{
		controlledID: controlledID, observedID: observedID, observationKey: observationKey, ctrl: ctrl,
	})
	return nil
}

// Build validates every connection endpoint, computes the deterministic
// topological step order, and caches it. It must be called exactly once,
// after all components and connections are registered and before Run.
func (h *Harness) Build() error {
	ids := make([]string, 0, len(h.components))
	for id := range h.components {
		ids = append(ids, id)
	}
	for _, e := range h.edges {
		if _, ok := h.components[e.Upstream]; !ok {
			return &simerr.WiringError{ReferrerID: "topology", MissingID: e.Upstream, Context: "topology edge upstream"}
		}
		if _, ok := h.components[e.Downstream]; !ok {
			return &simerr.WiringError{ReferrerID: "topology", MissingID: e.Downstream, Context: "topology edge downstream"}
		}
	}
	g := topology.NewGraph(ids, h.edges)
	order, err := g.TopoSort()
	if err != nil {
		return err
	}
	h.graph = g
	h.order = order
	h.built = true
	return nil
}

// History returns the recorded ticks retained in memory so far. Empty
// until Run completes at least one tick, and empty entirely if Build
// failed with CycleDetected (spec section 8, property 5). When a sink
// is attached via SetSink, this reflects only the retainTicks window;
// the full history is durable in the sink.
func (h *Harness) History() []Tick {
	return h.recorder.Ticks()
}

// Run executes the two-phase tick loop for numSteps ticks (spec section
// 4.5). A StepFault or any error from Build-time validation aborts the
// run immediately; history accumulated up to the failing tick remains
// available via History.
func (h *Harness) Run(mode Mode) error {
	if !h.built {
		if err := h.Build(); err != nil {
			return err
		}
	}
	for tick := 0; tick < h.numSteps; tick++ {
		h.tick = tick
		h.simTime = float64(tick) * h.dt

		h.applyDisturbances(tick)

		startOfTick := cloneStates(h.currentStates)

		if mode == ModeMAS {
			for _, a := range h.agents {
				h.runAgent(a)
			}
		} else {
			h.runControllers(startOfTick)
		}

		for _, id := range h.order {
			comp := h.components[id]
			action := h.buildAction(id, startOfTick)
			newState, err := comp.Step(action, h.dt)
			if err != nil {
				if sf, ok := err.(*simerr.StepFault); ok {
					if sf.Tick == 0 {
						sf.Tick = tick
					}
					return sf
				}
				return &simerr.StepFault{Tick: tick, ComponentID: id, Cause: err}
			}
			h.currentStates[id] = newState
		}

		rec := Tick{Tick: tick, Time: h.simTime, States: cloneStates(h.currentStates)}
		if err := h.recorder.Append(rec); err != nil {
			return err
		}
	}
	return h.recorder.Close()
}

func (h *Harness) applyDisturbances(tick int) {
	for _, d := range h.disturbances {
		if d.timeStep != tick {
			continue
		}
		comp, ok := h.components[d.componentID]
		if !ok {
			continue
		}
		if d.action == "inflow" {
			comp.SetInflow(d.value)
		} else {
			comp.SetState(d.action, d.value)
		}
	}
}

// runAgent calls agent.Run, recovering any panic as a logged HandlerFault
// so one misbehaving agent cannot crash the harness (spec section 4.4's
// failure semantics apply uniformly to agents and bus handlers).
func (h *Harness) runAgent(a agent.Agent) {
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			fault := &simerr.HandlerFault{SubscriberID: a.ID(), Cause: cause}
			h.logger.Warn("agent run fault", "agent", a.ID(), "error", fault)
		}
	}()
	a.Run(h.simTime)
}

// runControllers evaluates every orchestrated-mode binding against the
// start-of-tick snapshot and stashes the result for buildAction to pick
// up as control_signal.
func (h *Harness) runControllers(startOfTick map[string]simtypes.Scalars) {
	h.pendingControlSignal = make(map[string]float64, len(h.controllers))
	for _, cb := range h.controllers {
		obs, ok := startOfTick[cb.observedID]
		if !ok {
			continue
		}
		action := cb.ctrl.ComputeAction(obs.Get(cb.observationKey), h.dt)
		h.pendingControlSignal[cb.controlledID] = action
	}
}

// buildAction assembles the Phase-B action map for id (spec section
// 4.5): inflow sums predecessors' already-stepped outflow THIS tick;
// upstream_head averages predecessors' already-stepped head THIS tick;
// downstream_head and downstream_outflow average successors' state AT
// THE START of this tick, since successors have not stepped yet.
func (h *Harness) buildAction(id string, startOfTick map[string]simtypes.Scalars) simtypes.Scalars {
	action := simtypes.Scalars{component.ActionDT: h.dt}

	var inflow float64
	var headSum float64
	var headCount int
	for _, pred := range h.graph.Predecessors(id) {
		st, ok := h.currentStates[pred]
		if !ok {
			continue
		}
		inflow += st.Get(component.StateOutflow)
		if v, ok := headValue(st); ok {
			headSum += v
			headCount++
		}
	}
	action[component.ActionInflow] = inflow
	if headCount > 0 {
		action[component.ActionUpstreamHead] = headSum / float64(headCount)
	}

	var downHeadSum, downOutflowSum float64
	var downHeadCount, downOutflowCount int
	for _, succ := range h.graph.Successors(id) {
		st, ok := startOfTick[succ]
		if !ok {
			continue
		}
		if v, ok := headValue(st); ok {
			downHeadSum += v
			downHeadCount++
		}
		downOutflowSum += st.Get(component.StateOutflow)
		downOutflowCount++
	}
	if downHeadCount > 0 {
		action[component.ActionDownstreamHead] = downHeadSum / float64(downHeadCount)
	}
	if downOutflowCount > 0 {
		action[component.ActionDownstreamOutflow] = downOutflowSum / float64(downOutflowCount)
	}

	if v, ok := h.pendingControlSignal[id]; ok {
		action[component.ActionControlSignal] = v
	}

	return action
}

// headValue reads a component's head-like state, preferring water_level
// then head, matching spec section 4.5's "average water_level or head".
func headValue(s simtypes.Scalars) (float64, bool) {
	if s.Has(component.StateWaterLevel) {
		return s.Get(component.StateWaterLevel), true
	}
	if s.Has(component.StateHead) {
		return s.Get(component.StateHead), true
	}
	return 0, false
}

func cloneStates(m map[string]simtypes.Scalars) map[string]simtypes.Scalars {
	out := make(map[string]simtypes.Scalars, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}
