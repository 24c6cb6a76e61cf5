package controller

// SolverFunc is a caller-supplied black-box minimizer: given the current
// observation, the setpoint, and dt, it returns the control output to
// apply this tick. MPCFacade does not implement any optimization itself
// (spec section 1 excludes solver internals); it only adapts a SolverFunc
// to the Controller interface so agents can use one interchangeably with
// PID or BangBang.
type SolverFunc func(observation, setpoint, dt float64) float64

// MPCFacade wraps a SolverFunc as a Controller.
type MPCFacade struct {
	setpoint float64
	solve    SolverFunc
}

// NewMPCFacadeWith builds an MPCFacade around an explicit solver. Use this
// from code that constructs controllers directly; the registry-driven
// NewMPCFacade below has no solver to wire.
func NewMPCFacadeWith(cfg Config, solve SolverFunc) (Controller, error) {
	return &MPCFacade{setpoint: cfg.Params["setpoint"], solve: solve}, nil
}

// NewMPCFacade satisfies the controller.Constructor signature for
// registry-based construction. It returns a facade with no solver and no
// error; such a facade's ComputeAction always returns 0. A scenario that
// needs real MPC output must be wired up by caller code that supplies a
// solver via NewMPCFacadeWith.
func NewMPCFacade(cfg Config) (Controller, error) {
	return NewMPCFacadeWith(cfg, nil)
}

func (m *MPCFacade) SetSetpoint(value float64) {
	m.setpoint = value
}

func (m *MPCFacade) ComputeAction(observation, dt float64) float64 {
	if m.solve == nil {
		return 0
	}
	return m.solve(observation, m.setpoint, dt)
}
