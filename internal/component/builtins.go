package component

// registerBuiltins populates r with every component class this module
// ships. "Lake" is a naming alias for Reservoir (spec section 4.2 groups
// them as one model).
func registerBuiltins(r *Registry) {
	r.Register("Reservoir", NewReservoir)
	r.Register("Lake", NewReservoir)
	r.Register("Gate", NewGate)
	r.Register("Canal", NewCanal)
	r.Register("Pipe", NewPipe)
	r.Register("Pump", NewPump)
	r.Register("Valve", NewValve)
	r.Register("Turbine", NewTurbine)
}
