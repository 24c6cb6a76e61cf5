package agent

// registerBuiltins populates r with every agent class this module ships.
func registerBuiltins(r *Registry) {
	r.Register("DigitalTwinAgent", NewDigitalTwinAgent)
	r.Register("PerceptionAgent", NewPerceptionAgent)
	r.Register("LocalControlAgent", NewLocalControlAgent)
	r.Register("PumpControlAgent", NewPumpControlAgent)
	r.Register("PumpStationControlAgent", NewPumpStationControlAgent)
	r.Register("ValveStationControlAgent", NewValveStationControlAgent)
	r.Register("HydropowerStationControlAgent", NewHydropowerStationControlAgent)
	r.Register("CentralDispatcher", NewCentralDispatcher)
	r.Register("RainfallAgent", NewRainfallAgent)
	r.Register("DynamicRainfallAgent", NewDynamicRainfallAgent)
	r.Register("WaterUseAgent", NewWaterUseAgent)
	r.Register("CsvInflowAgent", NewCsvInflowAgent)
	r.Register("ScenarioAgent", NewScenarioAgent)
	r.Register("ParameterIdentificationAgent", NewParameterIdentificationAgent)
}
