package controller

// BangBang is a two-state controller: output snaps to max_output when the
// observation is below setpoint minus a deadband, min_output when above
// setpoint plus a deadband, and holds its previous output inside the
// deadband (spec section 4.3's "simpler alternative" to PID).
type BangBang struct {
	setpoint  float64
	deadband  float64
	minOutput float64
	maxOutput float64
	lastOutput float64
}

// NewBangBang constructs a BangBang from Config. Recognized params:
// setpoint, deadband, min_output, max_output.
func NewBangBang(cfg Config) (Controller, error) {
	return &BangBang{
		setpoint:  cfg.Params["setpoint"],
		deadband:  cfg.Params["deadband"],
		minOutput: cfg.Params["min_output"],
		maxOutput: cfg.Params["max_output"],
	}, nil
}

func (b *BangBang) SetSetpoint(value float64) {
	b.setpoint = value
}

func (b *BangBang) ComputeAction(observation, dt float64) float64 {
	errVal := b.setpoint - observation
	switch {
	case errVal > b.deadband:
		b.lastOutput = b.maxOutput
	case errVal < -b.deadband:
		b.lastOutput = b.minOutput
	}
	return b.lastOutput
}
