package controller

// PID implements the canonical controller of spec section 4.3, with
// clamped-output anti-windup: the integral term is skipped on ticks
// where the previous output was saturated and the error has the same
// sign as that saturated output (continuing to integrate would only
// push the output further into saturation).
type PID struct {
	kp, ki, kd       float64
	minOutput        float64
	maxOutput        float64
	setpoint         float64
	integral         float64
	prevError        float64
	havePrevError    bool
	prevOutputClamped bool
	prevOutputSign    float64
}

// NewPID constructs a PID from Config. Recognized params: kp, ki, kd,
// setpoint, min_output, max_output.
func NewPID(cfg Config) (Controller, error) {
	return &PID{
		kp:        cfg.Params["kp"],
		ki:        cfg.Params["ki"],
		kd:        cfg.Params["kd"],
		setpoint:  cfg.Params["setpoint"],
		minOutput: cfg.Params["min_output"],
		maxOutput: cfg.Params["max_output"],
	}, nil
}

func (p *PID) SetSetpoint(value float64) {
	p.setpoint = value
}

func (p *PID) ComputeAction(observation, dt float64) float64 {
	if dt <= 0 {
		dt = 1
	}
	errVal := p.setpoint - observation

	skipIntegral := p.prevOutputClamped && sign(errVal) == p.prevOutputSign && p.prevOutputSign != 0
	if !skipIntegral {
		p.integral += errVal * dt
	}

	derivative := 0.0
	if p.havePrevError {
		derivative = (errVal - p.prevError) / dt
	}

	raw := p.kp*errVal + p.ki*p.integral + p.kd*derivative
	output := raw
	clamped := false
	if output > p.maxOutput {
		output = p.maxOutput
		clamped = true
	} else if output < p.minOutput {
		output = p.minOutput
		clamped = true
	}

	p.prevError = errVal
	p.havePrevError = true
	p.prevOutputClamped = clamped
	p.prevOutputSign = sign(output)

	return output
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
