package component

import (
	"math"

	"github.com/openhydro/aquasim/internal/simerr"
	"github.com/openhydro/aquasim/internal/simtypes"
)

// Pipe implements spec section 4.2's pressure-driven pipe flow:
// Q = C * sqrt(max(0, h_up - h_down)), C = A*sqrt(2g*D/(f*L)). No
// reverse flow, no actuation — a Pipe is a fixed passive conduit.
type Pipe struct {
	base
	coeff   float64
	outflow float64
}

// NewPipe constructs a Pipe from Config. Callers may supply either an
// explicit "C" parameter or the physical quantities (diameter, length,
// friction_factor, area) from which C is derived.
func NewPipe(cfg Config, _ Deps) (Component, error) {
	p := &Pipe{base: newBase(cfg.ID, cfg.Parameters)}
	if c, ok := cfg.Parameters["C"]; ok {
		p.coeff = c
	} else {
		area := p.param("area", 1.0)
		diameter := p.param("diameter", 1.0)
		friction := p.param("friction_factor", 0.02)
		length := p.param("length", 1.0)
		if friction <= 0 || length <= 0 {
			return nil, &simerr.InvalidParameter{ComponentID: cfg.ID, Name: "friction_factor/length", Reason: "must be positive"}
		}
		p.coeff = area * math.Sqrt(2*gravity*diameter/(friction*length))
	}
	return p, nil
}

func (p *Pipe) State() simtypes.Scalars {
	return simtypes.Scalars{StateOutflow: p.outflow, StateFlow: p.outflow, StateInflow: p.extraInflow}.Clone()
}

func (p *Pipe) SetState(string, float64) {}

func (p *Pipe) Step(action simtypes.Scalars, dt float64) (simtypes.Scalars, error) {
	if dt <= 0 {
		return nil, &simerr.InvalidParameter{ComponentID: p.id, Name: "dt", Value: dt, Reason: "must be positive"}
	}
	hUp := action.Get(ActionUpstreamHead)
	hDown := action.Get(ActionDownstreamHead)
	diff := hUp - hDown
	if diff < 0 {
		diff = 0
	}
	p.outflow = p.coeff * math.Sqrt(diff)
	return p.State(), nil
}

// IdentifyParameters re-estimates the pipe's discharge coefficient from
// a batch of {flow, head_diff} samples via the least-squares fit of
// Q = C*sqrt(head_diff): C = sum(Q*sqrt(head_diff)) / sum(head_diff).
// Samples with non-positive head_diff are skipped; a batch with no
// usable samples leaves the coefficient unchanged.
func (p *Pipe) IdentifyParameters(batch []simtypes.Scalars) error {
	var num, den float64
	for _, s := range batch {
		hd := s.Get("head_diff")
		q := s.Get("flow")
		if hd <= 0 {
			continue
		}
		sq := math.Sqrt(hd)
		num += q * sq
		den += hd
	}
	if den <= 0 {
		return nil
	}
	p.coeff = num / den
	return nil
}
