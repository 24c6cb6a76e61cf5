// Package history implements the optional streaming-sink hook described
// in spec section 5: "for long runs, the harness exposes an optional
// streaming-sink hook that flushes and truncates history at configured
// intervals; otherwise in-memory retention is the default." TickResult
// is the harness's per-tick snapshot (spec section 3); Recorder buffers
// ticks and, when a Sink is attached, flushes them in batches and prunes
// already-durable ticks from memory.
package history

import (
	"fmt"

	"github.com/openhydro/aquasim/internal/simtypes"
)

// TickResult is one recorded tick: simulated time plus every
// component's post-step state, keyed by component ID.
type TickResult struct {
	Tick   int
	Time   float64
	States map[string]simtypes.Scalars
}

// Sink durably persists batches of ticks. WriteTicks must accept ticks
// out of any particular order tolerance only in that it will be called
// with consecutive, increasing-tick batches; a sink need not support
// concurrent use.
type Sink interface {
	WriteTicks(ticks []TickResult) error
	Close() error
}

// Recorder buffers TickResults and, when a Sink is attached, flushes
// them every flushInterval ticks. When retainTicks is positive, the
// in-memory retained slice is trimmed to the most recent retainTicks
// entries immediately after a successful flush; the pruned ticks remain
// available through the sink, not through Ticks(). Without a sink,
// retainTicks has no effect and every tick stays in memory (spec
// section 5's "otherwise in-memory retention is the default").
type Recorder struct {
	sink          Sink
	flushInterval int
	retainTicks   int

	retained  []TickResult
	unflushed []TickResult
}

// NewRecorder returns a Recorder. sink may be nil, in which case ticks
// only ever live in memory. flushInterval is clamped to at least 1.
func NewRecorder(sink Sink, flushInterval, retainTicks int) *Recorder {
	if flushInterval < 1 {
		flushInterval = 1
	}
	return &Recorder{sink: sink, flushInterval: flushInterval, retainTicks: retainTicks}
}

// Append records t, flushing to the sink and pruning memory as
// configured.
func (r *Recorder) Append(t TickResult) error {
	r.retained = append(r.retained, t)
	if r.sink == nil {
		return nil
	}
	r.unflushed = append(r.unflushed, t)
	if len(r.unflushed) < r.flushInterval {
		return nil
	}
	if err := r.flush(); err != nil {
		return err
	}
	if r.retainTicks > 0 && len(r.retained) > r.retainTicks {
		excess := len(r.retained) - r.retainTicks
		r.retained = r.retained[excess:]
	}
	return nil
}

func (r *Recorder) flush() error {
	if len(r.unflushed) == 0 {
		return nil
	}
	if err := r.sink.WriteTicks(r.unflushed); err != nil {
		return fmt.Errorf("history sink write: %w", err)
	}
	r.unflushed = nil
	return nil
}

// Ticks returns the currently retained in-memory ticks. Bounded by
// retainTicks once a sink is attached and at least one flush has
// happened; unbounded otherwise.
func (r *Recorder) Ticks() []TickResult {
	return r.retained
}

// Close flushes any remaining buffered ticks and closes the sink, if
// any.
func (r *Recorder) Close() error {
	if err := r.flush(); err != nil {
		return err
	}
	if r.sink == nil {
		return nil
	}
	return r.sink.Close()
}
