// Package bus implements the synchronous, topic-based publish/subscribe
// message bus described in spec section 4.1. Delivery is same-thread and
// depth-first: a handler that publishes to another topic during delivery
// causes that topic's subscribers to run to completion before the
// publisher's own remaining subscribers run. There is no queue and no
// replay — a subscriber that joins after a Publish call simply misses it.
package bus

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/openhydro/aquasim/internal/simerr"
	"github.com/openhydro/aquasim/internal/simtypes"
)

// DefaultMaxCascadeDepth is the default bound on re-entrant Publish calls
// (spec section 5: "detect and abort infinite publish loops after a
// configured depth, default 64").
const DefaultMaxCascadeDepth = 64

// Handler receives a delivered message. Handlers must not retain mutable
// references into msg beyond the call; Message.Clone exists for that.
type Handler func(topic string, msg simtypes.Message)

// Handle identifies a subscription for Unsubscribe.
type Handle struct {
	id    uuid.UUID
	topic string
}

type subscription struct {
	id           uuid.UUID
	subscriberID string
	handler      Handler
}

// Bus is a synchronous in-process publish/subscribe message bus.
type Bus struct {
	logger   *slog.Logger
	maxDepth int

	subs map[string][]subscription

	depth       int
	maxObserved int

	clock func() (tick int, simTime float64)
}

// New creates a bus ready for use. logger may be nil, in which case
// diagnostics are discarded. maxDepth of 0 selects DefaultMaxCascadeDepth.
func New(logger *slog.Logger, maxDepth int) *Bus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxCascadeDepth
	}
	return &Bus{
		logger:   logger,
		maxDepth: maxDepth,
		subs:     make(map[string][]subscription),
	}
}

// SetClock installs the function the bus uses to stamp published
// messages with the current tick and simulated time. The harness calls
// this once at construction; without it, messages are stamped tick=0,
// time=0.
func (b *Bus) SetClock(clock func() (tick int, simTime float64)) {
	b.clock = clock
}

// MaxObservedDepth returns the deepest cascade reached so far, useful for
// scenario authors tuning the cascade depth limit.
func (b *Bus) MaxObservedDepth() int {
	return b.maxObserved
}

// Subscribe registers handler to receive messages published to topic.
// subscriberID identifies the owning agent/component and makes the call
// idempotent: a second Subscribe with the same (topic, subscriberID)
// pair is a no-op that returns the original handle.
func (b *Bus) Subscribe(topic, subscriberID string, handler Handler) Handle {
	for _, s := range b.subs[topic] {
		if s.subscriberID == subscriberID {
			return Handle{id: s.id, topic: topic}
		}
	}
	sub := subscription{id: uuid.New(), subscriberID: subscriberID, handler: handler}
	b.subs[topic] = append(b.subs[topic], sub)
	return Handle{id: sub.id, topic: topic}
}

// Unsubscribe removes a subscription. Safe to call with an already-removed
// handle.
func (b *Bus) Unsubscribe(h Handle) {
	subs := b.subs[h.topic]
	for i, s := range subs {
		if s.id == h.id {
			b.subs[h.topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// SubscriberCount returns the number of active subscribers on topic.
func (b *Bus) SubscriberCount(topic string) int {
	return len(b.subs[topic])
}

// cascadeDepthPanic unwinds the call stack back to the outermost Publish
// frame, where it is converted into a CascadeDepthExceeded error. It must
// never be mistaken for an ordinary handler panic, so callHandler
// re-panics it instead of converting it to a HandlerFault.
type cascadeDepthPanic struct {
	topic string
	max   int
}

// Publish delivers msg synchronously to every current subscriber of
// topic, in subscription order, and returns after all handlers have
// returned. A handler that panics is recovered and logged as a
// HandlerFault; delivery continues to the remaining subscribers. The
// only error Publish itself returns is CascadeDepthExceeded, raised when
// re-entrant publishing (a handler publishing from within a handler)
// exceeds the configured depth.
func (b *Bus) Publish(topic string, msg simtypes.Message) (err error) {
	stamped := b.stamp(msg)

	b.depth++
	top := b.depth == 1
	if b.depth > b.maxObserved {
		b.maxObserved = b.depth
	}
	defer func() { b.depth-- }()

	if b.depth > b.maxDepth {
		panic(cascadeDepthPanic{topic: topic, max: b.maxDepth})
	}

	if !top {
		b.deliver(topic, stamped)
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			cd, ok := r.(cascadeDepthPanic)
			if !ok {
				panic(r)
			}
			err = &simerr.CascadeDepthExceeded{Topic: cd.topic, MaxDepth: cd.max}
		}
	}()
	b.deliver(topic, stamped)
	return nil
}

func (b *Bus) stamp(msg simtypes.Message) simtypes.Message {
	stamped := msg.Clone()
	if stamped == nil {
		stamped = simtypes.Message{}
	}
	tick, simTime := 0, 0.0
	if b.clock != nil {
		tick, simTime = b.clock()
	}
	stamped["_tick"] = tick
	stamped["_time"] = simTime
	return stamped
}

// deliver iterates a snapshot of the current subscriber list so that
// subscribers added or removed during this delivery do not affect it
// (spec section 4.1: new subscribers take effect on the next Publish).
func (b *Bus) deliver(topic string, msg simtypes.Message) {
	subs := b.subs[topic]
	if len(subs) == 0 {
		return
	}
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)

	for _, s := range snapshot {
		if fault := callHandler(s, topic, msg); fault != nil {
			b.logger.Warn("bus handler fault",
				"topic", topic, "subscriber", s.subscriberID, "error", fault.Error())
		}
	}
}

func callHandler(s subscription, topic string, msg simtypes.Message) (fault *simerr.HandlerFault) {
	defer func() {
		if r := recover(); r != nil {
			if cd, ok := r.(cascadeDepthPanic); ok {
				panic(cd)
			}
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			fault = &simerr.HandlerFault{Topic: topic, SubscriberID: s.subscriberID, Cause: cause}
		}
	}()
	s.handler(topic, msg)
	return nil
}
