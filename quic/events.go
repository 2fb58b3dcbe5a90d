package quic

import (
	"container/list"
	"context"
	"sync"

	events "github.com/docker/go-events"

	"github.com/kcenon/netquic/internal/dcontext"
)

// ConnectedEvent fires once the handshake completes and the connection
// reaches Established.
type ConnectedEvent struct{}

// StreamDataEvent delivers newly reassembled, in-order bytes for a
// stream, per the "on_stream_data" application callback.
type StreamDataEvent struct {
	StreamID uint64
	Data     []byte
	Fin      bool
}

// StreamResetEvent fires when the peer abandons a stream's send side.
type StreamResetEvent struct {
	StreamID  uint64
	ErrorCode uint64
}

// DisconnectedEvent fires exactly once when the connection reaches
// Closed, carrying the TransportError that caused the close (nil for a
// local graceful close with NO_ERROR).
type DisconnectedEvent struct {
	Err error
}

// eventQueue accepts every connection event into an unbounded queue for
// asynchronous delivery to a sink, so emitting an event from the
// connection executor never blocks on a slow application consumer. It is
// adapted from the teacher's notification dispatch queue, trimmed to the
// single-sink case a connection needs.
type eventQueue struct {
	ctx    context.Context
	sink   events.Sink
	events *list.List
	cond   *sync.Cond
	mu     sync.Mutex
	closed bool
}

func newEventQueue(ctx context.Context, sink events.Sink) *eventQueue {
	eq := &eventQueue{ctx: ctx, sink: sink, events: list.New()}
	eq.cond = sync.NewCond(&eq.mu)
	go eq.run()
	return eq
}

// Write enqueues evt, failing only if the queue has already been closed.
func (eq *eventQueue) Write(evt events.Event) error {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	if eq.closed {
		return errClosed
	}
	eq.events.PushBack(evt)
	eq.cond.Signal()
	return nil
}

// Close stops the delivery goroutine once the queue drains and closes the
// underlying sink.
func (eq *eventQueue) Close() error {
	eq.mu.Lock()
	if eq.closed {
		eq.mu.Unlock()
		return errClosed
	}
	eq.closed = true
	eq.cond.Signal()
	eq.mu.Unlock()
	return eq.sink.Close()
}

func (eq *eventQueue) run() {
	for {
		evt := eq.next()
		if evt == nil {
			return
		}
		if err := eq.sink.Write(evt); err != nil {
			dcontext.GetLogger(eq.ctx).Warnf("quic: dropping event, sink write failed: %v", err)
		}
	}
}

func (eq *eventQueue) next() events.Event {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	for eq.events.Len() < 1 {
		if eq.closed {
			return nil
		}
		eq.cond.Wait()
	}
	front := eq.events.Front()
	eq.events.Remove(front)
	return front.Value.(events.Event)
}

var errClosed = &LocalError{Op: "emit event", Err: errAlreadyClosed}

type queueClosedError struct{}

func (queueClosedError) Error() string { return "quic: event queue already closed" }

var errAlreadyClosed = queueClosedError{}
