// Package router implements the per-connection message routing every P2P
// connection is built around: a bounded, named channel per message
// command a protocol flow reads from or writes to. Adapted near-verbatim
// from kaspad's netadapter/router/route.go, retyped from
// wire.Message onto this repo's appmessage.Message and given a capacity
// the caller chooses, since this repo's flows need routes of different
// sizes (bulk block-body backfill vs. a handshake's one-shot exchange).
package router

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/app/appmessage"
)

// DefaultMaxMessages is the route capacity used when a caller does not
// need a different bound.
const DefaultMaxMessages = 100

var (
	// ErrTimeout signifies that one of the route functions had a timeout.
	ErrTimeout = errors.New("timeout expired")

	// ErrRouteClosed indicates that a route was closed while reading/writing.
	ErrRouteClosed = errors.New("route is closed")
)

// onCapacityReachedHandler is called when Enqueue finds a route at
// capacity, just before its send attempt; a Route's owner uses it to log
// or disconnect a peer that isn't draining its queue.
type onCapacityReachedHandler func()

// Route is a single bounded channel of messages, identified by the
// command(s) its owner registers it for.
type Route struct {
	channel chan appmessage.Message

	closed    bool
	closeLock sync.Mutex

	capacity                 int
	onCapacityReachedHandler onCapacityReachedHandler
}

// NewRoute creates a new Route with DefaultMaxMessages capacity.
func NewRoute() *Route {
	return NewRouteWithCapacity(DefaultMaxMessages)
}

// NewRouteWithCapacity creates a new Route with the given capacity.
func NewRouteWithCapacity(capacity int) *Route {
	return &Route{
		channel:  make(chan appmessage.Message, capacity),
		capacity: capacity,
	}
}

// Enqueue enqueues a message to the Route without blocking. If the route
// is already at capacity, onCapacityReachedHandler (if set) runs first;
// a message that still does not fit is dropped and ErrRouteClosed is
// returned.
func (r *Route) Enqueue(message appmessage.Message) error {
	r.closeLock.Lock()
	defer r.closeLock.Unlock()

	if r.closed {
		return errors.WithStack(ErrRouteClosed)
	}
	if len(r.channel) == r.capacity && r.onCapacityReachedHandler != nil {
		r.onCapacityReachedHandler()
	}
	select {
	case r.channel <- message:
		return nil
	default:
		return errors.WithStack(ErrRouteClosed)
	}
}

// Dequeue dequeues a message from the Route, blocking until one arrives.
func (r *Route) Dequeue() (appmessage.Message, error) {
	message, isOpen := <-r.channel
	if !isOpen {
		return nil, errors.WithStack(ErrRouteClosed)
	}
	return message, nil
}

// DequeueWithTimeout dequeues a message from the Route or returns
// ErrTimeout if none arrives within timeout.
func (r *Route) DequeueWithTimeout(timeout time.Duration) (appmessage.Message, error) {
	select {
	case <-time.After(timeout):
		return nil, errors.Wrapf(ErrTimeout, "got timeout after %s", timeout)
	case message, isOpen := <-r.channel:
		if !isOpen {
			return nil, errors.WithStack(ErrRouteClosed)
		}
		return message, nil
	}
}

// SetOnCapacityReachedHandler sets the handler run when Enqueue observes
// the route at capacity.
func (r *Route) SetOnCapacityReachedHandler(handler func()) {
	r.onCapacityReachedHandler = handler
}

// Close closes the route. Any blocked or future Dequeue returns
// ErrRouteClosed; any future Enqueue does too.
func (r *Route) Close() error {
	r.closeLock.Lock()
	defer r.closeLock.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	close(r.channel)
	return nil
}
