package router

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/app/appmessage"
)

// Router dispatches incoming messages to the Route registered for their
// command and multiplexes every registered outgoing Route onto a single
// connection's send loop. One Router backs one connection.
type Router struct {
	mu              sync.RWMutex
	incomingRoutes  map[appmessage.MessageCommand]*Route
	outgoingRoute   *Route
	onRouteNotFound func(message appmessage.Message)
}

// NewRouter constructs an empty Router. Call AddIncomingRoute for every
// command a flow wants to receive before the connection starts reading.
func NewRouter() *Router {
	return &Router{
		incomingRoutes: make(map[appmessage.MessageCommand]*Route),
		outgoingRoute:  NewRouteWithCapacity(DefaultMaxMessages),
	}
}

// AddIncomingRoute registers route to receive every message whose command
// is in commands.
func (r *Router) AddIncomingRoute(route *Route, commands ...appmessage.MessageCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, command := range commands {
		r.incomingRoutes[command] = route
	}
}

// SetOnRouteNotFoundHandler sets the handler invoked when RouteInputMessage
// receives a command with no registered route, instead of silently
// dropping it.
func (r *Router) SetOnRouteNotFoundHandler(handler func(message appmessage.Message)) {
	r.onRouteNotFound = handler
}

// RouteInputMessage dispatches message, received off the wire, to its
// registered incoming Route.
func (r *Router) RouteInputMessage(message appmessage.Message) error {
	r.mu.RLock()
	route, ok := r.incomingRoutes[message.Command()]
	r.mu.RUnlock()
	if !ok {
		if r.onRouteNotFound != nil {
			r.onRouteNotFound(message)
			return nil
		}
		return errors.Errorf("no route registered for command %s", message.Command())
	}
	return route.Enqueue(message)
}

// OutgoingRoute returns the single shared outgoing route every flow
// writes to; the connection's send loop drains it in FIFO order.
func (r *Router) OutgoingRoute() *Route {
	return r.outgoingRoute
}

// Close closes every incoming route and the outgoing route.
func (r *Router) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[*Route]bool)
	for _, route := range r.incomingRoutes {
		if seen[route] {
			continue
		}
		seen[route] = true
		if err := route.Close(); err != nil {
			return err
		}
	}
	return r.outgoingRoute.Close()
}
