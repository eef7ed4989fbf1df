// Package netadapter is the networking abstraction layer every protocol
// flow is built on: it accepts and dials TCP connections, wraps each in a
// Router via a caller-supplied RouterInitializer, and runs a receive/send
// loop per connection. Adapted from kaspad's netadapter.go; the
// gRPC-based server.Server/grpcserver beneath it is replaced with a plain
// net.Listener plus the length-prefixed Connection in connection.go (see
// DESIGN.md for why grpcserver and its protobuf dependency are dropped).
package netadapter

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/app/appmessage"
	"github.com/tensorchain/tensorchain/infrastructure/network/netadapter/router"
	"github.com/tensorchain/tensorchain/logger"
	"github.com/tensorchain/tensorchain/util/panics"
)

var log = logger.Get(logger.TagNtwk)
var spawn = panics.GoroutineWrapperFunc(log)

// RouterInitializer builds a new Router for a newly established
// connection, registering whatever incoming routes its flows need.
type RouterInitializer func(connection *Connection) (*router.Router, error)

// NetAdapter owns every connection this node has, inbound and outbound,
// dispatching each through the Router its RouterInitializer builds.
type NetAdapter struct {
	id                *ID
	listeners         []net.Listener
	routerInitializer RouterInitializer
	stopped           uint32

	mu               sync.Mutex
	idsToConnections map[ID]*Connection
	idsToRouters     map[ID]*router.Router
}

// NewNetAdapter creates a NetAdapter that will listen on listeningAddrs
// once Start is called.
func NewNetAdapter(listeningAddrs []string) (*NetAdapter, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}

	na := &NetAdapter{
		id:               id,
		idsToConnections: make(map[ID]*Connection),
		idsToRouters:     make(map[ID]*router.Router),
	}

	for _, addr := range listeningAddrs {
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to listen on %s", addr)
		}
		na.listeners = append(na.listeners, listener)
	}

	return na, nil
}

// SetRouterInitializer sets the function used to build a Router for every
// new connection. Must be called before Start.
func (na *NetAdapter) SetRouterInitializer(routerInitializer RouterInitializer) {
	na.routerInitializer = routerInitializer
}

// Start begins accepting inbound connections on every configured
// listener.
func (na *NetAdapter) Start() error {
	for _, listener := range na.listeners {
		listener := listener
		spawn(func() { na.acceptLoop(listener) })
	}
	return nil
}

func (na *NetAdapter) acceptLoop(listener net.Listener) {
	for atomic.LoadUint32(&na.stopped) == 0 {
		conn, err := listener.Accept()
		if err != nil {
			if atomic.LoadUint32(&na.stopped) != 0 {
				return
			}
			log.Warnf("Failed to accept connection: %s", err)
			continue
		}
		connection := newConnection(conn, false)
		if err := na.onConnected(connection); err != nil {
			log.Warnf("Failed to initialize accepted connection from %s: %s", connection.Address(), err)
			connection.Disconnect()
		}
	}
}

// Connect dials address and registers the resulting outbound connection
// exactly as an accepted inbound one would be.
func (na *NetAdapter) Connect(address string) error {
	connection, err := Dial(address)
	if err != nil {
		return err
	}
	return na.onConnected(connection)
}

func (na *NetAdapter) onConnected(connection *Connection) error {
	r, err := na.routerInitializer(connection)
	if err != nil {
		return err
	}

	connection.SetOnDisconnectedHandler(func() {
		na.unregisterConnection(connection)
		r.Close()
	})

	spawn(func() { na.startReceiveLoop(connection, r) })
	spawn(func() { na.startSendLoop(connection, r) })
	return nil
}

// RegisterConnection associates peerID with connection and its router,
// called by the handshake flow with the ID it generated for this
// connection. If peerID is already registered it returns false and leaves
// connection as it is.
func (na *NetAdapter) RegisterConnection(connection *Connection, r *router.Router, peerID *ID) bool {
	na.mu.Lock()
	defer na.mu.Unlock()
	if _, exists := na.idsToConnections[*peerID]; exists {
		return false
	}
	connection.SetID(peerID)
	na.idsToConnections[*peerID] = connection
	na.idsToRouters[*peerID] = r
	return true
}

func (na *NetAdapter) unregisterConnection(connection *Connection) {
	na.mu.Lock()
	defer na.mu.Unlock()
	if connection.ID() == nil {
		return
	}
	delete(na.idsToConnections, *connection.ID())
	delete(na.idsToRouters, *connection.ID())
}

func (na *NetAdapter) startReceiveLoop(connection *Connection, r *router.Router) {
	for atomic.LoadUint32(&na.stopped) == 0 {
		message, err := connection.Receive()
		if err != nil {
			log.Warnf("Failed to receive from %s: %s", connection, err)
			break
		}
		if err := r.RouteInputMessage(message); err != nil {
			log.Warnf("Failed to route message from %s: %s", connection, err)
			break
		}
	}
	if err := connection.Disconnect(); err != nil {
		log.Warnf("Failed to disconnect from %s: %s", connection, err)
	}
}

func (na *NetAdapter) startSendLoop(connection *Connection, r *router.Router) {
	for atomic.LoadUint32(&na.stopped) == 0 {
		message, err := r.OutgoingRoute().Dequeue()
		if err != nil {
			break
		}
		if err := connection.Send(message); err != nil {
			log.Warnf("Failed to send to %s: %s", connection, err)
			break
		}
	}
	if err := connection.Disconnect(); err != nil {
		log.Warnf("Failed to disconnect from %s: %s", connection, err)
	}
}

// Stop closes every listener and disconnects every connection.
func (na *NetAdapter) Stop() error {
	if !atomic.CompareAndSwapUint32(&na.stopped, 0, 1) {
		return errors.New("net adapter stopped more than once")
	}
	for _, listener := range na.listeners {
		listener.Close()
	}
	na.mu.Lock()
	connections := make([]*Connection, 0, len(na.idsToConnections))
	for _, connection := range na.idsToConnections {
		connections = append(connections, connection)
	}
	na.mu.Unlock()
	for _, connection := range connections {
		connection.Disconnect()
	}
	return nil
}

// ID returns this node's own peer ID.
func (na *NetAdapter) ID() *ID { return na.id }

// Broadcast enqueues message on every named peer's outgoing route. A peer
// whose outgoing route is at capacity and disconnects rather than drain
// it is simply skipped by a later Broadcast, not retried.
func (na *NetAdapter) Broadcast(ids []*ID, message appmessage.Message) {
	na.mu.Lock()
	routers := make([]*router.Router, 0, len(ids))
	for _, id := range ids {
		if r, ok := na.idsToRouters[*id]; ok {
			routers = append(routers, r)
		}
	}
	na.mu.Unlock()
	for _, r := range routers {
		r.OutgoingRoute().Enqueue(message)
	}
}

// ConnectedIDs returns the IDs of every currently registered peer.
func (na *NetAdapter) ConnectedIDs() []*ID {
	na.mu.Lock()
	defer na.mu.Unlock()
	ids := make([]*ID, 0, len(na.idsToConnections))
	for id := range na.idsToConnections {
		idCopy := id
		ids = append(ids, &idCopy)
	}
	return ids
}
