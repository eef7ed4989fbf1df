package netadapter

import (
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/app/appmessage"
	"github.com/tensorchain/tensorchain/codec"
)

// Connection wraps a single TCP socket, sending and receiving
// length-prefixed appmessage.Message frames via codec.EncodeMessage/
// DecodeMessage. There is no gRPC layer here; framing runs directly over
// net.Conn, grounded on kaspad's older, leaner netadapter/server
// transport rather than its grpcserver (see DESIGN.md).
type Connection struct {
	conn       net.Conn
	outbound   bool
	remoteAddr string

	disconnectOnce sync.Once
	disconnectedCh chan struct{}

	peerID *ID

	onDisconnectedHandler func()
}

func newConnection(conn net.Conn, outbound bool) *Connection {
	return &Connection{
		conn:           conn,
		outbound:       outbound,
		remoteAddr:     conn.RemoteAddr().String(),
		disconnectedCh: make(chan struct{}),
	}
}

// Send writes message to the connection as a single frame.
func (c *Connection) Send(message appmessage.Message) error {
	return codec.EncodeMessage(c.conn, message)
}

// Receive blocks until a full frame arrives and returns its decoded
// message.
func (c *Connection) Receive() (appmessage.Message, error) {
	return codec.DecodeMessage(c.conn)
}

// Address returns the remote endpoint's address string.
func (c *Connection) Address() string { return c.remoteAddr }

// IsOutbound reports whether this connection was dialed locally, as
// opposed to accepted from a listener.
func (c *Connection) IsOutbound() bool { return c.outbound }

// ID returns the peer ID associated with this connection after the
// handshake sets it, or nil before then.
func (c *Connection) ID() *ID { return c.peerID }

// SetID associates peerID with this connection; RegisterConnection calls
// it with the ID the handshake flow generated for the connection.
func (c *Connection) SetID(peerID *ID) { c.peerID = peerID }

// SetOnDisconnectedHandler registers a callback that Disconnect runs once,
// on its first call.
func (c *Connection) SetOnDisconnectedHandler(handler func()) {
	c.onDisconnectedHandler = handler
}

// Disconnect closes the underlying socket, idempotently.
func (c *Connection) Disconnect() error {
	var err error
	c.disconnectOnce.Do(func() {
		err = c.conn.Close()
		close(c.disconnectedCh)
		if c.onDisconnectedHandler != nil {
			c.onDisconnectedHandler()
		}
	})
	return err
}

func (c *Connection) String() string {
	direction := "inbound"
	if c.outbound {
		direction = "outbound"
	}
	return direction + " " + c.remoteAddr
}

// Dial opens an outbound Connection to address.
func Dial(address string) (*Connection, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", address)
	}
	return newConnection(conn, true), nil
}
