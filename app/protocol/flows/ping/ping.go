// Package ping implements the liveness/RTT flow. Grounded
// on kaspad's app/protocol/flows/ping package: ReceivePings echoes every
// Ping immediately, SendPings sends this node's own Pings on a fixed
// interval, and ReceivePongs consumes the replies.
package ping

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/tensorchain/tensorchain/app/appmessage"
	"github.com/tensorchain/tensorchain/app/protocol/peer"
	"github.com/tensorchain/tensorchain/app/protocolerrors"
	"github.com/tensorchain/tensorchain/infrastructure/network/netadapter/router"
)

// pingInterval is how often SendPings sends a Ping on a connection,
// whether or not the connection is otherwise idle.
const pingInterval = 30 * time.Second

// ReceivePings answers every PingMessage on incomingRoute with a
// PongMessage carrying the same nonce, until the route closes.
func ReceivePings(incomingRoute *router.Route, outgoingRoute *router.Route) error {
	for {
		message, err := incomingRoute.Dequeue()
		if err != nil {
			return err
		}
		ping, ok := message.(*appmessage.PingMessage)
		if !ok {
			return protocolerrors.Errorf(true, "expected a ping message, got %s", message.Command())
		}
		if err := outgoingRoute.Enqueue(appmessage.NewPongMessage(ping.Nonce)); err != nil {
			return err
		}
	}
}

// ReceivePongs drains PongMessages for p, for a future RTT-tracking
// extension; today it only guards against an unconsumed route filling up.
func ReceivePongs(incomingRoute *router.Route, p *peer.Peer) error {
	for {
		message, err := incomingRoute.Dequeue()
		if err != nil {
			return err
		}
		if _, ok := message.(*appmessage.PongMessage); !ok {
			return protocolerrors.Errorf(true, "expected a pong message, got %s", message.Command())
		}
	}
}

// SendPings periodically enqueues a PingMessage carrying a random nonce on
// outgoingRoute, on this node's own initiative rather than in answer to
// anything. There is no reply correlation here; ReceivePongs separately
// drains whatever comes back so the peer's route never backs up. The loop
// ends once outgoingRoute reports closed, which happens when the
// connection disconnects.
func SendPings(outgoingRoute *router.Route) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for range ticker.C {
		nonce, err := randomNonce()
		if err != nil {
			return err
		}
		if err := outgoingRoute.Enqueue(appmessage.NewPingMessage(nonce)); err != nil {
			return err
		}
	}
	return nil
}

func randomNonce() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
