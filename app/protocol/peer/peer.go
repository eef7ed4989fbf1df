// Package peer models a single handshaked connection's protocol-level
// state, grounded on kaspad's app/protocol/peer.Peer: what a flow
// needs to know about the other side of a connection once the handshake
// completes, kept separate from the transport-level netadapter.Connection.
package peer

import (
	"sync"
	"time"

	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/infrastructure/network/netadapter"
)

// Peer is the protocol-level handle on a handshaked connection.
type Peer struct {
	id         *netadapter.ID
	connection *netadapter.Connection
	outbound   bool

	mu              sync.RWMutex
	protocolVersion uint32
	userAgent       string
	tipHash         *externalapi.DomainHash
	tipHeight       uint64
	connectedAt     time.Time
}

// New constructs a Peer around an already-handshaked connection.
func New(id *netadapter.ID, connection *netadapter.Connection, outbound bool) *Peer {
	return &Peer{
		id:          id,
		connection:  connection,
		outbound:    outbound,
		connectedAt: time.Now(),
	}
}

// ID returns the peer's netadapter identity.
func (p *Peer) ID() *netadapter.ID { return p.id }

// Address returns the remote endpoint's address string.
func (p *Peer) Address() string { return p.connection.Address() }

// IsOutbound reports whether this node dialed the peer.
func (p *Peer) IsOutbound() bool { return p.outbound }

// SetAnnouncedProperties records the version-handshake fields a peer
// reported about itself.
func (p *Peer) SetAnnouncedProperties(protocolVersion uint32, userAgent string, tipHash *externalapi.DomainHash, tipHeight uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.protocolVersion = protocolVersion
	p.userAgent = userAgent
	p.tipHash = tipHash
	p.tipHeight = tipHeight
}

// TipHeight returns the peer's self-reported tip height as of handshake.
func (p *Peer) TipHeight() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tipHeight
}

// TipHash returns the peer's self-reported tip digest as of handshake.
func (p *Peer) TipHash() *externalapi.DomainHash {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tipHash
}

func (p *Peer) String() string { return p.connection.String() }
