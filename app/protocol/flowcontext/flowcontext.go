// Package flowcontext holds the state shared across every flow and every
// peer: the orchestrator, the address book, the net adapter, and the
// live peer registry, grounded on kaspad's
// app/protocol/flowcontext.FlowContext. Individual flows receive a
// *FlowContext plus the one *peer.Peer and *router.Route pair specific to
// their goroutine.
package flowcontext

import (
	"sync"

	"github.com/tensorchain/tensorchain/app"
	"github.com/tensorchain/tensorchain/app/appmessage"
	"github.com/tensorchain/tensorchain/app/protocol/peer"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/infrastructure/network/addressmanager"
	"github.com/tensorchain/tensorchain/infrastructure/network/netadapter"
	"github.com/tensorchain/tensorchain/logger"
)

var log = logger.Get(logger.TagNtwk)

// Config names this node's own identity for the handshake.
type Config struct {
	ProtocolVersion uint32
	NetworkID       uint32
	UserAgent       string
	ServicesBitmask uint64
}

// FlowContext is the per-node state every flow, across every peer, reads
// and writes.
type FlowContext struct {
	cfg            *Config
	domain         *app.Domain
	netAdapter     *netadapter.NetAdapter
	addressManager *addressmanager.AddressManager

	mu    sync.RWMutex
	peers map[netadapter.ID]*peer.Peer
}

// New constructs a FlowContext.
func New(cfg *Config, domain *app.Domain, netAdapter *netadapter.NetAdapter, addressManager *addressmanager.AddressManager) *FlowContext {
	return &FlowContext{
		cfg:            cfg,
		domain:         domain,
		netAdapter:     netAdapter,
		addressManager: addressManager,
		peers:          make(map[netadapter.ID]*peer.Peer),
	}
}

// Config returns this node's handshake identity.
func (f *FlowContext) Config() *Config { return f.cfg }

// Domain returns the node orchestrator.
func (f *FlowContext) Domain() *app.Domain { return f.domain }

// NetAdapter returns the transport layer.
func (f *FlowContext) NetAdapter() *netadapter.NetAdapter { return f.netAdapter }

// AddressManager returns the peer address book.
func (f *FlowContext) AddressManager() *addressmanager.AddressManager { return f.addressManager }

// AddPeer registers p as handshaked under its ID, replacing any peer
// already registered under the same ID. It performs no other check.
func (f *FlowContext) AddPeer(p *peer.Peer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.peers[*p.ID()] = p
}

// RemovePeer unregisters p, called once its connection closes.
func (f *FlowContext) RemovePeer(p *peer.Peer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.peers, *p.ID())
	f.addressManager.ReleaseSlot(p.IsOutbound())
}

// Peers returns every currently handshaked peer.
func (f *FlowContext) Peers() []*peer.Peer {
	f.mu.RLock()
	defer f.mu.RUnlock()
	peers := make([]*peer.Peer, 0, len(f.peers))
	for _, p := range f.peers {
		peers = append(peers, p)
	}
	return peers
}

// idsExcept returns the IDs of every handshaked peer other than exclude.
func (f *FlowContext) idsExcept(exclude *netadapter.ID) []*netadapter.ID {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ids := make([]*netadapter.ID, 0, len(f.peers))
	for id := range f.peers {
		if exclude != nil && id == *exclude {
			continue
		}
		idCopy := id
		ids = append(ids, &idCopy)
	}
	return ids
}

func excludeID(excludeFrom interface{}) *netadapter.ID {
	id, _ := excludeFrom.(*netadapter.ID)
	return id
}

// BroadcastBlock implements app.Broadcaster: announces hash to every peer
// but the one that supplied it.
func (f *FlowContext) BroadcastBlock(hash *externalapi.DomainHash, excludeFrom interface{}) {
	f.broadcastInv(appmessage.InventoryKindBlock, hash, excludeFrom)
}

// BroadcastTransaction implements app.Broadcaster.
func (f *FlowContext) BroadcastTransaction(id externalapi.DomainTransactionID, excludeFrom interface{}) {
	f.broadcastInv(appmessage.InventoryKindTransaction, (*externalapi.DomainHash)(&id), excludeFrom)
}

// BroadcastTask implements app.Broadcaster.
func (f *FlowContext) BroadcastTask(taskID *externalapi.DomainTaskID, excludeFrom interface{}) {
	f.broadcastInv(appmessage.InventoryKindTask, (*externalapi.DomainHash)(taskID), excludeFrom)
}

func (f *FlowContext) broadcastInv(kind appmessage.InventoryKind, hash *externalapi.DomainHash, excludeFrom interface{}) {
	inv := appmessage.NewInvMessage([]*appmessage.InvVector{{Kind: kind, Hash: hash}})
	f.netAdapter.Broadcast(f.idsExcept(excludeID(excludeFrom)), inv)
}

// ReportMisbehavior scores addr's peer for a rule violation, returning
// whether the cumulative score now crosses the ban threshold.
func (f *FlowContext) ReportMisbehavior(addr string, delta int) bool {
	return f.addressManager.RecordMisbehavior(addr, delta)
}
