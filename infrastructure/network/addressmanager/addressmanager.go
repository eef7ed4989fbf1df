// Package addressmanager tracks known peer addresses, misbehavior scores,
// and bans, and enforces the node's inbound/outbound connection-slot
// bounds. Adapted from kaspad's
// infrastructure/network/addressmanager.AddressManager: this protocol's
// transport has no NetAddress/DNS-seed discovery layer, so the randomized
// address-selection machinery kaspad carries is dropped (see
// DESIGN.md) in favor of just what this node needs - an
// address book, a ban list, and misbehavior scoring.
package addressmanager

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrAddressNotFound is returned by lookups against an address this
// manager has never seen.
var ErrAddressNotFound = errors.New("address not found")

// Config bounds the address manager's slot enforcement.
type Config struct {
	MaxInboundPeers  int
	MaxOutboundPeers int
	// MisbehaviorBanThreshold is the cumulative score at which a peer is
	// banned outright: threshold crossings disconnect and ban for a
	// bounded period.
	MisbehaviorBanThreshold int
	BanDuration             time.Duration
}

type peerRecord struct {
	address     string
	misbehavior int
	bannedUntil time.Time
}

// AddressManager is the node's peer address book: known addresses, ban
// status, and misbehavior scores, plus inbound/outbound slot accounting.
type AddressManager struct {
	cfg *Config

	mu          sync.Mutex
	records     map[string]*peerRecord
	inboundUsed int
	outboundUsed int
}

// New constructs an empty AddressManager.
func New(cfg *Config) *AddressManager {
	return &AddressManager{
		cfg:     cfg,
		records: make(map[string]*peerRecord),
	}
}

// AddAddress registers address as known, if not already.
func (am *AddressManager) AddAddress(address string) {
	am.mu.Lock()
	defer am.mu.Unlock()
	if _, ok := am.records[address]; ok {
		return
	}
	am.records[address] = &peerRecord{address: address}
}

// Addresses returns every known address.
func (am *AddressManager) Addresses() []string {
	am.mu.Lock()
	defer am.mu.Unlock()
	addresses := make([]string, 0, len(am.records))
	for address := range am.records {
		addresses = append(addresses, address)
	}
	return addresses
}

// IsBanned reports whether address is currently within its ban window.
func (am *AddressManager) IsBanned(address string) (bool, error) {
	am.mu.Lock()
	defer am.mu.Unlock()
	record, ok := am.records[address]
	if !ok {
		return false, ErrAddressNotFound
	}
	return time.Now().Before(record.bannedUntil), nil
}

// Ban bans address for the configured duration, regardless of its current
// misbehavior score - used when a peer's fault is severe enough on its own
// (a ProtocolError with ShouldBan set).
func (am *AddressManager) Ban(address string) {
	am.mu.Lock()
	defer am.mu.Unlock()
	record := am.recordLocked(address)
	record.bannedUntil = time.Now().Add(am.cfg.BanDuration)
}

// RecordMisbehavior adds delta to address's misbehavior score, banning it
// once the score crosses the configured threshold.
func (am *AddressManager) RecordMisbehavior(address string, delta int) (banned bool) {
	am.mu.Lock()
	defer am.mu.Unlock()
	record := am.recordLocked(address)
	record.misbehavior += delta
	if record.misbehavior >= am.cfg.MisbehaviorBanThreshold {
		record.bannedUntil = time.Now().Add(am.cfg.BanDuration)
		return true
	}
	return false
}

func (am *AddressManager) recordLocked(address string) *peerRecord {
	record, ok := am.records[address]
	if !ok {
		record = &peerRecord{address: address}
		am.records[address] = record
	}
	return record
}

// TryAcquireSlot reserves an inbound or outbound connection slot,
// reporting false if the corresponding bound is already saturated:
// beyond the bound, new connections are refused.
func (am *AddressManager) TryAcquireSlot(outbound bool) bool {
	am.mu.Lock()
	defer am.mu.Unlock()
	if outbound {
		if am.outboundUsed >= am.cfg.MaxOutboundPeers {
			return false
		}
		am.outboundUsed++
		return true
	}
	if am.inboundUsed >= am.cfg.MaxInboundPeers {
		return false
	}
	am.inboundUsed++
	return true
}

// ReleaseSlot frees a previously acquired slot, called when a peer
// disconnects.
func (am *AddressManager) ReleaseSlot(outbound bool) {
	am.mu.Lock()
	defer am.mu.Unlock()
	if outbound {
		if am.outboundUsed > 0 {
			am.outboundUsed--
		}
		return
	}
	if am.inboundUsed > 0 {
		am.inboundUsed--
	}
}
