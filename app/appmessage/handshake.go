package appmessage

import "github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"

// VersionMessage is the handshake frame each side of a connection sends
// first: protocol_version, network_id, tip_digest,
// tip_height, user_agent, services_bitmask.
type VersionMessage struct {
	ProtocolVersion uint32
	NetworkID       uint32
	TipHash         *externalapi.DomainHash
	TipHeight       uint64
	UserAgent       string
	ServicesBitmask uint64
}

// Command implements Message.
func (msg *VersionMessage) Command() MessageCommand { return CmdVersion }

// NewVersionMessage returns a new VersionMessage.
func NewVersionMessage(protocolVersion, networkID uint32, tipHash *externalapi.DomainHash,
	tipHeight uint64, userAgent string, servicesBitmask uint64) *VersionMessage {

	return &VersionMessage{
		ProtocolVersion: protocolVersion,
		NetworkID:       networkID,
		TipHash:         tipHash,
		TipHeight:       tipHeight,
		UserAgent:       userAgent,
		ServicesBitmask: servicesBitmask,
	}
}

// VerAckMessage acknowledges a received VersionMessage, completing the
// handshake.
type VerAckMessage struct{}

// Command implements Message.
func (msg *VerAckMessage) Command() MessageCommand { return CmdVerAck }

// NewVerAckMessage returns a new VerAckMessage.
func NewVerAckMessage() *VerAckMessage { return &VerAckMessage{} }
