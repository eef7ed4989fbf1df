package appmessage

import "github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"

// InvVector identifies one relayed item by kind and digest.
type InvVector struct {
	Kind InventoryKind
	Hash *externalapi.DomainHash
}

// InvMessage advertises a batch of items (blocks, transactions, or tasks)
// a peer may not have yet, the generic counterpart to the per-kind
// announce messages used when batching several kinds together.
type InvMessage struct {
	Vectors []*InvVector
}

// Command implements Message.
func (msg *InvMessage) Command() MessageCommand { return CmdInv }

// NewInvMessage returns a new InvMessage.
func NewInvMessage(vectors []*InvVector) *InvMessage {
	return &InvMessage{Vectors: vectors}
}

// RejectReason enumerates the broad categories of protocol-level
// rejection a peer can report (distinct from SolutionRejectReason, which
// is specific to task claim verification).
type RejectReason uint8

const (
	// RejectMalformed means the frame or its payload failed to decode.
	RejectMalformed RejectReason = iota
	// RejectInvalid means the payload decoded but failed validation
	// (bad header, bad signature, bad merkle root, etc).
	RejectInvalid
	// RejectObsolete means the peer is on an incompatible protocol
	// version or network ID.
	RejectObsolete
	// RejectDuplicate means the referenced item was already known.
	RejectDuplicate
)

// RejectMessage reports that a previously sent message was refused.
// MessageRef, when non-nil, names the offending item (a transaction or
// block digest); it is nil for handshake-level rejections.
type RejectMessage struct {
	Rejected MessageCommand
	Reason   RejectReason
	Message  string
	Ref      *externalapi.DomainHash
}

// Command implements Message.
func (msg *RejectMessage) Command() MessageCommand { return CmdReject }

// NewRejectMessage returns a new RejectMessage.
func NewRejectMessage(rejected MessageCommand, reason RejectReason, message string, ref *externalapi.DomainHash) *RejectMessage {
	return &RejectMessage{Rejected: rejected, Reason: reason, Message: message, Ref: ref}
}
