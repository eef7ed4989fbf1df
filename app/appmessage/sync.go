package appmessage

import "github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"

// HeadersRequestMessage asks a peer for headers following a locator - a
// sparse list of ancestor digests (exponential stride over the requester's
// active chain) - up to an optional stop hash.
type HeadersRequestMessage struct {
	Locator  []*externalapi.DomainHash
	StopHash *externalapi.DomainHash
}

// Command implements Message.
func (msg *HeadersRequestMessage) Command() MessageCommand { return CmdHeadersRequest }

// NewHeadersRequestMessage returns a new HeadersRequestMessage.
func NewHeadersRequestMessage(locator []*externalapi.DomainHash, stopHash *externalapi.DomainHash) *HeadersRequestMessage {
	return &HeadersRequestMessage{Locator: locator, StopHash: stopHash}
}

// HeadersMessage answers a HeadersRequestMessage with a contiguous list of
// headers, oldest first.
type HeadersMessage struct {
	Headers []*externalapi.DomainBlockHeader
}

// Command implements Message.
func (msg *HeadersMessage) Command() MessageCommand { return CmdHeaders }

// NewHeadersMessage returns a new HeadersMessage.
func NewHeadersMessage(headers []*externalapi.DomainBlockHeader) *HeadersMessage {
	return &HeadersMessage{Headers: headers}
}

// BlockRequestMessage asks a peer for a full block body by digest, for
// backfill during header-first sync.
type BlockRequestMessage struct {
	Hash *externalapi.DomainHash
}

// Command implements Message.
func (msg *BlockRequestMessage) Command() MessageCommand { return CmdBlockRequest }

// NewBlockRequestMessage returns a new BlockRequestMessage.
func NewBlockRequestMessage(hash *externalapi.DomainHash) *BlockRequestMessage {
	return &BlockRequestMessage{Hash: hash}
}

// BlockMessage carries a full block body.
type BlockMessage struct {
	Block *externalapi.DomainBlock
}

// Command implements Message.
func (msg *BlockMessage) Command() MessageCommand { return CmdBlock }

// NewBlockMessage returns a new BlockMessage.
func NewBlockMessage(block *externalapi.DomainBlock) *BlockMessage {
	return &BlockMessage{Block: block}
}
