package appmessage

import "github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"

// TemplateRequestMessage asks the node for a fresh block template to mine
// against, naming the address that should receive the coinbase.
type TemplateRequestMessage struct {
	MinerAddress externalapi.DomainAddress
}

// Command implements Message.
func (msg *TemplateRequestMessage) Command() MessageCommand { return CmdTemplateRequest }

// NewTemplateRequestMessage returns a new TemplateRequestMessage.
func NewTemplateRequestMessage(minerAddress externalapi.DomainAddress) *TemplateRequestMessage {
	return &TemplateRequestMessage{MinerAddress: minerAddress}
}

// TemplateMessage carries a block template: the header pre-image up to the
// nonce, the selected transaction list, and the expected task binding
// digest A miner searches Nonce values and, on success,
// reports the completed header back via SolutionSubmitMessage's sibling
// path (a mined block is relayed as an ordinary BlockMessage).
type TemplateMessage struct {
	ParentHash        *externalapi.DomainHash
	Height            uint64
	Timestamp         int64
	Bits              uint32
	MerkleRoot        *externalapi.DomainHash
	TaskBindingDigest *externalapi.DomainHash
	// Transactions is the full ordered transaction list the finished
	// block must carry, coinbase included at index 0: the node already
	// knows the exact subsidy/fee/task-reward amount it owes the miner,
	// so there is nothing left for the miner to fill in.
	Transactions []*externalapi.DomainTransaction
	Claims       []*externalapi.DomainTaskClaim

	// ReductionNumerator and ReductionDenominator let a miner derive the
	// effective target locally, over Bits's plain target,
	// without having to re-run FinalizeClaims itself.
	ReductionNumerator   uint64
	ReductionDenominator uint64
}

// Command implements Message.
func (msg *TemplateMessage) Command() MessageCommand { return CmdTemplate }

// NewTemplateMessage returns a new TemplateMessage.
func NewTemplateMessage(parentHash *externalapi.DomainHash, height uint64, timestamp int64, bits uint32,
	merkleRoot, taskBindingDigest *externalapi.DomainHash, transactions []*externalapi.DomainTransaction,
	claims []*externalapi.DomainTaskClaim, reductionNumerator, reductionDenominator uint64) *TemplateMessage {

	return &TemplateMessage{
		ParentHash:           parentHash,
		Height:               height,
		Timestamp:            timestamp,
		Bits:                 bits,
		MerkleRoot:           merkleRoot,
		TaskBindingDigest:    taskBindingDigest,
		Transactions:         transactions,
		Claims:               claims,
		ReductionNumerator:   reductionNumerator,
		ReductionDenominator: reductionDenominator,
	}
}

// Header assembles the header pre-image (nonce unset) a miner hashes
// against while searching.
func (msg *TemplateMessage) Header() *externalapi.DomainBlockHeader {
	return &externalapi.DomainBlockHeader{
		ParentHash:        msg.ParentHash,
		MerkleRoot:        msg.MerkleRoot,
		TaskBindingDigest: msg.TaskBindingDigest,
		Timestamp:         msg.Timestamp,
		Bits:              msg.Bits,
		Nonce:             0,
		Height:            msg.Height,
	}
}

// Block assembles the completed block once a miner has found nonce,
// ready to announce to the node that served this template.
func (msg *TemplateMessage) Block(nonce uint64) *externalapi.DomainBlock {
	header := msg.Header()
	header.Nonce = nonce
	return &externalapi.DomainBlock{
		Header:       header,
		Transactions: msg.Transactions,
		Claims:       msg.Claims,
	}
}
