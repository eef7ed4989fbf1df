package model

import "github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"

// ChainUpdate describes the effect of applying or reorganizing the active
// chain: blocks removed from the tip (in removal order) and blocks added
// (in application order).
type ChainUpdate struct {
	RemovedChainBlockHashes []*externalapi.DomainHash
	AddedChainBlockHashes   []*externalapi.DomainHash
	// RescuedTransactions are transactions that were in a removed block
	// but not in any added block, still valid against the new tip state,
	// and therefore returned to the mempool.
	RescuedTransactions []*externalapi.DomainTransaction
}

// ConsensusStateManager owns the application of blocks to balance state
// and fork-choice driven reorganization
type ConsensusStateManager interface {
	// AddBlock validates and applies newBlock against the current tip. If
	// newBlock's parent is not the current tip but newBlock's chain has
	// greater cumulative work, AddBlock performs a reorg first.
	AddBlock(block *externalapi.DomainBlock) (*ChainUpdate, error)
	// ApplyGenesisBlock bootstraps an empty store with the protocol's fixed
	// genesis block, bypassing the ordinary validation path (genesis has
	// no parent and its coinbase does not follow the subsidy formula).
	ApplyGenesisBlock(block *externalapi.DomainBlock) error
	AccountState(dbContext DBReader, address externalapi.DomainAddress) (*externalapi.AccountState, error)
	Tip(dbContext DBReader) (*externalapi.DomainHash, uint64, error)
}
