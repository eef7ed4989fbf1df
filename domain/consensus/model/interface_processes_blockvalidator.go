package model

import "github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"

// BlockValidator runs the header, body, and proof-of-work checks that a
// block must pass before it is handed to the ConsensusStateManager, split
// into isolation and context validation stages.
type BlockValidator interface {
	// ValidateHeaderInIsolation checks the fields that require no other
	// chain state: structural well-formedness, timestamp bounds.
	ValidateHeaderInIsolation(header *externalapi.DomainBlockHeader) error
	// ValidateHeaderInContext checks parent linkage, required difficulty,
	// and that the header hash meets the effective target once finalized
	// task claims are taken into account.
	ValidateHeaderInContext(dbContext DBReader, header *externalapi.DomainBlockHeader) error
	// ValidateBodyInIsolation checks the merkle root and task binding
	// digest against the block's transaction and claim lists, and that
	// every transaction is individually well-formed.
	ValidateBodyInIsolation(block *externalapi.DomainBlock) error
}
