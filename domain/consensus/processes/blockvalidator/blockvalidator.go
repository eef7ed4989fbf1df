// Package blockvalidator implements model.BlockValidator: the header,
// body, and proof-of-work checks a block must pass before being handed to
// the ConsensusStateManager Grounded on kaspad's
// blockvalidator package (struct-of-dependencies plus New(...), one file
// per validation stage), with GHOSTDAG/UTXO-specific stages dropped and
// task-binding/effective-target checks added for the tensor task engine.
package blockvalidator

import (
	"github.com/tensorchain/tensorchain/domain/chainparams"
	"github.com/tensorchain/tensorchain/domain/consensus/model"
)

type blockValidator struct {
	blockHeaderStore     model.BlockHeaderStore
	difficultyManager    model.DifficultyManager
	tensorTaskManager    model.TensorTaskManager
	transactionValidator model.TransactionValidator

	maxTimestampSkewSeconds int64
}

// New instantiates a new BlockValidator.
func New(blockHeaderStore model.BlockHeaderStore, difficultyManager model.DifficultyManager,
	tensorTaskManager model.TensorTaskManager, transactionValidator model.TransactionValidator) model.BlockValidator {

	return &blockValidator{
		blockHeaderStore:        blockHeaderStore,
		difficultyManager:       difficultyManager,
		tensorTaskManager:       tensorTaskManager,
		transactionValidator:    transactionValidator,
		maxTimestampSkewSeconds: chainparams.MaxTimestampSkewSeconds,
	}
}
