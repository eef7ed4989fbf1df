// Package difficultymanager implements model.DifficultyManager: the
// retargeting rule from, walking the header store back
// RetargetWindow blocks to measure the observed interval. Grounded on
// kaspad's difficultymanager package for the struct-of-dependencies plus
// New(...) shape; the GHOSTDAG blue-work estimation it layered on top does
// not apply to a single-parent chain and is not carried over (see
// DESIGN.md).
package difficultymanager

import (
	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/domain/chainparams"
	"github.com/tensorchain/tensorchain/domain/consensus/model"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/domain/consensus/utils/difficulty"
)

type difficultyManager struct {
	blockHeaderStore model.BlockHeaderStore

	retargetWindow             uint64
	targetBlockIntervalSeconds int64
	maxAdjustmentFactor        int64
	genesisBits                uint32
}

// New instantiates a new DifficultyManager.
func New(blockHeaderStore model.BlockHeaderStore) model.DifficultyManager {
	return &difficultyManager{
		blockHeaderStore:           blockHeaderStore,
		retargetWindow:             chainparams.RetargetWindow,
		targetBlockIntervalSeconds: chainparams.TargetBlockIntervalSeconds,
		maxAdjustmentFactor:        chainparams.MaxAdjustmentFactor,
		genesisBits:                chainparams.GenesisDifficultyBits,
	}
}

// RequiredDifficulty returns the compact target a block extending
// parentHash must satisfy. Retargeting happens every retargetWindow
// blocks; blocks within a window keep their window's opening difficulty.
func (dm *difficultyManager) RequiredDifficulty(dbContext model.DBReader, parentHash *externalapi.DomainHash) (uint32, error) {
	parentHeader, err := dm.blockHeaderStore.BlockHeader(dbContext, parentHash)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to load parent header %s", parentHash)
	}

	nextHeight := parentHeader.Height + 1
	if nextHeight%dm.retargetWindow != 0 {
		return parentHeader.Bits, nil
	}

	if nextHeight < dm.retargetWindow {
		return dm.genesisBits, nil
	}

	windowStartHeader, err := dm.headerAtHeight(dbContext, parentHash, parentHeader, nextHeight-dm.retargetWindow)
	if err != nil {
		return 0, err
	}

	observedIntervalSeconds := parentHeader.Timestamp - windowStartHeader.Timestamp
	expectedIntervalSeconds := dm.targetBlockIntervalSeconds * int64(dm.retargetWindow)

	oldTarget := difficulty.CompactToBig(parentHeader.Bits)
	nextTarget := difficulty.CalculateNextDifficulty(oldTarget, expectedIntervalSeconds, observedIntervalSeconds, dm.maxAdjustmentFactor)
	return difficulty.BigToCompact(nextTarget), nil
}

// headerAtHeight walks the parent chain backward from (parentHash,
// parentHeader) to the header at targetHeight. The header store has no
// height index of its own (that is ChainStore's job, and ChainStore only
// indexes the active chain); walking parent pointers works uniformly for
// both the active chain and a side branch being considered during a
// reorg evaluation.
func (dm *difficultyManager) headerAtHeight(dbContext model.DBReader, fromHash *externalapi.DomainHash,
	fromHeader *externalapi.DomainBlockHeader, targetHeight uint64) (*externalapi.DomainBlockHeader, error) {

	current := fromHeader
	currentHash := fromHash
	for current.Height > targetHeight {
		parent, err := dm.blockHeaderStore.BlockHeader(dbContext, current.ParentHash)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to walk back from %s to height %d", currentHash, targetHeight)
		}
		currentHash = current.ParentHash
		current = parent
	}
	return current, nil
}
