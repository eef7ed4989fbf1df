package blockvalidator

import (
	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/domain/consensus/model"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/domain/consensus/ruleerrors"
	"github.com/tensorchain/tensorchain/domain/consensus/utils/difficulty"
)

// ValidateHeaderInContext checks parent linkage, that Bits matches the
// required difficulty for a block extending parentHash, and that the
// header hash meets the un-reduced target. The authoritative check
// against the effective target - which also accounts for the block's
// finalized task claims - runs in ConsensusStateManager once
// TensorTaskManager.FinalizeClaims has computed the claimed reduction;
// this method only rejects headers that could not possibly pass that
// stricter check.
func (v *blockValidator) ValidateHeaderInContext(dbContext model.DBReader, header *externalapi.DomainBlockHeader) error {
	parentHeader, err := v.blockHeaderStore.BlockHeader(dbContext, header.ParentHash)
	if err != nil {
		return ruleerrors.New(ruleerrors.ErrUnknownParent, "parent header %s not found", header.ParentHash)
	}
	if header.Height != parentHeader.Height+1 {
		return ruleerrors.New(ruleerrors.ErrBadParentLinkage, "header height %d does not follow parent height %d", header.Height, parentHeader.Height)
	}

	requiredBits, err := v.difficultyManager.RequiredDifficulty(dbContext, header.ParentHash)
	if err != nil {
		return errors.Wrap(err, "failed to compute required difficulty")
	}
	if header.Bits != requiredBits {
		return ruleerrors.New(ruleerrors.ErrBadDifficultyBits, "header bits %08x does not match required difficulty %08x", header.Bits, requiredBits)
	}

	target := difficulty.CompactToBig(header.Bits)
	hash := headerHash(header)
	if !difficulty.MeetsTarget(hash, target) {
		return ruleerrors.New(ruleerrors.ErrBelowTarget, "header hash %s does not meet base target", hash)
	}

	return nil
}
