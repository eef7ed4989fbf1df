package blockvalidator

import (
	"github.com/tensorchain/tensorchain/codec"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/domain/consensus/utils/difficulty"
)

func headerHash(header *externalapi.DomainBlockHeader) *externalapi.DomainHash {
	return codec.HeaderHash(header)
}

// MeetsEffectiveTarget reports whether header's hash clears the target
// once reductionNumerator (from a call to TensorTaskManager.FinalizeClaims
// over the block's claims) is applied: the authoritative proof-of-work
// predicate every block must pass.
func MeetsEffectiveTarget(header *externalapi.DomainBlockHeader, reductionNumerator uint64) bool {
	target := difficulty.CompactToBig(header.Bits)
	effective := difficulty.EffectiveTarget(target, reductionNumerator, externalapi.DifficultyReductionDenominator)
	return difficulty.MeetsTarget(headerHash(header), effective)
}
