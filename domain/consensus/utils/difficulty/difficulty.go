// Package difficulty converts between the compact 32-bit difficulty
// encoding carried on the wire (an exponent + mantissa pair) and the
// 256-bit target it represents, and implements the proof-of-work
// comparison and retargeting arithmetic.
package difficulty

import (
	"math/big"

	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
)

// CompactToBig converts a compact-encoded difficulty target to a big.Int.
// The format is the classic Bitcoin "nBits" encoding: the high byte is an
// exponent, the remaining three bytes are a mantissa, interpreted as
// mantissa * 256^(exponent-3).
func CompactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	exponent := uint(compact >> 24)

	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}

	if compact&0x00800000 != 0 {
		bn = bn.Neg(bn)
	}
	return bn
}

// BigToCompact converts a big.Int target to its compact representation.
func BigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}

	var mantissa uint32
	exponent := uint(len(n.Bytes()))

	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0])
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent<<24) | mantissa
	if n.Sign() < 0 {
		compact |= 0x00800000
	}
	return compact
}

// HashToBig interprets a 32-byte hash as a big-endian unsigned integer.
func HashToBig(hash *externalapi.DomainHash) *big.Int {
	return new(big.Int).SetBytes(hash[:])
}

// oneLsh256 is 2^256, the size of the hash space, used to convert a
// target into a measure of work.
var oneLsh256 = new(big.Int).Lsh(big.NewInt(1), 256)

// CalcWork converts a compact target into the expected number of hashes
// needed to produce a block meeting it: roughly 2^256 / (target + 1).
// Cumulative work, not height, is the fork-choice metric: a longer chain
// of easier blocks can still lose to a shorter chain of harder ones.
func CalcWork(bits uint32) *big.Int {
	target := CompactToBig(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}
	denominator := new(big.Int).Add(target, big.NewInt(1))
	return new(big.Int).Div(oneLsh256, denominator)
}

// ProtocolFloor bounds the reduction sum so that no block is trivially
// valid: the effective target can be reduced by at most 1 - ProtocolFloor
// of the base target.
const ProtocolFloor = 0.05

// EffectiveTarget returns target scaled down by the total difficulty
// reduction claimed by a block's included tensor task claims, clamped so
// the reduction never drives the effective target below
// target * ProtocolFloor.
func EffectiveTarget(target *big.Int, reductionNumerator, reductionDenominator uint64) *big.Int {
	if reductionDenominator == 0 {
		return new(big.Int).Set(target)
	}
	if reductionNumerator >= reductionDenominator {
		reductionNumerator = reductionDenominator - 1
	}

	remainingNumerator := reductionDenominator - reductionNumerator
	floorNumerator := uint64(ProtocolFloor * float64(reductionDenominator))
	if remainingNumerator < floorNumerator {
		remainingNumerator = floorNumerator
	}

	effective := new(big.Int).Mul(target, big.NewInt(int64(remainingNumerator)))
	return effective.Div(effective, big.NewInt(int64(reductionDenominator)))
}

// MeetsTarget returns whether hash, interpreted as a big-endian integer, is
// strictly less than target - the core proof-of-work predicate.
func MeetsTarget(hash *externalapi.DomainHash, target *big.Int) bool {
	return HashToBig(hash).Cmp(target) < 0
}

// CalculateNextDifficulty implements the retargeting rule:
// every window blocks the difficulty is recomputed from the observed
// interval, clamped to [old/maxAdjustmentFactor, old*maxAdjustmentFactor].
func CalculateNextDifficulty(oldTarget *big.Int, expectedIntervalSeconds, observedIntervalSeconds int64, maxAdjustmentFactor int64) *big.Int {
	if observedIntervalSeconds <= 0 {
		observedIntervalSeconds = 1
	}

	next := new(big.Int).Mul(oldTarget, big.NewInt(expectedIntervalSeconds))
	next.Div(next, big.NewInt(observedIntervalSeconds))

	minTarget := new(big.Int).Div(oldTarget, big.NewInt(maxAdjustmentFactor))
	maxTarget := new(big.Int).Mul(oldTarget, big.NewInt(maxAdjustmentFactor))

	if next.Cmp(minTarget) < 0 {
		return minTarget
	}
	if next.Cmp(maxTarget) > 0 {
		return maxTarget
	}
	return next
}
