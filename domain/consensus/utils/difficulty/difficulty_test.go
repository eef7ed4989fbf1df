package difficulty

import (
	"math/big"
	"testing"

	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
)

func TestCompactToBigAndBack(t *testing.T) {
	tests := []uint32{
		0x1d00ffff,
		0x1b0404cb,
		0x207fffff,
		0x03123456,
	}

	for _, compact := range tests {
		n := CompactToBig(compact)
		got := BigToCompact(n)
		if got != compact {
			t.Errorf("BigToCompact(CompactToBig(%#08x)): got %#08x, want %#08x", compact, got, compact)
		}
	}
}

func TestHashToBig(t *testing.T) {
	var hash externalapi.DomainHash
	hash[0] = 0x01 // most-significant byte under the big-endian interpretation

	got := HashToBig(&hash)
	want := new(big.Int).Lsh(big.NewInt(1), 248)
	if got.Cmp(want) != 0 {
		t.Errorf("HashToBig: got %s, want %s", got, want)
	}
}

func TestCalcWorkIsZeroForNonPositiveTarget(t *testing.T) {
	got := CalcWork(0)
	if got.Sign() != 0 {
		t.Errorf("CalcWork(0): got %s, want 0", got)
	}
}

func TestCalcWorkDecreasesAsTargetGrows(t *testing.T) {
	easy := CalcWork(0x207fffff)
	hard := CalcWork(0x1d00ffff)
	if hard.Cmp(easy) <= 0 {
		t.Errorf("CalcWork: a harder (smaller) target should require more work - got hard=%s, easy=%s", hard, easy)
	}
}

func TestEffectiveTargetNoReduction(t *testing.T) {
	target := big.NewInt(1000000)
	got := EffectiveTarget(target, 0, externalapi.DifficultyReductionDenominator)
	if got.Cmp(target) != 0 {
		t.Errorf("EffectiveTarget with no reduction: got %s, want %s", got, target)
	}
}

func TestEffectiveTargetZeroDenominator(t *testing.T) {
	target := big.NewInt(1000000)
	got := EffectiveTarget(target, 500, 0)
	if got.Cmp(target) != 0 {
		t.Errorf("EffectiveTarget with zero denominator: got %s, want %s (unchanged)", got, target)
	}
}

func TestEffectiveTargetHalfReduction(t *testing.T) {
	target := big.NewInt(1000000)
	half := externalapi.DifficultyReductionDenominator / 2
	got := EffectiveTarget(target, half, externalapi.DifficultyReductionDenominator)
	want := big.NewInt(500000)
	if got.Cmp(want) != 0 {
		t.Errorf("EffectiveTarget at 50%% reduction: got %s, want %s", got, want)
	}
}

func TestEffectiveTargetClampsToProtocolFloor(t *testing.T) {
	target := big.NewInt(1000000)
	// Ask for a reduction far beyond what ProtocolFloor permits.
	got := EffectiveTarget(target, externalapi.DifficultyReductionDenominator-1, externalapi.DifficultyReductionDenominator)

	floor := new(big.Int).Mul(target, big.NewInt(int64(ProtocolFloor*externalapi.DifficultyReductionDenominator)))
	floor.Div(floor, big.NewInt(externalapi.DifficultyReductionDenominator))

	if got.Cmp(floor) != 0 {
		t.Errorf("EffectiveTarget should clamp at the protocol floor - got %s, want %s", got, floor)
	}
}

func TestEffectiveTargetClampsOverfullNumerator(t *testing.T) {
	target := big.NewInt(1000000)
	atFloor := EffectiveTarget(target, externalapi.DifficultyReductionDenominator-1, externalapi.DifficultyReductionDenominator)
	beyond := EffectiveTarget(target, externalapi.DifficultyReductionDenominator, externalapi.DifficultyReductionDenominator)
	if beyond.Cmp(atFloor) != 0 {
		t.Errorf("EffectiveTarget: numerator >= denominator should clamp the same as numerator == denominator-1 - got %s, want %s", beyond, atFloor)
	}
}

func TestMeetsTarget(t *testing.T) {
	var low, high externalapi.DomainHash
	low[0] = 0x01
	high[0] = 0xff

	target := HashToBig(&high)

	if !MeetsTarget(&low, target) {
		t.Errorf("MeetsTarget: expected a small hash to meet a large target")
	}
	if MeetsTarget(&high, HashToBig(&low)) {
		t.Errorf("MeetsTarget: expected a large hash not to meet a small target")
	}
}

func TestCalculateNextDifficultyUnchangedWhenOnSchedule(t *testing.T) {
	oldTarget := big.NewInt(1000000)
	got := CalculateNextDifficulty(oldTarget, 600, 600, 4)
	if got.Cmp(oldTarget) != 0 {
		t.Errorf("CalculateNextDifficulty: got %s, want unchanged %s", got, oldTarget)
	}
}

func TestCalculateNextDifficultyClampsToMaxAdjustmentFactor(t *testing.T) {
	oldTarget := big.NewInt(1000000)

	// Blocks arrived instantly: target should loosen by at most maxAdjustmentFactor.
	fast := CalculateNextDifficulty(oldTarget, 600, 1, 4)
	wantMax := new(big.Int).Mul(oldTarget, big.NewInt(4))
	if fast.Cmp(wantMax) != 0 {
		t.Errorf("CalculateNextDifficulty (fast blocks): got %s, want %s", fast, wantMax)
	}

	// Blocks arrived far too slowly: target should tighten by at most maxAdjustmentFactor.
	slow := CalculateNextDifficulty(oldTarget, 600, 1000000, 4)
	wantMin := new(big.Int).Div(oldTarget, big.NewInt(4))
	if slow.Cmp(wantMin) != 0 {
		t.Errorf("CalculateNextDifficulty (slow blocks): got %s, want %s", slow, wantMin)
	}
}

func TestCalculateNextDifficultyTreatsNonPositiveIntervalAsOne(t *testing.T) {
	oldTarget := big.NewInt(1000000)
	zero := CalculateNextDifficulty(oldTarget, 600, 0, 4)
	one := CalculateNextDifficulty(oldTarget, 600, 1, 4)
	if zero.Cmp(one) != 0 {
		t.Errorf("CalculateNextDifficulty: a zero observed interval should behave like one - got %s, want %s", zero, one)
	}
}
