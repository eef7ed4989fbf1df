// Package chainparams holds the protocol constants every node must agree
// on network-wide: retargeting window and clamp factor, genesis, subsidy
// schedule, and the tensor-task bounds every node enforces identically.
// There is no equivalent kaspad package for this concern under the
// balance model; the single-Params-struct shape follows kaspad's dagconfig package,
// trimmed to one network (mainnet-equivalent) since kaspad names no
// testnet/devnet variants.
package chainparams

import (
	"math/big"

	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/domain/consensus/utils/merkle"
)

// ProtocolVersion is exchanged during the P2P handshake.
const ProtocolVersion uint32 = 1

// NetworkID distinguishes incompatible networks during the handshake.
// Peers presenting a different value are disconnected.
const NetworkID uint32 = 0x74656e73 // "tens"

// RetargetWindow is the number of blocks between difficulty
// recalculations.
const RetargetWindow uint64 = 2016

// TargetBlockIntervalSeconds is the expected seconds between blocks the
// retargeting formula aims to hold constant.
const TargetBlockIntervalSeconds int64 = 600

// MaxAdjustmentFactor bounds how far a single retarget can move: the
// retargeted difficulty is clamped to [old/F, old*F].
const MaxAdjustmentFactor int64 = 4

// MaxTimestampSkewSeconds bounds how far a header's timestamp may sit
// ahead of local time before the block is rejected.
const MaxTimestampSkewSeconds int64 = 2 * 60 * 60

// MaxTaskClaimsPerBlock is the maximum number of task claims a single
// block may finalize.
const MaxTaskClaimsPerBlock = 16

// StateCheckpointInterval is how often a chain-state snapshot is taken,
// in blocks, so replay never has to start from genesis.
const StateCheckpointInterval uint64 = 100

// ReorgDepthThreshold is the height lead a peer's announced
// tip must hold over ours before we switch from inv-driven relay to a
// locator-based header sync against it: small leads are expected to
// arrive as ordinary block announcements, but a lead past this threshold
// means we are missing enough history that walking it one inv at a time
// would be wasteful.
const ReorgDepthThreshold uint64 = 3

// MaxHeadersPerMessage bounds a single HeadersMessage response, so a
// locator spanning a long fork still arrives as a bounded number of
// round trips rather than one unbounded reply.
const MaxHeadersPerMessage = 2000

// MaxBlockLocatorHashes is the locator length a HeadersRequestMessage is
// sized for, matching the doubling-stride locator HeaderLocator produces.
// Neither HeaderLocator nor the message decoder checks a locator against it.
const MaxBlockLocatorHashes = 64

// MempoolMaxBytes bounds the total serialized size of pooled, unconfirmed
// transactions a node keeps at once.
const MempoolMaxBytes = 50_000_000

// InitialSubsidy is the coinbase reward at height 0, in minor units.
const InitialSubsidy uint64 = 50_00000000

// SubsidyHalvingInterval is the number of blocks between subsidy halvings.
const SubsidyHalvingInterval uint64 = 210_000

// BlockSubsidy returns the coinbase subsidy due at height, halving every
// SubsidyHalvingInterval blocks down to zero.
func BlockSubsidy(height uint64) uint64 {
	halvings := height / SubsidyHalvingInterval
	if halvings >= 64 {
		return 0
	}
	return InitialSubsidy >> halvings
}

// GenesisDifficultyBits is the compact difficulty target every chain
// starts from.
const GenesisDifficultyBits uint32 = 0x1e0fffff

// GenesisTimestamp is the fixed, protocol-pinned genesis block timestamp
// (seconds since epoch).
const GenesisTimestamp int64 = 1_700_000_000

// GenesisAllocationAddress receives the entire genesis coinbase. It is a
// protocol constant, not a derived key; no private key for it is modeled.
var GenesisAllocationAddress = externalapi.DomainAddress(mustDecodeGenesisAddress())

func mustDecodeGenesisAddress() []byte {
	address := make([]byte, 32)
	copy(address, []byte("tensorchain-genesis-allocation"))
	return address
}

// GenesisAllocation is the amount the genesis coinbase pays to
// GenesisAllocationAddress.
const GenesisAllocation uint64 = 21_000_000_00000000

// GenesisBlock constructs the protocol's fixed genesis block: a header
// with a zero parent hash and a single coinbase transaction, no other
// transactions and no task claims. Every node must derive the identical
// digest from this construction. The handshake does not exchange or
// compare genesis digests; it checks only network ID and protocol version.
func GenesisBlock() *externalapi.DomainBlock {
	coinbase := &externalapi.DomainTransaction{
		Sender:      make(externalapi.DomainAddress, 32),
		Recipient:   GenesisAllocationAddress,
		Amount:      GenesisAllocation,
		Fee:         0,
		Nonce:       0,
		PayloadKind: externalapi.PayloadKindPlainTransfer,
	}

	transactions := []*externalapi.DomainTransaction{coinbase}

	header := &externalapi.DomainBlockHeader{
		ParentHash:        &externalapi.DomainHash{},
		MerkleRoot:        merkle.CalculateTransactionMerkleRoot(transactions),
		TaskBindingDigest: merkle.CalculateTaskBindingDigest(nil),
		Timestamp:         GenesisTimestamp,
		Bits:              GenesisDifficultyBits,
		Nonce:             0,
		Height:            0,
	}

	return &externalapi.DomainBlock{
		Header:       header,
		Transactions: transactions,
		Claims:       nil,
	}
}

// GenesisTarget is GenesisDifficultyBits expanded to a 256-bit target, for
// callers that need the big.Int form directly.
func GenesisTarget() *big.Int {
	return compactToBigLocal(GenesisDifficultyBits)
}

// compactToBigLocal is a local copy of difficulty.CompactToBig without its
// sign handling, used only for the genesis target at this layer.
func compactToBigLocal(compact uint32) *big.Int {
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
	return bn
}
