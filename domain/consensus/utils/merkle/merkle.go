// Package merkle computes Merkle roots over transaction lists and task
// claim lists, used for a block header's MerkleRoot and TaskBindingDigest.
package merkle

import (
	"math"

	"github.com/tensorchain/tensorchain/codec"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
)

// nextPowerOfTwo returns the next highest power of two from a given number
// if it is not already a power of two. Used while sizing the merkle array.
func nextPowerOfTwo(n int) int {
	if n == 0 {
		return 1
	}
	if n&(n-1) == 0 {
		return n
	}
	exponent := uint(math.Log2(float64(n))) + 1
	return 1 << exponent
}

// hashMerkleBranches hashes the concatenation of two child hashes.
func hashMerkleBranches(left, right *externalapi.DomainHash) *externalapi.DomainHash {
	w := codec.NewHashWriter()
	w.Write(left[:])
	w.Write(right[:])
	hash := w.Finalize()
	return &hash
}

// CalculateTransactionMerkleRoot computes the Merkle root over a block's
// transaction list, keyed by each transaction's ID.
func CalculateTransactionMerkleRoot(transactions []*externalapi.DomainTransaction) *externalapi.DomainHash {
	hashes := make([]*externalapi.DomainHash, len(transactions))
	for i, tx := range transactions {
		id := codec.TransactionID(tx)
		hashes[i] = (*externalapi.DomainHash)(&id)
	}
	return Root(hashes)
}

// CalculateTaskBindingDigest computes the Merkle root over the ordered list
// of task claims a block finalizes
func CalculateTaskBindingDigest(claims []*externalapi.DomainTaskClaim) *externalapi.DomainHash {
	if len(claims) == 0 {
		zero := externalapi.DomainHash{}
		return &zero
	}
	hashes := make([]*externalapi.DomainHash, len(claims))
	for i, claim := range claims {
		digest := codec.ClaimDigest(claim)
		hashes[i] = &digest
	}
	return Root(hashes)
}

// Root builds a binary merkle tree over hashes and returns its root. A
// missing right child is generated by hashing the left child with itself,
// matching the Bitcoin-style duplication rule.
func Root(hashes []*externalapi.DomainHash) *externalapi.DomainHash {
	if len(hashes) == 0 {
		zero := externalapi.DomainHash{}
		return &zero
	}

	nextPoT := nextPowerOfTwo(len(hashes))
	arraySize := nextPoT*2 - 1
	merkles := make([]*externalapi.DomainHash, arraySize)

	for i, hash := range hashes {
		merkles[i] = hash
	}

	offset := nextPoT
	for i := 0; i < arraySize-1; i += 2 {
		switch {
		case merkles[i] == nil:
			merkles[offset] = nil
		case merkles[i+1] == nil:
			merkles[offset] = hashMerkleBranches(merkles[i], merkles[i])
		default:
			merkles[offset] = hashMerkleBranches(merkles[i], merkles[i+1])
		}
		offset++
	}

	return merkles[len(merkles)-1]
}
