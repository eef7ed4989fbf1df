package merkle

import (
	"testing"

	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
)

func leafHash(b byte) *externalapi.DomainHash {
	var h externalapi.DomainHash
	for i := range h {
		h[i] = b
	}
	return &h
}

func TestRootOfEmptyListIsZero(t *testing.T) {
	got := Root(nil)
	var zero externalapi.DomainHash
	if *got != zero {
		t.Errorf("Root(nil): got %s, want the zero hash", got)
	}
}

func TestRootOfSingleLeafIsTheLeaf(t *testing.T) {
	leaf := leafHash(0x01)
	got := Root([]*externalapi.DomainHash{leaf})
	if !got.Equal(leaf) {
		t.Errorf("Root of a single leaf: got %s, want %s", got, leaf)
	}
}

func TestRootIsDeterministic(t *testing.T) {
	hashes := []*externalapi.DomainHash{leafHash(0x01), leafHash(0x02), leafHash(0x03)}

	first := Root(hashes)
	second := Root(hashes)
	if !first.Equal(second) {
		t.Errorf("Root: two calls over the same leaves produced different roots - %s vs %s", first, second)
	}
}

func TestRootIsSensitiveToOrder(t *testing.T) {
	a := Root([]*externalapi.DomainHash{leafHash(0x01), leafHash(0x02)})
	b := Root([]*externalapi.DomainHash{leafHash(0x02), leafHash(0x01)})
	if a.Equal(b) {
		t.Errorf("Root: swapping leaf order produced the same root %s", a)
	}
}

func TestRootHandlesOddLeafCountByDuplication(t *testing.T) {
	// Three leaves: the tree is padded to a power of two by duplicating
	// the last leaf, not by hashing against a zero hash.
	odd := Root([]*externalapi.DomainHash{leafHash(0x01), leafHash(0x02), leafHash(0x03)})
	paddedExplicitly := Root([]*externalapi.DomainHash{leafHash(0x01), leafHash(0x02), leafHash(0x03), leafHash(0x03)})
	if !odd.Equal(paddedExplicitly) {
		t.Errorf("Root: odd leaf count should duplicate the last leaf - got %s, want %s", odd, paddedExplicitly)
	}
}

func TestCalculateTransactionMerkleRootChangesWithTransactions(t *testing.T) {
	tx1 := &externalapi.DomainTransaction{Sender: externalapi.DomainAddress{0x01}, Recipient: externalapi.DomainAddress{0x02}, Amount: 1}
	tx2 := &externalapi.DomainTransaction{Sender: externalapi.DomainAddress{0x01}, Recipient: externalapi.DomainAddress{0x02}, Amount: 2}

	rootA := CalculateTransactionMerkleRoot([]*externalapi.DomainTransaction{tx1})
	rootB := CalculateTransactionMerkleRoot([]*externalapi.DomainTransaction{tx2})
	if rootA.Equal(rootB) {
		t.Errorf("CalculateTransactionMerkleRoot: differing transactions produced the same root %s", rootA)
	}
}

func TestCalculateTaskBindingDigestEmptyIsZero(t *testing.T) {
	got := CalculateTaskBindingDigest(nil)
	var zero externalapi.DomainHash
	if *got != zero {
		t.Errorf("CalculateTaskBindingDigest(nil): got %s, want the zero hash", got)
	}
}

func TestCalculateTaskBindingDigestChangesWithClaims(t *testing.T) {
	taskID := externalapi.DomainTaskID(*leafHash(0x09))
	claim1 := &externalapi.DomainTaskClaim{TaskID: &taskID, Miner: externalapi.DomainAddress{0x01}, OutputHash: leafHash(0x0a), ClaimNonce: 1}
	claim2 := &externalapi.DomainTaskClaim{TaskID: &taskID, Miner: externalapi.DomainAddress{0x01}, OutputHash: leafHash(0x0a), ClaimNonce: 2}

	digestA := CalculateTaskBindingDigest([]*externalapi.DomainTaskClaim{claim1})
	digestB := CalculateTaskBindingDigest([]*externalapi.DomainTaskClaim{claim2})
	if digestA.Equal(digestB) {
		t.Errorf("CalculateTaskBindingDigest: differing claim nonces produced the same digest %s", digestA)
	}
}
