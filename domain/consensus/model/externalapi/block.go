package externalapi

// DomainBlockHeader is the domain representation of a block header.
// Identity is the digest of the canonical encoding of these fields in
// the declared order.
type DomainBlockHeader struct {
	ParentHash        *DomainHash
	MerkleRoot        *DomainHash
	TaskBindingDigest *DomainHash
	Timestamp         int64
	Bits              uint32 // compact difficulty target
	Nonce             uint64

	// Height is derived from ParentHash's height + 1 (0 for genesis). It
	// is not part of the canonical header encoding but is persisted
	// alongside the header for indexing.
	Height uint64
}

// Clone returns a deep copy of the header.
func (header *DomainBlockHeader) Clone() *DomainBlockHeader {
	clone := *header
	clone.ParentHash = header.ParentHash.Clone()
	clone.MerkleRoot = header.MerkleRoot.Clone()
	clone.TaskBindingDigest = header.TaskBindingDigest.Clone()
	return &clone
}

// Equal returns whether two headers are identical field-for-field.
func (header *DomainBlockHeader) Equal(other *DomainBlockHeader) bool {
	if header == nil || other == nil {
		return header == other
	}
	return header.ParentHash.Equal(other.ParentHash) &&
		header.MerkleRoot.Equal(other.MerkleRoot) &&
		header.TaskBindingDigest.Equal(other.TaskBindingDigest) &&
		header.Timestamp == other.Timestamp &&
		header.Bits == other.Bits &&
		header.Nonce == other.Nonce &&
		header.Height == other.Height
}

// DomainBlock is a header plus its ordered transaction list. Transactions[0]
// is always the coinbase.
type DomainBlock struct {
	Header       *DomainBlockHeader
	Transactions []*DomainTransaction
	// Claims is the ordered list of task solution claims this block
	// finalizes. Its Merkle root is committed to by Header.TaskBindingDigest.
	Claims []*DomainTaskClaim
}

// Clone returns a deep copy of the block.
func (block *DomainBlock) Clone() *DomainBlock {
	clonedTxs := make([]*DomainTransaction, len(block.Transactions))
	for i, tx := range block.Transactions {
		clonedTxs[i] = tx.Clone()
	}
	clonedClaims := make([]*DomainTaskClaim, len(block.Claims))
	for i, claim := range block.Claims {
		clonedClaims[i] = claim.Clone()
	}
	return &DomainBlock{
		Header:       block.Header.Clone(),
		Transactions: clonedTxs,
		Claims:       clonedClaims,
	}
}
