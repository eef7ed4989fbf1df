package blockvalidator

import (
	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/domain/consensus/ruleerrors"
	"github.com/tensorchain/tensorchain/domain/consensus/utils/merkle"
)

// ValidateBodyInIsolation checks the block's transaction list and claim
// list against the digests committed to by its header, and validates
// every transaction on its own terms (signature, structural bounds).
// Transactions[0] must be present; coinbase-specific checks (subsidy,
// fee total, task rewards) are CoinbaseManager's responsibility, not
// this method's, since they require chain-state context this method
// does not have.
func (v *blockValidator) ValidateBodyInIsolation(block *externalapi.DomainBlock) error {
	if len(block.Transactions) == 0 {
		return ruleerrors.New(ruleerrors.ErrEmptyTransactionList, "block has no transactions")
	}

	merkleRoot := merkle.CalculateTransactionMerkleRoot(block.Transactions)
	if !merkleRoot.Equal(block.Header.MerkleRoot) {
		return ruleerrors.New(ruleerrors.ErrBadMerkleRoot, "block merkle root %s does not match header merkle root %s",
			merkleRoot, block.Header.MerkleRoot)
	}

	taskBindingDigest := merkle.CalculateTaskBindingDigest(block.Claims)
	if !taskBindingDigest.Equal(block.Header.TaskBindingDigest) {
		return ruleerrors.New(ruleerrors.ErrBadTaskBindingDigest, "block task binding digest %s does not match header task binding digest %s",
			taskBindingDigest, block.Header.TaskBindingDigest)
	}

	// Transactions[0] is the coinbase: it carries no signature and is
	// validated separately by CoinbaseManager.
	for i, tx := range block.Transactions[1:] {
		if err := v.transactionValidator.ValidateInIsolation(tx); err != nil {
			return errors.Wrapf(err, "transaction %d failed validation", i+1)
		}
	}

	return nil
}
