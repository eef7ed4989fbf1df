package blockvalidator

import (
	"time"

	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/domain/consensus/ruleerrors"
)

// ValidateHeaderInIsolation checks the fields that require no other chain
// state: every hash pointer is present, and the timestamp is not absurdly
// far in the future.
func (v *blockValidator) ValidateHeaderInIsolation(header *externalapi.DomainBlockHeader) error {
	if header.ParentHash == nil {
		return ruleerrors.New(ruleerrors.ErrMalformedHeader, "header has a nil parent hash")
	}
	if header.MerkleRoot == nil {
		return ruleerrors.New(ruleerrors.ErrMalformedHeader, "header has a nil merkle root")
	}
	if header.TaskBindingDigest == nil {
		return ruleerrors.New(ruleerrors.ErrMalformedHeader, "header has a nil task binding digest")
	}

	maxTimestamp := time.Now().Unix() + v.maxTimestampSkewSeconds
	if header.Timestamp > maxTimestamp {
		return ruleerrors.New(ruleerrors.ErrTimestampTooFarInFuture, "header timestamp %d is %d seconds ahead of the %d second skew allowance",
			header.Timestamp, header.Timestamp-time.Now().Unix(), v.maxTimestampSkewSeconds)
	}

	return nil
}
