// Package transactionvalidator implements model.TransactionValidator: the
// per-transaction checks (signature, nonce, balance),
// split into the isolation/context pair kaspad's validator packages
// use throughout the consensus layer.
package transactionvalidator

import (
	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/codec"
	"github.com/tensorchain/tensorchain/domain/consensus/model"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/domain/consensus/ruleerrors"
	"github.com/tensorchain/tensorchain/keys"
)

type transactionValidator struct{}

// New instantiates a new TransactionValidator.
func New() model.TransactionValidator {
	return &transactionValidator{}
}

// ValidateInIsolation checks everything about tx that does not depend on
// chain state: sender and recipient address lengths, the payload length
// cap, a well-formed signature, and that amount/fee do not overflow their
// sum. The payload kind itself is not checked.
func (v *transactionValidator) ValidateInIsolation(tx *externalapi.DomainTransaction) error {
	if len(tx.Sender) != 20 && len(tx.Sender) != 32 {
		return ruleerrors.New(ruleerrors.ErrMalformedTransaction, "sender address has invalid length %d", len(tx.Sender))
	}
	if len(tx.Recipient) != 20 && len(tx.Recipient) != 32 {
		return ruleerrors.New(ruleerrors.ErrMalformedTransaction, "recipient address has invalid length %d", len(tx.Recipient))
	}
	// PayloadKind is extensible: a kind this validator doesn't recognize
	// is passed through as opaque bytes rather than rejected, so modules
	// outside this package can interpret additional payload types without
	// a change here.
	if len(tx.Payload) > codec.MaxPayloadLength {
		return ruleerrors.New(ruleerrors.ErrMalformedTransaction, "payload length %d exceeds max of %d", len(tx.Payload), codec.MaxPayloadLength)
	}

	total := tx.Amount + tx.Fee
	if total < tx.Amount {
		return ruleerrors.New(ruleerrors.ErrMalformedTransaction, "amount + fee overflows")
	}

	valid, err := keys.VerifyTransactionSignature(tx)
	if err != nil {
		return errors.Wrap(err, "failed to verify transaction signature")
	}
	if !valid {
		return ruleerrors.New(ruleerrors.ErrBadSignature, "transaction %s", tx.ID)
	}
	return nil
}

// ValidateInContext checks tx against senderState: the sender's nonce must
// equal tx.Nonce exactly - below is rejected, above waits in
// the mempool - and amount+fee must not exceed the sender's confirmed
// balance.
func (v *transactionValidator) ValidateInContext(tx *externalapi.DomainTransaction, senderState *externalapi.AccountState) error {
	if tx.Nonce != senderState.Nonce {
		return ruleerrors.New(ruleerrors.ErrWrongNonce, "transaction nonce %d does not match sender's current nonce %d", tx.Nonce, senderState.Nonce)
	}
	total := tx.Amount + tx.Fee
	if total > senderState.Balance {
		return ruleerrors.New(ruleerrors.ErrInsufficientBalance, "transaction amount+fee %d exceeds sender balance %d", total, senderState.Balance)
	}
	return nil
}
