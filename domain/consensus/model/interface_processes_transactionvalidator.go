package model

import "github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"

// TransactionValidator validates a transaction in isolation (signature,
// structural well-formedness) and in the context of the sender's known
// account state (nonce, balance).
type TransactionValidator interface {
	ValidateInIsolation(tx *externalapi.DomainTransaction) error
	ValidateInContext(tx *externalapi.DomainTransaction, senderState *externalapi.AccountState) error
}
