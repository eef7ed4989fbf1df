package externalapi

// PayloadKind enumerates the interpretations of a transaction's opaque
// payload. New kinds extend the tag set; a tag a node does not recognize
// is carried as opaque payload bytes rather than rejected.
type PayloadKind uint8

// The enumerated payload kinds. PayloadKindPlainTransfer carries no payload
// at all; a PayloadKindTaskSubmission payload is decoded into a new task
// when its block is applied; a PayloadKindTaskRewardClaim payload is not
// interpreted by the core.
const (
	PayloadKindPlainTransfer PayloadKind = iota
	PayloadKindTaskSubmission
	PayloadKindTaskRewardClaim
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadKindPlainTransfer:
		return "plain-transfer"
	case PayloadKindTaskSubmission:
		return "task-submission"
	case PayloadKindTaskRewardClaim:
		return "task-reward-claim"
	}
	return "unknown-payload-kind"
}

// DomainTransaction is the domain representation of a transaction.
// Identity is the digest of the canonical encoding of every field except
// Signature.
type DomainTransaction struct {
	Sender      DomainAddress
	Recipient   DomainAddress
	Amount      uint64
	Fee         uint64
	Nonce       uint64
	PayloadKind PayloadKind
	Payload     []byte
	// SenderPublicKey is the signer's raw public key. It is part of the
	// signed preimage so a validator can check both that it derives
	// Sender and that it verifies Signature, without a network lookup.
	SenderPublicKey []byte
	Signature       []byte

	// ID caches the transaction's digest once computed. It is not part of
	// the canonical encoding and must not be relied upon before the
	// transaction has been hashed at least once.
	ID *DomainTransactionID
}

// DomainTransactionID is the digest identifying a transaction.
type DomainTransactionID DomainHash

// String returns the transaction ID as a hexadecimal string.
func (id *DomainTransactionID) String() string {
	return (*DomainHash)(id).String()
}

// Clone returns a deep copy of the transaction.
func (tx *DomainTransaction) Clone() *DomainTransaction {
	clone := *tx
	clone.Sender = tx.Sender.Clone()
	clone.Recipient = tx.Recipient.Clone()
	if tx.Payload != nil {
		clone.Payload = make([]byte, len(tx.Payload))
		copy(clone.Payload, tx.Payload)
	}
	if tx.SenderPublicKey != nil {
		clone.SenderPublicKey = make([]byte, len(tx.SenderPublicKey))
		copy(clone.SenderPublicKey, tx.SenderPublicKey)
	}
	if tx.Signature != nil {
		clone.Signature = make([]byte, len(tx.Signature))
		copy(clone.Signature, tx.Signature)
	}
	if tx.ID != nil {
		id := *tx.ID
		clone.ID = &id
	}
	return &clone
}
