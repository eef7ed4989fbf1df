package transactionvalidator

import (
	"testing"

	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/domain/consensus/ruleerrors"
	"github.com/tensorchain/tensorchain/keys"
)

func signedTransaction(t *testing.T) (*externalapi.DomainTransaction, *keys.KeyPair) {
	t.Helper()
	kp, err := keys.Generate()
	if err != nil {
		t.Fatalf("Generate: unexpected error: %+v", err)
	}
	sender, err := kp.Address()
	if err != nil {
		t.Fatalf("Address: unexpected error: %+v", err)
	}
	tx := &externalapi.DomainTransaction{
		Sender:    sender,
		Recipient: make(externalapi.DomainAddress, 20),
		Amount:    10,
		Fee:       1,
		Nonce:     0,
	}
	if err := kp.SignTransaction(tx); err != nil {
		t.Fatalf("SignTransaction: unexpected error: %+v", err)
	}
	return tx, kp
}

func TestValidateInIsolationAcceptsWellFormedTransaction(t *testing.T) {
	tx, _ := signedTransaction(t)
	v := New()
	if err := v.ValidateInIsolation(tx); err != nil {
		t.Errorf("ValidateInIsolation: unexpected error for a well-formed transaction: %+v", err)
	}
}

func TestValidateInIsolationRejectsBadSignature(t *testing.T) {
	tx, _ := signedTransaction(t)
	tx.Amount = 9999 // tamper with the signed body without re-signing

	v := New()
	err := v.ValidateInIsolation(tx)
	if err == nil {
		t.Fatalf("ValidateInIsolation: expected an error for a tampered transaction, got nil")
	}
	if cause := ruleerrors.IsInvalid(err); !cause {
		t.Errorf("ValidateInIsolation: expected an Invalid-kind rule error, got %+v", err)
	}
}

func TestValidateInIsolationRejectsShortSenderAddress(t *testing.T) {
	tx, _ := signedTransaction(t)
	tx.Sender = externalapi.DomainAddress{0x01, 0x02}

	v := New()
	if err := v.ValidateInIsolation(tx); err == nil {
		t.Errorf("ValidateInIsolation: expected an error for a too-short sender address, got nil")
	}
}

func TestValidateInIsolationAcceptsUnrecognizedPayloadKindAsOpaque(t *testing.T) {
	kp, err := keys.Generate()
	if err != nil {
		t.Fatalf("Generate: unexpected error: %+v", err)
	}
	sender, err := kp.Address()
	if err != nil {
		t.Fatalf("Address: unexpected error: %+v", err)
	}
	tx := &externalapi.DomainTransaction{
		Sender:      sender,
		Recipient:   make(externalapi.DomainAddress, 20),
		Amount:      10,
		Fee:         1,
		Nonce:       0,
		PayloadKind: externalapi.PayloadKind(0xff),
		Payload:     []byte("opaque module-defined payload"),
	}
	if err := kp.SignTransaction(tx); err != nil {
		t.Fatalf("SignTransaction: unexpected error: %+v", err)
	}

	v := New()
	if err := v.ValidateInIsolation(tx); err != nil {
		t.Errorf("ValidateInIsolation: unexpected error for a payload kind this validator doesn't recognize: %+v", err)
	}
}

func TestValidateInIsolationRejectsOverflowingAmountPlusFee(t *testing.T) {
	kp, err := keys.Generate()
	if err != nil {
		t.Fatalf("Generate: unexpected error: %+v", err)
	}
	sender, err := kp.Address()
	if err != nil {
		t.Fatalf("Address: unexpected error: %+v", err)
	}
	tx := &externalapi.DomainTransaction{
		Sender:    sender,
		Recipient: make(externalapi.DomainAddress, 20),
		Amount:    ^uint64(0),
		Fee:       1,
	}
	if err := kp.SignTransaction(tx); err != nil {
		t.Fatalf("SignTransaction: unexpected error: %+v", err)
	}

	v := New()
	if err := v.ValidateInIsolation(tx); err == nil {
		t.Errorf("ValidateInIsolation: expected an error for an overflowing amount+fee, got nil")
	}
}

func TestValidateInContextAcceptsMatchingNonceAndBalance(t *testing.T) {
	tx, _ := signedTransaction(t)
	senderState := &externalapi.AccountState{Nonce: 0, Balance: 100}

	v := New()
	if err := v.ValidateInContext(tx, senderState); err != nil {
		t.Errorf("ValidateInContext: unexpected error: %+v", err)
	}
}

func TestValidateInContextRejectsWrongNonce(t *testing.T) {
	tx, _ := signedTransaction(t)
	senderState := &externalapi.AccountState{Nonce: 5, Balance: 100}

	v := New()
	if err := v.ValidateInContext(tx, senderState); err == nil {
		t.Errorf("ValidateInContext: expected an error for a mismatched nonce, got nil")
	}
}

func TestValidateInContextRejectsInsufficientBalance(t *testing.T) {
	tx, _ := signedTransaction(t)
	senderState := &externalapi.AccountState{Nonce: 0, Balance: 5}

	v := New()
	if err := v.ValidateInContext(tx, senderState); err == nil {
		t.Errorf("ValidateInContext: expected an error for insufficient balance, got nil")
	}
}
