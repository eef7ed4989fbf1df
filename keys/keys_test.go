package keys

import (
	"testing"

	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
)

func TestParseAddressRoundTrip(t *testing.T) {
	want := make(externalapi.DomainAddress, 20)
	for i := range want {
		want[i] = byte(i)
	}

	got, err := ParseAddress(want.String())
	if err != nil {
		t.Fatalf("ParseAddress: unexpected error: %+v", err)
	}
	if !got.Equal(want) {
		t.Errorf("ParseAddress: got %s, want %s", got, want)
	}
}

func TestParseAddressRejectsInvalidLength(t *testing.T) {
	if _, err := ParseAddress("aabb"); err == nil {
		t.Errorf("ParseAddress: expected error for a 2-byte address, got nil")
	}
}

func TestParseAddressRejectsInvalidHex(t *testing.T) {
	if _, err := ParseAddress("not-hex"); err == nil {
		t.Errorf("ParseAddress: expected error for non-hex input, got nil")
	}
}

func TestGenerateProducesDistinctAddresses(t *testing.T) {
	a, err := Generate()
	if err != nil {
		t.Fatalf("Generate: unexpected error: %+v", err)
	}
	b, err := Generate()
	if err != nil {
		t.Fatalf("Generate: unexpected error: %+v", err)
	}

	addrA, err := a.Address()
	if err != nil {
		t.Fatalf("Address: unexpected error: %+v", err)
	}
	addrB, err := b.Address()
	if err != nil {
		t.Fatalf("Address: unexpected error: %+v", err)
	}
	if addrA.Equal(addrB) {
		t.Errorf("Generate: two independently generated keypairs derived the same address %s", addrA)
	}
}

func TestSignAndVerifyTransaction(t *testing.T) {
	kp, err := Generate()
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
		Amount:    100,
		Fee:       1,
		Nonce:     1,
	}

	if err := kp.SignTransaction(tx); err != nil {
		t.Fatalf("SignTransaction: unexpected error: %+v", err)
	}

	ok, err := VerifyTransactionSignature(tx)
	if err != nil {
		t.Fatalf("VerifyTransactionSignature: unexpected error: %+v", err)
	}
	if !ok {
		t.Errorf("VerifyTransactionSignature: a correctly signed transaction failed verification")
	}
}

func TestVerifyTransactionSignatureRejectsTamperedBody(t *testing.T) {
	kp, err := Generate()
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
		Amount:    100,
		Fee:       1,
		Nonce:     1,
	}
	if err := kp.SignTransaction(tx); err != nil {
		t.Fatalf("SignTransaction: unexpected error: %+v", err)
	}

	tx.Amount = 999999

	ok, err := VerifyTransactionSignature(tx)
	if err != nil {
		t.Fatalf("VerifyTransactionSignature: unexpected error: %+v", err)
	}
	if ok {
		t.Errorf("VerifyTransactionSignature: a tampered transaction passed verification")
	}
}

func TestVerifyTransactionSignatureRejectsWrongSender(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("Generate: unexpected error: %+v", err)
	}
	other, err := Generate()
	if err != nil {
		t.Fatalf("Generate: unexpected error: %+v", err)
	}
	otherAddress, err := other.Address()
	if err != nil {
		t.Fatalf("Address: unexpected error: %+v", err)
	}

	tx := &externalapi.DomainTransaction{
		Sender:    otherAddress,
		Recipient: make(externalapi.DomainAddress, 20),
		Amount:    1,
		Nonce:     1,
	}
	if err := kp.SignTransaction(tx); err != nil {
		t.Fatalf("SignTransaction: unexpected error: %+v", err)
	}

	ok, err := VerifyTransactionSignature(tx)
	if err != nil {
		t.Fatalf("VerifyTransactionSignature: unexpected error: %+v", err)
	}
	if ok {
		t.Errorf("VerifyTransactionSignature: a transaction signed by a key that doesn't derive Sender passed verification")
	}
}
