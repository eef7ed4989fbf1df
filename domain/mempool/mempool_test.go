package mempool

import (
	"testing"

	"github.com/tensorchain/tensorchain/domain/consensus/model"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/domain/consensus/ruleerrors"
	"github.com/tensorchain/tensorchain/keys"
)

type fakeConsensusStateManager struct {
	states map[string]*externalapi.AccountState
}

func newFakeConsensusStateManager() *fakeConsensusStateManager {
	return &fakeConsensusStateManager{states: make(map[string]*externalapi.AccountState)}
}

func (f *fakeConsensusStateManager) set(address externalapi.DomainAddress, state *externalapi.AccountState) {
	f.states[string(address)] = state
}

func (f *fakeConsensusStateManager) AddBlock(block *externalapi.DomainBlock) (*model.ChainUpdate, error) {
	panic("not used by mempool")
}

func (f *fakeConsensusStateManager) ApplyGenesisBlock(block *externalapi.DomainBlock) error {
	panic("not used by mempool")
}

func (f *fakeConsensusStateManager) AccountState(dbContext model.DBReader, address externalapi.DomainAddress) (*externalapi.AccountState, error) {
	state, ok := f.states[string(address)]
	if !ok {
		return &externalapi.AccountState{}, nil
	}
	return state, nil
}

func (f *fakeConsensusStateManager) Tip(dbContext model.DBReader) (*externalapi.DomainHash, uint64, error) {
	panic("not used by mempool")
}

type fakeTransactionValidator struct{}

func (fakeTransactionValidator) ValidateInIsolation(tx *externalapi.DomainTransaction) error {
	return nil
}

func (fakeTransactionValidator) ValidateInContext(tx *externalapi.DomainTransaction, senderState *externalapi.AccountState) error {
	if tx.Nonce != senderState.Nonce {
		return ruleerrors.New(ruleerrors.ErrWrongNonce, "nonce mismatch")
	}
	if tx.Amount+tx.Fee > senderState.Balance {
		return ruleerrors.New(ruleerrors.ErrInsufficientBalance, "insufficient balance")
	}
	return nil
}

type fakeDBReader struct{}

func (fakeDBReader) Get(key []byte) ([]byte, error) { return nil, nil }
func (fakeDBReader) Has(key []byte) (bool, error)   { return false, nil }

func newTestMempool(t *testing.T, csm *fakeConsensusStateManager) *Mempool {
	t.Helper()
	return New(&Config{
		MaxBytes:              1 << 20,
		ConsensusStateManager: csm,
		TransactionValidator:  fakeTransactionValidator{},
		DBReader:              fakeDBReader{},
	})
}

func newAddressedTransaction(t *testing.T, nonce, amount, fee uint64) (*externalapi.DomainTransaction, externalapi.DomainAddress) {
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
		Amount:    amount,
		Fee:       fee,
		Nonce:     nonce,
	}
	if err := kp.SignTransaction(tx); err != nil {
		t.Fatalf("SignTransaction: unexpected error: %+v", err)
	}
	return tx, sender
}

func TestAddTransactionAdmitsValidTransaction(t *testing.T) {
	csm := newFakeConsensusStateManager()
	mp := newTestMempool(t, csm)

	tx, sender := newAddressedTransaction(t, 0, 10, 1)
	csm.set(sender, &externalapi.AccountState{Nonce: 0, Balance: 100})

	if err := mp.AddTransaction(tx); err != nil {
		t.Fatalf("AddTransaction: unexpected error: %+v", err)
	}
	if !mp.Has(*tx.ID) {
		t.Errorf("AddTransaction: transaction was not admitted")
	}
	if mp.Count() != 1 {
		t.Errorf("Count: got %d, want 1", mp.Count())
	}
}

func TestAddTransactionRejectsNonceBelowSenderState(t *testing.T) {
	csm := newFakeConsensusStateManager()
	mp := newTestMempool(t, csm)

	tx, sender := newAddressedTransaction(t, 2, 10, 1)
	csm.set(sender, &externalapi.AccountState{Nonce: 5, Balance: 100})

	if err := mp.AddTransaction(tx); err == nil {
		t.Errorf("AddTransaction: expected an error for a stale nonce, got nil")
	}
}

func TestAddTransactionReplacesOnHigherFee(t *testing.T) {
	csm := newFakeConsensusStateManager()
	mp := newTestMempool(t, csm)

	kp, err := keys.Generate()
	if err != nil {
		t.Fatalf("Generate: unexpected error: %+v", err)
	}
	sender, err := kp.Address()
	if err != nil {
		t.Fatalf("Address: unexpected error: %+v", err)
	}
	csm.set(sender, &externalapi.AccountState{Nonce: 0, Balance: 1000})

	low := &externalapi.DomainTransaction{Sender: sender, Recipient: make(externalapi.DomainAddress, 20), Amount: 10, Fee: 1, Nonce: 0}
	if err := kp.SignTransaction(low); err != nil {
		t.Fatalf("SignTransaction: unexpected error: %+v", err)
	}
	if err := mp.AddTransaction(low); err != nil {
		t.Fatalf("AddTransaction(low fee): unexpected error: %+v", err)
	}

	high := &externalapi.DomainTransaction{Sender: sender, Recipient: make(externalapi.DomainAddress, 20), Amount: 10, Fee: 5, Nonce: 0}
	if err := kp.SignTransaction(high); err != nil {
		t.Fatalf("SignTransaction: unexpected error: %+v", err)
	}
	if err := mp.AddTransaction(high); err != nil {
		t.Fatalf("AddTransaction(high fee): unexpected error: %+v", err)
	}

	if mp.Count() != 1 {
		t.Fatalf("Count: got %d, want 1 after replacement", mp.Count())
	}
	if mp.Has(*low.ID) {
		t.Errorf("AddTransaction: the lower-fee transaction should have been evicted on replacement")
	}
	if !mp.Has(*high.ID) {
		t.Errorf("AddTransaction: the higher-fee replacement should be pooled")
	}
}

func TestAddTransactionRejectsLowerOrEqualFeeReplacement(t *testing.T) {
	csm := newFakeConsensusStateManager()
	mp := newTestMempool(t, csm)

	kp, err := keys.Generate()
	if err != nil {
		t.Fatalf("Generate: unexpected error: %+v", err)
	}
	sender, err := kp.Address()
	if err != nil {
		t.Fatalf("Address: unexpected error: %+v", err)
	}
	csm.set(sender, &externalapi.AccountState{Nonce: 0, Balance: 1000})

	first := &externalapi.DomainTransaction{Sender: sender, Recipient: make(externalapi.DomainAddress, 20), Amount: 10, Fee: 5, Nonce: 0}
	if err := kp.SignTransaction(first); err != nil {
		t.Fatalf("SignTransaction: unexpected error: %+v", err)
	}
	if err := mp.AddTransaction(first); err != nil {
		t.Fatalf("AddTransaction: unexpected error: %+v", err)
	}

	equalFee := &externalapi.DomainTransaction{Sender: sender, Recipient: make(externalapi.DomainAddress, 20), Amount: 20, Fee: 5, Nonce: 0}
	if err := kp.SignTransaction(equalFee); err != nil {
		t.Fatalf("SignTransaction: unexpected error: %+v", err)
	}
	if err := mp.AddTransaction(equalFee); err == nil {
		t.Errorf("AddTransaction: expected an error replacing with an equal fee, got nil")
	}
}

func TestSelectForTemplateOrdersByFeeDensityAndNonceContiguity(t *testing.T) {
	csm := newFakeConsensusStateManager()
	mp := newTestMempool(t, csm)

	kp, err := keys.Generate()
	if err != nil {
		t.Fatalf("Generate: unexpected error: %+v", err)
	}
	sender, err := kp.Address()
	if err != nil {
		t.Fatalf("Address: unexpected error: %+v", err)
	}
	csm.set(sender, &externalapi.AccountState{Nonce: 0, Balance: 1000})

	nonce0 := &externalapi.DomainTransaction{Sender: sender, Recipient: make(externalapi.DomainAddress, 20), Amount: 10, Fee: 1, Nonce: 0}
	if err := kp.SignTransaction(nonce0); err != nil {
		t.Fatalf("SignTransaction: unexpected error: %+v", err)
	}
	if err := mp.AddTransaction(nonce0); err != nil {
		t.Fatalf("AddTransaction: unexpected error: %+v", err)
	}

	// nonce 2 is not yet eligible: nonce 1 has not landed.
	nonce2 := &externalapi.DomainTransaction{Sender: sender, Recipient: make(externalapi.DomainAddress, 20), Amount: 10, Fee: 100, Nonce: 2}
	if err := kp.SignTransaction(nonce2); err != nil {
		t.Fatalf("SignTransaction: unexpected error: %+v", err)
	}
	if err := mp.AddTransaction(nonce2); err != nil {
		t.Fatalf("AddTransaction: unexpected error: %+v", err)
	}

	selected := mp.SelectForTemplate(10, 1<<20)
	if len(selected) != 1 {
		t.Fatalf("SelectForTemplate: got %d transactions, want 1 (nonce 2 should not be eligible yet)", len(selected))
	}
	if selected[0].Nonce != 0 {
		t.Errorf("SelectForTemplate: got nonce %d, want 0", selected[0].Nonce)
	}
}

func TestSelectForTemplateNeverOrphansANonceAcrossSenders(t *testing.T) {
	csm := newFakeConsensusStateManager()
	mp := newTestMempool(t, csm)

	kpA, err := keys.Generate()
	if err != nil {
		t.Fatalf("Generate: unexpected error: %+v", err)
	}
	senderA, err := kpA.Address()
	if err != nil {
		t.Fatalf("Address: unexpected error: %+v", err)
	}
	csm.set(senderA, &externalapi.AccountState{Nonce: 0, Balance: 1000})

	kpB, err := keys.Generate()
	if err != nil {
		t.Fatalf("Generate: unexpected error: %+v", err)
	}
	senderB, err := kpB.Address()
	if err != nil {
		t.Fatalf("Address: unexpected error: %+v", err)
	}
	csm.set(senderB, &externalapi.AccountState{Nonce: 0, Balance: 1000})

	// A's low-fee nonce 0 must precede A's high-fee nonce 1 in the
	// template even though B's nonce 0 has a fee density between them.
	aNonce0 := &externalapi.DomainTransaction{Sender: senderA, Recipient: make(externalapi.DomainAddress, 20), Amount: 10, Fee: 1, Nonce: 0}
	if err := kpA.SignTransaction(aNonce0); err != nil {
		t.Fatalf("SignTransaction: unexpected error: %+v", err)
	}
	aNonce1 := &externalapi.DomainTransaction{Sender: senderA, Recipient: make(externalapi.DomainAddress, 20), Amount: 10, Fee: 100, Nonce: 1}
	if err := kpA.SignTransaction(aNonce1); err != nil {
		t.Fatalf("SignTransaction: unexpected error: %+v", err)
	}
	bNonce0 := &externalapi.DomainTransaction{Sender: senderB, Recipient: make(externalapi.DomainAddress, 20), Amount: 10, Fee: 50, Nonce: 0}
	if err := kpB.SignTransaction(bNonce0); err != nil {
		t.Fatalf("SignTransaction: unexpected error: %+v", err)
	}

	for _, tx := range []*externalapi.DomainTransaction{aNonce0, aNonce1, bNonce0} {
		if err := mp.AddTransaction(tx); err != nil {
			t.Fatalf("AddTransaction: unexpected error: %+v", err)
		}
	}

	selected := mp.SelectForTemplate(10, 1<<20)
	if len(selected) != 3 {
		t.Fatalf("SelectForTemplate: got %d transactions, want 3", len(selected))
	}

	var aNonce0Index, aNonce1Index = -1, -1
	for i, tx := range selected {
		if tx.Sender.Equal(senderA) && tx.Nonce == 0 {
			aNonce0Index = i
		}
		if tx.Sender.Equal(senderA) && tx.Nonce == 1 {
			aNonce1Index = i
		}
	}
	if aNonce0Index == -1 || aNonce1Index == -1 {
		t.Fatalf("SelectForTemplate: expected both of sender A's transactions to be selected, got %+v", selected)
	}
	if aNonce0Index > aNonce1Index {
		t.Errorf("SelectForTemplate: sender A's nonce 1 (index %d) was selected before nonce 0 (index %d); a block template with a sender's nonce N but not N-1 is invalid", aNonce1Index, aNonce0Index)
	}
}

func TestHandleNewTipEvictsConsumedNonce(t *testing.T) {
	csm := newFakeConsensusStateManager()
	mp := newTestMempool(t, csm)

	tx, sender := newAddressedTransaction(t, 0, 10, 1)
	csm.set(sender, &externalapi.AccountState{Nonce: 0, Balance: 100})
	if err := mp.AddTransaction(tx); err != nil {
		t.Fatalf("AddTransaction: unexpected error: %+v", err)
	}

	// The sender's nonce advanced past this transaction on-chain.
	csm.set(sender, &externalapi.AccountState{Nonce: 1, Balance: 90})
	mp.HandleNewTip()

	if mp.Has(*tx.ID) {
		t.Errorf("HandleNewTip: a transaction whose nonce was consumed on-chain should have been evicted")
	}
}

func TestRemoveTransaction(t *testing.T) {
	csm := newFakeConsensusStateManager()
	mp := newTestMempool(t, csm)

	tx, sender := newAddressedTransaction(t, 0, 10, 1)
	csm.set(sender, &externalapi.AccountState{Nonce: 0, Balance: 100})
	if err := mp.AddTransaction(tx); err != nil {
		t.Fatalf("AddTransaction: unexpected error: %+v", err)
	}

	mp.RemoveTransaction(*tx.ID)
	if mp.Has(*tx.ID) {
		t.Errorf("RemoveTransaction: transaction is still pooled after removal")
	}
	if mp.Count() != 0 {
		t.Errorf("Count: got %d, want 0 after removal", mp.Count())
	}
}
