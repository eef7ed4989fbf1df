// Package mempool implements the unconfirmed-transaction pool: one entry
// per digest, at most one pending transaction per
// (sender, nonce), fee-density ordering for block-template assembly, and
// a byte-cap eviction policy. There is no equivalent kaspad package for this
// concern under the balance model - kaspad's domain/mempool package
// drives UTXO orphan chains this protocol has no equivalent of - but the
// Config-plus-pool-struct shape and the orphan/"lowest unused nonce
// eligible" admission idiom follow it.
package mempool

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/codec"
	"github.com/tensorchain/tensorchain/domain/consensus/model"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/domain/consensus/ruleerrors"
)

// Config configures a Mempool.
type Config struct {
	// MaxBytes is the total serialized-size cap across all pooled
	// transactions. Admission above it evicts the lowest
	// fee-density transaction until the new one fits.
	MaxBytes int
	// ConsensusStateManager supplies the tip account state admission is
	// checked against.
	ConsensusStateManager model.ConsensusStateManager
	// TransactionValidator runs the same isolation/context checks the
	// state machine applies at block-application time: mempool admission
	// requires the same checks against the tip state.
	TransactionValidator model.TransactionValidator
	// DBReader is the read handle used to look up tip account state.
	DBReader model.DBReader
}

type entry struct {
	tx      *externalapi.DomainTransaction
	size    int
	feeRate float64 // fee per byte, the ordering key for template assembly and eviction
}

// Mempool holds validated, unconfirmed transactions. It is safe for
// concurrent use; the node orchestrator is its only writer, but readers
// (RPC, gossip fan-out, miner template fetch) may call concurrently with
// writes.
type Mempool struct {
	cfg *Config

	mu             sync.RWMutex
	byID           map[externalapi.DomainTransactionID]*entry
	bySenderNonce  map[string]map[uint64]externalapi.DomainTransactionID
	totalBytes     int
}

// New constructs an empty Mempool.
func New(cfg *Config) *Mempool {
	return &Mempool{
		cfg:           cfg,
		byID:          make(map[externalapi.DomainTransactionID]*entry),
		bySenderNonce: make(map[string]map[uint64]externalapi.DomainTransactionID),
	}
}

// Has reports whether id is already pooled.
func (mp *Mempool) Has(id externalapi.DomainTransactionID) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	_, ok := mp.byID[id]
	return ok
}

// Get returns the pooled transaction for id, for answering a peer's
// TxRequestMessage.
func (mp *Mempool) Get(id externalapi.DomainTransactionID) (*externalapi.DomainTransaction, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	e, ok := mp.byID[id]
	if !ok {
		return nil, false
	}
	return e.tx, true
}

// Count returns the number of pooled transactions.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return len(mp.byID)
}

// AddTransaction validates tx against the current tip state and admits it:
// a transaction whose nonce equals the sender's current
// nonce is admitted, one below is rejected, one above is held but is not
// yet eligible for template inclusion until its predecessor lands.
// Replacement-by-fee is supported: a transaction sharing (sender, nonce)
// with an already-pooled one replaces it only if its fee is strictly
// higher.
func (mp *Mempool) AddTransaction(tx *externalapi.DomainTransaction) error {
	if tx.ID == nil {
		id := codec.TransactionID(tx)
		tx.ID = &id
	}

	if err := mp.cfg.TransactionValidator.ValidateInIsolation(tx); err != nil {
		return err
	}

	senderState, err := mp.cfg.ConsensusStateManager.AccountState(mp.cfg.DBReader, tx.Sender)
	if err != nil {
		return errors.Wrap(err, "failed to load sender state for mempool admission")
	}
	if tx.Nonce < senderState.Nonce {
		return ruleerrors.New(ruleerrors.ErrWrongNonce, "transaction nonce %d is below sender's current nonce %d", tx.Nonce, senderState.Nonce)
	}
	if tx.Nonce == senderState.Nonce {
		if err := mp.cfg.TransactionValidator.ValidateInContext(tx, senderState); err != nil {
			return err
		}
	}
	// A nonce equal to or above the current one is poolable; only
	// equality is immediately template-eligible (checked in
	// SelectForTemplate)
	total := tx.Amount + tx.Fee
	if total < tx.Amount {
		return ruleerrors.New(ruleerrors.ErrMalformedTransaction, "amount + fee overflows")
	}

	size := transactionSize(tx)

	mp.mu.Lock()
	defer mp.mu.Unlock()

	senderKey := string(tx.Sender)
	if byNonce, ok := mp.bySenderNonce[senderKey]; ok {
		if existingID, ok := byNonce[tx.Nonce]; ok {
			existing := mp.byID[existingID]
			if existing != nil {
				if tx.Fee <= existing.tx.Fee {
					return errors.New("a pending transaction for this sender and nonce already exists with an equal or higher fee")
				}
				mp.removeLocked(existingID)
			}
		}
	}

	if mp.totalBytes+size > mp.cfg.MaxBytes {
		mp.evictForSpaceLocked(size)
		if mp.totalBytes+size > mp.cfg.MaxBytes {
			return errors.New("mempool is full and no lower fee-density transaction could be evicted")
		}
	}

	e := &entry{tx: tx, size: size, feeRate: float64(tx.Fee) / float64(size)}
	mp.byID[*tx.ID] = e
	if mp.bySenderNonce[senderKey] == nil {
		mp.bySenderNonce[senderKey] = make(map[uint64]externalapi.DomainTransactionID)
	}
	mp.bySenderNonce[senderKey][tx.Nonce] = *tx.ID
	mp.totalBytes += size
	return nil
}

// evictForSpaceLocked evicts lowest fee-density transactions until there
// is room for an additional incomingSize bytes, or nothing more can be
// evicted. Caller must hold mp.mu.
func (mp *Mempool) evictForSpaceLocked(incomingSize int) {
	for mp.totalBytes+incomingSize > mp.cfg.MaxBytes {
		var victim *externalapi.DomainTransactionID
		var victimRate float64
		for id, e := range mp.byID {
			if victim == nil || e.feeRate < victimRate {
				idCopy := id
				victim = &idCopy
				victimRate = e.feeRate
			}
		}
		if victim == nil {
			return
		}
		mp.removeLocked(*victim)
	}
}

// RemoveTransaction removes id from the pool, if present.
func (mp *Mempool) RemoveTransaction(id externalapi.DomainTransactionID) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.removeLocked(id)
}

func (mp *Mempool) removeLocked(id externalapi.DomainTransactionID) {
	e, ok := mp.byID[id]
	if !ok {
		return
	}
	delete(mp.byID, id)
	mp.totalBytes -= e.size
	senderKey := string(e.tx.Sender)
	if byNonce, ok := mp.bySenderNonce[senderKey]; ok {
		delete(byNonce, e.tx.Nonce)
		if len(byNonce) == 0 {
			delete(mp.bySenderNonce, senderKey)
		}
	}
}

// HandleNewTip re-validates every pooled transaction against the new tip
// state, evicting any that are now invalid (its nonce was consumed by a
// confirmed transaction, or its sender's balance no longer covers it).
// Called by the orchestrator after every block application and reorg.
func (mp *Mempool) HandleNewTip() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	for id, e := range mp.byID {
		senderState, err := mp.cfg.ConsensusStateManager.AccountState(mp.cfg.DBReader, e.tx.Sender)
		if err != nil {
			continue
		}
		if e.tx.Nonce < senderState.Nonce {
			mp.removeLocked(id)
			continue
		}
		if e.tx.Nonce == senderState.Nonce {
			if err := mp.cfg.TransactionValidator.ValidateInContext(e.tx, senderState); err != nil {
				mp.removeLocked(id)
			}
		}
	}
}

// RescueTransactions re-admits transactions displaced by a reorg that
// remain valid against the new tip state. Invalid or already-pooled
// transactions are silently skipped.
func (mp *Mempool) RescueTransactions(txs []*externalapi.DomainTransaction) {
	for _, tx := range txs {
		if tx.ID != nil && mp.Has(*tx.ID) {
			continue
		}
		_ = mp.AddTransaction(tx)
	}
}

// SelectForTemplate returns up to maxCount transactions (capped at
// maxBytes total size) eligible for inclusion in a new block template:
// only the lowest-unused nonce per sender is eligible until its
// predecessor lands, and among eligible transactions the highest
// fee-density wins. Eligibility and fee-density ordering interact: a
// sender's transactions must be selected in nonce order regardless of the
// fee-density of transactions from other senders, so candidates are
// merged across senders by always taking the highest fee-density
// *next-eligible* transaction rather than sorting the whole eligible set
// at once.
func (mp *Mempool) SelectForTemplate(maxCount, maxBytes int) []*externalapi.DomainTransaction {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	queues := make(map[string][]*entry)
	for senderKey, byNonce := range mp.bySenderNonce {
		senderState, err := mp.cfg.ConsensusStateManager.AccountState(mp.cfg.DBReader, externalapi.DomainAddress(senderKey))
		if err != nil {
			continue
		}
		expected := senderState.Nonce
		var queue []*entry
		for {
			id, ok := byNonce[expected]
			if !ok {
				break
			}
			e := mp.byID[id]
			if e == nil {
				break
			}
			queue = append(queue, e)
			expected++
		}
		if len(queue) > 0 {
			queues[senderKey] = queue
		}
	}

	selected := make([]*externalapi.DomainTransaction, 0, maxCount)
	var totalSize int
	for len(selected) < maxCount {
		var bestSender string
		var bestEntry *entry
		for senderKey, queue := range queues {
			head := queue[0]
			if bestEntry == nil || head.feeRate > bestEntry.feeRate {
				bestSender = senderKey
				bestEntry = head
			}
		}
		if bestEntry == nil {
			break
		}
		if totalSize+bestEntry.size > maxBytes {
			// This sender's next-eligible transaction doesn't fit; later,
			// lower fee-density transactions from other senders might
			// still fit, so drop only this sender's queue rather than
			// aborting selection entirely.
			delete(queues, bestSender)
			continue
		}
		selected = append(selected, bestEntry.tx)
		totalSize += bestEntry.size
		queue := queues[bestSender][1:]
		if len(queue) == 0 {
			delete(queues, bestSender)
		} else {
			queues[bestSender] = queue
		}
	}
	return selected
}

// transactionSize returns tx's canonical encoded size in bytes, the unit
// SelectForTemplate's byte bound and the mempool's MaxBytes cap are
// measured in.
func transactionSize(tx *externalapi.DomainTransaction) int {
	var buf sizeCountingWriter
	_ = codec.EncodeTransaction(&buf, tx)
	return buf.n
}

type sizeCountingWriter struct{ n int }

func (w *sizeCountingWriter) Write(p []byte) (int, error) {
	w.n += len(p)
	return len(p), nil
}
