package model

import "github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"

// ChainStore maintains the active chain's height index (H/<height> →
// digest) and the singleton tip pointer.
type ChainStore interface {
	SetTip(dbContext DBWriter, blockHash *externalapi.DomainHash) error
	Tip(dbContext DBReader) (*externalapi.DomainHash, error)
	HasTip(dbContext DBReader) (bool, error)
	SetBlockAtHeight(dbContext DBWriter, height uint64, blockHash *externalapi.DomainHash) error
	BlockAtHeight(dbContext DBReader, height uint64) (*externalapi.DomainHash, error)
	DeleteBlockAtHeight(dbContext DBWriter, height uint64) error
}

// AccountStore maintains confirmed balance and nonce per address (the
// A/address column family; one record holds both).
type AccountStore interface {
	Get(dbContext DBReader, address externalapi.DomainAddress) (*externalapi.AccountState, error)
	Set(dbContext DBWriter, address externalapi.DomainAddress, state *externalapi.AccountState) error
	// All returns every address with a stored account record, used to reset
	// every known balance to a checkpoint snapshot ahead of a reorg's
	// forward replay (including addresses the snapshot itself does not
	// mention, which must be zeroed rather than left stale).
	All(dbContext ScanningReader) (map[string]*externalapi.AccountState, error)
}

// StateCheckpointStore persists a serialized chain-state snapshot every N
// blocks (the S/<digest> column family), so reorgs and restarts can replay
// from the nearest checkpoint instead of from genesis. The snapshot
// includes both account balances/nonces and the full tensor task table,
// since a reorg's forward replay must reset both before re-applying
// blocks.
type StateCheckpointStore interface {
	Put(dbContext DBWriter, blockHash *externalapi.DomainHash, accounts map[string]*externalapi.AccountState,
		tasks []*externalapi.DomainTensorTask) error
	Get(dbContext DBReader, blockHash *externalapi.DomainHash) (accounts map[string]*externalapi.AccountState,
		tasks []*externalapi.DomainTensorTask, found bool, err error)
}
