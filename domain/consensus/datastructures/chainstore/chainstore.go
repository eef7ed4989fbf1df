// Package chainstore implements model.ChainStore, model.AccountStore and
// model.StateCheckpointStore: the height index, tip pointer, per-address
// balances, and periodic state snapshots that replace kaspad's
// UTXO-diff and virtual-state stores under the balance model. There is no
// equivalent kaspad package for this concern; the key layout is this
// repository's own, and the encoding conventions follow the codec package
// used throughout the rest of the consensus layer.
package chainstore

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/codec"
	"github.com/tensorchain/tensorchain/domain/consensus/database"
	"github.com/tensorchain/tensorchain/domain/consensus/model"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/infrastructure/db"
)

type chainStore struct{}

// New instantiates a new ChainStore.
func New() model.ChainStore {
	return &chainStore{}
}

func (cs *chainStore) SetTip(dbContext model.DBWriter, blockHash *externalapi.DomainHash) error {
	return dbContext.Put(database.TipKey(), blockHash.ByteSlice())
}

func (cs *chainStore) Tip(dbContext model.DBReader) (*externalapi.DomainHash, error) {
	tipBytes, err := dbContext.Get(database.TipKey())
	if err != nil {
		return nil, err
	}
	var hash externalapi.DomainHash
	copy(hash[:], tipBytes)
	return &hash, nil
}

func (cs *chainStore) HasTip(dbContext model.DBReader) (bool, error) {
	return dbContext.Has(database.TipKey())
}

func (cs *chainStore) SetBlockAtHeight(dbContext model.DBWriter, height uint64, blockHash *externalapi.DomainHash) error {
	return dbContext.Put(database.HeightIndexKey(height), blockHash.ByteSlice())
}

func (cs *chainStore) BlockAtHeight(dbContext model.DBReader, height uint64) (*externalapi.DomainHash, error) {
	hashBytes, err := dbContext.Get(database.HeightIndexKey(height))
	if err != nil {
		return nil, err
	}
	var hash externalapi.DomainHash
	copy(hash[:], hashBytes)
	return &hash, nil
}

func (cs *chainStore) DeleteBlockAtHeight(dbContext model.DBWriter, height uint64) error {
	return dbContext.Delete(database.HeightIndexKey(height))
}

type accountStore struct{}

// NewAccountStore instantiates a new AccountStore.
func NewAccountStore() model.AccountStore {
	return &accountStore{}
}

func (as *accountStore) Get(dbContext model.DBReader, address externalapi.DomainAddress) (*externalapi.AccountState, error) {
	stateBytes, err := dbContext.Get(database.BalanceKey(address))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return &externalapi.AccountState{Balance: 0, Nonce: 0}, nil
		}
		return nil, err
	}
	if len(stateBytes) != 16 {
		return nil, errors.Errorf("corrupt account record for address %x: length %d", address, len(stateBytes))
	}
	balance := decodeUint64(stateBytes[:8])
	nonce := decodeUint64(stateBytes[8:])
	return &externalapi.AccountState{Balance: balance, Nonce: nonce}, nil
}

func (as *accountStore) Set(dbContext model.DBWriter, address externalapi.DomainAddress, state *externalapi.AccountState) error {
	buf := make([]byte, 16)
	encodeUint64(buf[:8], state.Balance)
	encodeUint64(buf[8:], state.Nonce)
	return dbContext.Put(database.BalanceKey(address), buf)
}

// All returns every address with a stored account record, keyed by the raw
// address bytes. Used by the consensus state manager to reset every known
// balance to a checkpoint snapshot before a reorg's forward replay, since
// an address the snapshot doesn't mention still needs zeroing rather than
// being left with a stale balance.
func (as *accountStore) All(dbContext model.ScanningReader) (map[string]*externalapi.AccountState, error) {
	c, err := dbContext.Cursor(database.BalanceKey(nil))
	if err != nil {
		return nil, err
	}
	defer c.Close()

	accounts := make(map[string]*externalapi.AccountState)
	for c.Next() {
		keyBytes, err := c.Key()
		if err != nil {
			return nil, err
		}
		valueBytes, err := c.Value()
		if err != nil {
			return nil, err
		}
		if len(valueBytes) != 16 {
			return nil, errors.Errorf("corrupt account record: length %d", len(valueBytes))
		}
		address := string(keyBytes[len(database.BalanceKey(nil)):])
		accounts[address] = &externalapi.AccountState{
			Balance: decodeUint64(valueBytes[:8]),
			Nonce:   decodeUint64(valueBytes[8:]),
		}
	}
	return accounts, nil
}

type stateCheckpointStore struct{}

// NewStateCheckpointStore instantiates a new StateCheckpointStore.
func NewStateCheckpointStore() model.StateCheckpointStore {
	return &stateCheckpointStore{}
}

func (scs *stateCheckpointStore) Put(dbContext model.DBWriter, blockHash *externalapi.DomainHash,
	accounts map[string]*externalapi.AccountState, tasks []*externalapi.DomainTensorTask) error {

	var w bytes.Buffer
	if err := codec.WriteVarInt(&w, uint64(len(accounts))); err != nil {
		return err
	}
	for address, state := range accounts {
		if err := codec.WriteVarBytes(&w, []byte(address)); err != nil {
			return err
		}
		entry := make([]byte, 16)
		encodeUint64(entry[:8], state.Balance)
		encodeUint64(entry[8:], state.Nonce)
		if _, err := w.Write(entry); err != nil {
			return err
		}
	}
	if err := codec.WriteVarInt(&w, uint64(len(tasks))); err != nil {
		return err
	}
	for _, task := range tasks {
		if err := codec.EncodeTask(&w, task); err != nil {
			return err
		}
	}
	return dbContext.Put(database.StateCheckpointKey(blockHash.ByteSlice()), w.Bytes())
}

func (scs *stateCheckpointStore) Get(dbContext model.DBReader, blockHash *externalapi.DomainHash) (
	map[string]*externalapi.AccountState, []*externalapi.DomainTensorTask, bool, error) {

	checkpointBytes, err := dbContext.Get(database.StateCheckpointKey(blockHash.ByteSlice()))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil, false, nil
		}
		return nil, nil, false, err
	}
	r := bytes.NewReader(checkpointBytes)
	count, err := codec.ReadVarInt(r)
	if err != nil {
		return nil, nil, false, err
	}
	accounts := make(map[string]*externalapi.AccountState, count)
	for i := uint64(0); i < count; i++ {
		address, err := codec.ReadVarBytes(r, codec.MaxAddressLength)
		if err != nil {
			return nil, nil, false, err
		}
		entry := make([]byte, 16)
		if _, err := io.ReadFull(r, entry); err != nil {
			return nil, nil, false, err
		}
		accounts[string(address)] = &externalapi.AccountState{
			Balance: decodeUint64(entry[:8]),
			Nonce:   decodeUint64(entry[8:]),
		}
	}

	taskCount, err := codec.ReadVarInt(r)
	if err != nil {
		return nil, nil, false, err
	}
	tasks := make([]*externalapi.DomainTensorTask, taskCount)
	for i := range tasks {
		task, err := codec.DecodeTask(r)
		if err != nil {
			return nil, nil, false, err
		}
		tasks[i] = task
	}

	return accounts, tasks, true, nil
}

func encodeUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func decodeUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
