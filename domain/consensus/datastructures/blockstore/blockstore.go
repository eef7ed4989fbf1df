// Package blockstore implements model.BlockStore, the B/<digest> column
// family holding full block bodies (header, transactions, and task
// claims), grounded on kaspad's blockstore package but rewired from
// a staging-commit shard onto direct DomainDBContext reads/writes: the
// balance model applies a block's effects immediately rather than through
// a UTXO staging diff, so there is nothing left to stage here.
package blockstore

import (
	"github.com/tensorchain/tensorchain/codec"
	"github.com/tensorchain/tensorchain/domain/consensus/database"
	"github.com/tensorchain/tensorchain/domain/consensus/model"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
)

type blockStore struct{}

// New instantiates a new BlockStore.
func New() model.BlockStore {
	return &blockStore{}
}

func (bs *blockStore) Put(dbContext model.DBWriter, blockHash *externalapi.DomainHash, block *externalapi.DomainBlock) error {
	blockBytes, err := codec.EncodeBlock(block)
	if err != nil {
		return err
	}
	return dbContext.Put(database.BlockKey(blockHash.ByteSlice()), blockBytes)
}

func (bs *blockStore) Block(dbContext model.DBReader, blockHash *externalapi.DomainHash) (*externalapi.DomainBlock, error) {
	blockBytes, err := dbContext.Get(database.BlockKey(blockHash.ByteSlice()))
	if err != nil {
		return nil, err
	}
	return codec.DecodeBlock(blockBytes)
}

func (bs *blockStore) HasBlock(dbContext model.DBReader, blockHash *externalapi.DomainHash) (bool, error) {
	return dbContext.Has(database.BlockKey(blockHash.ByteSlice()))
}

func (bs *blockStore) Delete(dbContext model.DBWriter, blockHash *externalapi.DomainHash) error {
	return dbContext.Delete(database.BlockKey(blockHash.ByteSlice()))
}
