// Package blockstatusstore implements model.BlockStatusStore, the
// V/<digest> column family recording what a node knows about a block
// beyond its header, grounded on kaspad's blockstatusstore package.
package blockstatusstore

import (
	"github.com/tensorchain/tensorchain/domain/consensus/database"
	"github.com/tensorchain/tensorchain/domain/consensus/model"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
)

type blockStatusStore struct{}

// New instantiates a new BlockStatusStore.
func New() model.BlockStatusStore {
	return &blockStatusStore{}
}

func (bss *blockStatusStore) Put(dbContext model.DBWriter, blockHash *externalapi.DomainHash, status externalapi.BlockStatus) error {
	return dbContext.Put(database.BlockStatusKey(blockHash.ByteSlice()), []byte{byte(status)})
}

func (bss *blockStatusStore) Get(dbContext model.DBReader, blockHash *externalapi.DomainHash) (externalapi.BlockStatus, error) {
	statusBytes, err := dbContext.Get(database.BlockStatusKey(blockHash.ByteSlice()))
	if err != nil {
		return 0, err
	}
	return externalapi.BlockStatus(statusBytes[0]), nil
}

func (bss *blockStatusStore) Exists(dbContext model.DBReader, blockHash *externalapi.DomainHash) (bool, error) {
	return dbContext.Has(database.BlockStatusKey(blockHash.ByteSlice()))
}
