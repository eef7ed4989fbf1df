// Package workstore implements model.WorkStore, the W/<digest> column
// family holding each known block's cumulative chain work (sum of
// per-block work from genesis). There is no equivalent kaspad package for this
// concern under the balance model: kaspad's GHOSTDAG blue-work
// accumulates over a DAG of parents, while a single-parent chain only
// needs a running big.Int sum, so the encoding here is this repository's
// own rather than ported from blockdag's blue-work bookkeeping.
package workstore

import (
	"math/big"

	"github.com/tensorchain/tensorchain/domain/consensus/database"
	"github.com/tensorchain/tensorchain/domain/consensus/model"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
)

type workStore struct{}

// New instantiates a new WorkStore.
func New() model.WorkStore {
	return &workStore{}
}

func (ws *workStore) Put(dbContext model.DBWriter, blockHash *externalapi.DomainHash, work *big.Int) error {
	return dbContext.Put(database.WorkKey(blockHash.ByteSlice()), work.Bytes())
}

func (ws *workStore) Get(dbContext model.DBReader, blockHash *externalapi.DomainHash) (*big.Int, error) {
	workBytes, err := dbContext.Get(database.WorkKey(blockHash.ByteSlice()))
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(workBytes), nil
}
