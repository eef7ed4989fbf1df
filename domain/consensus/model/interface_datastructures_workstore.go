package model

import (
	"math/big"

	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
)

// WorkStore maintains each known block's cumulative chain work (the
// W/<digest> column family), the fork-choice metric used to pick the
// heavier of two competing chains.
type WorkStore interface {
	Put(dbContext DBWriter, blockHash *externalapi.DomainHash, work *big.Int) error
	Get(dbContext DBReader, blockHash *externalapi.DomainHash) (*big.Int, error)
}
