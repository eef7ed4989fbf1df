package model

import "github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"

// BlockStore represents a store of full block bodies, keyed by digest
// (the B/<digest> column family from).
type BlockStore interface {
	Put(dbContext DBWriter, blockHash *externalapi.DomainHash, block *externalapi.DomainBlock) error
	Block(dbContext DBReader, blockHash *externalapi.DomainHash) (*externalapi.DomainBlock, error)
	HasBlock(dbContext DBReader, blockHash *externalapi.DomainHash) (bool, error)
	Delete(dbContext DBWriter, blockHash *externalapi.DomainHash) error
}

// BlockStatusStore tracks what a node knows about each block beyond its
// header (header-only, valid, invalid, unknown-parent).
type BlockStatusStore interface {
	Put(dbContext DBWriter, blockHash *externalapi.DomainHash, status externalapi.BlockStatus) error
	Get(dbContext DBReader, blockHash *externalapi.DomainHash) (externalapi.BlockStatus, error)
	Exists(dbContext DBReader, blockHash *externalapi.DomainHash) (bool, error)
}
