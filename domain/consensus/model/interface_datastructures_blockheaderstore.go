package model

import "github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"

// BlockHeaderStore represents a store of header-only records (the
// T/<digest> column family), including blocks whose body has not yet been
// fetched during header-first sync.
type BlockHeaderStore interface {
	Put(dbContext DBWriter, blockHash *externalapi.DomainHash, header *externalapi.DomainBlockHeader) error
	BlockHeader(dbContext DBReader, blockHash *externalapi.DomainHash) (*externalapi.DomainBlockHeader, error)
	HasBlockHeader(dbContext DBReader, blockHash *externalapi.DomainHash) (bool, error)
	Delete(dbContext DBWriter, blockHash *externalapi.DomainHash) error
}
