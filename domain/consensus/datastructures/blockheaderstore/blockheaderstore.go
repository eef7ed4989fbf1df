// Package blockheaderstore implements model.BlockHeaderStore, the
// T/<digest> column family. Headers are kept independently of full block
// bodies so header-first sync can accumulate a long chain of headers
// before any body has arrived, grounded on kaspad's blockheaderstore
// package with its protobuf encoding swapped for the codec package and its
// staging-area pattern dropped along with the rest of the UTXO staging
// machinery.
package blockheaderstore

import (
	"bytes"
	"io"

	"github.com/tensorchain/tensorchain/codec"
	"github.com/tensorchain/tensorchain/domain/consensus/database"
	"github.com/tensorchain/tensorchain/domain/consensus/model"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
)

type blockHeaderStore struct{}

// New instantiates a new BlockHeaderStore.
func New() model.BlockHeaderStore {
	return &blockHeaderStore{}
}

func (bhs *blockHeaderStore) Put(dbContext model.DBWriter, blockHash *externalapi.DomainHash, header *externalapi.DomainBlockHeader) error {
	var buf bytes.Buffer
	if err := codec.EncodeHeader(&buf, header); err != nil {
		return err
	}
	if err := writeHeight(&buf, header.Height); err != nil {
		return err
	}
	return dbContext.Put(database.HeaderKey(blockHash.ByteSlice()), buf.Bytes())
}

func (bhs *blockHeaderStore) BlockHeader(dbContext model.DBReader, blockHash *externalapi.DomainHash) (*externalapi.DomainBlockHeader, error) {
	headerBytes, err := dbContext.Get(database.HeaderKey(blockHash.ByteSlice()))
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(headerBytes)
	header, err := codec.DecodeHeader(r)
	if err != nil {
		return nil, err
	}
	height, err := readHeight(r)
	if err != nil {
		return nil, err
	}
	header.Height = height
	return header, nil
}

func (bhs *blockHeaderStore) HasBlockHeader(dbContext model.DBReader, blockHash *externalapi.DomainHash) (bool, error) {
	return dbContext.Has(database.HeaderKey(blockHash.ByteSlice()))
}

func (bhs *blockHeaderStore) Delete(dbContext model.DBWriter, blockHash *externalapi.DomainHash) error {
	return dbContext.Delete(database.HeaderKey(blockHash.ByteSlice()))
}

func writeHeight(buf *bytes.Buffer, height uint64) error {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(height >> (8 * i))
	}
	_, err := buf.Write(b[:])
	return err
}

func readHeight(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	var height uint64
	for i := 0; i < 8; i++ {
		height |= uint64(b[i]) << (8 * i)
	}
	return height, nil
}
