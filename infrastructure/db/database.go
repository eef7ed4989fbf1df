// Package db wraps an embedded ordered key-value engine (goleveldb) with
// the minimal Database/Batch/Cursor surface the consensus layer needs:
// point lookups, prefix scans, and atomic batched writes: the
// crash-consistent persistence boundary the rest of the node is built on.
package db

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrNotFound is returned when a requested key does not exist.
var ErrNotFound = errors.New("key not found")

// Database is the storage engine interface the consensus layer depends on.
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Delete(key []byte) error
	Cursor(prefix []byte) (Cursor, error)
	Batch() Batch
	WriteBatch(Batch) error
	Close() error
}

// Batch accumulates writes to be committed atomically.
type Batch interface {
	Put(key []byte, value []byte)
	Delete(key []byte)
	Reset()
}

// Cursor iterates over all keys sharing a prefix, in sorted order.
type Cursor interface {
	Next() bool
	Key() ([]byte, error)
	Value() ([]byte, error)
	Close() error
}

type levelDB struct {
	ldb *leveldb.DB
}

// NewLevelDB opens (or creates) a goleveldb-backed Database at path.
func NewLevelDB(path string) (Database, error) {
	ldb, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", path)
	}
	return &levelDB{ldb: ldb}, nil
}

func (d *levelDB) Put(key, value []byte) error {
	return d.ldb.Put(key, value, nil)
}

func (d *levelDB) Get(key []byte) ([]byte, error) {
	value, err := d.ldb.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "key %x", key)
		}
		return nil, err
	}
	return value, nil
}

func (d *levelDB) Has(key []byte) (bool, error) {
	return d.ldb.Has(key, nil)
}

func (d *levelDB) Delete(key []byte) error {
	return d.ldb.Delete(key, nil)
}

func (d *levelDB) Cursor(prefix []byte) (Cursor, error) {
	iter := d.ldb.NewIterator(util.BytesPrefix(prefix), nil)
	return &levelDBCursor{iter: iter, started: false}, nil
}

type levelDBCursor struct {
	iter    iterator
	started bool
}

// iterator is the subset of leveldb's Iterator this package relies on. It
// exists so levelDBCursor can be unit tested against a fake.
type iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

func (c *levelDBCursor) Next() bool {
	return c.iter.Next()
}

func (c *levelDBCursor) Key() ([]byte, error) {
	key := c.iter.Key()
	cloned := make([]byte, len(key))
	copy(cloned, key)
	return cloned, c.iter.Error()
}

func (c *levelDBCursor) Value() ([]byte, error) {
	value := c.iter.Value()
	cloned := make([]byte, len(value))
	copy(cloned, value)
	return cloned, c.iter.Error()
}

func (c *levelDBCursor) Close() error {
	c.iter.Release()
	return nil
}

type levelDBBatch struct {
	batch *leveldb.Batch
}

// Batch returns a new, empty Batch.
func (d *levelDB) Batch() Batch {
	return &levelDBBatch{batch: new(leveldb.Batch)}
}

func (b *levelDBBatch) Put(key, value []byte) {
	b.batch.Put(key, value)
}

func (b *levelDBBatch) Delete(key []byte) {
	b.batch.Delete(key)
}

func (b *levelDBBatch) Reset() {
	b.batch.Reset()
}

// WriteBatch commits batch atomically, with fsync - the durability boundary
// described in: either every write in the batch becomes visible,
// or (on a crash before fsync completes) none of it does.
func (d *levelDB) WriteBatch(batch Batch) error {
	lbatch, ok := batch.(*levelDBBatch)
	if !ok {
		return errors.New("batch was not created by this database")
	}
	return d.ldb.Write(lbatch.batch, &opt.WriteOptions{Sync: true})
}

func (d *levelDB) Close() error {
	return d.ldb.Close()
}
