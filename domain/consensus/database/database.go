// Package database provides the DomainDBContext: the consensus layer's
// view of the persistent store, grounded on kaspad's
// infrastructure/db/dbaccess.DatabaseContext and ffldb transaction idiom,
// simplified to a single goleveldb engine (see DESIGN.md for why
// kaspad's flat-file/leveldb split was not carried over).
package database

import (
	"github.com/tensorchain/tensorchain/infrastructure/db"
)

// DBReader is the read-only subset of DomainDBContext that most consensus
// processes depend on, so tests can substitute an in-memory fake.
type DBReader interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
}

// DBWriter extends DBReader with single-key writes, used directly outside
// the atomic-batch path and, through StagingWriter, inside it. The mempool
// is not written to the store.
type DBWriter interface {
	DBReader
	Put(key []byte, value []byte) error
	Delete(key []byte) error
}

// ScanningReader extends DBReader with prefix iteration, used by the
// handful of stores (taskstore, the account store) that must enumerate an
// entire column family rather than look up a single key.
type ScanningReader interface {
	DBReader
	Cursor(prefix []byte) (db.Cursor, error)
}

// DomainDBContext is the consensus layer's handle on the persistent store.
type DomainDBContext struct {
	db db.Database
}

// New wraps an already-open db.Database.
func New(database db.Database) *DomainDBContext {
	return &DomainDBContext{db: database}
}

// Open opens (or creates) a goleveldb-backed store at path and wraps it.
func Open(path string) (*DomainDBContext, error) {
	database, err := db.NewLevelDB(path)
	if err != nil {
		return nil, err
	}
	return New(database), nil
}

// Get implements DBReader.
func (ctx *DomainDBContext) Get(key []byte) ([]byte, error) {
	return ctx.db.Get(key)
}

// Has implements DBReader.
func (ctx *DomainDBContext) Has(key []byte) (bool, error) {
	return ctx.db.Has(key)
}

// Put implements DBWriter.
func (ctx *DomainDBContext) Put(key []byte, value []byte) error {
	return ctx.db.Put(key, value)
}

// Delete implements DBWriter.
func (ctx *DomainDBContext) Delete(key []byte) error {
	return ctx.db.Delete(key)
}

// Cursor exposes a prefix scan directly, used by datastructures that list
// every entry under a column family (e.g. listing the task table).
func (ctx *DomainDBContext) Cursor(prefix []byte) (db.Cursor, error) {
	return ctx.db.Cursor(prefix)
}

// StagingBatch accumulates every write a single atomic transition produces
// (a new block's balances/nonces, its height index entry, its tip update,
// task transitions, coinbase effects, or a reorg's reverse deltas) so they
// become visible together or not at all.
type StagingBatch struct {
	batch db.Batch
}

// NewStagingBatch returns an empty batch ready to accumulate writes.
func (ctx *DomainDBContext) NewStagingBatch() *StagingBatch {
	return &StagingBatch{batch: ctx.db.Batch()}
}

// Put stages a write.
func (b *StagingBatch) Put(key []byte, value []byte) {
	b.batch.Put(key, value)
}

// Delete stages a deletion.
func (b *StagingBatch) Delete(key []byte) {
	b.batch.Delete(key)
}

// Commit writes every staged change atomically, fsyncing before returning.
// This fsync is the durability boundary: a crash before it
// completes leaves the store at its previous tip.
func (ctx *DomainDBContext) Commit(batch *StagingBatch) error {
	return ctx.db.WriteBatch(batch.batch)
}

// Close closes the underlying store.
func (ctx *DomainDBContext) Close() error {
	return ctx.db.Close()
}

// stagingWriter adapts a StagingBatch into a DBWriter, so the existing
// per-store Put/Delete methods can accumulate into one atomic commit
// instead of writing immediately. Reads fall through to the underlying
// context; a staged-but-uncommitted write is not visible to them, which
// is why callers that need read-your-writes within a single transition
// (e.g. chained balance updates) read before staging.
type stagingWriter struct {
	ctx   *DomainDBContext
	batch *StagingBatch
}

// StagingWriter returns a DBWriter that stages every write into batch
// instead of applying it immediately. Pass the result to store Put/Delete
// calls, then call Commit(batch) once every store has staged its part of
// an atomic state transition.
func (ctx *DomainDBContext) StagingWriter(batch *StagingBatch) DBWriter {
	return &stagingWriter{ctx: ctx, batch: batch}
}

func (w *stagingWriter) Get(key []byte) ([]byte, error) { return w.ctx.Get(key) }
func (w *stagingWriter) Has(key []byte) (bool, error)   { return w.ctx.Has(key) }

func (w *stagingWriter) Put(key []byte, value []byte) error {
	w.batch.Put(key, value)
	return nil
}

func (w *stagingWriter) Delete(key []byte) error {
	w.batch.Delete(key)
	return nil
}
