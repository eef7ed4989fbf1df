// Package consensus wires every store and process in domain/consensus
// into a single handle the node orchestrator depends on, grounded on
// kaspad's domain/consensus/consensus.go + factory.go split: a thin
// struct exposing only the handful of methods callers outside this
// package need, built by a factory that owns the full dependency graph.
package consensus

import (
	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/codec"
	"github.com/tensorchain/tensorchain/domain/chainparams"
	"github.com/tensorchain/tensorchain/domain/consensus/database"
	"github.com/tensorchain/tensorchain/domain/consensus/datastructures/blockheaderstore"
	"github.com/tensorchain/tensorchain/domain/consensus/datastructures/blockstatusstore"
	"github.com/tensorchain/tensorchain/domain/consensus/datastructures/blockstore"
	"github.com/tensorchain/tensorchain/domain/consensus/datastructures/chainstore"
	"github.com/tensorchain/tensorchain/domain/consensus/datastructures/taskstore"
	"github.com/tensorchain/tensorchain/domain/consensus/datastructures/workstore"
	"github.com/tensorchain/tensorchain/domain/consensus/model"
	"github.com/tensorchain/tensorchain/domain/consensus/processes/blockbuilder"
	"github.com/tensorchain/tensorchain/domain/consensus/processes/blockvalidator"
	"github.com/tensorchain/tensorchain/domain/consensus/processes/coinbasemanager"
	"github.com/tensorchain/tensorchain/domain/consensus/processes/consensusstatemanager"
	"github.com/tensorchain/tensorchain/domain/consensus/processes/difficultymanager"
	"github.com/tensorchain/tensorchain/domain/consensus/processes/tensortaskmanager"
	"github.com/tensorchain/tensorchain/domain/consensus/processes/transactionvalidator"
)

// Consensus bundles the processes and stores the rest of the node depends
// on: validation, state application/reorg, task lifecycle, difficulty and
// block template assembly, plus the raw store handles the mempool and RPC
// surface need for read access.
type Consensus struct {
	DBContext *database.DomainDBContext

	BlockHeaderStore model.BlockHeaderStore
	BlockStore       model.BlockStore
	BlockStatusStore model.BlockStatusStore
	ChainStore       model.ChainStore
	AccountStore     model.AccountStore
	TaskStore        model.TaskStore
	WorkStore        model.WorkStore

	BlockValidator         model.BlockValidator
	TransactionValidator   model.TransactionValidator
	DifficultyManager      model.DifficultyManager
	CoinbaseManager        model.CoinbaseManager
	TensorTaskManager      model.TensorTaskManager
	ConsensusStateManager  model.ConsensusStateManager
	BlockBuilder           model.BlockBuilder
}

// New opens (or creates) a store at dbPath and wires every consensus
// process against it. If the store has no tip yet, the caller is
// responsible for calling ConsensusStateManager.ApplyGenesisBlock before
// accepting any other block.
func New(dbPath string) (*Consensus, error) {
	dbContext, err := database.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return newWithDBContext(dbContext), nil
}

// NewInMemory wires a Consensus against an already-open dbContext,
// letting tests substitute a temp-directory store without touching the
// on-disk path a real node would use.
func NewInMemory(dbContext *database.DomainDBContext) *Consensus {
	return newWithDBContext(dbContext)
}

func newWithDBContext(dbContext *database.DomainDBContext) *Consensus {
	blockHeaderStore := blockheaderstore.New()
	blockStore := blockstore.New()
	blockStatusStore := blockstatusstore.New()
	chainStore := chainstore.New()
	accountStore := chainstore.NewAccountStore()
	checkpointStore := chainstore.NewStateCheckpointStore()
	taskStore := taskstore.New()
	workStore := workstore.New()

	transactionValidator := transactionvalidator.New()
	difficultyManagerProc := difficultymanager.New(blockHeaderStore)
	coinbaseManagerProc := coinbasemanager.New()
	tensorTaskManagerProc := tensortaskmanager.New(taskStore)
	blockValidatorProc := blockvalidator.New(blockHeaderStore, difficultyManagerProc, tensorTaskManagerProc, transactionValidator)

	consensusStateManagerProc := consensusstatemanager.New(
		dbContext,
		blockHeaderStore, blockStore, blockStatusStore,
		chainStore, accountStore, taskStore,
		checkpointStore, workStore,
		blockValidatorProc, tensorTaskManagerProc, coinbaseManagerProc, transactionValidator,
	)

	return &Consensus{
		DBContext:             dbContext,
		BlockHeaderStore:      blockHeaderStore,
		BlockStore:            blockStore,
		BlockStatusStore:      blockStatusStore,
		ChainStore:            chainStore,
		AccountStore:          accountStore,
		TaskStore:             taskStore,
		WorkStore:             workStore,
		BlockValidator:        blockValidatorProc,
		TransactionValidator:  transactionValidator,
		DifficultyManager:     difficultyManagerProc,
		CoinbaseManager:       coinbaseManagerProc,
		TensorTaskManager:     tensorTaskManagerProc,
		ConsensusStateManager: consensusStateManagerProc,
	}
}

// EnsureGenesis applies the protocol's fixed genesis block if the store
// has no tip yet, and otherwise verifies the stored genesis matches it,
// returning an error if the block stored at height 0 has another digest.
func (c *Consensus) EnsureGenesis() error {
	hasTip, err := c.ChainStore.HasTip(c.DBContext)
	if err != nil {
		return err
	}
	if hasTip {
		stored, err := c.ChainStore.BlockAtHeight(c.DBContext, 0)
		if err != nil {
			return err
		}
		if !stored.Equal(codec.HeaderHash(chainparams.GenesisBlock().Header)) {
			return errors.Errorf("stored genesis %s does not match the protocol genesis", stored)
		}
		return nil
	}
	return c.ConsensusStateManager.ApplyGenesisBlock(chainparams.GenesisBlock())
}

// WireBlockBuilder finishes wiring BlockBuilder, which needs a mempool and
// claim pool that are constructed after Consensus itself (they depend on
// ConsensusStateManager and TransactionValidator). Kept as a second step
// rather than a constructor parameter so the mempool can in turn depend on
// a fully-formed Consensus without an import cycle.
func (c *Consensus) WireBlockBuilder(mempoolSource blockbuilder.MempoolSource, claimSource blockbuilder.ClaimSource) {
	c.BlockBuilder = blockbuilder.New(&blockbuilder.Config{
		ConsensusStateManager: c.ConsensusStateManager,
		TensorTaskManager:     c.TensorTaskManager,
		CoinbaseManager:       c.CoinbaseManager,
		DifficultyManager:     c.DifficultyManager,
		Mempool:               mempoolSource,
		ClaimPool:             claimSource,
		DBReader:              c.DBContext,
	})
}

// Close closes the underlying store.
func (c *Consensus) Close() error {
	return c.DBContext.Close()
}
