// Package consensusstatemanager implements model.ConsensusStateManager:
// applying a validated block's effects to account and task state, and
// reorganizing the active chain when a side branch overtakes it in
// cumulative work. There is no equivalent kaspad package for
// this concern under the balance model - kaspad's consensusstatemanager
// drives UTXO diffs and GHOSTDAG virtual-selection, neither of which
// applies to a single-parent, account-based chain - but the struct-of-
// dependencies-plus-New(...) shape and the one-file-per-concern layout
// follow it directly.
package consensusstatemanager

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/codec"
	"github.com/tensorchain/tensorchain/domain/chainparams"
	"github.com/tensorchain/tensorchain/domain/consensus/database"
	"github.com/tensorchain/tensorchain/domain/consensus/model"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/domain/consensus/ruleerrors"
	"github.com/tensorchain/tensorchain/domain/consensus/utils/difficulty"
)

type consensusStateManager struct {
	dbContext *database.DomainDBContext

	blockHeaderStore model.BlockHeaderStore
	blockStore       model.BlockStore
	blockStatusStore model.BlockStatusStore
	chainStore       model.ChainStore
	accountStore     model.AccountStore
	taskStore        model.TaskStore
	checkpointStore  model.StateCheckpointStore
	workStore        model.WorkStore

	blockValidator       model.BlockValidator
	tensorTaskManager    model.TensorTaskManager
	coinbaseManager      model.CoinbaseManager
	transactionValidator model.TransactionValidator

	checkpointInterval uint64
}

// New instantiates a new ConsensusStateManager.
func New(dbContext *database.DomainDBContext,
	blockHeaderStore model.BlockHeaderStore, blockStore model.BlockStore, blockStatusStore model.BlockStatusStore,
	chainStore model.ChainStore, accountStore model.AccountStore, taskStore model.TaskStore,
	checkpointStore model.StateCheckpointStore, workStore model.WorkStore,
	blockValidator model.BlockValidator, tensorTaskManager model.TensorTaskManager,
	coinbaseManager model.CoinbaseManager, transactionValidator model.TransactionValidator) model.ConsensusStateManager {

	return &consensusStateManager{
		dbContext:            dbContext,
		blockHeaderStore:     blockHeaderStore,
		blockStore:           blockStore,
		blockStatusStore:     blockStatusStore,
		chainStore:           chainStore,
		accountStore:         accountStore,
		taskStore:            taskStore,
		checkpointStore:      checkpointStore,
		workStore:            workStore,
		blockValidator:       blockValidator,
		tensorTaskManager:    tensorTaskManager,
		coinbaseManager:      coinbaseManager,
		transactionValidator: transactionValidator,
		checkpointInterval:   chainparams.StateCheckpointInterval,
	}
}

// ApplyGenesisBlock bootstraps an empty store with block: no parent
// linkage, no required-difficulty check, and a coinbase that mints the
// fixed genesis allocation rather than a subsidy+fees+rewards amount.
func (csm *consensusStateManager) ApplyGenesisBlock(block *externalapi.DomainBlock) error {
	if err := csm.blockValidator.ValidateHeaderInIsolation(block.Header); err != nil {
		return errors.Wrap(err, "genesis header failed isolation checks")
	}
	if err := csm.blockValidator.ValidateBodyInIsolation(block); err != nil {
		return errors.Wrap(err, "genesis body failed isolation checks")
	}

	blockHash := codec.HeaderHash(block.Header)
	batch := csm.dbContext.NewStagingBatch()
	writer := csm.dbContext.StagingWriter(batch)

	for _, tx := range block.Transactions {
		recipientState, err := csm.accountStore.Get(writer, tx.Recipient)
		if err != nil {
			return errors.Wrap(err, "failed to load genesis recipient state")
		}
		recipientState.Balance += tx.Amount
		if err := csm.accountStore.Set(writer, tx.Recipient, recipientState); err != nil {
			return errors.Wrap(err, "failed to credit genesis recipient")
		}
	}

	if err := csm.persistAcceptedBlock(writer, blockHash, block, externalapi.StatusValid); err != nil {
		return err
	}
	if err := csm.workStore.Put(writer, blockHash, difficulty.CalcWork(block.Header.Bits)); err != nil {
		return errors.Wrap(err, "failed to record genesis work")
	}
	if err := csm.chainStore.SetTip(writer, blockHash); err != nil {
		return errors.Wrap(err, "failed to set genesis tip")
	}

	if err := csm.dbContext.Commit(batch); err != nil {
		return err
	}
	return csm.snapshotCheckpoint(blockHash)
}

// AddBlock validates newBlock, then either applies it directly (if it
// extends the current tip) or stores it as a side-branch candidate and
// reorganizes onto it when its cumulative work overtakes the active
// chain's
func (csm *consensusStateManager) AddBlock(block *externalapi.DomainBlock) (*model.ChainUpdate, error) {
	header := block.Header
	blockHash := codec.HeaderHash(header)

	if known, err := csm.blockStatusStore.Exists(csm.dbContext, blockHash); err != nil {
		return nil, errors.Wrap(err, "failed to check known block status")
	} else if known {
		status, err := csm.blockStatusStore.Get(csm.dbContext, blockHash)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load known block status")
		}
		if status == externalapi.StatusInvalid {
			return nil, ruleerrors.New(ruleerrors.ErrBadParentLinkage, "block %s is already known invalid", blockHash)
		}
		return &model.ChainUpdate{}, nil
	}

	if err := csm.blockValidator.ValidateHeaderInIsolation(header); err != nil {
		return nil, err
	}
	if err := csm.blockValidator.ValidateBodyInIsolation(block); err != nil {
		return nil, err
	}
	if err := csm.blockValidator.ValidateHeaderInContext(csm.dbContext, header); err != nil {
		if ruleerrors.IsUnknownParent(err) {
			return nil, err
		}
		if markErr := csm.blockStatusStore.Put(csm.dbContext, blockHash, externalapi.StatusInvalid); markErr != nil {
			return nil, errors.Wrap(markErr, "failed to mark block invalid")
		}
		return nil, err
	}

	parentWork, err := csm.workStore.Get(csm.dbContext, header.ParentHash)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load parent work for %s", header.ParentHash)
	}
	blockWork := cumulativeWork(parentWork, header.Bits)

	tip, _, err := csm.Tip(csm.dbContext)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load current tip")
	}

	batch := csm.dbContext.NewStagingBatch()
	writer := csm.dbContext.StagingWriter(batch)
	if err := csm.blockStore.Put(writer, blockHash, block); err != nil {
		return nil, errors.Wrap(err, "failed to store block body")
	}
	if err := csm.blockHeaderStore.Put(writer, blockHash, header); err != nil {
		return nil, errors.Wrap(err, "failed to store block header")
	}
	if err := csm.workStore.Put(writer, blockHash, blockWork); err != nil {
		return nil, errors.Wrap(err, "failed to store block work")
	}

	if header.ParentHash.Equal(tip) {
		if err := csm.applyBlock(writer, blockHash, block); err != nil {
			if markErr := csm.blockStatusStore.Put(csm.dbContext, blockHash, externalapi.StatusInvalid); markErr != nil {
				return nil, errors.Wrap(markErr, "failed to mark block invalid")
			}
			return nil, err
		}
		if err := csm.blockStatusStore.Put(writer, blockHash, externalapi.StatusValid); err != nil {
			return nil, errors.Wrap(err, "failed to mark block valid")
		}
		if err := csm.chainStore.SetBlockAtHeight(writer, header.Height, blockHash); err != nil {
			return nil, errors.Wrap(err, "failed to index block height")
		}
		if err := csm.chainStore.SetTip(writer, blockHash); err != nil {
			return nil, errors.Wrap(err, "failed to update tip")
		}
		if err := csm.dbContext.Commit(batch); err != nil {
			return nil, errors.Wrap(err, "failed to commit block application")
		}
		if header.Height%csm.checkpointInterval == 0 {
			if err := csm.snapshotCheckpoint(blockHash); err != nil {
				return nil, err
			}
		}
		return &model.ChainUpdate{AddedChainBlockHashes: []*externalapi.DomainHash{blockHash}}, nil
	}

	// Side branch: park it as structurally valid without applying its
	// effects, then decide whether it overtakes the active tip. An exact
	// work tie is broken by the lower header digest so independent nodes
	// that saw the two competing blocks in opposite order still converge.
	if err := csm.blockStatusStore.Put(writer, blockHash, externalapi.StatusValid); err != nil {
		return nil, errors.Wrap(err, "failed to mark side branch block valid")
	}
	if err := csm.dbContext.Commit(batch); err != nil {
		return nil, errors.Wrap(err, "failed to commit side branch block")
	}

	tipWork, err := csm.workStore.Get(csm.dbContext, tip)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tip work")
	}
	if cmp := blockWork.Cmp(tipWork); cmp < 0 || (cmp == 0 && !blockHash.Less(tip)) {
		return &model.ChainUpdate{}, nil
	}

	return csm.reorganize(blockHash, header)
}

// AccountState returns address's confirmed balance and nonce.
func (csm *consensusStateManager) AccountState(dbContext model.DBReader, address externalapi.DomainAddress) (*externalapi.AccountState, error) {
	return csm.accountStore.Get(dbContext, address)
}

// Tip returns the active chain's tip digest and height.
func (csm *consensusStateManager) Tip(dbContext model.DBReader) (*externalapi.DomainHash, uint64, error) {
	tip, err := csm.chainStore.Tip(dbContext)
	if err != nil {
		return nil, 0, err
	}
	header, err := csm.blockHeaderStore.BlockHeader(dbContext, tip)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "failed to load tip header %s", tip)
	}
	return tip, header.Height, nil
}

// persistAcceptedBlock stages the body, header, and status records common
// to both the genesis bootstrap path and an ordinary tip extension.
func (csm *consensusStateManager) persistAcceptedBlock(writer model.DBWriter, blockHash *externalapi.DomainHash,
	block *externalapi.DomainBlock, status externalapi.BlockStatus) error {

	if err := csm.blockStore.Put(writer, blockHash, block); err != nil {
		return errors.Wrap(err, "failed to store block body")
	}
	if err := csm.blockHeaderStore.Put(writer, blockHash, block.Header); err != nil {
		return errors.Wrap(err, "failed to store block header")
	}
	if err := csm.blockStatusStore.Put(writer, blockHash, status); err != nil {
		return errors.Wrap(err, "failed to store block status")
	}
	if err := csm.chainStore.SetBlockAtHeight(writer, block.Header.Height, blockHash); err != nil {
		return errors.Wrap(err, "failed to index block height")
	}
	return nil
}

// cumulativeWork returns parentWork plus the work a block with bits
// contributes.
func cumulativeWork(parentWork *big.Int, bits uint32) *big.Int {
	return new(big.Int).Add(parentWork, difficulty.CalcWork(bits))
}
