package consensusstatemanager

import (
	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/domain/consensus/model"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
)

// snapshotCheckpoint records the account table and full task table as of
// blockHash, which must already be the committed, active-chain state (this
// is called after the batch that produced it commits, not staged inside
// it, since checkpointing needs to enumerate every row and a staged write
// is not visible to a cursor scan over the underlying context).
func (csm *consensusStateManager) snapshotCheckpoint(blockHash *externalapi.DomainHash) error {
	accounts, err := csm.accountStore.All(csm.dbContext)
	if err != nil {
		return errors.Wrap(err, "failed to enumerate accounts for checkpoint")
	}
	tasks, err := csm.taskStore.All(csm.dbContext)
	if err != nil {
		return errors.Wrap(err, "failed to enumerate tasks for checkpoint")
	}
	if err := csm.checkpointStore.Put(csm.dbContext, blockHash, accounts, tasks); err != nil {
		return errors.Wrapf(err, "failed to store checkpoint at %s", blockHash)
	}
	return nil
}

// findCommonAncestor walks newTipHash's chain backward via parent pointers
// until it reaches a block that is also on the currently active chain
// (i.e. indexed at its own height)'s single-parent fork
// choice. It returns that ancestor's digest and height, plus the new
// branch's blocks above it in application order (oldest first).
func (csm *consensusStateManager) findCommonAncestor(newTipHash *externalapi.DomainHash) (
	ancestorHash *externalapi.DomainHash, ancestorHeight uint64, newBranch []*externalapi.DomainHash, err error) {

	current := newTipHash
	for {
		header, err := csm.blockHeaderStore.BlockHeader(csm.dbContext, current)
		if err != nil {
			return nil, 0, nil, errors.Wrapf(err, "failed to load header %s while finding common ancestor", current)
		}
		activeHash, activeErr := csm.chainStore.BlockAtHeight(csm.dbContext, header.Height)
		if activeErr == nil && activeHash.Equal(current) {
			return current, header.Height, newBranch, nil
		}
		newBranch = append([]*externalapi.DomainHash{current}, newBranch...)
		if header.Height == 0 {
			return nil, 0, nil, errors.Errorf("no common ancestor found back to genesis %s", current)
		}
		current = header.ParentHash
	}
}

// nearestCheckpoint walks back from fromHash (inclusive) via parent
// pointers to the closest block with a stored state checkpoint. Genesis
// always has one (ApplyGenesisBlock snapshots it), so this always
// terminates.
func (csm *consensusStateManager) nearestCheckpoint(fromHash *externalapi.DomainHash) (
	checkpointHash *externalapi.DomainHash, accounts map[string]*externalapi.AccountState,
	tasks []*externalapi.DomainTensorTask, height uint64, err error) {

	current := fromHash
	for {
		accounts, tasks, found, err := csm.checkpointStore.Get(csm.dbContext, current)
		if err != nil {
			return nil, nil, nil, 0, errors.Wrapf(err, "failed to load checkpoint at %s", current)
		}
		header, headerErr := csm.blockHeaderStore.BlockHeader(csm.dbContext, current)
		if headerErr != nil {
			return nil, nil, nil, 0, errors.Wrapf(headerErr, "failed to load header %s while seeking checkpoint", current)
		}
		if found {
			return current, accounts, tasks, header.Height, nil
		}
		if header.Height == 0 {
			return nil, nil, nil, 0, errors.New("no state checkpoint found back to genesis")
		}
		current = header.ParentHash
	}
}

// collectReplayPath returns the blocks strictly above checkpointHeight and
// at or below ancestorHeight, in application order. These are shared
// history between the old and new chains (both descend from ancestorHash),
// so their hashes come from the still-untouched active-chain height index.
func (csm *consensusStateManager) collectReplayPath(checkpointHeight, ancestorHeight uint64) ([]*externalapi.DomainHash, error) {
	if checkpointHeight >= ancestorHeight {
		return nil, nil
	}
	path := make([]*externalapi.DomainHash, 0, ancestorHeight-checkpointHeight)
	for h := checkpointHeight + 1; h <= ancestorHeight; h++ {
		hash, err := csm.chainStore.BlockAtHeight(csm.dbContext, h)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load shared-history block at height %d", h)
		}
		path = append(path, hash)
	}
	return path, nil
}

// restoreCheckpointState resets every currently known account and task to
// checkpointAccounts/checkpointTasks, clearing anything the checkpoint
// doesn't mention rather than leaving it at its still-staged, soon-to-be-
// stale value.
func (csm *consensusStateManager) restoreCheckpointState(writer model.DBWriter,
	checkpointAccounts map[string]*externalapi.AccountState, checkpointTasks []*externalapi.DomainTensorTask) error {

	currentAccounts, err := csm.accountStore.All(csm.dbContext)
	if err != nil {
		return errors.Wrap(err, "failed to enumerate current accounts for reorg reset")
	}
	for address := range currentAccounts {
		if _, ok := checkpointAccounts[address]; ok {
			continue
		}
		if err := csm.accountStore.Set(writer, externalapi.DomainAddress(address), &externalapi.AccountState{}); err != nil {
			return errors.Wrapf(err, "failed to zero stale account %x", []byte(address))
		}
	}
	for address, state := range checkpointAccounts {
		if err := csm.accountStore.Set(writer, externalapi.DomainAddress(address), state); err != nil {
			return errors.Wrapf(err, "failed to restore account %x", []byte(address))
		}
	}

	currentTasks, err := csm.taskStore.All(csm.dbContext)
	if err != nil {
		return errors.Wrap(err, "failed to enumerate current tasks for reorg reset")
	}
	keep := make(map[externalapi.DomainTaskID]bool, len(checkpointTasks))
	for _, task := range checkpointTasks {
		keep[*task.TaskID] = true
	}
	for _, task := range currentTasks {
		if keep[*task.TaskID] {
			continue
		}
		if err := csm.taskStore.Delete(writer, task.TaskID); err != nil {
			return errors.Wrapf(err, "failed to clear stale task %s", task.TaskID)
		}
	}
	for _, task := range checkpointTasks {
		if err := csm.taskStore.Put(writer, task); err != nil {
			return errors.Wrapf(err, "failed to restore task %s", task.TaskID)
		}
	}
	return nil
}

// reorganize switches the active chain onto newTipHash, whose cumulative
// work has already been confirmed to exceed the current tip's. It resets
// state to the nearest checkpoint at or before the fork point and
// forward-replays every block from there through the new tip, one atomic
// commit per block's worth of staged effects plus the chain-pointer
// updates's single-parent, highest-cumulative-work fork
// choice.
func (csm *consensusStateManager) reorganize(newTipHash *externalapi.DomainHash, newTipHeader *externalapi.DomainBlockHeader) (*model.ChainUpdate, error) {
	ancestorHash, ancestorHeight, newBranch, err := csm.findCommonAncestor(newTipHash)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find common ancestor for reorg")
	}

	oldTip, oldTipHeight, err := csm.Tip(csm.dbContext)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load active tip for reorg")
	}
	_ = oldTip

	var removedHashes []*externalapi.DomainHash
	var removedTxs []*externalapi.DomainTransaction
	for h := oldTipHeight; h > ancestorHeight; h-- {
		hash, err := csm.chainStore.BlockAtHeight(csm.dbContext, h)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load removed block at height %d", h)
		}
		removedHashes = append(removedHashes, hash)
		block, err := csm.blockStore.Block(csm.dbContext, hash)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load removed block body %s", hash)
		}
		removedTxs = append(removedTxs, block.Transactions[1:]...)
	}

	checkpointHash, checkpointAccounts, checkpointTasks, checkpointHeight, err := csm.nearestCheckpoint(ancestorHash)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find checkpoint for reorg replay")
	}
	_ = checkpointHash

	sharedReplay, err := csm.collectReplayPath(checkpointHeight, ancestorHeight)
	if err != nil {
		return nil, err
	}
	replayPath := append(sharedReplay, newBranch...)

	// The checkpoint restore and each replayed block are committed as
	// separate atomic batches rather than one spanning the whole reorg: a
	// staged-but-uncommitted write in a batch is not visible to a later
	// Get against that same batch's writer (see database.stagingWriter),
	// so a single batch cannot safely carry the sequentially-dependent
	// reads and writes of restore-then-replay-many-blocks.
	restoreBatch := csm.dbContext.NewStagingBatch()
	restoreWriter := csm.dbContext.StagingWriter(restoreBatch)
	if err := csm.restoreCheckpointState(restoreWriter, checkpointAccounts, checkpointTasks); err != nil {
		return nil, err
	}
	if err := csm.dbContext.Commit(restoreBatch); err != nil {
		return nil, errors.Wrap(err, "failed to commit checkpoint restore")
	}

	addedTxIDs := make(map[externalapi.DomainTransactionID]bool)
	for _, hash := range replayPath {
		block, err := csm.blockStore.Block(csm.dbContext, hash)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load block %s for reorg replay", hash)
		}
		blockBatch := csm.dbContext.NewStagingBatch()
		blockWriter := csm.dbContext.StagingWriter(blockBatch)
		if err := csm.applyBlock(blockWriter, hash, block); err != nil {
			return nil, errors.Wrapf(err, "failed to replay block %s during reorg", hash)
		}
		if err := csm.chainStore.SetBlockAtHeight(blockWriter, block.Header.Height, hash); err != nil {
			return nil, errors.Wrapf(err, "failed to index replayed block %s", hash)
		}
		if err := csm.dbContext.Commit(blockBatch); err != nil {
			return nil, errors.Wrapf(err, "failed to commit replayed block %s", hash)
		}
		for _, tx := range block.Transactions[1:] {
			addedTxIDs[*tx.ID] = true
		}
	}

	tipBatch := csm.dbContext.NewStagingBatch()
	tipWriter := csm.dbContext.StagingWriter(tipBatch)
	for h := newTipHeader.Height + 1; h <= oldTipHeight; h++ {
		if err := csm.chainStore.DeleteBlockAtHeight(tipWriter, h); err != nil {
			return nil, errors.Wrapf(err, "failed to clear stale height index at %d", h)
		}
	}
	if err := csm.chainStore.SetTip(tipWriter, newTipHash); err != nil {
		return nil, errors.Wrap(err, "failed to set new tip")
	}
	if err := csm.dbContext.Commit(tipBatch); err != nil {
		return nil, errors.Wrap(err, "failed to commit new tip pointer")
	}

	if newTipHeader.Height%csm.checkpointInterval == 0 {
		if err := csm.snapshotCheckpoint(newTipHash); err != nil {
			return nil, err
		}
	}

	var rescued []*externalapi.DomainTransaction
	for _, tx := range removedTxs {
		if addedTxIDs[*tx.ID] {
			continue
		}
		senderState, err := csm.accountStore.Get(csm.dbContext, tx.Sender)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load sender state to rescue transaction %s", tx.ID)
		}
		if err := csm.transactionValidator.ValidateInContext(tx, senderState); err != nil {
			continue
		}
		rescued = append(rescued, tx)
	}

	return &model.ChainUpdate{
		RemovedChainBlockHashes: removedHashes,
		AddedChainBlockHashes:   newBranch,
		RescuedTransactions:     rescued,
	}, nil
}
