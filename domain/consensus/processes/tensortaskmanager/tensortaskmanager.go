// Package tensortaskmanager implements model.TensorTaskManager: the
// lifecycle of tensor computation tasks and verification of claimed
// solutions against the deterministic reference evaluators in
// domain/consensus/utils/tensor. There is no equivalent kaspad
// package for this concern; the struct-plus-New(store) shape follows
// kaspad's other process packages (e.g. coinbasemanager) that wrap a
// single datastructure.
package tensortaskmanager

import (
	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/codec"
	"github.com/tensorchain/tensorchain/domain/chainparams"
	"github.com/tensorchain/tensorchain/domain/consensus/model"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/domain/consensus/ruleerrors"
	"github.com/tensorchain/tensorchain/domain/consensus/utils/tensor"
)

type tensorTaskManager struct {
	taskStore model.TaskStore

	maxClaimsPerBlock int
}

// New instantiates a new TensorTaskManager.
func New(taskStore model.TaskStore) model.TensorTaskManager {
	return &tensorTaskManager{
		taskStore:         taskStore,
		maxClaimsPerBlock: chainparams.MaxTaskClaimsPerBlock,
	}
}

// CreateTask registers a newly announced task as open.
func (tm *tensorTaskManager) CreateTask(dbContext model.DBWriter, task *externalapi.DomainTensorTask) error {
	if task.TaskID == nil {
		id := codec.TaskID(task)
		task.TaskID = &id
	}
	exists, err := tm.taskStore.Has(dbContext, task.TaskID)
	if err != nil {
		return errors.Wrapf(err, "failed to check for existing task %s", task.TaskID)
	}
	if exists {
		return ruleerrors.New(ruleerrors.ErrDuplicateTaskCreation, "task %s", task.TaskID)
	}
	task.State = externalapi.TaskStateOpen
	return tm.taskStore.Put(dbContext, task)
}

// VerifyClaim recomputes task's reference operation and reports whether
// claim.Output (and, transitively, claim.OutputHash) matches. A task with
// a non-nil ExpectedOutputHash is checked against that digest directly
// without needing the claim to carry a full tensor at all, letting large
// outputs be claimed by hash alone.
func (tm *tensorTaskManager) VerifyClaim(task *externalapi.DomainTensorTask, claim *externalapi.DomainTaskClaim) (bool, error) {
	if !(*externalapi.DomainHash)(claim.TaskID).Equal((*externalapi.DomainHash)(task.TaskID)) {
		return false, ruleerrors.New(ruleerrors.ErrClaimTaskMismatch, "claim for %s against task %s", claim.TaskID, task.TaskID)
	}

	reference, err := tensor.Evaluate(task)
	if err != nil {
		return false, errors.Wrap(err, "failed to evaluate reference output")
	}
	referenceHash := codec.HashTensor(reference)

	if task.ExpectedOutputHash != nil {
		if !referenceHash.Equal(task.ExpectedOutputHash) {
			return false, errors.New("task's expected output hash does not match its own reference evaluation")
		}
		return claim.OutputHash.Equal(task.ExpectedOutputHash), nil
	}

	if claim.Output == nil {
		return false, nil
	}
	if !tensor.Equal(reference, claim.Output) {
		return false, nil
	}
	return claim.OutputHash.Equal(&referenceHash), nil
}

// FinalizeClaims selects the first valid claim per task among claims for
// tasks still open as of dbContext's state, in list order (earliest claim
// wins creator priority), and sums their rewards and difficulty
// reductions. Claims for unknown, non-open, or already-claimed-in-this-
// batch tasks are skipped rather than rejecting the whole block, since a
// miner may have included a stale claim in good faith; the block is only
// invalid if none of its claims can be finalized while claiming
// otherwise in its advertised totals (checked by the caller against
// CoinbaseManager).
func (tm *tensorTaskManager) FinalizeClaims(dbContext model.DBReader, claims []*externalapi.DomainTaskClaim) (uint64, uint64, error) {
	selected, rewardTotal, reductionNumerator, err := tm.selectFinalizedClaims(dbContext, claims)
	if err != nil {
		return 0, 0, err
	}
	_ = selected
	return rewardTotal, reductionNumerator, nil
}

// ApplyClaims performs the same selection as FinalizeClaims but also marks
// every selected task Finalized, the commit side run once per block at
// application time rather than during block-template assembly.
func (tm *tensorTaskManager) ApplyClaims(dbContext model.DBWriter, claims []*externalapi.DomainTaskClaim) (uint64, uint64, error) {
	selected, rewardTotal, reductionNumerator, err := tm.selectFinalizedClaims(dbContext, claims)
	if err != nil {
		return 0, 0, err
	}
	for _, task := range selected {
		task.State = externalapi.TaskStateFinalized
		if err := tm.taskStore.Put(dbContext, task); err != nil {
			return 0, 0, errors.Wrapf(err, "failed to finalize task %s", task.TaskID)
		}
	}
	return rewardTotal, reductionNumerator, nil
}

func (tm *tensorTaskManager) selectFinalizedClaims(dbContext model.DBReader, claims []*externalapi.DomainTaskClaim) (
	[]*externalapi.DomainTensorTask, uint64, uint64, error) {

	var rewardTotal uint64
	var reductionNumerator uint64
	var selected []*externalapi.DomainTensorTask
	finalized := make(map[externalapi.DomainTaskID]bool)

	for _, claim := range claims {
		if finalized[*claim.TaskID] {
			continue
		}

		task, err := tm.taskStore.Get(dbContext, claim.TaskID)
		if err != nil {
			continue
		}
		if task.State != externalapi.TaskStateOpen && task.State != externalapi.TaskStateClaimed {
			continue
		}

		ok, err := tm.VerifyClaim(task, claim)
		if err != nil {
			return nil, 0, 0, errors.Wrapf(err, "failed to verify claim for task %s", claim.TaskID)
		}
		if !ok {
			continue
		}

		finalized[*claim.TaskID] = true
		rewardTotal += task.RewardAmount
		reductionNumerator += task.DifficultyReductionNumerator
		selected = append(selected, task)
	}

	if reductionNumerator > externalapi.DifficultyReductionDenominator {
		reductionNumerator = externalapi.DifficultyReductionDenominator
	}

	return selected, rewardTotal, reductionNumerator, nil
}

// ExpireTasks marks every open task whose deadline height has been
// reached (DeadlineHeight <= height) as expired and returns the tasks it expired, so the caller can refund
// each one's escrowed bounty to its creator.
func (tm *tensorTaskManager) ExpireTasks(dbContext model.DBWriter, height uint64) ([]*externalapi.DomainTensorTask, error) {
	open, err := tm.taskStore.AllOpen(dbContext)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list open tasks")
	}
	var expired []*externalapi.DomainTensorTask
	for _, task := range open {
		if task.DeadlineHeight > height {
			continue
		}
		task.State = externalapi.TaskStateExpired
		if err := tm.taskStore.Put(dbContext, task); err != nil {
			return nil, errors.Wrapf(err, "failed to expire task %s", task.TaskID)
		}
		expired = append(expired, task)
	}
	return expired, nil
}
