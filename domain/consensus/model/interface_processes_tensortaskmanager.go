package model

import "github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"

// TensorTaskManager tracks the lifecycle of tensor-computation tasks
// (open -> claimed -> finalized/expired) and verifies claimed solutions
// against the deterministic reference evaluators
type TensorTaskManager interface {
	// CreateTask registers a newly announced task as open.
	CreateTask(dbContext DBWriter, task *externalapi.DomainTensorTask) error
	// VerifyClaim recomputes the task's reference operation over the
	// claimed inputs and reports whether claim.Output matches.
	VerifyClaim(task *externalapi.DomainTensorTask, claim *externalapi.DomainTaskClaim) (bool, error)
	// FinalizeClaims previews, among a block's claims for tasks still
	// open as of the parent tip, the first valid claim per task (creator
	// priority by earliest claim), and returns the reward due and the
	// resulting effective-target reduction, without mutating task state.
	// The miner uses this to decide which claims are worth including;
	// ApplyClaims performs the same selection and commits it.
	FinalizeClaims(dbContext DBReader, claims []*externalapi.DomainTaskClaim) (rewardTotal uint64, reductionNumerator uint64, err error)
	// ApplyClaims performs FinalizeClaims' selection and marks every
	// selected task Finalized, run once per block at application time.
	ApplyClaims(dbContext DBWriter, claims []*externalapi.DomainTaskClaim) (rewardTotal uint64, reductionNumerator uint64, err error)
	// ExpireTasks marks tasks whose deadline height has passed without a
	// finalized claim as expired and returns them, so the caller can
	// refund each one's posted bounty to its creator.
	ExpireTasks(dbContext DBWriter, height uint64) ([]*externalapi.DomainTensorTask, error)
}
