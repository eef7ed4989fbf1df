// Package mining holds the miner-side machinery the node orchestrator does
// not itself need: a pool of candidate tensor-task claims gossiped in by
// peers or produced locally, and a cancellable header-nonce search. There
// is no equivalent kaspad package for either concern - kaspad's domain/mining
// package solves a materially different problem (coinbase flags, merged
// mining extra nonce) - so both follow the smaller shape of kaspad's
// process packages: ClaimPool is a struct wrapping a mutex-guarded map,
// constructed with NewClaimPool, and Search is a plain function.
package mining

import (
	"sync"

	"github.com/tensorchain/tensorchain/domain/consensus/model"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
)

// ClaimPool holds the best known claim per tensor task, keyed by task ID.
// "Best" is simply "first seen" (the creator-priority-by-earliest-claim
// rule applies at finalization time, over whichever claims made it into a
// block template); the pool itself keeps only one candidate per task to
// bound memory and never replaces it: a later claim for the same task is
// refused while one is pooled.
type ClaimPool struct {
	mu     sync.RWMutex
	claims map[externalapi.DomainTaskID]*externalapi.DomainTaskClaim

	taskStore model.TaskStore
}

// NewClaimPool constructs an empty ClaimPool. taskStore is used to confirm
// a task is still open before admitting a claim for it.
func NewClaimPool(taskStore model.TaskStore) *ClaimPool {
	return &ClaimPool{
		claims:    make(map[externalapi.DomainTaskID]*externalapi.DomainTaskClaim),
		taskStore: taskStore,
	}
}

// AddClaim admits claim only if verified is true (meaning the caller has
// already checked the claim against the reference evaluator), its task is
// open (or already claimed, pending finalization), and no candidate is
// already pooled for it.
func (cp *ClaimPool) AddClaim(dbContext model.DBReader, claim *externalapi.DomainTaskClaim, verified bool) (bool, error) {
	if !verified {
		return false, nil
	}

	task, err := cp.taskStore.Get(dbContext, claim.TaskID)
	if err != nil {
		return false, nil
	}
	if task.State != externalapi.TaskStateOpen && task.State != externalapi.TaskStateClaimed {
		return false, nil
	}

	cp.mu.Lock()
	defer cp.mu.Unlock()
	if _, ok := cp.claims[*claim.TaskID]; ok {
		return false, nil
	}
	cp.claims[*claim.TaskID] = claim
	return true, nil
}

// PendingClaims returns up to maxCount pooled claims, in map iteration
// order (no cross-task priority is defined beyond what FinalizeClaims
// itself resolves at template-assembly time).
func (cp *ClaimPool) PendingClaims(maxCount int) []*externalapi.DomainTaskClaim {
	cp.mu.RLock()
	defer cp.mu.RUnlock()

	claims := make([]*externalapi.DomainTaskClaim, 0, maxCount)
	for _, claim := range cp.claims {
		if len(claims) >= maxCount {
			break
		}
		claims = append(claims, claim)
	}
	return claims
}

// RemoveClaim drops taskID's pooled claim. Nothing in this repository
// calls it when a task finalizes or expires.
func (cp *ClaimPool) RemoveClaim(taskID *externalapi.DomainTaskID) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	delete(cp.claims, *taskID)
}
