// Package app is the node orchestrator: the single writer
// of chain state, mempool, and task table. Every state-changing request
// — an inbound block, a transaction, a tensor-task claim — is serialized
// through one goroutine's command queue; readers call straight through to
// the underlying stores, which tolerate concurrent reads. There is no
// single kaspad package matching this shape (kaspad's chain state
// is owned by its own consensus package directly, without an outer
// orchestrator actor) so this is grounded on the broader single-writer
// actor idiom kaspad's processManager/domain split imply, named
// and scoped to match the orchestrator role directly.
package app

import (
	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/app/appmessage"
	"github.com/tensorchain/tensorchain/domain/consensus"
	"github.com/tensorchain/tensorchain/domain/consensus/model"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/domain/mempool"
	"github.com/tensorchain/tensorchain/domain/mining"
	"github.com/tensorchain/tensorchain/logger"
)

var log = logger.Get(logger.TagNode)

// Broadcaster fans out newly accepted items to connected peers, minus
// whichever peer supplied them. Domain depends only on this narrow
// interface so the protocol layer, which constructs the concrete
// broadcaster, can depend on Domain without an import cycle back into
// this package.
type Broadcaster interface {
	BroadcastBlock(hash *externalapi.DomainHash, excludeFrom interface{})
	BroadcastTransaction(id externalapi.DomainTransactionID, excludeFrom interface{})
	BroadcastTask(taskID *externalapi.DomainTaskID, excludeFrom interface{})
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastBlock(*externalapi.DomainHash, interface{})                {}
func (noopBroadcaster) BroadcastTransaction(externalapi.DomainTransactionID, interface{}) {}
func (noopBroadcaster) BroadcastTask(*externalapi.DomainTaskID, interface{})               {}

// Domain is the node's single-writer actor.
type Domain struct {
	Consensus *consensus.Consensus
	Mempool   *mempool.Mempool
	ClaimPool *mining.ClaimPool

	broadcaster Broadcaster
	commands    chan func()
	done        chan struct{}
}

// New wires a Domain around an already-constructed Consensus, building
// its Mempool and ClaimPool and finishing the Consensus's BlockBuilder
// wiring against them.
func New(cs *consensus.Consensus, mempoolMaxBytes int) *Domain {
	claimPool := mining.NewClaimPool(cs.TaskStore)
	pool := mempool.New(&mempool.Config{
		MaxBytes:              mempoolMaxBytes,
		ConsensusStateManager: cs.ConsensusStateManager,
		TransactionValidator:  cs.TransactionValidator,
		DBReader:              cs.DBContext,
	})
	cs.WireBlockBuilder(pool, claimPool)

	return &Domain{
		Consensus:   cs,
		Mempool:     pool,
		ClaimPool:   claimPool,
		broadcaster: noopBroadcaster{},
		commands:    make(chan func(), 256),
		done:        make(chan struct{}),
	}
}

// SetBroadcaster installs the protocol layer's fan-out implementation.
// Called once during node startup before Start.
func (d *Domain) SetBroadcaster(b Broadcaster) { d.broadcaster = b }

// Start runs the command-processing loop until Stop is called. Must run
// in its own goroutine.
func (d *Domain) Start() {
	for {
		select {
		case cmd := <-d.commands:
			cmd()
		case <-d.done:
			return
		}
	}
}

// Stop ends the command loop.
func (d *Domain) Stop() { close(d.done) }

// run submits fn to the command queue and blocks until it has executed,
// giving every exported method below serialized, single-writer semantics
// regardless of which goroutine calls it.
func (d *Domain) run(fn func()) {
	result := make(chan struct{})
	d.commands <- func() {
		fn()
		close(result)
	}
	<-result
}

// SubmitBlock validates and applies block against the current tip
// (reorganizing if it extends a heavier chain), rescues any displaced
// mempool transactions, and broadcasts the new block to peers other than
// excludeFrom on success.
func (d *Domain) SubmitBlock(block *externalapi.DomainBlock, excludeFrom interface{}) (*model.ChainUpdate, error) {
	var update *model.ChainUpdate
	var err error
	d.run(func() {
		update, err = d.Consensus.ConsensusStateManager.AddBlock(block)
		if err != nil {
			log.Debugf("rejected block: %s", err)
			return
		}
		d.Mempool.HandleNewTip()
		if len(update.RescuedTransactions) > 0 {
			d.Mempool.RescueTransactions(update.RescuedTransactions)
		}
	})
	if err != nil {
		return nil, err
	}
	hash := update.AddedChainBlockHashes[len(update.AddedChainBlockHashes)-1]
	d.broadcaster.BroadcastBlock(hash, excludeFrom)
	return update, nil
}

// SubmitTransaction admits tx to the mempool and, on success, announces it
// to peers other than excludeFrom.
func (d *Domain) SubmitTransaction(tx *externalapi.DomainTransaction, excludeFrom interface{}) error {
	var err error
	d.run(func() {
		err = d.Mempool.AddTransaction(tx)
	})
	if err != nil {
		return err
	}
	d.broadcaster.BroadcastTransaction(*tx.ID, excludeFrom)
	return nil
}

// SubmitClaim verifies claim against its referenced task and, if valid,
// pools it as a mining candidate and reports SolutionAccepted-worthy
// success; otherwise it reports the reason a miner should stop wasting
// work on it.
func (d *Domain) SubmitClaim(claim *externalapi.DomainTaskClaim, excludeFrom interface{}) (bool, appmessage.SolutionRejectReason) {
	var accepted bool
	reason := appmessage.SolutionRejectTaskUnknown
	d.run(func() {
		task, err := d.Consensus.TaskStore.Get(d.Consensus.DBContext, claim.TaskID)
		if err != nil {
			return
		}
		if task.State != externalapi.TaskStateOpen && task.State != externalapi.TaskStateClaimed {
			if task.State == externalapi.TaskStateExpired {
				reason = appmessage.SolutionRejectTaskExpired
			}
			return
		}
		ok, verifyErr := d.Consensus.TensorTaskManager.VerifyClaim(task, claim)
		if verifyErr != nil || !ok {
			reason = appmessage.SolutionRejectRecomputeMismatch
			return
		}
		admitted, poolErr := d.ClaimPool.AddClaim(d.Consensus.DBContext, claim, true)
		if poolErr != nil || !admitted {
			return
		}
		accepted = true
	})
	if accepted {
		d.broadcaster.BroadcastTask(claim.TaskID, excludeFrom)
	}
	return accepted, reason
}

// RequestTemplate builds a fresh block template for minerAddress from the
// current tip, mempool, and claim pool snapshots.
func (d *Domain) RequestTemplate(minerAddress externalapi.DomainAddress) (*appmessage.TemplateMessage, error) {
	block, reductionNumerator, err := d.buildBlockTemplate(minerAddress)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build block template")
	}
	return appmessage.NewTemplateMessage(
		block.Header.ParentHash, block.Header.Height, block.Header.Timestamp, block.Header.Bits,
		block.Header.MerkleRoot, block.Header.TaskBindingDigest, block.Transactions, block.Claims,
		reductionNumerator, externalapi.DifficultyReductionDenominator,
	), nil
}

// BuildBlockTemplate builds a fresh candidate block for minerAddress,
// along with the reduction numerator its included claims justify, for an
// in-process miner that needs the full block (coinbase included) rather
// than the wire-shaped TemplateMessage RequestTemplate serves to a
// detached one.
func (d *Domain) BuildBlockTemplate(minerAddress externalapi.DomainAddress) (*externalapi.DomainBlock, uint64, error) {
	return d.buildBlockTemplate(minerAddress)
}

func (d *Domain) buildBlockTemplate(minerAddress externalapi.DomainAddress) (*externalapi.DomainBlock, uint64, error) {
	var block *externalapi.DomainBlock
	var reductionNumerator uint64
	var err error
	d.run(func() {
		block, err = d.Consensus.BlockBuilder.BuildBlockTemplate(&model.CoinbaseData{MinerAddress: minerAddress})
		if err != nil {
			return
		}
		_, reductionNumerator, err = d.Consensus.TensorTaskManager.FinalizeClaims(d.Consensus.DBContext, block.Claims)
	})
	return block, reductionNumerator, err
}

// Tip returns the current active-chain tip digest and height.
func (d *Domain) Tip() (*externalapi.DomainHash, uint64, error) {
	return d.Consensus.ConsensusStateManager.Tip(d.Consensus.DBContext)
}

// OpenTasks returns every currently open task, for answering a peer's
// initial task-gossip catch-up.
func (d *Domain) OpenTasks() ([]*externalapi.DomainTensorTask, error) {
	return d.Consensus.TaskStore.AllOpen(d.Consensus.DBContext)
}

// Task looks up a single task by ID, for answering a TaskRequestMessage.
func (d *Domain) Task(taskID *externalapi.DomainTaskID) (*externalapi.DomainTensorTask, error) {
	return d.Consensus.TaskStore.Get(d.Consensus.DBContext, taskID)
}

// HasBlock reports whether hash is already stored, for inv de-duplication.
func (d *Domain) HasBlock(hash *externalapi.DomainHash) (bool, error) {
	return d.Consensus.BlockStore.HasBlock(d.Consensus.DBContext, hash)
}

// Block looks up a stored block by hash, for answering a BlockRequestMessage.
func (d *Domain) Block(hash *externalapi.DomainHash) (*externalapi.DomainBlock, error) {
	return d.Consensus.BlockStore.Block(d.Consensus.DBContext, hash)
}

// Header looks up a stored header by hash, for answering a
// HeadersRequestMessage.
func (d *Domain) Header(hash *externalapi.DomainHash) (*externalapi.DomainBlockHeader, error) {
	return d.Consensus.BlockHeaderStore.BlockHeader(d.Consensus.DBContext, hash)
}

// BlockHashAtHeight returns the active chain's block digest at height, for
// walking forward from a header locator's matched ancestor.
func (d *Domain) BlockHashAtHeight(height uint64) (*externalapi.DomainHash, error) {
	return d.Consensus.ChainStore.BlockAtHeight(d.Consensus.DBContext, height)
}

// ValidateHeaderInIsolation runs the structural/timestamp checks a header
// must pass regardless of chain context, for vetting a peer's headers
// response before committing to backfilling its bodies.
func (d *Domain) ValidateHeaderInIsolation(header *externalapi.DomainBlockHeader) error {
	return d.Consensus.BlockValidator.ValidateHeaderInIsolation(header)
}

// HeaderLocator builds a sparse ancestor-digest list over the active
// chain, doubling the stride each step, for requesting headers from a
// peer
func (d *Domain) HeaderLocator() ([]*externalapi.DomainHash, error) {
	_, tipHeight, err := d.Tip()
	if err != nil {
		return nil, err
	}
	var locator []*externalapi.DomainHash
	step := uint64(1)
	height := tipHeight
	for {
		hash, err := d.Consensus.ChainStore.BlockAtHeight(d.Consensus.DBContext, height)
		if err != nil {
			break
		}
		locator = append(locator, hash)
		if height == 0 {
			break
		}
		if height < step {
			height = 0
		} else {
			height -= step
		}
		step *= 2
	}
	return locator, nil
}
