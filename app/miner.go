package app

import (
	"time"

	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/domain/consensus/utils/difficulty"
	"github.com/tensorchain/tensorchain/domain/mining"
	"github.com/tensorchain/tensorchain/logger"
	"github.com/tensorchain/tensorchain/util/panics"
)

var minerLog = logger.Get(logger.TagMinr)
var minerSpawn = panics.GoroutineWrapperFunc(minerLog)

// retemplateInterval bounds how long the Worker searches a single
// template before rebuilding one, so it always eventually notices a new
// tip or newly eligible mempool/claim-pool entries even without an
// explicit new-tip notification wired in.
const retemplateInterval = 500 * time.Millisecond

// Worker continuously searches for a header meeting its block's effective
// target on behalf of a fixed miner address, submitting anything it finds
// back through Domain, and otherwise rebuilding its candidate block
// whenever it exhausts a search window. Grounded on the node-to-miner
// mining loop's templatesLoop/blocksLoop split, collapsed into a single
// goroutine since an in-process worker needs no network round trip
// between fetching a template and searching it.
type Worker struct {
	domain       *Domain
	minerAddress externalapi.DomainAddress

	stop chan struct{}
	done chan struct{}
}

// NewWorker constructs a Worker paying minerAddress.
func NewWorker(domain *Domain, minerAddress externalapi.DomainAddress) *Worker {
	return &Worker{
		domain:       domain,
		minerAddress: minerAddress,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start runs the search loop in its own goroutine. Call Stop to end it.
func (w *Worker) Start() {
	minerSpawn(func() {
		defer close(w.done)
		w.run()
	})
}

// Stop signals the search loop to end and blocks until it has.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
}

func (w *Worker) run() {
	for {
		select {
		case <-w.stop:
			return
		default:
		}

		block, reductionNumerator, err := w.domain.BuildBlockTemplate(w.minerAddress)
		if err != nil {
			minerLog.Warnf("failed to build a block template: %s", err)
			w.sleep(retemplateInterval)
			continue
		}

		target := difficulty.CompactToBig(block.Header.Bits)
		effectiveTarget := difficulty.EffectiveTarget(target, reductionNumerator, externalapi.DifficultyReductionDenominator)

		cancel := make(chan struct{})
		timer := time.AfterFunc(retemplateInterval, func() { close(cancel) })

		header := block.Header.Clone()
		result := mining.Search(header, effectiveTarget, mergeCancel(w.stop, cancel))
		if timer.Stop() {
			close(cancel)
		}

		if !result.Found {
			continue
		}

		block.Header = header
		update, err := w.domain.SubmitBlock(block, nil)
		if err != nil {
			minerLog.Warnf("found a block but it was rejected: %s", err)
			continue
		}
		minerLog.Infof("mined block %s at height %d", update.AddedChainBlockHashes[len(update.AddedChainBlockHashes)-1], block.Header.Height)
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-time.After(d):
	case <-w.stop:
	}
}

// mergeCancel returns a channel that closes once either a or b does,
// without leaking a goroutine past the caller's own search window: both
// inputs are finite-lifetime (a Worker's stop channel only ever closes
// once, b is a single AfterFunc timer channel), so the forwarding
// goroutine below always exits promptly.
func mergeCancel(a, b <-chan struct{}) <-chan struct{} {
	merged := make(chan struct{})
	go func() {
		select {
		case <-a:
		case <-b:
		}
		close(merged)
	}()
	return merged
}
