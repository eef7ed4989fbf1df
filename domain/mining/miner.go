package mining

import (
	"math/big"

	"github.com/tensorchain/tensorchain/codec"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/domain/consensus/utils/difficulty"
)

// NonceBatchSize bounds how many nonces a single search call tries before
// checking for cancellation: the search must be interruptible
// mid-block when a competing block arrives.
const NonceBatchSize = 1 << 16

// SearchResult reports the outcome of a bounded nonce search.
type SearchResult struct {
	Found bool
	Nonce uint64
}

// Search tries nonces starting at 0, in NonceBatchSize-sized
// batches, checking cancel between batches, until header's hash clears
// effectiveTarget or cancel fires. It mutates header.Nonce in place while
// searching and leaves it at the winning value on success; callers that
// need to preserve the original template should pass a clone.
func Search(header *externalapi.DomainBlockHeader, effectiveTarget *big.Int, cancel <-chan struct{}) SearchResult {
	nonce := 0

	for {
		select {
		case <-cancel:
			return SearchResult{Found: false}
		default:
		}

		for i := 0; i < NonceBatchSize; i++ {
			header.Nonce = uint64(nonce)
			hash := codec.HeaderHash(header)
			if difficulty.MeetsTarget(hash, effectiveTarget) {
				return SearchResult{Found: true, Nonce: header.Nonce}
			}
			nonce++
		}
	}
}
