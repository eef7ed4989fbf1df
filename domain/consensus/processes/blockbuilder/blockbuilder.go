// Package blockbuilder implements model.BlockBuilder: assembling a new
// block template extending the current tip for the miner to search a
// nonce over. There is no equivalent kaspad package for this concern
// under the balance/tensor-task model - kaspad's own template
// assembly lives behind its miningmanager/mempool UTXO machinery - but
// the struct-plus-New(deps) shape and the "gather, then stamp a header"
// sequencing follow kaspad's blockdag.BlockTemplateGenerator idiom.
package blockbuilder

import (
	"time"

	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/domain/chainparams"
	"github.com/tensorchain/tensorchain/domain/consensus/model"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/domain/consensus/utils/merkle"
)

const (
	maxBlockTransactions = 4096
	maxBlockBytes        = 2_000_000
)

// MempoolSource is the subset of mempool.Mempool the block builder
// depends on, kept narrow so the builder can be tested against a fake.
type MempoolSource interface {
	SelectForTemplate(maxCount, maxBytes int) []*externalapi.DomainTransaction
}

// ClaimSource is the subset of a miner's claim pool the block builder
// depends on: the best currently-known claim per open task, in the
// caller's priority order.
type ClaimSource interface {
	PendingClaims(maxCount int) []*externalapi.DomainTaskClaim
}

// Config wires a blockBuilder's dependencies.
type Config struct {
	ConsensusStateManager model.ConsensusStateManager
	TensorTaskManager     model.TensorTaskManager
	CoinbaseManager       model.CoinbaseManager
	DifficultyManager     model.DifficultyManager
	Mempool               MempoolSource
	ClaimPool             ClaimSource
	DBReader              model.DBReader
}

type blockBuilder struct {
	cfg *Config
}

// New constructs a model.BlockBuilder.
func New(cfg *Config) model.BlockBuilder {
	return &blockBuilder{cfg: cfg}
}

// BuildBlockTemplate assembles a candidate block extending the current
// tip: selects mempool transactions and pending task claims, computes the
// coinbase paying subsidy, collected fees and finalized task rewards, and
// stamps a header with the required difficulty bits and the current
// timestamp. The returned block's Nonce is zero; the miner searches it.
func (bb *blockBuilder) BuildBlockTemplate(coinbaseData *model.CoinbaseData) (*externalapi.DomainBlock, error) {
	tipHash, tipHeight, err := bb.cfg.ConsensusStateManager.Tip(bb.cfg.DBReader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tip for block template")
	}
	height := tipHeight + 1

	transactions := bb.cfg.Mempool.SelectForTemplate(maxBlockTransactions, maxBlockBytes)

	var totalFees uint64
	for _, tx := range transactions {
		totalFees += tx.Fee
	}

	var claims []*externalapi.DomainTaskClaim
	var rewardTotal, reductionNumerator uint64
	if bb.cfg.ClaimPool != nil {
		candidates := bb.cfg.ClaimPool.PendingClaims(chainparams.MaxTaskClaimsPerBlock)
		rewardTotal, reductionNumerator, err = bb.cfg.TensorTaskManager.FinalizeClaims(bb.cfg.DBReader, candidates)
		if err != nil {
			return nil, errors.Wrap(err, "failed to finalize candidate task claims")
		}
		claims = candidates
	}

	coinbase, err := bb.cfg.CoinbaseManager.ExpectedCoinbaseTransaction(height, totalFees, rewardTotal, coinbaseData)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build coinbase transaction")
	}

	allTransactions := make([]*externalapi.DomainTransaction, 0, len(transactions)+1)
	allTransactions = append(allTransactions, coinbase)
	allTransactions = append(allTransactions, transactions...)

	bits, err := bb.cfg.DifficultyManager.RequiredDifficulty(bb.cfg.DBReader, tipHash)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute required difficulty for block template")
	}

	header := &externalapi.DomainBlockHeader{
		ParentHash:        tipHash,
		MerkleRoot:        merkle.CalculateTransactionMerkleRoot(allTransactions),
		TaskBindingDigest: merkle.CalculateTaskBindingDigest(claims),
		Timestamp:         time.Now().Unix(),
		Bits:              bits,
		Nonce:             0,
		Height:            height,
	}

	_ = reductionNumerator // carried in the header's effective target at mining time, not the header itself

	return &externalapi.DomainBlock{
		Header:       header,
		Transactions: allTransactions,
		Claims:       claims,
	}, nil
}
