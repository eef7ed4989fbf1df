package model

import "github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"

// BlockBuilder assembles a new block template extending the current tip:
// selects mempool transactions, finalizes eligible task claims, and builds
// the coinbase transaction paying subsidy, fees and task rewards.
type BlockBuilder interface {
	BuildBlockTemplate(coinbaseData *CoinbaseData) (*externalapi.DomainBlock, error)
}
