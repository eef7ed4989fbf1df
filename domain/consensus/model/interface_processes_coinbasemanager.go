package model

import "github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"

// CoinbaseData is the miner-supplied information encoded in a coinbase
// transaction's payload: who gets paid.
type CoinbaseData struct {
	MinerAddress externalapi.DomainAddress
}

// CoinbaseManager builds and validates a block's coinbase transaction:
// subsidy, collected fees, and finalized task rewards.
type CoinbaseManager interface {
	ExpectedCoinbaseTransaction(height uint64, totalFees uint64, taskRewards uint64,
		coinbaseData *CoinbaseData) (*externalapi.DomainTransaction, error)
	ValidateCoinbaseTransaction(tx *externalapi.DomainTransaction, height uint64, totalFees uint64,
		taskRewards uint64) error
	BlockSubsidy(height uint64) uint64
}
