// Package coinbasemanager implements model.CoinbaseManager: assembling
// and validating a block's coinbase transaction (subsidy, collected fees,
// and finalized task rewards), grounded on kaspad's coinbasemanager
// package for the struct-plus-New(...) shape. The kaspad's coinbase
// payload carries a blue-score-keyed UTXO-maturity tag; under the
// account model there is nothing to mature, so the coinbase here carries
// no payload; the paying address is its Recipient.
package coinbasemanager

import (
	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/domain/chainparams"
	"github.com/tensorchain/tensorchain/domain/consensus/model"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/domain/consensus/ruleerrors"
)

type coinbaseManager struct{}

// New instantiates a new CoinbaseManager.
func New() model.CoinbaseManager {
	return &coinbaseManager{}
}

// BlockSubsidy returns the fixed per-height issuance, per the halving
// schedule in chainparams.
func (cm *coinbaseManager) BlockSubsidy(height uint64) uint64 {
	return chainparams.BlockSubsidy(height)
}

// ExpectedCoinbaseTransaction builds the coinbase transaction a block at
// height must carry: a zero-sender mint of subsidy + totalFees +
// taskRewards paid to coinbaseData.MinerAddress.
func (cm *coinbaseManager) ExpectedCoinbaseTransaction(height uint64, totalFees uint64, taskRewards uint64,
	coinbaseData *model.CoinbaseData) (*externalapi.DomainTransaction, error) {

	subsidy := cm.BlockSubsidy(height)
	amount := subsidy + totalFees
	if amount < subsidy {
		return nil, errors.New("subsidy + fees overflows")
	}
	amount += taskRewards
	if amount < taskRewards {
		return nil, errors.New("subsidy + fees + task rewards overflows")
	}

	return &externalapi.DomainTransaction{
		Sender:      make(externalapi.DomainAddress, len(coinbaseData.MinerAddress)),
		Recipient:   coinbaseData.MinerAddress,
		Amount:      amount,
		Fee:         0,
		Nonce:       height,
		PayloadKind: externalapi.PayloadKindPlainTransfer,
	}, nil
}

// ValidateCoinbaseTransaction checks that tx matches what
// ExpectedCoinbaseTransaction would have built for the same inputs: a
// zero sender, the correct amount, and a nonce equal to height (coinbase
// transactions need no replay protection beyond their fixed height-keyed
// nonce, since no two blocks share a height on the active chain).
func (cm *coinbaseManager) ValidateCoinbaseTransaction(tx *externalapi.DomainTransaction, height uint64,
	totalFees uint64, taskRewards uint64) error {

	for _, b := range tx.Sender {
		if b != 0 {
			return ruleerrors.New(ruleerrors.ErrBadCoinbaseSender, "coinbase transaction has a non-zero sender")
		}
	}
	if tx.PayloadKind != externalapi.PayloadKindPlainTransfer {
		return ruleerrors.New(ruleerrors.ErrUnknownPayloadKind, "coinbase transaction has unexpected payload kind %s", tx.PayloadKind)
	}
	if tx.Nonce != height {
		return errors.Errorf("coinbase transaction nonce %d does not match height %d", tx.Nonce, height)
	}

	subsidy := cm.BlockSubsidy(height)
	expectedAmount := subsidy + totalFees + taskRewards
	if tx.Amount != expectedAmount {
		return ruleerrors.New(ruleerrors.ErrBadCoinbaseAmount, "coinbase transaction amount %d does not match expected %d (subsidy %d + fees %d + task rewards %d)",
			tx.Amount, expectedAmount, subsidy, totalFees, taskRewards)
	}

	return nil
}
