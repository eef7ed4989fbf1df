package consensusstatemanager

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/codec"
	"github.com/tensorchain/tensorchain/domain/chainparams"
	"github.com/tensorchain/tensorchain/domain/consensus/model"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/domain/consensus/processes/blockvalidator"
	"github.com/tensorchain/tensorchain/domain/consensus/ruleerrors"
)

// applyBlock runs every effect block has on account and task state:
// sender/recipient transfers (and task-submission escrow), finalized
// task-claim rewards and difficulty reduction, the coinbase payout, and
// deadline-expired task refunds. It assumes block has already passed
// BlockValidator's isolation and context checks; it is the authoritative
// check for everything that needs live account/task state, so a peer
// relaying a structurally valid but semantically bogus block is still
// rejected here.
func (csm *consensusStateManager) applyBlock(writer model.DBWriter, blockHash *externalapi.DomainHash, block *externalapi.DomainBlock) error {
	if len(block.Claims) > chainparams.MaxTaskClaimsPerBlock {
		return ruleerrors.New(ruleerrors.ErrTooManyTaskClaims, "block %s claims %d tasks", blockHash, len(block.Claims))
	}

	height := block.Header.Height
	var totalFees uint64

	for i, tx := range block.Transactions[1:] {
		senderState, err := csm.accountStore.Get(writer, tx.Sender)
		if err != nil {
			return errors.Wrapf(err, "failed to load sender state for transaction %d", i+1)
		}
		if err := csm.transactionValidator.ValidateInContext(tx, senderState); err != nil {
			return errors.Wrapf(err, "transaction %d in block %s", i+1, blockHash)
		}

		debit := tx.Amount + tx.Fee
		var task *externalapi.DomainTensorTask
		if tx.PayloadKind == externalapi.PayloadKindTaskSubmission {
			task, err = decodeTaskSubmission(tx)
			if err != nil {
				return errors.Wrapf(err, "transaction %d in block %s", i+1, blockHash)
			}
			escrowed := debit + task.RewardAmount
			if escrowed < debit {
				return ruleerrors.New(ruleerrors.ErrInsufficientBalance, "transaction %d escrow overflows", i+1)
			}
			debit = escrowed
			if debit > senderState.Balance {
				return ruleerrors.New(ruleerrors.ErrInsufficientBalance,
					"transaction %d amount+fee+escrow %d exceeds sender balance %d", i+1, debit, senderState.Balance)
			}
		}

		senderState.Balance -= debit
		senderState.Nonce++
		totalFees += tx.Fee

		if tx.Sender.Equal(tx.Recipient) {
			senderState.Balance += tx.Amount
			if err := csm.accountStore.Set(writer, tx.Sender, senderState); err != nil {
				return errors.Wrapf(err, "failed to persist sender state for transaction %d", i+1)
			}
		} else {
			if err := csm.accountStore.Set(writer, tx.Sender, senderState); err != nil {
				return errors.Wrapf(err, "failed to persist sender state for transaction %d", i+1)
			}
			recipientState, err := csm.accountStore.Get(writer, tx.Recipient)
			if err != nil {
				return errors.Wrapf(err, "failed to load recipient state for transaction %d", i+1)
			}
			recipientState.Balance += tx.Amount
			if err := csm.accountStore.Set(writer, tx.Recipient, recipientState); err != nil {
				return errors.Wrapf(err, "failed to persist recipient state for transaction %d", i+1)
			}
		}

		if task != nil {
			task.Creator = tx.Sender
			if err := csm.tensorTaskManager.CreateTask(writer, task); err != nil {
				return errors.Wrapf(err, "transaction %d in block %s", i+1, blockHash)
			}
		}
	}

	rewardTotal, reductionNumerator, err := csm.tensorTaskManager.ApplyClaims(writer, block.Claims)
	if err != nil {
		return errors.Wrapf(err, "failed to finalize claims for block %s", blockHash)
	}

	if !blockvalidator.MeetsEffectiveTarget(block.Header, reductionNumerator) {
		return ruleerrors.New(ruleerrors.ErrBelowTarget, "block %s does not meet its effective target", blockHash)
	}

	if err := csm.coinbaseManager.ValidateCoinbaseTransaction(block.Transactions[0], height, totalFees, rewardTotal); err != nil {
		return errors.Wrapf(err, "coinbase in block %s", blockHash)
	}
	coinbase := block.Transactions[0]
	minerState, err := csm.accountStore.Get(writer, coinbase.Recipient)
	if err != nil {
		return errors.Wrap(err, "failed to load coinbase recipient state")
	}
	minerState.Balance += coinbase.Amount
	if err := csm.accountStore.Set(writer, coinbase.Recipient, minerState); err != nil {
		return errors.Wrap(err, "failed to persist coinbase recipient state")
	}

	expired, err := csm.tensorTaskManager.ExpireTasks(writer, height)
	if err != nil {
		return errors.Wrapf(err, "failed to expire tasks at height %d", height)
	}
	for _, task := range expired {
		creatorState, err := csm.accountStore.Get(writer, task.Creator)
		if err != nil {
			return errors.Wrapf(err, "failed to load creator state to refund expired task %s", task.TaskID)
		}
		creatorState.Balance += task.RewardAmount
		if err := csm.accountStore.Set(writer, task.Creator, creatorState); err != nil {
			return errors.Wrapf(err, "failed to refund expired task %s", task.TaskID)
		}
	}

	return nil
}

// decodeTaskSubmission reads the task a task-submission transaction
// creates from its payload.
func decodeTaskSubmission(tx *externalapi.DomainTransaction) (*externalapi.DomainTensorTask, error) {
	task, err := codec.DecodeTaskSubmissionPayload(bytes.NewReader(tx.Payload))
	if err != nil {
		return nil, ruleerrors.New(ruleerrors.ErrMalformedTransaction, "task-submission payload: %s", err)
	}
	return task, nil
}
