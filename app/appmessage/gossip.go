package appmessage

import "github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"

// TxAnnounceMessage advertises a transaction a peer can fetch by digest,
// avoiding sending full bodies to peers that already have them.
type TxAnnounceMessage struct {
	TransactionID *externalapi.DomainHash
}

// Command implements Message.
func (msg *TxAnnounceMessage) Command() MessageCommand { return CmdTxAnnounce }

// NewTxAnnounceMessage returns a new TxAnnounceMessage.
func NewTxAnnounceMessage(transactionID *externalapi.DomainHash) *TxAnnounceMessage {
	return &TxAnnounceMessage{TransactionID: transactionID}
}

// TxRequestMessage asks a peer for the full body of a previously announced
// transaction.
type TxRequestMessage struct {
	TransactionID *externalapi.DomainHash
}

// Command implements Message.
func (msg *TxRequestMessage) Command() MessageCommand { return CmdTxRequest }

// NewTxRequestMessage returns a new TxRequestMessage.
func NewTxRequestMessage(transactionID *externalapi.DomainHash) *TxRequestMessage {
	return &TxRequestMessage{TransactionID: transactionID}
}

// TxMessage carries a full transaction body, either unsolicited mempool
// relay or in answer to a TxRequestMessage.
type TxMessage struct {
	Transaction *externalapi.DomainTransaction
}

// Command implements Message.
func (msg *TxMessage) Command() MessageCommand { return CmdTx }

// NewTxMessage returns a new TxMessage.
func NewTxMessage(transaction *externalapi.DomainTransaction) *TxMessage {
	return &TxMessage{Transaction: transaction}
}

// TaskAnnounceMessage advertises a tensor task a peer can fetch by ID,
// mirroring TxAnnounceMessage for the task gossip channel.
type TaskAnnounceMessage struct {
	TaskID *externalapi.DomainTaskID
}

// Command implements Message.
func (msg *TaskAnnounceMessage) Command() MessageCommand { return CmdTaskAnnounce }

// NewTaskAnnounceMessage returns a new TaskAnnounceMessage.
func NewTaskAnnounceMessage(taskID *externalapi.DomainTaskID) *TaskAnnounceMessage {
	return &TaskAnnounceMessage{TaskID: taskID}
}

// TaskRequestMessage asks a peer for the full body of a previously
// announced task.
type TaskRequestMessage struct {
	TaskID *externalapi.DomainTaskID
}

// Command implements Message.
func (msg *TaskRequestMessage) Command() MessageCommand { return CmdTaskRequest }

// NewTaskRequestMessage returns a new TaskRequestMessage.
func NewTaskRequestMessage(taskID *externalapi.DomainTaskID) *TaskRequestMessage {
	return &TaskRequestMessage{TaskID: taskID}
}

// TaskMessage carries a full tensor task body.
type TaskMessage struct {
	Task *externalapi.DomainTensorTask
}

// Command implements Message.
func (msg *TaskMessage) Command() MessageCommand { return CmdTask }

// NewTaskMessage returns a new TaskMessage.
func NewTaskMessage(task *externalapi.DomainTensorTask) *TaskMessage {
	return &TaskMessage{Task: task}
}
