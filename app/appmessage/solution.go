package appmessage

import "github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"

// SolutionSubmitMessage carries a miner's claimed solution to an open
// tensor task, for relay into the task engine ahead of block inclusion.
type SolutionSubmitMessage struct {
	Claim *externalapi.DomainTaskClaim
}

// Command implements Message.
func (msg *SolutionSubmitMessage) Command() MessageCommand { return CmdSolutionSubmit }

// NewSolutionSubmitMessage returns a new SolutionSubmitMessage.
func NewSolutionSubmitMessage(claim *externalapi.DomainTaskClaim) *SolutionSubmitMessage {
	return &SolutionSubmitMessage{Claim: claim}
}

// SolutionAcceptedMessage confirms that a previously submitted claim
// verified and is now eligible for finalization.
type SolutionAcceptedMessage struct {
	TaskID *externalapi.DomainTaskID
	Miner  externalapi.DomainAddress
}

// Command implements Message.
func (msg *SolutionAcceptedMessage) Command() MessageCommand { return CmdSolutionAccepted }

// NewSolutionAcceptedMessage returns a new SolutionAcceptedMessage.
func NewSolutionAcceptedMessage(taskID *externalapi.DomainTaskID, miner externalapi.DomainAddress) *SolutionAcceptedMessage {
	return &SolutionAcceptedMessage{TaskID: taskID, Miner: miner}
}

// SolutionRejectReason enumerates why a submitted claim failed
// verification, so a miner can tell a transient race from a wasted
// computation.
type SolutionRejectReason uint8

const (
	// SolutionRejectTaskUnknown means the referenced task ID is not open
	// locally, either never seen or already finalized/expired.
	SolutionRejectTaskUnknown SolutionRejectReason = iota
	// SolutionRejectOutputMismatch means the claimed output hash does not
	// match the task's expected output hash.
	SolutionRejectOutputMismatch
	// SolutionRejectRecomputeMismatch means the claimed output does not
	// match this node's own reference re-evaluation of the task.
	SolutionRejectRecomputeMismatch
	// SolutionRejectTaskExpired means the task's deadline height has
	// already passed.
	SolutionRejectTaskExpired
)

// SolutionRejectedMessage reports why a submitted claim was refused.
type SolutionRejectedMessage struct {
	TaskID *externalapi.DomainTaskID
	Reason SolutionRejectReason
}

// Command implements Message.
func (msg *SolutionRejectedMessage) Command() MessageCommand { return CmdSolutionRejected }

// NewSolutionRejectedMessage returns a new SolutionRejectedMessage.
func NewSolutionRejectedMessage(taskID *externalapi.DomainTaskID, reason SolutionRejectReason) *SolutionRejectedMessage {
	return &SolutionRejectedMessage{TaskID: taskID, Reason: reason}
}
