// Package relaytasks implements the tensor-task and solution gossip flow:
// announce-then-fetch relay for newly created tasks,
// plus direct submission of claimed solutions into the task engine.
// Grounded on the same flow shape as relaytransactions, with an added
// solution_submit/accepted/rejected exchange that mempool gossip has no
// analogue of, since a claim must be verified before it is worth
// forwarding at all.
package relaytasks

import (
	"github.com/tensorchain/tensorchain/app/appmessage"
	"github.com/tensorchain/tensorchain/app/protocol/flowcontext"
	"github.com/tensorchain/tensorchain/app/protocol/peer"
	"github.com/tensorchain/tensorchain/app/protocolerrors"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/infrastructure/network/netadapter/router"
	"github.com/tensorchain/tensorchain/logger"
)

var log = logger.Get(logger.TagTask)

// HandleRelayTasks owns every task-gossip and solution-submission command
// for one peer.
func HandleRelayTasks(context *flowcontext.FlowContext, incomingRoute, outgoingRoute *router.Route, p *peer.Peer) error {
	flow := &relayTasksFlow{
		context:       context,
		incomingRoute: incomingRoute,
		outgoingRoute: outgoingRoute,
		peer:          p,
		requested:     make(map[externalapi.DomainTaskID]struct{}),
	}
	return flow.start()
}

type relayTasksFlow struct {
	context                      *flowcontext.FlowContext
	incomingRoute, outgoingRoute *router.Route
	peer                         *peer.Peer

	requested map[externalapi.DomainTaskID]struct{}
}

func (f *relayTasksFlow) start() error {
	for {
		message, err := f.incomingRoute.Dequeue()
		if err != nil {
			return err
		}
		if err := f.dispatch(message); err != nil {
			return err
		}
	}
}

func (f *relayTasksFlow) dispatch(message appmessage.Message) error {
	switch message := message.(type) {
	case *appmessage.TaskAnnounceMessage:
		return f.handleAnnounce(message)
	case *appmessage.TaskRequestMessage:
		return f.serveRequest(message)
	case *appmessage.TaskMessage:
		return f.handleTask(message)
	case *appmessage.SolutionSubmitMessage:
		return f.handleSolutionSubmit(message)
	default:
		return protocolerrors.Errorf(true, "unexpected message %s in task relay", message.Command())
	}
}

func (f *relayTasksFlow) handleAnnounce(announce *appmessage.TaskAnnounceMessage) error {
	if _, err := f.context.Domain().Task(announce.TaskID); err == nil {
		return nil
	}
	if _, already := f.requested[*announce.TaskID]; already {
		return nil
	}
	f.requested[*announce.TaskID] = struct{}{}
	return f.outgoingRoute.Enqueue(appmessage.NewTaskRequestMessage(announce.TaskID))
}

func (f *relayTasksFlow) serveRequest(request *appmessage.TaskRequestMessage) error {
	task, err := f.context.Domain().Task(request.TaskID)
	if err != nil {
		return nil
	}
	return f.outgoingRoute.Enqueue(appmessage.NewTaskMessage(task))
}

// handleTask clears the pending request bookkeeping for a fetched task.
// Tasks only ever enter this node's TaskStore as a side effect of
// applying the block whose task-submission transaction created them
//; a gossiped TaskMessage is purely informational catch-up
// for a miner that wants to see open work ahead of fully syncing, not a
// second admission path into consensus state.
func (f *relayTasksFlow) handleTask(taskMessage *appmessage.TaskMessage) error {
	if taskMessage.Task.TaskID != nil {
		delete(f.requested, *taskMessage.Task.TaskID)
	}
	log.Debugf("received task %s from %s", taskMessage.Task.TaskID, f.peer)
	return nil
}

// handleSolutionSubmit verifies a peer's claimed solution and relays the
// accept/reject verdict back, announcing the claim onward on acceptance.
func (f *relayTasksFlow) handleSolutionSubmit(submit *appmessage.SolutionSubmitMessage) error {
	accepted, reason := f.context.Domain().SubmitClaim(submit.Claim, f.peer.ID())
	if !accepted {
		return f.outgoingRoute.Enqueue(appmessage.NewSolutionRejectedMessage(submit.Claim.TaskID, reason))
	}
	return f.outgoingRoute.Enqueue(appmessage.NewSolutionAcceptedMessage(submit.Claim.TaskID, submit.Claim.Miner))
}
