// Package relaytransactions implements the mempool gossip flow:
// announce-then-fetch relay for transactions, so a peer that
// already holds a transaction is never sent its full body twice.
// Grounded on the same single-flow-per-peer shape as
// app/protocol/flows/blockrelay, simplified to one announce/request/body
// triple instead of blockrelay's header-first catch-up machinery, since
// mempool contents have no analogue of a locator-based backfill.
package relaytransactions

import (
	"github.com/tensorchain/tensorchain/app/appmessage"
	"github.com/tensorchain/tensorchain/app/protocol/flowcontext"
	"github.com/tensorchain/tensorchain/app/protocol/peer"
	"github.com/tensorchain/tensorchain/app/protocolerrors"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/infrastructure/network/netadapter/router"
	"github.com/tensorchain/tensorchain/logger"
)

var log = logger.Get(logger.TagNtwk)

// HandleRelayTransactions owns every transaction-gossip command for one
// peer: it answers the peer's announcements and requests, and relays
// whatever full bodies arrive unsolicited into the local mempool.
func HandleRelayTransactions(context *flowcontext.FlowContext, incomingRoute, outgoingRoute *router.Route, p *peer.Peer) error {
	flow := &relayTransactionsFlow{
		context:       context,
		incomingRoute: incomingRoute,
		outgoingRoute: outgoingRoute,
		peer:          p,
		requested:     make(map[externalapi.DomainTransactionID]struct{}),
	}
	return flow.start()
}

type relayTransactionsFlow struct {
	context                      *flowcontext.FlowContext
	incomingRoute, outgoingRoute *router.Route
	peer                         *peer.Peer

	requested map[externalapi.DomainTransactionID]struct{}
}

func (f *relayTransactionsFlow) start() error {
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

func (f *relayTransactionsFlow) dispatch(message appmessage.Message) error {
	switch message := message.(type) {
	case *appmessage.TxAnnounceMessage:
		return f.handleAnnounce(message)
	case *appmessage.TxRequestMessage:
		return f.serveRequest(message)
	case *appmessage.TxMessage:
		return f.handleTx(message)
	default:
		return protocolerrors.Errorf(true, "unexpected message %s in transaction relay", message.Command())
	}
}

// handleAnnounce requests the full body of a transaction we have not
// already seen, via the mempool or a prior in-flight request to this peer.
func (f *relayTransactionsFlow) handleAnnounce(announce *appmessage.TxAnnounceMessage) error {
	id := externalapi.DomainTransactionID(*announce.TransactionID)
	if f.context.Domain().Mempool.Has(id) {
		return nil
	}
	if _, already := f.requested[id]; already {
		return nil
	}
	f.requested[id] = struct{}{}
	return f.outgoingRoute.Enqueue(appmessage.NewTxRequestMessage(announce.TransactionID))
}

func (f *relayTransactionsFlow) serveRequest(request *appmessage.TxRequestMessage) error {
	id := externalapi.DomainTransactionID(*request.TransactionID)
	tx, ok := f.context.Domain().Mempool.Get(id)
	if !ok {
		// The transaction may have been mined or evicted since it was
		// announced; this is not a protocol fault.
		return nil
	}
	return f.outgoingRoute.Enqueue(appmessage.NewTxMessage(tx))
}

// handleTx submits a transaction received either in answer to our own
// request or relayed unsolicited by a peer that gossips eagerly, and
// announces it onward on acceptance.
func (f *relayTransactionsFlow) handleTx(txMessage *appmessage.TxMessage) error {
	tx := txMessage.Transaction
	if tx.ID != nil {
		delete(f.requested, *tx.ID)
	}
	if err := f.context.Domain().SubmitTransaction(tx, f.peer.ID()); err != nil {
		log.Debugf("rejected transaction from %s: %s", f.peer, err)
		return nil
	}
	return nil
}
