// Package blockrelay implements the header-first sync and block
// propagation flow: a lagging peer is caught up with a
// locator-based headers request and parallel body backfill, admitted in
// height order, while an up-to-date peer is served ordinary inv-driven
// relay. Grounded on kaspad's app/protocol/flows/blockrelay package's
// single-flow-per-peer shape (handle_relay_invs.go's flow struct and its
// combined read-dispatch loop), simplified to this repo's linear chain:
// there is no orphan pool or DAG blue-score bound, since a block whose
// parent we lack just falls out of the relay path and into a header sync
// instead of being held pending resolution.
package blockrelay

import (
	"time"

	"github.com/tensorchain/tensorchain/app/appmessage"
	"github.com/tensorchain/tensorchain/app/protocol/flowcontext"
	"github.com/tensorchain/tensorchain/app/protocol/peer"
	"github.com/tensorchain/tensorchain/app/protocolerrors"
	"github.com/tensorchain/tensorchain/codec"
	"github.com/tensorchain/tensorchain/domain/chainparams"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/domain/consensus/ruleerrors"
	"github.com/tensorchain/tensorchain/infrastructure/network/netadapter/router"
	"github.com/tensorchain/tensorchain/logger"
)

var log = logger.Get(logger.TagNtwk)

// requestTimeout bounds how long we wait for a peer to answer a headers
// or block request before treating the connection as unresponsive.
const requestTimeout = 30 * time.Second

// HandleBlockRelay owns every header- and block-related command for one
// peer: it serves the peer's own headers/block requests, answers its invs,
// and - if the peer announced a tip far enough ahead of ours at handshake
// - runs a header-first catch-up against it before settling into ordinary
// relay.
func HandleBlockRelay(context *flowcontext.FlowContext, incomingRoute, outgoingRoute *router.Route, p *peer.Peer) error {
	flow := &blockRelayFlow{
		context:        context,
		incomingRoute:  incomingRoute,
		outgoingRoute:  outgoingRoute,
		peer:           p,
		requested:      make(map[externalapi.DomainHash]struct{}),
		queuedMessages: nil,
	}
	return flow.start()
}

type blockRelayFlow struct {
	context                      *flowcontext.FlowContext
	incomingRoute, outgoingRoute *router.Route
	peer                         *peer.Peer

	requested      map[externalapi.DomainHash]struct{}
	queuedMessages []appmessage.Message
}

func (f *blockRelayFlow) start() error {
	if err := f.syncIfBehind(); err != nil {
		return err
	}
	for {
		message, err := f.dequeue()
		if err != nil {
			return err
		}
		if err := f.dispatch(message); err != nil {
			return err
		}
	}
}

func (f *blockRelayFlow) dispatch(message appmessage.Message) error {
	switch message := message.(type) {
	case *appmessage.HeadersRequestMessage:
		return f.serveHeadersRequest(message)
	case *appmessage.BlockRequestMessage:
		return f.serveBlockRequest(message)
	case *appmessage.InvMessage:
		return f.handleInv(message)
	case *appmessage.HeadersMessage, *appmessage.BlockMessage:
		// Unsolicited - every request/response pair inside syncIfBehind and
		// requestBlock drains its own answer directly off incomingRoute.
		return protocolerrors.Errorf(false, "unsolicited %s message", message.Command())
	default:
		return protocolerrors.Errorf(true, "unexpected message %s in block relay", message.Command())
	}
}

// dequeue returns the next message for the dispatch loop, preferring any
// message a request helper queued because it arrived while that helper
// was waiting on a different reply.
func (f *blockRelayFlow) dequeue() (appmessage.Message, error) {
	if len(f.queuedMessages) > 0 {
		message := f.queuedMessages[0]
		f.queuedMessages = f.queuedMessages[1:]
		return message, nil
	}
	return f.incomingRoute.Dequeue()
}

// syncIfBehind requests and applies a header-validated, height-ordered
// backfill from the peer if its handshake-announced tip leads ours by
// more than chainparams.ReorgDepthThreshold.
func (f *blockRelayFlow) syncIfBehind() error {
	_, ourHeight, err := f.context.Domain().Tip()
	if err != nil {
		return err
	}
	if f.peer.TipHeight() <= ourHeight+chainparams.ReorgDepthThreshold {
		return nil
	}

	log.Infof("peer %s is ahead by %d blocks, starting header sync", f.peer, f.peer.TipHeight()-ourHeight)

	for {
		_, ourHeight, err := f.context.Domain().Tip()
		if err != nil {
			return err
		}
		if f.peer.TipHeight() <= ourHeight {
			return nil
		}

		headers, err := f.requestHeaders()
		if err != nil {
			return err
		}
		if len(headers) == 0 {
			return nil
		}
		if err := f.validateHeaderChain(headers); err != nil {
			return err
		}
		if err := f.backfillAndSubmit(headers); err != nil {
			return err
		}
	}
}

func (f *blockRelayFlow) requestHeaders() ([]*externalapi.DomainBlockHeader, error) {
	locator, err := f.context.Domain().HeaderLocator()
	if err != nil {
		return nil, err
	}
	if err := f.outgoingRoute.Enqueue(appmessage.NewHeadersRequestMessage(locator, nil)); err != nil {
		return nil, err
	}

	message, err := f.readFiltered(func(m appmessage.Message) bool {
		_, ok := m.(*appmessage.HeadersMessage)
		return ok
	})
	if err != nil {
		return nil, err
	}
	return message.(*appmessage.HeadersMessage).Headers, nil
}

// validateHeaderChain checks every header in isolation and that the batch
// forms a single unbroken, strictly increasing chain. It does not check
// linkage against our own stored chain - ConsensusStateManager.AddBlock
// does that authoritatively once each body is submitted in order.
func (f *blockRelayFlow) validateHeaderChain(headers []*externalapi.DomainBlockHeader) error {
	var previous *externalapi.DomainBlockHeader
	for _, header := range headers {
		if err := f.context.Domain().ValidateHeaderInIsolation(header); err != nil {
			return protocolerrors.Wrapf(true, err, "peer %s sent an invalid header", f.peer)
		}
		if previous != nil {
			if header.Height != previous.Height+1 {
				return protocolerrors.Errorf(true, "peer %s sent non-contiguous headers", f.peer)
			}
		}
		previous = header
	}
	return nil
}

// backfillAndSubmit requests the full body for every header not already
// stored and submits each one, in height order, to the single-writer
// Domain - the order guarantees each block's parent is already applied
// by the time ConsensusStateManager validates it.
func (f *blockRelayFlow) backfillAndSubmit(headers []*externalapi.DomainBlockHeader) error {
	for _, header := range headers {
		hash := headerHash(header)
		has, err := f.context.Domain().HasBlock(hash)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		block, err := f.requestBlock(hash)
		if err != nil {
			return err
		}
		if _, err := f.context.Domain().SubmitBlock(block, f.peer.ID()); err != nil {
			return protocolerrors.Wrapf(true, err, "peer %s sent an unacceptable block %s", f.peer, hash)
		}
	}
	return nil
}

func (f *blockRelayFlow) requestBlock(hash *externalapi.DomainHash) (*externalapi.DomainBlock, error) {
	if err := f.outgoingRoute.Enqueue(appmessage.NewBlockRequestMessage(hash)); err != nil {
		return nil, err
	}
	message, err := f.readFiltered(func(m appmessage.Message) bool {
		_, ok := m.(*appmessage.BlockMessage)
		return ok
	})
	if err != nil {
		return nil, err
	}
	block := message.(*appmessage.BlockMessage).Block
	if !headerHash(block.Header).Equal(hash) {
		return nil, protocolerrors.Errorf(true, "peer %s sent block %s for requested %s", f.peer, headerHash(block.Header), hash)
	}
	return block, nil
}

// readFiltered dequeues until accept returns true, queueing every message
// it skips over for the main dispatch loop to handle afterward - a peer's
// own headers/block requests may legitimately interleave with our
// responses while we're mid-sync against it.
func (f *blockRelayFlow) readFiltered(accept func(appmessage.Message) bool) (appmessage.Message, error) {
	for {
		message, err := f.incomingRoute.DequeueWithTimeout(requestTimeout)
		if err != nil {
			return nil, err
		}
		if accept(message) {
			return message, nil
		}
		switch message.(type) {
		case *appmessage.HeadersRequestMessage, *appmessage.BlockRequestMessage, *appmessage.InvMessage:
			f.queuedMessages = append(f.queuedMessages, message)
		default:
			return nil, protocolerrors.Errorf(true, "unexpected message %s while waiting for a reply", message.Command())
		}
	}
}

// handleInv requests and applies a newly announced block if it is not
// already known, and otherwise triggers a full header sync when the
// announcement implies we are more than a reorg's worth of blocks behind.
func (f *blockRelayFlow) handleInv(inv *appmessage.InvMessage) error {
	for _, vector := range inv.Vectors {
		if vector.Kind != appmessage.InventoryKindBlock {
			continue
		}
		has, err := f.context.Domain().HasBlock(vector.Hash)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, already := f.requested[*vector.Hash]; already {
			continue
		}

		f.requested[*vector.Hash] = struct{}{}
		block, err := f.requestBlock(vector.Hash)
		delete(f.requested, *vector.Hash)
		if err != nil {
			return err
		}
		if _, err := f.context.Domain().SubmitBlock(block, f.peer.ID()); err != nil {
			if ruleerrors.IsUnknownParent(err) {
				log.Debugf("block %s from %s has an unknown parent, falling back to header sync", vector.Hash, f.peer)
				return f.syncIfBehind()
			}
			return protocolerrors.Wrapf(true, err, "peer %s relayed an unacceptable block %s", f.peer, vector.Hash)
		}
	}
	return nil
}

func (f *blockRelayFlow) serveHeadersRequest(request *appmessage.HeadersRequestMessage) error {
	headers, err := f.buildHeaders(request)
	if err != nil {
		return err
	}
	return f.outgoingRoute.Enqueue(appmessage.NewHeadersMessage(headers))
}

// buildHeaders finds the highest locator entry we recognize and returns
// every header from just past it up to MaxHeadersPerMessage or stopHash,
// whichever comes first.
func (f *blockRelayFlow) buildHeaders(request *appmessage.HeadersRequestMessage) ([]*externalapi.DomainBlockHeader, error) {
	domain := f.context.Domain()

	startHeight := uint64(0)
	for _, hash := range request.Locator {
		header, err := domain.Header(hash)
		if err != nil {
			continue
		}
		startHeight = header.Height + 1
		break
	}

	var headers []*externalapi.DomainBlockHeader
	for height := startHeight; len(headers) < chainparams.MaxHeadersPerMessage; height++ {
		hash, err := domain.BlockHashAtHeight(height)
		if err != nil {
			break
		}
		header, err := domain.Header(hash)
		if err != nil {
			return nil, err
		}
		headers = append(headers, header)
		if request.StopHash != nil && hash.Equal(request.StopHash) {
			break
		}
	}
	return headers, nil
}

func (f *blockRelayFlow) serveBlockRequest(request *appmessage.BlockRequestMessage) error {
	block, err := f.context.Domain().Block(request.Hash)
	if err != nil {
		return protocolerrors.Wrapf(false, err, "peer %s requested unknown block %s", f.peer, request.Hash)
	}
	return f.outgoingRoute.Enqueue(appmessage.NewBlockMessage(block))
}

func headerHash(header *externalapi.DomainBlockHeader) *externalapi.DomainHash {
	return codec.HeaderHash(header)
}
