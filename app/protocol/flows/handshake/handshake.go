// Package handshake implements the version/verack exchange:
// protocol_version, network_id, tip_digest, tip_height, user_agent,
// services_bitmask. Grounded on kaspad's
// app/protocol/flows/handshake package's HandleHandshake entry point,
// simplified to this repo's single-route-pair, no-subnetwork handshake.
package handshake

import (
	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/app/appmessage"
	"github.com/tensorchain/tensorchain/app/protocol/flowcontext"
	"github.com/tensorchain/tensorchain/app/protocol/peer"
	"github.com/tensorchain/tensorchain/app/protocolerrors"
	"github.com/tensorchain/tensorchain/infrastructure/network/netadapter"
	"github.com/tensorchain/tensorchain/infrastructure/network/netadapter/router"
)

// HandleHandshake exchanges VersionMessage/VerAckMessage with a newly
// connected peer and registers it with both the net adapter and the flow
// context on success. A network-ID or incompatible-version mismatch
// closes the connection. The connection is keyed in the net
// adapter's peer map by an ID generated locally for this connection; this
// protocol does not exchange a peer identity, so two connections to the
// same remote node are not deduplicated.
func HandleHandshake(context *flowcontext.FlowContext, connection *netadapter.Connection, r *router.Router,
	receiveVersionRoute, sendVersionRoute *router.Route, outgoingRoute *router.Route) (*peer.Peer, error) {

	netAdapterID, err := netadapter.GenerateID()
	if err != nil {
		return nil, err
	}

	tipHash, tipHeight, err := context.Domain().Tip()
	if err != nil {
		return nil, err
	}

	ownVersion := appmessage.NewVersionMessage(
		context.Config().ProtocolVersion, context.Config().NetworkID, tipHash, tipHeight,
		context.Config().UserAgent, context.Config().ServicesBitmask,
	)
	if err := outgoingRoute.Enqueue(ownVersion); err != nil {
		return nil, err
	}

	message, err := receiveVersionRoute.Dequeue()
	if err != nil {
		return nil, err
	}
	peerVersion, ok := message.(*appmessage.VersionMessage)
	if !ok {
		return nil, protocolerrors.Errorf(true, "expected a version message, got %s", message.Command())
	}
	if peerVersion.NetworkID != context.Config().NetworkID {
		return nil, protocolerrors.Errorf(false, "network ID mismatch: got %d, want %d", peerVersion.NetworkID, context.Config().NetworkID)
	}
	if peerVersion.ProtocolVersion != context.Config().ProtocolVersion {
		return nil, protocolerrors.Errorf(false, "protocol version mismatch: got %d, want %d", peerVersion.ProtocolVersion, context.Config().ProtocolVersion)
	}

	if err := outgoingRoute.Enqueue(appmessage.NewVerAckMessage()); err != nil {
		return nil, err
	}
	ackMessage, err := sendVersionRoute.Dequeue()
	if err != nil {
		return nil, err
	}
	if _, ok := ackMessage.(*appmessage.VerAckMessage); !ok {
		return nil, protocolerrors.Errorf(true, "expected a verack message, got %s", ackMessage.Command())
	}

	if !context.NetAdapter().RegisterConnection(connection, r, netAdapterID) {
		return nil, errors.Errorf("peer %s is already connected", netAdapterID)
	}

	p := peer.New(netAdapterID, connection, connection.IsOutbound())
	p.SetAnnouncedProperties(peerVersion.ProtocolVersion, peerVersion.UserAgent, peerVersion.TipHash, peerVersion.TipHeight)
	context.AddPeer(p)
	return p, nil
}
