package protocol

import (
	"github.com/tensorchain/tensorchain/app/appmessage"
	"github.com/tensorchain/tensorchain/app/protocol/flowcontext"
	"github.com/tensorchain/tensorchain/app/protocolerrors"
	"github.com/tensorchain/tensorchain/infrastructure/network/netadapter/router"
)

// serveTemplates answers a connected miner's TemplateRequestMessages over
// the same connection a node peer uses: the node-to-miner
// interface is just another pair of routes on the ordinary P2P
// connection, not a separate transport.
func serveTemplates(context *flowcontext.FlowContext, incomingRoute, outgoingRoute *router.Route) error {
	for {
		message, err := incomingRoute.Dequeue()
		if err != nil {
			return err
		}
		request, ok := message.(*appmessage.TemplateRequestMessage)
		if !ok {
			return protocolerrors.Errorf(true, "unexpected message %s while serving templates", message.Command())
		}
		template, err := context.Domain().RequestTemplate(request.MinerAddress)
		if err != nil {
			return protocolerrors.Wrapf(false, err, "failed to build a block template")
		}
		if err := outgoingRoute.Enqueue(template); err != nil {
			return err
		}
	}
}
