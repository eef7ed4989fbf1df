// Package protocol wires every connection this node makes or accepts to
// the handshake and the fixed set of always-on relay flows, and owns the
// net adapter those connections run over. Grounded on kaspad's
// app/protocol/protocol.go + protocol/manager.go split: routerInitializer
// builds one Router per connection and registers an incoming Route for
// every command group a flow needs, then spawns the handshake followed by
// the relay flows once it completes, exactly as kaspad's
// routerInitializer does for its own, larger flow set.
package protocol

import (
	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/app"
	"github.com/tensorchain/tensorchain/app/appmessage"
	"github.com/tensorchain/tensorchain/app/protocol/flowcontext"
	"github.com/tensorchain/tensorchain/app/protocol/flows/blockrelay"
	"github.com/tensorchain/tensorchain/app/protocol/flows/handshake"
	"github.com/tensorchain/tensorchain/app/protocol/flows/ping"
	"github.com/tensorchain/tensorchain/app/protocol/flows/relaytasks"
	"github.com/tensorchain/tensorchain/app/protocol/flows/relaytransactions"
	"github.com/tensorchain/tensorchain/app/protocol/peer"
	"github.com/tensorchain/tensorchain/app/protocolerrors"
	"github.com/tensorchain/tensorchain/infrastructure/network/addressmanager"
	"github.com/tensorchain/tensorchain/infrastructure/network/netadapter"
	"github.com/tensorchain/tensorchain/infrastructure/network/netadapter/router"
	"github.com/tensorchain/tensorchain/logger"
	"github.com/tensorchain/tensorchain/util/panics"
)

var log = logger.Get(logger.TagNtwk)
var spawn = panics.GoroutineWrapperFunc(log)

// Manager owns the net adapter and the per-connection wiring every
// handshaked peer runs under.
type Manager struct {
	netAdapter *netadapter.NetAdapter
	context    *flowcontext.FlowContext
}

// NewManager constructs a Manager listening on listeningAddrs. domain's
// broadcaster is set to the constructed FlowContext, so blocks,
// transactions, and task claims accepted through domain fan out to every
// handshaked peer.
func NewManager(cfg *flowcontext.Config, domain *app.Domain, addressManager *addressmanager.AddressManager,
	listeningAddrs []string) (*Manager, error) {

	netAdapter, err := netadapter.NewNetAdapter(listeningAddrs)
	if err != nil {
		return nil, err
	}

	context := flowcontext.New(cfg, domain, netAdapter, addressManager)
	domain.SetBroadcaster(context)

	m := &Manager{netAdapter: netAdapter, context: context}
	netAdapter.SetRouterInitializer(m.routerInitializer)
	return m, nil
}

// Start begins accepting inbound connections.
func (m *Manager) Start() error { return m.netAdapter.Start() }

// Stop closes every connection and listener.
func (m *Manager) Stop() error { return m.netAdapter.Stop() }

// Connect dials address as a new outbound peer. The outbound slot bound
// is enforced the same way an inbound bound is, inside routerInitializer,
// since that callback runs uniformly for dialed and accepted connections.
func (m *Manager) Connect(address string) error {
	return m.netAdapter.Connect(address)
}

// Context returns the shared protocol state, for a caller (an in-process
// miner, or a future RPC surface) that needs to read peer counts or the
// address manager without going through the net adapter directly.
func (m *Manager) Context() *flowcontext.FlowContext { return m.context }

func (m *Manager) routerInitializer(connection *netadapter.Connection) (*router.Router, error) {
	if banned, err := m.context.AddressManager().IsBanned(connection.Address()); err == nil && banned {
		return nil, errors.Errorf("%s is banned", connection.Address())
	}
	if !m.context.AddressManager().TryAcquireSlot(connection.IsOutbound()) {
		return nil, errors.Errorf("no free %s connection slots for %s", direction(connection.IsOutbound()), connection.Address())
	}

	r := router.NewRouter()
	r.SetOnRouteNotFoundHandler(func(message appmessage.Message) {
		log.Debugf("dropping %s from %s: no route registered for it yet", message.Command(), connection)
	})

	receiveVersionRoute := router.NewRouteWithCapacity(1)
	sendVersionRoute := router.NewRouteWithCapacity(1)
	r.AddIncomingRoute(receiveVersionRoute, appmessage.CmdVersion)
	r.AddIncomingRoute(sendVersionRoute, appmessage.CmdVerAck)

	blockRelayRoute := router.NewRouteWithCapacity(500)
	r.AddIncomingRoute(blockRelayRoute,
		appmessage.CmdHeadersRequest, appmessage.CmdHeaders,
		appmessage.CmdBlockRequest, appmessage.CmdBlock, appmessage.CmdInv)

	pingRoute := router.NewRoute()
	r.AddIncomingRoute(pingRoute, appmessage.CmdPing)
	pongRoute := router.NewRoute()
	r.AddIncomingRoute(pongRoute, appmessage.CmdPong)

	txRelayRoute := router.NewRouteWithCapacity(500)
	r.AddIncomingRoute(txRelayRoute, appmessage.CmdTxAnnounce, appmessage.CmdTxRequest, appmessage.CmdTx)

	taskRelayRoute := router.NewRouteWithCapacity(200)
	r.AddIncomingRoute(taskRelayRoute,
		appmessage.CmdTaskAnnounce, appmessage.CmdTaskRequest, appmessage.CmdTask, appmessage.CmdSolutionSubmit)

	templateRoute := router.NewRouteWithCapacity(4)
	r.AddIncomingRoute(templateRoute, appmessage.CmdTemplateRequest)

	outgoingRoute := r.OutgoingRoute()

	spawn(func() {
		p, err := handshake.HandleHandshake(m.context, connection, r, receiveVersionRoute, sendVersionRoute, outgoingRoute)
		if err != nil {
			m.context.AddressManager().ReleaseSlot(connection.IsOutbound())
			m.handleError(err, connection)
			return
		}
		defer m.context.RemovePeer(p)

		err = m.runFlows(p, blockRelayRoute, pingRoute, pongRoute, txRelayRoute, taskRelayRoute, templateRoute, outgoingRoute)
		if err != nil {
			m.handleError(err, connection)
		}
	})

	return r, nil
}

// runFlows starts every always-on flow for a handshaked peer and blocks
// until the first one returns an error (including the benign
// ErrRouteClosed a flow gets once the connection disconnects).
func (m *Manager) runFlows(p *peer.Peer, blockRelayRoute, pingRoute, pongRoute, txRelayRoute, taskRelayRoute,
	templateRoute, outgoingRoute *router.Route) error {

	errCh := make(chan error, 7)
	run := func(name string, fn func() error) {
		spawn(func() {
			err := fn()
			select {
			case errCh <- err:
			default:
				log.Tracef("%s flow for %s ended after another flow already reported first: %s", name, p, err)
			}
		})
	}

	run("blockrelay", func() error { return blockrelay.HandleBlockRelay(m.context, blockRelayRoute, outgoingRoute, p) })
	run("receive-pings", func() error { return ping.ReceivePings(pingRoute, outgoingRoute) })
	run("receive-pongs", func() error { return ping.ReceivePongs(pongRoute, p) })
	run("send-pings", func() error { return ping.SendPings(outgoingRoute) })
	run("relaytransactions", func() error {
		return relaytransactions.HandleRelayTransactions(m.context, txRelayRoute, outgoingRoute, p)
	})
	run("relaytasks", func() error { return relaytasks.HandleRelayTasks(m.context, taskRelayRoute, outgoingRoute, p) })
	run("templates", func() error { return serveTemplates(m.context, templateRoute, outgoingRoute) })

	return <-errCh
}

// handleError judges err and bans or merely disconnects connection
// accordingly: a ProtocolError whose ShouldBan is set bans the remote
// address outright; any other ProtocolError adds one to its misbehavior
// score, which bans it once the threshold is crossed; anything else (a
// route closing because the peer hung up, a timeout) just disconnects.
func (m *Manager) handleError(err error, connection *netadapter.Connection) {
	if shouldBan, ok := protocolerrors.IsProtocolError(err); ok {
		if shouldBan {
			log.Warnf("banning %s: %s", connection, err)
			m.context.AddressManager().Ban(connection.Address())
		} else if m.context.ReportMisbehavior(connection.Address(), 1) {
			log.Warnf("%s crossed the misbehavior threshold and is now banned", connection)
		}
	} else {
		log.Debugf("disconnecting %s: %s", connection, err)
	}
	if err := connection.Disconnect(); err != nil {
		log.Debugf("failed to disconnect %s: %s", connection, err)
	}
}

func direction(outbound bool) string {
	if outbound {
		return "outbound"
	}
	return "inbound"
}
