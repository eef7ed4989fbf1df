// Command tensorminer is a thin external convenience client: it connects
// to a single node over the ordinary P2P port, repeatedly requests a
// block template, searches for a valid nonce, and announces whatever it
// finds back. It carries none of a node's own validation or storage -
// the node re-validates anything this client submits - so it is safe to
// run detached from, and with far less trust than, the node itself.
// Grounded on kaspad's cmd/kaspaminer template/submit client loop,
// collapsed to this protocol's single always-on connection rather than a
// separate RPC client plus gRPC stream.
package main

import (
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/app/appmessage"
	"github.com/tensorchain/tensorchain/codec"
	"github.com/tensorchain/tensorchain/domain/chainparams"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/domain/consensus/utils/difficulty"
	"github.com/tensorchain/tensorchain/domain/mining"
	"github.com/tensorchain/tensorchain/infrastructure/network/netadapter"
	"github.com/tensorchain/tensorchain/keys"
	"github.com/tensorchain/tensorchain/logger"
)

var log = logger.Get(logger.TagMinr)

type options struct {
	NodeAddress  string `long:"node" description:"Address of the node to mine against" required:"true"`
	MinerAddress string `long:"mineraddress" description:"Hex-encoded address coinbase rewards should pay" required:"true"`
}

// searchWindow bounds how long a single template is searched before a
// fresh one is requested, so the miner never grinds on a stale parent or
// fee set for long.
const searchWindow = 2 * time.Second

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	minerAddress, err := keys.ParseAddress(opts.MinerAddress)
	if err != nil {
		log.Criticalf("invalid --mineraddress: %s", err)
		os.Exit(1)
	}

	connection, err := netadapter.Dial(opts.NodeAddress)
	if err != nil {
		log.Criticalf("failed to connect to %s: %s", opts.NodeAddress, err)
		os.Exit(1)
	}
	defer connection.Disconnect()

	if err := handshake(connection); err != nil {
		log.Criticalf("handshake with %s failed: %s", opts.NodeAddress, err)
		os.Exit(1)
	}
	log.Infof("connected to %s", opts.NodeAddress)

	for {
		template, err := requestTemplate(connection, minerAddress)
		if err != nil {
			log.Warnf("failed to fetch a template: %s", err)
			time.Sleep(time.Second)
			continue
		}

		target := difficulty.CompactToBig(template.Bits)
		effectiveTarget := difficulty.EffectiveTarget(target, template.ReductionNumerator, template.ReductionDenominator)

		cancel := make(chan struct{})
		timer := time.AfterFunc(searchWindow, func() { close(cancel) })
		header := template.Header()
		result := mining.Search(header, effectiveTarget, cancel)
		timer.Stop()

		if !result.Found {
			continue
		}

		block := template.Block(header.Nonce)
		if err := announceAndServe(connection, block); err != nil {
			log.Warnf("failed to submit a found block: %s", err)
			continue
		}
		log.Infof("submitted block %s at height %d", codec.HeaderHash(block.Header), block.Header.Height)
	}
}

// handshake performs the version/verack exchange every connection must
// complete before the node will serve anything else on it. A detached
// miner has no chain of its own, so it reports the genesis block as its
// tip; the node does not use this beyond populating its peer listing.
func handshake(connection *netadapter.Connection) error {
	genesisHash := codec.HeaderHash(chainparams.GenesisBlock().Header)
	version := appmessage.NewVersionMessage(
		chainparams.ProtocolVersion, chainparams.NetworkID, genesisHash, 0, "/tensorminer:0.1.0/", 0,
	)
	if err := connection.Send(version); err != nil {
		return err
	}

	message, err := connection.Receive()
	if err != nil {
		return err
	}
	peerVersion, ok := message.(*appmessage.VersionMessage)
	if !ok {
		return errors.Errorf("expected a version message, got %s", message.Command())
	}
	if peerVersion.NetworkID != chainparams.NetworkID {
		return errors.Errorf("network ID mismatch: got %d, want %d", peerVersion.NetworkID, chainparams.NetworkID)
	}

	if err := connection.Send(appmessage.NewVerAckMessage()); err != nil {
		return err
	}
	ack, err := connection.Receive()
	if err != nil {
		return err
	}
	if _, ok := ack.(*appmessage.VerAckMessage); !ok {
		return errors.Errorf("expected a verack message, got %s", ack.Command())
	}
	return nil
}

func requestTemplate(connection *netadapter.Connection, minerAddress externalapi.DomainAddress) (*appmessage.TemplateMessage, error) {
	if err := connection.Send(appmessage.NewTemplateRequestMessage(minerAddress)); err != nil {
		return nil, err
	}
	message, err := connection.Receive()
	if err != nil {
		return nil, err
	}
	template, ok := message.(*appmessage.TemplateMessage)
	if !ok {
		return nil, errors.Errorf("expected a template message, got %s", message.Command())
	}
	return template, nil
}

// announceAndServe tells the node about a newly mined block the way any
// peer would - an inv, answered with a block request - rather than
// pushing the block unsolicited, since an unsolicited block is rejected
// as a protocol violation by the relay flow.
func announceAndServe(connection *netadapter.Connection, block *externalapi.DomainBlock) error {
	hash := codec.HeaderHash(block.Header)
	inv := appmessage.NewInvMessage([]*appmessage.InvVector{{Kind: appmessage.InventoryKindBlock, Hash: hash}})
	if err := connection.Send(inv); err != nil {
		return err
	}

	message, err := connection.Receive()
	if err != nil {
		return err
	}
	request, ok := message.(*appmessage.BlockRequestMessage)
	if !ok {
		return errors.Errorf("expected a block request, got %s", message.Command())
	}
	if !request.Hash.Equal(hash) {
		return errors.Errorf("node requested %s, expected %s", request.Hash, hash)
	}
	return connection.Send(appmessage.NewBlockMessage(block))
}
