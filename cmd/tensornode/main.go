// Command tensornode runs a full node: it stores chain state, validates
// and relays blocks/transactions/task claims over the network, and
// optionally mines against its own mempool and task pool. Grounded on
// kaspad's root-level kaspad.go wiring shape (parse config, construct
// every subsystem, start them, block on an interrupt signal).
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tensorchain/tensorchain/app"
	"github.com/tensorchain/tensorchain/app/protocol"
	"github.com/tensorchain/tensorchain/app/protocol/flowcontext"
	"github.com/tensorchain/tensorchain/domain/chainparams"
	"github.com/tensorchain/tensorchain/domain/consensus"
	"github.com/tensorchain/tensorchain/infrastructure/config"
	"github.com/tensorchain/tensorchain/infrastructure/network/addressmanager"
	"github.com/tensorchain/tensorchain/logger"
	"github.com/tensorchain/tensorchain/util/panics"
)

var log = logger.Get(logger.TagNode)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		os.Exit(1)
	}

	if logFile := cfg.LogFilePath(); logFile != "" {
		if err := logger.InitLogRotator(logFile); err != nil {
			os.Exit(1)
		}
	}
	if err := logger.ParseAndSetLevels(cfg.LogLevel); err != nil {
		log.Warnf("failed to parse log level %q: %s", cfg.LogLevel, err)
	}

	cs, err := consensus.New(cfg.DBPath())
	if err != nil {
		panics.Exit(log, "failed to open consensus store: "+err.Error())
	}
	defer cs.Close()

	if err := cs.EnsureGenesis(); err != nil {
		panics.Exit(log, "failed to apply genesis block: "+err.Error())
	}

	domain := app.New(cs, chainparams.MempoolMaxBytes)
	domain.Start()
	defer domain.Stop()

	addressManager := addressmanager.New(&addressmanager.Config{
		MaxInboundPeers:         cfg.MaxInboundPeers,
		MaxOutboundPeers:        cfg.MaxOutboundPeers,
		MisbehaviorBanThreshold: misbehaviorBanThreshold,
		BanDuration:             banDuration,
	})

	protocolConfig := &flowcontext.Config{
		ProtocolVersion: chainparams.ProtocolVersion,
		NetworkID:       chainparams.NetworkID,
		UserAgent:       "/tensornode:0.1.0/",
		ServicesBitmask: 0,
	}

	manager, err := protocol.NewManager(protocolConfig, domain, addressManager, []string{cfg.Listen})
	if err != nil {
		panics.Exit(log, "failed to construct the protocol manager: "+err.Error())
	}
	if err := manager.Start(); err != nil {
		panics.Exit(log, "failed to start the protocol manager: "+err.Error())
	}
	defer manager.Stop()

	for _, addr := range cfg.ConnectPeers {
		addressManager.AddAddress(addr)
		if err := manager.Connect(addr); err != nil {
			log.Warnf("failed to connect to %s: %s", addr, err)
		}
	}

	var worker *app.Worker
	if cfg.Mine {
		minerAddress, err := cfg.ParsedMinerAddress()
		if err != nil {
			panics.Exit(log, "invalid --mineraddress: "+err.Error())
		}
		worker = app.NewWorker(domain, minerAddress)
		worker.Start()
		log.Infof("mining to %s", minerAddress)
	}

	log.Infof("tensornode listening on %s", cfg.Listen)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	log.Infof("shutting down")
	if worker != nil {
		worker.Stop()
	}
}

const misbehaviorBanThreshold = 100

var banDuration = 24 * time.Hour
