// Package config parses the node's command-line/config-file flags,
// grounded on kaspad's kasparovd/config.Config: a flat go-flags
// struct plus a Parse function that resolves derived paths and applies
// defaults, rather than the fuller btcd-style INI-plus-flags config the
// rest of kaspad's daemons carry (kaspad names no config file
// format of its own, so the simpler of the two kaspad shapes is the one
// adopted here).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/tensorchain/tensorchain/domain/consensus/model/externalapi"
	"github.com/tensorchain/tensorchain/keys"
)

const (
	defaultDataDirname  = "tensornode"
	defaultLogFilename  = "tensornode.log"
	defaultListenAddr   = "0.0.0.0:28964"
	defaultMaxInbound   = 64
	defaultMaxOutbound  = 16
	defaultLogLevel     = "info"
)

// Config holds every node-level setting names.
type Config struct {
	DataDir string `long:"datadir" description:"Directory to store blocks, chain state, and tasks"`
	Listen  string `long:"listen" description:"Address to listen for incoming peer connections on"`

	ConnectPeers []string `long:"connect" description:"Address of a peer to connect to on startup (may be given multiple times)"`

	MaxInboundPeers  int `long:"maxinbound" description:"Maximum number of inbound peer connections"`
	MaxOutboundPeers int `long:"maxoutbound" description:"Maximum number of outbound peer connections"`

	Mine         bool   `long:"mine" description:"Run an in-process miner against this node's own mempool and task pool"`
	MinerAddress string `long:"mineraddress" description:"Hex-encoded address the in-process miner's coinbase rewards should pay"`

	LogLevel string `long:"loglevel" description:"Logging level: trace, debug, info, warn, error, critical, or a tag=level list"`
	NoFile   bool   `long:"nologfile" description:"Disable writing a rotating log file; log only to stdout"`
}

// Parse parses os.Args (excluding argv[0]) into a Config, applying
// defaults and resolving DataDir to an absolute path.
func Parse() (*Config, error) {
	cfg := &Config{
		DataDir:          defaultDataDir(),
		Listen:           defaultListenAddr,
		MaxInboundPeers:  defaultMaxInbound,
		MaxOutboundPeers: defaultMaxOutbound,
		LogLevel:         defaultLogLevel,
	}

	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		return nil, err
	}

	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve data directory")
	}
	cfg.DataDir = absDataDir
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, errors.Wrapf(err, "failed to create data directory %s", cfg.DataDir)
	}

	if cfg.Mine && cfg.MinerAddress == "" {
		return nil, errors.New("--mine requires --mineraddress")
	}

	return cfg, nil
}

// DBPath returns the path the consensus store should open within DataDir.
func (cfg *Config) DBPath() string { return filepath.Join(cfg.DataDir, "chain") }

// LogFilePath returns the path the rotating log file should be written
// to, or "" if file logging is disabled.
func (cfg *Config) LogFilePath() string {
	if cfg.NoFile {
		return ""
	}
	return filepath.Join(cfg.DataDir, "logs", defaultLogFilename)
}

// ParsedMinerAddress decodes MinerAddress, if set.
func (cfg *Config) ParsedMinerAddress() (externalapi.DomainAddress, error) {
	if cfg.MinerAddress == "" {
		return nil, errors.New("no miner address configured")
	}
	return keys.ParseAddress(cfg.MinerAddress)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", defaultDataDirname)
	}
	return filepath.Join(home, fmt.Sprintf(".%s", defaultDataDirname))
}
