// Package config defines the operational configuration of the swap
// daemon, parsed from a config file and command-line flags with
// go-flags, in the style of the teacher daemon's top-level Config.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename  = "dcrswap.conf"
	defaultDataDirname     = "data"
	defaultLogLevel        = "info"
	defaultLogDirname      = "logs"
	defaultLogFilename     = "dcrswap.log"
	defaultMaxLogFiles     = 3
	defaultMaxLogFileSize  = 10
	defaultCheckpointDir   = "checkpoints"
	defaultSwapIndexDir    = "swapindex"
	defaultRaceThreshold   = 6
	defaultPeerBindAddr    = "localhost:9875"
	defaultClientBindAddr  = "localhost:9876"
	defaultPrometheusAddr  = "localhost:9877"
)

// ChainConfig holds the RPC connection parameters for one syncer
// instance, one per (chain, network) pair the daemon is configured to
// service (§6 Syncer addressing).
type ChainConfig struct {
	RPCHost string `long:"rpchost" description:"RPC host:port of the backing full node or wallet"`
	RPCUser string `long:"rpcuser" description:"RPC username"`
	RPCPass string `long:"rpcpass" description:"RPC password"`
	RPCCert string `long:"rpccert" description:"Path to the RPC server's TLS certificate"`
}

// Config is the full daemon configuration. Every field carries the
// struct tags go-flags uses to parse both a config file and
// command-line overrides, matching the teacher daemon's convention of
// a single flat Config struct consumed by jessevdk/go-flags.
type Config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir    string `short:"b" long:"datadir" description:"The directory to store the daemon's checkpoint and index data"`

	LogDir         string `long:"logdir" description:"Directory to log output"`
	MaxLogFiles    int    `long:"maxlogfiles" description:"Maximum log files to keep (0 for no rotation)"`
	MaxLogFileSize int64  `long:"maxlogfilesize" description:"Maximum log file size in MB"`
	DebugLevel     string `short:"d" long:"debuglevel" description:"Logging level for all subsystems"`

	PeerBindAddr   string `long:"peerbind" description:"Address to listen on for counterparty peer connections"`
	ClientBindAddr string `long:"clientbind" description:"Address to listen on for local control-plane clients"`

	PrometheusAddr string `long:"prometheusaddr" description:"Address to expose Prometheus metrics on, empty to disable"`

	Arbitrating ChainConfig `group:"Arbitrating" namespace:"arbitrating" description:"Arbitrating-chain (Bitcoin-style) RPC settings"`
	Accordant   ChainConfig `group:"Accordant" namespace:"accordant" description:"Accordant-chain (Monero-style) RPC settings"`

	// RaceThreshold is the safety margin (in blocks) temporal safety
	// checks require between racing spends (§4.2 race_thr).
	RaceThreshold uint32 `long:"racethreshold" description:"Minimum block margin required between racing spend paths"`
}

// DefaultConfig returns a Config populated with the daemon's default
// values, the way the teacher daemon's loadConfig seeds its defaults
// before parsing flags over them.
func DefaultConfig() Config {
	dataDir := defaultAppDataDir()
	return Config{
		DataDir:        dataDir,
		LogDir:         filepath.Join(dataDir, defaultLogDirname),
		MaxLogFiles:    defaultMaxLogFiles,
		MaxLogFileSize: defaultMaxLogFileSize,
		DebugLevel:     defaultLogLevel,
		PeerBindAddr:   defaultPeerBindAddr,
		ClientBindAddr: defaultClientBindAddr,
		PrometheusAddr: defaultPrometheusAddr,
		RaceThreshold:  defaultRaceThreshold,
	}
}

// CheckpointDir is the directory checkpoint files are written to.
func (c Config) CheckpointDir() string {
	return filepath.Join(c.DataDir, defaultCheckpointDir)
}

// SwapIndexDir is the directory the badger-backed swap index lives in.
func (c Config) SwapIndexDir() string {
	return filepath.Join(c.DataDir, defaultSwapIndexDir)
}

// LogFilePath is the full path of the daemon's rotated log file.
func (c Config) LogFilePath() string {
	return filepath.Join(c.LogDir, defaultLogFilename)
}

// Load parses the config file (if present) and then command-line
// arguments over it, following the teacher daemon's two-pass
// go-flags parsing convention: first an IniParse pass over the config
// file, then a full flags.Parse pass so CLI flags win.
func Load(args []string) (*Config, error) {
	cfg := DefaultConfig()

	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default)
	if _, err := preParser.ParseArgs(args); err != nil {
		return nil, err
	}
	if preCfg.ConfigFile != "" {
		cfg.ConfigFile = preCfg.ConfigFile
	} else {
		cfg.ConfigFile = filepath.Join(cfg.DataDir, defaultConfigFilename)
	}

	if _, err := os.Stat(cfg.ConfigFile); err == nil {
		parser := flags.NewParser(&cfg, flags.Default)
		if err := flags.NewIniParser(parser).ParseFile(cfg.ConfigFile); err != nil {
			return nil, fmt.Errorf("config: parsing config file: %w", err)
		}
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if cfg.RaceThreshold == 0 {
		return nil, fmt.Errorf("config: race threshold must be positive")
	}

	return &cfg, nil
}

func defaultAppDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".", "."+"dcrswap")
	}
	return filepath.Join(home, ".dcrswap")
}
