// Copyright (c) 2025 The luna developers
// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config defines the command line and file configuration surface of
// the lunad binary.  The consensus core never reads it; everything the core
// needs is copied into immutable descriptors at construction time.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcutil"
	flags "github.com/jessevdk/go-flags"

	"github.com/lunaproject/lunad/core/types"
	"github.com/lunaproject/lunad/params"
	"github.com/lunaproject/lunad/services/mempool"
	"github.com/lunaproject/lunad/services/mining"
)

const (
	defaultConfigFilename = "lunad.conf"
	defaultLogFilename    = "lunad.log"
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultDebugLevel     = "info"
	defaultBlockMaxSize   = 750000
)

var (
	defaultHomeDir    = btcutil.AppDataDir("lunad", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// Config defines the configuration options for lunad.
//
// See LoadConfig for details on the configuration load process.
type Config struct {
	HomeDir       string `short:"A" long:"appdata" description:"Path to application home directory"`
	ShowVersion   bool   `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile    string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir       string `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir        string `long:"logdir" description:"Directory to log output"`
	NoFileLogging bool   `long:"nofilelogging" description:"Disable file logging"`
	DebugLevel    string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`

	TestNet bool `long:"testnet" description:"Use the test network"`
	PrivNet bool `long:"privnet" description:"Use the private test network"`

	Generate      bool     `long:"generate" description:"Generate (mine) coins using the CPU"`
	MiningAddrs   []string `long:"miningaddr" description:"Add the specified payment address to the list of addresses to use for generated blocks"`
	NumWorkers    int      `long:"numworkers" description:"Number of CPU mining worker goroutines (0 = number of cores)"`
	BlockMaxSize  int      `long:"blockmaxsize" description:"Maximum block size in bytes to be used when creating a block"`
	MaxTxPool     int      `long:"maxtxpool" description:"Maximum number of pending transactions held in the mempool"`
	MinRelayTxFee uint64   `long:"minrelaytxfee" description:"The minimum transaction fee in atoms/kB to be considered a non-zero fee"`

	Metrics bool `long:"metrics" description:"Periodically log runtime metrics"`
}

// LoadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1) Start with a default config with sane settings
//  2) Pre-parse the command line to check for an alternative config file
//  3) Load configuration file overwriting defaults with any specified options
//  4) Parse CLI options and overwrite/add any specified options
func LoadConfig() (*Config, []string, error) {
	cfg := Config{
		HomeDir:       defaultHomeDir,
		ConfigFile:    defaultConfigFile,
		DataDir:       defaultDataDir,
		LogDir:        defaultLogDir,
		DebugLevel:    defaultDebugLevel,
		BlockMaxSize:  defaultBlockMaxSize,
		MaxTxPool:     mempool.DefaultMaxTxPoolSize,
		MinRelayTxFee: mempool.DefaultMinRelayTxFee,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
		return nil, nil, err
	}
	if preCfg.ShowVersion {
		return &preCfg, nil, nil
	}

	// Update the home directory if specified.  Since the home directory
	// is updated, other variables need to be updated to reflect the new
	// location.
	if preCfg.HomeDir != defaultHomeDir {
		cfg.HomeDir, _ = filepath.Abs(preCfg.HomeDir)
		if preCfg.ConfigFile == defaultConfigFile {
			preCfg.ConfigFile = filepath.Join(cfg.HomeDir,
				defaultConfigFilename)
		}
		if preCfg.DataDir == defaultDataDir {
			cfg.DataDir = filepath.Join(cfg.HomeDir, defaultDataDirname)
		}
		if preCfg.LogDir == defaultLogDir {
			cfg.LogDir = filepath.Join(cfg.HomeDir, defaultLogDirname)
		}
	}

	// Load additional config from file.
	parser := flags.NewParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			return nil, nil, err
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		return nil, nil, err
	}

	// Multiple networks can't be selected simultaneously.
	if cfg.TestNet && cfg.PrivNet {
		return nil, nil, fmt.Errorf("the testnet and privnet params " +
			"can't be used together -- choose one of the two")
	}

	// Append the network type to the data and log directories so they are
	// namespaced per network.
	netParams := cfg.NetParams()
	cfg.DataDir = filepath.Join(cfg.DataDir, netParams.Name)
	cfg.LogDir = filepath.Join(cfg.LogDir, netParams.Name)

	// Mining addresses must parse for the active network.
	if _, err := cfg.MiningAddresses(); err != nil {
		return nil, nil, err
	}
	if cfg.Generate && len(cfg.MiningAddrs) == 0 {
		return nil, nil, fmt.Errorf("the generate flag is set, but " +
			"there are no mining addresses specified")
	}

	if !ValidDebugLevel(cfg.DebugLevel) {
		return nil, nil, fmt.Errorf("the specified debug level [%v] is "+
			"invalid", cfg.DebugLevel)
	}

	return &cfg, remainingArgs, nil
}

// validDebugLevels are the names go-flags help output advertises; the log
// package owns the authoritative parse.
var validDebugLevels = map[string]struct{}{
	"trace": {}, "debug": {}, "info": {}, "warn": {}, "error": {},
	"critical": {},
}

// ValidDebugLevel returns whether the passed string names a log level.
func ValidDebugLevel(level string) bool {
	_, ok := validDebugLevels[level]
	return ok
}

// NetParams returns the chain parameters selected by the network flags.
func (c *Config) NetParams() *params.Params {
	switch {
	case c.PrivNet:
		return &params.PrivNetParams
	case c.TestNet:
		return &params.TestNetParams
	default:
		return &params.MainNetParams
	}
}

// LogFile returns the path of the rotating log file.
func (c *Config) LogFile() string {
	return filepath.Join(c.LogDir, defaultLogFilename)
}

// MiningAddresses parses the configured mining address strings for the
// active network.
func (c *Config) MiningAddresses() ([]types.Address, error) {
	addrs := make([]types.Address, 0, len(c.MiningAddrs))
	for _, s := range c.MiningAddrs {
		addr := types.Address(s).Normalize()
		if !addr.IsValid() {
			return nil, fmt.Errorf("mining address %q failed to "+
				"decode", s)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// MempoolPolicy returns the mempool policy described by the configuration.
func (c *Config) MempoolPolicy() mempool.Policy {
	return mempool.Policy{
		MaxTxPoolSize: c.MaxTxPool,
		MaxTxSize:     mempool.DefaultMaxTxSize,
		MinRelayTxFee: c.MinRelayTxFee,
	}
}

// MiningPolicy returns the block template policy described by the
// configuration.
func (c *Config) MiningPolicy() mining.Policy {
	return mining.Policy{
		BlockMaxSize:  c.BlockMaxSize,
		TxMinFeePerKB: c.MinRelayTxFee,
	}
}
