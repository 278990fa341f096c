// Copyright (c) 2025 The luna developers
// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/lunaproject/lunad/config"
	"github.com/lunaproject/lunad/database"
	"github.com/lunaproject/lunad/log"
	"github.com/lunaproject/lunad/node"
	"github.com/lunaproject/lunad/version"
)

// lunadMain is the real main function for lunad.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit is called.
func lunadMain() error {
	// Load configuration and parse command line.
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.ShowVersion {
		fmt.Printf("lunad version %s (Go version %s)\n",
			version.String(), runtime.Version())
		return nil
	}

	// Initialize logging before anything else emits output.
	if !cfg.NoFileLogging {
		log.InitLogRotator(cfg.LogFile())
		defer log.CloseLogRotator()
	}
	log.SetLogLevels(cfg.DebugLevel)

	log.Root().Infof("Version %s", version.String())

	db, err := database.NewLevelDB(cfg.DataDir)
	if err != nil {
		log.Root().Errorf("Failed to open database: %v", err)
		return err
	}

	n, err := node.New(cfg, db)
	if err != nil {
		db.Close()
		log.Root().Errorf("Failed to create node: %v", err)
		return err
	}
	if err := n.Start(); err != nil {
		db.Close()
		log.Root().Errorf("Failed to start node: %v", err)
		return err
	}
	defer n.Stop()

	// Block until an interrupt arrives.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	sig := <-interrupt
	log.Root().Infof("Received signal %v, shutting down", sig)
	return nil
}

func main() {
	if err := lunadMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
