// Copyright (c) 2025 The luna developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package node assembles the consensus core, the mempool, the miner and the
// wallet into a running service and owns their lifecycles.
package node

import (
	"fmt"
	"sync"
	"time"

	"github.com/lunaproject/lunad/config"
	"github.com/lunaproject/lunad/core/blockchain"
	"github.com/lunaproject/lunad/core/types"
	"github.com/lunaproject/lunad/database"
	"github.com/lunaproject/lunad/log"
	"github.com/lunaproject/lunad/metrics"
	"github.com/lunaproject/lunad/params"
	"github.com/lunaproject/lunad/services/mempool"
	"github.com/lunaproject/lunad/services/miner"
	"github.com/lunaproject/lunad/services/wallet"
)

// snapshotKey is the database key the chain state snapshot persists under.
var snapshotKey = []byte("chain/snapshot")

// Node wires the consensus core to its collaborators and manages startup and
// shutdown ordering.
type Node struct {
	cfg    *config.Config
	params *params.Params

	db     database.DB
	chain  *blockchain.BlockChain
	txPool *mempool.TxPool
	miner  *miner.CPUMiner
	wallet *wallet.Wallet

	quit     chan struct{}
	stopOnce sync.Once
}

// New builds a node from the given configuration.  The chain starts at
// genesis; persisted state is replayed in Start.
func New(cfg *config.Config, db database.DB) (*Node, error) {
	n := &Node{
		cfg:    cfg,
		params: cfg.NetParams(),
		db:     db,
		quit:   make(chan struct{}),
	}

	chain, err := blockchain.New(&blockchain.Config{
		ChainParams:   n.params,
		Notifications: n.handleChainNotification,
	})
	if err != nil {
		return nil, err
	}
	n.chain = chain

	n.txPool = mempool.New(&mempool.Config{
		Policy:      cfg.MempoolPolicy(),
		ChainParams: n.params,
		BestHeight:  func() uint64 { return chain.BestSnapshot().Height },
		StateView:   chain.StateView,
	})

	miningAddrs, err := cfg.MiningAddresses()
	if err != nil {
		return nil, err
	}
	w, err := wallet.Open(db, n.params, chain, n.SubmitTransaction)
	if err != nil {
		return nil, err
	}
	n.wallet = w

	// Without configured mining addresses, mine to a wallet address,
	// creating one on first use.
	if len(miningAddrs) == 0 {
		addrs := w.Addresses()
		if len(addrs) == 0 {
			addr, err := w.NewAddress()
			if err != nil {
				return nil, err
			}
			addrs = []types.Address{addr}
		}
		miningAddrs = addrs
	}

	n.miner = miner.New(&miner.Config{
		ChainParams:  n.params,
		MiningPolicy: cfg.MiningPolicy(),
		Chain:        chain,
		TxSource:     n.txPool,
		MiningAddrs:  miningAddrs,
	})

	return n, nil
}

// handleChainNotification keeps the mempool and the metrics in sync with
// chain events.  The chain delivers notifications after releasing its lock,
// so handlers are free to take subsystem locks that themselves guard reads
// of chain state.
func (n *Node) handleChainNotification(notification *blockchain.Notification) {
	block, ok := notification.Data.(*types.SerializedBlock)
	if !ok {
		return
	}

	switch notification.Type {
	case blockchain.BlockConnected:
		n.txPool.BlockConnected(block)
		metrics.BlockConnectedMeter.Mark(1)

	case blockchain.BlockDisconnected:
		n.txPool.BlockDisconnected(block)

	case blockchain.ReorganizeDone:
		metrics.ReorgCounter.Inc(1)
		log.Root().Infof("Chain reorganized to tip %v at height %d",
			block.Hash(), block.Height())
	}
}

// SubmitTransaction routes a signed transaction from the wallet facade or a
// remote source into the mempool.
func (n *Node) SubmitTransaction(tx *types.Tx) error {
	_, err := n.txPool.ProcessTransaction(tx)
	return err
}

// ReceiveBlock routes an externally received block into the chain.  It
// reports whether the block joined the main chain and whether it was cached
// as an orphan.
func (n *Node) ReceiveBlock(block *types.SerializedBlock) (bool, bool, error) {
	defer metrics.BlockProcessTimer.UpdateSince(time.Now())
	return n.chain.ProcessBlock(block, blockchain.BFNone)
}

// Start restores persisted chain state and launches the configured services.
// A corrupt snapshot is fatal: the operator has to repair or remove the data
// directory rather than have the node silently start from genesis.
func (n *Node) Start() error {
	blob, err := n.db.Get(snapshotKey)
	switch err {
	case nil:
		if err := n.chain.ImportState(blob); err != nil {
			return fmt.Errorf("stored chain state is unusable: %v", err)
		}
	case database.ErrNotFound:
		log.Root().Infof("No stored chain state, starting from genesis")
	default:
		return err
	}

	if n.cfg.Metrics {
		go metrics.LogEvery(time.Minute, log.Root().Infof, n.quit)
	}
	if n.cfg.Generate {
		if n.cfg.NumWorkers > 0 {
			n.miner.SetNumWorkers(int32(n.cfg.NumWorkers))
		}
		n.miner.Start()
	}

	best := n.chain.BestSnapshot()
	log.Root().Infof("Node started (network %s, height %d, tip %v, "+
		"supply %.8f LUN)", n.params.Name, best.Height, best.Hash,
		types.Amount(n.chain.TotalIssued()).ToCoins())
	return nil
}

// Stop halts the services in reverse startup order and persists the chain
// state.  It is idempotent.
func (n *Node) Stop() error {
	var stopErr error
	n.stopOnce.Do(func() {
		close(n.quit)
		n.miner.Stop()

		blob, err := n.chain.ExportState()
		if err == nil {
			err = n.db.Put(snapshotKey, blob)
		}
		if err != nil {
			stopErr = fmt.Errorf("failed to persist chain state: %v", err)
			log.Root().Errorf("%v", stopErr)
		}

		if err := n.db.Close(); err != nil && stopErr == nil {
			stopErr = err
		}
		log.Root().Infof("Node stopped")
	})
	return stopErr
}

// Chain returns the chain manager.
func (n *Node) Chain() *blockchain.BlockChain { return n.chain }

// TxPool returns the memory pool.
func (n *Node) TxPool() *mempool.TxPool { return n.txPool }

// Miner returns the CPU miner.
func (n *Node) Miner() *miner.CPUMiner { return n.miner }

// Wallet returns the wallet facade.
func (n *Node) Wallet() *wallet.Wallet { return n.wallet }
