// Copyright (c) 2025 The luna developers
// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package miner

import (
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lunaproject/lunad/core/blockchain"
	"github.com/lunaproject/lunad/core/types"
	"github.com/lunaproject/lunad/core/types/pow"
	"github.com/lunaproject/lunad/metrics"
	"github.com/lunaproject/lunad/params"
	"github.com/lunaproject/lunad/services/mining"
)

const (
	// maxNonce is the maximum value a nonce can be in a block header.
	maxNonce = ^uint64(0)

	// hpsUpdateSecs is the number of seconds to wait in between each
	// update to the hashes per second monitor.
	hpsUpdateSecs = 10

	// hashUpdateSecs is the number of seconds each worker waits in between
	// notifying the speed monitor with how many hashes have been completed
	// while they are actively searching for a solution.  This is done to
	// reduce the amount of syncs between the workers that must be done to
	// keep track of the hashes per second.
	hashUpdateSecs = 15

	// staleCheckInterval is how often the solve loop polls the chain tip
	// version and the transaction source for changes that make the
	// current candidate stale.
	staleCheckInterval = 100 * time.Millisecond
)

// defaultNumWorkers is the default number of workers to use for mining.
var defaultNumWorkers = uint32(runtime.NumCPU())

// Config is a descriptor containing the cpu miner configuration.
type Config struct {
	// ChainParams identifies which chain parameters the cpu miner is
	// associated with.
	ChainParams *params.Params

	// MiningPolicy controls block template generation.
	MiningPolicy mining.Policy

	// Chain is the chain instance mined blocks are submitted to.
	Chain *blockchain.BlockChain

	// TxSource defines the transaction source to use for block templates.
	TxSource mining.TxSource

	// MiningAddrs is a list of payment addresses to use for the generated
	// blocks.  Each generated block will randomly choose one of them.
	MiningAddrs []types.Address
}

// CPUMiner provides facilities for solving blocks (mining) using the CPU in
// a concurrency-safe manner.  It consists of two main goroutines -- a speed
// monitor and a controller for worker goroutines which generate and solve
// blocks.  The number of goroutines can be set via the SetNumWorkers
// function, but the default is based on the number of processor cores in the
// system which is typically sufficient.
type CPUMiner struct {
	sync.Mutex
	cfg               Config
	extraNonce        uint64
	numWorkers        uint32
	started           bool
	discreteMining    bool
	submitBlockLock   sync.Mutex
	wg                sync.WaitGroup
	workerWg          sync.WaitGroup
	updateNumWorkers  chan struct{}
	queryHashesPerSec chan float64
	updateHashes      chan uint64
	speedMonitorQuit  chan struct{}
	quit              chan struct{}
}

// speedMonitor handles tracking the number of hashes per second the mining
// process is performing.  It must be run as a goroutine.
func (m *CPUMiner) speedMonitor() {
	log.Tracef("CPU miner speed monitor started")

	var hashesPerSec float64
	var totalHashes uint64
	ticker := time.NewTicker(time.Second * hpsUpdateSecs)
	defer ticker.Stop()

out:
	for {
		select {
		// Periodic updates from the workers with how many hashes they
		// have performed.
		case numHashes := <-m.updateHashes:
			totalHashes += numHashes
			metrics.HashMeter.Mark(int64(numHashes))

		// Time to update the hashes per second.
		case <-ticker.C:
			curHashesPerSec := float64(totalHashes) / hpsUpdateSecs
			if hashesPerSec == 0 {
				hashesPerSec = curHashesPerSec
			}
			hashesPerSec = (hashesPerSec + curHashesPerSec) / 2
			totalHashes = 0
			if hashesPerSec != 0 {
				log.Debugf("Hash speed: %6.0f kilohashes/s",
					hashesPerSec/1000)
			}

		// Request for the number of hashes per second.
		case m.queryHashesPerSec <- hashesPerSec:
			// Nothing to do.

		case <-m.speedMonitorQuit:
			break out
		}
	}

	m.wg.Done()
	log.Tracef("CPU miner speed monitor done")
}

// submitBlock submits the passed block to the chain after ensuring it passes
// all of the consensus validation rules.  A locally mined block takes exactly
// the same acceptance path a remote block would.
func (m *CPUMiner) submitBlock(block *types.SerializedBlock) bool {
	m.submitBlockLock.Lock()
	defer m.submitBlockLock.Unlock()

	isMainChain, isOrphan, err := m.cfg.Chain.ProcessBlock(block,
		blockchain.BFNone)
	if err != nil {
		// Anything other than a rule violation is an unexpected error,
		// so log that error as an internal error.
		if _, ok := err.(blockchain.RuleError); !ok {
			log.Errorf("Unexpected error while processing block "+
				"submitted via CPU miner: %v", err)
			return false
		}
		log.Debugf("Block submitted via CPU miner rejected: %v", err)
		return false
	}
	if isOrphan {
		log.Debugf("Block submitted via CPU miner is an orphan")
		return false
	}
	if !isMainChain {
		log.Debugf("Block submitted via CPU miner extended a side chain")
		return false
	}

	coinbase := block.Block().Transactions[0]
	log.Infof("Block submitted via CPU miner accepted (hash %v, height "+
		"%d, amount %v)", block.Hash(), block.Height(),
		types.Amount(coinbase.Amount))
	return true
}

// solveBlock attempts to find some combination of a nonce and current
// timestamp which makes the passed block hash to a value less than the target
// difficulty.  The timestamp is updated periodically and the passed block is
// modified with all tweaks during this process.  This means that when the
// function returns true, the block is ready for submission.
//
// The search aborts and returns false whenever the chain tip or the
// transaction source changes underneath it, since the candidate is then
// building on a stale parent or leaving fee revenue on the table.
func (m *CPUMiner) solveBlock(block *types.Block, tipVersion uint64, quit chan struct{}) bool {
	header := &block.Header
	targetDifficulty := pow.CompactToBig(header.Difficulty)
	lastGenerated := time.Now()
	lastTxUpdate := m.cfg.TxSource.LastUpdated()
	hashesCompleted := uint64(0)

	ticker := time.NewTicker(staleCheckInterval)
	defer ticker.Stop()

	for i := uint64(0); i <= maxNonce; i++ {
		select {
		case <-quit:
			return false

		case <-ticker.C:
			m.updateHashes <- hashesCompleted
			hashesCompleted = 0

			// The current block is stale if the chain tip moved or
			// the source pool has been updated since the template
			// was generated, as that would otherwise leave newly
			// arrived higher-fee transactions unmined for the full
			// solve duration.
			if m.cfg.Chain.TipVersion() != tipVersion {
				return false
			}
			if m.cfg.TxSource.LastUpdated() != lastTxUpdate &&
				time.Now().After(lastGenerated.Add(time.Minute)) {
				return false
			}

			mining.UpdateBlockTime(block, m.cfg.Chain)

		default:
			// Non-blocking select to fall through
		}

		header.Nonce = i
		h := header.BlockHash()
		hashesCompleted++

		if pow.HashToBig(&h).Cmp(targetDifficulty) <= 0 {
			m.updateHashes <- hashesCompleted
			return true
		}
	}

	return false
}

// generateBlocks is a worker that is controlled by the miningWorkerController.
// It is self contained in that it creates block templates and attempts to
// solve them while detecting when it is performing stale work and reacting
// accordingly by generating a new block template.  When a block is solved, it
// is submitted.  It must be run as a goroutine.
func (m *CPUMiner) generateBlocks(quit chan struct{}) {
	log.Tracef("Starting generate blocks worker")

	// Seed the payment address selection so concurrent workers do not all
	// pick the same one in lockstep.
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

out:
	for {
		// Quit when the miner is stopped.
		select {
		case <-quit:
			break out
		default:
			// Non-blocking select to fall through
		}

		// Choose a payment address at random and build a template on
		// the current best tip.
		payToAddr := m.cfg.MiningAddrs[rng.Intn(len(m.cfg.MiningAddrs))]
		tipVersion := m.cfg.Chain.TipVersion()
		template, err := mining.NewBlockTemplate(&m.cfg.MiningPolicy,
			m.cfg.ChainParams, m.cfg.Chain, m.cfg.TxSource, payToAddr)
		if err != nil {
			log.Errorf("Failed to create new block template: %v", err)
			continue
		}
		mining.UpdateExtraNonce(template,
			atomic.AddUint64(&m.extraNonce, 1))

		// Attempt to solve the block.  The function will exit early
		// with false when conditions that trigger a stale block, so a
		// new block template can be generated.
		if m.solveBlock(template.Block, tipVersion, quit) {
			block := types.NewBlock(template.Block)
			m.submitBlock(block)
		}
	}

	m.workerWg.Done()
	log.Tracef("Generate blocks worker done")
}

// miningWorkerController launches the worker goroutines that are used to
// generate block templates and solve them.  It also provides the ability to
// dynamically adjust the number of running worker goroutines.  It must be run
// as a goroutine.
func (m *CPUMiner) miningWorkerController() {
	// launchWorkers groups common code to launch a specified number of
	// workers for generating blocks.
	var runningWorkers []chan struct{}
	launchWorkers := func(numWorkers uint32) {
		for i := uint32(0); i < numWorkers; i++ {
			quit := make(chan struct{})
			runningWorkers = append(runningWorkers, quit)

			m.workerWg.Add(1)
			go m.generateBlocks(quit)
		}
	}

	// Launch the current number of workers by default.
	runningWorkers = make([]chan struct{}, 0, m.numWorkers)
	launchWorkers(m.numWorkers)

out:
	for {
		select {
		// Update the number of running workers.
		case <-m.updateNumWorkers:
			// No change.
			numRunning := uint32(len(runningWorkers))
			if m.numWorkers == numRunning {
				continue
			}

			// Add new workers.
			if m.numWorkers > numRunning {
				launchWorkers(m.numWorkers - numRunning)
				continue
			}

			// Signal the most recently created goroutines to exit.
			for i := numRunning - 1; i >= m.numWorkers; i-- {
				close(runningWorkers[i])
				runningWorkers[i] = nil
				runningWorkers = runningWorkers[:i]
			}

		case <-m.quit:
			for _, quit := range runningWorkers {
				close(quit)
			}
			break out
		}
	}

	// Wait until all workers shut down to stop the speed monitor since
	// they rely on being able to send updates to it.
	m.workerWg.Wait()
	close(m.speedMonitorQuit)
	m.wg.Done()
}

// Start begins the CPU mining process as well as the speed monitor used to
// track hashing metrics.  Calling this function when the CPU miner has
// already been started will have no effect.
//
// This function is safe for concurrent access.
func (m *CPUMiner) Start() {
	m.Lock()
	defer m.Unlock()

	// Nothing to do if the miner is already running or if running in
	// discrete mode (using GenerateNBlocks).
	if m.started || m.discreteMining {
		return
	}

	m.quit = make(chan struct{})
	m.speedMonitorQuit = make(chan struct{})
	m.wg.Add(2)
	go m.speedMonitor()
	go m.miningWorkerController()

	m.started = true
	log.Infof("CPU miner started")
}

// Stop gracefully stops the mining process by signalling all workers, and the
// speed monitor to quit.  Calling this function when the CPU miner has not
// already been started will have no effect.
//
// This function is safe for concurrent access.
func (m *CPUMiner) Stop() {
	m.Lock()
	defer m.Unlock()

	// Nothing to do if the miner is not currently running or if running in
	// discrete mode (using GenerateNBlocks).
	if !m.started || m.discreteMining {
		return
	}

	close(m.quit)
	m.wg.Wait()
	m.started = false
	log.Infof("CPU miner stopped")
}

// IsMining returns whether or not the CPU miner has been started and is
// therefore currently mining.
//
// This function is safe for concurrent access.
func (m *CPUMiner) IsMining() bool {
	m.Lock()
	defer m.Unlock()

	return m.started
}

// HashesPerSecond returns the number of hashes per second the mining process
// is performing.  0 is returned if the miner is not currently running.
//
// This function is safe for concurrent access.
func (m *CPUMiner) HashesPerSecond() float64 {
	m.Lock()
	defer m.Unlock()

	// Nothing to do if the miner is not currently running.
	if !m.started {
		return 0
	}

	return <-m.queryHashesPerSec
}

// SetNumWorkers sets the number of workers to create which solve blocks.  Any
// negative values will cause a default number of workers to be used which is
// based on the number of processor cores in the system.  A value of 0 will
// cause all CPU mining to be stopped.
//
// This function is safe for concurrent access.
func (m *CPUMiner) SetNumWorkers(numWorkers int32) {
	if numWorkers == 0 {
		m.Stop()
	}

	// Don't lock until after the first check since Stop does its own
	// locking.
	m.Lock()
	defer m.Unlock()

	// Use default if provided value is negative.
	if numWorkers < 0 {
		m.numWorkers = defaultNumWorkers
	} else {
		m.numWorkers = uint32(numWorkers)
	}

	// When the miner is already running, notify the controller about the
	// the change.
	if m.started {
		m.updateNumWorkers <- struct{}{}
	}
}

// NumWorkers returns the number of workers which are running to solve blocks.
//
// This function is safe for concurrent access.
func (m *CPUMiner) NumWorkers() int32 {
	m.Lock()
	defer m.Unlock()

	return int32(m.numWorkers)
}

// GenerateNBlocks generates the requested number of blocks in the discrete
// mining mode.  It is self contained in that it creates block templates and
// attempts to solve them while detecting when it is performing stale work.
// When a block is solved, it is submitted.
//
// It returns a list of the hashes of generated blocks.
func (m *CPUMiner) GenerateNBlocks(n uint32) ([]*types.SerializedBlock, error) {
	m.Lock()

	// Respond with an error if server is already mining.
	if m.started || m.discreteMining {
		m.Unlock()
		return nil, errors.New("server is already CPU mining, call " +
			"`setgenerate 0` before calling discrete `generate` commands")
	}

	if !m.cfg.ChainParams.GenerateSupported {
		m.Unlock()
		return nil, fmt.Errorf("no support for `generate` on the "+
			"current network, %s, as it's unlikely to be possible "+
			"to mine a block with the CPU", m.cfg.ChainParams.Name)
	}

	m.started = true
	m.discreteMining = true

	m.speedMonitorQuit = make(chan struct{})
	m.wg.Add(1)
	go m.speedMonitor()

	m.Unlock()

	log.Tracef("Generating %d blocks", n)

	i := uint32(0)
	blocks := make([]*types.SerializedBlock, 0, n)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for {
		// Read quitCh when we get a signal to return.
		payToAddr := m.cfg.MiningAddrs[rng.Intn(len(m.cfg.MiningAddrs))]
		tipVersion := m.cfg.Chain.TipVersion()
		template, err := mining.NewBlockTemplate(&m.cfg.MiningPolicy,
			m.cfg.ChainParams, m.cfg.Chain, m.cfg.TxSource, payToAddr)
		if err != nil {
			log.Errorf("Failed to create new block template: %v", err)
			continue
		}
		mining.UpdateExtraNonce(template,
			atomic.AddUint64(&m.extraNonce, 1))

		// Attempt to solve the block.  The function will exit early
		// with false when conditions that trigger a stale block, so
		// a new block template can be generated.  When the return is
		// true a solution was found, so submit the solved block.
		if m.solveBlock(template.Block, tipVersion, nil) {
			block := types.NewBlock(template.Block)
			if m.submitBlock(block) {
				blocks = append(blocks, block)
				i++
			}
		}

		if i == n {
			log.Tracef("Generated %d blocks", i)
			m.Lock()
			close(m.speedMonitorQuit)
			m.wg.Wait()
			m.started = false
			m.discreteMining = false
			m.Unlock()
			return blocks, nil
		}
	}
}

// New returns a new instance of a CPU miner for the provided configuration.
// Use Start to begin the continuous mining process and GenerateNBlocks for
// discrete mining.  See the documentation for CPUMiner type for more details.
func New(cfg *Config) *CPUMiner {
	return &CPUMiner{
		cfg:               *cfg,
		numWorkers:        defaultNumWorkers,
		updateNumWorkers:  make(chan struct{}),
		queryHashesPerSec: make(chan float64),
		updateHashes:      make(chan uint64),
	}
}
