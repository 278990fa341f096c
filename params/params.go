// Copyright (c) 2025 The luna developers
// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package params defines the network parameters consumed by the consensus
// core.  The core never reads configuration directly; everything tunable is
// carried in a Params value fixed at construction.
package params

import (
	"math/big"
	"time"

	"github.com/lunaproject/lunad/common/hash"
	"github.com/lunaproject/lunad/core/types"
	"github.com/lunaproject/lunad/core/types/pow"
)

var (
	// mainPowLimit is the highest proof of work value a main network
	// block can have.  It is the value 2^224 - 1.
	mainPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

	// testNetPowLimit is the highest proof of work value a test network
	// block can have.  It is the value 2^232 - 1.
	testNetPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 232), bigOne)

	// privNetPowLimit is the highest proof of work value a private
	// network block can have.  It is the value 2^250 - 1, so blocks solve
	// in a handful of hash attempts.
	privNetPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 250), bigOne)

	bigOne = big.NewInt(1)
)

// Params defines a luna network by its parameters.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// AddressVersion is the version byte embedded in addresses.
	AddressVersion byte

	// GenesisBlock defines the first block of the chain.
	GenesisBlock *types.Block

	// GenesisHash is the starting block hash.
	GenesisHash hash.Hash

	// PowLimit defines the highest allowed proof of work value for a
	// block as a uint256.
	PowLimit *big.Int

	// PowLimitBits defines the highest allowed proof of work value for a
	// block in compact form.
	PowLimitBits uint32

	// TargetTimePerBlock is the desired amount of time between blocks.
	TargetTimePerBlock time.Duration

	// WorkDiffWindowSize is the number of blocks between difficulty
	// retargets.
	WorkDiffWindowSize uint64

	// RetargetAdjustmentFactor is the clamp applied to each retarget: the
	// new target may move by at most this factor per window.
	RetargetAdjustmentFactor int64

	// BaseSubsidy is the starting block reward in atoms.
	BaseSubsidy uint64

	// SubsidyHalvingInterval is the number of blocks between reward
	// halvings.
	SubsidyHalvingInterval uint64

	// MaxTxPerBlock caps the transaction count of a block, coinbase
	// included.
	MaxTxPerBlock int

	// GenerateSupported specifies whether or not CPU mining is allowed.
	GenerateSupported bool
}

// TargetTimespan is the desired wall-clock duration of one full retarget
// window.
func (p *Params) TargetTimespan() time.Duration {
	return p.TargetTimePerBlock * time.Duration(p.WorkDiffWindowSize)
}

// MainNetParams defines the network parameters for the main luna network.
var MainNetParams = Params{
	Name:           "mainnet",
	AddressVersion: 0x17,

	PowLimit:                 mainPowLimit,
	PowLimitBits:             pow.BigToCompact(mainPowLimit),
	TargetTimePerBlock:       time.Minute * 2,
	WorkDiffWindowSize:       144,
	RetargetAdjustmentFactor: 4,

	BaseSubsidy:            50 * types.AtomsPerCoin,
	SubsidyHalvingInterval: 210000,
	MaxTxPerBlock:          2000,

	GenerateSupported: false,
}

// TestNetParams defines the network parameters for the test luna network.
var TestNetParams = Params{
	Name:           "testnet",
	AddressVersion: 0x0f,

	PowLimit:                 testNetPowLimit,
	PowLimitBits:             pow.BigToCompact(testNetPowLimit),
	TargetTimePerBlock:       time.Minute,
	WorkDiffWindowSize:       144,
	RetargetAdjustmentFactor: 4,

	BaseSubsidy:            50 * types.AtomsPerCoin,
	SubsidyHalvingInterval: 210000,
	MaxTxPerBlock:          2000,

	GenerateSupported: true,
}

// PrivNetParams defines the network parameters for the private test network.
// The difficulty window is kept tiny so retargeting is exercised quickly.
var PrivNetParams = Params{
	Name:           "privnet",
	AddressVersion: 0x27,

	PowLimit:                 privNetPowLimit,
	PowLimitBits:             pow.BigToCompact(privNetPowLimit),
	TargetTimePerBlock:       time.Second * 30,
	WorkDiffWindowSize:       8,
	RetargetAdjustmentFactor: 4,

	BaseSubsidy:            50 * types.AtomsPerCoin,
	SubsidyHalvingInterval: 150,
	MaxTxPerBlock:          2000,

	GenerateSupported: true,
}

func init() {
	for _, p := range []*Params{&MainNetParams, &TestNetParams, &PrivNetParams} {
		genesis := newGenesisBlock(p.PowLimitBits)
		p.GenesisBlock = &genesis
		p.GenesisHash = genesis.BlockHash()
	}
}
