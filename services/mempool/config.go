// Copyright (c) 2025 The luna developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"github.com/lunaproject/lunad/core/state"
	"github.com/lunaproject/lunad/params"
)

const (
	// DefaultMaxTxPoolSize is the default cap on the number of pending
	// transactions held by the pool.
	DefaultMaxTxPoolSize = 10000

	// DefaultMaxTxSize is the default maximum serialized size of a single
	// transaction the pool will accept.
	DefaultMaxTxSize = 4096

	// DefaultMinRelayTxFee is the default minimum fee in atoms per 1000
	// bytes a transaction must pay to be admitted.
	DefaultMinRelayTxFee = 1000
)

// Policy houses the policy (configuration parameters) which is used to
// control the mempool.
type Policy struct {
	// MaxTxPoolSize is the maximum number of transactions the pool will
	// hold.  Admitting one more than this evicts the lowest-priority
	// entry, or rejects the newcomer when it is itself the lowest.
	MaxTxPoolSize int

	// MaxTxSize is the maximum allowed serialized size of a transaction.
	MaxTxSize int

	// MinRelayTxFee defines the minimum transaction fee in atoms per
	// 1000 bytes to be considered for admission.
	MinRelayTxFee uint64
}

// Config is a descriptor containing the memory pool configuration.
type Config struct {
	// Policy defines the various mempool configuration options related to
	// policy.
	Policy Policy

	// ChainParams identifies which chain parameters the mempool is
	// associated with.
	ChainParams *params.Params

	// BestHeight defines the function to use to access the block height
	// of the current best chain.
	BestHeight func() uint64

	// StateView defines the function to use to obtain a mutable clone of
	// the confirmed account state at the current best chain tip.
	StateView func() *state.View
}
