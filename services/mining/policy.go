// Copyright (c) 2025 The luna developers
// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

// Policy houses the policy (configuration parameters) which is used to
// control the generation of block templates.
type Policy struct {
	// BlockMaxSize is the maximum block size in bytes to be used when
	// generating a block template.
	BlockMaxSize int

	// TxMinFeePerKB is the minimum fee in atoms per 1000 bytes a
	// transaction must pay to be included in a generated template.
	TxMinFeePerKB uint64
}
