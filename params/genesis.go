// Copyright (c) 2025 The luna developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package params

import (
	"time"

	"github.com/lunaproject/lunad/common/hash"
	"github.com/lunaproject/lunad/core/merkle"
	"github.com/lunaproject/lunad/core/types"
)

// genesisCoinbase is the lone transaction of every genesis block.  It pays
// nothing to nobody; issuance starts with the first mined block.
var genesisCoinbase = types.Transaction{
	Version:   types.TxVersion,
	From:      "",
	To:        "",
	Amount:    0,
	Fee:       0,
	Nonce:     0,
	Timestamp: genesisTime,
}

// genesisTime is the fixed timestamp shared by every network's genesis
// block.
var genesisTime = time.Unix(1735689600, 0) // 2025-01-01 00:00:00 UTC

// newGenesisBlock assembles a genesis block for the given difficulty bits.
// Networks differ only in their starting target, so their genesis hashes
// differ as well.
func newGenesisBlock(bits uint32) types.Block {
	coinbase := genesisCoinbase
	b := types.Block{
		Header: types.BlockHeader{
			Version:    types.BlockVersion,
			ParentHash: hash.ZeroHash,
			Height:     0,
			Difficulty: bits,
			Timestamp:  genesisTime,
			Nonce:      0,
		},
		Transactions: []*types.Transaction{&coinbase},
	}
	b.Header.TxRoot = merkle.CalcMerkleRoot(types.NewBlock(&b).Transactions())
	return b
}
