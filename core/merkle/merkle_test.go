// Copyright (c) 2025 The luna developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package merkle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lunaproject/lunad/common/hash"
	"github.com/lunaproject/lunad/core/types"
)

func makeTxns(n int) []*types.Tx {
	txns := make([]*types.Tx, n)
	for i := 0; i < n; i++ {
		txns[i] = types.NewTx(&types.Transaction{
			Version:   types.TxVersion,
			To:        types.Address("LUN_test"),
			Amount:    uint64(i + 1),
			Timestamp: time.Unix(1735689700, 0),
		})
	}
	return txns
}

func TestCalcMerkleRootEmpty(t *testing.T) {
	root := CalcMerkleRoot(nil)
	assert.True(t, root.IsEqual(&hash.ZeroHash))
}

func TestCalcMerkleRootSingle(t *testing.T) {
	txns := makeTxns(1)
	root := CalcMerkleRoot(txns)
	assert.True(t, root.IsEqual(txns[0].Hash()))
}

func TestCalcMerkleRootOrderSensitive(t *testing.T) {
	txns := makeTxns(3)
	root := CalcMerkleRoot(txns)

	reordered := []*types.Tx{txns[1], txns[0], txns[2]}
	other := CalcMerkleRoot(reordered)
	assert.False(t, root.IsEqual(&other))

	// Same order always yields the same root.
	again := CalcMerkleRoot(txns)
	assert.True(t, root.IsEqual(&again))
}

func TestBuildMerkleTreeStoreOddCount(t *testing.T) {
	txns := makeTxns(5)
	merkles := BuildMerkleTreeStore(txns)

	// The root is the final entry and must be present.
	assert.NotNil(t, merkles[len(merkles)-1])
}
