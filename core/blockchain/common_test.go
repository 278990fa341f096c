// Copyright (c) 2025 The luna developers
// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"crypto/rand"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/ed25519"

	"github.com/lunaproject/lunad/core/merkle"
	"github.com/lunaproject/lunad/core/types"
	"github.com/lunaproject/lunad/core/types/pow"
	"github.com/lunaproject/lunad/params"
)

// testExtraNonce hands every generated coinbase a distinct nonce so sibling
// blocks mined to the same address never collide on hash.
var testExtraNonce uint64

// testAccount bundles a key pair with its derived address for building
// signed transfers in tests.
type testAccount struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	addr types.Address
}

func newTestAccount(t *testing.T) *testAccount {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return &testAccount{
		priv: priv,
		pub:  pub,
		addr: types.NewAddressFromPubKey(pub, params.PrivNetParams.AddressVersion),
	}
}

// transferTo builds and signs a transfer from the account.
func (a *testAccount) transferTo(to types.Address, amount, fee, nonce uint64) *types.Transaction {
	tx := &types.Transaction{
		Version:   types.TxVersion,
		From:      a.addr,
		To:        to,
		Amount:    amount,
		Fee:       fee,
		Nonce:     nonce,
		Timestamp: time.Unix(time.Now().Unix(), 0),
		SenderKey: a.pub,
	}
	sigHash := tx.SigHash()
	tx.Signature = ed25519.Sign(a.priv, sigHash.Bytes())
	return tx
}

// signBytes signs arbitrary bytes with the account key.
func (a *testAccount) signBytes(msg []byte) []byte {
	return ed25519.Sign(a.priv, msg)
}

// newTestChain returns a fresh privnet chain.  The private network's proof of
// work limit keeps test mining to a handful of hash attempts per block.
func newTestChain(t *testing.T) *BlockChain {
	chain, err := New(&Config{ChainParams: &params.PrivNetParams})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return chain
}

// solveBlock grinds the header nonce until the block satisfies its declared
// difficulty.
func solveBlock(t *testing.T, block *types.Block) {
	target := pow.CompactToBig(block.Header.Difficulty)
	for i := uint64(0); ; i++ {
		block.Header.Nonce = i
		h := block.Header.BlockHash()
		if pow.HashToBig(&h).Cmp(target) <= 0 {
			return
		}
		if i > 1<<24 {
			t.Fatalf("failed to solve block at height %d",
				block.Header.Height)
		}
	}
}

// buildBlockOn assembles and solves a block extending the given parent.  The
// declared difficulty is taken from the chain when the parent is the tip and
// from the parent itself otherwise, which is correct for test chains that
// stay inside a single retarget window.
func buildBlockOn(t *testing.T, chain *BlockChain, parent *types.SerializedBlock,
	minerAddr types.Address, txs ...*types.Transaction) *types.SerializedBlock {

	height := parent.Height() + 1
	bits := parent.Block().Header.Difficulty
	best := chain.BestSnapshot()
	if best.Hash.IsEqual(parent.Hash()) {
		var err error
		bits, err = chain.CalcNextRequiredDifficulty()
		if err != nil {
			t.Fatalf("CalcNextRequiredDifficulty: %v", err)
		}
	}

	var fees uint64
	for _, tx := range txs {
		fees += tx.Fee
	}
	coinbase := &types.Transaction{
		Version:   types.TxVersion,
		To:        minerAddr,
		Amount:    chain.CalcBlockSubsidy(height) + fees,
		Nonce:     atomic.AddUint64(&testExtraNonce, 1),
		Timestamp: time.Unix(time.Now().Unix(), 0),
	}
	blockTxns := append([]*types.Transaction{coinbase}, txs...)

	wrapped := make([]*types.Tx, len(blockTxns))
	for i, tx := range blockTxns {
		wrapped[i] = types.NewTx(tx)
	}

	block := &types.Block{
		Header: types.BlockHeader{
			Version:    types.BlockVersion,
			ParentHash: *parent.Hash(),
			TxRoot:     merkle.CalcMerkleRoot(wrapped),
			Height:     height,
			Difficulty: bits,
			Timestamp: parent.Block().Header.Timestamp.Add(
				chain.params.TargetTimePerBlock),
		},
		Transactions: blockTxns,
	}
	solveBlock(t, block)
	return types.NewBlock(block)
}

// buildRawBlock recommits and re-solves a block whose transactions were
// edited after assembly, for crafting deliberately invalid blocks.
func buildRawBlock(t *testing.T, block *types.Block) *types.SerializedBlock {
	wrapped := make([]*types.Tx, len(block.Transactions))
	for i, tx := range block.Transactions {
		wrapped[i] = types.NewTx(tx)
	}
	block.Header.TxRoot = merkle.CalcMerkleRoot(wrapped)
	solveBlock(t, block)
	return types.NewBlock(block)
}

// acceptBlock processes a block and requires it to land on the main chain.
func acceptBlock(t *testing.T, chain *BlockChain, block *types.SerializedBlock) {
	isMainChain, isOrphan, err := chain.ProcessBlock(block, BFNone)
	if err != nil {
		t.Fatalf("ProcessBlock(%v): %v", block.Hash(), err)
	}
	if isOrphan {
		t.Fatalf("ProcessBlock(%v): unexpected orphan", block.Hash())
	}
	if !isMainChain {
		t.Fatalf("ProcessBlock(%v): not on main chain", block.Hash())
	}
}

// genesisBlock returns the serialized genesis for the test network.
func genesisBlock(chain *BlockChain) *types.SerializedBlock {
	return types.NewBlock(chain.params.GenesisBlock)
}
