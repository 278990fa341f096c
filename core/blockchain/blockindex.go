// Copyright (c) 2025 The luna developers
// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sync"

	"github.com/lunaproject/lunad/common/hash"
)

// blockIndex provides facilities for keeping track of an in-memory arena of
// the block tree.  Blocks are keyed by hash; the parent to children mapping
// is maintained separately so child lookups never require back-pointers on
// the nodes themselves.
type blockIndex struct {
	sync.RWMutex
	index    map[hash.Hash]*blockNode
	children map[hash.Hash][]*blockNode
}

// newBlockIndex returns a new empty instance of a block index.
func newBlockIndex() *blockIndex {
	return &blockIndex{
		index:    make(map[hash.Hash]*blockNode),
		children: make(map[hash.Hash][]*blockNode),
	}
}

// HaveBlock returns whether or not the block index contains the provided
// hash.
//
// This function is safe for concurrent access.
func (bi *blockIndex) HaveBlock(h *hash.Hash) bool {
	bi.RLock()
	_, hasBlock := bi.index[*h]
	bi.RUnlock()
	return hasBlock
}

// LookupNode returns the block node identified by the provided hash.  It will
// return nil if there is no entry for the hash.
//
// This function is safe for concurrent access.
func (bi *blockIndex) LookupNode(h *hash.Hash) *blockNode {
	bi.RLock()
	node := bi.index[*h]
	bi.RUnlock()
	return node
}

// AddNode adds the provided node to the block index and records it as a
// child of its parent.
//
// This function is safe for concurrent access.
func (bi *blockIndex) AddNode(node *blockNode) {
	bi.Lock()
	bi.index[node.hash] = node
	if node.parent != nil {
		parentHash := node.parent.hash
		bi.children[parentHash] = append(bi.children[parentHash], node)
	}
	bi.Unlock()
}

// Children returns the accepted blocks that build on the provided hash.
//
// This function is safe for concurrent access.
func (bi *blockIndex) Children(h *hash.Hash) []*blockNode {
	bi.RLock()
	children := make([]*blockNode, len(bi.children[*h]))
	copy(children, bi.children[*h])
	bi.RUnlock()
	return children
}

// NumBlocks returns the number of accepted blocks in the index.
//
// This function is safe for concurrent access.
func (bi *blockIndex) NumBlocks() int {
	bi.RLock()
	n := len(bi.index)
	bi.RUnlock()
	return n
}
