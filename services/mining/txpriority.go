// Copyright (c) 2025 The luna developers
// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"container/heap"

	"github.com/lunaproject/lunad/core/types"
)

// txPriorityQueue implements a priority queue of transaction descriptors
// ordered by descending fee per KB, breaking ties by admission time so the
// output is deterministic for a given pool snapshot.
type txPriorityQueue struct {
	items []*types.TxDesc
}

// Len returns the number of items in the priority queue.  It is part of the
// heap.Interface implementation.
func (pq *txPriorityQueue) Len() int {
	return len(pq.items)
}

// Less returns whether the item in the priority queue with index i should
// sort before the item with index j.  It is part of the heap.Interface
// implementation.
func (pq *txPriorityQueue) Less(i, j int) bool {
	a, b := pq.items[i], pq.items[j]
	if a.FeePerKB != b.FeePerKB {
		return a.FeePerKB > b.FeePerKB
	}
	return a.Added.Before(b.Added)
}

// Swap swaps the items at the passed indices in the priority queue.  It is
// part of the heap.Interface implementation.
func (pq *txPriorityQueue) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
}

// Push pushes the passed item onto the priority queue.  It is part of the
// heap.Interface implementation.
func (pq *txPriorityQueue) Push(x interface{}) {
	pq.items = append(pq.items, x.(*types.TxDesc))
}

// Pop removes the highest priority item from the priority queue and returns
// it.  It is part of the heap.Interface implementation.
func (pq *txPriorityQueue) Pop() interface{} {
	n := len(pq.items)
	item := pq.items[n-1]
	pq.items[n-1] = nil
	pq.items = pq.items[:n-1]
	return item
}

// newTxPriorityQueue returns a new transaction priority queue that reserves
// the passed amount of space for the elements.
func newTxPriorityQueue(reserve int) *txPriorityQueue {
	pq := &txPriorityQueue{
		items: make([]*types.TxDesc, 0, reserve),
	}
	heap.Init(pq)
	return pq
}
