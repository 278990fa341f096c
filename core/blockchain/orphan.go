// Copyright (c) 2025 The luna developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"time"

	"github.com/lunaproject/lunad/common/hash"
	"github.com/lunaproject/lunad/core/types"
)

const (
	// maxOrphanBlocks is the maximum number of orphan blocks that can be
	// queued.
	maxOrphanBlocks = 100

	// orphanExpiration is how long an orphan block may linger in the pool
	// before the next scan evicts it.
	orphanExpiration = time.Hour
)

// orphanBlock represents a block that we don't yet have the parent for.  It
// is a normal block plus an expiration time to prevent caching the orphan
// forever.
type orphanBlock struct {
	block      *types.SerializedBlock
	expiration time.Time
}

// removeOrphanBlock removes the passed orphan block from the orphan pool and
// previous orphan index.
//
// This function MUST be called with the orphan lock held (for writes).
func (b *BlockChain) removeOrphanBlock(orphan *orphanBlock) {
	orphanHash := orphan.block.Hash()
	delete(b.orphans, *orphanHash)

	// Remove the reference from the previous orphan index too.
	prevHash := &orphan.block.Block().Header.ParentHash
	orphans := b.prevOrphans[*prevHash]
	for i := 0; i < len(orphans); i++ {
		if orphans[i].block.Hash().IsEqual(orphanHash) {
			orphans = append(orphans[:i], orphans[i+1:]...)
			i--
		}
	}
	b.prevOrphans[*prevHash] = orphans

	// Remove the map entry altogether if there are no longer any orphans
	// which depend on the parent hash.
	if len(b.prevOrphans[*prevHash]) == 0 {
		delete(b.prevOrphans, *prevHash)
	}
}

// addOrphanBlock adds the passed block (which is already determined to be an
// orphan prior calling this function) to the orphan pool.  It lazily cleans
// up any expired blocks so a separate cleanup poller doesn't need to be run.
// It also imposes a maximum limit on the number of outstanding orphan blocks
// and will remove the oldest received orphan block if the limit is exceeded.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) addOrphanBlock(block *types.SerializedBlock) {
	// Remove expired orphan blocks.
	for _, oBlock := range b.orphans {
		if time.Now().After(oBlock.expiration) {
			b.removeOrphanBlock(oBlock)
			continue
		}

		// Update the oldest orphan block pointer so it can be discarded
		// in case the orphan pool fills up.
		if b.oldestOrphan == nil ||
			oBlock.expiration.Before(b.oldestOrphan.expiration) {
			b.oldestOrphan = oBlock
		}
	}

	// Limit orphan blocks to prevent memory exhaustion.
	if len(b.orphans)+1 > maxOrphanBlocks {
		// Remove the oldest orphan to make room for the new one.
		b.removeOrphanBlock(b.oldestOrphan)
		b.oldestOrphan = nil
	}

	// Insert the block into the orphan map with an expiration time
	// 1 hour from now.
	expiration := time.Now().Add(orphanExpiration)
	oBlock := &orphanBlock{
		block:      block,
		expiration: expiration,
	}
	b.orphans[*block.Hash()] = oBlock

	// Add to previous hash lookup index for faster dependency lookups.
	prevHash := &block.Block().Header.ParentHash
	b.prevOrphans[*prevHash] = append(b.prevOrphans[*prevHash], oBlock)
}

// IsKnownOrphan returns whether the passed hash is currently a known orphan.
// Keep in mind that only a limited number of orphans are held onto for a
// limited amount of time, so this function must not be used as an absolute
// way to test if a block is an orphan block.
//
// This function is safe for concurrent access.
func (b *BlockChain) IsKnownOrphan(h *hash.Hash) bool {
	b.orphanLock.RLock()
	_, exists := b.orphans[*h]
	b.orphanLock.RUnlock()
	return exists
}

// GetOrphansParents returns the parent hashes of all current orphans, which
// a caller can use to request the missing blocks.
//
// This function is safe for concurrent access.
func (b *BlockChain) GetOrphansParents() []*hash.Hash {
	b.orphanLock.RLock()
	defer b.orphanLock.RUnlock()

	parents := make([]*hash.Hash, 0, len(b.prevOrphans))
	for prevHash := range b.prevOrphans {
		ph := prevHash
		parents = append(parents, &ph)
	}
	return parents
}

// processOrphans determines if there are any orphans which depend on the
// passed block hash (they are no longer orphans if true) and potentially
// accepts them.  It repeats the process for the newly accepted blocks (to
// detect further orphans which may no longer be orphans) until there are no
// more.
//
// The flags do not modify the behavior of this function directly, however
// they are needed to pass along to maybeAcceptBlock.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) processOrphans(h *hash.Hash, flags BehaviorFlags) error {
	// Start with processing at least the passed hash.  Leave a little room
	// for additional orphan blocks that need to be processed without
	// needing to grow the array in the common case.
	processHashes := make([]*hash.Hash, 0, 10)
	processHashes = append(processHashes, h)
	for len(processHashes) > 0 {
		// Pop the first hash to process from the slice.
		processHash := processHashes[0]
		processHashes[0] = nil
		processHashes = processHashes[1:]

		// Look up all orphans that are parented by the block we just
		// accepted.
		b.orphanLock.Lock()
		orphans := make([]*orphanBlock, len(b.prevOrphans[*processHash]))
		copy(orphans, b.prevOrphans[*processHash])
		b.orphanLock.Unlock()

		for _, orphan := range orphans {
			// Remove the orphan from the orphan pool.
			orphanHash := orphan.block.Hash()
			b.orphanLock.Lock()
			b.removeOrphanBlock(orphan)
			b.orphanLock.Unlock()

			// Potentially accept the block into the block chain.
			_, err := b.maybeAcceptBlock(orphan.block, flags)
			if err != nil {
				return err
			}

			// Add this block to the list of blocks to process so any
			// orphan blocks that depend on this block are handled too.
			processHashes = append(processHashes, orphanHash)
		}
	}
	return nil
}
