package bufferpool

import (
	"SeqIndex/storage_engine/page"
	"SeqIndex/types"
)

/*
This file holds helper functions for the bufferpool
*/

// GetStats returns current buffer pool statistics
func (bp *BufferPool) GetStats() BufferPoolStats {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	stats := BufferPoolStats{
		TotalPages: len(bp.pages),
		Capacity:   bp.capacity,
		Hits:       bp.hits,
		Misses:     bp.misses,
		Evictions:  bp.evictions,
		WriteBacks: bp.writeBacks,
		FileSize:   bp.totsize,
	}
	if total := bp.hits + bp.misses; total > 0 {
		stats.HitRate = float64(bp.hits) / float64(total)
	}

	for _, pg := range bp.pages {
		if pg.Pins > 0 {
			stats.PinnedPages++
		}
		switch pg.State {
		case page.Dirty:
			stats.DirtyPages++
		case page.Locked:
			stats.LockedPages++
		}
	}

	return stats
}

// Size returns the current number of pages in the buffer pool
func (bp *BufferPool) Size() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.pages)
}

// Capacity returns the maximum capacity of the buffer pool
func (bp *BufferPool) Capacity() int {
	return bp.capacity
}

func (bp *BufferPool) PageSize() int {
	return bp.pageSize
}

// Totsize is the current file size as the pool sees it: the offset the next
// NewPage will use.
func (bp *BufferPool) Totsize() int64 {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.totsize
}

func (bp *BufferPool) ReadOnly() bool {
	return bp.readOnly
}

// GetPage returns a page from the buffer pool without loading from disk
// Returns nil if page is not in buffer pool
func (bp *BufferPool) GetPage(no types.PageNo) *page.Page {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.pages[no]
}

// Order lists resident pages from MRU to LRU.
func (bp *BufferPool) Order() []types.PageNo {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	out := make([]types.PageNo, 0, bp.lru.Len())
	for e := bp.lru.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*page.Page).No)
	}
	return out
}
