package bufferpool

import (
	diskmanager "SeqIndex/storage_engine/disk_manager"
	"SeqIndex/storage_engine/page"
	"SeqIndex/types"
	"container/list"
	"sync"

	"go.uber.org/zap"
)

// ############################################# BUFFER POOL #############################################

// MinCapacity is the smallest pool that can hold the locked root plus the
// pages a structural operation pins at once.
const MinCapacity = 8

// BufferPool is the page cache of one index file. It keeps at most capacity
// pages resident, ordered MRU (front) to LRU (back), and writes dirty pages
// back when they are evicted.
type BufferPool struct {
	pages    map[types.PageNo]*page.Page
	lru      *list.List // of *page.Page, front = most recently used
	capacity int
	pageSize int
	totsize  int64 // next allocatable offset
	readOnly bool

	diskManager *diskmanager.DiskManager
	logger      *zap.Logger

	hits       uint64
	misses     uint64
	evictions  uint64
	writeBacks uint64

	mu sync.Mutex
}

// BufferPoolStats is a snapshot of pool occupancy and traffic.
type BufferPoolStats struct {
	TotalPages  int
	PinnedPages int
	DirtyPages  int
	LockedPages int
	Capacity    int
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	WriteBacks  uint64
	HitRate     float64
	FileSize    int64
}
