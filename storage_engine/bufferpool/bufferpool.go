package bufferpool

import (
	diskmanager "SeqIndex/storage_engine/disk_manager"
	"SeqIndex/storage_engine/page"
	"SeqIndex/types"
	"container/list"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

/*
This file is the main file of the bufferpool
The buffer pool works on LRU based caching mechanism
and holds access to disk manager for writing evicted dirty pages back onto the disk
similarly if page not found in the cache, disk manager loads the page from the disk and adds in the cache for future access

Pages are identified by their byte offset in the index file.
Every successful ReadPage/WritePage/NewPage ends with the page at the MRU end.
*/

// NewBufferPool creates a page cache over diskManager. The next allocatable
// offset starts at the file size rounded up to a whole page.
func NewBufferPool(diskManager *diskmanager.DiskManager, pageSize, capacity int, logger *zap.Logger) *BufferPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if capacity < MinCapacity {
		capacity = MinCapacity
	}

	size := diskManager.Size()
	if rem := size % int64(pageSize); rem != 0 {
		size += int64(pageSize) - rem
	}

	return &BufferPool{
		pages:       make(map[types.PageNo]*page.Page, capacity),
		lru:         list.New(),
		capacity:    capacity,
		pageSize:    pageSize,
		totsize:     size,
		readOnly:    diskManager.Mode() == diskmanager.ModeRead,
		diskManager: diskManager,
		logger:      logger.Named("bufferpool"),
	}
}

// ReadPage returns the page at offset no for reading.
func (bp *BufferPool) ReadPage(no types.PageNo) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	return bp.fetch(no)
}

// WritePage returns the page at offset no and marks it for write-back.
// Locked pages stay Locked; they are always written by Sync.
func (bp *BufferPool) WritePage(no types.PageNo) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.readOnly {
		return nil, errors.Wrapf(types.ErrReadOnly, "write of page %d", no)
	}

	pg, err := bp.fetch(no)
	if err != nil {
		return nil, err
	}
	if pg.State == page.Clean {
		pg.State = page.Dirty
	}
	return pg, nil
}

// NewPage allocates a zeroed page of type t at the current end of file.
func (bp *BufferPool) NewPage(t types.NodeType) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.readOnly {
		return nil, errors.Wrap(types.ErrReadOnly, "page allocation")
	}

	no := types.PageNo(bp.totsize)
	pg, err := bp.slot(no)
	if err != nil {
		return nil, err
	}
	bp.totsize += int64(bp.pageSize)

	pg.Init(t)
	pg.State = page.Dirty
	bp.install(pg)

	bp.logger.Debug("allocate", zap.Int64("page", int64(no)), zap.Stringer("type", t))
	return pg, nil
}

// Pin keeps pg resident until the returned release func runs. Release is
// meant to be deferred so every exit path, including errors, unpins.
func (bp *BufferPool) Pin(pg *page.Page) (release func()) {
	bp.mu.Lock()
	pg.Pins++
	bp.mu.Unlock()

	released := false
	return func() {
		if released {
			return
		}
		released = true
		bp.mu.Lock()
		if pg.Pins > 0 {
			pg.Pins--
		}
		bp.mu.Unlock()
	}
}

// Lock exempts page no from eviction until Unlock.
func (bp *BufferPool) Lock(no types.PageNo) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, err := bp.fetch(no)
	if err != nil {
		return err
	}
	pg.State = page.Locked
	return nil
}

// Unlock makes a Locked page evictable again. It stays Dirty so the next
// eviction or Sync writes it.
func (bp *BufferPool) Unlock(no types.PageNo) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if el, ok := bp.pages[no]; ok && el.State == page.Locked {
		el.State = page.Dirty
	}
}

// Sync writes every Dirty and Locked page to disk, marks the dirty ones
// Clean, then locks root so it survives all future evictions.
func (bp *BufferPool) Sync(root types.PageNo) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.readOnly {
		return nil
	}

	written := 0
	for e := bp.lru.Back(); e != nil; e = e.Prev() {
		pg := e.Value.(*page.Page)
		if pg.State == page.Clean {
			continue
		}
		if err := bp.diskManager.WriteAt(pg.Data, int64(pg.No)); err != nil {
			return errors.Wrapf(err, "failed to flush page %d", pg.No)
		}
		if pg.State == page.Dirty {
			pg.State = page.Clean
		}
		written++
	}

	if err := bp.diskManager.Sync(); err != nil {
		return err
	}

	pg, err := bp.fetch(root)
	if err != nil {
		return err
	}
	pg.State = page.Locked

	bp.logger.Debug("sync", zap.Int("written", written), zap.Int64("root", int64(root)))
	return nil
}

// Close flushes all Dirty and Locked pages, drops the pool and closes the
// file.
func (bp *BufferPool) Close() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	var firstErr error
	if !bp.readOnly {
		for e := bp.lru.Back(); e != nil; e = e.Prev() {
			pg := e.Value.(*page.Page)
			if pg.State == page.Clean {
				continue
			}
			if err := bp.diskManager.WriteAt(pg.Data, int64(pg.No)); err != nil && firstErr == nil {
				firstErr = errors.Wrapf(err, "failed to flush page %d on close", pg.No)
			}
		}
	}

	bp.pages = make(map[types.PageNo]*page.Page)
	bp.lru.Init()

	if err := bp.diskManager.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Discard drops the pool without writing any page back and closes the
// file. Pages changed since the last Sync are lost.
func (bp *BufferPool) Discard() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	dropped := 0
	for _, pg := range bp.pages {
		if pg.State != page.Clean {
			dropped++
		}
	}
	bp.pages = make(map[types.PageNo]*page.Page)
	bp.lru.Init()
	bp.logger.Warn("pool discarded", zap.Int("unwritten", dropped))

	return bp.diskManager.Close()
}

// fetch returns the resident page or loads it. Assumes lock is held.
func (bp *BufferPool) fetch(no types.PageNo) (*page.Page, error) {
	if pg, ok := bp.pages[no]; ok {
		bp.hits++
		bp.lru.MoveToFront(pg.Elem)
		return pg, nil
	}

	if no < 0 || int64(no)%int64(bp.pageSize) != 0 || int64(no) >= bp.totsize {
		return nil, types.Corruptf("page %d outside index file of %d bytes", no, bp.totsize)
	}

	bp.misses++
	pg, err := bp.slot(no)
	if err != nil {
		return nil, err
	}
	if err := bp.diskManager.ReadAt(pg.Data, int64(no)); err != nil {
		return nil, errors.Wrapf(err, "failed to read page %d", no)
	}
	pg.State = page.Clean
	bp.install(pg)
	return pg, nil
}

// slot returns a detached page for offset no, recycling the buffer of the
// least recently used evictable page when the pool is full. Assumes lock is
// held.
func (bp *BufferPool) slot(no types.PageNo) (*page.Page, error) {
	if len(bp.pages) < bp.capacity {
		return &page.Page{No: no, Data: make([]byte, bp.pageSize)}, nil
	}

	victim, err := bp.evictLRU()
	if err != nil {
		return nil, err
	}
	victim.No = no
	victim.State = page.Clean
	victim.Pins = 0
	victim.Elem = nil
	return victim, nil
}

// evictLRU scans from the LRU end for the first page that is neither Locked
// nor pinned, writes it back if dirty and unlinks it. Assumes lock is held.
func (bp *BufferPool) evictLRU() (*page.Page, error) {
	for e := bp.lru.Back(); e != nil; e = e.Prev() {
		pg := e.Value.(*page.Page)
		if !pg.Evictable() {
			continue
		}

		if pg.State == page.Dirty {
			if err := bp.diskManager.WriteAt(pg.Data, int64(pg.No)); err != nil {
				return nil, errors.Wrapf(err, "failed to write page %d during eviction", pg.No)
			}
			bp.writeBacks++
		}

		bp.logger.Debug("evict", zap.Int64("page", int64(pg.No)), zap.Stringer("state", pg.State))
		bp.lru.Remove(e)
		delete(bp.pages, pg.No)
		bp.evictions++
		return pg, nil
	}

	return nil, errors.Wrapf(types.ErrCacheExhausted, "all %d resident pages are locked or pinned", len(bp.pages))
}

// install links pg at the MRU end. Assumes lock is held.
func (bp *BufferPool) install(pg *page.Page) {
	pg.Elem = bp.lru.PushFront(pg)
	bp.pages[pg.No] = pg
}
