package bplus

import (
	"SeqIndex/types"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/pkg/errors"
)

// NodeCache keeps decoded key/pointer arrays of nodes so that hot internal
// nodes are not re-decoded, overflow chain included, on every descent. It
// sits above the buffer pool and never owns page bytes. Header fields are
// always read from the page itself.
//
// All trees of one index file may share a NodeCache since page numbers are
// unique within the file. A nil *NodeCache is a valid, disabled cache.
type NodeCache[K any] struct {
	c *ristretto.Cache[int64, *cachedNode[K]]

	// write generation per page; a cached decode is only served while its
	// generation is current, since ristretto applies sets asynchronously and
	// a late set can outlive the delete that should have dropped it
	mu   sync.Mutex
	gens map[int64]uint64
}

type cachedNode[K any] struct {
	gen  uint64
	keys []K
	ptrs []types.PageNo
}

// NewNodeCache returns a cache bounded by maxCost bytes, or nil when maxCost
// is not positive.
func NewNodeCache[K any](maxCost int64) (*NodeCache[K], error) {
	if maxCost <= 0 {
		return nil, nil
	}
	counters := maxCost / 10
	if counters < 1000 {
		counters = 1000
	}
	c, err := ristretto.NewCache(&ristretto.Config[int64, *cachedNode[K]]{
		NumCounters:        counters,
		MaxCost:            maxCost,
		BufferItems:        64,
		Metrics:            true,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create node cache")
	}
	return &NodeCache[K]{c: c, gens: make(map[int64]uint64)}, nil
}

// get returns copies of the cached arrays of page no if they still describe
// a node of nkeys keys.
func (nc *NodeCache[K]) get(no types.PageNo, nkeys int) ([]K, []types.PageNo, bool) {
	if nc == nil {
		return nil, nil, false
	}
	cn, ok := nc.c.Get(int64(no))
	if !ok || cn.gen != nc.gen(no) || len(cn.keys) != nkeys || len(cn.ptrs) != nkeys+1 {
		return nil, nil, false
	}
	return append([]K(nil), cn.keys...), append([]types.PageNo(nil), cn.ptrs...), true
}

func (nc *NodeCache[K]) put(no types.PageNo, keys []K, ptrs []types.PageNo, cost int64) {
	if nc == nil {
		return
	}
	nc.c.Set(int64(no), &cachedNode[K]{
		gen:  nc.gen(no),
		keys: append([]K(nil), keys...),
		ptrs: append([]types.PageNo(nil), ptrs...),
	}, cost)
}

// del drops page no and retires every decode of it made so far, including
// one whose set ristretto has not applied yet.
func (nc *NodeCache[K]) del(no types.PageNo) {
	if nc == nil {
		return
	}
	nc.mu.Lock()
	nc.gens[int64(no)]++
	nc.mu.Unlock()
	nc.c.Del(int64(no))
}

func (nc *NodeCache[K]) gen(no types.PageNo) uint64 {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	return nc.gens[int64(no)]
}

// Stats returns hits and misses since creation.
func (nc *NodeCache[K]) Stats() (hits, misses uint64) {
	if nc == nil || nc.c.Metrics == nil {
		return 0, 0
	}
	return nc.c.Metrics.Hits(), nc.c.Metrics.Misses()
}

// Clear drops every cached node.
func (nc *NodeCache[K]) Clear() {
	if nc == nil {
		return
	}
	nc.c.Clear()
}

func (nc *NodeCache[K]) Close() {
	if nc == nil {
		return
	}
	nc.c.Close()
}
