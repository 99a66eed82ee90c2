// Structure of the B+ Tree
/*
Tree
 ├── Root (always the page the tree was created at, level = tree height)
 │      └── Internal Nodes (keys + child pointers)
 │             └── Leaf Nodes (keys + bucket pointers, Left/Right chain)
 │                    └── Buckets (the actual entries, fill per bucket)

- keys: sorted ascending, unique per tree
- every node: ptrs length == len(keys)+1
- bucket i of a leaf holds the entries with keys[i-1] <= key < keys[i]
- all leaf nodes at the same depth, linked with Left/Right for scans
- a root page has no siblings, so its Right field stores the tree height

One Tree type serves three layouts: the primary and keyword trees (string
keys), the secondary id trees nested under keywords (string keys) and the
duplicate chains (int64 offset keys).
*/
package bplus

import (
	"SeqIndex/storage_engine/bufferpool"
	"SeqIndex/storage_engine/page"
	"SeqIndex/types"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrKeyTooLong is returned, before anything is modified, for a key or entry
// that could not fit in a single overflow page.
var ErrKeyTooLong = errors.New("key too long for page size")

// Config holds the shape parameters of one tree.
type Config struct {
	Order    int // max children per node, max keys = Order-1
	Fill     int // max entries per bucket
	PageSize int
}

func (c Config) MaxKeys() int { return c.Order - 1 }

// MinKeys is the least number of keys a non-root node keeps. A merge of an
// underfull node with a minimal sibling yields at most 2*MinKeys keys, which
// must fit in one node.
func (c Config) MinKeys() int { return (c.Order - 1) / 2 }

// Half is the per-bucket target when entries are redistributed.
func (c Config) Half() int {
	if h := c.Fill / 2; h > 1 {
		return h
	}
	return 1
}

// Validate checks the configuration against the page layouts of a tree with
// the given key and entry codecs.
func (c Config) Validate(fixedKey, fixedEntry int) error {
	if c.PageSize < types.MinPageSize || c.PageSize > types.MaxPageSize {
		return errors.Errorf("pagesize %d outside [%d, %d]", c.PageSize, types.MinPageSize, types.MaxPageSize)
	}
	if c.Order < 3 {
		return errors.Errorf("order %d below 3", c.Order)
	}
	if c.Fill < 2 {
		return errors.Errorf("fill %d below 2", c.Fill)
	}

	// the length-prefix region of a node must fit on its first page
	if fixedKey == 0 {
		if page.NodeHeaderSize+c.MaxKeys()*4+ptrSize > c.PageSize {
			return errors.Errorf("order %d too large for pagesize %d", c.Order, c.PageSize)
		}
	}
	if fixedEntry == 0 {
		if page.BucketHeaderSize+c.Fill*4 > c.PageSize {
			return errors.Errorf("fill %d too large for pagesize %d", c.Fill, c.PageSize)
		}
	} else if fixedEntry > c.PageSize-page.OverflowHeaderSize {
		return errors.Errorf("entry size %d too large for pagesize %d", fixedEntry, c.PageSize)
	}
	return nil
}

// NumConfig derives the shape of a duplicate-chain tree from the page size:
// a node on one page, a bucket on one page.
func NumConfig(pageSize int) Config {
	order := (pageSize-page.NodeHeaderSize-ptrSize)/(numKeySize+ptrSize) + 1
	fill := (pageSize - page.BucketHeaderSize) / numEntrySize
	return Config{Order: order, Fill: fill, PageSize: pageSize}
}

// node is the decoded form of a root, internal or leaf page.
type node[K any] struct {
	no    types.PageNo
	typ   types.NodeType
	keys  []K
	ptrs  []types.PageNo // children, or buckets on a leaf
	left  types.PageNo
	right types.PageNo
	prev  types.PageNo
}

// frame records one step of a descent: the node and the child index taken.
type frame struct {
	no  types.PageNo
	idx int
}

// Tree is a handle on one B+ tree living in a buffer pool.
type Tree[K any, E any] struct {
	pool   *bufferpool.BufferPool
	cfg    Config
	keys   KeyCodec[K]
	ents   EntryCodec[K, E]
	nodes  *NodeCache[K] // decoded node cache, may be nil
	root   types.PageNo
	level  int   // 0 = root is the only leaf
	count  int64 // entries, tracked for the caller
	logger *zap.Logger
}

// Options carries the optional collaborators of a tree.
type Options[K any] struct {
	Nodes  *NodeCache[K]
	Logger *zap.Logger
}
