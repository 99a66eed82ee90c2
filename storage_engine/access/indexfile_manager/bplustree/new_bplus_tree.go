package bplus

import (
	"SeqIndex/storage_engine/bufferpool"
	"SeqIndex/storage_engine/page"
	"SeqIndex/types"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// maxLevel bounds the height read back from a root page; anything larger is
// a damaged header.
const maxLevel = 64

// CreateTree allocates an empty root page in pool and returns a tree on it.
// On a fresh index file the first tree created lands at offset 0.
func CreateTree[K any, E any](pool *bufferpool.BufferPool, cfg Config, keys KeyCodec[K], ents EntryCodec[K, E], opts Options[K]) (*Tree[K, E], error) {
	t, err := newTree(pool, cfg, keys, ents, opts)
	if err != nil {
		return nil, err
	}

	root, err := t.newNode(types.NodeRoot)
	if err != nil {
		return nil, errors.Wrap(err, "CreateTree: failed to allocate root")
	}
	t.root = root.no
	root.ptrs = []types.PageNo{types.NoPage}
	if err := t.writeNode(root); err != nil {
		return nil, err
	}

	t.logger.Debug("new tree", zap.Int64("root", int64(t.root)))
	return t, nil
}

// OpenTree returns a tree on the existing root page at root. The tree height
// is read from the root's header.
func OpenTree[K any, E any](pool *bufferpool.BufferPool, cfg Config, keys KeyCodec[K], ents EntryCodec[K, E], root types.PageNo, opts Options[K]) (*Tree[K, E], error) {
	t, err := newTree(pool, cfg, keys, ents, opts)
	if err != nil {
		return nil, err
	}

	pg, err := pool.ReadPage(root)
	if err != nil {
		return nil, err
	}
	if pg.Type() != types.NodeRoot || pg.BlockNumber() != root {
		return nil, types.Corruptf("page %d is %s, not a tree root", root, pg.Type())
	}
	level := int64(pg.Right())
	if level < 0 || level > maxLevel {
		return nil, types.Corruptf("root %d: implausible level %d", root, level)
	}

	t.root = root
	t.level = int(level)
	return t, nil
}

func newTree[K any, E any](pool *bufferpool.BufferPool, cfg Config, keys KeyCodec[K], ents EntryCodec[K, E], opts Options[K]) (*Tree[K, E], error) {
	if cfg.PageSize != pool.PageSize() {
		return nil, errors.Errorf("tree pagesize %d differs from pool pagesize %d", cfg.PageSize, pool.PageSize())
	}
	if err := cfg.Validate(keys.FixedSize(), ents.FixedSize()); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tree[K, E]{
		pool:   pool,
		cfg:    cfg,
		keys:   keys,
		ents:   ents,
		nodes:  opts.Nodes,
		logger: logger.Named("bplustree"),
	}, nil
}

func (t *Tree[K, E]) Root() types.PageNo { return t.root }

// Level is the tree height; 0 means the root is the only leaf.
func (t *Tree[K, E]) Level() int { return t.level }

func (t *Tree[K, E]) Config() Config { return t.cfg }

// Count is the number of entries inserted minus those deleted through this
// handle, starting from the value given to SetCount.
func (t *Tree[K, E]) Count() int64 { return t.count }

func (t *Tree[K, E]) SetCount(n int64) { t.count = n }

// MaxKeyLen is the longest key Insert accepts.
func (t *Tree[K, E]) MaxKeyLen() int {
	over := t.ents.Overhead()
	if over < 1+ptrSize {
		over = 1 + ptrSize
	}
	return t.cfg.PageSize - page.OverflowHeaderSize - over
}
