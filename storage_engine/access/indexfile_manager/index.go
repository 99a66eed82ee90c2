package indexfile

import (
	bplus "SeqIndex/storage_engine/access/indexfile_manager/bplustree"
	"SeqIndex/storage_engine/bufferpool"
	checkpoint "SeqIndex/storage_engine/checkpoint_manager"
	diskmanager "SeqIndex/storage_engine/disk_manager"
	"SeqIndex/types"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("index is closed")

// DataPath and ParamPath name the two files of an index.
func DataPath(dir, name, ext string) string {
	return filepath.Join(dir, name+"."+ext)
}

func ParamPath(dir, name, ext string) string {
	return filepath.Join(dir, name+".p"+ext)
}

// openIndex opens the data file and page cache of an index. For an existing
// index the parameter file is read first and its shape overrides opts.
func openIndex(dir, name, ext, kind string, mode Mode, opts Options) (*index, *checkpoint.Checkpoint, error) {
	params := checkpoint.NewCheckpointManager(ParamPath(dir, name, ext))

	cp := &checkpoint.Checkpoint{}
	if mode != ModeCreate {
		var err error
		if cp, err = params.LoadCheckpoint(); err != nil {
			return nil, nil, errors.Wrapf(err, "open index %s", name)
		}
		if cp.Kind != "" && cp.Kind != kind {
			return nil, nil, errors.Errorf("index %s is a %s index, not %s", name, cp.Kind, kind)
		}
		if cp.Torn != "" {
			return nil, nil, errors.Wrapf(types.ErrTorn, "index %s was torn (%s), rebuild required", name, cp.Torn)
		}
		opts.Order, opts.Fill = cp.Order, cp.Fill
		opts.Order2, opts.Fill2 = cp.Order2, cp.Fill2
		opts.PageSize = cp.Pagesize
		opts.KwLimit = cp.Kwlimit
		if opts.CacheSize < bufferpool.MinCapacity {
			opts.CacheSize = cp.Cachesize
		}
	}
	if err := opts.Validate(); err != nil {
		return nil, nil, errors.Wrapf(err, "index %s", name)
	}

	logger := opts.logger().Named("indexfile").With(zap.String("index", name))
	dataPath := DataPath(dir, name, ext)
	dm, err := diskmanager.Open(dataPath, mode)
	if err != nil {
		return nil, nil, err
	}
	pool := bufferpool.NewBufferPool(dm, opts.PageSize, opts.CacheSize, logger)

	strNodes, err := bplus.NewNodeCache[string](opts.NodeCacheCost)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	numNodes, err := bplus.NewNodeCache[int64](opts.NodeCacheCost / 4)
	if err != nil {
		strNodes.Close()
		pool.Close()
		return nil, nil, err
	}

	return &index{
		name:     name,
		kind:     kind,
		dataPath: dataPath,
		mode:     mode,
		opts:     opts,
		pool:     pool,
		params:   params,
		strNodes: strNodes,
		numNodes: numNodes,
		logger:   logger,
	}, cp, nil
}

// primaryTree creates the primary tree at offset 0 of a new file, or opens
// it, and locks its root page in the cache.
func primaryTree[E any](x *index, ents bplus.EntryCodec[string, E], cp *checkpoint.Checkpoint) (*bplus.Tree[string, E], error) {
	topts := bplus.Options[string]{Nodes: x.strNodes, Logger: x.logger}

	var tree *bplus.Tree[string, E]
	var err error
	if x.mode == ModeCreate {
		tree, err = bplus.CreateTree[string, E](x.pool, x.opts.primary(), bplus.StringKeys{}, ents, topts)
		if err != nil {
			return nil, err
		}
		if tree.Root() != types.NoPage {
			return nil, types.Corruptf("primary root allocated at %d on a fresh file", tree.Root())
		}
	} else {
		tree, err = bplus.OpenTree[string, E](x.pool, x.opts.primary(), bplus.StringKeys{}, ents, types.NoPage, topts)
		if err != nil {
			return nil, err
		}
		if tree.Level() != cp.Level {
			x.logger.Warn("parameter file level differs from root page",
				zap.Int("params", cp.Level), zap.Int("root", tree.Level()))
		}
		tree.SetCount(cp.Count)
	}

	if err := x.pool.Lock(tree.Root()); err != nil {
		return nil, err
	}
	x.count = tree.Count
	x.level = tree.Level

	if x.mode == ModeCreate {
		if err := x.Sync(); err != nil {
			return nil, err
		}
	}
	x.logger.Info("index open", zap.String("mode", x.mode.String()), zap.String("kind", x.kind),
		zap.Int("level", tree.Level()), zap.Int64("count", tree.Count()))
	return tree, nil
}

func (x *index) Name() string { return x.name }
func (x *index) Kind() string { return x.kind }

// guard refuses operations on a closed or torn index, and writes on a
// read-only one.
func (x *index) guard(write bool) error {
	switch {
	case x.closed:
		return errors.Wrapf(ErrClosed, "index %s", x.name)
	case x.torn != nil:
		return errors.Wrapf(types.ErrTorn, "index %s: %v", x.name, x.torn)
	case write && x.mode == ModeRead:
		return errors.Wrapf(types.ErrReadOnly, "index %s", x.name)
	}
	return nil
}

// fail latches the first fatal error; from then on the index only closes.
func (x *index) fail(err error) error {
	if err != nil && types.IsFatal(err) && x.torn == nil {
		x.torn = err
		x.logger.Error("index torn, rebuild required", zap.Error(err),
			zap.Stringer("kind", types.Kind(err)))
	}
	return err
}

// Sync flushes every dirty page and rewrites the parameter file.
func (x *index) Sync() error {
	if x.mode == ModeRead && !x.closed {
		return nil
	}
	if err := x.guard(true); err != nil {
		return err
	}
	if err := x.pool.Sync(types.NoPage); err != nil {
		return x.fail(err)
	}

	cp := checkpoint.Checkpoint{
		Order:     x.opts.Order,
		Fill:      x.opts.Fill,
		Pagesize:  x.opts.PageSize,
		Level:     x.level(),
		Cachesize: x.opts.CacheSize,
		Order2:    x.opts.Order2,
		Fill2:     x.opts.Fill2,
		Count:     x.count(),
		Kwlimit:   x.opts.KwLimit,
		Kind:      x.kind,
		Totsize:   x.pool.Totsize(),
	}
	if err := x.params.SaveCheckpoint(cp); err != nil {
		return err
	}
	x.logger.Info("index sync", zap.Int64("count", cp.Count), zap.Int("level", cp.Level),
		zap.Int64("totsize", cp.Totsize))
	return nil
}

// Close syncs a healthy writable index and releases the file. A torn
// writable index keeps its data file as of the last sync and gets a Torn
// line in its parameter file, so later opens refuse it.
func (x *index) Close() error {
	if x.closed {
		return nil
	}

	var firstErr error
	switch {
	case x.mode == ModeRead:
	case x.torn == nil:
		firstErr = x.Sync()
	default:
		firstErr = x.markTorn()
	}
	x.closed = true
	x.strNodes.Close()
	x.numNodes.Close()

	release := x.pool.Close
	if x.torn != nil && x.mode != ModeRead {
		release = x.pool.Discard
	}
	if err := release(); err != nil && firstErr == nil {
		firstErr = err
	}
	x.logger.Info("index close", zap.Bool("torn", x.torn != nil))
	return firstErr
}

// markTorn records the latched error in the parameter file. The rest of the
// file is left as of the last sync; a never synced index gets its shape.
func (x *index) markTorn() error {
	cp, err := x.params.LoadCheckpoint()
	if err != nil {
		cp = &checkpoint.Checkpoint{
			Order:     x.opts.Order,
			Fill:      x.opts.Fill,
			Pagesize:  x.opts.PageSize,
			Cachesize: x.opts.CacheSize,
			Order2:    x.opts.Order2,
			Fill2:     x.opts.Fill2,
			Kwlimit:   x.opts.KwLimit,
			Kind:      x.kind,
		}
	}
	cp.Torn = x.torn.Error()
	if err := x.params.SaveCheckpoint(*cp); err != nil {
		return errors.Wrapf(err, "index %s: record torn state", x.name)
	}
	return nil
}

func (x *index) Stats() IndexStats {
	hits, misses := x.strNodes.Stats()
	nh, nm := x.numNodes.Stats()
	st := IndexStats{
		Name:       x.name,
		Kind:       x.kind,
		Torn:       x.torn != nil,
		Pool:       x.pool.GetStats(),
		NodeHits:   hits + nh,
		NodeMisses: misses + nm,
	}
	if x.count != nil {
		st.Count = x.count()
		st.Level = x.level()
	}
	st.FileSize = st.Pool.FileSize
	return st
}

// Options returns the effective options, shape included.
func (x *index) Options() Options {
	return x.opts
}

// numTree opens the duplicate chain rooted at root, or creates a new one
// when root is NoPage.
func (x *index) numTree(root types.PageNo) (*bplus.Tree[int64, bplus.NumEntry], error) {
	cfg := bplus.NumConfig(x.opts.PageSize)
	topts := bplus.Options[int64]{Nodes: x.numNodes, Logger: x.logger}
	if root == types.NoPage {
		return bplus.CreateTree[int64, bplus.NumEntry](x.pool, cfg, bplus.NumKeys{}, bplus.NumEntries{}, topts)
	}
	return bplus.OpenTree[int64, bplus.NumEntry](x.pool, cfg, bplus.NumKeys{}, bplus.NumEntries{}, root, topts)
}

// secTree opens the id set of one keyword, or creates a new one when root
// is NoPage.
func (x *index) secTree(root types.PageNo) (*bplus.Tree[string, bplus.SecIDEntry], error) {
	topts := bplus.Options[string]{Nodes: x.strNodes, Logger: x.logger}
	if root == types.NoPage {
		return bplus.CreateTree[string, bplus.SecIDEntry](x.pool, x.opts.secondary(), bplus.StringKeys{}, bplus.SecIDEntries{}, topts)
	}
	return bplus.OpenTree[string, bplus.SecIDEntry](x.pool, x.opts.secondary(), bplus.StringKeys{}, bplus.SecIDEntries{}, root, topts)
}

// abort releases an index whose open failed half way.
func (x *index) abort() {
	x.closed = true
	x.strNodes.Close()
	x.numNodes.Close()
	x.pool.Close()
}
