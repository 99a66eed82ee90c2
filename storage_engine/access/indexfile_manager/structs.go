package indexfile

import (
	bplus "SeqIndex/storage_engine/access/indexfile_manager/bplustree"
	"SeqIndex/storage_engine/bufferpool"
	checkpoint "SeqIndex/storage_engine/checkpoint_manager"
	"sync"

	"go.uber.org/zap"
)

const (
	KindID      = "id"
	KindKeyword = "keyword"

	IDExt      = "xid"
	KeywordExt = "xkw"
)

// IndexFileManager keeps the open indexes of one database directory.
type IndexFileManager struct {
	baseDir  string
	opts     Options
	readOnly bool
	indexes  map[string]Index // index name → open handle
	logger   *zap.Logger
	mu       sync.RWMutex
}

// Index is what every open index handle offers.
type Index interface {
	Name() string
	Kind() string
	Sync() error
	Close() error
	Stats() IndexStats
}

// index is the state shared by IDIndex and KeywordIndex: one data file, its
// page cache and its parameter file. The primary tree is rooted at offset 0;
// nested trees live in the same file.
type index struct {
	name     string
	kind     string
	dataPath string
	mode     Mode
	opts     Options

	pool     *bufferpool.BufferPool
	params   *checkpoint.CheckpointManager
	strNodes *bplus.NodeCache[string]
	numNodes *bplus.NodeCache[int64]

	// count and level of the primary tree, read by sync
	count func() int64
	level func() int

	torn   error // first fatal error, latched
	closed bool
	logger *zap.Logger
}

// IndexStats is a snapshot of one open index.
type IndexStats struct {
	Name       string
	Kind       string
	Count      int64
	Level      int
	FileSize   int64
	Torn       bool
	Pool       bufferpool.BufferPoolStats
	NodeHits   uint64
	NodeMisses uint64
}
