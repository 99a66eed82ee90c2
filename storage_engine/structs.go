package storageengine

import (
	heapfile "SeqIndex/storage_engine/access/heapfile_manager"
	indexfile "SeqIndex/storage_engine/access/indexfile_manager"
	"SeqIndex/storage_engine/catalog"
	"sync"

	"go.uber.org/zap"
)

const (
	// IDIndexName is the index of record ids, duplicates chained.
	IDIndexName = "id"
	// KeywordIndexName is the index of description words.
	KeywordIndexName = "des"
)

// StorageEngine is one database directory: the flat files it knows, an id
// index and a keyword index over their records.
type StorageEngine struct {
	CatalogManager *catalog.CatalogManager
	IndexManager   *indexfile.IndexFileManager
	HeapManager    *heapfile.HeapFileManager

	DbRoot   string
	readOnly bool
	logger   *zap.Logger

	// one build or delete at a time; the indexes are single-writer
	mu sync.Mutex
}

type Options struct {
	Index    indexfile.Options
	ReadOnly bool
	Logger   *zap.Logger
}

// BuildStats counts what one Build did.
type BuildStats struct {
	DBNo     int32
	Records  int64
	Skipped  int64 // records without a usable id
	Keywords int64 // new (keyword, id) pairs
	Bytes    int64
}

// EngineStats is a snapshot of the database.
type EngineStats struct {
	Root    string
	Sources []catalog.Source
	Indexes []indexfile.IndexStats
}
