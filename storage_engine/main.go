package storageengine

import (
	heapfile "SeqIndex/storage_engine/access/heapfile_manager"
	indexfile "SeqIndex/storage_engine/access/indexfile_manager"
	"SeqIndex/storage_engine/catalog"
	"SeqIndex/types"
	"os"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

/*
The main file of storage engine, that initializes the catalog, the flat files and the index managers
of one database directory

	<root>/metadata/catalog.json   flat files and their numbers
	<root>/id.xid, id.pxid         id index and its parameter file
	<root>/des.xkw, des.pxkw       keyword index and its parameter file

Indexes are opened on first use
*/

func NewStorageEngine(dbRoot string, opts Options) (*StorageEngine, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Index.Logger == nil {
		opts.Index.Logger = opts.Logger
	}

	if opts.ReadOnly {
		if _, err := os.Stat(dbRoot); err != nil {
			return nil, errors.Wrap(err, "failed to open database")
		}
	} else if err := os.MkdirAll(dbRoot, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create db root")
	}

	catalogManager, err := catalog.NewCatalogManager(dbRoot)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init catalog manager")
	}
	indexManager, err := indexfile.NewIndexFileManager(dbRoot, opts.Index, opts.ReadOnly)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init index manager")
	}

	se := &StorageEngine{
		CatalogManager: catalogManager,
		IndexManager:   indexManager,
		HeapManager:    heapfile.NewHeapFileManager(dbRoot),
		DbRoot:         dbRoot,
		readOnly:       opts.ReadOnly,
		logger:         opts.Logger.Named("engine"),
	}

	for _, src := range catalogManager.ListSources() {
		if _, err := se.HeapManager.LoadHeapFile(src.Path, src.DBNo); err != nil {
			// indexes stay usable, only record fetches fail
			se.logger.Warn("flat file unavailable", zap.Int32("dbno", src.DBNo), zap.Error(err))
		}
	}
	se.logger.Info("database open", zap.String("root", dbRoot), zap.Bool("read_only", opts.ReadOnly),
		zap.Int("sources", len(catalogManager.ListSources())))
	return se, nil
}

func (se *StorageEngine) ReadOnly() bool { return se.readOnly }

func (se *StorageEngine) requireWritable() error {
	if se.readOnly {
		return errors.Wrap(types.ErrReadOnly, "database opened read-only")
	}
	return nil
}

func (se *StorageEngine) idIndex() (*indexfile.IDIndex, error) {
	return se.IndexManager.GetOrCreateIDIndex(IDIndexName)
}

func (se *StorageEngine) keywordIndex() (*indexfile.KeywordIndex, error) {
	return se.IndexManager.GetOrCreateKeywordIndex(KeywordIndexName)
}

// Sync writes every open index to disk.
func (se *StorageEngine) Sync() error {
	return se.IndexManager.SyncAll()
}

// Stats opens nothing; indexes not yet used are not listed.
func (se *StorageEngine) Stats() EngineStats {
	st := EngineStats{Root: se.DbRoot, Sources: se.CatalogManager.ListSources()}
	for _, x := range se.IndexManager.Indexes() {
		st.Indexes = append(st.Indexes, x.Stats())
	}
	sort.Slice(st.Indexes, func(i, j int) bool { return st.Indexes[i].Name < st.Indexes[j].Name })
	return st
}

// Close syncs and closes the indexes, then the flat files.
func (se *StorageEngine) Close() error {
	err := se.IndexManager.CloseAll()
	if herr := se.HeapManager.CloseAll(); err == nil {
		err = herr
	}
	se.logger.Info("database closed", zap.String("root", se.DbRoot))
	return err
}
