package indexfile

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

/*
This file is the main file for Index File Manager that deals with the index files of one database directory
Every index is a pair of files: the page file holding its trees and the parameter file written on sync

An id index holds one primary tree of ids plus the numeric trees of duplicate ids
A keyword index holds one primary tree of keywords plus a secondary tree of ids per keyword
Each open index owns its own page cache
*/

// NewIndexFileManager serves the indexes under baseDir. A read-only manager
// never creates an index.
func NewIndexFileManager(baseDir string, opts Options, readOnly bool) (*IndexFileManager, error) {
	if !readOnly {
		if err := os.MkdirAll(baseDir, 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create index directory")
		}
	}

	return &IndexFileManager{
		baseDir:  baseDir,
		opts:     opts,
		readOnly: readOnly,
		indexes:  make(map[string]Index),
		logger:   opts.logger().Named("indexfile"),
	}, nil
}

// GetOrCreateIDIndex returns the open id index called name, opening it or,
// when the manager is writable and no such index exists, creating it.
func (ifm *IndexFileManager) GetOrCreateIDIndex(name string) (*IDIndex, error) {
	x, err := ifm.getOrOpen(name, KindID, IDExt, func(mode Mode) (Index, error) {
		return OpenIDIndex(ifm.baseDir, name, mode, ifm.opts)
	})
	if err != nil {
		return nil, err
	}
	return x.(*IDIndex), nil
}

// GetOrCreateKeywordIndex is GetOrCreateIDIndex for keyword indexes.
func (ifm *IndexFileManager) GetOrCreateKeywordIndex(name string) (*KeywordIndex, error) {
	x, err := ifm.getOrOpen(name, KindKeyword, KeywordExt, func(mode Mode) (Index, error) {
		return OpenKeywordIndex(ifm.baseDir, name, mode, ifm.opts)
	})
	if err != nil {
		return nil, err
	}
	return x.(*KeywordIndex), nil
}

// CreateIDIndex replaces any index called name with a new empty one.
func (ifm *IndexFileManager) CreateIDIndex(name string) (*IDIndex, error) {
	if err := ifm.CloseIndex(name); err != nil {
		return nil, err
	}
	x, err := ifm.getOrOpen(name, KindID, IDExt, func(Mode) (Index, error) {
		return OpenIDIndex(ifm.baseDir, name, ModeCreate, ifm.opts)
	})
	if err != nil {
		return nil, err
	}
	return x.(*IDIndex), nil
}

// CreateKeywordIndex replaces any index called name with a new empty one.
func (ifm *IndexFileManager) CreateKeywordIndex(name string) (*KeywordIndex, error) {
	if err := ifm.CloseIndex(name); err != nil {
		return nil, err
	}
	x, err := ifm.getOrOpen(name, KindKeyword, KeywordExt, func(Mode) (Index, error) {
		return OpenKeywordIndex(ifm.baseDir, name, ModeCreate, ifm.opts)
	})
	if err != nil {
		return nil, err
	}
	return x.(*KeywordIndex), nil
}

func (ifm *IndexFileManager) getOrOpen(name, kind, ext string, open func(Mode) (Index, error)) (Index, error) {
	ifm.mu.RLock()
	x, exists := ifm.indexes[name]
	ifm.mu.RUnlock()
	if exists {
		return checkKind(x, kind)
	}

	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	// another caller may have opened it meanwhile
	if x, exists := ifm.indexes[name]; exists {
		return checkKind(x, kind)
	}

	mode := ModeWrite
	switch {
	case ifm.readOnly:
		mode = ModeRead
	case !fileExists(DataPath(ifm.baseDir, name, ext)) || !fileExists(ParamPath(ifm.baseDir, name, ext)):
		mode = ModeCreate
	}

	x, err := open(mode)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s index %q", kind, name)
	}
	ifm.indexes[name] = x
	ifm.logger.Debug("index cached", zap.String("index", name), zap.String("kind", kind))
	return x, nil
}

func checkKind(x Index, kind string) (Index, error) {
	if x.Kind() != kind {
		return nil, errors.Errorf("index %q is open as a %s index, not %s", x.Name(), x.Kind(), kind)
	}
	return x, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Indexes lists the open indexes.
func (ifm *IndexFileManager) Indexes() []Index {
	ifm.mu.RLock()
	defer ifm.mu.RUnlock()

	out := make([]Index, 0, len(ifm.indexes))
	for _, x := range ifm.indexes {
		out = append(out, x)
	}
	return out
}

// SyncAll syncs every open index.
func (ifm *IndexFileManager) SyncAll() error {
	ifm.mu.RLock()
	defer ifm.mu.RUnlock()

	var firstErr error
	for name, x := range ifm.indexes {
		if err := x.Sync(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "failed to sync index %q", name)
		}
	}
	return firstErr
}

// CloseIndex closes the index called name and forgets it.
func (ifm *IndexFileManager) CloseIndex(name string) error {
	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	x, exists := ifm.indexes[name]
	if !exists {
		return nil
	}
	delete(ifm.indexes, name)
	if err := x.Close(); err != nil {
		return errors.Wrapf(err, "failed to close index %q", name)
	}
	return nil
}

// CloseAll closes every open index.
func (ifm *IndexFileManager) CloseAll() error {
	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	var firstErr error
	for name, x := range ifm.indexes {
		if err := x.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "failed to close index %q", name)
		}
		delete(ifm.indexes, name)
	}
	return firstErr
}
