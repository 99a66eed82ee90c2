package heapfile

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

/*
This file is the start of the heapfile manager
A heap file here is a flat file of records in FASTA layout, each record a header
line starting with '>' followed by its sequence lines

	>sp|P69905|HBA_HUMAN Hemoglobin subunit alpha
	MVLSPADKTNVKAAWGKVGAHAGEYGAEALERMFLSFPTTKTYFPHF
	...

The files are never written; indexes point into them by (dbno, offset)
*/

// NewHeapFileManager resolves relative paths against baseDir.
func NewHeapFileManager(baseDir string) *HeapFileManager {
	return &HeapFileManager{
		baseDir: baseDir,
		files:   make(map[int32]*HeapFile),
		byPath:  make(map[string]int32),
	}
}

// LoadHeapFile opens path as database number dbno. Loading the same path
// under the same number again returns the open file.
func (hfm *HeapFileManager) LoadHeapFile(path string, dbno int32) (*HeapFile, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(hfm.baseDir, path)
	}

	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	if n, exists := hfm.byPath[path]; exists {
		if n != dbno {
			return nil, errors.Errorf("flat file %s already loaded as dbno %d", path, n)
		}
		return hfm.files[n], nil
	}
	if _, exists := hfm.files[dbno]; exists {
		return nil, errors.Errorf("dbno %d already in use", dbno)
	}

	hf, err := OpenHeapFile(path, dbno)
	if err != nil {
		return nil, err
	}
	hfm.files[dbno] = hf
	hfm.byPath[path] = dbno
	return hf, nil
}

// OpenHeapFile opens a flat file outside any manager.
func OpenHeapFile(path string, dbno int32) (*HeapFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open flat file %s", path)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "failed to stat flat file %s", path)
	}
	return &HeapFile{dbno: dbno, filePath: path, file: file, size: stat.Size()}, nil
}

func (hf *HeapFile) DBNo() int32 { return hf.dbno }
func (hf *HeapFile) Path() string { return hf.filePath }
func (hf *HeapFile) Size() int64 { return hf.size }

func (hf *HeapFile) Close() error {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	if hf.file == nil {
		return nil
	}
	err := hf.file.Close()
	hf.file = nil
	return err
}

// CloseAll closes every loaded file.
func (hfm *HeapFileManager) CloseAll() error {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	var firstErr error
	for dbno, hf := range hfm.files {
		if err := hf.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "failed to close flat file %d", dbno)
		}
	}
	hfm.files = make(map[int32]*HeapFile)
	hfm.byPath = make(map[string]int32)
	return firstErr
}
