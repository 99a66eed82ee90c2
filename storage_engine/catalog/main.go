package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

/*
This file is the main access of Catalog Manager
Catalog manager maintains the metadata of the database and also persists it on the disk
It persists the flat files of the database, their numbers and record counts, in metadata/catalog.json
The mapping is loaded when the database is opened
*/

const catalogFileName = "catalog.json"

func NewCatalogManager(dbRoot string) (*CatalogManager, error) {
	cm := &CatalogManager{
		dbRoot:  dbRoot,
		Sources: make(map[int32]Source),
	}
	if err := cm.load(); err != nil {
		return nil, err
	}
	return cm, nil
}

func (cm *CatalogManager) path() string {
	return filepath.Join(cm.dbRoot, "metadata", catalogFileName)
}

func (cm *CatalogManager) load() error {
	data, err := os.ReadFile(cm.path())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to read catalog")
	}

	var cf catalogFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return errors.Wrap(err, "failed to parse catalog")
	}
	cm.nextDBNo = cf.NextDBNo
	for _, s := range cf.Sources {
		cm.Sources[s.DBNo] = s
		if s.DBNo >= cm.nextDBNo {
			cm.nextDBNo = s.DBNo + 1
		}
	}
	return nil
}

// RegisterSource numbers the flat file at path, or returns its number if it
// is already known. The path is stored absolute.
func (cm *CatalogManager) RegisterSource(path string, size int64) (Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Source{}, errors.Wrapf(err, "failed to resolve %s", path)
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	for _, s := range cm.Sources {
		if s.Path == abs {
			return s, nil
		}
	}
	s := Source{DBNo: cm.nextDBNo, Path: abs, Size: size}
	cm.Sources[s.DBNo] = s
	cm.nextDBNo++
	return s, cm.persist()
}

// MarkBuilt records that the records of dbno have been indexed.
func (cm *CatalogManager) MarkBuilt(dbno int32, records int64) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	s, exists := cm.Sources[dbno]
	if !exists {
		return errors.Errorf("dbno %d not in catalog", dbno)
	}
	s.Records = records
	s.Built = true
	cm.Sources[dbno] = s
	return cm.persist()
}

// UnregisterSource forgets dbno. Numbers are never reused.
func (cm *CatalogManager) UnregisterSource(dbno int32) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.Sources[dbno]; !exists {
		return errors.Errorf("dbno %d not in catalog", dbno)
	}
	delete(cm.Sources, dbno)
	return cm.persist()
}

func (cm *CatalogManager) GetSource(dbno int32) (Source, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	s, exists := cm.Sources[dbno]
	if !exists {
		return Source{}, errors.Errorf("dbno %d not in catalog", dbno)
	}
	return s, nil
}

// ListSources returns every source ordered by number.
func (cm *CatalogManager) ListSources() []Source {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	out := make([]Source, 0, len(cm.Sources))
	for _, s := range cm.Sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DBNo < out[j].DBNo })
	return out
}

func (cm *CatalogManager) persist() error {
	metaDir := filepath.Join(cm.dbRoot, "metadata")
	if err := os.MkdirAll(metaDir, 0755); err != nil {
		return errors.Wrap(err, "failed to create metadata directory")
	}

	cf := catalogFile{NextDBNo: cm.nextDBNo}
	for _, s := range cm.Sources {
		cf.Sources = append(cf.Sources, s)
	}
	sort.Slice(cf.Sources, func(i, j int) bool { return cf.Sources[i].DBNo < cf.Sources[j].DBNo })

	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode catalog")
	}

	tmp := cm.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write catalog")
	}
	return errors.Wrap(os.Rename(tmp, cm.path()), "failed to replace catalog")
}
