package catalog

import "sync"

// CatalogManager records which flat files a database directory indexes.
type CatalogManager struct {
	dbRoot   string
	Sources  map[int32]Source
	nextDBNo int32
	mu       sync.RWMutex
}

// Source is one flat file known to the database. DBNo is the number stored
// in index entries pointing into it.
type Source struct {
	DBNo    int32  `json:"dbno"`
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Records int64  `json:"records"`
	Built   bool   `json:"built"`
}

type catalogFile struct {
	NextDBNo int32    `json:"next_dbno"`
	Sources  []Source `json:"sources"`
}
