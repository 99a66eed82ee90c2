package checkpoint

import "sync"

// CheckpointManager owns the parameter file of one index: the small text
// file next to the data file that records the tree shape and counters as of
// the last sync.
type CheckpointManager struct {
	checkpointPath string
	mu             sync.RWMutex
}

// Checkpoint is the content of a parameter file. Field names double as the
// keys written to the file.
type Checkpoint struct {
	Order     int
	Fill      int
	Pagesize  int
	Level     int
	Cachesize int
	Order2    int
	Fill2     int
	Count     int64
	Kwlimit   int
	Kind      string // "id" or "keyword"
	Totsize   int64
	Torn      string // reason the index was torn; empty when healthy
}
