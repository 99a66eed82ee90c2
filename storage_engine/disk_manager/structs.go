package diskmanager

import (
	"os"
	"sync"
)

// ############################################# DISK MANAGER #############################################

// MaxRetries bounds how often a short read or write is retried before the
// operation is reported as an i/o failure.
const MaxRetries = 100

type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
	ModeCreate
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	case ModeCreate:
		return "create"
	default:
		return "unknown"
	}
}

// DiskManager owns the OS handle of one index data file. Pages are addressed
// by byte offset, so the manager never needs a page-number mapping.
type DiskManager struct {
	file     *os.File
	filePath string
	mode     Mode
	size     int64 // bytes currently on disk
	mu       sync.Mutex
}
