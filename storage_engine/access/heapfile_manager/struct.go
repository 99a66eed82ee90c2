package heapfile

import (
	"os"
	"sync"
)

// Record is one entry of a flat file as found by a Scanner.
type Record struct {
	ID          string
	DBNo        int32
	Offset      int64  // byte offset of the header line
	SeqOffset   int64  // byte offset of the line after the header
	Description string // header text after the id
	Words       []string
}

// HeapFile is one read-only flat file of records. Its number is the DBNo
// stored in index entries.
type HeapFile struct {
	dbno     int32
	filePath string
	file     *os.File
	size     int64
	mu       sync.RWMutex
}

// HeapFileManager keeps the flat files of a database open by number.
type HeapFileManager struct {
	baseDir string
	files   map[int32]*HeapFile
	byPath  map[string]int32 // path → dbno
	mu      sync.RWMutex
}
