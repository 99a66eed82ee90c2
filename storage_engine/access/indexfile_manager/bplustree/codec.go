package bplus

import (
	"SeqIndex/types"
	"encoding/binary"
	"strconv"
	"strings"
)

var le = binary.LittleEndian

const (
	ptrSize      = 8
	numKeySize   = 8
	numEntrySize = 20
)

// KeyCodec orders and serializes the keys of one tree layout.
type KeyCodec[K any] interface {
	Compare(a, b K) int
	// FixedSize is the width of every key, or 0 for length-prefixed keys.
	FixedSize() int
	Len(k K) int
	Put(dst []byte, k K)
	Get(src []byte) K
	Format(k K) string
}

// EntryCodec serializes bucket entries and extracts their keys.
type EntryCodec[K any, E any] interface {
	Key(e E) K
	BucketType() types.NodeType
	// FixedSize is the width of every entry, or 0 for length-prefixed entries.
	FixedSize() int
	Len(e E) int
	Put(dst []byte, e E)
	Get(src []byte) E
	// Overhead is the encoded size of an entry beyond its key bytes.
	Overhead() int
}

// StringKeys: NUL-terminated on disk, compared bytewise.
type StringKeys struct{}

func (StringKeys) Compare(a, b string) int { return strings.Compare(a, b) }
func (StringKeys) FixedSize() int          { return 0 }
func (StringKeys) Len(k string) int        { return len(k) }
func (StringKeys) Put(dst []byte, k string) {
	copy(dst, k)
}
func (StringKeys) Get(src []byte) string  { return string(src) }
func (StringKeys) Format(k string) string { return strconv.Quote(k) }

// NumKeys are file offsets.
type NumKeys struct{}

func (NumKeys) Compare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
func (NumKeys) FixedSize() int          { return numKeySize }
func (NumKeys) Len(int64) int           { return numKeySize }
func (NumKeys) Put(dst []byte, k int64) { le.PutUint64(dst, uint64(k)) }
func (NumKeys) Get(src []byte) int64    { return int64(le.Uint64(src)) }
func (NumKeys) Format(k int64) string   { return strconv.FormatInt(k, 10) }

// ############################################# ENTRIES #############################################

// IDEntry is a primary index record. Dups counts the further occurrences of
// the same id; on a chain head Offset is the root of the duplicate tree.
type IDEntry struct {
	ID        string
	DBNo      int32
	Dups      int32
	Offset    int64
	RefOffset int64
}

// KeywordEntry maps a keyword to the root of its secondary id tree.
type KeywordEntry struct {
	Keyword  string
	TreeRoot types.PageNo
}

// NumEntry is one occurrence of a duplicated id.
type NumEntry struct {
	Offset    int64
	RefOffset int64
	DBNo      int32
}

// SecIDEntry is an id stored under a keyword.
type SecIDEntry struct {
	ID string
}

// IDEntries: id NUL dbno(4) dups(4) offset(8) refoffset(8)
type IDEntries struct{}

func (IDEntries) Key(e IDEntry) string          { return e.ID }
func (IDEntries) BucketType() types.NodeType    { return types.NodeBucket }
func (IDEntries) FixedSize() int                { return 0 }
func (IDEntries) Overhead() int                 { return 1 + 4 + 4 + 8 + 8 }
func (c IDEntries) Len(e IDEntry) int           { return len(e.ID) + c.Overhead() }
func (IDEntries) Put(dst []byte, e IDEntry) {
	n := copy(dst, e.ID)
	dst[n] = 0
	p := dst[n+1:]
	le.PutUint32(p[0:], uint32(e.DBNo))
	le.PutUint32(p[4:], uint32(e.Dups))
	le.PutUint64(p[8:], uint64(e.Offset))
	le.PutUint64(p[16:], uint64(e.RefOffset))
}
func (c IDEntries) Get(src []byte) IDEntry {
	n := len(src) - c.Overhead()
	p := src[n+1:]
	return IDEntry{
		ID:        string(src[:n]),
		DBNo:      int32(le.Uint32(p[0:])),
		Dups:      int32(le.Uint32(p[4:])),
		Offset:    int64(le.Uint64(p[8:])),
		RefOffset: int64(le.Uint64(p[16:])),
	}
}

// KeywordEntries: keyword NUL root(8)
type KeywordEntries struct{}

func (KeywordEntries) Key(e KeywordEntry) string { return e.Keyword }
func (KeywordEntries) BucketType() types.NodeType {
	return types.NodeKwBucket
}
func (KeywordEntries) FixedSize() int              { return 0 }
func (KeywordEntries) Overhead() int               { return 1 + 8 }
func (c KeywordEntries) Len(e KeywordEntry) int    { return len(e.Keyword) + c.Overhead() }
func (KeywordEntries) Put(dst []byte, e KeywordEntry) {
	n := copy(dst, e.Keyword)
	dst[n] = 0
	le.PutUint64(dst[n+1:], uint64(e.TreeRoot))
}
func (c KeywordEntries) Get(src []byte) KeywordEntry {
	n := len(src) - c.Overhead()
	return KeywordEntry{
		Keyword:  string(src[:n]),
		TreeRoot: types.PageNo(le.Uint64(src[n+1:])),
	}
}

// SecIDEntries: id NUL
type SecIDEntries struct{}

func (SecIDEntries) Key(e SecIDEntry) string     { return e.ID }
func (SecIDEntries) BucketType() types.NodeType  { return types.NodeSecBucket }
func (SecIDEntries) FixedSize() int              { return 0 }
func (SecIDEntries) Overhead() int               { return 1 }
func (SecIDEntries) Len(e SecIDEntry) int        { return len(e.ID) + 1 }
func (SecIDEntries) Put(dst []byte, e SecIDEntry) {
	n := copy(dst, e.ID)
	dst[n] = 0
}
func (SecIDEntries) Get(src []byte) SecIDEntry {
	return SecIDEntry{ID: string(src[:len(src)-1])}
}

// NumEntries: offset(8) refoffset(8) dbno(4)
type NumEntries struct{}

func (NumEntries) Key(e NumEntry) int64          { return e.Offset }
func (NumEntries) BucketType() types.NodeType    { return types.NodeNumBucket }
func (NumEntries) FixedSize() int                { return numEntrySize }
func (NumEntries) Overhead() int                 { return numEntrySize - numKeySize }
func (NumEntries) Len(NumEntry) int              { return numEntrySize }
func (NumEntries) Put(dst []byte, e NumEntry) {
	le.PutUint64(dst[0:], uint64(e.Offset))
	le.PutUint64(dst[8:], uint64(e.RefOffset))
	le.PutUint32(dst[16:], uint32(e.DBNo))
}
func (NumEntries) Get(src []byte) NumEntry {
	return NumEntry{
		Offset:    int64(le.Uint64(src[0:])),
		RefOffset: int64(le.Uint64(src[8:])),
		DBNo:      int32(le.Uint32(src[16:])),
	}
}
