package page

import (
	"SeqIndex/types"
	"container/list"
	"encoding/binary"
)

/*
Page is the in-memory copy of one fixed-size block of an index file.
The buffer pool owns every Page; callers borrow one until their next
buffer pool call that might evict it. Only Locked pages (the root) and
pinned pages are guaranteed to survive.

Every page starts with a 4-byte node type and its own 8-byte offset. The
rest of the header depends on the type:

	node (root, internal, leaf)          52 bytes
	  nodeType  uint32  0
	  blockNo   int64   4
	  nKeys     uint32  12
	  totLen    uint32  16   sum of key lengths
	  left      int64   20   leaf chain, level 0 only
	  right     int64   28   leaf chain; on a root, the tree height
	  prev      int64   36   parent
	  overflow  int64   44

	bucket                               24 bytes
	  nodeType  uint32  0
	  blockNo   int64   4
	  nEntries  uint32  12
	  overflow  int64   16

	overflow continuation                20 bytes
	  nodeType  uint32  0
	  blockNo   int64   4
	  overflow  int64   12
*/

const (
	NodeHeaderSize     = 52
	BucketHeaderSize   = 24
	OverflowHeaderSize = 20

	offType     = 0
	offBlockNo  = 4
	offNKeys    = 12
	offTotLen   = 16
	offLeft     = 20
	offRight    = 28
	offPrev     = 36
	offNodeOvfl = 44

	offNEntries   = 12
	offBucketOvfl = 16

	offOvflOvfl = 12
)

var le = binary.LittleEndian

type State int

const (
	Clean State = iota
	Dirty
	Locked
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Locked:
		return "locked"
	default:
		return "unknown"
	}
}

type Page struct {
	No    types.PageNo
	Data  []byte
	State State
	Pins  int32

	Elem *list.Element // position in the buffer pool MRU/LRU list
}

// Evictable reports whether the buffer pool may drop this page.
func (p *Page) Evictable() bool {
	return p.State != Locked && p.Pins == 0
}

// Init zeroes the page and stamps its type and block number.
func (p *Page) Init(t types.NodeType) {
	for i := range p.Data {
		p.Data[i] = 0
	}
	p.SetType(t)
	p.SetBlockNumber(p.No)
}

func (p *Page) Type() types.NodeType {
	return types.NodeType(le.Uint32(p.Data[offType:]))
}

func (p *Page) SetType(t types.NodeType) {
	le.PutUint32(p.Data[offType:], uint32(t))
}

func (p *Page) BlockNumber() types.PageNo {
	return types.PageNo(le.Uint64(p.Data[offBlockNo:]))
}

func (p *Page) SetBlockNumber(no types.PageNo) {
	le.PutUint64(p.Data[offBlockNo:], uint64(no))
}

func (p *Page) NKeys() int {
	return int(le.Uint32(p.Data[offNKeys:]))
}

func (p *Page) SetNKeys(n int) {
	le.PutUint32(p.Data[offNKeys:], uint32(n))
}

func (p *Page) TotalLen() int {
	return int(le.Uint32(p.Data[offTotLen:]))
}

func (p *Page) SetTotalLen(n int) {
	le.PutUint32(p.Data[offTotLen:], uint32(n))
}

func (p *Page) Left() types.PageNo {
	return types.PageNo(le.Uint64(p.Data[offLeft:]))
}

func (p *Page) SetLeft(no types.PageNo) {
	le.PutUint64(p.Data[offLeft:], uint64(no))
}

func (p *Page) Right() types.PageNo {
	return types.PageNo(le.Uint64(p.Data[offRight:]))
}

func (p *Page) SetRight(no types.PageNo) {
	le.PutUint64(p.Data[offRight:], uint64(no))
}

func (p *Page) Prev() types.PageNo {
	return types.PageNo(le.Uint64(p.Data[offPrev:]))
}

func (p *Page) SetPrev(no types.PageNo) {
	le.PutUint64(p.Data[offPrev:], uint64(no))
}

func (p *Page) NEntries() int {
	return int(le.Uint32(p.Data[offNEntries:]))
}

func (p *Page) SetNEntries(n int) {
	le.PutUint32(p.Data[offNEntries:], uint32(n))
}

// Overflow returns the continuation pointer, wherever this page type keeps it.
func (p *Page) Overflow() types.PageNo {
	return types.PageNo(le.Uint64(p.Data[p.overflowOffset():]))
}

func (p *Page) SetOverflow(no types.PageNo) {
	le.PutUint64(p.Data[p.overflowOffset():], uint64(no))
}

func (p *Page) overflowOffset() int {
	switch p.Type() {
	case types.NodeOverflow:
		return offOvflOvfl
	case types.NodeBucket, types.NodeNumBucket, types.NodeSecBucket, types.NodeKwBucket:
		return offBucketOvfl
	default:
		return offNodeOvfl
	}
}

// HeaderSize is the number of header bytes for the page's current type.
func (p *Page) HeaderSize() int {
	return HeaderSizeOf(p.Type())
}

func HeaderSizeOf(t types.NodeType) int {
	switch t {
	case types.NodeOverflow:
		return OverflowHeaderSize
	case types.NodeBucket, types.NodeNumBucket, types.NodeSecBucket, types.NodeKwBucket:
		return BucketHeaderSize
	default:
		return NodeHeaderSize
	}
}
