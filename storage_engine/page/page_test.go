package page

import (
	"SeqIndex/types"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestPage(no types.PageNo) *Page {
	return &Page{No: no, Data: make([]byte, 512)}
}

// TestPageNodeHeader tests the node header accessors
func TestPageNodeHeader(t *testing.T) {
	p := newTestPage(1024)
	p.Data[100] = 0xff
	p.Init(types.NodeLeaf)

	assert.Equal(t, byte(0), p.Data[100], "Init must zero the page")
	assert.Equal(t, types.NodeLeaf, p.Type())
	assert.Equal(t, types.PageNo(1024), p.BlockNumber())
	assert.Equal(t, NodeHeaderSize, p.HeaderSize())

	p.SetNKeys(3)
	p.SetTotalLen(17)
	p.SetLeft(512)
	p.SetRight(1536)
	p.SetPrev(0)
	p.SetOverflow(2048)

	assert.Equal(t, 3, p.NKeys())
	assert.Equal(t, 17, p.TotalLen())
	assert.Equal(t, types.PageNo(512), p.Left())
	assert.Equal(t, types.PageNo(1536), p.Right())
	assert.Equal(t, types.PageNo(0), p.Prev())
	assert.Equal(t, types.PageNo(2048), p.Overflow())
	assert.Equal(t, uint64(2048), le.Uint64(p.Data[offNodeOvfl:]))
}

// TestPageOverflowOffsets tests that each page family keeps its continuation
// pointer at its own header position
func TestPageOverflowOffsets(t *testing.T) {
	cases := []struct {
		typ    types.NodeType
		offset int
		header int
	}{
		{types.NodeRoot, offNodeOvfl, NodeHeaderSize},
		{types.NodeInternal, offNodeOvfl, NodeHeaderSize},
		{types.NodeBucket, offBucketOvfl, BucketHeaderSize},
		{types.NodeNumBucket, offBucketOvfl, BucketHeaderSize},
		{types.NodeSecBucket, offBucketOvfl, BucketHeaderSize},
		{types.NodeKwBucket, offBucketOvfl, BucketHeaderSize},
		{types.NodeOverflow, offOvflOvfl, OverflowHeaderSize},
	}

	for _, tc := range cases {
		p := newTestPage(512)
		p.Init(tc.typ)
		p.SetOverflow(4096)
		assert.Equal(t, uint64(4096), le.Uint64(p.Data[tc.offset:]), tc.typ.String())
		assert.Equal(t, tc.header, p.HeaderSize(), tc.typ.String())
		assert.Equal(t, types.PageNo(512), p.BlockNumber(), tc.typ.String())
	}
}

// TestPageBucketEntries tests the bucket entry counter
func TestPageBucketEntries(t *testing.T) {
	p := newTestPage(512)
	p.Init(types.NodeBucket)
	p.SetNEntries(9)
	assert.Equal(t, 9, p.NEntries())
	assert.Equal(t, types.PageNo(0), p.Overflow())
}

// TestPageEvictable tests the eviction predicate
func TestPageEvictable(t *testing.T) {
	p := newTestPage(0)
	assert.True(t, p.Evictable())

	p.State = Dirty
	assert.True(t, p.Evictable())

	p.Pins = 1
	assert.False(t, p.Evictable())

	p.Pins = 0
	p.State = Locked
	assert.False(t, p.Evictable())
	assert.Equal(t, "locked", p.State.String())
}
