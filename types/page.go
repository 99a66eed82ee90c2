package types

import "fmt"

const (
	DefaultPageSize = 2048
	MinPageSize     = 512
	MaxPageSize     = 65536
)

// PageNo addresses a page by its byte offset in the index file.
// Offset 0 is always the primary tree root.
type PageNo int64

// NoPage marks an absent link (sibling, parent, overflow, bucket).
// Page 0 is the root and can never be the target of such a link.
const NoPage PageNo = 0

func (p PageNo) String() string {
	return fmt.Sprintf("%d", int64(p))
}

type NodeType uint32

const (
	NodeUnknown NodeType = iota
	NodeRoot
	NodeInternal
	NodeLeaf
	NodeBucket
	NodeOverflow
	NodeNumBucket
	NodeSecBucket
	NodeKwBucket
)

func (t NodeType) String() string {
	switch t {
	case NodeRoot:
		return "root"
	case NodeInternal:
		return "internal"
	case NodeLeaf:
		return "leaf"
	case NodeBucket:
		return "bucket"
	case NodeOverflow:
		return "overflow"
	case NodeNumBucket:
		return "num-bucket"
	case NodeSecBucket:
		return "sec-bucket"
	case NodeKwBucket:
		return "kw-bucket"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(t))
	}
}

// IsNode reports whether t is a tree node (as opposed to a bucket or an
// overflow continuation).
func (t NodeType) IsNode() bool {
	return t == NodeRoot || t == NodeInternal || t == NodeLeaf
}
