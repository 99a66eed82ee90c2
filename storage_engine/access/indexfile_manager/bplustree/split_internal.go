package bplus

import (
	"SeqIndex/types"

	"go.uber.org/zap"
)

// splitInternal divides an overfull internal node at the median: n keeps
// the lower half, a new right node takes the upper half, and the median is
// inserted into n's parent.
func (t *Tree[K, E]) splitInternal(path []frame, n *node[K], keys []K, ptrs []types.PageNo) error {
	mid := len(keys) / 2
	median := keys[mid]

	r, err := t.newNode(types.NodeInternal)
	if err != nil {
		return err
	}
	r.keys = append([]K(nil), keys[mid+1:]...)
	r.ptrs = append([]types.PageNo(nil), ptrs[mid+1:]...)
	r.prev = n.prev
	if err := t.adopt(r); err != nil {
		return err
	}
	if err := t.writeNode(r); err != nil {
		return err
	}

	n.keys = append([]K(nil), keys[:mid]...)
	n.ptrs = append([]types.PageNo(nil), ptrs[:mid+1]...)
	if err := t.writeNode(n); err != nil {
		return err
	}
	return t.insertKey(path, median, n.no, r.no)
}

// splitRoot moves both halves of an overfull root into two new internal
// nodes and leaves the median alone in the root, which keeps its page.
func (t *Tree[K, E]) splitRoot(root *node[K], keys []K, ptrs []types.PageNo) error {
	mid := len(keys) / 2

	l, err := t.newNode(types.NodeInternal)
	if err != nil {
		return err
	}
	r, err := t.newNode(types.NodeInternal)
	if err != nil {
		return err
	}
	l.keys = append([]K(nil), keys[:mid]...)
	l.ptrs = append([]types.PageNo(nil), ptrs[:mid+1]...)
	r.keys = append([]K(nil), keys[mid+1:]...)
	r.ptrs = append([]types.PageNo(nil), ptrs[mid+1:]...)
	l.prev, r.prev = root.no, root.no

	for _, c := range []*node[K]{l, r} {
		if err := t.adopt(c); err != nil {
			return err
		}
		if err := t.writeNode(c); err != nil {
			return err
		}
	}

	t.level++
	root.keys = []K{keys[mid]}
	root.ptrs = []types.PageNo{l.no, r.no}
	if err := t.writeNode(root); err != nil {
		return err
	}
	t.logger.Info("root split", zap.Int64("root", int64(t.root)), zap.Int("level", t.level))
	return nil
}

// adopt points the parent link of every child of n at n.
func (t *Tree[K, E]) adopt(n *node[K]) error {
	for _, c := range n.ptrs {
		if err := t.setPrev(c, n.no); err != nil {
			return err
		}
	}
	return nil
}
