package bplus

import (
	"SeqIndex/types"

	"github.com/pkg/errors"
)

// maxInsertPasses bounds the restructure-and-retry loop of Insert: a shift,
// then a reorder or split, then the add.
const maxInsertPasses = 4

// Insert adds e to the tree. It returns false, changing nothing, when an
// entry with the same key is already present.
func (t *Tree[K, E]) Insert(e E) (bool, error) {
	key := t.ents.Key(e)
	if t.keys.Len(key) > t.MaxKeyLen() {
		return false, errors.Wrapf(ErrKeyTooLong, "key %s", t.keys.Format(key))
	}

	for pass := 0; pass < maxInsertPasses; pass++ {
		path, leaf, _, b, err := t.locate(key)
		if err != nil {
			return false, err
		}

		// the first insert into an empty root leaf
		if b == nil {
			return true, t.seedRoot(leaf, e)
		}

		if t.findEntry(b.entries, key) >= 0 {
			return false, nil
		}
		if len(b.entries) < t.cfg.Fill {
			b.entries = append(b.entries, e)
			if err := t.writeBucket(b); err != nil {
				return false, err
			}
			t.count++
			return true, nil
		}

		// target bucket is full: make room and locate again
		if pass == 0 && leaf.no != t.root && len(leaf.keys) == t.cfg.MaxKeys() {
			shifted, err := t.insertShift(path, leaf)
			if err != nil {
				return false, err
			}
			if shifted {
				continue
			}
		}
		ok, err := t.reorderBuckets(leaf)
		if err != nil {
			return false, err
		}
		if !ok {
			if err := t.splitLeaf(path, leaf); err != nil {
				return false, err
			}
		}
	}
	return false, types.Corruptf("no room for key %s after restructuring", t.keys.Format(key))
}

// seedRoot turns the never-used root leaf into one key over two buckets,
// the new entry going to the right one.
func (t *Tree[K, E]) seedRoot(root *node[K], e E) error {
	left, err := t.newBucket(nil)
	if err != nil {
		return err
	}
	right, err := t.newBucket([]E{e})
	if err != nil {
		return err
	}
	root.keys = []K{t.ents.Key(e)}
	root.ptrs = []types.PageNo{left, right}
	if err := t.writeNode(root); err != nil {
		return err
	}
	t.count++
	return nil
}

// insertShift moves one key and its pointer from a full node to an adjacent
// sibling under the same parent that has room to spare. It reports whether a
// shift happened.
func (t *Tree[K, E]) insertShift(path []frame, n *node[K]) (bool, error) {
	if len(path) == 0 {
		return false, nil
	}
	pf := path[len(path)-1]
	parent, err := t.readNode(pf.no)
	if err != nil {
		return false, err
	}
	if parent.ptrs[pf.idx] != n.no {
		return false, types.Corruptf("page %d: child %d is %d, expected %d", parent.no, pf.idx, parent.ptrs[pf.idx], n.no)
	}
	leafLevel := n.typ == types.NodeLeaf

	var left, right *node[K]
	if pf.idx > 0 {
		if left, err = t.readNode(parent.ptrs[pf.idx-1]); err != nil {
			return false, err
		}
	}
	if pf.idx < len(parent.keys) {
		if right, err = t.readNode(parent.ptrs[pf.idx+1]); err != nil {
			return false, err
		}
	}

	// a sibling one short of full would just trade places with n
	roomy := func(s *node[K]) bool {
		return s != nil && len(s.keys) < t.cfg.MaxKeys()-1
	}
	switch {
	case roomy(left) && (!roomy(right) || len(left.keys) <= len(right.keys)):
		return true, t.rotateLeft(parent, pf.idx-1, left, n, leafLevel)
	case roomy(right):
		return true, t.rotateRight(parent, pf.idx, n, right, leafLevel)
	}
	return false, nil
}
