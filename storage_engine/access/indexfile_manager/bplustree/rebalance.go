package bplus

import (
	"SeqIndex/types"

	"go.uber.org/zap"
)

/*
Siblings exchange keys through their shared separator parent.keys[sep]:

	rotateRight  l's last key/pointer moves to the front of r
	rotateLeft   r's first key/pointer moves to the end of l
	merge        r and the separator are appended to l, r is dropped

Leaves are merged and rebalanced by their entries instead, see
rebalanceLeaves.

On the leaf level the pointers are buckets, so rotations carry whole
buckets between leaves. Above it they carry subtrees, whose parent links
follow them.
*/

func (t *Tree[K, E]) rotateRight(parent *node[K], sep int, l, r *node[K], leafLevel bool) error {
	if len(l.keys) == 0 {
		return types.Corruptf("page %d: shift from a node without keys", l.no)
	}
	last := len(l.keys) - 1
	moved := l.ptrs[last+1]

	r.keys = insertAt(r.keys, 0, parent.keys[sep])
	r.ptrs = insertAt(r.ptrs, 0, moved)
	parent.keys[sep] = l.keys[last]
	l.keys = l.keys[:last]
	l.ptrs = l.ptrs[:last+1]

	if !leafLevel {
		if err := t.setPrev(moved, r.no); err != nil {
			return err
		}
	}
	return t.writeAll(parent, l, r)
}

func (t *Tree[K, E]) rotateLeft(parent *node[K], sep int, l, r *node[K], leafLevel bool) error {
	if len(r.keys) == 0 {
		return types.Corruptf("page %d: shift from a node without keys", r.no)
	}
	moved := r.ptrs[0]

	l.keys = append(l.keys, parent.keys[sep])
	l.ptrs = append(l.ptrs, moved)
	parent.keys[sep] = r.keys[0]
	r.keys = removeAt(r.keys, 0)
	r.ptrs = removeAt(r.ptrs, 0)

	if !leafLevel {
		if err := t.setPrev(moved, l.no); err != nil {
			return err
		}
	}
	return t.writeAll(parent, l, r)
}

// merge folds internal node r into its left sibling l and removes their
// separator from the parent.
func (t *Tree[K, E]) merge(parent *node[K], sep int, l, r *node[K]) error {
	if len(l.keys)+len(r.keys)+1 > t.cfg.MaxKeys() {
		return types.Corruptf("merge of %d and %d would overflow", l.no, r.no)
	}
	l.keys = append(append(l.keys, parent.keys[sep]), r.keys...)
	l.ptrs = append(l.ptrs, r.ptrs...)
	for _, c := range r.ptrs {
		if err := t.setPrev(c, l.no); err != nil {
			return err
		}
	}
	return t.dropRight(parent, sep, l, r)
}

// dropRight removes r, merged into l, from the parent.
func (t *Tree[K, E]) dropRight(parent *node[K], sep int, l, r *node[K]) error {
	parent.keys = removeAt(parent.keys, sep)
	parent.ptrs = removeAt(parent.ptrs, sep+1)
	t.nodes.del(r.no)
	t.logger.Debug("merge", zap.Int64("into", int64(l.no)), zap.Int64("from", int64(r.no)))
	if err := t.writeAll(parent, l); err != nil {
		return err
	}
	if parent.no == t.root && len(parent.keys) == 0 {
		return t.collapseRoot(parent)
	}
	return nil
}

// rebalance restores the minimum fill of child idx of parent, shifting from
// the larger sibling if it can spare a key and merging otherwise. An
// internal root left without keys is collapsed.
func (t *Tree[K, E]) rebalance(parent *node[K], idx int, leafLevel bool) error {
	child, err := t.readNode(parent.ptrs[idx])
	if err != nil {
		return err
	}

	var left, right *node[K]
	if idx > 0 {
		if left, err = t.readNode(parent.ptrs[idx-1]); err != nil {
			return err
		}
	}
	if idx < len(parent.keys) {
		if right, err = t.readNode(parent.ptrs[idx+1]); err != nil {
			return err
		}
	}
	if left == nil && right == nil {
		return types.Corruptf("page %d: node %d has no sibling to rebalance with", parent.no, child.no)
	}
	if leafLevel {
		return t.rebalanceLeaves(parent, idx, left, child, right)
	}

	spare := func(s *node[K]) bool {
		return s != nil && len(s.keys) > t.cfg.MinKeys()
	}
	for len(child.keys) < t.cfg.MinKeys() {
		switch {
		case spare(left) && (right == nil || len(left.keys) >= len(right.keys)):
			err = t.rotateRight(parent, idx-1, left, child, false)
		case spare(right):
			err = t.rotateLeft(parent, idx, child, right, false)
		case left != nil:
			return t.merge(parent, idx-1, left, child)
		default:
			return t.merge(parent, idx, child, right)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// rebalanceLeaves pools the entries of an underfull leaf and its larger
// sibling. With enough entries for two leaves of minimum fill they are split
// evenly between both and the separator moves; otherwise everything goes
// into the left leaf and the right one is dropped. Either way the buckets
// are rebuilt, so no leaf keeps an empty bucket.
func (t *Tree[K, E]) rebalanceLeaves(parent *node[K], idx int, left, child, right *node[K]) error {
	l, r, sep := child, right, idx
	if left != nil && (right == nil || len(left.keys) >= len(right.keys)) {
		l, r, sep = left, child, idx-1
	}

	lower, err := t.collect(l)
	if err != nil {
		return err
	}
	upper, err := t.collect(r)
	if err != nil {
		return err
	}
	all := append(lower, upper...)
	spare := append(append([]types.PageNo(nil), l.ptrs...), r.ptrs...)
	lo := t.cfg.MinKeys() + 1

	if len(all) >= 2*lo {
		mid := len(all) / 2
		if err := t.rebucket(l, all[:mid], t.bucketsFor(mid, lo), &spare); err != nil {
			return err
		}
		if err := t.rebucket(r, all[mid:], t.bucketsFor(len(all)-mid, lo), &spare); err != nil {
			return err
		}
		parent.keys[sep] = t.ents.Key(all[mid])
		return t.writeAll(parent, l, r)
	}

	if err := t.rebucket(l, all, t.bucketsFor(len(all), lo), &spare); err != nil {
		return err
	}
	l.right = r.right
	if r.right != types.NoPage {
		if err := t.setLeft(r.right, l.no); err != nil {
			return err
		}
	}
	return t.dropRight(parent, sep, l, r)
}

// collapseRoot pulls the only child of a keyless root into the root page and
// shrinks the tree by one level.
func (t *Tree[K, E]) collapseRoot(root *node[K]) error {
	child, err := t.readNode(root.ptrs[0])
	if err != nil {
		return err
	}

	t.level--
	root.keys = child.keys
	root.ptrs = child.ptrs
	if t.level > 0 {
		if err := t.adopt(root); err != nil {
			return err
		}
	}
	if err := t.writeNode(root); err != nil {
		return err
	}
	t.nodes.del(child.no)
	t.logger.Info("root collapse", zap.Int64("root", int64(t.root)), zap.Int("level", t.level))
	return nil
}

func (t *Tree[K, E]) writeAll(nodes ...*node[K]) error {
	for _, n := range nodes {
		if err := t.writeNode(n); err != nil {
			return err
		}
	}
	return nil
}
