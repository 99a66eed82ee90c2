package bplus

import (
	"SeqIndex/types"

	"go.uber.org/zap"
)

// splitLeaf divides the entries of a leaf at their median into two leaves of
// half-full buckets. A root leaf keeps its page and becomes the parent of
// both halves; any other leaf keeps the left half and hands the separator to
// its parent.
func (t *Tree[K, E]) splitLeaf(path []frame, leaf *node[K]) error {
	entries, err := t.collect(leaf)
	if err != nil {
		return err
	}
	if len(entries) < 2 {
		return types.Corruptf("leaf %d: split of %d entries", leaf.no, len(entries))
	}
	mid := len(entries) / 2
	lower, upper := entries[:mid], entries[mid:]
	sep := t.ents.Key(upper[0])
	spare := append([]types.PageNo(nil), leaf.ptrs...)
	lo := t.cfg.MinKeys() + 1

	if leaf.no == t.root {
		l, err := t.newNode(types.NodeLeaf)
		if err != nil {
			return err
		}
		r, err := t.newNode(types.NodeLeaf)
		if err != nil {
			return err
		}
		if err := t.rebucket(l, lower, t.bucketsFor(len(lower), lo), &spare); err != nil {
			return err
		}
		if err := t.rebucket(r, upper, t.bucketsFor(len(upper), lo), &spare); err != nil {
			return err
		}
		l.right, r.left = r.no, l.no
		l.prev, r.prev = t.root, t.root
		if err := t.writeNode(l); err != nil {
			return err
		}
		if err := t.writeNode(r); err != nil {
			return err
		}

		t.level++
		leaf.keys = []K{sep}
		leaf.ptrs = []types.PageNo{l.no, r.no}
		if err := t.writeNode(leaf); err != nil {
			return err
		}
		t.logger.Info("root split", zap.Int64("root", int64(t.root)), zap.Int("level", t.level))
		return nil
	}

	r, err := t.newNode(types.NodeLeaf)
	if err != nil {
		return err
	}
	if err := t.rebucket(leaf, lower, t.bucketsFor(len(lower), lo), &spare); err != nil {
		return err
	}
	if err := t.rebucket(r, upper, t.bucketsFor(len(upper), lo), &spare); err != nil {
		return err
	}

	r.left, r.right, r.prev = leaf.no, leaf.right, leaf.prev
	if leaf.right != types.NoPage {
		if err := t.setLeft(leaf.right, r.no); err != nil {
			return err
		}
	}
	leaf.right = r.no
	if err := t.writeNode(leaf); err != nil {
		return err
	}
	if err := t.writeNode(r); err != nil {
		return err
	}
	return t.insertKey(path, sep, leaf.no, r.no)
}
